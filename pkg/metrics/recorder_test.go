package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/badgelink/badgelink-go/pkg/wire"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounters(t *testing.T) {
	r := NewRecorder("test")

	r.PacketSent(wire.MsgHello)
	r.PacketSent(wire.MsgHello)
	r.PacketReceived(wire.MsgProposal)
	r.PacketDropped("short_packet")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.sent.WithLabelValues("HELLO")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.received.WithLabelValues("PROPOSAL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.dropped.WithLabelValues("short_packet")))
}

func TestRecorderState(t *testing.T) {
	r := NewRecorder("test")

	r.StateChanged(wire.StateSearching, wire.StateProposing)
	r.StateChanged(wire.StateProposing, wire.StatePaired)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.state.WithLabelValues("PAIRED")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.state.WithLabelValues("PROPOSING")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.state.WithLabelValues("SEARCHING")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.transitions.WithLabelValues("PROPOSING", "PAIRED")))
}

func TestRecorderSimilarity(t *testing.T) {
	r := NewRecorder("test")
	r.SimilarityObserved(66)
	r.SimilarityObserved(100)

	expected := `
# HELP test_pairing_similarity_score Dice similarity of received HELLO bitmasks.
# TYPE test_pairing_similarity_score histogram
test_pairing_similarity_score_bucket{le="10"} 0
test_pairing_similarity_score_bucket{le="20"} 0
test_pairing_similarity_score_bucket{le="30"} 0
test_pairing_similarity_score_bucket{le="40"} 0
test_pairing_similarity_score_bucket{le="50"} 0
test_pairing_similarity_score_bucket{le="60"} 0
test_pairing_similarity_score_bucket{le="70"} 1
test_pairing_similarity_score_bucket{le="80"} 1
test_pairing_similarity_score_bucket{le="90"} 1
test_pairing_similarity_score_bucket{le="100"} 2
test_pairing_similarity_score_bucket{le="+Inf"} 2
test_pairing_similarity_score_sum 166
test_pairing_similarity_score_count 2
`
	require.NoError(t, testutil.CollectAndCompare(r, strings.NewReader(expected), "test_pairing_similarity_score"))
}

func TestHandler(t *testing.T) {
	r := NewRecorder("badgelink")
	r.PacketSent(wire.MsgHeartbeat)

	h, err := Handler(r)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.Contains(t, body, `badgelink_pairing_packets_sent_total{type="HEARTBEAT"} 1`)
	assert.Contains(t, body, `badgelink_pairing_state{state="SEARCHING"} 0`)
	assert.Contains(t, body, "go_goroutines")
}
