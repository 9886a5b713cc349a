package commands

import (
	"bytes"
	"testing"
	"time"

	"github.com/badgelink/badgelink-go/pkg/log"
	"github.com/badgelink/badgelink-go/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectStats(t *testing.T) {
	path := writeLog(t, sampleEvents())

	stats, err := CollectStats(path)
	require.NoError(t, err)

	assert.Equal(t, 8, stats.TotalEvents)
	assert.Equal(t, 4, stats.EventsByCategory[log.CategoryPacket])
	assert.Equal(t, 2, stats.EventsByCategory[log.CategoryState])
	assert.Equal(t, 2, stats.EventsByDirection[log.DirectionOut])
	assert.Equal(t, 1, stats.PacketsByType[wire.MsgHello])
	assert.Equal(t, 1, stats.PacketsByType[wire.MsgHeartbeat])
	assert.Equal(t, map[string]int{"short_packet": 1}, stats.DropsByReason)
	assert.Len(t, stats.Peers, 2)
	assert.True(t, testStart.Equal(stats.TimeRange.Start))
	assert.Equal(t, 5*time.Second, stats.TimeRange.End.Sub(stats.TimeRange.Start))

	require.Len(t, stats.Sessions, 1)
	sess := stats.Sessions[testSession]
	require.NotNil(t, sess)
	assert.Equal(t, testPeer, sess.Partner)
	assert.Equal(t, 4, sess.Events)
	assert.Equal(t, 1, sess.Heartbeats)
	assert.Equal(t, "heartbeat timeout", sess.EndReason)
}

func TestCollectStatsTwoSessions(t *testing.T) {
	first := sampleEvents()
	second := sampleEvents()
	for i := range second {
		second[i].Timestamp = second[i].Timestamp.Add(time.Minute)
		if second[i].SessionID != "" {
			second[i].SessionID = "a1b2c3d4-0000-0000-0000-000000000000"
		}
	}
	second[len(second)-1].StateChange.Reason = "reset"

	path := writeLog(t, append(first, second...))
	stats, err := CollectStats(path)
	require.NoError(t, err)

	require.Len(t, stats.Sessions, 2)
	assert.Equal(t, "heartbeat timeout", stats.Sessions[testSession].EndReason)
	assert.Equal(t, "reset", stats.Sessions["a1b2c3d4-0000-0000-0000-000000000000"].EndReason)
}

func TestRunStatsOutput(t *testing.T) {
	path := writeLog(t, sampleEvents())

	var buf bytes.Buffer
	require.NoError(t, RunStats(path, &buf))
	output := buf.String()

	for _, want := range []string{
		"Total Events: 8",
		"HELLO:",
		"HEARTBEAT:",
		"short_packet:",
		"Peers heard: 2",
		"Sessions: 1",
		"[5f0c2a8e] 4 events, 1 heartbeats",
		"Ended: heartbeat timeout",
	} {
		assert.Contains(t, output, want)
	}
}

func TestRunStatsEmptyLog(t *testing.T) {
	path := writeLog(t, nil)

	var buf bytes.Buffer
	require.NoError(t, RunStats(path, &buf))
	assert.Contains(t, buf.String(), "Total Events: 0")
	assert.Contains(t, buf.String(), "Sessions: 0")
}
