package interactive

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/badgelink/badgelink-go/pkg/discovery"
	"github.com/badgelink/badgelink-go/pkg/pairing"
	"github.com/badgelink/badgelink-go/pkg/persistence"
	"github.com/badgelink/badgelink-go/pkg/wire"
	"github.com/stretchr/testify/assert"
)

type fakeBadge struct {
	bitmask []byte
	url     string
	resets  int
	status  pairing.Status
	err     error
}

func (f *fakeBadge) SetLocalBitmask(_ context.Context, b []byte) error {
	f.bitmask = b
	return f.err
}

func (f *fakeBadge) SetRelayURL(_ context.Context, url string) error {
	f.url = url
	return f.err
}

func (f *fakeBadge) Reset(context.Context) error {
	f.resets++
	return f.err
}

func (f *fakeBadge) Status(context.Context) (pairing.Status, error) {
	return f.status, f.err
}

type fakeBrowser map[string]*discovery.BadgeService

func (f fakeBrowser) FindAll(context.Context) (map[string]*discovery.BadgeService, error) {
	return f, nil
}

var (
	localAddr = wire.Address{0x02, 0, 0, 0, 0, 0x01}
	peerAddr  = wire.Address{0x02, 0, 0, 0, 0, 0x02}
)

func newTestConsole(badge Badge, browser Browser, pairings func() []persistence.PairingRecord) (*Console, *bytes.Buffer) {
	var buf bytes.Buffer
	c := &Console{out: &buf}
	c.Attach(badge, browser, Identity{Address: localAddr, PublicKey: "pk", Fingerprint: "abcd1234"}, pairings)
	return c, &buf
}

func TestConsoleCommands(t *testing.T) {
	badge := &fakeBadge{}
	c, out := newTestConsole(badge, nil, nil)
	ctx := context.Background()

	assert.True(t, c.Exec(ctx, "bitmask f00f"))
	assert.Equal(t, []byte{0xF0, 0x0F}, badge.bitmask)
	assert.Contains(t, out.String(), "Bitmask set (2 bytes)")

	assert.True(t, c.Exec(ctx, "url https://relay.example/r"))
	assert.Equal(t, "https://relay.example/r", badge.url)

	assert.True(t, c.Exec(ctx, "RESET"))
	assert.Equal(t, 1, badge.resets)

	out.Reset()
	assert.True(t, c.Exec(ctx, "bitmask zz"))
	assert.Contains(t, out.String(), "Invalid hex")

	out.Reset()
	assert.True(t, c.Exec(ctx, "frobnicate"))
	assert.Contains(t, out.String(), "Unknown command: frobnicate")

	assert.True(t, c.Exec(ctx, "   "))
	assert.False(t, c.Exec(ctx, "quit"))
}

func TestConsoleReportsErrors(t *testing.T) {
	badge := &fakeBadge{err: errors.New("not paired")}
	c, out := newTestConsole(badge, nil, nil)

	c.Exec(context.Background(), "url https://x")
	assert.Contains(t, out.String(), "Error: not paired")
}

func TestConsoleStatus(t *testing.T) {
	partner := peerAddr
	pairedAt := time.Now().Add(-time.Minute)
	badge := &fakeBadge{status: pairing.Status{
		Ready:        true,
		State:        "PAIRED",
		LocalBitmask: []byte{0xF0},
		Partner:      &partner,
		Similarity:   80,
		PairedAt:     &pairedAt,
		SessionID:    "s-1",
		Zone:         "CLOSE",
		DistanceM:    1.5,
	}}
	c, out := newTestConsole(badge, nil, nil)

	c.Exec(context.Background(), "status")
	s := out.String()
	assert.Contains(t, s, "State:      PAIRED")
	assert.Contains(t, s, "Partner:    "+partner.String())
	assert.Contains(t, s, "Similarity: 80%")
	assert.Contains(t, s, "Proximity:  CLOSE (~1.5 m)")
	assert.Contains(t, s, "session s-1")
}

func TestConsoleNearby(t *testing.T) {
	browser := fakeBrowser{
		localAddr.String(): {BadgeInfo: discovery.BadgeInfo{Address: localAddr, State: "SEARCHING"}},
		peerAddr.String(): {
			Host:      "badge-000002.local.",
			Port:      4767,
			BadgeInfo: discovery.BadgeInfo{Address: peerAddr, State: "PAIRED", Partner: localAddr},
		},
	}
	c, out := newTestConsole(&fakeBadge{}, browser, nil)

	c.Exec(context.Background(), "nearby 1")
	s := out.String()
	assert.Contains(t, s, peerAddr.String())
	assert.Contains(t, s, "with "+localAddr.String())
	assert.NotContains(t, s, localAddr.String()+"  SEARCHING")

	out.Reset()
	c.Exec(context.Background(), "nearby -1")
	assert.Contains(t, out.String(), "Usage: nearby")
}

func TestConsoleHistory(t *testing.T) {
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	recs := []persistence.PairingRecord{
		{SessionID: "a", Partner: peerAddr.String(), Similarity: 75, PairedAt: at, EndedAt: at.Add(90 * time.Second), EndReason: "heartbeat timeout"},
		{SessionID: "b", Partner: peerAddr.String(), Similarity: 60, PairedAt: at.Add(time.Hour), RelayURL: "https://r"},
	}
	c, out := newTestConsole(&fakeBadge{}, nil, func() []persistence.PairingRecord { return recs })

	c.Exec(context.Background(), "history")
	s := out.String()
	assert.Contains(t, s, "1m30s (heartbeat timeout)")
	assert.Contains(t, s, "running")
	assert.Contains(t, s, "relay: https://r")
}

func TestConsoleWhoami(t *testing.T) {
	c, out := newTestConsole(&fakeBadge{}, nil, nil)
	c.Exec(context.Background(), "whoami")
	assert.Contains(t, out.String(), "Fingerprint: abcd1234")
	assert.Contains(t, out.String(), localAddr.String())
}
