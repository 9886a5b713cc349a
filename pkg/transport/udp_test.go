package transport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/badgelink/badgelink-go/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncSink struct {
	mu     sync.Mutex
	frames []received
	ch     chan struct{}
}

func newSyncSink() *syncSink {
	return &syncSink{ch: make(chan struct{}, 16)}
}

func (s *syncSink) receive(src, dst wire.Address, data []byte, rssi, noise int8) {
	s.mu.Lock()
	s.frames = append(s.frames, received{src, dst, data, rssi, noise})
	s.mu.Unlock()
	s.ch <- struct{}{}
}

func (s *syncSink) wait(t *testing.T) received {
	t.Helper()
	select {
	case <-s.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames[len(s.frames)-1]
}

// openUDP skips the test when the host has no multicast-capable interface.
func openUDP(t *testing.T, a wire.Address, config UDPConfig) *UDPRadio {
	t.Helper()
	r, err := ListenUDP(config, a)
	if err != nil {
		t.Skipf("multicast unavailable: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestUDPRadioExchange(t *testing.T) {
	config := DefaultUDPConfig()
	config.Group = "239.255.66.76:47661"

	r1 := openUDP(t, addr(1), config)
	r2 := openUDP(t, addr(2), config)
	s1, s2 := newSyncSink(), newSyncSink()
	r1.SetReceiver(s1.receive)
	r2.SetReceiver(s2.receive)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r1.Run(ctx)
	go r2.Run(ctx)

	r1.Send(wire.BroadcastAddress, []byte{0xAA, 0x00})
	got := s2.wait(t)
	assert.Equal(t, addr(1), got.src)
	assert.True(t, got.dst.IsBroadcast())
	assert.Equal(t, []byte{0xAA, 0x00}, got.data)
	assert.Equal(t, int8(DefaultNominalRSSI), got.rssi)

	r2.RegisterPeer(addr(1))
	r2.Send(addr(1), []byte{0xAA, 0x01})
	got = s1.wait(t)
	assert.Equal(t, addr(2), got.src)
	assert.Equal(t, addr(1), got.dst)

	s1.mu.Lock()
	for _, f := range s1.frames {
		assert.NotEqual(t, addr(1), f.src, "own frames are filtered")
	}
	s1.mu.Unlock()
}

func TestUDPRadioUnknownPeer(t *testing.T) {
	config := DefaultUDPConfig()
	config.Group = "239.255.66.76:47662"
	r := openUDP(t, addr(1), config)

	r.Send(addr(9), []byte{1})
	assert.Equal(t, uint64(1), r.Stats().UnknownPeerDrops)
	assert.Zero(t, r.Stats().FramesSent)
}

func TestUDPRadioRunStopsOnCancel(t *testing.T) {
	config := DefaultUDPConfig()
	config.Group = "239.255.66.76:47663"
	r := openUDP(t, addr(1), config)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestListenUDPRejectsBadConfig(t *testing.T) {
	_, err := ListenUDP(UDPConfig{Group: "10.0.0.1:4000"}, addr(1))
	assert.Error(t, err)

	_, err = ListenUDP(DefaultUDPConfig(), wire.BroadcastAddress)
	assert.ErrorIs(t, err, ErrInvalidAddress)
}
