package commands

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/badgelink/badgelink-go/pkg/log"
	"github.com/badgelink/badgelink-go/pkg/wire"
)

const (
	testLocal   = "02:00:00:00:00:01"
	testPeer    = "02:00:00:00:00:02"
	testSession = "5f0c2a8e-1111-2222-3333-444455556666"
)

var testStart = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

// sampleEvents is a short session: HELLO in, ACCEPT out, PAIRED, one
// heartbeat, a drop and the timeout.
func sampleEvents() []log.Event {
	score := 75
	at := func(ms int) time.Time { return testStart.Add(time.Duration(ms) * time.Millisecond) }
	return []log.Event{
		{
			Timestamp: at(0), Direction: log.DirectionIn, Layer: log.LayerRadio, Category: log.CategoryPacket,
			LocalAddr: testLocal, PeerAddr: testPeer,
			Frame: &log.FrameEvent{Size: 28, Data: []byte{0xAA, 0x00}, RSSI: -52},
		},
		{
			Timestamp: at(1), Direction: log.DirectionIn, Layer: log.LayerWire, Category: log.CategoryPacket,
			LocalAddr: testLocal, PeerAddr: testPeer,
			Packet: &log.PacketEvent{Type: wire.MsgHello, RSSI: -52, BitmaskLen: 2, Similarity: &score},
		},
		{
			Timestamp: at(2), Direction: log.DirectionOut, Layer: log.LayerWire, Category: log.CategoryPacket,
			LocalAddr: testLocal, PeerAddr: testPeer,
			Packet: &log.PacketEvent{Type: wire.MsgProposal, SenderState: wire.StateSearching, BitmaskLen: 2, Text: "pk-local"},
		},
		{
			Timestamp: at(10), SessionID: testSession, Direction: log.DirectionIn, Layer: log.LayerPairing, Category: log.CategoryState,
			LocalAddr: testLocal, PeerAddr: testPeer,
			StateChange: &log.StateChangeEvent{OldState: "PROPOSING", NewState: "PAIRED", Reason: "accepted", Partner: testPeer},
		},
		{
			Timestamp: at(500), SessionID: testSession, Direction: log.DirectionIn, Layer: log.LayerWire, Category: log.CategoryPacket,
			LocalAddr: testLocal, PeerAddr: testPeer,
			Packet: &log.PacketEvent{Type: wire.MsgHeartbeat, Seq: 1, SenderState: wire.StatePaired, RSSI: -50},
		},
		{
			Timestamp: at(600), SessionID: testSession, Direction: log.DirectionOut, Layer: log.LayerPairing, Category: log.CategoryNotification,
			LocalAddr: testLocal, PeerAddr: testPeer,
			Notification: &log.NotificationEvent{Kind: log.NotificationPartnerKey, Value: "pk-peer"},
		},
		{
			Timestamp: at(700), SessionID: testSession, Direction: log.DirectionIn, Layer: log.LayerWire, Category: log.CategoryDrop,
			LocalAddr: testLocal, PeerAddr: "02:00:00:00:00:03",
			Drop: &log.DropEvent{Reason: "short_packet", Size: 3, Detail: "packet shorter than header"},
		},
		{
			Timestamp: at(5000), Direction: log.DirectionIn, Layer: log.LayerPairing, Category: log.CategoryState,
			LocalAddr: testLocal,
			StateChange: &log.StateChangeEvent{OldState: "PAIRED", NewState: "SEARCHING", Reason: "heartbeat timeout"},
		},
	}
}

func writeLog(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.blog")
	fl, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	for _, e := range events {
		fl.Log(e)
	}
	if err := fl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path
}
