package log

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/badgelink/badgelink-go/pkg/wire"
)

func createTestLogFile(t *testing.T, events []Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test"+FileExtension)

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create test log: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func readAll(t *testing.T, r *Reader) []Event {
	t.Helper()
	var out []Event
	for {
		e, err := r.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		out = append(out, e)
	}
}

func TestReaderIteratesEvents(t *testing.T) {
	events := []Event{
		{Timestamp: time.Now(), PeerAddr: "p1", Direction: DirectionIn, Layer: LayerRadio, Category: CategoryPacket},
		{Timestamp: time.Now(), PeerAddr: "p2", Direction: DirectionOut, Layer: LayerWire, Category: CategoryPacket},
		{Timestamp: time.Now(), PeerAddr: "p3", Layer: LayerPairing, Category: CategoryState},
	}

	reader, err := NewReader(createTestLogFile(t, events))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	read := readAll(t, reader)
	if len(read) != 3 {
		t.Fatalf("got %d events, want 3", len(read))
	}
	for i, want := range []string{"p1", "p2", "p3"} {
		if read[i].PeerAddr != want {
			t.Errorf("event %d PeerAddr = %q, want %q", i, read[i].PeerAddr, want)
		}
	}
}

func TestReaderFilters(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []Event{
		{Timestamp: base, SessionID: "s1", PeerAddr: "bb", Direction: DirectionIn, Layer: LayerWire, Category: CategoryPacket, Packet: &PacketEvent{Type: wire.MsgHello}},
		{Timestamp: base.Add(time.Second), SessionID: "s1", PeerAddr: "bb", Direction: DirectionOut, Layer: LayerWire, Category: CategoryPacket, Packet: &PacketEvent{Type: wire.MsgProposal}},
		{Timestamp: base.Add(2 * time.Second), SessionID: "s2", PeerAddr: "cc", Direction: DirectionIn, Layer: LayerWire, Category: CategoryDrop, Drop: &DropEvent{Reason: "short_packet"}},
		{Timestamp: base.Add(3 * time.Second), SessionID: "s2", PeerAddr: "cc", Layer: LayerPairing, Category: CategoryState, StateChange: &StateChangeEvent{NewState: "PAIRED"}},
	}
	path := createTestLogFile(t, events)

	out := DirectionOut
	pairing := LayerPairing
	drop := CategoryDrop
	hello := wire.MsgHello
	start := base.Add(time.Second)
	end := base.Add(3 * time.Second)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"none", Filter{}, 4},
		{"session", Filter{SessionID: "s1"}, 2},
		{"peer", Filter{PeerAddr: "cc"}, 2},
		{"direction", Filter{Direction: &out}, 1},
		{"layer", Filter{Layer: &pairing}, 1},
		{"category", Filter{Category: &drop}, 1},
		{"message type", Filter{MessageType: &hello}, 1},
		{"time window", Filter{TimeStart: &start, TimeEnd: &end}, 2},
		{"combined", Filter{SessionID: "s2", Category: &drop}, 1},
		{"no match", Filter{SessionID: "s9"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader, err := NewFilteredReader(path, tt.filter)
			if err != nil {
				t.Fatalf("NewFilteredReader failed: %v", err)
			}
			defer reader.Close()

			if got := len(readAll(t, reader)); got != tt.want {
				t.Errorf("got %d events, want %d", got, tt.want)
			}
		})
	}
}

func TestReaderMissingFile(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "nope.blog")); err == nil {
		t.Error("expected error for missing file")
	}
}
