package log

import (
	"testing"
	"time"

	"github.com/badgelink/badgelink-go/pkg/wire"
)

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"direction in", DirectionIn.String(), "IN"},
		{"direction out", DirectionOut.String(), "OUT"},
		{"direction unknown", Direction(9).String(), "UNKNOWN"},
		{"layer radio", LayerRadio.String(), "RADIO"},
		{"layer wire", LayerWire.String(), "WIRE"},
		{"layer pairing", LayerPairing.String(), "PAIRING"},
		{"layer unknown", Layer(9).String(), "UNKNOWN"},
		{"category packet", CategoryPacket.String(), "PACKET"},
		{"category notification", CategoryNotification.String(), "NOTIFICATION"},
		{"category state", CategoryState.String(), "STATE"},
		{"category drop", CategoryDrop.String(), "DROP"},
		{"category unknown", Category(9).String(), "UNKNOWN"},
		{"notification key", NotificationPartnerKey.String(), "PARTNER_KEY"},
		{"notification url", NotificationRelayURL.String(), "RELAY_URL"},
		{"notification unknown", NotificationKind(9).String(), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestEventRoundTrip(t *testing.T) {
	score := 66
	ts := time.Date(2026, 3, 1, 12, 30, 0, 123456789, time.UTC)

	tests := []struct {
		name  string
		event Event
	}{
		{
			name: "frame",
			event: Event{
				Timestamp: ts,
				Direction: DirectionIn,
				Layer:     LayerRadio,
				Category:  CategoryPacket,
				PeerAddr:  "bb:bb:bb:bb:bb:bb",
				Frame:     &FrameEvent{Size: 3, Data: []byte{0xAA, 0x00, 0x01}, RSSI: -61},
			},
		},
		{
			name: "packet",
			event: Event{
				Timestamp: ts,
				Direction: DirectionIn,
				Layer:     LayerWire,
				Category:  CategoryPacket,
				LocalAddr: "aa:aa:aa:aa:aa:aa",
				PeerAddr:  "bb:bb:bb:bb:bb:bb",
				Packet: &PacketEvent{
					Type:        wire.MsgHello,
					SenderState: wire.StateSearching,
					RSSI:        -55,
					BitmaskLen:  1,
					Similarity:  &score,
				},
			},
		},
		{
			name: "state change",
			event: Event{
				Timestamp:   ts,
				SessionID:   "3f0e5a52-6f6b-4d8f-9a1c-1b2c3d4e5f60",
				Layer:       LayerPairing,
				Category:    CategoryState,
				StateChange: &StateChangeEvent{OldState: "PROPOSING", NewState: "PAIRED", Reason: "accept", Partner: "bb:bb:bb:bb:bb:bb"},
			},
		},
		{
			name: "notification",
			event: Event{
				Timestamp:    ts,
				Layer:        LayerPairing,
				Category:     CategoryNotification,
				Notification: &NotificationEvent{Kind: NotificationRelayURL, Value: "https://relay.example/r/1"},
			},
		},
		{
			name: "drop",
			event: Event{
				Timestamp: ts,
				Direction: DirectionIn,
				Layer:     LayerWire,
				Category:  CategoryDrop,
				Drop:      &DropEvent{Reason: "short_packet", Size: 4},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeEvent(tt.event)
			if err != nil {
				t.Fatalf("EncodeEvent failed: %v", err)
			}
			got, err := DecodeEvent(data)
			if err != nil {
				t.Fatalf("DecodeEvent failed: %v", err)
			}

			if !got.Timestamp.Equal(tt.event.Timestamp) {
				t.Errorf("Timestamp = %v, want %v", got.Timestamp, tt.event.Timestamp)
			}
			if got.Layer != tt.event.Layer || got.Category != tt.event.Category || got.Direction != tt.event.Direction {
				t.Errorf("header = %v/%v/%v, want %v/%v/%v",
					got.Layer, got.Category, got.Direction, tt.event.Layer, tt.event.Category, tt.event.Direction)
			}
			if got.SessionID != tt.event.SessionID {
				t.Errorf("SessionID = %q, want %q", got.SessionID, tt.event.SessionID)
			}
			if (got.Frame == nil) != (tt.event.Frame == nil) ||
				(got.Packet == nil) != (tt.event.Packet == nil) ||
				(got.StateChange == nil) != (tt.event.StateChange == nil) ||
				(got.Notification == nil) != (tt.event.Notification == nil) ||
				(got.Drop == nil) != (tt.event.Drop == nil) {
				t.Fatalf("payload presence mismatch: %+v", got)
			}
		})
	}
}

func TestPacketEventFieldsSurvive(t *testing.T) {
	score := 80
	in := Event{
		Timestamp: time.Now(),
		Category:  CategoryPacket,
		Packet: &PacketEvent{
			Type:        wire.MsgAccept,
			Seq:         12,
			SenderState: wire.StatePaired,
			Partner:     "aa:aa:aa:aa:aa:aa",
			UptimeMS:    5000,
			RSSI:        -48,
			BitmaskLen:  2,
			Text:        "5Hue",
			Similarity:  &score,
		},
	}

	data, err := EncodeEvent(in)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	out, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	p := out.Packet
	if p.Type != wire.MsgAccept || p.Seq != 12 || p.SenderState != wire.StatePaired {
		t.Errorf("packet header mismatch: %+v", p)
	}
	if p.RSSI != -48 || p.BitmaskLen != 2 || p.Text != "5Hue" || p.UptimeMS != 5000 {
		t.Errorf("packet body mismatch: %+v", p)
	}
	if p.Similarity == nil || *p.Similarity != 80 {
		t.Errorf("Similarity = %v, want 80", p.Similarity)
	}
}

func TestNewFrameEventTruncates(t *testing.T) {
	small := NewFrameEvent([]byte{1, 2, 3}, -70)
	if small.Size != 3 || small.Truncated || len(small.Data) != 3 || small.RSSI != -70 {
		t.Errorf("small frame = %+v", small)
	}

	big := make([]byte, 200)
	f := NewFrameEvent(big, 0)
	if f.Size != 200 || !f.Truncated || len(f.Data) != MaxFrameCapture {
		t.Errorf("big frame = size %d truncated %v len %d", f.Size, f.Truncated, len(f.Data))
	}

	big[0] = 0xFF
	if f.Data[0] != 0 {
		t.Error("frame data aliases the input")
	}
}
