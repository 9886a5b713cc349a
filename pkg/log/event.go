package log

import (
	"time"

	"github.com/badgelink/badgelink-go/pkg/wire"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the pairing session (UUID, empty outside PAIRED).
	SessionID string `cbor:"2,keyasint,omitempty"`

	// Direction indicates packet flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// LocalAddr is the capturing node's address.
	LocalAddr string `cbor:"6,keyasint,omitempty"`

	// PeerAddr is the remote address, if any.
	PeerAddr string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame        *FrameEvent        `cbor:"10,keyasint,omitempty"`
	Packet       *PacketEvent       `cbor:"11,keyasint,omitempty"`
	StateChange  *StateChangeEvent  `cbor:"12,keyasint,omitempty"`
	Notification *NotificationEvent `cbor:"13,keyasint,omitempty"`
	Drop         *DropEvent         `cbor:"14,keyasint,omitempty"`
}

// Direction indicates the direction of packet flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming packet.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing packet.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerRadio is the datagram layer (raw bytes).
	LayerRadio Layer = 0
	// LayerWire is the packet codec layer.
	LayerWire Layer = 1
	// LayerPairing is the pairing state machine.
	LayerPairing Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerRadio:
		return "RADIO"
	case LayerWire:
		return "WIRE"
	case LayerPairing:
		return "PAIRING"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryPacket indicates a datagram or decoded packet.
	CategoryPacket Category = 0
	// CategoryNotification indicates data handed to the notification sink.
	CategoryNotification Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryDrop indicates discarded input.
	CategoryDrop Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryPacket:
		return "PACKET"
	case CategoryNotification:
		return "NOTIFICATION"
	case CategoryState:
		return "STATE"
	case CategoryDrop:
		return "DROP"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw datagram bytes at the radio layer.
type FrameEvent struct {
	// Size is the datagram size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the raw datagram (may be truncated).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`

	// RSSI is the received signal strength (inbound only).
	RSSI int8 `cbor:"4,keyasint,omitempty"`
}

// PacketEvent captures a decoded packet at the wire layer.
type PacketEvent struct {
	Type        wire.MessageType `cbor:"1,keyasint"`
	Seq         uint32           `cbor:"2,keyasint,omitempty"`
	SenderState wire.State       `cbor:"3,keyasint"`
	Partner     string           `cbor:"4,keyasint,omitempty"`
	UptimeMS    uint32           `cbor:"5,keyasint,omitempty"`
	RSSI        int8             `cbor:"6,keyasint,omitempty"`
	BitmaskLen  int              `cbor:"7,keyasint,omitempty"`

	// Text is the trailing key or URL.
	Text string `cbor:"8,keyasint,omitempty"`

	// Similarity is the matcher score for HELLO packets.
	Similarity *int `cbor:"9,keyasint,omitempty"`
}

// StateChangeEvent captures a pairing state transition.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`

	// Partner is the partner address after the change.
	Partner string `cbor:"4,keyasint,omitempty"`
}

// NotificationEvent captures data delivered to the notification sink.
type NotificationEvent struct {
	Kind  NotificationKind `cbor:"1,keyasint"`
	Value string           `cbor:"2,keyasint,omitempty"`
}

// NotificationKind indicates what was delivered.
type NotificationKind uint8

const (
	// NotificationPartnerKey is the partner's public key after confirmation.
	NotificationPartnerKey NotificationKind = 0
	// NotificationRelayURL is a relay URL received from the partner.
	NotificationRelayURL NotificationKind = 1
)

// String returns the notification kind name.
func (k NotificationKind) String() string {
	switch k {
	case NotificationPartnerKey:
		return "PARTNER_KEY"
	case NotificationRelayURL:
		return "RELAY_URL"
	default:
		return "UNKNOWN"
	}
}

// DropEvent captures discarded input.
type DropEvent struct {
	// Reason is a short machine-friendly cause ("short_packet", "not_ready").
	Reason string `cbor:"1,keyasint"`

	// Size is the size of the discarded datagram.
	Size int `cbor:"2,keyasint,omitempty"`

	// Detail is an optional human-readable description.
	Detail string `cbor:"3,keyasint,omitempty"`
}
