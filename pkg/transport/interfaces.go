package transport

import (
	"github.com/badgelink/badgelink-go/pkg/pairing"
	"github.com/badgelink/badgelink-go/pkg/wire"
)

// Receiver is called for every frame a radio receives. data is only valid
// during the call.
type Receiver func(src, dst wire.Address, data []byte, rssi, noise int8)

// Radio is a pairing.Transport that also delivers received frames.
type Radio interface {
	pairing.Transport

	// LocalAddress returns the address frames are sent from.
	LocalAddress() wire.Address

	// SetReceiver installs the receive callback. It must be called before
	// frames are expected.
	SetReceiver(fn Receiver)

	// Close stops the radio.
	Close() error
}

// RadioStats are cumulative radio counters.
type RadioStats struct {
	FramesSent       uint64 `json:"framesSent"`
	FramesReceived   uint64 `json:"framesReceived"`
	FramesLost       uint64 `json:"framesLost"`
	UnknownPeerDrops uint64 `json:"unknownPeerDrops"`
	SendErrors       uint64 `json:"sendErrors"`
}
