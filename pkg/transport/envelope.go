package transport

import (
	"errors"
	"fmt"

	"github.com/badgelink/badgelink-go/pkg/wire"
)

// Envelope constants.
const (
	envelopeMagic0  = 'B'
	envelopeMagic1  = 'L'
	envelopeVersion = 1

	// EnvelopeHeaderSize is magic (2) + version (1) + source (6) +
	// destination (6).
	EnvelopeHeaderSize = 15

	// MaxEnvelopeSize bounds a datagram on the emulated radio.
	MaxEnvelopeSize = EnvelopeHeaderSize + 250
)

// Envelope errors.
var (
	ErrEnvelopeShort   = errors.New("envelope too short")
	ErrEnvelopeMagic   = errors.New("envelope magic mismatch")
	ErrEnvelopeVersion = errors.New("unsupported envelope version")
	ErrEnvelopeTooLong = errors.New("envelope payload too long")
)

// Envelope is the link-layer framing used by the UDP radio. It carries what
// a radio driver reports alongside a payload: who sent it and to whom.
type Envelope struct {
	Src     wire.Address
	Dst     wire.Address
	Payload []byte
}

// MarshalBinary encodes e.
func (e *Envelope) MarshalBinary() ([]byte, error) {
	if EnvelopeHeaderSize+len(e.Payload) > MaxEnvelopeSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrEnvelopeTooLong, len(e.Payload))
	}
	buf := make([]byte, EnvelopeHeaderSize+len(e.Payload))
	buf[0], buf[1], buf[2] = envelopeMagic0, envelopeMagic1, envelopeVersion
	copy(buf[3:9], e.Src[:])
	copy(buf[9:15], e.Dst[:])
	copy(buf[EnvelopeHeaderSize:], e.Payload)
	return buf, nil
}

// UnmarshalBinary decodes data. The payload aliases data.
func (e *Envelope) UnmarshalBinary(data []byte) error {
	if len(data) < EnvelopeHeaderSize {
		return fmt.Errorf("%w: %d bytes", ErrEnvelopeShort, len(data))
	}
	if data[0] != envelopeMagic0 || data[1] != envelopeMagic1 {
		return ErrEnvelopeMagic
	}
	if data[2] != envelopeVersion {
		return fmt.Errorf("%w: %d", ErrEnvelopeVersion, data[2])
	}
	copy(e.Src[:], data[3:9])
	copy(e.Dst[:], data[9:15])
	e.Payload = data[EnvelopeHeaderSize:]
	return nil
}
