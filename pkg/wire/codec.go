package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Protocol constants.
const (
	// ProtocolTag filters pairing packets from other traffic on the channel.
	// Earlier firmware revisions used a different value and are not
	// interoperable with this format.
	ProtocolTag byte = 0xAA

	// HeaderSize is the size of the fixed header in bytes.
	HeaderSize = 26

	// DefaultMaxPacketSize is the transport payload ceiling (ESP-NOW v1).
	DefaultMaxPacketSize = 250

	// DefaultMaxBitmaskLen is the default bitmask ceiling in bytes.
	DefaultMaxBitmaskLen = 64

	// DefaultMaxStringLen is the default key/URL ceiling in bytes,
	// excluding the NUL terminator.
	DefaultMaxStringLen = 128
)

// Header field offsets.
const (
	offTag        = 0
	offType       = 1
	offSender     = 2
	offPartner    = 8
	offUptime     = 14
	offState      = 18
	offRSSI       = 19
	offSeq        = 20
	offBitmaskLen = 24
)

// Codec errors.
var (
	ErrShortPacket    = errors.New("packet shorter than header")
	ErrTagMismatch    = errors.New("protocol tag mismatch")
	ErrBitmaskOverrun = errors.New("bitmask length overruns packet")
	ErrBitmaskTooLong = errors.New("bitmask exceeds maximum length")
	ErrStringTooLong  = errors.New("string exceeds maximum length")
	ErrPacketTooLarge = errors.New("packet exceeds maximum size")
	ErrBufferTooSmall = errors.New("buffer too small for packet")
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidString  = errors.New("string is not valid UTF-8")
	ErrLimitsTooSmall = errors.New("limits leave no room for a full packet")
)

// Limits are the caller-configured ceilings enforced by the codec.
type Limits struct {
	// MaxPacketSize is the largest datagram the transport accepts.
	MaxPacketSize int

	// MaxBitmaskLen is the largest bitmask segment.
	MaxBitmaskLen int

	// MaxStringLen is the largest key or URL, excluding the terminator.
	MaxStringLen int
}

// DefaultLimits returns the limits used by the firmware.
func DefaultLimits() Limits {
	return Limits{
		MaxPacketSize: DefaultMaxPacketSize,
		MaxBitmaskLen: DefaultMaxBitmaskLen,
		MaxStringLen:  DefaultMaxStringLen,
	}
}

// WithDefaults returns l with zero fields set to the defaults.
func (l Limits) WithDefaults() Limits {
	if l.MaxPacketSize <= 0 {
		l.MaxPacketSize = DefaultMaxPacketSize
	}
	if l.MaxBitmaskLen <= 0 {
		l.MaxBitmaskLen = DefaultMaxBitmaskLen
	}
	if l.MaxStringLen <= 0 {
		l.MaxStringLen = DefaultMaxStringLen
	}
	return l
}

// Validate checks that a packet carrying a bitmask of MaxBitmaskLen bytes
// and a terminated string of MaxStringLen bytes fits MaxPacketSize. Zero
// fields take their defaults.
func (l Limits) Validate() error {
	l = l.WithDefaults()
	if need := HeaderSize + l.MaxBitmaskLen + l.MaxStringLen + 1; need > l.MaxPacketSize {
		return fmt.Errorf("%w: %d > %d", ErrLimitsTooSmall, need, l.MaxPacketSize)
	}
	return nil
}

// Header is the fixed part of every packet.
type Header struct {
	Type     MessageType
	Sender   Address
	Partner  Address
	UptimeMS uint32
	State    State
	LastRSSI int8
	Seq      uint32
}

// Packet is a decoded or to-be-encoded datagram.
//
// Bitmask and Text are owned by the packet: Decode copies them out of the
// receive buffer.
type Packet struct {
	Header

	// Bitmask is the sender's compatibility bitmask (nil when absent).
	Bitmask []byte

	// Text is the trailing public key or URL. HasText distinguishes an
	// absent segment from an empty one.
	Text    string
	HasText bool
}

// Size returns the encoded size of the packet in bytes.
func (p *Packet) Size() int {
	n := HeaderSize + len(p.Bitmask)
	if p.HasText {
		n += len(p.Text) + 1
	}
	return n
}

// Encode writes p into buf and returns the number of bytes written.
// It fails when the packet does not fit buf or exceeds the limits; buf is
// left untouched in that case.
func Encode(p *Packet, buf []byte, limits Limits) (int, error) {
	limits = limits.WithDefaults()

	if len(p.Bitmask) > limits.MaxBitmaskLen || len(p.Bitmask) > 0xFFFF {
		return 0, fmt.Errorf("%w: %d > %d", ErrBitmaskTooLong, len(p.Bitmask), limits.MaxBitmaskLen)
	}
	if p.HasText {
		if len(p.Text) > limits.MaxStringLen {
			return 0, fmt.Errorf("%w: %d > %d", ErrStringTooLong, len(p.Text), limits.MaxStringLen)
		}
		if !utf8.ValidString(p.Text) {
			return 0, ErrInvalidString
		}
	}

	size := p.Size()
	if size > limits.MaxPacketSize {
		return 0, fmt.Errorf("%w: %d > %d", ErrPacketTooLarge, size, limits.MaxPacketSize)
	}
	if size > len(buf) {
		return 0, fmt.Errorf("%w: %d > %d", ErrBufferTooSmall, size, len(buf))
	}

	buf[offTag] = ProtocolTag
	buf[offType] = byte(p.Type)
	copy(buf[offSender:offSender+AddressLen], p.Sender[:])
	copy(buf[offPartner:offPartner+AddressLen], p.Partner[:])
	binary.LittleEndian.PutUint32(buf[offUptime:], p.UptimeMS)
	buf[offState] = byte(p.State)
	buf[offRSSI] = byte(p.LastRSSI)
	binary.LittleEndian.PutUint32(buf[offSeq:], p.Seq)
	binary.LittleEndian.PutUint16(buf[offBitmaskLen:], uint16(len(p.Bitmask)))

	n := HeaderSize
	n += copy(buf[n:], p.Bitmask)
	if p.HasText {
		n += copy(buf[n:], p.Text)
		buf[n] = 0
		n++
	}
	return n, nil
}

// Marshal encodes p into a newly allocated slice.
func Marshal(p *Packet, limits Limits) ([]byte, error) {
	limits = limits.WithDefaults()
	buf := make([]byte, limits.MaxPacketSize)
	n, err := Encode(p, buf, limits)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// Decode parses a datagram. The returned packet does not reference data.
//
// A trailing string longer than limits.MaxStringLen is truncated to the
// ceiling rather than rejected.
func Decode(data []byte, limits Limits) (*Packet, error) {
	limits = limits.WithDefaults()

	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d < %d", ErrShortPacket, len(data), HeaderSize)
	}
	if data[offTag] != ProtocolTag {
		return nil, fmt.Errorf("%w: 0x%02x", ErrTagMismatch, data[offTag])
	}

	bitmaskLen := int(binary.LittleEndian.Uint16(data[offBitmaskLen:]))
	if bitmaskLen > limits.MaxBitmaskLen {
		return nil, fmt.Errorf("%w: %d > %d", ErrBitmaskTooLong, bitmaskLen, limits.MaxBitmaskLen)
	}
	if HeaderSize+bitmaskLen > len(data) {
		return nil, fmt.Errorf("%w: %d > %d", ErrBitmaskOverrun, HeaderSize+bitmaskLen, len(data))
	}

	p := &Packet{}
	p.Type = MessageType(data[offType])
	copy(p.Sender[:], data[offSender:offSender+AddressLen])
	copy(p.Partner[:], data[offPartner:offPartner+AddressLen])
	p.UptimeMS = binary.LittleEndian.Uint32(data[offUptime:])
	p.State = State(data[offState])
	p.LastRSSI = int8(data[offRSSI])
	p.Seq = binary.LittleEndian.Uint32(data[offSeq:])

	rest := data[HeaderSize:]
	if bitmaskLen > 0 {
		p.Bitmask = bytes.Clone(rest[:bitmaskLen])
	}
	rest = rest[bitmaskLen:]

	if len(rest) > 0 {
		text := rest
		if i := bytes.IndexByte(text, 0); i >= 0 {
			text = text[:i]
		}
		if len(text) > limits.MaxStringLen {
			text = text[:limits.MaxStringLen]
		}
		p.Text = strings.ToValidUTF8(string(text), "")
		p.HasText = true
	}
	return p, nil
}
