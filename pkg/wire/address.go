package wire

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLen is the size of a link-layer address in bytes.
const AddressLen = 6

// Address is a 6-byte link-layer identifier (a radio MAC address).
type Address [AddressLen]byte

// BroadcastAddress is the well-known all-ones destination used for HELLO.
var BroadcastAddress = Address{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// ZeroAddress is the unset address.
var ZeroAddress Address

// IsZero reports whether the address is all zero.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// IsBroadcast reports whether the address is the broadcast address.
func (a Address) IsBroadcast() bool {
	return a == BroadcastAddress
}

// Compare orders two addresses as unsigned big-endian byte strings.
// It returns -1, 0 or +1.
func (a Address) Compare(b Address) int {
	return bytes.Compare(a[:], b[:])
}

// String formats the address as colon separated hex ("aa:bb:cc:dd:ee:ff").
func (a Address) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", a[0], a[1], a[2], a[3], a[4], a[5])
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress parses "aa:bb:cc:dd:ee:ff", "aa-bb-cc-dd-ee-ff" or "aabbccddeeff".
func ParseAddress(s string) (Address, error) {
	var a Address
	clean := strings.NewReplacer(":", "", "-", "").Replace(strings.TrimSpace(s))
	if len(clean) != AddressLen*2 {
		return a, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	raw, err := hex.DecodeString(clean)
	if err != nil {
		return a, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	copy(a[:], raw)
	return a, nil
}
