package keys

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/badgelink/badgelink-go/pkg/wire"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// KeySize is the size of private keys, public keys and derived secrets.
const KeySize = 32

// SecretInfo is the HKDF info string for session secrets.
const SecretInfo = "badgelink session v1"

// Key errors.
var (
	ErrInvalidKey    = errors.New("invalid key")
	ErrInvalidEncode = errors.New("invalid base58 key text")
	ErrSameKey       = errors.New("partner key equals local key")
)

// PublicKey is an X25519 public key.
type PublicKey [KeySize]byte

// String returns the base58 text form.
func (k PublicKey) String() string {
	return base58.Encode(k[:])
}

// Fingerprint returns the first 8 base58 characters of the SHA-256 of the
// key, for display.
func (k PublicKey) Fingerprint() string {
	return Fingerprint(k[:])
}

// Fingerprint returns a short display digest of b.
func Fingerprint(b []byte) string {
	sum := sha256.Sum256(b)
	return base58.Encode(sum[:])[:8]
}

// Address derives a stable locally administered unicast address from the
// key, for radios without a burned-in address.
func (k PublicKey) Address() wire.Address {
	sum := sha256.Sum256(k[:])
	var a wire.Address
	copy(a[:], sum[:len(a)])
	a[0] = a[0]&^0x01 | 0x02
	return a
}

// ParsePublicKey decodes the base58 text form.
func ParsePublicKey(s string) (PublicKey, error) {
	var k PublicKey
	if s == "" {
		return k, fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	b, err := base58.Decode(s)
	if err != nil {
		return k, fmt.Errorf("%w: %v", ErrInvalidEncode, err)
	}
	if len(b) != KeySize {
		return k, fmt.Errorf("%w: %d bytes", ErrInvalidKey, len(b))
	}
	copy(k[:], b)
	return k, nil
}

// KeyPair is an X25519 key pair.
type KeyPair struct {
	private [KeySize]byte
	Public  PublicKey
}

// Generate creates a key pair from rand, or crypto/rand when rand is nil.
func Generate(rnd io.Reader) (*KeyPair, error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	var priv [KeySize]byte
	if _, err := io.ReadFull(rnd, priv[:]); err != nil {
		return nil, fmt.Errorf("read random: %w", err)
	}
	return FromPrivate(priv[:])
}

// FromPrivate rebuilds a key pair from a private key.
func FromPrivate(priv []byte) (*KeyPair, error) {
	if len(priv) != KeySize {
		return nil, fmt.Errorf("%w: private key is %d bytes", ErrInvalidKey, len(priv))
	}
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	kp := &KeyPair{}
	copy(kp.private[:], priv)
	copy(kp.Public[:], pub)
	return kp, nil
}

// SessionSecret derives a shared secret with the partner. Both sides get
// the same value: the HKDF salt is the two public keys in byte order.
func (kp *KeyPair) SessionSecret(partner PublicKey) ([]byte, error) {
	if partner == kp.Public {
		return nil, ErrSameKey
	}
	shared, err := curve25519.X25519(kp.private[:], partner[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	lo, hi := kp.Public[:], partner[:]
	if bytes.Compare(lo, hi) > 0 {
		lo, hi = hi, lo
	}
	salt := append(append(make([]byte, 0, 2*KeySize), lo...), hi...)

	r := hkdf.New(sha256.New, shared, salt, []byte(SecretInfo))
	secret := make([]byte, KeySize)
	if _, err := io.ReadFull(r, secret); err != nil {
		return nil, fmt.Errorf("derive secret: %w", err)
	}
	return secret, nil
}

// SessionSecretText is SessionSecret for a partner key in text form.
func (kp *KeyPair) SessionSecretText(partner string) ([]byte, error) {
	pk, err := ParsePublicKey(partner)
	if err != nil {
		return nil, err
	}
	return kp.SessionSecret(pk)
}
