package keys

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mr-tron/base58"
)

// Store keeps the private key in a file as base58 text.
type Store struct {
	path string
}

// NewStore returns a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the key pair. It returns an error wrapping os.ErrNotExist when
// no key has been saved.
func (s *Store) Load() (*KeyPair, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	priv, err := base58.Decode(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidEncode, s.path, err)
	}
	return FromPrivate(priv)
}

// Save writes the private key with owner-only permissions.
func (s *Store) Save(kp *KeyPair) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(base58.Encode(kp.private[:])+"\n"), 0600)
}

// LoadOrGenerate returns the stored key pair, generating and saving a new
// one when none exists. created reports whether a key was generated.
func (s *Store) LoadOrGenerate() (kp *KeyPair, created bool, err error) {
	kp, err = s.Load()
	if err == nil {
		return kp, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, false, err
	}

	kp, err = Generate(nil)
	if err != nil {
		return nil, false, err
	}
	if err := s.Save(kp); err != nil {
		return nil, false, fmt.Errorf("save key: %w", err)
	}
	return kp, true, nil
}
