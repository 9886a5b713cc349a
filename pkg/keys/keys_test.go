package keys

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicKeyText(t *testing.T) {
	kp, err := Generate(nil)
	require.NoError(t, err)

	text := kp.Public.String()
	assert.NotEmpty(t, text)
	assert.LessOrEqual(t, len(text), 44)

	parsed, err := ParsePublicKey(text)
	require.NoError(t, err)
	assert.Equal(t, kp.Public, parsed)
	assert.Len(t, kp.Public.Fingerprint(), 8)
}

func TestParsePublicKeyErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"bad alphabet", "0OIl", ErrInvalidEncode},
		{"too short", "abc", ErrInvalidKey},
		{"empty", "", ErrInvalidKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePublicKey(tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPublicKeyAddress(t *testing.T) {
	kp, err := FromPrivate(bytes.Repeat([]byte{7}, KeySize))
	require.NoError(t, err)

	addr := kp.Public.Address()
	assert.Equal(t, addr, kp.Public.Address())
	assert.False(t, addr.IsZero())
	assert.False(t, addr.IsBroadcast())
	assert.Equal(t, byte(0x02), addr[0]&0x03, "locally administered unicast")

	other, err := FromPrivate(bytes.Repeat([]byte{8}, KeySize))
	require.NoError(t, err)
	assert.NotEqual(t, addr, other.Public.Address())
}

func TestGenerateDeterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, KeySize)
	a, err := Generate(bytes.NewReader(seed))
	require.NoError(t, err)
	b, err := FromPrivate(seed)
	require.NoError(t, err)
	assert.Equal(t, a.Public, b.Public)

	_, err = Generate(bytes.NewReader([]byte{1, 2, 3}))
	assert.Error(t, err)

	_, err = FromPrivate([]byte{1})
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestSessionSecretAgrees(t *testing.T) {
	alice, err := Generate(nil)
	require.NoError(t, err)
	bob, err := Generate(nil)
	require.NoError(t, err)
	carol, err := Generate(nil)
	require.NoError(t, err)

	ab, err := alice.SessionSecret(bob.Public)
	require.NoError(t, err)
	ba, err := bob.SessionSecretText(alice.Public.String())
	require.NoError(t, err)
	ac, err := alice.SessionSecret(carol.Public)
	require.NoError(t, err)

	assert.Len(t, ab, KeySize)
	assert.Equal(t, ab, ba)
	assert.NotEqual(t, ab, ac)

	_, err = alice.SessionSecret(alice.Public)
	assert.ErrorIs(t, err, ErrSameKey)

	_, err = alice.SessionSecretText("not a key!")
	assert.Error(t, err)
}

func TestStoreLoadOrGenerate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "badge.key")
	s := NewStore(path)

	_, err := s.Load()
	assert.ErrorIs(t, err, os.ErrNotExist)

	first, created, err := s.LoadOrGenerate()
	require.NoError(t, err)
	assert.True(t, created)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	second, created, err := s.LoadOrGenerate()
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.Public, second.Public)
}

func TestStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "badge.key")
	require.NoError(t, os.WriteFile(path, []byte("0000"), 0600))

	_, _, err := NewStore(path).LoadOrGenerate()
	assert.ErrorIs(t, err, ErrInvalidEncode)
}
