package cryptox

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSealer_RoundTrip(t *testing.T) {
	s, err := NewSealer([]byte("master-key"))
	require.NoError(t, err)

	sealed, err := s.Seal("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	require.NotContains(t, sealed, "JBSWY3DPEHPK3PXP")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, "JBSWY3DPEHPK3PXP", plain)

	// Random nonce per seal.
	other, err := s.Seal("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	require.NotEqual(t, sealed, other)
}

func TestSealer_RejectsTamperedAndForeign(t *testing.T) {
	s, err := NewSealer([]byte("key-one"))
	require.NoError(t, err)
	foreign, err := NewSealer([]byte("key-two"))
	require.NoError(t, err)

	sealed, err := s.Seal("secret")
	require.NoError(t, err)

	_, err = foreign.Open(sealed)
	require.ErrorIs(t, err, ErrSealedDataInvalid)

	tampered := []byte(sealed)
	if tampered[0] == 'A' {
		tampered[0] = 'B'
	} else {
		tampered[0] = 'A'
	}
	_, err = s.Open(string(tampered))
	require.ErrorIs(t, err, ErrSealedDataInvalid)

	_, err = s.Open("short")
	require.ErrorIs(t, err, ErrSealedDataInvalid)
	_, err = s.Open("not base64 !!")
	require.ErrorIs(t, err, ErrSealedDataInvalid)
}

func TestNewSealer_EmptyKey(t *testing.T) {
	_, err := NewSealer(nil)
	require.Error(t, err)
}

func TestLoadOrCreateSealer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "seal.key")

	a, err := LoadOrCreateSealer(path)
	require.NoError(t, err)
	sealed, err := a.Seal("value")
	require.NoError(t, err)

	b, err := LoadOrCreateSealer(path)
	require.NoError(t, err)
	plain, err := b.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, "value", plain)
}
