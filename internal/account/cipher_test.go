package account

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSealer(t *testing.T) *Sealer {
	t.Helper()
	s, err := NewSealer(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)
	return s
}

func TestSealer_RoundTrip(t *testing.T) {
	s := testSealer(t)

	a, err := s.Seal("110-123-456789")
	require.NoError(t, err)
	b, err := s.Seal("110-123-456789")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "nonce must differ per seal")
	assert.NotContains(t, string(a), "456789")

	plain, err := s.Open(a)
	require.NoError(t, err)
	assert.Equal(t, "110-123-456789", plain)
}

func TestSealer_RejectsTamperedOrWrongKey(t *testing.T) {
	s := testSealer(t)
	sealed, err := s.Seal("1234567890")
	require.NoError(t, err)

	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 0xff
	_, err = s.Open(tampered)
	assert.Error(t, err)

	other, err := NewSealer(bytes.Repeat([]byte{8}, 32))
	require.NoError(t, err)
	_, err = other.Open(sealed)
	assert.Error(t, err)

	_, err = s.Open([]byte("short"))
	assert.Error(t, err)
}

func TestNewSealer_KeySize(t *testing.T) {
	_, err := NewSealer([]byte("too-short"))
	assert.Error(t, err)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "***-***-**6789", Mask("110-123-456789"))
	assert.Equal(t, "******7890", Mask("1234567890"))
	assert.Equal(t, "1234", Mask("1234"))
	assert.Equal(t, "", Mask(""))
}
