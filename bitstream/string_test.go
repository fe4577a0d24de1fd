package bitstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaybeUtf8StringRoundTripValid(t *testing.T) {
	w := NewWriter()
	require.NoError(t, WriteMaybeUtf8String(w, ValidUtf8String("hello é")))

	got, err := ReadMaybeUtf8String(w.ToReader())
	require.NoError(t, err)
	assert.True(t, got.IsValid())
	assert.Equal(t, []byte("hello é"), got.AsBytes())
}

func TestMaybeUtf8StringInvalidBytesPreserved(t *testing.T) {
	raw := []byte{0xff, 0xfe, 0x41, 0x42}

	w := NewWriter()
	require.NoError(t, w.WriteCString(raw))

	got, err := ReadMaybeUtf8String(w.ToReader())
	require.NoError(t, err)
	assert.False(t, got.IsValid())
	assert.Equal(t, raw, got.AsBytes())
}

func TestMaybeUtf8StringEmptyString(t *testing.T) {
	w := NewWriter()
	require.NoError(t, WriteMaybeUtf8String(w, ValidUtf8String("")))
	got, err := ReadMaybeUtf8String(w.ToReader())
	require.NoError(t, err)
	assert.Equal(t, []byte{}, got.AsBytes())
}
