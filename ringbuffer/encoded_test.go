package ringbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodedRingBuffer_WriteReadFIFO(t *testing.T) {
	rb, err := NewEncodedRingBuffer(4, 16)
	require.NoError(t, err)

	packets := [][]byte{{1, 2, 3}, {4}, {5, 6}}
	for _, p := range packets {
		require.NoError(t, rb.Write(p))
	}
	assert.Equal(t, 3, rb.AvailableSlots())

	for _, want := range packets {
		dst := make([]byte, 16)
		n, err := rb.Read(dst)
		require.NoError(t, err)
		assert.Equal(t, want, dst[:n])
	}
	assert.Equal(t, 0, rb.AvailableSlots())
}

func TestEncodedRingBuffer_TooLarge(t *testing.T) {
	rb, err := NewEncodedRingBuffer(4, 4)
	require.NoError(t, err)

	assert.ErrorIs(t, rb.Write([]byte{1, 2, 3, 4, 5}), ErrTooLarge)
}

func TestEncodedRingBuffer_Full(t *testing.T) {
	rb, err := NewEncodedRingBuffer(2, 4) // capacity = 1
	require.NoError(t, err)

	require.NoError(t, rb.Write([]byte{1}))
	assert.ErrorIs(t, rb.Write([]byte{2}), ErrFull)
}

func TestEncodedRingBuffer_EmptyRead(t *testing.T) {
	rb, err := NewEncodedRingBuffer(4, 4)
	require.NoError(t, err)

	_, err = rb.Read(make([]byte, 4))
	assert.ErrorIs(t, err, ErrEmpty)
}

// TestEncodedRingBuffer_DiscardsTooSmallDst verifies the documented lossy
// behavior: a reader buffer too small to hold the queued payload discards
// the slot rather than leaving it to block the producer forever.
func TestEncodedRingBuffer_DiscardsTooSmallDst(t *testing.T) {
	rb, err := NewEncodedRingBuffer(4, 16)
	require.NoError(t, err)

	require.NoError(t, rb.Write([]byte{1, 2, 3, 4, 5}))
	require.NoError(t, rb.Write([]byte{9}))

	n, err := rb.Read(make([]byte, 2)) // too small for the 5-byte payload
	assert.ErrorIs(t, err, ErrEmpty)
	assert.Equal(t, 0, n)

	// the oversized slot was discarded; next read sees the second packet.
	dst := make([]byte, 16)
	n, err = rb.Read(dst)
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, dst[:n])
}
