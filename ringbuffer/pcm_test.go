package ringbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPcmRingBuffer_ValidatesArgs(t *testing.T) {
	_, err := NewPcmRingBuffer(1, 10)
	assert.Error(t, err)

	_, err = NewPcmRingBuffer(4, 0)
	assert.Error(t, err)

	rb, err := NewPcmRingBuffer(4, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, rb.FrameSamples())
}

func TestPcmRingBuffer_WriteReadFIFO(t *testing.T) {
	rb, err := NewPcmRingBuffer(4, 3)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		frame := []int16{int16(i), int16(i), int16(i)}
		require.NoError(t, rb.Write(frame))
	}
	assert.Equal(t, 3, rb.AvailableFrames())

	for i := 0; i < 3; i++ {
		dst := make([]int16, 3)
		require.NoError(t, rb.Read(dst))
		assert.Equal(t, []int16{int16(i), int16(i), int16(i)}, dst)
	}
	assert.Equal(t, 0, rb.AvailableFrames())
}

func TestPcmRingBuffer_SizeMismatch(t *testing.T) {
	rb, err := NewPcmRingBuffer(4, 3)
	require.NoError(t, err)

	assert.ErrorIs(t, rb.Write([]int16{1, 2}), ErrSizeMismatch)
	assert.ErrorIs(t, rb.Read(make([]int16, 2)), ErrSizeMismatch)
}

func TestPcmRingBuffer_EmptyRead(t *testing.T) {
	rb, err := NewPcmRingBuffer(4, 3)
	require.NoError(t, err)

	assert.ErrorIs(t, rb.Read(make([]int16, 3)), ErrEmpty)
}

// TestPcmRingBuffer_DropOldestOnFull mirrors scenario 6 from spec.md §8:
// fill to capacity with frames 0..N-2, write one more (N-1); subsequent
// reads yield 1..N-1, i.e. frame 0 was dropped.
func TestPcmRingBuffer_DropOldestOnFull(t *testing.T) {
	const maxFrames = 4 // capacity = maxFrames-1 = 3
	rb, err := NewPcmRingBuffer(maxFrames, 1)
	require.NoError(t, err)

	for i := 0; i < maxFrames-1; i++ {
		require.NoError(t, rb.Write([]int16{int16(i)}))
	}

	err = rb.Write([]int16{int16(maxFrames - 1)})
	require.ErrorIs(t, err, ErrFull)

	// drop-oldest: consumer reads one to make room, producer retries.
	var scratch [1]int16
	require.NoError(t, rb.Read(scratch[:]))
	assert.Equal(t, int16(0), scratch[0])
	require.NoError(t, rb.Write([]int16{int16(maxFrames - 1)}))

	for i := 1; i < maxFrames; i++ {
		dst := make([]int16, 1)
		require.NoError(t, rb.Read(dst))
		assert.Equal(t, int16(i), dst[0])
	}
}

func TestPcmRingBuffer_Drain(t *testing.T) {
	rb, err := NewPcmRingBuffer(8, 1)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, rb.Write([]int16{int16(i)}))
	}
	rb.Drain(2)
	assert.Equal(t, 2, rb.AvailableFrames())

	dst := make([]int16, 1)
	require.NoError(t, rb.Read(dst))
	assert.Equal(t, int16(3), dst[0])
	require.NoError(t, rb.Read(dst))
	assert.Equal(t, int16(4), dst[0])
}

func TestPcmRingBuffer_Reset(t *testing.T) {
	rb, err := NewPcmRingBuffer(4, 1)
	require.NoError(t, err)

	require.NoError(t, rb.Write([]int16{7}))
	rb.Reset()
	assert.Equal(t, 0, rb.AvailableFrames())
	assert.ErrorIs(t, rb.Read(make([]int16, 1)), ErrEmpty)
}
