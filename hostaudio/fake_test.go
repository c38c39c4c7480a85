package hostaudio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeStreamPushRequiresStart(t *testing.T) {
	b := NewFakeBackend()
	received := 0
	stream, err := b.OpenInputStream(StreamParams{SampleRate: 48000, Channels: 1}, func(in []int16) {
		received += len(in)
	}, nil)
	require.NoError(t, err)

	ok := stream.(*FakeStream).Push(make([]int16, 10))
	assert.False(t, ok)
	assert.Equal(t, 0, received)

	require.NoError(t, stream.RequestStart())
	ok = stream.(*FakeStream).Push(make([]int16, 10))
	assert.True(t, ok)
	assert.Equal(t, 10, received)
}

func TestFakeStreamPullFillsOutput(t *testing.T) {
	b := NewFakeBackend()
	stream, err := b.OpenOutputStream(StreamParams{SampleRate: 48000, Channels: 1}, func(out []int16) {
		for i := range out {
			out[i] = 42
		}
	}, nil)
	require.NoError(t, err)
	require.NoError(t, stream.RequestStart())

	buf := make([]int16, 4)
	ok := stream.(*FakeStream).Pull(buf)
	assert.True(t, ok)
	for _, v := range buf {
		assert.Equal(t, int16(42), v)
	}
}

func TestFakeStreamStopStopsDelivery(t *testing.T) {
	b := NewFakeBackend()
	calls := 0
	stream, err := b.OpenInputStream(StreamParams{SampleRate: 8000, Channels: 1}, func(in []int16) { calls++ }, nil)
	require.NoError(t, err)
	require.NoError(t, stream.RequestStart())
	stream.(*FakeStream).Push(make([]int16, 1))
	require.NoError(t, stream.Stop())
	stream.(*FakeStream).Push(make([]int16, 1))
	assert.Equal(t, 1, calls)
}

func TestFakeStreamInjectError(t *testing.T) {
	b := NewFakeBackend()
	var gotErr error
	stream, err := b.OpenInputStream(StreamParams{SampleRate: 8000, Channels: 1}, func(in []int16) {}, func(e error) {
		gotErr = e
	})
	require.NoError(t, err)

	want := errors.New("route changed")
	stream.(*FakeStream).InjectError(want)
	assert.Equal(t, want, gotErr)
}

func TestOpenStreamRejectsBadParams(t *testing.T) {
	b := NewFakeBackend()
	_, err := b.OpenInputStream(StreamParams{SampleRate: 0, Channels: 1}, func(in []int16) {}, nil)
	assert.ErrorIs(t, err, ErrBadParams)

	_, err = b.OpenOutputStream(StreamParams{SampleRate: 8000, Channels: 0}, func(out []int16) {}, nil)
	assert.ErrorIs(t, err, ErrBadParams)
}

func TestXRunCountTracksSimulated(t *testing.T) {
	b := NewFakeBackend()
	stream, err := b.OpenOutputStream(StreamParams{SampleRate: 8000, Channels: 1}, func(out []int16) {}, nil)
	require.NoError(t, err)

	fs := stream.(*FakeStream)
	fs.SimulateXRun()
	fs.SimulateXRun()
	assert.Equal(t, uint64(2), stream.XRunCount())
}
