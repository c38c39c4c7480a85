package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/duplexaudio/codec"
	"github.com/opd-ai/duplexaudio/hostaudio"
)

func newTestEngine(t *testing.T) (*PlaybackEngine, *hostaudio.FakeBackend) {
	t.Helper()
	backend := hostaudio.NewFakeBackend()
	e := New(backend)
	return e, backend
}

func fakeOutputStream(t *testing.T, e *PlaybackEngine) *hostaudio.FakeStream {
	t.Helper()
	s, ok := e.stream.(*hostaudio.FakeStream)
	require.True(t, ok)
	return s
}

func TestConfigureDecoderBeforeCreateFails(t *testing.T) {
	e, _ := newTestEngine(t)
	err := e.ConfigureDecoder(codec.DefaultProfile())
	assert.ErrorIs(t, err, ErrNotCreated)
}

func TestCreateThenConfigureDecoderThenStartSucceeds(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.Create(Config{
		SampleRate:      48000,
		Channels:        1,
		FrameSamples:    48000 * 60 / 1000,
		MaxBufferFrames: 8,
	}))
	require.NoError(t, e.ConfigureDecoder(codec.DefaultProfile()))
	require.NoError(t, e.StartStream())
}

func TestPlaybackDeliversPartialBurstsFromOneFrame(t *testing.T) {
	e, _ := newTestEngine(t)
	frameSamples := 8
	require.NoError(t, e.Create(Config{
		SampleRate:      8000,
		Channels:        1,
		FrameSamples:    frameSamples,
		MaxBufferFrames: 8,
	}))
	require.NoError(t, e.StartStream())
	stream := fakeOutputStream(t, e)

	frame := make([]int16, frameSamples)
	for i := range frame {
		frame[i] = int16(i + 1)
	}
	require.NoError(t, e.WriteSamples(frame))

	burst := make([]int16, 2)
	var got []int16
	for i := 0; i < 4; i++ {
		require.True(t, stream.Pull(burst))
		got = append(got, burst...)
	}
	assert.Equal(t, frame, got)
}

func TestPlaybackMuteProducesSilence(t *testing.T) {
	e, _ := newTestEngine(t)
	frameSamples := 8
	require.NoError(t, e.Create(Config{
		SampleRate:      8000,
		Channels:        1,
		FrameSamples:    frameSamples,
		MaxBufferFrames: 8,
	}))
	require.NoError(t, e.StartStream())
	stream := fakeOutputStream(t, e)

	frame := make([]int16, frameSamples)
	for i := range frame {
		frame[i] = 30000
	}
	require.NoError(t, e.WriteSamples(frame))

	e.SetPlaybackMute(true)

	out := make([]int16, frameSamples)
	require.True(t, stream.Pull(out))
	for _, v := range out {
		assert.Equal(t, int16(0), v)
	}
}

func TestPlaybackRingFullDropsOldest(t *testing.T) {
	e, _ := newTestEngine(t)
	frameSamples := 4
	require.NoError(t, e.Create(Config{
		SampleRate:      8000,
		Channels:        1,
		FrameSamples:    frameSamples,
		MaxBufferFrames: 2, // one usable slot
	}))

	for i := 0; i < 3; i++ {
		frame := make([]int16, frameSamples)
		for j := range frame {
			frame[j] = int16(i)
		}
		err := e.WriteSamples(frame)
		if i == 0 {
			assert.NoError(t, err)
		} else {
			assert.ErrorIs(t, err, ErrDroppedOldest)
		}
	}

	assert.Equal(t, uint64(2), e.Stats().DroppedFrames)

	require.NoError(t, e.StartStream())
	stream := fakeOutputStream(t, e)
	out := make([]int16, frameSamples)
	require.True(t, stream.Pull(out))
	assert.Equal(t, int16(2), out[0], "oldest frames should have been dropped")
}

func TestPlaybackSilenceFallbackWhenRingEmpty(t *testing.T) {
	e, _ := newTestEngine(t)
	frameSamples := 4
	require.NoError(t, e.Create(Config{
		SampleRate:      8000,
		Channels:        1,
		FrameSamples:    frameSamples,
		MaxBufferFrames: 4,
	}))
	require.NoError(t, e.StartStream())
	stream := fakeOutputStream(t, e)

	out := make([]int16, frameSamples)
	require.True(t, stream.Pull(out))
	for _, v := range out {
		assert.Equal(t, int16(0), v)
	}
	assert.Equal(t, uint64(1), e.Stats().CallbackSilenceCount)
}

func TestDestroyedEngineRendersSilenceInsteadOfPanicking(t *testing.T) {
	e, _ := newTestEngine(t)
	frameSamples := 4
	require.NoError(t, e.Create(Config{
		SampleRate:      8000,
		Channels:        1,
		FrameSamples:    frameSamples,
		MaxBufferFrames: 4,
	}))
	require.NoError(t, e.StartStream())

	// Simulate the callback firing once more after Destroy is requested on
	// the control thread, per spec.md §9's liveness-race invariant: the
	// destroyed fence must stop the callback from touching freed state.
	e.Destroy()

	out := make([]int16, frameSamples)
	assert.NotPanics(t, func() {
		e.onAudioReady(out)
	})
	for _, v := range out {
		assert.Equal(t, int16(0), v)
	}
}

func TestPLCBoundedFallsBackToSilenceAfterCap(t *testing.T) {
	e, _ := newTestEngine(t)
	p := codec.DefaultProfile()
	frameSamples := p.DecodeFrameSamples()

	require.NoError(t, e.Create(Config{
		SampleRate:      p.DecodeParams.SampleRate,
		Channels:        p.DecodeParams.Channels,
		FrameSamples:    frameSamples,
		MaxBufferFrames: 4,
	}))
	require.NoError(t, e.ConfigureDecoder(p))
	require.NoError(t, e.StartStream())
	stream := fakeOutputStream(t, e)

	enc := codec.New()
	require.NoError(t, enc.CreateForProfile(p))
	defer enc.Close()

	pcm := make([]int16, p.EncodeFrameSamples())
	encoded := make([]byte, 4000)
	n, err := enc.Encode(pcm, len(pcm), encoded)
	require.NoError(t, err)
	require.Greater(t, n, 0)

	require.NoError(t, e.WriteEncodedPacket(encoded[:n]))

	out := make([]int16, frameSamples)
	require.True(t, stream.Pull(out)) // drains the one real decoded frame

	for i := 0; i < maxConsecutivePLCFrames; i++ {
		require.True(t, stream.Pull(out))
	}
	assert.Equal(t, uint64(maxConsecutivePLCFrames), e.Stats().CallbackPLCCount)

	// The cap is now reached: the next callback must fall back to silence
	// rather than synthesize a sixth consecutive PLC frame.
	silentBefore := e.Stats().CallbackSilenceCount
	require.True(t, stream.Pull(out))
	assert.Equal(t, silentBefore+1, e.Stats().CallbackSilenceCount)
	for _, v := range out {
		assert.Equal(t, int16(0), v)
	}
}

func TestDestroyThenRecreateWorks(t *testing.T) {
	e, _ := newTestEngine(t)
	cfg := Config{SampleRate: 8000, Channels: 1, FrameSamples: 160, MaxBufferFrames: 4}
	require.NoError(t, e.Create(cfg))
	e.Destroy()
	require.NoError(t, e.Create(cfg))
}
