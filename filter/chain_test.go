package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		SampleRate:   48000,
		Channels:     1,
		FrameSamples: 960, // 20ms @ 48kHz mono
		HighPassHz:   80,
		LowPassHz:    8000,
	}
}

func TestNewVoiceFilterChain_ValidatesArgs(t *testing.T) {
	_, err := NewVoiceFilterChain(Config{SampleRate: 0, Channels: 1, FrameSamples: 10})
	assert.Error(t, err)

	_, err = NewVoiceFilterChain(Config{SampleRate: 48000, Channels: 2, FrameSamples: 11})
	assert.Error(t, err)

	c, err := NewVoiceFilterChain(testConfig())
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestVoiceFilterChain_Process_SizeMismatch(t *testing.T) {
	c, err := NewVoiceFilterChain(testConfig())
	require.NoError(t, err)

	err = c.Process(make([]int16, 10))
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestVoiceFilterChain_Process_Silence_StaysSilent(t *testing.T) {
	c, err := NewVoiceFilterChain(testConfig())
	require.NoError(t, err)

	pcm := make([]int16, 960)
	require.NoError(t, c.Process(pcm))
	for _, s := range pcm {
		assert.Equal(t, int16(0), s)
	}
}

func TestVoiceFilterChain_Process_LimitsPeaks(t *testing.T) {
	c, err := NewVoiceFilterChain(testConfig())
	require.NoError(t, err)

	pcm := make([]int16, 960)
	for i := range pcm {
		pcm[i] = 32767
	}
	require.NoError(t, c.Process(pcm))

	peak := int16(32767)
	limitSample := int16(0.75 * float64(peak))
	for _, s := range pcm {
		assert.LessOrEqual(t, s, limitSample+1)
	}
}

func TestVoiceFilterChain_Reconfigure_ResetsState(t *testing.T) {
	c, err := NewVoiceFilterChain(testConfig())
	require.NoError(t, err)

	pcm := make([]int16, 960)
	for i := range pcm {
		pcm[i] = 1000
	}
	require.NoError(t, c.Process(pcm))

	require.NoError(t, c.Reconfigure(Config{
		SampleRate:   8000,
		Channels:     1,
		FrameSamples: 160,
		HighPassHz:   80,
		LowPassHz:    3400,
	}))

	assert.Len(t, c.hpf, 1)
	assert.Equal(t, float32(1.0), c.agc[0].currentGain)
	assert.Equal(t, 160, len(c.scratch))
}

func TestAGCLinearConversionMatchesOriginal(t *testing.T) {
	// native_audio_filters.cpp's applyAGC converts dB with a /10 power-ratio
	// divisor, not a /20 amplitude-ratio divisor; with the default -12 dBFS
	// target and +12 dB max gain that yields ~0.0631 and ~15.85.
	c, err := NewVoiceFilterChain(testConfig())
	require.NoError(t, err)

	assert.InDelta(t, 0.0631, c.targetLinear, 0.001)
	assert.InDelta(t, 15.85, c.maxGainLinear, 0.01)
}

func TestVoiceFilterChain_StereoChannelsIndependent(t *testing.T) {
	cfg := testConfig()
	cfg.Channels = 2
	cfg.FrameSamples = 1920
	c, err := NewVoiceFilterChain(cfg)
	require.NoError(t, err)

	pcm := make([]int16, 1920)
	for n := 0; n < 960; n++ {
		pcm[n*2] = 5000   // left loud
		pcm[n*2+1] = 0 // right silent
	}
	require.NoError(t, c.Process(pcm))

	var rightNonZero bool
	for n := 0; n < 960; n++ {
		if pcm[n*2+1] != 0 {
			rightNonZero = true
		}
	}
	assert.False(t, rightNonZero, "silent channel must stay silent independent of the loud channel")
}
