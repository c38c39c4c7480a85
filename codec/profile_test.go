package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileByID(t *testing.T) {
	tests := []struct {
		name    string
		id      byte
		wantOK  bool
		wantRes string
	}{
		{"ulbw", ProfileULBW, true, "ULBW"},
		{"vlbw", ProfileVLBW, true, "VLBW"},
		{"lbw", ProfileLBW, true, "LBW"},
		{"mq", ProfileMQ, true, "MQ"},
		{"hq", ProfileHQ, true, "HQ"},
		{"shq", ProfileSHQ, true, "SHQ"},
		{"ull", ProfileULL, true, "ULL"},
		{"ll", ProfileLL, true, "LL"},
		{"unknown", 0xFF, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := ProfileByID(tt.id)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantRes, p.Name)
			}
		})
	}
}

func TestDefaultProfileIsMQ(t *testing.T) {
	p := DefaultProfile()
	assert.Equal(t, ProfileMQ, p.ID)
	assert.Equal(t, CodecKindOpus, p.CodecKind)
}

func TestNextProfileWraparound(t *testing.T) {
	order := []byte{ProfileULBW, ProfileVLBW, ProfileLBW, ProfileMQ, ProfileHQ, ProfileSHQ, ProfileULL, ProfileLL}
	p, ok := ProfileByID(order[0])
	require.True(t, ok)
	for i := 1; i <= len(order); i++ {
		p = NextProfile(p)
		want := order[i%len(order)]
		assert.Equal(t, want, p.ID, "step %d", i)
	}
}

func TestAsymmetricProfilesEncodeDecodeRatesDiffer(t *testing.T) {
	for _, id := range []byte{ProfileMQ, ProfileULL, ProfileLL} {
		p, ok := ProfileByID(id)
		require.True(t, ok)
		assert.Equal(t, 24000, p.EncodeParams.SampleRate)
		assert.Equal(t, 8000, p.EncodeParams.Bitrate)
		assert.Equal(t, 48000, p.DecodeParams.SampleRate)
		assert.Equal(t, 16000, p.DecodeParams.Bitrate)
	}
}

func TestStereoProfileSymmetric(t *testing.T) {
	p, ok := ProfileByID(ProfileSHQ)
	require.True(t, ok)
	assert.Equal(t, p.EncodeParams.SampleRate, p.DecodeParams.SampleRate)
	assert.Equal(t, 2, p.EncodeParams.Channels)
	assert.Equal(t, 2, p.DecodeParams.Channels)
}

func TestLowBandwidthProfilesAreCodec2Mono8k(t *testing.T) {
	for _, id := range []byte{ProfileULBW, ProfileVLBW, ProfileLBW} {
		p, ok := ProfileByID(id)
		require.True(t, ok)
		assert.Equal(t, CodecKindCodec2, p.CodecKind)
		assert.Equal(t, 8000, p.EncodeParams.SampleRate)
		assert.Equal(t, 1, p.EncodeParams.Channels)
	}
}

func TestFrameSamplesDecodeParamsMatchSpecFormula(t *testing.T) {
	p, ok := ProfileByID(ProfileHQ)
	require.True(t, ok)
	// rate * frame_time_ms * channels / 1000
	want := 48000 * 60 * 1 / 1000
	assert.Equal(t, want, p.DecodeFrameSamples())
	assert.Equal(t, want, p.EncodeFrameSamples())
}

func TestValidFrameTimeValues(t *testing.T) {
	valid := map[int]bool{10: true, 20: true, 60: true, 200: true, 320: true, 400: true}
	for _, p := range profileTable {
		assert.True(t, valid[p.FrameTimeMs], "profile %s has unexpected frame_time_ms %d", p.Name, p.FrameTimeMs)
	}
}
