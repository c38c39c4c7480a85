package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodecNotConfiguredBeforeCreate(t *testing.T) {
	c := New()
	assert.False(t, c.Configured())

	_, err := c.Encode(make([]int16, 10), 10, make([]byte, 100))
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = c.Decode(make([]byte, 10), make([]int16, 10), 10)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = c.DecodePLC(make([]int16, 10), 10)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestCreateOpusRejectsBadSampleRate(t *testing.T) {
	c := New()
	err := c.CreateOpus(44100, 1, OpusApplicationVOIP, 8000, 0, 48000, 1, 480)
	assert.ErrorIs(t, err, ErrBadConfig)
	assert.False(t, c.Configured())
}

func TestCreateOpusRejectsBadChannels(t *testing.T) {
	c := New()
	err := c.CreateOpus(48000, 3, OpusApplicationVOIP, 8000, 0, 48000, 1, 480)
	assert.ErrorIs(t, err, ErrBadConfig)
}

func TestCreateCodec2RejectsBadLibraryMode(t *testing.T) {
	c := New()
	err := c.CreateCodec2(99)
	assert.ErrorIs(t, err, ErrBadConfig)
	assert.False(t, c.Configured())
}

func TestCloseIsIdempotent(t *testing.T) {
	c := New()
	c.Close()
	c.Close()
	assert.False(t, c.Configured())
}

func TestSupportsPLCFalseWhenUnconfigured(t *testing.T) {
	c := New()
	assert.False(t, c.SupportsPLC())
}
