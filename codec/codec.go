package codec

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"layeh.com/gopus"
)

// kind discriminates the Codec's active state.
type kind int

const (
	kindNone kind = iota
	kindOpus
	kindCodec2
)

// Codec is the unified encode+decode façade over Opus and Codec2 (spec.md
// §4.4). Exactly one of opus/codec2 is non-nil at a time; CreateOpus and
// CreateCodec2 each tear down whatever prior state existed first, matching
// the original C++ CodecWrapper's always-destroy-before-create discipline
// (SPEC_FULL.md §4).
//
// Codec itself holds no lock: it is exclusively owned by one CaptureEngine
// or PlaybackEngine (spec.md §3 "Lifecycle ownership"), and any contention
// between that engine's real-time callback and its background tasks is
// serialized by the owning engine's own non-blocking try-acquire (spec.md
// §4.7, §5), never by blocking inside this type.
type Codec struct {
	active kind
	opus   *opusState
	codec2 *codec2State
}

// New returns an unconfigured Codec. Encode/Decode/DecodePLC all fail with
// ErrNotConfigured until CreateOpus or CreateCodec2 is called.
func New() *Codec {
	return &Codec{}
}

func toGopusApplication(a OpusApplication) gopus.Application {
	switch a {
	case OpusApplicationAudio:
		return gopus.Audio
	case OpusApplicationRestrictedLowDelay:
		return gopus.RestrictedLowdelay
	default:
		return gopus.Voip
	}
}

// CreateOpus installs an Opus encoder+decoder pair, replacing any previously
// active codec state. rate must be one of {8000,12000,16000,24000,48000},
// channels one of {1,2}. Fails with ErrBadConfig on any out-of-range
// argument or underlying library error; on failure the Codec is left
// unconfigured (not rolled back to the prior state), matching the spec's
// "tear down first" discipline.
func (c *Codec) CreateOpus(encRate, encChannels int, application OpusApplication, bitrate, complexity, decRate, decChannels, encodeFrameSamples int) error {
	c.closeLocked()

	logrus.WithFields(logrus.Fields{
		"function": "Codec.CreateOpus",
		"enc_rate": encRate,
		"enc_ch":   encChannels,
		"dec_rate": decRate,
		"dec_ch":   decChannels,
		"bitrate":  bitrate,
	}).Info("Configuring opus codec")

	st, err := newOpusState(encRate, encChannels, toGopusApplication(application), bitrate, complexity, decRate, decChannels, encodeFrameSamples)
	if err != nil {
		return err
	}
	c.opus = st
	c.active = kindOpus
	return nil
}

// CreateCodec2 installs a Codec2 encoder+decoder for the given library
// mode, replacing any previously active codec state. libraryMode must be
// one of {0,1,2,3,4,5,8}.
func (c *Codec) CreateCodec2(libraryMode int) error {
	c.closeLocked()

	logrus.WithFields(logrus.Fields{
		"function":     "Codec.CreateCodec2",
		"library_mode": libraryMode,
	}).Info("Configuring codec2 codec")

	st, err := newCodec2State(libraryMode)
	if err != nil {
		return err
	}
	c.codec2 = st
	c.active = kindCodec2
	return nil
}

// CreateForProfile is a convenience wrapper dispatching to CreateOpus or
// CreateCodec2 from a Profile's CodecKind and params.
func (c *Codec) CreateForProfile(p Profile) error {
	switch p.CodecKind {
	case CodecKindOpus:
		return c.CreateOpus(
			p.EncodeParams.SampleRate, p.EncodeParams.Channels, p.EncodeParams.Application,
			p.EncodeParams.Bitrate, p.EncodeParams.Complexity,
			p.DecodeParams.SampleRate, p.DecodeParams.Channels,
			p.EncodeFrameSamples(),
		)
	case CodecKindCodec2:
		return c.CreateCodec2(p.EncodeParams.LibraryMode)
	default:
		return fmt.Errorf("codec: %w: unknown codec kind %d", ErrBadConfig, p.CodecKind)
	}
}

// closeLocked tears down whatever codec state is active.
func (c *Codec) closeLocked() {
	if c.opus != nil {
		c.opus.close()
		c.opus = nil
	}
	if c.codec2 != nil {
		c.codec2.close()
		c.codec2 = nil
	}
	c.active = kindNone
}

// Close tears down any active codec state. Safe to call repeatedly.
func (c *Codec) Close() {
	c.closeLocked()
}

// Encode encodes nSamples samples of pcm into out, returning the encoded
// byte count, or -1 on failure (ErrEncodeBad semantics — caller drops the
// Frame). Returns ErrNotConfigured if no codec is active.
func (c *Codec) Encode(pcm []int16, nSamples int, out []byte) (int, error) {
	switch c.active {
	case kindOpus:
		n := c.opus.encode(pcm, nSamples, out)
		if n < 0 {
			return -1, ErrEncodeBad
		}
		return n, nil
	case kindCodec2:
		n := c.codec2.encode(pcm, nSamples, out)
		if n < 0 {
			return -1, ErrEncodeBad
		}
		return n, nil
	default:
		return -1, ErrNotConfigured
	}
}

// Decode decodes encoded into out (capacity maxOut), returning the total
// interleaved decoded sample count, or -1 on failure (ErrDecodeBad
// semantics — caller drops the packet and relies on PLC/silence).
func (c *Codec) Decode(encoded []byte, out []int16, maxOut int) (int, error) {
	switch c.active {
	case kindOpus:
		n := c.opus.decode(encoded, out, maxOut)
		if n < 0 {
			return -1, ErrDecodeBad
		}
		return n, nil
	case kindCodec2:
		n, err := c.codec2.decode(encoded, out, maxOut)
		if err != nil {
			return -1, err
		}
		return n, nil
	default:
		return -1, ErrNotConfigured
	}
}

// DecodePLC produces a packet-loss-concealment frame of samplesPerChannel
// samples per channel. Only the Opus path supports this; Codec2 returns
// ErrPLCUnsupported.
func (c *Codec) DecodePLC(out []int16, samplesPerChannel int) (int, error) {
	switch c.active {
	case kindOpus:
		n := c.opus.decodePLC(out, samplesPerChannel)
		if n < 0 {
			return -1, ErrDecodeBad
		}
		return n, nil
	case kindCodec2:
		return -1, ErrPLCUnsupported
	default:
		return -1, ErrNotConfigured
	}
}

// SupportsPLC reports whether the active codec can produce PLC frames.
func (c *Codec) SupportsPLC() bool {
	return c.active == kindOpus
}

// Configured reports whether CreateOpus/CreateCodec2 has installed a codec.
func (c *Codec) Configured() bool {
	return c.active != kindNone
}
