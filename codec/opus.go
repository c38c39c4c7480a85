package codec

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"layeh.com/gopus"
)

// validOpusRates are the sample rates libopus accepts.
var validOpusRates = map[int]bool{8000: true, 12000: true, 16000: true, 24000: true, 48000: true}

func validateOpusRate(rate int) error {
	if !validOpusRates[rate] {
		return fmt.Errorf("opus sample rate %d not in {8000,12000,16000,24000,48000}", rate)
	}
	return nil
}

// opusState holds the active Opus encoder and decoder. Encode and decode
// rates/channels are independent (spec.md §3 "asymmetric profiles"): the
// encoder runs at whatever rate the profile names for the TX side, the
// decoder at whatever rate it names for the RX side, and Opus's internal
// resampler bridges them.
type opusState struct {
	enc *gopus.Encoder
	dec *gopus.Decoder

	encChannels int
	decChannels int

	encSampleRate int
	decSampleRate int

	// nominalMonoSamples is the per-channel sample count of one encode-side
	// Frame at this profile's frame duration (frameSamples/encChannels).
	// Encode treats an input of at most this many total samples as a mono
	// frame that needs upmixing when encChannels == 2, per spec.md §4.4.
	nominalMonoSamples int

	// upmixScratch buffers mono-to-stereo duplication for Encode when the
	// caller passes mono PCM to a stereo-configured encoder. Sized once at
	// construction for the largest frame this profile can see.
	upmixScratch []int16
}

// newOpusState constructs an Opus encoder+decoder pair. encRate/encChannels
// and decRate/decChannels may differ per spec.md's asymmetric profiles.
// application is one of gopus.Voip, gopus.Audio, gopus.RestrictedLowdelay.
// encodeFrameSamples is the profile's encode-side Frame size (interleaved,
// i.e. encRate*frameTimeMs*encChannels/1000) and is used only to compute
// the mono-upmix threshold in encode.
func newOpusState(encRate, encChannels int, application gopus.Application, bitrate, complexity, decRate, decChannels, encodeFrameSamples int) (*opusState, error) {
	if err := validateOpusRate(encRate); err != nil {
		return nil, fmt.Errorf("codec: %w: encode rate: %v", ErrBadConfig, err)
	}
	if err := validateOpusRate(decRate); err != nil {
		return nil, fmt.Errorf("codec: %w: decode rate: %v", ErrBadConfig, err)
	}
	if encChannels != 1 && encChannels != 2 {
		return nil, fmt.Errorf("codec: %w: encode channels %d must be 1 or 2", ErrBadConfig, encChannels)
	}
	if decChannels != 1 && decChannels != 2 {
		return nil, fmt.Errorf("codec: %w: decode channels %d must be 1 or 2", ErrBadConfig, decChannels)
	}

	enc, err := gopus.NewEncoder(encRate, encChannels, application)
	if err != nil {
		return nil, fmt.Errorf("codec: %w: opus encoder: %v", ErrBadConfig, err)
	}
	if bitrate > 0 {
		if err := enc.SetBitrate(bitrate); err != nil {
			return nil, fmt.Errorf("codec: %w: opus bitrate: %v", ErrBadConfig, err)
		}
	}
	if complexity > 0 {
		if err := enc.SetComplexity(complexity); err != nil {
			return nil, fmt.Errorf("codec: %w: opus complexity: %v", ErrBadConfig, err)
		}
	}

	dec, err := gopus.NewDecoder(decRate, decChannels)
	if err != nil {
		return nil, fmt.Errorf("codec: %w: opus decoder: %v", ErrBadConfig, err)
	}

	maxFrameSamples := decRate * 60 / 1000 * decChannels
	logrus.WithFields(logrus.Fields{
		"function":     "newOpusState",
		"enc_rate":     encRate,
		"enc_channels": encChannels,
		"dec_rate":     decRate,
		"dec_channels": decChannels,
		"bitrate":      bitrate,
	}).Info("Created opus state")

	return &opusState{
		enc:                enc,
		dec:                dec,
		encChannels:        encChannels,
		decChannels:        decChannels,
		encSampleRate:      encRate,
		decSampleRate:      decRate,
		nominalMonoSamples: encodeFrameSamples / encChannels,
		upmixScratch:       make([]int16, maxFrameSamples),
	}, nil
}

func (s *opusState) close() {
	// gopus has no explicit Close; the cgo state is reclaimed by the Go
	// finalizer it registers internally. Nothing to release here.
}

// encode mirrors spec.md §4.4: if the encoder is stereo and the caller
// passed mono PCM (nSamples <= nominalMonoSamples, i.e. at most one frame's
// worth of samples for a single channel, not yet interleaved), upmix by sample
// duplication before calling the underlying Opus encoder. No codec tag
// byte is written; that is the pipeline's responsibility.
func (s *opusState) encode(pcm []int16, nSamples int, out []byte) int {
	var input []int16
	var samplesPerChannel int

	if s.encChannels == 2 && nSamples <= s.nominalMonoSamples {
		if cap(s.upmixScratch) < nSamples*2 {
			s.upmixScratch = make([]int16, nSamples*2)
		}
		mono := s.upmixScratch[:nSamples*2]
		for i := 0; i < nSamples; i++ {
			mono[2*i] = pcm[i]
			mono[2*i+1] = pcm[i]
		}
		input = mono
		samplesPerChannel = nSamples
	} else {
		input = pcm[:nSamples]
		samplesPerChannel = nSamples / s.encChannels
	}

	encoded, err := s.enc.Encode(input, samplesPerChannel, len(out))
	if err != nil {
		return -1
	}
	if len(encoded) > len(out) {
		return -1
	}
	copy(out, encoded)
	return len(encoded)
}

// decode straight-decodes one Opus packet with FEC disabled, returning the
// total interleaved sample count (samplesPerChannel * decChannels).
func (s *opusState) decode(encoded []byte, out []int16, maxOut int) int {
	frameSize := maxOut / s.decChannels
	pcm, err := s.dec.Decode(encoded, frameSize, false)
	if err != nil {
		return -1
	}
	if len(pcm) > maxOut {
		return -1
	}
	copy(out, pcm)
	return len(pcm)
}

// decodePLC synthesizes one lost-packet concealment frame by invoking the
// decoder with a nil packet, which signals loss to libopus and triggers
// its internal PLC path.
func (s *opusState) decodePLC(out []int16, samplesPerChannel int) int {
	pcm, err := s.dec.Decode(nil, samplesPerChannel, false)
	if err != nil {
		return -1
	}
	if len(pcm) > len(out) {
		return -1
	}
	copy(out, pcm)
	return len(pcm)
}
