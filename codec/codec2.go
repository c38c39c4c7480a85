package codec

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/duplexaudio/codec/internal/codec2cgo"
)

// codec2State holds the active Codec2 encoder/decoder and the wire mode
// header it currently corresponds to. Decode mutates modeHeader/handle in
// place when an inbound packet's header byte names a different library
// mode (spec.md §4.4) — destroying and recreating the native context,
// since per spec.md §9 Codec2 mode switches are rare and per-mode caching
// is not worth the complexity.
type codec2State struct {
	handle      *codec2cgo.Handle
	libraryMode int
	modeHeader  byte

	samplesPerFrame int
	bytesPerFrame   int
}

// newCodec2State constructs a Codec2 encoder/decoder for the given library
// mode (one of 0, 1, 2, 3, 4, 5, 8 — see Codec2LibraryModeToHeader).
func newCodec2State(libraryMode int) (*codec2State, error) {
	header, ok := Codec2LibraryModeToHeader(libraryMode)
	if !ok {
		return nil, fmt.Errorf("codec: %w: codec2 library mode %d has no wire header", ErrBadConfig, libraryMode)
	}

	handle, err := codec2cgo.Create(libraryMode)
	if err != nil {
		return nil, fmt.Errorf("codec: %w: %v", ErrBadConfig, err)
	}

	s := &codec2State{
		handle:          handle,
		libraryMode:     libraryMode,
		modeHeader:      header,
		samplesPerFrame: handle.SamplesPerFrame(),
		bytesPerFrame:   handle.BytesPerFrame(),
	}

	logrus.WithFields(logrus.Fields{
		"function":          "newCodec2State",
		"library_mode":      libraryMode,
		"mode_header":       fmt.Sprintf("0x%02x", header),
		"samples_per_frame": s.samplesPerFrame,
		"bytes_per_frame":   s.bytesPerFrame,
	}).Info("Created codec2 state")

	return s, nil
}

func (s *codec2State) close() {
	if s == nil {
		return
	}
	s.handle.Destroy()
}

// encode splits nSamples samples into sub-frames of samplesPerFrame, writes
// the current mode header at out[0], then one bytesPerFrame sub-frame per
// slot after it. Returns 1 + nSubFrames*bytesPerFrame, or -1 on overflow or
// a non-whole-sub-frame count.
func (s *codec2State) encode(pcm []int16, nSamples int, out []byte) int {
	if nSamples%s.samplesPerFrame != 0 {
		return -1
	}
	nSubFrames := nSamples / s.samplesPerFrame
	total := 1 + nSubFrames*s.bytesPerFrame
	if total > len(out) {
		return -1
	}

	out[0] = s.modeHeader
	for i := 0; i < nSubFrames; i++ {
		pcmOff := i * s.samplesPerFrame
		outOff := 1 + i*s.bytesPerFrame
		s.handle.Encode(pcm[pcmOff:pcmOff+s.samplesPerFrame], out[outOff:outOff+s.bytesPerFrame])
	}
	return total
}

// decode reads encoded[0] as the wire mode header, switching library mode
// first (via switchMode) if it differs from the current one, then decodes
// floor((len-1)/bytesPerFrame) sub-frames into out. Returns the total
// decoded sample count, or -1 on an unknown header, a short buffer, or an
// output overflow.
func (s *codec2State) decode(encoded []byte, out []int16, maxOut int) (int, error) {
	if len(encoded) < 1 {
		return -1, ErrDecodeBad
	}
	header := encoded[0]
	if header != s.modeHeader {
		if err := s.switchMode(header); err != nil {
			return -1, err
		}
	}

	nSubFrames := (len(encoded) - 1) / s.bytesPerFrame
	total := nSubFrames * s.samplesPerFrame
	if total > maxOut {
		return -1, ErrDecodeBad
	}

	for i := 0; i < nSubFrames; i++ {
		inOff := 1 + i*s.bytesPerFrame
		outOff := i * s.samplesPerFrame
		s.handle.Decode(encoded[inOff:inOff+s.bytesPerFrame], out[outOff:outOff+s.samplesPerFrame])
	}
	return total, nil
}

// switchMode destroys and recreates the native Codec2 context for the
// library mode matching header, per the bijection in bijection.go.
func (s *codec2State) switchMode(header byte) error {
	libraryMode, ok := Codec2HeaderToLibraryMode(header)
	if !ok {
		return fmt.Errorf("codec: %w: header 0x%02x", ErrUnknownModeHeader, header)
	}

	logrus.WithFields(logrus.Fields{
		"function":     "codec2State.switchMode",
		"old_mode":     s.libraryMode,
		"new_mode":     libraryMode,
		"wire_header":  fmt.Sprintf("0x%02x", header),
	}).Info("Switching codec2 library mode on mode header mismatch")

	handle, err := codec2cgo.Create(libraryMode)
	if err != nil {
		return fmt.Errorf("codec: %w: %v", ErrBadConfig, err)
	}

	s.handle.Destroy()
	s.handle = handle
	s.libraryMode = libraryMode
	s.modeHeader = header
	s.samplesPerFrame = handle.SamplesPerFrame()
	s.bytesPerFrame = handle.BytesPerFrame()
	return nil
}
