package pipeline

import "github.com/opd-ai/duplexaudio/codec"

// Prebuffer policy constants (spec.md §4.8).
const (
	// MinPrebufferFrames is the floor on prebuffer depth regardless of
	// frame time.
	MinPrebufferFrames = 5

	// PrebufferTargetMs is the fixed ≈300ms design target chosen to absorb
	// typical transport jitter.
	PrebufferTargetMs = 300
)

// PrebufferFrames returns max(MinPrebufferFrames, PrebufferTargetMs /
// p.FrameTimeMs): the number of decoded frames that must be queued before
// playback's host stream is started (spec.md §4.8).
func PrebufferFrames(p codec.Profile) int {
	if p.FrameTimeMs <= 0 {
		return MinPrebufferFrames
	}
	n := PrebufferTargetMs / p.FrameTimeMs
	if n < MinPrebufferFrames {
		return MinPrebufferFrames
	}
	return n
}
