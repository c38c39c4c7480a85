package hostaudio

// Direction identifies whether a stream captures (input) or renders
// (output) audio.
type Direction int

const (
	DirectionInput Direction = iota
	DirectionOutput
)

// InputPreset mirrors the platform hint the original source passes when
// opening a capture stream (spec.md §6); voice communication biases the
// platform's own AEC/AGC/NS away from interfering with this engine's own
// filter chain.
type InputPreset int

const (
	InputPresetVoiceCommunication InputPreset = iota
)

// OutputUsage mirrors the platform hint passed when opening a playback
// stream.
type OutputUsage int

const (
	OutputUsageVoiceCommunication OutputUsage = iota
)

// ContentType mirrors the platform hint describing the nature of the
// rendered content.
type ContentType int

const (
	ContentTypeSpeech ContentType = iota
)

// StreamParams declares the configuration CaptureEngine/PlaybackEngine
// request when opening a stream, matching spec.md §6's HostAudioBackend
// surface: exclusive sharing, low-latency performance mode, int16 format,
// and the voice-communication preset/usage/content-type hints.
type StreamParams struct {
	Direction   Direction
	SampleRate  int
	Channels    int
	LowLatency  bool
	Exclusive   bool
	InputPreset InputPreset // meaningful for DirectionInput
	Usage       OutputUsage // meaningful for DirectionOutput
	ContentType ContentType // meaningful for DirectionOutput
}

// InputCallback receives one hardware burst of interleaved int16 samples.
// The burst size is variable across invocations and is typically smaller
// than a logical Frame (spec.md §4.6). Implementations MUST NOT retain in
// past the call — the backend may reuse the backing array.
type InputCallback func(in []int16)

// OutputCallback must fill out completely with interleaved int16 samples
// before returning (spec.md §4.7).
type OutputCallback func(out []int16)

// ErrorCallback is invoked on a stream-level error (route change, device
// unplug). spec.md §4.9: the engine attempts one reopen iff still running.
type ErrorCallback func(err error)

// Stream is a single opened input or output stream.
type Stream interface {
	// RequestStart asks the backend to begin invoking the data callback.
	// Must be idempotent-safe to call only once per open stream.
	RequestStart() error

	// Stop asks the backend to stop invoking the data callback. The
	// callback may still fire a bounded number of times after Stop
	// returns; callers rely on their own atomic running flag, not on Stop
	// being synchronous, per spec.md §5.
	Stop() error

	// Close releases the stream's resources. Must be called after Stop.
	Close() error

	// SetBufferSizeInFrames hints the backend's internal buffering depth.
	SetBufferSizeInFrames(frames int) error

	// FramesPerBurst reports the backend's typical callback burst size, or
	// 0 if unknown before the first callback fires.
	FramesPerBurst() int

	// XRunCount reports the cumulative over/underrun count the backend has
	// observed on this stream.
	XRunCount() uint64
}

// HostAudioBackend is the platform-supplied real-time audio primitive the
// core consumes (spec.md §6). Microphone permission and device enumeration
// are the caller's responsibility; this interface only opens streams.
type HostAudioBackend interface {
	// OpenInputStream opens a capture stream and begins delivering bursts
	// to callback once the returned Stream's RequestStart is called.
	OpenInputStream(params StreamParams, callback InputCallback, onError ErrorCallback) (Stream, error)

	// OpenOutputStream opens a playback stream and begins pulling frames
	// from callback once the returned Stream's RequestStart is called.
	OpenOutputStream(params StreamParams, callback OutputCallback, onError ErrorCallback) (Stream, error)
}
