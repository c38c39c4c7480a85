package hostaudio

import "errors"

// Sentinel errors for hostaudio operations.
var (
	// ErrStreamOpen indicates the backend refused to open or start a
	// stream. Classified as StreamOpen in spec.md §7.
	ErrStreamOpen = errors.New("hostaudio: stream open failed")

	// ErrNotRunning names the stream-not-started condition. Neither stream
	// implementation in this package returns it: FakeStream.Stop on a stream
	// that is not started returns nil, and the PortAudio stream wraps the
	// library's own error.
	ErrNotRunning = errors.New("hostaudio: stream is not running")

	// ErrBadParams indicates an invalid StreamParams combination (e.g.
	// zero sample rate or channel count).
	ErrBadParams = errors.New("hostaudio: invalid stream parameters")
)
