package playback

import "errors"

// Sentinel errors for PlaybackEngine operations, classified per spec.md §7.
var (
	// ErrNotCreated indicates an operation requiring a live engine was
	// called before Create or after Destroy.
	ErrNotCreated = errors.New("playback: engine not created")

	// ErrBadConfig indicates an invalid construction or decoder parameter.
	ErrBadConfig = errors.New("playback: bad configuration")

	// ErrStreamOpen indicates the host audio backend refused to open or
	// start the output stream.
	ErrStreamOpen = errors.New("playback: stream open failed")

	// ErrNotRunning indicates RestartStream was called while not playing.
	ErrNotRunning = errors.New("playback: stream is not running")

	// ErrDecodeBad indicates WriteEncodedPacket's decode call failed or
	// produced no samples; the packet is dropped.
	ErrDecodeBad = errors.New("playback: decode failed")

	// ErrDroppedOldest is returned (alongside a successful write) from
	// WriteSamples/WriteEncodedPacket when the ring was full and the
	// oldest queued frame was discarded to make room; non-fatal,
	// diagnostic only (spec.md §4.9 Dropped).
	ErrDroppedOldest = errors.New("playback: ring full, dropped oldest frame")
)
