package capture

import "errors"

// Sentinel errors for CaptureEngine operations, classified per spec.md §7.
var (
	// ErrNotCreated indicates an operation requiring a live engine (e.g.
	// ConfigureEncoder, StartStream) was called before Create or after
	// Destroy.
	ErrNotCreated = errors.New("capture: engine not created")

	// ErrBadConfig indicates an invalid construction or encoder parameter.
	ErrBadConfig = errors.New("capture: bad configuration")

	// ErrStreamOpen indicates the host audio backend refused to open or
	// start the input stream.
	ErrStreamOpen = errors.New("capture: stream open failed")

	// ErrDropped names a drop-oldest on a full capture ring. No CaptureEngine
	// operation returns it: drops happen inside the real-time callback and
	// are counted in Stats (DroppedPCMFrames, DroppedEncodedFrames).
	ErrDropped = errors.New("capture: ring full, dropped oldest frame")
)
