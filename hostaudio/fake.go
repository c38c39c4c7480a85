package hostaudio

import (
	"sync"
	"sync/atomic"
)

// FakeBackend is a software HostAudioBackend test double. It never touches
// real hardware; instead it hands the caller a FakeStream whose Push
// (input) or Pull (output) methods drive the data callback synchronously,
// exactly like a real-time audio thread would, so tests can exercise
// CaptureEngine/PlaybackEngine deterministically (spec.md §8's scenario
// tests: partial-frame bursts, PLC bounding, lifecycle races).
type FakeBackend struct {
	mu         sync.Mutex
	lastInput  *FakeStream
	lastOutput *FakeStream
}

// NewFakeBackend constructs a FakeBackend.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{}
}

func (b *FakeBackend) OpenInputStream(params StreamParams, callback InputCallback, onError ErrorCallback) (Stream, error) {
	if params.SampleRate <= 0 || params.Channels <= 0 {
		return nil, ErrBadParams
	}
	s := &FakeStream{direction: DirectionInput, inputCallback: callback, onError: onError}
	b.mu.Lock()
	b.lastInput = s
	b.mu.Unlock()
	return s, nil
}

func (b *FakeBackend) OpenOutputStream(params StreamParams, callback OutputCallback, onError ErrorCallback) (Stream, error) {
	if params.SampleRate <= 0 || params.Channels <= 0 {
		return nil, ErrBadParams
	}
	s := &FakeStream{direction: DirectionOutput, outputCallback: callback, onError: onError}
	b.mu.Lock()
	b.lastOutput = s
	b.mu.Unlock()
	return s, nil
}

// LastInputStream returns the most recently opened input FakeStream, or nil
// if none has been opened yet. Intended for tests in other packages (e.g.
// pipeline) that need to drive a CaptureEngine's real-time callback without
// the engine itself exposing its host Stream.
func (b *FakeBackend) LastInputStream() *FakeStream {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastInput
}

// LastOutputStream returns the most recently opened output FakeStream, or
// nil if none has been opened yet.
func (b *FakeBackend) LastOutputStream() *FakeStream {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastOutput
}

// FakeStream is the Stream returned by FakeBackend. Push/Pull are driven by
// the test, not by a real-time thread, but they exercise exactly the same
// callback code path CaptureEngine/PlaybackEngine install.
type FakeStream struct {
	direction      Direction
	inputCallback  InputCallback
	outputCallback OutputCallback
	onError        ErrorCallback

	started        int32
	framesPerBurst int64
	xrunCount      uint64
}

func (s *FakeStream) RequestStart() error {
	atomic.StoreInt32(&s.started, 1)
	return nil
}

func (s *FakeStream) Stop() error {
	atomic.StoreInt32(&s.started, 0)
	return nil
}

func (s *FakeStream) Close() error {
	atomic.StoreInt32(&s.started, 0)
	return nil
}

func (s *FakeStream) SetBufferSizeInFrames(frames int) error {
	atomic.StoreInt64(&s.framesPerBurst, int64(frames))
	return nil
}

func (s *FakeStream) FramesPerBurst() int {
	return int(atomic.LoadInt64(&s.framesPerBurst))
}

func (s *FakeStream) XRunCount() uint64 {
	return atomic.LoadUint64(&s.xrunCount)
}

// Started reports whether RequestStart has been called since the last
// Stop/Close, letting tests assert the "set running before request-start"
// ordering invariant (spec.md §9) by checking Started() before and after
// the engine issues its own first callback.
func (s *FakeStream) Started() bool {
	return atomic.LoadInt32(&s.started) == 1
}

// Push delivers one input burst of numFrames*channels samples to the
// installed InputCallback, as a capture host would. Returns false (and
// does not invoke the callback) if the stream was never started, matching
// a real backend's behavior after Stop/Close.
func (s *FakeStream) Push(burst []int16) bool {
	if !s.Started() || s.inputCallback == nil {
		return false
	}
	s.inputCallback(burst)
	return true
}

// Pull asks the installed OutputCallback to fill buf, as a playback host
// would. Returns false (leaving buf untouched) if the stream was never
// started.
func (s *FakeStream) Pull(buf []int16) bool {
	if !s.Started() || s.outputCallback == nil {
		return false
	}
	s.outputCallback(buf)
	return true
}

// InjectError invokes the stream's error callback, simulating a route
// change or device-unplug event (spec.md §4.9 RouteError).
func (s *FakeStream) InjectError(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}

// SimulateXRun increments the diagnostic xrun counter, as a real backend
// would on an over/underrun.
func (s *FakeStream) SimulateXRun() {
	atomic.AddUint64(&s.xrunCount, 1)
}
