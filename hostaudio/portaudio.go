package hostaudio

import (
	"fmt"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
	"github.com/sirupsen/logrus"
)

// PortAudioBackend is the HostAudioBackend implementation built on
// github.com/gordonklaus/portaudio. One process-scoped instance is shared
// by the capture and playback engines; portaudio.Initialize/Terminate are
// reference-counted so either engine can open/close independently.
type PortAudioBackend struct{}

// NewPortAudioBackend initializes the underlying PortAudio subsystem. The
// source models capture/playback engines as singleton, lazily-constructed,
// process-scoped resources (spec.md §9); NewPortAudioBackend is meant to be
// called once per process and its Close deferred to shutdown.
func NewPortAudioBackend() (*PortAudioBackend, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("hostaudio: %w: portaudio init: %v", ErrStreamOpen, err)
	}
	return &PortAudioBackend{}, nil
}

// Close terminates the PortAudio subsystem. Safe to call once at process
// shutdown after all streams opened through this backend are closed.
func (b *PortAudioBackend) Close() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("hostaudio: portaudio terminate: %w", err)
	}
	return nil
}

func (b *PortAudioBackend) OpenInputStream(params StreamParams, callback InputCallback, onError ErrorCallback) (Stream, error) {
	if params.SampleRate <= 0 || params.Channels <= 0 {
		return nil, ErrBadParams
	}

	device, err := portaudio.DefaultInputDevice()
	if err != nil {
		return nil, fmt.Errorf("hostaudio: %w: default input device: %v", ErrStreamOpen, err)
	}

	latency := device.DefaultHighInputLatency
	if params.LowLatency {
		latency = device.DefaultLowInputLatency
	}

	s := &portAudioStream{direction: DirectionInput, onError: onError}

	paParams := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: params.Channels,
			Latency:  latency,
		},
		SampleRate: float64(params.SampleRate),
	}

	stream, err := portaudio.OpenStream(paParams, func(in []int16) {
		defer func() {
			if r := recover(); r != nil && s.onError != nil {
				s.onError(fmt.Errorf("hostaudio: input callback panic: %v", r))
			}
		}()
		atomic.CompareAndSwapInt64(&s.framesPerBurst, 0, int64(len(in)))
		callback(in)
	})
	if err != nil {
		return nil, fmt.Errorf("hostaudio: %w: open input stream: %v", ErrStreamOpen, err)
	}
	s.stream = stream

	logrus.WithFields(logrus.Fields{
		"function":    "PortAudioBackend.OpenInputStream",
		"sample_rate": params.SampleRate,
		"channels":    params.Channels,
		"low_latency": params.LowLatency,
	}).Info("Opened input stream")

	return s, nil
}

func (b *PortAudioBackend) OpenOutputStream(params StreamParams, callback OutputCallback, onError ErrorCallback) (Stream, error) {
	if params.SampleRate <= 0 || params.Channels <= 0 {
		return nil, ErrBadParams
	}

	device, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return nil, fmt.Errorf("hostaudio: %w: default output device: %v", ErrStreamOpen, err)
	}

	latency := device.DefaultHighOutputLatency
	if params.LowLatency {
		latency = device.DefaultLowOutputLatency
	}

	s := &portAudioStream{direction: DirectionOutput, onError: onError}

	paParams := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: params.Channels,
			Latency:  latency,
		},
		SampleRate: float64(params.SampleRate),
	}

	stream, err := portaudio.OpenStream(paParams, func(out []int16) {
		defer func() {
			if r := recover(); r != nil && s.onError != nil {
				s.onError(fmt.Errorf("hostaudio: output callback panic: %v", r))
			}
		}()
		atomic.CompareAndSwapInt64(&s.framesPerBurst, 0, int64(len(out)))
		callback(out)
	})
	if err != nil {
		return nil, fmt.Errorf("hostaudio: %w: open output stream: %v", ErrStreamOpen, err)
	}
	s.stream = stream

	logrus.WithFields(logrus.Fields{
		"function":    "PortAudioBackend.OpenOutputStream",
		"sample_rate": params.SampleRate,
		"channels":    params.Channels,
		"low_latency": params.LowLatency,
	}).Info("Opened output stream")

	return s, nil
}

// portAudioStream adapts a *portaudio.Stream to the Stream interface.
// xrunCount stays at 0 on this backend: gordonklaus/portaudio does not
// expose a native over/underrun counter the way Oboe's get_xrun_count()
// does in the original source, so there is nothing to record it from.
// framesPerBurst is recorded by the stream callback from the length of its
// first buffer and held as an atomic so FramesPerBurst() is safe to read
// from the control thread.
type portAudioStream struct {
	direction      Direction
	stream         *portaudio.Stream
	onError        ErrorCallback
	framesPerBurst int64
	xrunCount      uint64
}

func (s *portAudioStream) RequestStart() error {
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("hostaudio: %w: start: %v", ErrStreamOpen, err)
	}
	return nil
}

func (s *portAudioStream) Stop() error {
	if err := s.stream.Stop(); err != nil {
		return fmt.Errorf("hostaudio: stop: %w", err)
	}
	return nil
}

func (s *portAudioStream) Close() error {
	if err := s.stream.Close(); err != nil {
		return fmt.Errorf("hostaudio: close: %w", err)
	}
	return nil
}

// SetBufferSizeInFrames accepts the hint and has no effect: PortAudio fixes
// the stream's buffering when the stream is opened.
func (s *portAudioStream) SetBufferSizeInFrames(frames int) error {
	return nil
}

func (s *portAudioStream) FramesPerBurst() int {
	return int(atomic.LoadInt64(&s.framesPerBurst))
}

func (s *portAudioStream) XRunCount() uint64 {
	return atomic.LoadUint64(&s.xrunCount)
}
