package capture

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/duplexaudio/codec"
	"github.com/opd-ai/duplexaudio/filter"
	"github.com/opd-ai/duplexaudio/hostaudio"
	"github.com/opd-ai/duplexaudio/ringbuffer"
)

// Encoded-ring sizing constants (spec.md §4.6 configure_encoder).
const (
	encodedRingMaxSlots       = 32
	encodedRingMaxBytesPerSlot = 1500
)

// Config carries the construction-time parameters for a CaptureEngine
// (spec.md §4.6 create()).
type Config struct {
	SampleRate      int
	Channels        int
	FrameSamples    int
	MaxBufferFrames int

	EnableFilters bool
	Filter        filter.Config // used only if EnableFilters
}

// Stats reports real-time-safe diagnostic counters, read from the control
// thread.
type Stats struct {
	DroppedPCMFrames     uint64
	DroppedEncodedFrames uint64
	EncodeFailures       uint64
}

// CaptureEngine is the real-time capture side of the engine (spec.md
// §4.6). It exclusively owns its host input stream, accumulation buffer,
// filter chain, codec, and ring buffer(s); the PipelineCoordinator holds
// only a shared reference through these public operations.
type CaptureEngine struct {
	backend hostaudio.HostAudioBackend

	// mu guards all control-path (non-real-time) fields below. The
	// real-time callback never takes mu; it only touches atomics and its
	// own exclusively-owned accumulation state.
	mu      sync.Mutex
	created bool
	cfg     Config

	stream hostaudio.Stream

	filterChain *filter.VoiceFilterChain

	pcmRing     *ringbuffer.PcmRingBuffer
	encodedRing *ringbuffer.EncodedRingBuffer
	codecState  *codec.Codec

	accumBuf     []int16
	accumCount   int
	silenceBuf   []int16
	dropScratch  []int16 // producer-side drop-oldest scratch; never shared with a consumer buffer
	encodeScratch []byte

	encodeInCallback int32 // atomic bool

	// Real-time-safe atomics.
	recording int32
	muted     int32
	destroyed int32

	stats Stats
}

// New constructs an unconfigured CaptureEngine bound to backend. Call
// Create before any other operation.
func New(backend hostaudio.HostAudioBackend) *CaptureEngine {
	return &CaptureEngine{backend: backend}
}

// Create allocates the engine's buffers and filter chain. If the engine was
// already created, it is destroyed first (spec.md §4.6).
func (e *CaptureEngine) Create(cfg Config) error {
	if cfg.SampleRate <= 0 || cfg.Channels <= 0 || cfg.FrameSamples <= 0 || cfg.MaxBufferFrames < 2 {
		return fmt.Errorf("capture: %w: invalid Config %+v", ErrBadConfig, cfg)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.created {
		e.destroyLocked()
	}

	logrus.WithFields(logrus.Fields{
		"function":     "CaptureEngine.Create",
		"sample_rate":  cfg.SampleRate,
		"channels":     cfg.Channels,
		"frame_samples": cfg.FrameSamples,
	}).Info("Creating capture engine")

	pcmRing, err := ringbuffer.NewPcmRingBuffer(cfg.MaxBufferFrames, cfg.FrameSamples)
	if err != nil {
		return fmt.Errorf("capture: %w: %v", ErrBadConfig, err)
	}

	var chain *filter.VoiceFilterChain
	if cfg.EnableFilters {
		fc := cfg.Filter
		fc.SampleRate = cfg.SampleRate
		fc.Channels = cfg.Channels
		fc.FrameSamples = cfg.FrameSamples
		chain, err = filter.NewVoiceFilterChain(fc)
		if err != nil {
			return fmt.Errorf("capture: %w: filter chain: %v", ErrBadConfig, err)
		}
	}

	e.cfg = cfg
	e.pcmRing = pcmRing
	e.encodedRing = nil
	e.codecState = nil
	e.filterChain = chain
	e.accumBuf = make([]int16, cfg.FrameSamples)
	e.accumCount = 0
	e.silenceBuf = make([]int16, cfg.FrameSamples)
	e.dropScratch = make([]int16, cfg.FrameSamples)
	atomic.StoreInt32(&e.encodeInCallback, 0)
	atomic.StoreInt32(&e.destroyed, 0)
	e.created = true

	return nil
}

// ConfigureEncoder installs an in-callback encoder for Profile p, replacing
// any previously configured encoder. Legal only in CREATED or RECORDING;
// returns ErrNotCreated otherwise (spec.md §4.6).
func (e *CaptureEngine) ConfigureEncoder(p codec.Profile) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.created {
		return ErrNotCreated
	}

	e.destroyEncoderLocked()

	logrus.WithFields(logrus.Fields{
		"function": "CaptureEngine.ConfigureEncoder",
		"profile":  p.String(),
	}).Info("Configuring capture encoder")

	c := codec.New()
	if err := c.CreateForProfile(p); err != nil {
		return fmt.Errorf("capture: %w: %v", ErrBadConfig, err)
	}

	encodedRing, err := ringbuffer.NewEncodedRingBuffer(encodedRingMaxSlots, encodedRingMaxBytesPerSlot)
	if err != nil {
		c.Close()
		return fmt.Errorf("capture: %w: %v", ErrBadConfig, err)
	}

	e.codecState = c
	e.encodedRing = encodedRing
	e.encodeScratch = make([]byte, encodedRingMaxBytesPerSlot)
	atomic.StoreInt32(&e.encodeInCallback, 1)

	return nil
}

// destroyEncoderLocked tears down any active encoder and encoded ring.
// Caller must hold mu.
func (e *CaptureEngine) destroyEncoderLocked() {
	atomic.StoreInt32(&e.encodeInCallback, 0)
	if e.codecState != nil {
		e.codecState.Close()
		e.codecState = nil
	}
	e.encodedRing = nil
	e.encodeScratch = nil
}

// DestroyEncoder removes any configured encoder, reverting to PCM-only
// capture.
func (e *CaptureEngine) DestroyEncoder() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroyEncoderLocked()
}

// StartStream opens the host input stream with the parameters spec.md
// §4.6 names and begins capturing. Per the RT-callback liveness invariant
// (spec.md §9), recording is set true strictly before the host is asked to
// start; on host-level failure it is cleared again.
func (e *CaptureEngine) StartStream() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.created {
		return ErrNotCreated
	}

	params := hostaudio.StreamParams{
		Direction:   hostaudio.DirectionInput,
		SampleRate:  e.cfg.SampleRate,
		Channels:    e.cfg.Channels,
		LowLatency:  true,
		Exclusive:   true,
		InputPreset: hostaudio.InputPresetVoiceCommunication,
	}

	stream, err := e.backend.OpenInputStream(params, e.onAudioReady, e.onStreamError)
	if err != nil {
		return fmt.Errorf("capture: %w: %v", ErrStreamOpen, err)
	}
	e.stream = stream

	atomic.StoreInt32(&e.recording, 1) // MUST precede RequestStart (spec.md §9)

	if err := stream.RequestStart(); err != nil {
		atomic.StoreInt32(&e.recording, 0)
		e.stream = nil
		return fmt.Errorf("capture: %w: %v", ErrStreamOpen, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "CaptureEngine.StartStream",
	}).Info("Capture stream started")

	return nil
}

// StopStream stops the host input stream; the real-time callback observes
// recording=false on its next invocation and becomes a no-op.
func (e *CaptureEngine) StopStream() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopStreamLocked()
}

func (e *CaptureEngine) stopStreamLocked() error {
	atomic.StoreInt32(&e.recording, 0)
	if e.stream == nil {
		return nil
	}
	if err := e.stream.Stop(); err != nil {
		return fmt.Errorf("capture: stop: %w", err)
	}
	return nil
}

// Destroy tears down the engine: stops the stream (if running), closes it,
// destroys the encoder, and frees buffers. Safe to call multiple times.
func (e *CaptureEngine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroyLocked()
}

func (e *CaptureEngine) destroyLocked() {
	atomic.StoreInt32(&e.destroyed, 1)
	e.stopStreamLocked()
	if e.stream != nil {
		e.stream.Close()
		e.stream = nil
	}
	e.destroyEncoderLocked()
	e.pcmRing = nil
	e.filterChain = nil
	e.accumBuf = nil
	e.silenceBuf = nil
	e.dropScratch = nil
	e.created = false
}

// SetCaptureMute sets the mute flag read by the real-time callback. Must
// not block; safe to call from the control thread at any time.
func (e *CaptureEngine) SetCaptureMute(muted bool) {
	v := int32(0)
	if muted {
		v = 1
	}
	atomic.StoreInt32(&e.muted, v)
}

// ReadSamples drains one PCM Frame from the capture ring (PCM mode).
func (e *CaptureEngine) ReadSamples(dst []int16) error {
	e.mu.Lock()
	ring := e.pcmRing
	e.mu.Unlock()
	if ring == nil {
		return ErrNotCreated
	}
	return ring.Read(dst)
}

// ReadEncodedPacket drains one encoded packet from the encoded ring (encode
// mode). Returns the packet length.
func (e *CaptureEngine) ReadEncodedPacket(dst []byte) (int, error) {
	e.mu.Lock()
	ring := e.encodedRing
	e.mu.Unlock()
	if ring == nil {
		return 0, ErrNotCreated
	}
	return ring.Read(dst)
}

// Stats returns a snapshot of the engine's diagnostic counters.
func (e *CaptureEngine) Stats() Stats {
	return Stats{
		DroppedPCMFrames:     atomic.LoadUint64(&e.stats.DroppedPCMFrames),
		DroppedEncodedFrames: atomic.LoadUint64(&e.stats.DroppedEncodedFrames),
		EncodeFailures:       atomic.LoadUint64(&e.stats.EncodeFailures),
	}
}

// onStreamError is the host backend's stream-level error callback
// (route/device change). Per spec.md §4.9, attempts one reopen iff still
// in the running state.
func (e *CaptureEngine) onStreamError(err error) {
	logrus.WithFields(logrus.Fields{
		"function": "CaptureEngine.onStreamError",
		"error":    err,
	}).Warn("Capture stream error callback fired")

	e.mu.Lock()
	wasRecording := atomic.LoadInt32(&e.recording) == 1
	e.mu.Unlock()

	if !wasRecording {
		return
	}
	if restartErr := e.StopStream(); restartErr != nil {
		return
	}
	_ = e.StartStream()
}

// onAudioReady is the real-time capture callback (spec.md §4.6). It is
// allocation-free and lock-free on its fast path: it only touches atomics
// and the engine's exclusively-owned accumulation state.
func (e *CaptureEngine) onAudioReady(in []int16) {
	if atomic.LoadInt32(&e.destroyed) == 1 {
		return
	}
	if atomic.LoadInt32(&e.recording) == 0 {
		return
	}

	frameSamples := len(e.accumBuf)
	processed := 0
	for processed < len(in) {
		n := frameSamples - e.accumCount
		if remaining := len(in) - processed; remaining < n {
			n = remaining
		}
		copy(e.accumBuf[e.accumCount:e.accumCount+n], in[processed:processed+n])
		e.accumCount += n
		processed += n

		if e.accumCount == frameSamples {
			e.handleFullFrame()
			e.accumCount = 0
		}
	}
}

// handleFullFrame runs the mute-substitution -> filter -> encode-or-write
// pipeline on one completed logical Frame (spec.md §4.6 step 3).
func (e *CaptureEngine) handleFullFrame() {
	data := e.accumBuf
	if atomic.LoadInt32(&e.muted) == 1 {
		data = e.silenceBuf
	}

	if e.filterChain != nil {
		e.filterChain.Process(data) // ignores SizeMismatch: data is always frameSamples long
	}

	if atomic.LoadInt32(&e.encodeInCallback) == 1 {
		n, err := e.codecState.Encode(data, len(data), e.encodeScratch)
		if err != nil {
			atomic.AddUint64(&e.stats.EncodeFailures, 1)
			return
		}
		if werr := e.encodedRing.Write(e.encodeScratch[:n]); werr != nil {
			e.dropOldestEncoded()
			e.encodedRing.Write(e.encodeScratch[:n])
		}
		return
	}

	if werr := e.pcmRing.Write(data); werr != nil {
		e.dropOldestPCM()
		e.pcmRing.Write(data)
	}
}

// dropOldestPCM discards the oldest queued PCM frame into the dedicated
// drop-scratch buffer (never the consumer's own buffer, spec.md §4.5/§9)
// to make room for the new one.
func (e *CaptureEngine) dropOldestPCM() {
	e.pcmRing.Read(e.dropScratch)
	atomic.AddUint64(&e.stats.DroppedPCMFrames, 1)
}

// dropOldestEncoded discards the oldest queued encoded packet to make room
// for the new one.
func (e *CaptureEngine) dropOldestEncoded() {
	var scratch [encodedRingMaxBytesPerSlot]byte
	e.encodedRing.Read(scratch[:])
	atomic.AddUint64(&e.stats.DroppedEncodedFrames, 1)
}
