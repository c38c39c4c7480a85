package playback

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/duplexaudio/codec"
	"github.com/opd-ai/duplexaudio/hostaudio"
	"github.com/opd-ai/duplexaudio/ringbuffer"
)

// Bound on consecutive synthesized PLC frames before the callback gives up
// and falls back to silence (spec.md §4.7, §9).
const maxConsecutivePLCFrames = 5

// Config carries the construction-time parameters for a PlaybackEngine
// (spec.md §4.7 create()).
type Config struct {
	SampleRate      int
	Channels        int
	FrameSamples    int
	MaxBufferFrames int
	PrebufferFrames int
}

// Stats reports real-time-safe diagnostic counters, read from the control
// thread.
type Stats struct {
	DecodedFrames        uint64
	CallbackFrames       uint64
	CallbackSilenceCount uint64
	CallbackPLCCount     uint64
	DroppedFrames        uint64
	DecodeFailures       uint64
}

// PlaybackEngine is the real-time playback side of the engine (spec.md
// §4.7). It exclusively owns its host output stream, PCM ring buffer,
// decoder, and the callback-side partial-frame buffer; the
// PipelineCoordinator holds only a shared reference through these public
// operations.
type PlaybackEngine struct {
	backend hostaudio.HostAudioBackend

	// mu guards all control-path (non-real-time) fields below. The
	// real-time callback never takes mu; it only touches atomics, the
	// decoderLock try-acquire, and its own exclusively-owned partial-frame
	// state.
	mu      sync.Mutex
	created bool
	cfg     Config

	stream hostaudio.Stream

	pcmRing *ringbuffer.PcmRingBuffer
	decoder *codec.Codec

	decodeScratch []int16
	dropScratch   []int16 // producer-side drop-oldest scratch; never shared with the callback buffer

	// partialBuf/partialOffset/partialValid are exclusively owned by the
	// real-time callback; they hold one decoded Frame's worth of samples
	// not yet fully delivered to a smaller hardware burst.
	partialBuf    []int16
	partialOffset int
	partialValid  int

	// consecutivePLC is exclusively owned by the real-time callback.
	consecutivePLC int

	hasDecoder    int32 // atomic bool
	decoderIsOpus int32 // atomic bool; PLC capability snapshot
	decoderLock   int32 // atomic try-acquire, contended between WriteEncodedPacket and onAudioReady's PLC path

	// Real-time-safe atomics.
	playing   int32
	muted     int32
	destroyed int32

	stats Stats
}

// New constructs an unconfigured PlaybackEngine bound to backend. Call
// Create before any other operation.
func New(backend hostaudio.HostAudioBackend) *PlaybackEngine {
	return &PlaybackEngine{backend: backend}
}

// Create allocates the engine's buffers. If the engine was already created,
// it is destroyed first (spec.md §4.7).
func (e *PlaybackEngine) Create(cfg Config) error {
	if cfg.SampleRate <= 0 || cfg.Channels <= 0 || cfg.FrameSamples <= 0 || cfg.MaxBufferFrames < 2 {
		return fmt.Errorf("playback: %w: invalid Config %+v", ErrBadConfig, cfg)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.created {
		e.destroyLocked()
	}

	logrus.WithFields(logrus.Fields{
		"function":      "PlaybackEngine.Create",
		"sample_rate":   cfg.SampleRate,
		"channels":      cfg.Channels,
		"frame_samples": cfg.FrameSamples,
	}).Info("Creating playback engine")

	pcmRing, err := ringbuffer.NewPcmRingBuffer(cfg.MaxBufferFrames, cfg.FrameSamples)
	if err != nil {
		return fmt.Errorf("playback: %w: %v", ErrBadConfig, err)
	}

	e.cfg = cfg
	e.pcmRing = pcmRing
	e.decoder = nil
	e.decodeScratch = nil
	e.dropScratch = make([]int16, cfg.FrameSamples)
	e.partialBuf = make([]int16, cfg.FrameSamples)
	e.partialOffset = 0
	e.partialValid = 0
	e.consecutivePLC = 0
	atomic.StoreInt32(&e.hasDecoder, 0)
	atomic.StoreInt32(&e.decoderIsOpus, 0)
	atomic.StoreInt32(&e.destroyed, 0)
	e.created = true

	return nil
}

// ConfigureDecoder installs an embedded decoder for Profile p, replacing any
// previously configured decoder. Legal in CREATED or RUNNING (spec.md §4.7).
func (e *PlaybackEngine) ConfigureDecoder(p codec.Profile) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.created {
		return ErrNotCreated
	}

	e.destroyDecoderLocked()

	logrus.WithFields(logrus.Fields{
		"function": "PlaybackEngine.ConfigureDecoder",
		"profile":  p.String(),
	}).Info("Configuring playback decoder")

	c := codec.New()
	if err := c.CreateForProfile(p); err != nil {
		return fmt.Errorf("playback: %w: %v", ErrBadConfig, err)
	}

	scratchLen := p.DecodeParams.SampleRate * 60 / 1000 * p.DecodeParams.Channels
	if e.cfg.FrameSamples > scratchLen {
		scratchLen = e.cfg.FrameSamples
	}

	// The try-acquire below must succeed before the new decoder is
	// published, so the real-time callback never observes hasDecoder=1
	// with a stale or half-built decoder.
	for !atomic.CompareAndSwapInt32(&e.decoderLock, 0, 1) {
		runtime.Gosched()
	}
	e.decoder = c
	e.decodeScratch = make([]int16, scratchLen)
	atomic.StoreInt32(&e.decoderLock, 0)

	atomic.StoreInt32(&e.hasDecoder, 1)
	if c.SupportsPLC() {
		atomic.StoreInt32(&e.decoderIsOpus, 1)
	} else {
		atomic.StoreInt32(&e.decoderIsOpus, 0)
	}

	return nil
}

// destroyDecoderLocked tears down any active decoder. Caller must hold mu.
func (e *PlaybackEngine) destroyDecoderLocked() {
	atomic.StoreInt32(&e.hasDecoder, 0)
	atomic.StoreInt32(&e.decoderIsOpus, 0)

	for !atomic.CompareAndSwapInt32(&e.decoderLock, 0, 1) {
		runtime.Gosched()
	}
	d := e.decoder
	e.decoder = nil
	e.decodeScratch = nil
	atomic.StoreInt32(&e.decoderLock, 0)

	if d != nil {
		d.Close()
	}
}

// DestroyDecoder removes any configured decoder, reverting to PCM-only
// playback.
func (e *PlaybackEngine) DestroyDecoder() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroyDecoderLocked()
}

// StartStream opens the host output stream with the parameters spec.md
// §4.7 names and begins rendering. Per the RT-callback liveness invariant
// (spec.md §9), playing is set true strictly before the host is asked to
// start; on host-level failure it is cleared again.
func (e *PlaybackEngine) StartStream() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startStreamLocked()
}

func (e *PlaybackEngine) startStreamLocked() error {
	if !e.created {
		return ErrNotCreated
	}

	params := hostaudio.StreamParams{
		Direction:   hostaudio.DirectionOutput,
		SampleRate:  e.cfg.SampleRate,
		Channels:    e.cfg.Channels,
		LowLatency:  true,
		Exclusive:   true,
		Usage:       hostaudio.OutputUsageVoiceCommunication,
		ContentType: hostaudio.ContentTypeSpeech,
	}

	// The backend reports its actual burst size only once the first
	// callback fires (hostaudio.Stream.FramesPerBurst's doc comment), so the
	// 2x buffering hint is applied from inside the callback itself, using
	// the observed len(out) directly, rather than queried here before any
	// callback has ever run.
	var hintApplied int32
	var stream hostaudio.Stream
	cb := func(out []int16) {
		if atomic.CompareAndSwapInt32(&hintApplied, 0, 1) {
			if burst := len(out); burst > 0 {
				stream.SetBufferSizeInFrames(2 * burst)
			}
		}
		e.onAudioReady(out)
	}

	var err error
	stream, err = e.backend.OpenOutputStream(params, cb, e.onStreamError)
	if err != nil {
		return fmt.Errorf("playback: %w: %v", ErrStreamOpen, err)
	}
	e.stream = stream

	atomic.StoreInt32(&e.playing, 1) // MUST precede RequestStart (spec.md §9)

	if err := stream.RequestStart(); err != nil {
		atomic.StoreInt32(&e.playing, 0)
		e.stream = nil
		return fmt.Errorf("playback: %w: %v", ErrStreamOpen, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "PlaybackEngine.StartStream",
	}).Info("Playback stream started")

	return nil
}

// RestartStream tears down and reopens the host output stream with the
// engine's current configuration, e.g. after an audio routing change. Fails
// with ErrNotRunning if the engine is not currently playing.
func (e *PlaybackEngine) RestartStream() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if atomic.LoadInt32(&e.playing) == 0 {
		return ErrNotRunning
	}

	e.stopStreamLocked()
	if e.stream != nil {
		e.stream.Close()
		e.stream = nil
	}

	return e.startStreamLocked()
}

// StopStream stops the host output stream; the real-time callback observes
// playing=false on its next invocation and renders silence.
func (e *PlaybackEngine) StopStream() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopStreamLocked()
}

func (e *PlaybackEngine) stopStreamLocked() error {
	atomic.StoreInt32(&e.playing, 0)
	if e.stream == nil {
		return nil
	}
	if err := e.stream.Stop(); err != nil {
		return fmt.Errorf("playback: stop: %w", err)
	}
	return nil
}

// Destroy tears down the engine: stops the stream (if running), closes it,
// destroys the decoder, and frees buffers. Safe to call multiple times.
func (e *PlaybackEngine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroyLocked()
}

func (e *PlaybackEngine) destroyLocked() {
	atomic.StoreInt32(&e.destroyed, 1)
	e.stopStreamLocked()
	if e.stream != nil {
		e.stream.Close()
		e.stream = nil
	}
	e.destroyDecoderLocked()
	e.pcmRing = nil
	e.dropScratch = nil
	e.partialBuf = nil
	e.partialOffset = 0
	e.partialValid = 0
	e.created = false
}

// SetPlaybackMute sets the mute flag read by the real-time callback. Must
// not block; safe to call from the control thread at any time.
func (e *PlaybackEngine) SetPlaybackMute(muted bool) {
	v := int32(0)
	if muted {
		v = 1
	}
	atomic.StoreInt32(&e.muted, v)
}

// WriteSamples enqueues one PCM Frame (PCM mode). On a full ring the oldest
// queued frame is dropped to make room; the new frame is still written and
// ErrDroppedOldest is returned alongside a nil-equivalent success so callers
// can treat it as a diagnostic, not a hard failure.
func (e *PlaybackEngine) WriteSamples(pcm []int16) error {
	e.mu.Lock()
	ring := e.pcmRing
	e.mu.Unlock()

	if ring == nil {
		return ErrNotCreated
	}
	if len(pcm) != ring.FrameSamples() {
		return fmt.Errorf("playback: %w: got %d samples, want %d", ErrBadConfig, len(pcm), ring.FrameSamples())
	}

	if err := ring.Write(pcm); err != nil {
		ring.Read(e.dropScratch)
		atomic.AddUint64(&e.stats.DroppedFrames, 1)
		if werr := ring.Write(pcm); werr != nil {
			return werr
		}
		return ErrDroppedOldest
	}
	return nil
}

// WriteEncodedPacket decodes one encoded packet through the configured
// decoder and enqueues the result (decode mode). The decoder lock is
// acquired with a spin-and-yield loop: this caller is never the real-time
// thread, so blocking briefly against the callback's own non-blocking
// try-acquire is acceptable (spec.md §4.7, §5).
func (e *PlaybackEngine) WriteEncodedPacket(data []byte) error {
	e.mu.Lock()
	decoder := e.decoder
	scratch := e.decodeScratch
	frameSamples := e.cfg.FrameSamples
	e.mu.Unlock()

	if decoder == nil {
		return ErrNotCreated
	}

	for !atomic.CompareAndSwapInt32(&e.decoderLock, 0, 1) {
		runtime.Gosched()
	}
	n, err := decoder.Decode(data, scratch, len(scratch))
	atomic.StoreInt32(&e.decoderLock, 0)

	if err != nil || n <= 0 {
		atomic.AddUint64(&e.stats.DecodeFailures, 1)
		return ErrDecodeBad
	}
	atomic.AddUint64(&e.stats.DecodedFrames, 1)

	if n != frameSamples {
		logrus.WithFields(logrus.Fields{
			"function": "PlaybackEngine.WriteEncodedPacket",
			"got":      n,
			"want":     frameSamples,
		}).Warn("Decoded sample count did not match configured Frame size")
	}

	return e.WriteSamples(scratch[:n])
}

// GetBufferedFrameCount reports the number of queued PCM frames, used by the
// pipeline's prebuffer/auto-start policy (spec.md §4.8).
func (e *PlaybackEngine) GetBufferedFrameCount() int {
	e.mu.Lock()
	ring := e.pcmRing
	e.mu.Unlock()
	if ring == nil {
		return 0
	}
	return ring.AvailableFrames()
}

// XRunCount reports the host backend's cumulative over/underrun count for
// this engine's stream, or 0 if no stream is open (spec.md §8 scenario 1).
func (e *PlaybackEngine) XRunCount() uint64 {
	e.mu.Lock()
	stream := e.stream
	e.mu.Unlock()
	if stream == nil {
		return 0
	}
	return stream.XRunCount()
}

// Stats returns a snapshot of the engine's diagnostic counters.
func (e *PlaybackEngine) Stats() Stats {
	return Stats{
		DecodedFrames:        atomic.LoadUint64(&e.stats.DecodedFrames),
		CallbackFrames:       atomic.LoadUint64(&e.stats.CallbackFrames),
		CallbackSilenceCount: atomic.LoadUint64(&e.stats.CallbackSilenceCount),
		CallbackPLCCount:     atomic.LoadUint64(&e.stats.CallbackPLCCount),
		DroppedFrames:        atomic.LoadUint64(&e.stats.DroppedFrames),
		DecodeFailures:       atomic.LoadUint64(&e.stats.DecodeFailures),
	}
}

// onStreamError is the host backend's stream-level error callback
// (route/device change). Per spec.md §4.9, attempts one reopen iff still
// in the running state.
func (e *PlaybackEngine) onStreamError(err error) {
	logrus.WithFields(logrus.Fields{
		"function": "PlaybackEngine.onStreamError",
		"error":    err,
	}).Warn("Playback stream error callback fired")

	e.mu.Lock()
	wasPlaying := atomic.LoadInt32(&e.playing) == 1
	e.mu.Unlock()

	if !wasPlaying {
		return
	}
	if stopErr := e.StopStream(); stopErr != nil {
		return
	}
	_ = e.StartStream()
}

// onAudioReady is the real-time playback callback (spec.md §4.7). It is
// allocation-free and lock-free on its fast path: it only touches atomics,
// the non-blocking decoderLock try-acquire, and the engine's
// exclusively-owned partial-frame state.
func (e *PlaybackEngine) onAudioReady(out []int16) {
	if atomic.LoadInt32(&e.destroyed) == 1 {
		zero(out)
		return
	}
	if atomic.LoadInt32(&e.muted) == 1 {
		zero(out)
		return
	}
	if atomic.LoadInt32(&e.playing) == 0 {
		zero(out)
		return
	}

	frameSamples := len(e.partialBuf)
	written := 0

	for written < len(out) {
		if e.partialValid > e.partialOffset {
			n := e.partialValid - e.partialOffset
			if remaining := len(out) - written; n > remaining {
				n = remaining
			}
			copy(out[written:written+n], e.partialBuf[e.partialOffset:e.partialOffset+n])
			e.partialOffset += n
			written += n
			if e.partialOffset == e.partialValid {
				e.partialOffset = 0
				e.partialValid = 0
			}
			continue
		}

		remaining := len(out) - written
		if remaining >= frameSamples {
			if err := e.pcmRing.Read(out[written : written+frameSamples]); err != nil {
				break
			}
			written += frameSamples
		} else {
			if err := e.pcmRing.Read(e.partialBuf); err != nil {
				break
			}
			e.partialOffset = 0
			e.partialValid = frameSamples
		}
		e.consecutivePLC = 0
		atomic.AddUint64(&e.stats.CallbackFrames, 1)
	}

	if written < len(out) {
		written = e.tryPLC(out, written, frameSamples)
	}

	if written < len(out) {
		zero(out[written:])
		if written == 0 {
			atomic.AddUint64(&e.stats.CallbackSilenceCount, 1)
		}
	}
}

// tryPLC attempts one bounded packet-loss-concealment fill when the ring
// ran dry. It is a non-blocking try-acquire against decoderLock: on
// contention (the control thread is mid-WriteEncodedPacket/ConfigureDecoder)
// it falls straight through to silence rather than ever blocking the
// real-time thread (spec.md §4.7, §9).
func (e *PlaybackEngine) tryPLC(out []int16, written, frameSamples int) int {
	if atomic.LoadInt32(&e.hasDecoder) == 0 || atomic.LoadInt32(&e.decoderIsOpus) == 0 {
		return written
	}
	if e.consecutivePLC >= maxConsecutivePLCFrames {
		return written
	}
	if !atomic.CompareAndSwapInt32(&e.decoderLock, 0, 1) {
		return written
	}
	decoder := e.decoder
	channels := e.cfg.Channels
	if channels <= 0 {
		channels = 1
	}
	n, err := decoder.DecodePLC(e.partialBuf, frameSamples/channels)
	atomic.StoreInt32(&e.decoderLock, 0)

	if err != nil || n <= 0 {
		return written
	}

	take := n
	if remaining := len(out) - written; take > remaining {
		take = remaining
	}
	copy(out[written:written+take], e.partialBuf[:take])
	e.consecutivePLC++
	atomic.AddUint64(&e.stats.CallbackPLCCount, 1)
	return written + take
}

func zero(buf []int16) {
	for i := range buf {
		buf[i] = 0
	}
}
