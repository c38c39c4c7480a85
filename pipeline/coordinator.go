package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/duplexaudio/capture"
	"github.com/opd-ai/duplexaudio/codec"
	"github.com/opd-ai/duplexaudio/hostaudio"
	"github.com/opd-ai/duplexaudio/playback"
)

// maxEncodedPacketBytes bounds one encoded packet, matching the capture
// package's encoded-ring slot size (spec.md §4.6's EncodedRingBuffer
// sizing): no Profile in the table produces a packet anywhere near this.
const maxEncodedPacketBytes = 1500

// inboundQueueDepth bounds the coordinator's inbound packet channel; the
// PacketRouter's callback enqueues onto it and must never block on the
// router's own delivery thread.
const inboundQueueDepth = 64

// Config carries construction-time tuning for a PipelineCoordinator.
type Config struct {
	CaptureMaxBufferFrames  int
	PlaybackMaxBufferFrames int

	// DeferPlaybackStart, when true, withholds playback's StartStream
	// until GetBufferedFrameCount first reaches the Profile's
	// PrebufferFrames (spec.md §4.8's auto-start policy). When false,
	// playback starts immediately alongside capture.
	DeferPlaybackStart bool

	// PollInterval paces the background tasks' polling of the prebuffer
	// threshold and the capture encoded ring; it is not on any real-time
	// path.
	PollInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.CaptureMaxBufferFrames <= 0 {
		c.CaptureMaxBufferFrames = 8
	}
	if c.PlaybackMaxBufferFrames <= 0 {
		c.PlaybackMaxBufferFrames = 8
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Millisecond
	}
	return c
}

// PipelineCoordinator owns the capture and playback engines, the active
// Profile, and the wiring between the engines and a PacketRouter (spec.md
// §4.8). It is the only type in this module that talks to PacketRouter.
type PipelineCoordinator struct {
	captureBackend  hostaudio.HostAudioBackend
	playbackBackend hostaudio.HostAudioBackend
	router          PacketRouter
	cfg             Config

	mu      sync.Mutex
	started bool
	profile codec.Profile

	capture  *capture.CaptureEngine
	playback *playback.PlaybackEngine

	inbound chan []byte

	playbackStarted int32 // atomic bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCoordinator constructs an unstarted PipelineCoordinator. captureBackend
// and playbackBackend are typically the same process-scoped HostAudioBackend
// instance (spec.md §9's "singleton host audio engines" note), but are
// accepted separately since nothing in this package requires that.
func NewCoordinator(captureBackend, playbackBackend hostaudio.HostAudioBackend, router PacketRouter, cfg Config) *PipelineCoordinator {
	return &PipelineCoordinator{
		captureBackend:  captureBackend,
		playbackBackend: playbackBackend,
		router:          router,
		cfg:             cfg.withDefaults(),
	}
}

// Start selects Profile p, creates and configures both engines, installs
// the inbound packet handler, and begins capturing. Playback is started
// immediately unless cfg.DeferPlaybackStart is set, in which case it is
// deferred to the prebuffer auto-start policy (spec.md §4.8).
func (c *PipelineCoordinator) Start(p codec.Profile) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return ErrAlreadyStarted
	}
	return c.buildAndStartLocked(p)
}

// buildAndStartLocked does the actual engine construction; caller must
// hold mu. On any failure it tears back down anything it partially built
// and leaves the coordinator in the not-started state.
func (c *PipelineCoordinator) buildAndStartLocked(p codec.Profile) error {
	logrus.WithFields(logrus.Fields{
		"function": "PipelineCoordinator.buildAndStartLocked",
		"profile":  p.String(),
	}).Info("Starting pipeline")

	ce := capture.New(c.captureBackend)
	if err := ce.Create(capture.Config{
		SampleRate:      p.EncodeParams.SampleRate,
		Channels:        p.EncodeParams.Channels,
		FrameSamples:    p.EncodeFrameSamples(),
		MaxBufferFrames: c.cfg.CaptureMaxBufferFrames,
	}); err != nil {
		return fmt.Errorf("pipeline: %w: capture create: %v", ErrBadConfig, err)
	}
	if err := ce.ConfigureEncoder(p); err != nil {
		ce.Destroy()
		return fmt.Errorf("pipeline: %w: capture encoder: %v", ErrBadConfig, err)
	}

	pe := playback.New(c.playbackBackend)
	if err := pe.Create(playback.Config{
		SampleRate:      p.DecodeParams.SampleRate,
		Channels:        p.DecodeParams.Channels,
		FrameSamples:    p.DecodeFrameSamples(),
		MaxBufferFrames: c.cfg.PlaybackMaxBufferFrames,
		PrebufferFrames: PrebufferFrames(p),
	}); err != nil {
		ce.Destroy()
		return fmt.Errorf("pipeline: %w: playback create: %v", ErrBadConfig, err)
	}
	if err := pe.ConfigureDecoder(p); err != nil {
		ce.Destroy()
		pe.Destroy()
		return fmt.Errorf("pipeline: %w: playback decoder: %v", ErrBadConfig, err)
	}

	if err := ce.StartStream(); err != nil {
		ce.Destroy()
		pe.Destroy()
		return fmt.Errorf("pipeline: %w: capture start: %v", ErrBadConfig, err)
	}

	atomic.StoreInt32(&c.playbackStarted, 0)
	if !c.cfg.DeferPlaybackStart {
		if err := pe.StartStream(); err != nil {
			ce.Destroy()
			pe.Destroy()
			return fmt.Errorf("pipeline: %w: playback start: %v", ErrBadConfig, err)
		}
		atomic.StoreInt32(&c.playbackStarted, 1)
	}

	c.capture = ce
	c.playback = pe
	c.profile = p

	c.inbound = make(chan []byte, inboundQueueDepth)
	c.router.SetPacketCallback(func(data []byte) { c.enqueueInbound(data) })

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(2)
	go c.runInboundConsumer(ctx, pe, c.inbound, PrebufferFrames(p), c.cfg.DeferPlaybackStart, &c.playbackStarted, c.cfg.PollInterval)
	go c.runOutboundDrain(ctx, ce, p.TagByte, c.router, c.cfg.PollInterval)

	c.started = true
	return nil
}

// enqueueInbound is the PacketRouter callback. Never blocks: a full queue
// (the background consumer falling behind) drops the packet, matching the
// engine's own drop-oldest-on-full discipline elsewhere in this module.
func (c *PipelineCoordinator) enqueueInbound(data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	select {
	case c.inbound <- cp:
	default:
		logrus.WithFields(logrus.Fields{
			"function": "PipelineCoordinator.enqueueInbound",
		}).Warn("Inbound packet queue full, dropping packet")
	}
}

// Stop halts both engines and their background tasks. Safe to call only
// while started; returns ErrNotStarted otherwise.
func (c *PipelineCoordinator) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return ErrNotStarted
	}
	c.stopLocked()
	return nil
}

func (c *PipelineCoordinator) stopLocked() {
	c.router.SetPacketCallback(nil)
	c.cancel()
	c.wg.Wait()
	close(c.inbound)

	c.capture.Destroy()
	c.playback.Destroy()

	c.capture = nil
	c.playback = nil
	c.inbound = nil
	c.cancel = nil
	c.started = false
}

// SwitchProfile tears down both engines, reconfigures them for p, and
// restarts. This is always a full tear-down/rebuild; no decoder state
// continues across the switch (spec.md §4.8). On failure the coordinator
// reverts to the Profile it was running before the call and returns
// ErrBadConfig; the caller's prior working profile is preserved (spec.md
// §4.9).
func (c *PipelineCoordinator) SwitchProfile(p codec.Profile) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return ErrNotStarted
	}

	prev := c.profile
	c.stopLocked()

	if err := c.buildAndStartLocked(p); err != nil {
		if revertErr := c.buildAndStartLocked(prev); revertErr != nil {
			return fmt.Errorf("pipeline: %w: switch to %s failed (%v), and revert to %s also failed: %v", ErrBadConfig, p, err, prev, revertErr)
		}
		return fmt.Errorf("pipeline: %w: switch to %s failed, remaining on %s: %v", ErrBadConfig, p, prev, err)
	}
	return nil
}

// Profile returns the currently active Profile.
func (c *PipelineCoordinator) Profile() codec.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

// SendSignal passes an opaque control code through to the PacketRouter.
func (c *PipelineCoordinator) SendSignal(code int) error {
	c.mu.Lock()
	router := c.router
	c.mu.Unlock()
	return router.SendSignal(code)
}

// SetCaptureMute forwards to the capture engine. No-op (but not an error)
// if the pipeline is not started.
func (c *PipelineCoordinator) SetCaptureMute(muted bool) {
	c.mu.Lock()
	ce := c.capture
	c.mu.Unlock()
	if ce != nil {
		ce.SetCaptureMute(muted)
	}
}

// SetPlaybackMute forwards to the playback engine. No-op (but not an
// error) if the pipeline is not started.
func (c *PipelineCoordinator) SetPlaybackMute(muted bool) {
	c.mu.Lock()
	pe := c.playback
	c.mu.Unlock()
	if pe != nil {
		pe.SetPlaybackMute(muted)
	}
}

// handleInboundPacket strips the codec-tag byte and hands the remaining
// payload to the playback engine's embedded decoder. The tag is
// informational only: decode parameters come from the negotiated Profile,
// not the tag byte (spec.md §4.8).
func (c *PipelineCoordinator) handleInboundPacket(pe *playback.PlaybackEngine, pkt []byte) {
	if len(pkt) < 1 {
		return
	}
	payload := pkt[1:]
	if err := pe.WriteEncodedPacket(payload); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "PipelineCoordinator.handleInboundPacket",
			"error":    err,
		}).Warn("Failed to write decoded inbound packet")
	}
}

// runInboundConsumer is the background (non-real-time) task draining
// inbound packets and, while DeferPlaybackStart is set, polling for the
// prebuffer threshold to auto-start playback (spec.md §4.8).
func (c *PipelineCoordinator) runInboundConsumer(ctx context.Context, pe *playback.PlaybackEngine, inbound <-chan []byte, prebufferFrames int, deferStart bool, startedFlag *int32, poll time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case pkt, ok := <-inbound:
			if !ok {
				return
			}
			c.handleInboundPacket(pe, pkt)
		case <-ticker.C:
		}

		if deferStart && atomic.LoadInt32(startedFlag) == 0 {
			if pe.GetBufferedFrameCount() >= prebufferFrames {
				if atomic.CompareAndSwapInt32(startedFlag, 0, 1) {
					if err := pe.StartStream(); err != nil {
						logrus.WithFields(logrus.Fields{
							"function": "PipelineCoordinator.runInboundConsumer",
							"error":    err,
						}).Warn("Deferred playback auto-start failed")
						atomic.StoreInt32(startedFlag, 0)
					}
				}
			}
		}
	}
}

// runOutboundDrain is the background task moving encoded Frames from the
// capture engine's encoded ring to the transport, prepending the
// Profile's codec-tag byte (spec.md §4.8's TX data flow, §6's wire
// framing).
func (c *PipelineCoordinator) runOutboundDrain(ctx context.Context, ce *capture.CaptureEngine, tagByte byte, router PacketRouter, poll time.Duration) {
	defer c.wg.Done()

	scratch := make([]byte, maxEncodedPacketBytes)
	tagged := make([]byte, 1+maxEncodedPacketBytes)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for {
			n, err := ce.ReadEncodedPacket(scratch)
			if err != nil {
				break
			}
			tagged[0] = tagByte
			copy(tagged[1:], scratch[:n])
			if sendErr := router.SendPacket(tagged[:1+n]); sendErr != nil {
				logrus.WithFields(logrus.Fields{
					"function": "PipelineCoordinator.runOutboundDrain",
					"error":    sendErr,
				}).Warn("SendPacket failed")
			}
		}
	}
}
