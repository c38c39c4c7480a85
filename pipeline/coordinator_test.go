package pipeline

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/duplexaudio/codec"
	"github.com/opd-ai/duplexaudio/hostaudio"
)

// fakeRouter is a software PacketRouter test double: Deliver simulates an
// inbound packet arriving from the transport, Sent/Signals record what the
// coordinator handed outbound (spec.md §8 scenario tests).
type fakeRouter struct {
	mu       sync.Mutex
	callback func(data []byte)
	sent     [][]byte
	signals  []int
}

func newFakeRouter() *fakeRouter { return &fakeRouter{} }

func (r *fakeRouter) SetPacketCallback(fn func(data []byte)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callback = fn
}

func (r *fakeRouter) SendPacket(data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	r.mu.Lock()
	r.sent = append(r.sent, cp)
	r.mu.Unlock()
	return nil
}

func (r *fakeRouter) SendSignal(code int) error {
	r.mu.Lock()
	r.signals = append(r.signals, code)
	r.mu.Unlock()
	return nil
}

func (r *fakeRouter) Deliver(data []byte) {
	r.mu.Lock()
	cb := r.callback
	r.mu.Unlock()
	if cb != nil {
		cb(data)
	}
}

func (r *fakeRouter) Sent() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]byte, len(r.sent))
	copy(out, r.sent)
	return out
}

func (r *fakeRouter) Signals() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.signals))
	copy(out, r.signals)
	return out
}

func newTestCoordinator(t *testing.T) (*PipelineCoordinator, *hostaudio.FakeBackend, *fakeRouter) {
	t.Helper()
	backend := hostaudio.NewFakeBackend()
	router := newFakeRouter()
	c := NewCoordinator(backend, backend, router, Config{PollInterval: time.Millisecond})
	return c, backend, router
}

func TestStartTwiceFails(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	require.NoError(t, c.Start(codec.DefaultProfile()))
	defer c.Stop()
	assert.ErrorIs(t, c.Start(codec.DefaultProfile()), ErrAlreadyStarted)
}

func TestStopBeforeStartFails(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	assert.ErrorIs(t, c.Stop(), ErrNotStarted)
}

func TestStartConfiguresProfileAndStops(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	p := codec.DefaultProfile()
	require.NoError(t, c.Start(p))
	assert.Equal(t, p.ID, c.Profile().ID)
	require.NoError(t, c.Stop())
}

func TestSwitchProfileBeforeStartFails(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	assert.ErrorIs(t, c.SwitchProfile(codec.DefaultProfile()), ErrNotStarted)
}

func TestSwitchProfileUpdatesProfile(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	require.NoError(t, c.Start(codec.DefaultProfile()))
	defer c.Stop()

	next := codec.NextProfile(codec.DefaultProfile())
	require.NoError(t, c.SwitchProfile(next))
	assert.Equal(t, next.ID, c.Profile().ID)
}

func pushOneFrame(t *testing.T, stream *hostaudio.FakeStream, frameSamples int) {
	t.Helper()
	burst := make([]int16, frameSamples)
	for i := range burst {
		burst[i] = int16((i % 2000) - 1000)
	}
	require.True(t, stream.Push(burst))
}

func TestOutboundPacketsAreTaggedAndSent(t *testing.T) {
	c, backend, router := newTestCoordinator(t)
	p := codec.DefaultProfile()
	require.NoError(t, c.Start(p))
	defer c.Stop()

	stream := backend.LastInputStream()
	require.NotNil(t, stream)
	pushOneFrame(t, stream, p.EncodeFrameSamples())

	require.Eventually(t, func() bool {
		return len(router.Sent()) > 0
	}, time.Second, time.Millisecond)

	sent := router.Sent()[0]
	require.NotEmpty(t, sent)
	assert.Equal(t, p.TagByte, sent[0])
}

func TestInboundPacketFeedsPlaybackRing(t *testing.T) {
	c, backend, router := newTestCoordinator(t)
	p := codec.DefaultProfile()
	require.NoError(t, c.Start(p))
	defer c.Stop()

	captureStream := backend.LastInputStream()
	require.NotNil(t, captureStream)
	pushOneFrame(t, captureStream, p.EncodeFrameSamples())

	var encoded []byte
	require.Eventually(t, func() bool {
		sent := router.Sent()
		if len(sent) == 0 {
			return false
		}
		encoded = sent[0]
		return true
	}, time.Second, time.Millisecond)

	router.Deliver(encoded)

	require.Eventually(t, func() bool {
		return c.playback.GetBufferedFrameCount() > 0
	}, time.Second, time.Millisecond)
}

func TestSendSignalForwardsToRouter(t *testing.T) {
	c, _, router := newTestCoordinator(t)
	require.NoError(t, c.Start(codec.DefaultProfile()))
	defer c.Stop()

	require.NoError(t, c.SendSignal(7))
	assert.Equal(t, []int{7}, router.Signals())
}

func TestDeferPlaybackStartWithholdsUntilPrebuffered(t *testing.T) {
	backend := hostaudio.NewFakeBackend()
	router := newFakeRouter()
	c := NewCoordinator(backend, backend, router, Config{PollInterval: time.Millisecond, DeferPlaybackStart: true})

	p := codec.DefaultProfile()
	require.NoError(t, c.Start(p))
	defer c.Stop()

	assert.Equal(t, int32(0), atomic.LoadInt32(&c.playbackStarted))

	// Deferred means StartStream hasn't even been called yet, so the host
	// backend never opened an output stream.
	assert.Nil(t, backend.LastOutputStream())
}
