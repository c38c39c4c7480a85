package ringbuffer

import (
	"fmt"
	"sync/atomic"
)

// cacheLinePad separates the producer's write index and the consumer's
// read index onto distinct cache lines so the two threads never cause
// false sharing on the hot path.
type cacheLinePad [64]byte

// PcmRingBuffer is a fixed-slot SPSC queue of equally-sized int16 PCM
// frames. One slot is always reserved so the full and empty states can be
// distinguished without a separate counter:
//
//	(write - read) mod maxFrames = availableFrames <= maxFrames-1
//
// Exactly one goroutine may call Write (the producer) and exactly one
// goroutine may call Read/AvailableFrames/Drain concurrently with it (the
// consumer). Reset must only be called while neither is active.
type PcmRingBuffer struct {
	slab         []int16
	frameSamples int
	maxFrames    int

	writeIdx uint32
	_        cacheLinePad
	readIdx  uint32
	_        cacheLinePad
}

// NewPcmRingBuffer allocates a ring buffer holding up to maxFrames-1 frames
// of frameSamples int16 each (one slot is reserved). maxFrames must be >= 2
// and frameSamples must be >= 1.
func NewPcmRingBuffer(maxFrames, frameSamples int) (*PcmRingBuffer, error) {
	if maxFrames < 2 {
		return nil, fmt.Errorf("ringbuffer: maxFrames must be >= 2, got %d", maxFrames)
	}
	if frameSamples < 1 {
		return nil, fmt.Errorf("ringbuffer: frameSamples must be >= 1, got %d", frameSamples)
	}
	return &PcmRingBuffer{
		slab:         make([]int16, maxFrames*frameSamples),
		frameSamples: frameSamples,
		maxFrames:    maxFrames,
	}, nil
}

// FrameSamples returns the fixed frame size this buffer was constructed with.
func (r *PcmRingBuffer) FrameSamples() int {
	return r.frameSamples
}

// Write copies exactly frameSamples int16 from src into the next free slot.
// Returns ErrSizeMismatch if len(src) != frameSamples, or ErrFull if the
// queue has no free slot (the caller is expected to drop-oldest and retry).
// Producer-only; must never be called from more than one goroutine.
func (r *PcmRingBuffer) Write(src []int16) error {
	if len(src) != r.frameSamples {
		return ErrSizeMismatch
	}

	w := atomic.LoadUint32(&r.writeIdx) // relaxed: only the producer mutates this
	read := atomic.LoadUint32(&r.readIdx)
	next := (w + 1) % uint32(r.maxFrames)
	if next == read {
		return ErrFull
	}

	off := int(w) * r.frameSamples
	copy(r.slab[off:off+r.frameSamples], src)

	atomic.StoreUint32(&r.writeIdx, next) // release: publishes the copied frame
	return nil
}

// Read copies one frame into dst, which must have length frameSamples.
// Returns ErrSizeMismatch on a wrong-sized dst, or ErrEmpty if no frame is
// queued. Consumer-only; must never be called from more than one goroutine.
func (r *PcmRingBuffer) Read(dst []int16) error {
	if len(dst) != r.frameSamples {
		return ErrSizeMismatch
	}

	read := atomic.LoadUint32(&r.readIdx) // relaxed: only the consumer mutates this
	w := atomic.LoadUint32(&r.writeIdx)   // acquire: pairs with the producer's release
	if read == w {
		return ErrEmpty
	}

	off := int(read) * r.frameSamples
	copy(dst, r.slab[off:off+r.frameSamples])

	atomic.StoreUint32(&r.readIdx, (read+1)%uint32(r.maxFrames))
	return nil
}

// AvailableFrames returns the number of queued frames. Callable from either
// side; may be momentarily stale by one slot under concurrent access.
func (r *PcmRingBuffer) AvailableFrames() int {
	w := atomic.LoadUint32(&r.writeIdx)
	read := atomic.LoadUint32(&r.readIdx)
	return int((w + uint32(r.maxFrames) - read) % uint32(r.maxFrames))
}

// Reset rewinds both indices to zero, discarding all queued frames. Only
// safe to call while no producer or consumer is active; calling it
// concurrently with Write/Read is undefined.
func (r *PcmRingBuffer) Reset() {
	atomic.StoreUint32(&r.writeIdx, 0)
	atomic.StoreUint32(&r.readIdx, 0)
}

// Drain advances the read index so that at most keep frames remain queued.
// Safe to call from the consumer, or while quiescent.
func (r *PcmRingBuffer) Drain(keep int) {
	if keep < 0 {
		keep = 0
	}
	avail := r.AvailableFrames()
	if avail <= keep {
		return
	}
	w := atomic.LoadUint32(&r.writeIdx)
	newRead := (w - uint32(keep) + uint32(r.maxFrames)) % uint32(r.maxFrames)
	atomic.StoreUint32(&r.readIdx, newRead)
}
