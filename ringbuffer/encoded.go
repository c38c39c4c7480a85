package ringbuffer

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
)

// EncodedRingBuffer is a fixed-slot SPSC queue of variable-length,
// length-prefixed encoded packets, each at most maxBytesPerSlot. Slot
// layout is a little-endian int32 length prefix followed by the payload.
// Same one-slot-reserved full/empty discipline as PcmRingBuffer.
type EncodedRingBuffer struct {
	slab            []byte
	maxBytesPerSlot int
	slotSize        int
	maxSlots        int

	writeIdx uint32
	_        cacheLinePad
	readIdx  uint32
	_        cacheLinePad
}

// NewEncodedRingBuffer allocates a ring buffer of maxSlots slots, each able
// to hold up to maxBytesPerSlot bytes of payload. maxSlots must be >= 2.
func NewEncodedRingBuffer(maxSlots, maxBytesPerSlot int) (*EncodedRingBuffer, error) {
	if maxSlots < 2 {
		return nil, fmt.Errorf("ringbuffer: maxSlots must be >= 2, got %d", maxSlots)
	}
	if maxBytesPerSlot < 1 {
		return nil, fmt.Errorf("ringbuffer: maxBytesPerSlot must be >= 1, got %d", maxBytesPerSlot)
	}
	slotSize := 4 + maxBytesPerSlot
	return &EncodedRingBuffer{
		slab:            make([]byte, maxSlots*slotSize),
		maxBytesPerSlot: maxBytesPerSlot,
		slotSize:        slotSize,
		maxSlots:        maxSlots,
	}, nil
}

// Write stores one packet. Returns ErrTooLarge if len(data) exceeds
// maxBytesPerSlot, or ErrFull if no free slot is available. Producer-only.
func (r *EncodedRingBuffer) Write(data []byte) error {
	if len(data) > r.maxBytesPerSlot {
		return ErrTooLarge
	}

	w := atomic.LoadUint32(&r.writeIdx)
	read := atomic.LoadUint32(&r.readIdx)
	next := (w + 1) % uint32(r.maxSlots)
	if next == read {
		return ErrFull
	}

	off := int(w) * r.slotSize
	binary.LittleEndian.PutUint32(r.slab[off:off+4], uint32(len(data)))
	copy(r.slab[off+4:off+4+len(data)], data)

	atomic.StoreUint32(&r.writeIdx, next)
	return nil
}

// Read copies the next queued packet's payload into dst and returns its
// actual length. Returns ErrEmpty with a length of 0 if the queue is empty,
// or if dst is too small to hold the payload — in the latter case the slot
// is discarded (advanced past) rather than left to deadlock the producer,
// per the real-time-path lossy-over-blocking design. Consumer-only.
func (r *EncodedRingBuffer) Read(dst []byte) (int, error) {
	read := atomic.LoadUint32(&r.readIdx)
	w := atomic.LoadUint32(&r.writeIdx)
	if read == w {
		return 0, ErrEmpty
	}

	off := int(read) * r.slotSize
	length := int(binary.LittleEndian.Uint32(r.slab[off : off+4]))

	next := (read + 1) % uint32(r.maxSlots)
	if len(dst) < length {
		atomic.StoreUint32(&r.readIdx, next)
		return 0, ErrEmpty
	}

	copy(dst[:length], r.slab[off+4:off+4+length])
	atomic.StoreUint32(&r.readIdx, next)
	return length, nil
}

// AvailableSlots returns the number of queued packets. May be momentarily
// stale by one slot under concurrent access.
func (r *EncodedRingBuffer) AvailableSlots() int {
	w := atomic.LoadUint32(&r.writeIdx)
	read := atomic.LoadUint32(&r.readIdx)
	return int((w + uint32(r.maxSlots) - read) % uint32(r.maxSlots))
}

// Reset rewinds both indices to zero. Only safe while quiescent.
func (r *EncodedRingBuffer) Reset() {
	atomic.StoreUint32(&r.writeIdx, 0)
	atomic.StoreUint32(&r.readIdx, 0)
}
