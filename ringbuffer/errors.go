// Package ringbuffer implements the two single-producer/single-consumer
// queues the capture and playback engines use to move audio data between
// the real-time callback threads and the non-real-time control/transport
// tasks: a fixed-frame PCM queue and a length-prefixed encoded-packet queue.
//
// Both queues are lock-free: one goroutine is the exclusive producer, one
// is the exclusive consumer, and correctness depends on that discipline
// never being violated (see each type's doc comment).
package ringbuffer

import "errors"

// Sentinel errors for ring buffer operations.
var (
	// ErrSizeMismatch indicates a PcmRingBuffer write/read was called with
	// a slice whose length does not equal frameSamples.
	ErrSizeMismatch = errors.New("ringbuffer: frame size mismatch")

	// ErrFull indicates the producer observed the queue full at write time.
	// The caller is expected to drop-oldest and retry, per spec.
	ErrFull = errors.New("ringbuffer: full")

	// ErrEmpty indicates the consumer observed the queue empty at read time.
	ErrEmpty = errors.New("ringbuffer: empty")

	// ErrTooLarge indicates an EncodedRingBuffer write payload exceeds
	// maxBytesPerSlot.
	ErrTooLarge = errors.New("ringbuffer: payload exceeds max bytes per slot")
)
