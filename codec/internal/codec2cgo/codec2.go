// Package codec2cgo is a thin cgo binding over the system libcodec2
// library, in the same shape as other cgo codec bindings in the Go
// ecosystem (a C handle wrapped in a small Go struct, encode/decode
// methods operating on caller-supplied buffers).
package codec2cgo

/*
#cgo LDFLAGS: -lcodec2
#include <codec2/codec2.h>
#include <stdlib.h>
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// Handle wraps a native CODEC2 encoder/decoder context for one library
// mode. Codec2 modes are cheap to create/destroy, so callers recreate a
// Handle on every mode switch rather than caching one per mode.
type Handle struct {
	ptr *C.struct_CODEC2
}

// Create constructs a Codec2 context for the given library mode (one of
// CODEC2_MODE_3200=0, _2400=1, _1600=2, _1400=3, _1300=4, _1200=5, _700C=8).
func Create(libraryMode int) (*Handle, error) {
	ptr := C.codec2_create(C.int(libraryMode))
	if ptr == nil {
		return nil, fmt.Errorf("codec2cgo: codec2_create failed for mode %d", libraryMode)
	}
	return &Handle{ptr: ptr}, nil
}

// Destroy releases the native context. Safe to call on a nil Handle or one
// already destroyed.
func (h *Handle) Destroy() {
	if h == nil || h.ptr == nil {
		return
	}
	C.codec2_destroy(h.ptr)
	h.ptr = nil
}

// SamplesPerFrame returns the number of PCM samples one sub-frame encodes.
func (h *Handle) SamplesPerFrame() int {
	return int(C.codec2_samples_per_frame(h.ptr))
}

// BytesPerFrame returns the number of encoded bytes one sub-frame produces,
// rounding the native bits-per-frame up to a whole byte.
func (h *Handle) BytesPerFrame() int {
	bits := int(C.codec2_bits_per_frame(h.ptr))
	return (bits + 7) / 8
}

// Encode encodes exactly SamplesPerFrame() samples from pcm into
// BytesPerFrame() bytes at the start of out. Caller-allocated buffers;
// no allocation inside.
func (h *Handle) Encode(pcm []int16, out []byte) {
	C.codec2_encode(
		h.ptr,
		(*C.uchar)(unsafe.Pointer(&out[0])),
		(*C.short)(unsafe.Pointer(&pcm[0])),
	)
}

// Decode decodes exactly BytesPerFrame() bytes from bits into
// SamplesPerFrame() samples at the start of out.
func (h *Handle) Decode(bits []byte, out []int16) {
	C.codec2_decode(
		h.ptr,
		(*C.short)(unsafe.Pointer(&out[0])),
		(*C.uchar)(unsafe.Pointer(&bits[0])),
	)
}
