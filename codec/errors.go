// Package codec implements the unified encode/decode façade over the two
// wire codecs (Opus via layeh.com/gopus, Codec2 via a cgo binding to
// libcodec2), the Profile table, and the Codec2 wire-header <-> library
// mode bijection.
package codec

import "errors"

// Sentinel errors for codec operations, classified per spec.md §7.
var (
	// ErrBadConfig indicates an out-of-range construction argument or a
	// native library failure while creating an encoder/decoder.
	ErrBadConfig = errors.New("codec: bad configuration")

	// ErrNotConfigured indicates Encode/Decode/DecodePLC was called before
	// CreateOpus/CreateCodec2.
	ErrNotConfigured = errors.New("codec: not configured")

	// ErrDecodeBad indicates a decode call failed or produced a result
	// that does not fit the caller's buffer; the packet should be dropped.
	ErrDecodeBad = errors.New("codec: decode failed")

	// ErrEncodeBad indicates an encode call failed or would overflow the
	// caller's output buffer; the frame should be dropped.
	ErrEncodeBad = errors.New("codec: encode failed")

	// ErrPLCUnsupported indicates DecodePLC was called on a Codec2-backed
	// Codec; Codec2 has no PLC path here.
	ErrPLCUnsupported = errors.New("codec: PLC not supported by active codec")

	// ErrUnknownModeHeader indicates a Codec2 packet's wire mode header
	// byte has no entry in the bijection table.
	ErrUnknownModeHeader = errors.New("codec: unknown codec2 mode header")
)
