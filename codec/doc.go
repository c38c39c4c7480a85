// Package codec implements the unified encode/decode façade over the two
// wire codecs the engine supports — a CELT/SILK-family voice codec ("Opus",
// via layeh.com/gopus) and a narrow-band parametric codec ("Codec2", via a
// cgo binding to the system libcodec2) — along with the negotiated Profile
// table and the Codec2 wire-header <-> library-mode bijection.
//
// Callers never construct opusState/codec2State directly; Codec.CreateOpus
// and Codec.CreateCodec2 own the active state and guarantee any prior state
// is torn down first, matching the teardown order the original C++ source
// relies on.
package codec
