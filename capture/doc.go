// Package capture implements CaptureEngine (spec.md §4.6): the real-time
// capture side of the duplex audio engine. It owns a host input stream, a
// variable-burst-to-fixed-frame accumulation buffer, an optional voice
// filter chain, and either a PcmRingBuffer or an EncodedRingBuffer plus an
// embedded encoder, feeding whichever ring a non-real-time consumer task
// drains toward the transport.
package capture
