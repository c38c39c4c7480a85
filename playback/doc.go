// Package playback implements PlaybackEngine (spec.md §4.7): the real-time
// playback side of the duplex audio engine. It owns a host output stream,
// a PcmRingBuffer, an optional embedded decoder, a callback-side
// partial-frame buffer for hardware bursts smaller than a logical Frame,
// and Opus packet-loss-concealment fallback on underrun.
package playback
