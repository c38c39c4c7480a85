// Package pipeline implements PipelineCoordinator (spec.md §4.8): the glue
// between a CaptureEngine, a PlaybackEngine, the Profile table, and an
// external PacketRouter. It owns Profile selection, prebuffer sizing, the
// codec-tag wire framing, and the background (non-real-time) tasks that
// move packets between the engines and the transport.
package pipeline
