package pipeline

// PacketRouter is the external transport collaborator the core emits and
// accepts opaque packets through (spec.md §6). Key-value routing,
// security, and links are entirely outside this module's scope; the
// coordinator only calls this surface.
type PacketRouter interface {
	// SetPacketCallback installs fn to be invoked with each inbound raw
	// packet, tag byte included. Passing nil uninstalls any existing
	// callback.
	SetPacketCallback(fn func(data []byte))

	// SendPacket transmits one outbound tagged packet.
	SendPacket(data []byte) error

	// SendSignal passes an opaque control code (ringing, busy, ...)
	// through as a pass-through; the coordinator does not interpret it.
	SendSignal(code int) error
}
