// Package hostaudio defines the HostAudioBackend capability the core
// consumes (spec.md §6) — the platform-supplied real-time audio primitive
// for opening an exclusive, low-latency input or output stream and
// receiving its data callback — plus two implementations: PortAudioBackend,
// built on github.com/gordonklaus/portaudio, and a software FakeBackend
// used by capture/playback/pipeline tests to drive the real-time callback
// deterministically without real hardware.
//
// Microphone permission and device enumeration are explicitly out of scope
// (spec.md §1); this package only opens streams against whatever default
// device the backend resolves.
package hostaudio
