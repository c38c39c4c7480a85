package codec

import "fmt"

// CodecKind identifies which wire codec family a Profile negotiates.
type CodecKind int

const (
	// CodecKindOpus selects the Opus encoder/decoder.
	CodecKindOpus CodecKind = iota
	// CodecKindCodec2 selects the Codec2 encoder/decoder.
	CodecKindCodec2
)

// Codec tag bytes prefixed to every outbound transport packet (spec.md §6).
const (
	TagOpus   byte = 0x01
	TagCodec2 byte = 0x02
)

// EncodeParams names the construction-time parameters for the encode side
// of a Profile. For Opus, Bitrate/Complexity/Application apply; for
// Codec2, LibraryMode selects the native bitrate mode.
type EncodeParams struct {
	SampleRate  int
	Channels    int
	Bitrate     int // bits/sec; Opus only
	Complexity  int // 0-10; Opus only, 0 = library default
	Application OpusApplication
	LibraryMode int // Codec2 only
}

// DecodeParams names the decode-side parameters. Often equal to
// EncodeParams for a Profile, but the MQ, ULL and LL Opus profiles decode
// at a different (higher) rate than they encode at (spec.md §3).
type DecodeParams struct {
	SampleRate int
	Channels   int
	Bitrate    int // informational; Opus decoder rate implies this
}

// FrameSamples returns the interleaved sample count of one logical Frame at
// this rate/channel combination and frameTimeMs.
func FrameSamples(sampleRate, channels, frameTimeMs int) int {
	return sampleRate * frameTimeMs * channels / 1000
}

// OpusApplication mirrors gopus.Application without importing gopus into
// every caller of this package's Profile table.
type OpusApplication int

const (
	OpusApplicationVOIP OpusApplication = iota
	OpusApplicationAudio
	OpusApplicationRestrictedLowDelay
)

// Profile is an immutable, wire-negotiated configuration: the one-byte ID
// travels nowhere on the wire itself (peers agree on it out of band, e.g.
// via PacketRouter.SendSignal), but it is the index both sides use into
// this same table.
type Profile struct {
	ID           byte
	Name         string
	FrameTimeMs  int
	CodecKind    CodecKind
	EncodeParams EncodeParams
	DecodeParams DecodeParams
	TagByte      byte
}

// Profile IDs, spec.md §6.
const (
	ProfileULBW byte = 0x10
	ProfileVLBW byte = 0x20
	ProfileLBW  byte = 0x30
	ProfileMQ   byte = 0x40
	ProfileHQ   byte = 0x50
	ProfileSHQ  byte = 0x60
	ProfileULL  byte = 0x70
	ProfileLL   byte = 0x80
)

// DefaultProfileID is selected on an unprompted call (spec.md §6).
const DefaultProfileID = ProfileMQ

// profileTable is ordered per spec.md §6 and defines the "next profile"
// wraparound cycle.
var profileTable = []Profile{
	{
		ID: ProfileULBW, Name: "ULBW", FrameTimeMs: 400, CodecKind: CodecKindCodec2,
		EncodeParams: EncodeParams{SampleRate: 8000, Channels: 1, LibraryMode: 8},
		DecodeParams: DecodeParams{SampleRate: 8000, Channels: 1},
		TagByte:      TagCodec2,
	},
	{
		ID: ProfileVLBW, Name: "VLBW", FrameTimeMs: 320, CodecKind: CodecKindCodec2,
		EncodeParams: EncodeParams{SampleRate: 8000, Channels: 1, LibraryMode: 2},
		DecodeParams: DecodeParams{SampleRate: 8000, Channels: 1},
		TagByte:      TagCodec2,
	},
	{
		ID: ProfileLBW, Name: "LBW", FrameTimeMs: 200, CodecKind: CodecKindCodec2,
		EncodeParams: EncodeParams{SampleRate: 8000, Channels: 1, LibraryMode: 0},
		DecodeParams: DecodeParams{SampleRate: 8000, Channels: 1},
		TagByte:      TagCodec2,
	},
	{
		ID: ProfileMQ, Name: "MQ", FrameTimeMs: 60, CodecKind: CodecKindOpus,
		EncodeParams: EncodeParams{SampleRate: 24000, Channels: 1, Bitrate: 8000, Application: OpusApplicationVOIP},
		DecodeParams: DecodeParams{SampleRate: 48000, Channels: 1, Bitrate: 16000},
		TagByte:      TagOpus,
	},
	{
		ID: ProfileHQ, Name: "HQ", FrameTimeMs: 60, CodecKind: CodecKindOpus,
		EncodeParams: EncodeParams{SampleRate: 48000, Channels: 1, Bitrate: 16000, Application: OpusApplicationAudio},
		DecodeParams: DecodeParams{SampleRate: 48000, Channels: 1, Bitrate: 16000},
		TagByte:      TagOpus,
	},
	{
		ID: ProfileSHQ, Name: "SHQ", FrameTimeMs: 60, CodecKind: CodecKindOpus,
		EncodeParams: EncodeParams{SampleRate: 48000, Channels: 2, Bitrate: 32000, Application: OpusApplicationAudio},
		DecodeParams: DecodeParams{SampleRate: 48000, Channels: 2, Bitrate: 32000},
		TagByte:      TagOpus,
	},
	{
		ID: ProfileULL, Name: "ULL", FrameTimeMs: 10, CodecKind: CodecKindOpus,
		EncodeParams: EncodeParams{SampleRate: 24000, Channels: 1, Bitrate: 8000, Application: OpusApplicationRestrictedLowDelay},
		DecodeParams: DecodeParams{SampleRate: 48000, Channels: 1, Bitrate: 16000},
		TagByte:      TagOpus,
	},
	{
		ID: ProfileLL, Name: "LL", FrameTimeMs: 20, CodecKind: CodecKindOpus,
		EncodeParams: EncodeParams{SampleRate: 24000, Channels: 1, Bitrate: 8000, Application: OpusApplicationRestrictedLowDelay},
		DecodeParams: DecodeParams{SampleRate: 48000, Channels: 1, Bitrate: 16000},
		TagByte:      TagOpus,
	},
}

// ProfileByID looks up a Profile by its wire ID. ok is false for any ID not
// in the table.
func ProfileByID(id byte) (Profile, bool) {
	for _, p := range profileTable {
		if p.ID == id {
			return p, true
		}
	}
	return Profile{}, false
}

// DefaultProfile returns the MQ profile, used on an unprompted call.
func DefaultProfile() Profile {
	p, _ := ProfileByID(DefaultProfileID)
	return p
}

// NextProfile returns the profile that follows p in the wraparound cycle
// defined by the table order in spec.md §6.
func NextProfile(p Profile) Profile {
	for i, cur := range profileTable {
		if cur.ID == p.ID {
			return profileTable[(i+1)%len(profileTable)]
		}
	}
	return DefaultProfile()
}

// EncodeFrameSamples returns the interleaved Frame size for p's encode side.
func (p Profile) EncodeFrameSamples() int {
	return FrameSamples(p.EncodeParams.SampleRate, p.EncodeParams.Channels, p.FrameTimeMs)
}

// DecodeFrameSamples returns the interleaved Frame size for p's decode side.
func (p Profile) DecodeFrameSamples() int {
	return FrameSamples(p.DecodeParams.SampleRate, p.DecodeParams.Channels, p.FrameTimeMs)
}

// String implements fmt.Stringer for logging.
func (p Profile) String() string {
	return fmt.Sprintf("%s(0x%02x)", p.Name, p.ID)
}
