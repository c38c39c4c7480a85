package codec

// Codec2 wire-header <-> library-mode bijection (spec.md §6). Both peers
// on a call MUST agree on this table; it is not negotiated. Library modes
// correspond to libcodec2's CODEC2_MODE_* constants: 3200=0, 2400=1,
// 1600=2, 1400=3, 1300=4, 1200=5, 700C=8.
var headerToLibraryMode = map[byte]int{
	0x00: 8, // 700C
	0x01: 5, // 1200
	0x02: 4, // 1300
	0x03: 3, // 1400
	0x04: 2, // 1600
	0x05: 1, // 2400
	0x06: 0, // 3200
}

var libraryModeToHeader = map[int]byte{
	8: 0x00,
	5: 0x01,
	4: 0x02,
	3: 0x03,
	2: 0x04,
	1: 0x05,
	0: 0x06,
}

// Codec2HeaderToLibraryMode maps a wire mode header byte to the libcodec2
// library mode. ok is false for any header outside {0x00..0x06}.
func Codec2HeaderToLibraryMode(header byte) (mode int, ok bool) {
	mode, ok = headerToLibraryMode[header]
	return mode, ok
}

// Codec2LibraryModeToHeader maps a libcodec2 library mode to its wire mode
// header byte. ok is false for any mode outside {0, 1, 2, 3, 4, 5, 8}.
func Codec2LibraryModeToHeader(mode int) (header byte, ok bool) {
	header, ok = libraryModeToHeader[mode]
	return header, ok
}
