package memutils

const (
	// PointerShift is equal to log2(WordSize). Page table entries and in-place
	// free list links are all one word wide.
	PointerShift = 3

	// WordSize is the size in bytes of a machine word
	WordSize uintptr = 1 << PointerShift

	// PageShift is equal to log2(PageSize). This constant is used when
	// we need to convert an address to a page or frame number (shift right by PageShift)
	// and vice-versa.
	PageShift = 12

	// PageSize defines the size in bytes of both virtual pages and physical frames.
	PageSize uintptr = 1 << PageShift
)

// Common memory block sizes.
const (
	Byte uintptr = 1
	Kb           = 1024 * Byte
	Mb           = 1024 * Kb
	Gb           = 1024 * Mb
)
