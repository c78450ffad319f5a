package vmm

import (
	"fmt"

	"github.com/vkngwrapper/kheap/memutils"
)

// Page describes a virtual memory page index.
type Page uintptr

// Address returns the virtual memory address pointed to by this Page.
func (p Page) Address() uintptr {
	return uintptr(p) << memutils.PageShift
}

func (p Page) String() string {
	return fmt.Sprintf("Page(0x%x)", p.Address())
}

// PageFromAddress returns a Page that corresponds to the given virtual
// address. This function can handle both page-aligned and not aligned virtual
// addresses. in the latter case, the input address will be rounded down to the
// page that contains it.
func PageFromAddress(virtAddr uintptr) Page {
	return Page((virtAddr &^ (memutils.PageSize - 1)) >> memutils.PageShift)
}

// PageOffset returns the offset within the page specified by a virtual
// address.
func PageOffset(virtAddr uintptr) uintptr {
	return virtAddr & ((1 << pageLevelShifts[pageLevels-1]) - 1)
}

// PageRange returns the first page and the number of pages covering the virtual
// range [start, start+size). An empty range has no pages.
func PageRange(start, size uintptr) (Page, int) {
	if size == 0 {
		return PageFromAddress(start), 0
	}

	first := PageFromAddress(start)
	last := PageFromAddress(start + size - 1)
	return first, int(last-first) + 1
}

// IsCanonical returns true if the upper bits of virtAddr are a sign extension of bit 47
func IsCanonical(virtAddr uintptr) bool {
	return virtAddr <= maxCanonicalLow || virtAddr >= minCanonicalHigh
}

func tableIndex(virtAddr uintptr, level uint8) uintptr {
	return (virtAddr >> pageLevelShifts[level]) & ((1 << pageLevelBits[level]) - 1)
}
