// Package vmm implements the virtual memory side of the kernel: a four-level page table
// hierarchy stored inside physical memory, a translation cache, and an address space
// that reads and writes through both.
package vmm

import "github.com/cockroachdb/errors"

var (
	// ErrFrameAllocationFailed is returned when a frame was needed, either for an intermediate
	// page table or for the page being mapped, and none could be supplied
	ErrFrameAllocationFailed = errors.New("frame allocation failed")
	// ErrPageAlreadyMapped is returned when mapping a page that already has a translation
	ErrPageAlreadyMapped = errors.New("page is already mapped")
	// ErrPageNotMapped is returned when unmapping a page that has no translation
	ErrPageNotMapped = errors.New("page is not mapped")
	// ErrParentEntryHugePage is returned when a page table walk for Map crosses a huge page entry
	ErrParentEntryHugePage = errors.New("parent page table entry maps a huge page")
	// ErrHugePageUnsupported is the panic value raised when translation encounters a huge page.
	// Every mapping made by this package uses 4096 byte pages.
	ErrHugePageUnsupported = errors.New("huge pages are not supported")
	// ErrNonCanonicalAddress is returned for virtual addresses whose upper bits are not a sign
	// extension of bit 47
	ErrNonCanonicalAddress = errors.New("virtual address is not canonical")
)
