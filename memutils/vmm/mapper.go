package vmm

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/kheap/memutils/internal/utils"
	"github.com/vkngwrapper/kheap/memutils/pmm"
)

// Mapper manages the page table hierarchy rooted at a single top-level table.
// All tables are stored inside the physical memory the Mapper was created with.
//
// Every page table walk, and every access made through an AddressSpace built on this
// Mapper, holds the Mapper's lock. Code that touches the PhysicalMemory directly is not
// serialized with them.
type Mapper struct {
	lock utils.Spinlock
	ram  *pmm.PhysicalMemory
	root pmm.Frame
	tlb  *TLB
}

// NewMapper creates a Mapper for the hierarchy whose top-level table is stored in root.
// The contents of root are used as-is.
func NewMapper(ram *pmm.PhysicalMemory, root pmm.Frame) *Mapper {
	return &Mapper{
		ram:  ram,
		root: root,
		tlb:  NewTLB(DefaultTLBCapacity),
	}
}

// NewMapperWithFreshRoot allocates a frame from frames, clears it and creates a
// Mapper with an empty hierarchy rooted in it
func NewMapperWithFreshRoot(ram *pmm.PhysicalMemory, frames pmm.FrameAllocator) (*Mapper, error) {
	root, ok := frames.AllocateFrame()
	if !ok {
		return nil, errors.Wrap(ErrFrameAllocationFailed, "allocating the root page table")
	}

	if err := ram.ZeroFrame(root); err != nil {
		return nil, err
	}

	return NewMapper(ram, root), nil
}

// Root returns the frame holding the top-level page table
func (m *Mapper) Root() pmm.Frame {
	return m.root
}

// TLB returns the translation cache that Map and Unmap invalidate
func (m *Mapper) TLB() *TLB {
	return m.tlb
}

// PhysicalMemory returns the RAM that page tables are stored in
func (m *Mapper) PhysicalMemory() *pmm.PhysicalMemory {
	return m.ram
}

// Map establishes a mapping between a virtual page and a physical memory frame
// using this hierarchy. Calls to Map will use the supplied physical frame allocator
// to initialize missing page tables at each paging level supported by the MMU.
// Intermediate tables are created present and writable, and become user accessible
// if flags requests it.
//
// Map returns ErrPageAlreadyMapped if the page already has a translation,
// ErrFrameAllocationFailed if an intermediate table could not be allocated and
// ErrParentEntryHugePage if the walk crosses a huge page entry. On success the
// TLB entry for the page is flushed.
func (m *Mapper) Map(page Page, frame pmm.Frame, flags PageTableEntryFlag, frames pmm.FrameAllocator) error {
	virtAddr := page.Address()
	if !IsCanonical(virtAddr) {
		return errors.Wrapf(ErrNonCanonicalAddress, "mapping %s", page)
	}

	m.lock.Acquire()
	defer m.lock.Release()

	var mapErr error
	parentFlags := FlagPresent | FlagRW | (flags & FlagUserAccessible)

	err := m.walk(virtAddr, func(pteLevel uint8, pte *PageTableEntry) bool {
		// If we reached the last level all we need to do is to map the
		// frame in place and flush its TLB entry
		if pteLevel == pageLevels-1 {
			if pte.HasFlags(FlagPresent) {
				mapErr = errors.Wrapf(ErrPageAlreadyMapped, "%s is mapped to %s", page, pte.Frame())
				return false
			}

			*pte = 0
			pte.SetFrame(frame)
			pte.SetFlags(flags)
			return true
		}

		if pte.HasFlags(FlagPresent | FlagHugePage) {
			mapErr = errors.Wrapf(ErrParentEntryHugePage, "mapping %s at level %d", page, pteLevel)
			return false
		}

		// Next table does not yet exist; we need to allocate a
		// physical frame for it and clear its contents.
		if !pte.HasFlags(FlagPresent) {
			newTableFrame, ok := frames.AllocateFrame()
			if !ok {
				mapErr = errors.Wrapf(ErrFrameAllocationFailed, "allocating level %d page table for %s", pteLevel+1, page)
				return false
			}

			if mapErr = m.ram.ZeroFrame(newTableFrame); mapErr != nil {
				return false
			}

			*pte = 0
			pte.SetFrame(newTableFrame)
			pte.SetFlags(parentFlags)
			return true
		}

		pte.SetFlags(parentFlags)
		return true
	})
	if err != nil {
		return err
	}
	if mapErr != nil {
		return mapErr
	}

	m.tlb.Flush(page)
	return nil
}

// Unmap removes a mapping previously installed via a call to Map and returns the frame
// the page was mapped to. The frame is not returned to any allocator.
func (m *Mapper) Unmap(page Page) (pmm.Frame, error) {
	m.lock.Acquire()
	defer m.lock.Release()

	var (
		unmapErr error
		frame    = pmm.InvalidFrame
	)

	err := m.walk(page.Address(), func(pteLevel uint8, pte *PageTableEntry) bool {
		// Next table is not present; this is an invalid mapping
		if !pte.HasFlags(FlagPresent) {
			unmapErr = errors.Wrapf(ErrPageNotMapped, "unmapping %s", page)
			return false
		}

		// If we reached the last level all we need to do is to set the
		// page as non-present and flush its TLB entry
		if pteLevel == pageLevels-1 {
			frame = pte.Frame()
			*pte = 0
			return true
		}

		if pte.HasFlags(FlagHugePage) {
			unmapErr = errors.Wrapf(ErrParentEntryHugePage, "unmapping %s at level %d", page, pteLevel)
			return false
		}

		return true
	})
	if err != nil {
		return pmm.InvalidFrame, err
	}
	if unmapErr != nil {
		return pmm.InvalidFrame, unmapErr
	}

	m.tlb.Flush(page)
	return frame, nil
}

// MappedPages returns the number of pages with a present final-level entry, walking
// every table in the hierarchy
func (m *Mapper) MappedPages() (int, error) {
	m.lock.Acquire()
	defer m.lock.Release()

	return m.countMapped(m.root, 0)
}

func (m *Mapper) countMapped(table pmm.Frame, level uint8) (int, error) {
	entries, err := m.tableEntries(table)
	if err != nil {
		return 0, err
	}

	var count int
	for _, pte := range entries {
		if !pte.HasFlags(FlagPresent) {
			continue
		}

		if level == pageLevels-1 {
			count++
			continue
		}

		if pte.HasFlags(FlagHugePage) {
			panic(errors.Wrapf(ErrHugePageUnsupported, "level %d entry maps a huge page", level))
		}

		below, err := m.countMapped(pte.Frame(), level+1)
		if err != nil {
			return 0, err
		}
		count += below
	}

	return count, nil
}
