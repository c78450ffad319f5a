package vmm

import (
	"github.com/vkngwrapper/kheap/memutils"
	"github.com/vkngwrapper/kheap/memutils/pmm"
)

// pageTableWalker is a function that can be passed to the walk method. The
// function receives the current page level and a copy of the page table entry
// that corresponds to the walked address at that level. Changes made through
// the pointer are written back to the page table. If the function returns false,
// then the page walk is aborted.
type pageTableWalker func(pteLevel uint8, pte *PageTableEntry) bool

// walk performs a page table walk for the given virtual address, starting from the
// root table. It calls the supplied walkFn with the page table entry that
// corresponds to each page table level and then descends into the table that the
// entry points to. An error is only returned if a table lies outside of physical memory.
func (m *Mapper) walk(virtAddr uintptr, walkFn pageTableWalker) error {
	tableFrame := m.root

	for level := uint8(0); level < pageLevels; level++ {
		// Extract the bits from virtual address that correspond to the
		// index in this level's page table
		entryAddr := tableFrame.Address() + (tableIndex(virtAddr, level) << memutils.PointerShift)

		raw, err := m.ram.ReadWord(entryAddr)
		if err != nil {
			return err
		}

		pte := PageTableEntry(raw)
		ok := walkFn(level, &pte)

		if uint64(pte) != raw {
			if err = m.ram.WriteWord(entryAddr, uint64(pte)); err != nil {
				return err
			}
		}

		if !ok {
			return nil
		}

		tableFrame = pte.Frame()
	}

	return nil
}

// tableEntries returns every entry of the table stored in frame
func (m *Mapper) tableEntries(frame pmm.Frame) ([entriesPerTable]PageTableEntry, error) {
	var entries [entriesPerTable]PageTableEntry

	for index := range entries {
		raw, err := m.ram.ReadWord(frame.Address() + (uintptr(index) << memutils.PointerShift))
		if err != nil {
			return entries, err
		}
		entries[index] = PageTableEntry(raw)
	}

	return entries, nil
}
