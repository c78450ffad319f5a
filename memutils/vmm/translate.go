package vmm

import "github.com/cockroachdb/errors"

// Translate returns the physical address that corresponds to the supplied
// virtual address, or false if the virtual address does not correspond to a
// mapped physical address.
//
// Translate panics with ErrHugePageUnsupported if the walk reaches a huge page entry.
func (m *Mapper) Translate(virtAddr uintptr) (uintptr, bool) {
	m.lock.Acquire()
	defer m.lock.Release()

	pte, ok := m.finalEntry(virtAddr)
	if !ok {
		return 0, false
	}

	// Calculate the physical address by taking the physical frame address and
	// appending the offset from the virtual address
	return pte.Frame().Address() + PageOffset(virtAddr), true
}

// finalEntry returns the last level page table entry for virtAddr, or false if any
// level of the hierarchy is not present. It always walks the tables and never
// consults the TLB. The caller must hold the Mapper's lock.
func (m *Mapper) finalEntry(virtAddr uintptr) (PageTableEntry, bool) {
	if !IsCanonical(virtAddr) {
		return 0, false
	}

	var (
		entry PageTableEntry
		found bool
	)

	err := m.walk(virtAddr, func(pteLevel uint8, pte *PageTableEntry) bool {
		if !pte.HasFlags(FlagPresent) {
			return false
		}

		if pte.HasFlags(FlagHugePage) {
			panic(errors.Wrapf(ErrHugePageUnsupported, "translating 0x%x at level %d", virtAddr, pteLevel))
		}

		if pteLevel == pageLevels-1 {
			entry = *pte
			found = true
		}
		return true
	})
	if err != nil {
		// The hierarchy points outside of physical memory, which no code path in this
		// package can produce
		panic(errors.Wrapf(err, "page table walk for 0x%x", virtAddr))
	}

	return entry, found
}
