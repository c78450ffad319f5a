package vmm

import (
	"strings"

	"github.com/vkngwrapper/kheap/memutils/pmm"
)

// PageTableEntryFlag describes a flag that can be applied to a page table entry.
type PageTableEntryFlag uintptr

var pageTableEntryFlagMapping = []struct {
	flag PageTableEntryFlag
	name string
}{
	{FlagPresent, "Present"},
	{FlagRW, "RW"},
	{FlagUserAccessible, "UserAccessible"},
	{FlagWriteThroughCaching, "WriteThroughCaching"},
	{FlagDoNotCache, "DoNotCache"},
	{FlagAccessed, "Accessed"},
	{FlagDirty, "Dirty"},
	{FlagHugePage, "HugePage"},
	{FlagGlobal, "Global"},
	{FlagNoExecute, "NoExecute"},
}

func (f PageTableEntryFlag) String() string {
	var names []string
	for _, mapping := range pageTableEntryFlagMapping {
		if f&mapping.flag != 0 {
			names = append(names, mapping.name)
		}
	}

	if len(names) == 0 {
		return "None"
	}
	return strings.Join(names, "|")
}

// PageTableEntry describes a page table entry. These entries encode
// a physical frame address and a set of flags. The actual format
// of the entry and flags is architecture-dependent.
type PageTableEntry uintptr

// HasFlags returns true if this entry has all the input flags set.
func (pte PageTableEntry) HasFlags(flags PageTableEntryFlag) bool {
	return (uintptr(pte) & uintptr(flags)) == uintptr(flags)
}

// HasAnyFlag returns true if this entry has at least one of the input flags set.
func (pte PageTableEntry) HasAnyFlag(flags PageTableEntryFlag) bool {
	return (uintptr(pte) & uintptr(flags)) != 0
}

// Flags returns the flag bits of this entry
func (pte PageTableEntry) Flags() PageTableEntryFlag {
	return PageTableEntryFlag(uintptr(pte) &^ ptePhysPageMask)
}

// IsUnused returns true if no frame or flag has ever been written to this entry
func (pte PageTableEntry) IsUnused() bool {
	return pte == 0
}

// SetFlags sets the input list of flags to the page table entry.
func (pte *PageTableEntry) SetFlags(flags PageTableEntryFlag) {
	*pte = (PageTableEntry)(uintptr(*pte) | uintptr(flags))
}

// ClearFlags unsets the input list of flags from the page table entry.
func (pte *PageTableEntry) ClearFlags(flags PageTableEntryFlag) {
	*pte = (PageTableEntry)(uintptr(*pte) &^ uintptr(flags))
}

// Frame returns the physical page frame that this page table entry points to.
func (pte PageTableEntry) Frame() pmm.Frame {
	return pmm.FrameFromAddress(uintptr(pte) & ptePhysPageMask)
}

// SetFrame updates the page table entry to point the the given physical frame .
func (pte *PageTableEntry) SetFrame(frame pmm.Frame) {
	*pte = (PageTableEntry)((uintptr(*pte) &^ ptePhysPageMask) | frame.Address())
}
