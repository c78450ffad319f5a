package pmm

import (
	"fmt"
	"sort"

	"github.com/vkngwrapper/kheap/memutils"
)

// RegionType describes how a region of physical memory reported by the firmware may be used
type RegionType uint32

const (
	// RegionUsable is free memory that can be handed out by a frame allocator
	RegionUsable RegionType = iota + 1
	// RegionReserved is memory reserved by the firmware or hardware
	RegionReserved
	// RegionACPIReclaimable holds ACPI tables; it can be reclaimed once the tables have been read
	RegionACPIReclaimable
	// RegionACPINVS must be preserved across sleep states
	RegionACPINVS
	// RegionBadMemory was reported as defective
	RegionBadMemory
	// RegionBootloader is memory in use by the bootloader, such as early page tables
	RegionBootloader
	// RegionKernel holds the loaded kernel image
	RegionKernel
)

var regionTypeMapping = map[RegionType]string{
	RegionUsable:          "usable",
	RegionReserved:        "reserved",
	RegionACPIReclaimable: "ACPI (reclaimable)",
	RegionACPINVS:         "ACPI NVS",
	RegionBadMemory:       "bad memory",
	RegionBootloader:      "bootloader",
	RegionKernel:          "kernel",
}

func (t RegionType) String() string {
	str, ok := regionTypeMapping[t]
	if !ok {
		return fmt.Sprintf("RegionType(%d)", uint32(t))
	}
	return str
}

// MemoryRegion is a single entry of the memory map provided by the firmware
type MemoryRegion struct {
	Start  uint64
	Length uint64
	Type   RegionType
}

// End returns the first physical address after this region
func (r MemoryRegion) End() uint64 {
	return r.Start + r.Length
}

// frameRange returns the first frame completely inside this region and how many
// whole frames the region holds. Reported addresses may not be frame-aligned, so the
// start is rounded up and the end rounded down.
func (r MemoryRegion) frameRange() (Frame, uint64) {
	pageSizeMinus1 := uint64(memutils.PageSize - 1)
	startAddr := (r.Start + pageSizeMinus1) &^ pageSizeMinus1
	endAddr := r.End() &^ pageSizeMinus1

	if endAddr <= startAddr {
		return InvalidFrame, 0
	}

	return Frame(startAddr >> memutils.PageShift), (endAddr - startAddr) >> memutils.PageShift
}

// MemoryMap describes the physical address space of the machine
type MemoryMap []MemoryRegion

// UsableRegions returns the usable regions of the memory map in ascending address order
func (m MemoryMap) UsableRegions() []MemoryRegion {
	var usable []MemoryRegion
	for _, region := range m {
		if region.Type == RegionUsable {
			usable = append(usable, region)
		}
	}

	sort.Slice(usable, func(i, j int) bool {
		return usable[i].Start < usable[j].Start
	})
	return usable
}

// UsableBytes returns the total size in bytes of all usable regions
func (m MemoryMap) UsableBytes() uint64 {
	var total uint64
	for _, region := range m {
		if region.Type == RegionUsable {
			total += region.Length
		}
	}
	return total
}

// End returns the highest physical address described by the memory map
func (m MemoryMap) End() uint64 {
	var end uint64
	for _, region := range m {
		if region.End() > end {
			end = region.End()
		}
	}
	return end
}
