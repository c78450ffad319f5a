package kernel

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/kheap/memutils"
	"github.com/vkngwrapper/kheap/memutils/pmm"
	"github.com/vkngwrapper/kheap/memutils/vmm"
)

// CreateOptions contains optional settings when creating a Machine. It is valid to leave
// all the fields blank.
type CreateOptions struct {
	// HeapStart is the virtual address to map the heap at. It must be page aligned and
	// canonical. HeapStart is used when it is 0.
	HeapStart uintptr
	// HeapSize is the size of the heap in bytes. HeapSize is used when it is 0.
	HeapSize uintptr

	// PhysicalMemorySize is the amount of RAM the machine has. It is rounded up to a whole
	// number of frames. 8Mb is used when it is 0.
	PhysicalMemorySize uintptr
	// MemoryMap can be left empty. If it is provided, it replaces the firmware memory map,
	// which reserves the first megabyte of RAM and the kernel image above it, and marks the
	// rest usable. Every region must lie within PhysicalMemorySize.
	MemoryMap pmm.MemoryMap
}

func (o CreateOptions) resolve() (CreateOptions, error) {
	if o.HeapStart == 0 {
		o.HeapStart = HeapStart
	}
	if o.HeapSize == 0 {
		o.HeapSize = HeapSize
	}
	if o.PhysicalMemorySize == 0 {
		o.PhysicalMemorySize = defaultPhysicalMemorySize
	}
	o.PhysicalMemorySize = memutils.AlignUp(o.PhysicalMemorySize, memutils.PageSize)

	if !memutils.IsAligned(o.HeapStart, memutils.PageSize) {
		return o, errors.Newf("kernel.CreateOptions.HeapStart 0x%x is not page aligned", o.HeapStart)
	}

	end, ok := memutils.AddChecked(o.HeapStart, o.HeapSize)
	if !ok || !vmm.IsCanonical(o.HeapStart) || !vmm.IsCanonical(end-1) {
		return o, errors.Wrapf(vmm.ErrNonCanonicalAddress, "heap [0x%x, 0x%x)", o.HeapStart, end)
	}

	if len(o.MemoryMap) == 0 {
		if o.PhysicalMemorySize <= lowMemorySize+kernelImageSize {
			return o, errors.Newf("kernel.CreateOptions.PhysicalMemorySize %d leaves no usable memory", o.PhysicalMemorySize)
		}
		o.MemoryMap = defaultMemoryMap(o.PhysicalMemorySize)
	} else if o.MemoryMap.End() > uint64(o.PhysicalMemorySize) {
		return o, errors.Newf("kernel.CreateOptions.MemoryMap ends at 0x%x, past the end of RAM at 0x%x",
			o.MemoryMap.End(), o.PhysicalMemorySize)
	}

	return o, nil
}

func defaultMemoryMap(ramSize uintptr) pmm.MemoryMap {
	return pmm.MemoryMap{
		{Start: 0, Length: uint64(lowMemorySize), Type: pmm.RegionReserved},
		{Start: uint64(lowMemorySize), Length: uint64(kernelImageSize), Type: pmm.RegionKernel},
		{
			Start:  uint64(lowMemorySize + kernelImageSize),
			Length: uint64(ramSize - lowMemorySize - kernelImageSize),
			Type:   pmm.RegionUsable,
		},
	}
}
