package kernel

import "github.com/vkngwrapper/kheap/memutils"

const (
	// HeapStart is the virtual address the kernel heap is mapped at
	HeapStart uintptr = 0x_4444_4444_0000
	// HeapSize is the size in bytes of the kernel heap
	HeapSize uintptr = 100 * memutils.Kb
)

const (
	// defaultPhysicalMemorySize is the amount of RAM a Machine gets when CreateOptions leaves it blank
	defaultPhysicalMemorySize uintptr = 8 * memutils.Mb

	// lowMemorySize is the size of the region at the bottom of RAM that firmware reserves
	lowMemorySize = memutils.Mb
	// kernelImageSize is the size of the region above low memory that the loaded kernel occupies
	kernelImageSize = memutils.Mb
)
