// Package heap contains the allocation strategies that manage the kernel heap region, and the
// lock that every consumer goes through to reach the active one.
//
// Strategies store their bookkeeping inside the free memory they manage. They never touch
// heap bytes directly: every read and write goes through a Memory, which in the kernel is
// the virtual address space the heap is mapped into.
package heap

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/kheap/memutils"
)

// Null is the address returned by an allocation that could not be satisfied
const Null uintptr = 0

// Memory provides word-sized access to the address space a heap region lives in.
// Implementations may panic if an address is not backed by memory, the same way the
// hardware would fault.
type Memory interface {
	ReadWord(addr uintptr) uint64
	WriteWord(addr uintptr, value uint64)
}

// Allocator is the interface consumed by every piece of kernel code that needs heap memory.
//
// Alloc returns an address aligned to layout.Align with layout.Size bytes available, or Null if
// the request cannot be satisfied. Dealloc must receive the exact address and layout of a live
// allocation made by the same Allocator. Passing anything else, including freeing an address
// twice, is undefined and is not detected.
type Allocator interface {
	Alloc(layout memutils.Layout) uintptr
	Dealloc(ptr uintptr, layout memutils.Layout)
}

// Strategy is an Allocator that manages a heap region by itself. Strategies are not safe for
// concurrent use; wrap them in a Locked.
type Strategy interface {
	Allocator

	// Init hands the region [start, start+size) to the strategy. Every byte of the region must
	// be readable and writable through the strategy's Memory before Init is called.
	Init(start, size uintptr)
	// Name identifies the strategy in logs and statistics
	Name() string

	// Validate performs internal consistency checks on the in-place bookkeeping structures.
	// These checks walk every free list and may be slow.
	Validate() error
	// AllocationCount returns the number of live allocations
	AllocationCount() int
	// SumFreeSize returns the number of bytes the strategy could still hand out
	SumFreeSize() int

	AddStatistics(stats *memutils.Statistics)
	AddDetailedStatistics(stats *memutils.DetailedStatistics)
	// HeapJsonData populates a json object with information about the heap region
	HeapJsonData(json jwriter.ObjectState)
}
