package heap_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/kheap/memutils"
	"github.com/vkngwrapper/kheap/memutils/heap"
)

type freeRegion struct {
	addr uintptr
	size uintptr
}

func freeRegions(list *heap.LinkedListAllocator) []freeRegion {
	var regions []freeRegion
	list.VisitFreeRegions(func(addr, size uintptr) bool {
		regions = append(regions, freeRegion{addr, size})
		return true
	})
	return regions
}

func newTestLinkedList(size uintptr) (*heap.LinkedListAllocator, *sliceMemory) {
	memory := newSliceMemory(testHeapStart, testHeapSize)
	list := heap.NewLinkedListAllocator(memory)
	list.Init(testHeapStart, size)
	return list, memory
}

func TestLinkedListInit(t *testing.T) {
	list, memory := newTestLinkedList(1024)

	require.Equal(t, 1, list.FreeRegionsCount())
	require.Equal(t, 1024, list.SumFreeSize())
	require.Equal(t, []freeRegion{{testHeapStart, 1024}}, freeRegions(list))

	// The node is stored in the region itself
	require.Equal(t, uint64(1024), memory.ReadWord(testHeapStart))
	require.Equal(t, uint64(0), memory.ReadWord(testHeapStart+8))
	require.NoError(t, list.Validate())
}

func TestLinkedListInitPanics(t *testing.T) {
	memory := newSliceMemory(testHeapStart, testHeapSize)

	require.Panics(t, func() {
		heap.NewLinkedListAllocator(memory).Init(testHeapStart+4, 1024)
	})
	require.Panics(t, func() {
		heap.NewLinkedListAllocator(memory).Init(testHeapStart, 8)
	})
}

func TestLinkedListAllocRoundsUp(t *testing.T) {
	list, _ := newTestLinkedList(1024)

	ptr := list.Alloc(memutils.Layout{Size: 1, Align: 1})
	require.Equal(t, testHeapStart, ptr)

	// One byte requests still take a whole node
	require.Equal(t, []freeRegion{{testHeapStart + 16, 1008}}, freeRegions(list))

	ptr = list.Alloc(memutils.Layout{Size: 20, Align: 4})
	require.Equal(t, testHeapStart+16, ptr)
	require.Equal(t, []freeRegion{{testHeapStart + 40, 984}}, freeRegions(list))
	require.Equal(t, 2, list.AllocationCount())
	require.NoError(t, list.Validate())
}

func TestLinkedListReuse(t *testing.T) {
	list, _ := newTestLinkedList(1024)
	layout := memutils.Layout{Size: 64, Align: 8}

	before := list.FreeRegionsCount()
	ptr := list.Alloc(layout)
	require.NotEqual(t, heap.Null, ptr)
	require.Equal(t, before, list.FreeRegionsCount())

	list.Dealloc(ptr, layout)
	require.Equal(t, before+1, list.FreeRegionsCount())

	// The freed block is at the front of the list and fits exactly
	again := list.Alloc(layout)
	require.Equal(t, ptr, again)
	require.Equal(t, before, list.FreeRegionsCount())
	require.NoError(t, list.Validate())
}

func TestLinkedListNoCoalescing(t *testing.T) {
	list, _ := newTestLinkedList(1024)
	layout := memutils.Layout{Size: 16, Align: 8}

	first := list.Alloc(layout)
	second := list.Alloc(layout)
	require.Equal(t, first+16, second)

	list.Dealloc(first, layout)
	list.Dealloc(second, layout)

	require.Equal(t, []freeRegion{
		{second, 16},
		{first, 16},
		{testHeapStart + 32, 992},
	}, freeRegions(list))

	// Two adjacent 16 byte regions cannot serve 32 bytes
	ptr := list.Alloc(memutils.Layout{Size: 32, Align: 8})
	require.Equal(t, testHeapStart+32, ptr)
	require.Equal(t, 3, list.FreeRegionsCount())
}

func TestLinkedListRejectsSmallRemainder(t *testing.T) {
	list, _ := newTestLinkedList(1024)

	// Leaves 8 bytes behind, which cannot hold a node
	require.Equal(t, heap.Null, list.Alloc(memutils.Layout{Size: 1016, Align: 8}))
	require.Equal(t, 0, list.AllocationCount())

	ptr := list.Alloc(memutils.Layout{Size: 1024, Align: 8})
	require.Equal(t, testHeapStart, ptr)
	require.Equal(t, 0, list.FreeRegionsCount())
	require.Equal(t, 0, list.SumFreeSize())

	require.Equal(t, heap.Null, list.Alloc(memutils.Layout{Size: 16, Align: 8}))
	require.NoError(t, list.Validate())
}

func TestLinkedListAlignmentPadding(t *testing.T) {
	list, _ := newTestLinkedList(1024)

	require.Equal(t, testHeapStart, list.Alloc(memutils.Layout{Size: 16, Align: 8}))

	ptr := list.Alloc(memutils.Layout{Size: 8, Align: 64})
	require.Equal(t, testHeapStart+64, ptr)

	// The 48 bytes skipped for alignment are not tracked
	require.Equal(t, []freeRegion{{testHeapStart + 128, 896}}, freeRegions(list))
	require.Equal(t, 896, list.SumFreeSize())
	require.NoError(t, list.Validate())
}

func TestLinkedListSkipsRegionsThatDoNotFit(t *testing.T) {
	list, _ := newTestLinkedList(1024)
	small := memutils.Layout{Size: 16, Align: 8}

	ptr := list.Alloc(small)
	list.Dealloc(ptr, small)

	// The 16 byte region at the front is too small, so the walk moves on
	large := list.Alloc(memutils.Layout{Size: 256, Align: 8})
	require.Equal(t, testHeapStart+16, large)

	require.Equal(t, []freeRegion{
		{testHeapStart + 272, 752},
		{testHeapStart, 16},
	}, freeRegions(list))
	require.NoError(t, list.Validate())
}

func TestLinkedListValidateDetectsCorruption(t *testing.T) {
	list, memory := newTestLinkedList(1024)
	layout := memutils.Layout{Size: 16, Align: 8}

	ptr := list.Alloc(layout)
	list.Dealloc(ptr, layout)
	require.NoError(t, list.Validate())

	// Link the last node back to the first
	memory.WriteWord(testHeapStart+16+8, uint64(ptr))
	require.Error(t, list.Validate())

	memory.WriteWord(testHeapStart+16+8, 0)
	require.NoError(t, list.Validate())

	// Grow the first node over the second
	memory.WriteWord(ptr, 32)
	require.Error(t, list.Validate())
}

func TestLinkedListStatistics(t *testing.T) {
	list, _ := newTestLinkedList(1024)
	layout := memutils.Layout{Size: 100, Align: 8}

	ptr := list.Alloc(layout)
	list.Alloc(layout)
	list.Dealloc(ptr, layout)

	var stats memutils.DetailedStatistics
	stats.Clear()
	list.AddDetailedStatistics(&stats)

	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			RegionBytes:     1024,
			AllocationCount: 1,
			AllocationBytes: 104,
			FreeBytes:       920,
		},
		FreeRangeCount:   2,
		FreeRangeSizeMin: 104,
		FreeRangeSizeMax: 816,
	}, stats)

	stats.Clear()
	require.Equal(t, math.MaxInt, stats.FreeRangeSizeMin)
}
