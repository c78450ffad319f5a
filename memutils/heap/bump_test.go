package heap_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/kheap/memutils"
	"github.com/vkngwrapper/kheap/memutils/heap"
)

func TestBumpAllocatorBasic(t *testing.T) {
	bump := heap.NewBumpAllocator()
	bump.Init(0x10000, 1000)
	require.Equal(t, uintptr(0x10000), bump.Next())

	first := bump.Alloc(memutils.Layout{Size: 10, Align: 1})
	require.Equal(t, uintptr(0x10000), first)

	second := bump.Alloc(memutils.Layout{Size: 8, Align: 8})
	require.Equal(t, uintptr(0x10010), second)
	require.Equal(t, uintptr(0x10018), bump.Next())
	require.Equal(t, 2, bump.AllocationCount())
	require.Equal(t, 1000-0x18, bump.SumFreeSize())

	bump.Dealloc(first, memutils.Layout{Size: 10, Align: 1})
	require.Equal(t, uintptr(0x10018), bump.Next())
	require.NoError(t, bump.Validate())

	bump.Dealloc(second, memutils.Layout{Size: 8, Align: 8})
	require.Equal(t, uintptr(0x10000), bump.Next())
	require.Equal(t, 0, bump.AllocationCount())
	require.NoError(t, bump.Validate())
}

func TestBumpAllocatorResetReusesAddress(t *testing.T) {
	bump := heap.NewBumpAllocator()
	bump.Init(0x10000, 1000)

	layout := memutils.Layout{Size: 100, Align: 8}
	ptr := bump.Alloc(layout)
	require.NotEqual(t, heap.Null, ptr)

	bump.Dealloc(ptr, layout)
	require.Equal(t, uintptr(0x10000), bump.Next())

	smaller := bump.Alloc(memutils.Layout{Size: 50, Align: 8})
	require.Equal(t, ptr, smaller)
}

func TestBumpAllocatorLiveAllocationBlocksReset(t *testing.T) {
	bump := heap.NewBumpAllocator()
	bump.Init(0x10000, 64)

	layout := memutils.Layout{Size: 16, Align: 8}
	kept := bump.Alloc(layout)
	require.NotEqual(t, heap.Null, kept)

	for i := 0; i < 3; i++ {
		ptr := bump.Alloc(layout)
		require.NotEqual(t, heap.Null, ptr, "allocation %d", i)
		bump.Dealloc(ptr, layout)
	}

	// The freed memory is never handed out again while kept is live
	require.Equal(t, heap.Null, bump.Alloc(layout))
}

func TestBumpAllocatorFailures(t *testing.T) {
	bump := heap.NewBumpAllocator()
	bump.Init(0x10000, 1000)

	require.Equal(t, heap.Null, bump.Alloc(memutils.Layout{Size: 1001, Align: 1}))
	require.Equal(t, heap.Null, bump.Alloc(memutils.Layout{Size: ^uintptr(0), Align: 1}))
	require.Equal(t, uintptr(0x10000), bump.Next())
	require.Equal(t, 0, bump.AllocationCount())

	require.Equal(t, uintptr(0x10000), bump.Alloc(memutils.Layout{Size: 1000, Align: 1}))
	require.Equal(t, heap.Null, bump.Alloc(memutils.Layout{Size: 1, Align: 1}))
}

func TestBumpAllocatorValidate(t *testing.T) {
	bump := heap.NewBumpAllocator()
	bump.Init(0x10000, 1000)

	bump.Dealloc(0x10000, memutils.Layout{Size: 8, Align: 8})
	require.Error(t, bump.Validate())
}

func TestBumpAllocatorStatistics(t *testing.T) {
	bump := heap.NewBumpAllocator()
	bump.Init(0x10000, 1000)
	bump.Alloc(memutils.Layout{Size: 100, Align: 8})

	var stats memutils.DetailedStatistics
	stats.Clear()
	bump.AddDetailedStatistics(&stats)

	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			RegionBytes:     1000,
			AllocationCount: 1,
			AllocationBytes: 100,
			FreeBytes:       900,
		},
		FreeRangeCount:   1,
		FreeRangeSizeMin: 900,
		FreeRangeSizeMax: 900,
	}, stats)
}
