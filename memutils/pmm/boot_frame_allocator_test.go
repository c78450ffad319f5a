package pmm_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/kheap/memutils"
	"github.com/vkngwrapper/kheap/memutils/pmm"
	"golang.org/x/exp/slog"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testMemoryMap = pmm.MemoryMap{
	// region 0 extents get rounded to [0x1000, 0x3000) and provide 2 frames
	{Start: 0x0800, Length: 0x2900, Type: pmm.RegionUsable},
	// reserved regions are never handed out
	{Start: 0x4000, Length: 0x4000, Type: pmm.RegionReserved},
	// smaller than a frame after rounding
	{Start: 0x8100, Length: 0x0f00, Type: pmm.RegionUsable},
	// 3 frames, reported out of order
	{Start: 0x20000, Length: 0x3000, Type: pmm.RegionUsable},
	{Start: 0x10000, Length: 0x1000, Type: pmm.RegionKernel},
}

func TestBootFrameAllocatorSequence(t *testing.T) {
	alloc := pmm.NewBootFrameAllocator(discardLogger(), testMemoryMap)
	require.Equal(t, uint64(5), alloc.UsableFrames())

	expected := []uintptr{0x1000, 0x2000, 0x20000, 0x21000, 0x22000}
	for i, expAddr := range expected {
		frame, ok := alloc.AllocateFrame()
		require.True(t, ok, "allocation %d", i)
		require.True(t, frame.Valid())
		require.Equal(t, expAddr, frame.Address(), "allocation %d", i)
		require.Equal(t, uint64(i+1), alloc.AllocatedFrames())
	}

	frame, ok := alloc.AllocateFrame()
	require.False(t, ok)
	require.Equal(t, pmm.InvalidFrame, frame)
	require.False(t, frame.Valid())
	require.Equal(t, uint64(5), alloc.AllocatedFrames())

	// Exhaustion is permanent
	_, ok = alloc.AllocateFrame()
	require.False(t, ok)
}

func TestBootFrameAllocatorUnsortedRegions(t *testing.T) {
	memoryMap := pmm.MemoryMap{
		{Start: 0x100000, Length: 0x1000, Type: pmm.RegionUsable},
		{Start: 0x3000, Length: 0x1000, Type: pmm.RegionUsable},
	}
	alloc := pmm.NewBootFrameAllocator(discardLogger(), memoryMap)

	frame, ok := alloc.AllocateFrame()
	require.True(t, ok)
	require.Equal(t, pmm.FrameFromAddress(0x3000), frame)

	frame, ok = alloc.AllocateFrame()
	require.True(t, ok)
	require.Equal(t, pmm.FrameFromAddress(0x100000), frame)
}

func TestBootFrameAllocatorNoUsableMemory(t *testing.T) {
	alloc := pmm.NewBootFrameAllocator(discardLogger(), pmm.MemoryMap{
		{Start: 0, Length: uint64(memutils.Mb), Type: pmm.RegionReserved},
	})

	require.Equal(t, uint64(0), alloc.UsableFrames())
	_, ok := alloc.AllocateFrame()
	require.False(t, ok)
}

func TestVisitUsableFrames(t *testing.T) {
	alloc := pmm.NewBootFrameAllocator(discardLogger(), testMemoryMap)

	var visited []pmm.Frame
	alloc.VisitUsableFrames(func(frame pmm.Frame) bool {
		visited = append(visited, frame)
		return len(visited) < 3
	})

	require.Equal(t, []pmm.Frame{1, 2, 0x20}, visited)
	// Visiting does not consume frames
	require.Equal(t, uint64(0), alloc.AllocatedFrames())
}

func TestMemoryMapSummary(t *testing.T) {
	require.Equal(t, uint64(0x2900+0x0f00+0x3000), testMemoryMap.UsableBytes())
	require.Equal(t, uint64(0x23000), testMemoryMap.End())
	require.Equal(t, "kernel", pmm.RegionKernel.String())
	require.Equal(t, "RegionType(99)", pmm.RegionType(99).String())
}
