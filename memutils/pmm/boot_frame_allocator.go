package pmm

import (
	"context"

	"github.com/vkngwrapper/kheap/memutils"
	"golang.org/x/exp/slog"
)

// BootFrameAllocator implements a rudimentary physical frame allocator which is
// used to bootstrap the kernel.
//
// The allocator uses the memory map provided by the firmware to find usable
// regions and returns the next available frame. Each usable region is expanded
// into its sequence of whole frames and the allocator hands out the Nth frame of
// the concatenated sequence on the Nth successful call.
//
// It is not possible to free allocated frames. This keeps the allocator trivial
// and means frames mapped into the heap are never reclaimed.
type BootFrameAllocator struct {
	logger  *slog.Logger
	regions []MemoryRegion

	// next is the index of the next frame to hand out, counted across all
	// usable regions in ascending address order
	next uint64
}

var _ FrameAllocator = &BootFrameAllocator{}

// NewBootFrameAllocator creates a BootFrameAllocator that supplies the usable frames
// described by memoryMap
func NewBootFrameAllocator(logger *slog.Logger, memoryMap MemoryMap) *BootFrameAllocator {
	alloc := &BootFrameAllocator{
		logger:  logger,
		regions: memoryMap.UsableRegions(),
	}

	alloc.logMemoryMap(memoryMap)
	return alloc
}

// AllocateFrame reserves the next available frame. It returns InvalidFrame and false
// once every usable frame has been handed out.
func (a *BootFrameAllocator) AllocateFrame() (Frame, bool) {
	frame, ok := a.nthUsableFrame(a.next)
	if !ok {
		return InvalidFrame, false
	}

	a.next++
	return frame, true
}

// AllocatedFrames returns the number of frames handed out so far
func (a *BootFrameAllocator) AllocatedFrames() uint64 {
	return a.next
}

// UsableFrames returns the total number of frames this allocator can ever hand out
func (a *BootFrameAllocator) UsableFrames() uint64 {
	var total uint64
	for _, region := range a.regions {
		_, count := region.frameRange()
		total += count
	}
	return total
}

// VisitUsableFrames calls visitor with every usable frame in allocation order, whether
// or not it has already been handed out. The walk stops early if visitor returns false.
func (a *BootFrameAllocator) VisitUsableFrames(visitor func(frame Frame) bool) {
	for _, region := range a.regions {
		first, count := region.frameRange()
		for i := uint64(0); i < count; i++ {
			if !visitor(first + Frame(i)) {
				return
			}
		}
	}
}

func (a *BootFrameAllocator) nthUsableFrame(n uint64) (Frame, bool) {
	for _, region := range a.regions {
		first, count := region.frameRange()
		if n < count {
			return first + Frame(n), true
		}
		n -= count
	}

	return InvalidFrame, false
}

func (a *BootFrameAllocator) logMemoryMap(memoryMap MemoryMap) {
	ctx := context.Background()
	if !a.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}

	a.logger.LogAttrs(ctx, slog.LevelDebug, "[boot_frame_alloc] system memory map")
	for _, region := range memoryMap {
		a.logger.LogAttrs(ctx, slog.LevelDebug, "    region",
			slog.Uint64("start", region.Start),
			slog.Uint64("end", region.End()),
			slog.Uint64("size", region.Length),
			slog.String("type", region.Type.String()),
		)
	}
	a.logger.LogAttrs(ctx, slog.LevelDebug, "[boot_frame_alloc] available memory",
		slog.Uint64("kb", memoryMap.UsableBytes()/uint64(memutils.Kb)),
		slog.Uint64("frames", a.UsableFrames()),
	)
}
