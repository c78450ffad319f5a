package kernel

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/kheap/memutils/pmm"
	"github.com/vkngwrapper/kheap/memutils/vmm"
	"golang.org/x/exp/slog"
)

// ErrHeapAlreadyInitialized is returned by InitHeap when the heap has already been set up
var ErrHeapAlreadyInitialized = errors.New("kernel heap is already initialized")

// PageMapper installs page translations. *vmm.Mapper is the implementation used when booting.
type PageMapper interface {
	Map(page vmm.Page, frame pmm.Frame, flags vmm.PageTableEntryFlag, frames pmm.FrameAllocator) error
}

// HeapInitializer receives the heap region once every page of it is backed. *heap.Locked is the
// implementation used when booting.
type HeapInitializer interface {
	Init(start, size uintptr) error
	Initialized() bool
}

// InitHeap backs the region [start, start+size) with physical memory, then passes the region
// to heap. Every page is mapped present and writable, in ascending order, using a fresh frame
// from frames. It must be called exactly once, before any allocation is made.
//
// If any page cannot be backed, InitHeap fails immediately. Pages mapped before the failure
// stay mapped and their frames are not returned.
func InitHeap(logger *slog.Logger, mapper PageMapper, frames pmm.FrameAllocator, heap HeapInitializer, start, size uintptr) error {
	if heap.Initialized() {
		return ErrHeapAlreadyInitialized
	}

	err := mapHeap(logger, mapper, frames, start, size)
	if err == nil {
		err = heap.Init(start, size)
	}

	if err != nil {
		logger.LogAttrs(context.Background(), slog.LevelError, "heap initialization failed",
			slog.String("start", fmt.Sprintf("0x%x", start)),
			slog.Int("size", int(size)),
			slog.Any("error", err))
		return err
	}

	logger.LogAttrs(context.Background(), slog.LevelInfo, "heap initialized",
		slog.String("start", fmt.Sprintf("0x%x", start)),
		slog.Int("size", int(size)))
	return nil
}

func mapHeap(logger *slog.Logger, mapper PageMapper, frames pmm.FrameAllocator, start, size uintptr) error {
	firstPage, pageCount := vmm.PageRange(start, size)
	flags := vmm.FlagPresent | vmm.FlagRW

	for i := 0; i < pageCount; i++ {
		page := firstPage + vmm.Page(i)

		frame, ok := frames.AllocateFrame()
		if !ok {
			return errors.Wrapf(vmm.ErrFrameAllocationFailed, "backing heap %s (%d of %d)", page, i+1, pageCount)
		}

		if err := mapper.Map(page, frame, flags, frames); err != nil {
			return errors.Wrapf(err, "mapping heap %s to %s", page, frame)
		}

		logger.LogAttrs(context.Background(), slog.LevelDebug, "mapped heap page",
			slog.String("page", page.String()),
			slog.String("frame", frame.String()))
	}

	return nil
}
