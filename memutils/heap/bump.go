package heap

import (
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/kheap/memutils"
)

// BumpAllocator hands out memory by moving a cursor forward through the region. Memory is
// never reused piecemeal: the cursor only returns to the start of the region once the last
// live allocation has been freed.
type BumpAllocator struct {
	RegionBase
	next uintptr
}

var _ Strategy = &BumpAllocator{}

// NewBumpAllocator creates an empty BumpAllocator. Bump allocation keeps no bookkeeping in the
// heap, so it needs no Memory.
func NewBumpAllocator() *BumpAllocator {
	return &BumpAllocator{}
}

func (a *BumpAllocator) Init(start, size uintptr) {
	a.RegionBase.Init(start, size)
	a.next = start
}

func (a *BumpAllocator) Name() string { return "bump" }

// Next returns the address the next allocation will be aligned up from
func (a *BumpAllocator) Next() uintptr { return a.next }

func (a *BumpAllocator) Alloc(layout memutils.Layout) uintptr {
	allocStart, ok := memutils.AlignUpChecked(a.next, layout.Align)
	if !ok {
		return Null
	}

	allocEnd, ok := memutils.AddChecked(allocStart, layout.Size)
	if !ok || allocEnd > a.End() {
		return Null
	}

	a.next = allocEnd
	a.allocationCount++
	return allocStart
}

func (a *BumpAllocator) Dealloc(ptr uintptr, layout memutils.Layout) {
	a.allocationCount--
	if a.allocationCount == 0 {
		a.next = a.start
	}
}

func (a *BumpAllocator) SumFreeSize() int {
	return int(a.End() - a.next)
}

func (a *BumpAllocator) Validate() error {
	if a.allocationCount < 0 {
		return errors.Newf("more deallocations than allocations: count is %d", a.allocationCount)
	}

	if a.next < a.start || a.next > a.End() {
		return errors.Newf("cursor 0x%x is outside of the region [0x%x, 0x%x)", a.next, a.start, a.End())
	}

	if a.allocationCount == 0 && a.next != a.start {
		return errors.Newf("no live allocations but the cursor is 0x%x bytes past the start", a.next-a.start)
	}

	return nil
}

func (a *BumpAllocator) AddStatistics(stats *memutils.Statistics) {
	a.addStatistics(stats, a.SumFreeSize())
}

func (a *BumpAllocator) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	a.AddStatistics(&stats.Statistics)

	if free := a.SumFreeSize(); free > 0 {
		stats.AddFreeRange(free)
	}
}

func (a *BumpAllocator) HeapJsonData(json jwriter.ObjectState) {
	free := a.SumFreeSize()
	freeRanges := 0
	if free > 0 {
		freeRanges = 1
	}

	a.RegionJsonData(json, a.Name(), free, freeRanges)
	json.Name("Next").Int(int(a.next))
}
