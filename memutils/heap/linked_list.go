package heap

import (
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/kheap/memutils"
)

const (
	// nodeSize is the footprint of a free node: a size word followed by the address of the
	// next node
	nodeSize = 2 * memutils.WordSize
	// nodeAlign is the alignment every free node must have
	nodeAlign = memutils.WordSize

	nodeSizeOffset = 0
	nodeNextOffset = memutils.WordSize
)

// LinkedListAllocator manages a heap region with a singly-linked list of free regions. Each
// free region begins with a node holding its size and the address of the next node, so the
// list lives entirely inside the memory it describes.
//
// The list is kept in insertion order: freed regions and leftover space are always pushed
// to the front, and allocation takes the first region that fits. Adjacent free regions
// are never merged.
type LinkedListAllocator struct {
	RegionBase
	memory Memory

	// head is the address of the first node, or Null for an empty list
	head        uintptr
	freeRegions int
	freeBytes   uintptr
}

var _ Strategy = &LinkedListAllocator{}

// NewLinkedListAllocator creates an empty LinkedListAllocator that will store its free list
// through memory
func NewLinkedListAllocator(memory Memory) *LinkedListAllocator {
	return &LinkedListAllocator{memory: memory}
}

// Init adds the whole region to the free list. It panics if start is not aligned to a machine
// word or the region is too small to hold a free node.
func (a *LinkedListAllocator) Init(start, size uintptr) {
	a.RegionBase.Init(start, size)
	a.head = Null
	a.freeRegions = 0
	a.freeBytes = 0

	a.addFreeRegion(start, size)
}

func (a *LinkedListAllocator) Name() string { return "linked_list" }

func (a *LinkedListAllocator) readNode(addr uintptr) (size uintptr, next uintptr) {
	size = uintptr(a.memory.ReadWord(addr + nodeSizeOffset))
	next = uintptr(a.memory.ReadWord(addr + nodeNextOffset))
	return size, next
}

func (a *LinkedListAllocator) setNext(addr uintptr, next uintptr) {
	a.memory.WriteWord(addr+nodeNextOffset, uint64(next))
}

// addFreeRegion writes a node at addr describing size free bytes and pushes it at the
// front of the list
func (a *LinkedListAllocator) addFreeRegion(addr, size uintptr) {
	if !memutils.IsAligned(addr, nodeAlign) {
		panic(errors.Newf("free region at 0x%x is not aligned to %d", addr, nodeAlign))
	}
	if size < nodeSize {
		panic(errors.Newf("free region at 0x%x of %d bytes cannot hold a node", addr, size))
	}

	a.memory.WriteWord(addr+nodeSizeOffset, uint64(size))
	a.memory.WriteWord(addr+nodeNextOffset, uint64(a.head))
	a.head = addr

	a.freeRegions++
	a.freeBytes += size
}

// sizeAlign adjusts a layout so the carved out block can always hold a node once it is freed
func sizeAlign(layout memutils.Layout) (uintptr, uintptr, bool) {
	align := layout.Align
	if align < nodeAlign {
		align = nodeAlign
	}

	size, ok := memutils.AlignUpChecked(layout.Size, align)
	if !ok {
		return 0, 0, false
	}

	if size < nodeSize {
		size = nodeSize
	}

	return size, align, true
}

// allocFromRegion returns the address an allocation of size bytes aligned to align would
// start at inside the free region [regionStart, regionStart+regionSize), or false if the
// allocation does not fit or would leave a remainder too small to hold a node
func allocFromRegion(regionStart, regionSize, size, align uintptr) (uintptr, bool) {
	allocStart, ok := memutils.AlignUpChecked(regionStart, align)
	if !ok {
		return 0, false
	}

	allocEnd, ok := memutils.AddChecked(allocStart, size)
	regionEnd := regionStart + regionSize
	if !ok || allocEnd > regionEnd {
		return 0, false
	}

	excess := regionEnd - allocEnd
	if excess > 0 && excess < nodeSize {
		return 0, false
	}

	return allocStart, true
}

func (a *LinkedListAllocator) Alloc(layout memutils.Layout) uintptr {
	size, align, ok := sizeAlign(layout)
	if !ok {
		return Null
	}

	prev := Null
	for current := a.head; current != Null; {
		regionSize, next := a.readNode(current)

		allocStart, fits := allocFromRegion(current, regionSize, size, align)
		if !fits {
			prev = current
			current = next
			continue
		}

		// Unlink the region
		if prev == Null {
			a.head = next
		} else {
			a.setNext(prev, next)
		}
		a.freeRegions--
		a.freeBytes -= regionSize

		// Alignment padding at the front of the region is not returned to the list
		allocEnd := allocStart + size
		if excess := current + regionSize - allocEnd; excess > 0 {
			a.addFreeRegion(allocEnd, excess)
		}

		a.allocationCount++
		return allocStart
	}

	return Null
}

func (a *LinkedListAllocator) Dealloc(ptr uintptr, layout memutils.Layout) {
	size, _, _ := sizeAlign(layout)

	a.addFreeRegion(ptr, size)
	a.allocationCount--
}

// FreeRegionsCount returns the number of nodes in the free list
func (a *LinkedListAllocator) FreeRegionsCount() int {
	return a.freeRegions
}

func (a *LinkedListAllocator) SumFreeSize() int {
	return int(a.freeBytes)
}

// VisitFreeRegions calls visit for each node in list order until it returns false
func (a *LinkedListAllocator) VisitFreeRegions(visit func(addr, size uintptr) bool) {
	// The bound keeps a corrupted, cyclic list from hanging the walk
	remaining := a.freeRegions
	for current := a.head; current != Null && remaining > 0; remaining-- {
		size, next := a.readNode(current)
		if !visit(current, size) {
			return
		}
		current = next
	}
}

type freeRange struct {
	addr uintptr
	size uintptr
}

func checkNoOverlap(ranges []freeRange) error {
	sort.Slice(ranges, func(i, j int) bool {
		return ranges[i].addr < ranges[j].addr
	})

	for i := 1; i < len(ranges); i++ {
		prev := ranges[i-1]
		if prev.addr+prev.size > ranges[i].addr {
			return errors.Newf("free range [0x%x, 0x%x) overlaps free range at 0x%x",
				prev.addr, prev.addr+prev.size, ranges[i].addr)
		}
	}

	return nil
}

func (a *LinkedListAllocator) freeRanges() ([]freeRange, error) {
	var walkErr error
	ranges := make([]freeRange, 0, a.freeRegions)

	a.VisitFreeRegions(func(addr, size uintptr) bool {
		if !memutils.IsAligned(addr, nodeAlign) {
			walkErr = errors.Newf("free node at 0x%x is not aligned to %d", addr, nodeAlign)
			return false
		}
		if size < nodeSize {
			walkErr = errors.Newf("free node at 0x%x has size %d, smaller than a node", addr, size)
			return false
		}
		if !a.Contains(addr, size) {
			walkErr = errors.Newf("free node [0x%x, 0x%x) lies outside of the region [0x%x, 0x%x)",
				addr, addr+size, a.Start(), a.End())
			return false
		}

		ranges = append(ranges, freeRange{addr: addr, size: size})
		return true
	})

	return ranges, walkErr
}

func (a *LinkedListAllocator) Validate() error {
	ranges, err := a.freeRanges()
	if err != nil {
		return err
	}

	if len(ranges) != a.freeRegions {
		return errors.Newf("free list has %d nodes but %d were expected", len(ranges), a.freeRegions)
	}

	// A list that is longer than the counter would have been cut short by the walk
	if len(ranges) > 0 {
		_, next := a.readNode(ranges[len(ranges)-1].addr)
		if next != Null {
			return errors.Newf("free list continues past %d nodes to 0x%x", a.freeRegions, next)
		}
	} else if a.head != Null {
		return errors.Newf("free list is expected to be empty but starts at 0x%x", a.head)
	}

	var sum uintptr
	for _, r := range ranges {
		sum += r.size
	}
	if sum != a.freeBytes {
		return errors.Newf("free list holds %d bytes but %d were expected", sum, a.freeBytes)
	}

	if a.allocationCount < 0 {
		return errors.Newf("more deallocations than allocations: count is %d", a.allocationCount)
	}

	return checkNoOverlap(ranges)
}

func (a *LinkedListAllocator) AddStatistics(stats *memutils.Statistics) {
	a.addStatistics(stats, a.SumFreeSize())
}

func (a *LinkedListAllocator) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	a.AddStatistics(&stats.Statistics)

	a.VisitFreeRegions(func(addr, size uintptr) bool {
		stats.AddFreeRange(int(size))
		return true
	})
}

func (a *LinkedListAllocator) HeapJsonData(json jwriter.ObjectState) {
	a.RegionJsonData(json, a.Name(), a.SumFreeSize(), a.FreeRegionsCount())
	a.printFreeRegions(json)
}

func (a *LinkedListAllocator) printFreeRegions(json jwriter.ObjectState) {
	arrayState := json.Name("FreeRegions").Array()
	defer arrayState.End()

	a.VisitFreeRegions(func(addr, size uintptr) bool {
		printFreeRange(&arrayState, addr, size)
		return true
	})
}
