package heap

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/kheap/memutils"
)

// BlockSizes are the block size classes used by FixedSizeBlockAllocator. Each size doubles
// as the alignment of blocks of that class, so every size must be a power of two, and the
// smallest must be able to hold a free list link.
var BlockSizes = [...]uintptr{8, 16, 32, 64, 128, 256, 512, 1024, 2048}

// blockNodeSize is the footprint of a block free list node: the address of the next block
const blockNodeSize = memutils.WordSize

// FixedSizeBlockAllocator rounds requests up to one of the BlockSizes and keeps a free list of
// blocks for each class. Freed blocks are pushed onto their class list and reused in LIFO order.
// Blocks are only ever carved out by a fallback LinkedListAllocator covering the whole region,
// which also serves requests larger than the largest class.
type FixedSizeBlockAllocator struct {
	memory    Memory
	fallback  *LinkedListAllocator
	listHeads [len(BlockSizes)]uintptr
	// freeBlocks counts the nodes in each class list
	freeBlocks [len(BlockSizes)]int

	allocationCount int
}

var _ Strategy = &FixedSizeBlockAllocator{}

// NewFixedSizeBlockAllocator creates an empty FixedSizeBlockAllocator that will store its free
// lists through memory
func NewFixedSizeBlockAllocator(memory Memory) *FixedSizeBlockAllocator {
	return &FixedSizeBlockAllocator{
		memory:   memory,
		fallback: NewLinkedListAllocator(memory),
	}
}

// Init hands the whole region to the fallback allocator and empties every class list
func (a *FixedSizeBlockAllocator) Init(start, size uintptr) {
	a.fallback.Init(start, size)

	for index := range a.listHeads {
		a.listHeads[index] = Null
		a.freeBlocks[index] = 0
	}
	a.allocationCount = 0
}

func (a *FixedSizeBlockAllocator) Name() string { return "fixed_size_block" }

// Fallback returns the allocator that carves out new blocks and serves oversized requests
func (a *FixedSizeBlockAllocator) Fallback() *LinkedListAllocator {
	return a.fallback
}

// listIndex returns the index of the smallest class that can hold layout, or false
// if layout is larger than every class
func listIndex(layout memutils.Layout) (int, bool) {
	required := layout.Size
	if layout.Align > required {
		required = layout.Align
	}

	for index, blockSize := range BlockSizes {
		if blockSize >= required {
			return index, true
		}
	}

	return 0, false
}

func (a *FixedSizeBlockAllocator) Alloc(layout memutils.Layout) uintptr {
	index, ok := listIndex(layout)
	if !ok {
		return a.countAlloc(a.fallback.Alloc(layout))
	}

	if node := a.listHeads[index]; node != Null {
		a.listHeads[index] = uintptr(a.memory.ReadWord(node))
		a.freeBlocks[index]--
		return a.countAlloc(node)
	}

	// No block of this class exists yet, so carve a new one
	blockSize := BlockSizes[index]
	return a.countAlloc(a.fallback.Alloc(memutils.Layout{Size: blockSize, Align: blockSize}))
}

func (a *FixedSizeBlockAllocator) countAlloc(ptr uintptr) uintptr {
	if ptr != Null {
		a.allocationCount++
	}
	return ptr
}

func (a *FixedSizeBlockAllocator) Dealloc(ptr uintptr, layout memutils.Layout) {
	a.allocationCount--

	index, ok := listIndex(layout)
	if !ok {
		a.fallback.Dealloc(ptr, layout)
		return
	}

	blockSize := BlockSizes[index]
	if blockNodeSize > blockSize || !memutils.IsAligned(blockSize, blockNodeSize) {
		panic(errors.Newf("block class %d cannot hold a free list node", blockSize))
	}

	a.memory.WriteWord(ptr, uint64(a.listHeads[index]))
	a.listHeads[index] = ptr
	a.freeBlocks[index]++
}

func (a *FixedSizeBlockAllocator) AllocationCount() int {
	return a.allocationCount
}

// FreeBlocks returns the number of blocks waiting for reuse in each class list
func (a *FixedSizeBlockAllocator) FreeBlocks() [len(BlockSizes)]int {
	return a.freeBlocks
}

// classFreeBytes returns the number of bytes held by blocks in class lists
func (a *FixedSizeBlockAllocator) classFreeBytes() int {
	var sum int
	for index, count := range a.freeBlocks {
		sum += count * int(BlockSizes[index])
	}
	return sum
}

// SumFreeSize returns the free bytes of the fallback allocator plus the bytes held by
// blocks waiting for reuse
func (a *FixedSizeBlockAllocator) SumFreeSize() int {
	return a.fallback.SumFreeSize() + a.classFreeBytes()
}

// VisitFreeBlocks calls visit for each block in the list of the class at index until it
// returns false
func (a *FixedSizeBlockAllocator) VisitFreeBlocks(index int, visit func(addr uintptr) bool) {
	remaining := a.freeBlocks[index]
	for current := a.listHeads[index]; current != Null && remaining > 0; remaining-- {
		next := uintptr(a.memory.ReadWord(current))
		if !visit(current) {
			return
		}
		current = next
	}
}

func (a *FixedSizeBlockAllocator) Validate() error {
	if err := a.fallback.Validate(); err != nil {
		return errors.Wrap(err, "fallback allocator")
	}

	ranges, err := a.fallback.freeRanges()
	if err != nil {
		return errors.Wrap(err, "fallback allocator")
	}

	for index, blockSize := range BlockSizes {
		var walkErr error
		count := 0
		last := Null

		a.VisitFreeBlocks(index, func(addr uintptr) bool {
			if !memutils.IsAligned(addr, blockSize) {
				walkErr = errors.Newf("block 0x%x of class %d is misaligned", addr, blockSize)
				return false
			}
			if !a.fallback.Contains(addr, blockSize) {
				walkErr = errors.Newf("block 0x%x of class %d lies outside of the region", addr, blockSize)
				return false
			}

			ranges = append(ranges, freeRange{addr: addr, size: blockSize})
			count++
			last = addr
			return true
		})
		if walkErr != nil {
			return walkErr
		}

		if count != a.freeBlocks[index] {
			return errors.Newf("class %d list has %d blocks but %d were expected", blockSize, count, a.freeBlocks[index])
		}
		if last != Null && a.memory.ReadWord(last) != uint64(Null) {
			return errors.Newf("class %d list continues past %d blocks", blockSize, count)
		}
		if count == 0 && a.listHeads[index] != Null {
			return errors.Newf("class %d list is expected to be empty but starts at 0x%x", blockSize, a.listHeads[index])
		}
	}

	if a.allocationCount < 0 {
		return errors.Newf("more deallocations than allocations: count is %d", a.allocationCount)
	}

	return checkNoOverlap(ranges)
}

func (a *FixedSizeBlockAllocator) AddStatistics(stats *memutils.Statistics) {
	free := a.SumFreeSize()
	region := int(a.fallback.Size())

	stats.RegionBytes += region
	stats.AllocationCount += a.allocationCount
	stats.AllocationBytes += region - free
	stats.FreeBytes += free
}

func (a *FixedSizeBlockAllocator) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	a.AddStatistics(&stats.Statistics)

	a.fallback.VisitFreeRegions(func(addr, size uintptr) bool {
		stats.AddFreeRange(int(size))
		return true
	})

	for index, count := range a.freeBlocks {
		for i := 0; i < count; i++ {
			stats.AddFreeRange(int(BlockSizes[index]))
		}
	}
}

func (a *FixedSizeBlockAllocator) HeapJsonData(json jwriter.ObjectState) {
	freeRanges := a.fallback.FreeRegionsCount()
	for _, count := range a.freeBlocks {
		freeRanges += count
	}

	json.Name("Strategy").String(a.Name())
	json.Name("Start").Int(int(a.fallback.Start()))
	json.Name("TotalBytes").Int(int(a.fallback.Size()))
	json.Name("FreeBytes").Int(a.SumFreeSize())
	json.Name("Allocations").Int(a.allocationCount)
	json.Name("FreeRanges").Int(freeRanges)

	classes := json.Name("BlockClasses").Object()
	for index, blockSize := range BlockSizes {
		classes.Name(strconv.Itoa(int(blockSize))).Int(a.freeBlocks[index])
	}
	classes.End()

	fallbackObj := json.Name("Fallback").Object()
	a.fallback.HeapJsonData(fallbackObj)
	fallbackObj.End()
}
