package heap_test

import (
	"encoding/binary"
	"fmt"

	"github.com/vkngwrapper/kheap/memutils/heap"
)

const (
	testHeapStart uintptr = 0x10000
	testHeapSize  uintptr = 64 * 1024
)

// sliceMemory backs [base, base+len(data)) with a byte slice and faults on anything else
type sliceMemory struct {
	base uintptr
	data []byte
}

var _ heap.Memory = &sliceMemory{}

func newSliceMemory(base, size uintptr) *sliceMemory {
	return &sliceMemory{base: base, data: make([]byte, size)}
}

func (m *sliceMemory) offset(addr uintptr) uintptr {
	if addr < m.base || addr+8 > m.base+uintptr(len(m.data)) {
		panic(fmt.Sprintf("access to unbacked address 0x%x", addr))
	}
	return addr - m.base
}

func (m *sliceMemory) ReadWord(addr uintptr) uint64 {
	return binary.LittleEndian.Uint64(m.data[m.offset(addr):])
}

func (m *sliceMemory) WriteWord(addr uintptr, value uint64) {
	binary.LittleEndian.PutUint64(m.data[m.offset(addr):], value)
}

type strategyCase struct {
	name   string
	create func(memory heap.Memory) heap.Strategy
}

var strategyCases = []strategyCase{
	{"Bump", func(memory heap.Memory) heap.Strategy { return heap.NewBumpAllocator() }},
	{"LinkedList", func(memory heap.Memory) heap.Strategy { return heap.NewLinkedListAllocator(memory) }},
	{"FixedSizeBlock", func(memory heap.Memory) heap.Strategy { return heap.NewFixedSizeBlockAllocator(memory) }},
}

func initStrategy(c strategyCase) (heap.Strategy, *sliceMemory) {
	memory := newSliceMemory(testHeapStart, testHeapSize)
	strategy := c.create(memory)
	strategy.Init(testHeapStart, testHeapSize)
	return strategy, memory
}
