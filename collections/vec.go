package collections

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/kheap/memutils"
	"github.com/vkngwrapper/kheap/memutils/heap"
)

// minVecCapacity is the capacity of the first buffer a Vec allocates
const minVecCapacity = 4

// Vec is a growable sequence of machine words stored in a single heap buffer. The buffer is
// replaced with one twice the size whenever it fills up. The zero capacity Vec holds no
// heap memory.
type Vec struct {
	alloc  heap.Allocator
	memory heap.Memory

	buffer   uintptr
	length   int
	capacity int
	freed    bool
}

// NewVec creates an empty Vec that will allocate from alloc
func NewVec(alloc heap.Allocator, memory heap.Memory) *Vec {
	return &Vec{alloc: alloc, memory: memory}
}

// NewVecWithCapacity creates an empty Vec with room for capacity words
func NewVecWithCapacity(alloc heap.Allocator, memory heap.Memory, capacity int) (*Vec, error) {
	v := NewVec(alloc, memory)
	if capacity > 0 {
		if err := v.reallocate(capacity); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (v *Vec) Len() int { return v.length }

func (v *Vec) Cap() int { return v.capacity }

func (v *Vec) wordAddr(index int) uintptr {
	return v.buffer + uintptr(index)*memutils.WordSize
}

func (v *Vec) checkIndex(index int) {
	if v.freed {
		panic(errors.WithStack(ErrUseAfterFree))
	}
	if index < 0 || index >= v.length {
		panic(errors.Newf("index %d out of range for vec of length %d", index, v.length))
	}
}

func (v *Vec) Get(index int) uint64 {
	v.checkIndex(index)
	return v.memory.ReadWord(v.wordAddr(index))
}

func (v *Vec) Set(index int, value uint64) {
	v.checkIndex(index)
	v.memory.WriteWord(v.wordAddr(index), value)
}

// reallocate moves the contents of the Vec into a new buffer with room for capacity words
func (v *Vec) reallocate(capacity int) error {
	layout, err := memutils.LayoutForWords(capacity)
	if err != nil {
		return err
	}

	buffer := v.alloc.Alloc(layout)
	if buffer == heap.Null {
		return errors.Wrapf(memutils.ErrOutOfMemory, "growing vec to %d words: %s", capacity, layout)
	}

	for i := 0; i < v.length; i++ {
		v.memory.WriteWord(buffer+uintptr(i)*memutils.WordSize, v.memory.ReadWord(v.wordAddr(i)))
	}

	v.release()
	v.buffer = buffer
	v.capacity = capacity
	return nil
}

func (v *Vec) release() {
	if v.capacity == 0 {
		return
	}

	layout, _ := memutils.LayoutForWords(v.capacity)
	v.alloc.Dealloc(v.buffer, layout)
	v.buffer = heap.Null
	v.capacity = 0
}

// Push appends value, growing the buffer if it is full. The Vec is unchanged when an error
// is returned.
func (v *Vec) Push(value uint64) error {
	if v.freed {
		panic(errors.WithStack(ErrUseAfterFree))
	}

	if v.length == v.capacity {
		capacity := v.capacity * 2
		if capacity < minVecCapacity {
			capacity = minVecCapacity
		}

		if err := v.reallocate(capacity); err != nil {
			return err
		}
	}

	v.memory.WriteWord(v.wordAddr(v.length), value)
	v.length++
	return nil
}

// Pop removes and returns the last word, or false if the Vec is empty
func (v *Vec) Pop() (uint64, bool) {
	if v.length == 0 {
		return 0, false
	}

	value := v.Get(v.length - 1)
	v.length--
	return value, true
}

// Sum returns the wrapping sum of every word
func (v *Vec) Sum() uint64 {
	var sum uint64
	for i := 0; i < v.length; i++ {
		sum += v.Get(i)
	}
	return sum
}

// Free returns the buffer to the heap. Calling Free again has no effect.
func (v *Vec) Free() {
	if v.freed {
		return
	}

	v.release()
	v.length = 0
	v.freed = true
}
