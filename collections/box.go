// Package collections contains owned containers that store their contents in the kernel heap.
// Every container needs the heap.Allocator to take memory from and the heap.Memory the heap is
// mapped into.
package collections

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/kheap/memutils"
	"github.com/vkngwrapper/kheap/memutils/heap"
)

// ErrUseAfterFree is the panic value raised when a container is used after Free
var ErrUseAfterFree = errors.New("container used after free")

var boxLayout = memutils.Layout{Size: memutils.WordSize, Align: memutils.WordSize}

// Box owns a single machine word allocated in the heap
type Box struct {
	alloc  heap.Allocator
	memory heap.Memory
	addr   uintptr
}

// NewBox allocates a word from alloc and stores value in it
func NewBox(alloc heap.Allocator, memory heap.Memory, value uint64) (*Box, error) {
	addr := alloc.Alloc(boxLayout)
	if addr == heap.Null {
		return nil, errors.Wrapf(memutils.ErrOutOfMemory, "allocating box: %s", boxLayout)
	}

	memory.WriteWord(addr, value)
	return &Box{alloc: alloc, memory: memory, addr: addr}, nil
}

// Addr returns the heap address of the boxed word
func (b *Box) Addr() uintptr {
	return b.addr
}

func (b *Box) Get() uint64 {
	b.checkLive()
	return b.memory.ReadWord(b.addr)
}

func (b *Box) Set(value uint64) {
	b.checkLive()
	b.memory.WriteWord(b.addr, value)
}

// Free returns the word to the heap. Calling Free again has no effect.
func (b *Box) Free() {
	if b.addr == heap.Null {
		return
	}

	b.alloc.Dealloc(b.addr, boxLayout)
	b.addr = heap.Null
}

func (b *Box) checkLive() {
	if b.addr == heap.Null {
		panic(errors.WithStack(ErrUseAfterFree))
	}
}
