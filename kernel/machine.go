// Package kernel boots the modelled machine the heap runs on: it lays out physical memory,
// builds the page table hierarchy, and backs the heap region before handing it to the
// allocator.
package kernel

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/kheap/memutils/heap"
	"github.com/vkngwrapper/kheap/memutils/pmm"
	"github.com/vkngwrapper/kheap/memutils/vmm"
	"golang.org/x/exp/slog"
)

// Machine owns everything the heap depends on after boot. The allocator is created once and
// lives as long as the Machine. Every consumer receives it as a heap.Allocator.
type Machine[S heap.Strategy] struct {
	logger  *slog.Logger
	options CreateOptions

	ram       *pmm.PhysicalMemory
	frames    *pmm.BootFrameAllocator
	mapper    *vmm.Mapper
	memory    *vmm.AddressSpace
	allocator *heap.Locked[S]
}

// NewMachine boots a machine whose heap uses the strategy selected for this build
//
// options - Optional parameters: it is valid to leave all the fields blank
func NewMachine(logger *slog.Logger, options CreateOptions) (*Machine[*heap.DefaultStrategy], error) {
	return NewMachineWithStrategy(logger, options, heap.NewDefaultStrategy)
}

// NewMachineWithStrategy boots a machine whose heap uses the strategy returned by create.
// create receives the address space the heap is mapped into.
func NewMachineWithStrategy[S heap.Strategy](logger *slog.Logger, options CreateOptions, create func(memory heap.Memory) S) (*Machine[S], error) {
	options, err := options.resolve()
	if err != nil {
		return nil, err
	}

	m := &Machine[S]{
		logger:  logger,
		options: options,
		ram:     pmm.NewPhysicalMemory(options.PhysicalMemorySize),
		frames:  pmm.NewBootFrameAllocator(logger, options.MemoryMap),
	}

	m.mapper, err = vmm.NewMapperWithFreshRoot(m.ram, m.frames)
	if err != nil {
		return nil, err
	}
	m.memory = vmm.NewAddressSpace(m.mapper)
	m.allocator = heap.NewLocked(create(m.memory))

	err = InitHeap(logger, m.mapper, m.frames, m.allocator, options.HeapStart, options.HeapSize)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Allocator returns the heap allocator
func (m *Machine[S]) Allocator() *heap.Locked[S] { return m.allocator }

// Memory returns the address space the heap is mapped into
func (m *Machine[S]) Memory() *vmm.AddressSpace { return m.memory }

func (m *Machine[S]) Mapper() *vmm.Mapper { return m.mapper }

func (m *Machine[S]) Frames() *pmm.BootFrameAllocator { return m.frames }

func (m *Machine[S]) PhysicalMemory() *pmm.PhysicalMemory { return m.ram }

func (m *Machine[S]) MemoryMap() pmm.MemoryMap { return m.options.MemoryMap }

// HeapStart returns the first address of the heap region
func (m *Machine[S]) HeapStart() uintptr { return m.options.HeapStart }

// HeapSize returns the size of the heap region in bytes
func (m *Machine[S]) HeapSize() uintptr { return m.options.HeapSize }

// BuildStatsString writes a json object describing physical memory, the translation cache and
// the heap to writer
func (m *Machine[S]) BuildStatsString(writer *jwriter.Writer) {
	obj := writer.Object()
	defer obj.End()

	physical := obj.Name("PhysicalMemory").Object()
	physical.Name("TotalBytes").Int(int(m.ram.Size()))
	physical.Name("UsableFrames").Int(int(m.frames.UsableFrames()))
	physical.Name("AllocatedFrames").Int(int(m.frames.AllocatedFrames()))
	physical.End()

	tlbStats := m.mapper.TLB().Statistics()
	tlb := obj.Name("TLB").Object()
	tlb.Name("Entries").Int(m.mapper.TLB().Len())
	tlb.Name("Hits").Int(tlbStats.Hits)
	tlb.Name("Misses").Int(tlbStats.Misses)
	tlb.Name("Flushes").Int(tlbStats.Flushes)
	tlb.End()

	m.allocator.BuildStatsString(obj.Name("Heap"))
}
