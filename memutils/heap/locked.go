package heap

import (
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/kheap/memutils"
	"github.com/vkngwrapper/kheap/memutils/internal/utils"
)

var (
	// ErrAllocatorBusy is returned by TryAlloc and TryDealloc when the lock is already held
	ErrAllocatorBusy = errors.New("allocator lock is held")
	// ErrAlreadyInitialized is returned when Init is called on a Locked a second time
	ErrAlreadyInitialized = errors.New("heap is already initialized")
)

// Locked serializes every call into a single Strategy with a spinlock. Each operation holds
// the lock for its full duration.
//
// The lock is not reentrant. Code that can interrupt a holder of the lock, such as an
// interrupt handler running on the same core, must never call Alloc or Dealloc: the spin
// would never end. Such code should use TryAlloc and TryDealloc, which fail with
// ErrAllocatorBusy instead of waiting.
type Locked[S Strategy] struct {
	lock        utils.Spinlock
	inner       S
	initialized bool
}

var _ Allocator = &Locked[*BumpAllocator]{}

// NewLocked wraps inner. inner must not be used except through the returned Locked.
func NewLocked[S Strategy](inner S) *Locked[S] {
	return &Locked[S]{inner: inner}
}

// Init hands the region [start, start+size) to the wrapped strategy. It may only be called once.
func (l *Locked[S]) Init(start, size uintptr) error {
	l.lock.Acquire()
	defer l.lock.Release()

	if l.initialized {
		return errors.Wrapf(ErrAlreadyInitialized, "%s heap", l.inner.Name())
	}

	l.inner.Init(start, size)
	l.initialized = true
	memutils.DebugValidate(l.inner)
	return nil
}

// Initialized reports whether Init has completed
func (l *Locked[S]) Initialized() bool {
	l.lock.Acquire()
	defer l.lock.Release()

	return l.initialized
}

// Name returns the name of the wrapped strategy
func (l *Locked[S]) Name() string {
	return l.inner.Name()
}

func (l *Locked[S]) Alloc(layout memutils.Layout) uintptr {
	memutils.DebugCheckPow2(layout.Align, "layout.Align")

	l.lock.Acquire()
	defer l.lock.Release()

	ptr := l.inner.Alloc(layout)
	memutils.DebugValidate(l.inner)
	return ptr
}

func (l *Locked[S]) Dealloc(ptr uintptr, layout memutils.Layout) {
	l.lock.Acquire()
	defer l.lock.Release()

	l.inner.Dealloc(ptr, layout)
	memutils.DebugValidate(l.inner)
}

// TryAlloc behaves like Alloc, but returns ErrAllocatorBusy rather than waiting if the lock is
// held. A request that cannot be satisfied returns Null and no error.
func (l *Locked[S]) TryAlloc(layout memutils.Layout) (uintptr, error) {
	if !l.lock.TryToAcquire() {
		return Null, errors.Wrapf(ErrAllocatorBusy, "allocating %s", layout)
	}
	defer l.lock.Release()

	ptr := l.inner.Alloc(layout)
	memutils.DebugValidate(l.inner)
	return ptr, nil
}

// TryDealloc behaves like Dealloc, but returns ErrAllocatorBusy rather than waiting if the lock
// is held. The allocation is still live when an error is returned.
func (l *Locked[S]) TryDealloc(ptr uintptr, layout memutils.Layout) error {
	if !l.lock.TryToAcquire() {
		return errors.Wrapf(ErrAllocatorBusy, "deallocating 0x%x", ptr)
	}
	defer l.lock.Release()

	l.inner.Dealloc(ptr, layout)
	memutils.DebugValidate(l.inner)
	return nil
}

// With calls fn with the lock held. fn must not call back into this Locked.
func (l *Locked[S]) With(fn func(inner S)) {
	l.lock.Acquire()
	defer l.lock.Release()

	fn(l.inner)
}

func (l *Locked[S]) Validate() error {
	l.lock.Acquire()
	defer l.lock.Release()

	return l.inner.Validate()
}

// Statistics returns a snapshot of the basic heap counters
func (l *Locked[S]) Statistics() memutils.Statistics {
	l.lock.Acquire()
	defer l.lock.Release()

	var stats memutils.Statistics
	stats.Clear()
	l.inner.AddStatistics(&stats)
	return stats
}

// DetailedStatistics returns a snapshot of the heap counters including every free range
func (l *Locked[S]) DetailedStatistics() memutils.DetailedStatistics {
	l.lock.Acquire()
	defer l.lock.Release()

	var stats memutils.DetailedStatistics
	stats.Clear()
	l.inner.AddDetailedStatistics(&stats)
	return stats
}

// BuildStatsString writes a json object describing the heap to writer
func (l *Locked[S]) BuildStatsString(writer *jwriter.Writer) {
	l.lock.Acquire()
	defer l.lock.Release()

	obj := writer.Object()
	defer obj.End()

	obj.Name("Initialized").Bool(l.initialized)
	l.inner.HeapJsonData(obj)
}
