package vmm

import (
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/kheap/memutils/internal/utils"
)

// DefaultTLBCapacity is the number of translations a TLB created with NewTLB will hold
const DefaultTLBCapacity = 64

// TLB is a translation cache keyed by virtual page. It stores the final page table entry
// found by the last walk for that page, so any change to a mapping must be followed by a
// call to Flush for the page, or the stale translation will continue to be used.
//
// A TLB is safe for concurrent use.
type TLB struct {
	lock     utils.Spinlock
	capacity int
	entries  *swiss.Map[Page, PageTableEntry]

	hits    int
	misses  int
	flushes int
}

// NewTLB creates an empty TLB holding up to capacity translations
func NewTLB(capacity int) *TLB {
	if capacity < 1 {
		capacity = DefaultTLBCapacity
	}

	return &TLB{
		capacity: capacity,
		entries:  swiss.NewMap[Page, PageTableEntry](uint32(capacity)),
	}
}

// Lookup returns the cached entry for page, if any
func (t *TLB) Lookup(page Page) (PageTableEntry, bool) {
	t.lock.Acquire()
	defer t.lock.Release()

	pte, ok := t.entries.Get(page)
	if ok {
		t.hits++
	} else {
		t.misses++
	}
	return pte, ok
}

// Insert caches the final page table entry for page, evicting an arbitrary
// translation if the TLB is full
func (t *TLB) Insert(page Page, pte PageTableEntry) {
	t.lock.Acquire()
	defer t.lock.Release()

	if !t.entries.Has(page) && t.entries.Count() >= t.capacity {
		var victim Page
		t.entries.Iter(func(page Page, _ PageTableEntry) bool {
			victim = page
			return true
		})
		t.entries.Delete(victim)
	}

	t.entries.Put(page, pte)
}

// Flush invalidates the cached translation for a single page
func (t *TLB) Flush(page Page) {
	t.lock.Acquire()
	defer t.lock.Release()

	t.flushes++
	t.entries.Delete(page)
}

// FlushAll invalidates every cached translation
func (t *TLB) FlushAll() {
	t.lock.Acquire()
	defer t.lock.Release()

	t.flushes++
	t.entries = swiss.NewMap[Page, PageTableEntry](uint32(t.capacity))
}

// Len returns the number of cached translations
func (t *TLB) Len() int {
	t.lock.Acquire()
	defer t.lock.Release()

	return t.entries.Count()
}

// TLBStatistics contains counters describing how a TLB has been used
type TLBStatistics struct {
	Hits    int
	Misses  int
	Flushes int
}

// Statistics returns the hit, miss and flush counters of this TLB
func (t *TLB) Statistics() TLBStatistics {
	t.lock.Acquire()
	defer t.lock.Release()

	return TLBStatistics{
		Hits:    t.hits,
		Misses:  t.misses,
		Flushes: t.flushes,
	}
}
