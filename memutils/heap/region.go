package heap

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/kheap/memutils"
)

// RegionBase is a simple struct that provides a few shared utilities for Strategy
// implementations: the extents of the managed region and the live allocation count.
type RegionBase struct {
	start           uintptr
	size            uintptr
	allocationCount int
}

// Init records the extents of the region managed by the strategy
func (r *RegionBase) Init(start, size uintptr) {
	r.start = start
	r.size = size
	r.allocationCount = 0
}

// Start returns the first address of the region
func (r *RegionBase) Start() uintptr { return r.start }

// Size returns the size of the region in bytes
func (r *RegionBase) Size() uintptr { return r.size }

// End returns the first address past the end of the region
func (r *RegionBase) End() uintptr { return r.start + r.size }

// AllocationCount returns the number of live allocations
func (r *RegionBase) AllocationCount() int { return r.allocationCount }

// Contains returns true if [addr, addr+size) lies entirely within the region
func (r *RegionBase) Contains(addr, size uintptr) bool {
	end, ok := memutils.AddChecked(addr, size)
	return ok && addr >= r.start && end <= r.End()
}

func (r *RegionBase) addStatistics(stats *memutils.Statistics, freeBytes int) {
	stats.RegionBytes += int(r.size)
	stats.AllocationCount += r.allocationCount
	stats.AllocationBytes += int(r.size) - freeBytes
	stats.FreeBytes += freeBytes
}

// RegionJsonData populates a json object with information about the region
func (r *RegionBase) RegionJsonData(json jwriter.ObjectState, name string, freeBytes, freeRangeCount int) {
	json.Name("Strategy").String(name)
	json.Name("Start").Int(int(r.start))
	json.Name("TotalBytes").Int(int(r.size))
	json.Name("FreeBytes").Int(freeBytes)
	json.Name("Allocations").Int(r.allocationCount)
	json.Name("FreeRanges").Int(freeRangeCount)
}

func printFreeRange(json *jwriter.ArrayState, addr, size uintptr) {
	obj := json.Object()
	defer obj.End()

	obj.Name("Address").Int(int(addr))
	obj.Name("Size").Int(int(size))
}
