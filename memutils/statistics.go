package memutils

import "math"

// Statistics contains basic counters describing a heap region
type Statistics struct {
	RegionBytes     int
	AllocationCount int
	AllocationBytes int
	FreeBytes       int
}

func (s *Statistics) Clear() {
	s.RegionBytes = 0
	s.AllocationCount = 0
	s.AllocationBytes = 0
	s.FreeBytes = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.RegionBytes += other.RegionBytes
	s.AllocationCount += other.AllocationCount
	s.AllocationBytes += other.AllocationBytes
	s.FreeBytes += other.FreeBytes
}

// DetailedStatistics extends Statistics with information about the individual free
// ranges an allocation strategy is tracking
type DetailedStatistics struct {
	Statistics
	FreeRangeCount   int
	FreeRangeSizeMin int
	FreeRangeSizeMax int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.FreeRangeCount = 0
	s.FreeRangeSizeMin = math.MaxInt
	s.FreeRangeSizeMax = 0
}

func (s *DetailedStatistics) AddFreeRange(size int) {
	s.FreeRangeCount++

	if size < s.FreeRangeSizeMin {
		s.FreeRangeSizeMin = size
	}

	if size > s.FreeRangeSizeMax {
		s.FreeRangeSizeMax = size
	}
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)
	s.FreeRangeCount += other.FreeRangeCount

	if other.FreeRangeSizeMin < s.FreeRangeSizeMin {
		s.FreeRangeSizeMin = other.FreeRangeSizeMin
	}

	if other.FreeRangeSizeMax > s.FreeRangeSizeMax {
		s.FreeRangeSizeMax = other.FreeRangeSizeMax
	}
}
