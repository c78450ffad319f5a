package kernel

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/kheap/collections"
	"github.com/vkngwrapper/kheap/memutils/heap"
	"golang.org/x/exp/slog"
)

// SelfTest is an allocation workload run against a freshly booted heap
type SelfTest struct {
	Name string
	// NeedsReuse is set for workloads that only pass when freed memory can be handed out
	// again while other allocations are still live
	NeedsReuse bool
	Run        func(alloc heap.Allocator, memory heap.Memory, heapSize uintptr) error
}

// SelfTests are the workloads every heap strategy is expected to survive
var SelfTests = []SelfTest{
	{Name: "box_allocation", Run: boxAllocation},
	{Name: "list_allocation", Run: listAllocation},
	{Name: "multiple_boxes_allocation", Run: multipleBoxesAllocation},
	{Name: "multiple_boxes_long_lived", NeedsReuse: true, Run: multipleBoxesLongLived},
}

// ErrUnknownSelfTest is returned by RunSelfTests when asked for a workload that is not in SelfTests
var ErrUnknownSelfTest = errors.New("unknown self test")

// SelfTestOutcome records what happened to a single SelfTest
type SelfTestOutcome int

const (
	SelfTestPassed SelfTestOutcome = iota
	// SelfTestSkipped is reported for workloads that the strategy cannot pass by construction
	SelfTestSkipped
	SelfTestFailed
)

func (o SelfTestOutcome) String() string {
	switch o {
	case SelfTestPassed:
		return "passed"
	case SelfTestSkipped:
		return "skipped"
	case SelfTestFailed:
		return "failed"
	}
	return fmt.Sprintf("SelfTestOutcome(%d)", int(o))
}

// SelfTestResult is the outcome of one SelfTest run by RunSelfTests
type SelfTestResult struct {
	Name    string
	Outcome SelfTestOutcome
	Err     error
}

// SkipsSelfTest reports whether RunSelfTests skips test for the named strategy. Workloads that
// need reuse are skipped for the bump strategy.
func SkipsSelfTest(test SelfTest, strategyName string) bool {
	return test.NeedsReuse && strategyName == "bump"
}

func selectSelfTests(names []string) ([]SelfTest, error) {
	if len(names) == 0 {
		return SelfTests, nil
	}

	selected := make([]SelfTest, 0, len(names))
	for _, name := range names {
		found := false
		for _, test := range SelfTests {
			if test.Name == name {
				selected = append(selected, test)
				found = true
				break
			}
		}

		if !found {
			return nil, errors.Wrapf(ErrUnknownSelfTest, "%q", name)
		}
	}
	return selected, nil
}

// RunSelfTests runs the named SelfTests in order, or every SelfTest if names is empty, and stops
// at the first failure. The results of every test that was reached are returned, including the
// failing one. An unknown name fails before any workload runs.
func RunSelfTests(logger *slog.Logger, alloc heap.Allocator, memory heap.Memory, strategyName string, heapSize uintptr, names ...string) ([]SelfTestResult, error) {
	tests, err := selectSelfTests(names)
	if err != nil {
		return nil, err
	}

	results := make([]SelfTestResult, 0, len(tests))
	for _, test := range tests {
		if SkipsSelfTest(test, strategyName) {
			logger.LogAttrs(context.Background(), slog.LevelInfo, "self test skipped",
				slog.String("test", test.Name),
				slog.String("strategy", strategyName))
			results = append(results, SelfTestResult{Name: test.Name, Outcome: SelfTestSkipped})
			continue
		}

		if err := test.Run(alloc, memory, heapSize); err != nil {
			logger.LogAttrs(context.Background(), slog.LevelError, "self test failed",
				slog.String("test", test.Name),
				slog.String("strategy", strategyName),
				slog.Any("error", err))
			results = append(results, SelfTestResult{Name: test.Name, Outcome: SelfTestFailed, Err: err})
			return results, errors.Wrapf(err, "self test %s", test.Name)
		}

		logger.LogAttrs(context.Background(), slog.LevelInfo, "self test passed",
			slog.String("test", test.Name),
			slog.String("strategy", strategyName))
		results = append(results, SelfTestResult{Name: test.Name, Outcome: SelfTestPassed})
	}

	return results, nil
}

func checkBox(box *collections.Box, expected uint64) error {
	if actual := box.Get(); actual != expected {
		return errors.Newf("box at 0x%x holds %d, expected %d", box.Addr(), actual, expected)
	}
	return nil
}

func boxAllocation(alloc heap.Allocator, memory heap.Memory, heapSize uintptr) error {
	first, err := collections.NewBox(alloc, memory, 41)
	if err != nil {
		return err
	}
	defer first.Free()

	second, err := collections.NewBox(alloc, memory, 13)
	if err != nil {
		return err
	}
	defer second.Free()

	if err = checkBox(first, 41); err != nil {
		return err
	}
	return checkBox(second, 13)
}

func listAllocation(alloc heap.Allocator, memory heap.Memory, heapSize uintptr) error {
	const n = 1000

	vec := collections.NewVec(alloc, memory)
	defer vec.Free()

	for i := uint64(0); i < n; i++ {
		if err := vec.Push(i); err != nil {
			return err
		}
	}

	if sum := vec.Sum(); sum != (n-1)*n/2 {
		return errors.Newf("sum of %d words is %d, expected %d", n, sum, (n-1)*n/2)
	}
	return nil
}

func multipleBoxesAllocation(alloc heap.Allocator, memory heap.Memory, heapSize uintptr) error {
	for i := uint64(0); i < uint64(heapSize); i++ {
		box, err := collections.NewBox(alloc, memory, i)
		if err != nil {
			return errors.Wrapf(err, "box %d", i)
		}

		err = checkBox(box, i)
		box.Free()
		if err != nil {
			return err
		}
	}
	return nil
}

func multipleBoxesLongLived(alloc heap.Allocator, memory heap.Memory, heapSize uintptr) error {
	longLived, err := collections.NewBox(alloc, memory, 1)
	if err != nil {
		return err
	}
	defer longLived.Free()

	if err = multipleBoxesAllocation(alloc, memory, heapSize); err != nil {
		return err
	}
	return checkBox(longLived, 1)
}
