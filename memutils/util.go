package memutils

import (
	cerrors "github.com/cockroachdb/errors"
	"golang.org/x/exp/constraints"
)

func CheckPow2[T constraints.Unsigned](number T, name string) error {
	if number == 0 || number&(number-1) != 0 {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

// AlignUp rounds value up to the next multiple of alignment, which must be a power of two.
// The result wraps if value is within alignment of the top of the address space; use
// AlignUpChecked when that matters.
func AlignUp(value uintptr, alignment uintptr) uintptr {
	return (value + alignment - 1) &^ (alignment - 1)
}

// AlignUpChecked behaves like AlignUp but returns false instead of wrapping around.
func AlignUpChecked(value uintptr, alignment uintptr) (uintptr, bool) {
	bumped := value + alignment - 1
	if bumped < value {
		return 0, false
	}
	return bumped &^ (alignment - 1), true
}

func AlignDown(value uintptr, alignment uintptr) uintptr {
	return value &^ (alignment - 1)
}

// IsAligned returns true if value is a multiple of alignment
func IsAligned(value uintptr, alignment uintptr) bool {
	return value&(alignment-1) == 0
}

// AddChecked adds two addresses or sizes, returning false if the sum wraps
func AddChecked(left, right uintptr) (uintptr, bool) {
	sum := left + right
	return sum, sum >= left
}
