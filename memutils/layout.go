package memutils

import (
	"fmt"

	cerrors "github.com/cockroachdb/errors"
)

// Layout describes a single allocation request: the number of bytes required and the
// alignment the returned address must satisfy. Align must always be a power of two.
type Layout struct {
	Size  uintptr
	Align uintptr
}

// NewLayout creates a Layout, returning an error if align is not a power of two
func NewLayout(size, align uintptr) (Layout, error) {
	if err := CheckPow2(align, "align"); err != nil {
		return Layout{}, err
	}

	// Rounding the size up to the alignment must not wrap
	if _, ok := AlignUpChecked(size, align); !ok {
		return Layout{}, cerrors.Wrapf(ErrAddressOverflow, "size %d cannot be padded to alignment %d", size, align)
	}

	return Layout{Size: size, Align: align}, nil
}

// LayoutForWords returns the layout of an array of count machine words
func LayoutForWords(count int) (Layout, error) {
	if count < 0 {
		return Layout{}, cerrors.Newf("invalid word count: %d", count)
	}

	size := uintptr(count) * WordSize
	if count != 0 && size/WordSize != uintptr(count) {
		return Layout{}, cerrors.Wrapf(ErrAddressOverflow, "%d words", count)
	}

	return Layout{Size: size, Align: WordSize}, nil
}

// Pad returns a copy of this layout with the size rounded up to a multiple of the alignment
func (l Layout) Pad() Layout {
	return Layout{Size: AlignUp(l.Size, l.Align), Align: l.Align}
}

func (l Layout) String() string {
	return fmt.Sprintf("Layout{Size: %d, Align: %d}", l.Size, l.Align)
}
