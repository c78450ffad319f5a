// Package pmm contains code that manages physical memory: the modelled RAM of the
// machine, the firmware description of which parts of it are usable, and the frame
// supplier that hands those parts out one frame at a time.
package pmm

import (
	"fmt"

	"github.com/vkngwrapper/kheap/memutils"
)

// Frame describes a physical memory frame index.
type Frame uintptr

const (
	// InvalidFrame is returned by frame allocators when
	// they fail to reserve the requested frame.
	InvalidFrame = ^Frame(0)
)

// Valid returns true if this is a valid frame.
func (f Frame) Valid() bool {
	return f != InvalidFrame
}

// Address returns the physical memory address pointed to by this Frame.
func (f Frame) Address() uintptr {
	return uintptr(f) << memutils.PageShift
}

func (f Frame) String() string {
	if !f.Valid() {
		return "Frame(invalid)"
	}
	return fmt.Sprintf("Frame(0x%x)", f.Address())
}

// FrameFromAddress returns the Frame that contains the given physical address.
// Addresses that are not frame-aligned are rounded down.
func FrameFromAddress(physAddr uintptr) Frame {
	return Frame(physAddr >> memutils.PageShift)
}

// FrameAllocator is implemented by anything that can supply physical frames.
// Frames handed out are owned by the caller from then on: no return path exists.
type FrameAllocator interface {
	// AllocateFrame reserves the next available frame. It returns false once
	// no more frames can be supplied.
	AllocateFrame() (Frame, bool)
}
