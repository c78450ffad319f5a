package pmm

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/kheap/memutils"
)

// ErrAddressOutOfRange is returned when an access touches a physical address that no RAM backs
var ErrAddressOutOfRange = errors.New("physical address is not backed by RAM")

// PhysicalMemory models the RAM of the machine: a byte-addressed store that starts at
// physical address 0. Page tables and heap contents are all stored here.
//
// PhysicalMemory is not synchronized. During boot it is only touched by a single
// caller, and after the heap is initialized every access to heap bytes happens with the
// heap lock held.
type PhysicalMemory struct {
	data []byte
}

// NewPhysicalMemory creates zeroed RAM of the given size, rounded up to a whole number of frames
func NewPhysicalMemory(size uintptr) *PhysicalMemory {
	return &PhysicalMemory{
		data: make([]byte, memutils.AlignUp(size, memutils.PageSize)),
	}
}

// Size returns the number of bytes of RAM
func (m *PhysicalMemory) Size() uintptr {
	return uintptr(len(m.data))
}

// FrameCount returns the number of frames that fit in RAM
func (m *PhysicalMemory) FrameCount() int {
	return len(m.data) >> memutils.PageShift
}

func (m *PhysicalMemory) checkRange(physAddr uintptr, size uintptr) error {
	end, ok := memutils.AddChecked(physAddr, size)
	if !ok || end > uintptr(len(m.data)) {
		return errors.Wrapf(ErrAddressOutOfRange, "access of %d bytes at 0x%x", size, physAddr)
	}
	return nil
}

// ReadWord reads the little-endian machine word stored at physAddr
func (m *PhysicalMemory) ReadWord(physAddr uintptr) (uint64, error) {
	if err := m.checkRange(physAddr, memutils.WordSize); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(m.data[physAddr:]), nil
}

// WriteWord stores value as a little-endian machine word at physAddr
func (m *PhysicalMemory) WriteWord(physAddr uintptr, value uint64) error {
	if err := m.checkRange(physAddr, memutils.WordSize); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(m.data[physAddr:], value)
	return nil
}

// Read copies len(buf) bytes starting at physAddr into buf
func (m *PhysicalMemory) Read(physAddr uintptr, buf []byte) error {
	if err := m.checkRange(physAddr, uintptr(len(buf))); err != nil {
		return err
	}
	copy(buf, m.data[physAddr:])
	return nil
}

// Write copies buf into RAM starting at physAddr
func (m *PhysicalMemory) Write(physAddr uintptr, buf []byte) error {
	if err := m.checkRange(physAddr, uintptr(len(buf))); err != nil {
		return err
	}
	copy(m.data[physAddr:], buf)
	return nil
}

// ZeroFrame clears the contents of a frame
func (m *PhysicalMemory) ZeroFrame(frame Frame) error {
	if !frame.Valid() {
		return errors.Wrapf(ErrAddressOutOfRange, "zeroing %s", frame)
	}

	addr := frame.Address()
	if err := m.checkRange(addr, memutils.PageSize); err != nil {
		return err
	}

	page := m.data[addr : addr+memutils.PageSize]
	for i := range page {
		page[i] = 0
	}
	return nil
}
