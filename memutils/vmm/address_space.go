package vmm

import (
	"encoding/binary"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/kheap/memutils"
)

// ErrPageFault is the root of every PageFault, so callers can test for it with errors.Is
var ErrPageFault = errors.New("page fault")

// PageFault describes an access to a virtual address that the page tables do not allow
type PageFault struct {
	Addr uintptr
	// Write is set if the faulting access was a store
	Write bool
	// Present is set if the page was mapped but did not permit the access
	Present bool
}

func (f *PageFault) Error() string {
	access := "read"
	if f.Write {
		access = "write"
	}

	reason := "page not present"
	if f.Present {
		reason = "protection violation"
	}

	return fmt.Sprintf("page fault: %s of 0x%x: %s", access, f.Addr, reason)
}

func (f *PageFault) Unwrap() error {
	return ErrPageFault
}

// AddressSpace reads and writes virtual memory by translating through a Mapper's page
// tables. Translations are cached in the Mapper's TLB, so mappings changed without using
// the Mapper must be followed by a TLB flush.
//
// Each access holds the Mapper's lock from translation until the bytes have been copied, so
// an AddressSpace may be shared between goroutines.
type AddressSpace struct {
	mapper *Mapper
}

// NewAddressSpace creates an AddressSpace over the hierarchy managed by mapper
func NewAddressSpace(mapper *Mapper) *AddressSpace {
	return &AddressSpace{mapper: mapper}
}

// Mapper returns the page table hierarchy this address space translates through
func (s *AddressSpace) Mapper() *Mapper {
	return s.mapper
}

func (s *AddressSpace) entryFor(page Page) (PageTableEntry, bool) {
	tlb := s.mapper.tlb
	if pte, ok := tlb.Lookup(page); ok {
		return pte, true
	}

	pte, ok := s.mapper.finalEntry(page.Address())
	if !ok {
		return 0, false
	}

	tlb.Insert(page, pte)
	return pte, true
}

func (s *AddressSpace) translateAccess(virtAddr uintptr, write bool) (uintptr, error) {
	pte, ok := s.entryFor(PageFromAddress(virtAddr))
	if !ok {
		return 0, &PageFault{Addr: virtAddr, Write: write}
	}

	if write && !pte.HasFlags(FlagRW) {
		return 0, &PageFault{Addr: virtAddr, Write: write, Present: true}
	}

	return pte.Frame().Address() + PageOffset(virtAddr), nil
}

// Read copies len(buf) bytes of virtual memory starting at virtAddr into buf
func (s *AddressSpace) Read(virtAddr uintptr, buf []byte) error {
	s.mapper.lock.Acquire()
	defer s.mapper.lock.Release()

	return s.access(virtAddr, buf, false)
}

// Write copies buf into virtual memory starting at virtAddr. Every page touched must be
// mapped writable.
func (s *AddressSpace) Write(virtAddr uintptr, buf []byte) error {
	s.mapper.lock.Acquire()
	defer s.mapper.lock.Release()

	return s.access(virtAddr, buf, true)
}

func (s *AddressSpace) access(virtAddr uintptr, buf []byte, write bool) error {
	if _, ok := memutils.AddChecked(virtAddr, uintptr(len(buf))); !ok {
		return errors.Wrapf(memutils.ErrAddressOverflow, "access of %d bytes at 0x%x", len(buf), virtAddr)
	}

	ram := s.mapper.ram
	for len(buf) > 0 {
		physAddr, err := s.translateAccess(virtAddr, write)
		if err != nil {
			return err
		}

		// Split the access at the page boundary
		chunk := memutils.PageSize - PageOffset(virtAddr)
		if chunk > uintptr(len(buf)) {
			chunk = uintptr(len(buf))
		}

		if write {
			err = ram.Write(physAddr, buf[:chunk])
		} else {
			err = ram.Read(physAddr, buf[:chunk])
		}
		if err != nil {
			return err
		}

		buf = buf[chunk:]
		virtAddr += chunk
	}

	return nil
}

// TryReadWord reads the little-endian machine word stored at virtAddr
func (s *AddressSpace) TryReadWord(virtAddr uintptr) (uint64, error) {
	s.mapper.lock.Acquire()
	defer s.mapper.lock.Release()

	if PageOffset(virtAddr)+memutils.WordSize <= memutils.PageSize {
		physAddr, err := s.translateAccess(virtAddr, false)
		if err != nil {
			return 0, err
		}
		return s.mapper.ram.ReadWord(physAddr)
	}

	var buf [memutils.WordSize]byte
	if err := s.access(virtAddr, buf[:], false); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// TryWriteWord stores value as a little-endian machine word at virtAddr
func (s *AddressSpace) TryWriteWord(virtAddr uintptr, value uint64) error {
	s.mapper.lock.Acquire()
	defer s.mapper.lock.Release()

	if PageOffset(virtAddr)+memutils.WordSize <= memutils.PageSize {
		physAddr, err := s.translateAccess(virtAddr, true)
		if err != nil {
			return err
		}
		return s.mapper.ram.WriteWord(physAddr, value)
	}

	var buf [memutils.WordSize]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	return s.access(virtAddr, buf[:], true)
}

// ReadWord reads the machine word stored at virtAddr. An access that faults panics
// with a *PageFault, the same way the CPU would raise an exception.
func (s *AddressSpace) ReadWord(virtAddr uintptr) uint64 {
	value, err := s.TryReadWord(virtAddr)
	if err != nil {
		panic(err)
	}
	return value
}

// WriteWord stores value at virtAddr. An access that faults panics with a *PageFault.
func (s *AddressSpace) WriteWord(virtAddr uintptr, value uint64) {
	if err := s.TryWriteWord(virtAddr, value); err != nil {
		panic(err)
	}
}
