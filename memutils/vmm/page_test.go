package vmm_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/kheap/memutils/pmm"
	"github.com/vkngwrapper/kheap/memutils/vmm"
)

func TestPageFromAddress(t *testing.T) {
	cases := []struct {
		input   uintptr
		expPage vmm.Page
	}{
		{0, vmm.Page(0)},
		{4095, vmm.Page(0)},
		{4096, vmm.Page(1)},
		{4123, vmm.Page(1)},
		{0x_4444_4444_0000, vmm.Page(0x4_4444_4440)},
	}

	for caseIndex, tc := range cases {
		require.Equal(t, tc.expPage, vmm.PageFromAddress(tc.input), "case %d", caseIndex)
	}

	require.Equal(t, uintptr(0x2000), vmm.Page(2).Address())
	require.Equal(t, "Page(0x2000)", vmm.Page(2).String())
	require.Equal(t, uintptr(0x123), vmm.PageOffset(0x7123))
}

func TestPageRange(t *testing.T) {
	first, count := vmm.PageRange(0x_4444_4444_0000, 100*1024)
	require.Equal(t, vmm.PageFromAddress(0x_4444_4444_0000), first)
	require.Equal(t, 25, count)

	_, count = vmm.PageRange(0x1ff8, 16)
	require.Equal(t, 2, count)

	_, count = vmm.PageRange(0x1000, 0)
	require.Equal(t, 0, count)
}

func TestIsCanonical(t *testing.T) {
	require.True(t, vmm.IsCanonical(0))
	require.True(t, vmm.IsCanonical(0x0000_7fff_ffff_ffff))
	require.False(t, vmm.IsCanonical(0x0000_8000_0000_0000))
	require.False(t, vmm.IsCanonical(0xffff_7fff_ffff_ffff))
	require.True(t, vmm.IsCanonical(0xffff_8000_0000_0000))
	require.True(t, vmm.IsCanonical(0xffff_ffff_ffff_ffff))
}

func TestPageTableEntryFlags(t *testing.T) {
	var pte vmm.PageTableEntry
	require.True(t, pte.IsUnused())
	require.Equal(t, "None", pte.Flags().String())

	pte.SetFlags(vmm.FlagPresent | vmm.FlagRW | vmm.FlagNoExecute)
	pte.SetFrame(pmm.Frame(0x123))

	require.True(t, pte.HasFlags(vmm.FlagPresent|vmm.FlagRW))
	require.False(t, pte.HasFlags(vmm.FlagPresent|vmm.FlagHugePage))
	require.True(t, pte.HasAnyFlag(vmm.FlagPresent|vmm.FlagHugePage))
	require.Equal(t, pmm.Frame(0x123), pte.Frame())
	require.Equal(t, "Present|RW|NoExecute", pte.Flags().String())

	pte.ClearFlags(vmm.FlagRW)
	require.False(t, pte.HasFlags(vmm.FlagRW))
	require.Equal(t, pmm.Frame(0x123), pte.Frame())

	pte.SetFrame(pmm.Frame(0x456))
	require.Equal(t, pmm.Frame(0x456), pte.Frame())
	require.True(t, pte.HasFlags(vmm.FlagPresent|vmm.FlagNoExecute))
}
