package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/kheap/kernel"
	"github.com/vkngwrapper/kheap/memutils/heap"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), err
}

func TestBootCommand(t *testing.T) {
	out, err := executeCommand(t, "boot", "--heap-size", "16384")
	require.NoError(t, err)

	require.Contains(t, out, "Memory map:")
	require.Contains(t, out, "usable")
	require.Contains(t, out, "kernel")
	require.Contains(t, out, "Strategy: "+heap.DefaultStrategyName)
	require.Contains(t, out, "Size:     16384 bytes")
	require.Contains(t, out, "Mapped pages:     4")
}

func TestBootCommandJSON(t *testing.T) {
	out, err := executeCommand(t, "boot", "--heap-size", "16384", "--json")
	require.NoError(t, err)

	require.Contains(t, out, `"Strategy":"`+heap.DefaultStrategyName+`"`)
	require.Contains(t, out, `"HeapSize":16384`)
	require.Contains(t, out, `"MappedPages":4`)
	require.Contains(t, out, `"Type":"reserved"`)
}

func TestBootCommandInvalidHeap(t *testing.T) {
	_, err := executeCommand(t, "boot", "--heap-size", "67108864", "--memory-size", "4194304")
	require.Error(t, err)
	require.Contains(t, err.Error(), "boot failed")
}

func TestRunCommand(t *testing.T) {
	out, err := executeCommand(t, "run", "--heap-size", "16384", "--count", "2000")
	require.NoError(t, err)

	require.Contains(t, out, "ok   box_allocation")
	require.Contains(t, out, "ok   list_allocation")
	require.Contains(t, out, "ok   multiple_boxes_allocation")
	require.NotContains(t, out, "FAIL")
}

func TestRunCommandSingleTest(t *testing.T) {
	out, err := executeCommand(t, "run", "--heap-size", "16384", "--test", "box_allocation")
	require.NoError(t, err)
	require.Equal(t, "ok   box_allocation\n", out)
}

func TestRunCommandUnknownTest(t *testing.T) {
	out, err := executeCommand(t, "run", "--heap-size", "16384", "--test", "nope")
	require.ErrorIs(t, err, kernel.ErrUnknownSelfTest)
	require.Contains(t, err.Error(), `"nope"`)
	require.Empty(t, out)
}

func TestStatsCommand(t *testing.T) {
	out, err := executeCommand(t, "stats", "--heap-size", "16384", "--live", "3")
	require.NoError(t, err)

	require.Contains(t, out, "Heap ("+heap.DefaultStrategyName+"):")
	require.Contains(t, out, "Allocations:      3")
	require.Contains(t, out, "Frames allocated:")
}

func TestStatsCommandJSON(t *testing.T) {
	out, err := executeCommand(t, "stats", "--heap-size", "16384", "--live", "3", "--json")
	require.NoError(t, err)

	require.Contains(t, out, `"Initialized":true`)
	require.Contains(t, out, `"Allocations":3`)
	require.Contains(t, out, `"TLB":{`)
}

func TestRejectsPositionalArguments(t *testing.T) {
	_, err := executeCommand(t, "stats", "extra")
	require.Error(t, err)
}
