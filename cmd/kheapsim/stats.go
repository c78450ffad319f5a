package main

import (
	"fmt"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/kheap/collections"
)

func newStatsCmd(opts *globalOptions) *cobra.Command {
	var live int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show heap statistics",
		Long: `The stats command boots the machine, optionally leaves a number of boxed
values live in the heap, and reports allocator, page table and frame statistics.

Example:
  kheapsim stats
  kheapsim stats --live 100 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, opts, live)
		},
	}

	cmd.Flags().IntVar(&live, "live", 0, "Number of boxed values to leave allocated")
	return cmd
}

func runStats(cmd *cobra.Command, opts *globalOptions, live int) error {
	m, err := opts.boot(cmd)
	if err != nil {
		return fmt.Errorf("boot failed: %w", err)
	}

	for i := 0; i < live; i++ {
		if _, err := collections.NewBox(m.Allocator(), m.Memory(), uint64(i)); err != nil {
			return fmt.Errorf("box %d: %w", i, err)
		}
	}

	out := cmd.OutOrStdout()
	if opts.jsonOut {
		writer := jwriter.NewWriter()
		m.BuildStatsString(&writer)
		if err := writer.Error(); err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(writer.Bytes()))
		return err
	}

	stats := m.Allocator().DetailedStatistics()
	tlb := m.Mapper().TLB().Statistics()

	fmt.Fprintf(out, "Heap (%s):\n", m.Allocator().Name())
	fmt.Fprintf(out, "  Region bytes:     %d\n", stats.RegionBytes)
	fmt.Fprintf(out, "  Allocations:      %d\n", stats.AllocationCount)
	fmt.Fprintf(out, "  Allocated bytes:  %d\n", stats.AllocationBytes)
	fmt.Fprintf(out, "  Free bytes:       %d\n", stats.FreeBytes)
	fmt.Fprintf(out, "  Free ranges:      %d\n", stats.FreeRangeCount)
	if stats.FreeRangeCount > 0 {
		fmt.Fprintf(out, "  Free range sizes: %d - %d\n", stats.FreeRangeSizeMin, stats.FreeRangeSizeMax)
	}

	fmt.Fprintf(out, "\nTranslation cache:\n")
	fmt.Fprintf(out, "  Entries: %d\n", m.Mapper().TLB().Len())
	fmt.Fprintf(out, "  Hits:    %d\n", tlb.Hits)
	fmt.Fprintf(out, "  Misses:  %d\n", tlb.Misses)
	fmt.Fprintf(out, "  Flushes: %d\n", tlb.Flushes)

	fmt.Fprintf(out, "\nFrames allocated: %d of %d\n", m.Frames().AllocatedFrames(), m.Frames().UsableFrames())
	return nil
}
