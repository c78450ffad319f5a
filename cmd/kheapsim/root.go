package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/vkngwrapper/kheap/kernel"
	"github.com/vkngwrapper/kheap/memutils"
	"github.com/vkngwrapper/kheap/memutils/heap"
	"golang.org/x/exp/slog"
)

// globalOptions holds the persistent flags shared by every subcommand
type globalOptions struct {
	verbose    bool
	jsonOut    bool
	heapSize   uint64
	memorySize uint64
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "kheapsim",
		Short: "Boot a modelled machine and exercise its kernel heap",
		Long: `kheapsim boots a modelled x86_64 machine: it lays out physical memory from a
firmware memory map, builds a four-level page table hierarchy, maps the kernel heap
and hands it to the allocation strategy selected at build time.

Build with -tags kheap_bump or -tags kheap_linked_list to select a different strategy.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().Uint64Var(&opts.heapSize, "heap-size", uint64(kernel.HeapSize), "Size of the kernel heap in bytes")
	rootCmd.PersistentFlags().Uint64Var(&opts.memorySize, "memory-size", uint64(8*memutils.Mb), "Size of physical memory in bytes")

	rootCmd.AddCommand(
		newBootCmd(opts),
		newRunCmd(opts),
		newStatsCmd(opts),
	)
	return rootCmd
}

func execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (o *globalOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *globalOptions) boot(cmd *cobra.Command) (*kernel.Machine[*heap.DefaultStrategy], error) {
	return kernel.NewMachine(o.logger(cmd.ErrOrStderr()), kernel.CreateOptions{
		HeapSize:           uintptr(o.heapSize),
		PhysicalMemorySize: uintptr(o.memorySize),
	})
}
