package main

import (
	"fmt"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/spf13/cobra"
)

func newBootCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "boot",
		Short: "Boot the machine and describe its memory layout",
		Long: `The boot command boots the machine, then prints the firmware memory map,
the frames consumed while mapping the heap and the heap extents.

Example:
  kheapsim boot
  kheapsim boot --heap-size 65536 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoot(cmd, opts)
		},
	}
}

func runBoot(cmd *cobra.Command, opts *globalOptions) error {
	m, err := opts.boot(cmd)
	if err != nil {
		return fmt.Errorf("boot failed: %w", err)
	}

	out := cmd.OutOrStdout()
	mappedPages, err := m.Mapper().MappedPages()
	if err != nil {
		return err
	}

	if opts.jsonOut {
		writer := jwriter.NewWriter()
		obj := writer.Object()

		regions := obj.Name("MemoryMap").Array()
		for _, region := range m.MemoryMap() {
			regionObj := regions.Object()
			regionObj.Name("Start").Int(int(region.Start))
			regionObj.Name("Length").Int(int(region.Length))
			regionObj.Name("Type").String(region.Type.String())
			regionObj.End()
		}
		regions.End()

		obj.Name("Strategy").String(m.Allocator().Name())
		obj.Name("HeapStart").Int(int(m.HeapStart()))
		obj.Name("HeapSize").Int(int(m.HeapSize()))
		obj.Name("MappedPages").Int(mappedPages)
		obj.Name("AllocatedFrames").Int(int(m.Frames().AllocatedFrames()))
		obj.Name("RootTable").Int(int(m.Mapper().Root().Address()))
		obj.End()

		if err := writer.Error(); err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(writer.Bytes()))
		return err
	}

	fmt.Fprintf(out, "Memory map:\n")
	for _, region := range m.MemoryMap() {
		fmt.Fprintf(out, "  [0x%010x - 0x%010x) %-16s %d KB\n",
			region.Start, region.End(), region.Type, region.Length/1024)
	}

	fmt.Fprintf(out, "\nPage tables:\n")
	fmt.Fprintf(out, "  Root table:       %s\n", m.Mapper().Root())
	fmt.Fprintf(out, "  Mapped pages:     %d\n", mappedPages)
	fmt.Fprintf(out, "  Frames allocated: %d of %d\n", m.Frames().AllocatedFrames(), m.Frames().UsableFrames())

	fmt.Fprintf(out, "\nHeap:\n")
	fmt.Fprintf(out, "  Strategy: %s\n", m.Allocator().Name())
	fmt.Fprintf(out, "  Region:   [0x%x - 0x%x)\n", m.HeapStart(), m.HeapStart()+m.HeapSize())
	fmt.Fprintf(out, "  Size:     %d bytes\n", m.HeapSize())
	return nil
}
