package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vkngwrapper/kheap/kernel"
)

func newRunCmd(opts *globalOptions) *cobra.Command {
	var (
		count uint64
		only  string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the heap self tests",
		Long: `The run command boots the machine and runs every heap self test against it:
boxed values, a growing vector of 1000 words, and one boxed value per heap byte,
with and without a long-lived allocation.

Example:
  kheapsim run
  kheapsim run --test box_allocation
  kheapsim run --count 1000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelfTests(cmd, opts, count, only)
		},
	}

	cmd.Flags().Uint64Var(&count, "count", 0, "Number of boxes allocated by the multiple boxes tests (defaults to the heap size)")
	cmd.Flags().StringVar(&only, "test", "", "Run only the named self test")
	return cmd
}

func runSelfTests(cmd *cobra.Command, opts *globalOptions, count uint64, only string) error {
	m, err := opts.boot(cmd)
	if err != nil {
		return fmt.Errorf("boot failed: %w", err)
	}

	if count == 0 {
		count = uint64(m.HeapSize())
	}

	var names []string
	if only != "" {
		names = append(names, only)
	}

	logger := opts.logger(cmd.ErrOrStderr())
	strategy := m.Allocator().Name()
	results, runErr := kernel.RunSelfTests(logger, m.Allocator(), m.Memory(), strategy, uintptr(count), names...)

	out := cmd.OutOrStdout()
	for _, result := range results {
		switch result.Outcome {
		case kernel.SelfTestPassed:
			fmt.Fprintf(out, "ok   %s\n", result.Name)
		case kernel.SelfTestSkipped:
			fmt.Fprintf(out, "SKIP %s (%s never reuses live memory)\n", result.Name, strategy)
		case kernel.SelfTestFailed:
			fmt.Fprintf(out, "FAIL %s\n", result.Name)
		}
	}
	if runErr != nil {
		return runErr
	}

	if err := m.Allocator().Validate(); err != nil {
		return fmt.Errorf("heap is inconsistent after self tests: %w", err)
	}
	return nil
}
