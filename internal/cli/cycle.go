package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/alon-nissan/robotaste-sub000/internal/ports/primary"
	"github.com/alon-nissan/robotaste-sub000/internal/wire"
)

// CycleCmd returns the cycle command
func CycleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Prepare samples",
		Long: `Run or enqueue the prepare-one-sample sequence for a session cycle:
position at the dispense point, dispense, mix, deliver to the pickup point.`,
	}

	cmd.AddCommand(cycleRunCmd())
	cmd.AddCommand(cycleEnqueueCmd())
	cmd.AddCommand(cycleStatusCmd())

	return cmd
}

func cycleRunCmd() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "run [session-id] [cycle-number]",
		Short: "Prepare a sample synchronously",
		Long: `Prepare a sample synchronously, driving the device directly and
blocking until the sequence finishes.

Examples:
  robotaste cycle run SESS-001 1 --target '{"sucrose_mM": 50}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cycleNumber, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid cycle number %q", args[1])
			}

			result, runErr := wire.CycleService().RunCycle(context.Background(), primary.RunCycleRequest{
				SessionID:   args[0],
				CycleNumber: cycleNumber,
				Target:      target,
			})
			if result != nil {
				printCycleResult(result)
			}
			if runErr != nil {
				return fmt.Errorf("cycle failed: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "Target concentrations as JSON")
	return cmd
}

func cycleEnqueueCmd() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "enqueue [session-id] [cycle-number]",
		Short: "Queue a sample preparation for the executor",
		Long: `Queue the cycle's hardware operations for the executor process.
Run 'robotaste executor run' in another terminal to drain the queue.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cycleNumber, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid cycle number %q", args[1])
			}

			resp, err := wire.CycleService().EnqueueCycle(context.Background(), primary.RunCycleRequest{
				SessionID:   args[0],
				CycleNumber: cycleNumber,
				Target:      target,
			})
			if err != nil {
				return fmt.Errorf("failed to enqueue cycle: %w", err)
			}

			fmt.Printf("✓ Queued %d operations for cycle %d of %s:", len(resp.OperationIDs), cycleNumber, args[0])
			for _, id := range resp.OperationIDs {
				fmt.Printf(" %d", id)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "Target concentrations as JSON")
	return cmd
}

func cycleStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [session-id] [cycle-number]",
		Short: "Report a queued cycle's progress",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cycleNumber, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid cycle number %q", args[1])
			}

			status, err := wire.CycleService().CycleStatus(context.Background(), args[0], cycleNumber)
			if err != nil {
				return fmt.Errorf("failed to get cycle status: %w", err)
			}

			if !status.Complete {
				fmt.Printf("Cycle %d of %s: in progress\n", cycleNumber, args[0])
				return nil
			}
			if len(status.Failed) == 0 {
				color.New(color.FgHiGreen).Printf("Cycle %d of %s: complete\n", cycleNumber, args[0])
				return nil
			}

			color.New(color.FgRed).Printf("Cycle %d of %s: finished with failures\n", cycleNumber, args[0])
			for _, reason := range status.Failed {
				fmt.Printf("  ✗ %s\n", reason)
			}
			return nil
		},
	}
}

func printCycleResult(result *primary.CycleResult) {
	for _, step := range result.Steps {
		switch step.Status {
		case primary.StepCompleted:
			fmt.Printf("  ✓ %s\n", step.Name)
		case primary.StepSkipped:
			if step.Error != "" {
				color.New(color.FgYellow).Printf("  ⚠ %s skipped: %s\n", step.Name, step.Error)
			} else {
				fmt.Printf("  - %s skipped\n", step.Name)
			}
		case primary.StepFailed:
			color.New(color.FgRed).Printf("  ✗ %s: %s\n", step.Name, step.Error)
		case primary.StepNotRun:
			fmt.Printf("  - %s not run\n", step.Name)
		}
	}
	fmt.Printf("Elapsed: %s\n", result.Duration.Round(10*time.Millisecond))
}
