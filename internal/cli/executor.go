package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alon-nissan/robotaste-sub000/internal/wire"
)

// ExecutorCmd returns the executor command
func ExecutorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "executor",
		Short: "Run the hardware operation executor",
	}

	cmd.AddCommand(executorRunCmd())
	return cmd
}

func executorRunCmd() *cobra.Command {
	var pollSeconds float64

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drain the operation queue against the hardware",
		Long: `Poll the operation queue and execute pending hardware operations, one at
a time in creation order. Runs until interrupted; intended to live in its
own terminal or service unit alongside the session-driving process.

Examples:
  robotaste executor run
  robotaste executor run --poll 0.5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			executor := wire.Executor()
			if pollSeconds > 0 {
				executor.SetPollInterval(time.Duration(pollSeconds * float64(time.Second)))
			}
			logger := log.New(os.Stderr, "executor: ", log.LstdFlags)
			executor.Logf = logger.Printf

			fmt.Println("Executor running; Ctrl-C to stop.")
			err := executor.Run(ctx)
			if errors.Is(err, context.Canceled) {
				fmt.Println("Executor stopped.")
				wire.DeviceManager().CleanupAll()
				return nil
			}
			return err
		},
	}

	cmd.Flags().Float64Var(&pollSeconds, "poll", 0, "Empty-queue poll interval in seconds")
	return cmd
}
