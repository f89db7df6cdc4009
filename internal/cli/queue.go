package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alon-nissan/robotaste-sub000/internal/ports/primary"
	"github.com/alon-nissan/robotaste-sub000/internal/wire"
)

// QueueCmd returns the queue command
func QueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the hardware operation queue",
	}

	cmd.AddCommand(queueListCmd())
	cmd.AddCommand(queueLogsCmd())

	return cmd
}

func queueListCmd() *cobra.Command {
	var sessionID, status string
	var cycleNumber, limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued hardware operations, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			operations, err := wire.QueueService().ListOperations(ctx, primary.OperationFilters{
				SessionID:   sessionID,
				CycleNumber: cycleNumber,
				Status:      status,
				Limit:       limit,
			})
			if err != nil {
				return fmt.Errorf("failed to list operations: %w", err)
			}

			if len(operations) == 0 {
				fmt.Println("No operations found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tSESSION\tCYCLE\tTYPE\tSTATUS\tERROR")
			fmt.Fprintln(w, "--\t-------\t-----\t----\t------\t-----")

			for _, op := range operations {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n",
					op.ID,
					op.SessionID,
					op.CycleNumber,
					op.OperationType,
					op.Status,
					op.ErrorMessage,
				)
			}

			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Filter by session ID")
	cmd.Flags().IntVar(&cycleNumber, "cycle", 0, "Filter by cycle number")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	cmd.Flags().IntVar(&limit, "limit", 0, "Limit the number of rows")
	return cmd
}

func queueLogsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logs [operation-id]",
		Short: "Show an operation's raw command/response exchanges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			operationID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid operation ID %q", args[0])
			}

			logs, err := wire.QueueService().OperationLogs(context.Background(), operationID)
			if err != nil {
				return fmt.Errorf("failed to get operation logs: %w", err)
			}

			if len(logs) == 0 {
				fmt.Println("No exchanges recorded.")
				return nil
			}

			for _, entry := range logs {
				marker := "✓"
				if !entry.Success {
					marker = "✗"
				}
				fmt.Printf("%s [%s] > %s\n", marker, entry.Timestamp, entry.Command)
				if entry.Response != "" {
					fmt.Printf("             < %s\n", entry.Response)
				}
				if entry.ErrorMessage != "" {
					fmt.Printf("             ! %s\n", entry.ErrorMessage)
				}
			}
			return nil
		},
	}
}
