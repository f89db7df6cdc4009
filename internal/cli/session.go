package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/alon-nissan/robotaste-sub000/internal/ports/primary"
	"github.com/alon-nissan/robotaste-sub000/internal/wire"
)

// SessionCmd returns the session command
func SessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage experiment sessions",
		Long:  `Create and drive experiment sessions: phase transitions, questionnaire responses, completion.`,
	}

	cmd.AddCommand(sessionCreateCmd())
	cmd.AddCommand(sessionListCmd())
	cmd.AddCommand(sessionShowCmd())
	cmd.AddCommand(sessionAdvanceCmd())
	cmd.AddCommand(sessionRespondCmd())
	cmd.AddCommand(sessionCompleteCmd())
	cmd.AddCommand(sessionAbortCmd())
	cmd.AddCommand(sessionCleanupCmd())

	return cmd
}

func sessionCreateCmd() *cobra.Command {
	var subjectCode string

	cmd := &cobra.Command{
		Use:   "create [protocol-id]",
		Short: "Create a new session for a protocol",
		Long: `Create a new session for a protocol.

Examples:
  robotaste session create PROT-001
  robotaste session create PROT-001 --subject SUB-042`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			resp, err := wire.SessionService().CreateSession(ctx, primary.CreateSessionRequest{
				ProtocolID:  args[0],
				SubjectCode: subjectCode,
			})
			if err != nil {
				return fmt.Errorf("failed to create session: %w", err)
			}

			fmt.Printf("✓ Created session %s (phase: %s)\n", resp.SessionID, resp.Session.CurrentPhase)
			if resp.SequenceFallback {
				color.New(color.FgYellow).Println("⚠ Protocol phase sequence missing or malformed; using the default sequence")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&subjectCode, "subject", "", "Anonymized subject code")
	return cmd
}

func sessionListCmd() *cobra.Command {
	var protocolID, state string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			sessions, err := wire.SessionService().ListSessions(ctx, primary.SessionFilters{
				ProtocolID: protocolID,
				State:      state,
			})
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}

			if len(sessions) == 0 {
				fmt.Println("No sessions found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tPROTOCOL\tSUBJECT\tPHASE\tCYCLE\tSTATE")
			fmt.Fprintln(w, "--\t--------\t-------\t-----\t-----\t-----")

			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					s.ID,
					s.ProtocolID,
					s.SubjectCode,
					s.CurrentPhase,
					s.CurrentCycle,
					stateLabel(s.State),
				)
			}

			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVar(&protocolID, "protocol", "", "Filter by protocol ID")
	cmd.Flags().StringVar(&state, "state", "", "Filter by state (active, completed, aborted)")
	return cmd
}

func sessionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [session-id]",
		Short: "Show session details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			s, err := wire.SessionService().GetSession(ctx, args[0])
			if err != nil {
				return fmt.Errorf("session not found: %w", err)
			}

			fmt.Printf("Session: %s\n", s.ID)
			fmt.Printf("Protocol: %s\n", s.ProtocolID)
			if s.SubjectCode != "" {
				fmt.Printf("Subject: %s\n", s.SubjectCode)
			}
			fmt.Printf("Phase: %s\n", s.CurrentPhase)
			fmt.Printf("Cycle: %d\n", s.CurrentCycle)
			fmt.Printf("State: %s\n", stateLabel(s.State))
			fmt.Printf("Created: %s\n", s.CreatedAt)
			if s.CompletedAt != "" {
				fmt.Printf("Completed: %s\n", s.CompletedAt)
			}
			return nil
		},
	}
}

func sessionAdvanceCmd() *cobra.Command {
	var skipOptional bool

	cmd := &cobra.Command{
		Use:   "advance [session-id]",
		Short: "Advance the session to its next phase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			resp, err := wire.SessionService().AdvancePhase(ctx, primary.AdvancePhaseRequest{
				SessionID:    args[0],
				SkipOptional: skipOptional,
			})
			if err != nil {
				return fmt.Errorf("failed to advance phase: %w", err)
			}

			printTransition(resp)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipOptional, "skip-optional", false, "Skip non-required phases")
	return cmd
}

func sessionRespondCmd() *cobra.Command {
	var skipOptional bool

	cmd := &cobra.Command{
		Use:   "respond [session-id] [response-json]",
		Short: "Record the questionnaire response for the current cycle",
		Long: `Record the subject's questionnaire response for the current cycle and
advance: back into selection for another cycle, or out of the loop when the
protocol's cycle budget is spent.

Examples:
  robotaste session respond SESS-001 '{"liking": 7}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			resp, err := wire.SessionService().CompleteQuestionnaire(ctx, primary.CompleteQuestionnaireRequest{
				SessionID:    args[0],
				Response:     args[1],
				SkipOptional: skipOptional,
			})
			if err != nil {
				return fmt.Errorf("failed to record response: %w", err)
			}

			if resp.LoopExited {
				color.New(color.FgHiGreen).Printf("✓ Cycle budget spent; leaving the experiment loop\n")
			}
			printTransition(resp)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipOptional, "skip-optional", false, "Skip non-required phases")
	return cmd
}

func sessionCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete [session-id]",
		Short: "Mark a session completed and release its hardware connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := wire.SessionService().CompleteSession(context.Background(), args[0]); err != nil {
				return fmt.Errorf("failed to complete session: %w", err)
			}
			fmt.Printf("✓ Session %s completed\n", args[0])
			return nil
		},
	}
}

func sessionAbortCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "abort [session-id]",
		Short: "Abort a session and release its hardware connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := wire.SessionService().AbortSession(context.Background(), args[0]); err != nil {
				return fmt.Errorf("failed to abort session: %w", err)
			}
			fmt.Printf("✓ Session %s aborted\n", args[0])
			return nil
		},
	}
}

func sessionCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup [session-id]",
		Short: "Release a session's cached device connection",
		Long: `Release a session's cached device connection without changing the
session itself. The next hardware operation dials a fresh connection.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := wire.DeviceManager().Cleanup(args[0]); err != nil {
				return fmt.Errorf("failed to release connection: %w", err)
			}
			fmt.Printf("✓ Released device connection for %s\n", args[0])
			return nil
		},
	}
}

func printTransition(resp *primary.AdvancePhaseResponse) {
	fmt.Printf("✓ Session %s is now in phase %s (cycle %d)\n", resp.SessionID, resp.Phase, resp.CurrentCycle)
	if resp.AutoAdvance {
		fmt.Printf("  auto-advances after %dms\n", resp.DurationMs)
	}
	if resp.Content != "" {
		fmt.Printf("  content: %s\n", resp.Content)
	}
}

func stateLabel(state string) string {
	switch state {
	case "active":
		return color.New(color.FgHiGreen).Sprint(state)
	case "aborted":
		return color.New(color.FgRed).Sprint(state)
	default:
		return state
	}
}
