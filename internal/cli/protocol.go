package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alon-nissan/robotaste-sub000/internal/ports/primary"
	"github.com/alon-nissan/robotaste-sub000/internal/wire"
)

// ProtocolCmd returns the protocol command
func ProtocolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "protocol",
		Short: "Manage experiment protocols",
		Long:  `Import and inspect experiment protocols (hardware settings, mixing, phase sequence).`,
	}

	cmd.AddCommand(protocolImportCmd())
	cmd.AddCommand(protocolListCmd())
	cmd.AddCommand(protocolShowCmd())

	return cmd
}

func protocolImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file.yaml]",
		Short: "Import a protocol from a YAML definition",
		Long: `Import a protocol from a YAML definition file.

Examples:
  robotaste protocol import sucrose-pilot.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read protocol file: %w", err)
			}

			resp, err := wire.ProtocolService().ImportProtocol(ctx, primary.ImportProtocolRequest{
				YAML: data,
			})
			if err != nil {
				return fmt.Errorf("failed to import protocol: %w", err)
			}

			fmt.Printf("✓ Imported protocol %s: %s\n", resp.ProtocolID, resp.Protocol.Name)
			return nil
		},
	}
}

func protocolListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all protocols",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			protocols, err := wire.ProtocolService().ListProtocols(ctx)
			if err != nil {
				return fmt.Errorf("failed to list protocols: %w", err)
			}

			if len(protocols) == 0 {
				fmt.Println("No protocols found.")
				fmt.Println()
				fmt.Println("Import your first protocol:")
				fmt.Println("  robotaste protocol import my-protocol.yaml")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tHARDWARE\tMIXING\tCYCLES\tPHASES")
			fmt.Fprintln(w, "--\t----\t--------\t------\t------\t------")

			for _, p := range protocols {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
					p.ID,
					p.Name,
					hardwareLabel(p),
					enabledLabel(p.MixingEnabled),
					p.MaxCycles,
					p.PhaseCount,
				)
			}

			w.Flush()
			return nil
		},
	}
}

func protocolShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [protocol-id]",
		Short: "Show protocol details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			p, err := wire.ProtocolService().GetProtocol(ctx, args[0])
			if err != nil {
				return fmt.Errorf("protocol not found: %w", err)
			}

			fmt.Printf("Protocol: %s\n", p.ID)
			fmt.Printf("Name: %s\n", p.Name)
			fmt.Printf("Hardware: %s\n", hardwareLabel(p))
			if p.HardwareEnabled && !p.MockMode {
				fmt.Printf("Serial port: %s @ %d baud\n", p.SerialPort, p.BaudRate)
				fmt.Printf("Timeouts: command %.1fs, move %.1fs\n", p.CommandTimeoutSeconds, p.MoveTimeoutSeconds)
			}
			fmt.Printf("Mixing: %s", enabledLabel(p.MixingEnabled))
			if p.MixingEnabled {
				fmt.Printf(" (%d oscillations)", p.MixOscillations)
			}
			fmt.Println()
			fmt.Printf("Max cycles: %d\n", p.MaxCycles)
			fmt.Printf("Phases: %d\n", p.PhaseCount)
			fmt.Printf("Created: %s\n", p.CreatedAt)
			return nil
		},
	}
}

func hardwareLabel(p *primary.Protocol) string {
	switch {
	case !p.HardwareEnabled:
		return "disabled"
	case p.MockMode:
		return "mock"
	default:
		return "serial"
	}
}

func enabledLabel(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
