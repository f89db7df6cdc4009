package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alon-nissan/robotaste-sub000/internal/cli"
	"github.com/alon-nissan/robotaste-sub000/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "robotaste",
		Short:   "robotaste - taste experiment orchestration",
		Version: version.String(),
		Long: `robotaste drives taste experiments: declarative phase sequences, sample
preparation cycles on the conveyor/mixing rig, and a durable hardware
operation queue drained by an independent executor process.`,
	}

	// Add subcommands
	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.DoctorCmd())
	rootCmd.AddCommand(cli.ProtocolCmd())
	rootCmd.AddCommand(cli.SessionCmd())
	rootCmd.AddCommand(cli.CycleCmd())
	rootCmd.AddCommand(cli.QueueCmd())
	rootCmd.AddCommand(cli.ExecutorCmd())
	rootCmd.AddCommand(cli.DeviceCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
