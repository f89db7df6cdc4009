package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/alon-nissan/robotaste-sub000/internal/config"
	"github.com/alon-nissan/robotaste-sub000/internal/device"
)

// DeviceCmd returns the device command for manual rig control
func DeviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Drive the rig manually",
		Long: `Drive the conveyor/mixing rig directly, outside any session. Useful for
bring-up, calibration, and unsticking a stranded cup.`,
	}

	cmd.AddCommand(deviceStatusCmd())
	cmd.AddCommand(deviceMoveCmd())
	cmd.AddCommand(deviceMixCmd())
	cmd.AddCommand(deviceStopCmd())

	return cmd
}

// deviceFlags binds the shared transport flags and dials a one-shot client.
type deviceFlags struct {
	port string
	baud int
	mock bool
}

func (f *deviceFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.port, "port", "", "Serial port (defaults to config)")
	cmd.Flags().IntVar(&f.baud, "baud", 0, "Baud rate (defaults to config)")
	cmd.Flags().BoolVar(&f.mock, "mock", false, "Use the in-memory mock rig")
}

func (f *deviceFlags) connect() (device.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	clientCfg := device.Config{
		Port:           cfg.SerialPort,
		BaudRate:       cfg.BaudRate,
		CommandTimeout: 5 * time.Second,
		MoveTimeout:    30 * time.Second,
		Mock:           f.mock || cfg.MockHardware,
	}
	if f.port != "" {
		clientCfg.Port = f.port
	}
	if f.baud > 0 {
		clientCfg.BaudRate = f.baud
	}

	if err := clientCfg.Validate(); err != nil {
		return nil, err
	}

	client := device.New(clientCfg)
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return client, nil
}

func deviceStatusCmd() *cobra.Command {
	var flags deviceFlags

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query the rig's status and position",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.connect()
			if err != nil {
				return err
			}
			defer client.Close()

			status, err := client.QueryStatus()
			if err != nil {
				return fmt.Errorf("failed to query status: %w", err)
			}
			position, err := client.QueryPosition()
			if err != nil {
				return fmt.Errorf("failed to query position: %w", err)
			}

			fmt.Printf("Status: %s\n", status)
			fmt.Printf("Position: %s\n", position)
			return nil
		},
	}

	flags.bind(cmd)
	return cmd
}

func deviceMoveCmd() *cobra.Command {
	var flags deviceFlags
	var noWait bool

	cmd := &cobra.Command{
		Use:   "move [spout|display]",
		Short: "Move the carriage to a position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.connect()
			if err != nil {
				return err
			}
			defer client.Close()

			switch args[0] {
			case "spout":
				err = client.MoveToSpout(!noWait)
			case "display":
				err = client.MoveToDisplay(!noWait)
			default:
				return fmt.Errorf("unknown position %q, want spout or display", args[0])
			}
			if err != nil {
				return fmt.Errorf("move failed: %w", err)
			}

			fmt.Printf("✓ Carriage at %s\n", args[0])
			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Issue the command without waiting for arrival")
	return cmd
}

func deviceMixCmd() *cobra.Command {
	var flags deviceFlags

	cmd := &cobra.Command{
		Use:   "mix [oscillations]",
		Short: "Oscillate the carriage to mix the sample",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			oscillations, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid oscillation count %q", args[0])
			}

			client, err := flags.connect()
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Mix(oscillations, true); err != nil {
				return fmt.Errorf("mix failed: %w", err)
			}

			fmt.Printf("✓ Mixed with %d oscillations\n", oscillations)
			return nil
		},
	}

	flags.bind(cmd)
	return cmd
}

func deviceStopCmd() *cobra.Command {
	var flags deviceFlags

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Halt the rig immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.connect()
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Stop(); err != nil {
				return fmt.Errorf("stop failed: %w", err)
			}

			fmt.Println("✓ Rig halted")
			return nil
		},
	}

	flags.bind(cmd)
	return cmd
}
