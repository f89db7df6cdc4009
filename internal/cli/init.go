// Package cli provides the CLI commands for the robotaste application.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alon-nissan/robotaste-sub000/internal/config"
	"github.com/alon-nissan/robotaste-sub000/internal/db"
)

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	var demo bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the robotaste database",
		Long: `Initialize the robotaste database at ~/.robotaste/robotaste.db with the
required schema, and write a default config.json next to it.

Examples:
  robotaste init
  robotaste init --demo   # also seed a mock protocol and session`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, err := db.GetDBPath()
			if err != nil {
				return fmt.Errorf("failed to get database path: %w", err)
			}

			fmt.Printf("Initializing robotaste database at %s\n", dbPath)

			if err := db.InitSchema(); err != nil {
				return fmt.Errorf("failed to initialize schema: %w", err)
			}
			fmt.Println("✓ Database initialized successfully")

			if err := initConfig(); err != nil {
				return fmt.Errorf("failed to initialize config: %w", err)
			}
			fmt.Println("✓ Config file created at ~/.robotaste/config.json")

			if demo {
				database, err := db.GetDB()
				if err != nil {
					return fmt.Errorf("failed to open database: %w", err)
				}
				if err := db.SeedFixtures(database); err != nil {
					return fmt.Errorf("failed to seed demo fixtures: %w", err)
				}
				fmt.Println("✓ Demo protocol and session seeded")
			}

			fmt.Println()
			fmt.Println("Next steps:")
			fmt.Println("  robotaste protocol import my-protocol.yaml")
			fmt.Println("  robotaste session create PROT-001")

			return nil
		},
	}

	cmd.Flags().BoolVar(&demo, "demo", false, "Seed a mock-mode demo protocol and session")
	return cmd
}

// initConfig writes the default config.json unless one already exists.
func initConfig() error {
	dir, err := config.Dir()
	if err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(dir, "config.json")); err == nil {
		return nil
	}
	return config.Save(dir, config.Default())
}
