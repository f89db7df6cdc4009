package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"github.com/alon-nissan/robotaste-sub000/internal/config"
	"github.com/alon-nissan/robotaste-sub000/internal/db"
	"github.com/alon-nissan/robotaste-sub000/internal/version"
)

// CheckResult represents the outcome of a single check
type CheckResult struct {
	Name    string
	Status  string // "✓", "⚠", "✗"
	Details string // Only shown if Status != "✓"
}

// DoctorCmd returns the doctor command for environment validation
func DoctorCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate the robotaste environment",
		Long: `Environment health check for robotaste.

Validates:
- Data directory (~/.robotaste/)
- Database file and schema
- Config file
- Serial ports visible to the host

Examples:
  robotaste doctor              # Run full health check
  robotaste doctor --quiet      # Exit code only (0=healthy, 1=issues)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			results := []CheckResult{
				checkDataDir(),
				checkDatabase(),
				checkConfig(),
				checkSerialPorts(),
			}

			hasErrors := false
			for _, r := range results {
				if r.Status == "✗" {
					hasErrors = true
					break
				}
			}

			if !quiet {
				fmt.Println(version.String())
				fmt.Println()
				fmt.Println("Check              Status")
				fmt.Println("─────────────────────────")
				for _, r := range results {
					fmt.Printf("%-18s %s\n", r.Name, r.Status)
				}
				fmt.Println()

				hasDetails := false
				for _, r := range results {
					if r.Status != "✓" && r.Details != "" {
						if !hasDetails {
							fmt.Println("Details:")
							hasDetails = true
						}
						fmt.Printf("\n%s:\n%s\n", r.Name, r.Details)
					}
				}

				if hasErrors {
					fmt.Println("\n⚠ Issues found. Run 'robotaste init' to set up the environment.")
				} else {
					fmt.Println("All checks passed.")
				}
			}

			if hasErrors {
				return fmt.Errorf("environment validation failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&quiet, "quiet", false, "Suppress output, exit code only")
	return cmd
}

func checkDataDir() CheckResult {
	dir, err := config.Dir()
	if err != nil {
		return CheckResult{Name: "Data directory", Status: "✗", Details: err.Error()}
	}
	if _, err := os.Stat(dir); err != nil {
		return CheckResult{Name: "Data directory", Status: "✗", Details: fmt.Sprintf("%s does not exist", dir)}
	}
	return CheckResult{Name: "Data directory", Status: "✓"}
}

func checkDatabase() CheckResult {
	path, err := db.GetDBPath()
	if err != nil {
		return CheckResult{Name: "Database", Status: "✗", Details: err.Error()}
	}
	if _, err := os.Stat(path); err != nil {
		return CheckResult{Name: "Database", Status: "✗", Details: fmt.Sprintf("%s does not exist", path)}
	}

	database, err := db.GetDB()
	if err != nil {
		return CheckResult{Name: "Database", Status: "✗", Details: err.Error()}
	}
	var count int
	err = database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='hardware_operations'").Scan(&count)
	if err != nil || count == 0 {
		return CheckResult{Name: "Database", Status: "✗", Details: "schema missing the hardware_operations table"}
	}
	return CheckResult{Name: "Database", Status: "✓"}
}

func checkConfig() CheckResult {
	if _, err := config.Load(); err != nil {
		return CheckResult{Name: "Config", Status: "✗", Details: err.Error()}
	}
	return CheckResult{Name: "Config", Status: "✓"}
}

// checkSerialPorts is advisory: mock-mode setups legitimately have no ports.
func checkSerialPorts() CheckResult {
	ports, err := serial.GetPortsList()
	if err != nil {
		return CheckResult{Name: "Serial ports", Status: "⚠", Details: err.Error()}
	}
	if len(ports) == 0 {
		return CheckResult{Name: "Serial ports", Status: "⚠", Details: "no serial ports detected (fine for mock mode)"}
	}
	return CheckResult{Name: "Serial ports", Status: "✓", Details: strings.Join(ports, ", ")}
}
