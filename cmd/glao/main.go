package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/GLAO/cmd/glao/commands"
	"github.com/teranos/GLAO/logger"
)

var jsonLogs bool

var rootCmd = &cobra.Command{
	Use:   "glao",
	Short: "GLAO - Ground-layer AO wavefront error budget engine",
	Long: `GLAO - Wavefront error budget engine for ground-layer adaptive optics.

Decomposes OPD map series onto a modal basis, reduces them to
wavefront-error statistics, and combines the contributors of an
observatory error budget.

Available commands:
  am         - Manage GLAO configuration
  fitting    - Project OPD frames onto the modal basis
  residual   - Wavefront error after modal correction
  domeseeing - Raw dome-seeing OPD statistics
  budget     - Combine contributors into an error-budget total
  typegen    - Generate Python bindings for report types

Examples:
  glao am show                # Show current configuration
  glao domeseeing             # Dome-seeing statistics of the configured source
  glao budget -o report.json  # Full budget run with structured output`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Initialize(jsonLogs); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&commands.ConfigPath, "config", "", "Configuration file (overrides the standard cascade)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Emit logs as JSON instead of console output")

	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.FittingCmd)
	rootCmd.AddCommand(commands.ResidualCmd)
	rootCmd.AddCommand(commands.DomeSeeingCmd)
	rootCmd.AddCommand(commands.BudgetCmd)
	rootCmd.AddCommand(commands.TypegenCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
