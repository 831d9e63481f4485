package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/GLAO/am"
	"github.com/teranos/GLAO/sym"
)

var (
	residualArray   string
	residualLocator string
)

// ResidualCmd represents the residual command
var ResidualCmd = &cobra.Command{
	Use:   "residual",
	Short: sym.Residual + " Wavefront error after modal correction",
	Long: sym.Residual + ` residual — Residual wavefront error study

Fits the configured modal basis to every frame and reports the series
statistics of what the correction leaves behind. This is the error a
ground-layer AO system cannot remove with the configured mode count.

Examples:
  glao residual                       # Residual over the configured source
  glao residual --array opd_ds        # Residual of a specific array`,
	RunE: runResidual,
}

func init() {
	ResidualCmd.Flags().StringVar(&residualArray, "array", "", "Array name inside each archive (default: source.array)")
	ResidualCmd.Flags().StringVar(&residualLocator, "locator", "", "Archive directory or glob (default: source.locator)")
}

func runResidual(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	basis, err := buildBasis(cfg)
	if err != nil {
		return err
	}

	ctx, stop := studyContext(cmd)
	defer stop()

	contrib := am.ContributorConfig{
		Name:    "residual",
		Array:   residualArray,
		Locator: residualLocator,
		Study:   am.StudyResidual,
	}
	res, err := runStudy(ctx, cfg, contrib, basis, 0)
	if err != nil {
		return err
	}

	printSeries("Residual wavefront error", cfg.Budget.Unit, res)
	return nil
}
