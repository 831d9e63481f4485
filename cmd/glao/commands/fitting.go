package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/GLAO/am"
	"github.com/teranos/GLAO/logger"
	"github.com/teranos/GLAO/modal"
	"github.com/teranos/GLAO/sym"
)

var (
	fittingArray   string
	fittingLocator string
	fittingCurve   bool
)

// FittingCmd represents the fitting command
var FittingCmd = &cobra.Command{
	Use:   "fitting",
	Short: sym.Fit + " Project OPD frames onto the modal basis",
	Long: sym.Fit + ` fitting — Modal least-squares decomposition

Fits the configured modal basis to every frame of an OPD series and
reports the modal spectrum: mean squared coefficient per mode, the
power-law slope of the spectrum, and the residual wavefront error as a
function of how many modes the adaptive optics loop corrects.

Examples:
  glao fitting                        # Fit the configured source
  glao fitting --array opd_wind       # Fit a different array
  glao fitting --curve                # Print the residual-vs-modes curve`,
	RunE: runFitting,
}

func init() {
	FittingCmd.Flags().StringVar(&fittingArray, "array", "", "Array name inside each archive (default: source.array)")
	FittingCmd.Flags().StringVar(&fittingLocator, "locator", "", "Archive directory or glob (default: source.locator)")
	FittingCmd.Flags().BoolVar(&fittingCurve, "curve", false, "Print residual RMS vs retained modes")
}

func runFitting(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	basis, err := buildBasis(cfg)
	if err != nil {
		return err
	}
	logger.Infow("modal basis ready",
		"family", cfg.Basis.Family, "modes", basis.NModes(),
		"grid", fmt.Sprintf("%dx%d", basis.Rows(), basis.Cols()))

	ctx, stop := studyContext(cmd)
	defer stop()

	contrib := am.ContributorConfig{
		Name:    "fitting",
		Array:   fittingArray,
		Locator: fittingLocator,
		Study:   am.StudyResidual,
	}
	res, err := runStudy(ctx, cfg, contrib, basis, basis.NModes())
	if err != nil {
		return err
	}

	printSeries("Residual after full correction", cfg.Budget.Unit, res)

	slope, err := modal.SpectrumSlope(res.Spectrum.MeanSquares())
	if err != nil {
		logger.Warnw("spectrum slope unavailable", "error", err)
	} else {
		pterm.Info.Printf("Modal spectrum slope: %.3f (log mean c² vs log mode index)\n", slope)
	}

	if fittingCurve {
		printCurve(res.Spectrum.ResidualRSS(), cfg.Budget.Unit)
	}
	return nil
}

// printCurve renders residual RMS against the number of corrected modes.
// Dense bases are subsampled so the table stays readable.
func printCurve(residuals []float64, unit string) {
	data := pterm.TableData{{"modes corrected", fmt.Sprintf("residual rms [%s]", unit)}}
	step := 1
	if len(residuals) > 50 {
		step = len(residuals) / 50
	}
	for k := 0; k < len(residuals); k += step {
		data = append(data, []string{
			fmt.Sprintf("%d", k+1),
			fmt.Sprintf("%.4g", residuals[k]),
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		logger.Errorw("table render failed", "error", err)
	}
}
