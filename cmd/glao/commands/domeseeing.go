package commands

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/GLAO/am"
	"github.com/teranos/GLAO/logger"
	"github.com/teranos/GLAO/opd"
	"github.com/teranos/GLAO/pipeline"
	"github.com/teranos/GLAO/sym"
)

var (
	domeArray    string
	domeLocator  string
	domeKeepMean bool
	domeExtrema  bool
)

// DomeSeeingCmd represents the domeseeing command
var DomeSeeingCmd = &cobra.Command{
	Use:   "domeseeing",
	Short: sym.Dome + " Raw dome-seeing OPD statistics",
	Long: sym.Dome + ` domeseeing — Dome-seeing study

Reduces a CFD dome-seeing OPD series to its wavefront-error statistics
without any modal correction. Each frame is zero-meaned by default so a
static piston offset does not inflate the numbers.

Examples:
  glao domeseeing                     # Statistics of the configured source
  glao domeseeing --keep-mean         # Skip per-frame mean removal
  glao domeseeing --extrema           # Cross-check against stored extrema`,
	RunE: runDomeSeeing,
}

func init() {
	DomeSeeingCmd.Flags().StringVar(&domeArray, "array", "", "Array name inside each archive (default: source.array)")
	DomeSeeingCmd.Flags().StringVar(&domeLocator, "locator", "", "Archive directory or glob (default: source.locator)")
	DomeSeeingCmd.Flags().BoolVar(&domeKeepMean, "keep-mean", false, "Do not remove the per-frame mean")
	DomeSeeingCmd.Flags().BoolVar(&domeExtrema, "extrema", false, "Read the stored per-frame min/max companions of the first archive")
}

func runDomeSeeing(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := studyContext(cmd)
	defer stop()

	contrib := am.ContributorConfig{
		Name:    "dome seeing",
		Array:   domeArray,
		Locator: domeLocator,
		Study:   am.StudyRaw,
	}
	locator := contrib.EffectiveLocator(cfg.Source)
	array := contrib.EffectiveArray(cfg.Source)

	src, err := openSource(cfg, locator, array)
	if err != nil {
		return err
	}
	defer src.Close()

	res, err := runDomeStudy(ctx, cfg, src, array)
	if err != nil {
		return err
	}

	printSeries("Dome seeing", cfg.Budget.Unit, res)

	if domeExtrema {
		printExtrema(locator, array)
	}
	return nil
}

func runDomeStudy(ctx context.Context, cfg *am.Config, src *opd.NpzSource, array string) (*pipeline.Result, error) {
	return pipeline.Run(ctx, src.Frames(array), rawFrameFunc(!domeKeepMean), pipelineConfig(cfg, 0))
}

// printExtrema reads the writer's per-frame extrema companions ("<array>
// max", "<array> min") from the first archive as a sanity check against
// the computed statistics.
func printExtrema(locator, array string) {
	src, err := opd.Open(locator)
	if err != nil {
		logger.Warnw("extrema unavailable", "error", err)
		return
	}
	defer src.Close()

	first := src.First()
	max, maxErr := opd.ReadScalar(first, array+" max")
	min, minErr := opd.ReadScalar(first, array+" min")
	if maxErr != nil || minErr != nil {
		logger.Warnw("extrema companions missing", "archive", first)
		return
	}
	pterm.Info.Printf("Stored extrema (first archive): min %.4g, max %.4g\n", min, max)
}
