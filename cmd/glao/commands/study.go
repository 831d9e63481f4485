package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teranos/GLAO/am"
	"github.com/teranos/GLAO/errors"
	"github.com/teranos/GLAO/logger"
	"github.com/teranos/GLAO/modal"
	"github.com/teranos/GLAO/opd"
	"github.com/teranos/GLAO/pipeline"
	"github.com/teranos/GLAO/stats"
)

// ConfigPath is set by the root --config flag. Empty means the standard
// cascade (system, user, project, environment).
var ConfigPath string

// loadConfig resolves and validates the active configuration.
func loadConfig() (*am.Config, error) {
	var cfg *am.Config
	var err error
	if ConfigPath != "" {
		cfg, err = am.LoadFromFile(ConfigPath)
	} else {
		cfg, err = am.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// studyContext returns a context cancelled by SIGINT/SIGTERM so a long
// series run stops cleanly mid-frame.
func studyContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
}

// buildBasis constructs the configured modal basis.
func buildBasis(cfg *am.Config) (*modal.Basis, error) {
	var opts []modal.Option
	if cfg.Basis.Normalize {
		opts = append(opts, modal.WithNormalize())
	}
	if cfg.Basis.CondThreshold > 0 {
		opts = append(opts, modal.WithCondThreshold(cfg.Basis.CondThreshold))
	}

	switch cfg.Basis.Family {
	case am.BasisFile:
		return modal.LoadNpz(cfg.Basis.Path, opts...)
	default:
		footprint := modal.DiskFootprint(cfg.Source.Rows, cfg.Source.Cols)
		return modal.Build(cfg.Source.Rows, cfg.Source.Cols, cfg.Basis.Modes,
			footprint, modal.Zernike(cfg.Basis.StartMode), opts...)
	}
}

// openSource opens and schema-checks the archive source for one array.
func openSource(cfg *am.Config, locator, array string) (*opd.NpzSource, error) {
	src, err := opd.Open(locator)
	if err != nil {
		return nil, err
	}
	want := opd.Schema{Rows: cfg.Source.Rows, Cols: cfg.Source.Cols, DType: cfg.Source.DType}
	if err := src.Check(array, want); err != nil {
		return nil, err
	}
	logger.Infow("archive source opened", "locator", locator, "array", array, "frames", src.Len())
	return src, nil
}

// pipelineConfig translates the config into pipeline knobs.
func pipelineConfig(cfg *am.Config, spectrumModes int) pipeline.Config {
	return pipeline.Config{
		Workers:       cfg.Pipeline.Workers,
		Buffer:        cfg.Pipeline.Buffer,
		Policy:        pipeline.Policy(cfg.Pipeline.FramePolicy),
		KeepValues:    cfg.Pipeline.Percentiles,
		SpectrumModes: spectrumModes,
	}
}

// rawFrameFunc reduces frames as stored, optionally removing the mean
// first so a static piston offset does not inflate the statistics.
func rawFrameFunc(zeroMean bool) pipeline.FrameFunc {
	return func(idx int, m *opd.Map) (pipeline.FrameResult, error) {
		if zeroMean {
			if err := m.ZeroMean(); err != nil {
				return pipeline.FrameResult{}, err
			}
		}
		metric, err := stats.Reduce(m)
		if err != nil {
			return pipeline.FrameResult{}, err
		}
		return pipeline.FrameResult{Metric: metric}, nil
	}
}

// residualFrameFunc fits the basis to each frame and reduces what the
// correction leaves behind. Coefficients and the frame's total variance
// feed the modal spectrum.
func residualFrameFunc(b *modal.Basis) pipeline.FrameFunc {
	return func(idx int, m *opd.Map) (pipeline.FrameResult, error) {
		frameVar, err := m.Var()
		if err != nil {
			return pipeline.FrameResult{}, err
		}
		fit, err := b.Fit(m)
		if err != nil {
			return pipeline.FrameResult{}, err
		}
		metric, err := stats.Reduce(fit.Residual)
		if err != nil {
			return pipeline.FrameResult{}, err
		}
		return pipeline.FrameResult{
			Metric: metric,
			Coefs:  fit.Coefficients,
			Var:    frameVar,
		}, nil
	}
}

// runStudy drives one contributor's series through the pipeline.
func runStudy(ctx context.Context, cfg *am.Config, contrib am.ContributorConfig,
	b *modal.Basis, spectrumModes int) (*pipeline.Result, error) {

	src, err := openSource(cfg, contrib.EffectiveLocator(cfg.Source), contrib.EffectiveArray(cfg.Source))
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var fn pipeline.FrameFunc
	switch contrib.Study {
	case am.StudyResidual:
		fn = residualFrameFunc(b)
	default:
		fn = rawFrameFunc(true)
	}

	res, err := pipeline.Run(ctx, src.Frames(contrib.EffectiveArray(cfg.Source)), fn,
		pipelineConfig(cfg, spectrumModes))
	if err != nil {
		return nil, errors.Wrapf(err, "contributor %q", contrib.Name)
	}
	if len(res.Gaps) > 0 {
		logger.Warnw("frames skipped", "contributor", contrib.Name, "gaps", len(res.Gaps))
	}
	return res, nil
}
