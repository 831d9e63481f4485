package am

import "github.com/teranos/GLAO/errors"

// Validate checks that the configuration is valid. Correlation-tag
// pairing and duplicate contributor names are checked here so a broken
// budget fails before any frame is read.
func (c *Config) Validate() error {
	if c.Source.Rows < 0 || c.Source.Cols < 0 {
		return errors.Newf("source grid must be non-negative, got %dx%d", c.Source.Rows, c.Source.Cols)
	}

	switch c.Basis.Family {
	case BasisZernike:
		if c.Basis.StartMode < 1 {
			return errors.Newf("basis.start_mode must be >= 1 (Noll indexing), got %d", c.Basis.StartMode)
		}
	case BasisFile:
		if c.Basis.Path == "" {
			return errors.New("basis.path cannot be empty when basis.family is \"file\"")
		}
	default:
		return errors.Newf("basis.family must be %q or %q, got %q", BasisZernike, BasisFile, c.Basis.Family)
	}
	if c.Basis.Modes <= 0 {
		return errors.Newf("basis.modes must be > 0, got %d", c.Basis.Modes)
	}
	if c.Basis.CondThreshold < 0 {
		return errors.Newf("basis.cond_threshold must be >= 0, got %g", c.Basis.CondThreshold)
	}

	if c.Pipeline.Workers < 0 {
		return errors.Newf("pipeline.workers must be >= 0, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.Buffer < 0 {
		return errors.Newf("pipeline.buffer must be >= 0, got %d", c.Pipeline.Buffer)
	}
	switch c.Pipeline.FramePolicy {
	case "", "abort", "skip":
	default:
		return errors.Newf("pipeline.frame_policy must be \"abort\" or \"skip\", got %q", c.Pipeline.FramePolicy)
	}

	seen := make(map[string]struct{}, len(c.Budget.Contributors))
	tagCount := make(map[string]int)
	for _, contrib := range c.Budget.Contributors {
		if contrib.Name == "" {
			return errors.New("budget contributor without a name")
		}
		if _, dup := seen[contrib.Name]; dup {
			return errors.Wrapf(errors.ErrDuplicateContributor, "%q", contrib.Name)
		}
		seen[contrib.Name] = struct{}{}

		switch contrib.Study {
		case "", StudyRaw, StudyResidual:
		default:
			return errors.Newf("contributor %q: study must be %q or %q, got %q",
				contrib.Name, StudyRaw, StudyResidual, contrib.Study)
		}
		if contrib.EffectiveLocator(c.Source) == "" {
			return errors.Newf("contributor %q has no locator and source.locator is empty", contrib.Name)
		}
		if contrib.Rho < -1 || contrib.Rho > 1 {
			return errors.Newf("contributor %q: rho %v outside [-1, 1]", contrib.Name, contrib.Rho)
		}
		if contrib.Tag != "" {
			tagCount[contrib.Tag]++
		}
	}
	for tag, n := range tagCount {
		if n < 2 {
			return errors.Wrapf(errors.ErrUnknownCorrelationTag, "tag %q has no partner", tag)
		}
	}

	return nil
}
