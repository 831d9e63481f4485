package am

// Config represents the core GLAO configuration
type Config struct {
	Source   SourceConfig   `mapstructure:"source"`
	Basis    BasisConfig    `mapstructure:"basis"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Budget   BudgetConfig   `mapstructure:"budget"`
}

// SourceConfig declares the default OPD archive source. Contributors may
// override the locator and array name individually.
type SourceConfig struct {
	Locator string `mapstructure:"locator"` // directory of .npz archives, or a glob
	Array   string `mapstructure:"array"`   // array name inside each archive (default: "opd")
	Rows    int    `mapstructure:"rows"`    // declared grid rows; checked against archive headers
	Cols    int    `mapstructure:"cols"`    // declared grid cols
	DType   string `mapstructure:"dtype"`   // numpy descr (default: "<f8"); empty skips the check
}

// BasisConfig configures the modal basis used for fitting
type BasisConfig struct {
	Family string `mapstructure:"family"` // "zernike" or "file"
	Path   string `mapstructure:"path"`   // basis archive when family = "file"
	Modes  int    `mapstructure:"modes"`
	// StartMode is the first Noll index for the zernike family.
	// Default 2: piston carries no wavefront-error information.
	StartMode     int     `mapstructure:"start_mode"`
	Normalize     bool    `mapstructure:"normalize"`      // unit-RMS modes over the footprint
	CondThreshold float64 `mapstructure:"cond_threshold"` // design-matrix condition limit (default: 1e8)
}

// Basis family constants
const (
	BasisZernike = "zernike"
	BasisFile    = "file"
)

// PipelineConfig configures the frame worker pool
type PipelineConfig struct {
	Workers     int    `mapstructure:"workers"`      // 0 = GOMAXPROCS
	Buffer      int    `mapstructure:"buffer"`       // frame channel capacity; 0 = 2×workers
	FramePolicy string `mapstructure:"frame_policy"` // "abort" (default) or "skip"
	Percentiles bool   `mapstructure:"percentiles"`  // retain per-frame metrics for p50/p95
}

// BudgetConfig declares the error-budget contributors
type BudgetConfig struct {
	Unit         string              `mapstructure:"unit"` // reporting unit label (default: "m")
	Contributors []ContributorConfig `mapstructure:"contributors"`
}

// ContributorConfig declares one error source in the budget
type ContributorConfig struct {
	Name    string `mapstructure:"name"`
	Locator string `mapstructure:"locator"` // overrides source.locator
	Array   string `mapstructure:"array"`   // overrides source.array
	// Study selects the per-frame computation: "raw" reduces the map as
	// stored, "residual" fits the modal basis first and reduces what the
	// correction leaves behind.
	Study string  `mapstructure:"study"`
	Tag   string  `mapstructure:"correlation_tag"` // links correlated contributors; empty = independent
	Rho   float64 `mapstructure:"rho"`             // correlation coefficient with the tag partner
}

// Study constants
const (
	StudyRaw      = "raw"
	StudyResidual = "residual"
)

// EffectiveLocator resolves the contributor's archive locator against the
// source default.
func (c ContributorConfig) EffectiveLocator(src SourceConfig) string {
	if c.Locator != "" {
		return c.Locator
	}
	return src.Locator
}

// EffectiveArray resolves the contributor's array name against the source
// default.
func (c ContributorConfig) EffectiveArray(src SourceConfig) string {
	if c.Array != "" {
		return c.Array
	}
	return src.Array
}
