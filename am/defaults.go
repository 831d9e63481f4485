package am

import (
	"github.com/spf13/viper"
)

// Default file permissions for the user config directory
const DefaultDirPermissions = 0o755

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Source defaults
	v.SetDefault("source.array", "opd")
	v.SetDefault("source.dtype", "<f8")

	// Basis defaults
	v.SetDefault("basis.family", BasisZernike)
	v.SetDefault("basis.modes", 500)
	v.SetDefault("basis.start_mode", 2) // skip piston
	v.SetDefault("basis.normalize", true)
	v.SetDefault("basis.cond_threshold", 1e8)

	// Pipeline defaults
	v.SetDefault("pipeline.workers", 0) // 0 = GOMAXPROCS
	v.SetDefault("pipeline.frame_policy", "abort")
	v.SetDefault("pipeline.percentiles", true)

	// Budget defaults
	v.SetDefault("budget.unit", "m")
}
