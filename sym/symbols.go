// Package sym defines canonical symbols for GLAO commands and system
// markers. These symbols are stable across CLI output and documentation.
package sym

// Primary command glyphs — one per subcommand.
const (
	AM       = "≡" // am — configuration and system settings
	Fit      = "Σ" // fitting — modal least-squares decomposition
	Residual = "Δ" // residual — wavefront error left after correction
	Dome     = "≈" // domeseeing — raw dome-seeing OPD statistics
	Budget   = "⊕" // budget — quadrature combination of contributors
	Typegen  = "⟐" // typegen — Python bindings for report types
)

// System infrastructure symbols.
const (
	Frame = "▦" // one OPD frame on the pupil grid
	Basis = "⊥" // orthogonal modal basis
	Warn  = "△" // degraded but continuing (skipped frames, gaps)
)

// CommandToSymbol maps subcommand names to their canonical glyphs.
var CommandToSymbol = map[string]string{
	"am":         AM,
	"fitting":    Fit,
	"residual":   Residual,
	"domeseeing": Dome,
	"budget":     Budget,
	"typegen":    Typegen,
}

// CommandDescriptions provides human-readable explanations for help text.
var CommandDescriptions = map[string]string{
	"am":         "Configuration — sources, basis, pipeline, budget",
	"fitting":    "Fitting — project OPD frames onto the modal basis",
	"residual":   "Residual — wavefront error after modal correction",
	"domeseeing": "Dome seeing — raw OPD statistics without correction",
	"budget":     "Budget — combine contributors into a total",
	"typegen":    "Typegen — generate Python bindings for report types",
}
