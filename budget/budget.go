// Package budget combines per-contributor wavefront-error series into a
// single error-budget total.
//
// Contributors are statistically independent unless they share a
// correlation tag, in which case the pair combines with an explicit
// correlation coefficient instead of a plain root-sum-square.
package budget

import (
	"math"
	"time"

	"github.com/teranos/GLAO/errors"
	"github.com/teranos/GLAO/stats"
)

// Contributor is one named error source in the budget, carrying the
// series statistics of its study.
type Contributor struct {
	Name   string       `json:"name"`
	Series stats.Series `json:"series"`
	// Tag links two contributors that are statistically correlated.
	// Empty means independent.
	Tag string `json:"correlation_tag,omitempty"`
	// Rho is the correlation coefficient applied when this contributor
	// combines with its tag partner. Range [-1, 1].
	Rho float64 `json:"rho,omitempty"`
}

// Combine reduces the contributors to a total RMS wavefront error.
//
// Independent contributors add in quadrature. Contributors sharing a tag
// combine as sqrt(a² + b² + 2ρab); with more than two under one tag the
// pairwise rule folds left to right in declaration order, each step
// using the incoming contributor's ρ. A tag carried by a single
// contributor is a configuration error: correlation is a pairwise
// statement and a partner must exist.
func Combine(contributors []Contributor) (float64, error) {
	if len(contributors) == 0 {
		return 0, errors.New("no contributors to combine")
	}
	seen := make(map[string]struct{}, len(contributors))
	for _, c := range contributors {
		if _, dup := seen[c.Name]; dup {
			return 0, errors.Wrapf(errors.ErrDuplicateContributor, "%q", c.Name)
		}
		seen[c.Name] = struct{}{}
		if c.Rho < -1 || c.Rho > 1 {
			return 0, errors.Newf("contributor %q: correlation %v outside [-1, 1]", c.Name, c.Rho)
		}
	}

	// Fold tagged groups first, in declaration order, then RSS the group
	// totals with the independent contributors.
	groupTotal := make(map[string]float64)
	groupSize := make(map[string]int)
	var order []string
	sumSq := 0.0
	for _, c := range contributors {
		if c.Tag == "" {
			sumSq += c.Series.RMS * c.Series.RMS
			continue
		}
		if n := groupSize[c.Tag]; n == 0 {
			groupTotal[c.Tag] = c.Series.RMS
			order = append(order, c.Tag)
		} else {
			a, b := groupTotal[c.Tag], c.Series.RMS
			groupTotal[c.Tag] = math.Sqrt(a*a + b*b + 2*c.Rho*a*b)
		}
		groupSize[c.Tag]++
	}
	for _, tag := range order {
		if groupSize[tag] < 2 {
			return 0, errors.Wrapf(errors.ErrUnknownCorrelationTag,
				"tag %q has no partner", tag)
		}
		sumSq += groupTotal[tag] * groupTotal[tag]
	}
	return math.Sqrt(sumSq), nil
}

// Report is the structured output of a budget run.
type Report struct {
	GeneratedAt  time.Time     `json:"generated_at"`
	Unit         string        `json:"unit"`
	Contributors []Contributor `json:"contributors"`
	TotalRMS     float64       `json:"total_rms"`
}

// New assembles a report, validating and combining the contributors.
func New(unit string, contributors []Contributor) (*Report, error) {
	total, err := Combine(contributors)
	if err != nil {
		return nil, err
	}
	return &Report{
		GeneratedAt:  time.Now().UTC(),
		Unit:         unit,
		Contributors: contributors,
		TotalRMS:     total,
	}, nil
}
