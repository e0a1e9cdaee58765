// Package coverage computes the coverage truth over a run's execution
// records and applies the minimum-coverage gate that can override an
// otherwise-passing judgment.
package coverage

import "github.com/verityhq/verity/internal/domain"

// Calculate reduces execution records into the coverage truth.
//
// coverageRatio = observed / (total - legallySkipped), with a zero
// denominator yielding zero. Only the whitelisted skip reasons shrink
// the denominator; every other skip reason stays in it and penalizes
// coverage. A record attempted but never observed also counts against
// coverage, distinct from skips. The reduction is a commutative sum, so
// record order never matters.
func Calculate(records []domain.ExecutionRecord) domain.CoverageTruth {
	truth := domain.CoverageTruth{Total: len(records)}

	for _, rec := range records {
		if rec.Observed {
			truth.Observed++
		}
		if rec.Attempted {
			truth.Attempted++
		}
		switch {
		case rec.Skipped:
			truth.Skipped++
			if domain.LegalSkipReason(rec.SkipReason) {
				truth.LegallySkipped++
			} else {
				truth.IllegallySkipped++
			}
		case rec.Attempted && !rec.Observed:
			truth.AttemptedNotObserved++
		}
	}

	denominator := truth.Total - truth.LegallySkipped
	if denominator > 0 {
		truth.CoverageRatio = float64(truth.Observed) / float64(denominator)
	}
	return truth
}
