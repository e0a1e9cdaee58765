package coverage

import (
	"fmt"

	"github.com/verityhq/verity/internal/domain"
)

// DefaultMinCoverage is the coverage threshold applied when none is
// configured.
const DefaultMinCoverage = 0.9

// Options tune the coverage gate.
type Options struct {
	// MinCoverage is the minimum acceptable coverage ratio. Zero or
	// negative means DefaultMinCoverage.
	MinCoverage float64

	// Strict makes an INCOMPLETE run (zero execution records) override
	// the judgment outcome as well.
	Strict bool
}

// Enforce applies the minimum-coverage threshold to the records.
//
// ratio >= minCoverage yields PASS; zero records yields INCOMPLETE;
// anything else FAIL. A FAIL always overrides the judgment outcome: a
// coverage failure can downgrade an all-pass judgment set to failing.
// INCOMPLETE overrides only when strict.
func Enforce(records []domain.ExecutionRecord, opts Options) domain.EnforcementResult {
	minCoverage := opts.MinCoverage
	if minCoverage <= 0 {
		minCoverage = DefaultMinCoverage
	}

	truth := Calculate(records)

	if truth.Total == 0 {
		return domain.EnforcementResult{
			Passed:            !opts.Strict,
			Status:            domain.EnforcementIncomplete,
			CoverageTruth:     truth,
			OverridesJudgment: opts.Strict,
			FailureReason:     "no execution records: nothing was attempted, so coverage cannot be established",
		}
	}

	if truth.CoverageRatio >= minCoverage {
		return domain.EnforcementResult{
			Passed:        true,
			Status:        domain.EnforcementPass,
			CoverageTruth: truth,
		}
	}

	return domain.EnforcementResult{
		Passed:            false,
		Status:            domain.EnforcementFail,
		CoverageTruth:     truth,
		OverridesJudgment: true,
		FailureReason: fmt.Sprintf("coverage %.2f below minimum %.2f (%d observed of %d eligible)",
			truth.CoverageRatio, minCoverage, truth.Observed, truth.Total-truth.LegallySkipped),
	}
}
