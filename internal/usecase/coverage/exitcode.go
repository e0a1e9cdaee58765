package coverage

import "github.com/verityhq/verity/internal/domain"

// Process exit codes for run outcomes. The usage-error code for a
// rejected policy lives with the CLI; these cover judgment and coverage.
const (
	ExitPass         = 0
	ExitJudgmentFail = 20
	ExitIncomplete   = 30
)

// JudgmentExitCode derives the per-finding judgment code: any CONFIRMED
// finding fails the run.
func JudgmentExitCode(findings []domain.Finding) int {
	for _, f := range findings {
		if f.Status == domain.StatusConfirmed {
			return ExitJudgmentFail
		}
	}
	return ExitPass
}

// EnforcementExitCode maps the coverage gate verdict to an exit code.
// FAIL and INCOMPLETE share the incomplete-class code.
func EnforcementExitCode(result domain.EnforcementResult) int {
	switch result.Status {
	case domain.EnforcementPass:
		return ExitPass
	default:
		return ExitIncomplete
	}
}

// MergeExitCodes combines the judgment and coverage codes: the worse
// outcome always wins, so neither side can suppress the other's failure.
func MergeExitCodes(judgment, coverage int) int {
	if coverage > judgment {
		return coverage
	}
	return judgment
}
