package domain

// ExecutionRecord is one attempted promise, as reported by Observation.
type ExecutionRecord struct {
	PromiseID  string `json:"promiseId"`
	Attempted  bool   `json:"attempted"`
	Observed   bool   `json:"observed"`
	Skipped    bool   `json:"skipped"`
	SkipReason string `json:"skipReason,omitempty"`
}

// Legal skip reasons. Only these two may shrink the coverage denominator;
// every other reason counts as an illegal skip and penalizes coverage.
const (
	SkipAuthRequired = "auth_required"
	SkipInfraFailure = "infra_failure"
)

// LegalSkipReason reports whether a skip reason is whitelisted.
func LegalSkipReason(reason string) bool {
	return reason == SkipAuthRequired || reason == SkipInfraFailure
}

// CoverageTruth is the aggregate over a run's execution records.
type CoverageTruth struct {
	Total                int     `json:"total"`
	Observed             int     `json:"observed"`
	Attempted            int     `json:"attempted"`
	Skipped              int     `json:"skipped"`
	LegallySkipped       int     `json:"legallySkipped"`
	IllegallySkipped     int     `json:"illegallySkipped"`
	AttemptedNotObserved int     `json:"attemptedNotObserved"`
	CoverageRatio        float64 `json:"coverageRatio"`
}

// EnforcementStatus is the coverage gate verdict.
type EnforcementStatus string

const (
	EnforcementPass       EnforcementStatus = "PASS"
	EnforcementFail       EnforcementStatus = "FAIL"
	EnforcementIncomplete EnforcementStatus = "INCOMPLETE"
)

// EnforcementResult is the outcome of applying the minimum-coverage
// threshold to a run.
type EnforcementResult struct {
	Passed            bool              `json:"passed"`
	Status            EnforcementStatus `json:"status"`
	CoverageTruth     CoverageTruth     `json:"coverageTruth"`
	OverridesJudgment bool              `json:"overridesJudgment"`
	FailureReason     string            `json:"failureReason,omitempty"`
}
