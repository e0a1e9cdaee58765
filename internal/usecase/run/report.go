package run

import (
	"sort"
	"time"

	"github.com/verityhq/verity/internal/domain"
)

// SourceInfo pins a run to the revision of the audited project. Promises
// are code-derived, so the report records which code made them.
type SourceInfo struct {
	CommitHash string `json:"commitHash,omitempty"`
	Branch     string `json:"branch,omitempty"`
	Dirty      bool   `json:"dirty,omitempty"`
}

// FindingReport is one row of the run-level guardrails report.
type FindingReport struct {
	FindingID        string                 `json:"findingId"`
	FindingType      string                 `json:"findingType"`
	AppliedRules     []string               `json:"appliedRules"`
	Contradictions   []domain.Contradiction `json:"contradictions"`
	FinalDecision    domain.TruthStatus     `json:"finalDecision"`
	ConfidenceBefore float64                `json:"confidenceBefore"`
	ConfidenceAfter  float64                `json:"confidenceAfter"`
	Reasons          []domain.ReasonCode    `json:"reconciliationReasons"`
}

// RuleUsage counts how often one rule fired across the run.
type RuleUsage struct {
	RuleID string `json:"ruleId"`
	Count  int    `json:"count"`
}

// Aggregates summarizes the run for operators.
type Aggregates struct {
	CountsByDecision map[domain.TruthStatus]int `json:"countsByDecision"`
	TopRules         []RuleUsage                `json:"topRules"`
	Contradictions   int                        `json:"contradictions"`
	Reconciliations  int                        `json:"reconciliations"`
}

// Report is the run-level guardrails report artifact.
type Report struct {
	RunID            string                   `json:"runId"`
	GeneratedAt      time.Time                `json:"generatedAt"`
	Repository       string                   `json:"repository"`
	Source           SourceInfo               `json:"source"`
	PolicyVersion    string                   `json:"policyVersion"`
	PolicySource     string                   `json:"policySource"`
	Findings         []FindingReport          `json:"findings"`
	Aggregates       Aggregates               `json:"aggregates"`
	Enforcement      domain.EnforcementResult `json:"enforcement"`
	JudgmentExitCode int                      `json:"judgmentExitCode"`
	CoverageExitCode int                      `json:"coverageExitCode"`
	FinalExitCode    int                      `json:"finalExitCode"`
}

// topRulesLimit caps the most-applied-rules list in the aggregates.
const topRulesLimit = 10

// buildFindingReports converts finalized findings and their decisions
// into report rows.
func buildFindingReports(findings []domain.Finding, decisions []domain.TruthDecision) []FindingReport {
	rows := make([]FindingReport, 0, len(findings))
	for i, f := range findings {
		row := FindingReport{
			FindingID:      f.ID,
			FindingType:    f.Type,
			AppliedRules:   []string{},
			Contradictions: []domain.Contradiction{},
		}
		if f.Guardrails != nil {
			for _, ref := range f.Guardrails.Result.AppliedRules {
				row.AppliedRules = append(row.AppliedRules, ref.ID)
			}
			row.Contradictions = f.Guardrails.Result.Contradictions
		}
		if i < len(decisions) {
			d := decisions[i]
			row.FinalDecision = d.FinalStatus
			row.ConfidenceBefore = d.ConfidenceBefore
			row.ConfidenceAfter = d.ConfidenceAfter
			row.Reasons = d.ReconciliationReasons
		}
		rows = append(rows, row)
	}
	return rows
}

// buildAggregates reduces decisions into run-level counts.
func buildAggregates(findings []domain.Finding, decisions []domain.TruthDecision) Aggregates {
	agg := Aggregates{
		CountsByDecision: map[domain.TruthStatus]int{},
		TopRules:         []RuleUsage{},
	}

	ruleCounts := map[string]int{}
	for _, f := range findings {
		if f.Guardrails == nil {
			continue
		}
		for _, ref := range f.Guardrails.Result.AppliedRules {
			ruleCounts[ref.ID]++
		}
		agg.Contradictions += len(f.Guardrails.Result.Contradictions)
	}

	for _, d := range decisions {
		agg.CountsByDecision[d.FinalStatus]++
		if reconciled(d) {
			agg.Reconciliations++
		}
	}

	for id, count := range ruleCounts {
		agg.TopRules = append(agg.TopRules, RuleUsage{RuleID: id, Count: count})
	}
	sort.Slice(agg.TopRules, func(i, j int) bool {
		if agg.TopRules[i].Count != agg.TopRules[j].Count {
			return agg.TopRules[i].Count > agg.TopRules[j].Count
		}
		return agg.TopRules[i].RuleID < agg.TopRules[j].RuleID
	})
	if len(agg.TopRules) > topRulesLimit {
		agg.TopRules = agg.TopRules[:topRulesLimit]
	}

	return agg
}

// reconciled reports whether the decision did more than note a no-op.
func reconciled(d domain.TruthDecision) bool {
	for _, r := range d.ReconciliationReasons {
		if r != domain.ReasonNoReconciliationNeeded {
			return true
		}
	}
	return false
}
