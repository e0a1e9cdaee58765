package domain

import "time"

// RuleRef records one guardrail rule that fired against a finding.
type RuleRef struct {
	ID              string  `json:"id"`
	Category        string  `json:"category"`
	Action          string  `json:"action"`
	Trigger         string  `json:"trigger"`
	ConfidenceDelta float64 `json:"confidenceDelta"`
}

// Contradiction is a recorded conflict between a finding's claim and the
// evidence guardrails examined. Contradictions are data-quality signals
// for operator review, never control-flow errors.
type Contradiction struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GuardrailsResult is the per-finding output of the guardrails engine.
type GuardrailsResult struct {
	AppliedRules    []RuleRef       `json:"appliedRules"`
	Contradictions  []Contradiction `json:"contradictions"`
	FinalDecision   TruthStatus     `json:"finalDecision"`
	ConfidenceDelta float64         `json:"confidenceDelta"`
}

// Applied reports whether any rule fired.
func (r GuardrailsResult) Applied() bool {
	return len(r.AppliedRules) > 0
}

// ReasonCode identifies why reconciliation did (or did not) adjust a
// finding. Reconciliation is never silent: every decision carries at
// least one code.
type ReasonCode string

const (
	ReasonNoReconciliationNeeded        ReasonCode = "NO_RECONCILIATION_NEEDED"
	ReasonConfidenceCappedSuspected     ReasonCode = "CONFIDENCE_CAPPED_SUSPECTED"
	ReasonConfidenceCappedInformational ReasonCode = "CONFIDENCE_CAPPED_INFORMATIONAL"
	ReasonConfidenceZeroedIgnored       ReasonCode = "CONFIDENCE_ZEROED_IGNORED"
	ReasonConfirmedApproved             ReasonCode = "CONFIRMED_APPROVED_BY_GUARDRAILS"

	// CodeConfirmedWithoutGuardrails marks a finding that reached CONFIRMED
	// without guardrails approval. It is recorded, never auto-corrected.
	CodeConfirmedWithoutGuardrails = "CONTRADICTION_CONFIRMED_WITHOUT_GUARDRAILS"
)

// TruthDecision is the immutable, write-once record of reconciling one
// finding. One per finding per run.
type TruthDecision struct {
	FindingID              string          `json:"findingId"`
	FindingType            string          `json:"findingType"`
	FinalStatus            TruthStatus     `json:"finalStatus"`
	ConfidenceBefore       float64         `json:"confidenceBefore"`
	ConfidenceAfter        float64         `json:"confidenceAfter"`
	ConfidenceLevelBefore  ConfidenceLevel `json:"confidenceLevelBefore"`
	ConfidenceLevelAfter   ConfidenceLevel `json:"confidenceLevelAfter"`
	ReconciliationReasons  []ReasonCode    `json:"reconciliationReasons"`
	ContradictionsResolved int             `json:"contradictionsResolved"`
	ConfidenceDelta        float64         `json:"confidenceDelta"`
	DecidedAt              time.Time       `json:"decidedAt"`
}

// Reconciliation is the sub-record attached to a finalized finding with
// before/after confidence and the reason trail.
type Reconciliation struct {
	ConfidenceBefore      float64         `json:"confidenceBefore"`
	ConfidenceAfter       float64         `json:"confidenceAfter"`
	ConfidenceLevelBefore ConfidenceLevel `json:"confidenceLevelBefore"`
	ConfidenceLevelAfter  ConfidenceLevel `json:"confidenceLevelAfter"`
	Reasons               []ReasonCode    `json:"reasons"`
}

// GuardrailsAnnotation is the full guardrails trail carried by a
// finalized finding.
type GuardrailsAnnotation struct {
	Result         GuardrailsResult `json:"result"`
	Reconciliation Reconciliation   `json:"reconciliation"`
}
