package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// TruthStatus describes how strongly a finding's claim should be trusted.
// The set is closed; values are ordered by claim strength.
type TruthStatus string

const (
	StatusConfirmed     TruthStatus = "CONFIRMED"
	StatusSuspected     TruthStatus = "SUSPECTED"
	StatusInformational TruthStatus = "INFORMATIONAL"
	StatusIgnored       TruthStatus = "IGNORED"
)

// Rank returns the claim strength of the status. Higher is stronger:
// CONFIRMED > SUSPECTED > INFORMATIONAL > IGNORED. Unknown statuses rank
// below IGNORED so they can never win a strongest-claim comparison.
func (s TruthStatus) Rank() int {
	switch s {
	case StatusConfirmed:
		return 3
	case StatusSuspected:
		return 2
	case StatusInformational:
		return 1
	case StatusIgnored:
		return 0
	default:
		return -1
	}
}

// IsValid returns true if the status is a recognized value.
func (s TruthStatus) IsValid() bool {
	return s.Rank() >= 0
}

// Weaker returns the status with the lower claim strength.
func Weaker(a, b TruthStatus) TruthStatus {
	if b.Rank() < a.Rank() {
		return b
	}
	return a
}

// ConfidenceLevel is the band a numeric confidence falls into.
type ConfidenceLevel string

const (
	LevelHigh     ConfidenceLevel = "HIGH"
	LevelMedium   ConfidenceLevel = "MEDIUM"
	LevelLow      ConfidenceLevel = "LOW"
	LevelUnproven ConfidenceLevel = "UNPROVEN"
)

// Band thresholds. A status cap always references a band ceiling:
// SUSPECTED findings top out just below HIGH, INFORMATIONAL at the LOW
// floor, IGNORED at exactly zero.
const (
	HighThreshold   = 0.8
	MediumThreshold = 0.5
	LowThreshold    = 0.2

	SuspectedConfidenceCap     = 0.69
	InformationalConfidenceCap = 0.2
)

// LevelFor maps a confidence score to its band. Levels are recomputed
// after capping, never before.
func LevelFor(confidence float64) ConfidenceLevel {
	switch {
	case confidence >= HighThreshold:
		return LevelHigh
	case confidence >= MediumThreshold:
		return LevelMedium
	case confidence >= LowThreshold:
		return LevelLow
	default:
		return LevelUnproven
	}
}

// EvidencePackage is an opaque reference to externally produced, sanitized
// evidence. The truth pipeline only inspects completeness; content stays
// with the evidence collector.
type EvidencePackage struct {
	ID       string   `json:"id"`
	Complete bool     `json:"complete"`
	Missing  []string `json:"missing,omitempty"`
}

// Finding is one detected discrepancy between a code-derived promise and
// observed behavior. Findings are created once by Detection, annotated by
// the guardrails and reconciliation stages, and never destroyed. Pipeline
// stages return new values instead of mutating in place.
type Finding struct {
	ID              string                `json:"id"`
	Type            string                `json:"type"`
	PromiseID       string                `json:"promiseId,omitempty"`
	Status          TruthStatus           `json:"status"`
	Confidence      float64               `json:"confidence"`
	ConfidenceLevel ConfidenceLevel       `json:"confidenceLevel"`
	Evidence        EvidencePackage       `json:"evidence"`
	Signals         Signals               `json:"signals"`
	Guardrails      *GuardrailsAnnotation `json:"guardrails,omitempty"`
}

// FindingInput captures the information required to create a Finding.
type FindingInput struct {
	Type       string
	PromiseID  string
	Status     TruthStatus
	Confidence float64
	Evidence   EvidencePackage
	Signals    Signals
}

// NewFinding constructs a Finding with a deterministic ID and a derived
// confidence level.
func NewFinding(input FindingInput) Finding {
	return Finding{
		ID:              hashFinding(input),
		Type:            input.Type,
		PromiseID:       input.PromiseID,
		Status:          input.Status,
		Confidence:      input.Confidence,
		ConfidenceLevel: LevelFor(input.Confidence),
		Evidence:        input.Evidence,
		Signals:         input.Signals,
	}
}

func hashFinding(input FindingInput) string {
	payload := fmt.Sprintf("%s|%s|%s|%.4f|%s",
		input.Type,
		input.PromiseID,
		input.Status,
		input.Confidence,
		input.Evidence.ID,
	)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// WithStatus returns a copy of the finding with the given status.
func (f Finding) WithStatus(status TruthStatus) Finding {
	f.Status = status
	return f
}

// WithConfidence returns a copy of the finding with the given confidence
// and a recomputed confidence level.
func (f Finding) WithConfidence(confidence float64) Finding {
	f.Confidence = confidence
	f.ConfidenceLevel = LevelFor(confidence)
	return f
}

// WithGuardrails returns a copy of the finding carrying the guardrails
// annotation.
func (f Finding) WithGuardrails(annotation GuardrailsAnnotation) Finding {
	f.Guardrails = &annotation
	return f
}
