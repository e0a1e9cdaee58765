// Package ingest reads the artifacts the detection and observation
// stages emit: the findings to judge and the execution records to cover.
// Malformed input aborts the run before any evaluation, the same
// fail-fast posture as policy loading.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/verityhq/verity/internal/domain"
	"github.com/verityhq/verity/internal/redaction"
)

// findingsDocument accepts both a bare array and the wrapped form the
// detection stage writes.
type findingsDocument struct {
	Findings []domain.Finding `json:"findings"`
}

// executionsDocument mirrors findingsDocument for observation output.
type executionsDocument struct {
	Executions []domain.ExecutionRecord `json:"executions"`
}

// LoadFindings reads and validates a findings artifact.
func LoadFindings(path string) ([]domain.Finding, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read findings %s: %w", path, err)
	}

	findings, err := decodeFindings(raw)
	if err != nil {
		return nil, fmt.Errorf("parse findings %s: %w", path, err)
	}

	redactor := redaction.NewEngine()
	for i, f := range findings {
		if err := validateFinding(f); err != nil {
			return nil, fmt.Errorf("findings %s: entry %d: %w", path, i, err)
		}
		// Derived fields the producer may omit.
		if f.ConfidenceLevel == "" {
			findings[i].ConfidenceLevel = domain.LevelFor(f.Confidence)
		}
		if f.ID == "" {
			findings[i] = withDerivedID(findings[i])
		}
		// Captured URLs can carry session tokens; scrub before anything
		// downstream sees them.
		findings[i] = redactor.SanitizeFinding(findings[i])
	}
	return findings, nil
}

// LoadExecutions reads and validates an execution-records artifact.
func LoadExecutions(path string) ([]domain.ExecutionRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read executions %s: %w", path, err)
	}

	records, err := decodeExecutions(raw)
	if err != nil {
		return nil, fmt.Errorf("parse executions %s: %w", path, err)
	}

	for i, rec := range records {
		if rec.PromiseID == "" {
			return nil, fmt.Errorf("executions %s: entry %d: missing promiseId", path, i)
		}
		if rec.Skipped && rec.SkipReason == "" {
			return nil, fmt.Errorf("executions %s: entry %d: skipped without a skipReason", path, i)
		}
	}
	return records, nil
}

func decodeFindings(raw []byte) ([]domain.Finding, error) {
	var bare []domain.Finding
	if err := json.Unmarshal(raw, &bare); err == nil {
		return bare, nil
	}
	var doc findingsDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc.Findings == nil {
		return nil, fmt.Errorf("no findings array present")
	}
	return doc.Findings, nil
}

func decodeExecutions(raw []byte) ([]domain.ExecutionRecord, error) {
	var bare []domain.ExecutionRecord
	if err := json.Unmarshal(raw, &bare); err == nil {
		return bare, nil
	}
	var doc executionsDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc.Executions == nil {
		return nil, fmt.Errorf("no executions array present")
	}
	return doc.Executions, nil
}

func validateFinding(f domain.Finding) error {
	if f.Type == "" {
		return fmt.Errorf("missing type")
	}
	if !f.Status.IsValid() {
		return fmt.Errorf("unknown status %q", f.Status)
	}
	if f.Confidence < 0 || f.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", f.Confidence)
	}
	return nil
}

func withDerivedID(f domain.Finding) domain.Finding {
	derived := domain.NewFinding(domain.FindingInput{
		Type:       f.Type,
		PromiseID:  f.PromiseID,
		Status:     f.Status,
		Confidence: f.Confidence,
		Evidence:   f.Evidence,
		Signals:    f.Signals,
	})
	f.ID = derived.ID
	return f
}
