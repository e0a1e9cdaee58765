// Package sarif emits the run-level report as SARIF 2.1.0 so code
// scanning dashboards can ingest audit verdicts.
package sarif

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/verityhq/verity/internal/domain"
	"github.com/verityhq/verity/internal/usecase/run"
)

// Writer implements the run.ReportWriter interface for SARIF output.
type Writer struct {
	now     func() string
	version string
}

// NewWriter creates a new SARIF report writer. The version stamps the
// tool descriptor.
func NewWriter(now func() string, version string) *Writer {
	if version == "" {
		version = "0.0.0"
	}
	return &Writer{now: now, version: version}
}

// Write persists the report to disk as a SARIF file.
func (w *Writer) Write(ctx context.Context, outputDir string, report run.Report) (string, error) {
	dir := filepath.Join(outputDir, w.now())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	filePath := filepath.Join(dir, "guardrails-report.sarif")

	file, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create sarif file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(w.convert(report)); err != nil {
		return "", fmt.Errorf("failed to encode report to sarif: %w", err)
	}

	return filePath, nil
}

// convert maps the run report to SARIF. Each finding becomes one result;
// guardrail rules that fired anywhere in the run become driver rules.
func (w *Writer) convert(report run.Report) map[string]interface{} {
	results := make([]map[string]interface{}, 0, len(report.Findings))

	for _, row := range report.Findings {
		// SARIF requires non-empty message text.
		message := fmt.Sprintf("%s judged %s (confidence %.2f, was %.2f)",
			row.FindingType, row.FinalDecision, row.ConfidenceAfter, row.ConfidenceBefore)

		ruleID := row.FindingType
		if len(row.AppliedRules) > 0 {
			ruleID = row.AppliedRules[0]
		}

		result := map[string]interface{}{
			"ruleId":  ruleID,
			"level":   convertStatus(row.FinalDecision),
			"message": map[string]interface{}{"text": message},
			"properties": map[string]interface{}{
				"findingId":             row.FindingID,
				"appliedRules":          row.AppliedRules,
				"contradictions":        len(row.Contradictions),
				"reconciliationReasons": reasonStrings(row.Reasons),
			},
		}
		results = append(results, result)
	}

	return map[string]interface{}{
		"version": "2.1.0",
		"$schema": "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
		"runs": []map[string]interface{}{
			{
				"tool": map[string]interface{}{
					"driver": map[string]interface{}{
						"name":            "verity",
						"version":         w.version,
						"semanticVersion": w.version,
						"rules":           driverRules(report),
					},
				},
				"results": results,
				"properties": map[string]interface{}{
					"runId":          report.RunID,
					"repository":     report.Repository,
					"policyVersion":  report.PolicyVersion,
					"coverageRatio":  report.Enforcement.CoverageTruth.CoverageRatio,
					"coverageStatus": string(report.Enforcement.Status),
					"exitCode":       report.FinalExitCode,
				},
			},
		},
	}
}

// driverRules lists every guardrail rule that fired during the run.
func driverRules(report run.Report) []map[string]interface{} {
	rules := make([]map[string]interface{}, 0, len(report.Aggregates.TopRules))
	for _, usage := range report.Aggregates.TopRules {
		rules = append(rules, map[string]interface{}{
			"id":   usage.RuleID,
			"name": usage.RuleID,
			"shortDescription": map[string]interface{}{
				"text": fmt.Sprintf("Guardrail rule %s (%d applications this run)", usage.RuleID, usage.Count),
			},
		})
	}
	return rules
}

// convertStatus maps truth statuses to SARIF levels. A surviving
// CONFIRMED finding is the failure class; everything weaker is advisory.
func convertStatus(status domain.TruthStatus) string {
	switch status {
	case domain.StatusConfirmed:
		return "error"
	case domain.StatusSuspected:
		return "warning"
	default:
		return "note"
	}
}

func reasonStrings(reasons []domain.ReasonCode) []string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = string(r)
	}
	return out
}
