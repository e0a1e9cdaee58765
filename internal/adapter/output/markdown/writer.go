// Package markdown renders the run-level guardrails report for humans.
package markdown

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/verityhq/verity/internal/domain"
	"github.com/verityhq/verity/internal/usecase/run"
)

type clock func() string

// Writer implements the run.ReportWriter interface for Markdown output.
type Writer struct {
	now clock
}

// NewWriter creates a new Markdown report writer.
func NewWriter(now clock) *Writer {
	return &Writer{now: now}
}

var titleCaser = cases.Title(language.English)

// Write renders the report and persists it to disk.
func (w *Writer) Write(ctx context.Context, outputDir string, report run.Report) (string, error) {
	dir := filepath.Join(outputDir, w.now())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	filePath := filepath.Join(dir, "guardrails-report.md")
	if err := os.WriteFile(filePath, []byte(render(report)), 0644); err != nil {
		return "", fmt.Errorf("failed to write markdown report: %w", err)
	}
	return filePath, nil
}

func render(report run.Report) string {
	var sb strings.Builder

	sb.WriteString("# Guardrails Report\n\n")
	sb.WriteString(fmt.Sprintf("- **Run**: %s\n", report.RunID))
	sb.WriteString(fmt.Sprintf("- **Generated**: %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST")))
	if report.Repository != "" {
		sb.WriteString(fmt.Sprintf("- **Repository**: %s\n", report.Repository))
	}
	if report.Source.CommitHash != "" {
		source := report.Source.CommitHash
		if report.Source.Branch != "" {
			source = fmt.Sprintf("%s (%s)", source, report.Source.Branch)
		}
		if report.Source.Dirty {
			source += " [dirty]"
		}
		sb.WriteString(fmt.Sprintf("- **Source**: %s\n", source))
	}
	sb.WriteString(fmt.Sprintf("- **Policy**: %s (%s)\n", report.PolicyVersion, report.PolicySource))
	sb.WriteString(fmt.Sprintf("- **Exit code**: %d (judgment %d, coverage %d)\n\n",
		report.FinalExitCode, report.JudgmentExitCode, report.CoverageExitCode))

	sb.WriteString("## Outcome Summary\n\n")
	for _, status := range []domain.TruthStatus{
		domain.StatusConfirmed, domain.StatusSuspected,
		domain.StatusInformational, domain.StatusIgnored,
	} {
		count := report.Aggregates.CountsByDecision[status]
		sb.WriteString(fmt.Sprintf("- %s: %d\n", statusTitle(status), count))
	}
	sb.WriteString(fmt.Sprintf("- Contradictions: %d\n", report.Aggregates.Contradictions))
	sb.WriteString(fmt.Sprintf("- Reconciliations: %d\n\n", report.Aggregates.Reconciliations))

	if len(report.Aggregates.TopRules) > 0 {
		sb.WriteString("## Most Applied Rules\n\n")
		sb.WriteString("| Rule | Applications |\n|---|---|\n")
		for _, usage := range report.Aggregates.TopRules {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", usage.RuleID, usage.Count))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Coverage\n\n")
	cov := report.Enforcement.CoverageTruth
	sb.WriteString(fmt.Sprintf("- **Status**: %s\n", statusTitle(domain.TruthStatus(report.Enforcement.Status))))
	sb.WriteString(fmt.Sprintf("- **Ratio**: %.2f (%d observed of %d eligible)\n",
		cov.CoverageRatio, cov.Observed, cov.Total-cov.LegallySkipped))
	sb.WriteString(fmt.Sprintf("- Skipped: %d (%d legal, %d illegal), attempted but unobserved: %d\n",
		cov.Skipped, cov.LegallySkipped, cov.IllegallySkipped, cov.AttemptedNotObserved))
	if report.Enforcement.FailureReason != "" {
		sb.WriteString(fmt.Sprintf("- %s\n", report.Enforcement.FailureReason))
	}
	sb.WriteString("\n")

	if len(report.Findings) > 0 {
		sb.WriteString("## Findings\n\n")
		sb.WriteString("| Finding | Type | Decision | Confidence | Rules | Reasons |\n")
		sb.WriteString("|---|---|---|---|---|---|\n")
		for _, row := range report.Findings {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.2f → %.2f | %s | %s |\n",
				shortID(row.FindingID),
				row.FindingType,
				row.FinalDecision,
				row.ConfidenceBefore,
				row.ConfidenceAfter,
				strings.Join(row.AppliedRules, ", "),
				joinReasons(row.Reasons)))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func statusTitle(s domain.TruthStatus) string {
	return titleCaser.String(strings.ToLower(string(s)))
}

func joinReasons(reasons []domain.ReasonCode) string {
	parts := make([]string, len(reasons))
	for i, r := range reasons {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
