package cli_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verityhq/verity/internal/adapter/cli"
	"github.com/verityhq/verity/internal/domain"
	"github.com/verityhq/verity/internal/usecase/run"
)

type mockAuditor struct {
	params cli.AuditParams
	result run.Result
	err    error
}

func (m *mockAuditor) Audit(_ context.Context, params cli.AuditParams) (run.Result, error) {
	m.params = params
	return m.result, m.err
}

type mockHistory struct {
	listing string
	limit   int
}

func (m *mockHistory) ListRuns(_ context.Context, limit int) (string, error) {
	m.limit = limit
	return m.listing, nil
}

func execute(t *testing.T, deps cli.Dependencies, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	deps.Args = cli.Arguments{OutWriter: &out, ErrWriter: &out}
	root := cli.NewRootCommand(deps)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func passingResult() run.Result {
	return run.Result{
		Report: run.Report{
			Aggregates: run.Aggregates{
				CountsByDecision: map[domain.TruthStatus]int{domain.StatusSuspected: 2},
			},
		},
		Enforcement: domain.EnforcementResult{
			Status:        domain.EnforcementPass,
			CoverageTruth: domain.CoverageTruth{CoverageRatio: 0.95},
		},
		ReportPaths: []string{"/tmp/out/guardrails-report.json"},
	}
}

func TestAuditRequiresInputFlags(t *testing.T) {
	auditor := &mockAuditor{}

	_, err := execute(t, cli.Dependencies{Auditor: auditor}, "audit")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--findings")

	_, err = execute(t, cli.Dependencies{Auditor: auditor}, "audit", "--findings", "f.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--executions")
}

func TestAuditForwardsFlags(t *testing.T) {
	auditor := &mockAuditor{result: passingResult()}
	deps := cli.Dependencies{
		Auditor: auditor,
		Defaults: cli.Defaults{
			PolicyPath:  "default-policy.yaml",
			MinCoverage: 0.9,
			OutputDir:   "reports",
			Workers:     4,
		},
	}

	out, err := execute(t, deps, "audit",
		"--findings", "findings.json",
		"--executions", "executions.json",
		"--min-coverage", "0.8",
		"--strict",
		"--repo", "shop-frontend",
		"--repo-dir", "/src/shop",
		"--workers", "2",
		"--no-store",
	)
	require.NoError(t, err)

	p := auditor.params
	assert.Equal(t, "findings.json", p.FindingsPath)
	assert.Equal(t, "executions.json", p.ExecutionsPath)
	assert.Equal(t, "default-policy.yaml", p.PolicyPath, "unset flag keeps configured default")
	assert.Equal(t, 0.8, p.MinCoverage)
	assert.True(t, p.Strict)
	assert.Equal(t, "reports", p.OutputDir)
	assert.Equal(t, "shop-frontend", p.Repository)
	assert.Equal(t, "/src/shop", p.RepoDir)
	assert.Equal(t, 2, p.Workers)
	assert.True(t, p.NoStore)

	assert.Contains(t, out, "Findings: 0 confirmed, 2 suspected")
	assert.Contains(t, out, "Coverage: PASS (ratio 0.95)")
	assert.Contains(t, out, "Report: /tmp/out/guardrails-report.json")
	assert.Contains(t, out, "Exit code: 0")
}

func TestAuditNonZeroOutcomeBecomesExitError(t *testing.T) {
	result := passingResult()
	result.ExitCode = 30
	result.Enforcement.Status = domain.EnforcementFail
	result.Enforcement.FailureReason = "coverage 0.75 below minimum 0.90"
	auditor := &mockAuditor{result: result}

	out, err := execute(t, cli.Dependencies{Auditor: auditor},
		"audit", "--findings", "f.json", "--executions", "e.json")

	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 30, exitErr.Code)
	assert.Contains(t, out, "Coverage note: coverage 0.75 below minimum 0.90")
	assert.Contains(t, out, "Exit code: 30")
}

func TestAuditPropagatesPipelineError(t *testing.T) {
	auditor := &mockAuditor{err: errors.New("parse findings: boom")}

	_, err := execute(t, cli.Dependencies{Auditor: auditor},
		"audit", "--findings", "f.json", "--executions", "e.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse findings")
}

func TestHistoryCommand(t *testing.T) {
	history := &mockHistory{listing: "run-1  repo=shop exit=0\n"}

	out, err := execute(t, cli.Dependencies{History: history}, "history", "--limit", "3")
	require.NoError(t, err)
	assert.Equal(t, 3, history.limit)
	assert.Contains(t, out, "run-1")
}

func TestHistoryDisabledWithoutStore(t *testing.T) {
	_, err := execute(t, cli.Dependencies{}, "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history store is disabled")
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(t, cli.Dependencies{Version: "v1.2.3"}, "--version")
	assert.ErrorIs(t, err, cli.ErrVersionRequested)
	assert.Equal(t, "v1.2.3", strings.TrimSpace(out))
}
