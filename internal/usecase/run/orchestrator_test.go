package run_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verityhq/verity/internal/determinism"
	"github.com/verityhq/verity/internal/domain"
	"github.com/verityhq/verity/internal/policy"
	"github.com/verityhq/verity/internal/usecase/guardrails"
	"github.com/verityhq/verity/internal/usecase/run"
	"github.com/verityhq/verity/internal/usecase/truth"
)

var runTime = time.Date(2026, 5, 2, 17, 0, 0, 0, time.UTC)

type mockStore struct {
	mu        sync.Mutex
	saved     []run.Report
	decisions [][]domain.TruthDecision
	err       error
}

func (m *mockStore) SaveRun(_ context.Context, report run.Report, decisions []domain.TruthDecision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, report)
	m.decisions = append(m.decisions, decisions)
	return nil
}

func (m *mockStore) Close() error { return nil }

type mockWriter struct {
	err     error
	written []run.Report
}

func (m *mockWriter) Write(_ context.Context, outputDir string, report run.Report) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.written = append(m.written, report)
	return filepath.Join(outputDir, "guardrails-report.json"), nil
}

type mockSource struct {
	info run.SourceInfo
	err  error
}

func (m *mockSource) Resolve(string) (run.SourceInfo, error) {
	return m.info, m.err
}

type recordingLogger struct {
	mu       sync.Mutex
	warnings []string
}

func (l *recordingLogger) LogInfo(context.Context, string, map[string]interface{}) {}

func (l *recordingLogger) LogWarning(_ context.Context, msg string, _ map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, msg)
}

func newOrchestrator(t *testing.T, deps run.Deps) *run.Orchestrator {
	t.Helper()
	if deps.Engine == nil {
		deps.Engine = guardrails.NewEngine(policy.Default())
	}
	if deps.Reconciler == nil {
		deps.Reconciler = truth.NewReconciler(determinism.FixedClock(runTime))
	}
	if deps.Clock == nil {
		deps.Clock = determinism.FixedClock(runTime)
	}
	if deps.NewRunID == nil {
		deps.NewRunID = func() string { return "run-test" }
	}
	return run.NewOrchestrator(deps)
}

func observedRecords(observed, total int) []domain.ExecutionRecord {
	recs := make([]domain.ExecutionRecord, total)
	for i := range recs {
		recs[i] = domain.ExecutionRecord{PromiseID: "p", Attempted: true, Observed: i < observed}
	}
	return recs
}

// The end-to-end pipeline: a CONFIRMED silent-failure claim contradicted
// by a successful request with no UI change ends up SUSPECTED at 0.6 and
// the run still passes judgment.
func TestRunDowngradesContradictedConfirmedFinding(t *testing.T) {
	o := newOrchestrator(t, run.Deps{})

	f := domain.NewFinding(domain.FindingInput{
		Type:       "silent_failure",
		PromiseID:  "promise-1",
		Status:     domain.StatusConfirmed,
		Confidence: 0.9,
		Evidence:   domain.EvidencePackage{ID: "ev-1", Complete: true},
		Signals: domain.Signals{
			Network: domain.NetworkSignals{TotalRequests: 1, SuccessfulRequests: 1},
		},
	})

	result, err := o.Run(context.Background(), run.Request{
		Findings:   []domain.Finding{f},
		Executions: observedRecords(10, 10),
	})
	require.NoError(t, err)

	require.Len(t, result.Findings, 1)
	assert.Equal(t, domain.StatusSuspected, result.Findings[0].Status)
	assert.InDelta(t, 0.6, result.Findings[0].Confidence, 1e-9)

	require.Len(t, result.Decisions, 1)
	assert.Equal(t, 0.9, result.Decisions[0].ConfidenceBefore)
	assert.InDelta(t, 0.6, result.Decisions[0].ConfidenceAfter, 1e-9)
	assert.Equal(t, runTime, result.Decisions[0].DecidedAt)

	assert.Equal(t, 0, result.ExitCode, "no finding survives CONFIRMED, so judgment passes")
	assert.Equal(t, domain.EnforcementPass, result.Enforcement.Status)
}

func TestRunConfirmedFindingFailsJudgment(t *testing.T) {
	o := newOrchestrator(t, run.Deps{})

	// Failed request and a UI change: no default rule contradicts this
	// confirmed claim, so it survives and fails the run.
	f := domain.NewFinding(domain.FindingInput{
		Type:       "silent_failure",
		PromiseID:  "promise-1",
		Status:     domain.StatusConfirmed,
		Confidence: 0.9,
		Evidence:   domain.EvidencePackage{ID: "ev-1", Complete: true},
		Signals: domain.Signals{
			Network: domain.NetworkSignals{TotalRequests: 1, FailedRequests: 1},
			UI:      domain.UISignals{Changed: true},
		},
	})

	result, err := o.Run(context.Background(), run.Request{
		Findings:   []domain.Finding{f},
		Executions: observedRecords(10, 10),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusConfirmed, result.Findings[0].Status)
	assert.Equal(t, 20, result.ExitCode)
	assert.Equal(t, 20, result.Report.JudgmentExitCode)
	assert.Equal(t, 0, result.Report.CoverageExitCode)
}

func TestRunCoverageFailureOverridesPassingJudgment(t *testing.T) {
	o := newOrchestrator(t, run.Deps{})

	result, err := o.Run(context.Background(), run.Request{
		Executions: observedRecords(6, 10),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.EnforcementFail, result.Enforcement.Status)
	assert.True(t, result.Enforcement.OverridesJudgment)
	assert.Equal(t, 30, result.ExitCode)
}

func TestRunMergesWorstExitCode(t *testing.T) {
	o := newOrchestrator(t, run.Deps{})

	confirmed := domain.NewFinding(domain.FindingInput{
		Type:       "silent_failure",
		Status:     domain.StatusConfirmed,
		Confidence: 0.9,
		Evidence:   domain.EvidencePackage{ID: "ev-1", Complete: true},
		Signals: domain.Signals{
			Network: domain.NetworkSignals{TotalRequests: 1, FailedRequests: 1},
			UI:      domain.UISignals{Changed: true},
		},
	})

	result, err := o.Run(context.Background(), run.Request{
		Findings:   []domain.Finding{confirmed},
		Executions: observedRecords(1, 10),
	})
	require.NoError(t, err)

	assert.Equal(t, 20, result.Report.JudgmentExitCode)
	assert.Equal(t, 30, result.Report.CoverageExitCode)
	assert.Equal(t, 30, result.ExitCode)
}

func TestRunPreservesFindingOrderAcrossWorkers(t *testing.T) {
	o := newOrchestrator(t, run.Deps{})

	var findings []domain.Finding
	for i := 0; i < 32; i++ {
		findings = append(findings, domain.NewFinding(domain.FindingInput{
			Type:       "silent_failure",
			PromiseID:  "promise-" + string(rune('a'+i%26)) + string(rune('0'+i/26)),
			Status:     domain.StatusSuspected,
			Confidence: 0.5,
			Signals: domain.Signals{
				Network: domain.NetworkSignals{TotalRequests: 1, FailedRequests: 1},
				UI:      domain.UISignals{Changed: true},
			},
		}))
	}

	result, err := o.Run(context.Background(), run.Request{
		Findings:   findings,
		Executions: observedRecords(10, 10),
		Workers:    4,
	})
	require.NoError(t, err)

	require.Len(t, result.Findings, len(findings))
	for i := range findings {
		assert.Equal(t, findings[i].ID, result.Findings[i].ID, "index %d", i)
		assert.Equal(t, findings[i].ID, result.Decisions[i].FindingID, "index %d", i)
	}
}

func TestRunWritesReportsAndPersists(t *testing.T) {
	store := &mockStore{}
	writer := &mockWriter{}
	o := newOrchestrator(t, run.Deps{
		Store:   store,
		Writers: []run.ReportWriter{writer},
		Source:  &mockSource{info: run.SourceInfo{CommitHash: "abc123", Branch: "main"}},
	})

	result, err := o.Run(context.Background(), run.Request{
		Executions: observedRecords(10, 10),
		Repository: "shop-frontend",
		RepoDir:    "/tmp/shop-frontend",
		OutputDir:  t.TempDir(),
	})
	require.NoError(t, err)

	require.Len(t, result.ReportPaths, 1)
	require.Len(t, writer.written, 1)
	require.Len(t, store.saved, 1)

	report := store.saved[0]
	assert.Equal(t, "run-test", report.RunID)
	assert.Equal(t, runTime, report.GeneratedAt)
	assert.Equal(t, "shop-frontend", report.Repository)
	assert.Equal(t, "abc123", report.Source.CommitHash)
	assert.Equal(t, policy.Default().Version, report.PolicyVersion)
}

// Writer and store failures are side-effect failures: logged, never
// fatal, and never able to change the exit code.
func TestRunToleratesSideEffectFailures(t *testing.T) {
	logger := &recordingLogger{}
	o := newOrchestrator(t, run.Deps{
		Logger:  logger,
		Store:   &mockStore{err: errors.New("disk full")},
		Writers: []run.ReportWriter{&mockWriter{err: errors.New("permission denied")}},
		Source:  &mockSource{err: errors.New("not a repository")},
	})

	result, err := o.Run(context.Background(), run.Request{
		Executions: observedRecords(10, 10),
		RepoDir:    "/tmp/nowhere",
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.ExitCode)
	assert.Empty(t, result.ReportPaths)
	assert.Equal(t, run.SourceInfo{}, result.Report.Source)
	assert.Len(t, logger.warnings, 3)
}

func TestRunCancelledContext(t *testing.T) {
	o := newOrchestrator(t, run.Deps{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var findings []domain.Finding
	for i := 0; i < 8; i++ {
		findings = append(findings, domain.NewFinding(domain.FindingInput{
			Type: "silent_failure", Status: domain.StatusSuspected, Confidence: 0.5,
		}))
	}

	_, err := o.Run(ctx, run.Request{Findings: findings})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunAggregates(t *testing.T) {
	o := newOrchestrator(t, run.Deps{})

	contradicted := domain.NewFinding(domain.FindingInput{
		Type:       "silent_failure",
		PromiseID:  "promise-1",
		Status:     domain.StatusConfirmed,
		Confidence: 0.9,
		Evidence:   domain.EvidencePackage{ID: "ev-1", Complete: true},
		Signals: domain.Signals{
			Network: domain.NetworkSignals{TotalRequests: 1, SuccessfulRequests: 1},
		},
	})
	quiet := domain.NewFinding(domain.FindingInput{
		Type:       "form_failure",
		PromiseID:  "promise-2",
		Status:     domain.StatusSuspected,
		Confidence: 0.5,
		Evidence:   domain.EvidencePackage{ID: "ev-2", Complete: true},
		Signals: domain.Signals{
			Network: domain.NetworkSignals{TotalRequests: 1, FailedRequests: 1},
			UI:      domain.UISignals{Changed: true},
		},
	})
	// Above the INFORMATIONAL band: reconciliation caps it to 0.2.
	overconfident := domain.NewFinding(domain.FindingInput{
		Type:       "view_failure",
		PromiseID:  "promise-3",
		Status:     domain.StatusInformational,
		Confidence: 0.5,
		Evidence:   domain.EvidencePackage{ID: "ev-3", Complete: true},
		Signals: domain.Signals{
			UI: domain.UISignals{Changed: true},
		},
	})

	result, err := o.Run(context.Background(), run.Request{
		Findings:   []domain.Finding{contradicted, quiet, overconfident},
		Executions: observedRecords(10, 10),
	})
	require.NoError(t, err)

	// The contradicted finding was downgraded next to the already-suspected
	// quiet one.
	agg := result.Report.Aggregates
	assert.Equal(t, 2, agg.CountsByDecision[domain.StatusSuspected])
	assert.Equal(t, 1, agg.CountsByDecision[domain.StatusInformational])
	assert.Zero(t, agg.CountsByDecision[domain.StatusConfirmed])
	assert.Equal(t, 1, agg.Contradictions)
	require.NotEmpty(t, agg.TopRules)
	assert.Equal(t, "NET_SUCCESS_NO_UI", agg.TopRules[0].RuleID)
	assert.GreaterOrEqual(t, agg.Reconciliations, 1)
}
