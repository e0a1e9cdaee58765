// Package run wires the truth determination pipeline for one audit run:
// guardrails and reconciliation per finding, coverage enforcement over
// execution records, outcome merging, and report emission.
package run

import (
	"context"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/verityhq/verity/internal/determinism"
	"github.com/verityhq/verity/internal/domain"
	"github.com/verityhq/verity/internal/usecase/coverage"
	"github.com/verityhq/verity/internal/usecase/guardrails"
	"github.com/verityhq/verity/internal/usecase/truth"
)

// Logger receives structured pipeline events. Optional.
type Logger interface {
	LogInfo(ctx context.Context, message string, fields map[string]interface{})
	LogWarning(ctx context.Context, message string, fields map[string]interface{})
}

// Store persists run summaries and truth decisions. Optional.
type Store interface {
	SaveRun(ctx context.Context, report Report, decisions []domain.TruthDecision) error
	Close() error
}

// ReportWriter persists the run-level report artifact and returns the
// written path.
type ReportWriter interface {
	Write(ctx context.Context, outputDir string, report Report) (string, error)
}

// SourceResolver reports the revision of the audited project. Optional.
type SourceResolver interface {
	Resolve(dir string) (SourceInfo, error)
}

// Deps captures the collaborators for the orchestrator. Engine and
// Reconciler are required; the rest degrade gracefully when nil.
type Deps struct {
	Engine     *guardrails.Engine
	Reconciler *truth.Reconciler
	Logger     Logger
	Store      Store
	Writers    []ReportWriter
	Source     SourceResolver
	Clock      determinism.Clock
	NewRunID   func() string
}

// Request describes one audit run.
type Request struct {
	Findings    []domain.Finding
	Executions  []domain.ExecutionRecord
	Repository  string
	RepoDir     string
	OutputDir   string
	MinCoverage float64
	Strict      bool
	Workers     int
}

// Result is the outcome of a run.
type Result struct {
	Findings    []domain.Finding
	Decisions   []domain.TruthDecision
	Enforcement domain.EnforcementResult
	Report      Report
	ReportPaths []string
	ExitCode    int
}

// Orchestrator runs the truth determination pipeline.
type Orchestrator struct {
	deps Deps
}

// NewOrchestrator constructs an orchestrator from its collaborators.
func NewOrchestrator(deps Deps) *Orchestrator {
	if deps.Clock == nil {
		deps.Clock = determinism.SystemClock
	}
	if deps.NewRunID == nil {
		deps.NewRunID = uuid.NewString
	}
	return &Orchestrator{deps: deps}
}

// Run evaluates every finding through guardrails and reconciliation,
// enforces coverage over the execution records, merges the two exit
// codes, and emits the report. Per-finding evaluation is data-parallel:
// findings share no mutable state, so each gets its own task. Coverage
// aggregation runs alongside since the two pipelines share no data.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	workers := req.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	o.logInfo(ctx, "audit run started", map[string]interface{}{
		"findings":   len(req.Findings),
		"executions": len(req.Executions),
		"workers":    workers,
	})

	finalized := make([]domain.Finding, len(req.Findings))
	decisions := make([]domain.TruthDecision, len(req.Findings))
	var enforcement domain.EnforcementResult

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers + 1)

	for i, f := range req.Findings {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			evaluated, grResult := o.deps.Engine.Apply(f, guardrails.ContextFor(f))
			final, decision := o.deps.Reconciler.Finalize(evaluated, grResult, truth.Context{
				InitialConfidence:      f.Confidence,
				InitialConfidenceLevel: f.ConfidenceLevel,
			})
			finalized[i] = final
			decisions[i] = decision
			return nil
		})
	}

	g.Go(func() error {
		enforcement = coverage.Enforce(req.Executions, coverage.Options{
			MinCoverage: req.MinCoverage,
			Strict:      req.Strict,
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	judgmentCode := coverage.JudgmentExitCode(finalized)
	coverageCode := coverage.EnforcementExitCode(enforcement)
	finalCode := coverage.MergeExitCodes(judgmentCode, coverageCode)

	report := Report{
		RunID:            o.deps.NewRunID(),
		GeneratedAt:      o.deps.Clock(),
		Repository:       req.Repository,
		Source:           o.resolveSource(ctx, req.RepoDir),
		PolicyVersion:    o.deps.Engine.Policy().Version,
		PolicySource:     string(o.deps.Engine.Policy().Source),
		Findings:         buildFindingReports(finalized, decisions),
		Aggregates:       buildAggregates(finalized, decisions),
		Enforcement:      enforcement,
		JudgmentExitCode: judgmentCode,
		CoverageExitCode: coverageCode,
		FinalExitCode:    finalCode,
	}

	paths := o.writeReports(ctx, req.OutputDir, report)
	o.persist(ctx, report, decisions)

	o.logInfo(ctx, "audit run finished", map[string]interface{}{
		"runId":          report.RunID,
		"exitCode":       finalCode,
		"coverageRatio":  enforcement.CoverageTruth.CoverageRatio,
		"coverageStatus": string(enforcement.Status),
	})

	return Result{
		Findings:    finalized,
		Decisions:   decisions,
		Enforcement: enforcement,
		Report:      report,
		ReportPaths: paths,
		ExitCode:    finalCode,
	}, nil
}

// resolveSource is best-effort: an audited directory that is not a git
// repository still gets a report, just without revision metadata.
func (o *Orchestrator) resolveSource(ctx context.Context, dir string) SourceInfo {
	if o.deps.Source == nil || dir == "" {
		return SourceInfo{}
	}
	info, err := o.deps.Source.Resolve(dir)
	if err != nil {
		o.logWarning(ctx, "source metadata unavailable", map[string]interface{}{
			"dir":   dir,
			"error": err.Error(),
		})
		return SourceInfo{}
	}
	return info
}

// writeReports emits the artifact through every configured writer.
// Artifact writing is a downstream side effect: a writer failure is
// logged and never changes the run's outcome.
func (o *Orchestrator) writeReports(ctx context.Context, outputDir string, report Report) []string {
	var paths []string
	for _, w := range o.deps.Writers {
		path, err := w.Write(ctx, outputDir, report)
		if err != nil {
			o.logWarning(ctx, "report write failed", map[string]interface{}{"error": err.Error()})
			continue
		}
		paths = append(paths, path)
	}
	return paths
}

func (o *Orchestrator) persist(ctx context.Context, report Report, decisions []domain.TruthDecision) {
	if o.deps.Store == nil {
		return
	}
	if err := o.deps.Store.SaveRun(ctx, report, decisions); err != nil {
		o.logWarning(ctx, "run persistence failed", map[string]interface{}{"error": err.Error()})
	}
}

func (o *Orchestrator) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if o.deps.Logger != nil {
		o.deps.Logger.LogInfo(ctx, msg, fields)
	}
}

func (o *Orchestrator) logWarning(ctx context.Context, msg string, fields map[string]interface{}) {
	if o.deps.Logger != nil {
		o.deps.Logger.LogWarning(ctx, msg, fields)
	}
}
