package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/verityhq/verity/internal/adapter/cli"
	gitadapter "github.com/verityhq/verity/internal/adapter/git"
	"github.com/verityhq/verity/internal/adapter/ingest"
	"github.com/verityhq/verity/internal/adapter/observability"
	jsonout "github.com/verityhq/verity/internal/adapter/output/json"
	"github.com/verityhq/verity/internal/adapter/output/markdown"
	"github.com/verityhq/verity/internal/adapter/output/sarif"
	"github.com/verityhq/verity/internal/adapter/store/sqlite"
	"github.com/verityhq/verity/internal/config"
	"github.com/verityhq/verity/internal/determinism"
	"github.com/verityhq/verity/internal/domain"
	"github.com/verityhq/verity/internal/policy"
	"github.com/verityhq/verity/internal/usecase/guardrails"
	"github.com/verityhq/verity/internal/usecase/run"
	"github.com/verityhq/verity/internal/usecase/truth"
	"github.com/verityhq/verity/internal/version"
)

// Exit codes beyond the pipeline's own 0/20/30.
const (
	exitGeneralError = 1
	exitUsageError   = 2
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	// Cancellable context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "verity",
		EnvPrefix:   "VERITY",
	})
	if err != nil {
		log.Printf("config load failed: %v", err)
		return exitUsageError
	}

	logger := buildLogger(cfg.Observability)

	var store *sqlite.Store
	if cfg.Store.Enabled {
		storeDir := filepath.Dir(cfg.Store.Path)
		if err := os.MkdirAll(storeDir, 0755); err != nil {
			log.Printf("warning: failed to create store directory: %v", err)
		} else if s, err := sqlite.NewStore(cfg.Store.Path); err != nil {
			log.Printf("warning: failed to initialize store: %v", err)
		} else {
			store = s
			defer store.Close()
		}
	}

	svc := &auditService{
		cfg:    cfg,
		logger: logger,
		store:  store,
	}

	var history cli.HistoryLister
	if store != nil {
		history = &historyService{store: store}
	}

	root := cli.NewRootCommand(cli.Dependencies{
		Auditor: svc,
		History: history,
		Defaults: cli.Defaults{
			PolicyPath:  cfg.Policy.Path,
			MinCoverage: cfg.Coverage.MinCoverage,
			Strict:      cfg.Coverage.Strict,
			OutputDir:   cfg.Output.Directory,
			Workers:     cfg.Run.Workers,
		},
		Version: version.Value(),
	})

	if err := root.ExecuteContext(ctx); err != nil {
		switch {
		case errors.Is(err, cli.ErrVersionRequested):
			return 0
		case errors.Is(err, policy.ErrInvalidPolicy):
			log.Printf("configuration error: %v", err)
			return exitUsageError
		default:
			var exitErr *cli.ExitError
			if errors.As(err, &exitErr) {
				return exitErr.Code
			}
			log.Printf("command failed: %v", err)
			return exitGeneralError
		}
	}
	return 0
}

// auditService wires the per-run pipeline: policy load, ingestion,
// orchestration. The policy is loaded once per run and frozen before any
// finding is evaluated.
type auditService struct {
	cfg    config.Config
	logger observability.Logger
	store  *sqlite.Store
}

func (s *auditService) Audit(ctx context.Context, params cli.AuditParams) (run.Result, error) {
	pol, err := policy.Store{}.Load(params.PolicyPath)
	if err != nil {
		return run.Result{}, err
	}

	findings, err := ingest.LoadFindings(params.FindingsPath)
	if err != nil {
		return run.Result{}, err
	}
	executions, err := ingest.LoadExecutions(params.ExecutionsPath)
	if err != nil {
		return run.Result{}, err
	}

	var runStore run.Store
	if s.store != nil && !params.NoStore {
		runStore = &storeBridge{store: s.store}
	}

	repository := params.Repository
	if repository == "" && params.RepoDir != "" {
		repository = repositoryName(params.RepoDir)
	}

	orchestrator := run.NewOrchestrator(run.Deps{
		Engine:     guardrails.NewEngine(pol),
		Reconciler: truth.NewReconciler(determinism.SystemClock),
		Logger:     s.logger,
		Store:      runStore,
		Writers:    buildWriters(s.cfg.Output),
		Source:     gitadapter.NewResolver(),
		Clock:      determinism.SystemClock,
	})

	return orchestrator.Run(ctx, run.Request{
		Findings:    findings,
		Executions:  executions,
		Repository:  repository,
		RepoDir:     params.RepoDir,
		OutputDir:   params.OutputDir,
		MinCoverage: params.MinCoverage,
		Strict:      params.Strict,
		Workers:     params.Workers,
	})
}

// historyService adapts the SQLite store to the history command.
type historyService struct {
	store *sqlite.Store
}

func (h *historyService) ListRuns(ctx context.Context, limit int) (string, error) {
	summaries, err := h.store.RecentRuns(ctx, limit)
	if err != nil {
		return "", err
	}
	if len(summaries) == 0 {
		return "no runs recorded\n", nil
	}

	var sb strings.Builder
	for _, s := range summaries {
		sb.WriteString(fmt.Sprintf("%s  repo=%s policy=%s findings=%d confirmed=%d coverage=%.2f/%s exit=%d\n",
			s.RunID, s.Repository, s.PolicyVersion, s.FindingsTotal,
			s.Confirmed, s.CoverageRatio, s.CoverageStatus, s.ExitCode))
	}
	return sb.String(), nil
}

// storeBridge narrows *sqlite.Store to the run.Store port.
type storeBridge struct {
	store *sqlite.Store
}

func (b *storeBridge) SaveRun(ctx context.Context, report run.Report, decisions []domain.TruthDecision) error {
	return b.store.SaveRun(ctx, report, decisions)
}

func (b *storeBridge) Close() error {
	return b.store.Close()
}

func buildWriters(cfg config.OutputConfig) []run.ReportWriter {
	// Timestamp function for deterministic output directory naming.
	nowFunc := func() string {
		return time.Now().UTC().Format("20060102T150405Z")
	}

	var writers []run.ReportWriter
	for _, format := range cfg.Formats {
		switch format {
		case "json":
			writers = append(writers, jsonout.NewWriter(nowFunc))
		case "markdown":
			writers = append(writers, markdown.NewWriter(nowFunc))
		case "sarif":
			writers = append(writers, sarif.NewWriter(nowFunc, version.Value()))
		default:
			log.Printf("warning: unknown report format %q, skipping", format)
		}
	}
	return writers
}

func buildLogger(cfg config.ObservabilityConfig) observability.Logger {
	if !cfg.Logging.Enabled {
		return nil
	}

	level := observability.LogLevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = observability.LogLevelDebug
	case "warning":
		level = observability.LogLevelWarning
	case "error":
		level = observability.LogLevelError
	}

	format := observability.LogFormatHuman
	switch cfg.Logging.Format {
	case "json":
		format = observability.LogFormatJSON
	case "human":
		format = observability.LogFormatHuman
	default:
		// No explicit format: humans get human output, pipelines get JSON.
		if !term.IsTerminal(int(os.Stderr.Fd())) {
			format = observability.LogFormatJSON
		}
	}

	return observability.NewDefaultLogger(level, format)
}

func repositoryName(repoDir string) string {
	abs, err := filepath.Abs(repoDir)
	if err != nil {
		return "unknown"
	}
	return filepath.Base(abs)
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "verity"))
	}
	return paths
}

// Compile-time interface compliance checks
var _ cli.Auditor = (*auditService)(nil)
var _ cli.HistoryLister = (*historyService)(nil)
var _ run.Store = (*storeBridge)(nil)
var _ run.ReportWriter = (*jsonout.Writer)(nil)
var _ run.ReportWriter = (*markdown.Writer)(nil)
var _ run.ReportWriter = (*sarif.Writer)(nil)
var _ run.SourceResolver = (*gitadapter.Resolver)(nil)
var _ run.Logger = (*observability.DefaultLogger)(nil)
