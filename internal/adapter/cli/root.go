// Package cli defines the command surface of the verity binary.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/verityhq/verity/internal/domain"
	"github.com/verityhq/verity/internal/usecase/run"
)

// ErrVersionRequested indicates the user requested the CLI version and no further work should be done.
var ErrVersionRequested = errors.New("version requested")

// ExitError carries a non-zero process exit code decided by the truth
// pipeline (20 judgment failure, 30 incomplete or low coverage).
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("audit exit code %d", e.Code)
}

// AuditParams captures the inputs of one audit invocation.
type AuditParams struct {
	FindingsPath   string
	ExecutionsPath string
	PolicyPath     string
	MinCoverage    float64
	Strict         bool
	OutputDir      string
	Repository     string
	RepoDir        string
	Workers        int
	NoStore        bool
}

// Auditor runs the truth determination pipeline for the audit command.
type Auditor interface {
	Audit(ctx context.Context, params AuditParams) (run.Result, error)
}

// HistoryLister reads persisted run summaries for the history command.
type HistoryLister interface {
	ListRuns(ctx context.Context, limit int) (string, error)
}

// Arguments encapsulates IO writers injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Defaults holds configuration-derived default values for flags.
type Defaults struct {
	PolicyPath  string
	MinCoverage float64
	Strict      bool
	OutputDir   string
	Workers     int
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	Auditor  Auditor
	History  HistoryLister
	Args     Arguments
	Defaults Defaults
	Version  string
}

// NewRootCommand constructs the root Cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "verity",
		Short: "Web-behavior truth verifier",
		Long:  "verity judges whether detected web-behavior findings can be trusted and whether a run's coverage makes its verdict meaningful.",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	root.AddCommand(auditCommand(deps.Auditor, deps.Defaults))
	root.AddCommand(historyCommand(deps.History))

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler
	root.PreRunE = versionHandler
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}
		return cmd.Help()
	}

	return root
}

func auditCommand(auditor Auditor, defaults Defaults) *cobra.Command {
	var findingsPath string
	var executionsPath string
	var policyPath string
	var minCoverage float64
	var strict bool
	var outputDir string
	var repository string
	var repoDir string
	var workers int
	var noStore bool

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Judge a run's findings and coverage",
		RunE: func(cmd *cobra.Command, args []string) error {
			if findingsPath == "" {
				return fmt.Errorf("--findings is required")
			}
			if executionsPath == "" {
				return fmt.Errorf("--executions is required")
			}

			result, err := auditor.Audit(cmd.Context(), AuditParams{
				FindingsPath:   findingsPath,
				ExecutionsPath: executionsPath,
				PolicyPath:     policyPath,
				MinCoverage:    minCoverage,
				Strict:         strict,
				OutputDir:      outputDir,
				Repository:     repository,
				RepoDir:        repoDir,
				Workers:        workers,
				NoStore:        noStore,
			})
			if err != nil {
				return err
			}

			printSummary(cmd.OutOrStdout(), result)

			if result.ExitCode != 0 {
				return &ExitError{Code: result.ExitCode}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&findingsPath, "findings", "", "Path to the findings artifact produced by detection")
	cmd.Flags().StringVar(&executionsPath, "executions", "", "Path to the execution records produced by observation")
	cmd.Flags().StringVar(&policyPath, "policy", defaults.PolicyPath, "Custom guardrails policy document (default: compiled-in policy)")
	cmd.Flags().Float64Var(&minCoverage, "min-coverage", defaults.MinCoverage, "Minimum acceptable coverage ratio")
	cmd.Flags().BoolVar(&strict, "strict", defaults.Strict, "Treat incomplete coverage as a run failure")
	cmd.Flags().StringVar(&outputDir, "output", defaults.OutputDir, "Report output directory")
	cmd.Flags().StringVar(&repository, "repo", "", "Name of the audited project for the report header")
	cmd.Flags().StringVar(&repoDir, "repo-dir", "", "Directory of the audited project, for source revision metadata")
	cmd.Flags().IntVar(&workers, "workers", defaults.Workers, "Parallel finding evaluations (0 = one per CPU)")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Skip persisting this run to the history store")

	return cmd
}

func historyCommand(history HistoryLister) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent audit runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if history == nil {
				return fmt.Errorf("run history store is disabled")
			}
			listing, err := history.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), listing)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Number of runs to list")
	return cmd
}

func printSummary(w io.Writer, result run.Result) {
	agg := result.Report.Aggregates
	fmt.Fprintf(w, "Findings: %d confirmed, %d suspected, %d informational, %d ignored\n",
		agg.CountsByDecision[domain.StatusConfirmed],
		agg.CountsByDecision[domain.StatusSuspected],
		agg.CountsByDecision[domain.StatusInformational],
		agg.CountsByDecision[domain.StatusIgnored])
	fmt.Fprintf(w, "Coverage: %s (ratio %.2f)\n",
		result.Enforcement.Status, result.Enforcement.CoverageTruth.CoverageRatio)
	if result.Enforcement.FailureReason != "" {
		fmt.Fprintf(w, "Coverage note: %s\n", result.Enforcement.FailureReason)
	}
	for _, path := range result.ReportPaths {
		fmt.Fprintf(w, "Report: %s\n", path)
	}
	fmt.Fprintf(w, "Exit code: %d\n", result.ExitCode)
}
