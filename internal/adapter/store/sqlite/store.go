// Package sqlite persists run summaries and truth decisions for later
// inspection.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/verityhq/verity/internal/domain"
	"github.com/verityhq/verity/internal/usecase/run"
)

// Store implements the run.Store interface using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a new SQLite store at the given path.
// Use ":memory:" for in-memory database (useful for testing).
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return s, nil
}

func (s *Store) createSchema() error {
	schema := `
	-- One row per audit run
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		generated_at INTEGER NOT NULL,
		repository TEXT,
		source_commit TEXT,
		source_branch TEXT,
		policy_version TEXT NOT NULL,
		policy_source TEXT NOT NULL,
		findings_total INTEGER NOT NULL,
		confirmed INTEGER NOT NULL,
		suspected INTEGER NOT NULL,
		informational INTEGER NOT NULL,
		ignored INTEGER NOT NULL,
		contradictions INTEGER NOT NULL,
		coverage_ratio REAL NOT NULL,
		coverage_status TEXT NOT NULL,
		exit_code INTEGER NOT NULL
	);

	-- One row per finding per run
	CREATE TABLE IF NOT EXISTS truth_decisions (
		run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		finding_id TEXT NOT NULL,
		finding_type TEXT NOT NULL,
		final_status TEXT NOT NULL,
		confidence_before REAL NOT NULL,
		confidence_after REAL NOT NULL,
		level_before TEXT NOT NULL,
		level_after TEXT NOT NULL,
		reasons TEXT NOT NULL,
		contradictions_resolved INTEGER NOT NULL,
		confidence_delta REAL NOT NULL,
		decided_at INTEGER NOT NULL,
		PRIMARY KEY (run_id, finding_id)
	);

	CREATE INDEX IF NOT EXISTS idx_decisions_status
		ON truth_decisions(final_status);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// SaveRun persists the report summary and its decisions in one
// transaction.
func (s *Store) SaveRun(ctx context.Context, report run.Report, decisions []domain.TruthDecision) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			run_id, generated_at, repository, source_commit, source_branch,
			policy_version, policy_source, findings_total,
			confirmed, suspected, informational, ignored, contradictions,
			coverage_ratio, coverage_status, exit_code
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID,
		report.GeneratedAt.Unix(),
		report.Repository,
		report.Source.CommitHash,
		report.Source.Branch,
		report.PolicyVersion,
		report.PolicySource,
		len(report.Findings),
		report.Aggregates.CountsByDecision[domain.StatusConfirmed],
		report.Aggregates.CountsByDecision[domain.StatusSuspected],
		report.Aggregates.CountsByDecision[domain.StatusInformational],
		report.Aggregates.CountsByDecision[domain.StatusIgnored],
		report.Aggregates.Contradictions,
		report.Enforcement.CoverageTruth.CoverageRatio,
		string(report.Enforcement.Status),
		report.FinalExitCode,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO truth_decisions (
			run_id, finding_id, finding_type, final_status,
			confidence_before, confidence_after, level_before, level_after,
			reasons, contradictions_resolved, confidence_delta, decided_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare decision insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range decisions {
		reasons, err := json.Marshal(d.ReconciliationReasons)
		if err != nil {
			return fmt.Errorf("encode reasons for %s: %w", d.FindingID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			report.RunID,
			d.FindingID,
			d.FindingType,
			string(d.FinalStatus),
			d.ConfidenceBefore,
			d.ConfidenceAfter,
			string(d.ConfidenceLevelBefore),
			string(d.ConfidenceLevelAfter),
			string(reasons),
			d.ContradictionsResolved,
			d.ConfidenceDelta,
			d.DecidedAt.Unix(),
		); err != nil {
			return fmt.Errorf("insert decision %s: %w", d.FindingID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RunSummary is a persisted run overview.
type RunSummary struct {
	RunID          string
	Repository     string
	PolicyVersion  string
	FindingsTotal  int
	Confirmed      int
	CoverageRatio  float64
	CoverageStatus string
	ExitCode       int
}

// RecentRuns returns the most recent runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, repository, policy_version, findings_total,
		       confirmed, coverage_ratio, coverage_status, exit_code
		FROM runs ORDER BY generated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.RunID, &s.Repository, &s.PolicyVersion,
			&s.FindingsTotal, &s.Confirmed, &s.CoverageRatio,
			&s.CoverageStatus, &s.ExitCode); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
