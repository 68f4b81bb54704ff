package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ejmartin/freshwax/internal/models"
)

// RunRepository persists run summaries.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a repository backed by the given database.
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Save records a completed run and its failures in one transaction.
func (r *RunRepository) Save(summary *models.RunSummary) error {
	if summary == nil || summary.RunID == "" {
		return fmt.Errorf("cannot save run without an ID")
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (
			id, started_at, finished_at, seeds, candidates, sampled,
			matched, unmatched, added, add_failed, duplicates,
			playlist_id, playlist_url
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID,
		summary.StartedAt.UTC().Format(time.RFC3339),
		summary.FinishedAt.UTC().Format(time.RFC3339),
		summary.Seeds,
		summary.Candidates,
		summary.Sampled,
		summary.Matched,
		summary.Unmatched,
		summary.Added,
		summary.AddFailed,
		summary.Duplicates,
		summary.PlaylistID,
		summary.PlaylistURL,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, failure := range summary.Failures {
		_, err = tx.Exec(
			"INSERT INTO run_failures (run_id, stage, subject, reason) VALUES (?, ?, ?, ?)",
			summary.RunID, failure.Stage.String(), failure.Subject, failure.Reason,
		)
		if err != nil {
			return fmt.Errorf("failed to insert run failure: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// Get retrieves a run summary and its failures by ID.
func (r *RunRepository) Get(id string) (*models.RunSummary, error) {
	row := r.db.QueryRow(`
		SELECT id, started_at, finished_at, seeds, candidates, sampled,
		       matched, unmatched, added, add_failed, duplicates,
		       playlist_id, playlist_url
		FROM runs WHERE id = ?`, id)

	summary, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run %s not found", id)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	rows, err := r.db.Query("SELECT stage, subject, reason FROM run_failures WHERE run_id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run failures: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var stage string
		var failure models.Failure
		if err := rows.Scan(&stage, &failure.Subject, &failure.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan run failure: %w", err)
		}
		failure.Stage = parseStage(stage)
		summary.Failures = append(summary.Failures, failure)
	}
	return summary, rows.Err()
}

// List retrieves the most recent runs, newest first.
func (r *RunRepository) List(limit int) ([]models.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(`
		SELECT id, started_at, finished_at, seeds, candidates, sampled,
		       matched, unmatched, added, add_failed, duplicates,
		       playlist_id, playlist_url
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var summaries []models.RunSummary
	for rows.Next() {
		summary, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		summaries = append(summaries, *summary)
	}
	return summaries, rows.Err()
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*models.RunSummary, error) {
	var summary models.RunSummary
	var startedAt, finishedAt string

	err := row.Scan(
		&summary.RunID,
		&startedAt,
		&finishedAt,
		&summary.Seeds,
		&summary.Candidates,
		&summary.Sampled,
		&summary.Matched,
		&summary.Unmatched,
		&summary.Added,
		&summary.AddFailed,
		&summary.Duplicates,
		&summary.PlaylistID,
		&summary.PlaylistURL,
	)
	if err != nil {
		return nil, err
	}

	if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
		summary.StartedAt = t
	}
	if t, err := time.Parse(time.RFC3339, finishedAt); err == nil {
		summary.FinishedAt = t
	}
	return &summary, nil
}

func parseStage(s string) models.FailureStage {
	switch s {
	case "expand":
		return models.StageExpand
	case "sample":
		return models.StageSample
	case "resolve":
		return models.StageResolve
	default:
		return models.StageAdd
	}
}
