package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/notafiscal/internal/common"
	"github.com/joseph-ayodele/notafiscal/internal/entity"
)

// timeLayout is fixed-width so TEXT ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type RunRepository interface {
	Start(ctx context.Context, run entity.BatchRun) error
	Finish(ctx context.Context, run entity.BatchRun, failures []entity.DocumentFailure) error
	Get(ctx context.Context, id uuid.UUID) (*entity.BatchRun, error)
	ListRecent(ctx context.Context, limit int) ([]entity.BatchRun, error)
	Failures(ctx context.Context, id uuid.UUID) ([]entity.DocumentFailure, error)
}

type runRepo struct {
	db  *DB
	log *slog.Logger
}

func NewRunRepository(db *DB, log *slog.Logger) RunRepository {
	if log == nil {
		log = slog.Default()
	}
	return &runRepo{db: db, log: log}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func (r *runRepo) Start(ctx context.Context, run entity.BatchRun) error {
	q := r.db.rebind(`INSERT INTO batch_runs (id, source, status, documents, started_at) VALUES (?, ?, ?, ?, ?)`)
	if _, err := r.db.SQL.ExecContext(ctx, q, run.ID.String(), run.Source, run.Status, run.Documents, formatTime(run.StartedAt)); err != nil {
		r.log.Error("batch_run start failed", "run_id", run.ID, "err", err)
		return fmt.Errorf("%w: insert batch run: %w", common.ErrDatabase, err)
	}
	r.log.Debug("batch_run started", "run_id", run.ID, "documents", run.Documents)
	return nil
}

func (r *runRepo) Finish(ctx context.Context, run entity.BatchRun, failures []entity.DocumentFailure) error {
	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", common.ErrDatabase, err)
	}
	defer func() { _ = tx.Rollback() }()

	var finished *string
	if run.FinishedAt != nil {
		s := formatTime(*run.FinishedAt)
		finished = &s
	}
	q := r.db.rebind(`UPDATE batch_runs
		SET status = ?, row_count = ?, duplicates_removed = ?, failures = ?, finished_at = ?, error_message = ?
		WHERE id = ?`)
	res, err := tx.ExecContext(ctx, q, run.Status, run.Rows, run.DuplicatesRemoved, run.Failures, finished, run.ErrorMessage, run.ID.String())
	if err != nil {
		return fmt.Errorf("%w: update batch run: %w", common.ErrDatabase, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("batch run %s: %w", run.ID, common.ErrNotFound)
	}

	ins := r.db.rebind(`INSERT INTO batch_failures (run_id, position, document, error) VALUES (?, ?, ?, ?)`)
	for _, f := range failures {
		if _, err := tx.ExecContext(ctx, ins, run.ID.String(), f.Position, f.Document, f.Error); err != nil {
			return fmt.Errorf("%w: insert batch failure: %w", common.ErrDatabase, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", common.ErrDatabase, err)
	}
	r.log.Debug("batch_run finished", "run_id", run.ID, "status", run.Status, "failures", len(failures))
	return nil
}

const runColumns = `id, source, status, documents, row_count, duplicates_removed, failures, started_at, finished_at, error_message`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*entity.BatchRun, error) {
	var (
		id, started string
		finished    sql.NullString
		errMsg      sql.NullString
		run         entity.BatchRun
	)
	if err := s.Scan(&id, &run.Source, &run.Status, &run.Documents, &run.Rows, &run.DuplicatesRemoved, &run.Failures, &started, &finished, &errMsg); err != nil {
		return nil, err
	}
	var err error
	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse run id: %w", err)
	}
	if run.StartedAt, err = parseTime(started); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if finished.Valid {
		t, err := parseTime(finished.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		run.FinishedAt = &t
	}
	if errMsg.Valid {
		run.ErrorMessage = &errMsg.String
	}
	return &run, nil
}

func (r *runRepo) Get(ctx context.Context, id uuid.UUID) (*entity.BatchRun, error) {
	q := r.db.rebind(`SELECT ` + runColumns + ` FROM batch_runs WHERE id = ?`)
	run, err := scanRun(r.db.SQL.QueryRowContext(ctx, q, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("batch run %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get batch run: %w", common.ErrDatabase, err)
	}
	return run, nil
}

func (r *runRepo) ListRecent(ctx context.Context, limit int) ([]entity.BatchRun, error) {
	if limit <= 0 {
		limit = 20
	}
	q := r.db.rebind(`SELECT ` + runColumns + ` FROM batch_runs ORDER BY started_at DESC, id LIMIT ?`)
	rows, err := r.db.SQL.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list batch runs: %w", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []entity.BatchRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan batch run: %w", common.ErrDatabase, err)
		}
		out = append(out, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list batch runs: %w", common.ErrDatabase, err)
	}
	return out, nil
}

func (r *runRepo) Failures(ctx context.Context, id uuid.UUID) ([]entity.DocumentFailure, error) {
	q := r.db.rebind(`SELECT position, document, error FROM batch_failures WHERE run_id = ? ORDER BY position`)
	rows, err := r.db.SQL.QueryContext(ctx, q, id.String())
	if err != nil {
		return nil, fmt.Errorf("%w: list batch failures: %w", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []entity.DocumentFailure
	for rows.Next() {
		var f entity.DocumentFailure
		if err := rows.Scan(&f.Position, &f.Document, &f.Error); err != nil {
			return nil, fmt.Errorf("%w: scan batch failure: %w", common.ErrDatabase, err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list batch failures: %w", common.ErrDatabase, err)
	}
	return out, nil
}
