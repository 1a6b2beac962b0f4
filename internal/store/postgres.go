package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/marketscope/predictd/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5. The result
// payload is stored as JSONB and scanned through pgx's native JSON support.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.PredictionJob) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO prediction_jobs (id, symbol, prediction_type, window_size, status, requested_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		job.ID, job.Symbol, job.PredictionType, job.WindowSize, job.Status, job.RequestedBy,
		job.CreatedAt, job.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.PredictionJob, error) {
	var j models.PredictionJob
	err := s.pool.QueryRow(ctx,
		`SELECT id, symbol, prediction_type, window_size, status, requested_by, result, error_message, started_at, completed_at, created_at, updated_at
		 FROM prediction_jobs WHERE id = $1`, id,
	).Scan(&j.ID, &j.Symbol, &j.PredictionType, &j.WindowSize, &j.Status, &j.RequestedBy,
		&j.Result, &j.ErrorMessage, &j.StartedAt, &j.CompletedAt, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &j, nil
}

// UpdateJobStatus applies the transition only when the stored status still
// equals expectedStatus. The WHERE clause carries the compare-and-set; zero
// rows affected means either a lost race (ErrConflict) or a missing job.
func (s *PostgresStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, expectedStatus, newStatus string, opts ...JobUpdateOption) error {
	if !transitionAllowed(expectedStatus, newStatus) {
		return fmt.Errorf("invalid job status transition: %s -> %s", expectedStatus, newStatus)
	}

	params := &jobUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}

	now := time.Now().UTC()
	query := `UPDATE prediction_jobs SET status = $3, updated_at = $4`
	args := []any{id, expectedStatus, newStatus, now}
	argIdx := 5

	if newStatus == models.JobStatusProcessing {
		query += fmt.Sprintf(", started_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if newStatus == models.JobStatusCompleted || newStatus == models.JobStatusFailed {
		query += fmt.Sprintf(", completed_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if params.ErrorMessage != nil {
		query += fmt.Sprintf(", error_message = $%d", argIdx)
		args = append(args, *params.ErrorMessage)
		argIdx++
	}
	if params.Result != nil {
		query += fmt.Sprintf(", result = $%d", argIdx)
		args = append(args, params.Result)
		argIdx++
	}

	query += " WHERE id = $1 AND status = $2"

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM prediction_jobs WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check job existence: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
