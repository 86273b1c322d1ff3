package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/DukeRupert/lingua/internal/repository"
	"github.com/google/uuid"
)

// ErrNoJob is returned by JobStore.Dequeue when nothing is due.
var ErrNoJob = errors.New("no job available")

// JobStore persists the job queue.
type JobStore interface {
	// Dequeue claims the next due job and marks it running.
	Dequeue(ctx context.Context) (repository.Job, error)
	Complete(ctx context.Context, id uuid.UUID) error
	// Fail records a failure. The job is retried with backoff unless
	// permanent is set or its attempts are used up.
	Fail(ctx context.Context, id uuid.UUID, message string, permanent bool) error
	// RecoverStale resets jobs that have been running longer than olderThan.
	RecoverStale(ctx context.Context, olderThan time.Duration) (int64, error)
	Enqueue(ctx context.Context, params repository.EnqueueJobParams) (repository.Job, error)
	// CountPending counts pending and running jobs of one type.
	CountPending(ctx context.Context, jobType string) (int64, error)
}

// PostgresJobStore is a JobStore on the jobs table.
type PostgresJobStore struct {
	db      *sql.DB
	queries *repository.Queries
}

// NewPostgresJobStore creates a JobStore backed by db.
func NewPostgresJobStore(db *sql.DB, queries *repository.Queries) *PostgresJobStore {
	return &PostgresJobStore{db: db, queries: queries}
}

// Dequeue selects with FOR UPDATE SKIP LOCKED and marks the row running in
// the same transaction, so concurrent workers never claim the same job.
func (s *PostgresJobStore) Dequeue(ctx context.Context) (repository.Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return repository.Job{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	job, err := qtx.DequeueJob(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.Job{}, ErrNoJob
		}
		return repository.Job{}, fmt.Errorf("dequeue job: %w", err)
	}

	if err := qtx.UpdateJobStarted(ctx, job.ID); err != nil {
		return repository.Job{}, fmt.Errorf("mark job started: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return repository.Job{}, fmt.Errorf("commit dequeue: %w", err)
	}

	job.Status = "running"
	job.Attempts++
	return job, nil
}

func (s *PostgresJobStore) Complete(ctx context.Context, id uuid.UUID) error {
	return s.queries.UpdateJobCompleted(ctx, id)
}

func (s *PostgresJobStore) Fail(ctx context.Context, id uuid.UUID, message string, permanent bool) error {
	return s.queries.UpdateJobFailed(ctx, repository.UpdateJobFailedParams{
		ID:           id,
		ErrorMessage: sql.NullString{String: message, Valid: true},
		Permanent:    permanent,
	})
}

func (s *PostgresJobStore) RecoverStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.queries.RecoverStaleJobs(ctx, olderThan.Seconds())
}

func (s *PostgresJobStore) Enqueue(ctx context.Context, params repository.EnqueueJobParams) (repository.Job, error) {
	return s.queries.EnqueueJob(ctx, params)
}

func (s *PostgresJobStore) CountPending(ctx context.Context, jobType string) (int64, error) {
	return s.queries.CountPendingJobsByType(ctx, jobType)
}
