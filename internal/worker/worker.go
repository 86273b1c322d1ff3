package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/DukeRupert/lingua/internal/metrics"
	"github.com/DukeRupert/lingua/internal/repository"
	"github.com/google/uuid"
)

// Worker polls a JobStore and runs registered handlers.
type Worker struct {
	store     JobStore
	handlers  map[string]JobHandler
	recurring map[string]time.Duration
	config    Config
	logger    *slog.Logger

	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a Worker. Register handlers, then call Start.
func New(store JobStore, config Config, logger *slog.Logger) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Worker{
		store:     store,
		handlers:  make(map[string]JobHandler),
		recurring: make(map[string]time.Duration),
		config:    config,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}, nil
}

// Register adds a job handler. Call before Start.
func (w *Worker) Register(handler JobHandler) {
	jobType := handler.Type()
	if _, exists := w.handlers[jobType]; exists {
		w.logger.Warn("overwriting existing handler", "job_type", jobType)
	}
	w.handlers[jobType] = handler
}

// Every keeps one job of jobType queued, each due interval after the
// previous one finished. Call before Start.
func (w *Worker) Every(jobType string, interval time.Duration) {
	w.recurring[jobType] = interval
}

// ErrUnknownJobType is returned by RunNow for a type with no handler.
var ErrUnknownJobType = errors.New("unknown job type")

// RunNow queues one high priority run of jobType, independent of its
// recurring schedule.
func (w *Worker) RunNow(ctx context.Context, jobType string) (uuid.UUID, error) {
	if _, ok := w.handlers[jobType]; !ok {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrUnknownJobType, jobType)
	}

	job, err := Enqueue(ctx, w.store, jobType, nil, WithPriority(PriorityHigh))
	if err != nil {
		return uuid.Nil, err
	}

	w.logger.Info("job triggered", "job_id", job.ID, "job_type", jobType)
	return job.ID, nil
}

// Start recovers stale jobs, seeds recurring jobs and launches the polling
// goroutines. ctx is the parent of every job context.
func (w *Worker) Start(ctx context.Context) {
	if n, err := w.store.RecoverStale(ctx, w.config.StaleJobThreshold); err != nil {
		w.logger.Error("failed to recover stale jobs", "error", err)
	} else if n > 0 {
		w.logger.Warn("recovered stale jobs", "count", n, "threshold", w.config.StaleJobThreshold)
	}

	for jobType := range w.recurring {
		w.schedule(ctx, jobType, 0)
	}

	for i := 0; i < w.config.Concurrency; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}

	w.logger.Info("worker started", "concurrency", w.config.Concurrency)
}

// Stop signals the polling goroutines and waits up to ShutdownTimeout.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(w.config.ShutdownTimeout)
	defer timer.Stop()

	select {
	case <-done:
		w.logger.Info("worker stopped")
	case <-timer.C:
		w.logger.Warn("worker shutdown timeout exceeded, some jobs may still be running")
	}
}

func (w *Worker) run(ctx context.Context, id int) {
	defer w.wg.Done()

	logger := w.logger.With("worker_id", id)
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.processNextJob(ctx, logger); err != nil && !errors.Is(err, ErrNoJob) {
				logger.Error("failed to process job", "error", err)
			}
		}
	}
}

// processNextJob runs at most one job. It returns ErrNoJob when the queue
// has nothing due.
func (w *Worker) processNextJob(ctx context.Context, logger *slog.Logger) error {
	job, err := w.store.Dequeue(ctx)
	if err != nil {
		return err
	}

	logger = logger.With("job_id", job.ID, "job_type", job.JobType, "attempt", job.Attempts)
	logger.Debug("processing job")

	metrics.JobStarted(job.JobType)
	start := time.Now()

	if err := w.execute(ctx, job); err != nil {
		metrics.JobFailed(job.JobType)
		permanent := IsPermanent(err)
		logger.Error("job failed", "error", err, "permanent", permanent)

		if ferr := w.store.Fail(ctx, job.ID, err.Error(), permanent); ferr != nil {
			return fmt.Errorf("mark job failed: %w", ferr)
		}
		if permanent || job.Attempts >= job.MaxAttempts {
			w.reschedule(ctx, job.JobType)
		}
		return nil
	}

	metrics.JobCompleted(job.JobType, time.Since(start))
	if err := w.store.Complete(ctx, job.ID); err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}
	w.reschedule(ctx, job.JobType)

	logger.Debug("job completed", "duration", time.Since(start))
	return nil
}

func (w *Worker) execute(ctx context.Context, job repository.Job) error {
	handler, ok := w.handlers[job.JobType]
	if !ok {
		return NewPermanentError(fmt.Errorf("no handler registered for job type: %s", job.JobType))
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancel()

	return handler.Handle(jobCtx, job.Payload)
}

// reschedule queues the next run of a recurring job type.
func (w *Worker) reschedule(ctx context.Context, jobType string) {
	if interval, ok := w.recurring[jobType]; ok {
		w.schedule(ctx, jobType, interval)
	}
}

// schedule enqueues jobType after delay unless one is already pending or
// running.
func (w *Worker) schedule(ctx context.Context, jobType string, delay time.Duration) {
	n, err := w.store.CountPending(ctx, jobType)
	if err != nil {
		w.logger.Error("failed to count pending jobs", "job_type", jobType, "error", err)
		return
	}
	if n > 0 {
		return
	}

	if _, err := Enqueue(ctx, w.store, jobType, nil, WithDelay(delay), WithPriority(PriorityLow)); err != nil {
		w.logger.Error("failed to schedule recurring job", "job_type", jobType, "error", err)
	}
}
