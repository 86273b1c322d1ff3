package worker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DukeRupert/lingua/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// memStore is an in-memory JobStore.
type memStore struct {
	mu        sync.Mutex
	jobs      []*repository.Job
	recovered int64
}

func (s *memStore) Dequeue(ctx context.Context) (repository.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, j := range s.jobs {
		if j.Status == "pending" && !j.ScheduledAt.After(now) {
			j.Status = "running"
			j.Attempts++
			return *j, nil
		}
	}
	return repository.Job{}, ErrNoJob
}

func (s *memStore) find(id uuid.UUID) *repository.Job {
	for _, j := range s.jobs {
		if j.ID == id {
			return j
		}
	}
	return nil
}

func (s *memStore) Complete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.find(id).Status = "completed"
	return nil
}

func (s *memStore) Fail(ctx context.Context, id uuid.UUID, message string, permanent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.find(id)
	j.ErrorMessage.String, j.ErrorMessage.Valid = message, true
	if permanent || j.Attempts >= j.MaxAttempts {
		j.Status = "failed"
	} else {
		j.Status = "pending"
		j.ScheduledAt = time.Now().Add(time.Hour)
	}
	return nil
}

func (s *memStore) RecoverStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.recovered, nil
}

func (s *memStore) Enqueue(ctx context.Context, p repository.EnqueueJobParams) (repository.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := &repository.Job{
		ID:          uuid.New(),
		JobType:     p.JobType,
		Payload:     p.Payload,
		Status:      "pending",
		Priority:    p.Priority,
		MaxAttempts: p.MaxAttempts,
		ScheduledAt: p.ScheduledAt,
		CreatedAt:   time.Now(),
	}
	s.jobs = append(s.jobs, j)
	return *j, nil
}

func (s *memStore) CountPending(ctx context.Context, jobType string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, j := range s.jobs {
		if j.JobType == jobType && (j.Status == "pending" || j.Status == "running") {
			n++
		}
	}
	return n, nil
}

func (s *memStore) snapshot() []repository.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]repository.Job, len(s.jobs))
	for i, j := range s.jobs {
		out[i] = *j
	}
	return out
}

type funcHandler struct {
	jobType string
	fn      func(ctx context.Context, payload []byte) error
}

func (h funcHandler) Type() string { return h.jobType }
func (h funcHandler) Handle(ctx context.Context, payload []byte) error {
	return h.fn(ctx, payload)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func newTestWorker(t *testing.T, store JobStore) *Worker {
	t.Helper()
	cfg := DefaultConfig()
	cfg.PollInterval = 10 * time.Millisecond
	w, err := New(store, cfg, newTestLogger())
	require.NoError(t, err)
	return w
}

func TestConfig_Validate(t *testing.T) {
	valid := DefaultConfig()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"concurrency too low", func(c *Config) { c.Concurrency = 0 }, true},
		{"concurrency too high", func(c *Config) { c.Concurrency = 101 }, true},
		{"poll interval too short", func(c *Config) { c.PollInterval = time.Millisecond }, true},
		{"job timeout too short", func(c *Config) { c.JobTimeout = 0 }, true},
		{"stale threshold too short", func(c *Config) { c.StaleJobThreshold = time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Equal(t, tt.wantErr, cfg.Validate() != nil)
		})
	}
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(NewPermanentError(context.Canceled)))
	assert.True(t, IsPermanent(errors.Join(errors.New("outer"), NewPermanentError(context.Canceled))))
	assert.False(t, IsPermanent(context.Canceled))
	assert.ErrorIs(t, NewPermanentError(context.Canceled), context.Canceled)
}

func TestProcessNextJob_Empty(t *testing.T) {
	w := newTestWorker(t, &memStore{})
	assert.ErrorIs(t, w.processNextJob(context.Background(), w.logger), ErrNoJob)
}

func TestProcessNextJob_Outcomes(t *testing.T) {
	tests := []struct {
		name       string
		jobType    string
		handlerErr error
		wantStatus string
	}{
		{"success", "work", nil, "completed"},
		{"transient failure is retried", "work", errors.New("db blip"), "pending"},
		{"permanent failure", "work", NewPermanentError(errors.New("bad payload")), "failed"},
		{"unknown type", "mystery", nil, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memStore{}
			w := newTestWorker(t, store)
			w.Register(funcHandler{jobType: "work", fn: func(ctx context.Context, payload []byte) error {
				return tt.handlerErr
			}})

			_, err := Enqueue(context.Background(), store, tt.jobType, map[string]string{"k": "v"})
			require.NoError(t, err)

			require.NoError(t, w.processNextJob(context.Background(), w.logger))
			jobs := store.snapshot()
			require.Len(t, jobs, 1)
			assert.Equal(t, tt.wantStatus, jobs[0].Status)
			assert.JSONEq(t, `{"k":"v"}`, string(jobs[0].Payload))
		})
	}
}

func TestRecurringJob(t *testing.T) {
	store := &memStore{}
	w := newTestWorker(t, store)

	runs := 0
	w.Register(funcHandler{jobType: "tick", fn: func(ctx context.Context, payload []byte) error {
		runs++
		return nil
	}})
	w.Every("tick", time.Hour)

	// seeding is idempotent
	w.schedule(context.Background(), "tick", 0)
	w.schedule(context.Background(), "tick", 0)
	require.Len(t, store.snapshot(), 1)

	require.NoError(t, w.processNextJob(context.Background(), w.logger))
	assert.Equal(t, 1, runs)

	jobs := store.snapshot()
	require.Len(t, jobs, 2)
	assert.Equal(t, "completed", jobs[0].Status)
	assert.Equal(t, "pending", jobs[1].Status)
	assert.WithinDuration(t, time.Now().Add(time.Hour), jobs[1].ScheduledAt, time.Minute)

	// next run is not due yet
	assert.ErrorIs(t, w.processNextJob(context.Background(), w.logger), ErrNoJob)
}

func TestWorker_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &memStore{recovered: 2}
	w := newTestWorker(t, store)

	done := make(chan struct{})
	w.Register(funcHandler{jobType: JobTypePurgeExpiredSessions, fn: func(ctx context.Context, payload []byte) error {
		close(done)
		return nil
	}})
	w.Every(JobTypePurgeExpiredSessions, time.Hour)

	w.Start(context.Background())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("seeded job never ran")
	}
	w.Stop()
	w.Stop()
}

type fakePurger struct {
	n   int64
	err error
}

func (p fakePurger) DeleteExpiredSessions(ctx context.Context) (int64, error) { return p.n, p.err }

func TestPurgeSessionsHandler(t *testing.T) {
	h := NewPurgeSessionsHandler(fakePurger{n: 4}, newTestLogger())
	assert.Equal(t, JobTypePurgeExpiredSessions, h.Type())
	assert.NoError(t, h.Handle(context.Background(), []byte(`{}`)))

	failing := NewPurgeSessionsHandler(fakePurger{err: errors.New("db down")}, newTestLogger())
	assert.Error(t, failing.Handle(context.Background(), nil))
}

type fakeOTPPurger struct {
	n   int64
	err error
}

func (p fakeOTPPurger) DeleteExpired(ctx context.Context) (int64, error) { return p.n, p.err }

func TestPurgeOTPsHandler(t *testing.T) {
	h := NewPurgeOTPsHandler(fakeOTPPurger{n: 2}, newTestLogger())
	assert.Equal(t, JobTypePurgeExpiredOTPs, h.Type())
	assert.NoError(t, h.Handle(context.Background(), nil))

	failing := NewPurgeOTPsHandler(fakeOTPPurger{err: errors.New("db down")}, newTestLogger())
	assert.Error(t, failing.Handle(context.Background(), nil))
}

func TestRunNow(t *testing.T) {
	store := &memStore{}
	w := newTestWorker(t, store)

	runs := 0
	w.Register(funcHandler{jobType: JobTypePurgeExpiredSessions, fn: func(ctx context.Context, payload []byte) error {
		runs++
		return nil
	}})
	w.Every(JobTypePurgeExpiredSessions, time.Hour)

	// the recurring run is already queued for later
	w.schedule(context.Background(), JobTypePurgeExpiredSessions, time.Hour)

	id, err := w.RunNow(context.Background(), JobTypePurgeExpiredSessions)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	require.NoError(t, w.processNextJob(context.Background(), w.logger))
	assert.Equal(t, 1, runs)

	jobs := store.snapshot()
	require.Len(t, jobs, 2, "a manual run does not add a second recurring job")
	assert.Equal(t, int32(PriorityHigh), jobs[1].Priority)
	assert.Equal(t, "completed", jobs[1].Status)
	assert.Equal(t, "pending", jobs[0].Status)

	_, err = w.RunNow(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownJobType)
	assert.Len(t, store.snapshot(), 2)
}
