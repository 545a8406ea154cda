package redisqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/example/claimdesk/internal/ports/secondary"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestQueue(t *testing.T, cfg Config) (*Queue, *fakeClock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	if cfg.Name == "" {
		cfg.Name = "test"
	}
	clock := &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	q := New(client, cfg, nil)
	q.now = clock.Now
	return q, clock, mr
}

func add(t *testing.T, q *Queue, jobType string, opts secondary.AddOptions) *secondary.Job {
	t.Helper()
	job, err := q.Add(context.Background(), jobType, secondary.JobPayload{ClaimID: "CLM-1", Data: map[string]any{"n": 1}}, opts)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	return job
}

func TestQueue_PriorityThenFIFO(t *testing.T) {
	q, _, _ := newTestQueue(t, Config{})
	ctx := context.Background()

	add(t, q, "a", secondary.AddOptions{JobID: "low", Priority: secondary.PriorityLow})
	add(t, q, "a", secondary.AddOptions{JobID: "medium-1"})
	add(t, q, "a", secondary.AddOptions{JobID: "urgent", Priority: secondary.PriorityUrgent})
	add(t, q, "a", secondary.AddOptions{JobID: "high", Priority: secondary.PriorityHigh})
	add(t, q, "a", secondary.AddOptions{JobID: "medium-2", Priority: secondary.PriorityMedium})

	var got []string
	for {
		job, err := q.claim(ctx)
		if err != nil {
			t.Fatalf("claim() error = %v", err)
		}
		if job == nil {
			break
		}
		got = append(got, job.ID)
	}

	want := []string{"urgent", "high", "medium-1", "medium-2", "low"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("dequeue order mismatch (-want +got):\n%s", diff)
	}
}

func TestQueue_AddIsIdempotentByJobID(t *testing.T) {
	q, _, _ := newTestQueue(t, Config{})
	ctx := context.Background()

	first := add(t, q, "check_timeout", secondary.AddOptions{JobID: "check_timeout:CLM-1:2:100", Delay: time.Minute})
	second, err := q.Add(ctx, "other", secondary.JobPayload{ClaimID: "CLM-2"}, secondary.AddOptions{JobID: "check_timeout:CLM-1:2:100"})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if second.Type != "check_timeout" || second.ClaimID != "CLM-1" {
		t.Errorf("duplicate Add returned %+v, want the original job", second)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed on duplicate Add")
	}

	stats, _ := q.Stats(ctx)
	if stats.Delayed != 1 || stats.Waiting != 0 {
		t.Errorf("stats = %+v, want one delayed job", stats)
	}
}

func TestQueue_AddDefaults(t *testing.T) {
	q, clock, _ := newTestQueue(t, Config{Attempts: 2, Backoff: 5 * time.Second})

	job := add(t, q, "create_escalation", secondary.AddOptions{})

	if job.ID == "" {
		t.Error("ID is empty, want generated id")
	}
	if job.Priority != secondary.PriorityMedium {
		t.Errorf("Priority = %q, want medium", job.Priority)
	}
	if job.MaxAttempts != 2 || job.Backoff != 5*time.Second {
		t.Errorf("MaxAttempts = %d Backoff = %v, want 2 and 5s", job.MaxAttempts, job.Backoff)
	}
	if job.State != secondary.JobStateWaiting {
		t.Errorf("State = %q, want waiting", job.State)
	}
	if !job.CreatedAt.Equal(clock.Now()) {
		t.Errorf("CreatedAt = %v, want %v", job.CreatedAt, clock.Now())
	}
	if job.Data["n"] != float64(1) {
		t.Errorf("Data = %v", job.Data)
	}
}

func TestQueue_DelayedJobBecomesVisible(t *testing.T) {
	q, clock, _ := newTestQueue(t, Config{})
	ctx := context.Background()

	add(t, q, "check_timeout", secondary.AddOptions{JobID: "later", Delay: 10 * time.Second})

	job, err := q.claim(ctx)
	if err != nil || job != nil {
		t.Fatalf("claim() before delay = %v, %v, want nothing", job, err)
	}

	clock.Advance(10 * time.Second)
	job, err = q.claim(ctx)
	if err != nil {
		t.Fatalf("claim() error = %v", err)
	}
	if job == nil || job.ID != "later" {
		t.Fatalf("claim() = %v, want job later", job)
	}
	if job.State != secondary.JobStateActive || job.AttemptsMade != 1 {
		t.Errorf("State = %q AttemptsMade = %d, want active and 1", job.State, job.AttemptsMade)
	}
}

func TestQueue_RemoveCancelsPendingJob(t *testing.T) {
	q, _, _ := newTestQueue(t, Config{})
	ctx := context.Background()

	add(t, q, "check_timeout", secondary.AddOptions{JobID: "delayed", Delay: time.Hour})
	add(t, q, "check_timeout", secondary.AddOptions{JobID: "busy"})
	if _, err := q.claim(ctx); err != nil {
		t.Fatalf("claim() error = %v", err)
	}

	removed, err := q.Remove(ctx, "delayed")
	if err != nil || !removed {
		t.Errorf("Remove(delayed) = %v, %v, want true", removed, err)
	}
	if _, err := q.GetJob(ctx, "delayed"); !errors.Is(err, secondary.ErrNotFound) {
		t.Errorf("GetJob after remove err = %v, want ErrNotFound", err)
	}

	removed, err = q.Remove(ctx, "missing")
	if err != nil || removed {
		t.Errorf("Remove(missing) = %v, %v, want false, nil", removed, err)
	}

	if _, err := q.Remove(ctx, "busy"); !errors.Is(err, ErrJobActive) {
		t.Errorf("Remove(active) err = %v, want ErrJobActive", err)
	}
}

func TestQueue_StalledJobIsRecovered(t *testing.T) {
	q, clock, _ := newTestQueue(t, Config{LockDuration: 30 * time.Second, Attempts: 3})
	ctx := context.Background()

	add(t, q, "agent_alert", secondary.AddOptions{JobID: "stall"})
	if job, _ := q.claim(ctx); job == nil {
		t.Fatal("claim() = nil, want job")
	}

	clock.Advance(31 * time.Second)
	job, err := q.claim(ctx)
	if err != nil {
		t.Fatalf("claim() error = %v", err)
	}
	if job == nil || job.ID != "stall" {
		t.Fatalf("claim() = %v, want recovered job", job)
	}
	if job.AttemptsMade != 2 {
		t.Errorf("AttemptsMade = %d, want 2", job.AttemptsMade)
	}
}

func TestQueue_StalledJobOutOfAttemptsFails(t *testing.T) {
	q, clock, _ := newTestQueue(t, Config{LockDuration: time.Second, Attempts: 1})
	ctx := context.Background()

	add(t, q, "agent_alert", secondary.AddOptions{JobID: "stall"})
	q.claim(ctx)
	clock.Advance(2 * time.Second)

	if job, _ := q.claim(ctx); job != nil {
		t.Errorf("claim() = %v, want nothing", job.ID)
	}
	job, _ := q.GetJob(ctx, "stall")
	if job.State != secondary.JobStateFailed {
		t.Errorf("State = %q, want failed", job.State)
	}
}

func TestWorker_RetriesWithExponentialBackoffThenFails(t *testing.T) {
	q, clock, _ := newTestQueue(t, Config{Attempts: 3, Backoff: 2 * time.Second})
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	w := NewWorker(q, WorkerConfig{}, zap.NewNop(), metrics)

	calls := 0
	w.Handle("agent_alert", func(ctx context.Context, job *secondary.Job) error {
		calls++
		return errors.New("provider unavailable")
	})
	add(t, q, "agent_alert", secondary.AddOptions{JobID: "n1"})

	wantDelays := []time.Duration{2 * time.Second, 4 * time.Second}
	for i, delay := range wantDelays {
		processed, err := w.ProcessNext(ctx)
		if err != nil || !processed {
			t.Fatalf("attempt %d: ProcessNext() = %v, %v", i+1, processed, err)
		}
		job, _ := q.GetJob(ctx, "n1")
		if job.State != secondary.JobStateDelayed {
			t.Fatalf("attempt %d: State = %q, want delayed", i+1, job.State)
		}
		if want := clock.Now().Add(delay); !job.ProcessAt.Equal(want) {
			t.Errorf("attempt %d: ProcessAt = %v, want %v", i+1, job.ProcessAt, want)
		}

		// Not visible before the backoff elapses
		clock.Advance(delay - time.Millisecond)
		if processed, _ := w.ProcessNext(ctx); processed {
			t.Fatalf("attempt %d: job ran before backoff elapsed", i+1)
		}
		clock.Advance(time.Millisecond)
	}

	if processed, err := w.ProcessNext(ctx); err != nil || !processed {
		t.Fatalf("final attempt: ProcessNext() = %v, %v", processed, err)
	}

	job, _ := q.GetJob(ctx, "n1")
	if job.State != secondary.JobStateFailed {
		t.Errorf("State = %q, want failed", job.State)
	}
	if job.LastError != "provider unavailable" {
		t.Errorf("LastError = %q", job.LastError)
	}
	if calls != 3 {
		t.Errorf("handler calls = %d, want 3", calls)
	}

	stats, _ := q.Stats(ctx)
	if stats.Failed != 1 || stats.Delayed != 0 || stats.Active != 0 {
		t.Errorf("stats = %+v, want one failed job", stats)
	}
	if got := testutil.ToFloat64(metrics.JobsProcessed.WithLabelValues("test", "agent_alert", OutcomeRetried)); got != 2 {
		t.Errorf("retried metric = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.JobsProcessed.WithLabelValues("test", "agent_alert", OutcomeFailed)); got != 1 {
		t.Errorf("failed metric = %v, want 1", got)
	}
}

func TestWorker_CompletesJob(t *testing.T) {
	q, _, _ := newTestQueue(t, Config{})
	ctx := context.Background()
	w := NewWorker(q, WorkerConfig{}, zap.NewNop(), nil)

	var seen *secondary.Job
	w.Handle("customer_update", func(ctx context.Context, job *secondary.Job) error {
		seen = job
		return nil
	})
	add(t, q, "customer_update", secondary.AddOptions{JobID: "ok"})

	if processed, err := w.ProcessNext(ctx); err != nil || !processed {
		t.Fatalf("ProcessNext() = %v, %v", processed, err)
	}
	if seen == nil || seen.ClaimID != "CLM-1" {
		t.Fatalf("handler saw %+v", seen)
	}

	job, _ := q.GetJob(ctx, "ok")
	if job.State != secondary.JobStateCompleted || job.FinishedAt.IsZero() {
		t.Errorf("job = %+v, want completed with finish time", job)
	}
	stats, _ := q.Stats(ctx)
	if stats.Completed != 1 {
		t.Errorf("Completed = %d, want 1", stats.Completed)
	}
}

func TestWorker_UnknownTypeFailsWithoutRetry(t *testing.T) {
	q, _, _ := newTestQueue(t, Config{Attempts: 5})
	ctx := context.Background()
	w := NewWorker(q, WorkerConfig{}, zap.NewNop(), nil)

	add(t, q, "mystery", secondary.AddOptions{JobID: "m"})
	w.ProcessNext(ctx)

	job, _ := q.GetJob(ctx, "m")
	if job.State != secondary.JobStateFailed {
		t.Errorf("State = %q, want failed", job.State)
	}
}

func TestWorker_PanicIsRetried(t *testing.T) {
	q, _, _ := newTestQueue(t, Config{Attempts: 2})
	ctx := context.Background()
	w := NewWorker(q, WorkerConfig{}, zap.NewNop(), nil)
	w.Handle("agent_alert", func(ctx context.Context, job *secondary.Job) error {
		panic("boom")
	})

	add(t, q, "agent_alert", secondary.AddOptions{JobID: "p"})
	if _, err := w.ProcessNext(ctx); err != nil {
		t.Fatalf("ProcessNext() error = %v", err)
	}

	job, _ := q.GetJob(ctx, "p")
	if job.State != secondary.JobStateDelayed {
		t.Errorf("State = %q, want delayed for retry", job.State)
	}
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	q, _, _ := newTestQueue(t, Config{})
	w := NewWorker(q, WorkerConfig{Concurrency: 2, RateLimit: 100, PollInterval: 5 * time.Millisecond}, zap.NewNop(), nil)

	done := make(chan string, 1)
	w.Handle("agent_alert", func(ctx context.Context, job *secondary.Job) error {
		done <- job.ID
		return nil
	})
	add(t, q, "agent_alert", secondary.AddOptions{JobID: "run"})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	select {
	case id := <-done:
		if id != "run" {
			t.Errorf("processed %q, want run", id)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("job was not processed")
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestWorker_ConcurrencyAndRateLimit(t *testing.T) {
	q, _, _ := newTestQueue(t, Config{})
	w := NewWorker(q, WorkerConfig{Concurrency: 3, RateLimit: 5, PollInterval: 5 * time.Millisecond}, zap.NewNop(), nil)

	var inFlight, peak, started atomic.Int32
	w.Handle("agent_alert", func(ctx context.Context, job *secondary.Job) error {
		started.Add(1)
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		select {
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
		}
		return nil
	})
	for i := 0; i < 20; i++ {
		add(t, q, "agent_alert", secondary.AddOptions{JobID: fmt.Sprintf("rl-%d", i)})
	}

	const window = 2 * time.Second
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()
	time.Sleep(window)
	cancel()
	if err := <-errc; err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}

	if got := peak.Load(); got > 3 || got < 2 {
		t.Errorf("peak in-flight handlers = %d, want 2..3", got)
	}
	// A full bucket of 5 plus 5 per second over the window.
	if got := started.Load(); got < 8 || got > 16 {
		t.Errorf("jobs started in %v = %d, want 8..16", window, got)
	}
}
