package redisqueue

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/example/claimdesk/internal/ports/secondary"
)

// ErrNoHandler is recorded on jobs whose type has no registered handler.
// Such jobs fail without retry.
var ErrNoHandler = errors.New("no handler for job type")

// WorkerConfig holds the processing limits of a worker.
type WorkerConfig struct {
	Concurrency   int           // Parallel jobs, default 1
	RateLimit     float64       // Jobs started per second, 0 for unlimited
	PollInterval  time.Duration // Sleep when the queue is empty, default 250ms
	StatsInterval time.Duration // Queue depth refresh, default 15s
}

// Worker pulls jobs from one queue and runs the handler registered for their type.
type Worker struct {
	queue    *Queue
	cfg      WorkerConfig
	limiter  *rate.Limiter
	logger   *zap.Logger
	metrics  *Metrics
	mu       sync.RWMutex
	handlers map[string]secondary.JobHandler
}

// NewWorker creates a worker for q. metrics may be nil.
func NewWorker(q *Queue, cfg WorkerConfig, logger *zap.Logger, metrics *Metrics) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = 15 * time.Second
	}

	limit := rate.Inf
	burst := cfg.Concurrency
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		burst = max(1, int(cfg.RateLimit))
	}

	return &Worker{
		queue:    q,
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger.With(zap.String("queue", q.Name())),
		metrics:  metrics,
		handlers: make(map[string]secondary.JobHandler),
	}
}

// Handle registers the handler for a job type.
func (w *Worker) Handle(jobType string, h secondary.JobHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[jobType] = h
}

// Run processes jobs until ctx is cancelled, then returns nil. Redis errors
// are logged and the claim is retried after the poll interval.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started",
		zap.Int("concurrency", w.cfg.Concurrency),
		zap.Float64("rate_limit", w.cfg.RateLimit),
	)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.cfg.Concurrency; i++ {
		g.Go(func() error { return w.loop(ctx) })
	}
	g.Go(func() error { return w.refreshStats(ctx) })

	err := g.Wait()
	w.logger.Info("worker stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Worker) loop(ctx context.Context) error {
	for {
		if err := w.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("rate limiter: %w", err)
		}

		processed, err := w.ProcessNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("failed to process job", zap.Error(err))
		}
		if processed {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.cfg.PollInterval):
		}
	}
}

func (w *Worker) refreshStats(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.StatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.queue.Stats(ctx); err != nil && ctx.Err() == nil {
				w.logger.Warn("failed to refresh queue stats", zap.Error(err))
			}
		}
	}
}

// ProcessNext claims and processes one job. It reports whether a job was found.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	job, err := w.queue.claim(ctx)
	if err != nil || job == nil {
		return false, err
	}

	log := w.logger.With(
		zap.String("job_id", job.ID),
		zap.String("job_type", job.Type),
		zap.String("claim_id", job.ClaimID),
		zap.Int("attempt", job.AttemptsMade),
	)

	w.mu.RLock()
	handler, ok := w.handlers[job.Type]
	w.mu.RUnlock()

	start := time.Now()
	var runErr error
	if ok {
		runErr = w.run(ctx, handler, job)
	} else {
		runErr = fmt.Errorf("%w: %s", ErrNoHandler, job.Type)
	}
	elapsed := time.Since(start)

	if runErr == nil {
		if err := w.queue.complete(ctx, job); err != nil {
			return true, err
		}
		w.metrics.processed(w.queue.Name(), job.Type, OutcomeCompleted, elapsed)
		log.Debug("job completed", zap.Duration("duration", elapsed))
		return true, nil
	}

	retry, err := w.queue.fail(ctx, job, runErr, !ok)
	if err != nil {
		return true, err
	}
	if retry {
		w.metrics.processed(w.queue.Name(), job.Type, OutcomeRetried, elapsed)
		log.Warn("job failed, will retry", zap.Error(runErr), zap.Int("max_attempts", job.MaxAttempts))
		return true, nil
	}
	w.metrics.processed(w.queue.Name(), job.Type, OutcomeFailed, elapsed)
	log.Error("job failed permanently", zap.Error(runErr), zap.Int("max_attempts", job.MaxAttempts))
	return true, nil
}

// run invokes the handler with the lock duration as its deadline and turns
// panics into errors so one bad job cannot stop the worker.
func (w *Worker) run(ctx context.Context, h secondary.JobHandler, job *secondary.Job) (err error) {
	ctx, cancel := context.WithTimeout(ctx, w.queue.cfg.LockDuration)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("job handler panicked",
				zap.String("job_id", job.ID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	return h(ctx, job)
}
