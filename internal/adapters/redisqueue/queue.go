// Package redisqueue implements secondary.JobQueue on Redis: a hash per job
// plus one sorted set per state.
//
// Waiting jobs are ordered by priority, then by arrival. Delayed jobs are
// scored by the time they become visible and active jobs by the time their
// lock expires, so a crashed worker's jobs are picked up again.
package redisqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/example/claimdesk/internal/ports/secondary"
)

// ErrJobActive is returned when removing a job a worker is processing.
var ErrJobActive = errors.New("job is being processed")

// Config holds the settings of one queue.
type Config struct {
	Name               string
	Prefix             string        // Key prefix, default "claimdesk"
	Attempts           int           // Total deliveries per job, default 3
	Backoff            time.Duration // Base of the exponential backoff, default 2s
	LockDuration       time.Duration // How long a worker owns a job, default 30s
	CompletedRetention time.Duration // How long completed jobs are kept, default 24h
}

func (c Config) withDefaults() Config {
	if c.Prefix == "" {
		c.Prefix = "claimdesk"
	}
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = 2 * time.Second
	}
	if c.LockDuration <= 0 {
		c.LockDuration = 30 * time.Second
	}
	if c.CompletedRetention <= 0 {
		c.CompletedRetention = 24 * time.Hour
	}
	return c
}

// Queue is a durable priority queue stored in Redis.
type Queue struct {
	cfg     Config
	client  redis.Cmdable
	metrics *Metrics
	now     func() time.Time
	keys    keys
}

// New creates a queue on an existing client. metrics may be nil.
func New(client redis.Cmdable, cfg Config, metrics *Metrics) *Queue {
	cfg = cfg.withDefaults()
	base := cfg.Prefix + ":" + cfg.Name
	return &Queue{
		cfg:     cfg,
		client:  client,
		metrics: metrics,
		now:     time.Now,
		keys: keys{
			jobPrefix: base + ":job:",
			wait:      base + ":wait",
			delayed:   base + ":delayed",
			active:    base + ":active",
			completed: base + ":completed",
			failed:    base + ":failed",
			seq:       base + ":seq",
		},
	}
}

var _ secondary.JobQueue = (*Queue)(nil)

type keys struct {
	jobPrefix string
	wait      string
	delayed   string
	active    string
	completed string
	failed    string
	seq       string
}

func (k keys) job(id string) string { return k.jobPrefix + id }

// Name returns the queue name.
func (q *Queue) Name() string { return q.cfg.Name }

// Config returns the effective queue settings.
func (q *Queue) Config() Config { return q.cfg }

// priorityRank orders priorities for dequeueing: lower is served first.
func priorityRank(p string) int64 {
	switch p {
	case secondary.PriorityUrgent:
		return 0
	case secondary.PriorityHigh:
		return 1
	case secondary.PriorityLow:
		return 3
	default:
		return 2
	}
}

// rankSpan separates priority bands in the wait score. Sequence numbers
// stay below it and scores stay exact in a float64.
const rankSpan = 1e13

// Add enqueues a job. A duplicate JobID is a no-op that returns the existing job.
func (q *Queue) Add(ctx context.Context, jobType string, payload secondary.JobPayload, opts secondary.AddOptions) (*secondary.Job, error) {
	id := opts.JobID
	if id == "" {
		id = uuid.NewString()
	}
	priority := opts.Priority
	if priority == "" {
		priority = secondary.PriorityMedium
	}
	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = q.cfg.Attempts
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = q.cfg.Backoff
	}

	data, err := json.Marshal(payload.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job data: %w", err)
	}

	seq, err := q.client.Incr(ctx, q.keys.seq).Result()
	if err != nil {
		return nil, fmt.Errorf("queue %s: failed to add job: %w", q.cfg.Name, err)
	}
	waitScore := strconv.FormatInt(priorityRank(priority)*rankSpan+seq, 10)

	now := q.now()
	processAt := now.Add(opts.Delay)
	target, score, state := "wait", waitScore, secondary.JobStateWaiting
	if opts.Delay > 0 {
		target, score, state = "delayed", ms(processAt), secondary.JobStateDelayed
	}

	args := []any{
		id, target, score,
		"id", id,
		"type", jobType,
		"claim_id", payload.ClaimID,
		"data", string(data),
		"priority", priority,
		"wait_score", waitScore,
		"max_attempts", strconv.Itoa(attempts),
		"backoff_ms", strconv.FormatInt(backoff.Milliseconds(), 10),
		"attempts_made", "0",
		"state", state,
		"created_at", ms(now),
		"process_at", ms(processAt),
	}

	created, err := addScript.Run(ctx, q.client, []string{q.keys.job(id), q.keys.wait, q.keys.delayed}, args...).Int()
	if err != nil {
		return nil, fmt.Errorf("queue %s: failed to add job: %w", q.cfg.Name, err)
	}
	if created == 1 {
		q.metrics.enqueued(q.cfg.Name, jobType)
	}

	return q.GetJob(ctx, id)
}

// Remove cancels a waiting or delayed job. It reports whether a job was removed.
func (q *Queue) Remove(ctx context.Context, jobID string) (bool, error) {
	k := q.keys
	res, err := removeScript.Run(ctx, q.client,
		[]string{k.job(jobID), k.wait, k.delayed, k.active, k.completed, k.failed},
		jobID,
	).Int()
	if err != nil {
		return false, fmt.Errorf("queue %s: failed to remove job %s: %w", q.cfg.Name, jobID, err)
	}

	switch res {
	case 1:
		return true, nil
	case -1:
		return false, fmt.Errorf("queue %s: job %s: %w", q.cfg.Name, jobID, ErrJobActive)
	default:
		return false, nil
	}
}

// GetJob retrieves a job by id.
func (q *Queue) GetJob(ctx context.Context, jobID string) (*secondary.Job, error) {
	fields, err := q.client.HGetAll(ctx, q.keys.job(jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("queue %s: failed to get job %s: %w", q.cfg.Name, jobID, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("queue %s: job %s: %w", q.cfg.Name, jobID, secondary.ErrNotFound)
	}

	return q.decode(fields)
}

// Stats returns job counts per state.
func (q *Queue) Stats(ctx context.Context) (secondary.QueueStats, error) {
	var waiting, active, completed, failed, delayed *redis.IntCmd
	_, err := q.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		waiting = p.ZCard(ctx, q.keys.wait)
		active = p.ZCard(ctx, q.keys.active)
		completed = p.ZCard(ctx, q.keys.completed)
		failed = p.ZCard(ctx, q.keys.failed)
		delayed = p.ZCard(ctx, q.keys.delayed)
		return nil
	})
	if err != nil {
		return secondary.QueueStats{}, fmt.Errorf("queue %s: failed to read stats: %w", q.cfg.Name, err)
	}

	stats := secondary.QueueStats{
		Waiting:   waiting.Val(),
		Active:    active.Val(),
		Completed: completed.Val(),
		Failed:    failed.Val(),
		Delayed:   delayed.Val(),
	}
	q.metrics.observeStats(q.cfg.Name, stats)
	return stats, nil
}

// claim moves the next available job to active. It returns nil when the queue is empty.
func (q *Queue) claim(ctx context.Context) (*secondary.Job, error) {
	now := q.now()
	k := q.keys
	id, err := claimScript.Run(ctx, q.client,
		[]string{k.wait, k.delayed, k.active, k.failed},
		ms(now), ms(now.Add(q.cfg.LockDuration)), k.jobPrefix, "100",
	).Text()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("queue %s: failed to claim job: %w", q.cfg.Name, err)
	}

	return q.GetJob(ctx, id)
}

// complete marks an active job done and trims completed jobs past retention.
func (q *Queue) complete(ctx context.Context, job *secondary.Job) error {
	now := q.now()
	k := q.keys
	_, err := q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRem(ctx, k.active, job.ID)
		p.ZAdd(ctx, k.completed, redis.Z{Score: float64(now.UnixMilli()), Member: job.ID})
		p.HSet(ctx, k.job(job.ID), "state", secondary.JobStateCompleted, "finished_at", ms(now))
		p.Expire(ctx, k.job(job.ID), q.cfg.CompletedRetention)
		p.ZRemRangeByScore(ctx, k.completed, "-inf", ms(now.Add(-q.cfg.CompletedRetention)))
		return nil
	})
	if err != nil {
		return fmt.Errorf("queue %s: failed to complete job %s: %w", q.cfg.Name, job.ID, err)
	}
	return nil
}

// fail records a failed attempt. While attempts remain the job is delayed by
// backoff * 2^(attempts-1); otherwise, or when final is set, it moves to failed.
// It reports whether the job will be retried.
func (q *Queue) fail(ctx context.Context, job *secondary.Job, cause error, final bool) (bool, error) {
	now := q.now()
	k := q.keys
	retry := !final && job.AttemptsMade < job.MaxAttempts

	_, err := q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRem(ctx, k.active, job.ID)
		if retry {
			at := now.Add(q.backoff(job))
			p.ZAdd(ctx, k.delayed, redis.Z{Score: float64(at.UnixMilli()), Member: job.ID})
			p.HSet(ctx, k.job(job.ID), "state", secondary.JobStateDelayed, "last_error", cause.Error(), "process_at", ms(at))
			return nil
		}
		p.ZAdd(ctx, k.failed, redis.Z{Score: float64(now.UnixMilli()), Member: job.ID})
		p.HSet(ctx, k.job(job.ID), "state", secondary.JobStateFailed, "last_error", cause.Error(), "finished_at", ms(now))
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("queue %s: failed to record failure of job %s: %w", q.cfg.Name, job.ID, err)
	}
	return retry, nil
}

func (q *Queue) backoff(job *secondary.Job) time.Duration {
	base := job.Backoff
	if base <= 0 {
		base = q.cfg.Backoff
	}
	exp := max(job.AttemptsMade-1, 0)
	return time.Duration(float64(base) * math.Pow(2, float64(exp)))
}

func (q *Queue) decode(f map[string]string) (*secondary.Job, error) {
	job := &secondary.Job{
		ID:        f["id"],
		Queue:     q.cfg.Name,
		Type:      f["type"],
		ClaimID:   f["claim_id"],
		Priority:  f["priority"],
		State:     f["state"],
		LastError: f["last_error"],
	}
	if raw := f["data"]; raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &job.Data); err != nil {
			return nil, fmt.Errorf("queue %s: job %s has corrupt data: %w", q.cfg.Name, job.ID, err)
		}
	}
	job.AttemptsMade, _ = strconv.Atoi(f["attempts_made"])
	job.MaxAttempts, _ = strconv.Atoi(f["max_attempts"])
	if backoff, err := strconv.ParseInt(f["backoff_ms"], 10, 64); err == nil {
		job.Backoff = time.Duration(backoff) * time.Millisecond
	}
	job.CreatedAt = fromMs(f["created_at"])
	job.ProcessAt = fromMs(f["process_at"])
	job.FinishedAt = fromMs(f["finished_at"])
	return job, nil
}

func ms(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func fromMs(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(n)
}
