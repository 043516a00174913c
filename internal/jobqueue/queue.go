package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/subtrack/internal/clock"
	"github.com/smallbiznis/subtrack/internal/config"
	"github.com/smallbiznis/subtrack/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	jobKeyPrefix     = "subtrack:job:"
	queueKeyPrefix   = "subtrack:queue:"
	processingSuffix = ":processing"
	delayedSuffix    = ":delayed"

	// Failed and completed job records expire on their own.
	jobTTL = 24 * time.Hour

	dequeueBlock    = time.Second
	promoteInterval = time.Second
	depthInterval   = 15 * time.Second
	sweepInterval   = time.Minute
	stuckMaxAge     = 10 * time.Minute
)

var ErrUnknownJobType = errors.New("unknown_job_type")

// Handler processes one job attempt. Returning nil completes the job;
// an error marked with Permanent fails it immediately, anything else
// retries until the policy's attempts run out.
type Handler interface {
	Handle(ctx context.Context, job *Job) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, job *Job) error

func (f HandlerFunc) Handle(ctx context.Context, job *Job) error { return f(ctx, job) }

// TerminalHandler is implemented by handlers that want to observe the
// final failure after retries are exhausted.
type TerminalHandler interface {
	Handler
	OnPermanentFailure(ctx context.Context, job *Job, cause error)
}

// PolicyFunc resolves the retry policy for a job type. It runs on every
// enqueue and every execution, so policies backed by hot-reloaded config
// take effect without a restart.
type PolicyFunc func() RetryPolicy

// StaticPolicy wraps a fixed policy for job types without live tuning.
func StaticPolicy(policy RetryPolicy) PolicyFunc {
	return func() RetryPolicy { return policy }
}

type registration struct {
	queue   string
	policy  PolicyFunc
	handler Handler
}

// QueueStats reports list sizes for one named queue.
type QueueStats struct {
	Ready      int64 `json:"ready"`
	Processing int64 `json:"processing"`
	Delayed    int64 `json:"delayed"`
}

// Queue routes jobs through redis lists. Each named queue has a ready
// list, a processing list and a delayed sorted set; workers move jobs
// between them with BRPOPLPUSH so a crash never loses a job.
type Queue struct {
	client  *redis.Client
	log     *zap.Logger
	clock   clock.Clock
	metrics *metrics.Metrics
	workers int

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
	registry map[JobType]registration
	queues   []string
	observed []string
}

type QueueParam struct {
	fx.In

	Client  *redis.Client
	Log     *zap.Logger
	Clock   clock.Clock
	Metrics *metrics.Metrics
	Config  config.Config
}

func NewQueue(p QueueParam) *Queue {
	workers := p.Config.WorkerCount
	if workers <= 0 {
		workers = 3
	}
	return &Queue{
		client:   p.Client,
		log:      p.Log.Named("jobqueue"),
		clock:    p.Clock,
		metrics:  p.Metrics,
		workers:  workers,
		stopCh:   make(chan struct{}),
		registry: make(map[JobType]registration),
	}
}

// Register binds a job type to a named queue, its retry policy and its
// handler. All registrations happen before Start.
func (q *Queue) Register(jobType JobType, queueName string, policy PolicyFunc, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.registry[jobType] = registration{queue: queueName, policy: policy, handler: handler}
	q.addQueueLocked(&q.queues, queueName)
}

// ObserveQueue makes a queue visible to Stats and the depth reporter
// without consuming from it. Processes that only inspect the pipeline
// (the API binary) observe the queue names the workers consume.
func (q *Queue) ObserveQueue(queueName string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.addQueueLocked(&q.observed, queueName)
}

func (q *Queue) addQueueLocked(list *[]string, queueName string) {
	for _, name := range *list {
		if name == queueName {
			return
		}
	}
	*list = append(*list, queueName)
}

// Enqueue stores a job and pushes it onto its queue's ready list.
func (q *Queue) Enqueue(ctx context.Context, jobType JobType, payload any) (*Job, error) {
	reg, ok := q.registration(jobType)
	if !ok {
		return nil, ErrUnknownJobType
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	now := q.clock.Now()
	job := &Job{
		ID:          uuid.NewString(),
		Type:        jobType,
		Status:      JobStatusPending,
		Payload:     raw,
		MaxAttempts: reg.policy().MaxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, jobKeyPrefix+job.ID, data, jobTTL)
	pipe.LPush(ctx, queueKeyPrefix+reg.queue, job.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	q.log.Info("job enqueued",
		zap.String("job_id", job.ID),
		zap.String("job_type", string(jobType)),
		zap.String("queue", reg.queue),
	)
	return job, nil
}

// Start launches workers and maintenance loops for every registered queue.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}
	q.running = true
	q.log.Info("starting workers", zap.Int("workers", q.workers), zap.Strings("queues", q.queues))

	for _, name := range q.queues {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.worker(name)
		}
		q.wg.Add(2)
		go q.promoter(name)
		go q.sweeper(name)
	}
	q.wg.Add(1)
	go q.depthReporter()
}

// Stop signals all loops and waits for in-flight jobs to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	close(q.stopCh)
	q.mu.Unlock()

	q.wg.Wait()
	q.log.Info("all workers stopped")
}

// Stats reports list sizes for every registered and observed queue.
func (q *Queue) Stats(ctx context.Context) (map[string]QueueStats, error) {
	q.mu.Lock()
	queues := make([]string, 0, len(q.queues)+len(q.observed))
	queues = append(queues, q.queues...)
	for _, name := range q.observed {
		q.addQueueLocked(&queues, name)
	}
	q.mu.Unlock()

	stats := make(map[string]QueueStats, len(queues))
	for _, name := range queues {
		ready, err := q.client.LLen(ctx, queueKeyPrefix+name).Result()
		if err != nil {
			return nil, err
		}
		processing, err := q.client.LLen(ctx, queueKeyPrefix+name+processingSuffix).Result()
		if err != nil {
			return nil, err
		}
		delayed, err := q.client.ZCard(ctx, queueKeyPrefix+name+delayedSuffix).Result()
		if err != nil {
			return nil, err
		}
		stats[name] = QueueStats{Ready: ready, Processing: processing, Delayed: delayed}
	}
	return stats, nil
}

// ReadyJobID returns the job id at index on a queue's ready list.
func (q *Queue) ReadyJobID(ctx context.Context, queueName string, index int64) (string, error) {
	return q.client.LIndex(ctx, queueKeyPrefix+queueName, index).Result()
}

// GetJob loads a job record by ID, or nil when it expired.
func (q *Queue) GetJob(ctx context.Context, id string) (*Job, error) {
	data, err := q.client.Get(ctx, jobKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", id, err)
	}
	return &job, nil
}

func (q *Queue) registration(jobType JobType) (registration, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	reg, ok := q.registry[jobType]
	return reg, ok
}

func (q *Queue) worker(queueName string) {
	defer q.wg.Done()
	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			return
		default:
		}

		job, err := q.dequeue(ctx, queueName)
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				q.log.Error("dequeue failed", zap.String("queue", queueName), zap.Error(err))
				time.Sleep(time.Second)
			}
			continue
		}
		if job == nil {
			continue
		}
		q.process(ctx, queueName, job)
	}
}

// dequeue moves the next job id from ready to processing and loads its record.
func (q *Queue) dequeue(ctx context.Context, queueName string) (*Job, error) {
	readyKey := queueKeyPrefix + queueName
	processingKey := readyKey + processingSuffix

	id, err := q.client.BRPopLPush(ctx, readyKey, processingKey, dequeueBlock).Result()
	if err != nil {
		return nil, err
	}

	job, err := q.GetJob(ctx, id)
	if err != nil || job == nil {
		// Record missing or unreadable; drop the processing entry.
		q.client.LRem(ctx, processingKey, 1, id)
		if err == nil {
			err = fmt.Errorf("job record missing for %s", id)
		}
		return nil, err
	}
	return job, nil
}

func (q *Queue) process(ctx context.Context, queueName string, job *Job) {
	reg, ok := q.registration(job.Type)
	if !ok {
		q.log.Error("no handler registered", zap.String("job_id", job.ID), zap.String("job_type", string(job.Type)))
		q.finalize(ctx, queueName, job, ErrUnknownJobType)
		return
	}

	// Resolve the policy fresh so reloaded attempt budgets, backoff and
	// timeouts apply to jobs already in flight.
	policy := reg.policy()
	job.MaxAttempts = policy.MaxAttempts
	job.markProcessing(q.clock.Now())
	q.persist(ctx, job)

	hctx := ctx
	if policy.Timeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, policy.Timeout)
		defer cancel()
	}

	started := time.Now()
	err := reg.handler.Handle(hctx, job)
	q.metrics.IncJobRun(string(job.Type))
	q.metrics.ObserveJobDuration(string(job.Type), time.Since(started).Seconds())

	if err == nil {
		q.complete(ctx, queueName, job)
		return
	}

	if IsPermanent(err) || job.Attempt >= job.MaxAttempts {
		q.finalize(ctx, queueName, job, err)
		return
	}
	q.retry(ctx, queueName, policy, job, err)
}

func (q *Queue) complete(ctx context.Context, queueName string, job *Job) {
	job.markCompleted(q.clock.Now())
	q.persist(ctx, job)
	q.removeFromProcessing(ctx, queueName, job.ID)
	q.log.Info("job completed",
		zap.String("job_id", job.ID),
		zap.String("job_type", string(job.Type)),
		zap.Int("attempt", job.Attempt),
	)
}

func (q *Queue) retry(ctx context.Context, queueName string, policy RetryPolicy, job *Job, cause error) {
	delay := policy.Delay(job.Attempt)
	job.markRetrying(q.clock.Now(), cause)
	q.persist(ctx, job)
	q.removeFromProcessing(ctx, queueName, job.ID)

	due := q.clock.Now().Add(delay)
	if err := q.client.ZAdd(ctx, queueKeyPrefix+queueName+delayedSuffix, redis.Z{
		Score:  float64(due.UnixMilli()),
		Member: job.ID,
	}).Err(); err != nil {
		q.log.Error("schedule retry failed", zap.String("job_id", job.ID), zap.Error(err))
	}

	q.metrics.IncJobError(string(job.Type), "retryable")
	q.log.Warn("job attempt failed, retrying",
		zap.String("job_id", job.ID),
		zap.String("job_type", string(job.Type)),
		zap.Int("attempt", job.Attempt),
		zap.Int("max_attempts", job.MaxAttempts),
		zap.Duration("retry_in", delay),
		zap.Error(cause),
	)
}

func (q *Queue) finalize(ctx context.Context, queueName string, job *Job, cause error) {
	job.markFailed(q.clock.Now(), cause)
	q.persist(ctx, job)
	q.removeFromProcessing(ctx, queueName, job.ID)

	reason := "exhausted"
	if IsPermanent(cause) {
		reason = "permanent"
	}
	q.metrics.IncJobError(string(job.Type), reason)
	q.log.Error("job permanently failed",
		zap.String("job_id", job.ID),
		zap.String("job_type", string(job.Type)),
		zap.Int("attempt", job.Attempt),
		zap.String("reason", reason),
		zap.Error(cause),
	)

	if reg, ok := q.registration(job.Type); ok {
		if terminal, ok := reg.handler.(TerminalHandler); ok {
			terminal.OnPermanentFailure(ctx, job, cause)
		}
	}
}

func (q *Queue) persist(ctx context.Context, job *Job) {
	data, err := json.Marshal(job)
	if err != nil {
		q.log.Error("marshal job failed", zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	if err := q.client.Set(ctx, jobKeyPrefix+job.ID, data, jobTTL).Err(); err != nil {
		q.log.Error("persist job failed", zap.String("job_id", job.ID), zap.Error(err))
	}
}

func (q *Queue) removeFromProcessing(ctx context.Context, queueName, id string) {
	if err := q.client.LRem(ctx, queueKeyPrefix+queueName+processingSuffix, 1, id).Err(); err != nil {
		q.log.Error("remove from processing failed", zap.String("job_id", id), zap.Error(err))
	}
}

// promoter moves due jobs from the delayed set back onto the ready list.
func (q *Queue) promoter(queueName string) {
	defer q.wg.Done()
	ticker := time.NewTicker(promoteInterval)
	defer ticker.Stop()
	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			if err := q.promoteDue(ctx, queueName); err != nil {
				q.log.Error("promote delayed jobs failed", zap.String("queue", queueName), zap.Error(err))
			}
		}
	}
}

func (q *Queue) promoteDue(ctx context.Context, queueName string) error {
	delayedKey := queueKeyPrefix + queueName + delayedSuffix
	now := strconv.FormatInt(q.clock.Now().UnixMilli(), 10)

	ids, err := q.client.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
	if err != nil {
		return err
	}
	for _, id := range ids {
		removed, err := q.client.ZRem(ctx, delayedKey, id).Result()
		if err != nil {
			return err
		}
		// Another promoter may have claimed the id first.
		if removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, queueKeyPrefix+queueName, id).Err(); err != nil {
			return err
		}
	}
	return nil
}

// sweeper recovers jobs stuck on the processing list after a crash.
func (q *Queue) sweeper(queueName string) {
	defer q.wg.Done()
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			q.sweepStuck(ctx, queueName)
		}
	}
}

func (q *Queue) sweepStuck(ctx context.Context, queueName string) {
	processingKey := queueKeyPrefix + queueName + processingSuffix
	ids, err := q.client.LRange(ctx, processingKey, 0, -1).Result()
	if err != nil {
		q.log.Error("sweeper scan failed", zap.String("queue", queueName), zap.Error(err))
		return
	}

	now := q.clock.Now()
	for _, id := range ids {
		job, err := q.GetJob(ctx, id)
		if err != nil || job == nil {
			q.client.LRem(ctx, processingKey, 1, id)
			continue
		}
		if job.Status != JobStatusProcessing {
			q.client.LRem(ctx, processingKey, 1, id)
			continue
		}
		started := job.ProcessedAt
		if started == nil {
			t := job.UpdatedAt
			started = &t
		}
		if now.Sub(*started) <= stuckMaxAge {
			continue
		}

		q.log.Warn("recovering stuck job",
			zap.String("job_id", job.ID),
			zap.String("job_type", string(job.Type)),
			zap.Duration("age", now.Sub(*started)),
		)
		job.Status = JobStatusPending
		job.UpdatedAt = now
		q.persist(ctx, job)
		q.client.LRem(ctx, processingKey, 1, id)
		q.client.RPush(ctx, queueKeyPrefix+queueName, id)
	}
}

func (q *Queue) depthReporter() {
	defer q.wg.Done()
	ticker := time.NewTicker(depthInterval)
	defer ticker.Stop()
	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			stats, err := q.Stats(ctx)
			if err != nil {
				continue
			}
			for name, s := range stats {
				q.metrics.SetQueueDepth(name, float64(s.Ready+s.Delayed))
			}
		}
	}
}
