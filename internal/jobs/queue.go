// Package jobs runs background work on a fixed worker pool. Sensitivity
// sweeps are submitted over the API, buffered in a bounded queue, and
// executed by registered runners while subscribers follow progress over
// the websocket hub.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	apierrors "dealpulse/internal/errors"
	"dealpulse/pkg/contracts/domain"
)

// janitorInterval is how often terminal jobs are checked against the
// retention window.
const janitorInterval = 15 * time.Minute

// Runner executes one kind of background job. The job copy carries the
// submitted payload; progress accepts a 0-100 percentage and must not be
// called after the runner returns.
type Runner func(ctx context.Context, job *domain.Job, progress func(percent int)) (json.RawMessage, error)

// Notifier receives job state changes for fan-out to subscribers. Every
// call gets its own job copy.
type Notifier interface {
	NotifyJob(job *domain.Job)
}

// Config sizes the queue and its worker pool.
type Config struct {
	Workers   int           // concurrent workers, default 2
	QueueSize int           // queue buffer capacity, default 2x workers
	Timeout   time.Duration // per-job execution budget, 0 disables it
	Retention time.Duration // terminal job retention, 0 keeps forever
}

// Queue runs jobs on a fixed worker pool. Submissions are buffered; when
// the buffer is full Enqueue fails fast with ErrQueueFull instead of
// blocking a request handler.
type Queue struct {
	mu        sync.Mutex
	jobs      chan *domain.Job
	store     *Store
	runners   map[domain.JobType]Runner
	notifier  Notifier
	logger    *slog.Logger
	workers   int
	timeout   time.Duration
	retention time.Duration
	active    map[string]context.CancelFunc
	wg        sync.WaitGroup
	shutdown  chan struct{}
	started   bool
	stopped   bool
}

// NewQueue builds a stopped queue. A nil store gets a fresh in-memory
// store; a nil notifier disables fan-out.
func NewQueue(cfg Config, store *Store, notifier Notifier, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = NewStore()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = workers * 2
	}

	return &Queue{
		jobs:      make(chan *domain.Job, size),
		store:     store,
		runners:   make(map[domain.JobType]Runner),
		notifier:  notifier,
		logger:    logger.With(slog.String("component", "jobqueue")),
		workers:   workers,
		timeout:   cfg.Timeout,
		retention: cfg.Retention,
		active:    make(map[string]context.CancelFunc),
		shutdown:  make(chan struct{}),
	}
}

// Register installs the runner for a job type. Jobs enqueued with no
// registered runner fail when a worker picks them up.
func (q *Queue) Register(jobType domain.JobType, runner Runner) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.runners[jobType] = runner
}

// Start launches the worker pool. Cancelling ctx stops the workers and
// aborts any running jobs.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
	if q.retention > 0 {
		q.wg.Add(1)
		go q.janitor(ctx)
	}

	q.logger.InfoContext(ctx, "job queue started",
		slog.Int("workers", q.workers),
		slog.Int("capacity", cap(q.jobs)))
}

// Stop signals the workers to drain and waits up to timeout for them to
// exit. Jobs still buffered stay pending in the store. Stop is
// idempotent.
func (q *Queue) Stop(timeout time.Duration) error {
	q.mu.Lock()
	if !q.started || q.stopped {
		q.mu.Unlock()
		return nil
	}
	q.stopped = true
	q.mu.Unlock()

	close(q.shutdown)

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("job queue stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("job queue did not stop within %s", timeout)
	}
}

// Enqueue assigns the job an ID, records it as pending, and hands it to
// the worker pool. A full buffer marks the job failed and returns
// ErrQueueFull.
func (q *Queue) Enqueue(ctx context.Context, job *domain.Job) error {
	if job == nil {
		return errors.New("job is required")
	}
	if job.Type == "" {
		return errors.New("job type is required")
	}

	q.mu.Lock()
	stopped := q.stopped
	q.mu.Unlock()
	if stopped {
		return fmt.Errorf("job queue is stopped: %w", apierrors.ErrQueueFull)
	}

	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Status = domain.JobStatusPending
	job.Progress = 0
	job.SubmittedAt = time.Now().UTC()

	if err := q.store.Create(job); err != nil {
		return fmt.Errorf("create job record: %w", err)
	}
	q.notify(job)

	select {
	case q.jobs <- job:
		q.logger.InfoContext(ctx, "job queued",
			slog.String("job_id", job.ID),
			slog.String("type", string(job.Type)),
			slog.Int("queue_depth", len(q.jobs)))
		return nil
	default:
		now := time.Now().UTC()
		job.Status = domain.JobStatusFailed
		job.Error = apierrors.ErrQueueFull.Error()
		job.FinishedAt = &now
		if err := q.store.Update(job); err != nil {
			q.logger.ErrorContext(ctx, "mark overflow job failed",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()))
		}
		q.notify(job)
		return apierrors.ErrQueueFull
	}
}

// GetJob returns a snapshot of the job.
func (q *Queue) GetJob(id string) (*domain.Job, error) {
	return q.store.Get(id)
}

// ListJobs returns matching jobs newest first, along with queue
// statistics.
func (q *Queue) ListJobs(filter domain.JobFilter) *domain.JobList {
	jobs, total := q.store.List(filter)
	return &domain.JobList{
		Jobs:  jobs,
		Total: total,
		Stats: q.Stats(),
	}
}

// Stats reports queue occupancy and per-status job counts.
func (q *Queue) Stats() domain.QueueStats {
	counts := q.store.CountByStatus()
	return domain.QueueStats{
		Pending:       counts[domain.JobStatusPending],
		Running:       counts[domain.JobStatusRunning],
		Completed:     counts[domain.JobStatusCompleted],
		Failed:        counts[domain.JobStatusFailed],
		Cancelled:     counts[domain.JobStatusCancelled],
		QueueDepth:    len(q.jobs),
		QueueCapacity: cap(q.jobs),
		Workers:       q.workers,
	}
}

// CancelJob cancels a pending or running job. Pending jobs are marked
// cancelled immediately; running jobs have their context cancelled and
// finish asynchronously. Terminal jobs return ErrJobNotRunning.
func (q *Queue) CancelJob(id string) error {
	q.mu.Lock()

	job, err := q.store.Get(id)
	if err != nil {
		q.mu.Unlock()
		return err
	}

	switch job.Status {
	case domain.JobStatusPending:
		now := time.Now().UTC()
		job.Status = domain.JobStatusCancelled
		job.Error = "job cancelled"
		job.FinishedAt = &now
		err := q.store.Update(job)
		q.mu.Unlock()
		if err != nil {
			return err
		}
		q.logger.Info("pending job cancelled", slog.String("job_id", id))
		q.notify(job)
		return nil

	case domain.JobStatusRunning:
		cancel, ok := q.active[id]
		q.mu.Unlock()
		if !ok {
			// The worker finished between the status read and now.
			return fmt.Errorf("job %s: %w", id, apierrors.ErrJobNotRunning)
		}
		cancel()
		q.logger.Info("running job cancelled", slog.String("job_id", id))
		return nil

	default:
		q.mu.Unlock()
		return fmt.Errorf("job %s is %s: %w", id, job.Status, apierrors.ErrJobNotRunning)
	}
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()

	logger := q.logger.With(slog.Int("worker", id))
	logger.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker stopping", slog.String("reason", "context cancelled"))
			return
		case <-q.shutdown:
			logger.Debug("worker stopping", slog.String("reason", "shutdown"))
			return
		case job := <-q.jobs:
			q.process(ctx, job.ID)
		}
	}
}

// process transitions a dequeued job to running and executes it. The
// status recheck, cancel registration, and running transition happen
// under one lock so CancelJob cannot race a pending job into a lost
// cancellation.
func (q *Queue) process(ctx context.Context, jobID string) {
	q.mu.Lock()
	job, err := q.store.Get(jobID)
	if err != nil {
		q.mu.Unlock()
		q.logger.Error("dequeued unknown job", slog.String("job_id", jobID))
		return
	}
	if job.Status != domain.JobStatusPending {
		// Cancelled while buffered.
		q.mu.Unlock()
		q.logger.Info("skipping dequeued job",
			slog.String("job_id", jobID),
			slog.String("status", string(job.Status)))
		return
	}

	var jobCtx context.Context
	var cancel context.CancelFunc
	if q.timeout > 0 {
		jobCtx, cancel = context.WithTimeout(ctx, q.timeout)
	} else {
		jobCtx, cancel = context.WithCancel(ctx)
	}
	q.active[jobID] = cancel

	now := time.Now().UTC()
	job.Status = domain.JobStatusRunning
	job.StartedAt = &now
	if err := q.store.Update(job); err != nil {
		q.logger.Error("mark job running",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
	}
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		delete(q.active, jobID)
		q.mu.Unlock()
		cancel()
	}()

	q.notify(job)
	q.logger.Info("job started",
		slog.String("job_id", jobID),
		slog.String("type", string(job.Type)))

	q.execute(jobCtx, job)
}

func (q *Queue) execute(ctx context.Context, job *domain.Job) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("job panicked",
				slog.String("job_id", job.ID),
				slog.Any("panic", r))
			q.finish(job, domain.JobStatusFailed, nil, fmt.Errorf("job panicked: %v", r))
		}
	}()

	q.mu.Lock()
	runner, ok := q.runners[job.Type]
	q.mu.Unlock()
	if !ok {
		q.finish(job, domain.JobStatusFailed, nil, fmt.Errorf("no runner registered for job type %q", job.Type))
		return
	}

	result, err := runner(ctx, job, func(percent int) {
		q.reportProgress(job, percent)
	})
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.Canceled):
			q.finish(job, domain.JobStatusCancelled, nil, errors.New("job cancelled"))
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			q.finish(job, domain.JobStatusFailed, nil, fmt.Errorf("job timed out after %s", q.timeout))
		default:
			q.finish(job, domain.JobStatusFailed, nil, err)
		}
		return
	}

	q.finish(job, domain.JobStatusCompleted, result, nil)
}

func (q *Queue) finish(job *domain.Job, status domain.JobStatus, result json.RawMessage, jobErr error) {
	now := time.Now().UTC()
	job.Status = status
	job.FinishedAt = &now
	if status == domain.JobStatusCompleted {
		job.Progress = 100
		job.Result = result
		job.Error = ""
	} else if jobErr != nil {
		job.Error = jobErr.Error()
	}

	if err := q.store.Update(job); err != nil {
		q.logger.Error("persist job outcome",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()))
	}
	q.notify(job)

	switch status {
	case domain.JobStatusCompleted:
		q.logger.Info("job completed",
			slog.String("job_id", job.ID),
			slog.Duration("duration", job.Duration()))
	case domain.JobStatusCancelled:
		q.logger.Info("job cancelled", slog.String("job_id", job.ID))
	default:
		q.logger.Error("job failed",
			slog.String("job_id", job.ID),
			slog.String("error", job.Error))
	}
}

// reportProgress persists a runner's progress update. Progress is clamped
// below 100 until the job actually completes and never moves backwards.
func (q *Queue) reportProgress(job *domain.Job, percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 99 {
		percent = 99
	}
	if percent <= job.Progress {
		return
	}
	job.Progress = percent
	if err := q.store.Update(job); err != nil {
		return
	}
	q.notify(job)
}

func (q *Queue) janitor(ctx context.Context) {
	defer q.wg.Done()

	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.shutdown:
			return
		case <-ticker.C:
			if n := q.store.Prune(q.retention); n > 0 {
				q.logger.Info("pruned finished jobs", slog.Int("removed", n))
			}
		}
	}
}

func (q *Queue) notify(job *domain.Job) {
	if q.notifier == nil {
		return
	}
	copied := *job
	q.notifier.NotifyJob(&copied)
}
