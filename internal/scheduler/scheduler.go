// Package scheduler admits processing jobs under a global concurrency
// ceiling, queues the excess in FIFO order and allows one active job per
// submitter.
package scheduler

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/catppuccinifier/internal/job"
	"github.com/aliskhannn/catppuccinifier/internal/model"
)

// ErrClosed is returned by Submit after Shutdown.
var ErrClosed = errors.New("scheduler is shut down")

// runner executes one job. It must watch ctx and return an error wrapping
// model.ErrCancelled once ctx is done.
type runner interface {
	Run(ctx context.Context, j *job.Job) (*model.Result, error)
}

// RunnerFunc adapts a function to the runner interface.
type RunnerFunc func(ctx context.Context, j *job.Job) (*model.Result, error)

// Run calls f(ctx, j).
func (f RunnerFunc) Run(ctx context.Context, j *job.Job) (*model.Result, error) {
	return f(ctx, j)
}

// notifier receives every job once it is terminal.
type notifier interface {
	JobFinished(j *job.Job)
}

// Config holds the scheduler limits.
type Config struct {
	MaxConcurrent int
	MaxQueue      int           // 0 means unbounded
	JobTimeout    time.Duration // 0 means no timeout
}

// Status is a submitter's active job and its place in the queue.
type Status struct {
	job.Snapshot
	Position int `json:"position"` // 1-based queue position, 0 once running
}

// Scheduler owns the table of active jobs. Submit, Cancel and job
// completion are serialized by one mutex.
type Scheduler struct {
	cfg      Config
	runner   runner
	notifier notifier

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	active  map[string]*job.Job
	queue   *list.List
	queued  map[uuid.UUID]*list.Element
	running int
	closed  bool
}

// New creates a Scheduler. n may be nil.
func New(cfg Config, r runner, n notifier) *Scheduler {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}

	ctx, stop := context.WithCancel(context.Background())

	return &Scheduler{
		cfg:      cfg,
		runner:   r,
		notifier: n,
		baseCtx:  ctx,
		stop:     stop,
		active:   make(map[string]*job.Job),
		queue:    list.New(),
		queued:   make(map[uuid.UUID]*list.Element),
	}
}

// Submit creates a job for req. The job starts at once if a slot is free,
// otherwise it waits in the queue. A submitter with a queued or running job
// gets model.ErrAlreadyRunning.
func (s *Scheduler) Submit(req model.ProcessingRequest) (*job.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	if cur, ok := s.active[req.SubmitterID]; ok {
		return nil, fmt.Errorf("%w: job %s is %s", model.ErrAlreadyRunning, cur.ID, cur.State())
	}

	j := job.New(req)

	if s.running < s.cfg.MaxConcurrent {
		s.active[j.SubmitterID] = j
		s.launchLocked(j)
	} else {
		if s.cfg.MaxQueue > 0 && s.queue.Len() >= s.cfg.MaxQueue {
			return nil, model.ErrQueueFull
		}
		s.active[j.SubmitterID] = j
		s.queued[j.ID] = s.queue.PushBack(j)
	}

	s.updateGaugesLocked()

	zlog.Logger.Info().
		Str("job_id", j.ID.String()).
		Str("submitter", j.SubmitterID).
		Str("variant", string(req.Variant)).
		Str("state", string(j.State())).
		Msg("job submitted")

	return j, nil
}

// Cancel cancels the submitter's active job. A queued job is cancelled
// immediately and never runs; a running job is signalled and stops at the
// next frame boundary. It returns false if the submitter has no active job.
func (s *Scheduler) Cancel(submitterID string) bool {
	s.mu.Lock()

	j, ok := s.active[submitterID]
	if !ok {
		s.mu.Unlock()
		return false
	}

	if el, ok := s.queued[j.ID]; ok {
		s.queue.Remove(el)
		delete(s.queued, j.ID)
		delete(s.active, submitterID)
		j.Cancel()
		s.updateGaugesLocked()
		s.mu.Unlock()

		s.finished(j)
		return true
	}

	s.mu.Unlock()
	return j.Cancel()
}

// Status returns the submitter's active job.
func (s *Scheduler) Status(submitterID string) (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.active[submitterID]
	if !ok {
		return Status{}, false
	}

	st := Status{Snapshot: j.Snapshot()}
	if _, queued := s.queued[j.ID]; queued {
		pos := 1
		for el := s.queue.Front(); el != nil && el.Value.(*job.Job) != j; el = el.Next() {
			pos++
		}
		st.Position = pos
	}
	return st, true
}

// Counts returns the number of running and queued jobs.
func (s *Scheduler) Counts() (running, queued int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running, s.queue.Len()
}

// Shutdown stops accepting jobs, cancels queued and running ones and waits
// for the running ones to return or ctx to expire.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true

	var dropped []*job.Job
	for el := s.queue.Front(); el != nil; el = el.Next() {
		j := el.Value.(*job.Job)
		j.Cancel()
		delete(s.active, j.SubmitterID)
		dropped = append(dropped, j)
	}
	s.queue.Init()
	s.queued = make(map[uuid.UUID]*list.Element)
	s.updateGaugesLocked()
	s.mu.Unlock()

	for _, j := range dropped {
		s.finished(j)
	}

	s.stop()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running jobs: %w", ctx.Err())
	}
}

// launchLocked moves j to Running and starts it. s.mu must be held.
func (s *Scheduler) launchLocked(j *job.Job) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if s.cfg.JobTimeout > 0 {
		ctx, cancel = context.WithTimeout(s.baseCtx, s.cfg.JobTimeout)
	} else {
		ctx, cancel = context.WithCancel(s.baseCtx)
	}

	if err := j.Start(cancel); err != nil {
		// Only queued jobs are ever launched.
		cancel()
		zlog.Logger.Error().Err(err).Str("job_id", j.ID.String()).Msg("failed to start job")
		delete(s.active, j.SubmitterID)
		return
	}

	s.running++
	queueWaitSeconds.Observe(time.Since(j.CreatedAt).Seconds())

	s.wg.Add(1)
	go s.run(ctx, cancel, j)
}

func (s *Scheduler) run(ctx context.Context, cancel context.CancelFunc, j *job.Job) {
	defer s.wg.Done()
	defer cancel()

	start := time.Now()
	res, err := s.safeRun(ctx, j)
	s.complete(j, res, err)

	jobDuration.WithLabelValues(string(j.State())).Observe(time.Since(start).Seconds())

	s.finished(j)
}

// safeRun turns a runner panic into model.ErrInternal.
func (s *Scheduler) safeRun(ctx context.Context, j *job.Job) (res *model.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = pkgerrors.WithStack(fmt.Errorf("%w: panic: %v", model.ErrInternal, r))
			zlog.Logger.Error().
				Str("job_id", j.ID.String()).
				Str("submitter", j.SubmitterID).
				Str("stack", fmt.Sprintf("%+v", err)).
				Msg("job panicked")
		}
	}()

	return s.runner.Run(ctx, j)
}

// complete records the outcome, releases the slot and admits queued jobs.
// The terminal transition and the removal from the active table happen
// under one lock so a new submission never sees a finished job as active.
func (s *Scheduler) complete(j *job.Job, res *model.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var terr error
	if err != nil {
		terr = j.Fail(err)
	} else {
		terr = j.Complete(res)
	}
	if terr != nil {
		zlog.Logger.Error().Err(terr).Str("job_id", j.ID.String()).Msg("failed to record job outcome")
	}

	if s.active[j.SubmitterID] == j {
		delete(s.active, j.SubmitterID)
	}
	s.running--

	for s.running < s.cfg.MaxConcurrent && s.queue.Len() > 0 && !s.closed {
		next := s.queue.Remove(s.queue.Front()).(*job.Job)
		delete(s.queued, next.ID)
		s.launchLocked(next)
	}

	s.updateGaugesLocked()
}

// finished logs, counts and forwards a terminal job. Called without s.mu.
func (s *Scheduler) finished(j *job.Job) {
	state := j.State()
	jobsTotal.WithLabelValues(string(state)).Inc()

	_, err := j.Result()
	ev := zlog.Logger.Info()
	if state == job.Failed {
		ev = zlog.Logger.Error().Err(err)
	}
	ev.Str("job_id", j.ID.String()).
		Str("submitter", j.SubmitterID).
		Str("state", string(state)).
		Msg("job finished")

	if s.notifier != nil {
		s.notifier.JobFinished(j)
	}
}

func (s *Scheduler) updateGaugesLocked() {
	runningJobs.Set(float64(s.running))
	queuedJobs.Set(float64(s.queue.Len()))
}
