// Package job holds the lifecycle of one submitter's processing request.
package job

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aliskhannn/catppuccinifier/internal/model"
)

// State is a job lifecycle state.
type State string

const (
	Queued    State = "queued"
	Running   State = "running"
	Completed State = "completed"
	Failed    State = "failed"
	Cancelled State = "cancelled"
)

// Terminal reports whether no further transition is allowed from s.
func (s State) Terminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}

// Active reports whether s counts against the per-submitter limit.
func (s State) Active() bool {
	return s == Queued || s == Running
}

// Job is one submitter's request tracked from submission to a terminal
// state. All methods are safe for concurrent use.
type Job struct {
	ID          uuid.UUID
	SubmitterID string
	CreatedAt   time.Time
	Request     model.ProcessingRequest

	mu         sync.Mutex
	state      State
	startedAt  time.Time
	finishedAt time.Time
	progress   model.Progress
	result     *model.Result
	err        error
	cancel     context.CancelFunc
	done       chan struct{}
}

// New creates a queued job for req.
func New(req model.ProcessingRequest) *Job {
	return &Job{
		ID:          uuid.New(),
		SubmitterID: req.SubmitterID,
		CreatedAt:   time.Now(),
		Request:     req,
		state:       Queued,
		done:        make(chan struct{}),
	}
}

// Start moves a queued job to Running. cancel is invoked by Cancel while
// the job runs.
func (j *Job) Start(cancel context.CancelFunc) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != Queued {
		return fmt.Errorf("start job %s: invalid transition %s -> %s", j.ID, j.state, Running)
	}

	j.state = Running
	j.startedAt = time.Now()
	j.cancel = cancel
	return nil
}

// Complete records the result of a running job.
func (j *Job) Complete(res *model.Result) error {
	return j.finish(Completed, res, nil)
}

// Fail records the error of a running job. Cancellation errors move the
// job to Cancelled instead of Failed.
func (j *Job) Fail(err error) error {
	if model.KindOf(err) == model.KindCancelled {
		return j.finish(Cancelled, nil, err)
	}
	return j.finish(Failed, nil, err)
}

// Cancel requests cancellation. A queued job becomes Cancelled at once and
// the call returns true. A running job has its context cancelled and reaches
// Cancelled once the pipeline notices; the call returns true as well.
// Terminal jobs are left alone.
func (j *Job) Cancel() bool {
	j.mu.Lock()

	switch j.state {
	case Queued:
		j.setTerminalLocked(Cancelled, nil, model.ErrCancelled)
		j.mu.Unlock()
		return true
	case Running:
		cancel := j.cancel
		j.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return true
	default:
		j.mu.Unlock()
		return false
	}
}

func (j *Job) finish(state State, res *model.Result, err error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != Running {
		return fmt.Errorf("finish job %s: invalid transition %s -> %s", j.ID, j.state, state)
	}

	j.setTerminalLocked(state, res, err)
	return nil
}

func (j *Job) setTerminalLocked(state State, res *model.Result, err error) {
	j.state = state
	j.result = res
	j.err = err
	j.finishedAt = time.Now()
	if j.cancel != nil {
		j.cancel()
	}
	close(j.done)
}

// SetProgress records how much of the job is done.
func (j *Job) SetProgress(done, total int) {
	j.mu.Lock()
	j.progress = model.Progress{Done: done, Total: total}
	j.mu.Unlock()
}

// State returns the current state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Done is closed when the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Result returns the result and error once the job is terminal.
func (j *Job) Result() (*model.Result, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result, j.err
}

// Wait blocks until the job is terminal or ctx is done.
func (j *Job) Wait(ctx context.Context) (*model.Result, error) {
	select {
	case <-j.done:
		return j.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Snapshot is a point-in-time view of a job.
type Snapshot struct {
	ID          uuid.UUID      `json:"id"`
	SubmitterID string         `json:"submitter_id"`
	State       State          `json:"state"`
	Variant     model.Variant  `json:"variant"`
	Progress    model.Progress `json:"progress"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	FinishedAt  *time.Time     `json:"finished_at,omitempty"`
}

// Snapshot returns the current view of the job.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	s := Snapshot{
		ID:          j.ID,
		SubmitterID: j.SubmitterID,
		State:       j.state,
		Variant:     j.Request.Variant,
		Progress:    j.progress,
		CreatedAt:   j.CreatedAt,
	}
	if !j.startedAt.IsZero() {
		t := j.startedAt
		s.StartedAt = &t
	}
	if !j.finishedAt.IsZero() {
		t := j.finishedAt
		s.FinishedAt = &t
	}
	return s
}

// Event builds the completion event of a terminal job.
func (j *Job) Event() model.Event {
	j.mu.Lock()
	defer j.mu.Unlock()

	ev := model.Event{
		JobID:       j.ID,
		SubmitterID: j.SubmitterID,
		State:       string(j.state),
		Result:      j.result,
		FinishedAt:  j.finishedAt,
	}
	if !j.startedAt.IsZero() {
		ev.Duration = j.finishedAt.Sub(j.startedAt)
	}
	if j.err != nil {
		ev.ErrorKind = model.KindOf(j.err)
		ev.Message = model.UserMessage(j.err)
	}
	return ev
}
