// Package notifier delivers finished jobs to the result store and the
// events topic and removes their stored objects once they are no longer
// reachable.
package notifier

import (
	"context"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/catppuccinifier/internal/job"
	"github.com/aliskhannn/catppuccinifier/internal/model"
)

const deleteTimeout = 30 * time.Second

type resultRepository interface {
	Save(ev model.Event)
}

type producer interface {
	Produce(ctx context.Context, ev model.Event) error
}

type fileStorage interface {
	Delete(ctx context.Context, key string) error
}

// Notifier records every terminal job and publishes its completion event.
type Notifier struct {
	repo        resultRepository
	producer    producer
	fileStorage fileStorage
	timeout     time.Duration
}

// New creates a new Notifier. p may be nil to skip publishing, fs may be nil
// when nothing is kept in object storage.
func New(repo resultRepository, p producer, fs fileStorage, publishTimeout time.Duration) *Notifier {
	return &Notifier{repo: repo, producer: p, fileStorage: fs, timeout: publishTimeout}
}

// JobFinished stores the job's event, publishes it and deletes the uploaded
// sources, which no later request can reference. Publishing errors are
// logged; the stored result stays available either way.
func (n *Notifier) JobFinished(j *job.Job) {
	ev := j.Event()
	n.repo.Save(ev)

	n.publish(ev)

	keys := make([]string, 0, len(j.Request.Sources))
	for _, src := range j.Request.Sources {
		if src.Ref != "" {
			keys = append(keys, src.Ref)
		}
	}
	n.delete(ev, keys)
}

// ResultExpired deletes the stored outputs of a job whose result is gone
// from the result store.
func (n *Notifier) ResultExpired(ev model.Event) {
	if ev.Result == nil {
		return
	}

	keys := make([]string, 0, len(ev.Result.Outputs))
	for _, out := range ev.Result.Outputs {
		if out.Key != "" {
			keys = append(keys, out.Key)
		}
	}
	n.delete(ev, keys)
}

func (n *Notifier) publish(ev model.Event) {
	if n.producer == nil {
		return
	}

	ctx := context.Background()
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	if err := n.producer.Produce(ctx, ev); err != nil {
		zlog.Logger.Error().
			Err(err).
			Str("job_id", ev.JobID.String()).
			Str("submitter", ev.SubmitterID).
			Msg("failed to publish job event")
	}
}

func (n *Notifier) delete(ev model.Event, keys []string) {
	if n.fileStorage == nil || len(keys) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
	defer cancel()

	for _, key := range keys {
		if err := n.fileStorage.Delete(ctx, key); err != nil {
			zlog.Logger.Warn().
				Err(err).
				Str("job_id", ev.JobID.String()).
				Str("key", key).
				Msg("failed to delete stored object")
		}
	}
}
