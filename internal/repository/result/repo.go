package result

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/aliskhannn/catppuccinifier/internal/model"
)

// Repository keeps completion events of finished jobs in memory for a
// limited time. Nothing survives a restart.
type Repository struct {
	cache *cache.Cache
}

// NewRepository creates a new Repository. Events expire after ttl.
func NewRepository(ttl, cleanupInterval time.Duration) *Repository {
	return &Repository{cache: cache.New(ttl, cleanupInterval)}
}

// Save stores ev under its job id and as the submitter's latest event.
func (r *Repository) Save(ev model.Event) {
	r.cache.SetDefault(jobKey(ev.JobID), ev)
	r.cache.SetDefault(submitterKey(ev.SubmitterID), ev)
}

// Get returns the event of a finished job.
func (r *Repository) Get(id uuid.UUID) (model.Event, error) {
	v, ok := r.cache.Get(jobKey(id))
	if !ok {
		return model.Event{}, fmt.Errorf("result %s: %w", id, model.ErrJobNotFound)
	}
	return v.(model.Event), nil
}

// Latest returns the event of the submitter's most recently finished job.
func (r *Repository) Latest(submitterID string) (model.Event, error) {
	v, ok := r.cache.Get(submitterKey(submitterID))
	if !ok {
		return model.Event{}, fmt.Errorf("latest result of %s: %w", submitterID, model.ErrJobNotFound)
	}
	return v.(model.Event), nil
}

// OnExpired registers fn to run once for every job event that leaves the
// store. It runs on the cleanup goroutine, so events only leave at the
// cleanup interval.
func (r *Repository) OnExpired(fn func(ev model.Event)) {
	r.cache.OnEvicted(func(key string, v interface{}) {
		if !strings.HasPrefix(key, jobKeyPrefix) {
			return
		}
		if ev, ok := v.(model.Event); ok {
			fn(ev)
		}
	})
}

const jobKeyPrefix = "job:"

func jobKey(id uuid.UUID) string {
	return jobKeyPrefix + id.String()
}

func submitterKey(id string) string {
	return "submitter:" + id
}
