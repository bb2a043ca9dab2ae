package job

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/catppuccinifier/internal/model"
)

func newJob() *Job {
	return New(model.ProcessingRequest{SubmitterID: "alice", Variant: model.VariantSingle})
}

func TestLifecycleCompleted(t *testing.T) {
	j := newJob()
	assert.Equal(t, Queued, j.State())
	assert.NotEqual(t, "", j.ID.String())

	require.NoError(t, j.Start(func() {}))
	assert.Equal(t, Running, j.State())

	res := &model.Result{Outputs: []model.Output{{Name: "a_mocha.png"}}}
	require.NoError(t, j.Complete(res))
	assert.Equal(t, Completed, j.State())

	select {
	case <-j.Done():
	default:
		t.Fatal("done channel not closed")
	}

	got, err := j.Result()
	assert.NoError(t, err)
	assert.Same(t, res, got)

	ev := j.Event()
	assert.Equal(t, "completed", ev.State)
	assert.Empty(t, ev.Message)
}

func TestTerminalStatesAreImmutable(t *testing.T) {
	j := newJob()
	require.NoError(t, j.Start(nil))
	require.NoError(t, j.Fail(fmt.Errorf("%w: bad", model.ErrDecode)))

	assert.Error(t, j.Complete(&model.Result{}))
	assert.Error(t, j.Fail(model.ErrInternal))
	assert.Error(t, j.Start(nil))
	assert.False(t, j.Cancel())

	assert.Equal(t, Failed, j.State())
	_, err := j.Result()
	assert.ErrorIs(t, err, model.ErrDecode)
	assert.Equal(t, model.KindDecode, j.Event().ErrorKind)
}

func TestCancelQueuedIsImmediate(t *testing.T) {
	j := newJob()
	assert.True(t, j.Cancel())
	assert.Equal(t, Cancelled, j.State())
	assert.Error(t, j.Start(nil))

	_, err := j.Result()
	assert.ErrorIs(t, err, model.ErrCancelled)
}

func TestCancelRunningSignalsContext(t *testing.T) {
	j := newJob()
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, j.Start(cancel))

	assert.True(t, j.Cancel())
	assert.Equal(t, Running, j.State(), "running job stays running until the pipeline stops")

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled")
	}

	require.NoError(t, j.Fail(fmt.Errorf("%w: %w", model.ErrCancelled, ctx.Err())))
	assert.Equal(t, Cancelled, j.State())
}

func TestTimeoutBecomesCancelled(t *testing.T) {
	j := newJob()
	require.NoError(t, j.Start(nil))
	require.NoError(t, j.Fail(context.DeadlineExceeded))
	assert.Equal(t, Cancelled, j.State())
}

func TestWait(t *testing.T) {
	j := newJob()
	require.NoError(t, j.Start(nil))

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = j.Complete(&model.Result{Failed: 1})
	}()

	res, err := j.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = newJob().Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSnapshot(t *testing.T) {
	j := newJob()
	s := j.Snapshot()
	assert.Equal(t, Queued, s.State)
	assert.Nil(t, s.StartedAt)

	require.NoError(t, j.Start(nil))
	j.SetProgress(2, 5)

	s = j.Snapshot()
	assert.Equal(t, model.Progress{Done: 2, Total: 5}, s.Progress)
	assert.NotNil(t, s.StartedAt)
	assert.Nil(t, s.FinishedAt)
	assert.Equal(t, "alice", s.SubmitterID)
}
