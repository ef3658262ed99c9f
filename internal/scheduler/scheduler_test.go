package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/covid-dashboard/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	calls    atomic.Int64
	err      error
	deadline atomic.Bool
}

func (r *countingRefresher) Refresh(ctx context.Context) (*pipeline.Dataset, error) {
	r.calls.Add(1)
	_, ok := ctx.Deadline()
	r.deadline.Store(ok)
	if r.err != nil {
		return nil, r.err
	}
	return &pipeline.Dataset{RunID: "run", Rows: 1}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_InvalidSchedule(t *testing.T) {
	_, err := New("every now and then", &countingRefresher{}, time.Minute, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REFRESH_SCHEDULE")
}

func TestNew_AcceptsDescriptorsAndCron(t *testing.T) {
	for _, spec := range []string{"@daily", "@every 6h", "0 */6 * * *"} {
		_, err := New(spec, &countingRefresher{}, time.Minute, discardLogger())
		assert.NoError(t, err, spec)
	}
}

func TestRun_BoundsRefreshWithTimeout(t *testing.T) {
	r := &countingRefresher{}
	s, err := New("@daily", r, time.Minute, discardLogger())
	require.NoError(t, err)

	s.run()

	assert.Equal(t, int64(1), r.calls.Load())
	assert.True(t, r.deadline.Load())
}

func TestRun_FailureIsLogged(t *testing.T) {
	r := &countingRefresher{err: errors.New("status 503")}
	s, err := New("@daily", r, time.Minute, discardLogger())
	require.NoError(t, err)

	assert.NotPanics(t, s.run)
	assert.Equal(t, int64(1), r.calls.Load())
}

func TestStartStop(t *testing.T) {
	r := &countingRefresher{}
	s, err := New("@every 1h", r, time.Minute, discardLogger())
	require.NoError(t, err)

	assert.True(t, s.Next().IsZero())
	s.Start(context.Background())
	next := s.Next()
	assert.False(t, next.IsZero())
	assert.WithinDuration(t, time.Now().Add(time.Hour), next, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	assert.Zero(t, r.calls.Load())
}
