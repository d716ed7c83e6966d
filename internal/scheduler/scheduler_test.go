package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobimporter.app/internal/queue"
)

type fakeEnqueuer struct {
	enqueued []string
	failOn   map[string]error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, feedURL string,
) (*queue.Task, error) {
	if err := f.failOn[feedURL]; err != nil {
		return nil, err
	}
	f.enqueued = append(f.enqueued, feedURL)
	return &queue.Task{FeedURL: feedURL}, nil
}

func TestScheduler_TriggerAll(t *testing.T) {
	feeds := []string{"http://feed/1", "http://feed/2", "http://feed/3"}
	q := &fakeEnqueuer{}

	s, err := New(q, "@hourly", feeds)
	require.NoError(t, err)

	result := s.TriggerAll(context.Background())
	assert.Equal(t, 3, result.Queued)
	assert.Equal(t, "Queued 3 import jobs", result.Message)
	assert.Equal(t, feeds, result.FeedURLs)
	assert.Equal(t, feeds, q.enqueued)
}

func TestScheduler_TriggerAllPartialFailure(t *testing.T) {
	feeds := []string{"http://feed/1", "http://feed/2", "http://feed/3"}
	q := &fakeEnqueuer{failOn: map[string]error{
		"http://feed/2": errors.New("connection refused"),
	}}

	s, err := New(q, "0 * * * *", feeds)
	require.NoError(t, err)

	result := s.TriggerAll(context.Background())
	assert.Equal(t, 2, result.Queued)
	assert.Equal(t, "Queued 2 import jobs", result.Message)
	// The failed feed is skipped, not fatal for its successors.
	assert.Equal(t, []string{"http://feed/1", "http://feed/3"}, q.enqueued)
	assert.Equal(t, feeds, result.FeedURLs)
}

func TestScheduler_TriggerAllNoFeeds(t *testing.T) {
	s, err := New(&fakeEnqueuer{}, "@hourly", nil)
	require.NoError(t, err)

	result := s.TriggerAll(context.Background())
	assert.Equal(t, 0, result.Queued)
	assert.Equal(t, "Queued 0 import jobs", result.Message)
	assert.Empty(t, result.FeedURLs)
}

func TestScheduler_invalidSpec(t *testing.T) {
	_, err := New(&fakeEnqueuer{}, "not a cron spec", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron spec")
}

func TestScheduler_startStopIdempotent(t *testing.T) {
	s, err := New(&fakeEnqueuer{}, "@hourly", []string{"http://feed"})
	require.NoError(t, err)

	s.Start()
	s.Start()
	assert.True(t, s.started)

	s.Stop()
	s.Stop()
	assert.False(t, s.started)

	s.Start()
	assert.True(t, s.started)
	s.Stop()
}
