package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobimporter.app/internal/model"
	"jobimporter.app/internal/queue"
)

type fakeSource struct {
	mu      sync.Mutex
	tasks   []queue.Task
	retried []queue.Task
}

func (s *fakeSource) Next(ctx context.Context) (*queue.Task, error) {
	s.mu.Lock()
	if len(s.tasks) > 0 {
		t := s.tasks[0]
		s.tasks = s.tasks[1:]
		s.mu.Unlock()
		return &t, nil
	}
	s.mu.Unlock()

	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *fakeSource) Retry(_ context.Context, t queue.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retried = append(s.retried, t)
	return nil
}

func (s *fakeSource) retriedTasks() []queue.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]queue.Task(nil), s.retried...)
}

func TestPool_Run(t *testing.T) {
	store := newFakeStore()
	fetcher := &fakeFetcher{feeds: map[string][]model.RawItem{
		"http://feed/1": {rawJob("a")},
		"http://feed/2": {rawJob("b")},
	}}
	source := &fakeSource{tasks: []queue.Task{
		{FeedURL: "http://feed/1"},
		{FeedURL: "http://feed/2"},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, source, NewImporter(fetcher, store), 2)

	done := make(chan error, 1)
	go func() { done <- pool.Run() }()

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.runs) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Empty(t, source.retriedTasks())
}

type panicFetcher struct{}

func (panicFetcher) Fetch(context.Context, string) ([]model.RawItem, error) {
	panic("feed exploded")
}

func TestPool_retryOnPanic(t *testing.T) {
	source := &fakeSource{tasks: []queue.Task{
		{FeedURL: "http://feed", Attempt: 1},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, source, NewImporter(panicFetcher{}, newFakeStore()), 1)

	done := make(chan error, 1)
	go func() { done <- pool.Run() }()

	require.Eventually(t, func() bool {
		return len(source.retriedTasks()) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, queue.Task{FeedURL: "http://feed", Attempt: 1},
		source.retriedTasks()[0])
}

type blockedFetcher struct{}

func (blockedFetcher) Fetch(ctx context.Context, _ string,
) ([]model.RawItem, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestPool_retryOnShutdown(t *testing.T) {
	source := &fakeSource{tasks: []queue.Task{{FeedURL: "http://feed"}}}

	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, source, NewImporter(blockedFetcher{}, newFakeStore()), 1)

	done := make(chan error, 1)
	go func() { done <- pool.Run() }()

	// Give the worker time to pick up the task, then interrupt it.
	time.Sleep(50 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	// The interrupted task must survive the shutdown via a retry.
	require.Len(t, source.retriedTasks(), 1)
	assert.Equal(t, "http://feed", source.retriedTasks()[0].FeedURL)
}
