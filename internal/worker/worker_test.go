package worker

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobimporter.app/internal/config"
	"jobimporter.app/internal/model"
	"jobimporter.app/internal/storage"
)

func TestMain(m *testing.M) {
	config.Opts = config.NewOptions()
	os.Exit(m.Run())
}

type fakeStore struct {
	mu        sync.Mutex
	jobs      map[string]model.FeedItem
	runs      []model.ImportRun
	upsertErr map[string]error
	runErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:      make(map[string]model.FeedItem),
		upsertErr: make(map[string]error),
	}
}

func (s *fakeStore) UpsertJob(_ context.Context, item model.FeedItem,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ExternalID == "" {
		return false, storage.ErrMissingExternalID
	}
	if err := s.upsertErr[item.ExternalID]; err != nil {
		return false, err
	}

	_, exists := s.jobs[item.ExternalID]
	s.jobs[item.ExternalID] = item
	return !exists, nil
}

func (s *fakeStore) CreateImportRun(_ context.Context, run *model.ImportRun,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runErr != nil {
		return s.runErr
	}
	s.runs = append(s.runs, *run)
	return nil
}

type fakeFetcher struct {
	feeds map[string][]model.RawItem
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context, feedURL string,
) ([]model.RawItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.feeds[feedURL], nil
}

func rawJob(id string) model.RawItem {
	return model.RawItem{"guid": id, "title": "Job " + id}
}

func TestImporter_Run(t *testing.T) {
	store := newFakeStore()
	// C exists already, so this run must update rather than create it.
	store.jobs["c"] = model.FeedItem{ExternalID: "c"}

	fetcher := &fakeFetcher{feeds: map[string][]model.RawItem{
		"http://feed": {rawJob("a"), rawJob("b"), rawJob("c")},
	}}

	run, err := NewImporter(fetcher, store).Run(context.Background(), "http://feed", 0)
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.Equal(t, "http://feed", run.FeedURL)
	assert.Equal(t, 0, run.Attempt)
	assert.Equal(t, 3, run.TotalFetched)
	assert.Equal(t, 3, run.TotalImported)
	assert.Equal(t, 2, run.NewJobs)
	assert.Equal(t, 1, run.UpdatedJobs)
	assert.Empty(t, run.FailedJobs)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))

	require.Len(t, store.runs, 1)
	assert.Equal(t, run.NewJobs, store.runs[0].NewJobs)
	assert.Len(t, store.jobs, 3)
}

func TestImporter_accounting(t *testing.T) {
	store := newFakeStore()
	store.upsertErr["b"] = errors.New("deadlock detected")

	fetcher := &fakeFetcher{feeds: map[string][]model.RawItem{
		"http://feed": {rawJob("a"), rawJob("b"), rawJob("c")},
	}}

	run, err := NewImporter(fetcher, store).Run(context.Background(), "http://feed", 0)
	require.NoError(t, err)

	assert.Equal(t, run.TotalFetched,
		run.NewJobs+run.UpdatedJobs+len(run.FailedJobs))
	assert.Equal(t, run.TotalImported, run.NewJobs+run.UpdatedJobs)
}

func TestImporter_idempotence(t *testing.T) {
	store := newFakeStore()
	fetcher := &fakeFetcher{feeds: map[string][]model.RawItem{
		"http://feed": {rawJob("a"), rawJob("b")},
	}}
	importer := NewImporter(fetcher, store)

	first, err := importer.Run(context.Background(), "http://feed", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, first.NewJobs)
	assert.Equal(t, 0, first.UpdatedJobs)

	second, err := importer.Run(context.Background(), "http://feed", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, second.NewJobs)
	assert.Equal(t, 2, second.UpdatedJobs)
	assert.Len(t, store.jobs, 2)
}

func TestImporter_itemIsolation(t *testing.T) {
	store := newFakeStore()
	store.upsertErr["bad"] = errors.New("value too long for column")

	fetcher := &fakeFetcher{feeds: map[string][]model.RawItem{
		"http://feed": {rawJob("a"), rawJob("bad"), rawJob("c")},
	}}

	run, err := NewImporter(fetcher, store).Run(context.Background(), "http://feed", 0)
	require.NoError(t, err)

	assert.Equal(t, 3, run.TotalFetched)
	assert.Equal(t, 2, run.TotalImported)
	require.Len(t, run.FailedJobs, 1)
	assert.Equal(t, "value too long for column", run.FailedJobs[0].Reason)
	assert.Equal(t, rawJob("bad"), run.FailedJobs[0].Item)

	// The failing item must not stop its successors.
	assert.Contains(t, store.jobs, "c")
}

func TestImporter_missingExternalID(t *testing.T) {
	store := newFakeStore()
	unserializable := model.RawItem{"payload": make(chan int)}
	fetcher := &fakeFetcher{feeds: map[string][]model.RawItem{
		"http://feed": {rawJob("a"), unserializable},
	}}

	run, err := NewImporter(fetcher, store).Run(context.Background(), "http://feed", 0)
	require.NoError(t, err)

	assert.Equal(t, 1, run.TotalImported)
	require.Len(t, run.FailedJobs, 1)
	assert.Equal(t, "Missing externalId", run.FailedJobs[0].Reason)
}

func TestImporter_fetchFailure(t *testing.T) {
	store := newFakeStore()
	fetcher := &fakeFetcher{err: errors.New("context deadline exceeded")}

	run, err := NewImporter(fetcher, store).Run(context.Background(), "http://feed", 1)
	require.NoError(t, err)

	assert.Equal(t, 0, run.TotalFetched)
	assert.Equal(t, 0, run.TotalImported)
	require.Len(t, run.FailedJobs, 1)
	assert.Equal(t, "Fetch/Parse error: context deadline exceeded",
		run.FailedJobs[0].Reason)
	assert.Nil(t, run.FailedJobs[0].Item)

	// Even a degenerate run leaves an audit record behind.
	require.Len(t, store.runs, 1)
	assert.Equal(t, 1, store.runs[0].Attempt)
}

func TestImporter_runPersistFailureSwallowed(t *testing.T) {
	store := newFakeStore()
	store.runErr = errors.New("connection refused")
	fetcher := &fakeFetcher{feeds: map[string][]model.RawItem{
		"http://feed": {rawJob("a")},
	}}

	run, err := NewImporter(fetcher, store).Run(context.Background(), "http://feed", 0)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, 1, run.NewJobs)
	assert.Contains(t, store.jobs, "a")
}

func TestImporter_canceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := newFakeStore()
	fetcher := &canceledFetcher{cancel: cancel}

	run, err := NewImporter(fetcher, store).Run(ctx, "http://feed", 0)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, run)
	assert.Empty(t, store.runs)
}

type canceledFetcher struct{ cancel context.CancelFunc }

func (f *canceledFetcher) Fetch(ctx context.Context, _ string,
) ([]model.RawItem, error) {
	f.cancel()
	return nil, ctx.Err()
}

func TestImporter_concurrentFeeds(t *testing.T) {
	store := newFakeStore()
	fetcher := &fakeFetcher{feeds: map[string][]model.RawItem{
		"http://feed/1": {rawJob("a"), rawJob("b")},
		"http://feed/2": {rawJob("x"), rawJob("y"), rawJob("z")},
	}}
	importer := NewImporter(fetcher, store)

	var wg sync.WaitGroup
	runs := make([]*model.ImportRun, 2)
	for i, feedURL := range []string{"http://feed/1", "http://feed/2"} {
		i, feedURL := i, feedURL
		wg.Add(1)
		go func() {
			defer wg.Done()
			run, err := importer.Run(context.Background(), feedURL, 0)
			assert.NoError(t, err)
			runs[i] = run
		}()
	}
	wg.Wait()

	require.NotNil(t, runs[0])
	require.NotNil(t, runs[1])
	assert.Equal(t, 2, runs[0].TotalImported)
	assert.Equal(t, 3, runs[1].TotalImported)
	assert.Len(t, store.jobs, 5)
	assert.Len(t, store.runs, 2)
}
