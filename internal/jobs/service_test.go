package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexcherry/audiocast/internal/domain"
)

// memStore is an in-memory JobStore used to exercise the orchestrator
// without PostgreSQL. All access is serialized behind one mutex, matching
// the write discipline of the real store.
type memStore struct {
	mu     sync.Mutex
	jobs   map[string]*domain.Job
	items  map[string]*domain.JobItem
	order  map[string][]string
	events []domain.JobEvent
	seq    int
}

func newMemStore() *memStore {
	return &memStore{
		jobs:  make(map[string]*domain.Job),
		items: make(map[string]*domain.JobItem),
		order: make(map[string][]string),
	}
}

func (m *memStore) CreateJob(_ context.Context, chatID string, urls []string) (string, []string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	jobID := fmt.Sprintf("job-%d", m.seq)
	now := time.Now().UTC()
	m.jobs[jobID] = &domain.Job{
		ID:        jobID,
		ChatID:    chatID,
		Status:    domain.JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	itemIDs := make([]string, 0, len(urls))
	for i, u := range urls {
		m.seq++
		itemID := fmt.Sprintf("item-%d", m.seq)
		m.items[itemID] = &domain.JobItem{
			ID:        itemID,
			JobID:     jobID,
			URL:       u,
			Status:    domain.ItemStatusQueued,
			CreatedAt: now.Add(time.Duration(i) * time.Microsecond),
			UpdatedAt: now,
		}
		m.order[jobID] = append(m.order[jobID], itemID)
		itemIDs = append(itemIDs, itemID)
	}
	return jobID, itemIDs, nil
}

func (m *memStore) GetJob(_ context.Context, jobID string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (m *memStore) GetJobItems(_ context.Context, jobID string) ([]domain.JobItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]domain.JobItem, 0, len(m.order[jobID]))
	for _, itemID := range m.order[jobID] {
		items = append(items, *m.items[itemID])
	}
	return items, nil
}

func (m *memStore) GetJobItem(_ context.Context, jobID, itemID string) (*domain.JobItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[itemID]
	if !ok || item.JobID != jobID {
		return nil, domain.ErrItemNotFound
	}
	copied := *item
	return &copied, nil
}

func (m *memStore) UpdateJobStatus(_ context.Context, jobID, status string, errorMessage *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	// Terminal rows never transition, matching the real store's guard.
	if domain.IsTerminalJobStatus(job.Status) {
		return nil
	}
	job.Status = status
	job.ErrorMessage = errorMessage
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memStore) UpdateItemStatus(_ context.Context, itemID, status string, errorMessage *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[itemID]
	if !ok {
		return domain.ErrItemNotFound
	}
	if domain.IsTerminalItemStatus(item.Status) {
		return nil
	}
	item.Status = status
	item.ErrorMessage = errorMessage
	item.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memStore) SetItemResult(_ context.Context, itemID, summary, filename string, artifact domain.ArtifactMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[itemID]
	if !ok {
		return domain.ErrItemNotFound
	}
	// Only a processing item can complete, matching the real store.
	if item.Status != domain.ItemStatusProcessing {
		return nil
	}
	item.Status = domain.ItemStatusCompleted
	item.Summary = &summary
	item.Filename = &filename
	item.ArtifactPath = &artifact.Path
	item.ArtifactKind = &artifact.Kind
	item.MimeType = &artifact.MimeType
	item.SizeBytes = &artifact.SizeBytes
	item.ErrorMessage = nil
	item.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memStore) ClearItemArtifact(_ context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[itemID]
	if !ok {
		return domain.ErrItemNotFound
	}
	item.ArtifactPath = nil
	item.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memStore) MarkCancelled(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	job.Status = domain.JobStatusCancelled
	job.UpdatedAt = time.Now().UTC()
	for _, itemID := range m.order[jobID] {
		item := m.items[itemID]
		if item.Status == domain.ItemStatusQueued || item.Status == domain.ItemStatusProcessing {
			item.Status = domain.ItemStatusCancelled
			item.UpdatedAt = time.Now().UTC()
		}
	}
	return nil
}

func (m *memStore) IsCancelled(_ context.Context, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return false, domain.ErrJobNotFound
	}
	return job.Status == domain.JobStatusCancelled, nil
}

func (m *memStore) AddEvent(_ context.Context, jobID, level, message string, itemID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, domain.JobEvent{
		ID:        fmt.Sprintf("event-%d", len(m.events)+1),
		JobID:     jobID,
		ItemID:    itemID,
		Level:     level,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (m *memStore) GetEvents(_ context.Context, jobID string) ([]domain.JobEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var events []domain.JobEvent
	for _, event := range m.events {
		if event.JobID == jobID {
			events = append(events, event)
		}
	}
	return events, nil
}

func (m *memStore) Healthcheck(_ context.Context) error { return nil }

func (m *memStore) eventMessages(jobID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var msgs []string
	for _, event := range m.events {
		if event.JobID == jobID {
			msgs = append(msgs, event.Message)
		}
	}
	return msgs
}

type fakeFetcher struct {
	fetchFn func(ctx context.Context, url string) (*domain.Article, error)
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*domain.Article, error) {
	return f.fetchFn(ctx, url)
}

type fakeSpeech struct {
	synthFn func(ctx context.Context, text string, sel domain.SpeechSelection, baseName string) (*domain.ArtifactMeta, error)
}

func (f *fakeSpeech) Synthesize(ctx context.Context, text string, sel domain.SpeechSelection, baseName string) (*domain.ArtifactMeta, error) {
	if f.synthFn != nil {
		return f.synthFn(ctx, text, sel, baseName)
	}
	return &domain.ArtifactMeta{
		Path:      "/tmp/" + baseName + ".ogg",
		Kind:      domain.ArtifactKindVoice,
		MimeType:  "audio/ogg",
		SizeBytes: int64(len(text)),
	}, nil
}

type fakeLm struct {
	summarizeFn func(ctx context.Context, text string, sel domain.LmSelection) (string, error)
	filenameFn  func(ctx context.Context, text, url string, sel domain.LmSelection) (string, error)
}

func (f *fakeLm) ListModels(context.Context) ([]string, error) {
	return []string{"test-model"}, nil
}

func (f *fakeLm) ValidateModel(context.Context, string) (domain.ModelValidation, error) {
	return domain.ModelValidation{Valid: true}, nil
}

func (f *fakeLm) Summarize(ctx context.Context, text string, sel domain.LmSelection) (string, error) {
	if f.summarizeFn != nil {
		return f.summarizeFn(ctx, text, sel)
	}
	return "A short summary.", nil
}

func (f *fakeLm) Filename(ctx context.Context, text, url string, sel domain.LmSelection) (string, error) {
	if f.filenameFn != nil {
		return f.filenameFn(ctx, text, url, sel)
	}
	return "test-article", nil
}

func okFetcher() *fakeFetcher {
	return &fakeFetcher{
		fetchFn: func(_ context.Context, url string) (*domain.Article, error) {
			return &domain.Article{URL: url, Content: "Article body for " + url, Title: "Title"}, nil
		},
	}
}

func newTestService(store domain.JobStore, fetcher domain.ArticleFetcher, speech domain.SpeechEngine, lm domain.LanguageModel, concurrency int) *Service {
	return NewService(&Config{
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		Store:            store,
		Fetcher:          fetcher,
		Speech:           speech,
		Lm:               lm,
		URLConcurrency:   concurrency,
		FetchTimeout:     5 * time.Second,
		SynthesisTimeout: 5 * time.Second,
		LmTimeout:        5 * time.Second,
	})
}

func waitForTerminalJob(t *testing.T, store *memStore, jobID string) *domain.Job {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		require.NoError(t, err)
		if domain.IsTerminalJobStatus(job.Status) {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal status", jobID)
	return nil
}

var testSelections = struct {
	speech domain.SpeechSelection
	lm     domain.LmSelection
}{
	speech: domain.SpeechSelection{ModelID: "Kokoro-82M-bf16", Voice: "af_heart", Speed: 1.0},
	lm:     domain.LmSelection{SummaryModelID: "sum-model", FilenameModelID: "name-model"},
}

func TestCreateJob_CompletesAllItems(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, okFetcher(), &fakeSpeech{}, &fakeLm{}, 2)

	urls := []string{"https://a.example.com/1", "https://b.example.com/2", "https://c.example.com/3"}
	jobID, err := svc.CreateJob(context.Background(), "chat-1", urls, testSelections.speech, testSelections.lm)
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	job := waitForTerminalJob(t, store, jobID)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)

	items, err := store.GetJobItems(context.Background(), jobID)
	require.NoError(t, err)
	require.Len(t, items, 3)

	for i, item := range items {
		assert.Equal(t, urls[i], item.URL, "items must preserve submission order")
		assert.Equal(t, domain.ItemStatusCompleted, item.Status)
		require.NotNil(t, item.Summary)
		assert.Equal(t, "A short summary.", *item.Summary)
		require.NotNil(t, item.Filename)
		assert.Equal(t, "test-article", *item.Filename)
		require.NotNil(t, item.ArtifactPath)
		require.NotNil(t, item.ArtifactKind)
		assert.Equal(t, domain.ArtifactKindVoice, *item.ArtifactKind)
		assert.Nil(t, item.ErrorMessage)
	}

	msgs := store.eventMessages(jobID)
	assert.Contains(t, msgs, "Job started")
	assert.Contains(t, msgs, "Job finished with status=completed")
}

func TestCreateJob_ReturnsBeforeProcessingFinishes(t *testing.T) {
	store := newMemStore()
	release := make(chan struct{})
	fetcher := &fakeFetcher{
		fetchFn: func(ctx context.Context, url string) (*domain.Article, error) {
			select {
			case <-release:
				return &domain.Article{URL: url, Content: "body"}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}
	svc := newTestService(store, fetcher, &fakeSpeech{}, &fakeLm{}, 1)

	start := time.Now()
	jobID, err := svc.CreateJob(context.Background(), "chat-1", []string{"https://a.example.com/1"}, testSelections.speech, testSelections.lm)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second, "submission must not wait on processing")

	job, err := store.GetJob(context.Background(), jobID)
	require.NoError(t, err)
	assert.False(t, domain.IsTerminalJobStatus(job.Status))

	close(release)
	waitForTerminalJob(t, store, jobID)
}

func TestProcessJob_PartialFailure(t *testing.T) {
	store := newMemStore()
	fetcher := &fakeFetcher{
		fetchFn: func(_ context.Context, url string) (*domain.Article, error) {
			if strings.Contains(url, "bad") {
				return nil, errors.New("upstream returned 502")
			}
			return &domain.Article{URL: url, Content: "body"}, nil
		},
	}
	svc := newTestService(store, fetcher, &fakeSpeech{}, &fakeLm{}, 2)

	jobID, err := svc.CreateJob(context.Background(), "chat-1",
		[]string{"https://good.example.com/1", "https://bad.example.com/2"},
		testSelections.speech, testSelections.lm)
	require.NoError(t, err)

	job := waitForTerminalJob(t, store, jobID)
	assert.Equal(t, domain.JobStatusPartialFailed, job.Status)

	items, err := store.GetJobItems(context.Background(), jobID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, domain.ItemStatusCompleted, items[0].Status)
	assert.Equal(t, domain.ItemStatusFailed, items[1].Status)
	require.NotNil(t, items[1].ErrorMessage)
	assert.Contains(t, *items[1].ErrorMessage, "fetch failed")
}

func TestProcessJob_AllItemsFail(t *testing.T) {
	store := newMemStore()
	fetcher := &fakeFetcher{
		fetchFn: func(context.Context, string) (*domain.Article, error) {
			return nil, errors.New("upstream down")
		},
	}
	svc := newTestService(store, fetcher, &fakeSpeech{}, &fakeLm{}, 2)

	jobID, err := svc.CreateJob(context.Background(), "chat-1",
		[]string{"https://a.example.com/1", "https://b.example.com/2"},
		testSelections.speech, testSelections.lm)
	require.NoError(t, err)

	job := waitForTerminalJob(t, store, jobID)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
}

func TestProcessJob_SynthesisFailureIsFatalToItem(t *testing.T) {
	store := newMemStore()
	speech := &fakeSpeech{
		synthFn: func(context.Context, string, domain.SpeechSelection, string) (*domain.ArtifactMeta, error) {
			return nil, errors.New("engine out of memory")
		},
	}
	svc := newTestService(store, okFetcher(), speech, &fakeLm{}, 1)

	jobID, err := svc.CreateJob(context.Background(), "chat-1", []string{"https://a.example.com/1"}, testSelections.speech, testSelections.lm)
	require.NoError(t, err)

	job := waitForTerminalJob(t, store, jobID)
	assert.Equal(t, domain.JobStatusFailed, job.Status)

	items, err := store.GetJobItems(context.Background(), jobID)
	require.NoError(t, err)
	require.NotNil(t, items[0].ErrorMessage)
	assert.Contains(t, *items[0].ErrorMessage, "synthesis failed")
}

func TestProcessJob_SummaryAndFilenameFallBack(t *testing.T) {
	store := newMemStore()
	lm := &fakeLm{
		summarizeFn: func(context.Context, string, domain.LmSelection) (string, error) {
			return "", errors.New("model not loaded")
		},
		filenameFn: func(context.Context, string, string, domain.LmSelection) (string, error) {
			return "", errors.New("model not loaded")
		},
	}
	fetcher := &fakeFetcher{
		fetchFn: func(_ context.Context, url string) (*domain.Article, error) {
			return &domain.Article{URL: url, Content: "First  paragraph.\n\nSecond paragraph."}, nil
		},
	}
	svc := newTestService(store, fetcher, &fakeSpeech{}, lm, 1)

	jobID, err := svc.CreateJob(context.Background(), "chat-1", []string{"https://news.example.com/story"}, testSelections.speech, testSelections.lm)
	require.NoError(t, err)

	job := waitForTerminalJob(t, store, jobID)
	assert.Equal(t, domain.JobStatusCompleted, job.Status, "fallbacks must not fail the item")

	items, err := store.GetJobItems(context.Background(), jobID)
	require.NoError(t, err)
	require.NotNil(t, items[0].Summary)
	assert.Equal(t, "First paragraph. Second paragraph.", *items[0].Summary)
	require.NotNil(t, items[0].Filename)
	assert.True(t, strings.HasPrefix(*items[0].Filename, "newsexamplecom-"), "got %q", *items[0].Filename)
}

func TestProcessJob_FetcherUnavailable(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil, &fakeSpeech{}, &fakeLm{}, 1)

	jobID, err := svc.CreateJob(context.Background(), "chat-1", []string{"https://a.example.com/1"}, testSelections.speech, testSelections.lm)
	require.NoError(t, err)

	job := waitForTerminalJob(t, store, jobID)
	assert.Equal(t, domain.JobStatusFailed, job.Status)

	items, err := store.GetJobItems(context.Background(), jobID)
	require.NoError(t, err)
	require.NotNil(t, items[0].ErrorMessage)
	assert.Contains(t, *items[0].ErrorMessage, domain.ErrFetcherUnavailable.Error())
}

func TestProcessJob_ConcurrencyBound(t *testing.T) {
	store := newMemStore()

	var current, peak atomic.Int32
	fetcher := &fakeFetcher{
		fetchFn: func(_ context.Context, url string) (*domain.Article, error) {
			n := current.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			current.Add(-1)
			return &domain.Article{URL: url, Content: "body"}, nil
		},
	}
	svc := newTestService(store, fetcher, &fakeSpeech{}, &fakeLm{}, 2)

	urls := make([]string, 6)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://example.com/%d", i)
	}
	jobID, err := svc.CreateJob(context.Background(), "chat-1", urls, testSelections.speech, testSelections.lm)
	require.NoError(t, err)

	job := waitForTerminalJob(t, store, jobID)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.LessOrEqual(t, peak.Load(), int32(2), "no more than url_concurrency items may fetch at once")
}

func TestCancelJob_MidFlight(t *testing.T) {
	store := newMemStore()

	started := make(chan struct{})
	var once sync.Once
	fetcher := &fakeFetcher{
		fetchFn: func(ctx context.Context, url string) (*domain.Article, error) {
			once.Do(func() { close(started) })
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	svc := newTestService(store, fetcher, &fakeSpeech{}, &fakeLm{}, 1)

	jobID, err := svc.CreateJob(context.Background(), "chat-1",
		[]string{"https://a.example.com/1", "https://b.example.com/2", "https://c.example.com/3"},
		testSelections.speech, testSelections.lm)
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("processing never started")
	}

	require.NoError(t, svc.CancelJob(context.Background(), jobID))

	job := waitForTerminalJob(t, store, jobID)
	assert.Equal(t, domain.JobStatusCancelled, job.Status)

	items, err := store.GetJobItems(context.Background(), jobID)
	require.NoError(t, err)
	for _, item := range items {
		assert.Equal(t, domain.ItemStatusCancelled, item.Status, "item %s", item.ID)
	}

	// Cancelling a finished job is a no-op success.
	require.NoError(t, svc.CancelJob(context.Background(), jobID))
	job, err = store.GetJob(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCancelled, job.Status)
}

// slowCancelStore widens the gap between the cancellation commit and the
// context cancel: MarkCancelled lets the blocked synthesis finish and then
// lingers before returning, so the worker reaches its result write while the
// processing context is still live.
type slowCancelStore struct {
	*memStore
	release chan struct{}
	once    sync.Once
}

func (s *slowCancelStore) MarkCancelled(ctx context.Context, jobID string) error {
	err := s.memStore.MarkCancelled(ctx, jobID)
	s.once.Do(func() { close(s.release) })
	time.Sleep(300 * time.Millisecond)
	return err
}

func TestCancelJob_LateResultCannotRevertItem(t *testing.T) {
	base := newMemStore()
	store := &slowCancelStore{memStore: base, release: make(chan struct{})}

	started := make(chan struct{})
	speech := &fakeSpeech{
		synthFn: func(ctx context.Context, text string, sel domain.SpeechSelection, baseName string) (*domain.ArtifactMeta, error) {
			close(started)
			select {
			case <-store.release:
				return &domain.ArtifactMeta{
					Path:      "/tmp/" + baseName + ".ogg",
					Kind:      domain.ArtifactKindVoice,
					MimeType:  "audio/ogg",
					SizeBytes: 42,
				}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}
	svc := newTestService(store, okFetcher(), speech, &fakeLm{}, 1)

	jobID, err := svc.CreateJob(context.Background(), "chat-1", []string{"https://a.example.com/1"}, testSelections.speech, testSelections.lm)
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("synthesis never started")
	}

	require.NoError(t, svc.CancelJob(context.Background(), jobID))

	// Give the unblocked worker time to push its late result through the
	// store before checking that nothing reverted.
	time.Sleep(600 * time.Millisecond)

	job, err := base.GetJob(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCancelled, job.Status)

	items, err := base.GetJobItems(context.Background(), jobID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.ItemStatusCancelled, items[0].Status,
		"a result landing after cancellation must not revert the item")
	assert.Nil(t, items[0].ArtifactPath)
	assert.Nil(t, items[0].Summary)
}

func TestCancelJob_UnknownJob(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, okFetcher(), &fakeSpeech{}, &fakeLm{}, 1)

	err := svc.CancelJob(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestAcknowledgeSent_DeletesArtifactOnce(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, okFetcher(), &fakeSpeech{}, &fakeLm{}, 1)

	artifactPath := filepath.Join(t.TempDir(), "story.ogg")
	require.NoError(t, os.WriteFile(artifactPath, []byte("audio"), 0o644))

	jobID, itemIDs, err := store.CreateJob(context.Background(), "chat-1", []string{"https://a.example.com/1"})
	require.NoError(t, err)
	require.NoError(t, store.UpdateItemStatus(context.Background(), itemIDs[0], domain.ItemStatusProcessing, nil))
	require.NoError(t, store.SetItemResult(context.Background(), itemIDs[0], "summary", "story", domain.ArtifactMeta{
		Path:      artifactPath,
		Kind:      domain.ArtifactKindVoice,
		MimeType:  "audio/ogg",
		SizeBytes: 5,
	}))

	require.NoError(t, svc.AcknowledgeSent(context.Background(), jobID, itemIDs[0]))

	_, statErr := os.Stat(artifactPath)
	assert.True(t, os.IsNotExist(statErr), "artifact file must be deleted")

	item, err := store.GetJobItem(context.Background(), jobID, itemIDs[0])
	require.NoError(t, err)
	assert.Nil(t, item.ArtifactPath)
	assert.Equal(t, domain.ItemStatusCompleted, item.Status, "acknowledgement must not change item status")

	// Second acknowledgement finds no artifact and still succeeds.
	require.NoError(t, svc.AcknowledgeSent(context.Background(), jobID, itemIDs[0]))
}

func TestAcknowledgeSent_UnknownItem(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, okFetcher(), &fakeSpeech{}, &fakeLm{}, 1)

	jobID, _, err := store.CreateJob(context.Background(), "chat-1", []string{"https://a.example.com/1"})
	require.NoError(t, err)

	err = svc.AcknowledgeSent(context.Background(), jobID, "missing")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestAggregateStatus(t *testing.T) {
	item := func(status string) domain.JobItem {
		return domain.JobItem{Status: status}
	}

	tests := []struct {
		name     string
		items    []domain.JobItem
		expected string
	}{
		{
			name:     "all completed",
			items:    []domain.JobItem{item(domain.ItemStatusCompleted), item(domain.ItemStatusCompleted)},
			expected: domain.JobStatusCompleted,
		},
		{
			name:     "mixed completed and failed",
			items:    []domain.JobItem{item(domain.ItemStatusCompleted), item(domain.ItemStatusFailed)},
			expected: domain.JobStatusPartialFailed,
		},
		{
			name:     "mixed completed and cancelled",
			items:    []domain.JobItem{item(domain.ItemStatusCompleted), item(domain.ItemStatusCancelled)},
			expected: domain.JobStatusPartialFailed,
		},
		{
			name:     "all cancelled",
			items:    []domain.JobItem{item(domain.ItemStatusCancelled), item(domain.ItemStatusCancelled)},
			expected: domain.JobStatusCancelled,
		},
		{
			name:     "all failed",
			items:    []domain.JobItem{item(domain.ItemStatusFailed), item(domain.ItemStatusFailed)},
			expected: domain.JobStatusFailed,
		},
		{
			name:     "failed and cancelled",
			items:    []domain.JobItem{item(domain.ItemStatusFailed), item(domain.ItemStatusCancelled)},
			expected: domain.JobStatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, aggregateStatus(tt.items))
		})
	}
}
