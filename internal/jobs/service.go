package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/alexcherry/audiocast/internal/domain"
)

// EventPublisher mirrors lifecycle events onto a message broker for
// external consumers. Publishing is best-effort and never drives control
// flow; the job_events table stays the source of truth.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event domain.JobEvent) error
}

// Config holds orchestrator configuration.
type Config struct {
	Logger           *slog.Logger
	Store            domain.JobStore
	Fetcher          domain.ArticleFetcher // optional, nil when no API key is configured
	Speech           domain.SpeechEngine
	Lm               domain.LanguageModel
	Publisher        EventPublisher // optional
	URLConcurrency   int
	FetchTimeout     time.Duration
	SynthesisTimeout time.Duration
	LmTimeout        time.Duration
}

// Service owns the job lifecycle: it fans a submitted job out into
// concurrency-capped item workers, drives each item through the capability
// ports, and reconciles the final job status from item outcomes.
type Service struct {
	logger           *slog.Logger
	store            domain.JobStore
	fetcher          domain.ArticleFetcher
	speech           domain.SpeechEngine
	lm               domain.LanguageModel
	publisher        EventPublisher
	urlConcurrency   int
	fetchTimeout     time.Duration
	synthesisTimeout time.Duration
	lmTimeout        time.Duration

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// NewService creates a new orchestrator instance.
func NewService(cfg *Config) *Service {
	concurrency := cfg.URLConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return &Service{
		logger:           cfg.Logger,
		store:            cfg.Store,
		fetcher:          cfg.Fetcher,
		speech:           cfg.Speech,
		lm:               cfg.Lm,
		publisher:        cfg.Publisher,
		urlConcurrency:   concurrency,
		fetchTimeout:     cfg.FetchTimeout,
		synthesisTimeout: cfg.SynthesisTimeout,
		lmTimeout:        cfg.LmTimeout,
	}
}

// CreateJob persists the job with one item per URL and starts processing in
// the background. It returns the job ID immediately, never waiting on item
// processing.
func (s *Service) CreateJob(ctx context.Context, chatID string, urls []string, speechSel domain.SpeechSelection, lmSel domain.LmSelection) (string, error) {
	jobID, _, err := s.store.CreateJob(ctx, chatID, urls)
	if err != nil {
		return "", fmt.Errorf("failed to create job: %w", err)
	}

	// The processing context outlives the HTTP request that submitted it.
	jobCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.running == nil {
		s.running = make(map[string]context.CancelFunc)
	}
	s.running[jobID] = cancel
	s.mu.Unlock()

	go func() {
		defer s.unregister(jobID)

		if err := s.processJob(jobCtx, jobID, speechSel, lmSel); err != nil {
			if errors.Is(err, context.Canceled) {
				s.logger.Warn("Job processing cancelled",
					slog.String("job_id", jobID),
				)
				return
			}
			s.logger.Error("Job processing ended with error",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()),
			)
		}
	}()

	return jobID, nil
}

// CancelJob flips the job and its non-terminal items to cancelled in the
// store, then requests cooperative cancellation of the in-flight processing
// task if one is still registered. Cancelling an already-finished job is a
// no-op success.
func (s *Service) CancelJob(ctx context.Context, jobID string) error {
	if _, err := s.store.GetJob(ctx, jobID); err != nil {
		return err
	}

	// Store flip first so concurrent readers observe the cancelled state
	// before the background task notices.
	if err := s.store.MarkCancelled(ctx, jobID); err != nil {
		return err
	}

	s.mu.Lock()
	cancel, ok := s.running[jobID]
	s.mu.Unlock()
	if ok {
		cancel()
	}

	s.logger.Info("Job cancellation requested",
		slog.String("job_id", jobID),
		slog.Bool("task_running", ok),
	)
	return nil
}

// AcknowledgeSent is the only deletion path for synthesized audio: once a
// consumer confirms receipt, the artifact file is deleted and its database
// reference cleared. A missing file is tolerated, and a second call finds
// no artifact and succeeds without touching the filesystem.
func (s *Service) AcknowledgeSent(ctx context.Context, jobID, itemID string) error {
	item, err := s.store.GetJobItem(ctx, jobID, itemID)
	if err != nil {
		return err
	}

	if item.ArtifactPath != nil && *item.ArtifactPath != "" {
		if err := os.Remove(*item.ArtifactPath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("Failed to delete artifact file",
				slog.String("item_id", itemID),
				slog.String("path", *item.ArtifactPath),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.store.ClearItemArtifact(ctx, itemID); err != nil {
		return err
	}
	s.addEvent(ctx, jobID, domain.EventLevelInfo, "Artifact acknowledged and deleted", &itemID)
	return nil
}

// unregister drops the in-flight handle so the registry does not grow
// without bound.
func (s *Service) unregister(jobID string) {
	s.mu.Lock()
	delete(s.running, jobID)
	s.mu.Unlock()
}

// addEvent appends to the audit trail and mirrors the event to the broker
// when a publisher is configured. Failures are logged only.
func (s *Service) addEvent(ctx context.Context, jobID, level, message string, itemID *string) {
	if err := s.store.AddEvent(ctx, jobID, level, message, itemID); err != nil {
		s.logger.Error("Failed to record job event",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}

	if s.publisher == nil {
		return
	}
	event := domain.JobEvent{
		JobID:     jobID,
		ItemID:    itemID,
		Level:     level,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish job event",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}
