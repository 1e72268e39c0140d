package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/alexcherry/audiocast/internal/domain"
)

// processJob drives one job from processing to a terminal status. Items run
// under a counting admission gate of urlConcurrency slots; the gate is per
// job, not shared across jobs.
func (s *Service) processJob(ctx context.Context, jobID string, speechSel domain.SpeechSelection, lmSel domain.LmSelection) error {
	if err := s.store.UpdateJobStatus(ctx, jobID, domain.JobStatusProcessing, nil); err != nil {
		return err
	}
	s.addEvent(ctx, jobID, domain.EventLevelInfo, "Job started", nil)

	items, err := s.store.GetJobItems(ctx, jobID)
	if err != nil {
		return err
	}

	gate := make(chan struct{}, s.urlConcurrency)
	var wg sync.WaitGroup

	for _, item := range items {
		wg.Add(1)
		go func(item domain.JobItem) {
			defer wg.Done()

			select {
			case gate <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-gate }()

			s.processItem(ctx, jobID, item, speechSel, lmSel)
		}(item)
	}
	wg.Wait()

	if ctx.Err() != nil {
		// Cancelled mid-flight: make sure the store reflects it, emit the
		// warning, and surface cancellation to the supervising goroutine.
		// An item mid-capability-call has already finished or failed that
		// call by the time we get here; its result is discarded.
		s.addEvent(context.WithoutCancel(ctx), jobID, domain.EventLevelWarning, "Job cancelled", nil)
		if err := s.store.MarkCancelled(context.WithoutCancel(ctx), jobID); err != nil {
			s.logger.Error("Failed to mark job cancelled",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()),
			)
		}
		return ctx.Err()
	}

	cancelled, err := s.store.IsCancelled(ctx, jobID)
	if err != nil {
		return err
	}
	if cancelled {
		// Explicit cancel observed during processing: the status is already
		// cancelled, aggregation is skipped.
		return nil
	}

	finalItems, err := s.store.GetJobItems(ctx, jobID)
	if err != nil {
		return err
	}
	finalStatus := aggregateStatus(finalItems)

	if err := s.store.UpdateJobStatus(ctx, jobID, finalStatus, nil); err != nil {
		return err
	}
	s.addEvent(ctx, jobID, domain.EventLevelInfo, fmt.Sprintf("Job finished with status=%s", finalStatus), nil)

	s.logger.Info("Job finished",
		slog.String("job_id", jobID),
		slog.String("status", finalStatus),
		slog.Int("item_count", len(finalItems)),
	)
	return nil
}

// aggregateStatus derives the final job status once every item is terminal:
// all completed -> completed, some completed -> partial_failed, all
// cancelled -> cancelled, anything else -> failed.
func aggregateStatus(items []domain.JobItem) string {
	completed, cancelled := 0, 0
	for _, item := range items {
		switch item.Status {
		case domain.ItemStatusCompleted:
			completed++
		case domain.ItemStatusCancelled:
			cancelled++
		}
	}

	switch {
	case completed == len(items):
		return domain.JobStatusCompleted
	case completed > 0:
		return domain.JobStatusPartialFailed
	case cancelled == len(items):
		return domain.JobStatusCancelled
	default:
		return domain.JobStatusFailed
	}
}

// processItem runs one item through fetch, then synthesis, summarization and
// filename derivation in parallel. Failures never propagate to sibling
// items: the outcome lands on this item's row and nowhere else.
func (s *Service) processItem(ctx context.Context, jobID string, item domain.JobItem, speechSel domain.SpeechSelection, lmSel domain.LmSelection) {
	cancelled, err := s.store.IsCancelled(ctx, jobID)
	if err != nil {
		s.failItem(ctx, jobID, item.ID, err)
		return
	}
	if cancelled {
		if err := s.store.UpdateItemStatus(ctx, item.ID, domain.ItemStatusCancelled, nil); err != nil {
			s.logger.Error("Failed to mark item cancelled",
				slog.String("item_id", item.ID),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	if err := s.store.UpdateItemStatus(ctx, item.ID, domain.ItemStatusProcessing, nil); err != nil {
		s.failItem(ctx, jobID, item.ID, err)
		return
	}
	s.addEvent(ctx, jobID, domain.EventLevelInfo, "Item processing started", &item.ID)

	article, err := s.fetchArticle(ctx, item.URL)
	if err != nil {
		if ctx.Err() != nil {
			// The job was cancelled while the fetch was in flight; the row
			// is already terminal, discard the outcome.
			return
		}
		s.failItem(ctx, jobID, item.ID, err)
		return
	}

	var (
		subWg       sync.WaitGroup
		artifact    *domain.ArtifactMeta
		synthErr    error
		summary     string
		summaryErr  error
		filename    string
		filenameErr error
	)

	subWg.Add(3)
	go func() {
		defer subWg.Done()
		synthCtx, cancel := context.WithTimeout(ctx, s.synthesisTimeout)
		defer cancel()
		artifact, synthErr = s.speech.Synthesize(synthCtx, article.Content, speechSel, jobID+"-"+item.ID)
	}()
	go func() {
		defer subWg.Done()
		lmCtx, cancel := context.WithTimeout(ctx, s.lmTimeout)
		defer cancel()
		summary, summaryErr = s.lm.Summarize(lmCtx, article.Content, lmSel)
	}()
	go func() {
		defer subWg.Done()
		lmCtx, cancel := context.WithTimeout(ctx, s.lmTimeout)
		defer cancel()
		filename, filenameErr = s.lm.Filename(lmCtx, article.Content, article.URL, lmSel)
	}()
	subWg.Wait()

	if ctx.Err() != nil {
		// Cancelled while the sub-operations were running. MarkCancelled
		// already flipped this row, discard whatever the ports returned.
		return
	}

	// Synthesis failure is fatal to the item; summary and filename degrade
	// to local fallbacks.
	if synthErr != nil {
		s.failItem(ctx, jobID, item.ID, fmt.Errorf("synthesis failed: %w", synthErr))
		return
	}

	if summaryErr != nil || strings.TrimSpace(summary) == "" {
		summary = fallbackSummary(article.Content)
	} else {
		summary = strings.TrimSpace(summary)
	}

	candidate := strings.TrimSpace(filename)
	if filenameErr != nil {
		candidate = fallbackFilename(article.URL)
	}
	finalName := sanitizeFilename(candidate, article.URL)

	if err := s.store.SetItemResult(ctx, item.ID, summary, finalName, *artifact); err != nil {
		s.failItem(ctx, jobID, item.ID, err)
		return
	}
	s.addEvent(ctx, jobID, domain.EventLevelInfo, "Item processing completed", &item.ID)
}

// fetchArticle applies the configured fetch timeout and maps a missing
// fetcher to a typed capability-unavailable failure.
func (s *Service) fetchArticle(ctx context.Context, url string) (*domain.Article, error) {
	if s.fetcher == nil {
		return nil, domain.ErrFetcherUnavailable
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	article, err := s.fetcher.Fetch(fetchCtx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	return article, nil
}

// failItem records a terminal failure on the item row and in the event log.
func (s *Service) failItem(ctx context.Context, jobID, itemID string, cause error) {
	msg := truncateError(cause)
	if err := s.store.UpdateItemStatus(context.WithoutCancel(ctx), itemID, domain.ItemStatusFailed, &msg); err != nil {
		s.logger.Error("Failed to mark item failed",
			slog.String("item_id", itemID),
			slog.String("error", err.Error()),
		)
	}
	s.addEvent(context.WithoutCancel(ctx), jobID, domain.EventLevelError, "Item failed: "+msg, &itemID)
}
