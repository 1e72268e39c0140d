package handler

import (
	"context"
	"log/slog"

	"github.com/alexcherry/audiocast/internal/domain"
)

// JobService is the orchestrator surface the handlers drive.
type JobService interface {
	CreateJob(ctx context.Context, chatID string, urls []string, speechSel domain.SpeechSelection, lmSel domain.LmSelection) (string, error)
	CancelJob(ctx context.Context, jobID string) error
	AcknowledgeSent(ctx context.Context, jobID, itemID string) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger  *slog.Logger
	Store   domain.JobStore
	Service JobService
	Lm      domain.LanguageModel
	// FetcherConfigured reports whether an article fetcher is available;
	// health is degraded without one.
	FetcherConfigured bool
}

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	logger            *slog.Logger
	store             domain.JobStore
	service           JobService
	lm                domain.LanguageModel
	fetcherConfigured bool
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:            deps.Logger,
		store:             deps.Store,
		service:           deps.Service,
		lm:                deps.Lm,
		fetcherConfigured: deps.FetcherConfigured,
	}
}
