package domain

import "context"

// ArticleFetcher extracts readable content from a source URL.
type ArticleFetcher interface {
	Fetch(ctx context.Context, url string) (*Article, error)
}

// SpeechEngine renders text to an audio artifact on disk. baseName is the
// extension-free file name the engine should write under its artifacts dir.
type SpeechEngine interface {
	Synthesize(ctx context.Context, text string, sel SpeechSelection, baseName string) (*ArtifactMeta, error)
}

// ModelValidation is the outcome of probing a language model.
type ModelValidation struct {
	Valid  bool
	Reason string
}

// LanguageModel is the summarization and filename-derivation backend.
type LanguageModel interface {
	ListModels(ctx context.Context) ([]string, error)
	ValidateModel(ctx context.Context, modelID string) (ModelValidation, error)
	Summarize(ctx context.Context, text string, sel LmSelection) (string, error)
	Filename(ctx context.Context, text, url string, sel LmSelection) (string, error)
}

// JobStore is the durable source of truth for jobs, items and events.
// Implementations serialize all access behind a single write discipline
// and commit each mutating call before returning.
type JobStore interface {
	CreateJob(ctx context.Context, chatID string, urls []string) (jobID string, itemIDs []string, err error)
	GetJob(ctx context.Context, jobID string) (*Job, error)
	GetJobItems(ctx context.Context, jobID string) ([]JobItem, error)
	GetJobItem(ctx context.Context, jobID, itemID string) (*JobItem, error)
	UpdateJobStatus(ctx context.Context, jobID, status string, errorMessage *string) error
	UpdateItemStatus(ctx context.Context, itemID, status string, errorMessage *string) error
	SetItemResult(ctx context.Context, itemID, summary, filename string, artifact ArtifactMeta) error
	ClearItemArtifact(ctx context.Context, itemID string) error
	MarkCancelled(ctx context.Context, jobID string) error
	IsCancelled(ctx context.Context, jobID string) (bool, error)
	AddEvent(ctx context.Context, jobID, level, message string, itemID *string) error
	GetEvents(ctx context.Context, jobID string) ([]JobEvent, error)
	Healthcheck(ctx context.Context) error
}
