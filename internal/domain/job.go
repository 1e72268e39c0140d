package domain

import "time"

// Job status constants
const (
	JobStatusQueued        = "queued"
	JobStatusProcessing    = "processing"
	JobStatusCompleted     = "completed"
	JobStatusPartialFailed = "partial_failed"
	JobStatusFailed        = "failed"
	JobStatusCancelled     = "cancelled"
)

// Item status constants
const (
	ItemStatusQueued     = "queued"
	ItemStatusProcessing = "processing"
	ItemStatusCompleted  = "completed"
	ItemStatusFailed     = "failed"
	ItemStatusCancelled  = "cancelled"
)

// Event severity levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Artifact kind constants. "voice" artifacts fit the voice size cap,
// oversized audio is delivered as a "document".
const (
	ArtifactKindVoice    = "voice"
	ArtifactKindDocument = "document"
)

// IsTerminalJobStatus reports whether a job has reached a terminal
// status and can no longer transition.
func IsTerminalJobStatus(status string) bool {
	switch status {
	case JobStatusCompleted, JobStatusPartialFailed, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// IsTerminalItemStatus reports whether an item has reached a terminal
// status and can no longer transition.
func IsTerminalItemStatus(status string) bool {
	switch status {
	case ItemStatusCompleted, ItemStatusFailed, ItemStatusCancelled:
		return true
	}
	return false
}

// Job is one user-submitted batch of URLs processed together.
type Job struct {
	ID           string    `db:"id"`
	ChatID       string    `db:"chat_id"`
	Status       string    `db:"status"`
	ErrorMessage *string   `db:"error_message"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// JobItem is the per-URL unit of work within a job.
type JobItem struct {
	ID           string    `db:"id"`
	JobID        string    `db:"job_id"`
	URL          string    `db:"url"`
	Status       string    `db:"status"`
	Summary      *string   `db:"summary"`
	Filename     *string   `db:"filename"`
	ArtifactPath *string   `db:"artifact_path"`
	ArtifactKind *string   `db:"artifact_kind"`
	MimeType     *string   `db:"mime_type"`
	SizeBytes    *int64    `db:"size_bytes"`
	ErrorMessage *string   `db:"error_message"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// JobEvent is one append-only audit trail entry. Events are observability
// only and never drive control decisions.
type JobEvent struct {
	ID        string    `db:"id"`
	JobID     string    `db:"job_id"`
	ItemID    *string   `db:"item_id"`
	Level     string    `db:"level"`
	Message   string    `db:"message"`
	CreatedAt time.Time `db:"created_at"`
}

// SpeechSelection names the synthesis model, voice preset and speed factor
// chosen for a job. Immutable, passed by value at submission.
type SpeechSelection struct {
	ModelID string
	Voice   string
	Speed   float64
}

// LmSelection names the language models used for summarization and
// filename derivation.
type LmSelection struct {
	SummaryModelID  string
	FilenameModelID string
}

// ArtifactMeta describes a synthesized audio file on disk.
type ArtifactMeta struct {
	Path      string
	Kind      string
	MimeType  string
	SizeBytes int64
}

// Article is the extracted content of one source URL.
type Article struct {
	URL     string
	Content string
	Title   string
}
