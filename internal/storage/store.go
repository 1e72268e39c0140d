package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/alexcherry/audiocast/internal/domain"
)

// Store handles all database operations for jobs, job items and job events.
// Every call is serialized through one process-wide mutex so concurrent item
// workers never race on the same rows, and every mutating call has committed
// by the time it returns.
type Store struct {
	db     *sqlx.DB
	mu     sync.Mutex
	logger *slog.Logger
}

// NewStore creates a new Store instance.
func NewStore(db *sqlx.DB, logger *slog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
	}
}

// InitSchema creates the jobs, job_items and job_events tables and their
// secondary indexes. Safe to call on every startup.
func (s *Store) InitSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			chat_id TEXT NOT NULL,
			status TEXT NOT NULL,
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS job_items (
			id TEXT PRIMARY KEY,
			job_id TEXT NOT NULL REFERENCES jobs(id),
			url TEXT NOT NULL,
			status TEXT NOT NULL,
			summary TEXT,
			filename TEXT,
			artifact_path TEXT,
			artifact_kind TEXT,
			mime_type TEXT,
			size_bytes BIGINT,
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS job_events (
			id TEXT PRIMARY KEY,
			job_id TEXT NOT NULL REFERENCES jobs(id),
			item_id TEXT REFERENCES job_items(id),
			level TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_job_items_job_id ON job_items(job_id)`,
		`CREATE INDEX IF NOT EXISTS idx_job_items_status ON job_items(status)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}

	s.logger.Info("Database schema initialized")
	return nil
}

// CreateJob inserts one queued job plus one queued item per URL in a single
// transaction. Item order matches input order.
func (s *Store) CreateJob(ctx context.Context, chatID string, urls []string) (string, []string, error) {
	if len(urls) == 0 {
		return "", nil, fmt.Errorf("create job requires at least one url")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	jobID := uuid.New().String()
	itemIDs := make([]string, len(urls))

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO jobs (id, chat_id, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		jobID, chatID, domain.JobStatusQueued, now, now,
	)
	if err != nil {
		return "", nil, fmt.Errorf("failed to insert job: %w", err)
	}

	for i, url := range urls {
		itemIDs[i] = uuid.New().String()
		// Nudge created_at per item so creation order survives the
		// ORDER BY created_at read path.
		itemCreated := now.Add(time.Duration(i) * time.Microsecond)
		_, err = tx.ExecContext(ctx,
			`INSERT INTO job_items (id, job_id, url, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
			itemIDs[i], jobID, url, domain.ItemStatusQueued, itemCreated, itemCreated,
		)
		if err != nil {
			return "", nil, fmt.Errorf("failed to insert job item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", nil, fmt.Errorf("failed to commit job creation: %w", err)
	}

	s.logger.Info("Job created",
		slog.String("job_id", jobID),
		slog.Int("url_count", len(urls)),
	)

	return jobID, itemIDs, nil
}

// GetJob retrieves a job by its ID.
func (s *Store) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var job domain.Job
	err := s.db.GetContext(ctx, &job, `SELECT * FROM jobs WHERE id = $1`, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// GetJobItems returns a job's items in creation (input) order.
func (s *Store) GetJobItems(ctx context.Context, jobID string) ([]domain.JobItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []domain.JobItem
	err := s.db.SelectContext(ctx, &items,
		`SELECT * FROM job_items WHERE job_id = $1 ORDER BY created_at ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get job items: %w", err)
	}
	return items, nil
}

// GetJobItem retrieves one item scoped to its parent job.
func (s *Store) GetJobItem(ctx context.Context, jobID, itemID string) (*domain.JobItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var item domain.JobItem
	err := s.db.GetContext(ctx, &item,
		`SELECT * FROM job_items WHERE id = $1 AND job_id = $2`, itemID, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get job item: %w", err)
	}
	return &item, nil
}

// UpdateJobStatus writes a job's status and error message. Passing a nil
// error message clears any previous one. Terminal rows never transition
// again: a write against one is a silent no-op, so a worker racing a
// concurrent cancellation cannot revert the job.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID, status string, errorMessage *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs
		 SET status = $1, error_message = $2, updated_at = $3
		 WHERE id = $4 AND status NOT IN ($5, $6, $7, $8)`,
		status, errorMessage, time.Now().UTC(), jobID,
		domain.JobStatusCompleted, domain.JobStatusPartialFailed,
		domain.JobStatusFailed, domain.JobStatusCancelled,
	)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		s.logger.Debug("Job status write skipped, row already terminal",
			slog.String("job_id", jobID),
			slog.String("status", status),
		)
		return nil
	}

	s.logger.Debug("Job status updated",
		slog.String("job_id", jobID),
		slog.String("status", status),
	)
	return nil
}

// UpdateItemStatus writes an item's status and error message. Like
// UpdateJobStatus, writes against terminal rows are silent no-ops.
func (s *Store) UpdateItemStatus(ctx context.Context, itemID, status string, errorMessage *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE job_items
		 SET status = $1, error_message = $2, updated_at = $3
		 WHERE id = $4 AND status NOT IN ($5, $6, $7)`,
		status, errorMessage, time.Now().UTC(), itemID,
		domain.ItemStatusCompleted, domain.ItemStatusFailed, domain.ItemStatusCancelled,
	)
	if err != nil {
		return fmt.Errorf("failed to update item status: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		s.logger.Debug("Item status write skipped, row already terminal",
			slog.String("item_id", itemID),
			slog.String("status", status),
		)
		return nil
	}

	s.logger.Debug("Item status updated",
		slog.String("item_id", itemID),
		slog.String("status", status),
	)
	return nil
}

// SetItemResult marks an item completed and stores its summary, filename and
// artifact metadata atomically, clearing any prior error. Only a processing
// item can complete: a late result arriving after a concurrent MarkCancelled
// already flipped the row is dropped, never un-cancelling it.
func (s *Store) SetItemResult(ctx context.Context, itemID, summary, filename string, artifact domain.ArtifactMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE job_items
		 SET status = $1,
		     summary = $2,
		     filename = $3,
		     artifact_path = $4,
		     artifact_kind = $5,
		     mime_type = $6,
		     size_bytes = $7,
		     error_message = NULL,
		     updated_at = $8
		 WHERE id = $9 AND status = $10`,
		domain.ItemStatusCompleted, summary, filename,
		artifact.Path, artifact.Kind, artifact.MimeType, artifact.SizeBytes,
		time.Now().UTC(), itemID, domain.ItemStatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("failed to set item result: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		s.logger.Debug("Item result dropped, row no longer processing",
			slog.String("item_id", itemID),
		)
	}
	return nil
}

// ClearItemArtifact nulls the artifact path after delivery acknowledgment.
// Summary, filename and status are untouched.
func (s *Store) ClearItemArtifact(ctx context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE job_items SET artifact_path = NULL, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), itemID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear item artifact: %w", err)
	}
	return nil
}

// MarkCancelled flips the job and all of its non-terminal items to cancelled
// in one transaction, so readers observe the new state before in-flight work
// notices. Terminal items are left untouched.
func (s *Store) MarkCancelled(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`UPDATE jobs SET status = $1, updated_at = $2 WHERE id = $3`,
		domain.JobStatusCancelled, now, jobID,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel job: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE job_items
		 SET status = $1, updated_at = $2
		 WHERE job_id = $3 AND status IN ($4, $5)`,
		domain.ItemStatusCancelled, now, jobID,
		domain.ItemStatusQueued, domain.ItemStatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel job items: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cancellation: %w", err)
	}

	s.logger.Info("Job marked cancelled",
		slog.String("job_id", jobID),
	)
	return nil
}

// IsCancelled is the cooperative cancellation check used by item workers
// between processing phases.
func (s *Store) IsCancelled(ctx context.Context, jobID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var status string
	err := s.db.GetContext(ctx, &status, `SELECT status FROM jobs WHERE id = $1`, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, domain.ErrJobNotFound
		}
		return false, fmt.Errorf("failed to read job status: %w", err)
	}
	return status == domain.JobStatusCancelled, nil
}

// AddEvent appends one audit trail entry. Events are never updated or
// deleted.
func (s *Store) AddEvent(ctx context.Context, jobID, level, message string, itemID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO job_events (id, job_id, item_id, level, message, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(), jobID, itemID, level, message, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to add event: %w", err)
	}
	return nil
}

// GetEvents returns a job's audit trail in append order.
func (s *Store) GetEvents(ctx context.Context, jobID string) ([]domain.JobEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []domain.JobEvent
	err := s.db.SelectContext(ctx, &events,
		`SELECT * FROM job_events WHERE job_id = $1 ORDER BY created_at ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	return events, nil
}

// Healthcheck confirms the store is reachable.
func (s *Store) Healthcheck(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var one int
	if err := s.db.GetContext(ctx, &one, `SELECT 1`); err != nil {
		return fmt.Errorf("store healthcheck failed: %w", err)
	}
	return nil
}
