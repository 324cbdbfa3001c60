package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DLQRepository defines the interface for dead letter queue operations
type DLQRepository interface {
	// ListDeadLetters returns a page of entries and the total count
	ListDeadLetters(ctx context.Context, limit, offset int) ([]DeadLetter, int, error)

	// GetDeadLetter returns a single entry by ID
	GetDeadLetter(ctx context.Context, id uuid.UUID) (*DeadLetter, error)

	// MarkDeadLetterResolved closes an entry without re-running it
	MarkDeadLetterResolved(ctx context.Context, id uuid.UUID, resolvedBy string) error

	// MarkDeadLetterRetrying records that an entry was resurrected: resets the
	// retry count and stamps the next retry time and the resolver identity
	MarkDeadLetterRetrying(ctx context.Context, id uuid.UUID, resolvedBy string, nextRetryAt time.Time) error

	// CreateTask persists the fresh task created by Retry
	CreateTask(ctx context.Context, task *Task) error
}

// DLQ provides triage operations over dead-lettered tasks. Entries are kept
// indefinitely; the only paths out are an explicit Resolve or an explicit,
// audited Retry. There is no automatic purge.
type DLQ struct {
	repo   DLQRepository
	logger *slog.Logger
}

// DLQOption is a functional option for configuring the DLQ service
type DLQOption func(*DLQ)

// WithDLQLogger sets the logger used for audit entries
func WithDLQLogger(logger *slog.Logger) DLQOption {
	return func(d *DLQ) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDLQ creates a new dead letter queue service
func NewDLQ(repo DLQRepository, opts ...DLQOption) (*DLQ, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	d := &DLQ{
		repo:   repo,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// List returns a page of dead letter entries (newest failures first) and the
// total entry count. Page starts at 1; perPage is capped at 100.
func (d *DLQ) List(ctx context.Context, page, perPage int) ([]DeadLetter, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 50
	}
	if perPage > 100 {
		perPage = 100
	}

	return d.repo.ListDeadLetters(ctx, perPage, (page-1)*perPage)
}

// Get returns a single dead letter entry
func (d *DLQ) Get(ctx context.Context, id uuid.UUID) (*DeadLetter, error) {
	return d.repo.GetDeadLetter(ctx, id)
}

// Resolve closes an entry without re-running the task, recording who resolved it
func (d *DLQ) Resolve(ctx context.Context, id uuid.UUID, resolvedBy string) error {
	if err := d.repo.MarkDeadLetterResolved(ctx, id, resolvedBy); err != nil {
		return fmt.Errorf("failed to resolve dead letter %s: %w", id, err)
	}

	d.logger.Info("dead letter resolved",
		slog.String("dead_letter_id", id.String()),
		slog.String("resolved_by", resolvedBy))

	return nil
}

// Retry resurrects a dead-lettered task as a fresh pending task with a reset
// retry count. This is the only path back into dispatch for dead-lettered
// work; it is distinct from the automatic retry path and is audit-logged.
// Returns the ID of the newly created task.
func (d *DLQ) Retry(ctx context.Context, id uuid.UUID, resolvedBy string) (uuid.UUID, error) {
	entry, err := d.repo.GetDeadLetter(ctx, id)
	if err != nil {
		return uuid.Nil, err
	}

	if entry.Status == DeadLetterStatusResolved {
		return uuid.Nil, errors.Join(ErrDeadLetterResolved, fmt.Errorf("dead letter %s", id))
	}

	now := time.Now()
	task := &Task{
		ID:          uuid.New(),
		Queue:       entry.Queue,
		TaskType:    entry.TaskType,
		TaskName:    entry.TaskName,
		Payload:     entry.Payload,
		Status:      TaskStatusPending,
		Priority:    entry.Priority,
		RetryCount:  0,
		MaxRetries:  entry.MaxRetries,
		ScheduledAt: now,
		CreatedAt:   now,
	}

	if err := d.repo.CreateTask(ctx, task); err != nil {
		return uuid.Nil, fmt.Errorf("failed to re-enqueue dead letter %s: %w", id, err)
	}

	if err := d.repo.MarkDeadLetterRetrying(ctx, id, resolvedBy, now); err != nil {
		return uuid.Nil, fmt.Errorf("failed to mark dead letter %s retrying: %w", id, err)
	}

	d.logger.Info("dead letter retried",
		slog.String("dead_letter_id", id.String()),
		slog.String("new_task_id", task.ID.String()),
		slog.String("task_name", entry.TaskName),
		slog.String("resolved_by", resolvedBy))

	return task.ID, nil
}
