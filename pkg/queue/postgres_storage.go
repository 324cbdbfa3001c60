package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage implements all queue repository interfaces on top of a
// pgx connection pool. Claim exclusivity relies on a conditional UPDATE with
// FOR UPDATE SKIP LOCKED, so any number of workers can poll concurrently
// without double-processing. Schema lives in the migrations directory.
type PostgresStorage struct {
	pool    *pgxpool.Pool
	backoff BackoffStrategy
}

// PostgresStorageOption configures a PostgresStorage
type PostgresStorageOption func(*PostgresStorage)

// WithPostgresBackoff sets the backoff strategy applied to failed tasks
func WithPostgresBackoff(s BackoffStrategy) PostgresStorageOption {
	return func(ps *PostgresStorage) {
		if s != nil {
			ps.backoff = s
		}
	}
}

// NewPostgresStorage creates a Postgres-backed queue storage
func NewPostgresStorage(pool *pgxpool.Pool, opts ...PostgresStorageOption) (*PostgresStorage, error) {
	if pool == nil {
		return nil, errors.New("pool cannot be nil")
	}

	ps := &PostgresStorage{
		pool:    pool,
		backoff: DefaultBackoffStrategy(),
	}

	for _, opt := range opts {
		opt(ps)
	}

	return ps, nil
}

const taskColumns = `id, queue, task_type, task_name, payload, status, priority,
	retry_count, max_retries, scheduled_at, started_at, completed_at,
	locked_until, locked_by, error, result, created_at`

func scanTask(row pgx.Row) (*Task, error) {
	var (
		t        Task
		payload  []byte
		result   []byte
		lockedBy uuid.NullUUID
	)

	err := row.Scan(
		&t.ID, &t.Queue, &t.TaskType, &t.TaskName, &payload, &t.Status, &t.Priority,
		&t.RetryCount, &t.MaxRetries, &t.ScheduledAt, &t.StartedAt, &t.CompletedAt,
		&t.LockedUntil, &lockedBy, &t.Error, &result, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Payload = payload
	t.Result = result
	if lockedBy.Valid {
		t.LockedBy = &lockedBy.UUID
	}

	return &t, nil
}

// CreateTask implements EnqueuerRepository and SchedulerRepository
func (ps *PostgresStorage) CreateTask(ctx context.Context, task *Task) error {
	if task == nil {
		return errors.New("task cannot be nil")
	}

	_, err := ps.pool.Exec(ctx, `
		INSERT INTO tasks (id, queue, task_type, task_name, payload, status, priority,
			retry_count, max_retries, scheduled_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		task.ID, task.Queue, task.TaskType, task.TaskName, []byte(task.Payload),
		task.Status, task.Priority, task.RetryCount, task.MaxRetries,
		task.ScheduledAt, task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task %s: %w", task.ID, err)
	}

	return nil
}

// ClaimTask implements WorkerRepository.
// The inner SELECT with FOR UPDATE SKIP LOCKED guarantees that concurrent
// workers never pick the same row; losers simply see no eligible task.
func (ps *PostgresStorage) ClaimTask(ctx context.Context, workerID uuid.UUID, queues []string, lockDuration time.Duration) (*Task, error) {
	now := time.Now()
	lockUntil := now.Add(lockDuration)

	row := ps.pool.QueryRow(ctx, `
		WITH next_task AS (
			SELECT id FROM tasks
			WHERE status = 'pending'
			  AND scheduled_at <= now()
			  AND queue = ANY($1)
			ORDER BY priority DESC, scheduled_at ASC, id ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		UPDATE tasks t SET
			status = 'processing',
			started_at = $2,
			locked_until = $3,
			locked_by = $4
		FROM next_task
		WHERE t.id = next_task.id
		RETURNING `+taskColumnsPrefixed("t."),
		queues, now, lockUntil, workerID,
	)

	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoTaskToClaim
		}
		return nil, fmt.Errorf("failed to claim task: %w", err)
	}

	return task, nil
}

// CompleteTask implements WorkerRepository
func (ps *PostgresStorage) CompleteTask(ctx context.Context, taskID uuid.UUID, result json.RawMessage) error {
	tag, err := ps.pool.Exec(ctx, `
		UPDATE tasks SET
			status = 'completed',
			completed_at = now(),
			result = $2,
			locked_until = NULL,
			locked_by = NULL
		WHERE id = $1 AND status = 'processing'`,
		taskID, []byte(result),
	)
	if err != nil {
		return fmt.Errorf("failed to complete task %s: %w", taskID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotProcessing, taskID)
	}

	return nil
}

// FailTask implements WorkerRepository
func (ps *PostgresStorage) FailTask(ctx context.Context, taskID uuid.UUID, errorMsg string) (bool, error) {
	tx, err := ps.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var retryCount, maxRetries int8
	err = tx.QueryRow(ctx,
		`SELECT retry_count, max_retries FROM tasks WHERE id = $1 AND status = 'processing' FOR UPDATE`,
		taskID,
	).Scan(&retryCount, &maxRetries)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("%w: %s", ErrTaskNotProcessing, taskID)
		}
		return false, fmt.Errorf("failed to lock task %s: %w", taskID, err)
	}

	retryCount++
	exhausted := retryCount >= maxRetries

	if exhausted {
		_, err = tx.Exec(ctx, `
			UPDATE tasks SET
				status = 'failed',
				retry_count = $2,
				error = $3,
				locked_until = NULL,
				locked_by = NULL
			WHERE id = $1`,
			taskID, retryCount, errorMsg,
		)
	} else {
		// Backoff is added to the current time, so scheduled_at only moves forward
		_, err = tx.Exec(ctx, `
			UPDATE tasks SET
				status = 'pending',
				retry_count = $2,
				error = $3,
				scheduled_at = now() + $4,
				locked_until = NULL,
				locked_by = NULL
			WHERE id = $1`,
			taskID, retryCount, errorMsg, ps.backoff.NextInterval(int(retryCount)),
		)
	}
	if err != nil {
		return false, fmt.Errorf("failed to update failed task %s: %w", taskID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit task failure %s: %w", taskID, err)
	}

	return exhausted, nil
}

// MoveToDLQ implements WorkerRepository.
// The task row is marked failed and kept; the unique index on
// tasks_dlq.task_id makes the operation idempotent so retry exhaustion
// produces exactly one dead letter entry.
func (ps *PostgresStorage) MoveToDLQ(ctx context.Context, taskID uuid.UUID, stage FailureStage) error {
	tx, err := ps.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	task, err := scanTask(tx.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, taskID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		return fmt.Errorf("failed to lock task %s: %w", taskID, err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE tasks SET status = 'failed', locked_until = NULL, locked_by = NULL
		WHERE id = $1`, taskID)
	if err != nil {
		return fmt.Errorf("failed to mark task %s failed: %w", taskID, err)
	}

	errMsg := ""
	if task.Error != nil {
		errMsg = *task.Error
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO tasks_dlq (id, task_id, queue, task_type, task_name, payload,
			priority, error, failure_stage, retry_count, max_retries, status,
			failed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now())
		ON CONFLICT (task_id) DO NOTHING`,
		uuid.New(), task.ID, task.Queue, task.TaskType, task.TaskName,
		[]byte(task.Payload), task.Priority, errMsg, stage,
		task.RetryCount, task.MaxRetries, DeadLetterStatusPending,
	)
	if err != nil {
		return errors.Join(ErrFailedToMoveToDLQ, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit DLQ move for task %s: %w", taskID, err)
	}

	return nil
}

// ReleaseExpiredLocks implements WorkerRepository
func (ps *PostgresStorage) ReleaseExpiredLocks(ctx context.Context) (int, error) {
	tag, err := ps.pool.Exec(ctx, `
		UPDATE tasks SET
			status = 'pending',
			locked_until = NULL,
			locked_by = NULL
		WHERE status = 'processing' AND locked_until < now()`)
	if err != nil {
		return 0, fmt.Errorf("failed to release expired locks: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// GetPendingTaskByName implements SchedulerRepository
func (ps *PostgresStorage) GetPendingTaskByName(ctx context.Context, taskName string) (*Task, error) {
	task, err := scanTask(ps.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE status = 'pending' AND task_name = $1 LIMIT 1`,
		taskName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to query pending task %q: %w", taskName, err)
	}

	return task, nil
}

// ListTasks implements QueryRepository
func (ps *PostgresStorage) ListTasks(ctx context.Context, filter TaskFilter, limit, offset int) ([]Task, error) {
	where, args := buildTaskFilter(filter)
	args = append(args, limit, offset)

	query := fmt.Sprintf(
		`SELECT %s FROM tasks %s ORDER BY created_at ASC, id ASC LIMIT $%d OFFSET $%d`,
		taskColumns, where, len(args)-1, len(args),
	)

	rows, err := ps.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}

	return tasks, rows.Err()
}

// CountTasks implements QueryRepository
func (ps *PostgresStorage) CountTasks(ctx context.Context, filter TaskFilter) (int, error) {
	where, args := buildTaskFilter(filter)

	var count int
	err := ps.pool.QueryRow(ctx, `SELECT count(*) FROM tasks `+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	return count, nil
}

// ListDeadLetters implements DLQRepository
func (ps *PostgresStorage) ListDeadLetters(ctx context.Context, limit, offset int) ([]DeadLetter, int, error) {
	var total int
	if err := ps.pool.QueryRow(ctx, `SELECT count(*) FROM tasks_dlq`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count dead letters: %w", err)
	}

	rows, err := ps.pool.Query(ctx, `
		SELECT `+dlqColumns+`
		FROM tasks_dlq
		ORDER BY failed_at DESC, id ASC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list dead letters: %w", err)
	}
	defer rows.Close()

	var entries []DeadLetter
	for rows.Next() {
		entry, err := scanDeadLetter(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan dead letter: %w", err)
		}
		entries = append(entries, *entry)
	}

	return entries, total, rows.Err()
}

// GetDeadLetter implements DLQRepository
func (ps *PostgresStorage) GetDeadLetter(ctx context.Context, id uuid.UUID) (*DeadLetter, error) {
	entry, err := scanDeadLetter(ps.pool.QueryRow(ctx,
		`SELECT `+dlqColumns+` FROM tasks_dlq WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrDeadLetterNotFound, id)
		}
		return nil, fmt.Errorf("failed to query dead letter %s: %w", id, err)
	}

	return entry, nil
}

// MarkDeadLetterResolved implements DLQRepository
func (ps *PostgresStorage) MarkDeadLetterResolved(ctx context.Context, id uuid.UUID, resolvedBy string) error {
	tag, err := ps.pool.Exec(ctx, `
		UPDATE tasks_dlq SET
			status = $2,
			resolved_at = now(),
			resolved_by = $3
		WHERE id = $1`,
		id, DeadLetterStatusResolved, resolvedBy)
	if err != nil {
		return fmt.Errorf("failed to resolve dead letter %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrDeadLetterNotFound, id)
	}

	return nil
}

// MarkDeadLetterRetrying implements DLQRepository
func (ps *PostgresStorage) MarkDeadLetterRetrying(ctx context.Context, id uuid.UUID, resolvedBy string, nextRetryAt time.Time) error {
	tag, err := ps.pool.Exec(ctx, `
		UPDATE tasks_dlq SET
			status = $2,
			retry_count = 0,
			next_retry_at = $3,
			resolved_by = $4
		WHERE id = $1`,
		id, DeadLetterStatusRetrying, nextRetryAt, resolvedBy)
	if err != nil {
		return fmt.Errorf("failed to mark dead letter %s retrying: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrDeadLetterNotFound, id)
	}

	return nil
}

// Helpers

const dlqColumns = `id, task_id, queue, task_type, task_name, payload, priority,
	error, failure_stage, retry_count, max_retries, next_retry_at, status,
	failed_at, resolved_at, resolved_by, created_at`

func scanDeadLetter(row pgx.Row) (*DeadLetter, error) {
	var (
		e       DeadLetter
		payload []byte
	)

	err := row.Scan(
		&e.ID, &e.TaskID, &e.Queue, &e.TaskType, &e.TaskName, &payload, &e.Priority,
		&e.Error, &e.FailureStage, &e.RetryCount, &e.MaxRetries, &e.NextRetryAt,
		&e.Status, &e.FailedAt, &e.ResolvedAt, &e.ResolvedBy, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Payload = payload
	return &e, nil
}

func buildTaskFilter(filter TaskFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Queue != "" {
		args = append(args, filter.Queue)
		conds = append(conds, fmt.Sprintf("queue = $%d", len(args)))
	}
	if filter.TaskName != "" {
		args = append(args, filter.TaskName)
		conds = append(conds, fmt.Sprintf("task_name = $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func taskColumnsPrefixed(prefix string) string {
	cols := strings.Split(taskColumns, ",")
	for i, c := range cols {
		cols[i] = prefix + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}
