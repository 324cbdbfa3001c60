package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage implements all queue repository interfaces for testing and local development
type MemoryStorage struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*Task
	dlq   map[uuid.UUID]*DeadLetter

	// Status index for efficient claim queries
	byStatus map[TaskStatus][]uuid.UUID

	backoff BackoffStrategy
}

// MemoryStorageOption configures a MemoryStorage
type MemoryStorageOption func(*MemoryStorage)

// WithMemoryBackoff sets the backoff strategy applied to failed tasks
func WithMemoryBackoff(s BackoffStrategy) MemoryStorageOption {
	return func(ms *MemoryStorage) {
		if s != nil {
			ms.backoff = s
		}
	}
}

// NewMemoryStorage creates a new in-memory storage implementation.
// Expired claims are not released automatically; the worker's sweep calls
// ReleaseExpiredLocks on its own interval.
func NewMemoryStorage(opts ...MemoryStorageOption) *MemoryStorage {
	ms := &MemoryStorage{
		tasks:    make(map[uuid.UUID]*Task),
		dlq:      make(map[uuid.UUID]*DeadLetter),
		byStatus: make(map[TaskStatus][]uuid.UUID),
		backoff:  DefaultBackoffStrategy(),
	}

	for _, opt := range opts {
		opt(ms)
	}

	return ms
}

// CreateTask implements EnqueuerRepository and SchedulerRepository
func (ms *MemoryStorage) CreateTask(ctx context.Context, task *Task) error {
	if task == nil {
		return errors.New("task cannot be nil")
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	// Check if task already exists
	if _, exists := ms.tasks[task.ID]; exists {
		return fmt.Errorf("task with ID %s already exists", task.ID)
	}

	// Clone task to prevent external modifications
	taskCopy := *task
	ms.tasks[task.ID] = &taskCopy

	// Update index
	ms.byStatus[task.Status] = append(ms.byStatus[task.Status], task.ID)

	return nil
}

// ClaimTask implements WorkerRepository
func (ms *MemoryStorage) ClaimTask(ctx context.Context, workerID uuid.UUID, queues []string, lockDuration time.Duration) (*Task, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	var bestTask *Task

	// Priority-first, oldest-second selection with ID as a deterministic tie-break
	for _, taskID := range ms.byStatus[TaskStatusPending] {
		task := ms.tasks[taskID]

		// Skip tasks not in requested queues
		if !slices.Contains(queues, task.Queue) {
			continue
		}

		// Skip tasks scheduled for future execution (delayed tasks)
		if task.ScheduledAt.After(now) {
			continue
		}

		// Skip tasks still locked by other workers (shouldn't happen in pending status)
		if task.LockedUntil != nil && task.LockedUntil.After(now) {
			continue
		}

		if bestTask == nil || claimOrderLess(task, bestTask) {
			bestTask = task
		}
	}

	if bestTask == nil {
		return nil, ErrNoTaskToClaim
	}

	// Claim the task: exclusive pending -> processing transition
	lockUntil := now.Add(lockDuration)
	bestTask.Status = TaskStatusProcessing
	bestTask.StartedAt = &now
	bestTask.LockedUntil = &lockUntil
	bestTask.LockedBy = &workerID

	// Update status index
	ms.removeFromStatusIndex(bestTask.ID, TaskStatusPending)
	ms.byStatus[TaskStatusProcessing] = append(ms.byStatus[TaskStatusProcessing], bestTask.ID)

	// Return a copy to prevent external modifications
	taskCopy := *bestTask
	return &taskCopy, nil
}

// claimOrderLess reports whether a should be claimed before b:
// priority descending, scheduled time ascending, ID as final tie-break.
func claimOrderLess(a, b *Task) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.ScheduledAt.Equal(b.ScheduledAt) {
		return a.ScheduledAt.Before(b.ScheduledAt)
	}
	return a.ID.String() < b.ID.String()
}

// CompleteTask implements WorkerRepository
func (ms *MemoryStorage) CompleteTask(ctx context.Context, taskID uuid.UUID, result json.RawMessage) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	task, exists := ms.tasks[taskID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	if task.Status != TaskStatusProcessing {
		return fmt.Errorf("%w: %s", ErrTaskNotProcessing, taskID)
	}

	now := time.Now()
	task.Status = TaskStatusCompleted
	task.CompletedAt = &now
	task.Result = result
	task.LockedUntil = nil
	task.LockedBy = nil

	// Update status index
	ms.removeFromStatusIndex(taskID, TaskStatusProcessing)
	ms.byStatus[TaskStatusCompleted] = append(ms.byStatus[TaskStatusCompleted], taskID)

	return nil
}

// FailTask implements WorkerRepository
func (ms *MemoryStorage) FailTask(ctx context.Context, taskID uuid.UUID, errorMsg string) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	task, exists := ms.tasks[taskID]
	if !exists {
		return false, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	if task.Status != TaskStatusProcessing {
		return false, fmt.Errorf("%w: %s", ErrTaskNotProcessing, taskID)
	}

	task.RetryCount++
	task.Error = &errorMsg
	task.LockedUntil = nil
	task.LockedBy = nil

	if task.RetryCount >= task.MaxRetries {
		// Terminal: never re-dispatched by the automatic path
		task.Status = TaskStatusFailed
		ms.removeFromStatusIndex(taskID, TaskStatusProcessing)
		ms.byStatus[TaskStatusFailed] = append(ms.byStatus[TaskStatusFailed], taskID)
		return true, nil
	}

	// Reset to pending for retry with backoff. ScheduledAt only ever moves
	// forward because the delay is added to the current time.
	task.Status = TaskStatusPending
	ms.removeFromStatusIndex(taskID, TaskStatusProcessing)
	ms.byStatus[TaskStatusPending] = append(ms.byStatus[TaskStatusPending], taskID)
	task.ScheduledAt = time.Now().Add(ms.backoff.NextInterval(int(task.RetryCount)))

	return false, nil
}

// MoveToDLQ implements WorkerRepository.
// The originating task is marked failed (terminal) and kept queryable;
// a second call for the same task is a no-op so retry exhaustion produces
// exactly one dead letter entry.
func (ms *MemoryStorage) MoveToDLQ(ctx context.Context, taskID uuid.UUID, stage FailureStage) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	task, exists := ms.tasks[taskID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	for _, entry := range ms.dlq {
		if entry.TaskID == taskID {
			return nil
		}
	}

	if task.Status != TaskStatusFailed {
		ms.removeFromStatusIndex(taskID, task.Status)
		ms.byStatus[TaskStatusFailed] = append(ms.byStatus[TaskStatusFailed], taskID)
		task.Status = TaskStatusFailed
	}
	task.LockedUntil = nil
	task.LockedBy = nil

	now := time.Now()
	entry := &DeadLetter{
		ID:           uuid.New(),
		TaskID:       task.ID,
		Queue:        task.Queue,
		TaskType:     task.TaskType,
		TaskName:     task.TaskName,
		Payload:      task.Payload,
		Priority:     task.Priority,
		FailureStage: stage,
		RetryCount:   task.RetryCount,
		MaxRetries:   task.MaxRetries,
		Status:       DeadLetterStatusPending,
		FailedAt:     now,
		CreatedAt:    now,
	}

	if task.Error != nil {
		entry.Error = *task.Error
	}

	ms.dlq[entry.ID] = entry

	return nil
}

// ReleaseExpiredLocks implements WorkerRepository.
// Resets processing tasks whose claim expired back to pending so they can be
// picked up again. The retry count is preserved to keep failure history.
func (ms *MemoryStorage) ReleaseExpiredLocks(ctx context.Context) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	released := 0
	for _, taskID := range slices.Clone(ms.byStatus[TaskStatusProcessing]) {
		task := ms.tasks[taskID]
		if task.LockedUntil != nil && task.LockedUntil.Before(now) {
			task.Status = TaskStatusPending
			task.LockedUntil = nil
			task.LockedBy = nil

			ms.removeFromStatusIndex(taskID, TaskStatusProcessing)
			ms.byStatus[TaskStatusPending] = append(ms.byStatus[TaskStatusPending], taskID)
			released++
		}
	}

	return released, nil
}

// GetPendingTaskByName implements SchedulerRepository
func (ms *MemoryStorage) GetPendingTaskByName(ctx context.Context, taskName string) (*Task, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	for _, taskID := range ms.byStatus[TaskStatusPending] {
		task := ms.tasks[taskID]
		if task.TaskName == taskName {
			taskCopy := *task
			return &taskCopy, nil
		}
	}

	return nil, ErrTaskNotFound
}

// ListTasks implements QueryRepository. Results are ordered by creation time
// with ID as tie-break for stable pagination.
func (ms *MemoryStorage) ListTasks(ctx context.Context, filter TaskFilter, limit, offset int) ([]Task, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	matched := ms.filterTasks(filter)
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	if offset >= len(matched) {
		return []Task{}, nil
	}
	end := min(offset+limit, len(matched))

	return matched[offset:end], nil
}

// CountTasks implements QueryRepository
func (ms *MemoryStorage) CountTasks(ctx context.Context, filter TaskFilter) (int, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	return len(ms.filterTasks(filter)), nil
}

func (ms *MemoryStorage) filterTasks(filter TaskFilter) []Task {
	var matched []Task
	for _, task := range ms.tasks {
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.Queue != "" && task.Queue != filter.Queue {
			continue
		}
		if filter.TaskName != "" && task.TaskName != filter.TaskName {
			continue
		}
		matched = append(matched, *task)
	}
	return matched
}

// ListDeadLetters implements DLQRepository. Entries are ordered newest-first.
func (ms *MemoryStorage) ListDeadLetters(ctx context.Context, limit, offset int) ([]DeadLetter, int, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	entries := make([]DeadLetter, 0, len(ms.dlq))
	for _, entry := range ms.dlq {
		entries = append(entries, *entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].FailedAt.Equal(entries[j].FailedAt) {
			return entries[i].FailedAt.After(entries[j].FailedAt)
		}
		return entries[i].ID.String() < entries[j].ID.String()
	})

	total := len(entries)
	if offset >= total {
		return []DeadLetter{}, total, nil
	}
	end := min(offset+limit, total)

	return entries[offset:end], total, nil
}

// GetDeadLetter implements DLQRepository
func (ms *MemoryStorage) GetDeadLetter(ctx context.Context, id uuid.UUID) (*DeadLetter, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	entry, exists := ms.dlq[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrDeadLetterNotFound, id)
	}

	entryCopy := *entry
	return &entryCopy, nil
}

// MarkDeadLetterResolved implements DLQRepository
func (ms *MemoryStorage) MarkDeadLetterResolved(ctx context.Context, id uuid.UUID, resolvedBy string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry, exists := ms.dlq[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrDeadLetterNotFound, id)
	}

	now := time.Now()
	entry.Status = DeadLetterStatusResolved
	entry.ResolvedAt = &now
	entry.ResolvedBy = &resolvedBy

	return nil
}

// MarkDeadLetterRetrying implements DLQRepository
func (ms *MemoryStorage) MarkDeadLetterRetrying(ctx context.Context, id uuid.UUID, resolvedBy string, nextRetryAt time.Time) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry, exists := ms.dlq[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrDeadLetterNotFound, id)
	}

	entry.Status = DeadLetterStatusRetrying
	entry.RetryCount = 0
	entry.NextRetryAt = &nextRetryAt
	entry.ResolvedBy = &resolvedBy

	return nil
}

// Helper methods

func (ms *MemoryStorage) removeFromStatusIndex(taskID uuid.UUID, status TaskStatus) {
	ms.byStatus[status] = slices.DeleteFunc(ms.byStatus[status], func(id uuid.UUID) bool {
		return id == taskID
	})
}
