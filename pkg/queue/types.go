package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DefaultQueueName is the default queue name used when no queue is specified
const DefaultQueueName = "default"

// TaskType represents the type of task
type TaskType string

const (
	TaskTypeOneTime  TaskType = "one-time"
	TaskTypePeriodic TaskType = "periodic"
)

// TaskStatus represents the status of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Priority represents task priority (0-100, higher is more important)
// Using int8 provides sufficient range while keeping memory footprint minimal
type Priority int8

// Priority constants
const (
	PriorityMin     Priority = 0
	PriorityLow     Priority = 25
	PriorityMedium  Priority = 50
	PriorityHigh    Priority = 75
	PriorityMax     Priority = 100
	PriorityDefault Priority = PriorityMedium
)

// Valid checks if the priority is within valid range
func (p Priority) Valid() bool {
	return p >= PriorityMin && p <= PriorityMax
}

// Task represents a unit of deferred work in the queue.
// A task is created pending, claimed exclusively by one worker, and ends up
// either completed or failed. Failed executions reschedule the task with
// backoff until MaxRetries is exhausted.
type Task struct {
	ID          uuid.UUID       `json:"id"`
	Queue       string          `json:"queue"`
	TaskType    TaskType        `json:"task_type"`
	TaskName    string          `json:"task_name"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Status      TaskStatus      `json:"status"`
	Priority    Priority        `json:"priority"`
	RetryCount  int8            `json:"retry_count"`
	MaxRetries  int8            `json:"max_retries"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	LockedUntil *time.Time      `json:"locked_until,omitempty"`
	LockedBy    *uuid.UUID      `json:"locked_by,omitempty"`
	Error       *string         `json:"error,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// FailureStage records where in the pipeline a dead-lettered task failed
type FailureStage string

const (
	FailureStageHandler        FailureStage = "handler"
	FailureStageNoHandler      FailureStage = "no_handler"
	FailureStageRetryExhausted FailureStage = "retry_exhausted"
)

// DeadLetterStatus represents the triage state of a dead letter entry
type DeadLetterStatus string

const (
	DeadLetterStatusPending  DeadLetterStatus = "pending"
	DeadLetterStatusRetrying DeadLetterStatus = "retrying"
	DeadLetterStatusResolved DeadLetterStatus = "resolved"
	DeadLetterStatusDead     DeadLetterStatus = "dead"
)

// DeadLetter represents a task in the dead letter queue.
// Stores failed tasks that exhausted all retries (or had no registered
// handler) for manual inspection and recovery. Entries are never purged
// automatically; resurrection happens only through the audited DLQ service.
type DeadLetter struct {
	ID           uuid.UUID        `json:"id"`
	TaskID       uuid.UUID        `json:"task_id"`
	Queue        string           `json:"queue"`
	TaskType     TaskType         `json:"task_type"`
	TaskName     string           `json:"task_name"`
	Payload      json.RawMessage  `json:"payload,omitempty"`
	Priority     Priority         `json:"priority"`
	Error        string           `json:"error"`
	FailureStage FailureStage     `json:"failure_stage"`
	RetryCount   int8             `json:"retry_count"`
	MaxRetries   int8             `json:"max_retries"`
	NextRetryAt  *time.Time       `json:"next_retry_at,omitempty"`
	Status       DeadLetterStatus `json:"status"`
	FailedAt     time.Time        `json:"failed_at"`
	ResolvedAt   *time.Time       `json:"resolved_at,omitempty"`
	ResolvedBy   *string          `json:"resolved_by,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// TaskFilter narrows task introspection queries. Zero-value fields match everything.
type TaskFilter struct {
	Status   TaskStatus
	Queue    string
	TaskName string
}
