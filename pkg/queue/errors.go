package queue

import "errors"

// Common errors
var (
	// ErrRepositoryNil is returned when a nil repository is provided
	ErrRepositoryNil = errors.New("repository cannot be nil")

	// ErrPayloadNil is returned when attempting to enqueue a nil payload
	ErrPayloadNil = errors.New("payload cannot be nil")

	// ErrInvalidPriority is returned when priority is outside valid range
	ErrInvalidPriority = errors.New("priority must be between 0 and 100")

	// ErrHandlerNotFound is returned when no handler is registered for a task
	ErrHandlerNotFound = errors.New("no handler registered for task type")

	// ErrNoHandlers is returned when worker has no handlers registered
	ErrNoHandlers = errors.New("no task handlers registered")

	// ErrNoTaskToClaim is returned when no eligible task is available to claim
	ErrNoTaskToClaim = errors.New("no task to claim")

	// ErrTaskNotFound is returned when a task does not exist in storage
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskNotProcessing is returned when a state transition requires a
	// processing task but the task is in another state
	ErrTaskNotProcessing = errors.New("task is not in processing state")

	// ErrTaskAlreadyRegistered is returned when trying to register a duplicate task
	ErrTaskAlreadyRegistered = errors.New("task already registered")

	// ErrSchedulerNotConfigured is returned when scheduler has no tasks
	ErrSchedulerNotConfigured = errors.New("scheduler has no registered tasks")

	// ErrDeadLetterNotFound is returned when a dead letter entry does not exist
	ErrDeadLetterNotFound = errors.New("dead letter entry not found")

	// ErrDeadLetterResolved is returned when retrying an already resolved entry
	ErrDeadLetterResolved = errors.New("dead letter entry already resolved")

	// ErrFailedToMoveToDLQ is returned when moving task to DLQ fails
	ErrFailedToMoveToDLQ = errors.New("failed to move task to dead letter queue")
)
