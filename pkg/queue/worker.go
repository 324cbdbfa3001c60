package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// WorkerRepository defines the interface for worker operations
type WorkerRepository interface {
	// ClaimTask atomically claims the next eligible task. The claim is an
	// exclusive conditional transition from pending to processing: two
	// concurrent workers can never both claim the same task.
	ClaimTask(ctx context.Context, workerID uuid.UUID, queues []string, lockDuration time.Duration) (*Task, error)

	// CompleteTask marks task as completed and stores the handler result
	CompleteTask(ctx context.Context, taskID uuid.UUID, result json.RawMessage) error

	// FailTask records the error, increments the retry count and reschedules
	// the task with backoff. Returns exhausted=true when the task has used up
	// all retries and was marked failed (terminal).
	FailTask(ctx context.Context, taskID uuid.UUID, errorMsg string) (exhausted bool, err error)

	// MoveToDLQ moves task to the dead letter queue, recording the failure stage
	MoveToDLQ(ctx context.Context, taskID uuid.UUID, stage FailureStage) error

	// ReleaseExpiredLocks resets processing tasks whose claim expired back to
	// pending, so work claimed by a crashed worker is eventually recovered.
	// Returns the number of released tasks.
	ReleaseExpiredLocks(ctx context.Context) (int, error)
}

// Worker processes tasks from the queue
type Worker struct {
	repo     WorkerRepository
	handlers map[string]Handler
	queues   []string
	workerID uuid.UUID
	sem      chan struct{}
	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopMu   sync.Mutex // Protects stopping state and WaitGroup operations

	// Configuration
	pullInterval  time.Duration
	lockTimeout   time.Duration
	sweepInterval time.Duration
	logger        *slog.Logger

	// State management
	ctx      context.Context
	cancel   context.CancelFunc
	stopping atomic.Bool
}

// NewWorker creates a new task worker
func NewWorker(repo WorkerRepository, opts ...WorkerOption) (*Worker, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	// Default options
	options := &workerOptions{
		queues:             []string{DefaultQueueName},
		pullInterval:       5 * time.Second,
		lockTimeout:        5 * time.Minute,
		sweepInterval:      30 * time.Second,
		maxConcurrentTasks: 1,
		logger:             slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		opt(options)
	}

	return &Worker{
		repo:          repo,
		handlers:      make(map[string]Handler),
		queues:        options.queues,
		workerID:      uuid.New(),
		sem:           make(chan struct{}, options.maxConcurrentTasks),
		pullInterval:  options.pullInterval,
		lockTimeout:   options.lockTimeout,
		sweepInterval: options.sweepInterval,
		logger:        options.logger,
	}, nil
}

// RegisterHandler registers a single task handler
func (w *Worker) RegisterHandler(handler Handler) error {
	if handler == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.handlers[handler.Name()] = handler
	return nil
}

// RegisterHandlers registers multiple task handlers
func (w *Worker) RegisterHandlers(handlers ...Handler) error {
	for _, h := range handlers {
		if err := w.RegisterHandler(h); err != nil {
			return err
		}
	}
	return nil
}

// Start begins processing tasks in the background
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return fmt.Errorf("worker already started")
	}

	if len(w.handlers) == 0 {
		w.mu.Unlock()
		return ErrNoHandlers
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	// Reset stopping flag
	w.stopping.Store(false)

	// Start the main processing loop and the stuck-task sweep
	go w.run()
	go w.sweep()

	w.logger.Info("worker started",
		slog.String("worker_id", w.workerID.String()),
		slog.Any("queues", w.queues),
		slog.Int("max_concurrent", cap(w.sem)))

	return nil
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return fmt.Errorf("worker not started")
	}

	// Use stopMu to synchronize with run() goroutine
	w.stopMu.Lock()
	w.stopping.Store(true)
	w.stopMu.Unlock()

	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	// Cancel context to stop processing
	cancel()

	// Wait for all active tasks to complete
	w.logger.Info("worker stopping, waiting for active tasks to complete",
		slog.String("worker_id", w.workerID.String()))

	w.wg.Wait()

	w.logger.Info("worker stopped",
		slog.String("worker_id", w.workerID.String()))

	return nil
}

// Run starts the worker and returns a function suitable for errgroup
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return w.Stop()
	}
}

// run is the main processing loop
func (w *Worker) run() {
	ticker := time.NewTicker(w.pullInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			// Try to acquire a slot
			select {
			case w.sem <- struct{}{}:
				// Use stopMu to ensure we don't add to WaitGroup after Stop() starts
				w.stopMu.Lock()
				if w.stopping.Load() {
					w.stopMu.Unlock()
					<-w.sem // Release slot
					return
				}

				// Safe to add to wait group while holding stopMu
				w.wg.Add(1)
				w.stopMu.Unlock()

				// Got a slot, process task in background
				go func() {
					defer w.wg.Done()
					defer func() { <-w.sem }() // Release slot

					if err := w.pullAndProcess(); err != nil {
						if err != ErrHandlerNotFound {
							w.logger.Error("failed to process task",
								slog.String("worker_id", w.workerID.String()),
								slog.String("error", err.Error()))
						}
					}
				}()
			default:
				// All slots busy, skip this tick
				w.logger.Debug("all worker slots busy, skipping tick",
					slog.String("worker_id", w.workerID.String()))
			}
		}
	}
}

// sweep periodically releases expired claims so tasks stuck in processing
// (worker crash, lost connectivity) are re-queued instead of lost. The
// interval is configurable via WithSweepInterval; the lock duration set at
// claim time decides when a claim counts as expired.
func (w *Worker) sweep() {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			released, err := w.repo.ReleaseExpiredLocks(w.ctx)
			if err != nil {
				if w.ctx.Err() == nil {
					w.logger.Error("failed to release expired locks",
						slog.String("worker_id", w.workerID.String()),
						slog.String("error", err.Error()))
				}
				continue
			}
			if released > 0 {
				w.logger.Warn("released expired task locks",
					slog.String("worker_id", w.workerID.String()),
					slog.Int("released", released))
			}
		}
	}
}

// pullAndProcess pulls a task and processes it
func (w *Worker) pullAndProcess() error {
	// Claim next eligible task
	task, err := w.repo.ClaimTask(w.ctx, w.workerID, w.queues, w.lockTimeout)
	if err != nil {
		// Check if it's ErrNoTaskToClaim - this is normal, not an error
		if errors.Is(err, ErrNoTaskToClaim) {
			return nil
		}
		return fmt.Errorf("failed to claim task: %w", err)
	}

	// No task available is normal
	if task == nil {
		return nil
	}

	w.logger.Debug("claimed task",
		slog.String("worker_id", w.workerID.String()),
		slog.String("task_id", task.ID.String()),
		slog.String("task_name", task.TaskName),
		slog.String("queue", task.Queue))

	// Process the task
	return w.processTask(task)
}

// processTask executes a task with its handler
func (w *Worker) processTask(task *Task) (retErr error) {
	start := time.Now()

	// Add panic recovery: a panicking handler must never crash the dispatcher loop
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("panic in handler: %v", r)
			w.logger.Error("handler panicked",
				slog.String("worker_id", w.workerID.String()),
				slog.String("task_id", task.ID.String()),
				slog.String("task_name", task.TaskName),
				slog.Any("panic", r))
			// Treat panic as task failure
			duration := time.Since(start)
			_ = w.handleTaskFailure(task, retErr, duration)
		}
	}()

	// Find handler
	w.mu.RLock()
	handler, ok := w.handlers[task.TaskName]
	w.mu.RUnlock()

	if !ok {
		return w.handleMissingHandler(task)
	}

	// Create context with timeout that's not tied to worker lifecycle
	// This allows graceful shutdown to let tasks complete
	ctx, cancel := context.WithTimeout(context.Background(), w.lockTimeout)
	defer cancel()

	// Execute handler
	result, err := handler.Handle(ctx, task.Payload)
	duration := time.Since(start)

	if err != nil {
		return w.handleTaskFailure(task, err, duration)
	}

	return w.handleTaskSuccess(task, result, duration)
}

// handleMissingHandler processes tasks that have no registered handler.
// An unknown task name is a failure outcome, not a crash: the task is marked
// failed and moved straight to the DLQ, since retries won't help without a
// handler. Operators can deploy the handler and requeue from the DLQ.
func (w *Worker) handleMissingHandler(task *Task) error {
	w.logger.Error("no handler registered for task type",
		slog.String("worker_id", w.workerID.String()),
		slog.String("task_id", task.ID.String()),
		slog.String("task_name", task.TaskName))

	// Mark as failed to record the specific error
	errorMsg := "no handler registered for task type: " + task.TaskName
	if _, err := w.repo.FailTask(w.ctx, task.ID, errorMsg); err != nil {
		return fmt.Errorf("failed to mark task %s as failed: %w", task.ID, err)
	}

	if err := w.repo.MoveToDLQ(w.ctx, task.ID, FailureStageNoHandler); err != nil {
		return fmt.Errorf("failed to move task %s to DLQ: %w", task.ID, err)
	}

	return ErrHandlerNotFound
}

// handleTaskFailure processes failed task execution.
//
// Retry decision logic:
//  1. FailTask records the error, increments the retry count and either
//     reschedules the task with backoff or marks it failed (terminal)
//  2. When FailTask reports the retries exhausted, the task is moved to the
//     DLQ for manual inspection; exactly one DLQ entry per exhausted task
func (w *Worker) handleTaskFailure(task *Task, execErr error, duration time.Duration) error {
	w.logger.Error("task failed",
		slog.String("worker_id", w.workerID.String()),
		slog.String("task_id", task.ID.String()),
		slog.String("task_name", task.TaskName),
		slog.Int("retry_count", int(task.RetryCount)),
		slog.Int("max_retries", int(task.MaxRetries)),
		slog.Duration("duration", duration),
		slog.String("error", execErr.Error()))

	exhausted, err := w.repo.FailTask(w.ctx, task.ID, execErr.Error())
	if err != nil {
		return fmt.Errorf("failed to update task %s status to failed: %w", task.ID, err)
	}

	if exhausted {
		if err := w.repo.MoveToDLQ(w.ctx, task.ID, FailureStageRetryExhausted); err != nil {
			return fmt.Errorf("failed to move task %s to DLQ after max retries: %w", task.ID, err)
		}

		w.logger.Warn("task moved to dead letter queue",
			slog.String("worker_id", w.workerID.String()),
			slog.String("task_id", task.ID.String()),
			slog.String("task_name", task.TaskName))
	}

	return nil
}

// handleTaskSuccess processes successful task completion
func (w *Worker) handleTaskSuccess(task *Task, result json.RawMessage, duration time.Duration) error {
	if err := w.repo.CompleteTask(w.ctx, task.ID, result); err != nil {
		return fmt.Errorf("failed to mark task %s as completed: %w", task.ID, err)
	}

	w.logger.Info("task completed successfully",
		slog.String("worker_id", w.workerID.String()),
		slog.String("task_id", task.ID.String()),
		slog.String("task_name", task.TaskName),
		slog.String("queue", task.Queue),
		slog.Duration("duration", duration))

	return nil
}

// WorkerInfo returns information about the worker
func (w *Worker) WorkerInfo() (id string, hostname string, pid int) {
	hostname, _ = os.Hostname()
	return w.workerID.String(), hostname, os.Getpid()
}
