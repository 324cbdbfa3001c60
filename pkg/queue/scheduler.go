package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SchedulerRepository defines the interface for scheduler operations
type SchedulerRepository interface {
	// CreateTask creates a new task in the storage
	CreateTask(ctx context.Context, task *Task) error

	// GetPendingTaskByName checks if a pending task with given name exists
	GetPendingTaskByName(ctx context.Context, taskName string) (*Task, error)
}

// Scheduler materializes recurring work (campaign sweeps, enrichment refreshes)
// as pending tasks. It deduplicates against an already-pending instance of the
// same task name, so restarting the scheduler never double-schedules.
type Scheduler struct {
	repo     SchedulerRepository
	tasks    map[string]*scheduledTask
	mu       sync.RWMutex
	interval time.Duration
	logger   *slog.Logger
}

// scheduledTask holds configuration for a periodic task
type scheduledTask struct {
	name            string
	schedule        Schedule
	queue           string
	priority        Priority
	maxRetries      int8
	lastScheduledAt *time.Time
}

// NewScheduler creates a new task scheduler
func NewScheduler(repo SchedulerRepository, opts ...SchedulerOption) (*Scheduler, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &schedulerOptions{
		checkInterval: 30 * time.Second,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(options)
	}

	return &Scheduler{
		repo:     repo,
		tasks:    make(map[string]*scheduledTask),
		interval: options.checkInterval,
		logger:   options.logger,
	}, nil
}

// AddTask registers a periodic task
func (s *Scheduler) AddTask(name string, schedule Schedule, opts ...SchedulerTaskOption) error {
	taskOpts := &schedulerTaskOptions{
		queue:      DefaultQueueName,
		priority:   PriorityDefault,
		maxRetries: 3,
	}

	for _, opt := range opts {
		opt(taskOpts)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[name]; exists {
		return ErrTaskAlreadyRegistered
	}

	s.tasks[name] = &scheduledTask{
		name:       name,
		schedule:   schedule,
		queue:      taskOpts.queue,
		priority:   taskOpts.priority,
		maxRetries: taskOpts.maxRetries,
	}

	s.logger.Info("registered periodic task",
		slog.String("task_name", name),
		slog.String("schedule", schedule.String()))

	return nil
}

// Start runs the scheduler loop until the context is cancelled.
// It blocks, making it suitable for use with errgroup.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.RLock()
	taskCount := len(s.tasks)
	s.mu.RUnlock()

	if taskCount == 0 {
		return ErrSchedulerNotConfigured
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Check immediately on start
	s.checkTasks(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.checkTasks(ctx)
		}
	}
}

// checkTasks checks all registered tasks and creates any that are due
func (s *Scheduler) checkTasks(ctx context.Context) {
	s.mu.RLock()
	tasks := make([]*scheduledTask, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, task)
	}
	s.mu.RUnlock()

	now := time.Now()

	for _, task := range tasks {
		if err := s.scheduleTaskIfNeeded(ctx, task, now); err != nil {
			s.logger.Error("failed to schedule task",
				slog.String("task_name", task.name),
				slog.String("error", err.Error()))
		}
	}
}

// scheduleTaskIfNeeded creates the next instance of a periodic task unless
// one is already pending or the task is not yet due
func (s *Scheduler) scheduleTaskIfNeeded(ctx context.Context, task *scheduledTask, now time.Time) error {
	from := now
	if task.lastScheduledAt != nil {
		from = *task.lastScheduledAt
	}
	nextRun := task.schedule.Next(from)

	// Subsequent runs wait until due; the first run is always scheduled
	if task.lastScheduledAt != nil && nextRun.After(now) {
		return nil
	}

	// Skip if an instance is already pending in storage
	existing, err := s.repo.GetPendingTaskByName(ctx, task.name)
	if err == nil && existing != nil {
		s.updateTaskState(task.name, &existing.ScheduledAt)
		s.logger.Debug("periodic task already pending",
			slog.String("task_name", task.name),
			slog.Time("scheduled_for", existing.ScheduledAt))
		return nil
	}

	newTask := &Task{
		ID:          uuid.New(),
		Queue:       task.queue,
		TaskType:    TaskTypePeriodic,
		TaskName:    task.name,
		Status:      TaskStatusPending,
		Priority:    task.priority,
		MaxRetries:  task.maxRetries,
		ScheduledAt: nextRun,
		CreatedAt:   time.Now(),
	}

	if err := s.repo.CreateTask(ctx, newTask); err != nil {
		return fmt.Errorf("failed to create periodic task: %w", err)
	}

	s.updateTaskState(task.name, &nextRun)

	s.logger.Info("created periodic task",
		slog.String("task_name", task.name),
		slog.Time("scheduled_for", nextRun))

	return nil
}

// updateTaskState updates the lastScheduledAt time for a task
func (s *Scheduler) updateTaskState(taskName string, scheduledAt *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tasks[taskName]; ok {
		t.lastScheduledAt = scheduledAt
	}
}

// RemoveTask removes a periodic task from the scheduler
func (s *Scheduler) RemoveTask(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tasks, name)

	s.logger.Info("removed periodic task",
		slog.String("task_name", name))
}

// ListTasks returns the names of all registered periodic tasks
func (s *Scheduler) ListTasks() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	return names
}
