package queue

import "time"

// EnqueuerOption is a functional option for configuring an Enqueuer
type EnqueuerOption func(*enqueuerOptions)

type enqueuerOptions struct {
	defaultQueue    string
	defaultPriority Priority
}

// WithDefaultQueue sets the default queue for the enqueuer
func WithDefaultQueue(queue string) EnqueuerOption {
	return func(o *enqueuerOptions) {
		if queue != "" {
			o.defaultQueue = queue
		}
	}
}

// WithDefaultPriority sets the default priority for the enqueuer
func WithDefaultPriority(priority Priority) EnqueuerOption {
	return func(o *enqueuerOptions) {
		if priority.Valid() {
			o.defaultPriority = priority
		}
	}
}

// EnqueueOption is a functional option for a single enqueue call
type EnqueueOption func(*enqueueOptions)

type enqueueOptions struct {
	queue       string
	taskName    string
	priority    Priority
	maxRetries  int8
	delay       time.Duration
	scheduledAt *time.Time
}

// WithQueue routes the task to a specific queue
func WithQueue(queue string) EnqueueOption {
	return func(o *enqueueOptions) {
		if queue != "" {
			o.queue = queue
		}
	}
}

// WithTaskName overrides the task name derived from the payload type
func WithTaskName(name string) EnqueueOption {
	return func(o *enqueueOptions) {
		if name != "" {
			o.taskName = name
		}
	}
}

// WithPriority sets the task priority
func WithPriority(priority Priority) EnqueueOption {
	return func(o *enqueueOptions) {
		o.priority = priority
	}
}

// WithMaxRetries sets how many failed executions are allowed before the task
// is dead-lettered
func WithMaxRetries(n int8) EnqueueOption {
	return func(o *enqueueOptions) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// WithDelay defers the earliest eligible execution time by d
func WithDelay(d time.Duration) EnqueueOption {
	return func(o *enqueueOptions) {
		if d > 0 {
			o.delay = d
		}
	}
}

// WithScheduledAt sets an absolute earliest eligible execution time,
// taking precedence over WithDelay
func WithScheduledAt(t time.Time) EnqueueOption {
	return func(o *enqueueOptions) {
		o.scheduledAt = &t
	}
}
