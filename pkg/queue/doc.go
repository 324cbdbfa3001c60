// Package queue provides a repository-agnostic durable task queue with
// first-class support for immediate, delayed, and periodic execution, retry
// with pluggable backoff, and a dead-letter store for exhausted tasks.
//
// The package is organised around four main components:
//
//   - Enqueuer: adds one-time tasks to the queue
//   - Scheduler: converts cron-like Schedule definitions into tasks at runtime
//   - Worker: claims pending tasks and dispatches them to a user supplied Handler
//   - DLQ: lists, retries, and resolves dead-lettered tasks
//
// Components interact only through a set of small repository interfaces, keeping the
// business logic decoupled from persistence. Two implementations ship with the
// package: MemoryStorage for development and tests, and PostgresStorage for
// production, which claims tasks with FOR UPDATE SKIP LOCKED so concurrent
// workers never process the same task twice.
//
// # Architecture
//
//  1. The EnqueuerRepository, SchedulerRepository, WorkerRepository,
//     DLQRepository, and QueryRepository interfaces encapsulate all
//     persistence concerns.
//  2. Enqueuer, Scheduler, and Worker are independent and can be deployed in
//     separate processes or services.
//  3. Claim order is priority descending, then scheduled time ascending, then
//     task id as the tie-break, so dispatch order is deterministic.
//  4. A failed task is retried on a BackoffStrategy schedule until MaxRetries
//     is exhausted, then moved to the dead-letter store exactly once. Dead
//     letters are never deleted, only resolved or retried explicitly.
//  5. Workers holding a task keep it locked until LockedUntil; a periodic
//     sweep re-queues tasks whose lock expired mid-flight.
//
// # Usage
//
// Basic one-time task:
//
//	import (
//	    "context"
//	    "time"
//
//	    "github.com/dmitrymomot/outreachq/pkg/queue"
//	)
//
//	type SendEmailPayload struct {
//	    UserID int64
//	}
//
//	func example(repo queue.EnqueuerRepository) error {
//	    e, err := queue.NewEnqueuer(repo)
//	    if err != nil {
//	        return err
//	    }
//
//	    // Execute within the next minute
//	    _, err = e.Enqueue(context.Background(),
//	        SendEmailPayload{UserID: 42},
//	        queue.WithDelay(time.Minute),
//	    )
//	    return err
//	}
//
// Periodic job:
//
//	s, _ := queue.NewScheduler(repo, queue.WithCheckInterval(30*time.Second))
//	_ = s.AddTask(
//	    "cleanup_sessions",
//	    queue.DailyAt(2, 0), // runs every day at 02:00
//	    queue.WithTaskPriority(10),
//	)
//	go s.Start(context.Background())
//
// # Error Handling
//
// Package-level sentinel errors (e.g. ErrInvalidPriority, ErrNoHandlers,
// ErrDeadLetterResolved) signal violations of business invariants and can be
// checked with errors.Is.
package queue
