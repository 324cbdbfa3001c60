package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/outreachq/pkg/queue"
)

func TestScheduler_NewScheduler(t *testing.T) {
	t.Parallel()

	t.Run("successful creation", func(t *testing.T) {
		t.Parallel()

		s, err := queue.NewScheduler(queue.NewMemoryStorage())
		require.NoError(t, err)
		require.NotNil(t, s)
	})

	t.Run("nil repository error", func(t *testing.T) {
		t.Parallel()

		s, err := queue.NewScheduler(nil)
		assert.ErrorIs(t, err, queue.ErrRepositoryNil)
		assert.Nil(t, s)
	})
}

func TestScheduler_AddRemoveTask(t *testing.T) {
	t.Parallel()

	s, err := queue.NewScheduler(queue.NewMemoryStorage())
	require.NoError(t, err)

	require.NoError(t, s.AddTask("campaign_sweep", queue.EveryMinutes(5)))
	assert.ErrorIs(t, s.AddTask("campaign_sweep", queue.EveryMinutes(10)), queue.ErrTaskAlreadyRegistered)

	require.NoError(t, s.AddTask("metrics_rollup", queue.HourlyAt(0)))
	assert.ElementsMatch(t, []string{"campaign_sweep", "metrics_rollup"}, s.ListTasks())

	s.RemoveTask("campaign_sweep")
	assert.Equal(t, []string{"metrics_rollup"}, s.ListTasks())
}

func TestScheduler_Start(t *testing.T) {
	t.Parallel()

	t.Run("fails without registered tasks", func(t *testing.T) {
		t.Parallel()

		s, err := queue.NewScheduler(queue.NewMemoryStorage())
		require.NoError(t, err)

		assert.ErrorIs(t, s.Start(context.Background()), queue.ErrSchedulerNotConfigured)
	})

	t.Run("schedules first run immediately", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		s, err := queue.NewScheduler(storage, queue.WithCheckInterval(10*time.Millisecond))
		require.NoError(t, err)
		require.NoError(t, s.AddTask("campaign_sweep", queue.EveryMinutes(5),
			queue.WithTaskQueue("sweeps"),
			queue.WithTaskPriority(queue.PriorityLow),
		))

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		_ = s.Start(ctx)

		tasks, err := storage.ListTasks(context.Background(), queue.TaskFilter{TaskName: "campaign_sweep"}, 10, 0)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, queue.TaskTypePeriodic, tasks[0].TaskType)
		assert.Equal(t, "sweeps", tasks[0].Queue)
		assert.Equal(t, queue.PriorityLow, tasks[0].Priority)
	})

	t.Run("does not double-schedule a pending instance", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		s, err := queue.NewScheduler(storage, queue.WithCheckInterval(5*time.Millisecond))
		require.NoError(t, err)
		// interval far in the future so only the immediate first run fires
		require.NoError(t, s.AddTask("campaign_sweep", queue.EveryHours(1)))

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		_ = s.Start(ctx)

		count, err := storage.CountTasks(context.Background(), queue.TaskFilter{TaskName: "campaign_sweep"})
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}
