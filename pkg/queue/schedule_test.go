package queue_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/outreachq/pkg/queue"
)

func TestIntervalSchedules(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 8, 21, 10, 30, 0, 0, time.UTC)

	t.Run("EveryInterval", func(t *testing.T) {
		t.Parallel()

		s := queue.EveryInterval(90 * time.Second)
		assert.Equal(t, from.Add(90*time.Second), s.Next(from))
		assert.Equal(t, "every 1m30s", s.String())
	})

	t.Run("EveryMinutes", func(t *testing.T) {
		t.Parallel()

		s := queue.EveryMinutes(15)
		assert.Equal(t, from.Add(15*time.Minute), s.Next(from))
	})

	t.Run("EveryHours", func(t *testing.T) {
		t.Parallel()

		s := queue.EveryHours(6)
		assert.Equal(t, from.Add(6*time.Hour), s.Next(from))
	})
}

func TestHourlyAt(t *testing.T) {
	t.Parallel()

	s := queue.HourlyAt(45)

	t.Run("later this hour", func(t *testing.T) {
		t.Parallel()

		from := time.Date(2026, 8, 21, 10, 30, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2026, 8, 21, 10, 45, 0, 0, time.UTC), s.Next(from))
	})

	t.Run("rolls over to next hour", func(t *testing.T) {
		t.Parallel()

		from := time.Date(2026, 8, 21, 10, 50, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2026, 8, 21, 11, 45, 0, 0, time.UTC), s.Next(from))
	})

	t.Run("exact match rolls forward", func(t *testing.T) {
		t.Parallel()

		from := time.Date(2026, 8, 21, 10, 45, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2026, 8, 21, 11, 45, 0, 0, time.UTC), s.Next(from))
	})
}

func TestDailyAt(t *testing.T) {
	t.Parallel()

	s := queue.DailyAt(2, 30)

	t.Run("later today", func(t *testing.T) {
		t.Parallel()

		from := time.Date(2026, 8, 21, 1, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2026, 8, 21, 2, 30, 0, 0, time.UTC), s.Next(from))
	})

	t.Run("rolls over to tomorrow", func(t *testing.T) {
		t.Parallel()

		from := time.Date(2026, 8, 21, 9, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2026, 8, 22, 2, 30, 0, 0, time.UTC), s.Next(from))
	})
}

func TestWeeklyOn(t *testing.T) {
	t.Parallel()

	// 2026-08-21 is a Friday
	s := queue.WeeklyOn(time.Monday, 9, 0)

	t.Run("next week's occurrence", func(t *testing.T) {
		t.Parallel()

		from := time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC)
		next := s.Next(from)
		assert.Equal(t, time.Monday, next.Weekday())
		assert.Equal(t, time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC), next)
	})

	t.Run("same day before the hour", func(t *testing.T) {
		t.Parallel()

		from := time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC), s.Next(from))
	})

	t.Run("same day after the hour skips a week", func(t *testing.T) {
		t.Parallel()

		from := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC), s.Next(from))
	})
}

func TestMonthlyOn(t *testing.T) {
	t.Parallel()

	s := queue.MonthlyOn(15, 9, 0)

	t.Run("later this month", func(t *testing.T) {
		t.Parallel()

		from := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2026, 8, 15, 9, 0, 0, 0, time.UTC), s.Next(from))
	})

	t.Run("rolls over to next month", func(t *testing.T) {
		t.Parallel()

		from := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2026, 9, 15, 9, 0, 0, 0, time.UTC), s.Next(from))
	})

	t.Run("year boundary", func(t *testing.T) {
		t.Parallel()

		from := time.Date(2026, 12, 20, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2027, 1, 15, 9, 0, 0, 0, time.UTC), s.Next(from))
	})

	t.Run("day past month end clamps to last day", func(t *testing.T) {
		t.Parallel()

		s := queue.MonthlyOn(31, 9, 0)

		from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2026, 2, 28, 9, 0, 0, 0, time.UTC), s.Next(from))

		from = time.Date(2026, 2, 28, 10, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2026, 3, 31, 9, 0, 0, 0, time.UTC), s.Next(from))
	})

	t.Run("string form", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "monthly on day 15 at 09:00", s.String())
	})
}
