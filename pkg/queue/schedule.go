package queue

import (
	"fmt"
	"time"
)

// Schedule determines when a periodic task should next run
type Schedule interface {
	Next(from time.Time) time.Time
	String() string
}

// intervalSchedule runs at fixed intervals
type intervalSchedule struct {
	every time.Duration
}

func (s intervalSchedule) Next(from time.Time) time.Time {
	return from.Add(s.every)
}

func (s intervalSchedule) String() string {
	return fmt.Sprintf("every %v", s.every)
}

// hourlySchedule runs every hour at the specified minute
type hourlySchedule struct {
	minute int
}

func (s hourlySchedule) Next(from time.Time) time.Time {
	next := time.Date(
		from.Year(), from.Month(), from.Day(),
		from.Hour(), s.minute, 0, 0, from.Location(),
	)
	if !next.After(from) {
		next = next.Add(time.Hour)
	}
	return next
}

func (s hourlySchedule) String() string {
	return fmt.Sprintf("hourly at :%02d", s.minute)
}

// dailySchedule runs once per day at the specified time
type dailySchedule struct {
	hour   int
	minute int
}

func (s dailySchedule) Next(from time.Time) time.Time {
	next := time.Date(
		from.Year(), from.Month(), from.Day(),
		s.hour, s.minute, 0, 0, from.Location(),
	)
	if !next.After(from) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s dailySchedule) String() string {
	return fmt.Sprintf("daily at %02d:%02d", s.hour, s.minute)
}

// weeklySchedule runs once per week on the specified day and time
type weeklySchedule struct {
	weekday time.Weekday
	hour    int
	minute  int
}

func (s weeklySchedule) Next(from time.Time) time.Time {
	// Days until target weekday, modulo handles week wraparound
	daysUntil := (int(s.weekday) - int(from.Weekday()) + 7) % 7

	next := from.AddDate(0, 0, daysUntil)
	next = time.Date(
		next.Year(), next.Month(), next.Day(),
		s.hour, s.minute, 0, 0, next.Location(),
	)

	if !next.After(from) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

func (s weeklySchedule) String() string {
	return fmt.Sprintf("weekly on %s at %02d:%02d", s.weekday, s.hour, s.minute)
}

// monthlySchedule runs once per month on the specified day and time
type monthlySchedule struct {
	day    int
	hour   int
	minute int
}

func (s monthlySchedule) Next(from time.Time) time.Time {
	next := s.inMonth(from.Year(), from.Month(), from.Location())
	if !next.After(from) {
		next = s.inMonth(from.Year(), from.Month()+1, from.Location())
	}
	return next
}

// inMonth places the schedule in the given month, clamping the day to the
// month's last day (e.g. day 31 in February becomes the 28th or 29th).
func (s monthlySchedule) inMonth(year int, month time.Month, loc *time.Location) time.Time {
	next := time.Date(year, month, s.day, s.hour, s.minute, 0, 0, loc)
	if next.Month() != time.Date(year, month, 1, 0, 0, 0, 0, loc).Month() {
		// day 0 of the following month is the last day of this one
		next = time.Date(year, month+1, 0, s.hour, s.minute, 0, 0, loc)
	}
	return next
}

func (s monthlySchedule) String() string {
	return fmt.Sprintf("monthly on day %d at %02d:%02d", s.day, s.hour, s.minute)
}

// Factory functions for creating schedules

// EveryInterval creates a schedule that runs at fixed intervals
func EveryInterval(d time.Duration) Schedule {
	return intervalSchedule{every: d}
}

// EveryMinutes creates a schedule that runs every n minutes
func EveryMinutes(n int) Schedule {
	return intervalSchedule{every: time.Duration(n) * time.Minute}
}

// EveryHours creates a schedule that runs every n hours
func EveryHours(n int) Schedule {
	return intervalSchedule{every: time.Duration(n) * time.Hour}
}

// HourlyAt creates a schedule that runs every hour at the specified minute
func HourlyAt(minute int) Schedule {
	return hourlySchedule{minute: minute}
}

// DailyAt creates a schedule that runs daily at the specified time
func DailyAt(hour, minute int) Schedule {
	return dailySchedule{hour: hour, minute: minute}
}

// WeeklyOn creates a schedule that runs weekly on the specified day and time
func WeeklyOn(weekday time.Weekday, hour, minute int) Schedule {
	return weeklySchedule{weekday: weekday, hour: hour, minute: minute}
}

// MonthlyOn creates a schedule that runs monthly on the specified day and
// time. Days past the end of a month run on that month's last day.
func MonthlyOn(day, hour, minute int) Schedule {
	return monthlySchedule{day: day, hour: hour, minute: minute}
}
