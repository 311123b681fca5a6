package mealplan

import (
	"time"
)

// ScheduledDay is one calendar day in the generation window.
type ScheduledDay struct {
	Date    time.Time
	Workout bool
}

// ScheduleWindow is the ordered list of dates from the run's start date
// through the upcoming Sunday, with workout days tagged. Weeks start on
// Monday.
type ScheduleWindow struct {
	Days []ScheduledDay
}

// NewScheduleWindow builds the window for the week containing today.
// Workout days are spaced evenly across the remaining days:
// index_i = floor(i * daysLeft / workoutsToInclude).
func NewScheduleWindow(today time.Time, desiredFrequency int) ScheduleWindow {
	today = normalizeDate(today)
	daysLeft := 7 - mondayIndex(today)

	days := make([]ScheduledDay, daysLeft)
	for i := range days {
		days[i] = ScheduledDay{Date: today.AddDate(0, 0, i), Workout: false}
	}

	workoutsToInclude := desiredFrequency
	if workoutsToInclude > daysLeft {
		workoutsToInclude = daysLeft
	}
	for i := 0; i < workoutsToInclude; i++ {
		days[i*daysLeft/workoutsToInclude].Workout = true
	}

	return ScheduleWindow{Days: days}
}

// WeekStart returns the Monday of the window's week.
func (w ScheduleWindow) WeekStart() time.Time {
	first := w.Days[0].Date
	return first.AddDate(0, 0, -mondayIndex(first))
}

// WeekEnd returns the Sunday of the window's week.
func (w ScheduleWindow) WeekEnd() time.Time {
	return w.WeekStart().AddDate(0, 0, 6)
}

// Contains reports whether the date falls inside the Monday-Sunday week of
// the window.
func (w ScheduleWindow) Contains(date time.Time) bool {
	date = normalizeDate(date)
	return !date.Before(w.WeekStart()) && !date.After(w.WeekEnd())
}

// WorkoutDates returns the tagged workout dates in chronological order.
func (w ScheduleWindow) WorkoutDates() []time.Time {
	var dates []time.Time
	for _, day := range w.Days {
		if day.Workout {
			dates = append(dates, day.Date)
		}
	}
	return dates
}

// IsWorkoutDate reports whether the given date is tagged as a workout day.
func (w ScheduleWindow) IsWorkoutDate(date time.Time) bool {
	key := DateKey(date)
	for _, day := range w.Days {
		if day.Workout && DateKey(day.Date) == key {
			return true
		}
	}
	return false
}

// dateByWeekday returns the window date falling on the given weekday, if
// any. Dates before today are not in the window even though they are in the
// week.
func (w ScheduleWindow) dateByWeekday(weekday time.Weekday) (time.Time, bool) {
	for _, day := range w.Days {
		if day.Date.Weekday() == weekday {
			return day.Date, true
		}
	}
	return time.Time{}, false
}

// mondayIndex maps a weekday to its offset from Monday (Monday=0..Sunday=6).
func mondayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// normalizeDate truncates a timestamp to local midnight.
func normalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
