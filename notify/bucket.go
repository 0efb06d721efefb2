// Package notify classifies a user's tasks into time-relative buckets
// that drive the notification counters.
package notify

import (
	"sort"
	"time"

	"taskboard/board"
)

// BucketSet groups tasks by how urgent their due date is. It is derived
// fresh from the task collection on every call and never persisted.
type BucketSet struct {
	Overdue  []board.Task `json:"overdueTasks"`
	DueToday []board.Task `json:"dueTodayTasks"`
	Upcoming []board.Task `json:"upcomingTasks"`
}

// Total returns the number of tasks across all buckets.
func (b BucketSet) Total() int {
	return len(b.Overdue) + len(b.DueToday) + len(b.Upcoming)
}

// Bucket classifies tasks relative to now. Completed tasks and tasks
// without a due date are skipped; a task due before today's start is
// overdue, one due today is due-today, and one due within the lookahead
// window is upcoming. Anything past the window lands in no bucket.
//
// Every task must belong to ownerID. The upstream store is supposed to
// filter by owner already, but a filtering bug there must not leak
// another user's tasks into a notification payload, so mismatches are
// dropped here and reported in the second return value.
func Bucket(tasks []board.Task, now time.Time, lookaheadDays int, ownerID string) (BucketSet, int) {
	set := BucketSet{
		Overdue:  []board.Task{},
		DueToday: []board.Task{},
		Upcoming: []board.Task{},
	}

	dayStart := startOfDay(now)
	nextDay := dayStart.AddDate(0, 0, 1)
	horizon := now.Add(time.Duration(lookaheadDays) * 24 * time.Hour)

	dropped := 0
	for _, t := range tasks {
		if t.OwnerID != ownerID {
			dropped++
			continue
		}
		if t.Completed || t.DueDate == nil {
			continue
		}
		due := *t.DueDate
		switch {
		case due.Before(dayStart):
			set.Overdue = append(set.Overdue, t)
		case due.Before(nextDay):
			set.DueToday = append(set.DueToday, t)
		case due.After(now) && !due.After(horizon):
			set.Upcoming = append(set.Upcoming, t)
		}
	}

	sortByDue(set.Overdue)
	sortByDue(set.DueToday)
	sortByDue(set.Upcoming)
	return set, dropped
}

func sortByDue(tasks []board.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if !tasks[i].DueDate.Equal(*tasks[j].DueDate) {
			return tasks[i].DueDate.Before(*tasks[j].DueDate)
		}
		return tasks[i].ID < tasks[j].ID
	})
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
