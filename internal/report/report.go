// Package report computes aggregate views over tasks and activity.
package report

import (
	"math"
	"sort"
	"time"

	"taskflow/internal/domain"
	"taskflow/internal/suggest"
)

const (
	recentActivityLimit = 10
	weekDays            = 7
)

type Stats struct {
	Total               int            `json:"total"`
	ByStatus            map[string]int `json:"byStatus"`
	ByPriority          map[string]int `json:"byPriority"`
	ByCategory          map[string]int `json:"byCategory"`
	ByType              map[string]int `json:"byType"`
	Overdue             int            `json:"overdue"`
	DueToday            int            `json:"dueToday"`
	DueThisWeek         int            `json:"dueThisWeek"`
	AvgProgress         int            `json:"avgProgress"`
	CompletionRate      int            `json:"completionRate"`
	TotalEstimatedHours float64        `json:"totalEstimatedHours"`
	TotalActualHours    float64        `json:"totalActualHours"`
	Velocity            int            `json:"velocity"`
}

type CategoryProgress struct {
	Total       int `json:"total"`
	Completed   int `json:"completed"`
	Progress    int `json:"progress"`
	AvgProgress int `json:"avgProgress"`
}

type Dashboard struct {
	RecentActivity   []domain.ActivityEntry      `json:"recentActivity"`
	Upcoming         []domain.Task               `json:"upcoming"`
	Overdue          []domain.Task               `json:"overdue"`
	CategoryProgress map[string]CategoryProgress `json:"categoryProgress"`
	Suggestions      []domain.Suggestion         `json:"suggestions"`
	TodaysTasks      []domain.Task               `json:"todaysTasks"`
}

// BuildStats aggregates tasks. activity feeds the velocity figure: the number
// of completions recorded during the week before now.
func BuildStats(tasks []domain.Task, activity []domain.ActivityEntry, now time.Time) Stats {
	today := now.Format(domain.DateLayout)
	weekEnd := now.AddDate(0, 0, weekDays).Format(domain.DateLayout)
	s := Stats{
		Total:      len(tasks),
		ByStatus:   map[string]int{},
		ByPriority: map[string]int{},
		ByCategory: map[string]int{},
		ByType:     map[string]int{},
	}
	for _, st := range domain.Statuses {
		s.ByStatus[string(st)] = 0
	}
	for _, p := range domain.Priorities {
		s.ByPriority[string(p)] = 0
	}
	s.ByType[string(domain.TypeTask)] = 0
	s.ByType[string(domain.TypeMilestone)] = 0
	progress, completed := 0, 0
	for _, t := range tasks {
		s.ByStatus[string(t.Status)]++
		s.ByPriority[string(t.Priority)]++
		s.ByCategory[t.Category]++
		s.ByType[string(t.Type)]++
		progress += t.Progress
		s.TotalEstimatedHours += t.EstimatedHours
		s.TotalActualHours += t.ActualHours
		if t.Status == domain.StatusCompleted {
			completed++
			continue
		}
		switch {
		case t.End < today:
			s.Overdue++
		case t.End == today:
			s.DueToday++
		case t.End <= weekEnd:
			s.DueThisWeek++
		}
	}
	if len(tasks) > 0 {
		s.AvgProgress = percent(progress, len(tasks)*100)
		s.CompletionRate = percent(completed, len(tasks))
	}
	s.Velocity = Velocity(activity, now)
	return s
}

// Velocity counts completions logged within the trailing week.
func Velocity(activity []domain.ActivityEntry, now time.Time) int {
	since := now.AddDate(0, 0, -weekDays)
	n := 0
	for _, a := range activity {
		if a.Action != domain.ActionUpdated || a.Timestamp.Before(since) {
			continue
		}
		if hasChange(a.Details, "status: "+string(domain.StatusCompleted)) {
			n++
		}
	}
	return n
}

// BuildDashboard assembles the dashboard aggregate. activity must be newest first.
func BuildDashboard(tasks []domain.Task, activity []domain.ActivityEntry, now time.Time) Dashboard {
	today := now.Format(domain.DateLayout)
	weekEnd := now.AddDate(0, 0, weekDays).Format(domain.DateLayout)
	d := Dashboard{
		RecentActivity:   activity,
		Upcoming:         []domain.Task{},
		Overdue:          []domain.Task{},
		CategoryProgress: map[string]CategoryProgress{},
		TodaysTasks:      []domain.Task{},
	}
	if len(d.RecentActivity) > recentActivityLimit {
		d.RecentActivity = d.RecentActivity[:recentActivityLimit]
	}
	if d.RecentActivity == nil {
		d.RecentActivity = []domain.ActivityEntry{}
	}
	for _, t := range tasks {
		cp := d.CategoryProgress[t.Category]
		cp.Total++
		cp.Progress += t.Progress
		if t.Status == domain.StatusCompleted {
			cp.Completed++
		}
		d.CategoryProgress[t.Category] = cp

		if t.Status == domain.StatusCompleted {
			continue
		}
		if t.End < today {
			d.Overdue = append(d.Overdue, t)
		}
		if t.End >= today && t.End <= weekEnd {
			d.Upcoming = append(d.Upcoming, t)
		}
		if t.Start <= today && today <= t.End {
			d.TodaysTasks = append(d.TodaysTasks, t)
		}
	}
	for cat, cp := range d.CategoryProgress {
		cp.AvgProgress = percent(cp.Progress, cp.Total*100)
		d.CategoryProgress[cat] = cp
	}
	sortByEnd(d.Upcoming)
	sortByEnd(d.Overdue)
	d.Suggestions = suggest.Generate(tasks, today)
	return d
}

func sortByEnd(tasks []domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].End < tasks[j].End })
}

func percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

// hasChange looks for want in details["changes"], which is []string when
// recorded in-process and []any after a JSON round trip.
func hasChange(details map[string]any, want string) bool {
	switch changes := details["changes"].(type) {
	case []string:
		for _, c := range changes {
			if c == want {
				return true
			}
		}
	case []any:
		for _, c := range changes {
			if s, ok := c.(string); ok && s == want {
				return true
			}
		}
	}
	return false
}
