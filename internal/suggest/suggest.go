// Package suggest derives rule-based hints from a task collection.
package suggest

import (
	"fmt"
	"math"

	"taskflow/internal/domain"
)

const (
	TypeWarning    = "warning"
	TypeInfo       = "info"
	TypeSuggestion = "suggestion"
)

// fallbackHours stands in for tasks that carry no estimate.
const fallbackHours = 2

type rule struct {
	kind   string
	title  string
	action string
	match  func(t domain.Task, today string) bool
	render func(n int) string
}

var rules = []rule{
	{
		kind:   TypeWarning,
		title:  "Overdue Tasks",
		action: "filter_overdue",
		match:  func(t domain.Task, today string) bool { return t.Overdue(today) },
		render: func(n int) string { return fmt.Sprintf("You have %d overdue task(s) that need attention", n) },
	},
	{
		kind:   TypeInfo,
		title:  "Due Today",
		action: "filter_today",
		match: func(t domain.Task, today string) bool {
			return t.End == today && t.Status != domain.StatusCompleted
		},
		render: func(n int) string { return fmt.Sprintf("%d task(s) are due today", n) },
	},
	{
		kind:   TypeSuggestion,
		title:  "Priority Tasks",
		action: "filter_priority",
		match: func(t domain.Task, _ string) bool {
			return t.Priority.Urgent() && t.Status == domain.StatusNotStarted
		},
		render: func(n int) string { return fmt.Sprintf("%d high priority task(s) haven't been started", n) },
	},
	{
		kind:   TypeSuggestion,
		title:  "Stalled Tasks",
		action: "filter_stalled",
		match: func(t domain.Task, _ string) bool {
			return t.Status == domain.StatusInProgress && t.Progress == 0
		},
		render: func(n int) string { return fmt.Sprintf("%d task(s) marked as in progress but have 0%% completion", n) },
	},
}

// Generate evaluates the rules in order against tasks. today is YYYY-MM-DD.
// When no rule fires a progress summary is returned instead.
func Generate(tasks []domain.Task, today string) []domain.Suggestion {
	out := []domain.Suggestion{}
	for _, r := range rules {
		var ids []string
		for _, t := range tasks {
			if r.match(t, today) {
				ids = append(ids, t.ID)
			}
		}
		if len(ids) == 0 {
			continue
		}
		out = append(out, domain.Suggestion{
			Type:    r.kind,
			Title:   r.title,
			Message: r.render(len(ids)),
			Action:  r.action,
			Tasks:   ids,
		})
	}
	if len(out) > 0 {
		return out
	}
	return summary(tasks)
}

func summary(tasks []domain.Task) []domain.Suggestion {
	if len(tasks) == 0 {
		return []domain.Suggestion{{
			Type:    TypeInfo,
			Title:   "Getting Started",
			Message: "Add your first task to get AI-powered insights and suggestions.",
		}}
	}
	done := 0
	var remainingHours float64
	for _, t := range tasks {
		if t.Status == domain.StatusCompleted {
			done++
			continue
		}
		h := t.EstimatedHours
		if h == 0 {
			h = fallbackHours
		}
		remainingHours += h
	}
	remaining := len(tasks) - done
	pct := int(math.Round(float64(done) / float64(len(tasks)) * 100))
	out := []domain.Suggestion{{
		Type:    TypeInfo,
		Title:   "Progress Summary",
		Message: fmt.Sprintf("%d/%d tasks done (%d%%). %d remaining.", done, len(tasks), pct, remaining),
	}}
	if remaining > 0 {
		avg := int(math.Round(remainingHours / float64(remaining)))
		out = append(out, domain.Suggestion{
			Type:    TypeSuggestion,
			Title:   "Time Estimate",
			Message: fmt.Sprintf("~%dh of work remaining (avg %dh/task)", int(math.Round(remainingHours)), avg),
		})
	}
	return out
}
