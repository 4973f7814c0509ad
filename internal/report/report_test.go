package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/domain"
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func sample() []domain.Task {
	return []domain.Task{
		{ID: "a", Start: "2024-03-01", End: "2024-03-05", Status: domain.StatusInProgress, Priority: domain.PriorityHigh, Category: "development", Type: domain.TypeTask, Progress: 40, EstimatedHours: 8, ActualHours: 3},
		{ID: "b", Start: "2024-03-09", End: "2024-03-10", Status: domain.StatusNotStarted, Priority: domain.PriorityLow, Category: "design", Type: domain.TypeTask, EstimatedHours: 4},
		{ID: "c", Start: "2024-03-10", End: "2024-03-14", Status: domain.StatusCompleted, Priority: domain.PriorityMedium, Category: "development", Type: domain.TypeTask, Progress: 100, EstimatedHours: 2, ActualHours: 2},
		{ID: "d", Start: "2024-03-12", End: "2024-03-12", Status: domain.StatusNotStarted, Priority: domain.PriorityMedium, Category: "planning", Type: domain.TypeMilestone},
		{ID: "e", Start: "2024-03-01", End: "2024-03-30", Status: domain.StatusOnHold, Priority: domain.PriorityMedium, Category: "development", Type: domain.TypeTask, Progress: 10},
	}
}

func TestBuildStats(t *testing.T) {
	activity := []domain.ActivityEntry{
		{Action: domain.ActionUpdated, Timestamp: now.Add(-time.Hour), Details: map[string]any{"changes": []string{"status: completed"}}},
		{Action: domain.ActionUpdated, Timestamp: now.Add(-48 * time.Hour), Details: map[string]any{"changes": []any{"progress: 100%", "status: completed"}}},
		{Action: domain.ActionUpdated, Timestamp: now.AddDate(0, 0, -8), Details: map[string]any{"changes": []string{"status: completed"}}},
		{Action: domain.ActionCreated, Timestamp: now, Details: map[string]any{}},
	}
	s := BuildStats(sample(), activity, now)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 2, s.ByStatus["not_started"])
	assert.Equal(t, 3, s.ByCategory["development"])
	assert.Equal(t, 1, s.ByType["milestone"])
	assert.Equal(t, 1, s.Overdue)
	assert.Equal(t, 1, s.DueToday)
	assert.Equal(t, 1, s.DueThisWeek)
	assert.Equal(t, 30, s.AvgProgress)
	assert.Equal(t, 20, s.CompletionRate)
	assert.Equal(t, float64(14), s.TotalEstimatedHours)
	assert.Equal(t, float64(5), s.TotalActualHours)
	assert.Equal(t, 2, s.Velocity)
}

func TestBuildStatsEmpty(t *testing.T) {
	s := BuildStats(nil, nil, now)
	assert.Zero(t, s.Total)
	assert.Zero(t, s.AvgProgress)
	assert.Equal(t, map[string]int{"not_started": 0, "in_progress": 0, "completed": 0, "on_hold": 0}, s.ByStatus)
	assert.Equal(t, map[string]int{"low": 0, "medium": 0, "high": 0, "critical": 0}, s.ByPriority)
	assert.Equal(t, map[string]int{"task": 0, "milestone": 0}, s.ByType)
	assert.Empty(t, s.ByCategory)
}

func TestBuildStatsKeepsZeroBuckets(t *testing.T) {
	s := BuildStats([]domain.Task{{ID: "a", Status: domain.StatusNotStarted, Priority: domain.PriorityMedium, Type: domain.TypeTask, End: "2099-01-01"}}, nil, now)
	count, ok := s.ByStatus["completed"]
	assert.True(t, ok)
	assert.Zero(t, count)
	assert.Equal(t, 1, s.ByStatus["not_started"])
	assert.Len(t, s.ByPriority, 4)
	assert.Equal(t, 0, s.ByType["milestone"])
}

func TestBuildDashboard(t *testing.T) {
	var activity []domain.ActivityEntry
	for i := 0; i < 15; i++ {
		activity = append(activity, domain.ActivityEntry{ID: string(rune('a' + i)), Action: domain.ActionCreated})
	}
	d := BuildDashboard(sample(), activity, now)
	assert.Len(t, d.RecentActivity, 10)
	require.Len(t, d.Overdue, 1)
	assert.Equal(t, "a", d.Overdue[0].ID)

	ids := func(ts []domain.Task) []string {
		out := []string{}
		for _, t := range ts {
			out = append(out, t.ID)
		}
		return out
	}
	assert.Equal(t, []string{"b", "d"}, ids(d.Upcoming))
	assert.Equal(t, []string{"b", "e"}, ids(d.TodaysTasks))

	dev := d.CategoryProgress["development"]
	assert.Equal(t, CategoryProgress{Total: 3, Completed: 1, Progress: 150, AvgProgress: 50}, dev)
	require.NotEmpty(t, d.Suggestions)
	assert.Equal(t, "Overdue Tasks", d.Suggestions[0].Title)
}
