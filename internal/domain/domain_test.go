package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskDefaults(t *testing.T) {
	task := NewTask(time.Date(2024, 2, 26, 15, 0, 0, 0, time.UTC))
	assert.Equal(t, "2024-02-26", task.Start)
	assert.Equal(t, "2024-03-04", task.End)
	assert.Equal(t, StatusNotStarted, task.Status)
	assert.Equal(t, PriorityMedium, task.Priority)
	assert.Equal(t, TypeTask, task.Type)
	assert.True(t, task.DueReminder)
	assert.Equal(t, float64(8), task.EstimatedHours)
	assert.Equal(t, DefaultProjectID, task.ProjectID)
	assert.NotNil(t, task.Tags)
	assert.NotNil(t, task.Dependencies)
}

func TestNormalizeMilestone(t *testing.T) {
	task := Task{Type: TypeMilestone, Start: "2024-01-02", End: "2024-01-09"}
	task.Normalize()
	assert.Equal(t, task.Start, task.End)
	assert.Equal(t, DefaultProjectID, task.ProjectID)
}

func TestCloneIsDeep(t *testing.T) {
	parent := "p"
	orig := Task{ID: "a", ParentID: &parent, Tags: []string{"x"}, Recurring: map[string]any{"every": "week"}}
	cp := orig.Clone()
	*cp.ParentID = "q"
	cp.Tags[0] = "y"
	cp.Recurring["every"] = "day"
	assert.Equal(t, "p", *orig.ParentID)
	assert.Equal(t, "x", orig.Tags[0])
	assert.Equal(t, "week", orig.Recurring["every"])
}

func TestOverdue(t *testing.T) {
	task := Task{End: "2024-01-01", Status: StatusInProgress}
	assert.True(t, task.Overdue("2024-01-02"))
	task.Status = StatusCompleted
	assert.False(t, task.Overdue("2024-01-02"), "completed tasks are never overdue")
}

func TestDefaultLabelsUseDisplayNames(t *testing.T) {
	labels := DefaultLabels()
	require.Len(t, labels, 8)
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Name)
	}
	assert.Equal(t, []string{"Bug", "Feature", "Improvement", "Urgent", "Review", "Testing", "Documentation", "Meeting"}, names)
	assert.Equal(t, "bug", labels[0].ID)
}
