package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/domain"
)

const today = "2024-03-10"

func task(id string, mut func(*domain.Task)) domain.Task {
	t := domain.Task{
		ID:             id,
		Name:           id,
		Start:          "2024-03-01",
		End:            "2024-03-20",
		Status:         domain.StatusNotStarted,
		Priority:       domain.PriorityMedium,
		EstimatedHours: 8,
	}
	if mut != nil {
		mut(&t)
	}
	return t
}

func TestOverdueProducesSingleWarning(t *testing.T) {
	tasks := []domain.Task{task("late", func(t *domain.Task) { t.End = "2024-03-01" })}
	got := Generate(tasks, today)
	require.Len(t, got, 1)
	assert.Equal(t, TypeWarning, got[0].Type)
	assert.Equal(t, "Overdue Tasks", got[0].Title)
	assert.Equal(t, "filter_overdue", got[0].Action)
	assert.Equal(t, []string{"late"}, got[0].Tasks)
	assert.Equal(t, "You have 1 overdue task(s) that need attention", got[0].Message)
}

func TestCompletedTasksAreNotOverdue(t *testing.T) {
	tasks := []domain.Task{task("done", func(t *domain.Task) {
		t.End = "2024-03-01"
		t.Status = domain.StatusCompleted
	})}
	got := Generate(tasks, today)
	require.Len(t, got, 1)
	assert.Equal(t, "Progress Summary", got[0].Title)
	assert.Equal(t, "1/1 tasks done (100%). 0 remaining.", got[0].Message)
}

func TestRulesKeepFixedOrder(t *testing.T) {
	tasks := []domain.Task{
		task("stalled", func(t *domain.Task) { t.Status = domain.StatusInProgress }),
		task("hot", func(t *domain.Task) { t.Priority = domain.PriorityCritical }),
		task("today", func(t *domain.Task) { t.End = today; t.Progress = 10; t.Status = domain.StatusInProgress }),
		task("late", func(t *domain.Task) { t.End = "2024-03-09"; t.Status = domain.StatusOnHold }),
	}
	got := Generate(tasks, today)
	titles := make([]string, 0, len(got))
	for _, s := range got {
		titles = append(titles, s.Title)
	}
	assert.Equal(t, []string{"Overdue Tasks", "Due Today", "Priority Tasks", "Stalled Tasks"}, titles)
	assert.Equal(t, []string{"stalled"}, got[3].Tasks)
	assert.Equal(t, "1 task(s) marked as in progress but have 0% completion", got[3].Message)
}

func TestProgressSummaryWithTimeEstimate(t *testing.T) {
	tasks := []domain.Task{
		task("a", func(t *domain.Task) { t.Status = domain.StatusCompleted }),
		task("b", func(t *domain.Task) { t.Progress = 50; t.Status = domain.StatusInProgress }),
		task("c", func(t *domain.Task) { t.EstimatedHours = 0; t.Progress = 20; t.Status = domain.StatusInProgress }),
	}
	got := Generate(tasks, today)
	require.Len(t, got, 2)
	assert.Equal(t, "1/3 tasks done (33%). 2 remaining.", got[0].Message)
	assert.Equal(t, "Time Estimate", got[1].Title)
	assert.Equal(t, "~10h of work remaining (avg 5h/task)", got[1].Message)
}

func TestTimeEstimateLargeTotalsStayIntegral(t *testing.T) {
	tasks := []domain.Task{
		task("a", func(t *domain.Task) { t.Status = domain.StatusCompleted }),
		task("b", func(t *domain.Task) { t.EstimatedHours = 999999.6; t.Progress = 10; t.Status = domain.StatusInProgress }),
	}
	got := Generate(tasks, today)
	require.Len(t, got, 2)
	assert.Equal(t, "~1000000h of work remaining (avg 1000000h/task)", got[1].Message)
}

func TestGettingStarted(t *testing.T) {
	got := Generate(nil, today)
	require.Len(t, got, 1)
	assert.Equal(t, "Getting Started", got[0].Title)
	assert.Equal(t, TypeInfo, got[0].Type)
}
