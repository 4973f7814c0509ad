package engine

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"taskflow/internal/activity"
	"taskflow/internal/classify"
	"taskflow/internal/domain"
	"taskflow/internal/repo"
)

// TaskChanges carries the fields a caller supplied. Nil pointers are absent.
// The nullable fields use a Set flag so an explicit null can clear them.
type TaskChanges struct {
	Name            *string
	Description     *string
	Start           *string
	End             *string
	Progress        *int
	Type            *domain.TaskType
	Status          *domain.Status
	Priority        *domain.Priority
	Category        *string
	Color           *string
	ProjectID       *string
	Dependencies    *[]string
	Assignee        *string
	Tags            *[]string
	EstimatedHours  *float64
	ActualHours     *float64
	ReminderEnabled *bool
	DueReminder     *bool

	ParentIDSet      bool
	ParentID         *string
	ScheduledDateSet bool
	ScheduledDate    *string
	ReminderTimeSet  bool
	ReminderTime     *string
	RecurringSet     bool
	Recurring        map[string]any
}

// apply merges c into t and returns the human-readable change list used in
// activity details.
func (c TaskChanges) apply(t *domain.Task) []string {
	changes := []string{}
	setString(&t.Name, c.Name)
	setString(&t.Description, c.Description)
	setString(&t.Start, c.Start)
	setString(&t.End, c.End)
	if c.Progress != nil {
		if *c.Progress != t.Progress {
			changes = append(changes, "progress: "+strconv.Itoa(*c.Progress)+"%")
		}
		t.Progress = *c.Progress
	}
	if c.Type != nil {
		t.Type = *c.Type
	}
	if c.Status != nil {
		if *c.Status != t.Status {
			changes = append(changes, "status: "+string(*c.Status))
		}
		t.Status = *c.Status
	}
	if c.Priority != nil {
		t.Priority = *c.Priority
	}
	setString(&t.Category, c.Category)
	setString(&t.Color, c.Color)
	setString(&t.ProjectID, c.ProjectID)
	setString(&t.Assignee, c.Assignee)
	if c.Dependencies != nil {
		t.Dependencies = append([]string{}, (*c.Dependencies)...)
	}
	if c.Tags != nil {
		t.Tags = append([]string{}, (*c.Tags)...)
	}
	if c.EstimatedHours != nil {
		t.EstimatedHours = *c.EstimatedHours
	}
	if c.ActualHours != nil {
		t.ActualHours = *c.ActualHours
	}
	if c.ReminderEnabled != nil {
		t.ReminderEnabled = *c.ReminderEnabled
	}
	if c.DueReminder != nil {
		t.DueReminder = *c.DueReminder
	}
	if c.ParentIDSet {
		t.ParentID = copyStr(c.ParentID)
	}
	if c.ScheduledDateSet {
		t.ScheduledDate = copyStr(c.ScheduledDate)
	}
	if c.ReminderTimeSet {
		t.ReminderTime = copyStr(c.ReminderTime)
	}
	if c.RecurringSet {
		t.Recurring = c.Recurring
	}
	t.Normalize()
	return changes
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func copyStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func (e Engine) ListTasks(ctx context.Context, f repo.TaskFilters) ([]domain.Task, error) {
	return e.Repo.ListTasks(ctx, f)
}

func (e Engine) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return e.Repo.GetTask(ctx, id)
}

// CreateTask stores a new task built from defaults, classifier output (when
// enabled in settings) and the supplied fields, in that order of precedence.
func (e Engine) CreateTask(ctx context.Context, c TaskChanges) (domain.Task, error) {
	settings, err := e.Repo.GetSettings(ctx)
	if err != nil {
		return domain.Task{}, fmt.Errorf("read settings: %w", err)
	}
	t := domain.NewTask(e.now())
	if settings.AutoClassifyEnabled() {
		name := t.Name
		if c.Name != nil {
			name = *c.Name
		}
		desc := ""
		if c.Description != nil {
			desc = *c.Description
		}
		cls := classify.Classify(name, desc)
		t.Category = cls.Category
		t.Priority = cls.Priority
		t.EstimatedHours = cls.EstimatedHours
		t.Tags = cls.Tags
	}
	c.apply(&t)
	t.ID = e.newID()

	if _, err := e.snapshot(ctx, "create"); err != nil {
		return domain.Task{}, err
	}
	if err := e.Repo.InsertTask(ctx, t); err != nil {
		return domain.Task{}, err
	}
	e.logActivity(ctx, domain.ActionCreated, t, nil)
	return e.Repo.GetTask(ctx, t.ID)
}

func (e Engine) UpdateTask(ctx context.Context, id string, c TaskChanges) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if _, err := e.snapshot(ctx, "update"); err != nil {
		return domain.Task{}, err
	}
	changes := c.apply(&t)
	if err := e.Repo.UpdateTask(ctx, t); err != nil {
		return domain.Task{}, err
	}
	e.logActivity(ctx, domain.ActionUpdated, t, activity.Details{"changes": changes})
	return e.Repo.GetTask(ctx, id)
}

// BatchUpdate applies c to every listed task. Unknown ids are skipped.
func (e Engine) BatchUpdate(ctx context.Context, ids []string, c TaskChanges) ([]domain.Task, error) {
	all, err := e.allTasks(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Task, len(all))
	for _, t := range all {
		byID[t.ID] = t
	}
	targets := []domain.Task{}
	seen := map[string]bool{}
	for _, id := range ids {
		t, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		targets = append(targets, t)
	}
	if len(targets) == 0 {
		return targets, nil
	}
	if err := e.History.Record(ctx, "batch_update", all); err != nil {
		return nil, err
	}
	updated := make([]domain.Task, 0, len(targets))
	for _, t := range targets {
		changes := c.apply(&t)
		if err := e.Repo.UpdateTask(ctx, t); err != nil {
			return nil, err
		}
		e.logActivity(ctx, domain.ActionUpdated, t, activity.Details{"changes": changes})
		updated = append(updated, t)
	}
	return updated, nil
}

func (e Engine) DeleteTask(ctx context.Context, id string) error {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if _, err := e.snapshot(ctx, "delete"); err != nil {
		return err
	}
	if err := e.Repo.DeleteTask(ctx, id); err != nil {
		return err
	}
	e.logActivity(ctx, domain.ActionDeleted, t, nil)
	return nil
}

// LogTime adds hours to the task's actual hours.
func (e Engine) LogTime(ctx context.Context, id string, hours float64) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if _, err := e.snapshot(ctx, "log_time"); err != nil {
		return domain.Task{}, err
	}
	t.ActualHours += hours
	if err := e.Repo.UpdateTask(ctx, t); err != nil {
		return domain.Task{}, err
	}
	e.logActivity(ctx, domain.ActionLoggedTime, t, activity.Details{"hours": hours})
	return t, nil
}

type AutoMoveResult struct {
	Moved int           `json:"moved"`
	Tasks []domain.Task `json:"tasks"`
}

// AutoMove schedules overdue tasks and tasks whose range covers today. Urgent
// ones land on today, the rest on "soon".
func (e Engine) AutoMove(ctx context.Context) (AutoMoveResult, error) {
	today := e.today()
	all, err := e.allTasks(ctx)
	if err != nil {
		return AutoMoveResult{}, err
	}
	moved := []domain.Task{}
	for _, t := range all {
		if t.Status == domain.StatusCompleted {
			continue
		}
		overdue := t.End < today && (t.ScheduledDate == nil || *t.ScheduledDate != today)
		current := t.ScheduledDate == nil && t.Start <= today && today <= t.End
		if !overdue && !current {
			continue
		}
		target := domain.ScheduledSoon
		if t.Priority.Urgent() {
			target = today
		}
		if t.ScheduledDate != nil && *t.ScheduledDate == target {
			continue
		}
		t.ScheduledDate = &target
		moved = append(moved, t)
	}
	if len(moved) == 0 {
		return AutoMoveResult{Moved: 0, Tasks: moved}, nil
	}
	if err := e.History.Record(ctx, "auto_move", all); err != nil {
		return AutoMoveResult{}, err
	}
	for _, t := range moved {
		if err := e.Repo.UpdateTask(ctx, t); err != nil {
			return AutoMoveResult{}, err
		}
	}
	e.Logger.Info("tasks auto-moved", zap.Int("moved", len(moved)))
	return AutoMoveResult{Moved: len(moved), Tasks: moved}, nil
}
