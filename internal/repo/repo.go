package repo

import (
	"context"
	"errors"

	"taskflow/internal/activity"
	"taskflow/internal/domain"
	"taskflow/internal/history"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDefaultProject = errors.New("cannot delete default project")
)

// Repository persists every collection the service owns. Both backends keep
// task insertion order and behave identically.
type Repository interface {
	ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error)
	GetTask(ctx context.Context, id string) (domain.Task, error)
	InsertTask(ctx context.Context, t domain.Task) error
	// UpdateTask replaces the stored record with t.
	UpdateTask(ctx context.Context, t domain.Task) error
	// DeleteTask removes the task and its children and prunes the id from
	// every remaining dependency list.
	DeleteTask(ctx context.Context, id string) error
	// ReplaceTasks swaps the whole collection, keeping the given order.
	ReplaceTasks(ctx context.Context, tasks []domain.Task) error

	ListProjects(ctx context.Context) ([]domain.Project, error)
	GetProject(ctx context.Context, id string) (domain.Project, error)
	InsertProject(ctx context.Context, p domain.Project) error
	UpdateProject(ctx context.Context, p domain.Project) error
	// DeleteProject reassigns the project's tasks to the default project.
	DeleteProject(ctx context.Context, id string) error
	ReplaceProjects(ctx context.Context, projects []domain.Project) error

	ListLabels(ctx context.Context) ([]domain.Label, error)
	InsertLabel(ctx context.Context, l domain.Label) error
	ReplaceLabels(ctx context.Context, labels []domain.Label) error

	GetSettings(ctx context.Context) (domain.Settings, error)
	SaveSettings(ctx context.Context, s domain.Settings) error

	history.Store
	activity.Store

	Ping(ctx context.Context) error
	Close() error
}

// TaskFilters narrows ListTasks. Empty fields match everything.
type TaskFilters struct {
	ProjectID string
	Status    string
	Priority  string
	Category  string
	ParentID  string
	Assignee  string
}

// wireValues pairs each set filter with its wire field name.
func (f TaskFilters) wireValues() map[string]string {
	out := map[string]string{}
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	set("projectId", f.ProjectID)
	set("status", f.Status)
	set("priority", f.Priority)
	set("category", f.Category)
	set("parentId", f.ParentID)
	set("assignee", f.Assignee)
	return out
}

// Match reports whether t satisfies every set filter.
func (f TaskFilters) Match(t domain.Task) bool {
	parent := ""
	if t.ParentID != nil {
		parent = *t.ParentID
	}
	return matches(f.ProjectID, t.ProjectID) &&
		matches(f.Status, string(t.Status)) &&
		matches(f.Priority, string(t.Priority)) &&
		matches(f.Category, t.Category) &&
		matches(f.ParentID, parent) &&
		matches(f.Assignee, t.Assignee)
}

func matches(want, got string) bool {
	return want == "" || want == got
}

// cascadeDelete removes id and its direct children from tasks and prunes id
// from the dependency lists of what remains.
func cascadeDelete(tasks []domain.Task, id string) ([]domain.Task, bool) {
	found := false
	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID == id {
			found = true
			continue
		}
		if t.ParentID != nil && *t.ParentID == id {
			continue
		}
		out = append(out, t)
	}
	if !found {
		return tasks, false
	}
	for i := range out {
		out[i].Dependencies = pruneDependency(out[i].Dependencies, id)
	}
	return out, true
}

func pruneDependency(deps []string, id string) []string {
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		if d != id {
			out = append(out, d)
		}
	}
	return out
}
