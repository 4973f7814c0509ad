package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskflow/internal/activity"
	"taskflow/internal/classify"
	"taskflow/internal/domain"
	"taskflow/internal/history"
	"taskflow/internal/repo"
	"taskflow/internal/report"
	"taskflow/internal/suggest"
)

type Engine struct {
	Repo     repo.Repository
	History  *history.Log
	Activity activity.Writer
	Logger   *zap.Logger
	Now      func() time.Time
	NewID    func() string
}

// New wires an engine over r. maxActivity <= 0 keeps every activity entry.
func New(r repo.Repository, historyCapacity, maxActivity int, logger *zap.Logger) Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := Engine{
		Repo:     r,
		History:  history.New(r, historyCapacity),
		Activity: activity.Writer{Store: r, MaxEntries: maxActivity},
		Logger:   logger,
		Now:      time.Now,
		NewID:    uuid.NewString,
	}
	return e
}

// WithClock returns a copy of e whose history and activity share clock.
// The receiver keeps its own clock.
func (e Engine) WithClock(clock func() time.Time) Engine {
	e.Now = clock
	e.History = e.History.WithClock(clock)
	e.Activity.Now = clock
	return e
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) today() string {
	return e.now().Format(domain.DateLayout)
}

func (e Engine) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}

func (e Engine) allTasks(ctx context.Context) ([]domain.Task, error) {
	return e.Repo.ListTasks(ctx, repo.TaskFilters{})
}

// snapshot records the current task collection before a mutation named action.
func (e Engine) snapshot(ctx context.Context, action string) ([]domain.Task, error) {
	before, err := e.allTasks(ctx)
	if err != nil {
		return nil, err
	}
	if err := e.History.Record(ctx, action, before); err != nil {
		return nil, err
	}
	return before, nil
}

// logActivity appends to the activity log. Failures never fail the caller.
func (e Engine) logActivity(ctx context.Context, action string, t domain.Task, details activity.Details) {
	if _, err := e.Activity.Append(ctx, action, t.ID, t.Name, details); err != nil {
		e.Logger.Warn("activity log append failed",
			zap.String("action", action),
			zap.String("task_id", t.ID),
			zap.Error(err))
	}
}

// Classify runs the keyword classifier.
func (e Engine) Classify(name, description string) domain.Classification {
	return classify.Classify(name, description)
}

func (e Engine) Suggestions(ctx context.Context) ([]domain.Suggestion, error) {
	tasks, err := e.allTasks(ctx)
	if err != nil {
		return nil, err
	}
	return suggest.Generate(tasks, e.today()), nil
}

func (e Engine) Stats(ctx context.Context) (report.Stats, error) {
	tasks, err := e.allTasks(ctx)
	if err != nil {
		return report.Stats{}, err
	}
	entries, err := e.Activity.Recent(ctx, 0)
	if err != nil {
		return report.Stats{}, fmt.Errorf("read activity: %w", err)
	}
	return report.BuildStats(tasks, entries, e.now()), nil
}

func (e Engine) Dashboard(ctx context.Context) (report.Dashboard, error) {
	tasks, err := e.allTasks(ctx)
	if err != nil {
		return report.Dashboard{}, err
	}
	entries, err := e.Activity.Recent(ctx, 10)
	if err != nil {
		return report.Dashboard{}, fmt.Errorf("read activity: %w", err)
	}
	return report.BuildDashboard(tasks, entries, e.now()), nil
}

func (e Engine) RecentActivity(ctx context.Context, limit int) ([]domain.ActivityEntry, error) {
	return e.Activity.Recent(ctx, limit)
}

// HistoryResult is the state after an undo or redo.
type HistoryResult struct {
	Tasks   []domain.Task `json:"tasks"`
	CanUndo bool          `json:"canUndo"`
	CanRedo bool          `json:"canRedo"`
}

func (e Engine) Undo(ctx context.Context) (HistoryResult, error) {
	return e.travel(ctx, e.History.Undo)
}

func (e Engine) Redo(ctx context.Context) (HistoryResult, error) {
	return e.travel(ctx, e.History.Redo)
}

func (e Engine) travel(ctx context.Context, move func(context.Context, []domain.Task, func([]domain.Task) error) (history.Entry, error)) (HistoryResult, error) {
	current, err := e.allTasks(ctx)
	if err != nil {
		return HistoryResult{}, err
	}
	entry, err := move(ctx, current, func(state []domain.Task) error {
		return e.Repo.ReplaceTasks(ctx, state)
	})
	if err != nil {
		return HistoryResult{}, err
	}
	e.Logger.Debug("history restored", zap.String("action", entry.Action), zap.Int("tasks", len(entry.State)))
	status, err := e.History.Status(ctx)
	if err != nil {
		return HistoryResult{}, err
	}
	tasks, err := e.allTasks(ctx)
	if err != nil {
		return HistoryResult{}, err
	}
	return HistoryResult{Tasks: tasks, CanUndo: status.CanUndo, CanRedo: status.CanRedo}, nil
}

func (e Engine) HistoryStatus(ctx context.Context) (history.Status, error) {
	return e.History.Status(ctx)
}

// Health pings the store.
func (e Engine) Health(ctx context.Context) error {
	return e.Repo.Ping(ctx)
}
