package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/db"
	"taskflow/internal/domain"
	"taskflow/internal/history"
	"taskflow/internal/migrate"
)

type backend struct {
	name string
	open func(t *testing.T) Repository
}

func backends() []backend {
	return []backend{
		{name: "file", open: func(t *testing.T) Repository {
			r, err := NewFile(t.TempDir())
			require.NoError(t, err)
			return r
		}},
		{name: "sqlite", open: func(t *testing.T) Repository {
			conn, err := db.Open(db.Config{Dialect: db.SQLite, DataDir: t.TempDir()})
			require.NoError(t, err)
			require.NoError(t, migrate.Migrate(conn))
			t.Cleanup(func() { conn.Close() })
			return NewSQL(conn)
		}},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, ctx context.Context, r Repository)) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			fn(t, context.Background(), b.open(t))
		})
	}
}

func newTask(id string) domain.Task {
	t := domain.NewTask(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	t.ID = id
	t.Name = "task " + id
	return t
}

func strp(s string) *string { return &s }

func TestTaskCRUD(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, r Repository) {
		task := newTask("a")
		task.ScheduledDate = strp(domain.ScheduledSoon)
		task.Recurring = map[string]any{"frequency": "weekly"}
		task.Tags = []string{"bug"}
		require.NoError(t, r.InsertTask(ctx, task))

		got, err := r.GetTask(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, task, got)

		task.Progress = 60
		task.Status = domain.StatusInProgress
		task.ParentID = strp("root")
		require.NoError(t, r.UpdateTask(ctx, task))
		got, err = r.GetTask(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, task, got)

		_, err = r.GetTask(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, r.UpdateTask(ctx, newTask("missing")), ErrNotFound)
		assert.ErrorIs(t, r.DeleteTask(ctx, "missing"), ErrNotFound)
	})
}

func TestListTasksKeepsOrderAndFilters(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, r Repository) {
		for _, id := range []string{"z", "b", "m"} {
			task := newTask(id)
			if id == "b" {
				task.Status = domain.StatusCompleted
				task.ProjectID = "side"
			}
			require.NoError(t, r.InsertTask(ctx, task))
		}
		all, err := r.ListTasks(ctx, TaskFilters{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"z", "b", "m"}, []string{all[0].ID, all[1].ID, all[2].ID})

		done, err := r.ListTasks(ctx, TaskFilters{Status: string(domain.StatusCompleted)})
		require.NoError(t, err)
		require.Len(t, done, 1)
		assert.Equal(t, "b", done[0].ID)

		def, err := r.ListTasks(ctx, TaskFilters{ProjectID: domain.DefaultProjectID})
		require.NoError(t, err)
		assert.Len(t, def, 2)
	})
}

func TestDeleteCascades(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, r Repository) {
		parent := newTask("parent")
		child := newTask("child")
		child.ParentID = strp("parent")
		dependent := newTask("dependent")
		dependent.Dependencies = []string{"other", "parent"}
		for _, task := range []domain.Task{parent, child, dependent} {
			require.NoError(t, r.InsertTask(ctx, task))
		}

		require.NoError(t, r.DeleteTask(ctx, "parent"))

		remaining, err := r.ListTasks(ctx, TaskFilters{})
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		assert.Equal(t, "dependent", remaining[0].ID)
		assert.Equal(t, []string{"other"}, remaining[0].Dependencies)
	})
}

func TestReplaceTasks(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, r Repository) {
		require.NoError(t, r.InsertTask(ctx, newTask("old")))
		snapshot := []domain.Task{newTask("y"), newTask("x")}
		require.NoError(t, r.ReplaceTasks(ctx, snapshot))
		got, err := r.ListTasks(ctx, TaskFilters{})
		require.NoError(t, err)
		assert.Equal(t, snapshot, got)
	})
}

func TestProjects(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, r Repository) {
		projects, err := r.ListProjects(ctx)
		require.NoError(t, err)
		require.Len(t, projects, 1)
		assert.Equal(t, domain.DefaultProject(), projects[0])

		side := domain.Project{ID: "side", Name: "Side", Color: "#fff"}
		require.NoError(t, r.InsertProject(ctx, side))
		side.Description = "renamed"
		require.NoError(t, r.UpdateProject(ctx, side))
		got, err := r.GetProject(ctx, "side")
		require.NoError(t, err)
		assert.Equal(t, side, got)

		task := newTask("t")
		task.ProjectID = "side"
		require.NoError(t, r.InsertTask(ctx, task))

		assert.ErrorIs(t, r.DeleteProject(ctx, domain.DefaultProjectID), ErrDefaultProject)
		require.NoError(t, r.DeleteProject(ctx, "side"))
		assert.ErrorIs(t, r.DeleteProject(ctx, "side"), ErrNotFound)

		moved, err := r.GetTask(ctx, "t")
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultProjectID, moved.ProjectID)
	})
}

func TestLabelsAndSettings(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, r Repository) {
		labels, err := r.ListLabels(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultLabels(), labels)

		require.NoError(t, r.InsertLabel(ctx, domain.Label{ID: "ops", Name: "ops", Color: "#000"}))
		labels, err = r.ListLabels(ctx)
		require.NoError(t, err)
		assert.Equal(t, "ops", labels[len(labels)-1].ID)

		s, err := r.GetSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultSettings(), s)
		s.Theme = "light"
		s.AutoClassify = false
		require.NoError(t, r.SaveSettings(ctx, s))
		got, err := r.GetSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, s, got)
	})
}

func TestHistoryPersistence(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, r Repository) {
		empty, err := r.LoadHistory(ctx)
		require.NoError(t, err)
		assert.Empty(t, empty.Undo)

		ts := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
		stacks := history.Stacks{Undo: []history.Entry{{Action: "create", State: []domain.Task{newTask("a")}, Timestamp: ts}}}
		require.NoError(t, r.SaveHistory(ctx, stacks))
		got, err := r.LoadHistory(ctx)
		require.NoError(t, err)
		require.Len(t, got.Undo, 1)
		assert.Equal(t, stacks.Undo[0].State, got.Undo[0].State)
		assert.True(t, ts.Equal(got.Undo[0].Timestamp))
	})
}

func TestActivityPersistence(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, r Repository) {
		base := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
		for i, id := range []string{"a", "b", "c"} {
			e := domain.ActivityEntry{
				ID:        "act-" + id,
				Action:    domain.ActionCreated,
				TaskID:    id,
				TaskName:  id,
				Details:   map[string]any{"n": float64(i)},
				Timestamp: base.Add(time.Duration(i) * time.Minute),
			}
			require.NoError(t, r.AppendActivity(ctx, e, 2))
		}
		got, err := r.RecentActivity(ctx, 0)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "c", got[0].TaskID)
		assert.Equal(t, "b", got[1].TaskID)
		assert.Equal(t, float64(2), got[0].Details["n"])

		one, err := r.RecentActivity(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, one, 1)
	})
}

func TestColumnFor(t *testing.T) {
	col, ok := ColumnFor("projectId")
	assert.True(t, ok)
	assert.Equal(t, "project_id", col)
	col, _ = ColumnFor("end")
	assert.Equal(t, "end_date", col)
	_, ok = ColumnFor("bogus")
	assert.False(t, ok)
}

func TestPingFile(t *testing.T) {
	r, err := NewFile(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, r.Ping(context.Background()))
}
