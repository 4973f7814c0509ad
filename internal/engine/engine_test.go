package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"taskflow/internal/db"
	"taskflow/internal/domain"
	"taskflow/internal/engine"
	"taskflow/internal/history"
	"taskflow/internal/migrate"
	"taskflow/internal/repo"
	"taskflow/internal/transfer"
)

var fixedNow = time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	r, err := repo.NewFile(t.TempDir())
	require.NoError(t, err, "open file repo")
	eng := engine.New(r, 0, 200, zap.NewNop()).WithClock(func() time.Time { return fixedNow })
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func newSQLEnv(t *testing.T) testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Dialect: db.SQLite, DataDir: t.TempDir()})
	require.NoError(t, err, "open db")
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	eng := engine.New(repo.NewSQL(conn), 0, 0, zap.NewNop()).WithClock(func() time.Time { return fixedNow })
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func strp(s string) *string { return &s }

func TestCreateAppliesDefaultsAndClassifier(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskChanges{Name: strp("urgent bug fix")})
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, domain.PriorityCritical, task.Priority)
	assert.Equal(t, "development", task.Category)
	assert.Equal(t, "2024-04-10", task.Start)
	assert.Equal(t, "2024-04-17", task.End)
	assert.Equal(t, domain.StatusNotStarted, task.Status)

	cat := "meeting"
	task, err = env.Engine.CreateTask(env.Ctx, engine.TaskChanges{Name: strp("urgent bug fix"), Category: &cat})
	require.NoError(t, err)
	assert.Equal(t, "meeting", task.Category, "supplied category must win")
}

func TestCreateWithoutAutoClassify(t *testing.T) {
	env := newTestEnv(t)
	off := false
	_, err := env.Engine.UpdateSettings(env.Ctx, engine.SettingsChanges{AutoClassify: &off})
	require.NoError(t, err)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskChanges{Name: strp("urgent bug fix")})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCategory, task.Category)
	assert.Equal(t, domain.PriorityMedium, task.Priority)
	assert.Equal(t, float64(8), task.EstimatedHours)
}

func TestMilestoneEndFollowsStart(t *testing.T) {
	env := newTestEnv(t)
	ms := domain.TypeMilestone
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskChanges{Type: &ms, Start: strp("2024-05-01"), End: strp("2024-06-01")})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", task.End)
}

func TestUndoRedoCreate(t *testing.T) {
	for name, env := range map[string]testEnv{"file": newTestEnv(t), "sqlite": newSQLEnv(t)} {
		t.Run(name, func(t *testing.T) {
			created, err := env.Engine.CreateTask(env.Ctx, engine.TaskChanges{Name: strp("write docs")})
			require.NoError(t, err)

			res, err := env.Engine.Undo(env.Ctx)
			require.NoError(t, err)
			assert.Empty(t, res.Tasks)
			assert.False(t, res.CanUndo)
			assert.True(t, res.CanRedo)

			res, err = env.Engine.Redo(env.Ctx)
			require.NoError(t, err)
			require.Len(t, res.Tasks, 1)
			assert.Equal(t, created, res.Tasks[0])

			_, err = env.Engine.Redo(env.Ctx)
			assert.ErrorIs(t, err, history.ErrEmptyStack)
		})
	}
}

func TestUpdateTracksChanges(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskChanges{Name: strp("task")})
	require.NoError(t, err)
	done := domain.StatusCompleted
	progress := 100
	updated, err := env.Engine.UpdateTask(env.Ctx, task.ID, engine.TaskChanges{
		Status:           &done,
		Progress:         &progress,
		ScheduledDateSet: true,
		ScheduledDate:    strp("soon"),
	})
	require.NoError(t, err)
	assert.Equal(t, done, updated.Status)
	assert.Equal(t, 100, updated.Progress)
	assert.Equal(t, "task", updated.Name)
	require.NotNil(t, updated.ScheduledDate)
	assert.Equal(t, "soon", *updated.ScheduledDate)

	cleared, err := env.Engine.UpdateTask(env.Ctx, task.ID, engine.TaskChanges{ScheduledDateSet: true})
	require.NoError(t, err)
	assert.Nil(t, cleared.ScheduledDate, "explicit null should clear scheduledDate")

	entries, err := env.Engine.RecentActivity(env.Ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, domain.ActionUpdated, entries[1].Action)

	stats, err := env.Engine.Stats(env.Ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Velocity)

	_, err = env.Engine.UpdateTask(env.Ctx, "missing", engine.TaskChanges{})
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestBatchUpdateSkipsMissing(t *testing.T) {
	env := newTestEnv(t)
	a, _ := env.Engine.CreateTask(env.Ctx, engine.TaskChanges{Name: strp("a")})
	b, _ := env.Engine.CreateTask(env.Ctx, engine.TaskChanges{Name: strp("b")})
	high := domain.PriorityHigh
	updated, err := env.Engine.BatchUpdate(env.Ctx, []string{a.ID, "ghost", b.ID}, engine.TaskChanges{Priority: &high})
	require.NoError(t, err)
	assert.Len(t, updated, 2)
	for _, id := range []string{a.ID, b.ID} {
		got, err := env.Engine.GetTask(env.Ctx, id)
		require.NoError(t, err)
		assert.Equal(t, high, got.Priority, "task %s", id)
	}
}

func TestDeleteCascadesAndUndo(t *testing.T) {
	env := newTestEnv(t)
	parent, _ := env.Engine.CreateTask(env.Ctx, engine.TaskChanges{Name: strp("parent")})
	child, _ := env.Engine.CreateTask(env.Ctx, engine.TaskChanges{Name: strp("child"), ParentIDSet: true, ParentID: &parent.ID})
	deps := []string{parent.ID}
	other, _ := env.Engine.CreateTask(env.Ctx, engine.TaskChanges{Name: strp("other"), Dependencies: &deps})

	require.NoError(t, env.Engine.DeleteTask(env.Ctx, parent.ID))
	_, err := env.Engine.GetTask(env.Ctx, child.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)
	got, _ := env.Engine.GetTask(env.Ctx, other.ID)
	assert.Empty(t, got.Dependencies)

	res, err := env.Engine.Undo(env.Ctx)
	require.NoError(t, err)
	assert.Len(t, res.Tasks, 3)
}

func TestLogTime(t *testing.T) {
	env := newTestEnv(t)
	task, _ := env.Engine.CreateTask(env.Ctx, engine.TaskChanges{Name: strp("task")})
	task, err := env.Engine.LogTime(env.Ctx, task.ID, 1.5)
	require.NoError(t, err)
	task, err = env.Engine.LogTime(env.Ctx, task.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 3.5, task.ActualHours)

	entries, err := env.Engine.RecentActivity(env.Ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionLoggedTime, entries[0].Action)
	assert.Equal(t, 2.0, entries[0].Details["hours"])
}

func TestAutoMove(t *testing.T) {
	env := newTestEnv(t)
	critical := domain.PriorityCritical
	low := domain.PriorityLow
	done := domain.StatusCompleted
	overdue, _ := env.Engine.CreateTask(env.Ctx, engine.TaskChanges{Name: strp("late"), Priority: &critical, Start: strp("2024-03-01"), End: strp("2024-03-05")})
	current, _ := env.Engine.CreateTask(env.Ctx, engine.TaskChanges{Name: strp("now"), Priority: &low, Start: strp("2024-04-01"), End: strp("2024-04-20")})
	_, _ = env.Engine.CreateTask(env.Ctx, engine.TaskChanges{Name: strp("finished"), Status: &done, Start: strp("2024-03-01"), End: strp("2024-03-05")})
	_, _ = env.Engine.CreateTask(env.Ctx, engine.TaskChanges{Name: strp("future"), Start: strp("2024-05-01"), End: strp("2024-05-05")})

	res, err := env.Engine.AutoMove(env.Ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Moved)

	got, _ := env.Engine.GetTask(env.Ctx, overdue.ID)
	require.NotNil(t, got.ScheduledDate)
	assert.Equal(t, "2024-04-10", *got.ScheduledDate, "overdue critical task is scheduled today")
	got, _ = env.Engine.GetTask(env.Ctx, current.ID)
	require.NotNil(t, got.ScheduledDate)
	assert.Equal(t, domain.ScheduledSoon, *got.ScheduledDate, "low priority task is scheduled soon")

	res, err = env.Engine.AutoMove(env.Ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Moved)
}

func TestAutoMoveSkipsTasksAlreadyAtTarget(t *testing.T) {
	env := newTestEnv(t)
	low := domain.PriorityLow
	late, err := env.Engine.CreateTask(env.Ctx, engine.TaskChanges{Name: strp("late"), Priority: &low, Start: strp("2024-03-01"), End: strp("2024-03-05")})
	require.NoError(t, err)

	res, err := env.Engine.AutoMove(env.Ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Moved)
	got, _ := env.Engine.GetTask(env.Ctx, late.ID)
	require.NotNil(t, got.ScheduledDate)
	assert.Equal(t, domain.ScheduledSoon, *got.ScheduledDate)

	undoBefore, _, err := env.Engine.History.Depth(env.Ctx)
	require.NoError(t, err)
	_, err = env.Engine.Undo(env.Ctx)
	require.NoError(t, err)
	_, err = env.Engine.Redo(env.Ctx)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		res, err = env.Engine.AutoMove(env.Ctx)
		require.NoError(t, err)
		assert.Zero(t, res.Moved)
		assert.Empty(t, res.Tasks)
	}
	undo, redo, err := env.Engine.History.Depth(env.Ctx)
	require.NoError(t, err)
	assert.Equal(t, undoBefore, undo, "no-op auto-move must not record history")
	assert.Zero(t, redo)

	_, err = env.Engine.Undo(env.Ctx)
	require.NoError(t, err)
	st, err := env.Engine.HistoryStatus(env.Ctx)
	require.NoError(t, err)
	assert.True(t, st.CanRedo)
}

func TestExportImportRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	for _, name := range []string{"design mockups", "deploy release", "weekly meeting"} {
		_, err := env.Engine.CreateTask(env.Ctx, engine.TaskChanges{Name: strp(name)})
		require.NoError(t, err)
	}
	before, _ := env.Engine.ListTasks(env.Ctx, repo.TaskFilters{})
	exp, err := env.Engine.Export(env.Ctx, transfer.FormatJSON)
	require.NoError(t, err)

	target := newTestEnv(t)
	n, err := target.Engine.Import(target.Ctx, exp.Data)
	require.NoError(t, err)
	assert.Equal(t, len(before), n)
	after, _ := target.Engine.ListTasks(target.Ctx, repo.TaskFilters{})
	assert.Equal(t, before, after)
}

func TestImportBareArrayMerges(t *testing.T) {
	env := newTestEnv(t)
	existing, _ := env.Engine.CreateTask(env.Ctx, engine.TaskChanges{Name: strp("keep me")})
	body := `[{"id":"` + existing.ID + `","progress":40},{"name":"brand new"}]`
	n, err := env.Engine.Import(env.Ctx, []byte(body))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, _ := env.Engine.GetTask(env.Ctx, existing.ID)
	assert.Equal(t, 40, got.Progress)
	assert.Equal(t, "keep me", got.Name)

	_, err = env.Engine.Import(env.Ctx, []byte(`{"nope":1}`))
	assert.ErrorIs(t, err, transfer.ErrInvalidPayload)
}

func TestDeleteProjectReassignsAndIsUndoable(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectChanges{Name: strp("Side")})
	require.NoError(t, err)
	task, _ := env.Engine.CreateTask(env.Ctx, engine.TaskChanges{Name: strp("t"), ProjectID: &p.ID})

	assert.ErrorIs(t, env.Engine.DeleteProject(env.Ctx, domain.DefaultProjectID), repo.ErrDefaultProject)
	require.NoError(t, env.Engine.DeleteProject(env.Ctx, p.ID))
	got, _ := env.Engine.GetTask(env.Ctx, task.ID)
	assert.Equal(t, domain.DefaultProjectID, got.ProjectID)

	_, err = env.Engine.Undo(env.Ctx)
	require.NoError(t, err)
	got, _ = env.Engine.GetTask(env.Ctx, task.ID)
	assert.Equal(t, p.ID, got.ProjectID)
}

type failingActivity struct{}

func (failingActivity) AppendActivity(context.Context, domain.ActivityEntry, int) error {
	return errors.New("disk full")
}

func (failingActivity) RecentActivity(context.Context, int) ([]domain.ActivityEntry, error) {
	return nil, nil
}

func TestActivityFailureIsLoggedNotReturned(t *testing.T) {
	env := newTestEnv(t)
	core, logs := observer.New(zapcore.WarnLevel)
	env.Engine.Logger = zap.New(core)
	env.Engine.Activity.Store = failingActivity{}

	_, err := env.Engine.CreateTask(env.Ctx, engine.TaskChanges{Name: strp("still works")})
	require.NoError(t, err)
	warns := logs.FilterMessage("activity log append failed").All()
	require.Len(t, warns, 1)
	assert.Equal(t, domain.ActionCreated, warns[0].ContextMap()["action"])
}

func TestSettingsMerge(t *testing.T) {
	env := newTestEnv(t)
	theme := "light"
	s, err := env.Engine.UpdateSettings(env.Ctx, engine.SettingsChanges{Theme: &theme})
	require.NoError(t, err)
	want := domain.DefaultSettings()
	want.Theme = "light"
	assert.Equal(t, want, s)
}

func TestWithClockLeavesReceiverUntouched(t *testing.T) {
	r, err := repo.NewFile(t.TempDir())
	require.NoError(t, err)
	base := engine.New(r, 0, 200, zap.NewNop())
	clocked := base.WithClock(func() time.Time { return fixedNow })

	assert.Equal(t, fixedNow, clocked.History.Now())
	assert.Equal(t, fixedNow, clocked.Activity.Now())
	assert.NotEqual(t, fixedNow, base.History.Now())
	assert.Nil(t, base.Activity.Now)
	assert.Equal(t, base.History.Capacity(), clocked.History.Capacity())

	ctx := context.Background()
	_, err = clocked.CreateTask(ctx, engine.TaskChanges{Name: strp("shared store")})
	require.NoError(t, err)
	st, err := base.HistoryStatus(ctx)
	require.NoError(t, err)
	assert.True(t, st.CanUndo, "clocked copy records into the same history store")
}
