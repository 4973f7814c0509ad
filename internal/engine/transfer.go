package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"taskflow/internal/domain"
	"taskflow/internal/transfer"
)

// Export is a rendered export ready to be sent as an attachment.
type Export struct {
	ContentType string
	Filename    string
	Data        []byte
}

func (e Engine) Export(ctx context.Context, format string) (Export, error) {
	tasks, err := e.allTasks(ctx)
	if err != nil {
		return Export{}, err
	}
	stamp := e.now().Format(domain.DateLayout)
	if format == transfer.FormatCSV {
		return Export{
			ContentType: "text/csv",
			Filename:    "tasks-" + stamp + ".csv",
			Data:        transfer.CSV(tasks),
		}, nil
	}
	projects, err := e.Repo.ListProjects(ctx)
	if err != nil {
		return Export{}, err
	}
	labels, err := e.Repo.ListLabels(ctx)
	if err != nil {
		return Export{}, err
	}
	settings, err := e.Repo.GetSettings(ctx)
	if err != nil {
		return Export{}, err
	}
	data, err := transfer.JSON(transfer.Document{
		Tasks:      tasks,
		Projects:   projects,
		Labels:     labels,
		Settings:   settings,
		ExportedAt: e.now().UTC(),
	})
	if err != nil {
		return Export{}, fmt.Errorf("encode export: %w", err)
	}
	return Export{ContentType: "application/json", Filename: "tasks-" + stamp + ".json", Data: data}, nil
}

// Import replaces the collections from a full document, or merges a bare task
// array by id. It returns the resulting task count.
func (e Engine) Import(ctx context.Context, data []byte) (int, error) {
	payload, err := transfer.Parse(data)
	if err != nil {
		return 0, err
	}
	existing, err := e.allTasks(ctx)
	if err != nil {
		return 0, err
	}

	var tasks []domain.Task
	if payload.Replace {
		tasks = make([]domain.Task, 0, len(payload.Tasks))
		for _, raw := range payload.Tasks {
			t, err := e.decodeNew(raw)
			if err != nil {
				return 0, err
			}
			tasks = append(tasks, t)
		}
	} else {
		tasks = domain.CloneTasks(existing)
		index := make(map[string]int, len(tasks))
		for i, t := range tasks {
			index[t.ID] = i
		}
		for _, raw := range payload.Tasks {
			if i, ok := index[transfer.TaskID(raw)]; ok {
				merged, err := transfer.Overlay(tasks[i], raw)
				if err != nil {
					return 0, err
				}
				tasks[i] = merged
				continue
			}
			t, err := e.decodeNew(raw)
			if err != nil {
				return 0, err
			}
			index[t.ID] = len(tasks)
			tasks = append(tasks, t)
		}
	}

	if err := e.History.Record(ctx, "import", existing); err != nil {
		return 0, err
	}
	if err := e.Repo.ReplaceTasks(ctx, tasks); err != nil {
		return 0, err
	}
	if payload.Projects != nil {
		if err := e.Repo.ReplaceProjects(ctx, withDefaultProject(payload.Projects)); err != nil {
			return 0, err
		}
	}
	if payload.Labels != nil {
		if err := e.Repo.ReplaceLabels(ctx, payload.Labels); err != nil {
			return 0, err
		}
	}
	e.Logger.Info("tasks imported", zap.Bool("replace", payload.Replace), zap.Int("tasks", len(tasks)))
	return len(tasks), nil
}

// decodeNew overlays raw onto a default task and assigns an id when raw has none.
func (e Engine) decodeNew(raw []byte) (domain.Task, error) {
	t, err := transfer.Overlay(domain.NewTask(e.now()), raw)
	if err != nil {
		return domain.Task{}, err
	}
	if t.ID == "" {
		t.ID = e.newID()
	}
	return t, nil
}

func withDefaultProject(projects []domain.Project) []domain.Project {
	for _, p := range projects {
		if p.ID == domain.DefaultProjectID {
			return projects
		}
	}
	return append([]domain.Project{domain.DefaultProject()}, projects...)
}
