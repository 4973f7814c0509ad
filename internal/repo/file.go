package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"taskflow/internal/activity"
	"taskflow/internal/domain"
	"taskflow/internal/history"
)

const (
	tasksFile    = "tasks.json"
	historyFile  = "history.json"
	activityFile = "activity.json"
)

// Document is the on-disk shape of tasks.json.
type Document struct {
	Tasks    []domain.Task    `json:"tasks"`
	Projects []domain.Project `json:"projects"`
	Labels   []domain.Label   `json:"labels"`
	Settings domain.Settings  `json:"settings"`
}

func initialDocument() Document {
	return Document{
		Tasks:    []domain.Task{},
		Projects: []domain.Project{domain.DefaultProject()},
		Labels:   domain.DefaultLabels(),
		Settings: domain.DefaultSettings(),
	}
}

type activityDocument struct {
	Activities []domain.ActivityEntry `json:"activities"`
}

// FileRepo keeps each collection group in a JSON document that is read and
// rewritten whole on every call.
type FileRepo struct {
	Dir string
	mu  *sync.Mutex
}

func NewFile(dir string) (FileRepo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return FileRepo{}, fmt.Errorf("create data dir: %w", err)
	}
	return FileRepo{Dir: dir, mu: &sync.Mutex{}}, nil
}

func (r FileRepo) path(name string) string { return filepath.Join(r.Dir, name) }

func (r FileRepo) readJSON(name string, out any) (bool, error) {
	data, err := os.ReadFile(r.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

// writeJSON replaces name atomically through a temp file.
func (r FileRepo) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(r.Dir, name+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), r.path(name))
}

func (r FileRepo) load() (Document, error) {
	doc := initialDocument()
	ok, err := r.readJSON(tasksFile, &doc)
	if err != nil {
		return Document{}, err
	}
	if !ok {
		if err := r.writeJSON(tasksFile, doc); err != nil {
			return Document{}, fmt.Errorf("seed %s: %w", tasksFile, err)
		}
	}
	for i := range doc.Tasks {
		doc.Tasks[i].Dependencies = nonNil(doc.Tasks[i].Dependencies)
		doc.Tasks[i].Tags = nonNil(doc.Tasks[i].Tags)
	}
	return doc, nil
}

func (r FileRepo) view(fn func(doc *Document) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.load()
	if err != nil {
		return err
	}
	return fn(&doc)
}

func (r FileRepo) update(fn func(doc *Document) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.load()
	if err != nil {
		return err
	}
	if err := fn(&doc); err != nil {
		return err
	}
	return r.writeJSON(tasksFile, doc)
}

func (r FileRepo) Ping(context.Context) error {
	return r.view(func(*Document) error { return nil })
}

func (r FileRepo) Close() error { return nil }

func (r FileRepo) ListTasks(_ context.Context, f TaskFilters) ([]domain.Task, error) {
	res := []domain.Task{}
	err := r.view(func(doc *Document) error {
		for _, t := range doc.Tasks {
			if f.Match(t) {
				res = append(res, t)
			}
		}
		return nil
	})
	return res, err
}

func (r FileRepo) GetTask(_ context.Context, id string) (domain.Task, error) {
	var out domain.Task
	err := r.view(func(doc *Document) error {
		i := indexTask(doc.Tasks, id)
		if i < 0 {
			return ErrNotFound
		}
		out = doc.Tasks[i]
		return nil
	})
	return out, err
}

func (r FileRepo) InsertTask(_ context.Context, t domain.Task) error {
	return r.update(func(doc *Document) error {
		if indexTask(doc.Tasks, t.ID) >= 0 {
			return fmt.Errorf("task %s already exists", t.ID)
		}
		doc.Tasks = append(doc.Tasks, t)
		return nil
	})
}

func (r FileRepo) UpdateTask(_ context.Context, t domain.Task) error {
	return r.update(func(doc *Document) error {
		i := indexTask(doc.Tasks, t.ID)
		if i < 0 {
			return ErrNotFound
		}
		doc.Tasks[i] = t
		return nil
	})
}

func (r FileRepo) DeleteTask(_ context.Context, id string) error {
	return r.update(func(doc *Document) error {
		remaining, ok := cascadeDelete(doc.Tasks, id)
		if !ok {
			return ErrNotFound
		}
		doc.Tasks = remaining
		return nil
	})
}

func (r FileRepo) ReplaceTasks(_ context.Context, tasks []domain.Task) error {
	return r.update(func(doc *Document) error {
		doc.Tasks = append([]domain.Task{}, tasks...)
		return nil
	})
}

func indexTask(tasks []domain.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (r FileRepo) ListProjects(context.Context) ([]domain.Project, error) {
	var res []domain.Project
	err := r.view(func(doc *Document) error {
		res = append([]domain.Project{}, doc.Projects...)
		return nil
	})
	return res, err
}

func (r FileRepo) GetProject(_ context.Context, id string) (domain.Project, error) {
	var out domain.Project
	err := r.view(func(doc *Document) error {
		for _, p := range doc.Projects {
			if p.ID == id {
				out = p
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

func (r FileRepo) InsertProject(_ context.Context, p domain.Project) error {
	return r.update(func(doc *Document) error {
		doc.Projects = append(doc.Projects, p)
		return nil
	})
}

func (r FileRepo) UpdateProject(_ context.Context, p domain.Project) error {
	return r.update(func(doc *Document) error {
		for i := range doc.Projects {
			if doc.Projects[i].ID == p.ID {
				doc.Projects[i] = p
				return nil
			}
		}
		return ErrNotFound
	})
}

func (r FileRepo) DeleteProject(_ context.Context, id string) error {
	if id == domain.DefaultProjectID {
		return ErrDefaultProject
	}
	return r.update(func(doc *Document) error {
		kept := doc.Projects[:0]
		found := false
		for _, p := range doc.Projects {
			if p.ID == id {
				found = true
				continue
			}
			kept = append(kept, p)
		}
		if !found {
			return ErrNotFound
		}
		doc.Projects = kept
		for i := range doc.Tasks {
			if doc.Tasks[i].ProjectID == id {
				doc.Tasks[i].ProjectID = domain.DefaultProjectID
			}
		}
		return nil
	})
}

func (r FileRepo) ReplaceProjects(_ context.Context, projects []domain.Project) error {
	return r.update(func(doc *Document) error {
		doc.Projects = append([]domain.Project{}, projects...)
		return nil
	})
}

func (r FileRepo) ListLabels(context.Context) ([]domain.Label, error) {
	var res []domain.Label
	err := r.view(func(doc *Document) error {
		res = append([]domain.Label{}, doc.Labels...)
		return nil
	})
	return res, err
}

func (r FileRepo) InsertLabel(_ context.Context, l domain.Label) error {
	return r.update(func(doc *Document) error {
		doc.Labels = append(doc.Labels, l)
		return nil
	})
}

func (r FileRepo) ReplaceLabels(_ context.Context, labels []domain.Label) error {
	return r.update(func(doc *Document) error {
		doc.Labels = append([]domain.Label{}, labels...)
		return nil
	})
}

func (r FileRepo) GetSettings(context.Context) (domain.Settings, error) {
	var s domain.Settings
	err := r.view(func(doc *Document) error {
		s = doc.Settings
		return nil
	})
	return s, err
}

func (r FileRepo) SaveSettings(_ context.Context, s domain.Settings) error {
	return r.update(func(doc *Document) error {
		doc.Settings = s
		return nil
	})
}

func (r FileRepo) LoadHistory(context.Context) (history.Stacks, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var s history.Stacks
	_, err := r.readJSON(historyFile, &s)
	return s, err
}

func (r FileRepo) SaveHistory(_ context.Context, s history.Stacks) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.Undo == nil {
		s.Undo = []history.Entry{}
	}
	if s.Redo == nil {
		s.Redo = []history.Entry{}
	}
	return r.writeJSON(historyFile, s)
}

func (r FileRepo) AppendActivity(_ context.Context, e domain.ActivityEntry, maxEntries int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var doc activityDocument
	if _, err := r.readJSON(activityFile, &doc); err != nil {
		return err
	}
	doc.Activities = activity.Prepend(doc.Activities, e, maxEntries)
	return r.writeJSON(activityFile, doc)
}

func (r FileRepo) RecentActivity(_ context.Context, limit int) ([]domain.ActivityEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var doc activityDocument
	if _, err := r.readJSON(activityFile, &doc); err != nil {
		return nil, err
	}
	return activity.Head(doc.Activities, limit), nil
}
