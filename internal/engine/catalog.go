package engine

import (
	"context"

	"taskflow/internal/domain"
	"taskflow/internal/repo"
)

// ProjectChanges holds supplied project fields.
type ProjectChanges struct {
	ID          *string
	Name        *string
	Description *string
	Color       *string
}

func (c ProjectChanges) apply(p *domain.Project) {
	setString(&p.Name, c.Name)
	setString(&p.Description, c.Description)
	setString(&p.Color, c.Color)
}

func (e Engine) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return e.Repo.ListProjects(ctx)
}

func (e Engine) CreateProject(ctx context.Context, c ProjectChanges) (domain.Project, error) {
	p := domain.Project{Name: "New Project", Color: domain.DefaultColor}
	c.apply(&p)
	p.ID = e.newID()
	if c.ID != nil && *c.ID != "" {
		p.ID = *c.ID
	}
	if err := e.Repo.InsertProject(ctx, p); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

func (e Engine) UpdateProject(ctx context.Context, id string, c ProjectChanges) (domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, id)
	if err != nil {
		return domain.Project{}, err
	}
	c.apply(&p)
	if err := e.Repo.UpdateProject(ctx, p); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// DeleteProject removes the project and moves its tasks to the default
// project. The task reassignment is undoable.
func (e Engine) DeleteProject(ctx context.Context, id string) error {
	if id == domain.DefaultProjectID {
		return repo.ErrDefaultProject
	}
	if _, err := e.Repo.GetProject(ctx, id); err != nil {
		return err
	}
	all, err := e.allTasks(ctx)
	if err != nil {
		return err
	}
	for _, t := range all {
		if t.ProjectID == id {
			if err := e.History.Record(ctx, "delete_project", all); err != nil {
				return err
			}
			break
		}
	}
	return e.Repo.DeleteProject(ctx, id)
}

func (e Engine) ListLabels(ctx context.Context) ([]domain.Label, error) {
	return e.Repo.ListLabels(ctx)
}

func (e Engine) CreateLabel(ctx context.Context, l domain.Label) (domain.Label, error) {
	if l.ID == "" {
		l.ID = e.newID()
	}
	if l.Color == "" {
		l.Color = domain.DefaultColor
	}
	if err := e.Repo.InsertLabel(ctx, l); err != nil {
		return domain.Label{}, err
	}
	return l, nil
}

// SettingsChanges holds supplied settings keys.
type SettingsChanges struct {
	Theme          *string
	DefaultView    *string
	ShowWeekends   *bool
	WorkHoursStart *int
	WorkHoursEnd   *int
	EnableAI       *bool
	AutoClassify   *bool
}

func (e Engine) Settings(ctx context.Context) (domain.Settings, error) {
	return e.Repo.GetSettings(ctx)
}

// UpdateSettings merges c into the stored settings.
func (e Engine) UpdateSettings(ctx context.Context, c SettingsChanges) (domain.Settings, error) {
	s, err := e.Repo.GetSettings(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	setString(&s.Theme, c.Theme)
	setString(&s.DefaultView, c.DefaultView)
	setBool(&s.ShowWeekends, c.ShowWeekends)
	setInt(&s.WorkHoursStart, c.WorkHoursStart)
	setInt(&s.WorkHoursEnd, c.WorkHoursEnd)
	setBool(&s.EnableAI, c.EnableAI)
	setBool(&s.AutoClassify, c.AutoClassify)
	if err := e.Repo.SaveSettings(ctx, s); err != nil {
		return domain.Settings{}, err
	}
	return s, nil
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
