package repo

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"taskflow/internal/domain"
)

// StorageDefaultProjectID is how the SQL store keys the default project.
const StorageDefaultProjectID = "00000000-0000-0000-0000-000000000001"

func storageProjectID(id string) string {
	if id == domain.DefaultProjectID || id == "" {
		return StorageDefaultProjectID
	}
	return id
}

func wireProjectID(id string) string {
	if id == StorageDefaultProjectID {
		return domain.DefaultProjectID
	}
	return id
}

// taskRow is a task in storage shape: snake_case columns, JSON text arrays,
// integer booleans.
type taskRow struct {
	ID              string
	Name            string
	Description     string
	Start           string
	End             string
	Progress        int
	Type            string
	Status          string
	Priority        string
	Category        string
	Color           string
	ProjectID       string
	ParentID        sql.NullString
	Dependencies    string
	Assignee        string
	Tags            string
	EstimatedHours  float64
	ActualHours     float64
	ScheduledDate   sql.NullString
	ReminderTime    sql.NullString
	ReminderEnabled int
	DueReminder     int
	Recurring       sql.NullString
}

type column struct {
	wire string
	name string
	// field points into a row and doubles as the Scan destination.
	field func(*taskRow) any
}

// taskColumns is the single wire to storage mapping for tasks.
var taskColumns = []column{
	{"id", "id", func(r *taskRow) any { return &r.ID }},
	{"name", "name", func(r *taskRow) any { return &r.Name }},
	{"description", "description", func(r *taskRow) any { return &r.Description }},
	{"start", "start_date", func(r *taskRow) any { return &r.Start }},
	{"end", "end_date", func(r *taskRow) any { return &r.End }},
	{"progress", "progress", func(r *taskRow) any { return &r.Progress }},
	{"type", "type", func(r *taskRow) any { return &r.Type }},
	{"status", "status", func(r *taskRow) any { return &r.Status }},
	{"priority", "priority", func(r *taskRow) any { return &r.Priority }},
	{"category", "category", func(r *taskRow) any { return &r.Category }},
	{"color", "color", func(r *taskRow) any { return &r.Color }},
	{"projectId", "project_id", func(r *taskRow) any { return &r.ProjectID }},
	{"parentId", "parent_id", func(r *taskRow) any { return &r.ParentID }},
	{"dependencies", "dependencies", func(r *taskRow) any { return &r.Dependencies }},
	{"assignee", "assignee", func(r *taskRow) any { return &r.Assignee }},
	{"tags", "tags", func(r *taskRow) any { return &r.Tags }},
	{"estimatedHours", "estimated_hours", func(r *taskRow) any { return &r.EstimatedHours }},
	{"actualHours", "actual_hours", func(r *taskRow) any { return &r.ActualHours }},
	{"scheduledDate", "scheduled_date", func(r *taskRow) any { return &r.ScheduledDate }},
	{"reminderTime", "reminder_time", func(r *taskRow) any { return &r.ReminderTime }},
	{"reminderEnabled", "reminder_enabled", func(r *taskRow) any { return &r.ReminderEnabled }},
	{"dueReminder", "due_reminder", func(r *taskRow) any { return &r.DueReminder }},
	{"recurring", "recurring", func(r *taskRow) any { return &r.Recurring }},
}

// ColumnFor translates a wire field name to its storage column.
func ColumnFor(wire string) (string, bool) {
	for _, c := range taskColumns {
		if c.wire == wire {
			return c.name, true
		}
	}
	return "", false
}

func columnNames() []string {
	out := make([]string, len(taskColumns))
	for i, c := range taskColumns {
		out[i] = c.name
	}
	return out
}

func (r *taskRow) fields() []any {
	out := make([]any, len(taskColumns))
	for i, c := range taskColumns {
		out[i] = c.field(r)
	}
	return out
}

// values returns the row as Exec arguments in column order.
func (r *taskRow) values() []any {
	out := r.fields()
	for i, f := range out {
		switch v := f.(type) {
		case *string:
			out[i] = *v
		case *int:
			out[i] = *v
		case *float64:
			out[i] = *v
		case *sql.NullString:
			out[i] = *v
		}
	}
	return out
}

func toRow(t domain.Task) (taskRow, error) {
	deps, err := json.Marshal(nonNil(t.Dependencies))
	if err != nil {
		return taskRow{}, fmt.Errorf("encode dependencies: %w", err)
	}
	tags, err := json.Marshal(nonNil(t.Tags))
	if err != nil {
		return taskRow{}, fmt.Errorf("encode tags: %w", err)
	}
	row := taskRow{
		ID:              t.ID,
		Name:            t.Name,
		Description:     t.Description,
		Start:           t.Start,
		End:             t.End,
		Progress:        t.Progress,
		Type:            string(t.Type),
		Status:          string(t.Status),
		Priority:        string(t.Priority),
		Category:        t.Category,
		Color:           t.Color,
		ProjectID:       storageProjectID(t.ProjectID),
		ParentID:        nullString(t.ParentID),
		Dependencies:    string(deps),
		Assignee:        t.Assignee,
		Tags:            string(tags),
		EstimatedHours:  t.EstimatedHours,
		ActualHours:     t.ActualHours,
		ScheduledDate:   nullString(t.ScheduledDate),
		ReminderTime:    nullString(t.ReminderTime),
		ReminderEnabled: boolInt(t.ReminderEnabled),
		DueReminder:     boolInt(t.DueReminder),
	}
	if t.Recurring != nil {
		rec, err := json.Marshal(t.Recurring)
		if err != nil {
			return taskRow{}, fmt.Errorf("encode recurring: %w", err)
		}
		row.Recurring = sql.NullString{String: string(rec), Valid: true}
	}
	return row, nil
}

func (r taskRow) toTask() (domain.Task, error) {
	t := domain.Task{
		ID:              r.ID,
		Name:            r.Name,
		Description:     r.Description,
		Start:           r.Start,
		End:             r.End,
		Progress:        r.Progress,
		Type:            domain.TaskType(r.Type),
		Status:          domain.Status(r.Status),
		Priority:        domain.Priority(r.Priority),
		Category:        r.Category,
		Color:           r.Color,
		ProjectID:       wireProjectID(r.ProjectID),
		ParentID:        stringPtr(r.ParentID),
		Assignee:        r.Assignee,
		EstimatedHours:  r.EstimatedHours,
		ActualHours:     r.ActualHours,
		ScheduledDate:   stringPtr(r.ScheduledDate),
		ReminderTime:    stringPtr(r.ReminderTime),
		ReminderEnabled: r.ReminderEnabled != 0,
		DueReminder:     r.DueReminder != 0,
	}
	if err := json.Unmarshal([]byte(r.Dependencies), &t.Dependencies); err != nil {
		return t, fmt.Errorf("decode dependencies of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Tags), &t.Tags); err != nil {
		return t, fmt.Errorf("decode tags of %s: %w", r.ID, err)
	}
	if r.Recurring.Valid && r.Recurring.String != "" {
		if err := json.Unmarshal([]byte(r.Recurring.String), &t.Recurring); err != nil {
			return t, fmt.Errorf("decode recurring of %s: %w", r.ID, err)
		}
	}
	t.Dependencies = nonNil(t.Dependencies)
	t.Tags = nonNil(t.Tags)
	return t, nil
}

// selectTasks is the SELECT prefix for task rows.
func selectTasks() string {
	return `SELECT ` + strings.Join(columnNames(), ",") + ` FROM tasks`
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
