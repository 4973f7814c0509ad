package server

import (
	"encoding/json"

	"taskflow/internal/domain"
	"taskflow/internal/engine"
)

// Request payloads. Every field is optional: absent fields keep their current
// value on update and take defaults on create.

type TaskRequest struct {
	Name            *string          `json:"name,omitempty"`
	Description     *string          `json:"description,omitempty"`
	Start           *string          `json:"start,omitempty" format:"date"`
	End             *string          `json:"end,omitempty" format:"date"`
	Progress        *int             `json:"progress,omitempty" minimum:"0" maximum:"100"`
	Type            *domain.TaskType `json:"type,omitempty" enum:"task,milestone"`
	Status          *domain.Status   `json:"status,omitempty" enum:"not_started,in_progress,completed,on_hold"`
	Priority        *domain.Priority `json:"priority,omitempty" enum:"low,medium,high,critical"`
	Category        *string          `json:"category,omitempty"`
	Color           *string          `json:"color,omitempty"`
	ProjectID       *string          `json:"projectId,omitempty"`
	ParentID        *string          `json:"parentId,omitempty" nullable:"true"`
	Dependencies    []string         `json:"dependencies,omitempty"`
	Assignee        *string          `json:"assignee,omitempty"`
	Tags            []string         `json:"tags,omitempty"`
	EstimatedHours  *float64         `json:"estimatedHours,omitempty" minimum:"0"`
	ActualHours     *float64         `json:"actualHours,omitempty" minimum:"0"`
	ScheduledDate   *string          `json:"scheduledDate,omitempty" nullable:"true"`
	ReminderTime    *string          `json:"reminderTime,omitempty" nullable:"true"`
	ReminderEnabled *bool            `json:"reminderEnabled,omitempty"`
	DueReminder     *bool            `json:"dueReminder,omitempty"`
	Recurring       any              `json:"recurring,omitempty"`
}

// changes converts the request into engine changes. raw is the decoded JSON
// object and tells an explicit null apart from an absent key.
func (r TaskRequest) changes(raw map[string]json.RawMessage) engine.TaskChanges {
	c := engine.TaskChanges{
		Name:            r.Name,
		Description:     r.Description,
		Start:           r.Start,
		End:             r.End,
		Progress:        r.Progress,
		Type:            r.Type,
		Status:          r.Status,
		Priority:        r.Priority,
		Category:        r.Category,
		Color:           r.Color,
		ProjectID:       r.ProjectID,
		Assignee:        r.Assignee,
		EstimatedHours:  r.EstimatedHours,
		ActualHours:     r.ActualHours,
		ReminderEnabled: r.ReminderEnabled,
		DueReminder:     r.DueReminder,
	}
	if _, ok := raw["dependencies"]; ok {
		deps := append([]string{}, r.Dependencies...)
		c.Dependencies = &deps
	}
	if _, ok := raw["tags"]; ok {
		tags := append([]string{}, r.Tags...)
		c.Tags = &tags
	}
	if v, ok := raw["parentId"]; ok {
		c.ParentIDSet = true
		if !isNullRaw(v) {
			c.ParentID = r.ParentID
		}
	}
	if v, ok := raw["scheduledDate"]; ok {
		c.ScheduledDateSet = true
		if !isNullRaw(v) {
			c.ScheduledDate = r.ScheduledDate
		}
	}
	if v, ok := raw["reminderTime"]; ok {
		c.ReminderTimeSet = true
		if !isNullRaw(v) {
			c.ReminderTime = r.ReminderTime
		}
	}
	if _, ok := raw["recurring"]; ok {
		c.RecurringSet = true
		if m, ok := r.Recurring.(map[string]any); ok {
			c.Recurring = m
		}
	}
	return c
}

type BatchUpdateRequest struct {
	IDs     []string    `json:"ids"`
	Updates TaskRequest `json:"updates"`
}

type LogTimeRequest struct {
	Hours float64 `json:"hours" exclusiveMinimum:"0"`
}

type ClassifyRequest struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

type ProjectRequest struct {
	ID          *string `json:"id,omitempty"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
}

func (r ProjectRequest) changes() engine.ProjectChanges {
	return engine.ProjectChanges{ID: r.ID, Name: r.Name, Description: r.Description, Color: r.Color}
}

type LabelRequest struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Color string `json:"color,omitempty"`
}

type SettingsRequest struct {
	Theme          *string `json:"theme,omitempty"`
	DefaultView    *string `json:"defaultView,omitempty"`
	ShowWeekends   *bool   `json:"showWeekends,omitempty"`
	WorkHoursStart *int    `json:"workHoursStart,omitempty" minimum:"0" maximum:"23"`
	WorkHoursEnd   *int    `json:"workHoursEnd,omitempty" minimum:"0" maximum:"24"`
	EnableAI       *bool   `json:"enableAI,omitempty"`
	AutoClassify   *bool   `json:"autoClassify,omitempty"`
}

func (r SettingsRequest) changes() engine.SettingsChanges {
	return engine.SettingsChanges{
		Theme:          r.Theme,
		DefaultView:    r.DefaultView,
		ShowWeekends:   r.ShowWeekends,
		WorkHoursStart: r.WorkHoursStart,
		WorkHoursEnd:   r.WorkHoursEnd,
		EnableAI:       r.EnableAI,
		AutoClassify:   r.AutoClassify,
	}
}

// Response payloads

type HealthResponse struct {
	Status   string `json:"status" example:"ok"`
	Database string `json:"database" enum:"connected,error"`
}

type ImportResponse struct {
	Success   bool `json:"success"`
	TaskCount int  `json:"taskCount"`
}
