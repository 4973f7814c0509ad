package domain

import "time"

// DateLayout is the wire format of task dates.
const DateLayout = "2006-01-02"

// DefaultProjectID is the logical id of the project that cannot be deleted.
const DefaultProjectID = "default"

const (
	DefaultColor          = "#4A90D9"
	DefaultTaskName       = "New Task"
	DefaultCategory       = "general"
	DefaultEstimatedHours = 8
	ScheduledSoon         = "soon"
)

type TaskType string

const (
	TypeTask      TaskType = "task"
	TypeMilestone TaskType = "milestone"
)

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusOnHold     Status = "on_hold"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusNotStarted, StatusInProgress, StatusCompleted, StatusOnHold}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Priorities lists every priority from most to least urgent.
var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// Urgent reports whether p is high or critical.
func (p Priority) Urgent() bool {
	return p == PriorityCritical || p == PriorityHigh
}

type Task struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	Start           string         `json:"start" format:"date"`
	End             string         `json:"end" format:"date"`
	Progress        int            `json:"progress"`
	Type            TaskType       `json:"type" enum:"task,milestone"`
	Status          Status         `json:"status" enum:"not_started,in_progress,completed,on_hold"`
	Priority        Priority       `json:"priority" enum:"low,medium,high,critical"`
	Category        string         `json:"category"`
	Color           string         `json:"color"`
	ProjectID       string         `json:"projectId"`
	ParentID        *string        `json:"parentId"`
	Dependencies    []string       `json:"dependencies"`
	Assignee        string         `json:"assignee"`
	Tags            []string       `json:"tags"`
	EstimatedHours  float64        `json:"estimatedHours"`
	ActualHours     float64        `json:"actualHours"`
	ScheduledDate   *string        `json:"scheduledDate"`
	ReminderTime    *string        `json:"reminderTime"`
	ReminderEnabled bool           `json:"reminderEnabled"`
	DueReminder     bool           `json:"dueReminder"`
	Recurring       map[string]any `json:"recurring"`
}

// NewTask returns a task carrying every default a freshly created task gets.
// The id is left empty.
func NewTask(today time.Time) Task {
	return Task{
		Name:           DefaultTaskName,
		Start:          today.Format(DateLayout),
		End:            today.AddDate(0, 0, 7).Format(DateLayout),
		Type:           TypeTask,
		Status:         StatusNotStarted,
		Priority:       PriorityMedium,
		Category:       DefaultCategory,
		Color:          DefaultColor,
		ProjectID:      DefaultProjectID,
		Dependencies:   []string{},
		Tags:           []string{},
		EstimatedHours: DefaultEstimatedHours,
		DueReminder:    true,
	}
}

// Normalize restores invariants after a merge: milestones are zero-length and
// collections are never nil.
func (t *Task) Normalize() {
	if t.Type == TypeMilestone {
		t.End = t.Start
	}
	if t.Dependencies == nil {
		t.Dependencies = []string{}
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.ProjectID == "" {
		t.ProjectID = DefaultProjectID
	}
}

// Clone returns a deep copy so snapshots never alias live slices.
func (t Task) Clone() Task {
	out := t
	out.ParentID = cloneStr(t.ParentID)
	out.ScheduledDate = cloneStr(t.ScheduledDate)
	out.ReminderTime = cloneStr(t.ReminderTime)
	if t.Dependencies != nil {
		out.Dependencies = append([]string{}, t.Dependencies...)
	}
	if t.Tags != nil {
		out.Tags = append([]string{}, t.Tags...)
	}
	if t.Recurring != nil {
		out.Recurring = make(map[string]any, len(t.Recurring))
		for k, v := range t.Recurring {
			out.Recurring[k] = v
		}
	}
	return out
}

// CloneTasks deep-copies a task collection.
func CloneTasks(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}

// Overdue reports whether the task is incomplete and past its end date.
func (t Task) Overdue(today string) bool {
	return t.End < today && t.Status != StatusCompleted
}

// HasDependency reports whether id is in the task's dependency list.
func (t Task) HasDependency(id string) bool {
	for _, d := range t.Dependencies {
		if d == id {
			return true
		}
	}
	return false
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type Settings struct {
	Theme          string `json:"theme"`
	DefaultView    string `json:"defaultView"`
	ShowWeekends   bool   `json:"showWeekends"`
	WorkHoursStart int    `json:"workHoursStart"`
	WorkHoursEnd   int    `json:"workHoursEnd"`
	EnableAI       bool   `json:"enableAI"`
	AutoClassify   bool   `json:"autoClassify"`
}

// AutoClassifyEnabled reports whether new tasks get classifier defaults.
func (s Settings) AutoClassifyEnabled() bool {
	return s.EnableAI && s.AutoClassify
}

func DefaultSettings() Settings {
	return Settings{
		Theme:          "dark",
		DefaultView:    "gantt",
		ShowWeekends:   true,
		WorkHoursStart: 9,
		WorkHoursEnd:   17,
		EnableAI:       true,
		AutoClassify:   true,
	}
}

func DefaultProject() Project {
	return Project{ID: DefaultProjectID, Name: "My Project", Description: "Default project", Color: DefaultColor}
}

func DefaultLabels() []Label {
	return []Label{
		{ID: "bug", Name: "Bug", Color: "#E74C3C"},
		{ID: "feature", Name: "Feature", Color: "#50C878"},
		{ID: "improvement", Name: "Improvement", Color: "#4A90D9"},
		{ID: "urgent", Name: "Urgent", Color: "#FF6B6B"},
		{ID: "review", Name: "Review", Color: "#9B59B6"},
		{ID: "testing", Name: "Testing", Color: "#FFB347"},
		{ID: "documentation", Name: "Documentation", Color: "#3498DB"},
		{ID: "meeting", Name: "Meeting", Color: "#4ECDC4"},
	}
}

// ActivityEntry records one task lifecycle event.
type ActivityEntry struct {
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	TaskID    string         `json:"taskId"`
	TaskName  string         `json:"taskName"`
	Details   map[string]any `json:"details"`
	Timestamp time.Time      `json:"timestamp" format:"date-time"`
}

const (
	ActionCreated    = "created"
	ActionUpdated    = "updated"
	ActionDeleted    = "deleted"
	ActionLoggedTime = "logged_time"
)

// Suggestion is a rule-based hint for the client.
type Suggestion struct {
	Type    string   `json:"type" enum:"warning,info,suggestion"`
	Title   string   `json:"title"`
	Message string   `json:"message"`
	Action  string   `json:"action,omitempty"`
	Tasks   []string `json:"tasks,omitempty"`
}

// Classification is the keyword classifier's verdict for a piece of text.
type Classification struct {
	Category       string   `json:"category"`
	Priority       Priority `json:"priority"`
	EstimatedHours float64  `json:"estimatedHours"`
	Tags           []string `json:"tags"`
}
