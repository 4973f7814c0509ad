package taskflowsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal taskflow HTTP API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client for the API mounted at baseURL, e.g. http://localhost:3001/api.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Task represents the API task model.
type Task struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	Start           string         `json:"start"`
	End             string         `json:"end"`
	Progress        int            `json:"progress"`
	Type            string         `json:"type"`
	Status          string         `json:"status"`
	Priority        string         `json:"priority"`
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

// TaskQuery filters ListTasks. Empty fields are not sent.
type TaskQuery struct {
	ProjectID string
	Status    string
	Priority  string
	Category  string
	ParentID  string
	Assignee  string
}

func (q TaskQuery) encode() string {
	v := url.Values{}
	for key, val := range map[string]string{
		"projectId": q.ProjectID,
		"status":    q.Status,
		"priority":  q.Priority,
		"category":  q.Category,
		"parentId":  q.ParentID,
		"assignee":  q.Assignee,
	} {
		if val != "" {
			v.Set(key, val)
		}
	}
	return v.Encode()
}

type Classification struct {
	Category       string   `json:"category"`
	Priority       string   `json:"priority"`
	EstimatedHours float64  `json:"estimatedHours"`
	Tags           []string `json:"tags"`
}

type Suggestion struct {
	Type    string   `json:"type"`
	Title   string   `json:"title"`
	Message string   `json:"message"`
	Action  string   `json:"action,omitempty"`
	Tasks   []string `json:"tasks,omitempty"`
}

// Stats is the subset of /stats most callers need.
type Stats struct {
	Total          int            `json:"total"`
	ByStatus       map[string]int `json:"byStatus"`
	ByPriority     map[string]int `json:"byPriority"`
	Overdue        int            `json:"overdue"`
	DueToday       int            `json:"dueToday"`
	DueThisWeek    int            `json:"dueThisWeek"`
	AvgProgress    int            `json:"avgProgress"`
	CompletionRate int            `json:"completionRate"`
	Velocity       int            `json:"velocity"`
}

// HistoryState is returned by Undo and Redo.
type HistoryState struct {
	Tasks   []Task `json:"tasks"`
	CanUndo bool   `json:"canUndo"`
	CanRedo bool   `json:"canRedo"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Code extracts error.code from the response envelope.
func (e *APIError) Code() string {
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	_ = json.Unmarshal([]byte(e.Body), &env)
	return env.Error.Code
}

func (c *Client) ListTasks(ctx context.Context, q TaskQuery) ([]Task, error) {
	endpoint := "tasks"
	if qs := q.encode(); qs != "" {
		endpoint += "?" + qs
	}
	var resp []Task
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) GetTask(ctx context.Context, id string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodGet, "tasks/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// CreateTask creates a task from the given fields. Omitted fields are defaulted
// by the server.
func (c *Client) CreateTask(ctx context.Context, fields map[string]any) (Task, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	var resp Task
	err := c.do(ctx, http.MethodPost, "tasks", fields, &resp)
	return resp, err
}

// UpdateTask merges fields into the task. A nil value clears nullable fields.
func (c *Client) UpdateTask(ctx context.Context, id string, fields map[string]any) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPut, "tasks/"+url.PathEscape(id), fields, &resp)
	return resp, err
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "tasks/"+url.PathEscape(id), nil, nil)
}

func (c *Client) LogTime(ctx context.Context, id string, hours float64) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, "tasks/"+url.PathEscape(id)+"/log-time", map[string]any{"hours": hours}, &resp)
	return resp, err
}

func (c *Client) Classify(ctx context.Context, name, description string) (Classification, error) {
	var resp Classification
	err := c.do(ctx, http.MethodPost, "ai/classify", map[string]any{"name": name, "description": description}, &resp)
	return resp, err
}

func (c *Client) Suggestions(ctx context.Context) ([]Suggestion, error) {
	var resp []Suggestion
	err := c.do(ctx, http.MethodGet, "ai/suggestions", nil, &resp)
	return resp, err
}

func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var resp Stats
	err := c.do(ctx, http.MethodGet, "stats", nil, &resp)
	return resp, err
}

func (c *Client) Undo(ctx context.Context) (HistoryState, error) {
	var resp HistoryState
	err := c.do(ctx, http.MethodPost, "undo", nil, &resp)
	return resp, err
}

func (c *Client) Redo(ctx context.Context) (HistoryState, error) {
	var resp HistoryState
	err := c.do(ctx, http.MethodPost, "redo", nil, &resp)
	return resp, err
}

// Export returns the raw export document in format json or csv.
func (c *Client) Export(ctx context.Context, format string) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodGet, "export?format="+url.QueryEscape(format), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// Import posts a previously exported document, or a bare task array, and
// returns the resulting task count.
func (c *Client) Import(ctx context.Context, data []byte) (int, error) {
	var resp struct {
		TaskCount int `json:"taskCount"`
	}
	err := c.do(ctx, http.MethodPost, "import", json.RawMessage(data), &resp)
	return resp.TaskCount, err
}

// Health reports the database state string from /health.
func (c *Client) Health(ctx context.Context) (string, error) {
	var resp struct {
		Database string `json:"database"`
	}
	err := c.do(ctx, http.MethodGet, "health", nil, &resp)
	return resp.Database, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	resp, err := c.send(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// send performs the request and converts non-2xx responses into *APIError.
func (c *Client) send(ctx context.Context, method, endpoint string, body any) (*http.Response, error) {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	return resp, nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
