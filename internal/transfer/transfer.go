// Package transfer encodes exports and decodes import payloads.
package transfer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"taskflow/internal/domain"
)

const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

var ErrInvalidPayload = errors.New("invalid import payload")

// CSVHeaders is the fixed column order of CSV exports.
var CSVHeaders = []string{
	"id", "name", "start", "end", "progress", "type", "status", "priority", "category",
	"color", "description", "assignee", "projectId", "estimatedHours", "actualHours",
}

// Document is the full JSON export.
type Document struct {
	Tasks      []domain.Task    `json:"tasks"`
	Projects   []domain.Project `json:"projects"`
	Labels     []domain.Label   `json:"labels"`
	Settings   domain.Settings  `json:"settings"`
	ExportedAt time.Time        `json:"exportedAt"`
}

// JSON renders the export document.
func JSON(doc Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// CSV renders tasks with every value double-quoted and "\n" between lines.
func CSV(tasks []domain.Task) []byte {
	lines := make([]string, 0, len(tasks)+1)
	lines = append(lines, strings.Join(CSVHeaders, ","))
	for _, t := range tasks {
		values := []string{
			t.ID, t.Name, t.Start, t.End, strconv.Itoa(t.Progress), string(t.Type), string(t.Status),
			string(t.Priority), t.Category, t.Color, t.Description, t.Assignee, t.ProjectID,
			formatHours(t.EstimatedHours), formatHours(t.ActualHours),
		}
		for i, v := range values {
			values[i] = quote(v)
		}
		lines = append(lines, strings.Join(values, ","))
	}
	return []byte(strings.Join(lines, "\n"))
}

func quote(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}

// Payload is a decoded import request.
type Payload struct {
	// Replace is true for a full document; false for a bare array merged by id.
	Replace  bool
	Tasks    []json.RawMessage
	Projects []domain.Project
	Labels   []domain.Label
}

// Parse accepts either {"tasks": [...], "projects"?: [...], "labels"?: [...]}
// or a bare array of tasks.
func Parse(data []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Payload{}, fmt.Errorf("%w: empty body", ErrInvalidPayload)
	}
	switch trimmed[0] {
	case '[':
		var tasks []json.RawMessage
		if err := json.Unmarshal(trimmed, &tasks); err != nil {
			return Payload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return Payload{Tasks: tasks}, nil
	case '{':
		var doc struct {
			Tasks    *[]json.RawMessage `json:"tasks"`
			Projects []domain.Project   `json:"projects"`
			Labels   []domain.Label     `json:"labels"`
		}
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return Payload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		if doc.Tasks == nil {
			return Payload{}, fmt.Errorf("%w: tasks is required", ErrInvalidPayload)
		}
		return Payload{Replace: true, Tasks: *doc.Tasks, Projects: doc.Projects, Labels: doc.Labels}, nil
	default:
		return Payload{}, fmt.Errorf("%w: expected an object or an array", ErrInvalidPayload)
	}
}

// Overlay decodes raw on top of base: keys present in raw replace base's
// values, absent keys keep them.
func Overlay(base domain.Task, raw json.RawMessage) (domain.Task, error) {
	out := base.Clone()
	// Recurring is replaced wholesale rather than merged key by key.
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return base, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if _, ok := probe["recurring"]; ok {
		out.Recurring = nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return base, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	out.Normalize()
	return out, nil
}

// TaskID extracts the id of a raw task, if any.
func TaskID(raw json.RawMessage) string {
	var probe struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(raw, &probe)
	return probe.ID
}
