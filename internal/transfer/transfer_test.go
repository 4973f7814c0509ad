package transfer

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/domain"
)

func TestCSVQuotesEverything(t *testing.T) {
	tasks := []domain.Task{{
		ID: "1", Name: `Say "hi"`, Start: "2024-01-01", End: "2024-01-02", Progress: 0,
		Type: domain.TypeTask, Status: domain.StatusNotStarted, Priority: domain.PriorityLow,
		Category: "general", Color: "#fff", Description: "a,b", ProjectID: "default",
		EstimatedHours: 1.5,
	}}
	out := string(CSV(tasks))
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(CSVHeaders, ","), lines[0])
	assert.Equal(t, `"1","Say ""hi""","2024-01-01","2024-01-02","0","task","not_started","low","general","#fff","a,b","","default","1.5","0"`, lines[1])
}

func TestParseFullDocument(t *testing.T) {
	p, err := Parse([]byte(`{"tasks":[{"id":"a"}],"projects":[{"id":"default","name":"P"}],"exportedAt":"2024-01-01T00:00:00Z"}`))
	require.NoError(t, err)
	assert.True(t, p.Replace)
	assert.Len(t, p.Tasks, 1)
	assert.Len(t, p.Projects, 1)
	assert.Nil(t, p.Labels)
}

func TestParseBareArray(t *testing.T) {
	p, err := Parse([]byte(` [{"id":"a"},{"name":"b"}]`))
	require.NoError(t, err)
	assert.False(t, p.Replace)
	assert.Len(t, p.Tasks, 2)
	assert.Equal(t, "a", TaskID(p.Tasks[0]))
	assert.Equal(t, "", TaskID(p.Tasks[1]))
}

func TestParseRejects(t *testing.T) {
	for _, body := range []string{"", "42", `{"projects":[]}`, `{"tasks":3}`, "[1,"} {
		_, err := Parse([]byte(body))
		assert.ErrorIs(t, err, ErrInvalidPayload, body)
	}
}

func TestOverlayKeepsAbsentFields(t *testing.T) {
	base := domain.Task{ID: "a", Name: "old", Progress: 30, Tags: []string{"bug"}, Recurring: map[string]any{"every": "week", "n": 1.0}}
	out, err := Overlay(base, json.RawMessage(`{"name":"new","recurring":{"every":"day"}}`))
	require.NoError(t, err)
	assert.Equal(t, "new", out.Name)
	assert.Equal(t, 30, out.Progress)
	assert.Equal(t, []string{"bug"}, out.Tags)
	assert.Equal(t, map[string]any{"every": "day"}, out.Recurring)
	assert.Equal(t, "old", base.Name)
}
