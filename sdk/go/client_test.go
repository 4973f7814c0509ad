package taskflowsdk

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTasksEncodesFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tasks", r.URL.Path)
		assert.Equal(t, "completed", r.URL.Query().Get("status"))
		assert.Equal(t, "p1", r.URL.Query().Get("projectId"))
		assert.Empty(t, r.URL.Query().Get("assignee"))
		w.Write([]byte(`[{"id":"a","name":"A","dependencies":[],"tags":[]}]`))
	}))
	defer srv.Close()

	tasks, err := New(srv.URL+"/api/").ListTasks(context.Background(), TaskQuery{Status: "completed", ProjectID: "p1"})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "A", tasks[0].Name)
}

func TestCreateTaskSendsFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "write docs", body["name"])
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"x","name":"write docs"}`))
	}))
	defer srv.Close()

	task, err := New(srv.URL).CreateTask(context.Background(), map[string]any{"name": "write docs"})
	require.NoError(t, err)
	assert.Equal(t, "x", task.ID)
}

func TestAPIErrorCarriesCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"nothing_to_undo","message":"nothing to undo"}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Undo(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "nothing_to_undo", apiErr.Code())
}

func TestExportAndImportPassRawBytes(t *testing.T) {
	doc := `{"tasks":[{"id":"a"}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/export":
			assert.Equal(t, "csv", r.URL.Query().Get("format"))
			w.Write([]byte(`"id"`))
		case "/import":
			b, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, doc, string(b))
			w.Write([]byte(`{"success":true,"taskCount":1}`))
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	data, err := c.Export(context.Background(), "csv")
	require.NoError(t, err)
	assert.Equal(t, `"id"`, string(data))

	n, err := c.Import(context.Background(), []byte(doc))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
