package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"taskflow/internal/domain"
	"taskflow/internal/engine"
	"taskflow/internal/repo"
)

var taskErrors = []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
	}, func(ctx context.Context, input *struct {
		ProjectID string `query:"projectId"`
		Status    string `query:"status"`
		Priority  string `query:"priority"`
		Category  string `query:"category"`
		ParentID  string `query:"parentId"`
		Assignee  string `query:"assignee"`
	}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		tasks, err := e.ListTasks(ctx, repo.TaskFilters{
			ProjectID: input.ProjectID,
			Status:    input.Status,
			Priority:  input.Priority,
			Category:  input.Category,
			ParentID:  input.ParentID,
			Assignee:  input.Assignee,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: tasks}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get task",
		Errors:      taskErrors,
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.GetTask(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        taskErrors,
	}, func(ctx context.Context, input *struct {
		Body TaskRequest `json:"body" required:"false"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.CreateTask(ctx, input.Body.changes(rawBodyMap(ctx)))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "batch-update-tasks",
		Method:      http.MethodPut,
		Path:        "/tasks/batch",
		Summary:     "Apply the same changes to several tasks",
		Errors:      taskErrors,
	}, func(ctx context.Context, input *struct {
		Body BatchUpdateRequest `json:"body"`
	}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		updates := rawObject(rawBodyMap(ctx)["updates"])
		tasks, err := e.BatchUpdate(ctx, input.Body.IDs, input.Body.Updates.changes(updates))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: tasks}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPut,
		Path:        "/tasks/{id}",
		Summary:     "Update task",
		Errors:      taskErrors,
	}, func(ctx context.Context, input *struct {
		ID   string      `path:"id"`
		Body TaskRequest `json:"body" required:"false"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.UpdateTask(ctx, input.ID, input.Body.changes(rawBodyMap(ctx)))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/tasks/{id}",
		Summary:       "Delete task with its subtasks",
		DefaultStatus: http.StatusNoContent,
		Errors:        taskErrors,
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if err := e.DeleteTask(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "log-time",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/log-time",
		Summary:     "Add hours to a task's actual time",
		Errors:      taskErrors,
	}, func(ctx context.Context, input *struct {
		ID   string         `path:"id"`
		Body LogTimeRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.LogTime(ctx, input.ID, input.Body.Hours)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "auto-move-tasks",
		Method:      http.MethodPost,
		Path:        "/tasks/auto-move",
		Summary:     "Schedule overdue and current tasks",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body engine.AutoMoveResult `json:"body"`
	}, error) {
		res, err := e.AutoMove(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.AutoMoveResult `json:"body"`
		}{Body: res}, nil
	})
}

func registerAI(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "classify",
		Method:      http.MethodPost,
		Path:        "/ai/classify",
		Summary:     "Classify a task from its text",
	}, func(ctx context.Context, input *struct {
		Body ClassifyRequest `json:"body"`
	}) (*struct {
		Body domain.Classification `json:"body"`
	}, error) {
		return &struct {
			Body domain.Classification `json:"body"`
		}{Body: e.Classify(input.Body.Name, input.Body.Description)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "suggestions",
		Method:      http.MethodGet,
		Path:        "/ai/suggestions",
		Summary:     "Rule-based suggestions",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Suggestion `json:"body"`
	}, error) {
		items, err := e.Suggestions(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Suggestion `json:"body"`
		}{Body: items}, nil
	})
}
