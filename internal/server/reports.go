package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"taskflow/internal/domain"
	"taskflow/internal/engine"
	"taskflow/internal/history"
	"taskflow/internal/report"
)

func registerHealth(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body HealthResponse `json:"body"`
	}, error) {
		res := HealthResponse{Status: "ok", Database: "connected"}
		if err := e.Health(ctx); err != nil {
			e.Logger.Warn("store ping failed", zap.Error(err))
			res.Database = "error"
		}
		return &struct {
			Body HealthResponse `json:"body"`
		}{Body: res}, nil
	})
}

func registerHistory(api huma.API, e engine.Engine) {
	for _, op := range []struct {
		id, path, code, message string
		move                    func(context.Context) (engine.HistoryResult, error)
	}{
		{"undo", "/undo", "nothing_to_undo", "nothing to undo", e.Undo},
		{"redo", "/redo", "nothing_to_redo", "nothing to redo", e.Redo},
	} {
		op := op
		huma.Register(api, huma.Operation{
			OperationID: op.id,
			Method:      http.MethodPost,
			Path:        op.path,
			Summary:     fmt.Sprintf("%s the last task change", op.id),
			Errors:      []int{http.StatusBadRequest},
		}, func(ctx context.Context, _ *struct{}) (*struct {
			Body engine.HistoryResult `json:"body"`
		}, error) {
			res, err := op.move(ctx)
			if errors.Is(err, history.ErrEmptyStack) {
				return nil, newAPIError(http.StatusBadRequest, op.code, op.message, nil)
			}
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body engine.HistoryResult `json:"body"`
			}{Body: res}, nil
		})
	}

	huma.Register(api, huma.Operation{
		OperationID: "history-status",
		Method:      http.MethodGet,
		Path:        "/history",
		Summary:     "Undo/redo availability",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body history.Status `json:"body"`
	}, error) {
		st, err := e.HistoryStatus(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body history.Status `json:"body"`
		}{Body: st}, nil
	})
}

func registerTransfer(api huma.API, e engine.Engine, maxBody int64) {
	huma.Register(api, huma.Operation{
		OperationID: "export",
		Method:      http.MethodGet,
		Path:        "/export",
		Summary:     "Export tasks as JSON or CSV",
	}, func(ctx context.Context, input *struct {
		Format string `query:"format" enum:"json,csv" default:"json"`
	}) (*struct {
		ContentType        string `header:"Content-Type"`
		ContentDisposition string `header:"Content-Disposition"`
		Body               []byte
	}, error) {
		exp, err := e.Export(ctx, input.Format)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			ContentType        string `header:"Content-Type"`
			ContentDisposition string `header:"Content-Disposition"`
			Body               []byte
		}{
			ContentType:        exp.ContentType,
			ContentDisposition: fmt.Sprintf("attachment; filename=%q", exp.Filename),
			Body:               exp.Data,
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:  "import",
		Method:       http.MethodPost,
		Path:         "/import",
		Summary:      "Import a full export document or merge a task array",
		MaxBodyBytes: maxBody,
		Errors:       []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		RawBody []byte
	}) (*struct {
		Body ImportResponse `json:"body"`
	}, error) {
		n, err := e.Import(ctx, input.RawBody)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ImportResponse `json:"body"`
		}{Body: ImportResponse{Success: true, TaskCount: n}}, nil
	})
}

func registerReports(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "stats",
		Method:      http.MethodGet,
		Path:        "/stats",
		Summary:     "Task statistics",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body report.Stats `json:"body"`
	}, error) {
		st, err := e.Stats(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body report.Stats `json:"body"`
		}{Body: st}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "dashboard",
		Method:      http.MethodGet,
		Path:        "/dashboard",
		Summary:     "Dashboard aggregate",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body report.Dashboard `json:"body"`
	}, error) {
		d, err := e.Dashboard(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body report.Dashboard `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "activity",
		Method:      http.MethodGet,
		Path:        "/activity",
		Summary:     "Recent activity, newest first",
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" default:"50" minimum:"1" maximum:"1000"`
	}) (*struct {
		Body []domain.ActivityEntry `json:"body"`
	}, error) {
		items, err := e.RecentActivity(ctx, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.ActivityEntry `json:"body"`
		}{Body: items}, nil
	})
}
