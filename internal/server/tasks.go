package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/taskpilot/internal/agent/core"
)

// TaskRunner is the slice of the orchestrator the HTTP layer needs.
type TaskRunner interface {
	RunTask(ctx context.Context, task string, maxRetries int) (core.TaskReport, error)
}

// TaskHandler exposes the task pipeline over HTTP.
type TaskHandler struct {
	Orch           TaskRunner
	DefaultRetries int
}

type runTaskRequest struct {
	Task       string `json:"task"`
	MaxRetries *int   `json:"max_retries,omitempty"`
}

type runTaskResponse struct {
	Task         string                  `json:"task"`
	Plan         core.Plan               `json:"plan"`
	Results      []core.StepResult       `json:"results"`
	Verification core.VerificationReport `json:"verification"`
}

// Register wires the handler's routes onto the echo instance.
func (h *TaskHandler) Register(e *echo.Echo) {
	e.POST("/run-task", h.runTask)
	e.GET("/health", h.health)
	e.GET("/", h.root)
}

func (h *TaskHandler) runTask(c echo.Context) error {
	var req runTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Task == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "task is required")
	}

	maxRetries := h.DefaultRetries
	if req.MaxRetries != nil {
		if *req.MaxRetries < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "max_retries must be >= 0")
		}
		maxRetries = *req.MaxRetries
	}

	report, err := h.Orch.RunTask(c.Request().Context(), req.Task, maxRetries)
	if err != nil {
		if errors.Is(err, core.ErrEmptyPlan) {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"error":       "could not derive an actionable plan from the task",
				"suggestions": core.PlanningSuggestions,
			})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, runTaskResponse{
		Task:         report.Task,
		Plan:         report.Plan,
		Results:      report.Results,
		Verification: report.Verification,
	})
}

func (h *TaskHandler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"service": serviceName,
	})
}

func (h *TaskHandler) root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"service":     serviceName,
		"version":     serviceVersion,
		"description": "plan/execute/verify task automation pipeline",
		"endpoints":   []string{"POST /run-task", "GET /health", "GET /metrics"},
	})
}
