package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/career-assistant/internal/api/domain"
	"github.com/cuongbtq/career-assistant/internal/api/dto"
	"github.com/cuongbtq/career-assistant/internal/task"
)

// TaskHandler starts background tasks and reports their status
type TaskHandler struct {
	logger     *slog.Logger
	dispatcher TaskDispatcher
}

func NewTaskHandler(deps *Dependencies) *TaskHandler {
	return &TaskHandler{logger: deps.Logger, dispatcher: deps.Dispatcher}
}

// ImportVacancies handles POST /api/v2/tasks/import_vacancies
func (h *TaskHandler) ImportVacancies(c *gin.Context) {
	var q dto.ImportTaskQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "Invalid query parameters", err)
		return
	}

	tiers, err := parseTiers(q.Tiers)
	if err != nil {
		respondError(c, h.logger, err, "Invalid tiers")
		return
	}

	params := task.ImportParams{Query: q.Query, Tiers: tiers}
	handle, err := h.dispatcher.Dispatch(c.Request.Context(), task.KindImport, CurrentUserID(c), params)
	if err != nil {
		respondError(c, h.logger, err, "Failed to start import")
		return
	}

	c.JSON(http.StatusAccepted, dto.ImportTaskResponse{
		TaskID: handle.TaskID,
		Status: string(handle.Status),
		Query:  q.Query,
	})
}

// AnalyzeVacancies handles POST /api/v2/tasks/analysis_vacancies
func (h *TaskHandler) AnalyzeVacancies(c *gin.Context) {
	var q dto.AnalysisTaskQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "Invalid query parameters", err)
		return
	}

	tiers, err := parseTiers(q.Tiers)
	if err != nil {
		respondError(c, h.logger, err, "Invalid tiers")
		return
	}

	names := splitValues(q.Analysis)
	types := make([]task.AnalysisType, len(names))
	for i, name := range names {
		types[i] = task.AnalysisType(name)
	}

	limit := task.DefaultAnalysisLimit
	if q.Limit != nil {
		limit = *q.Limit
	}

	params := task.AnalysisParams{
		Types:        types,
		Limit:        limit,
		Tiers:        tiers,
		CustomPrompt: strings.TrimSpace(q.CustomPrompt),
	}
	handle, err := h.dispatcher.Dispatch(c.Request.Context(), task.KindAnalysis, CurrentUserID(c), params)
	if err != nil {
		respondError(c, h.logger, err, "Failed to start analysis")
		return
	}

	c.JSON(http.StatusAccepted, dto.AnalysisTaskResponse{
		TaskID:   handle.TaskID,
		Status:   string(handle.Status),
		Analysis: task.NormalizeTypes(types),
	})
}

// GetTask handles GET /api/v2/tasks/*task_id. Task ids contain colons and
// free-form queries, hence the catch-all parameter.
func (h *TaskHandler) GetTask(c *gin.Context) {
	taskID := strings.TrimPrefix(c.Param("task_id"), "/")
	if taskID == "" {
		badRequest(c, "task_id is required", nil)
		return
	}

	handle, err := h.dispatcher.Status(c.Request.Context(), taskID)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get task")
		return
	}

	if handle.UserID != "" && handle.UserID != CurrentUserID(c) {
		respondError(c, h.logger, domain.ErrForbidden, "Task belongs to another user")
		return
	}

	c.JSON(http.StatusOK, handle)
}

// HealthHandler reports the state of infrastructure dependencies
type HealthHandler struct {
	checks map[string]HealthChecker
}

func NewHealthHandler(deps *Dependencies) *HealthHandler {
	return &HealthHandler{checks: deps.HealthChecks}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	status := http.StatusOK
	components := make(map[string]string, len(h.checks))

	for name, check := range h.checks {
		if err := check.HealthCheck(c.Request.Context()); err != nil {
			components[name] = "unhealthy: " + err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		components[name] = "healthy"
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}
	c.JSON(status, gin.H{
		"status":     overall,
		"service":    "career-assistant-api",
		"components": components,
	})
}
