package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/career-assistant/internal/api/dto"
	"github.com/cuongbtq/career-assistant/internal/api/storage"
)

// PromptHandler manages the caller's saved system prompts
type PromptHandler struct {
	logger  *slog.Logger
	storage *storage.Storage
	listing listing
}

func NewPromptHandler(deps *Dependencies) *PromptHandler {
	return &PromptHandler{logger: deps.Logger, storage: deps.Storage, listing: newListing(deps)}
}

// ListPrompts handles GET /api/v2/prompts
func (h *PromptHandler) ListPrompts(c *gin.Context) {
	var q dto.ListPromptsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "Invalid query parameters", err)
		return
	}

	opts, err := h.listing.options(q.ListQuery)
	if err != nil {
		respondError(c, h.logger, err, "Invalid cursor")
		return
	}

	page, err := h.storage.ListPrompts(c.Request.Context(), CurrentUserID(c), storage.PromptFilter{
		ListOptions:     opts,
		IncludeInactive: q.IncludeInactive,
	})
	if err != nil {
		respondError(c, h.logger, err, "Failed to list prompts")
		return
	}
	c.JSON(http.StatusOK, dto.MapPage(page, dto.NewPromptDTO))
}

// GetPrompt handles GET /api/v2/prompts/:prompt_id
func (h *PromptHandler) GetPrompt(c *gin.Context) {
	prompt, err := h.storage.GetPrompt(c.Request.Context(), CurrentUserID(c), c.Param("prompt_id"))
	if err != nil {
		respondError(c, h.logger, err, "Prompt not found")
		return
	}
	c.JSON(http.StatusOK, dto.NewPromptDTO(*prompt))
}

// CreatePrompt handles POST /api/v2/prompts
func (h *PromptHandler) CreatePrompt(c *gin.Context) {
	var req dto.CreatePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	prompt, err := h.storage.CreatePrompt(c.Request.Context(), CurrentUserID(c), req.Title, req.Content)
	if err != nil {
		respondError(c, h.logger, err, "Failed to create prompt")
		return
	}
	c.JSON(http.StatusCreated, dto.NewPromptDTO(*prompt))
}

// UpdatePrompt handles PATCH /api/v2/prompts/:prompt_id
func (h *PromptHandler) UpdatePrompt(c *gin.Context) {
	var req dto.UpdatePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	prompt, err := h.storage.UpdatePrompt(c.Request.Context(), CurrentUserID(c), c.Param("prompt_id"), storage.PromptUpdate{
		Title:    req.Title,
		Content:  req.Content,
		IsActive: req.IsActive,
	})
	if err != nil {
		respondError(c, h.logger, err, "Prompt not found")
		return
	}
	c.JSON(http.StatusOK, dto.NewPromptDTO(*prompt))
}

// DeletePrompt handles DELETE /api/v2/prompts/:prompt_id (soft delete)
func (h *PromptHandler) DeletePrompt(c *gin.Context) {
	if err := h.storage.DeactivatePrompt(c.Request.Context(), CurrentUserID(c), c.Param("prompt_id")); err != nil {
		respondError(c, h.logger, err, "Prompt not found")
		return
	}
	c.Status(http.StatusNoContent)
}
