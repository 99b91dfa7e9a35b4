package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/career-assistant/internal/api/dto"
	"github.com/cuongbtq/career-assistant/internal/api/storage"
)

// ConversationHandler handles conversation CRUD
type ConversationHandler struct {
	logger  *slog.Logger
	storage *storage.Storage
	listing listing
}

func NewConversationHandler(deps *Dependencies) *ConversationHandler {
	return &ConversationHandler{logger: deps.Logger, storage: deps.Storage, listing: newListing(deps)}
}

// ListConversations handles GET /api/v2/conversations
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	var q dto.ListConversationsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "Invalid query parameters", err)
		return
	}

	opts, err := h.listing.options(q.ListQuery)
	if err != nil {
		respondError(c, h.logger, err, "Invalid cursor")
		return
	}

	page, err := h.storage.ListConversations(c.Request.Context(), CurrentUserID(c), storage.ConversationFilter{
		ListOptions:     opts,
		IncludeArchived: q.IncludeArchived,
	})
	if err != nil {
		respondError(c, h.logger, err, "Failed to list conversations")
		return
	}
	c.JSON(http.StatusOK, dto.MapPage(page, dto.NewConversationDTO))
}

// CreateConversation handles POST /api/v2/conversations
func (h *ConversationHandler) CreateConversation(c *gin.Context) {
	var req dto.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	conv, err := h.storage.CreateConversation(c.Request.Context(), CurrentUserID(c), req.Title)
	if err != nil {
		respondError(c, h.logger, err, "Failed to create conversation")
		return
	}
	c.JSON(http.StatusCreated, dto.NewConversationDTO(*conv))
}

// GetConversation handles GET /api/v2/conversations/:conversation_id
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	conv, err := h.storage.GetConversation(c.Request.Context(), CurrentUserID(c), c.Param("conversation_id"))
	if err != nil {
		respondError(c, h.logger, err, "Conversation not found")
		return
	}
	c.JSON(http.StatusOK, dto.NewConversationDTO(*conv))
}

// UpdateConversation handles PATCH /api/v2/conversations/:conversation_id
func (h *ConversationHandler) UpdateConversation(c *gin.Context) {
	var req dto.UpdateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	conv, err := h.storage.UpdateConversation(c.Request.Context(), CurrentUserID(c), c.Param("conversation_id"), storage.ConversationUpdate{
		Title:      req.Title,
		IsArchived: req.IsArchived,
	})
	if err != nil {
		respondError(c, h.logger, err, "Conversation not found")
		return
	}
	c.JSON(http.StatusOK, dto.NewConversationDTO(*conv))
}

// DeleteConversation handles DELETE /api/v2/conversations/:conversation_id.
// The conversation is archived, not removed.
func (h *ConversationHandler) DeleteConversation(c *gin.Context) {
	if err := h.storage.ArchiveConversation(c.Request.Context(), CurrentUserID(c), c.Param("conversation_id")); err != nil {
		respondError(c, h.logger, err, "Conversation not found")
		return
	}
	c.Status(http.StatusNoContent)
}
