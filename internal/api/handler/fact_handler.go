package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/career-assistant/internal/api/domain"
	"github.com/cuongbtq/career-assistant/internal/api/dto"
	"github.com/cuongbtq/career-assistant/internal/api/model"
	"github.com/cuongbtq/career-assistant/internal/api/storage"
)

// FactHandler manages the facts remembered about the caller
type FactHandler struct {
	logger  *slog.Logger
	storage *storage.Storage
	listing listing
}

func NewFactHandler(deps *Dependencies) *FactHandler {
	return &FactHandler{logger: deps.Logger, storage: deps.Storage, listing: newListing(deps)}
}

// ListFacts handles GET /api/v2/facts
func (h *FactHandler) ListFacts(c *gin.Context) {
	var q dto.ListFactsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "Invalid query parameters", err)
		return
	}

	category := domain.FactCategory(q.Category)
	if category != "" && !category.Valid() {
		badRequest(c, "Invalid category", fmt.Errorf("unknown category %q", q.Category))
		return
	}
	source := domain.FactSource(q.SourceType)
	if source != "" && !source.Valid() {
		badRequest(c, "Invalid source_type", fmt.Errorf("unknown source_type %q", q.SourceType))
		return
	}

	opts, err := h.listing.options(q.ListQuery)
	if err != nil {
		respondError(c, h.logger, err, "Invalid cursor")
		return
	}

	page, err := h.storage.ListFacts(c.Request.Context(), CurrentUserID(c), storage.FactFilter{
		ListOptions:     opts,
		Category:        category,
		SourceType:      source,
		IncludeInactive: q.IncludeInactive,
	})
	if err != nil {
		respondError(c, h.logger, err, "Failed to list facts")
		return
	}
	c.JSON(http.StatusOK, dto.MapPage(page, dto.NewFactDTO))
}

// GetFact handles GET /api/v2/facts/:fact_id
func (h *FactHandler) GetFact(c *gin.Context) {
	fact, err := h.storage.GetFact(c.Request.Context(), CurrentUserID(c), c.Param("fact_id"))
	if err != nil {
		respondError(c, h.logger, err, "Fact not found")
		return
	}
	c.JSON(http.StatusOK, dto.NewFactDTO(*fact))
}

// CreateFact handles POST /api/v2/facts
func (h *FactHandler) CreateFact(c *gin.Context) {
	var req dto.CreateFactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	fact := &model.Fact{
		UserID:     CurrentUserID(c),
		Content:    req.Content,
		Category:   domain.FactCategory(req.Category),
		SourceType: domain.FactSource(req.SourceType),
		Confidence: 1.0,
	}
	if fact.SourceType == "" {
		fact.SourceType = domain.FactSourceUserProvided
	}
	if req.Confidence != nil {
		fact.Confidence = *req.Confidence
	}

	if !fact.Category.Valid() {
		badRequest(c, "Invalid category", fmt.Errorf("unknown category %q", req.Category))
		return
	}
	if !fact.SourceType.Valid() {
		badRequest(c, "Invalid source_type", fmt.Errorf("unknown source_type %q", req.SourceType))
		return
	}

	if err := h.storage.CreateFact(c.Request.Context(), fact); err != nil {
		respondError(c, h.logger, err, "Failed to create fact")
		return
	}
	c.JSON(http.StatusCreated, dto.NewFactDTO(*fact))
}

// UpdateFact handles PATCH /api/v2/facts/:fact_id
func (h *FactHandler) UpdateFact(c *gin.Context) {
	var req dto.UpdateFactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	upd := storage.FactUpdate{Content: req.Content, Confidence: req.Confidence, IsActive: req.IsActive}
	if req.Category != nil {
		category := domain.FactCategory(*req.Category)
		if !category.Valid() {
			badRequest(c, "Invalid category", fmt.Errorf("unknown category %q", *req.Category))
			return
		}
		upd.Category = &category
	}

	fact, err := h.storage.UpdateFact(c.Request.Context(), CurrentUserID(c), c.Param("fact_id"), upd)
	if err != nil {
		respondError(c, h.logger, err, "Fact not found")
		return
	}
	c.JSON(http.StatusOK, dto.NewFactDTO(*fact))
}

// DeleteFact handles DELETE /api/v2/facts/:fact_id (soft delete)
func (h *FactHandler) DeleteFact(c *gin.Context) {
	if err := h.storage.DeactivateFact(c.Request.Context(), CurrentUserID(c), c.Param("fact_id")); err != nil {
		respondError(c, h.logger, err, "Fact not found")
		return
	}
	c.Status(http.StatusNoContent)
}
