package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/career-assistant/internal/api/domain"
	"github.com/cuongbtq/career-assistant/internal/api/dto"
	"github.com/cuongbtq/career-assistant/internal/api/storage"
	"github.com/cuongbtq/career-assistant/internal/task"
)

// VacancyHandler serves the caller's vacancies and their analyses
type VacancyHandler struct {
	logger   *slog.Logger
	storage  *storage.Storage
	importer VacancyImporter
	listing  listing
}

func NewVacancyHandler(deps *Dependencies) *VacancyHandler {
	return &VacancyHandler{
		logger:   deps.Logger,
		storage:  deps.Storage,
		importer: deps.Importer,
		listing:  newListing(deps),
	}
}

// ListVacancies handles GET /api/v2/vacancies
func (h *VacancyHandler) ListVacancies(c *gin.Context) {
	var q dto.ListVacanciesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "Invalid query parameters", err)
		return
	}

	tiers, err := parseTiers(q.Tiers)
	if err != nil {
		respondError(c, h.logger, err, "Invalid tiers")
		return
	}

	opts, err := h.listing.options(q.ListQuery)
	if err != nil {
		respondError(c, h.logger, err, "Invalid cursor")
		return
	}

	page, err := h.storage.ListVacancies(c.Request.Context(), CurrentUserID(c), storage.VacancyFilter{
		ListOptions:     opts,
		Tiers:           task.ExperienceStrings(tiers),
		FavoritesOnly:   q.FavoritesOnly,
		IncludeInactive: q.IncludeInactive,
	})
	if err != nil {
		respondError(c, h.logger, err, "Failed to list vacancies")
		return
	}
	c.JSON(http.StatusOK, dto.MapPage(page, dto.NewVacancyDTO))
}

// GetVacancy handles GET /api/v2/vacancies/:vacancy_id
func (h *VacancyHandler) GetVacancy(c *gin.Context) {
	ctx := c.Request.Context()
	userID := CurrentUserID(c)

	v, err := h.storage.GetVacancy(ctx, userID, c.Param("vacancy_id"))
	if err != nil {
		respondError(c, h.logger, err, "Vacancy not found")
		return
	}

	analyses, err := h.storage.AnalysesForVacancy(ctx, userID, v.ID)
	if err != nil {
		respondError(c, h.logger, err, "Failed to load analyses")
		return
	}
	c.JSON(http.StatusOK, dto.NewVacancyDetailDTO(v, analyses))
}

// AddFavorite handles PUT /api/v2/vacancies/:vacancy_id/favorite
func (h *VacancyHandler) AddFavorite(c *gin.Context) {
	h.setFavorite(c, true)
}

// RemoveFavorite handles DELETE /api/v2/vacancies/:vacancy_id/favorite
func (h *VacancyHandler) RemoveFavorite(c *gin.Context) {
	h.setFavorite(c, false)
}

func (h *VacancyHandler) setFavorite(c *gin.Context, favorite bool) {
	vacancyID := c.Param("vacancy_id")
	if err := h.storage.SetFavorite(c.Request.Context(), CurrentUserID(c), vacancyID, favorite); err != nil {
		respondError(c, h.logger, err, "Vacancy not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"vacancy_id": vacancyID, "is_favorite": favorite})
}

// DeleteVacancy handles DELETE /api/v2/vacancies/:vacancy_id.
// Only the caller's link is removed; the vacancy stays for other users.
func (h *VacancyHandler) DeleteVacancy(c *gin.Context) {
	if err := h.storage.UnlinkVacancy(c.Request.Context(), CurrentUserID(c), c.Param("vacancy_id")); err != nil {
		respondError(c, h.logger, err, "Vacancy not found")
		return
	}
	c.Status(http.StatusNoContent)
}

// ImportVacancy handles POST /api/v2/vacancies/import/:hh_id
func (h *VacancyHandler) ImportVacancy(c *gin.Context) {
	hhID := strings.TrimSpace(c.Param("hh_id"))
	if hhID == "" {
		badRequest(c, "hh_id is required", nil)
		return
	}

	v, created, err := h.importer.ImportOne(c.Request.Context(), CurrentUserID(c), hhID)
	if err != nil {
		respondError(c, h.logger, err, "Vacancy not found")
		return
	}

	h.logger.Info("Vacancy imported",
		slog.String("hh_id", hhID),
		slog.String("vacancy_id", v.ID),
		slog.Bool("created", created),
	)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, dto.NewImportedVacancyDTO(v, created))
}

// ListAnalyses handles GET /api/v2/vacancy-analyses
func (h *VacancyHandler) ListAnalyses(c *gin.Context) {
	var q dto.ListAnalysesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "Invalid query parameters", err)
		return
	}

	analysisType := task.AnalysisType(q.AnalysisType)
	if analysisType != "" && !analysisType.Valid() {
		badRequest(c, "Invalid analysis_type", fmt.Errorf("unknown analysis type %q", q.AnalysisType))
		return
	}

	if q.VacancyID != "" && !domain.IsValidID(q.VacancyID) {
		badRequest(c, "Invalid vacancy_id", fmt.Errorf("%q is not a valid id", q.VacancyID))
		return
	}

	opts, err := h.listing.options(q.ListQuery)
	if err != nil {
		respondError(c, h.logger, err, "Invalid cursor")
		return
	}

	page, err := h.storage.ListAnalyses(c.Request.Context(), CurrentUserID(c), storage.AnalysisFilter{
		ListOptions:  opts,
		AnalysisType: analysisType,
		VacancyID:    q.VacancyID,
	})
	if err != nil {
		respondError(c, h.logger, err, "Failed to list analyses")
		return
	}
	c.JSON(http.StatusOK, dto.MapPage(page, dto.NewAnalysisDTO))
}

// GetAnalysis handles GET /api/v2/vacancy-analyses/:analysis_id
func (h *VacancyHandler) GetAnalysis(c *gin.Context) {
	a, err := h.storage.GetAnalysis(c.Request.Context(), CurrentUserID(c), c.Param("analysis_id"))
	if err != nil {
		respondError(c, h.logger, err, "Analysis not found")
		return
	}
	c.JSON(http.StatusOK, dto.NewAnalysisDTO(*a))
}

// DeleteAnalysis handles DELETE /api/v2/vacancy-analyses/:analysis_id.
// The vacancy becomes eligible for the same analysis type again.
func (h *VacancyHandler) DeleteAnalysis(c *gin.Context) {
	analysisID := c.Param("analysis_id")
	if err := h.storage.DeleteAnalysis(c.Request.Context(), CurrentUserID(c), analysisID); err != nil {
		respondError(c, h.logger, err, "Analysis not found")
		return
	}

	h.logger.Info("Analysis deleted", slog.String("analysis_id", analysisID))
	c.Status(http.StatusNoContent)
}

// parseTiers accepts repeated and comma separated values. No tiers means no filter.
func parseTiers(raw []string) ([]task.Experience, error) {
	values := splitValues(raw)
	if len(values) == 0 {
		return nil, nil
	}
	return task.ParseExperiences(values)
}

func splitValues(raw []string) []string {
	var out []string
	for _, r := range raw {
		for _, v := range strings.Split(r, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}
