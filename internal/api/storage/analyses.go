package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/career-assistant/internal/api/model"
	"github.com/cuongbtq/career-assistant/internal/task"
	"github.com/cuongbtq/career-assistant/shared/pagination"
)

const analysisColumns = `id, vacancy_id, user_id, title, analysis_type, prompt_template,
	custom_prompt, result_text, model, tokens_used, created_at`

type AnalysisFilter struct {
	ListOptions
	AnalysisType task.AnalysisType
	VacancyID    string
}

func (s *Storage) ListAnalyses(ctx context.Context, userID string, filter AnalysisFilter) (pagination.Page[model.VacancyAnalysis], error) {
	q := newKeysetQuery(`SELECT `+analysisColumns+` FROM vacancy_analyses`, "created_at", "id").
		Where("user_id = ?", userID).
		After(filter.Cursor).
		Limit(filter.Limit)
	if filter.AnalysisType != "" {
		q.Where("analysis_type = ?", filter.AnalysisType)
	}
	if filter.VacancyID != "" {
		q.Where("vacancy_id = ?", filter.VacancyID)
	}

	var rows []model.VacancyAnalysis
	if err := s.selectKeyset(ctx, &rows, q); err != nil {
		return pagination.Page[model.VacancyAnalysis]{}, mapError(err, "list analyses")
	}

	return pagination.NewPage(rows, filter.Limit, analysisKey)
}

func analysisKey(a model.VacancyAnalysis) (time.Time, string) {
	return a.CreatedAt, a.ID
}

// GetAnalysis returns one of the caller's analyses
func (s *Storage) GetAnalysis(ctx context.Context, userID, id string) (*model.VacancyAnalysis, error) {
	var a model.VacancyAnalysis
	err := s.get(ctx, &a, `
		SELECT `+analysisColumns+` FROM vacancy_analyses
		WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return nil, mapError(err, "get analysis")
	}
	return &a, nil
}

// DeleteAnalysis removes the analysis for good. The vacancy becomes
// "unanalyzed" for that type again and a later analysis task picks it up.
func (s *Storage) DeleteAnalysis(ctx context.Context, userID, id string) error {
	err := s.execAffecting(ctx, `DELETE FROM vacancy_analyses WHERE id = ? AND user_id = ?`, id, userID)
	return mapError(err, "delete analysis")
}

// AnalysesForVacancy returns every analysis of one vacancy made for the user, newest first
func (s *Storage) AnalysesForVacancy(ctx context.Context, userID, vacancyID string) ([]model.VacancyAnalysis, error) {
	rows := []model.VacancyAnalysis{}
	err := s.selectRows(ctx, &rows, `
		SELECT `+analysisColumns+` FROM vacancy_analyses
		WHERE user_id = ? AND vacancy_id = ?
		ORDER BY created_at DESC, id DESC`, userID, vacancyID)
	if err != nil {
		return nil, mapError(err, "list vacancy analyses")
	}
	return rows, nil
}

// UnanalyzedVacancies returns the user's active vacancies, newest first, that
// have no analysis of any of the given types yet
func (s *Storage) UnanalyzedVacancies(ctx context.Context, userID string, types []task.AnalysisType, tiers []string, limit int) ([]model.Vacancy, error) {
	query := `SELECT ` + vacancySummaryColumns + userVacancyFrom + `
		WHERE uv.user_id = ? AND uv.is_active = TRUE AND v.is_active = TRUE`
	args := []any{userID}

	if len(tiers) > 0 {
		query += ` AND v.experience_id IN (?)`
		args = append(args, tiers)
	}
	if len(types) > 0 {
		query += ` AND NOT EXISTS (
			SELECT 1 FROM vacancy_analyses a
			WHERE a.vacancy_id = v.id AND a.user_id = ? AND a.analysis_type IN (?))`
		args = append(args, userID, task.NormalizeTypes(types))
	}
	query += ` ORDER BY v.created_at DESC, v.id DESC LIMIT ?`
	args = append(args, limit)

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to expand query: %w", err)
	}

	rows := []model.Vacancy{}
	if err := s.selectRows(ctx, &rows, query, args...); err != nil {
		return nil, mapError(err, "list unanalyzed vacancies")
	}
	return rows, nil
}

func (s *Storage) CreateAnalysis(ctx context.Context, a *model.VacancyAnalysis) error {
	if a.ID == "" {
		a.ID = newID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}

	_, err := s.exec(ctx, `
		INSERT INTO vacancy_analyses (`+analysisColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.VacancyID, a.UserID, a.Title, a.AnalysisType, a.PromptTemplate,
		a.CustomPrompt, a.ResultText, a.Model, a.TokensUsed, a.CreatedAt,
	)
	return mapError(err, "create analysis")
}
