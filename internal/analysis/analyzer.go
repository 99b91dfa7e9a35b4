// Package analysis runs batches of LLM vacancy analyses for a user.
package analysis

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/career-assistant/internal/api/model"
	"github.com/cuongbtq/career-assistant/internal/task"
	"github.com/cuongbtq/career-assistant/shared/llm"
)

type Store interface {
	UnanalyzedVacancies(ctx context.Context, userID string, types []task.AnalysisType, tiers []string, limit int) ([]model.Vacancy, error)
	CreateAnalysis(ctx context.Context, a *model.VacancyAnalysis) error
	UserResume(ctx context.Context, userID string) (string, error)
}

// Result is stored as the analysis task result
type Result struct {
	Analyzed  int    `json:"analyzed"`
	Vacancies int    `json:"vacancies"`
	Skipped   int    `json:"skipped"`
	UserID    string `json:"user_id"`
}

// Progress is reported after every stored analysis
type Progress struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

type Analyzer struct {
	store     Store
	generator llm.Generator
	logger    *slog.Logger
}

func New(store Store, generator llm.Generator, logger *slog.Logger) *Analyzer {
	return &Analyzer{store: store, generator: generator, logger: logger}
}

// vacancyContent is the user message sent to the model
type vacancyContent struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	SalaryFrom   *int64 `json:"salary_from,omitempty"`
	SalaryTo     *int64 `json:"salary_to,omitempty"`
	Currency     string `json:"currency,omitempty"`
	SalaryGross  *bool  `json:"salary_gross,omitempty"`
	Employer     string `json:"employer,omitempty"`
	ExperienceID string `json:"experience_id,omitempty"`
	AreaName     string `json:"area_name,omitempty"`
	ScheduleID   string `json:"schedule_id,omitempty"`
	EmploymentID string `json:"employment_id,omitempty"`
	UserResume   string `json:"user_resume,omitempty"`
}

// Run analyzes up to params.Limit of the user's newest vacancies that have no
// analysis of the requested types. Every analysis is stored as soon as the
// model answers, so a retried run continues where the failed one stopped.
func (a *Analyzer) Run(ctx context.Context, userID string, params task.AnalysisParams, onProgress func(Progress)) (*Result, error) {
	names := task.NormalizeTypes(params.Types)
	log := a.logger.With(slog.String("user_id", userID), slog.Any("types", names))

	types := make([]task.AnalysisType, 0, len(names))
	tpls := make([]Template, 0, len(names))
	needsResume := false
	for _, name := range names {
		tpl, err := templateFor(task.AnalysisType(name), params.CustomPrompt)
		if err != nil {
			return nil, err
		}
		needsResume = needsResume || tpl.NeedsResume
		types = append(types, tpl.Type)
		tpls = append(tpls, tpl)
	}

	var resume string
	if needsResume {
		var err error
		if resume, err = a.store.UserResume(ctx, userID); err != nil {
			return nil, fmt.Errorf("failed to load resume: %w", err)
		}
	}

	vacancies, err := a.store.UnanalyzedVacancies(ctx, userID, types, task.ExperienceStrings(params.Tiers), params.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select vacancies: %w", err)
	}

	res := &Result{Vacancies: len(vacancies), UserID: userID}
	total := len(vacancies) * len(tpls)
	log.Info("Analysis batch started", slog.Int("vacancies", len(vacancies)))

	for _, v := range vacancies {
		if !v.Description.Valid || v.Description.String == "" {
			res.Skipped++
			log.Warn("Vacancy has no description, skipping", slog.String("vacancy_id", v.ID))
			continue
		}

		for _, tpl := range tpls {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			analysis, err := a.analyze(ctx, userID, &v, tpl, resume, params.CustomPrompt)
			if err != nil {
				return nil, fmt.Errorf("failed to analyze vacancy %s: %w", v.ID, err)
			}
			if err := a.store.CreateAnalysis(ctx, analysis); err != nil {
				return nil, fmt.Errorf("failed to store analysis: %w", err)
			}

			res.Analyzed++
			if onProgress != nil {
				onProgress(Progress{Processed: res.Analyzed, Total: total})
			}
		}
	}

	log.Info("Analysis batch finished",
		slog.Int("analyzed", res.Analyzed),
		slog.Int("skipped", res.Skipped),
	)
	return res, nil
}

func (a *Analyzer) analyze(ctx context.Context, userID string, v *model.Vacancy, tpl Template, resume, customPrompt string) (*model.VacancyAnalysis, error) {
	content := contentFor(v)
	if tpl.NeedsResume {
		content.UserResume = resume
	}

	body, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("failed to encode vacancy: %w", err)
	}

	resp, err := a.generator.Generate(ctx, llm.Prompt(tpl.System, string(body)))
	if err != nil {
		return nil, err
	}

	out := &model.VacancyAnalysis{
		VacancyID:      v.ID,
		UserID:         userID,
		Title:          fmt.Sprintf("%s: %s", tpl.Type.DisplayName(), v.Title),
		AnalysisType:   tpl.Type,
		PromptTemplate: sql.NullString{String: tpl.Type.Description(), Valid: true},
		ResultText:     resp.Text,
		Model:          sql.NullString{String: resp.Model, Valid: resp.Model != ""},
		TokensUsed:     sql.NullInt64{Int64: int64(resp.TokensUsed), Valid: resp.TokensUsed > 0},
	}
	if tpl.Type == task.AnalysisCustom {
		out.CustomPrompt = sql.NullString{String: customPrompt, Valid: true}
	}
	return out, nil
}

func contentFor(v *model.Vacancy) vacancyContent {
	c := vacancyContent{
		Title:        v.Title,
		Description:  v.Description.String,
		Currency:     v.SalaryCurrency.String,
		Employer:     v.EmployerName.String,
		ExperienceID: v.ExperienceID.String,
		AreaName:     v.AreaName.String,
		ScheduleID:   v.ScheduleID.String,
		EmploymentID: v.EmploymentID.String,
	}
	if v.SalaryFrom.Valid {
		c.SalaryFrom = &v.SalaryFrom.Int64
	}
	if v.SalaryTo.Valid {
		c.SalaryTo = &v.SalaryTo.Int64
	}
	if v.SalaryGross.Valid {
		c.SalaryGross = &v.SalaryGross.Bool
	}
	return c
}
