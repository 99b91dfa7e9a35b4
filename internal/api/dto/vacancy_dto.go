package dto

import (
	"encoding/json"
	"time"

	"github.com/cuongbtq/career-assistant/internal/api/model"
)

type ListVacanciesQuery struct {
	ListQuery
	Tiers           []string `form:"tiers"`
	FavoritesOnly   bool     `form:"favorites_only"`
	IncludeInactive bool     `form:"include_inactive"`
}

type SalaryDTO struct {
	From     *int64  `json:"from"`
	To       *int64  `json:"to"`
	Currency *string `json:"currency"`
	Gross    *bool   `json:"gross"`
}

type VacancyDTO struct {
	ID           string     `json:"id"`
	HHID         string     `json:"hh_id"`
	QueryRequest *string    `json:"query_request"`
	Title        string     `json:"title"`
	Description  *string    `json:"description,omitempty"`
	Salary       SalaryDTO  `json:"salary"`
	ExperienceID *string    `json:"experience_id"`
	AreaName     *string    `json:"area_name"`
	ScheduleID   *string    `json:"schedule_id"`
	EmploymentID *string    `json:"employment_id"`
	EmployerName *string    `json:"employer_name"`
	HHURL        *string    `json:"hh_url"`
	ApplyURL     *string    `json:"apply_url"`
	IsArchived   bool       `json:"is_archived"`
	IsFavorite   bool       `json:"is_favorite"`
	PublishedAt  *time.Time `json:"published_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

// VacancyDetailDTO adds the raw HeadHunter payload and the caller's analyses
type VacancyDetailDTO struct {
	VacancyDTO
	RawData  json.RawMessage `json:"raw_data,omitempty"`
	Analyses []AnalysisDTO   `json:"analyses"`
}

func NewVacancyDTO(v model.UserVacancy) VacancyDTO {
	out := newVacancyDTO(&v.Vacancy)
	out.IsFavorite = v.IsFavorite
	return out
}

func newVacancyDTO(v *model.Vacancy) VacancyDTO {
	out := VacancyDTO{
		ID:           v.ID,
		HHID:         v.HHID,
		QueryRequest: stringPtr(v.QueryRequest),
		Title:        v.Title,
		Description:  stringPtr(v.Description),
		Salary: SalaryDTO{
			From:     int64Ptr(v.SalaryFrom),
			To:       int64Ptr(v.SalaryTo),
			Currency: stringPtr(v.SalaryCurrency),
		},
		ExperienceID: stringPtr(v.ExperienceID),
		AreaName:     stringPtr(v.AreaName),
		ScheduleID:   stringPtr(v.ScheduleID),
		EmploymentID: stringPtr(v.EmploymentID),
		EmployerName: stringPtr(v.EmployerName),
		HHURL:        stringPtr(v.HHURL),
		ApplyURL:     stringPtr(v.ApplyURL),
		IsArchived:   v.IsArchived,
		CreatedAt:    v.CreatedAt,
	}
	if v.SalaryGross.Valid {
		out.Salary.Gross = &v.SalaryGross.Bool
	}
	if v.PublishedAt.Valid {
		out.PublishedAt = &v.PublishedAt.Time
	}
	return out
}

func NewVacancyDetailDTO(v *model.UserVacancy, analyses []model.VacancyAnalysis) VacancyDetailDTO {
	out := VacancyDetailDTO{VacancyDTO: NewVacancyDTO(*v), Analyses: make([]AnalysisDTO, len(analyses))}
	if len(v.RawData) > 0 {
		out.RawData = json.RawMessage(v.RawData)
	}
	for i, a := range analyses {
		out.Analyses[i] = NewAnalysisDTO(a)
	}
	return out
}

// ImportedVacancyDTO is the answer of a single synchronous import
type ImportedVacancyDTO struct {
	VacancyDTO
	Created bool `json:"created"`
}

func NewImportedVacancyDTO(v *model.Vacancy, created bool) ImportedVacancyDTO {
	return ImportedVacancyDTO{VacancyDTO: newVacancyDTO(v), Created: created}
}

type ListAnalysesQuery struct {
	ListQuery
	AnalysisType string `form:"analysis_type"`
	VacancyID    string `form:"vacancy_id"`
}

type AnalysisDTO struct {
	ID             string    `json:"id"`
	VacancyID      string    `json:"vacancy_id"`
	Title          string    `json:"title"`
	AnalysisType   string    `json:"analysis_type"`
	PromptTemplate *string   `json:"prompt_template"`
	CustomPrompt   *string   `json:"custom_prompt"`
	ResultText     string    `json:"result_text"`
	Model          *string   `json:"model"`
	TokensUsed     *int64    `json:"tokens_used"`
	CreatedAt      time.Time `json:"created_at"`
}

func NewAnalysisDTO(a model.VacancyAnalysis) AnalysisDTO {
	return AnalysisDTO{
		ID:             a.ID,
		VacancyID:      a.VacancyID,
		Title:          a.Title,
		AnalysisType:   string(a.AnalysisType),
		PromptTemplate: stringPtr(a.PromptTemplate),
		CustomPrompt:   stringPtr(a.CustomPrompt),
		ResultText:     a.ResultText,
		Model:          stringPtr(a.Model),
		TokensUsed:     int64Ptr(a.TokensUsed),
		CreatedAt:      a.CreatedAt,
	}
}
