// Package importer copies HeadHunter vacancies into the local catalogue and
// links them to the requesting user.
package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/cuongbtq/career-assistant/internal/api/model"
	"github.com/cuongbtq/career-assistant/internal/task"
	"github.com/cuongbtq/career-assistant/shared/headhunter"
)

// ErrVacancyNotFound is returned when HeadHunter does not know the vacancy
var ErrVacancyNotFound = errors.New("vacancy not found on HeadHunter")

// Source is the HeadHunter API surface used by imports
type Source interface {
	Search(ctx context.Context, text string) (*headhunter.SearchResult, error)
	GetVacancy(ctx context.Context, id string) (*headhunter.Vacancy, error)
}

// Store persists imported vacancies
type Store interface {
	LinkVacancyByHHID(ctx context.Context, userID, hhID string) (bool, error)
	SaveVacancyForUser(ctx context.Context, userID string, v *model.Vacancy) (bool, error)
}

// Result is stored as the import task result
type Result struct {
	Fetched       int    `json:"fetched"`
	Filtered      int    `json:"filtered"`
	TotalFound    int    `json:"total_found"`
	AlreadyExists int    `json:"already_exists"`
	NewAdded      int    `json:"new_added"`
	Errors        int    `json:"errors"`
	UserID        string `json:"user_id"`
}

// Progress is reported while an import runs
type Progress struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

type Importer struct {
	source Source
	store  Store
	logger *slog.Logger
}

func New(source Source, store Store, logger *slog.Logger) *Importer {
	return &Importer{source: source, store: store, logger: logger}
}

// Import searches HeadHunter, keeps hits whose experience tier is in tiers
// (all tiers when empty) and stores them for the user. Failures of single
// vacancies are counted in Result.Errors; a failed search fails the import.
func (i *Importer) Import(ctx context.Context, userID, query string, tiers []task.Experience, onProgress func(Progress)) (*Result, error) {
	log := i.logger.With(slog.String("user_id", userID), slog.String("query", query))

	found, err := i.source.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search vacancies: %w", err)
	}

	hits := filterByTiers(found.Items, tiers)
	res := &Result{
		Fetched:    len(found.Items),
		Filtered:   len(hits),
		TotalFound: len(hits),
		UserID:     userID,
	}

	log.Info("Vacancy search finished",
		slog.Int("fetched", res.Fetched),
		slog.Int("filtered", res.Filtered),
	)

	for n, hit := range hits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		created, err := i.importHit(ctx, userID, query, hit.ID)
		switch {
		case err != nil:
			res.Errors++
			log.Warn("Failed to import vacancy",
				slog.String("hh_id", hit.ID),
				slog.String("error", err.Error()),
			)
		case created:
			res.NewAdded++
		default:
			res.AlreadyExists++
		}

		if onProgress != nil {
			onProgress(Progress{Processed: n + 1, Total: len(hits)})
		}
	}

	log.Info("Vacancy import finished",
		slog.Int("new_added", res.NewAdded),
		slog.Int("already_exists", res.AlreadyExists),
		slog.Int("errors", res.Errors),
	)

	return res, nil
}

// importHit reports created=true when the vacancy was not stored before
func (i *Importer) importHit(ctx context.Context, userID, query, hhID string) (bool, error) {
	linked, err := i.store.LinkVacancyByHHID(ctx, userID, hhID)
	if err != nil {
		return false, err
	}
	if linked {
		return false, nil
	}

	detail, err := i.source.GetVacancy(ctx, hhID)
	if err != nil {
		return false, err
	}
	return i.store.SaveVacancyForUser(ctx, userID, ToModel(detail, query))
}

// ImportOne fetches a single vacancy by its HeadHunter id and links it to the user
func (i *Importer) ImportOne(ctx context.Context, userID, hhID string) (*model.Vacancy, bool, error) {
	detail, err := i.source.GetVacancy(ctx, hhID)
	if errors.Is(err, headhunter.ErrNotFound) {
		return nil, false, fmt.Errorf("%w: %s", ErrVacancyNotFound, hhID)
	}
	if err != nil {
		return nil, false, err
	}

	v := ToModel(detail, "")
	created, err := i.store.SaveVacancyForUser(ctx, userID, v)
	if err != nil {
		return nil, false, err
	}
	return v, created, nil
}

func filterByTiers(items []headhunter.VacancySummary, tiers []task.Experience) []headhunter.VacancySummary {
	seen := make(map[string]bool, len(items))
	out := make([]headhunter.VacancySummary, 0, len(items))
	for _, item := range items {
		if item.ID == "" || seen[item.ID] {
			continue
		}
		if len(tiers) > 0 && !slices.Contains(tiers, task.Experience(item.ExperienceID())) {
			continue
		}
		seen[item.ID] = true
		out = append(out, item)
	}
	return out
}

// ToModel maps a HeadHunter vacancy onto the stored representation
func ToModel(v *headhunter.Vacancy, query string) *model.Vacancy {
	m := &model.Vacancy{
		HHID:         v.ID,
		QueryRequest: nullString(query),
		Title:        v.Name,
		Description:  nullString(v.Description),
		HHURL:        nullString(v.AlternateURL),
		ApplyURL:     nullString(v.ApplyAlternateURL),
		IsArchived:   v.Archived,
		RawData:      []byte(v.Raw),
		ExperienceID: nullString(v.ExperienceID()),
	}

	if s := v.Salary; s != nil {
		if s.From != nil {
			m.SalaryFrom = sql.NullInt64{Int64: int64(*s.From), Valid: true}
		}
		if s.To != nil {
			m.SalaryTo = sql.NullInt64{Int64: int64(*s.To), Valid: true}
		}
		m.SalaryCurrency = nullString(s.Currency)
		if s.Gross != nil {
			m.SalaryGross = sql.NullBool{Bool: *s.Gross, Valid: true}
		}
	}
	if v.Area != nil {
		m.AreaID = nullString(v.Area.ID)
		m.AreaName = nullString(v.Area.Name)
	}
	if v.Schedule != nil {
		m.ScheduleID = nullString(v.Schedule.ID)
	}
	if v.Employment != nil {
		m.EmploymentID = nullString(v.Employment.ID)
	}
	if v.Employer != nil {
		m.EmployerID = nullString(v.Employer.ID)
		m.EmployerName = nullString(v.Employer.Name)
	}
	if ts, ok := v.Published(); ok {
		m.PublishedAt = sql.NullTime{Time: ts, Valid: true}
	}

	return m
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
