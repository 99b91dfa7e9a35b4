package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cuongbtq/career-assistant/internal/api/model"
	"github.com/cuongbtq/career-assistant/shared/pagination"
)

const vacancySummaryColumns = `v.id, v.hh_id, v.query_request, v.title, v.description,
	v.salary_from, v.salary_to, v.salary_currency, v.salary_gross, v.experience_id,
	v.area_id, v.area_name, v.schedule_id, v.employment_id, v.employer_id, v.employer_name,
	v.hh_url, v.apply_url, v.is_archived, v.published_at, v.is_active, v.created_at, v.updated_at`

const userVacancyFrom = ` FROM vacancies v JOIN user_vacancies uv ON uv.vacancy_id = v.id`

const userVacancyColumns = `, uv.is_favorite, uv.is_active AS link_active, uv.created_at AS linked_at`

type VacancyFilter struct {
	ListOptions
	Tiers           []string
	FavoritesOnly   bool
	IncludeInactive bool
}

func (s *Storage) ListVacancies(ctx context.Context, userID string, filter VacancyFilter) (pagination.Page[model.UserVacancy], error) {
	q := newKeysetQuery(`SELECT `+vacancySummaryColumns+userVacancyColumns+userVacancyFrom, "v.created_at", "v.id").
		Where("uv.user_id = ?", userID).
		WhereIn("v.experience_id", filter.Tiers).
		After(filter.Cursor).
		Limit(filter.Limit)
	if filter.FavoritesOnly {
		q.Where("uv.is_favorite = TRUE")
	}
	if !filter.IncludeInactive {
		q.Where("uv.is_active = TRUE")
		q.Where("v.is_active = TRUE")
	}

	var rows []model.UserVacancy
	if err := s.selectKeyset(ctx, &rows, q); err != nil {
		return pagination.Page[model.UserVacancy]{}, mapError(err, "list vacancies")
	}

	return pagination.NewPage(rows, filter.Limit, vacancyKey)
}

func vacancyKey(v model.UserVacancy) (time.Time, string) {
	return v.CreatedAt, v.ID
}

// GetVacancy returns a vacancy linked to the user, including the raw HeadHunter payload
func (s *Storage) GetVacancy(ctx context.Context, userID, id string) (*model.UserVacancy, error) {
	var v model.UserVacancy
	err := s.get(ctx, &v, `
		SELECT `+vacancySummaryColumns+`, v.raw_data`+userVacancyColumns+userVacancyFrom+`
		WHERE v.id = ? AND uv.user_id = ? AND uv.is_active = TRUE`, id, userID)
	if err != nil {
		return nil, mapError(err, "get vacancy")
	}
	return &v, nil
}

func (s *Storage) SetFavorite(ctx context.Context, userID, vacancyID string, favorite bool) error {
	err := s.execAffecting(ctx, `
		UPDATE user_vacancies SET is_favorite = ?
		WHERE vacancy_id = ? AND user_id = ? AND is_active = TRUE`, favorite, vacancyID, userID)
	return mapError(err, "update favorite")
}

// UnlinkVacancy hides the vacancy for this user only
func (s *Storage) UnlinkVacancy(ctx context.Context, userID, vacancyID string) error {
	err := s.execAffecting(ctx, `
		UPDATE user_vacancies SET is_active = FALSE, is_favorite = FALSE
		WHERE vacancy_id = ? AND user_id = ? AND is_active = TRUE`, vacancyID, userID)
	return mapError(err, "delete vacancy")
}

// SaveVacancyForUser inserts the vacancy unless its hh_id is known, then links
// it to the user (re-activating an earlier link). created reports whether the
// vacancy row is new.
func (s *Storage) SaveVacancyForUser(ctx context.Context, userID string, v *model.Vacancy) (created bool, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now()
	if v.ID == "" {
		v.ID = newID()
	}
	v.IsActive = true
	v.CreatedAt = now
	v.UpdatedAt = now
	if len(v.RawData) == 0 {
		v.RawData = []byte("{}")
	}

	res, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO vacancies (id, hh_id, query_request, title, description,
			salary_from, salary_to, salary_currency, salary_gross, experience_id,
			area_id, area_name, schedule_id, employment_id, employer_id, employer_name,
			hh_url, apply_url, is_archived, raw_data, published_at, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (hh_id) DO NOTHING`),
		v.ID, v.HHID, v.QueryRequest, v.Title, v.Description,
		v.SalaryFrom, v.SalaryTo, v.SalaryCurrency, v.SalaryGross, v.ExperienceID,
		v.AreaID, v.AreaName, v.ScheduleID, v.EmploymentID, v.EmployerID, v.EmployerName,
		v.HHURL, v.ApplyURL, v.IsArchived, v.RawData, v.PublishedAt, v.IsActive, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return false, mapError(err, "create vacancy")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to create vacancy: %w", err)
	}
	created = n > 0

	if !created {
		if err := tx.GetContext(ctx, &v.ID, tx.Rebind(`SELECT id FROM vacancies WHERE hh_id = ?`), v.HHID); err != nil {
			return false, mapError(err, "get vacancy")
		}
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO user_vacancies (id, user_id, vacancy_id, is_favorite, is_active, created_at)
		VALUES (?, ?, ?, FALSE, TRUE, ?)
		ON CONFLICT (user_id, vacancy_id) DO UPDATE SET is_active = TRUE`),
		newID(), userID, v.ID, now,
	)
	if err != nil {
		return false, mapError(err, "link vacancy")
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit vacancy: %w", err)
	}
	return created, nil
}

// LinkVacancyByHHID links an already stored vacancy to the user. linked is
// false when no vacancy with this hh_id exists yet.
func (s *Storage) LinkVacancyByHHID(ctx context.Context, userID, hhID string) (linked bool, err error) {
	var vacancyID string
	err = s.get(ctx, &vacancyID, `SELECT id FROM vacancies WHERE hh_id = ?`, hhID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, mapError(err, "get vacancy")
	}

	_, err = s.exec(ctx, `
		INSERT INTO user_vacancies (id, user_id, vacancy_id, is_favorite, is_active, created_at)
		VALUES (?, ?, ?, FALSE, TRUE, ?)
		ON CONFLICT (user_id, vacancy_id) DO UPDATE SET is_active = TRUE`,
		newID(), userID, vacancyID, s.now(),
	)
	if err != nil {
		return false, mapError(err, "link vacancy")
	}
	return true, nil
}
