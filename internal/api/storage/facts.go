package storage

import (
	"context"
	"time"

	"github.com/cuongbtq/career-assistant/internal/api/domain"
	"github.com/cuongbtq/career-assistant/internal/api/model"
	"github.com/cuongbtq/career-assistant/shared/pagination"
)

const factColumns = `id, user_id, content, category, source_type, confidence, is_active, created_at, updated_at`

type FactFilter struct {
	ListOptions
	Category        domain.FactCategory
	SourceType      domain.FactSource
	IncludeInactive bool
}

func (s *Storage) ListFacts(ctx context.Context, userID string, filter FactFilter) (pagination.Page[model.Fact], error) {
	q := newKeysetQuery(`SELECT `+factColumns+` FROM facts`, "created_at", "id").
		Where("user_id = ?", userID).
		After(filter.Cursor).
		Limit(filter.Limit)
	if filter.Category != "" {
		q.Where("category = ?", filter.Category)
	}
	if filter.SourceType != "" {
		q.Where("source_type = ?", filter.SourceType)
	}
	if !filter.IncludeInactive {
		q.Where("is_active = TRUE")
	}

	var rows []model.Fact
	if err := s.selectKeyset(ctx, &rows, q); err != nil {
		return pagination.Page[model.Fact]{}, mapError(err, "list facts")
	}

	return pagination.NewPage(rows, filter.Limit, factKey)
}

func factKey(f model.Fact) (time.Time, string) {
	return f.CreatedAt, f.ID
}

// ActiveFacts returns the most recent active facts, used to enrich chat prompts
func (s *Storage) ActiveFacts(ctx context.Context, userID string, limit int) ([]model.Fact, error) {
	var rows []model.Fact
	err := s.selectRows(ctx, &rows, `
		SELECT `+factColumns+` FROM facts
		WHERE user_id = ? AND is_active = TRUE
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, mapError(err, "list active facts")
	}
	return rows, nil
}

func (s *Storage) GetFact(ctx context.Context, userID, id string) (*model.Fact, error) {
	var fact model.Fact
	err := s.get(ctx, &fact, `SELECT `+factColumns+` FROM facts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return nil, mapError(err, "get fact")
	}
	return &fact, nil
}

func (s *Storage) CreateFact(ctx context.Context, fact *model.Fact) error {
	now := s.now()
	if fact.ID == "" {
		fact.ID = newID()
	}
	if fact.CreatedAt.IsZero() {
		fact.CreatedAt = now
	}
	fact.UpdatedAt = fact.CreatedAt
	fact.IsActive = true

	_, err := s.exec(ctx, `
		INSERT INTO facts (`+factColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fact.ID, fact.UserID, fact.Content, fact.Category, fact.SourceType,
		fact.Confidence, fact.IsActive, fact.CreatedAt, fact.UpdatedAt,
	)
	return mapError(err, "create fact")
}

type FactUpdate struct {
	Content    *string
	Category   *domain.FactCategory
	Confidence *float64
	IsActive   *bool
}

func (s *Storage) UpdateFact(ctx context.Context, userID, id string, upd FactUpdate) (*model.Fact, error) {
	fact, err := s.GetFact(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if upd.Content != nil {
		fact.Content = *upd.Content
	}
	if upd.Category != nil {
		fact.Category = *upd.Category
	}
	if upd.Confidence != nil {
		fact.Confidence = *upd.Confidence
	}
	if upd.IsActive != nil {
		fact.IsActive = *upd.IsActive
	}
	fact.UpdatedAt = s.now()

	err = s.execAffecting(ctx, `
		UPDATE facts SET content = ?, category = ?, confidence = ?, is_active = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		fact.Content, fact.Category, fact.Confidence, fact.IsActive, fact.UpdatedAt, id, userID,
	)
	if err != nil {
		return nil, mapError(err, "update fact")
	}
	return fact, nil
}

// DeactivateFact is the soft delete of a fact
func (s *Storage) DeactivateFact(ctx context.Context, userID, id string) error {
	err := s.execAffecting(ctx, `
		UPDATE facts SET is_active = FALSE, updated_at = ?
		WHERE id = ? AND user_id = ?`, s.now(), id, userID)
	return mapError(err, "delete fact")
}
