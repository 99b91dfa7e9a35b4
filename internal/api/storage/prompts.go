package storage

import (
	"context"
	"time"

	"github.com/cuongbtq/career-assistant/internal/api/model"
	"github.com/cuongbtq/career-assistant/shared/pagination"
)

const promptColumns = `id, user_id, title, content, is_active, created_at, updated_at`

type PromptFilter struct {
	ListOptions
	IncludeInactive bool
}

func (s *Storage) ListPrompts(ctx context.Context, userID string, filter PromptFilter) (pagination.Page[model.Prompt], error) {
	q := newKeysetQuery(`SELECT `+promptColumns+` FROM prompts`, "created_at", "id").
		Where("user_id = ?", userID).
		After(filter.Cursor).
		Limit(filter.Limit)
	if !filter.IncludeInactive {
		q.Where("is_active = TRUE")
	}

	var rows []model.Prompt
	if err := s.selectKeyset(ctx, &rows, q); err != nil {
		return pagination.Page[model.Prompt]{}, mapError(err, "list prompts")
	}

	return pagination.NewPage(rows, filter.Limit, promptKey)
}

func promptKey(p model.Prompt) (time.Time, string) {
	return p.CreatedAt, p.ID
}

func (s *Storage) GetPrompt(ctx context.Context, userID, id string) (*model.Prompt, error) {
	var prompt model.Prompt
	err := s.get(ctx, &prompt, `SELECT `+promptColumns+` FROM prompts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return nil, mapError(err, "get prompt")
	}
	return &prompt, nil
}

// GetActivePrompt is GetPrompt restricted to prompts that were not deleted
func (s *Storage) GetActivePrompt(ctx context.Context, userID, id string) (*model.Prompt, error) {
	var prompt model.Prompt
	err := s.get(ctx, &prompt, `
		SELECT `+promptColumns+` FROM prompts
		WHERE id = ? AND user_id = ? AND is_active = TRUE`, id, userID)
	if err != nil {
		return nil, mapError(err, "get prompt")
	}
	return &prompt, nil
}

func (s *Storage) CreatePrompt(ctx context.Context, userID, title, content string) (*model.Prompt, error) {
	now := s.now()
	prompt := &model.Prompt{
		ID:        newID(),
		UserID:    userID,
		Title:     title,
		Content:   content,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.exec(ctx, `
		INSERT INTO prompts (`+promptColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		prompt.ID, prompt.UserID, prompt.Title, prompt.Content, prompt.IsActive, prompt.CreatedAt, prompt.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err, "create prompt")
	}
	return prompt, nil
}

type PromptUpdate struct {
	Title    *string
	Content  *string
	IsActive *bool
}

func (s *Storage) UpdatePrompt(ctx context.Context, userID, id string, upd PromptUpdate) (*model.Prompt, error) {
	prompt, err := s.GetPrompt(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		prompt.Title = *upd.Title
	}
	if upd.Content != nil {
		prompt.Content = *upd.Content
	}
	if upd.IsActive != nil {
		prompt.IsActive = *upd.IsActive
	}
	prompt.UpdatedAt = s.now()

	err = s.execAffecting(ctx, `
		UPDATE prompts SET title = ?, content = ?, is_active = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		prompt.Title, prompt.Content, prompt.IsActive, prompt.UpdatedAt, id, userID,
	)
	if err != nil {
		return nil, mapError(err, "update prompt")
	}
	return prompt, nil
}

func (s *Storage) DeactivatePrompt(ctx context.Context, userID, id string) error {
	err := s.execAffecting(ctx, `
		UPDATE prompts SET is_active = FALSE, updated_at = ?
		WHERE id = ? AND user_id = ?`, s.now(), id, userID)
	return mapError(err, "delete prompt")
}
