package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/career-assistant/internal/api/model"
	"github.com/cuongbtq/career-assistant/shared/pagination"
)

const conversationColumns = `id, user_id, title, is_archived, source, source_id, created_at, updated_at`

type ConversationFilter struct {
	ListOptions
	IncludeArchived bool
}

func (s *Storage) ListConversations(ctx context.Context, userID string, filter ConversationFilter) (pagination.Page[model.Conversation], error) {
	q := newKeysetQuery(`SELECT `+conversationColumns+` FROM conversations`, "created_at", "id").
		Where("user_id = ?", userID).
		After(filter.Cursor).
		Limit(filter.Limit)
	if !filter.IncludeArchived {
		q.Where("is_archived = FALSE")
	}

	var rows []model.Conversation
	if err := s.selectKeyset(ctx, &rows, q); err != nil {
		return pagination.Page[model.Conversation]{}, mapError(err, "list conversations")
	}

	return pagination.NewPage(rows, filter.Limit, conversationKey)
}

func conversationKey(c model.Conversation) (time.Time, string) {
	return c.CreatedAt, c.ID
}

func (s *Storage) CreateConversation(ctx context.Context, userID, title string) (*model.Conversation, error) {
	now := s.now()
	conv := &model.Conversation{
		ID:        newID(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := insertConversation(ctx, s.db, conv); err != nil {
		return nil, mapError(err, "create conversation")
	}
	return conv, nil
}

func insertConversation(ctx context.Context, db sqlx.ExtContext, conv *model.Conversation) error {
	_, err := db.ExecContext(ctx, db.Rebind(`
		INSERT INTO conversations (`+conversationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		conv.ID, conv.UserID, conv.Title, conv.IsArchived, conv.Source, conv.SourceID, conv.CreatedAt, conv.UpdatedAt,
	)
	return err
}

// CreateImportedConversation stores a conversation exported from another
// assistant together with its messages in one transaction. A conversation
// already imported from the same source fails with domain.ErrAlreadyExists.
func (s *Storage) CreateImportedConversation(ctx context.Context, conv *model.Conversation, msgs []model.Message) error {
	if conv.ID == "" {
		conv.ID = newID()
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = s.now()
	}
	conv.UpdatedAt = conv.CreatedAt
	if n := len(msgs); n > 0 && msgs[n-1].CreatedAt.After(conv.UpdatedAt) {
		conv.UpdatedAt = msgs[n-1].CreatedAt
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertConversation(ctx, tx, conv); err != nil {
		return mapError(err, "import conversation")
	}

	for i := range msgs {
		msg := &msgs[i]
		msg.ConversationID = conv.ID
		if msg.ID == "" {
			msg.ID = newID()
		}
		if err := insertMessage(ctx, tx, msg); err != nil {
			return mapError(err, "import message")
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	return nil
}

// GetConversation returns the caller's conversation, archived or not
func (s *Storage) GetConversation(ctx context.Context, userID, id string) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.get(ctx, &conv, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return nil, mapError(err, "get conversation")
	}
	return &conv, nil
}

type ConversationUpdate struct {
	Title      *string
	IsArchived *bool
}

func (s *Storage) UpdateConversation(ctx context.Context, userID, id string, upd ConversationUpdate) (*model.Conversation, error) {
	conv, err := s.GetConversation(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		conv.Title = *upd.Title
	}
	if upd.IsArchived != nil {
		conv.IsArchived = *upd.IsArchived
	}
	conv.UpdatedAt = s.now()

	err = s.execAffecting(ctx, `
		UPDATE conversations SET title = ?, is_archived = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		conv.Title, conv.IsArchived, conv.UpdatedAt, id, userID,
	)
	if err != nil {
		return nil, mapError(err, "update conversation")
	}
	return conv, nil
}

// ArchiveConversation is the soft delete of a conversation
func (s *Storage) ArchiveConversation(ctx context.Context, userID, id string) error {
	err := s.execAffecting(ctx, `
		UPDATE conversations SET is_archived = TRUE, updated_at = ?
		WHERE id = ? AND user_id = ?`, s.now(), id, userID)
	return mapError(err, "archive conversation")
}
