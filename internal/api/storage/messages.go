package storage

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/career-assistant/internal/api/model"
	"github.com/cuongbtq/career-assistant/shared/pagination"
)

const messageColumns = `id, conversation_id, role, content, model, tokens_used, is_deleted, created_at`

// MessageFilter selects a window of a conversation. Before and After are
// mutually exclusive; with neither set the newest messages are returned.
type MessageFilter struct {
	Limit  int
	Before *pagination.Cursor
	After  *pagination.Cursor
}

// ListMessages returns a window of the conversation ordered oldest to newest
func (s *Storage) ListMessages(ctx context.Context, userID, conversationID string, filter MessageFilter) (pagination.BidirectionalPage[model.Message], error) {
	var empty pagination.BidirectionalPage[model.Message]

	if filter.Before != nil && filter.After != nil {
		return empty, pagination.ErrConflictingCursors
	}

	if _, err := s.GetConversation(ctx, userID, conversationID); err != nil {
		return empty, err
	}

	q := newKeysetQuery(`SELECT `+messageColumns+` FROM messages`, "created_at", "id").
		Where("conversation_id = ?", conversationID).
		Where("is_deleted = FALSE").
		Limit(filter.Limit)

	if filter.After != nil {
		q.Since(filter.After)
	} else {
		q.After(filter.Before)
	}

	var rows []model.Message
	if err := s.selectKeyset(ctx, &rows, q); err != nil {
		return empty, mapError(err, "list messages")
	}

	if filter.After != nil {
		return pagination.NewForwardPage(rows, filter.Limit, messageKey)
	}
	return pagination.NewBackwardPage(rows, filter.Limit, filter.Before != nil, messageKey)
}

func messageKey(m model.Message) (time.Time, string) {
	return m.CreatedAt, m.ID
}

// RecentMessages returns up to limit latest messages, oldest first, for LLM context
func (s *Storage) RecentMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	var rows []model.Message
	err := s.selectRows(ctx, &rows, `
		SELECT `+messageColumns+` FROM messages
		WHERE conversation_id = ? AND is_deleted = FALSE
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, conversationID, limit)
	if err != nil {
		return nil, mapError(err, "list recent messages")
	}

	return pagination.TrimExcess(rows, limit, true), nil
}

func (s *Storage) CreateMessage(ctx context.Context, msg *model.Message) error {
	if msg.ID == "" {
		msg.ID = newID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}

	if err := insertMessage(ctx, s.db, msg); err != nil {
		return mapError(err, "create message")
	}

	_, err = s.exec(ctx, `UPDATE conversations SET updated_at = ? WHERE id = ?`, msg.CreatedAt, msg.ConversationID)
	return mapError(err, "touch conversation")
}

func insertMessage(ctx context.Context, db sqlx.ExtContext, msg *model.Message) error {
	_, err := db.ExecContext(ctx, db.Rebind(`
		INSERT INTO messages (`+messageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.Model, msg.TokensUsed, msg.IsDeleted, msg.CreatedAt,
	)
	return err
}
