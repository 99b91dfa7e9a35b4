package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cuongbtq/career-assistant/internal/api/model"
	"github.com/cuongbtq/career-assistant/shared/pagination"
)

const inviteColumns = `id, code, is_used, used_by, used_at, created_by, created_at`

// CreateInvites stores the given codes in one transaction
func (s *Storage) CreateInvites(ctx context.Context, codes []string, createdBy string) ([]model.Invite, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now()
	invites := make([]model.Invite, 0, len(codes))
	query := tx.Rebind(`INSERT INTO invites (id, code, is_used, created_by, created_at) VALUES (?, ?, FALSE, ?, ?)`)

	var creator *string
	if createdBy != "" {
		creator = &createdBy
	}

	for _, code := range codes {
		inv := model.Invite{
			ID:        newID(),
			Code:      code,
			CreatedBy: nullString(creator),
			CreatedAt: now,
		}
		if _, err := tx.ExecContext(ctx, query, inv.ID, inv.Code, inv.CreatedBy, inv.CreatedAt); err != nil {
			return nil, mapError(err, "create invite")
		}
		invites = append(invites, inv)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit invites: %w", err)
	}
	return invites, nil
}

type InviteFilter struct {
	ListOptions
	UnusedOnly bool
}

func (s *Storage) ListInvites(ctx context.Context, filter InviteFilter) (pagination.Page[model.Invite], error) {
	q := newKeysetQuery(`SELECT `+inviteColumns+` FROM invites`, "created_at", "id").
		After(filter.Cursor).
		Limit(filter.Limit)
	if filter.UnusedOnly {
		q.Where("is_used = FALSE")
	}

	var rows []model.Invite
	if err := s.selectKeyset(ctx, &rows, q); err != nil {
		return pagination.Page[model.Invite]{}, mapError(err, "list invites")
	}

	return pagination.NewPage(rows, filter.Limit, inviteKey)
}

func inviteKey(i model.Invite) (time.Time, string) {
	return i.CreatedAt, i.ID
}
