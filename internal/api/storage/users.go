package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cuongbtq/career-assistant/internal/api/domain"
	"github.com/cuongbtq/career-assistant/internal/api/model"
)

const userColumns = `id, username, email, password_hash, first_name, last_name, bio, resume,
	preferred_language, timezone, role, is_active, last_login, created_at, updated_at`

// CreateUserWithInvite inserts the user and claims the invite in one transaction.
// The claim is a conditional update, so two registrations racing for the same
// code cannot both succeed.
func (s *Storage) CreateUserWithInvite(ctx context.Context, user *model.User, inviteCode string) error {
	now := s.now()
	if user.ID == "" {
		user.ID = newID()
	}
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	if user.PreferredLanguage == "" {
		user.PreferredLanguage = "ru"
	}
	if user.Timezone == "" {
		user.Timezone = "UTC"
	}
	user.IsActive = true
	user.CreatedAt = now
	user.UpdatedAt = now

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		user.ID, user.Username, user.Email, user.PasswordHash,
		user.FirstName, user.LastName, user.Bio, user.Resume,
		user.PreferredLanguage, user.Timezone, user.Role, user.IsActive,
		user.LastLogin, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "create user")
	}

	res, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE invites SET is_used = TRUE, used_by = ?, used_at = ?
		WHERE code = ? AND is_used = FALSE`),
		user.ID, now, inviteCode,
	)
	if err != nil {
		return mapError(err, "claim invite")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to claim invite: %w", err)
	}
	if n == 0 {
		return domain.ErrInviteUnavailable
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit registration: %w", err)
	}
	return nil
}

// CreateUser inserts a user without an invite, used by operator tooling
func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	now := s.now()
	if user.ID == "" {
		user.ID = newID()
	}
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	if user.PreferredLanguage == "" {
		user.PreferredLanguage = "ru"
	}
	if user.Timezone == "" {
		user.Timezone = "UTC"
	}
	user.IsActive = true
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := s.exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash,
		user.FirstName, user.LastName, user.Bio, user.Resume,
		user.PreferredLanguage, user.Timezone, user.Role, user.IsActive,
		user.LastLogin, user.CreatedAt, user.UpdatedAt,
	)
	return mapError(err, "create user")
}

func (s *Storage) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := s.get(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, mapError(err, "get user")
	}
	return &user, nil
}

// GetUserByLogin finds an active user by username or email
func (s *Storage) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	var user model.User
	err := s.get(ctx, &user, `
		SELECT `+userColumns+` FROM users
		WHERE (username = ? OR email = ?) AND is_active = TRUE`, login, login)
	if err != nil {
		return nil, mapError(err, "get user")
	}
	return &user, nil
}

func (s *Storage) TouchLastLogin(ctx context.Context, id string) error {
	now := s.now()
	err := s.execAffecting(ctx, `UPDATE users SET last_login = ?, updated_at = ? WHERE id = ?`, now, now, id)
	return mapError(err, "update last login")
}

// UserUpdate carries the profile fields a user may change; nil leaves a field as is
type UserUpdate struct {
	FirstName         *string
	LastName          *string
	Bio               *string
	Resume            *string
	PreferredLanguage *string
	Timezone          *string
}

func (s *Storage) UpdateUser(ctx context.Context, id string, upd UserUpdate) (*model.User, error) {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.FirstName != nil {
		user.FirstName = nullString(upd.FirstName)
	}
	if upd.LastName != nil {
		user.LastName = nullString(upd.LastName)
	}
	if upd.Bio != nil {
		user.Bio = nullString(upd.Bio)
	}
	if upd.Resume != nil {
		user.Resume = nullString(upd.Resume)
	}
	if upd.PreferredLanguage != nil {
		user.PreferredLanguage = *upd.PreferredLanguage
	}
	if upd.Timezone != nil {
		user.Timezone = *upd.Timezone
	}
	user.UpdatedAt = s.now()

	err = s.execAffecting(ctx, `
		UPDATE users SET first_name = ?, last_name = ?, bio = ?, resume = ?,
			preferred_language = ?, timezone = ?, updated_at = ?
		WHERE id = ?`,
		user.FirstName, user.LastName, user.Bio, user.Resume,
		user.PreferredLanguage, user.Timezone, user.UpdatedAt, id,
	)
	if err != nil {
		return nil, mapError(err, "update user")
	}
	return user, nil
}

// UserResume returns the stored resume text, empty when the user has none
func (s *Storage) UserResume(ctx context.Context, id string) (string, error) {
	var resume sql.NullString
	if err := s.get(ctx, &resume, `SELECT resume FROM users WHERE id = ?`, id); err != nil {
		return "", mapError(err, "get resume")
	}
	return resume.String, nil
}

// UpdatePasswordHash replaces the stored password hash
func (s *Storage) UpdatePasswordHash(ctx context.Context, id, hash string) (*model.User, error) {
	err := s.execAffecting(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, s.now(), id)
	if err != nil {
		return nil, mapError(err, "update password")
	}
	return s.GetUserByID(ctx, id)
}

// UpdateEmail changes the login email; a taken email is domain.ErrAlreadyExists
func (s *Storage) UpdateEmail(ctx context.Context, id, email string) (*model.User, error) {
	err := s.execAffecting(ctx, `UPDATE users SET email = ?, updated_at = ? WHERE id = ?`, email, s.now(), id)
	if err != nil {
		return nil, mapError(err, "update email")
	}
	return s.GetUserByID(ctx, id)
}

// UpdateUsername changes the login name; a taken name is domain.ErrAlreadyExists
func (s *Storage) UpdateUsername(ctx context.Context, id, username string) (*model.User, error) {
	err := s.execAffecting(ctx, `UPDATE users SET username = ?, updated_at = ? WHERE id = ?`, username, s.now(), id)
	if err != nil {
		return nil, mapError(err, "update username")
	}
	return s.GetUserByID(ctx, id)
}
