package dto

import (
	"time"

	"github.com/cuongbtq/career-assistant/internal/api/model"
)

type RegisterRequest struct {
	Username   string `json:"username" binding:"required,min=3,max=50"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	InviteCode string `json:"invite_code" binding:"required"`
}

type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Credential changes are confirmed with the current password

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

type UpdateEmailRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewEmail        string `json:"new_email" binding:"required,email,max=255"`
}

type UpdateUsernameRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	Username        string `json:"username" binding:"required,min=3,max=50"`
}

// UpdateUserRequest leaves absent fields unchanged
type UpdateUserRequest struct {
	FirstName         *string `json:"first_name"`
	LastName          *string `json:"last_name"`
	Bio               *string `json:"bio"`
	Resume            *string `json:"resume"`
	PreferredLanguage *string `json:"preferred_language" binding:"omitempty,min=2,max=10"`
	Timezone          *string `json:"timezone" binding:"omitempty,max=50"`
}

type UserDTO struct {
	ID                string     `json:"id"`
	Username          string     `json:"username"`
	Email             string     `json:"email"`
	FirstName         *string    `json:"first_name"`
	LastName          *string    `json:"last_name"`
	Bio               *string    `json:"bio"`
	Resume            *string    `json:"resume"`
	PreferredLanguage string     `json:"preferred_language"`
	Timezone          string     `json:"timezone"`
	Role              string     `json:"role"`
	LastLogin         *time.Time `json:"last_login"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func NewUserDTO(u *model.User) UserDTO {
	out := UserDTO{
		ID:                u.ID,
		Username:          u.Username,
		Email:             u.Email,
		FirstName:         stringPtr(u.FirstName),
		LastName:          stringPtr(u.LastName),
		Bio:               stringPtr(u.Bio),
		Resume:            stringPtr(u.Resume),
		PreferredLanguage: u.PreferredLanguage,
		Timezone:          u.Timezone,
		Role:              string(u.Role),
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
	if u.LastLogin.Valid {
		out.LastLogin = &u.LastLogin.Time
	}
	return out
}

type CreateInvitesRequest struct {
	Count int `json:"count" binding:"required,min=1,max=50"`
}

type ListInvitesQuery struct {
	ListQuery
	UnusedOnly bool `form:"unused_only"`
}

type InviteDTO struct {
	ID        string     `json:"id"`
	Code      string     `json:"code"`
	IsUsed    bool       `json:"is_used"`
	UsedBy    *string    `json:"used_by"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedBy *string    `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
}

func NewInviteDTO(i model.Invite) InviteDTO {
	out := InviteDTO{
		ID:        i.ID,
		Code:      i.Code,
		IsUsed:    i.IsUsed,
		UsedBy:    stringPtr(i.UsedBy),
		CreatedBy: stringPtr(i.CreatedBy),
		CreatedAt: i.CreatedAt,
	}
	if i.UsedAt.Valid {
		out.UsedAt = &i.UsedAt.Time
	}
	return out
}
