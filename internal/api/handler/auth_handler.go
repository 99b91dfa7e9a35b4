package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/career-assistant/internal/api/auth"
	"github.com/cuongbtq/career-assistant/internal/api/domain"
	"github.com/cuongbtq/career-assistant/internal/api/dto"
	"github.com/cuongbtq/career-assistant/internal/api/model"
	"github.com/cuongbtq/career-assistant/internal/api/storage"
)

// AuthHandler handles registration and login
type AuthHandler struct {
	logger  *slog.Logger
	storage *storage.Storage
	tokens  *auth.TokenManager
	hasher  *auth.Hasher
}

func NewAuthHandler(deps *Dependencies) *AuthHandler {
	return &AuthHandler{
		logger:  deps.Logger,
		storage: deps.Storage,
		tokens:  deps.Tokens,
		hasher:  deps.Hasher,
	}
}

// Register handles POST /api/v2/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		respondError(c, h.logger, err, "Invalid password")
		return
	}

	user := &model.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
	}
	if err := h.storage.CreateUserWithInvite(c.Request.Context(), user, req.InviteCode); err != nil {
		respondError(c, h.logger, err, "Failed to register user")
		return
	}

	h.logger.Info("User registered", slog.String("user_id", user.ID))

	c.JSON(http.StatusCreated, dto.NewUserDTO(user))
}

// Login handles POST /api/v2/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	ctx := c.Request.Context()
	user, err := h.storage.GetUserByLogin(ctx, strings.TrimSpace(req.Login))
	if errors.Is(err, domain.ErrNotFound) {
		respondError(c, h.logger, domain.ErrUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		respondError(c, h.logger, err, "Failed to log in")
		return
	}

	if err := h.hasher.Verify(user.PasswordHash, req.Password); err != nil {
		respondError(c, h.logger, err, "Invalid credentials")
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Role)
	if err != nil {
		respondError(c, h.logger, err, "Failed to issue token")
		return
	}
	refresh, err := h.tokens.IssueRefresh(user.ID)
	if err != nil {
		respondError(c, h.logger, err, "Failed to issue token")
		return
	}

	if err := h.storage.TouchLastLogin(ctx, user.ID); err != nil {
		h.logger.Warn("Failed to update last login", slog.String("user_id", user.ID), slog.String("error", err.Error()))
	}

	c.JSON(http.StatusOK, dto.TokenResponse{
		AccessToken:  token,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(h.tokens.TTL().Seconds()),
	})
}

// Refresh handles POST /api/v2/auth/refresh. A new access token is issued
// only while the user still exists and is active.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	claims, err := h.tokens.ParseRefresh(req.RefreshToken)
	if err != nil {
		h.logger.Debug("Rejected refresh token", slog.String("error", err.Error()))
		respondError(c, h.logger, err, "Invalid refresh token")
		return
	}
	if !domain.IsValidID(claims.Subject) {
		respondError(c, h.logger, auth.ErrInvalidToken, "Invalid refresh token")
		return
	}

	user, err := h.storage.GetUserByID(c.Request.Context(), claims.Subject)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && !user.IsActive) {
		respondError(c, h.logger, domain.ErrUnauthorized, "Invalid refresh token")
		return
	}
	if err != nil {
		respondError(c, h.logger, err, "Failed to refresh token")
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Role)
	if err != nil {
		respondError(c, h.logger, err, "Failed to issue token")
		return
	}

	h.logger.Info("Access token refreshed", slog.String("user_id", user.ID))

	c.JSON(http.StatusOK, dto.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(h.tokens.TTL().Seconds()),
	})
}

// UserHandler serves the caller's profile and credentials
type UserHandler struct {
	logger  *slog.Logger
	storage *storage.Storage
	hasher  *auth.Hasher
}

func NewUserHandler(deps *Dependencies) *UserHandler {
	return &UserHandler{logger: deps.Logger, storage: deps.Storage, hasher: deps.Hasher}
}

// Me handles GET /api/v2/users/me
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.storage.GetUserByID(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		respondError(c, h.logger, err, "User not found")
		return
	}
	c.JSON(http.StatusOK, dto.NewUserDTO(user))
}

// UpdateMe handles PATCH /api/v2/users/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	user, err := h.storage.UpdateUser(c.Request.Context(), CurrentUserID(c), storage.UserUpdate{
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Bio:               req.Bio,
		Resume:            req.Resume,
		PreferredLanguage: req.PreferredLanguage,
		Timezone:          req.Timezone,
	})
	if err != nil {
		respondError(c, h.logger, err, "Failed to update user")
		return
	}
	c.JSON(http.StatusOK, dto.NewUserDTO(user))
}

// UpdatePassword handles POST /api/v2/users/me/password
func (h *UserHandler) UpdatePassword(c *gin.Context) {
	var req dto.UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	user, ok := h.confirmPassword(c, req.CurrentPassword)
	if !ok {
		return
	}
	if h.hasher.Verify(user.PasswordHash, req.NewPassword) == nil {
		c.JSON(http.StatusOK, dto.NewUserDTO(user))
		return
	}

	hash, err := h.hasher.Hash(req.NewPassword)
	if err != nil {
		respondError(c, h.logger, err, "Invalid password")
		return
	}

	user, err = h.storage.UpdatePasswordHash(c.Request.Context(), user.ID, hash)
	if err != nil {
		respondError(c, h.logger, err, "Failed to update password")
		return
	}

	h.logger.Info("Password updated", slog.String("user_id", user.ID))
	c.JSON(http.StatusOK, dto.NewUserDTO(user))
}

// UpdateEmail handles POST /api/v2/users/me/email
func (h *UserHandler) UpdateEmail(c *gin.Context) {
	var req dto.UpdateEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	user, ok := h.confirmPassword(c, req.CurrentPassword)
	if !ok {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.NewEmail))
	if email == user.Email {
		c.JSON(http.StatusOK, dto.NewUserDTO(user))
		return
	}

	user, err := h.storage.UpdateEmail(c.Request.Context(), user.ID, email)
	if err != nil {
		respondError(c, h.logger, err, "Failed to update email")
		return
	}

	h.logger.Info("Email updated", slog.String("user_id", user.ID))
	c.JSON(http.StatusOK, dto.NewUserDTO(user))
}

// UpdateUsername handles POST /api/v2/users/me/username
func (h *UserHandler) UpdateUsername(c *gin.Context) {
	var req dto.UpdateUsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	user, ok := h.confirmPassword(c, req.CurrentPassword)
	if !ok {
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == user.Username {
		c.JSON(http.StatusOK, dto.NewUserDTO(user))
		return
	}

	user, err := h.storage.UpdateUsername(c.Request.Context(), user.ID, username)
	if err != nil {
		respondError(c, h.logger, err, "Failed to update username")
		return
	}

	h.logger.Info("Username updated", slog.String("user_id", user.ID))
	c.JSON(http.StatusOK, dto.NewUserDTO(user))
}

// confirmPassword loads the caller and checks the password they sent along
// with a credential change. It writes the error response itself.
func (h *UserHandler) confirmPassword(c *gin.Context, password string) (*model.User, bool) {
	user, err := h.storage.GetUserByID(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		respondError(c, h.logger, err, "User not found")
		return nil, false
	}

	if err := h.hasher.Verify(user.PasswordHash, password); err != nil {
		h.logger.Warn("Wrong current password on credential change", slog.String("user_id", user.ID))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid current password"})
		return nil, false
	}
	return user, true
}

// InviteHandler lets admins issue and list invite codes
type InviteHandler struct {
	logger  *slog.Logger
	storage *storage.Storage
	listing listing
}

func NewInviteHandler(deps *Dependencies) *InviteHandler {
	return &InviteHandler{logger: deps.Logger, storage: deps.Storage, listing: newListing(deps)}
}

// CreateInvites handles POST /api/v2/invites
func (h *InviteHandler) CreateInvites(c *gin.Context) {
	var req dto.CreateInvitesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	codes, err := auth.GenerateInviteCodes(req.Count)
	if err != nil {
		respondError(c, h.logger, err, "Failed to generate invites")
		return
	}

	invites, err := h.storage.CreateInvites(c.Request.Context(), codes, CurrentUserID(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to create invites")
		return
	}

	items := make([]dto.InviteDTO, len(invites))
	for i, inv := range invites {
		items[i] = dto.NewInviteDTO(inv)
	}
	c.JSON(http.StatusCreated, gin.H{"items": items})
}

// ListInvites handles GET /api/v2/invites
func (h *InviteHandler) ListInvites(c *gin.Context) {
	var q dto.ListInvitesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "Invalid query parameters", err)
		return
	}

	opts, err := h.listing.options(q.ListQuery)
	if err != nil {
		respondError(c, h.logger, err, "Invalid cursor")
		return
	}

	page, err := h.storage.ListInvites(c.Request.Context(), storage.InviteFilter{ListOptions: opts, UnusedOnly: q.UnusedOnly})
	if err != nil {
		respondError(c, h.logger, err, "Failed to list invites")
		return
	}
	c.JSON(http.StatusOK, dto.MapPage(page, dto.NewInviteDTO))
}
