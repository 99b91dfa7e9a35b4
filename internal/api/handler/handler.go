package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/career-assistant/internal/api/auth"
	"github.com/cuongbtq/career-assistant/internal/api/domain"
	"github.com/cuongbtq/career-assistant/internal/api/dto"
	"github.com/cuongbtq/career-assistant/internal/api/model"
	"github.com/cuongbtq/career-assistant/internal/api/storage"
	"github.com/cuongbtq/career-assistant/internal/chatimport"
	"github.com/cuongbtq/career-assistant/internal/importer"
	"github.com/cuongbtq/career-assistant/internal/task"
	"github.com/cuongbtq/career-assistant/shared/llm"
	"github.com/cuongbtq/career-assistant/shared/pagination"
)

// TaskDispatcher enqueues background tasks and reports their status
type TaskDispatcher interface {
	Dispatch(ctx context.Context, kind task.Kind, requesterID string, params task.Params) (*task.Handle, error)
	Status(ctx context.Context, taskID string) (*task.Handle, error)
}

// VacancyImporter imports a single HeadHunter vacancy synchronously
type VacancyImporter interface {
	ImportOne(ctx context.Context, userID, hhID string) (*model.Vacancy, bool, error)
}

// ChatImporter stores chat history exported from another assistant
type ChatImporter interface {
	Import(ctx context.Context, userID string, provider chatimport.Provider, r io.Reader) (*chatimport.Result, error)
}

// HealthChecker is implemented by every infrastructure client
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ChatConfig tunes chat replies
type ChatConfig struct {
	SystemPrompt string
	HistoryLimit int
	FactsLimit   int
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	Storage      *storage.Storage
	Tokens       *auth.TokenManager
	Hasher       *auth.Hasher
	Dispatcher   TaskDispatcher
	Importer     VacancyImporter
	ChatImporter ChatImporter
	Generator    llm.Generator
	HealthChecks map[string]HealthChecker
	Chat         ChatConfig
	DefaultLimit int
	MaxLimit     int
	// MaxUploadBytes caps the size of an uploaded chat export
	MaxUploadBytes int64
}

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// SetPrincipal stores the authenticated caller on the request context
func SetPrincipal(c *gin.Context, userID string, role domain.UserRole) {
	c.Set(ctxUserID, userID)
	c.Set(ctxRole, role)
}

// CurrentUserID returns the authenticated caller, empty when the route is public
func CurrentUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// CurrentRole returns the role of the authenticated caller
func CurrentRole(c *gin.Context) domain.UserRole {
	role, _ := c.Get(ctxRole)
	r, _ := role.(domain.UserRole)
	return r
}

// respondError translates domain errors into HTTP responses in one place
func respondError(c *gin.Context, logger *slog.Logger, err error, msg string) {
	var conflict *task.ConflictError

	switch {
	case errors.Is(err, pagination.ErrInvalidCursor):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cursor", "message": err.Error()})
	case errors.Is(err, pagination.ErrConflictingCursors):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cursor", "message": err.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "task already in progress",
			"message": err.Error(),
			"task_id": conflict.TaskID,
		})
	case errors.Is(err, task.ErrInvalidParams),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInviteUnavailable),
		errors.Is(err, domain.ErrConversationArchived):
		c.JSON(http.StatusBadRequest, gin.H{"error": msg, "message": err.Error()})
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, importer.ErrVacancyNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": msg, "message": err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, domain.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": msg, "message": err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	default:
		logger.Error(msg, slog.String("error", err.Error()), slog.String("path", c.Request.URL.Path))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

func badRequest(c *gin.Context, msg string, err error) {
	body := gin.H{"error": msg}
	if err != nil {
		body["message"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}

// listing turns the shared query parameters into storage options
type listing struct {
	defaultLimit int
	maxLimit     int
}

func newListing(deps *Dependencies) listing {
	l := listing{defaultLimit: deps.DefaultLimit, maxLimit: deps.MaxLimit}
	if l.maxLimit <= 0 {
		l.maxLimit = pagination.MaxLimit
	}
	if l.defaultLimit <= 0 {
		l.defaultLimit = pagination.DefaultLimit
	}
	return l
}

func (l listing) limit(requested int) int {
	return pagination.ValidateLimit(requested, l.defaultLimit, l.maxLimit)
}

func (l listing) options(q dto.ListQuery) (storage.ListOptions, error) {
	cursor, err := decodeCursor(q.Cursor)
	if err != nil {
		return storage.ListOptions{}, err
	}
	return storage.ListOptions{Limit: l.limit(q.Limit), Cursor: cursor}, nil
}

// decodeCursor treats an absent cursor as the first page. Every keyset is
// (created_at, uuid), so a cursor naming any other id is rejected here
// instead of failing the query.
func decodeCursor(raw string) (*pagination.Cursor, error) {
	if raw == "" {
		return nil, nil
	}
	cursor, err := pagination.DecodeCursor(raw)
	if err != nil {
		return nil, err
	}
	if !domain.IsValidID(cursor.ID) {
		return nil, fmt.Errorf("%w: id_str is not a valid id", pagination.ErrInvalidCursor)
	}
	return &cursor, nil
}
