package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cuongbtq/career-assistant/internal/api/auth"
	"github.com/cuongbtq/career-assistant/internal/api/domain"
	"github.com/cuongbtq/career-assistant/internal/api/handler"
	"github.com/cuongbtq/career-assistant/internal/api/model"
	"github.com/cuongbtq/career-assistant/internal/api/router"
	"github.com/cuongbtq/career-assistant/internal/api/storage"
	"github.com/cuongbtq/career-assistant/internal/chatimport"
	"github.com/cuongbtq/career-assistant/internal/importer"
	"github.com/cuongbtq/career-assistant/internal/storetest"
	"github.com/cuongbtq/career-assistant/internal/task"
	"github.com/cuongbtq/career-assistant/shared/llm"
	"github.com/cuongbtq/career-assistant/shared/rabbitmq"
)

const (
	testPassword    = "password123"
	testUploadLimit = 64 << 10
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeGenerator struct {
	mu       sync.Mutex
	requests []llm.Request
	err      error
}

func (g *fakeGenerator) reply(req llm.Request) string {
	last := req.Messages[len(req.Messages)-1]
	return "echo: " + last.Text
}

func (g *fakeGenerator) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return &llm.Response{Text: g.reply(req), Model: "fake-model", TokensUsed: 7}, nil
}

func (g *fakeGenerator) Stream(ctx context.Context, req llm.Request, onChunk func(string) error) (*llm.Response, error) {
	resp, err := g.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	half := len(resp.Text) / 2
	for _, chunk := range []string{resp.Text[:half], resp.Text[half:]} {
		if err := onChunk(chunk); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (g *fakeGenerator) Model() string { return "fake-model" }

func (g *fakeGenerator) last() llm.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[len(g.requests)-1]
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []rabbitmq.Message
}

func (p *fakePublisher) PublishWithRetry(_ context.Context, msg rabbitmq.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

// fakeImporter stores a synthetic vacancy instead of calling HeadHunter
type fakeImporter struct {
	store *storage.Storage
}

func (f *fakeImporter) ImportOne(ctx context.Context, userID, hhID string) (*model.Vacancy, bool, error) {
	if hhID == "missing" {
		return nil, false, fmt.Errorf("%w: %s", importer.ErrVacancyNotFound, hhID)
	}
	v := &model.Vacancy{
		HHID:         hhID,
		Title:        "Vacancy " + hhID,
		Description:  sql.NullString{String: "Go developer", Valid: true},
		ExperienceID: sql.NullString{String: string(task.ExperienceBetween1And3), Valid: true},
	}
	created, err := f.store.SaveVacancyForUser(ctx, userID, v)
	return v, created, err
}

type fakeChecker struct{ err error }

func (f fakeChecker) HealthCheck(context.Context) error { return f.err }

type server struct {
	engine    *gin.Engine
	store     *storage.Storage
	tokens    *auth.TokenManager
	hasher    *auth.Hasher
	generator *fakeGenerator
	publisher *fakePublisher
	deps      *handler.Dependencies
}

func newServer(t *testing.T) *server {
	t.Helper()

	store := storage.NewStorage(storetest.New(t))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	publisher := &fakePublisher{}
	dispatcher := task.NewDispatcher(store, task.NewRedisLocker(client), publisher, task.DispatcherConfig{LockTTL: time.Minute}, logger)

	s := &server{
		store:     store,
		tokens:    auth.NewTokenManager("test-secret-test-secret-test-secret", "career-assistant-test", time.Hour),
		hasher:    auth.NewHasher(bcrypt.MinCost),
		generator: &fakeGenerator{},
		publisher: publisher,
	}
	s.deps = &handler.Dependencies{
		Logger:         logger,
		Storage:        store,
		Tokens:         s.tokens,
		Hasher:         s.hasher,
		Dispatcher:     dispatcher,
		Importer:       &fakeImporter{store: store},
		ChatImporter:   chatimport.New(store, logger),
		Generator:      s.generator,
		HealthChecks:   map[string]handler.HealthChecker{"database": fakeChecker{}},
		DefaultLimit:   20,
		MaxLimit:       100,
		MaxUploadBytes: testUploadLimit,
	}
	s.engine = router.SetupRouter(s.deps)
	return s
}

// user creates an account directly in storage and returns its id and a token
func (s *server) user(t *testing.T, username string, role domain.UserRole) (string, string) {
	t.Helper()

	hash, err := s.hasher.Hash(testPassword)
	require.NoError(t, err)

	u := &model.User{Username: username, Email: username + "@example.com", PasswordHash: hash, Role: role}
	require.NoError(t, s.store.CreateUser(context.Background(), u))

	token, err := s.tokens.Issue(u.ID, role)
	require.NoError(t, err)
	return u.ID, token
}

func (s *server) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	TaskID  string `json:"task_id"`
}

type page[T any] struct {
	Items      []T     `json:"items"`
	NextCursor *string `json:"next_cursor"`
	PrevCursor *string `json:"prev_cursor"`
	HasNext    bool    `json:"has_next"`
	HasPrev    bool    `json:"has_prev"`
}

func TestHealth(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"database":"healthy"`)

	s.deps.HealthChecks["redis"] = fakeChecker{err: errors.New("connection refused")}
	s.engine = router.SetupRouter(s.deps)

	rec = s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "connection refused"))
}

func newRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}
