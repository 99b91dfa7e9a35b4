// Package chatimport loads conversation history exported from ChatGPT or
// Claude and stores every conversation as an imported conversation of the
// uploading user.
package chatimport

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cuongbtq/career-assistant/internal/api/domain"
	"github.com/cuongbtq/career-assistant/internal/api/model"
)

// ErrMalformedExport is returned when the file is not an export of the provider
var ErrMalformedExport = fmt.Errorf("%w: malformed export file", domain.ErrValidation)

const (
	maxTitleLength = 255
	defaultTitle   = "Imported conversation"
)

type Provider string

const (
	ProviderGPT    Provider = "gpt"
	ProviderClaude Provider = "claude"
)

func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderGPT, ProviderClaude:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown provider %q, expected gpt or claude", domain.ErrValidation, s)
	}
}

// Source is the value stored in conversations.source
func (p Provider) Source() string {
	switch p {
	case ProviderGPT:
		return "chatgpt"
	case ProviderClaude:
		return "claude"
	default:
		return string(p)
	}
}

// Store persists imported conversations
type Store interface {
	CreateImportedConversation(ctx context.Context, conv *model.Conversation, msgs []model.Message) error
}

// Result summarises one uploaded file
type Result struct {
	Provider   Provider `json:"provider"`
	Total      int      `json:"total"`
	Imported   int      `json:"imported"`
	Duplicates int      `json:"duplicates"`
	Empty      int      `json:"empty"`
	Messages   int      `json:"messages"`
}

// conversation is the provider independent form of one exported chat
type conversation struct {
	sourceID  string
	title     string
	createdAt time.Time
	messages  []message
}

type message struct {
	role      domain.MessageRole
	content   string
	model     string
	createdAt time.Time
}

type Importer struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func New(store Store, logger *slog.Logger) *Importer {
	return &Importer{store: store, logger: logger, now: time.Now}
}

// Import decodes the export one conversation at a time and stores each of
// them. Conversations imported before are counted as duplicates and left
// untouched. A malformed file stops the import; conversations stored before
// the broken element stay imported.
func (im *Importer) Import(ctx context.Context, userID string, provider Provider, r io.Reader) (*Result, error) {
	log := im.logger.With(slog.String("user_id", userID), slog.String("provider", string(provider)))
	res := &Result{Provider: provider}

	dec := json.NewDecoder(r)
	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}

	for dec.More() {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		conv, err := im.decodeOne(dec, provider)
		if err != nil {
			return res, err
		}
		res.Total++

		if conv.sourceID == "" || len(conv.messages) == 0 {
			res.Empty++
			continue
		}

		stored, msgs := im.toModel(userID, provider, conv)
		err = im.store.CreateImportedConversation(ctx, stored, msgs)
		switch {
		case errors.Is(err, domain.ErrAlreadyExists):
			res.Duplicates++
			log.Debug("Conversation already imported", slog.String("source_id", conv.sourceID))
		case err != nil:
			return res, fmt.Errorf("failed to store conversation %s: %w", conv.sourceID, err)
		default:
			res.Imported++
			res.Messages += len(msgs)
		}
	}

	if err := expectDelim(dec, ']'); err != nil {
		return res, err
	}

	log.Info("Chat history imported",
		slog.Int("total", res.Total),
		slog.Int("imported", res.Imported),
		slog.Int("duplicates", res.Duplicates),
		slog.Int("empty", res.Empty),
		slog.Int("messages", res.Messages),
	)
	return res, nil
}

func (im *Importer) decodeOne(dec *json.Decoder, provider Provider) (*conversation, error) {
	switch provider {
	case ProviderGPT:
		var raw gptConversation
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedExport, err)
		}
		return raw.convert(), nil
	case ProviderClaude:
		var raw claudeConversation
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedExport, err)
		}
		return raw.convert(), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrValidation, provider)
	}
}

// toModel fills in missing timestamps and keeps message times strictly
// increasing so cursor pagination returns the export order.
func (im *Importer) toModel(userID string, provider Provider, conv *conversation) (*model.Conversation, []model.Message) {
	createdAt := conv.createdAt
	if createdAt.IsZero() {
		createdAt = im.now()
	}
	createdAt = createdAt.UTC().Truncate(time.Microsecond)

	msgs := make([]model.Message, len(conv.messages))
	prev := createdAt.Add(-time.Microsecond)
	for i, m := range conv.messages {
		at := m.createdAt.UTC().Truncate(time.Microsecond)
		if !at.After(prev) {
			at = prev.Add(time.Microsecond)
		}
		prev = at

		msgs[i] = model.Message{
			Role:      m.role,
			Content:   m.content,
			Model:     sql.NullString{String: m.model, Valid: m.model != ""},
			CreatedAt: at,
		}
	}

	return &model.Conversation{
		UserID:    userID,
		Title:     title(conv.title),
		Source:    sql.NullString{String: provider.Source(), Valid: true},
		SourceID:  sql.NullString{String: conv.sourceID, Valid: true},
		CreatedAt: createdAt,
	}, msgs
}

func title(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultTitle
	}
	if utf8.RuneCountInString(raw) <= maxTitleLength {
		return raw
	}
	return string([]rune(raw)[:maxTitleLength])
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedExport, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: expected %q, got %v", ErrMalformedExport, want, tok)
	}
	return nil
}
