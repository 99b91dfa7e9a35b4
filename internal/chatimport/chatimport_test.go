package chatimport

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/career-assistant/internal/api/domain"
	"github.com/cuongbtq/career-assistant/internal/api/model"
	"github.com/cuongbtq/career-assistant/internal/api/storage"
	"github.com/cuongbtq/career-assistant/internal/storetest"
)

const gptExport = `[
  {
    "id": "gpt-conv-1",
    "title": "Go interview",
    "create_time": 1717200000.5,
    "current_node": "n4",
    "mapping": {
      "root": {"id": "root", "parent": null, "message": null},
      "n1": {"id": "n1", "parent": "root", "message": {
        "id": "m1", "author": {"role": "system"}, "create_time": null,
        "content": {"content_type": "text", "parts": [""]}, "metadata": {}}},
      "n2": {"id": "n2", "parent": "n1", "message": {
        "id": "m2", "author": {"role": "user"}, "create_time": 1717200010,
        "content": {"content_type": "text", "parts": ["How do channels work?"]}, "metadata": {}}},
      "n3-old": {"id": "n3-old", "parent": "n2", "message": {
        "id": "m3-old", "author": {"role": "assistant"}, "create_time": 1717200011,
        "content": {"content_type": "text", "parts": ["discarded branch"]}, "metadata": {}}},
      "n3": {"id": "n3", "parent": "n2", "message": {
        "id": "m3", "author": {"role": "assistant"}, "create_time": 1717200012,
        "content": {"content_type": "text", "parts": ["They pass values", {"asset": "img"}, "between goroutines"]},
        "metadata": {"model_slug": "gpt-4o"}}},
      "n4": {"id": "n4", "parent": "n3", "message": {
        "id": "m4", "author": {"role": "tool"}, "create_time": 1717200013,
        "content": {"content_type": "code", "text": "print(1)"}, "metadata": {}}}
    }
  },
  {
    "id": "gpt-conv-2",
    "title": "",
    "create_time": 1717300000,
    "mapping": {
      "a": {"id": "a", "parent": null, "message": {
        "id": "ma", "author": {"role": "user"}, "create_time": 1717300005,
        "content": {"content_type": "text", "parts": ["first"]}, "metadata": {}}},
      "b": {"id": "b", "parent": "a", "message": {
        "id": "mb", "author": {"role": "assistant"}, "create_time": 1717300005,
        "content": {"content_type": "text", "parts": ["second"]}, "metadata": {}}}
    }
  },
  {
    "id": "gpt-empty",
    "title": "Nothing here",
    "mapping": {"root": {"id": "root", "parent": null, "message": null}}
  }
]`

const claudeExport = `[
  {
    "uuid": "claude-conv-1",
    "name": "Resume review",
    "created_at": "2024-06-01T10:00:00.000000Z",
    "chat_messages": [
      {
        "uuid": "c1", "sender": "human", "text": "",
        "created_at": "2024-06-01T10:00:01.000000Z",
        "content": [{"type": "text", "text": "Please review my resume"}],
        "attachments": [{"file_name": "cv.txt", "extracted_content": "Go developer"}, {"file_name": "empty.txt", "extracted_content": ""}]
      },
      {
        "uuid": "c2", "sender": "assistant", "text": "Looks solid",
        "created_at": "2024-06-01T10:00:05.000000Z",
        "content": [{"type": "tool_use", "name": "search"}],
        "attachments": []
      }
    ]
  }
]`

func newFixture(t *testing.T) (*Importer, *storage.Storage, string) {
	t.Helper()

	store := storage.NewStorage(storetest.New(t))
	user := &model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"}
	require.NoError(t, store.CreateUser(context.Background(), user))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	im := New(store, logger)
	im.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return im, store, user.ID
}

func conversations(t *testing.T, store *storage.Storage, userID string) map[string]model.Conversation {
	t.Helper()

	page, err := store.ListConversations(context.Background(), userID, storage.ConversationFilter{ListOptions: storage.ListOptions{Limit: 50}})
	require.NoError(t, err)

	out := make(map[string]model.Conversation, len(page.Items))
	for _, c := range page.Items {
		out[c.SourceID.String] = c
	}
	return out
}

func messages(t *testing.T, store *storage.Storage, userID, conversationID string) []model.Message {
	t.Helper()

	page, err := store.ListMessages(context.Background(), userID, conversationID, storage.MessageFilter{Limit: 50})
	require.NoError(t, err)
	return page.Items
}

func TestImport_GPT(t *testing.T) {
	im, store, userID := newFixture(t)
	ctx := context.Background()

	res, err := im.Import(ctx, userID, ProviderGPT, strings.NewReader(gptExport))
	require.NoError(t, err)
	assert.Equal(t, &Result{Provider: ProviderGPT, Total: 3, Imported: 2, Empty: 1, Messages: 4}, res)

	convs := conversations(t, store, userID)
	require.Len(t, convs, 2)

	first := convs["gpt-conv-1"]
	assert.Equal(t, "Go interview", first.Title)
	assert.Equal(t, "chatgpt", first.Source.String)

	msgs := messages(t, store, userID, first.ID)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.MessageRoleUser, msgs[0].Role)
	assert.Equal(t, "How do channels work?", msgs[0].Content)
	assert.Equal(t, domain.MessageRoleAssistant, msgs[1].Role)
	assert.Equal(t, "They pass values\nbetween goroutines", msgs[1].Content)
	assert.Equal(t, "gpt-4o", msgs[1].Model.String)

	second := convs["gpt-conv-2"]
	assert.Equal(t, defaultTitle, second.Title)

	// equal export timestamps still come back in export order
	msgs = messages(t, store, userID, second.ID)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)
	assert.True(t, msgs[1].CreatedAt.After(msgs[0].CreatedAt))
	assert.Equal(t, gptDefaultModel, msgs[1].Model.String)
}

func TestImport_Claude(t *testing.T) {
	im, store, userID := newFixture(t)

	res, err := im.Import(context.Background(), userID, ProviderClaude, strings.NewReader(claudeExport))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 3, res.Messages)

	conv := conversations(t, store, userID)["claude-conv-1"]
	assert.Equal(t, "Resume review", conv.Title)
	assert.Equal(t, "claude", conv.Source.String)
	assert.Equal(t, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), conv.CreatedAt.UTC())

	msgs := messages(t, store, userID, conv.ID)
	require.Len(t, msgs, 3)
	assert.Equal(t, "Please review my resume", msgs[0].Content)
	assert.Equal(t, domain.MessageRoleUser, msgs[1].Role)
	assert.Equal(t, "cv.txt:\nGo developer", msgs[1].Content)
	assert.Equal(t, domain.MessageRoleAssistant, msgs[2].Role)
	assert.Equal(t, "Looks solid", msgs[2].Content)
	assert.Equal(t, claudeDefaultModel, msgs[2].Model.String)
}

func TestImport_SkipsDuplicates(t *testing.T) {
	im, store, userID := newFixture(t)
	ctx := context.Background()

	_, err := im.Import(ctx, userID, ProviderGPT, strings.NewReader(gptExport))
	require.NoError(t, err)

	res, err := im.Import(ctx, userID, ProviderGPT, strings.NewReader(gptExport))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Imported)
	assert.Equal(t, 2, res.Duplicates)
	assert.Len(t, conversations(t, store, userID), 2)

	// the same ids exported by another provider are separate conversations
	other, err := im.Import(ctx, userID, ProviderClaude, strings.NewReader(`[{"uuid":"gpt-conv-1","name":"x","chat_messages":[{"sender":"human","text":"hi"}]}]`))
	require.NoError(t, err)
	assert.Equal(t, 1, other.Imported)
}

func TestImport_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		provider Provider
		body     string
		imported int
	}{
		{name: "not json", provider: ProviderGPT, body: "hello"},
		{name: "object instead of list", provider: ProviderGPT, body: `{"id":"x"}`},
		{name: "wrong field type", provider: ProviderClaude, body: `[{"uuid": 5}]`},
		{name: "truncated", provider: ProviderClaude, body: `[{"uuid":"a","name":"a","chat_messages":[{"sender":"human","text":"hi"}]}, {"uuid":`, imported: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			im, store, userID := newFixture(t)

			_, err := im.Import(context.Background(), userID, tt.provider, strings.NewReader(tt.body))
			require.ErrorIs(t, err, ErrMalformedExport)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Len(t, conversations(t, store, userID), tt.imported)
		})
	}
}

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in      string
		want    Provider
		wantErr bool
	}{
		{in: "gpt", want: ProviderGPT},
		{in: " Claude ", want: ProviderClaude},
		{in: "gemini", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProvider(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTitle(t *testing.T) {
	long := strings.Repeat("я", maxTitleLength+10)
	assert.Equal(t, maxTitleLength, len([]rune(title(long))))
	assert.Equal(t, defaultTitle, title("   "))
	assert.Equal(t, "Plan", title(" Plan "))
}
