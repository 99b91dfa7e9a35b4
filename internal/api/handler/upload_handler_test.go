package handler_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/career-assistant/internal/api/domain"
	"github.com/cuongbtq/career-assistant/internal/api/dto"
)

const claudeUpload = `[{"uuid":"c-1","name":"Offer","created_at":"2024-06-01T10:00:00Z","chat_messages":[
  {"uuid":"m1","sender":"human","text":"Should I accept?","created_at":"2024-06-01T10:00:01Z","content":[],"attachments":[]},
  {"uuid":"m2","sender":"assistant","text":"","created_at":"2024-06-01T10:00:02Z","content":[{"type":"text","text":"Compare the salary first"}],"attachments":[]}
]}]`

// upload posts content as the multipart field "file"
func (s *server) upload(t *testing.T, token, query, filename, contentType string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v2/uploads/conversations"+query, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func TestImportConversations(t *testing.T) {
	s := newServer(t)
	_, token := s.user(t, "alice", domain.RoleUser)
	_, otherToken := s.user(t, "bob", domain.RoleUser)

	rec := s.upload(t, token, "?provider=claude", "conversations.json", "application/json", []byte(claudeUpload))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[dto.ChatImportResponse](t, rec)
	assert.Equal(t, "conversations.json", res.Filename)
	assert.Equal(t, int64(len(claudeUpload)), res.SizeBytes)
	assert.Equal(t, "claude", res.Provider)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 2, res.Messages)

	rec = s.do(t, http.MethodGet, "/api/v2/conversations", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	convs := decode[page[dto.ConversationDTO]](t, rec)
	require.Len(t, convs.Items, 1)
	require.NotNil(t, convs.Items[0].Source)
	assert.Equal(t, "claude", *convs.Items[0].Source)
	assert.Equal(t, "Offer", convs.Items[0].Title)

	rec = s.do(t, http.MethodGet, "/api/v2/conversations/"+convs.Items[0].ID+"/messages", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	msgs := decode[page[dto.MessageDTO]](t, rec)
	require.Len(t, msgs.Items, 2)
	assert.Equal(t, "Compare the salary first", msgs.Items[1].Content)

	// uploading the same export again adds nothing
	rec = s.upload(t, token, "?provider=claude", "conversations.json", "application/json", []byte(claudeUpload))
	require.Equal(t, http.StatusCreated, rec.Code)
	again := decode[dto.ChatImportResponse](t, rec)
	assert.Equal(t, 0, again.Imported)
	assert.Equal(t, 1, again.Duplicates)

	// imports belong to the uploader only
	rec = s.do(t, http.MethodGet, "/api/v2/conversations", otherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[page[dto.ConversationDTO]](t, rec).Items)
}

func TestImportConversations_Rejected(t *testing.T) {
	s := newServer(t)
	_, token := s.user(t, "alice", domain.RoleUser)

	tests := []struct {
		name        string
		token       string
		query       string
		filename    string
		contentType string
		content     []byte
		status      int
	}{
		{name: "no token", query: "?provider=gpt", filename: "c.json", contentType: "application/json", content: []byte("[]"), status: http.StatusUnauthorized},
		{name: "missing provider", token: token, filename: "c.json", contentType: "application/json", content: []byte("[]"), status: http.StatusBadRequest},
		{name: "unknown provider", token: token, query: "?provider=gemini", filename: "c.json", contentType: "application/json", content: []byte("[]"), status: http.StatusBadRequest},
		{name: "wrong extension", token: token, query: "?provider=gpt", filename: "c.txt", contentType: "application/json", content: []byte("[]"), status: http.StatusBadRequest},
		{name: "wrong content type", token: token, query: "?provider=gpt", filename: "c.json", contentType: "text/plain", content: []byte("[]"), status: http.StatusUnsupportedMediaType},
		{name: "malformed export", token: token, query: "?provider=gpt", filename: "c.json", contentType: "application/json", content: []byte(`{"not":"a list"}`), status: http.StatusBadRequest},
		{name: "too large", token: token, query: "?provider=gpt", filename: "c.json", contentType: "application/json", content: []byte("[" + strings.Repeat(" ", testUploadLimit) + "]"), status: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.upload(t, tt.token, tt.query, tt.filename, tt.contentType, tt.content)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	t.Run("missing file", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/v2/uploads/conversations?provider=gpt", token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
