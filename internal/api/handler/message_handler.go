package handler

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/career-assistant/internal/api/domain"
	"github.com/cuongbtq/career-assistant/internal/api/dto"
	"github.com/cuongbtq/career-assistant/internal/api/model"
	"github.com/cuongbtq/career-assistant/internal/api/storage"
	"github.com/cuongbtq/career-assistant/shared/llm"
)

// DefaultSystemPrompt is used when neither the request nor the config names one
const DefaultSystemPrompt = `You are a career assistant. Help the user with job search, resumes,
interview preparation and professional growth. Be concise and concrete.`

const defaultFactsLimit = 20

// replySaveTimeout bounds storing a reply once it no longer depends on the client
const replySaveTimeout = 10 * time.Second

// MessageHandler lists messages and produces assistant replies
type MessageHandler struct {
	logger    *slog.Logger
	storage   *storage.Storage
	generator llm.Generator
	chat      ChatConfig
	listing   listing
}

func NewMessageHandler(deps *Dependencies) *MessageHandler {
	chat := deps.Chat
	if chat.SystemPrompt == "" {
		chat.SystemPrompt = DefaultSystemPrompt
	}
	if chat.HistoryLimit <= 0 {
		chat.HistoryLimit = 20
	}
	if chat.FactsLimit <= 0 {
		chat.FactsLimit = defaultFactsLimit
	}

	return &MessageHandler{
		logger:    deps.Logger,
		storage:   deps.Storage,
		generator: deps.Generator,
		chat:      chat,
		listing:   newListing(deps),
	}
}

// ListMessages handles GET /api/v2/conversations/:conversation_id/messages
func (h *MessageHandler) ListMessages(c *gin.Context) {
	var q dto.MessagesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "Invalid query parameters", err)
		return
	}

	before, err := decodeCursor(q.Before)
	if err != nil {
		respondError(c, h.logger, err, "Invalid cursor")
		return
	}
	after, err := decodeCursor(q.After)
	if err != nil {
		respondError(c, h.logger, err, "Invalid cursor")
		return
	}

	page, err := h.storage.ListMessages(c.Request.Context(), CurrentUserID(c), c.Param("conversation_id"), storage.MessageFilter{
		Limit:  h.listing.limit(q.Limit),
		Before: before,
		After:  after,
	})
	if err != nil {
		respondError(c, h.logger, err, "Conversation not found")
		return
	}
	c.JSON(http.StatusOK, dto.MapBidirectionalPage(page, dto.NewMessageDTO))
}

// SendMessage handles POST /api/v2/conversations/:conversation_id/messages
func (h *MessageHandler) SendMessage(c *gin.Context) {
	turn, ok := h.prepare(c)
	if !ok {
		return
	}

	resp, err := h.generator.Generate(c.Request.Context(), turn.request)
	if err != nil {
		respondError(c, h.logger, fmt.Errorf("failed to generate reply: %w", err), "Failed to generate reply")
		return
	}

	reply, err := h.saveReply(c.Request.Context(), turn, resp)
	if err != nil {
		respondError(c, h.logger, err, "Failed to store reply")
		return
	}
	c.JSON(http.StatusCreated, dto.NewMessageDTO(*reply))
}

// StreamMessage handles POST /api/v2/conversations/:conversation_id/messages/stream.
// The reply is sent as SSE "message" events followed by one "done" event
// carrying the stored assistant message.
func (h *MessageHandler) StreamMessage(c *gin.Context) {
	turn, ok := h.prepare(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ctx := c.Request.Context()
	resp, err := h.generator.Stream(ctx, turn.request, func(chunk string) error {
		c.SSEvent("message", gin.H{"content": chunk})
		c.Writer.Flush()
		return ctx.Err()
	})
	if err != nil {
		h.logger.Error("Reply stream failed",
			slog.String("conversation_id", turn.conversationID),
			slog.String("error", err.Error()),
		)
		c.SSEvent("error", gin.H{"error": "Failed to generate reply"})
		c.Writer.Flush()
		return
	}

	reply, err := h.saveReply(ctx, turn, resp)
	if err != nil {
		h.logger.Error("Failed to store streamed reply", slog.String("error", err.Error()))
		c.SSEvent("error", gin.H{"error": "Failed to store reply"})
		c.Writer.Flush()
		return
	}

	c.SSEvent("done", dto.NewMessageDTO(*reply))
	c.Writer.Flush()
}

type chatTurn struct {
	conversationID string
	userMessage    *model.Message
	request        llm.Request
}

// prepare validates the request, stores the user message and builds the LLM
// request. It writes the error response itself and reports ok=false.
func (h *MessageHandler) prepare(c *gin.Context) (*chatTurn, bool) {
	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return nil, false
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		badRequest(c, "Message content must not be empty", nil)
		return nil, false
	}

	ctx := c.Request.Context()
	userID := CurrentUserID(c)

	conv, err := h.storage.GetConversation(ctx, userID, c.Param("conversation_id"))
	if err != nil {
		respondError(c, h.logger, err, "Conversation not found")
		return nil, false
	}
	if conv.IsArchived {
		respondError(c, h.logger, domain.ErrConversationArchived, "Conversation is archived")
		return nil, false
	}

	system, err := h.systemPrompt(ctx, userID, req)
	if err != nil {
		respondError(c, h.logger, err, "Prompt not found")
		return nil, false
	}

	msg := &model.Message{ConversationID: conv.ID, Role: domain.MessageRoleUser, Content: content}
	if err := h.storage.CreateMessage(ctx, msg); err != nil {
		respondError(c, h.logger, err, "Failed to store message")
		return nil, false
	}

	history, err := h.storage.RecentMessages(ctx, conv.ID, h.chat.HistoryLimit)
	if err != nil {
		respondError(c, h.logger, err, "Failed to load history")
		return nil, false
	}

	return &chatTurn{
		conversationID: conv.ID,
		userMessage:    msg,
		request:        llm.Request{System: system, Messages: toLLMMessages(history)},
	}, true
}

func (h *MessageHandler) systemPrompt(ctx context.Context, userID string, req dto.SendMessageRequest) (string, error) {
	system := h.chat.SystemPrompt
	if req.PromptID != nil && *req.PromptID != "" {
		if !domain.IsValidID(*req.PromptID) {
			return "", fmt.Errorf("%w: prompt %q", domain.ErrNotFound, *req.PromptID)
		}
		prompt, err := h.storage.GetActivePrompt(ctx, userID, *req.PromptID)
		if err != nil {
			return "", err
		}
		system = prompt.Content
	}

	if !req.WithFacts {
		return system, nil
	}

	facts, err := h.storage.ActiveFacts(ctx, userID, h.chat.FactsLimit)
	if err != nil {
		return "", err
	}
	return withFacts(system, facts), nil
}

func withFacts(system string, facts []model.Fact) string {
	if len(facts) == 0 {
		return system
	}

	var b strings.Builder
	b.WriteString(system)
	b.WriteString("\n\nKnown facts about the user:\n")
	for _, f := range facts {
		fmt.Fprintf(&b, "- [%s] %s\n", f.Category, f.Content)
	}
	return b.String()
}

// saveReply stores a generated reply. A finished reply is kept even when the
// client has already gone away, so it runs detached from the request.
func (h *MessageHandler) saveReply(ctx context.Context, turn *chatTurn, resp *llm.Response) (*model.Message, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), replySaveTimeout)
	defer cancel()

	reply := &model.Message{
		ConversationID: turn.conversationID,
		Role:           domain.MessageRoleAssistant,
		Content:        resp.Text,
		Model:          sql.NullString{String: resp.Model, Valid: resp.Model != ""},
		TokensUsed:     sql.NullInt64{Int64: int64(resp.TokensUsed), Valid: resp.TokensUsed > 0},
	}
	// the reply must sort after the question even on a coarse clock
	reply.CreatedAt = time.Now().UTC()
	if !reply.CreatedAt.After(turn.userMessage.CreatedAt) {
		reply.CreatedAt = turn.userMessage.CreatedAt.Add(time.Microsecond)
	}

	if err := h.storage.CreateMessage(ctx, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func toLLMMessages(history []model.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case domain.MessageRoleUser:
			out = append(out, llm.Message{Role: llm.RoleUser, Text: m.Content})
		case domain.MessageRoleAssistant:
			out = append(out, llm.Message{Role: llm.RoleAssistant, Text: m.Content})
		}
	}
	return out
}
