package dto

import (
	"time"

	"github.com/cuongbtq/career-assistant/internal/api/model"
)

type ListConversationsQuery struct {
	ListQuery
	IncludeArchived bool `form:"include_archived"`
}

type CreateConversationRequest struct {
	Title string `json:"title" binding:"required,max=255"`
}

type UpdateConversationRequest struct {
	Title      *string `json:"title" binding:"omitempty,min=1,max=255"`
	IsArchived *bool   `json:"is_archived"`
}

type ConversationDTO struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	IsArchived bool      `json:"is_archived"`
	Source     *string   `json:"source"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func NewConversationDTO(c model.Conversation) ConversationDTO {
	return ConversationDTO{
		ID:         c.ID,
		Title:      c.Title,
		IsArchived: c.IsArchived,
		Source:     stringPtr(c.Source),
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

type SendMessageRequest struct {
	Content   string  `json:"content"`
	PromptID  *string `json:"prompt_id"`
	WithFacts bool    `json:"with_facts"`
}

type MessageDTO struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	Model          *string   `json:"model"`
	TokensUsed     *int64    `json:"tokens_used"`
	CreatedAt      time.Time `json:"created_at"`
}

func NewMessageDTO(m model.Message) MessageDTO {
	return MessageDTO{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Role:           string(m.Role),
		Content:        m.Content,
		Model:          stringPtr(m.Model),
		TokensUsed:     int64Ptr(m.TokensUsed),
		CreatedAt:      m.CreatedAt,
	}
}

type ListFactsQuery struct {
	ListQuery
	Category        string `form:"category"`
	SourceType      string `form:"source_type"`
	IncludeInactive bool   `form:"include_inactive"`
}

type CreateFactRequest struct {
	Content    string   `json:"content" binding:"required"`
	Category   string   `json:"category" binding:"required"`
	SourceType string   `json:"source_type"`
	Confidence *float64 `json:"confidence" binding:"omitempty,min=0,max=1"`
}

type UpdateFactRequest struct {
	Content    *string  `json:"content" binding:"omitempty,min=1"`
	Category   *string  `json:"category"`
	Confidence *float64 `json:"confidence" binding:"omitempty,min=0,max=1"`
	IsActive   *bool    `json:"is_active"`
}

type FactDTO struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Category   string    `json:"category"`
	SourceType string    `json:"source_type"`
	Confidence float64   `json:"confidence"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func NewFactDTO(f model.Fact) FactDTO {
	return FactDTO{
		ID:         f.ID,
		Content:    f.Content,
		Category:   string(f.Category),
		SourceType: string(f.SourceType),
		Confidence: f.Confidence,
		IsActive:   f.IsActive,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

type ListPromptsQuery struct {
	ListQuery
	IncludeInactive bool `form:"include_inactive"`
}

type CreatePromptRequest struct {
	Title   string `json:"title" binding:"required,max=255"`
	Content string `json:"content" binding:"required"`
}

type UpdatePromptRequest struct {
	Title    *string `json:"title" binding:"omitempty,min=1,max=255"`
	Content  *string `json:"content" binding:"omitempty,min=1"`
	IsActive *bool   `json:"is_active"`
}

type PromptDTO struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewPromptDTO(p model.Prompt) PromptDTO {
	return PromptDTO{
		ID:        p.ID,
		Title:     p.Title,
		Content:   p.Content,
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
