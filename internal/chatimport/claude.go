package chatimport

import (
	"strings"
	"time"

	"github.com/cuongbtq/career-assistant/internal/api/domain"
)

const claudeDefaultModel = "claude"

// claudeConversation is one element of the Claude conversations.json export
type claudeConversation struct {
	UUID         string          `json:"uuid"`
	Name         string          `json:"name"`
	CreatedAt    time.Time       `json:"created_at"`
	ChatMessages []claudeMessage `json:"chat_messages"`
}

type claudeMessage struct {
	UUID        string             `json:"uuid"`
	Sender      string             `json:"sender"`
	Text        string             `json:"text"`
	CreatedAt   time.Time          `json:"created_at"`
	Content     []claudeContent    `json:"content"`
	Attachments []claudeAttachment `json:"attachments"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type claudeAttachment struct {
	FileName         string `json:"file_name"`
	ExtractedContent string `json:"extracted_content"`
}

func (c *claudeConversation) convert() *conversation {
	conv := &conversation{sourceID: c.UUID, title: c.Name, createdAt: c.CreatedAt}
	for _, m := range c.ChatMessages {
		conv.messages = append(conv.messages, m.convert()...)
	}
	return conv
}

// convert turns one exported message into the text reply plus one user
// message per attachment with extracted text. Tool calls are dropped.
func (m claudeMessage) convert() []message {
	var role domain.MessageRole
	model := ""
	switch m.Sender {
	case "human":
		role = domain.MessageRoleUser
	case "assistant":
		role = domain.MessageRoleAssistant
		model = claudeDefaultModel
	default:
		return nil
	}

	var parts []string
	for _, c := range m.Content {
		if c.Type == "text" && strings.TrimSpace(c.Text) != "" {
			parts = append(parts, c.Text)
		}
	}
	if len(parts) == 0 && strings.TrimSpace(m.Text) != "" {
		parts = append(parts, m.Text)
	}

	var out []message
	if len(parts) > 0 {
		out = append(out, message{role: role, content: strings.Join(parts, "\n"), model: model, createdAt: m.CreatedAt})
	}

	if role != domain.MessageRoleUser {
		return out
	}
	for _, a := range m.Attachments {
		if strings.TrimSpace(a.ExtractedContent) == "" {
			continue
		}
		content := a.ExtractedContent
		if a.FileName != "" {
			content = a.FileName + ":\n" + content
		}
		out = append(out, message{role: role, content: content, createdAt: m.CreatedAt})
	}
	return out
}
