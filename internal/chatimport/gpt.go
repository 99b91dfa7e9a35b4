package chatimport

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/cuongbtq/career-assistant/internal/api/domain"
)

const gptDefaultModel = "chatgpt"

// gptConversation is one element of the ChatGPT conversations.json export.
// Messages form a tree keyed by node id; the visible thread is the path from
// current_node back to the root.
type gptConversation struct {
	ID             string             `json:"id"`
	ConversationID string             `json:"conversation_id"`
	Title          string             `json:"title"`
	CreateTime     *float64           `json:"create_time"`
	CurrentNode    string             `json:"current_node"`
	Mapping        map[string]gptNode `json:"mapping"`
}

type gptNode struct {
	ID      string      `json:"id"`
	Parent  *string     `json:"parent"`
	Message *gptMessage `json:"message"`
}

type gptMessage struct {
	ID     string `json:"id"`
	Author struct {
		Role string `json:"role"`
	} `json:"author"`
	CreateTime *float64 `json:"create_time"`
	Content    struct {
		ContentType string            `json:"content_type"`
		Parts       []json.RawMessage `json:"parts"`
	} `json:"content"`
	Metadata struct {
		ModelSlug string `json:"model_slug"`
	} `json:"metadata"`
}

func (c *gptConversation) convert() *conversation {
	id := c.ID
	if id == "" {
		id = c.ConversationID
	}

	conv := &conversation{sourceID: id, title: c.Title, createdAt: unixSeconds(c.CreateTime)}
	for _, node := range c.thread() {
		if m, ok := node.Message.convert(); ok {
			conv.messages = append(conv.messages, m)
		}
	}
	return conv
}

// thread returns the nodes of the visible branch in order. Exports without
// current_node fall back to every node ordered by creation time.
func (c *gptConversation) thread() []gptNode {
	if node, ok := c.Mapping[c.CurrentNode]; ok {
		var path []gptNode
		seen := make(map[string]bool, len(c.Mapping))
		for ok && !seen[node.ID] {
			seen[node.ID] = true
			path = append(path, node)
			if node.Parent == nil {
				break
			}
			node, ok = c.Mapping[*node.Parent]
		}
		for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
			path[i], path[j] = path[j], path[i]
		}
		return path
	}

	nodes := make([]gptNode, 0, len(c.Mapping))
	for _, node := range c.Mapping {
		nodes = append(nodes, node)
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		ti, tj := nodes[i].createdAt(), nodes[j].createdAt()
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return nodes[i].ID < nodes[j].ID
	})
	return nodes
}

func (n gptNode) createdAt() time.Time {
	if n.Message == nil {
		return time.Time{}
	}
	return unixSeconds(n.Message.CreateTime)
}

// convert keeps visible text written by the user or the assistant. System
// prompts, tool output and non-text parts are dropped.
func (m *gptMessage) convert() (message, bool) {
	if m == nil || m.Content.ContentType != "text" {
		return message{}, false
	}

	var role domain.MessageRole
	switch m.Author.Role {
	case "user":
		role = domain.MessageRoleUser
	case "assistant":
		role = domain.MessageRoleAssistant
	default:
		return message{}, false
	}

	var parts []string
	for _, raw := range m.Content.Parts {
		var s string
		if json.Unmarshal(raw, &s) == nil && strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return message{}, false
	}

	out := message{role: role, content: strings.Join(parts, "\n"), createdAt: unixSeconds(m.CreateTime)}
	if role == domain.MessageRoleAssistant {
		out.model = m.Metadata.ModelSlug
		if out.model == "" {
			out.model = gptDefaultModel
		}
	}
	return out, true
}

func unixSeconds(v *float64) time.Time {
	if v == nil || *v <= 0 {
		return time.Time{}
	}
	sec, frac := math.Modf(*v)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}
