package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-flash"

type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	Timeout         time.Duration
}

// Gemini generates text through the Gemini API
type Gemini struct {
	client    *genai.Client
	modelName string
	cfg       GeminiConfig
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	return &Gemini{client: client, modelName: model, cfg: cfg}, nil
}

func (g *Gemini) Model() string {
	return g.modelName
}

func (g *Gemini) Generate(ctx context.Context, req Request) (*Response, error) {
	contents, err := toContents(req.Messages)
	if err != nil {
		return nil, err
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, g.config(req.System))
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, ErrEmptyResponse
	}

	return &Response{Text: text, Model: g.modelName, TokensUsed: tokensUsed(resp)}, nil
}

func (g *Gemini) Stream(ctx context.Context, req Request, onChunk func(string) error) (*Response, error) {
	contents, err := toContents(req.Messages)
	if err != nil {
		return nil, err
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	var (
		builder strings.Builder
		tokens  int
	)
	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.modelName, contents, g.config(req.System)) {
		if err != nil {
			return nil, fmt.Errorf("stream content: %w", err)
		}

		chunk := resp.Text()
		if chunk != "" {
			builder.WriteString(chunk)
			if err := onChunk(chunk); err != nil {
				return nil, err
			}
		}
		if n := tokensUsed(resp); n > 0 {
			tokens = n
		}
	}

	text := strings.TrimSpace(builder.String())
	if text == "" {
		return nil, ErrEmptyResponse
	}

	return &Response{Text: text, Model: g.modelName, TokensUsed: tokens}, nil
}

func (g *Gemini) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.cfg.Timeout)
}

func (g *Gemini) config(system string) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if system = strings.TrimSpace(system); system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if g.cfg.Temperature > 0 {
		cfg.Temperature = genai.Ptr(g.cfg.Temperature)
	}
	if g.cfg.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = g.cfg.MaxOutputTokens
	}
	return cfg
}

// toContents maps conversation turns to Gemini contents; assistant turns
// become "model" turns and blank messages are dropped.
func toContents(messages []Message) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		text := strings.TrimSpace(m.Text)
		if text == "" {
			continue
		}

		role := genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: text}},
		})
	}

	if len(contents) == 0 {
		return nil, errors.New("prompt must not be empty")
	}
	return contents, nil
}

func tokensUsed(resp *genai.GenerateContentResponse) int {
	if resp == nil || resp.UsageMetadata == nil {
		return 0
	}
	return int(resp.UsageMetadata.TotalTokenCount)
}
