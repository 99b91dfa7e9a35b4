// Package llm abstracts the text generation backend used for chat replies
// and vacancy analyses.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when the model produced no text
var ErrEmptyResponse = errors.New("llm: empty response")

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation
type Message struct {
	Role Role
	Text string
}

// Request is a generation request; Messages are ordered oldest first
type Request struct {
	System   string
	Messages []Message
}

// Prompt is a single-turn request
func Prompt(system, text string) Request {
	return Request{System: system, Messages: []Message{{Role: RoleUser, Text: text}}}
}

type Response struct {
	Text       string
	Model      string
	TokensUsed int
}

// Generator produces model replies. Stream calls onChunk for every text
// delta as it arrives and returns the assembled response at the end.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	Stream(ctx context.Context, req Request, onChunk func(string) error) (*Response, error)
	Model() string
}
