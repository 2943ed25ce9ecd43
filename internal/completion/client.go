// Package completion wraps the text-completion providers used by the sales
// agent behind a single Client interface.
package completion

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrUnavailable is returned when no completion provider is configured.
var ErrUnavailable = errors.New("completion: service unavailable")

// Message is one turn of the prompt sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// Request carries the prompt and sampling options. A negative Temperature
// leaves the provider default in place.
type Request struct {
	System      []string
	Messages    []Message
	MaxTokens   int32
	Temperature float32
}

type Response struct {
	Text       string
	Usage      Usage
	StopReason string
}

// Client produces a completion for a prompt.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Unavailable is the Client used when no provider is configured.
type Unavailable struct{}

func (Unavailable) Complete(context.Context, Request) (Response, error) {
	return Response{}, ErrUnavailable
}

// lastUserMessage returns the final user message of a request, if any.
func lastUserMessage(msgs []Message) (Message, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return msgs[i], true
		}
	}
	return Message{}, false
}
