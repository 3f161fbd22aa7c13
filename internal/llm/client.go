package llm

import (
	"context"
	"errors"
	"time"
)

var (
	ErrAuthFailed    = errors.New("authentication failed")
	ErrRequestFailed = errors.New("request failed")
	ErrEmptyResponse = errors.New("empty response")
	ErrRateLimit     = errors.New("rate limit exceeded")
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Client interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// Factory hands out a client for a bot's own credential. An empty credential
// means the deployment default.
type Factory interface {
	For(credential string) (Client, error)
}

// Recorder receives one observation per completed LLM call.
type Recorder interface {
	RecordLLMRequest(provider, status string, duration time.Duration)
}

// CompleteWithSystem is the single-turn shortcut: one system and one user message.
func CompleteWithSystem(ctx context.Context, c Client, system, prompt string) (string, error) {
	return c.Chat(ctx, []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: prompt},
	})
}
