package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kitbuilder587/agentbots/internal/llm"
)

var ErrEmptyMessage = errors.New("message cannot be empty")

type Chatbot struct {
	llmClient llm.Client
	system    string
	logger    *zap.Logger
}

func NewChatbot(llmClient llm.Client, in Instructions, logger *zap.Logger) *Chatbot {
	return &Chatbot{
		llmClient: llmClient,
		system:    SystemPrompt(in),
		logger:    logger,
	}
}

// Reply answers text in the context of mem. The exchange is appended to mem
// only when the LLM call succeeds.
func (c *Chatbot) Reply(ctx context.Context, mem *Memory, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}

	messages := make([]llm.Message, 0, mem.Len()+2)
	if c.system != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: c.system})
	}
	messages = append(messages, mem.Messages()...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: text})

	reply, err := c.llmClient.Chat(ctx, messages)
	if err != nil {
		c.logger.Error("LLM call failed", zap.Error(err))
		return "", fmt.Errorf("llm call failed: %w", err)
	}

	mem.Add(llm.RoleUser, text)
	mem.Add(llm.RoleAssistant, reply)
	return reply, nil
}
