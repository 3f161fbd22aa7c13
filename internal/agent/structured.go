package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/kitbuilder587/agentbots/internal/llm"
	"github.com/kitbuilder587/agentbots/internal/schema"
)

var ErrInvalidOutput = errors.New("model output does not match schema")

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")

// Structured is a one-shot agent: a document matching the input schema goes
// in, a document matching the output schema comes out.
type Structured struct {
	llmClient llm.Client
	system    string
	input     schema.Schema
	output    schema.Schema
	logger    *zap.Logger
}

func NewStructured(llmClient llm.Client, in Instructions, input, output schema.Schema, logger *zap.Logger) *Structured {
	var sb strings.Builder
	sb.WriteString(SystemPrompt(in))
	sb.WriteString("\n\n# INPUT FIELDS\n")
	sb.WriteString(input.Describe())
	sb.WriteString("\n# RESPONSE FORMAT\n")
	sb.WriteString("Reply with a single JSON object and nothing else. It must have exactly these fields:\n")
	sb.WriteString(output.Describe())

	return &Structured{
		llmClient: llmClient,
		system:    strings.TrimSpace(sb.String()),
		input:     input,
		output:    output,
		logger:    logger,
	}
}

func (s *Structured) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	if err := s.input.Validate(input); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("marshal input: %w", err)
	}

	content, err := llm.CompleteWithSystem(ctx, s.llmClient, s.system, string(payload))
	if err != nil {
		s.logger.Error("LLM call failed", zap.Error(err))
		return nil, fmt.Errorf("llm call failed: %w", err)
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(extractJSON(content)), &out); err != nil {
		s.logger.Warn("model returned non-JSON output", zap.String("content", content))
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if err := s.output.Validate(out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	return out, nil
}

// extractJSON pulls the object out of a markdown fence or surrounding prose.
func extractJSON(content string) string {
	if m := fencedJSON.FindStringSubmatch(content); len(m) > 1 {
		return m[1]
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return strings.TrimSpace(content)
}
