// Package openai talks to any OpenAI-compatible /chat/completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/agentbots/internal/llm"
)

const providerName = "openai"

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

func (c *Config) setDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
}

type Client struct {
	apiKey   string
	model    string
	baseURL  string
	client   *http.Client
	logger   *zap.Logger
	recorder llm.Recorder
}

func New(cfg Config, logger *zap.Logger) *Client {
	cfg.setDefaults()
	return newClient(cfg, &http.Client{Timeout: cfg.Timeout}, logger, nil)
}

func newClient(cfg Config, httpClient *http.Client, logger *zap.Logger, rec llm.Recorder) *Client {
	return &Client{
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		baseURL:  cfg.BaseURL,
		client:   httpClient,
		logger:   logger,
		recorder: rec,
	}
}

// WithRecorder attaches a metrics sink. Passing nil disables recording.
func (c *Client) WithRecorder(rec llm.Recorder) *Client {
	c.recorder = rec
	return c
}

func (c *Client) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	start := time.Now()
	content, err := c.chat(ctx, messages)
	if c.recorder != nil {
		c.recorder.RecordLLMRequest(providerName, statusOf(err), time.Since(start))
	}
	return content, err
}

func (c *Client) chat(ctx context.Context, messages []llm.Message) (string, error) {
	body, err := json.Marshal(llm.NewChatRequest(c.model, messages))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	respBody, statusCode, err := llm.DoRequest(c.client, httpReq)
	if err != nil {
		return "", err
	}
	if statusCode != http.StatusOK {
		return "", llm.HandleHTTPError(statusCode, respBody, c.logger, providerName)
	}

	resp, err := llm.ParseChatResponse(respBody)
	if err != nil {
		return "", err
	}
	return llm.ExtractContent(resp)
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, llm.ErrRateLimit):
		return "rate_limited"
	case errors.Is(err, llm.ErrAuthFailed):
		return "auth_failed"
	default:
		return "error"
	}
}

var _ llm.Client = (*Client)(nil)
