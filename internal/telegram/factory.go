package telegram

import (
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/agentbots/internal/agent"
	"github.com/kitbuilder587/agentbots/internal/domain"
	"github.com/kitbuilder587/agentbots/internal/llm"
	"github.com/kitbuilder587/agentbots/internal/metrics"
	"github.com/kitbuilder587/agentbots/internal/ratelimit"
	"github.com/kitbuilder587/agentbots/internal/service"
)

// Factory builds Bot handles. All handles share one HTTP client, the memory
// store, the LLM factory and the rate limiter.
type Factory struct {
	cfg     Config
	client  *http.Client
	memory  service.MemoryStore
	llm     llm.Factory
	limiter *ratelimit.Limiter
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewFactory(cfg Config, memory service.MemoryStore, llmFactory llm.Factory, limiter *ratelimit.Limiter, logger *zap.Logger, m *metrics.Metrics) *Factory {
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = tgbotapi.APIEndpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Factory{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		memory:  memory,
		llm:     llmFactory,
		limiter: limiter,
		logger:  logger,
		metrics: m,
	}
}

func (f *Factory) New(cfg *domain.BotConfig) (*Bot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	llmClient, err := f.llm.For(cfg.Credential)
	if err != nil {
		return nil, fmt.Errorf("llm client: %w", err)
	}

	api := &tgbotapi.BotAPI{
		Token:  cfg.Identity,
		Debug:  f.cfg.Debug,
		Buffer: 100,
		Client: f.client,
	}
	api.SetAPIEndpoint(f.cfg.APIEndpoint)

	logger := f.logger.With(zap.String("bot", domain.MaskIdentity(cfg.Identity)))

	return &Bot{
		cfg: cfg.Clone(),
		api: api,
		chatbot: agent.NewChatbot(llmClient, agent.Instructions{
			Background:         cfg.Background,
			Steps:              cfg.Steps,
			OutputInstructions: cfg.OutputInstructions,
		}, logger),
		memory:  f.memory,
		limiter: f.limiter,
		logger:  logger,
		metrics: f.metrics,
	}, nil
}
