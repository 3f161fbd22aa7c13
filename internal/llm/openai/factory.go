package openai

import (
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kitbuilder587/agentbots/internal/domain"
	"github.com/kitbuilder587/agentbots/internal/llm"
)

// Factory builds one client per distinct API key and reuses it afterwards.
// All clients share the same HTTP transport.
type Factory struct {
	defaults Config
	http     *http.Client
	logger   *zap.Logger
	recorder llm.Recorder

	mu      sync.Mutex
	clients map[string]*Client
}

func NewFactory(defaults Config, logger *zap.Logger, rec llm.Recorder) *Factory {
	defaults.setDefaults()
	return &Factory{
		defaults: defaults,
		http:     &http.Client{Timeout: defaults.Timeout},
		logger:   logger,
		recorder: rec,
		clients:  make(map[string]*Client),
	}
}

// For returns a client for the bot's own key, or for the default key when
// the bot has none.
func (f *Factory) For(credential string) (llm.Client, error) {
	key := strings.TrimSpace(credential)
	if key == "" {
		key = f.defaults.APIKey
	}
	if key == "" {
		return nil, domain.ErrNoCredential
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.clients[key]; ok {
		return c, nil
	}
	cfg := f.defaults
	cfg.APIKey = key
	c := newClient(cfg, f.http, f.logger, f.recorder)
	f.clients[key] = c
	return c, nil
}

var _ llm.Factory = (*Factory)(nil)
