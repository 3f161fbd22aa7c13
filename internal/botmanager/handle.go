package botmanager

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kitbuilder587/agentbots/internal/domain"
)

// Handle is a live bot process object held by the manager.
type Handle interface {
	Identity() string
	Config() *domain.BotConfig
	RegisterWebhook(webhookURL string) error
	RemoveWebhook() error
	ProcessUpdate(ctx context.Context, update tgbotapi.Update) error
}

type HandleFactory interface {
	NewHandle(cfg *domain.BotConfig) (Handle, error)
}

type HandleFactoryFunc func(cfg *domain.BotConfig) (Handle, error)

func (f HandleFactoryFunc) NewHandle(cfg *domain.BotConfig) (Handle, error) {
	return f(cfg)
}
