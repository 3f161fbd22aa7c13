package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/agentbots/internal/agent"
	"github.com/kitbuilder587/agentbots/internal/domain"
	"github.com/kitbuilder587/agentbots/internal/metrics"
	"github.com/kitbuilder587/agentbots/internal/ratelimit"
	"github.com/kitbuilder587/agentbots/internal/service"
)

const maxMessageLen = 4096 // лимит телеграма

type Config struct {
	// APIEndpoint is a format string taking the token and the method name.
	APIEndpoint string
	Timeout     time.Duration
	Debug       bool
}

// Bot is the live handle of one configured Telegram bot. It never talks to
// Telegram on construction; the first network call is RegisterWebhook or a reply.
type Bot struct {
	cfg     *domain.BotConfig
	api     *tgbotapi.BotAPI
	chatbot *agent.Chatbot
	memory  service.MemoryStore
	limiter *ratelimit.Limiter
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func (b *Bot) Identity() string { return b.cfg.Identity }

func (b *Bot) Config() *domain.BotConfig { return b.cfg.Clone() }

// RegisterWebhook points Telegram at webhookURL, replacing any previous
// webhook, and installs the command menu.
func (b *Bot) RegisterWebhook(webhookURL string) error {
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		b.logger.Warn("failed to delete previous webhook", zap.Error(err))
	}

	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return fmt.Errorf("build webhook config: %w", err)
	}
	if _, err := b.api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	commands := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Start the conversation"},
		tgbotapi.BotCommand{Command: "delete_memory", Description: "🗑 Delete Memory"},
	)
	if _, err := b.api.Request(commands); err != nil {
		b.logger.Warn("failed to set bot commands", zap.Error(err))
	}

	b.logger.Info("webhook registered")
	return nil
}

func (b *Bot) RemoveWebhook() error {
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	b.logger.Info("webhook removed")
	return nil
}

// ProcessUpdate handles one inbound update synchronously. Only storage
// failures are returned; user-facing problems are answered in the chat.
func (b *Bot) ProcessUpdate(ctx context.Context, update tgbotapi.Update) (err error) {
	startTime := time.Now()

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic in update handler",
				zap.Any("panic", r),
				zap.Int("update_id", update.UpdateID),
			)
			b.metrics.RecordUpdate("panic")
			err = fmt.Errorf("panic while handling update %d", update.UpdateID)
		}
	}()

	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.Text == "" {
		b.metrics.RecordUpdate("ignored")
		return nil
	}

	status, err := b.handleMessage(ctx, msg)
	if err != nil && status == "" {
		status = "failed"
	}
	b.metrics.RecordUpdate(status)

	b.logger.Debug("update processed",
		zap.Int("update_id", update.UpdateID),
		zap.String("status", status),
		zap.Duration("duration", time.Since(startTime)),
	)
	return err
}

func (b *Bot) Send(chatID int64, text string) error {
	var errs []error
	for _, part := range SplitMessage(text, maxMessageLen) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.DisableWebPagePreview = true
		if _, err := b.api.Send(msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Bot) SendTyping(chatID int64) {
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	if _, err := b.api.Request(action); err != nil {
		b.logger.Debug("failed to send typing action", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

func rateKey(identity string, chatID int64) string {
	return identity + ":" + strconv.FormatInt(chatID, 10)
}
