package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/agentbots/internal/agent"
)

const (
	msgMemoryDeleted = "Chat memory has been deleted."
	msgTrouble       = "I'm having trouble processing your request. Please try again later."
	msgRateLimited   = "Too many messages. Please wait a minute."
	msgError         = "Something went wrong. Please try again later."
)

// handleMessage returns the outcome label for metrics and a non-nil error
// only when state could not be persisted. The chat user is registered before
// anything else, so it exists even when the turn is rate limited or fails.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) (string, error) {
	regErr := b.memory.Register(ctx, b.cfg.Identity, msg.Chat.ID)
	if regErr != nil {
		b.logger.Error("failed to register chat user", zap.Error(regErr), zap.Int64("chat_id", msg.Chat.ID))
	}

	status, err := b.dispatch(ctx, msg)
	if err == nil && regErr != nil {
		return "failed", regErr
	}
	return status, err
}

func (b *Bot) dispatch(ctx context.Context, msg *tgbotapi.Message) (string, error) {
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			return b.handleStart(msg)
		case "delete_memory":
			return b.handleDeleteMemory(ctx, msg)
		}
		// прочие команды уходят агенту как обычный текст
	}
	return b.handleChat(ctx, msg)
}

func (b *Bot) handleStart(msg *tgbotapi.Message) (string, error) {
	b.reply(msg.Chat.ID, fmt.Sprintf("Welcome to %s! 🤖", b.cfg.AgentName))
	return "processed", nil
}

func (b *Bot) handleDeleteMemory(ctx context.Context, msg *tgbotapi.Message) (string, error) {
	chatID := msg.Chat.ID

	if err := b.memory.Delete(ctx, b.cfg.Identity, chatID); err != nil {
		b.logger.Error("failed to delete memory", zap.Error(err), zap.Int64("chat_id", chatID))
		b.reply(chatID, msgError)
		return "failed", err
	}

	b.reply(chatID, msgMemoryDeleted)
	return "processed", nil
}

func (b *Bot) handleChat(ctx context.Context, msg *tgbotapi.Message) (string, error) {
	chatID := msg.Chat.ID

	if b.limiter != nil && !b.limiter.Allow(rateKey(b.cfg.Identity, chatID)) {
		b.logger.Warn("rate limit exceeded",
			zap.Int64("chat_id", chatID),
			zap.Time("reset_at", b.limiter.ResetTime(rateKey(b.cfg.Identity, chatID))),
		)
		b.metrics.RecordRateLimitHit()
		b.reply(chatID, msgRateLimited)
		return "rate_limited", nil
	}

	b.SendTyping(chatID)

	mem := b.loadMemory(ctx, chatID)

	reply, err := b.chatbot.Reply(ctx, mem, msg.Text)
	if err != nil {
		b.logger.Error("agent failed", zap.Error(err), zap.Int64("chat_id", chatID))
		b.reply(chatID, msgTrouble)
		return "agent_error", nil
	}

	b.reply(chatID, reply)

	dump, err := mem.Dump()
	if err != nil {
		return "failed", err
	}
	if err := b.memory.Store(ctx, b.cfg.Identity, chatID, dump); err != nil {
		b.logger.Error("failed to store memory", zap.Error(err), zap.Int64("chat_id", chatID))
		return "failed", err
	}
	return "processed", nil
}

// reply sends text and logs a delivery failure; the turn itself still counts.
func (b *Bot) reply(chatID int64, text string) {
	if err := b.Send(chatID, text); err != nil {
		b.logger.Error("failed to send message", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

// loadMemory never fails: unreadable memory is logged and replaced by an empty one.
func (b *Bot) loadMemory(ctx context.Context, chatID int64) *agent.Memory {
	blob, err := b.memory.Load(ctx, b.cfg.Identity, chatID)
	if err != nil {
		b.logger.Warn("failed to load memory, starting fresh", zap.Error(err), zap.Int64("chat_id", chatID))
		return agent.NewMemory(agent.DefaultMaxMessages)
	}

	mem, err := agent.LoadMemory(blob, agent.DefaultMaxMessages)
	if err != nil {
		b.logger.Warn("corrupt memory, starting fresh", zap.Error(err), zap.Int64("chat_id", chatID))
		return agent.NewMemory(agent.DefaultMaxMessages)
	}
	return mem
}
