package repository

import (
	"context"

	"github.com/kitbuilder587/agentbots/internal/domain"
)

// BotRepository - the durable bot registry. One record per identity.
type BotRepository interface {
	Get(ctx context.Context, identity string) (*domain.BotConfig, error)
	Upsert(ctx context.Context, cfg *domain.BotConfig) error
	SetRunning(ctx context.Context, identity string, running bool) error
	ListRunning(ctx context.Context) ([]domain.BotConfig, error)
	List(ctx context.Context) ([]domain.BotConfig, error)
}

// NewKeyFunc produces the encryption key for a chat user seen for the first time.
type NewKeyFunc func() (string, error)

type ChatUserRepository interface {
	Get(ctx context.Context, botIdentity string, userID int64) (*domain.ChatUser, error)
	GetOrCreate(ctx context.Context, botIdentity string, userID int64, newKey NewKeyFunc) (*domain.ChatUser, error)
	UpdateMemory(ctx context.Context, botIdentity string, userID int64, memory []byte) error
	ClearMemory(ctx context.Context, botIdentity string, userID int64) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}
