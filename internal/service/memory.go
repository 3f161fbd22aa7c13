package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kitbuilder587/agentbots/internal/domain"
	"github.com/kitbuilder587/agentbots/internal/repository"
	"github.com/kitbuilder587/agentbots/internal/secret"
)

// MemoryStore keeps one opaque conversation blob per (bot, chat user).
// Blobs are sealed with a key that belongs to that user alone.
type MemoryStore interface {
	// Load returns nil when the user is unknown or has no memory yet.
	Load(ctx context.Context, botIdentity string, userID int64) ([]byte, error)
	// Store overwrites the previous blob, registering the user if needed.
	Store(ctx context.Context, botIdentity string, userID int64, blob []byte) error
	Delete(ctx context.Context, botIdentity string, userID int64) error
	UserKey(ctx context.Context, botIdentity string, userID int64) (string, error)
	Register(ctx context.Context, botIdentity string, userID int64) error
}

type memoryStore struct {
	repo   repository.ChatUserRepository
	logger *zap.Logger
}

func NewMemoryStore(repo repository.ChatUserRepository, logger *zap.Logger) MemoryStore {
	return &memoryStore{
		repo:   repo,
		logger: logger,
	}
}

func (s *memoryStore) Load(ctx context.Context, botIdentity string, userID int64) ([]byte, error) {
	user, err := s.repo.Get(ctx, botIdentity, userID)
	if err != nil {
		if errors.Is(err, domain.ErrChatUserNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load chat user: %w", err)
	}
	if !user.HasMemory() {
		return nil, nil
	}

	blob, err := secret.Open(user.EncryptionKey, string(user.Memory))
	if err != nil {
		return nil, fmt.Errorf("open memory: %w", err)
	}
	return blob, nil
}

func (s *memoryStore) Store(ctx context.Context, botIdentity string, userID int64, blob []byte) error {
	user, err := s.repo.GetOrCreate(ctx, botIdentity, userID, secret.GenerateKey)
	if err != nil {
		return fmt.Errorf("get chat user: %w", err)
	}

	sealed, err := secret.Seal(user.EncryptionKey, blob)
	if err != nil {
		return fmt.Errorf("seal memory: %w", err)
	}

	if err := s.repo.UpdateMemory(ctx, botIdentity, userID, []byte(sealed)); err != nil {
		return fmt.Errorf("store memory: %w", err)
	}
	return nil
}

// Delete clears the memory but keeps the user and its key. Unknown users are a no-op.
func (s *memoryStore) Delete(ctx context.Context, botIdentity string, userID int64) error {
	err := s.repo.ClearMemory(ctx, botIdentity, userID)
	if err != nil && !errors.Is(err, domain.ErrChatUserNotFound) {
		return fmt.Errorf("clear memory: %w", err)
	}
	return nil
}

func (s *memoryStore) UserKey(ctx context.Context, botIdentity string, userID int64) (string, error) {
	user, err := s.repo.GetOrCreate(ctx, botIdentity, userID, secret.GenerateKey)
	if err != nil {
		return "", fmt.Errorf("get chat user: %w", err)
	}
	return user.EncryptionKey, nil
}

func (s *memoryStore) Register(ctx context.Context, botIdentity string, userID int64) error {
	user, err := s.repo.GetOrCreate(ctx, botIdentity, userID, secret.GenerateKey)
	if err != nil {
		return fmt.Errorf("register chat user: %w", err)
	}

	s.logger.Debug("chat user registered",
		zap.String("bot", domain.MaskIdentity(botIdentity)),
		zap.Int64("user_id", userID),
		zap.String("id", user.ID),
	)
	return nil
}
