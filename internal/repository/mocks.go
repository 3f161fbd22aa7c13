package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kitbuilder587/agentbots/internal/domain"
)

type MockBotRepository struct {
	mu   sync.RWMutex
	bots map[string]*domain.BotConfig // key: Identity

	// Err, when set, is returned by every call. SetRunningErr only affects SetRunning.
	Err           error
	SetRunningErr error
	UpsertCalls   int
}

func NewMockBotRepository() *MockBotRepository {
	return &MockBotRepository{
		bots: make(map[string]*domain.BotConfig),
	}
}

func (m *MockBotRepository) Get(ctx context.Context, identity string) (*domain.BotConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}
	cfg, ok := m.bots[identity]
	if !ok {
		return nil, domain.ErrBotNotFound
	}
	return cfg.Clone(), nil
}

func (m *MockBotRepository) Upsert(ctx context.Context, cfg *domain.BotConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpsertCalls++
	if m.Err != nil {
		return m.Err
	}

	now := time.Now()
	stored := cfg.Clone()
	if existing, ok := m.bots[cfg.Identity]; ok {
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.ID = uuid.NewString()
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	m.bots[cfg.Identity] = stored

	cfg.ID = stored.ID
	cfg.CreatedAt = stored.CreatedAt
	cfg.UpdatedAt = stored.UpdatedAt
	return nil
}

func (m *MockBotRepository) SetRunning(ctx context.Context, identity string, running bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	if m.SetRunningErr != nil {
		return m.SetRunningErr
	}
	cfg, ok := m.bots[identity]
	if !ok {
		return domain.ErrBotNotFound
	}
	cfg.IsRunning = running
	cfg.UpdatedAt = time.Now()
	return nil
}

func (m *MockBotRepository) ListRunning(ctx context.Context) ([]domain.BotConfig, error) {
	all, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	running := all[:0]
	for _, cfg := range all {
		if cfg.IsRunning {
			running = append(running, cfg)
		}
	}
	return running, nil
}

func (m *MockBotRepository) List(ctx context.Context) ([]domain.BotConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}
	result := make([]domain.BotConfig, 0, len(m.bots))
	for _, cfg := range m.bots {
		result = append(result, *cfg.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Identity < result[j].Identity
	})
	return result, nil
}

type chatUserKey struct {
	bot  string
	user int64
}

type MockChatUserRepository struct {
	mu    sync.RWMutex
	users map[chatUserKey]*domain.ChatUser

	Err error
}

func NewMockChatUserRepository() *MockChatUserRepository {
	return &MockChatUserRepository{
		users: make(map[chatUserKey]*domain.ChatUser),
	}
}

func (m *MockChatUserRepository) Get(ctx context.Context, botIdentity string, userID int64) (*domain.ChatUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}
	u, ok := m.users[chatUserKey{botIdentity, userID}]
	if !ok {
		return nil, domain.ErrChatUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockChatUserRepository) GetOrCreate(ctx context.Context, botIdentity string, userID int64, newKey NewKeyFunc) (*domain.ChatUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	key := chatUserKey{botIdentity, userID}
	if u, ok := m.users[key]; ok {
		cp := *u
		return &cp, nil
	}

	encKey, err := newKey()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	u := &domain.ChatUser{
		ID:            uuid.NewString(),
		BotIdentity:   botIdentity,
		UserID:        userID,
		EncryptionKey: encKey,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.users[key] = u
	cp := *u
	return &cp, nil
}

func (m *MockChatUserRepository) UpdateMemory(ctx context.Context, botIdentity string, userID int64, memory []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	u, ok := m.users[chatUserKey{botIdentity, userID}]
	if !ok {
		return domain.ErrChatUserNotFound
	}
	u.Memory = append([]byte(nil), memory...)
	u.UpdatedAt = time.Now()
	return nil
}

func (m *MockChatUserRepository) ClearMemory(ctx context.Context, botIdentity string, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	u, ok := m.users[chatUserKey{botIdentity, userID}]
	if !ok {
		return domain.ErrChatUserNotFound
	}
	u.Memory = nil
	u.UpdatedAt = time.Now()
	return nil
}

var (
	_ BotRepository      = (*MockBotRepository)(nil)
	_ ChatUserRepository = (*MockChatUserRepository)(nil)
)
