package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/kitbuilder587/agentbots/internal/domain"
)

func TestMockBotRepository_Upsert(t *testing.T) {
	repo := NewMockBotRepository()
	ctx := context.Background()

	cfg := &domain.BotConfig{Identity: "alice", AgentName: "Alice", IsRunning: true}
	if err := repo.Upsert(ctx, cfg); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if cfg.ID == "" {
		t.Error("Upsert() did not assign an ID")
	}
	firstID := cfg.ID

	cfg2 := &domain.BotConfig{Identity: "alice", AgentName: "Alice v2"}
	if err := repo.Upsert(ctx, cfg2); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if cfg2.ID != firstID {
		t.Errorf("second Upsert() ID = %v, want %v", cfg2.ID, firstID)
	}

	got, err := repo.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.AgentName != "Alice v2" {
		t.Errorf("AgentName = %v, want Alice v2", got.AgentName)
	}
	if got.IsRunning {
		t.Error("overwrite should replace the running flag")
	}

	all, _ := repo.List(ctx)
	if len(all) != 1 {
		t.Errorf("List() returned %d records, want 1", len(all))
	}
}

func TestMockBotRepository_GetNotFound(t *testing.T) {
	repo := NewMockBotRepository()

	_, err := repo.Get(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrBotNotFound) {
		t.Errorf("Get() error = %v, want ErrBotNotFound", err)
	}
}

func TestMockBotRepository_GetReturnsCopy(t *testing.T) {
	repo := NewMockBotRepository()
	ctx := context.Background()
	repo.Upsert(ctx, &domain.BotConfig{Identity: "alice", AgentName: "Alice", Steps: []string{"greet"}})

	got, _ := repo.Get(ctx, "alice")
	got.Steps[0] = "mutated"

	again, _ := repo.Get(ctx, "alice")
	if again.Steps[0] != "greet" {
		t.Error("Get() leaked internal state")
	}
}

func TestMockBotRepository_SetRunning(t *testing.T) {
	repo := NewMockBotRepository()
	ctx := context.Background()

	if err := repo.SetRunning(ctx, "ghost", true); !errors.Is(err, domain.ErrBotNotFound) {
		t.Errorf("SetRunning(unknown) error = %v, want ErrBotNotFound", err)
	}

	repo.Upsert(ctx, &domain.BotConfig{Identity: "alice", AgentName: "Alice"})
	repo.Upsert(ctx, &domain.BotConfig{Identity: "bob", AgentName: "Bob"})

	if err := repo.SetRunning(ctx, "alice", true); err != nil {
		t.Fatalf("SetRunning() error = %v", err)
	}

	running, err := repo.ListRunning(ctx)
	if err != nil {
		t.Fatalf("ListRunning() error = %v", err)
	}
	if len(running) != 1 || running[0].Identity != "alice" {
		t.Errorf("ListRunning() = %+v, want only alice", running)
	}
}

func TestMockBotRepository_Err(t *testing.T) {
	repo := NewMockBotRepository()
	repo.Err = errors.New("db down")
	ctx := context.Background()

	if err := repo.Upsert(ctx, &domain.BotConfig{Identity: "a"}); err == nil {
		t.Error("Upsert() expected error")
	}
	if _, err := repo.List(ctx); err == nil {
		t.Error("List() expected error")
	}
	if _, err := repo.ListRunning(ctx); err == nil {
		t.Error("ListRunning() expected error")
	}
}

func TestMockChatUserRepository_GetOrCreate(t *testing.T) {
	repo := NewMockChatUserRepository()
	ctx := context.Background()

	calls := 0
	newKey := func() (string, error) {
		calls++
		return "key-1", nil
	}

	u, err := repo.GetOrCreate(ctx, "alice", 42, newKey)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if u.EncryptionKey != "key-1" {
		t.Errorf("EncryptionKey = %v, want key-1", u.EncryptionKey)
	}

	u2, err := repo.GetOrCreate(ctx, "alice", 42, newKey)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if u2.ID != u.ID {
		t.Error("second GetOrCreate() created a new user")
	}
	if calls != 1 {
		t.Errorf("newKey called %d times, want 1", calls)
	}

	other, _ := repo.GetOrCreate(ctx, "bob", 42, newKey)
	if other.ID == u.ID {
		t.Error("same user id under another bot must be a separate record")
	}
}

func TestMockChatUserRepository_KeyError(t *testing.T) {
	repo := NewMockChatUserRepository()
	keyErr := errors.New("no entropy")

	_, err := repo.GetOrCreate(context.Background(), "alice", 1, func() (string, error) {
		return "", keyErr
	})
	if !errors.Is(err, keyErr) {
		t.Errorf("GetOrCreate() error = %v, want %v", err, keyErr)
	}
	if _, err := repo.Get(context.Background(), "alice", 1); !errors.Is(err, domain.ErrChatUserNotFound) {
		t.Error("failed GetOrCreate() must not leave a record behind")
	}
}

func TestMockChatUserRepository_Memory(t *testing.T) {
	repo := NewMockChatUserRepository()
	ctx := context.Background()

	if err := repo.UpdateMemory(ctx, "alice", 1, []byte("x")); !errors.Is(err, domain.ErrChatUserNotFound) {
		t.Errorf("UpdateMemory(unknown) error = %v, want ErrChatUserNotFound", err)
	}

	repo.GetOrCreate(ctx, "alice", 1, func() (string, error) { return "k", nil })

	if err := repo.UpdateMemory(ctx, "alice", 1, []byte("sealed")); err != nil {
		t.Fatalf("UpdateMemory() error = %v", err)
	}
	u, _ := repo.Get(ctx, "alice", 1)
	if string(u.Memory) != "sealed" {
		t.Errorf("Memory = %q, want sealed", u.Memory)
	}

	if err := repo.ClearMemory(ctx, "alice", 1); err != nil {
		t.Fatalf("ClearMemory() error = %v", err)
	}
	u, _ = repo.Get(ctx, "alice", 1)
	if u.HasMemory() {
		t.Error("ClearMemory() left memory behind")
	}
	if u.EncryptionKey != "k" {
		t.Error("ClearMemory() must keep the encryption key")
	}
}
