package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kitbuilder587/agentbots/internal/domain"
	"github.com/kitbuilder587/agentbots/internal/repository"
)

const chatUserColumns = `id::text, bot_identity, user_id, memory, encryption_key, created_at, updated_at`

type ChatUserRepo struct {
	db *DB
}

func NewChatUserRepo(db *DB) *ChatUserRepo {
	return &ChatUserRepo{db: db}
}

func (r *ChatUserRepo) Get(ctx context.Context, botIdentity string, userID int64) (*domain.ChatUser, error) {
	query := `SELECT ` + chatUserColumns + ` FROM bot_users WHERE bot_identity = $1 AND user_id = $2`

	u, err := scanChatUser(r.db.Pool.QueryRow(ctx, query, botIdentity, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChatUserNotFound
		}
		return nil, fmt.Errorf("get chat user: %w", err)
	}
	return u, nil
}

// GetOrCreate inserts the user with a fresh key unless it already exists.
// A concurrent insert of the same user loses the race and reads the winner's row.
func (r *ChatUserRepo) GetOrCreate(ctx context.Context, botIdentity string, userID int64, newKey repository.NewKeyFunc) (*domain.ChatUser, error) {
	u, err := r.Get(ctx, botIdentity, userID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrChatUserNotFound) {
		return nil, err
	}

	key, err := newKey()
	if err != nil {
		return nil, fmt.Errorf("generate user key: %w", err)
	}

	query := `
        INSERT INTO bot_users (bot_identity, user_id, encryption_key)
        VALUES ($1, $2, $3)
        ON CONFLICT (bot_identity, user_id) DO NOTHING
    `
	if _, err := r.db.Pool.Exec(ctx, query, botIdentity, userID, key); err != nil {
		return nil, fmt.Errorf("create chat user: %w", err)
	}
	return r.Get(ctx, botIdentity, userID)
}

func (r *ChatUserRepo) UpdateMemory(ctx context.Context, botIdentity string, userID int64, memory []byte) error {
	query := `UPDATE bot_users SET memory = $3, updated_at = NOW() WHERE bot_identity = $1 AND user_id = $2`

	result, err := r.db.Pool.Exec(ctx, query, botIdentity, userID, memory)
	if err != nil {
		return fmt.Errorf("update chat memory: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrChatUserNotFound
	}
	return nil
}

func (r *ChatUserRepo) ClearMemory(ctx context.Context, botIdentity string, userID int64) error {
	query := `UPDATE bot_users SET memory = NULL, updated_at = NOW() WHERE bot_identity = $1 AND user_id = $2`

	result, err := r.db.Pool.Exec(ctx, query, botIdentity, userID)
	if err != nil {
		return fmt.Errorf("clear chat memory: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrChatUserNotFound
	}
	return nil
}

func scanChatUser(row pgx.Row) (*domain.ChatUser, error) {
	var u domain.ChatUser
	var key *string
	err := row.Scan(
		&u.ID,
		&u.BotIdentity,
		&u.UserID,
		&u.Memory,
		&key,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if key != nil {
		u.EncryptionKey = *key
	}
	return &u, nil
}
