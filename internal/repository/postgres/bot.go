package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kitbuilder587/agentbots/internal/domain"
)

const botColumns = `id::text, identity, agent_name, background, steps, output_instructions,
        credential, is_running, created_at, updated_at`

type BotRepo struct {
	db *DB
}

func NewBotRepo(db *DB) *BotRepo {
	return &BotRepo{db: db}
}

func (r *BotRepo) Get(ctx context.Context, identity string) (*domain.BotConfig, error) {
	query := `SELECT ` + botColumns + ` FROM bot_registry WHERE identity = $1`

	cfg, err := scanBot(r.db.Pool.QueryRow(ctx, query, identity))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBotNotFound
		}
		return nil, fmt.Errorf("get bot: %w", err)
	}
	return cfg, nil
}

// Upsert writes the whole record, replacing any previous one with the same identity.
func (r *BotRepo) Upsert(ctx context.Context, cfg *domain.BotConfig) error {
	query := `
        INSERT INTO bot_registry (identity, agent_name, background, steps, output_instructions, credential, is_running)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (identity) DO UPDATE SET
            agent_name = EXCLUDED.agent_name,
            background = EXCLUDED.background,
            steps = EXCLUDED.steps,
            output_instructions = EXCLUDED.output_instructions,
            credential = EXCLUDED.credential,
            is_running = EXCLUDED.is_running,
            updated_at = NOW()
        RETURNING id::text, created_at, updated_at
    `

	stored := cfg.Clone()
	stored.Normalize()

	err := r.db.Pool.QueryRow(ctx, query,
		stored.Identity,
		stored.AgentName,
		stored.Background,
		stored.Steps,
		stored.OutputInstructions,
		nullable(stored.Credential),
		stored.IsRunning,
	).Scan(&cfg.ID, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert bot: %w", err)
	}
	return nil
}

func (r *BotRepo) SetRunning(ctx context.Context, identity string, running bool) error {
	query := `UPDATE bot_registry SET is_running = $2, updated_at = NOW() WHERE identity = $1`

	result, err := r.db.Pool.Exec(ctx, query, identity, running)
	if err != nil {
		return fmt.Errorf("set bot running: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrBotNotFound
	}
	return nil
}

func (r *BotRepo) ListRunning(ctx context.Context) ([]domain.BotConfig, error) {
	return r.list(ctx, `SELECT `+botColumns+` FROM bot_registry WHERE is_running ORDER BY identity`)
}

func (r *BotRepo) List(ctx context.Context) ([]domain.BotConfig, error) {
	return r.list(ctx, `SELECT `+botColumns+` FROM bot_registry ORDER BY identity`)
}

func (r *BotRepo) list(ctx context.Context, query string) ([]domain.BotConfig, error) {
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list bots: %w", err)
	}
	defer rows.Close()

	var bots []domain.BotConfig
	for rows.Next() {
		cfg, err := scanBot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bot: %w", err)
		}
		bots = append(bots, *cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bots: %w", err)
	}
	return bots, nil
}

func scanBot(row pgx.Row) (*domain.BotConfig, error) {
	var cfg domain.BotConfig
	var credential *string
	err := row.Scan(
		&cfg.ID,
		&cfg.Identity,
		&cfg.AgentName,
		&cfg.Background,
		&cfg.Steps,
		&cfg.OutputInstructions,
		&credential,
		&cfg.IsRunning,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if credential != nil {
		cfg.Credential = *credential
	}
	cfg.Normalize()
	return &cfg, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
