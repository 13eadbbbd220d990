package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dauTT/astroport-dca/internal/types"
	"github.com/dauTT/astroport-dca/storage"
)

// The configuration is a singleton row.

func (p *PostgresBackend) GetConfig(ctx context.Context) (types.Config, error) {
	if p.pool == nil {
		return types.Config{}, fmt.Errorf("database pool is nil")
	}

	var doc []byte
	err := p.pool.QueryRow(ctx, `SELECT doc FROM dca_config WHERE singleton`).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Config{}, storage.ErrNotFound
		}
		return types.Config{}, fmt.Errorf("failed to get config: %w", err)
	}

	var cfg types.Config
	if err := json.Unmarshal(doc, &cfg); err != nil {
		return types.Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

func (p *PostgresBackend) SetConfig(ctx context.Context, cfg types.Config) error {
	if p.pool == nil {
		return fmt.Errorf("database pool is nil")
	}

	doc, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	query := `
        INSERT INTO dca_config (singleton, doc)
        VALUES (TRUE, $1)
        ON CONFLICT (singleton) DO UPDATE SET doc = EXCLUDED.doc`

	if _, err := p.pool.Exec(ctx, query, doc); err != nil {
		return fmt.Errorf("failed to store config: %w", err)
	}
	return nil
}
