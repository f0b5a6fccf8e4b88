package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mailminder/internal/model"
)

type AIConfigRepository struct {
	db *pgxpool.Pool
}

func NewAIConfigRepository(db *pgxpool.Pool) *AIConfigRepository {
	return &AIConfigRepository{db: db}
}

// Get returns the persisted gateway config, or nil when none was saved
// yet (callers fall back to the static config).
func (r *AIConfigRepository) Get(ctx context.Context) (*model.AIConfig, error) {
	query := `
        SELECT id, api_url, api_key, primary_model, secondary_model, updated_at
        FROM ai_config
        ORDER BY id
        LIMIT 1
    `
	var c model.AIConfig
	err := r.db.QueryRow(ctx, query).Scan(
		&c.ID, &c.APIURL, &c.APIKey, &c.PrimaryModel, &c.SecondaryModel, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Save replaces the single config row.
func (r *AIConfigRepository) Save(ctx context.Context, c *model.AIConfig) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM ai_config`); err != nil {
		return err
	}
	if err := tx.QueryRow(ctx, `
        INSERT INTO ai_config (api_url, api_key, primary_model, secondary_model, updated_at)
        VALUES ($1, $2, $3, $4, NOW())
        RETURNING id, updated_at
    `, c.APIURL, c.APIKey, c.PrimaryModel, c.SecondaryModel).Scan(&c.ID, &c.UpdatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
