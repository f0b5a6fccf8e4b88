package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"mailminder/internal/model"
)

type WhitelistRepository struct {
	db *pgxpool.Pool
}

func NewWhitelistRepository(db *pgxpool.Pool) *WhitelistRepository {
	return &WhitelistRepository{db: db}
}

// ActivePatterns returns the active domain patterns for a user. Loaded
// once per batch by the orchestrator.
func (r *WhitelistRepository) ActivePatterns(ctx context.Context, userID int) ([]string, error) {
	rows, err := r.db.Query(ctx, `
        SELECT domain_pattern
        FROM service_whitelist
        WHERE user_id = $1 AND is_active = TRUE
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	patterns := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

func (r *WhitelistRepository) List(ctx context.Context, userID int) ([]model.WhitelistEntry, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, user_id, domain_pattern, description, is_active, created_at
        FROM service_whitelist
        WHERE user_id = $1
        ORDER BY domain_pattern
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []model.WhitelistEntry{}
	for rows.Next() {
		var e model.WhitelistEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.DomainPattern, &e.Description, &e.IsActive, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Upsert creates or reactivates a pattern (user_id+domain_pattern unique).
func (r *WhitelistRepository) Upsert(ctx context.Context, e *model.WhitelistEntry) error {
	query := `
        INSERT INTO service_whitelist (user_id, domain_pattern, description, is_active, created_at)
        VALUES ($1, $2, $3, $4, NOW())
        ON CONFLICT (user_id, domain_pattern) DO UPDATE SET
            description = EXCLUDED.description,
            is_active = EXCLUDED.is_active
        RETURNING id, created_at
    `
	return r.db.QueryRow(ctx, query, e.UserID, e.DomainPattern, e.Description, e.IsActive).
		Scan(&e.ID, &e.CreatedAt)
}

func (r *WhitelistRepository) SetActive(ctx context.Context, userID, id int, active bool) (int64, error) {
	tag, err := r.db.Exec(ctx, `
        UPDATE service_whitelist SET is_active = $1 WHERE id = $2 AND user_id = $3
    `, active, id, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *WhitelistRepository) Delete(ctx context.Context, userID, id int) (int64, error) {
	tag, err := r.db.Exec(ctx, `
        DELETE FROM service_whitelist WHERE id = $1 AND user_id = $2
    `, id, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
