package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mailminder/internal/model"
)

var ErrSystemCategory = errors.New("system category cannot be deleted")

type CategoryRepository struct {
	db *pgxpool.Pool
}

func NewCategoryRepository(db *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// ListByUser returns the user's label vocabulary, feeding prompt
// construction and the UI.
func (r *CategoryRepository) ListByUser(ctx context.Context, userID int) ([]model.Category, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, user_id, key, name, description, ai_instruction, icon, is_system, created_at
        FROM categories
        WHERE user_id = $1
        ORDER BY id
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Key, &c.Name, &c.Description,
			&c.AIInstruction, &c.Icon, &c.IsSystem, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *CategoryRepository) Create(ctx context.Context, c *model.Category) error {
	query := `
        INSERT INTO categories (user_id, key, name, description, ai_instruction, icon, is_system, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
        RETURNING id, created_at
    `
	return r.db.QueryRow(ctx, query,
		c.UserID, c.Key, c.Name, c.Description, c.AIInstruction, c.Icon, c.IsSystem,
	).Scan(&c.ID, &c.CreatedAt)
}

func (r *CategoryRepository) Update(ctx context.Context, c *model.Category) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE categories
        SET name = $1, description = $2, ai_instruction = $3, icon = $4
        WHERE id = $5 AND user_id = $6
    `, c.Name, c.Description, c.AIInstruction, c.Icon, c.ID, c.UserID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes a category unless it is system-protected.
func (r *CategoryRepository) Delete(ctx context.Context, userID, id int) error {
	var isSystem bool
	err := r.db.QueryRow(ctx,
		`SELECT is_system FROM categories WHERE id = $1 AND user_id = $2`, id, userID,
	).Scan(&isSystem)
	if err != nil {
		return err
	}
	if isSystem {
		return ErrSystemCategory
	}

	_, err = r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1 AND user_id = $2`, id, userID)
	return err
}
