package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mailminder/internal/model"
)

type AccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) FindByID(ctx context.Context, id int) (*model.Account, error) {
	query := `
        SELECT id, user_id, email_address, is_active,
               auto_classify, auto_sync_interval,
               mailbox_storage_bytes, mailbox_storage_limit,
               last_sync_error, created_at, updated_at
        FROM accounts
        WHERE id = $1
    `
	var a model.Account
	err := r.db.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.UserID, &a.EmailAddress, &a.IsActive,
		&a.AutoClassify, &a.AutoSyncInterval,
		&a.StorageBytes, &a.StorageLimit,
		&a.LastSyncError, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepository) SetLastSyncError(ctx context.Context, id int, message *string) error {
	_, err := r.db.Exec(ctx, `
        UPDATE accounts SET last_sync_error = $1, updated_at = NOW() WHERE id = $2
    `, message, id)
	return err
}
