// Package storage owns the per-account mailbox usage counter. The
// counter is mutated only here, and only inside the same transaction
// that removes the underlying rows, so an update can never survive a
// rolled-back delete.
package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"mailminder/pkg/metrics"
)

type Accountant struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewAccountant(db *pgxpool.Pool, logger *zap.Logger) *Accountant {
	return &Accountant{db: db, logger: logger}
}

// PermanentlyDelete removes the given messages and decrements the
// account's storage counter by their combined size, floored at zero.
// A message's size is the byte length of its stored text bodies plus
// recorded attachment sizes, an approximation of what was stored
// rather than the original wire size. Sizes are computed before the
// rows go away; attachments and classifications cascade with the
// message rows. Returns the bytes freed and the number of messages
// removed.
func (a *Accountant) PermanentlyDelete(ctx context.Context, accountID int, messageIDs []string) (int64, int, error) {
	if len(messageIDs) == 0 {
		return 0, 0, nil
	}

	tx, err := a.db.Begin(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback(ctx)

	// Body sizes, computed while the rows still exist.
	var bodyBytes int64
	err = tx.QueryRow(ctx, `
        SELECT COALESCE(SUM(COALESCE(LENGTH(body_text), 0) + COALESCE(LENGTH(body_html), 0)), 0)
        FROM messages
        WHERE account_id = $1 AND id = ANY($2)
    `, accountID, messageIDs).Scan(&bodyBytes)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to sum body sizes: %w", err)
	}

	var attachmentBytes int64
	err = tx.QueryRow(ctx, `
        SELECT COALESCE(SUM(a.size_bytes), 0)
        FROM attachments a
        JOIN messages m ON a.message_id = m.id
        WHERE m.account_id = $1 AND m.id = ANY($2)
    `, accountID, messageIDs).Scan(&attachmentBytes)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to sum attachment sizes: %w", err)
	}

	total := bodyBytes + attachmentBytes

	// Clamped decrement: an underflow is recorded but never fails the delete.
	if total > 0 {
		_, err = tx.Exec(ctx, `
            UPDATE accounts
            SET mailbox_storage_bytes = GREATEST(0, COALESCE(mailbox_storage_bytes, 0) - $1),
                updated_at = NOW()
            WHERE id = $2
        `, total, accountID)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to decrement storage counter: %w", err)
		}
	}

	tag, err := tx.Exec(ctx, `
        DELETE FROM messages WHERE account_id = $1 AND id = ANY($2)
    `, accountID, messageIDs)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to delete messages: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, err
	}

	deleted := int(tag.RowsAffected())
	metrics.AddStorageReclaimed(total)
	a.logger.Info("Permanently deleted messages",
		zap.Int("account_id", accountID),
		zap.Int("deleted", deleted),
		zap.Int64("bytes_freed", total),
	)

	return total, deleted, nil
}
