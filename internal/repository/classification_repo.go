package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mailminder/internal/model"
)

type ClassificationRepository struct {
	db *pgxpool.Pool
}

func NewClassificationRepository(db *pgxpool.Pool) *ClassificationRepository {
	return &ClassificationRepository{db: db}
}

const upsertClassificationSQL = `
        INSERT INTO classifications (
            message_id,
            primary_label, primary_confidence, primary_rationale,
            secondary_label, secondary_confidence, secondary_rationale,
            final_label, final_reason, decided_by, decided_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
        ON CONFLICT (message_id) DO UPDATE SET
            primary_label = EXCLUDED.primary_label,
            primary_confidence = EXCLUDED.primary_confidence,
            primary_rationale = EXCLUDED.primary_rationale,
            secondary_label = EXCLUDED.secondary_label,
            secondary_confidence = EXCLUDED.secondary_confidence,
            secondary_rationale = EXCLUDED.secondary_rationale,
            final_label = EXCLUDED.final_label,
            final_reason = EXCLUDED.final_reason,
            decided_by = EXCLUDED.decided_by,
            decided_at = NOW()
    `

// Upsert writes the one-per-message record, overwriting all fields on
// reclassification (last write wins).
func (r *ClassificationRepository) Upsert(ctx context.Context, c *model.Classification) error {
	_, err := r.db.Exec(ctx, upsertClassificationSQL,
		c.MessageID,
		c.PrimaryLabel, c.PrimaryConfidence, c.PrimaryRationale,
		c.SecondaryLabel, c.SecondaryConfidence, c.SecondaryRationale,
		c.FinalLabel, c.FinalReason, c.DecidedBy,
	)
	return err
}

// UpsertAll commits a batch of records in a single transaction. This is
// the batch orchestrator's trailing commit: either all collected records
// land or none do.
func (r *ClassificationRepository) UpsertAll(ctx context.Context, records []*model.Classification) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, c := range records {
		if _, err := tx.Exec(ctx, upsertClassificationSQL,
			c.MessageID,
			c.PrimaryLabel, c.PrimaryConfidence, c.PrimaryRationale,
			c.SecondaryLabel, c.SecondaryConfidence, c.SecondaryRationale,
			c.FinalLabel, c.FinalReason, c.DecidedBy,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// SetLabel sets only the final label and provenance, creating the record
// if absent and preserving any stored model opinions otherwise. Used by
// manual overrides and soft deletes.
func (r *ClassificationRepository) SetLabel(ctx context.Context, messageID, label, decidedBy string) error {
	query := `
        INSERT INTO classifications (message_id, final_label, decided_by, decided_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (message_id) DO UPDATE SET
            final_label = EXCLUDED.final_label,
            decided_by = EXCLUDED.decided_by,
            decided_at = NOW()
    `
	_, err := r.db.Exec(ctx, query, messageID, label, decidedBy)
	return err
}

// SetLabelForFolder bulk-assigns a label to every message of the account
// currently in the given folder (nil folderLabel = Inbox, i.e. messages
// with no record yet). Returns the number of affected messages.
func (r *ClassificationRepository) SetLabelForFolder(ctx context.Context, accountID int, folderLabel *string, label, decidedBy string) (int64, error) {
	var query string
	var args []any

	if folderLabel == nil {
		// Inbox: messages with no classification record at all.
		query = `
            INSERT INTO classifications (message_id, final_label, decided_by, decided_at)
            SELECT m.id, $2, $3, NOW()
            FROM messages m
            LEFT JOIN classifications c ON m.id = c.message_id
            WHERE m.account_id = $1 AND c.id IS NULL
        `
		args = []any{accountID, label, decidedBy}
	} else {
		query = `
            UPDATE classifications c
            SET final_label = $3, decided_by = $4, decided_at = NOW()
            FROM messages m
            WHERE c.message_id = m.id
              AND m.account_id = $1
              AND c.final_label = $2
        `
		args = []any{accountID, *folderLabel, label, decidedBy}
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Clear removes the record entirely, returning the message to the Inbox
// view. This is the supported way to clear a label.
func (r *ClassificationRepository) Clear(ctx context.Context, messageID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM classifications WHERE message_id = $1`, messageID)
	return err
}

// Get returns the record for a message, or nil when the message has no
// opinion (which is itself meaningful: the message is in the Inbox).
func (r *ClassificationRepository) Get(ctx context.Context, messageID string) (*model.Classification, error) {
	query := `
        SELECT id, message_id,
               primary_label, primary_confidence, primary_rationale,
               secondary_label, secondary_confidence, secondary_rationale,
               final_label, final_reason, decided_by, decided_at
        FROM classifications
        WHERE message_id = $1
    `
	var c model.Classification
	err := r.db.QueryRow(ctx, query, messageID).Scan(
		&c.ID, &c.MessageID,
		&c.PrimaryLabel, &c.PrimaryConfidence, &c.PrimaryRationale,
		&c.SecondaryLabel, &c.SecondaryConfidence, &c.SecondaryRationale,
		&c.FinalLabel, &c.FinalReason, &c.DecidedBy, &c.DecidedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
