package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"mailminder/internal/model"
)

type AuditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record writes an audit row. Payload is marshalled to JSON; marshalling
// problems degrade to an empty payload rather than losing the row.
func (r *AuditRepository) Record(ctx context.Context, action string, messageID *string, payload any, status string, errMessage *string) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte("{}")
	}

	_, err = r.db.Exec(ctx, `
        INSERT INTO audit_logs (timestamp, message_id, action, payload, status, error_message)
        VALUES (NOW(), $1, $2, $3, $4, $5)
    `, messageID, action, raw, status, errMessage)
	return err
}

// RecentByAction returns the latest audit rows for one action, newest first.
func (r *AuditRepository) RecentByAction(ctx context.Context, action string, limit int) ([]model.AuditLog, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, timestamp, message_id, action, payload, status, error_message
        FROM audit_logs
        WHERE action = $1
        ORDER BY timestamp DESC
        LIMIT $2
    `, action, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []model.AuditLog{}
	for rows.Next() {
		var l model.AuditLog
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.MessageID, &l.Action, &l.Payload, &l.Status, &l.ErrorMessage); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
