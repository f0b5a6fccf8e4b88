package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mailminder/internal/model"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// MessageFilter is the listing filter set. Folder and Label implement the
// virtual folder model: membership is a query over classifications, never
// stored on the message.
type MessageFilter struct {
	AccountID      *int
	Folder         string  // "Deleted" selects the trash view; anything else excludes it
	Label          *string // classification label; model.LabelInbox = no record
	Search         string
	FromEmail      string
	IsStarred      *bool
	HasAttachments *bool
	DateFrom       string
	DateTo         string
	Limit          int
	Offset         int
}

// List returns message summaries joined with their classification label.
// Default listings exclude Deleted unless the Deleted folder is requested.
func (r *MessageRepository) List(ctx context.Context, f MessageFilter) ([]model.MessageSummary, error) {
	var sb strings.Builder
	sb.WriteString(`
        SELECT m.id, m.account_id, m.from_name, m.from_email, m.subject,
               m.date, m.snippet, m.is_read, m.is_starred, m.has_attachments,
               c.final_label
        FROM messages m
        LEFT JOIN classifications c ON m.id = c.message_id
        WHERE 1=1
    `)

	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.AccountID != nil {
		fmt.Fprintf(&sb, " AND m.account_id = %s", arg(*f.AccountID))
	}

	if f.Folder == model.LabelDeleted {
		fmt.Fprintf(&sb, " AND c.final_label = %s", arg(model.LabelDeleted))
	} else {
		// default view: Deleted is hidden everywhere else
		fmt.Fprintf(&sb, " AND (c.final_label IS NULL OR c.final_label <> %s)", arg(model.LabelDeleted))
	}

	if f.Label != nil {
		if *f.Label == model.LabelInbox {
			sb.WriteString(" AND c.final_label IS NULL")
		} else {
			fmt.Fprintf(&sb, " AND c.final_label = %s", arg(*f.Label))
		}
	}

	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		fmt.Fprintf(&sb,
			" AND (m.subject ILIKE %s OR m.from_email ILIKE %s OR m.from_name ILIKE %s OR m.body_text ILIKE %s)",
			p, p, p, p)
	}
	if f.FromEmail != "" {
		fmt.Fprintf(&sb, " AND m.from_email ILIKE %s", arg("%"+f.FromEmail+"%"))
	}
	if f.IsStarred != nil {
		fmt.Fprintf(&sb, " AND m.is_starred = %s", arg(*f.IsStarred))
	}
	if f.HasAttachments != nil {
		fmt.Fprintf(&sb, " AND m.has_attachments = %s", arg(*f.HasAttachments))
	}
	if f.DateFrom != "" {
		fmt.Fprintf(&sb, " AND m.date >= %s", arg(f.DateFrom))
	}
	if f.DateTo != "" {
		fmt.Fprintf(&sb, " AND m.date <= %s", arg(f.DateTo))
	}

	sb.WriteString(" ORDER BY m.date DESC")

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	fmt.Fprintf(&sb, " LIMIT %s OFFSET %s", arg(limit), arg(f.Offset))

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []model.MessageSummary{}
	for rows.Next() {
		var s model.MessageSummary
		if err := rows.Scan(
			&s.ID, &s.AccountID, &s.FromName, &s.FromEmail, &s.Subject,
			&s.Date, &s.Snippet, &s.IsRead, &s.IsStarred, &s.HasAttachments,
			&s.ClassificationLabel,
		); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// ListUnclassified returns up to limit of the account's messages lacking
// a classification record, most recent first. This is the batch
// orchestrator's selection query.
func (r *MessageRepository) ListUnclassified(ctx context.Context, accountID, limit int) ([]model.Message, error) {
	query := `
        SELECT m.id, m.account_id, m.imap_uid, m.message_id, m.thread_id,
               m.from_name, m.from_email, m.to_addresses, m.cc_addresses, m.bcc_addresses,
               m.subject, m.date, m.snippet, m.body_text, m.body_html,
               m.has_attachments, m.is_read, m.is_starred, m.created_at
        FROM messages m
        LEFT JOIN classifications c ON m.id = c.message_id
        WHERE m.account_id = $1 AND c.id IS NULL
        ORDER BY m.date DESC
        LIMIT $2
    `
	rows, err := r.db.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// Get returns a full message plus its resolved label (nil = Inbox).
func (r *MessageRepository) Get(ctx context.Context, id string) (*model.Message, *string, error) {
	query := `
        SELECT m.id, m.account_id, m.imap_uid, m.message_id, m.thread_id,
               m.from_name, m.from_email, m.to_addresses, m.cc_addresses, m.bcc_addresses,
               m.subject, m.date, m.snippet, m.body_text, m.body_html,
               m.has_attachments, m.is_read, m.is_starred, m.created_at,
               c.final_label
        FROM messages m
        LEFT JOIN classifications c ON m.id = c.message_id
        WHERE m.id = $1
    `
	row := r.db.QueryRow(ctx, query, id)

	var m model.Message
	var toJSON, ccJSON, bccJSON *string
	var label *string
	err := row.Scan(
		&m.ID, &m.AccountID, &m.ImapUID, &m.MessageID, &m.ThreadID,
		&m.FromName, &m.FromEmail, &toJSON, &ccJSON, &bccJSON,
		&m.Subject, &m.Date, &m.Snippet, &m.BodyText, &m.BodyHTML,
		&m.HasAttachments, &m.IsRead, &m.IsStarred, &m.CreatedAt,
		&label,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	m.To = decodeAddresses(toJSON)
	m.Cc = decodeAddresses(ccJSON)
	m.Bcc = decodeAddresses(bccJSON)
	return &m, label, nil
}

// Insert stores a newly synced message. Address lists are stored as JSON
// arrays.
func (r *MessageRepository) Insert(ctx context.Context, m *model.Message) error {
	query := `
        INSERT INTO messages (
            id, account_id, imap_uid, message_id, thread_id,
            from_name, from_email, to_addresses, cc_addresses, bcc_addresses,
            subject, date, snippet, body_text, body_html,
            has_attachments, is_read, is_starred, created_at
        )
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,NOW())
        ON CONFLICT (id) DO NOTHING
    `
	_, err := r.db.Exec(ctx, query,
		m.ID, m.AccountID, m.ImapUID, m.MessageID, m.ThreadID,
		m.FromName, m.FromEmail, encodeAddresses(m.To), encodeAddresses(m.Cc), encodeAddresses(m.Bcc),
		m.Subject, m.Date, m.Snippet, m.BodyText, m.BodyHTML,
		m.HasAttachments, m.IsRead, m.IsStarred,
	)
	return err
}

// SetRead updates the read flag. No classification interaction.
func (r *MessageRepository) SetRead(ctx context.Context, id string, isRead bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE messages SET is_read = $1 WHERE id = $2`, isRead, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SetStarred updates the star flag. No classification interaction.
func (r *MessageRepository) SetStarred(ctx context.Context, id string, isStarred bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE messages SET is_starred = $1 WHERE id = $2`, isStarred, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// BulkSetRead marks all of an account's messages (optionally narrowed to
// a label) read or unread. Returns the number updated.
func (r *MessageRepository) BulkSetRead(ctx context.Context, accountID int, label *string, isRead bool) (int64, error) {
	if label == nil {
		t, err := r.db.Exec(ctx,
			`UPDATE messages SET is_read = $1 WHERE account_id = $2 AND is_read <> $1`,
			isRead, accountID)
		if err != nil {
			return 0, err
		}
		return t.RowsAffected(), nil
	}

	t, err := r.db.Exec(ctx, `
        UPDATE messages m SET is_read = $1
        FROM classifications c
        WHERE c.message_id = m.id
          AND m.account_id = $2
          AND c.final_label = $3
          AND m.is_read <> $1
    `, isRead, accountID, *label)
	if err != nil {
		return 0, err
	}
	return t.RowsAffected(), nil
}

// IDsWithLabel returns the ids of the account's messages whose
// classification carries the given final label.
func (r *MessageRepository) IDsWithLabel(ctx context.Context, accountID int, label string) ([]string, error) {
	rows, err := r.db.Query(ctx, `
        SELECT m.id
        FROM messages m
        JOIN classifications c ON m.id = c.message_id
        WHERE m.account_id = $1 AND c.final_label = $2
    `, accountID, label)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanMessages(rows pgx.Rows) ([]model.Message, error) {
	messages := []model.Message{}
	for rows.Next() {
		var m model.Message
		var toJSON, ccJSON, bccJSON *string
		if err := rows.Scan(
			&m.ID, &m.AccountID, &m.ImapUID, &m.MessageID, &m.ThreadID,
			&m.FromName, &m.FromEmail, &toJSON, &ccJSON, &bccJSON,
			&m.Subject, &m.Date, &m.Snippet, &m.BodyText, &m.BodyHTML,
			&m.HasAttachments, &m.IsRead, &m.IsStarred, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		m.To = decodeAddresses(toJSON)
		m.Cc = decodeAddresses(ccJSON)
		m.Bcc = decodeAddresses(bccJSON)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func encodeAddresses(addrs []string) *string {
	if addrs == nil {
		return nil
	}
	b, err := json.Marshal(addrs)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}

func decodeAddresses(raw *string) []string {
	if raw == nil || *raw == "" {
		return nil
	}
	var addrs []string
	if err := json.Unmarshal([]byte(*raw), &addrs); err != nil {
		return nil
	}
	return addrs
}
