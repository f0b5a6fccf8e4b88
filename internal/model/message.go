package model

import "time"

// Message is one synced mail message. Folder membership is not stored
// here; it is derived from the message's Classification (or its absence).
type Message struct {
	ID        string
	AccountID int
	ImapUID   *int64
	MessageID *string
	ThreadID  *string

	FromName  *string
	FromEmail string
	To        []string
	Cc        []string
	Bcc       []string

	Subject *string
	Date    *time.Time
	Snippet *string

	BodyText *string
	BodyHTML *string

	HasAttachments bool

	IsRead    bool
	IsStarred bool

	CreatedAt time.Time
}

// MessageSummary is the listing projection: envelope fields plus the
// resolved classification label (nil = Inbox).
type MessageSummary struct {
	ID                  string     `json:"id"`
	AccountID           int        `json:"account_id"`
	FromName            *string    `json:"from_name"`
	FromEmail           string     `json:"from_email"`
	Subject             *string    `json:"subject"`
	Date                *time.Time `json:"date"`
	Snippet             *string    `json:"snippet"`
	IsRead              bool       `json:"is_read"`
	IsStarred           bool       `json:"is_starred"`
	HasAttachments      bool       `json:"has_attachments"`
	ClassificationLabel *string    `json:"classification_label"`
}

// Attachment metadata; bytes live on disk, size_bytes feeds storage accounting.
type Attachment struct {
	ID        int
	MessageID string
	Filename  string
	MimeType  *string
	SizeBytes int64
	LocalPath string
}
