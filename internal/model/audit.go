package model

import (
	"encoding/json"
	"time"
)

// AuditLog records sync/classify/delete operations for the status endpoints.
type AuditLog struct {
	ID           int64           `json:"id"`
	Timestamp    time.Time       `json:"timestamp"`
	MessageID    *string         `json:"message_id"`
	Action       string          `json:"action"`
	Payload      json.RawMessage `json:"payload"`
	Status       string          `json:"status"` // success | error
	ErrorMessage *string         `json:"error_message"`
}
