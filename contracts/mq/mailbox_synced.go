package mq

import "time"

// RoutingKeyMailboxSynced 邮箱同步完成事件的 routing key
const RoutingKeyMailboxSynced = "mailbox.synced"

// MailboxSyncedPayload 邮箱同步完成事件的 payload
type MailboxSyncedPayload struct {
	SyncID       string    `json:"sync_id"`
	AccountID    int       `json:"account_id"`
	UserID       int       `json:"user_id"`
	Folder       string    `json:"folder"`
	NewMessages  int       `json:"new_messages"`
	AutoClassify bool      `json:"auto_classify"`
	SyncedAt     time.Time `json:"synced_at"`
}
