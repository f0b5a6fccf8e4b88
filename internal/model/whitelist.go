package model

import "time"

// WhitelistEntry is a per-user service-sender domain pattern consulted by
// the whitelist rule.
type WhitelistEntry struct {
	ID            int       `json:"id"`
	UserID        int       `json:"user_id"`
	DomainPattern string    `json:"domain_pattern"`
	Description   *string   `json:"description"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}
