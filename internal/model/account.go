package model

import "time"

// Account is a synced mailbox. StorageBytes is the running usage counter
// mutated only by the storage accountant on permanent deletes.
type Account struct {
	ID           int
	UserID       int
	EmailAddress string
	IsActive     bool

	AutoClassify     bool
	AutoSyncInterval int

	StorageBytes *int64
	StorageLimit *int64

	LastSyncError *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
