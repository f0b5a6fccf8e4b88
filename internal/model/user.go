package model

import "time"

type User struct {
	ID           int
	Username     string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
}
