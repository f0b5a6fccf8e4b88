package model

import "time"

// AIConfig is the persisted classifier gateway configuration. It is read
// per request so a classification run always works against one snapshot.
type AIConfig struct {
	ID             int
	APIURL         string
	APIKey         string
	PrimaryModel   string
	SecondaryModel string
	UpdatedAt      time.Time
}
