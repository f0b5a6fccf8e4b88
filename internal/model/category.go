package model

import "time"

// Category is a per-user label destination. Key is the label value the
// resolver produces ("Interesantes", "SPAM", ...); AIInstruction is the
// category's rule text embedded into classification prompts. Categories
// define the label vocabulary but are deliberately not a foreign key on
// classifications.final_label (the "Deleted" sentinel must stay
// representable).
type Category struct {
	ID            int       `json:"id"`
	UserID        int       `json:"user_id"`
	Key           string    `json:"key"`
	Name          string    `json:"name"`
	Description   *string   `json:"description"`
	AIInstruction string    `json:"ai_instruction"`
	Icon          *string   `json:"icon"`
	IsSystem      bool      `json:"is_system"`
	CreatedAt     time.Time `json:"created_at"`
}
