package model

import "time"

// Virtual folder sentinels. "INBOX" is never stored: it is the API-level
// name for "no classification record". "Deleted" is stored as a regular
// final label and resolved to the trash view.
const (
	LabelInbox   = "INBOX"
	LabelDeleted = "Deleted"
)

// decided_by provenance tags. Review tags are produced per model, e.g.
// "gpt_review"; see ReviewProvenance.
const (
	DecidedConsensus              = "consensus"
	DecidedRuleWhitelist          = "rule_whitelist"
	DecidedRuleMultipleRecipients = "rule_multiple_recipients"
	DecidedManualUser             = "manual_user"
	DecidedUserDelete             = "user_delete"
	DecidedUserBulkDelete         = "user_bulk_delete"
)

// Classification is the one-per-message decision record. The two opinion
// triples are nil when a rule short-circuited before any model was called.
// FinalLabel is always non-empty; a message without an opinion simply has
// no row.
type Classification struct {
	ID        int64
	MessageID string

	PrimaryLabel      *string
	PrimaryConfidence *float64
	PrimaryRationale  *string

	SecondaryLabel      *string
	SecondaryConfidence *float64
	SecondaryRationale  *string

	FinalLabel  string
	FinalReason *string
	DecidedBy   string
	DecidedAt   time.Time
}

// ReviewProvenance builds the review provenance tag for a model name:
// the leading letters of the name, lowercased, plus "_review"
// ("gpt-4o-mini" -> "gpt_review", "qwen2.5" -> "qwen_review").
func ReviewProvenance(modelName string) string {
	prefix := make([]rune, 0, len(modelName))
	for _, r := range modelName {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			if r >= 'A' && r <= 'Z' {
				r += 'a' - 'A'
			}
			prefix = append(prefix, r)
			continue
		}
		break
	}
	if len(prefix) == 0 {
		return "review"
	}
	return string(prefix) + "_review"
}
