package classifier

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"mailminder/internal/model"
)

func testCategories() []model.Category {
	return []model.Category{
		{Key: "Interesantes", AIInstruction: "Personal or otherwise relevant mail."},
		{Key: "SPAM", AIInstruction: "Unsolicited bulk mail."},
		{Key: "Servicios", AIInstruction: "Transactional service notifications."},
	}
}

func TestClassificationPromptContainsVocabulary(t *testing.T) {
	b := NewPromptBuilder(testCategories())

	p := b.Classification(Input{
		FromEmail: "a@b.com",
		Subject:   "invoice",
		Snippet:   "your invoice is attached",
	})

	for _, key := range []string{"Interesantes", "SPAM", "Servicios"} {
		assert.Contains(t, p, key)
	}
	assert.Contains(t, p, "Subject: invoice")
	assert.Contains(t, p, "your invoice is attached")
}

func TestReviewPromptEmbedsBothOpinions(t *testing.T) {
	b := NewPromptBuilder(testCategories())

	p := b.Review(Input{FromEmail: "a@b.com", Subject: "offer"},
		Opinion{Model: "gpt-4o-mini", Label: "SPAM", Confidence: 0.9, Rationale: "marketing blast"},
		Opinion{Model: "qwen2.5", Label: "Interesantes", Confidence: 0.6, Rationale: "mentions the user"},
	)

	assert.Contains(t, p, `"SPAM" (confidence 0.90)`)
	assert.Contains(t, p, `"Interesantes" (confidence 0.60)`)
	assert.Contains(t, p, "marketing blast")
	assert.Contains(t, p, "mentions the user")
}

func TestPromptBodyIsBounded(t *testing.T) {
	b := NewPromptBuilder(testCategories())

	p := b.Classification(Input{
		FromEmail: "a@b.com",
		BodyText:  strings.Repeat("x", 20000),
	})
	assert.Less(t, len(p), 6000)
}

func TestPromptTruncationKeepsValidUTF8(t *testing.T) {
	b := NewPromptBuilder(testCategories())

	// Three-byte runes, so the byte limit is not a multiple of the rune
	// width and a naive cut would land mid-rune.
	p := b.Classification(Input{
		FromEmail: "a@b.com",
		BodyText:  strings.Repeat("日", 2000),
	})
	assert.True(t, utf8.ValidString(p))
	assert.Less(t, len(p), 6000)
}

func TestPromptFallsBackToSnippet(t *testing.T) {
	b := NewPromptBuilder(testCategories())

	p := b.Classification(Input{FromEmail: "a@b.com", Snippet: "only a snippet"})
	assert.Contains(t, p, "only a snippet")
}
