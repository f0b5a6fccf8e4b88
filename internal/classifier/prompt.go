package classifier

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"mailminder/internal/model"
)

// Input is the per-message material a prompt is built from: envelope
// fields plus snippet/body, already extracted by the sync path.
type Input struct {
	FromName  string
	FromEmail string
	To        []string
	Cc        []string
	Subject   string
	Date      string
	Snippet   string
	BodyText  string
}

// Opinion is a prior model verdict embedded into the review prompt.
type Opinion struct {
	Model      string
	Label      string
	Confidence float64
	Rationale  string
}

// PromptBuilder renders classification and review prompts from the
// user's category vocabulary. One builder is prepared per batch so every
// message in the batch sees the same instruction set.
type PromptBuilder struct {
	categories []model.Category
}

func NewPromptBuilder(categories []model.Category) *PromptBuilder {
	return &PromptBuilder{categories: categories}
}

// Labels returns the label vocabulary the builder instructs models to use.
func (b *PromptBuilder) Labels() []string {
	labels := make([]string, 0, len(b.categories))
	for _, c := range b.categories {
		labels = append(labels, c.Key)
	}
	return labels
}

// Classification builds the prompt for an independent first-pass opinion.
func (b *PromptBuilder) Classification(in Input) string {
	var sb strings.Builder

	sb.WriteString("You are an email classification assistant. Assign the email below to exactly one category.\n\n")
	sb.WriteString("Categories:\n")
	for _, c := range b.categories {
		fmt.Fprintf(&sb, "- %s: %s\n", c.Key, c.AIInstruction)
	}
	sb.WriteString("\nRespond with JSON: {\"label\": <category key>, \"confidence\": <0..1>, \"rationale\": <short reason>}\n\n")

	writeEmail(&sb, in)
	return sb.String()
}

// Review builds the tie-break prompt: the same email plus both prior
// opinions and their rationales.
func (b *PromptBuilder) Review(in Input, first, second Opinion) string {
	var sb strings.Builder

	sb.WriteString("You are reviewing a disputed email classification. Two models disagreed; decide the final category.\n\n")
	sb.WriteString("Categories:\n")
	for _, c := range b.categories {
		fmt.Fprintf(&sb, "- %s: %s\n", c.Key, c.AIInstruction)
	}
	sb.WriteString("\nPrior opinions:\n")
	fmt.Fprintf(&sb, "- %s said %q (confidence %.2f): %s\n", first.Model, first.Label, first.Confidence, first.Rationale)
	fmt.Fprintf(&sb, "- %s said %q (confidence %.2f): %s\n", second.Model, second.Label, second.Confidence, second.Rationale)
	sb.WriteString("\nRespond with JSON: {\"label\": <category key>, \"confidence\": <0..1>, \"rationale\": <short reason>}\n\n")

	writeEmail(&sb, in)
	return sb.String()
}

func writeEmail(sb *strings.Builder, in Input) {
	sb.WriteString("Email:\n")
	if in.FromName != "" {
		fmt.Fprintf(sb, "From: %s <%s>\n", in.FromName, in.FromEmail)
	} else {
		fmt.Fprintf(sb, "From: %s\n", in.FromEmail)
	}
	if len(in.To) > 0 {
		fmt.Fprintf(sb, "To: %s\n", strings.Join(in.To, ", "))
	}
	if len(in.Cc) > 0 {
		fmt.Fprintf(sb, "Cc: %s\n", strings.Join(in.Cc, ", "))
	}
	fmt.Fprintf(sb, "Date: %s\n", in.Date)
	fmt.Fprintf(sb, "Subject: %s\n\n", in.Subject)

	body := in.BodyText
	if body == "" {
		body = in.Snippet
	}
	// Keep prompts bounded; the snippet is enough signal for most mail.
	// The cut backs up to a rune boundary so a multi-byte character is
	// never split into invalid UTF-8.
	const maxBody = 4000
	if len(body) > maxBody {
		cut := maxBody
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}
	sb.WriteString(body)
	sb.WriteString("\n")
}
