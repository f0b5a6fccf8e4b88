package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailminder/internal/model"
)

func TestWhitelistRuleMatchesDomainSuffix(t *testing.T) {
	e := NewEvaluator("Servicios", "EnCopia", 1)

	env := Envelope{
		FromEmail: "noreply@mailer.Acme.COM",
		To:        []string{"me@example.com"},
	}

	m, ok := e.Evaluate(env, []string{"acme.com"})
	require.True(t, ok)
	assert.Equal(t, "Servicios", m.Label)
	assert.Equal(t, model.DecidedRuleWhitelist, m.DecidedBy)
}

func TestWhitelistRulePatternVariants(t *testing.T) {
	cases := []struct {
		domain  string
		pattern string
		want    bool
	}{
		{"acme.com", "acme.com", true},
		{"mail.acme.com", "acme.com", true},
		{"mail.acme.com", "@acme.com", true},
		{"mail.acme.com", "*.acme.com", true},
		{"notacme.com", "acme.com", false},
		{"acme.com.evil.org", "acme.com", false},
		{"acme.com", "", false},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, MatchesDomain(c.domain, c.pattern),
			"domain=%s pattern=%s", c.domain, c.pattern)
	}
}

func TestMultipleRecipientsRule(t *testing.T) {
	e := NewEvaluator("Servicios", "EnCopia", 1)

	env := Envelope{
		FromEmail: "someone@unknown.org",
		To:        []string{"a@example.com", "b@example.com"},
	}

	m, ok := e.Evaluate(env, nil)
	require.True(t, ok)
	assert.Equal(t, "EnCopia", m.Label)
	assert.Equal(t, model.DecidedRuleMultipleRecipients, m.DecidedBy)

	// cc recipients count toward the threshold too
	env = Envelope{
		FromEmail: "someone@unknown.org",
		To:        []string{"a@example.com"},
		Cc:        []string{"c@example.com"},
	}
	m, ok = e.Evaluate(env, nil)
	require.True(t, ok)
	assert.Equal(t, "EnCopia", m.Label)
	assert.Equal(t, model.DecidedRuleMultipleRecipients, m.DecidedBy)
}

func TestWhitelistWinsOverMultipleRecipients(t *testing.T) {
	// Both rules would fire; order is the tie-break.
	e := NewEvaluator("Servicios", "EnCopia", 1)

	env := Envelope{
		FromEmail: "news@acme.com",
		To:        []string{"a@example.com", "b@example.com"},
	}

	m, ok := e.Evaluate(env, []string{"acme.com"})
	require.True(t, ok)
	assert.Equal(t, model.DecidedRuleWhitelist, m.DecidedBy)
}

func TestNoMatchLeavesMessageForClassifiers(t *testing.T) {
	e := NewEvaluator("Servicios", "EnCopia", 1)

	env := Envelope{
		FromEmail: "friend@personal.org",
		To:        []string{"me@example.com"},
	}

	_, ok := e.Evaluate(env, []string{"acme.com"})
	assert.False(t, ok)
}

func TestRecipientThresholdConfigurable(t *testing.T) {
	e := NewEvaluator("Servicios", "EnCopia", 3)

	env := Envelope{
		FromEmail: "someone@unknown.org",
		To:        []string{"a@x.com", "b@x.com", "c@x.com"},
	}

	_, ok := e.Evaluate(env, nil)
	assert.False(t, ok, "3 recipients is not above threshold 3")

	env.Cc = []string{"d@x.com"}
	_, ok = e.Evaluate(env, nil)
	assert.True(t, ok)
}

func TestMalformedSenderNeverMatchesWhitelist(t *testing.T) {
	e := NewEvaluator("Servicios", "EnCopia", 1)

	for _, from := range []string{"", "no-at-sign", "trailing@"} {
		env := Envelope{FromEmail: from, To: []string{"me@example.com"}}
		_, ok := e.Evaluate(env, []string{"acme.com"})
		assert.False(t, ok, "from=%q", from)
	}
}
