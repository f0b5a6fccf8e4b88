// Package rules implements the deterministic pre-classification checks.
// Rules run before any model call, are pure functions over envelope
// fields, and the first match wins; a match always overrides AI opinion.
package rules

import (
	"strings"

	"mailminder/internal/model"
)

// Envelope carries the already-parsed message fields the rules look at.
type Envelope struct {
	FromEmail string
	To        []string
	Cc        []string
}

// Match is a rule verdict: the label to assign and the provenance tag.
type Match struct {
	Label     string
	DecidedBy string
	Reason    string
}

// Rule checks one envelope against the active whitelist patterns.
type Rule func(env Envelope, patterns []string) (Match, bool)

// Evaluator evaluates an ordered rule list with short-circuit semantics.
// Order is the tie-break: both rules can fire for the same message, the
// earlier one decides.
type Evaluator struct {
	rules []Rule
}

// NewEvaluator builds the standard rule chain: whitelist first, then the
// multiple-recipients heuristic. serviceLabel is the label the whitelist
// rule assigns; copyLabel is the one multi-recipient mail lands in;
// recipientThreshold is the max number of recipients before the second
// rule fires (default 1, i.e. "more than one recipient").
func NewEvaluator(serviceLabel, copyLabel string, recipientThreshold int) *Evaluator {
	return &Evaluator{
		rules: []Rule{
			whitelistRule(serviceLabel),
			multipleRecipientsRule(copyLabel, recipientThreshold),
		},
	}
}

// Evaluate runs the rules in order and returns the first match.
func (e *Evaluator) Evaluate(env Envelope, patterns []string) (Match, bool) {
	for _, rule := range e.rules {
		if m, ok := rule(env, patterns); ok {
			return m, true
		}
	}
	return Match{}, false
}

func whitelistRule(serviceLabel string) Rule {
	return func(env Envelope, patterns []string) (Match, bool) {
		domain := senderDomain(env.FromEmail)
		if domain == "" {
			return Match{}, false
		}
		for _, p := range patterns {
			if MatchesDomain(domain, p) {
				return Match{
					Label:     serviceLabel,
					DecidedBy: model.DecidedRuleWhitelist,
					Reason:    "sender domain " + domain + " is whitelisted (" + p + ")",
				}, true
			}
		}
		return Match{}, false
	}
}

func multipleRecipientsRule(copyLabel string, threshold int) Rule {
	return func(env Envelope, _ []string) (Match, bool) {
		recipients := len(env.To) + len(env.Cc)
		if recipients > threshold {
			return Match{
				Label:     copyLabel,
				DecidedBy: model.DecidedRuleMultipleRecipients,
				Reason:    "message addressed to multiple recipients",
			}, true
		}
		return Match{}, false
	}
}

// MatchesDomain reports whether a sender domain matches a whitelist
// pattern: case-insensitive suffix match, so "newsletter.acme.com"
// matches "acme.com". Leading "@" or "*." on the pattern are tolerated.
func MatchesDomain(domain, pattern string) bool {
	domain = strings.ToLower(strings.TrimSpace(domain))
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	pattern = strings.TrimPrefix(pattern, "@")
	pattern = strings.TrimPrefix(pattern, "*.")
	if pattern == "" {
		return false
	}
	if domain == pattern {
		return true
	}
	return strings.HasSuffix(domain, "."+pattern)
}

func senderDomain(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	return strings.ToLower(addr[at+1:])
}
