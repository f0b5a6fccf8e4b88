package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailminder/internal/classifier"
	"mailminder/internal/consensus"
	"mailminder/internal/model"
	"mailminder/internal/rules"
	"mailminder/pkg/config"
)

type scriptedClassifier struct {
	label string
	err   error
	calls int
}

func (s *scriptedClassifier) Classify(ctx context.Context, modelName, prompt string) (*classifier.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &classifier.Result{Label: s.label, Confidence: 0.9, Rationale: "scripted"}, nil
}

func testEnv(fake consensus.Classifier, patterns []string) *ClassifyEnv {
	prompts := classifier.NewPromptBuilder([]model.Category{
		{Key: "Work", AIInstruction: "work related mail"},
		{Key: "Servicios", AIInstruction: "service notifications"},
	})
	resolver := consensus.NewResolver(fake, consensus.Models{Primary: "gpt-4o-mini", Secondary: "qwen2.5"}, time.Second, zap.NewNop())
	return &ClassifyEnv{Patterns: patterns, Prompts: prompts, Resolver: resolver}
}

func testEngine() *ClassifyEngine {
	return NewClassifyEngine(nil, nil, nil, rules.NewEvaluator("Servicios", "EnCopia", 1), config.AIConfig{}, zap.NewNop())
}

func TestClassifyWhitelistShortCircuitsModels(t *testing.T) {
	fake := &scriptedClassifier{err: errors.New("gateway down")}
	env := testEnv(fake, []string{"acme.com"})

	msg := &model.Message{ID: "m1", FromEmail: "billing@mail.acme.com", To: []string{"me@example.com"}}
	rec, err := testEngine().Classify(context.Background(), msg, env)

	require.NoError(t, err, "a rule match must decide even when the gateway is down")
	assert.Equal(t, "Servicios", rec.FinalLabel)
	assert.Equal(t, model.DecidedRuleWhitelist, rec.DecidedBy)
	assert.Nil(t, rec.PrimaryLabel, "rule decisions carry no model opinions")
	assert.Equal(t, 0, fake.calls)
}

func TestClassifyMultipleRecipientsShortCircuits(t *testing.T) {
	fake := &scriptedClassifier{label: "Work"}
	env := testEnv(fake, nil)

	msg := &model.Message{
		ID:        "m2",
		FromEmail: "someone@example.org",
		To:        []string{"me@example.com"},
		Cc:        []string{"other@example.com"},
	}
	rec, err := testEngine().Classify(context.Background(), msg, env)

	require.NoError(t, err)
	assert.Equal(t, "EnCopia", rec.FinalLabel)
	assert.Equal(t, model.DecidedRuleMultipleRecipients, rec.DecidedBy)
	assert.Equal(t, 0, fake.calls)
}

func TestClassifyFallsThroughToConsensus(t *testing.T) {
	fake := &scriptedClassifier{label: "Work"}
	env := testEnv(fake, []string{"acme.com"})

	msg := &model.Message{ID: "m3", FromEmail: "someone@example.org", To: []string{"me@example.com"}}
	rec, err := testEngine().Classify(context.Background(), msg, env)

	require.NoError(t, err)
	assert.Equal(t, "Work", rec.FinalLabel)
	assert.Equal(t, model.DecidedConsensus, rec.DecidedBy)
	require.NotNil(t, rec.PrimaryLabel)
	require.NotNil(t, rec.SecondaryLabel)
	assert.Equal(t, 2, fake.calls)
}

func TestClassifyGatewayFailureLeavesUnclassified(t *testing.T) {
	fake := &scriptedClassifier{err: errors.New("gateway down")}
	env := testEnv(fake, nil)

	msg := &model.Message{ID: "m4", FromEmail: "someone@example.org", To: []string{"me@example.com"}}
	rec, err := testEngine().Classify(context.Background(), msg, env)

	require.Error(t, err)
	assert.Nil(t, rec)
}
