package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mailminder/internal/classifier"
	"mailminder/internal/consensus"
	"mailminder/internal/model"
	"mailminder/internal/rules"
	"mailminder/pkg/config"
)

// CategorySource supplies the user's label vocabulary.
type CategorySource interface {
	ListByUser(ctx context.Context, userID int) ([]model.Category, error)
}

// WhitelistSource supplies the active whitelist domain patterns.
type WhitelistSource interface {
	ActivePatterns(ctx context.Context, userID int) ([]string, error)
}

// AIConfigSource supplies the persisted gateway config; nil means none
// saved yet.
type AIConfigSource interface {
	Get(ctx context.Context) (*model.AIConfig, error)
}

// ClassifyEnv is the per-run snapshot a batch classifies against: the
// whitelist patterns, the prompt vocabulary and a resolver bound to the
// gateway configuration current at preparation time. Preparing it once
// per batch keeps every decision in the run reproducible against one
// configuration.
type ClassifyEnv struct {
	Patterns []string
	Prompts  *classifier.PromptBuilder
	Resolver *consensus.Resolver
}

// Engine turns one message plus a prepared environment into a decided
// classification record.
type Engine interface {
	PrepareEnv(ctx context.Context, userID int) (*ClassifyEnv, error)
	Classify(ctx context.Context, msg *model.Message, env *ClassifyEnv) (*model.Classification, error)
}

// ClassifyEngine is the production Engine: rules first, then the
// dual-model consensus protocol.
type ClassifyEngine struct {
	categories CategorySource
	whitelist  WhitelistSource
	aiConfig   AIConfigSource
	rules      *rules.Evaluator
	bootstrap  config.AIConfig
	logger     *zap.Logger
}

func NewClassifyEngine(
	categories CategorySource,
	whitelist WhitelistSource,
	aiConfig AIConfigSource,
	ruleEvaluator *rules.Evaluator,
	bootstrap config.AIConfig,
	logger *zap.Logger,
) *ClassifyEngine {
	return &ClassifyEngine{
		categories: categories,
		whitelist:  whitelist,
		aiConfig:   aiConfig,
		rules:      ruleEvaluator,
		bootstrap:  bootstrap,
		logger:     logger,
	}
}

// PrepareEnv loads whitelist patterns and categories once and binds a
// resolver to the current gateway snapshot (persisted config if an admin
// saved one, static config otherwise).
func (e *ClassifyEngine) PrepareEnv(ctx context.Context, userID int) (*ClassifyEnv, error) {
	patterns, err := e.whitelist.ActivePatterns(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load whitelist: %w", err)
	}

	categories, err := e.categories.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	gateway := classifier.Config{
		APIURL:  e.bootstrap.APIURL,
		APIKey:  e.bootstrap.APIKey,
		Timeout: time.Duration(e.bootstrap.TimeoutSeconds) * time.Second,
	}
	models := consensus.Models{
		Primary:   e.bootstrap.PrimaryModel,
		Secondary: e.bootstrap.SecondaryModel,
	}

	if saved, err := e.aiConfig.Get(ctx); err != nil {
		return nil, fmt.Errorf("failed to load ai config: %w", err)
	} else if saved != nil {
		gateway.APIURL = saved.APIURL
		gateway.APIKey = saved.APIKey
		models.Primary = saved.PrimaryModel
		models.Secondary = saved.SecondaryModel
	}

	client := classifier.New(gateway)

	return &ClassifyEnv{
		Patterns: patterns,
		Prompts:  classifier.NewPromptBuilder(categories),
		Resolver: consensus.NewResolver(client, models, gateway.Timeout, e.logger),
	}, nil
}

// Classify decides one message. Rules run first and short-circuit before
// any model call; otherwise the consensus resolver decides. An error
// means the message stays unclassified and eligible for a later pass.
func (e *ClassifyEngine) Classify(ctx context.Context, msg *model.Message, env *ClassifyEnv) (*model.Classification, error) {
	envelope := rules.Envelope{
		FromEmail: msg.FromEmail,
		To:        msg.To,
		Cc:        msg.Cc,
	}

	if m, ok := e.rules.Evaluate(envelope, env.Patterns); ok {
		reason := m.Reason
		return &model.Classification{
			MessageID:   msg.ID,
			FinalLabel:  m.Label,
			FinalReason: &reason,
			DecidedBy:   m.DecidedBy,
		}, nil
	}

	outcome, err := env.Resolver.Resolve(ctx, classifierInput(msg), env.Prompts)
	if err != nil {
		return nil, err
	}

	rec := &model.Classification{
		MessageID:   msg.ID,
		FinalLabel:  outcome.FinalLabel,
		FinalReason: &outcome.FinalReason,
		DecidedBy:   outcome.DecidedBy,
	}
	if outcome.Primary != nil {
		rec.PrimaryLabel = &outcome.Primary.Label
		rec.PrimaryConfidence = &outcome.Primary.Confidence
		rec.PrimaryRationale = &outcome.Primary.Rationale
	}
	if outcome.Secondary != nil {
		rec.SecondaryLabel = &outcome.Secondary.Label
		rec.SecondaryConfidence = &outcome.Secondary.Confidence
		rec.SecondaryRationale = &outcome.Secondary.Rationale
	}
	return rec, nil
}

func classifierInput(msg *model.Message) classifier.Input {
	in := classifier.Input{
		FromEmail: msg.FromEmail,
		To:        msg.To,
		Cc:        msg.Cc,
	}
	if msg.FromName != nil {
		in.FromName = *msg.FromName
	}
	if msg.Subject != nil {
		in.Subject = *msg.Subject
	}
	if msg.Date != nil {
		in.Date = msg.Date.Format(time.RFC1123Z)
	}
	if msg.Snippet != nil {
		in.Snippet = *msg.Snippet
	}
	if msg.BodyText != nil {
		in.BodyText = *msg.BodyText
	}
	return in
}
