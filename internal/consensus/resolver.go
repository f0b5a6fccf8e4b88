// Package consensus combines two independent model opinions (and, on
// disagreement, a review opinion) into one final label with a provenance
// tag.
package consensus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mailminder/internal/classifier"
	"mailminder/internal/model"
)

// Classifier is the adapter contract the resolver consumes.
type Classifier interface {
	Classify(ctx context.Context, model, prompt string) (*classifier.Result, error)
}

// Models names the two independently configured classifiers. The review
// pass reuses Primary with an expanded prompt.
type Models struct {
	Primary   string
	Secondary string
}

// Outcome is a decided classification: both opinions retained (when the
// models were invoked) plus the final label and provenance.
type Outcome struct {
	Primary   *classifier.Result
	Secondary *classifier.Result

	FinalLabel  string
	FinalReason string
	DecidedBy   string
}

type Resolver struct {
	client      Classifier
	models      Models
	callTimeout time.Duration
	logger      *zap.Logger
}

func NewResolver(client Classifier, models Models, callTimeout time.Duration, logger *zap.Logger) *Resolver {
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	return &Resolver{
		client:      client,
		models:      models,
		callTimeout: callTimeout,
		logger:      logger,
	}
}

// Resolve runs the dual-opinion protocol for one message. Both first-pass
// calls are issued concurrently; both must succeed or the whole attempt
// fails and no record may be written (partial failure must never produce
// a record with a missing final label). On disagreement exactly one
// review call decides. Confidence scores are recorded but never
// participate in the agreement decision.
func (r *Resolver) Resolve(ctx context.Context, in classifier.Input, prompts *classifier.PromptBuilder) (*Outcome, error) {
	prompt := prompts.Classification(in)

	var primary, secondary *classifier.Result

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := r.call(gctx, r.models.Primary, prompt)
		if err != nil {
			return fmt.Errorf("primary model %s: %w", r.models.Primary, err)
		}
		primary = res
		return nil
	})
	g.Go(func() error {
		res, err := r.call(gctx, r.models.Secondary, prompt)
		if err != nil {
			return fmt.Errorf("secondary model %s: %w", r.models.Secondary, err)
		}
		secondary = res
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if labelsAgree(primary.Label, secondary.Label) {
		return &Outcome{
			Primary:     primary,
			Secondary:   secondary,
			FinalLabel:  strings.TrimSpace(primary.Label),
			FinalReason: fmt.Sprintf("both models agreed: %s", primary.Rationale),
			DecidedBy:   model.DecidedConsensus,
		}, nil
	}

	r.logger.Info("Classifiers disagree, invoking review",
		zap.String("primary_label", primary.Label),
		zap.String("secondary_label", secondary.Label),
	)

	reviewPrompt := prompts.Review(in,
		classifier.Opinion{Model: r.models.Primary, Label: primary.Label, Confidence: primary.Confidence, Rationale: primary.Rationale},
		classifier.Opinion{Model: r.models.Secondary, Label: secondary.Label, Confidence: secondary.Confidence, Rationale: secondary.Rationale},
	)

	review, err := r.call(ctx, r.models.Primary, reviewPrompt)
	if err != nil {
		return nil, fmt.Errorf("review model %s: %w", r.models.Primary, err)
	}

	return &Outcome{
		Primary:     primary,
		Secondary:   secondary,
		FinalLabel:  strings.TrimSpace(review.Label),
		FinalReason: review.Rationale,
		DecidedBy:   model.ReviewProvenance(r.models.Primary),
	}, nil
}

func (r *Resolver) call(ctx context.Context, modelName, prompt string) (*classifier.Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()
	return r.client.Classify(callCtx, modelName, prompt)
}

// labelsAgree compares labels case-insensitively and ignoring surrounding
// whitespace. Only label equality matters; confidence never does.
func labelsAgree(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
