package consensus

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailminder/internal/classifier"
	"mailminder/internal/model"
)

// fakeClassifier returns canned results per model, optionally different
// ones for review calls (detected by the review prompt preamble).
type fakeClassifier struct {
	mu      sync.Mutex
	results map[string]*classifier.Result
	review  *classifier.Result
	errs    map[string]error
	calls   []string
}

func (f *fakeClassifier) Classify(ctx context.Context, m, prompt string) (*classifier.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	isReview := strings.Contains(prompt, "Prior opinions")
	if isReview {
		f.calls = append(f.calls, m+":review")
		if f.review != nil {
			return f.review, nil
		}
	} else {
		f.calls = append(f.calls, m)
	}

	if err, ok := f.errs[m]; ok {
		return nil, err
	}
	return f.results[m], nil
}

func testModels() Models {
	return Models{Primary: "gpt-4o-mini", Secondary: "qwen2.5"}
}

func testPrompts() *classifier.PromptBuilder {
	return classifier.NewPromptBuilder([]model.Category{
		{Key: "SPAM", AIInstruction: "Unsolicited bulk mail."},
		{Key: "Interesantes", AIInstruction: "Relevant personal mail."},
	})
}

func testInput() classifier.Input {
	return classifier.Input{FromEmail: "a@b.com", Subject: "hi", Snippet: "hello"}
}

func TestConsensusWhenLabelsMatch(t *testing.T) {
	fake := &fakeClassifier{results: map[string]*classifier.Result{
		"gpt-4o-mini": {Label: "SPAM", Confidence: 0.9, Rationale: "bulk"},
		"qwen2.5":     {Label: " spam ", Confidence: 0.7, Rationale: "ads"},
	}}

	r := NewResolver(fake, testModels(), time.Second, zap.NewNop())
	out, err := r.Resolve(context.Background(), testInput(), testPrompts())
	require.NoError(t, err)

	assert.Equal(t, model.DecidedConsensus, out.DecidedBy)
	assert.Equal(t, "SPAM", out.FinalLabel)
	assert.Len(t, fake.calls, 2, "no review call on agreement")
	require.NotNil(t, out.Primary)
	require.NotNil(t, out.Secondary)
	assert.Equal(t, 0.9, out.Primary.Confidence)
	assert.Equal(t, 0.7, out.Secondary.Confidence)
}

func TestDisagreementTriggersExactlyOneReview(t *testing.T) {
	fake := &fakeClassifier{
		results: map[string]*classifier.Result{
			"gpt-4o-mini": {Label: "SPAM", Confidence: 0.9, Rationale: "bulk"},
			"qwen2.5":     {Label: "Interesantes", Confidence: 0.6, Rationale: "personal"},
		},
		review: &classifier.Result{Label: "SPAM", Confidence: 0.8, Rationale: "clearly bulk"},
	}

	r := NewResolver(fake, testModels(), time.Second, zap.NewNop())
	out, err := r.Resolve(context.Background(), testInput(), testPrompts())
	require.NoError(t, err)

	assert.Equal(t, "SPAM", out.FinalLabel)
	assert.Equal(t, "gpt_review", out.DecidedBy)
	assert.NotEqual(t, model.DecidedConsensus, out.DecidedBy)

	reviews := 0
	for _, c := range fake.calls {
		if strings.HasSuffix(c, ":review") {
			reviews++
			assert.Equal(t, "gpt-4o-mini:review", c, "review runs on the primary model")
		}
	}
	assert.Equal(t, 1, reviews)

	// both original opinions retained in the record
	assert.Equal(t, "SPAM", out.Primary.Label)
	assert.Equal(t, "Interesantes", out.Secondary.Label)
}

func TestEitherFailureLeavesMessageUnclassified(t *testing.T) {
	for _, failing := range []string{"gpt-4o-mini", "qwen2.5"} {
		fake := &fakeClassifier{
			results: map[string]*classifier.Result{
				"gpt-4o-mini": {Label: "SPAM"},
				"qwen2.5":     {Label: "SPAM"},
			},
			errs: map[string]error{failing: classifier.ErrUnavailable},
		}

		r := NewResolver(fake, testModels(), time.Second, zap.NewNop())
		out, err := r.Resolve(context.Background(), testInput(), testPrompts())
		require.Error(t, err, "failing=%s", failing)
		assert.Nil(t, out)
		assert.True(t, errors.Is(err, classifier.ErrUnavailable))
	}
}

func TestReviewFailurePropagates(t *testing.T) {
	fake := &fakeClassifier{
		results: map[string]*classifier.Result{
			"gpt-4o-mini": {Label: "SPAM"},
			"qwen2.5":     {Label: "Interesantes"},
		},
		errs: nil,
	}
	// make review fail: the review call goes to the primary model; after
	// the two first-pass calls succeed, flip the primary to error.
	fake.review = nil
	fake.errs = map[string]error{}

	r := NewResolver(&reviewFailingClassifier{inner: fake}, testModels(), time.Second, zap.NewNop())
	out, err := r.Resolve(context.Background(), testInput(), testPrompts())
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, errors.Is(err, classifier.ErrTimeout))
}

type reviewFailingClassifier struct {
	inner *fakeClassifier
}

func (c *reviewFailingClassifier) Classify(ctx context.Context, m, prompt string) (*classifier.Result, error) {
	if strings.Contains(prompt, "Prior opinions") {
		return nil, classifier.ErrTimeout
	}
	return c.inner.Classify(ctx, m, prompt)
}

func TestReviewProvenanceTagDerivation(t *testing.T) {
	assert.Equal(t, "gpt_review", model.ReviewProvenance("gpt-4o-mini"))
	assert.Equal(t, "qwen_review", model.ReviewProvenance("qwen2.5"))
	assert.Equal(t, "review", model.ReviewProvenance("4o"))
}
