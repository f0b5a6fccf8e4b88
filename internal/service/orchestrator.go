package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"mailminder/internal/model"
	"mailminder/pkg/metrics"
)

// MessageSource supplies the messages the orchestrator works on.
type MessageSource interface {
	ListUnclassified(ctx context.Context, accountID, limit int) ([]model.Message, error)
	Get(ctx context.Context, id string) (*model.Message, *string, error)
}

// RecordSink persists decided classification records.
type RecordSink interface {
	Upsert(ctx context.Context, c *model.Classification) error
	UpsertAll(ctx context.Context, records []*model.Classification) error
}

var ErrMessageNotFound = errors.New("message not found")

// Orchestrator runs classification over an account's backlog. A run
// selects at most `limit` unclassified messages, newest first, folds the
// engine over them, and lands all collected records in one trailing
// commit. A per-message failure skips that message and continues; the
// message simply stays unclassified for a later pass.
type Orchestrator struct {
	messages MessageSource
	records  RecordSink
	engine   Engine
	limit    int
	logger   *zap.Logger
}

func NewOrchestrator(messages MessageSource, records RecordSink, engine Engine, limit int, logger *zap.Logger) *Orchestrator {
	if limit <= 0 {
		limit = 20
	}
	return &Orchestrator{
		messages: messages,
		records:  records,
		engine:   engine,
		limit:    limit,
		logger:   logger,
	}
}

// ClassifyNew classifies the account's unclassified backlog and returns
// the number of records committed.
func (o *Orchestrator) ClassifyNew(ctx context.Context, accountID, userID int) (int, error) {
	start := time.Now()

	msgs, err := o.messages.ListUnclassified(ctx, accountID, o.limit)
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	env, err := o.engine.PrepareEnv(ctx, userID)
	if err != nil {
		return 0, err
	}

	records := make([]*model.Classification, 0, len(msgs))
	for i := range msgs {
		msg := &msgs[i]
		rec, err := o.engine.Classify(ctx, msg, env)
		if err != nil {
			o.logger.Warn("Message classification failed, skipping",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			continue
		}
		records = append(records, rec)
	}

	if err := o.records.UpsertAll(ctx, records); err != nil {
		return 0, err
	}

	for _, rec := range records {
		metrics.IncrementClassification(rec.DecidedBy)
	}
	metrics.RecordBatch(len(records), time.Since(start))

	o.logger.Info("Classification batch committed",
		zap.Int("account_id", accountID),
		zap.Int("selected", len(msgs)),
		zap.Int("classified", len(records)),
	)
	return len(records), nil
}

// ClassifyMessage classifies a single message on demand and commits the
// record immediately.
func (o *Orchestrator) ClassifyMessage(ctx context.Context, messageID string, userID int) (*model.Classification, error) {
	msg, _, err := o.messages.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}

	env, err := o.engine.PrepareEnv(ctx, userID)
	if err != nil {
		return nil, err
	}

	rec, err := o.engine.Classify(ctx, msg, env)
	if err != nil {
		return nil, err
	}
	if err := o.records.Upsert(ctx, rec); err != nil {
		return nil, err
	}

	metrics.IncrementClassification(rec.DecidedBy)
	return rec, nil
}
