// Package mqhandler holds the worker-side event handlers. Each handler
// is idempotent: redis dedup guards against redeliveries, and the
// classification sweep only ever selects messages that still lack a
// record.
package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mailminder/contracts/mq"
	"mailminder/internal/service"
	"mailminder/pkg/util"
)

const (
	handlerName = "mailbox_synced"
	maxRetries  = 5
)

// MailboxSyncedHandler consumes mailbox.synced events and runs a
// classification sweep over the synced account's backlog. The API may
// already have classified inline; the sweep then finds nothing and is a
// no-op.
type MailboxSyncedHandler struct {
	orchestrator *service.Orchestrator
	deduper      *util.Deduper
	retries      *util.RetryCounter
	logger       *zap.Logger
}

func NewMailboxSyncedHandler(
	orchestrator *service.Orchestrator,
	deduper *util.Deduper,
	retries *util.RetryCounter,
	logger *zap.Logger,
) *MailboxSyncedHandler {
	return &MailboxSyncedHandler{
		orchestrator: orchestrator,
		deduper:      deduper,
		retries:      retries,
		logger:       logger,
	}
}

// Handle is the MQ message handler. Returning an error nacks the
// delivery for redelivery; returning nil acks it. Permanent failures
// (bad payload, retry budget exhausted) return nil so the message leaves
// the queue.
func (h *MailboxSyncedHandler) Handle(ctx context.Context, data json.RawMessage) error {
	var payload mq.MailboxSyncedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		// 数据格式错误，重试也没用
		h.logger.Error("Failed to decode mailbox.synced payload, dropping",
			zap.Error(err),
		)
		return nil
	}

	if !payload.AutoClassify {
		return nil
	}

	if !h.deduper.AcquireOnce(ctx, handlerName, payload.SyncID) {
		return nil
	}

	log := h.logger.With(
		zap.String("sync_id", payload.SyncID),
		zap.Int("account_id", payload.AccountID),
	)

	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	classified, err := h.orchestrator.ClassifyNew(runCtx, payload.AccountID, payload.UserID)
	if err != nil {
		return h.handleFailure(ctx, payload.SyncID, err, log)
	}

	retryKey := util.FormatRetryKey(handlerName, payload.SyncID)
	if err := h.retries.Reset(ctx, retryKey); err != nil {
		log.Warn("Failed to reset retry counter", zap.Error(err))
	}

	log.Info("Classification sweep completed",
		zap.Int("classified", classified),
	)
	return nil
}

func (h *MailboxSyncedHandler) handleFailure(ctx context.Context, syncID string, err error, log *zap.Logger) error {
	retryable, errType := util.IsRetryableError(err)

	retryKey := util.FormatRetryKey(handlerName, syncID)
	count, cntErr := h.retries.IncrementAndGet(ctx, retryKey)
	if cntErr != nil {
		log.Warn("Failed to track retry count", zap.Error(cntErr))
	}

	if util.ShouldRetry(count, maxRetries, retryable) {
		log.Warn("Classification sweep failed, requeueing",
			zap.String("error_type", errType),
			zap.Int64("retry_count", count),
			zap.Error(err),
		)
		// 去重锁也要释放，否则重投递会被当成重复事件跳过
		h.deduper.Release(ctx, handlerName, syncID)
		return fmt.Errorf("classification sweep failed (%s): %w", errType, err)
	}

	log.Error("Classification sweep failed permanently, dropping",
		zap.String("error_type", errType),
		zap.Int64("retry_count", count),
		zap.Error(err),
	)
	return nil
}
