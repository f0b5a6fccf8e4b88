package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailminder/contracts/mq"
	"mailminder/internal/model"
	"mailminder/internal/repository"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountInactive = errors.New("account is inactive")
)

// FetchedMessage is one message as delivered by the fetch collaborator.
type FetchedMessage struct {
	ImapUID        *int64     `json:"imap_uid"`
	MessageID      *string    `json:"message_id"`
	ThreadID       *string    `json:"thread_id"`
	FromName       *string    `json:"from_name"`
	FromEmail      string     `json:"from_email"`
	To             []string   `json:"to"`
	Cc             []string   `json:"cc"`
	Bcc            []string   `json:"bcc"`
	Subject        *string    `json:"subject"`
	Date           *time.Time `json:"date"`
	Snippet        *string    `json:"snippet"`
	BodyText       *string    `json:"body_text"`
	BodyHTML       *string    `json:"body_html"`
	HasAttachments bool       `json:"has_attachments"`
}

// FetchResult is the fetch collaborator's answer for one mailbox folder.
type FetchResult struct {
	Status      string           `json:"status"`
	NewMessages []FetchedMessage `json:"new_messages"`
	Error       string           `json:"error,omitempty"`
}

// Fetcher retrieves new messages for an account. The production
// implementation talks to the mail fetch gateway; tests substitute fakes.
type Fetcher interface {
	Fetch(ctx context.Context, account *model.Account, folder string) (*FetchResult, error)
}

// EventPublisher emits domain events to the message broker.
type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

// SyncResponse summarizes one completed sync run.
type SyncResponse struct {
	SyncID          string `json:"sync_id"`
	Status          string `json:"status"`
	NewMessages     int    `json:"new_messages"`
	ClassifiedCount int    `json:"classified_count"`
}

// SyncService pulls new mail for an account, stores it, optionally
// classifies the fresh backlog inline, and announces the sync on the
// broker so the worker can run its own sweep.
type SyncService struct {
	accounts     *repository.AccountRepository
	messages     *repository.MessageRepository
	audit        *repository.AuditRepository
	fetcher      Fetcher
	publisher    EventPublisher
	orchestrator *Orchestrator
	logger       *zap.Logger
}

func NewSyncService(
	accounts *repository.AccountRepository,
	messages *repository.MessageRepository,
	audit *repository.AuditRepository,
	fetcher Fetcher,
	publisher EventPublisher,
	orchestrator *Orchestrator,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		accounts:     accounts,
		messages:     messages,
		audit:        audit,
		fetcher:      fetcher,
		publisher:    publisher,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// Start runs one sync for the account. Fetch failures are recorded on the
// account and returned; classification failures after a successful fetch
// are logged but never fail the sync, since the worker sweep will retry.
func (s *SyncService) Start(ctx context.Context, accountID int, folder string, autoClassify *bool) (*SyncResponse, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	if !account.IsActive {
		return nil, ErrAccountInactive
	}

	syncID := uuid.NewString()
	classify := account.AutoClassify
	if autoClassify != nil {
		classify = *autoClassify
	}

	result, err := s.fetcher.Fetch(ctx, account, folder)
	if err != nil {
		msg := err.Error()
		if dbErr := s.accounts.SetLastSyncError(ctx, accountID, &msg); dbErr != nil {
			s.logger.Error("Failed to record sync error", zap.Error(dbErr))
		}
		s.recordAudit(ctx, syncID, accountID, 0, 0, "error", &msg)
		return nil, err
	}

	for i := range result.NewMessages {
		fm := &result.NewMessages[i]
		m := &model.Message{
			ID:             uuid.NewString(),
			AccountID:      accountID,
			ImapUID:        fm.ImapUID,
			MessageID:      fm.MessageID,
			ThreadID:       fm.ThreadID,
			FromName:       fm.FromName,
			FromEmail:      fm.FromEmail,
			To:             fm.To,
			Cc:             fm.Cc,
			Bcc:            fm.Bcc,
			Subject:        fm.Subject,
			Date:           fm.Date,
			Snippet:        fm.Snippet,
			BodyText:       fm.BodyText,
			BodyHTML:       fm.BodyHTML,
			HasAttachments: fm.HasAttachments,
		}
		if err := s.messages.Insert(ctx, m); err != nil {
			s.logger.Warn("Failed to store synced message",
				zap.String("message_id", m.ID),
				zap.Error(err),
			)
		}
	}
	if err := s.accounts.SetLastSyncError(ctx, accountID, nil); err != nil {
		s.logger.Warn("Failed to clear sync error", zap.Error(err))
	}

	classified := 0
	if classify && len(result.NewMessages) > 0 {
		classified, err = s.orchestrator.ClassifyNew(ctx, accountID, account.UserID)
		if err != nil {
			s.logger.Error("Inline classification failed, worker sweep will retry",
				zap.Int("account_id", accountID),
				zap.Error(err),
			)
			classified = 0
		}
	}

	payload := mq.MailboxSyncedPayload{
		SyncID:       syncID,
		AccountID:    accountID,
		UserID:       account.UserID,
		Folder:       folder,
		NewMessages:  len(result.NewMessages),
		AutoClassify: classify,
		SyncedAt:     time.Now().UTC(),
	}
	if err := s.publisher.Publish(mq.RoutingKeyMailboxSynced, payload); err != nil {
		s.logger.Error("Failed to publish sync event", zap.Error(err))
	}

	s.recordAudit(ctx, syncID, accountID, len(result.NewMessages), classified, "success", nil)

	return &SyncResponse{
		SyncID:          syncID,
		Status:          "success",
		NewMessages:     len(result.NewMessages),
		ClassifiedCount: classified,
	}, nil
}

// LastSync reports the most recent sync audit rows.
func (s *SyncService) LastSync(ctx context.Context, limit int) ([]model.AuditLog, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.audit.RecentByAction(ctx, "sync_mailbox", limit)
}

func (s *SyncService) recordAudit(ctx context.Context, syncID string, accountID, newMessages, classified int, status string, errMessage *string) {
	err := s.audit.Record(ctx, "sync_mailbox", nil, map[string]any{
		"sync_id":          syncID,
		"account_id":       accountID,
		"new_messages":     newMessages,
		"classified_count": classified,
	}, status, errMessage)
	if err != nil {
		s.logger.Warn("Failed to write audit row", zap.Error(err))
	}
}
