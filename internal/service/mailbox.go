package service

import (
	"context"

	"go.uber.org/zap"

	"mailminder/internal/model"
	"mailminder/internal/repository"
	"mailminder/internal/storage"
)

// MailboxService implements the user-facing mailbox mutations: manual
// labels, soft deletes and folder-wide operations. Soft delete and label
// assignment are the same mechanism, a final label written to the
// message's classification record.
type MailboxService struct {
	messages        *repository.MessageRepository
	classifications *repository.ClassificationRepository
	accountant      *storage.Accountant
	audit           *repository.AuditRepository
	logger          *zap.Logger
}

func NewMailboxService(
	messages *repository.MessageRepository,
	classifications *repository.ClassificationRepository,
	accountant *storage.Accountant,
	audit *repository.AuditRepository,
	logger *zap.Logger,
) *MailboxService {
	return &MailboxService{
		messages:        messages,
		classifications: classifications,
		accountant:      accountant,
		audit:           audit,
		logger:          logger,
	}
}

// SoftDelete moves a message to the Deleted view. The row itself is
// untouched; only the final label changes. Storage usage is not affected.
func (s *MailboxService) SoftDelete(ctx context.Context, messageID string) error {
	msg, _, err := s.messages.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return ErrMessageNotFound
	}

	if err := s.classifications.SetLabel(ctx, messageID, model.LabelDeleted, model.DecidedUserDelete); err != nil {
		return err
	}

	if err := s.audit.Record(ctx, "delete_message", &messageID, map[string]any{"mode": "soft"}, "success", nil); err != nil {
		s.logger.Warn("Failed to write audit row", zap.Error(err))
	}
	return nil
}

// SetLabel applies a manual label override. An empty or nil label clears
// the record entirely, returning the message to the Inbox view.
func (s *MailboxService) SetLabel(ctx context.Context, messageID string, label *string) error {
	msg, _, err := s.messages.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return ErrMessageNotFound
	}

	if label == nil || *label == "" || *label == model.LabelInbox {
		return s.classifications.Clear(ctx, messageID)
	}
	return s.classifications.SetLabel(ctx, messageID, *label, model.DecidedManualUser)
}

// EmptyFolderResult reports what an EmptyFolder call did. Exactly one of
// the two modes applies per call.
type EmptyFolderResult struct {
	SoftDeleted        int64 `json:"soft_deleted"`
	PermanentlyDeleted int   `json:"permanently_deleted"`
	BytesFreed         int64 `json:"bytes_freed"`
}

// EmptyFolder clears a virtual folder. Emptying Deleted permanently
// removes its messages and reclaims their storage; emptying any other
// folder (Inbox included) soft-deletes its contents into Deleted.
func (s *MailboxService) EmptyFolder(ctx context.Context, accountID int, folder string) (*EmptyFolderResult, error) {
	if folder == model.LabelDeleted {
		ids, err := s.messages.IDsWithLabel(ctx, accountID, model.LabelDeleted)
		if err != nil {
			return nil, err
		}
		bytesFreed, deleted, err := s.accountant.PermanentlyDelete(ctx, accountID, ids)
		if err != nil {
			return nil, err
		}

		if err := s.audit.Record(ctx, "empty_folder", nil, map[string]any{
			"account_id": accountID,
			"folder":     folder,
			"deleted":    deleted,
			"bytes":      bytesFreed,
		}, "success", nil); err != nil {
			s.logger.Warn("Failed to write audit row", zap.Error(err))
		}
		return &EmptyFolderResult{PermanentlyDeleted: deleted, BytesFreed: bytesFreed}, nil
	}

	var folderLabel *string
	if folder != "" && folder != model.LabelInbox {
		folderLabel = &folder
	}
	count, err := s.classifications.SetLabelForFolder(ctx, accountID, folderLabel, model.LabelDeleted, model.DecidedUserBulkDelete)
	if err != nil {
		return nil, err
	}

	if err := s.audit.Record(ctx, "empty_folder", nil, map[string]any{
		"account_id":   accountID,
		"folder":       folder,
		"soft_deleted": count,
	}, "success", nil); err != nil {
		s.logger.Warn("Failed to write audit row", zap.Error(err))
	}
	return &EmptyFolderResult{SoftDeleted: count}, nil
}

// MarkAllRead marks an account's messages read, optionally narrowed to
// one label. The Inbox sentinel is treated as no filter.
func (s *MailboxService) MarkAllRead(ctx context.Context, accountID int, label *string) (int64, error) {
	if label != nil && (*label == "" || *label == model.LabelInbox) {
		label = nil
	}
	return s.messages.BulkSetRead(ctx, accountID, label, true)
}
