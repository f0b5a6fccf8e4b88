package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"mailminder/internal/model"
	"mailminder/internal/repository"
	"mailminder/internal/service"
)

type MessageHandler struct {
	messages        *repository.MessageRepository
	classifications *repository.ClassificationRepository
	mailbox         *service.MailboxService
	orchestrator    *service.Orchestrator
	logger          *zap.Logger
}

func NewMessageHandler(
	messages *repository.MessageRepository,
	classifications *repository.ClassificationRepository,
	mailbox *service.MailboxService,
	orchestrator *service.Orchestrator,
	logger *zap.Logger,
) *MessageHandler {
	return &MessageHandler{
		messages:        messages,
		classifications: classifications,
		mailbox:         mailbox,
		orchestrator:    orchestrator,
		logger:          logger,
	}
}

// ListMessages serves the folder views. Folder membership is entirely
// label-driven: ?label=INBOX selects unclassified mail, ?folder=Deleted
// the trash view, anything else excludes trash.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	filter := repository.MessageFilter{
		Folder:    c.Query("folder"),
		Search:    c.Query("search"),
		FromEmail: c.Query("from_email"),
		DateFrom:  c.Query("date_from"),
		DateTo:    c.Query("date_to"),
	}

	if raw := c.Query("account_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account_id"})
			return
		}
		filter.AccountID = &id
	}
	if raw := c.Query("label"); raw != "" {
		label := raw
		filter.Label = &label
	}
	if raw := c.Query("is_starred"); raw != "" {
		v := raw == "true"
		filter.IsStarred = &v
	}
	if raw := c.Query("has_attachments"); raw != "" {
		v := raw == "true"
		filter.HasAttachments = &v
	}
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			filter.Limit = v
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			filter.Offset = v
		}
	}

	messages, err := h.messages.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("ListMessages: query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"count":    len(messages),
	})
}

// GetMessage returns the full message plus its classification record.
func (h *MessageHandler) GetMessage(c *gin.Context) {
	id := c.Param("id")

	msg, label, err := h.messages.Get(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("GetMessage: query failed", zap.String("message_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch message"})
		return
	}
	if msg == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}

	classification, err := h.classifications.Get(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("GetMessage: classification query failed", zap.String("message_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch classification"})
		return
	}

	resolved := model.LabelInbox
	if label != nil {
		resolved = *label
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        messageDetail(msg),
		"folder":         resolved,
		"classification": classificationDetail(classification),
	})
}

type readRequest struct {
	IsRead bool `json:"is_read"`
}

func (h *MessageHandler) SetRead(c *gin.Context) {
	id := c.Param("id")

	var req readRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.messages.SetRead(c.Request.Context(), id, req.IsRead); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		h.logger.Error("SetRead: update failed", zap.String("message_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type starRequest struct {
	IsStarred bool `json:"is_starred"`
}

func (h *MessageHandler) SetStarred(c *gin.Context) {
	id := c.Param("id")

	var req starRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.messages.SetStarred(c.Request.Context(), id, req.IsStarred); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		h.logger.Error("SetStarred: update failed", zap.String("message_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// DeleteMessage soft-deletes: the message moves to the Deleted view and
// stays recoverable until the trash is emptied.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	id := c.Param("id")

	if err := h.mailbox.SoftDelete(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		h.logger.Error("DeleteMessage: failed", zap.String("message_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "label": model.LabelDeleted})
}

type setLabelRequest struct {
	Label *string `json:"label"`
}

// SetClassification applies a manual label. null or "INBOX" clears the
// record and returns the message to the Inbox.
func (h *MessageHandler) SetClassification(c *gin.Context) {
	id := c.Param("id")

	var req setLabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.mailbox.SetLabel(c.Request.Context(), id, req.Label); err != nil {
		if errors.Is(err, service.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		h.logger.Error("SetClassification: failed", zap.String("message_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to set label"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ClassifyMessage runs the full classification protocol for one message
// on demand and returns the committed record.
func (h *MessageHandler) ClassifyMessage(c *gin.Context) {
	id := c.Param("id")
	userID := c.GetInt("user_id")

	rec, err := h.orchestrator.ClassifyMessage(c.Request.Context(), id, userID)
	if err != nil {
		if errors.Is(err, service.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		h.logger.Error("ClassifyMessage: failed", zap.String("message_id", id), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "classification failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"classification": classificationDetail(rec)})
}

type bulkReadRequest struct {
	AccountID int     `json:"account_id" binding:"required"`
	Label     *string `json:"label"`
}

func (h *MessageHandler) BulkSetRead(c *gin.Context) {
	var req bulkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account_id required"})
		return
	}

	count, err := h.mailbox.MarkAllRead(c.Request.Context(), req.AccountID, req.Label)
	if err != nil {
		h.logger.Error("BulkSetRead: failed", zap.Int("account_id", req.AccountID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "updated": count})
}

type emptyFolderRequest struct {
	AccountID int    `json:"account_id" binding:"required"`
	Folder    string `json:"folder" binding:"required"`
}

// EmptyFolder clears a folder. Emptying "Deleted" is destructive: it
// permanently removes messages and reclaims their storage.
func (h *MessageHandler) EmptyFolder(c *gin.Context) {
	var req emptyFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account_id and folder required"})
		return
	}

	result, err := h.mailbox.EmptyFolder(c.Request.Context(), req.AccountID, req.Folder)
	if err != nil {
		h.logger.Error("EmptyFolder: failed",
			zap.Int("account_id", req.AccountID),
			zap.String("folder", req.Folder),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to empty folder"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func messageDetail(m *model.Message) gin.H {
	return gin.H{
		"id":              m.ID,
		"account_id":      m.AccountID,
		"message_id":      m.MessageID,
		"thread_id":       m.ThreadID,
		"from_name":       m.FromName,
		"from_email":      m.FromEmail,
		"to":              m.To,
		"cc":              m.Cc,
		"bcc":             m.Bcc,
		"subject":         m.Subject,
		"date":            m.Date,
		"snippet":         m.Snippet,
		"body_text":       m.BodyText,
		"body_html":       m.BodyHTML,
		"has_attachments": m.HasAttachments,
		"is_read":         m.IsRead,
		"is_starred":      m.IsStarred,
	}
}

func classificationDetail(c *model.Classification) gin.H {
	if c == nil {
		return nil
	}
	return gin.H{
		"final_label":          c.FinalLabel,
		"final_reason":         c.FinalReason,
		"decided_by":           c.DecidedBy,
		"decided_at":           c.DecidedAt,
		"primary_label":        c.PrimaryLabel,
		"primary_confidence":   c.PrimaryConfidence,
		"primary_rationale":    c.PrimaryRationale,
		"secondary_label":      c.SecondaryLabel,
		"secondary_confidence": c.SecondaryConfidence,
		"secondary_rationale":  c.SecondaryRationale,
	}
}
