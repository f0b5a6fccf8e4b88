package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailminder/internal/repository"
	"mailminder/internal/service"
)

// ClassifyHandler exposes the manual batch trigger. The same orchestrator
// run also happens inline on sync and asynchronously in the worker; all
// three paths are idempotent because only unclassified messages are
// selected.
type ClassifyHandler struct {
	accounts     *repository.AccountRepository
	audit        *repository.AuditRepository
	orchestrator *service.Orchestrator
	logger       *zap.Logger
}

func NewClassifyHandler(
	accounts *repository.AccountRepository,
	audit *repository.AuditRepository,
	orchestrator *service.Orchestrator,
	logger *zap.Logger,
) *ClassifyHandler {
	return &ClassifyHandler{
		accounts:     accounts,
		audit:        audit,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

type classifyBatchRequest struct {
	AccountID int `json:"account_id" binding:"required"`
}

func (h *ClassifyHandler) ClassifyBatch(c *gin.Context) {
	var req classifyBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account_id required"})
		return
	}

	account, err := h.accounts.FindByID(c.Request.Context(), req.AccountID)
	if err != nil {
		h.logger.Error("ClassifyBatch: account lookup failed", zap.Int("account_id", req.AccountID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch account"})
		return
	}
	if account == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}

	classified, err := h.orchestrator.ClassifyNew(c.Request.Context(), account.ID, account.UserID)
	if err != nil {
		msg := err.Error()
		if auditErr := h.audit.Record(c.Request.Context(), "classify_batch", nil, gin.H{
			"account_id": account.ID,
		}, "error", &msg); auditErr != nil {
			h.logger.Warn("Failed to write audit row", zap.Error(auditErr))
		}
		h.logger.Error("ClassifyBatch: run failed", zap.Int("account_id", account.ID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "batch classification failed"})
		return
	}

	if auditErr := h.audit.Record(c.Request.Context(), "classify_batch", nil, gin.H{
		"account_id":       account.ID,
		"classified_count": classified,
	}, "success", nil); auditErr != nil {
		h.logger.Warn("Failed to write audit row", zap.Error(auditErr))
	}

	c.JSON(http.StatusOK, gin.H{"classified_count": classified})
}
