package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailminder/internal/service"
)

type SyncHandler struct {
	sync   *service.SyncService
	logger *zap.Logger
}

func NewSyncHandler(sync *service.SyncService, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{sync: sync, logger: logger}
}

type syncRequest struct {
	Folder       string `json:"folder"`
	AutoClassify *bool  `json:"auto_classify"`
}

// StartSync pulls new mail for the account, classifying inline when the
// account (or the request) asks for it.
func (h *SyncHandler) StartSync(c *gin.Context) {
	accountID, err := strconv.Atoi(c.Param("accountID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}

	// body is optional
	var req syncRequest
	_ = c.ShouldBindJSON(&req)
	if req.Folder == "" {
		req.Folder = "INBOX"
	}

	h.logger.Info("StartSync request received",
		zap.Int("account_id", accountID),
		zap.String("folder", req.Folder),
	)

	resp, err := h.sync.Start(c.Request.Context(), accountID, req.Folder, req.AutoClassify)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		case errors.Is(err, service.ErrAccountInactive):
			c.JSON(http.StatusConflict, gin.H{"error": "account is inactive"})
		default:
			h.logger.Error("StartSync: failed", zap.Int("account_id", accountID), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "sync failed"})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SyncStatus reports the most recent sync runs from the audit log.
func (h *SyncHandler) SyncStatus(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}

	logs, err := h.sync.LastSync(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("SyncStatus: query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch sync history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"syncs": logs})
}
