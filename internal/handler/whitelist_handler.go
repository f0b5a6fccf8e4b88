package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailminder/internal/model"
	"mailminder/internal/repository"
)

type WhitelistHandler struct {
	whitelist *repository.WhitelistRepository
	logger    *zap.Logger
}

func NewWhitelistHandler(whitelist *repository.WhitelistRepository, logger *zap.Logger) *WhitelistHandler {
	return &WhitelistHandler{whitelist: whitelist, logger: logger}
}

func (h *WhitelistHandler) ListEntries(c *gin.Context) {
	userID := c.GetInt("user_id")

	entries, err := h.whitelist.List(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("ListEntries: query failed", zap.Int("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch whitelist"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"whitelist": entries})
}

type whitelistRequest struct {
	DomainPattern string  `json:"domain_pattern" binding:"required"`
	Description   *string `json:"description"`
	IsActive      *bool   `json:"is_active"`
}

func (h *WhitelistHandler) CreateEntry(c *gin.Context) {
	userID := c.GetInt("user_id")

	var req whitelistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "domain_pattern required"})
		return
	}

	pattern := strings.ToLower(strings.TrimSpace(req.DomainPattern))
	if pattern == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "domain_pattern required"})
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	entry := &model.WhitelistEntry{
		UserID:        userID,
		DomainPattern: pattern,
		Description:   req.Description,
		IsActive:      active,
	}
	if err := h.whitelist.Upsert(c.Request.Context(), entry); err != nil {
		h.logger.Error("CreateEntry: failed", zap.Int("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save whitelist entry"})
		return
	}

	c.JSON(http.StatusCreated, entry)
}

type whitelistActiveRequest struct {
	IsActive bool `json:"is_active"`
}

func (h *WhitelistHandler) SetActive(c *gin.Context) {
	userID := c.GetInt("user_id")
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry id"})
		return
	}

	var req whitelistActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	updated, err := h.whitelist.SetActive(c.Request.Context(), userID, id, req.IsActive)
	if err != nil {
		h.logger.Error("SetActive: failed", zap.Int("entry_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update whitelist entry"})
		return
	}
	if updated == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "whitelist entry not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *WhitelistHandler) DeleteEntry(c *gin.Context) {
	userID := c.GetInt("user_id")
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry id"})
		return
	}

	deleted, err := h.whitelist.Delete(c.Request.Context(), userID, id)
	if err != nil {
		h.logger.Error("DeleteEntry: failed", zap.Int("entry_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete whitelist entry"})
		return
	}
	if deleted == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "whitelist entry not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
