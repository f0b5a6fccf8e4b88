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
)

type CategoryHandler struct {
	categories *repository.CategoryRepository
	logger     *zap.Logger
}

func NewCategoryHandler(categories *repository.CategoryRepository, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{categories: categories, logger: logger}
}

func (h *CategoryHandler) ListCategories(c *gin.Context) {
	userID := c.GetInt("user_id")

	categories, err := h.categories.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("ListCategories: query failed", zap.Int("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch categories"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

type categoryRequest struct {
	Key           string  `json:"key" binding:"required"`
	Name          string  `json:"name" binding:"required"`
	Description   *string `json:"description"`
	AIInstruction string  `json:"ai_instruction" binding:"required"`
	Icon          *string `json:"icon"`
}

func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	userID := c.GetInt("user_id")

	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key, name and ai_instruction required"})
		return
	}
	if req.Key == model.LabelInbox || req.Key == model.LabelDeleted {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reserved category key"})
		return
	}

	cat := &model.Category{
		UserID:        userID,
		Key:           req.Key,
		Name:          req.Name,
		Description:   req.Description,
		AIInstruction: req.AIInstruction,
		Icon:          req.Icon,
	}
	if err := h.categories.Create(c.Request.Context(), cat); err != nil {
		h.logger.Error("CreateCategory: failed", zap.Int("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create category"})
		return
	}

	c.JSON(http.StatusCreated, cat)
}

func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	userID := c.GetInt("user_id")
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category id"})
		return
	}

	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key, name and ai_instruction required"})
		return
	}

	cat := &model.Category{
		ID:            id,
		UserID:        userID,
		Name:          req.Name,
		Description:   req.Description,
		AIInstruction: req.AIInstruction,
		Icon:          req.Icon,
	}
	if err := h.categories.Update(c.Request.Context(), cat); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "category not found"})
			return
		}
		h.logger.Error("UpdateCategory: failed", zap.Int("category_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update category"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	userID := c.GetInt("user_id")
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category id"})
		return
	}

	if err := h.categories.Delete(c.Request.Context(), userID, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrSystemCategory):
			c.JSON(http.StatusForbidden, gin.H{"error": "system category cannot be deleted"})
		case errors.Is(err, pgx.ErrNoRows):
			c.JSON(http.StatusNotFound, gin.H{"error": "category not found"})
		default:
			h.logger.Error("DeleteCategory: failed", zap.Int("category_id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete category"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
