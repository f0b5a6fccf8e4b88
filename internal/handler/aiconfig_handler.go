package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailminder/internal/classifier"
	"mailminder/internal/model"
	"mailminder/internal/repository"
	"mailminder/pkg/config"
)

type AIConfigHandler struct {
	configs   *repository.AIConfigRepository
	bootstrap config.AIConfig
	logger    *zap.Logger
}

func NewAIConfigHandler(configs *repository.AIConfigRepository, bootstrap config.AIConfig, logger *zap.Logger) *AIConfigHandler {
	return &AIConfigHandler{configs: configs, bootstrap: bootstrap, logger: logger}
}

// GetConfig returns the effective gateway config. The API key is never
// echoed back, only whether one is set.
func (h *AIConfigHandler) GetConfig(c *gin.Context) {
	effective, source, err := h.effective(c)
	if err != nil {
		h.logger.Error("GetConfig: query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch ai config"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"api_url":         effective.APIURL,
		"api_key_set":     effective.APIKey != "",
		"primary_model":   effective.PrimaryModel,
		"secondary_model": effective.SecondaryModel,
		"source":          source,
	})
}

type aiConfigRequest struct {
	APIURL         string `json:"api_url" binding:"required"`
	APIKey         string `json:"api_key"`
	PrimaryModel   string `json:"primary_model" binding:"required"`
	SecondaryModel string `json:"secondary_model" binding:"required"`
}

// SaveConfig persists a gateway config that overrides the static one for
// all later classification runs. In-flight runs keep their snapshot.
func (h *AIConfigHandler) SaveConfig(c *gin.Context) {
	var req aiConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "api_url, primary_model and secondary_model required"})
		return
	}

	cfg := &model.AIConfig{
		APIURL:         req.APIURL,
		APIKey:         req.APIKey,
		PrimaryModel:   req.PrimaryModel,
		SecondaryModel: req.SecondaryModel,
	}
	if cfg.APIKey == "" {
		// Keep the previously stored key when the caller omits it.
		if saved, err := h.configs.Get(c.Request.Context()); err == nil && saved != nil {
			cfg.APIKey = saved.APIKey
		}
	}

	if err := h.configs.Save(c.Request.Context(), cfg); err != nil {
		h.logger.Error("SaveConfig: failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save ai config"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListModels proxies the gateway's model catalogue using the effective
// config.
func (h *AIConfigHandler) ListModels(c *gin.Context) {
	effective, _, err := h.effective(c)
	if err != nil {
		h.logger.Error("ListModels: config query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch ai config"})
		return
	}

	client := classifier.New(classifier.Config{
		APIURL:  effective.APIURL,
		APIKey:  effective.APIKey,
		Timeout: 10 * time.Second,
	})
	models, err := client.ListModels(c.Request.Context())
	if err != nil {
		h.logger.Error("ListModels: gateway call failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "classifier gateway unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"models": models})
}

func (h *AIConfigHandler) effective(c *gin.Context) (*model.AIConfig, string, error) {
	saved, err := h.configs.Get(c.Request.Context())
	if err != nil {
		return nil, "", err
	}
	if saved != nil {
		return saved, "database", nil
	}
	return &model.AIConfig{
		APIURL:         h.bootstrap.APIURL,
		APIKey:         h.bootstrap.APIKey,
		PrimaryModel:   h.bootstrap.PrimaryModel,
		SecondaryModel: h.bootstrap.SecondaryModel,
	}, "static", nil
}
