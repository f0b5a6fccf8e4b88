package httpserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mailminder/internal/handler"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	authHandler *handler.AuthHandler,
	messageHandler *handler.MessageHandler,
	syncHandler *handler.SyncHandler,
	classifyHandler *handler.ClassifyHandler,
	categoryHandler *handler.CategoryHandler,
	whitelistHandler *handler.WhitelistHandler,
	aiConfigHandler *handler.AIConfigHandler,
	jwtSecret string,
	db *pgxpool.Pool,
) *Router {
	r := gin.Default()

	r.Use(TraceMiddleware())
	r.Use(MetricsMiddleware())

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/register", authHandler.Register)
	r.POST("/login", authHandler.Login)

	// Protected
	auth := r.Group("/")
	auth.Use(AuthMiddleware(jwtSecret))
	{
		auth.GET("/messages", messageHandler.ListMessages)
		auth.GET("/messages/:id", messageHandler.GetMessage)
		auth.PATCH("/messages/:id/read", messageHandler.SetRead)
		auth.PATCH("/messages/:id/star", messageHandler.SetStarred)
		auth.DELETE("/messages/:id", messageHandler.DeleteMessage)
		auth.PUT("/messages/:id/classification", messageHandler.SetClassification)
		auth.POST("/messages/:id/classify", messageHandler.ClassifyMessage)
		auth.POST("/messages/bulk-read", messageHandler.BulkSetRead)
		auth.POST("/folders/empty", messageHandler.EmptyFolder)

		auth.POST("/sync/:accountID", syncHandler.StartSync)
		auth.GET("/sync/status", syncHandler.SyncStatus)
		auth.POST("/classify/batch", classifyHandler.ClassifyBatch)

		auth.GET("/categories", categoryHandler.ListCategories)
		auth.POST("/categories", categoryHandler.CreateCategory)
		auth.PUT("/categories/:id", categoryHandler.UpdateCategory)
		auth.DELETE("/categories/:id", categoryHandler.DeleteCategory)

		auth.GET("/whitelist", whitelistHandler.ListEntries)
		auth.POST("/whitelist", whitelistHandler.CreateEntry)
		auth.PATCH("/whitelist/:id/active", whitelistHandler.SetActive)
		auth.DELETE("/whitelist/:id", whitelistHandler.DeleteEntry)

		auth.GET("/ai-config", aiConfigHandler.GetConfig)
		auth.PUT("/ai-config", aiConfigHandler.SaveConfig)
		auth.GET("/ai-config/models", aiConfigHandler.ListModels)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
