package main

import (
	"time"

	"go.uber.org/zap"

	"mailminder/internal/handler"
	"mailminder/internal/httpserver"
	"mailminder/internal/repository"
	"mailminder/internal/rules"
	"mailminder/internal/service"
	"mailminder/internal/storage"
	"mailminder/pkg/config"
	"mailminder/pkg/db"
	"mailminder/pkg/logger"
	"mailminder/pkg/mq"
)

func main() {
	cfg, err := config.Load(config.GetConfigEnv(), "")
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting api service...")

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("DB connection failed", zap.Error(err))
	}
	defer dbConn.Close()

	// MQ publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("MQ publisher init failed", zap.Error(err))
	}
	defer publisher.Close()

	// repositories
	userRepo := repository.NewUserRepository(dbConn)
	accountRepo := repository.NewAccountRepository(dbConn)
	messageRepo := repository.NewMessageRepository(dbConn)
	classificationRepo := repository.NewClassificationRepository(dbConn)
	categoryRepo := repository.NewCategoryRepository(dbConn)
	whitelistRepo := repository.NewWhitelistRepository(dbConn)
	aiConfigRepo := repository.NewAIConfigRepository(dbConn)
	auditRepo := repository.NewAuditRepository(dbConn)

	// services
	accountant := storage.NewAccountant(dbConn, log)
	engine := service.NewClassifyEngine(
		categoryRepo, whitelistRepo, aiConfigRepo,
		rules.NewEvaluator(cfg.Classify.ServiceLabel, cfg.Classify.CopyLabel, cfg.Classify.RecipientThreshold),
		cfg.AI, log,
	)
	orchestrator := service.NewOrchestrator(messageRepo, classificationRepo, engine, cfg.Classify.BatchLimit, log)
	mailboxSvc := service.NewMailboxService(messageRepo, classificationRepo, accountant, auditRepo, log)
	fetcher := service.NewHTTPFetcher(cfg.Fetcher.URL, time.Duration(cfg.Fetcher.TimeoutSeconds)*time.Second)
	syncSvc := service.NewSyncService(accountRepo, messageRepo, auditRepo, fetcher, publisher, orchestrator, log)
	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, log)

	// handlers
	authHandler := handler.NewAuthHandler(authSvc, log)
	messageHandler := handler.NewMessageHandler(messageRepo, classificationRepo, mailboxSvc, orchestrator, log)
	syncHandler := handler.NewSyncHandler(syncSvc, log)
	classifyHandler := handler.NewClassifyHandler(accountRepo, auditRepo, orchestrator, log)
	categoryHandler := handler.NewCategoryHandler(categoryRepo, log)
	whitelistHandler := handler.NewWhitelistHandler(whitelistRepo, log)
	aiConfigHandler := handler.NewAIConfigHandler(aiConfigRepo, cfg.AI, log)

	router := httpserver.NewRouter(
		authHandler,
		messageHandler,
		syncHandler,
		classifyHandler,
		categoryHandler,
		whitelistHandler,
		aiConfigHandler,
		cfg.JWT.Secret,
		dbConn,
	)

	log.Info("API listening", zap.String("port", cfg.Server.Port))
	if err := router.Run(cfg.Server.Port); err != nil {
		log.Fatal("Server crashed", zap.Error(err))
	}
}
