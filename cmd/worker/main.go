package main

import (
	"time"

	"go.uber.org/zap"

	"mailminder/internal/mqhandler"
	"mailminder/internal/repository"
	"mailminder/internal/rules"
	"mailminder/internal/service"
	"mailminder/pkg/config"
	"mailminder/pkg/db"
	"mailminder/pkg/logger"
	"mailminder/pkg/mq"
	"mailminder/pkg/redis"
	"mailminder/pkg/util"
)

func main() {
	cfg, err := config.Load(config.GetConfigEnv(), "")
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting worker service...")

	// Redis
	rdb := redis.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	deduper := util.NewDeduper(rdb, time.Hour, log)
	retryCounter := util.NewRetryCounter(rdb, time.Hour)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("DB connection failed", zap.Error(err))
	}
	defer dbConn.Close()

	log.Info("DB ready")

	// repositories
	messageRepo := repository.NewMessageRepository(dbConn)
	classificationRepo := repository.NewClassificationRepository(dbConn)
	categoryRepo := repository.NewCategoryRepository(dbConn)
	whitelistRepo := repository.NewWhitelistRepository(dbConn)
	aiConfigRepo := repository.NewAIConfigRepository(dbConn)

	// classification pipeline
	engine := service.NewClassifyEngine(
		categoryRepo, whitelistRepo, aiConfigRepo,
		rules.NewEvaluator(cfg.Classify.ServiceLabel, cfg.Classify.CopyLabel, cfg.Classify.RecipientThreshold),
		cfg.AI, log,
	)
	orchestrator := service.NewOrchestrator(messageRepo, classificationRepo, engine, cfg.Classify.BatchLimit, log)

	syncedHandler := mqhandler.NewMailboxSyncedHandler(orchestrator, deduper, retryCounter, log)

	// -------------------------
	// Mailbox Synced Consumer
	// -------------------------
	log.Info("Init consumer: mailbox.synced.classify.q")
	consumer, err := mq.NewConsumer(
		cfg.MQ.URL,
		"mailbox.synced.classify.q",
		"mailbox.synced",
		log,
	)
	if err != nil {
		log.Fatal("Consumer init failed", zap.Error(err))
	}
	consumer.SetHandler(syncedHandler.Handle)
	defer consumer.Close()

	go func() {
		if err := consumer.StartConsuming(); err != nil {
			log.Fatal("Consumer crashed", zap.Error(err))
		}
	}()

	log.Info("Worker service started")
	select {}
}
