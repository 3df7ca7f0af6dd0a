package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/Husnainn01/ssfinalcode-sub001/internal/api"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/cache"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/captcha"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/config"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/db"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/email"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/services"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/storage"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/tasks"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/utils"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'img' (image processing), 'all' (default), 'migrate' (consolidate legacy inquiries and exit)")

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := utils.InitLogger(cfg.LogEnv); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer utils.SyncLogger()
	logger := utils.GetLogger()

	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoDbName, cfg.MongoURI, cfg.MongoFallbackURI)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			logger.Error("Error disconnecting from MongoDB", zap.Error(err))
		}
	}()

	// Consolidation runs before the unique indexes so it can report the legacy
	// duplicates that keep them from building.
	if cfg.RunMode == "migrate" {
		report, err := services.NewMigrationService(mongoDb, cfg).ConsolidateInquiries(context.Background())
		if err != nil {
			logger.Fatal("Inquiry consolidation failed", zap.Error(err))
		}
		logger.Info("Inquiry consolidation finished",
			zap.Any("scanned", report.Scanned),
			zap.Int("copied", report.Copied),
			zap.Int("existing", report.Existing),
			zap.Strings("duplicateInquiryIds", report.DuplicateInquiryIDs),
			zap.Strings("duplicateStockNumbers", report.DuplicateStockNumbers))
	}

	ensureIndexes(logger, mongoDb)
	if cfg.RunMode == "migrate" {
		return
	}

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			logger.Error("Error disconnecting from Redis", zap.Error(err))
		}
	}()

	s3StorageService, err := storage.NewS3Storage(context.Background(), cfg)
	if err != nil {
		logger.Fatal("Failed to initialize S3 storage", zap.Error(err))
	}

	svc := api.NewServices(cfg, mongoDb, redisClient, s3StorageService)

	var primaryEmailSender email.Sender
	if os.Getenv("MOCK_SERVICES") == "true" {
		logger.Info("MOCK_SERVICES enabled: using Redis email sender")
		primaryEmailSender = email.NewRedisSender(redisClient, cfg)
	} else {
		primaryEmailSender = email.NewSMTPSender(cfg)
	}
	compositeSender := email.NewCompositeEmailSender(primaryEmailSender)
	if logEmailsPath := os.Getenv("LOG_EMAILS"); logEmailsPath != "" {
		fileSender, err := email.NewFileEmailSender(logEmailsPath)
		if err != nil {
			logger.Warn("File email logger disabled", zap.String("path", logEmailsPath), zap.Error(err))
		} else {
			compositeSender.AddSender(fileSender)
			logger.Info("File email logger enabled", zap.String("path", logEmailsPath))
		}
	}

	taskClient := tasks.NewClient(redisClient)
	defer taskClient.Close()

	taskProcessor := tasks.NewTaskProcessor(cfg, compositeSender, svc.Storage, svc.Listings, svc.Agreements, svc.EmailTemplates)

	var wg sync.WaitGroup
	shutdownChan := make(chan struct{}, 1)

	// The service API always runs.
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(cfg, redisClient, shutdownChan),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("Service API listening", zap.String("port", cfg.ServiceApiPort))
		if err := serviceSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Service API ListenAndServe error", zap.Error(err))
		}
	}()

	var mainApiSrv *http.Server
	var taskSrvs []*asynq.Server
	var scheduler *asynq.Scheduler

	logger.Info("Starting application", zap.String("mode", cfg.RunMode))

	apiMode := func() {
		mainApiSrv = &http.Server{
			Addr:              ":" + cfg.ApiPort,
			Handler:           api.SetupRouter(cfg, svc, taskClient, captcha.NewTurnstileVerifier(cfg)),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("Main API listening", zap.String("port", cfg.ApiPort))
			if err := mainApiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("Main API ListenAndServe error", zap.Error(err))
			}
		}()
	}

	runWorker := func(name string, isImage, isBg bool) {
		srv, mux := tasks.SetupServer(redisClient, taskProcessor, isImage, isBg)
		if srv == nil {
			return
		}
		taskSrvs = append(taskSrvs, srv)
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("Task server starting", zap.String("worker", name))
			if err := srv.Run(mux); err != nil {
				logger.Fatal("Task server error", zap.String("worker", name), zap.Error(err))
			}
		}()
	}

	bgMode := func() {
		runWorker("background", false, true)
		s, err := tasks.NewScheduler(redisClient, cfg.ReconcileCron)
		if err != nil {
			logger.Fatal("Failed to create scheduler", zap.Error(err))
		}
		if err := s.Start(); err != nil {
			logger.Fatal("Failed to start scheduler", zap.Error(err))
		}
		scheduler = s
	}

	imgMode := func() {
		runWorker("image", true, false)
	}

	switch cfg.RunMode {
	case "api":
		apiMode()
	case "bg":
		bgMode()
	case "img":
		imgMode()
	case "all":
		apiMode()
		bgMode()
		imgMode()
	default:
		logger.Fatal("Invalid run mode", zap.String("mode", cfg.RunMode))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case <-shutdownChan:
		logger.Info("Shutdown requested via service API")
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		logger.Error("Service API shutdown error", zap.Error(err))
	}
	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			logger.Error("Main API shutdown error", zap.Error(err))
		}
	}
	if scheduler != nil {
		scheduler.Shutdown()
	}
	for _, srv := range taskSrvs {
		srv.Shutdown()
	}

	wg.Wait()
	logger.Info("Server gracefully stopped")
}

// ensureIndexes builds the indexes. Unique indexes blocked by duplicate legacy
// data are skipped with a warning; run with -m migrate to list the duplicates.
func ensureIndexes(logger *zap.Logger, database *mongo.Database) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := db.EnsureIndexes(ctx, database)
	var conflicts *db.IndexConflictError
	switch {
	case err == nil:
	case errors.As(err, &conflicts):
		for _, c := range conflicts.Conflicts {
			logger.Warn("Unique index not built, duplicate keys in stored data",
				zap.String("collection", c.Collection), zap.String("index", c.Index), zap.Error(c.Err))
		}
	default:
		logger.Fatal("Failed to ensure indexes", zap.Error(err))
	}
}
