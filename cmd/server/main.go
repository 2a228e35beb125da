package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"servicelist-service/internal/infrastructure/auth"
	"servicelist-service/internal/infrastructure/config"
	"servicelist-service/internal/infrastructure/persistence"
	"servicelist-service/internal/interface/handler"
	mongoRepo "servicelist-service/internal/interface/repository"
	"servicelist-service/internal/interface/upstream"
	"servicelist-service/internal/usecase"
	"servicelist-service/pkg/logger"
	"servicelist-service/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// Create logger
	log := logger.NewLogger()
	defer log.Sync()
	log.Info("Starting Servicelist Service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up MongoDB connection
	log.Info("Connecting to MongoDB")
	mongoClient, db, err := persistence.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}

	gormDB, err := gorm.Open(postgres.Open(cfg.PostgresURI), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", "error", err)
	}

	m := metrics.NewMetrics("servicelist")

	// Set up repositories
	requestRepo := mongoRepo.NewMongoAccessRequestRepository(db, log)
	allowlistRepo := mongoRepo.NewMongoAllowlistRepository(db)
	blockRepo := mongoRepo.NewMongoBlockRepository(db)
	statusRepo := mongoRepo.NewMongoStatusRepository(db, log)
	overrideRepo := mongoRepo.NewMongoTimeOverrideRepository(db, log)
	readyRepo := mongoRepo.NewMongoReadyRepository(db, log)
	dayRepo := mongoRepo.NewMongoServiceDayRepository(db, log)
	activityRepo := mongoRepo.NewMongoActivityRepository(db)
	settingsRepo := mongoRepo.NewMongoUserSettingsRepository(db)
	vehicleRepo := mongoRepo.NewGormVehicleRepository(gormDB)
	txRunner := mongoRepo.NewMongoTransactionRunner(mongoClient)

	telegramRepo := mongoRepo.NewTelegramRepository(cfg.TelegramAPIBaseURL, cfg.TelegramBotToken, cfg.TelegramAdminChatID, log)
	scraperClient := upstream.NewScraperClient(cfg.ScrapeAPIBaseURL, log)

	// Set up usecases
	approver := usecase.NewAccessApprover(
		requestRepo, allowlistRepo, blockRepo, txRunner, telegramRepo,
		cfg.TelegramAdminChatID, cfg.NotificationCooldown, log, m,
	)
	writer := usecase.NewChecklistWriter(
		statusRepo, overrideRepo, readyRepo, activityRepo, txRunner,
		cfg.CompletedHideAfter, log,
	)
	hub := usecase.NewDayHub(
		dayRepo, statusRepo, overrideRepo, readyRepo, vehicleRepo, scraperClient,
		cfg.StaleMaxAge, cfg.CompletedHideAfter, log, m,
	)
	go hub.Run(ctx)

	// Set up handlers
	verifier := auth.NewGoogleVerifier(cfg.GoogleClientID, log)
	authenticator := handler.NewAuthenticator(verifier, allowlistRepo)
	accessHandler := handler.NewAccessHandler(authenticator, approver, log)
	webhookHandler := handler.NewWebhookHandler(approver, cfg.TelegramWebhookSecret, log, m)
	dayHandler := handler.NewDayHandler(authenticator, hub, writer, activityRepo, settingsRepo, cfg.ActivityLimit, log, m)
	settingsHandler := handler.NewSettingsHandler(authenticator, settingsRepo, log)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/access/request", accessHandler.RequestAccess)
	mux.HandleFunc("GET /api/v1/access/status", accessHandler.Status)
	mux.HandleFunc("/telegram/webhook", webhookHandler.Handle)
	mux.HandleFunc("GET /api/v1/days/{date}", dayHandler.GetDay)
	mux.HandleFunc("POST /api/v1/days/{date}/refresh", dayHandler.Refresh)
	mux.HandleFunc("POST /api/v1/days/{date}/status", dayHandler.SetStatus)
	mux.HandleFunc("POST /api/v1/days/{date}/time-override", dayHandler.SetTimeOverride)
	mux.HandleFunc("POST /api/v1/days/{date}/ready", dayHandler.SetReady)
	mux.HandleFunc("GET /api/v1/days/{date}/activity", dayHandler.GetActivity)
	mux.HandleFunc("GET /api/v1/settings/pin", settingsHandler.GetPin)
	mux.HandleFunc("PUT /api/v1/settings/pin", settingsHandler.SetPin)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Healthy"))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	cancel() // Cancel the context to stop all goroutines

	// Disconnect from MongoDB
	if err := mongoClient.Disconnect(context.Background()); err != nil {
		log.Error("MongoDB disconnect error", "error", err)
	}

	log.Info("Servicelist Service stopped")
}
