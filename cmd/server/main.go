package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"multibot/internal/analytics"
	"multibot/internal/botkit"
	"multibot/internal/config"
	"multibot/internal/gateway"
	"multibot/internal/handler"
	"multibot/internal/llm"
	"multibot/internal/repository/postgres"
	"multibot/internal/retrieval"
	"multibot/internal/scheduler"
	"multibot/internal/service"
	"multibot/internal/telegram"

	"github.com/golang-migrate/migrate/v4"
	postgresdb "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting MultiBot platform")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Configuration loaded successfully")

	// Connect to database with retries
	db, err := connectDatabase(cfg.DSN(), logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connection established")

	// Run migrations
	if err := runMigrations(db, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	logger.Info("Database migrations completed")

	// Initialize repositories
	userRepo := postgres.NewUserRepo(db)
	projectRepo := postgres.NewProjectRepo(db)
	formRepo := postgres.NewFormRepo(db)
	billingRepo := postgres.NewBillingRepo(db)
	statsRepo := postgres.NewStatsRepo(db)

	// Initialize infrastructure clients
	llmClient := llm.New(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, logger)
	vectorizer := retrieval.NewVectorizer(cfg.Retrieval.VectorServerURL, logger)
	qdrant := retrieval.NewQdrant(cfg.Retrieval.QdrantURL, cfg.Retrieval.QdrantAPIKey, logger)
	webhooks := telegram.NewWebhookManager(cfg.ServerURL)
	tracker := analytics.NewTracker(cfg.SheetsWebhookURL, logger)

	// Initialize services. The project service and the runtime registry
	// reference each other, so the registry's build closure binds the
	// service variable before it is assigned.
	var projectSvc *service.ProjectService

	billingSvc := service.NewBillingService(userRepo, billingRepo, cfg.Billing)
	formSvc := service.NewFormService(formRepo)
	answerSvc := service.NewAnswerService(llmClient, vectorizer, qdrant, statsRepo, userRepo, logger)
	statsSvc := service.NewStatsService(statsRepo)

	registry := botkit.NewRegistry(func(token string) (*botkit.Runtime, error) {
		project, err := projectRepo.GetProjectByToken(token)
		if err != nil {
			return nil, err
		}
		if project == nil {
			return nil, fmt.Errorf("no project owns token")
		}

		// Project bots answer over webhooks only, so the runtime skips
		// the getMe round trip.
		bot, err := tele.NewBot(tele.Settings{Token: token, Offline: true})
		if err != nil {
			return nil, err
		}

		router := botkit.NewRouter()
		states := botkit.NewStateStore()
		h := handler.NewAskHandler(project.ID, states, projectSvc, answerSvc, formSvc, billingSvc, tracker, logger)
		h.Register(router)

		return botkit.NewRuntime(bot, router, states, logger), nil
	})

	projectSvc = service.NewProjectService(projectRepo, registry, webhooks, vectorizer, qdrant, llmClient, logger)

	// Initialize the settings bot. It is created online: the getMe call
	// fills bot.Me, which the referral links depend on.
	settingsBot, err := tele.NewBot(tele.Settings{Token: cfg.SettingsBotToken})
	if err != nil {
		logger.Fatal("Failed to create settings bot", zap.Error(err))
	}

	settingsRouter := botkit.NewRouter()
	settingsStates := botkit.NewStateStore()
	settingsHandler := handler.NewSettingsHandler(
		settingsBot, settingsStates,
		billingSvc, projectSvc, formSvc, tracker, logger, cfg.AdminTelegramID,
	)
	settingsHandler.Register(settingsRouter)
	settingsRuntime := botkit.NewRuntime(settingsBot, settingsRouter, settingsStates, logger)

	logger.Info("Settings bot initialized", zap.String("username", settingsBot.Me.Username))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Point the settings bot at the gateway
	if err := webhooks.SetWebhook(ctx, cfg.SettingsBotToken, "settings"); err != nil {
		logger.Fatal("Failed to set settings bot webhook", zap.Error(err))
	}

	// Start the billing scheduler in background
	sched := scheduler.New(userRepo, projectSvc, settingsBot, time.Minute, cfg.Billing.TrialDays, logger)
	go sched.Run(ctx)

	// Start the HTTP gateway
	gw := gateway.New(settingsRuntime, registry, projectSvc, statsSvc, billingSvc, logger)
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: gw.Router(),
	}

	go func() {
		logger.Info("Gateway listening", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Gateway failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	logger.Info("Shutdown signal received, stopping...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Gateway shutdown failed", zap.Error(err))
	}
	cancel()

	logger.Info("Stopped gracefully")
}

// connectDatabase connects to PostgreSQL with retries
func connectDatabase(dsn string, logger *zap.Logger) (*sql.DB, error) {
	var db *sql.DB
	var err error

	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			logger.Warn("Failed to open database connection",
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			time.Sleep(retryDelay)
			continue
		}

		// Test connection
		if err = db.Ping(); err != nil {
			logger.Warn("Failed to ping database",
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			db.Close()
			time.Sleep(retryDelay)
			continue
		}

		// Connection successful
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		return db, nil
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
}

// runMigrations runs database migrations
func runMigrations(db *sql.DB, logger *zap.Logger) error {
	driver, err := postgresdb.WithInstance(db, &postgresdb.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Migrations applied")
	return nil
}
