package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/worldcup-predictor/brackets"
	"github.com/Dosada05/worldcup-predictor/config"
	"github.com/Dosada05/worldcup-predictor/db"
	"github.com/Dosada05/worldcup-predictor/handlers"
	"github.com/Dosada05/worldcup-predictor/metrics"
	"github.com/Dosada05/worldcup-predictor/repositories"
	api "github.com/Dosada05/worldcup-predictor/routes"
	"github.com/Dosada05/worldcup-predictor/scoring"
	"github.com/Dosada05/worldcup-predictor/services"
	"github.com/Dosada05/worldcup-predictor/storage"
	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("application failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}

func run(logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	reg, err := brackets.LoadRegistry()
	if err != nil {
		return err
	}
	logger.Info("tournament registry loaded",
		slog.String("name", reg.Name()),
		slog.Int("teams", len(reg.Teams())),
		slog.Int("matches", len(reg.MatchIDs())),
	)

	weights := scoring.DefaultWeights()
	if cfg.ScoringWeightsFile != "" {
		if weights, err = scoring.LoadWeights(cfg.ScoringWeightsFile); err != nil {
			return err
		}
		logger.Info("scoring weights loaded", slog.String("file", cfg.ScoringWeightsFile))
	}

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	if err := db.Migrate(ctx, dbConn); err != nil {
		return err
	}
	logger.Info("database connection established")

	// Черновики: Redis, если настроен, иначе память процесса
	var drafts repositories.DraftStore
	redisClient, err := db.ConnectRedis(cfg.RedisURL, 5*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		drafts = repositories.NewRedisDraftStore(redisClient, 0)
		logger.Info("draft store: redis")
	} else {
		drafts = repositories.NewMemoryDraftStore()
		logger.Warn("REDIS_URL is not set, drafts are kept in memory")
	}

	// Архив снимков в Cloudflare R2 (опционально)
	var archiver services.SnapshotArchiver
	if cfg.R2Enabled() {
		uploader, err := storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudflare R2 uploader: %w", err)
		}
		archiver = storage.NewSnapshotArchiver(uploader, "")
		logger.Info("Cloudflare R2 uploader initialized")
	}

	m := metrics.New()

	// Инициализация WebSocket Hub
	wsHub := brackets.NewHub(logger)
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		wsHub.Run(ctx)
	}()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	submissionRepo := repositories.NewPostgresSubmissionRepository(dbConn)
	resultsRepo := repositories.NewPostgresResultsRepository(dbConn)

	// Инициализация сервисов
	scorer := scoring.NewScorer(reg, weights)
	leaderboardService := services.NewLeaderboardService(reg, scorer, submissionRepo, resultsRepo, wsHub, m, cfg.ScoringWorkers, logger)
	resultsService := services.NewResultsService(reg, resultsRepo, leaderboardService, logger)
	predictionService := services.NewPredictionService(reg, drafts, submissionRepo, archiver, wsHub, m, cfg.SubmissionDeadline, logger)
	logger.Info("Services initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Bracket:     handlers.NewBracketHandler(predictionService),
		Results:     handlers.NewResultsHandler(resultsService),
		Leaderboard: handlers.NewLeaderboardHandler(leaderboardService),
		Registry:    handlers.NewRegistryHandler(reg),
		WebSocket:   handlers.NewWebSocketHandler(wsHub, cfg.CORSAllowedOrigins, logger),
		Metrics:     m.Handler(),
	}, cfg.JWTSecretKey, cfg.CORSAllowedOrigins, logger)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return err
		}
		logger.Info("server shutdown complete")
	}

	cancel()
	<-hubDone
	return nil
}
