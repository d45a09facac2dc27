package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizform-backend/internal/app"
	"quizform-backend/internal/config"
	"quizform-backend/internal/database"
	"quizform-backend/internal/export"
	"quizform-backend/internal/handlers"
	"quizform-backend/internal/logger"
	"quizform-backend/internal/router"
	"quizform-backend/internal/services"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("🚀 Starting QuizForm Backend...")
	if err := cfg.Validate(); err != nil {
		log.Fatal("✗ Invalid configuration", "error", err)
	}
	log.Info("✓ Environment variables loaded", "env", cfg.Env)

	ctx := context.Background()

	// ──── Step 2: Build the Generation Pipeline ────
	pipeline, err := app.NewPipeline(ctx, cfg, log)
	if err != nil {
		log.Fatal("✗ Pipeline initialization failed", "error", err)
	}
	defer pipeline.Close()

	// ──── Step 3: Generation Guard ────
	var guard services.GenerationGuard
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatal("✗ Redis connection failed", "error", err)
		}
		defer redisClient.Close()
		guard = services.NewRedisGuard(redisClient, 0, log)
		log.Info("✓ Redis connected (generation guard)")
	} else {
		guard = services.NewMemoryGuard()
		log.Info("✓ In-process generation guard")
	}

	// ──── Step 4: Export Mode ────
	mode := export.SelectMode(export.ModeConfig{
		GoogleClientID:     cfg.GoogleClientID,
		GoogleClientSecret: cfg.GoogleClientSecret,
	})

	authHandler := handlers.NewAuthHandler(nil, log)
	var exporter *export.FormsExporter
	if mode == export.ModeAPI {
		signIn := services.NewSignInService(services.SignInConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURI:  cfg.GoogleRedirectURI,
			StateSecret:  cfg.StateSecret,
		})
		authHandler = handlers.NewAuthHandler(signIn, log)
		exporter = export.NewFormsExporter(cfg.FormsAPIEndpoint, log)
	}
	log.Info("✓ Export mode selected", "mode", mode)

	// ──── Initialize Handlers ────
	contentHandler := handlers.NewContentHandler(pipeline.Extractor, cfg.MaxUploadMB, log)
	quizHandler := handlers.NewQuizHandler(pipeline.Generator, guard, log)
	// A nil *FormsExporter must not reach the handler as a non-nil interface.
	var exportHandler *handlers.ExportHandler
	if exporter != nil {
		exportHandler = handlers.NewExportHandler(exporter, mode, log)
	} else {
		exportHandler = handlers.NewExportHandler(nil, mode, log)
	}

	// ──── Step 5: Start HTTP Server ────
	r := router.New(
		log,
		authHandler,
		contentHandler,
		quizHandler,
		exportHandler,
		router.Options{
			FrontendURL:    cfg.FrontendURL,
			AuthRatePerMin: cfg.AuthRatePerMin,
			TrustProxy:     cfg.TrustProxy,
		},
	)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// Generation and OCR of long documents are single blocking calls.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Info(fmt.Sprintf("✓ QuizForm Backend ready on http://localhost:%s", cfg.Port))
	log.Info(fmt.Sprintf("  API: http://localhost:%s/api/v1", cfg.Port))

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal("Server error", "error", err)
	}
}
