package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"taskboard/internal/auth"
	"taskboard/internal/config"
	"taskboard/internal/database"
	"taskboard/internal/handlers"
	"taskboard/internal/logging"
	"taskboard/internal/routes"
)

func main() {
	cfg, err := config.LoadGateway()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	auth.Configure(auth.Settings{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.TokenTTL,
	})
	handlers.Configure(handlers.Settings{
		PublicURL:      cfg.PublicURL,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	// Init database
	if err := database.InitDB(cfg.DatabasePath, logger); err != nil {
		logger.Fatal("failed to open database", zap.String("path", cfg.DatabasePath), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go auth.RevocationList().Run(ctx, time.Minute)

	server := &http.Server{
		Addr:              cfg.Address,
		Handler:           routes.SetupRoutes(routes.Options{Logger: logger, APIKey: cfg.APIKey}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("gateway listening",
			zap.String("address", cfg.Address),
			zap.String("public_url", cfg.PublicURL),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
