package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/orrn/ptouch/internal/api"
	"github.com/orrn/ptouch/internal/config"
	"github.com/orrn/ptouch/internal/core"
	"github.com/orrn/ptouch/internal/db"
	"github.com/orrn/ptouch/internal/logger"
	"github.com/orrn/ptouch/internal/webhook"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error("failed to create data directory", zap.Error(err))
		os.Exit(1)
	}
	if err := db.Init(db.Config{Path: cfg.Database.Path}); err != nil {
		logger.Error("failed to init database", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	database := db.GetDB()

	webhookSender := webhook.NewWebhookSender(database, webhook.WebhookConfig{})
	webhookSender.Start()
	defer webhookSender.Stop()

	printerManager := core.NewPrinterManager(database, &cfg.Printers, webhookSender)
	printerManager.Start()
	defer printerManager.Stop()

	queue := core.NewQueue(database, printerManager, webhookSender, &cfg.Queue)
	if err := queue.Start(); err != nil {
		logger.Error("failed to start queue", zap.Error(err))
		os.Exit(1)
	}
	defer queue.Stop()

	router, err := api.NewRouter(database, printerManager, queue)
	if err != nil {
		logger.Error("failed to build router", zap.Error(err))
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}
