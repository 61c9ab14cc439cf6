package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pubshare/internal/bootstrap"
	"github.com/pubshare/internal/config"
	"github.com/pubshare/internal/handler"
	"github.com/pubshare/internal/logging"
	"github.com/pubshare/internal/router"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	gin.SetMode(cfg.GinMode)

	// 初始化后端
	backend, err := bootstrap.Open(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize backend", zap.Error(err))
	}
	defer backend.Close()

	api := handler.NewAPI(backend.Factory, bootstrap.ServiceOptions(cfg, logger), logger)
	r := router.SetupRouter(api, router.Options{
		SessionSecret: cfg.SessionSecret,
		UploadDir:     backend.UploadDir,
		Logger:        logger,
	})

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: r}
	go func() {
		logger.Info("server listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("backend", cfg.BackendMode),
			zap.String("counter_mode", cfg.CounterMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to run server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}
