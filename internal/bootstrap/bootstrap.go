// Package bootstrap turns an AppConfig into a client factory shared by the
// server and the CLI.
package bootstrap

import (
	"fmt"
	"io"
	"strings"

	"github.com/pubshare/internal/baas"
	"github.com/pubshare/internal/config"
	"github.com/pubshare/internal/db"
	"github.com/pubshare/internal/metrics"
	"github.com/pubshare/internal/service"
	"github.com/pubshare/internal/store"
	"go.uber.org/zap"
)

// Backend is the configured data backend.
type Backend struct {
	Factory baas.ClientFactory
	// UploadDir is non-empty when files are served locally.
	UploadDir string
	closer    io.Closer
}

// Close releases the embedded database, if any.
func (b *Backend) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// Open 根据配置构建嵌入式或远程后端
func Open(cfg config.AppConfig, logger *zap.Logger) (*Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.BackendMode == config.BackendRemote {
		var opts []baas.HTTPOption
		if cfg.HTTPTimeout > 0 {
			opts = append(opts, baas.WithTimeout(cfg.HTTPTimeout))
		}
		logger.Info("using remote backend", zap.String("url", cfg.BaaSURL))
		return &Backend{
			Factory: metrics.InstrumentFactory(baas.NewHTTPClientFactory(cfg.BaaSURL, opts...)),
		}, nil
	}

	gdb, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	backend, err := store.NewBackend(gdb, store.Options{
		UploadDir:     cfg.UploadDir,
		PublicBaseURL: cfg.PublicBaseURL,
		TokenSecret:   cfg.TokenSecret,
		TokenTTL:      cfg.TokenTTL,
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if email := strings.TrimSpace(cfg.SeedUserEmail); email != "" {
		id, err := db.EnsureUser(gdb, email, cfg.SeedUserPassword, "")
		if err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("seed user: %w", err)
		}
		logger.Info("seed user ready", zap.String("email", email), zap.String("id", id))
	}

	logger.Info("using embedded backend",
		zap.String("database", cfg.DatabasePath),
		zap.String("uploads", backend.UploadDir()))
	return &Backend{
		Factory:   metrics.InstrumentFactory(backend.Factory()),
		UploadDir: backend.UploadDir(),
		closer:    sqlDB,
	}, nil
}

// ServiceOptions maps the config onto the domain layer options.
func ServiceOptions(cfg config.AppConfig, logger *zap.Logger) service.Options {
	mode := service.CounterReadModifyWrite
	if cfg.CounterMode == config.CounterAtomic {
		mode = service.CounterAtomic
	}
	return service.Options{
		CounterMode:      mode,
		BatchConcurrency: cfg.BatchConcurrency,
		Sync:             service.SyncOptions{UpdateChanged: cfg.SyncUpdateChanged},
		Logger:           logger,
	}
}
