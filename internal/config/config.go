package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// 后端模式
const (
	BackendEmbedded = "embedded"
	BackendRemote   = "remote"
)

// 计数器模式
const (
	CounterReadModifyWrite = "rmw"
	CounterAtomic          = "atomic"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr        string
	Port              string
	GinMode           string
	SessionSecret     string
	BackendMode       string
	BaaSURL           string
	DatabasePath      string
	UploadDir         string
	PublicBaseURL     string
	TokenSecret       string
	TokenTTL          time.Duration
	CounterMode       string
	BatchConcurrency  int
	// SyncUpdateChanged 编辑时同时更新已修改的共同作者与文件
	SyncUpdateChanged bool
	SeedUserEmail     string
	SeedUserPassword  string
	LogLevel          string
	HTTPTimeout       time.Duration
}

// Load 读取可选的 .env 文件后从环境变量读取应用配置，并为缺失项提供默认值。
// 已存在的环境变量不会被 .env 覆盖。
func Load() AppConfig {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the configuration from the process environment only.
func FromEnv() AppConfig {
	port := envOr("PORT", "8080")

	listenAddr := envOr("LISTEN_ADDR", fmt.Sprintf(":%s", port))

	backendMode := strings.ToLower(envOr("BACKEND_MODE", BackendEmbedded))
	if backendMode != BackendRemote {
		backendMode = BackendEmbedded
	}

	publicBaseURL := envOr("PUBLIC_BASE_URL", fmt.Sprintf("http://localhost:%s", port))

	counterMode := strings.ToLower(envOr("COUNTER_MODE", CounterReadModifyWrite))
	if counterMode != CounterAtomic {
		counterMode = CounterReadModifyWrite
	}

	concurrency, err := strconv.Atoi(envOr("BATCH_CONCURRENCY", "1"))
	if err != nil || concurrency < 1 {
		concurrency = 1
	}

	updateChanged, _ := strconv.ParseBool(envOr("SYNC_UPDATE_CHANGED", "false"))

	return AppConfig{
		ListenAddr:        listenAddr,
		Port:              port,
		GinMode:           envOr("GIN_MODE", "release"),
		SessionSecret:     envOr("SESSION_SECRET", "pubshare-dev-secret"),
		BackendMode:       backendMode,
		BaaSURL:           strings.TrimRight(envOr("BAAS_URL", "http://127.0.0.1:8090"), "/"),
		DatabasePath:      envOr("DATABASE_PATH", "pubshare.db"),
		UploadDir:         envOr("UPLOAD_DIR", "data/uploads"),
		PublicBaseURL:     strings.TrimRight(publicBaseURL, "/"),
		TokenSecret:       envOr("TOKEN_SECRET", "pubshare-dev-token-secret"),
		TokenTTL:          durationOr("TOKEN_TTL", 14*24*time.Hour),
		CounterMode:       counterMode,
		BatchConcurrency:  concurrency,
		SyncUpdateChanged: updateChanged,
		SeedUserEmail:     strings.TrimSpace(os.Getenv("SEED_USER_EMAIL")),
		SeedUserPassword:  strings.TrimSpace(os.Getenv("SEED_USER_PASSWORD")),
		LogLevel:          strings.ToLower(envOr("LOG_LEVEL", "info")),
		HTTPTimeout:       durationOr("HTTP_TIMEOUT", 0),
	}
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func durationOr(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
