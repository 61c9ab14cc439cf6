package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pubshare/internal/bootstrap"
	"github.com/pubshare/internal/config"
	"github.com/pubshare/internal/logging"
	"github.com/pubshare/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	loginEmail    string
	loginPassword string
	logLevel      string
)

// rootCmd is the pubctl entry point
var rootCmd = &cobra.Command{
	Use:   "pubctl",
	Short: "Inspect and seed a pubshare backend",
	Long: `pubctl talks to the backend configured through the same environment
variables (or .env file) as the server.

Set BACKEND_MODE=remote and BAAS_URL to target a remote backend; the default
is the embedded sqlite database at DATABASE_PATH.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&loginEmail, "login", "", "sign in with this email before running the command")
	rootCmd.PersistentFlags().StringVar(&loginPassword, "password", "", "password for --login")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL")

	rootCmd.AddCommand(seedUserCmd, seedDemoCmd, feedCmd, searchCmd, showCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// session is what every subcommand works with.
type session struct {
	lib     *service.Library
	logger  *zap.Logger
	backend *bootstrap.Backend
}

func (s *session) Close() {
	_ = s.backend.Close()
	_ = s.logger.Sync()
}

func openSession(ctx context.Context) (*session, error) {
	cfg := config.Load()
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	backend, err := bootstrap.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	lib := service.New(backend.Factory(nil), bootstrap.ServiceOptions(cfg, logger))
	s := &session{lib: lib, logger: logger, backend: backend}

	if loginEmail != "" {
		user, err := lib.Auth.Login(ctx, loginEmail, loginPassword)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("login: %s", service.NewResult[any](nil, err).DisplayError())
		}
		logger.Info("signed in", zap.String("user", user.ID))
	}
	return s, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
