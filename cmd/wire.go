package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	csvaudit "github.com/PreboozedGoose/Vulture/internal/adapters/audit/csv"
	"github.com/PreboozedGoose/Vulture/internal/adapters/credstore"
	"github.com/PreboozedGoose/Vulture/internal/adapters/notify/smtp"
	"github.com/PreboozedGoose/Vulture/internal/adapters/platform/httpapi"
	statusadapter "github.com/PreboozedGoose/Vulture/internal/adapters/render/status"
	tomlrepo "github.com/PreboozedGoose/Vulture/internal/adapters/repo/toml"
	"github.com/PreboozedGoose/Vulture/internal/adapters/sessionfile"
	"github.com/PreboozedGoose/Vulture/internal/application"
	"github.com/PreboozedGoose/Vulture/internal/ports"
	"github.com/spf13/viper"
)

type app struct {
	accounts *application.AccountService
	settings *application.SettingsService
	sessions *application.SessionManager
	status   *application.StatusService
	reports  *application.ReportService
	engine   *application.Engine

	statusRenderer func([]application.AccountStatus, statusadapter.RenderOptions) (string, error)
	logger         *slog.Logger
	now            func() time.Time
}

func wireApp() (*app, error) {
	logger := newLogger()

	repo, err := tomlrepo.NewRepository(viper.New())
	if err != nil {
		return nil, fmt.Errorf("wire account repository: %w", err)
	}

	settingsRepo, err := tomlrepo.NewSettingsRepository(viper.New())
	if err != nil {
		return nil, fmt.Errorf("wire settings repository: %w", err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	baseDir := filepath.Join(homeDir, ".vulture")

	sessionStore := sessionfile.NewStore(filepath.Join(baseDir, "sessions"))
	credStore := credstore.NewStore(filepath.Join(baseDir, "credentials"))
	auditLog := csvaudit.NewLog(filepath.Join(baseDir, "logs"), ports.SystemClock{})
	notifier := wireNotifier()

	client := httpapi.NewClient(envOrDefault("VULTURE_API_URL", "https://api.vulture.app"))

	sessionManager := application.NewSessionManager(sessionStore, client, nil, logger)
	settingsService := application.NewSettingsService(settingsRepo)
	accountService := application.NewAccountService(repo, credStore, sessionStore, nil)
	limiter := application.NewRateLimiter(repo)

	executor := application.NewExecutor(limiter, sessionManager, client, repo, auditLog,
		notifier, settingsService, nil, nil, logger)

	return &app{
		accounts:       accountService,
		settings:       settingsService,
		sessions:       sessionManager,
		status:         application.NewStatusService(repo, repo, sessionManager, settingsService, nil),
		reports:        application.NewReportService(auditLog, notifier, nil, logger),
		engine:         application.NewEngine(executor, logger),
		statusRenderer: statusadapter.Render,
		logger:         logger,
		now:            time.Now,
	}, nil
}

// wireNotifier builds the SMTP notifier when the environment carries a full
// mail configuration and falls back to a no-op otherwise.
func wireNotifier() ports.Notifier {
	port := 587
	if raw := os.Getenv("VULTURE_SMTP_PORT"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			port = parsed
		}
	}

	cfg := smtp.Config{
		Host:     os.Getenv("VULTURE_SMTP_HOST"),
		Port:     port,
		Username: os.Getenv("VULTURE_SMTP_USERNAME"),
		Password: os.Getenv("VULTURE_SMTP_PASSWORD"),
		From:     os.Getenv("VULTURE_SMTP_FROM"),
		To:       os.Getenv("VULTURE_SMTP_TO"),
	}
	if !cfg.Enabled() {
		return smtp.NopNotifier{}
	}
	return smtp.NewNotifier(cfg)
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	switch strings.ToLower(os.Getenv("VULTURE_LOG")) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
