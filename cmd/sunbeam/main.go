package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/sunbeamhq/sunbeam-bot/internal/adapter/inbound/api"
	"github.com/sunbeamhq/sunbeam-bot/internal/adapter/inbound/slackhook"
	"github.com/sunbeamhq/sunbeam-bot/internal/adapter/inbound/slackhook/middleware"
	"github.com/sunbeamhq/sunbeam-bot/internal/adapter/outbound/callback"
	"github.com/sunbeamhq/sunbeam-bot/internal/adapter/outbound/notification"
	slacknotifier "github.com/sunbeamhq/sunbeam-bot/internal/adapter/outbound/notification/slack"
	"github.com/sunbeamhq/sunbeam-bot/internal/adapter/outbound/persistence/sqlite"
	"github.com/sunbeamhq/sunbeam-bot/internal/config"
	"github.com/sunbeamhq/sunbeam-bot/internal/domain/port/outbound"
	"github.com/sunbeamhq/sunbeam-bot/internal/domain/service"
	"github.com/sunbeamhq/sunbeam-bot/internal/observability"
	"github.com/sunbeamhq/sunbeam-bot/internal/scheduler"
	"github.com/sunbeamhq/sunbeam-bot/pkg/health"
	"github.com/sunbeamhq/sunbeam-bot/pkg/version"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	printVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *printVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = buildLogger(cfg.Logging)

	// --- Database ---
	store, err := sqlite.NewStore(sqlite.Config{
		Path:              cfg.Database.SQLite.Path,
		MaxOpenConns:      cfg.Database.SQLite.MaxOpenConns,
		PragmaJournalMode: cfg.Database.SQLite.PragmaJournalMode,
		PragmaBusyTimeout: cfg.Database.SQLite.PragmaBusyTimeout,
	})
	if err != nil {
		logger.Error("failed to open sqlite store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// --- Repositories ---
	approvalRepo := sqlite.NewApprovalRepo(store)
	userLinkRepo := sqlite.NewUserLinkRepo(store)

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Notifier ---
	var notifier outbound.Notifier
	if cfg.Slack.Enabled && cfg.Slack.BotToken != "" {
		notifier = slacknotifier.NewNotifier(slacknotifier.Config{
			BotToken:       cfg.Slack.BotToken,
			DefaultChannel: cfg.Slack.DefaultChannel,
		})
	} else {
		logger.Warn("slack disabled or bot token not configured; chat notifications are logged only")
		notifier = notification.NewNoopNotifier(logger)
	}

	// --- Callback dispatcher ---
	dispatcher := callback.NewDispatcher(callback.Config{
		EdgeFunctionBaseURL: cfg.Callback.EdgeFunctionBaseURL,
		ServiceToken:        cfg.Callback.ServiceToken,
		Timeout:             cfg.Callback.Timeout,
	}, logger)

	// --- Domain service ---
	approvals := service.NewApprovalService(approvalRepo, notifier, dispatcher, logger, metrics, cfg.Approvals.DefaultTTL)

	// --- Interactivity server ---
	verifier := middleware.NewSlackVerifier(cfg.Slack.SigningSecret, cfg.Slack.SkipVerification, logger)
	interactionHandler := slackhook.NewHandler(approvals, userLinkRepo, notifier, nil, logger, metrics)
	apiHandler := api.NewHandler(approvals, logger)

	server := slackhook.NewServer(slackhook.ServerConfig{
		Port:              cfg.Server.Port,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		RequestsPerMinute: cfg.Server.RequestsPerMinute,
		APIToken:          cfg.API.Token,
	}, interactionHandler, verifier, apiHandler, nil)

	// --- Health checker ---
	checker := health.NewChecker()
	checker.Register("database", func(ctx context.Context) error {
		return store.DB.PingContext(ctx)
	})

	// --- Metrics server ---
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	metricsMux.HandleFunc("/healthz", checker.LivenessHandler())
	metricsMux.HandleFunc("/readyz", checker.ReadinessHandler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: metricsMux,
	}

	// --- Signal handling & startup ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	// Interactivity HTTP server.
	g.Go(func() error {
		logger.Info("starting interactivity server", "port", cfg.Server.Port)
		return server.Start(gCtx)
	})

	// Metrics/health server.
	g.Go(func() error {
		logger.Info("starting metrics server", "port", cfg.Server.MetricsPort)
		errCh := make(chan error, 1)
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
			close(errCh)
		}()
		select {
		case <-gCtx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return metricsServer.Shutdown(shutdownCtx)
		case err := <-errCh:
			return err
		}
	})

	// Expiry sweeper (optional).
	if cfg.Approvals.Sweep.Enabled {
		sweeper, err := scheduler.NewSweeper(approvalRepo, logger, metrics, cfg.Approvals.Sweep.Schedule)
		if err != nil {
			logger.Error("invalid sweep schedule", "schedule", cfg.Approvals.Sweep.Schedule, "error", err)
			os.Exit(1)
		}
		g.Go(func() error {
			logger.Info("starting expiry sweeper", "schedule", cfg.Approvals.Sweep.Schedule)
			return sweeper.Run(gCtx)
		})
	}

	logger.Info("sunbeam-bot started", "version", version.String())

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("sunbeam-bot stopped")
}

// buildLogger constructs a slog.Logger based on config.
func buildLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	if cfg.Format == "text" {
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: level}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
