// Package main provides the entry point for the live signal engine.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/hoop-signals/internal/config"
	"github.com/yourusername/hoop-signals/internal/database"
	"github.com/yourusername/hoop-signals/internal/health"
	"github.com/yourusername/hoop-signals/internal/logger"
	"github.com/yourusername/hoop-signals/internal/metrics"
	"github.com/yourusername/hoop-signals/internal/notify"
	"github.com/yourusername/hoop-signals/internal/repository"
	"github.com/yourusername/hoop-signals/internal/scheduler"
	"github.com/yourusername/hoop-signals/internal/service"
	sig "github.com/yourusername/hoop-signals/internal/signal"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load AWS secrets if enabled
	if err := config.LoadSecretsFromAWS(ctx, cfg); err != nil {
		log.Fatalf("Failed to load secrets: %v", err)
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := config.ValidateEnvironment(cfg); err != nil {
		log.Fatalf("Invalid environment: %v", err)
	}

	// Set up logging
	appLog := logger.New(logger.Options{Level: cfg.App.LogLevel, Format: cfg.App.LogFormat})
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     Version,
		"commit":      GitCommit,
	}).Info("Signal engine starting")

	if err := run(ctx, cancel, cfg, appLog); err != nil {
		appLog.WithError(err).Fatal("Signal engine failed")
	}
	appLog.Info("Signal engine shut down successfully")
}

func run(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, appLog *logrus.Logger) error {
	// Initialize database connection
	db, err := database.Initialize(ctx, cfg, appLog)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	appLog.Info("Database connection established")

	repos, err := repository.NewRepositories(db)
	if err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		metricsServer = startMetricsServer(cfg.Metrics, appLog)
	}

	catalog := service.NewCatalog(
		repos.Strategy,
		cfg.Engine.CatalogTTL(),
		cfg.Engine.DefaultExpiryClock,
		logger.NewStrategyLogger(appLog),
	)

	var alerter service.Alerter
	if cfg.Notifier.Enabled {
		webhook := notify.NewWebhookNotifier(cfg.Notifier, appLog)
		defer func() {
			if err := webhook.Close(); err != nil {
				appLog.WithError(err).Warn("Failed to close webhook notifier")
			}
		}()
		alerter = webhook
		appLog.WithField("notify_on", cfg.Notifier.NotifyOn).Info("Webhook notifier enabled")
	}

	machine := sig.NewMachine(sig.NewStore())
	engine := service.NewSignalService(machine, catalog, repos.Signal, repos.Game, alerter, appLog, service.Options{
		StaleGameTimeout: cfg.Engine.StaleGameTimeout(),
		Workers:          cfg.Engine.Workers,
	})

	if err := catalog.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to load strategy catalog: %w", err)
	}

	if cfg.Engine.RestoreOnStartup {
		restored, err := engine.Restore(ctx)
		if err != nil {
			return fmt.Errorf("failed to restore open signals: %w", err)
		}
		appLog.WithField("signals", restored).Info("Restored open signals")
	}

	var healthServer *health.Server
	if cfg.Health.Enabled {
		healthServer = health.NewServer(health.Config{
			ServiceName: cfg.App.Name,
			Version:     Version,
			Port:        cfg.Health.Port,
			Logger:      appLog,
			DB:          db,
		})
		healthServer.AddCheck("database_query", db.HealthCheck)
		healthServer.AddCheck("strategy_catalog", func(ctx context.Context) error {
			if !catalog.Loaded() {
				return errors.New("strategy catalog not loaded")
			}
			return nil
		})
		healthServer.Start(ctx)
	}

	sched := scheduler.NewScheduler(appLog)
	if err := sched.ScheduleLivePolling(cfg.Engine.PollInterval(), engine); err != nil {
		return err
	}
	if err := sched.ScheduleCatalogRefresh(cfg.Engine.CatalogTTL(), catalog); err != nil {
		return err
	}
	if err := sched.ScheduleStaleSweep(cfg.Engine.SweepInterval(), engine); err != nil {
		return err
	}
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	if healthServer != nil {
		healthServer.SetReady(true)
	}

	appLog.WithFields(logrus.Fields{
		"poll_interval":    cfg.Engine.PollInterval().String(),
		"catalog_ttl":      cfg.Engine.CatalogTTL().String(),
		"stale_timeout":    cfg.Engine.StaleGameTimeout().String(),
		"workers":          cfg.Engine.Workers,
		"next_run":         sched.GetNextRun().Format(time.RFC3339),
		"notifier_enabled": cfg.Notifier.Enabled,
	}).Info("Signal engine is running")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	received := <-sigChan
	appLog.WithField("signal", received.String()).Info("Shutdown signal received")

	if healthServer != nil {
		healthServer.SetReady(false)
	}
	if err := sched.Stop(); err != nil {
		appLog.WithError(err).Error("Error during scheduler shutdown")
	}
	engine.Shutdown(fmt.Sprintf("received %s", received))
	// cancelling the root context also stops the health server
	cancel()

	if metricsServer != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLog.WithError(err).Error("Error during metrics server shutdown")
		}
	}
	return nil
}

func startMetricsServer(cfg config.MetricsConfig, appLog *logrus.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, metrics.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		appLog.WithFields(logrus.Fields{"port": cfg.Port, "path": cfg.Path}).Info("Metrics server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.WithError(err).Error("Metrics server failed")
		}
	}()
	return server
}
