package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/liamashdown/linetracker/internal/aggregation"
	"github.com/liamashdown/linetracker/internal/api"
	"github.com/liamashdown/linetracker/internal/cache"
	"github.com/liamashdown/linetracker/internal/capture"
	"github.com/liamashdown/linetracker/internal/config"
	"github.com/liamashdown/linetracker/internal/notify"
	"github.com/liamashdown/linetracker/internal/oddsapi"
	"github.com/liamashdown/linetracker/internal/snapshots"
	"github.com/liamashdown/linetracker/internal/storage"
	"github.com/liamashdown/linetracker/internal/warehouse"
	"github.com/sirupsen/logrus"
)

const usage = `usage: linetracker <command>

commands:
  capture   fetch every scheduled snapshot that is not stored yet
  load      load stored snapshots into an empty fact table
  run       capture, then load
  serve     serve the query API with health and metrics endpoints`

func main() {
	// Initialize logger
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]
	switch command {
	case "capture", "load", "run", "serve":
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.WithField("log_level", cfg.LogLevel).Warn("Unknown log level, using info")
	}

	log.WithFields(logrus.Fields{
		"command":       command,
		"environment":   cfg.Environment,
		"sport":         cfg.SportKey,
		"markets":       strings.Join(cfg.Markets, ","),
		"season_start":  cfg.SeasonStart.Format(config.DateLayout),
		"season_end":    cfg.SeasonEnd.Format(config.DateLayout),
		"capture_hours": cfg.CaptureHoursUTC,
		"notify_mode":   cfg.NotifyMode,
	}).Info("Configuration loaded")

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier := createNotifier(cfg, log)

	switch command {
	case "capture":
		err = runCapture(ctx, cfg, notifier, log)
	case "load":
		err = runLoad(ctx, cfg, notifier, log)
	case "run":
		if err = runCapture(ctx, cfg, notifier, log); err == nil {
			err = runLoad(ctx, cfg, notifier, log)
		}
	case "serve":
		err = serve(ctx, cfg, log)
	}

	if errors.Is(err, context.Canceled) {
		log.Info("Interrupted, shutting down")
		return
	}
	if err != nil {
		log.WithError(err).Fatalf("%s failed", command)
	}
	log.WithField("command", command).Info("Done")
}

func runCapture(ctx context.Context, cfg *config.Config, notifier notify.Sender, log *logrus.Logger) error {
	store := snapshots.New(cfg.RawDataDir, cfg.SnapshotPrefix, log)
	client := oddsapi.NewClient(cfg, log)
	runner := capture.New(cfg, store, client, log)

	stats, err := runner.Run(ctx)
	sendReport(notifier, notify.CaptureReport(stats, err, cfg.Environment), log)
	return err
}

func runLoad(ctx context.Context, cfg *config.Config, notifier notify.Sender, log *logrus.Logger) error {
	db, err := openDatabase(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	store := snapshots.New(cfg.RawDataDir, cfg.SnapshotPrefix, log)
	loader := warehouse.NewLoader(cfg, db, store, log)

	result, err := loader.LoadAll(ctx)
	sendReport(notifier, notify.LoadReport(result, err, cfg.Environment), log)
	return err
}

func serve(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	db, err := openDatabase(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	queryCache, err := cache.Connect(cfg, log)
	if err != nil {
		log.WithError(err).Warn("Query cache unavailable, querying the database directly")
	}
	defer queryCache.Close()

	engine := aggregation.NewEngine(db, cfg.SeasonStart, log)
	handler := api.NewHandler(cfg, cache.NewCachedQuerier(engine, queryCache), db, log)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      api.NewRouter(handler, cfg.CORSOrigins, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.HTTPPort).Info("Starting HTTP server")
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		log.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	log.Info("Graceful shutdown complete")
	return nil
}

func openDatabase(cfg *config.Config, log *logrus.Logger) (*storage.DB, error) {
	db, err := storage.New(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := db.AutoMigrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run database migrations: %w", err)
	}

	log.Info("Database migrations complete")
	return db, nil
}

// sendReport delivers a run report. A report must go out after an
// interrupted run too, so it does not use the run's context.
func sendReport(notifier notify.Sender, report *notify.Report, log *logrus.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := notifier.Send(ctx, report); err != nil {
		log.WithError(err).WithField("job", report.Job).Warn("Failed to send run report")
	}
}

func createNotifier(cfg *config.Config, log *logrus.Logger) notify.Sender {
	var senders []notify.Sender
	for _, mode := range strings.Split(cfg.NotifyMode, ",") {
		switch strings.TrimSpace(mode) {
		case "log":
			senders = append(senders, notify.NewLogSender(log))
		case "discord":
			if cfg.DiscordWebhookURL != "" {
				senders = append(senders, notify.NewDiscordSender(cfg.DiscordWebhookURL))
			} else {
				log.Warn("Discord mode specified but DISCORD_WEBHOOK_URL not set")
			}
		case "":
		default:
			log.WithField("mode", mode).Warn("Unknown notify mode, skipping")
		}
	}

	switch len(senders) {
	case 0:
		log.Warn("No valid notify senders configured, using log")
		return notify.NewLogSender(log)
	case 1:
		return senders[0]
	default:
		return notify.NewMultiSender(senders...)
	}
}
