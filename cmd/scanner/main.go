package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"content_scanner/internal/config"
	"content_scanner/internal/dedup"
	"content_scanner/internal/filter"
	"content_scanner/internal/publisher"
	"content_scanner/internal/scheduler"
	"content_scanner/internal/service"
	"content_scanner/internal/source"
	"content_scanner/internal/source/feedapi"
	"content_scanner/internal/source/rss"
	"content_scanner/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single scan and exit")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration; invalid thresholds fail here, before any scan
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Initialize RabbitMQ publisher
	rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
		URL:        cfg.RabbitMQ.URL,
		Exchange:   cfg.RabbitMQ.Exchange,
		RoutingKey: cfg.RabbitMQ.RoutingKey,
		QueueName:  cfg.RabbitMQ.QueueName,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer rabbitMQ.Close()

	// Initialize stores
	contentStore := postgres.NewContentStore(db)
	reportStore := postgres.NewScanReportStore(db)

	// Build source adapters from the registry
	registry := source.NewRegistry()
	registry.Register("feedapi", func(sc config.SourceConfig, l *slog.Logger) (service.SourceAdapter, error) {
		return feedapi.New(feedapi.Config{
			ID:       sc.ID,
			Name:     sc.Name,
			BaseURL:  sc.URL,
			PageSize: sc.PageSize,
			Timeout:  sc.Timeout,
		}, l), nil
	})
	registry.Register("rss", func(sc config.SourceConfig, l *slog.Logger) (service.SourceAdapter, error) {
		return rss.New(rss.Config{
			ID:      sc.ID,
			Name:    sc.Name,
			FeedURL: sc.URL,
			Timeout: sc.Timeout,
		}, l), nil
	})

	adapters, err := registry.Build(cfg.EnabledSources(), logger)
	if err != nil {
		logger.Error("failed to build sources", "error", err)
		os.Exit(1)
	}

	// Filter and decision engines
	ruleSets := filter.LoadRuleSets(cfg.Rules.Path, logger)
	filterEngine := filter.NewEngine(ruleSets, cfg.Scan.TopicGatePolicy, logger.With("component", "filter"))

	decisionEngine, err := service.NewDecisionEngine(
		filterEngine,
		contentStore,
		rabbitMQ,
		logger.With("component", "decision"),
		service.DecisionConfig{
			AutoApprovalThreshold:  cfg.Scan.AutoApprovalThreshold,
			AutoRejectionThreshold: cfg.Scan.AutoRejectionThreshold,
		},
	)
	if err != nil {
		logger.Error("failed to build decision engine", "error", err)
		os.Exit(1)
	}

	orchestrator := service.NewOrchestrator(
		adapters,
		decisionEngine,
		dedup.NewHasher(),
		reportStore,
		logger.With("component", "orchestrator"),
		cfg.Scan,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("starting content scanner",
		"sources", len(adapters),
		"budget", cfg.Scan.TotalBudget,
		"interval", cfg.Scan.Interval,
		"topic_gate_policy", cfg.Scan.TopicGatePolicy,
	)

	if *once {
		result := orchestrator.RunScan(ctx, cfg.Scan.TotalBudget)
		if !result.Success {
			logger.Warn("scan finished with source errors", "errors", result.AllErrors())
			os.Exit(1)
		}
		return
	}

	sched := scheduler.NewScheduler(orchestrator, cfg.Scan.Interval, cfg.Scan.TotalBudget, logger)
	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
