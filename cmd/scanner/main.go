// Command scanner starts the scan-trigger service.
//
// The scanner exposes a single endpoint an external scheduler hits once a
// day. A triggered run discovers repository content changed in the trailing
// window, classifies each file as a whole document or a diff, filters
// extracted links through the classifier, and fans signed work items out to
// the work queue, ending with the terminal item that triggers digest
// synthesis.
//
// Usage:
//
//	go run ./cmd/scanner [-config configs/development.yaml]
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
	"time"

	"github.com/joho/godotenv"

	"notedigest/internal/runlog"
	"notedigest/internal/scan/dispatcher"
	"notedigest/internal/scan/handler"
	"notedigest/internal/scan/links"
	"notedigest/internal/scan/scanner"
	"notedigest/pkg/config"
	"notedigest/pkg/github"
	"notedigest/pkg/health"
	"notedigest/pkg/kafka"
	"notedigest/pkg/llm"
	"notedigest/pkg/logger"
	"notedigest/pkg/metrics"
	"notedigest/pkg/middleware"
	"notedigest/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting scanner service",
		"port", cfg.Server.Port,
		"repo", cfg.GitHub.Owner+"/"+cfg.GitHub.Repo,
		"window", cfg.Digest.Window,
	)

	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// PostgreSQL backs the advisory run ledger; the scanner still runs
	// without it.
	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, run ledger disabled", "error", err)
		db = nil
	} else {
		defer db.Close()
		slog.Info("connected to postgres")
	}
	runs := runlog.NewStore(db)

	gh := github.NewClient(cfg.GitHub)

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.Work)
	defer producer.Close()

	gemini, err := llm.NewGemini(ctx, cfg.LLM, cfg.LLM.Model)
	if err != nil {
		slog.Error("failed to create llm client", "error", err)
		os.Exit(1)
	}
	classifier := llm.WithResilience(gemini, "classify", m)

	sc := scanner.New(gh, cfg.Digest)
	filter := links.NewFilter(classifier)
	disp := dispatcher.New(producer, cfg.Kafka.SigningSecret, m)
	h := handler.New(sc, filter, disp, runs, m, cfg)

	checker := health.NewChecker()
	if db != nil {
		checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
			if err := db.DB.PingContext(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}
	checker.Register("github", func(ctx context.Context) health.ComponentHealth {
		if cfg.GitHub.Owner == "" || cfg.GitHub.Repo == "" {
			return health.ComponentHealth{Status: health.StatusDown, Message: "repository not configured"}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/digest/scan", h.Scan)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var root http.Handler = mux
	root = middleware.Timeout(cfg.Server.WriteTimeout)(root)
	root = middleware.Metrics(m)(root)
	root = middleware.RequestID(root)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      root,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownMetrics(shutdownCtx)
		}()
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("scanner service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("scanner service stopped")
}
