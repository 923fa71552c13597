// Command worker starts the summarization worker service.
//
// Workers consume signed work items from the work queue. Unit items (note,
// diff, url) each produce one summary written into the run's Redis result
// bucket; the terminal item triggers the digest synthesizer, which drains
// both buckets, generates the structured digest, renders the Markdown
// document, and persists it back to the repository.
//
// Usage:
//
//	go run ./cmd/worker [-config configs/development.yaml]
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

	"notedigest/internal/digest"
	"notedigest/internal/runlog"
	"notedigest/internal/summarize"
	"notedigest/pkg/config"
	"notedigest/pkg/github"
	"notedigest/pkg/health"
	"notedigest/pkg/kafka"
	"notedigest/pkg/llm"
	"notedigest/pkg/logger"
	"notedigest/pkg/metrics"
	"notedigest/pkg/postgres"
	"notedigest/pkg/redis"
)

const pageFetchTimeout = 30 * time.Second

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
	slog.Info("starting worker service",
		"topic", cfg.Kafka.Topics.Work,
		"group", cfg.Kafka.ConsumerGroup,
	)

	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := redis.NewClient(cfg.Redis)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()
	slog.Info("connected to redis")

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

	summarizeModel, err := llm.NewGemini(ctx, cfg.LLM, cfg.LLM.Model)
	if err != nil {
		slog.Error("failed to create llm client", "error", err)
		os.Exit(1)
	}
	digestModel, err := llm.NewGemini(ctx, cfg.LLM, cfg.LLM.DigestModel)
	if err != nil {
		slog.Error("failed to create digest llm client", "error", err)
		os.Exit(1)
	}

	worker := summarize.NewWorker(
		llm.WithResilience(summarizeModel, "summarize", m),
		rdb,
		summarize.NewPageFetcher(pageFetchTimeout),
		m,
	)
	synth := digest.New(
		rdb,
		llm.WithResilience(digestModel, "digest", m),
		gh,
		runs,
		cfg.Digest,
		cfg.IsProduction(),
		m,
	)

	handler := summarize.NewHandler(worker, synth, cfg.Kafka.SigningSecret, m)
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.Work, handler)

	checker := health.NewChecker()
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if err := rdb.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	if db != nil {
		checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
			if err := db.DB.PingContext(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	healthServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Worker.Port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("worker health server listening", "addr", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("health server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = healthServer.Shutdown(shutdownCtx)
	}()

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownMetrics(shutdownCtx)
		}()
	}

	slog.Info("worker service ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.Work,
		"group", cfg.Kafka.ConsumerGroup,
	)

	if err := consumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	slog.Info("worker service stopped")
}
