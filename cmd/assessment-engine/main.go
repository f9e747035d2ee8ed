package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mindwell-health/assessment-engine/internal/api"
	"github.com/mindwell-health/assessment-engine/internal/cache"
	"github.com/mindwell-health/assessment-engine/internal/config"
	"github.com/mindwell-health/assessment-engine/internal/engine"
	"github.com/mindwell-health/assessment-engine/internal/llm"
	"github.com/mindwell-health/assessment-engine/internal/metrics"
	"github.com/mindwell-health/assessment-engine/internal/session"
	"github.com/mindwell-health/assessment-engine/internal/sra"
	"github.com/mindwell-health/assessment-engine/internal/store"
	"github.com/mindwell-health/assessment-engine/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting assessment-engine", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var cacheProvider cache.Provider = cache.NoopProvider{}
	if cfg.Cache.Enabled {
		cacheProvider = cache.NewMemoryProvider(cfg.Cache.Capacity)
	}
	defer cacheProvider.Close()

	var sessionStore store.Store
	if cfg.Store.DataDir != "" {
		badgerStore, err := store.NewBadgerStore(cfg.Store.DataDir)
		if err != nil {
			logger.Error("failed to open session store", slog.String("dir", cfg.Store.DataDir), slog.Any("error", err))
			os.Exit(1)
		}
		sessionStore = badgerStore
	} else {
		logger.Warn("no data directory configured, sessions will not survive restarts")
		sessionStore = store.NewMemoryStore()
	}
	defer sessionStore.Close()

	completions := llm.NewClient(cfg.Completion, cacheProvider, cfg.Cache.TTL, logger)
	if !completions.HasLiveProvider() {
		logger.Warn("no completion providers configured, running rule-based only")
	}

	extraction := sra.NewEngine(completions, logger)
	arbiter := engine.NewArbiter(completions, sessionStore, nil, logger)
	sessions := session.NewService(arbiter, extraction, sessionStore, logger)

	server := api.NewServer(sessions, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go reportHealth(ctx, logger, sessions, completions)

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	if err := server.Run(ctx, cfg.Server.Address, cfg.Server.GracefulTimeout); err != nil {
		logger.Error("http server exited", slog.Any("error", err))
	}

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	logger.Info("assessment-engine stopped")
}

// reportHealth logs arbitration latency and provider condition once a minute.
func reportHealth(ctx context.Context, logger *slog.Logger, sessions *session.Service, completions *llm.Client) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tracker := sessions.Latency()
			if tracker.Count() > 0 {
				logger.Info("arbitration latency",
					slog.Int("samples", tracker.Count()),
					slog.Duration("p50", tracker.Percentile(50)),
					slog.Duration("p95", tracker.Percentile(95)),
					slog.Duration("avg", tracker.Average()))
			}
			for _, stats := range completions.Stats() {
				if stats.Requests == 0 {
					continue
				}
				logger.Info("provider condition",
					slog.String("provider", stats.Name),
					slog.String("breaker", stats.BreakerState),
					slog.Uint64("requests", stats.Requests),
					slog.Uint64("failures", stats.Failures))
			}
		}
	}
}
