package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/veridex/veridex/internal/adapters/chain"
	"github.com/veridex/veridex/internal/adapters/http/api"
	"github.com/veridex/veridex/internal/adapters/llm"
	jobqueue "github.com/veridex/veridex/internal/adapters/mq/queue"
	"github.com/veridex/veridex/internal/adapters/notify"
	"github.com/veridex/veridex/internal/adapters/redteam"
	"github.com/veridex/veridex/internal/adapters/repository"
	"github.com/veridex/veridex/internal/adapters/sources"
	app "github.com/veridex/veridex/internal/app"
	"github.com/veridex/veridex/internal/config"
	"github.com/veridex/veridex/internal/domain/accuracy"
	"github.com/veridex/veridex/internal/domain/anomaly"
	"github.com/veridex/veridex/internal/domain/insight"
	"github.com/veridex/veridex/pkg/logger"
	"github.com/veridex/veridex/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 120 * time.Second // manual evaluations wait on the LLM
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics;
	// we collect our own system metrics instead.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env).
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input).
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Data sources.
	sourceTimeout := time.Duration(cfg.SourceTimeoutMS) * time.Millisecond
	indexer := sources.NewIndexerClient(cfg.IndexerBaseURL, sourceTimeout)
	registry := sources.NewRegistryClient(cfg.RegistryBaseURL, sourceTimeout)

	store := repository.NewMemoryStore(
		repository.WithTTL(time.Duration(cfg.CacheTTLHours) * time.Hour))

	collector := sources.NewAggregator(indexer, indexer, registry, registry,
		sources.WithCallTimeout(sourceTimeout),
		sources.WithHistory(store))

	// Insight synthesis, with the deterministic fallback behind it.
	var lm insight.LanguageModel
	if cfg.LLMAPIKey != "" {
		lm = llm.New(cfg.LLMAPIKey, cfg.LLMBaseURL,
			llm.WithModel(cfg.LLMModel),
			llm.WithTimeout(time.Duration(cfg.LLMTimeoutMS)*time.Millisecond))
	} else {
		log.Warn(ctx, "no LLM API key configured; all insights take the deterministic path")
	}
	synthesizer := insight.New(lm,
		insight.WithNotifier(notify.NewWebhook(cfg.WebhookURL)))

	// On-chain event intake.
	source := chain.NewPollingSource(cfg.IndexerBaseURL,
		chain.WithPollTimeout(sourceTimeout))
	resolver := chain.NewSlugIndex()

	svc := app.New(store, collector, anomaly.NewDetector(), accuracy.NewComparator(), synthesizer,
		app.WithLogger(log),
		app.WithProber(redteam.NewClient(cfg.ProberBaseURL, time.Duration(cfg.ProberTimeoutMS)*time.Millisecond)),
		app.WithQueueOptions(
			jobqueue.WithCapacity(cfg.QueueCapacity),
			jobqueue.WithInterJobDelay(time.Duration(cfg.InterJobDelayMS)*time.Millisecond),
			jobqueue.WithBaseContext(ctx)))

	svc.AttachWatcher(chain.NewWatcher(source, resolver, svc))

	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer func() { _ = svc.Stop(context.Background()) }()

	go startSystemMetricsUpdater(ctx)

	// HTTP mux and routes.
	mux := http.NewServeMux()
	api.NewServer(svc, cfg.MaxHistoryLimit, cfg.MaxTopLimit).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// startSystemMetricsUpdater updates system metrics until ctx is canceled.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			metrics.UpdateSystemMemoryUsage(m.Alloc)
			metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
		}
	}
}
