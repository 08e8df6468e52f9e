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

	"github.com/ariastack/aria-engine/internal/api"
	"github.com/ariastack/aria-engine/internal/cache"
	"github.com/ariastack/aria-engine/internal/config"
	"github.com/ariastack/aria-engine/internal/engine"
	"github.com/ariastack/aria-engine/internal/metrics"
	"github.com/ariastack/aria-engine/internal/registry"
	"github.com/ariastack/aria-engine/internal/repo"
	"github.com/ariastack/aria-engine/internal/services"
	"github.com/ariastack/aria-engine/internal/utils"
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
	logger.Info("starting aria-engine",
		slog.String("address", cfg.Server.Address), slog.String("mode", cfg.Mode))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var cacheProvider cache.Provider = cache.NoopProvider{}
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewRedisProvider(cache.RedisConfig{
			Addr:        cfg.Cache.Addr,
			Password:    cfg.Cache.Password,
			DB:          cfg.Cache.DB,
			DialTimeout: cfg.Cache.DialTimeout,
		})
		if err != nil {
			logger.Warn("redis cache unavailable", slog.Any("error", err))
		} else {
			cacheProvider = provider
			defer provider.Close()
		}
	}

	profiles, err := registry.Load(cfg.Registry.Path, logger)
	if err != nil {
		logger.Error("failed to load service profiles", slog.String("path", cfg.Registry.Path), slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("service profiles loaded", slog.Int("count", profiles.Len()))

	syntheticTelemetry := repo.NewSyntheticTelemetry()
	var telemetry engine.TelemetrySource = syntheticTelemetry
	if cfg.TelemetryLive() {
		telemetry = repo.NewTelemetryClient(repo.TelemetryConfig{
			BaseURL:    cfg.Telemetry.BaseURL,
			APIKey:     cfg.Telemetry.APIKey,
			AppKey:     cfg.Telemetry.AppKey,
			SearchPath: cfg.Telemetry.SearchPath,
			Timeout:    cfg.Telemetry.Timeout,
			TopN:       cfg.Telemetry.TopN,
		})
	}

	var graph engine.GraphSource = repo.NewSyntheticGraph()
	var graphCloser interface {
		Close(context.Context) error
	}
	if cfg.GraphLive() {
		neo := repo.NewNeo4jGraph(repo.GraphConfig{
			URI:      cfg.Graph.URI,
			Username: cfg.Graph.Username,
			Password: cfg.Graph.Password,
			Database: cfg.Graph.Database,
			Depth:    cfg.Graph.Depth,
			Timeout:  cfg.Graph.Timeout,
		}, cacheProvider, cfg.Cache.GraphTTL, logger)
		graph = neo
		graphCloser = neo
	}

	var runbooks engine.RunbookSource = repo.NewSyntheticRunbooks()
	var runbooksCloser interface {
		Close(context.Context) error
	}
	if cfg.RunbooksLive() {
		mongo := repo.NewMongoRunbooks(repo.RunbooksConfig{
			URI:        cfg.Runbooks.URI,
			Database:   cfg.Runbooks.Database,
			Collection: cfg.Runbooks.Collection,
			Timeout:    cfg.Runbooks.Timeout,
		}, cacheProvider, cfg.Cache.RunbooksTTL, logger)
		runbooks = mongo
		runbooksCloser = mongo
	}

	var reasoner engine.ReasoningClient = repo.NewDisabledReasoner()
	if cfg.ReasonerLive() {
		reasoner = repo.NewAnthropicReasoner(repo.ReasonerConfig{
			APIKey:    cfg.Reasoner.APIKey,
			Model:     cfg.Reasoner.Model,
			MaxTokens: cfg.Reasoner.MaxTokens,
			Timeout:   cfg.Reasoner.Timeout,
		})
	}

	triageStage := engine.NewTriageStage(logger, reasoner, telemetry, profiles)
	investigationStage := engine.NewInvestigationStage(logger, telemetry, syntheticTelemetry, cfg.Telemetry.TopN)
	rootCauseStage := engine.NewRootCauseStage(logger, graph, runbooks, reasoner)
	orchestrator := engine.NewOrchestrator(logger, triageStage, investigationStage, rootCauseStage)

	service := services.NewInvestigationService(logger, orchestrator)
	server := api.NewServer(cfg.Server, logger, service)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	go func() {
		logger.Info("http server listening", slog.String("address", cfg.Server.Address))
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("http server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.GracefulTimeout())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", slog.Any("error", err))
	}

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	closeCtx, cancelClose := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelClose()
	if graphCloser != nil {
		if err := graphCloser.Close(closeCtx); err != nil {
			logger.Warn("graph connector close", slog.Any("error", err))
		}
	}
	if runbooksCloser != nil {
		if err := runbooksCloser.Close(closeCtx); err != nil {
			logger.Warn("runbook connector close", slog.Any("error", err))
		}
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("aria-engine stopped")
}
