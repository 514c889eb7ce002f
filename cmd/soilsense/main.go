package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/Isheboy/SoilSense-AI/internal/adapter/http"
	"github.com/Isheboy/SoilSense-AI/internal/adapter/imagery"
	kafkaadapter "github.com/Isheboy/SoilSense-AI/internal/adapter/kafka"
	"github.com/Isheboy/SoilSense-AI/internal/adapter/llm"
	"github.com/Isheboy/SoilSense-AI/internal/adapter/postgres"
	"github.com/Isheboy/SoilSense-AI/internal/analysis"
	"github.com/Isheboy/SoilSense-AI/internal/config"
	"github.com/Isheboy/SoilSense-AI/internal/domain"
	"github.com/Isheboy/SoilSense-AI/internal/observability"
	"github.com/Isheboy/SoilSense-AI/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, closeLog := observability.NewLogger(observability.LogOptions{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	defer func() {
		if err := closeLog(); err != nil {
			slog.Error("log file close error", "error", err)
		}
	}()
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Imagery backend (feature-flagged via IMAGERY_URL).
	var source domain.IndicatorSource
	if cfg.ImageryEnabled() {
		client := imagery.NewClient(cfg.ImageryURL, cfg.ImageryAPIKey, cfg.ImageryTimeout, cfg.ImageryLookbackDays, metrics, logger)
		source = client
		if cfg.ImageryCacheSize > 0 {
			source = imagery.NewCachedSource(client, cfg.ImageryCacheSize, cfg.ImageryCacheTTL, metrics)
		}
		metrics.ImageryEnabled.Set(1)
		logger.Info("imagery enabled", "url", cfg.ImageryURL, "cache_size", cfg.ImageryCacheSize, "timeout", cfg.ImageryTimeout)
	} else {
		logger.Info("imagery disabled, assessments use default indicators")
	}

	opts := []analysis.Option{
		analysis.WithOptions(analysis.Options{
			ErosionRisk:   cfg.ErosionRisk,
			HistoryWindow: cfg.HistoryWindow,
			FetchTimeout:  cfg.FetchTimeout,
			StoreTimeout:  cfg.StoreTimeout,
			AdviceTimeout: cfg.AdviceTimeout,
		}),
	}

	// Text generation (feature-flagged via LLM_PROVIDER).
	if cfg.AdviceEnabled() {
		advisor, err := llm.NewAdvisor(llm.Config{
			Provider:        cfg.LLMProvider,
			Model:           cfg.LLMModel,
			AnthropicAPIKey: cfg.AnthropicAPIKey,
			OpenAIAPIKey:    cfg.OpenAIAPIKey,
			OllamaHost:      cfg.OllamaHost,
			MaxTokens:       cfg.LLMMaxTokens,
			Temperature:     cfg.LLMTemperature,
		})
		if err != nil {
			logger.Warn("advisor unavailable, using generic recommendations", "error", err)
		} else {
			opts = append(opts, analysis.WithAdvisor(advisor))
			logger.Info("advisor enabled", "provider", cfg.LLMProvider, "model", advisor.Model())
		}
	}

	// Record store (feature-flagged via DATABASE_URL).
	if cfg.StoreEnabled() {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		store := postgres.NewStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
		opts = append(opts, analysis.WithStore(store))
		logger.Info("record store enabled", "max_conns", cfg.DBMaxConns)
	}

	svc := analysis.NewService(source, metrics, logger, opts...)

	checkers := []httpadapter.ReadinessChecker{svc}

	// Batch pipeline (feature-flagged via KAFKA_ENABLED).
	var (
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
		p      *pipeline.Pipeline
	)
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		transformer := pipeline.NewTransformer(svc, logger)
		p = pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)
		checkers = append(checkers, p)
	}

	srv := httpadapter.NewServer(httpadapter.Config{
		Addr:           cfg.HTTPAddr,
		AllowedOrigins: cfg.AllowedOrigins,
	}, svc, metrics, logger, checkers...)

	// Start HTTP server.
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start batch pipeline.
	if p != nil {
		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
