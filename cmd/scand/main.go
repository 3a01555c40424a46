package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fleetify/invoice-scan/internal/common"
	"github.com/fleetify/invoice-scan/internal/export"
	"github.com/fleetify/invoice-scan/internal/history"
	"github.com/fleetify/invoice-scan/internal/llm/openai"
	"github.com/fleetify/invoice-scan/internal/match"
	"github.com/fleetify/invoice-scan/internal/pipeline"
	"github.com/fleetify/invoice-scan/internal/preprocess"
	"github.com/fleetify/invoice-scan/internal/repository"
	"github.com/fleetify/invoice-scan/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, pool, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("open db", "error", err)
		os.Exit(1)
	}
	defer repository.Close(db, pool, logger)

	if err := repository.Migrate(ctx, db); err != nil {
		logger.Error("migrate", "error", err)
		os.Exit(1)
	}
	if err := repository.HealthCheck(ctx, db); err != nil {
		logger.Error("db health failed", "error", err)
		os.Exit(1)
	}
	logger.Info("db health ok", "driver", cfg.Database.Driver)

	scans := repository.NewScanRepository(db, logger)
	feedback := repository.NewFeedbackRepository(db, logger)

	var candidates repository.CandidateRepository = repository.NewCandidateRepository(db, logger)
	if cfg.Cache.RedisAddr != "" {
		redisClient, err := repository.NewRedisClient(cfg.Cache.RedisAddr)
		if err != nil {
			logger.Error("redis connect", "addr", cfg.Cache.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		candidates = repository.NewCachedCandidateRepository(redisClient, candidates, cfg.Cache.PoolTTL, logger)
		logger.Info("candidate pool cache enabled", "addr", cfg.Cache.RedisAddr, "ttl", cfg.Cache.PoolTTL)
	}

	extractor := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	hist := history.NewRing(cfg.History.Capacity)
	pre := pipeline.NewPreprocessStage(preprocess.Options{
		NormalizeSize:   cfg.Preprocess.NormalizeSize,
		EnhanceContrast: cfg.Preprocess.EnhanceContrast,
		SharpenText:     cfg.Preprocess.SharpenText,
		ReduceNoise:     cfg.Preprocess.ReduceNoise,
		MaxWidth:        cfg.Preprocess.MaxWidth,
		MaxHeight:       cfg.Preprocess.MaxHeight,
		ContrastFactor:  cfg.Preprocess.ContrastFactor,
		OutputQuality:   cfg.Preprocess.OutputQuality,
	}, logger)
	ext := pipeline.NewExtractStage(extractor, cfg.LLM.Timeout, logger)
	matcher := match.NewMatcher(candidates, cfg.Match.MaxCandidates, logger)
	ms := pipeline.NewMatchStage(matcher, cfg.Match.AutoAssignThreshold, cfg.Match.ReviewThreshold, logger)

	processor := pipeline.NewProcessor(logger, pre, ext, ms, scans, hist)
	recorder := pipeline.NewFeedbackRecorder(scans, feedback, hist, logger)
	exportSvc := export.NewService(scans, logger)

	api := server.NewServer(processor, recorder, scans, feedback, hist, exportSvc, db, cfg.Server.MaxUploadBytes, logger)
	httpServer := &http.Server{
		Addr:         cfg.Server.HTTPAddr,
		Handler:      api.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("stopped")
}
