// Command runscan runs one invoice image through the scan pipeline and
// prints the resulting match as JSON. Useful for tuning thresholds against
// real invoices without the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/fleetify/invoice-scan/internal/common"
	"github.com/fleetify/invoice-scan/internal/history"
	"github.com/fleetify/invoice-scan/internal/llm/openai"
	"github.com/fleetify/invoice-scan/internal/match"
	"github.com/fleetify/invoice-scan/internal/pipeline"
	"github.com/fleetify/invoice-scan/internal/preprocess"
	"github.com/fleetify/invoice-scan/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 3 {
		logger.Error("usage", "cmd", "runscan <company-id-uuid> <image-path>")
		os.Exit(2)
	}
	companyID, err := uuid.Parse(os.Args[1])
	if err != nil {
		logger.Error("invalid company id (must be UUID)", "arg", os.Args[1], "error", err)
		os.Exit(2)
	}
	imagePath := os.Args[2]
	imageBytes, err := os.ReadFile(imagePath)
	if err != nil {
		logger.Error("read image", "path", imagePath, "error", err)
		os.Exit(1)
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

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

	scans := repository.NewScanRepository(db, logger)
	candidates := repository.NewCandidateRepository(db, logger)
	extractor := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	pre := pipeline.NewPreprocessStage(preprocess.DefaultOptions(), logger)
	ext := pipeline.NewExtractStage(extractor, cfg.LLM.Timeout, logger)
	matcher := match.NewMatcher(candidates, cfg.Match.MaxCandidates, logger)
	ms := pipeline.NewMatchStage(matcher, cfg.Match.AutoAssignThreshold, cfg.Match.ReviewThreshold, logger)
	processor := pipeline.NewProcessor(logger, pre, ext, ms, scans, history.NewRing(cfg.History.Capacity))

	start := time.Now()
	scan, err := processor.ProcessScan(ctx, pipeline.ScanRequest{
		CompanyID:  companyID,
		Filename:   filepath.Base(imagePath),
		ImageBytes: imageBytes,
	})
	if err != nil {
		logger.Error("scan failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}

	logger.Info("scan ok",
		"scan_id", scan.ID,
		"tier", scan.Tier,
		"confidence", scan.Matching.TotalConfidence,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(scan)
}
