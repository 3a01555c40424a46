package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/fleetify/invoice-scan/constants"
	"github.com/fleetify/invoice-scan/internal/common"
	"github.com/fleetify/invoice-scan/internal/entity"
	"github.com/fleetify/invoice-scan/internal/history"
	"github.com/fleetify/invoice-scan/internal/metrics"
	"github.com/fleetify/invoice-scan/internal/repository"
)

// ScanRequest is one uploaded invoice image to run through the pipeline.
type ScanRequest struct {
	CompanyID   uuid.UUID
	CompanyName string
	Filename    string
	ImageBytes  []byte
	Engine      constants.OCREngine
}

// Processor coordinates preprocess, extract, and match, persists the scan,
// and keeps the rolling in-memory history current.
type Processor struct {
	Logger  *slog.Logger
	Pre     *PreprocessStage
	Extract *ExtractStage
	Match   *MatchStage
	Scans   repository.ScanRepository
	History *history.Ring
}

func NewProcessor(logger *slog.Logger, pre *PreprocessStage, extract *ExtractStage, match *MatchStage, scans repository.ScanRepository, hist *history.Ring) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, Pre: pre, Extract: extract, Match: match, Scans: scans, History: hist}
}

// ProcessScan runs one image through the full pipeline. Non-image uploads
// are rejected before any record exists. Extraction failures are persisted
// as FAILED scans so they show up in history; the error is still returned.
func (p *Processor) ProcessScan(ctx context.Context, req ScanRequest) (*entity.ScanResult, error) {
	if req.Engine == "" {
		req.Engine = constants.EngineGemini
	}
	if !constants.IsImageExt(filepath.Ext(req.Filename)) {
		p.Logger.Warn("processor.reject.not_image", "filename", req.Filename)
		return nil, common.ErrNotImage
	}

	scan := &entity.ScanResult{
		ID:        uuid.New(),
		CompanyID: req.CompanyID,
		Filename:  req.Filename,
		Status:    constants.ScanStatusCreated,
		CreatedAt: time.Now().UTC(),
	}
	p.Logger.Info("processor.scan.start",
		"scan_id", scan.ID,
		"company_id", req.CompanyID,
		"filename", req.Filename,
		"engine", req.Engine,
		"bytes", len(req.ImageBytes),
	)

	imageBytes, improvements := p.Pre.Run(req.ImageBytes, req.Filename)
	scan.Improvements = improvements

	p.advance(scan, constants.ScanStatusExtracting)
	fields, info, _, err := p.Extract.Run(ctx, imageBytes, req.Filename, req.Engine, req.CompanyName)
	if err != nil {
		return p.fail(ctx, scan, info, err)
	}
	scan.Fields = fields
	scan.Processing = info

	matching, tier, err := p.Match.Run(ctx, fields, req.CompanyID, info.OCRConfidence)
	if err != nil {
		return p.fail(ctx, scan, info, err)
	}
	scan.Matching = matching
	scan.Tier = tier

	p.advance(scan, constants.ScanStatusMatched)
	if err := p.Scans.Insert(ctx, scan); err != nil {
		p.Logger.Error("processor.scan.persist_failed", "scan_id", scan.ID, "err", err)
		return nil, err
	}
	p.History.Append(*scan)
	metrics.ObserveScan("ok", string(tier), matching.TotalConfidence)

	p.Logger.Info("processor.scan.ok",
		"scan_id", scan.ID,
		"status", scan.Status,
		"tier", tier,
		"confidence", matching.TotalConfidence,
	)
	return scan, nil
}

// fail persists the scan in FAILED state so the attempt is visible in
// listings, then returns the pipeline error unchanged.
func (p *Processor) fail(ctx context.Context, scan *entity.ScanResult, info entity.ProcessingInfo, cause error) (*entity.ScanResult, error) {
	p.advance(scan, constants.ScanStatusFailed)
	scan.Processing = info
	scan.Tier = constants.TierManualReview
	if err := p.Scans.Insert(ctx, scan); err != nil {
		p.Logger.Error("processor.scan.persist_failed", "scan_id", scan.ID, "err", err)
	}
	p.History.Append(*scan)
	metrics.ObserveScan("failed", "none", 0)
	p.Logger.Error("processor.scan.failed", "scan_id", scan.ID, "err", cause)
	return nil, cause
}

// advance moves the scan's status, refusing transitions the lifecycle does
// not allow. A refused transition indicates a pipeline bug, not bad input.
func (p *Processor) advance(scan *entity.ScanResult, to constants.ScanStatus) {
	if !constants.CanTransition(scan.Status, to) {
		p.Logger.Error("processor.scan.bad_transition", "scan_id", scan.ID, "from", scan.Status, "to", to)
		return
	}
	scan.Status = to
}
