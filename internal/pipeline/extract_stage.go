package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/fleetify/invoice-scan/constants"
	"github.com/fleetify/invoice-scan/internal/entity"
	"github.com/fleetify/invoice-scan/internal/keyinfo"
	"github.com/fleetify/invoice-scan/internal/llm"
	"github.com/fleetify/invoice-scan/internal/metrics"
)

// ExtractStage sends the (preprocessed) image to the vision model and fills
// in the processing info the model does not report itself: the heuristic
// OCR confidence and a script-based language fallback.
type ExtractStage struct {
	Extractor llm.VisionExtractor
	Timeout   time.Duration
	Logger    *slog.Logger
}

func NewExtractStage(extractor llm.VisionExtractor, timeout time.Duration, logger *slog.Logger) *ExtractStage {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractStage{Extractor: extractor, Timeout: timeout, Logger: logger}
}

// Run encodes the image and calls the extractor under the stage timeout.
// The returned raw JSON is the sanitized model output, kept for audit.
func (e *ExtractStage) Run(ctx context.Context, imageBytes []byte, filename string, engine constants.OCREngine, companyName string) (entity.ExtractedFields, entity.ProcessingInfo, []byte, error) {
	start := time.Now()
	defer func() { metrics.ObserveStage("extract", time.Since(start)) }()

	var info entity.ProcessingInfo

	dataURL, err := llm.EncodeImageDataURL(imageBytes, filename)
	if err != nil {
		return entity.ExtractedFields{}, info, nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	fields, raw, err := e.Extractor.ExtractInvoice(ctx, llm.ExtractRequest{
		ImageDataURL: dataURL,
		Filename:     filename,
		Engine:       engine,
		Language:     constants.LanguageAuto,
		CompanyName:  companyName,
	})
	if err != nil {
		return entity.ExtractedFields{}, info, raw, err
	}

	info.OCREngine = engine
	info.OCRConfidence = llm.HeuristicConfidence(fields.RawText)
	info.LanguageDetected = fields.LanguageDetected
	if info.LanguageDetected == "" || info.LanguageDetected == constants.LanguageAuto {
		info.LanguageDetected = keyinfo.DetectLanguage(fields.RawText)
	}

	e.Logger.Info("pipeline.extract.ok",
		"filename", filename,
		"engine", engine,
		"language", info.LanguageDetected,
		"ocr_confidence", info.OCRConfidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return fields, info, raw, nil
}
