// Package pipeline coordinates the scan stages: preprocess, extract, match.
package pipeline

import (
	"bytes"
	"log/slog"
	"time"

	"github.com/fleetify/invoice-scan/internal/metrics"
	"github.com/fleetify/invoice-scan/internal/preprocess"
)

// PreprocessStage cleans the uploaded image up before the vision call.
type PreprocessStage struct {
	Opts   preprocess.Options
	Logger *slog.Logger
}

func NewPreprocessStage(opts preprocess.Options, logger *slog.Logger) *PreprocessStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &PreprocessStage{Opts: opts, Logger: logger}
}

// Run decodes, enhances, and re-encodes the image. Preprocessing is best
// effort: any failure returns the original bytes untouched so the scan can
// continue, with an empty improvements list.
func (p *PreprocessStage) Run(imageBytes []byte, filename string) ([]byte, []string) {
	start := time.Now()
	defer func() { metrics.ObserveStage("preprocess", time.Since(start)) }()

	img, err := preprocess.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		p.Logger.Warn("pipeline.preprocess.decode_failed", "filename", filename, "error", err)
		return imageBytes, nil
	}

	processed, improvements, err := preprocess.Apply(img, p.Opts)
	if err != nil {
		p.Logger.Warn("pipeline.preprocess.apply_failed", "filename", filename, "error", err)
		return imageBytes, nil
	}

	encoded, err := preprocess.EncodeJPEG(processed, p.Opts.OutputQuality)
	if err != nil {
		p.Logger.Warn("pipeline.preprocess.encode_failed", "filename", filename, "error", err)
		return imageBytes, nil
	}

	p.Logger.Info("pipeline.preprocess.ok",
		"filename", filename,
		"improvements", improvements,
		"in_bytes", len(imageBytes),
		"out_bytes", len(encoded),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return encoded, improvements
}
