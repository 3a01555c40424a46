package llm

import (
	"context"

	"github.com/fleetify/invoice-scan/constants"
	"github.com/fleetify/invoice-scan/internal/entity"
)

// ExtractRequest carries one invoice image to the vision model.
type ExtractRequest struct {
	ImageDataURL string // data: URL, base64 payload
	Filename     string
	Engine       constants.OCREngine        // opaque passthrough, recorded on the scan
	Language     constants.DetectedLanguage // hint only; "auto" lets the model decide
	CompanyName  string                     // tenant display name, prompt context
}

// VisionExtractor is the interface the pipeline depends on. The raw JSON
// returned alongside the fields is the model's (sanitized) output, persisted
// verbatim for audit.
type VisionExtractor interface {
	ExtractInvoice(ctx context.Context, req ExtractRequest) (entity.ExtractedFields, []byte, error)
}
