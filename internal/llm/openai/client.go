package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fleetify/invoice-scan/internal/common"
	"github.com/fleetify/invoice-scan/internal/entity"
	"github.com/fleetify/invoice-scan/internal/llm"
)

// ExtractInvoice implements llm.VisionExtractor over chat/completions with
// an image_url content part. One attempt, no retries; the caller owns the
// deadline and maps context.DeadlineExceeded to its timeout taxonomy.
func (c *Client) ExtractInvoice(ctx context.Context, req llm.ExtractRequest) (entity.ExtractedFields, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"engine", string(req.Engine),
		"filename", req.Filename,
		"image_bytes", len(req.ImageDataURL),
	)

	schema := llm.BuildInvoiceJSONSchema()
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"max_tokens":      c.cfg.MaxTokens,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt(req)},
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": llm.BuildUserPrompt(req) + "\n\nJSON Schema:\n" + mustJSON(schema)},
					{"type": "image_url", "image_url": map[string]any{"url": req.ImageDataURL}},
				},
			},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		if errors.Is(err, context.DeadlineExceeded) {
			return entity.ExtractedFields{}, nil, common.ErrExtractionTimeout
		}
		return entity.ExtractedFields{}, nil, common.NewAppError("EXTRACTION_HTTP", "vision call failed", errors.Join(common.ErrExtractionFailed, err))
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractedFields{}, raw, common.NewAppError("EXTRACTION_DECODE", "undecodable vision response", errors.Join(common.ErrExtractionFailed, err))
	}
	if len(cc.Choices) == 0 || strings.TrimSpace(cc.Choices[0].Message.Content) == "" {
		c.log.Error("llm.extract.no_choices",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractedFields{}, raw, common.ErrNoDataExtracted
	}
	content := []byte(strings.TrimSpace(cc.Choices[0].Message.Content))

	// Validate strictly; fall back to a lenient sanitize and re-validate.
	if err := llm.ValidateJSONAgainstSchema(schema, content); err != nil {
		cleaned, dropped, sErr := llm.NormalizeAndSanitizeJSON(content, c.log)
		if sErr != nil {
			c.log.Error("llm.extract.sanitize_failed",
				"req_id", rid, "error", sErr,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return entity.ExtractedFields{}, content, common.NewAppError("EXTRACTION_SANITIZE", "unsanitizable vision output", errors.Join(common.ErrExtractionFailed, sErr))
		}
		if vErr := llm.ValidateJSONAgainstSchema(schema, cleaned); vErr != nil {
			c.log.Error("llm.extract.schema_validation_failed",
				"req_id", rid, "error", vErr,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return entity.ExtractedFields{}, content, common.NewAppError("EXTRACTION_SCHEMA", "vision output violates schema", errors.Join(common.ErrExtractionFailed, vErr))
		}
		c.log.Warn("llm.extract.lenient_sanitize_applied",
			"req_id", rid, "dropped", dropped,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		content = cleaned
	}

	var out entity.ExtractedFields
	if err := json.Unmarshal(content, &out); err != nil {
		c.log.Error("llm.extract.unmarshal_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractedFields{}, content, common.NewAppError("EXTRACTION_UNMARSHAL", "cannot map vision output", errors.Join(common.ErrExtractionFailed, err))
	}
	if isEmpty(out) {
		c.log.Warn("llm.extract.empty",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractedFields{}, content, common.ErrNoDataExtracted
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"customer", out.CustomerName,
		"invoice", out.InvoiceNumber,
		"car", out.CarNumber,
		"language", string(out.LanguageDetected),
		"raw_text_len", len(out.RawText),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, content, nil
}

// isEmpty reports whether the model answered but read nothing usable.
func isEmpty(f entity.ExtractedFields) bool {
	return f.InvoiceNumber == "" && f.CustomerName == "" && f.ContractNumber == "" &&
		f.CarNumber == "" && f.TotalAmount == nil && strings.TrimSpace(f.RawText) == ""
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision http error: %w", err)
	}
	defer func(body io.ReadCloser) {
		if cErr := body.Close(); cErr != nil {
			c.log.Warn("llm.http.response_body_close_error", "error", cErr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("vision status %d: %s", resp.StatusCode, truncate(string(raw), 500))
	}
	return raw, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
