// Package openai implements llm.VisionExtractor against any
// OpenAI-compatible chat/completions endpoint (the AI gateway in front of
// Gemini, or OpenAI itself).
package openai

import (
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Config for the vision client.
type Config struct {
	APIKey      string        // falls back to env VISION_API_KEY
	BaseURL     string        // e.g. https://ai.gateway.lovable.dev/v1
	Model       string        // e.g. "google/gemini-2.5-flash"
	Temperature float32       // low; extraction should be deterministic
	MaxTokens   int
	Timeout     time.Duration // http client timeout
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("VISION_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://ai.gateway.lovable.dev/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "google/gemini-2.5-flash"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 3000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}
