package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	LLM        LLMConfig
	Match      MatchConfig
	Preprocess PreprocessConfig
	Cache      CacheConfig
	History    HistoryConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	Driver           string // "postgres" or "sqlite"
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
}

// LLMConfig holds vision-model configuration
type LLMConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
	MaxTokens   int
}

// MatchConfig holds matching thresholds
type MatchConfig struct {
	AutoAssignThreshold float64
	ReviewThreshold     float64
	MaxCandidates       int
}

// PreprocessConfig holds default image preprocessing options
type PreprocessConfig struct {
	MaxWidth        int
	MaxHeight       int
	ContrastFactor  float64
	OutputQuality   int
	EnhanceContrast bool
	ReduceNoise     bool
	SharpenText     bool
	NormalizeSize   bool
}

// CacheConfig holds the optional Redis candidate-pool cache settings
type CacheConfig struct {
	RedisAddr string // empty disables the cache
	PoolTTL   time.Duration
}

// HistoryConfig holds the in-memory rolling scan history settings
type HistoryConfig struct {
	Capacity int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			Driver:           getEnv("DB_DRIVER", "postgres"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
			ReadTimeout:     getEnvAsDuration("HTTP_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("HTTP_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 15*time.Second),
			MaxUploadBytes:  int64(getEnvAsInt("HTTP_MAX_UPLOAD_MB", 15)) * 1024 * 1024,
		},
		LLM: LLMConfig{
			Model:       getEnv("VISION_MODEL", "google/gemini-2.5-flash"),
			APIKey:      getEnv("VISION_API_KEY", ""),
			BaseURL:     getEnv("VISION_BASE_URL", "https://ai.gateway.lovable.dev/v1"),
			Temperature: getEnvAsFloat32("VISION_TEMPERATURE", 0.1),
			Timeout:     getEnvAsDuration("VISION_TIMEOUT", 45*time.Second),
			MaxTokens:   getEnvAsInt("VISION_MAX_TOKENS", 3000),
		},
		Match: MatchConfig{
			AutoAssignThreshold: getEnvAsFloat64("MATCH_AUTO_ASSIGN_THRESHOLD", 85),
			ReviewThreshold:     getEnvAsFloat64("MATCH_REVIEW_THRESHOLD", 70),
			MaxCandidates:       getEnvAsInt("MATCH_MAX_CANDIDATES", 10),
		},
		Preprocess: PreprocessConfig{
			MaxWidth:        getEnvAsInt("PREPROCESS_MAX_WIDTH", 1920),
			MaxHeight:       getEnvAsInt("PREPROCESS_MAX_HEIGHT", 1080),
			ContrastFactor:  getEnvAsFloat64("PREPROCESS_CONTRAST_FACTOR", 1.2),
			OutputQuality:   getEnvAsInt("PREPROCESS_OUTPUT_QUALITY", 90),
			EnhanceContrast: getEnvAsBool("PREPROCESS_CONTRAST", true),
			ReduceNoise:     getEnvAsBool("PREPROCESS_DENOISE", true),
			SharpenText:     getEnvAsBool("PREPROCESS_SHARPEN", true),
			NormalizeSize:   getEnvAsBool("PREPROCESS_RESIZE", true),
		},
		Cache: CacheConfig{
			RedisAddr: getEnv("REDIS_ADDR", ""),
			PoolTTL:   getEnvAsDuration("POOL_CACHE_TTL", 2*time.Minute),
		},
		History: HistoryConfig{
			Capacity: getEnvAsInt("SCAN_HISTORY_CAPACITY", 50),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "VISION_API_KEY is required", ErrInvalidInput)
	}
	if c.Match.ReviewThreshold > c.Match.AutoAssignThreshold {
		return NewAppError("CONFIG_ERROR", "MATCH_REVIEW_THRESHOLD must not exceed MATCH_AUTO_ASSIGN_THRESHOLD", ErrInvalidInput)
	}
	return nil
}
