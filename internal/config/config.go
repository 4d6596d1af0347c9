package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port  string `yaml:"port"`
	Debug bool   `yaml:"debug"`

	// Auth
	APIKey string `yaml:"api_key"`

	// AI backend: gateway, anthropic, gemini or openai.
	AIBackend       string `yaml:"ai_backend"`
	GatewayURL      string `yaml:"gateway_url"`
	GatewayAPIKey   string `yaml:"gateway_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	AnthropicModel  string `yaml:"anthropic_model"`
	GeminiAPIKey    string `yaml:"gemini_api_key"`
	GeminiModel     string `yaml:"gemini_model"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	OpenAIBaseURL   string `yaml:"openai_base_url"`
	OpenAIModel     string `yaml:"openai_model"`

	// AI pacing
	AIRequestsPerSecond float64       `yaml:"ai_requests_per_second"`
	AIRateLimitRetries  int           `yaml:"ai_rate_limit_retries"`
	CallTimeout         time.Duration `yaml:"call_timeout"`
	MaxConcurrentAI     int           `yaml:"max_concurrent_ai"`

	// Worker pool
	WorkerCount  int `yaml:"worker_count"`
	MaxQueueSize int `yaml:"max_queue_size"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Extraction
	PDFMinTextChars int           `yaml:"pdf_min_text_chars"`
	OCRMinTextChars int           `yaml:"ocr_min_text_chars"`
	OCREngine       string        `yaml:"ocr_engine"`
	OCRLanguage     string        `yaml:"ocr_language"`
	OCRRenderDPI    int           `yaml:"ocr_render_dpi"`
	PageTimeout     time.Duration `yaml:"page_timeout"`

	// Analysis thresholds
	LongDocThreshold   int           `yaml:"long_doc_threshold"`
	ChunkSize          int           `yaml:"chunk_size"`
	MindMapDirectLimit int           `yaml:"mindmap_direct_limit"`
	KeyPointsPrefix    int           `yaml:"keypoints_prefix"`
	OutlinePrefix      int           `yaml:"outline_prefix"`
	MindMapWatchdog    time.Duration `yaml:"mindmap_watchdog"`

	// Extra terms for the prompt sanitiser.
	SanitizeTerms []string `yaml:"sanitize_terms"`

	// Job state
	JobTTL    time.Duration `yaml:"job_ttl"`
	CacheSize int           `yaml:"cache_size"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port: "8090",

		AIBackend:      "gateway",
		GatewayURL:     "http://localhost:4321/api/ai-analyze",
		AnthropicModel: "claude-sonnet-4-5-20250929",
		GeminiModel:    "gemini-2.0-flash",
		OpenAIBaseURL:  "https://dashscope.aliyuncs.com/compatible-mode/v1",
		OpenAIModel:    "qwen-turbo",

		AIRequestsPerSecond: 5,
		AIRateLimitRetries:  2,
		CallTimeout:         2 * time.Minute,
		MaxConcurrentAI:     4,

		WorkerCount:  2,
		MaxQueueSize: 50,

		MaxUploadBytes: 52428800, // 50MB

		PDFMinTextChars: 10,
		OCRMinTextChars: 100,
		OCREngine:       "tesseract",
		OCRLanguage:     "eng",
		OCRRenderDPI:    150,
		PageTimeout:     30 * time.Second,

		LongDocThreshold:   8000,
		ChunkSize:          6000,
		MindMapDirectLimit: 8000,
		KeyPointsPrefix:    3000,
		OutlinePrefix:      4000,
		MindMapWatchdog:    3 * time.Minute,

		JobTTL:    1 * time.Hour,
		CacheSize: 128,
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by MINDGEST_CONFIG, and environment variables, in that order.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("MINDGEST_CONFIG"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return cfg, err
		}
	}
	cfg.overlayEnv()
	cfg.fillDefaults()
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) overlayEnv() {
	c.Port = envOr("PORT", c.Port)
	c.Debug = envBool("DEBUG", c.Debug)
	c.APIKey = envOr("MINDGEST_API_KEY", c.APIKey)

	c.AIBackend = strings.ToLower(envOr("AI_BACKEND", c.AIBackend))
	c.GatewayURL = envOr("AI_GATEWAY_URL", c.GatewayURL)
	c.GatewayAPIKey = envOr("AI_GATEWAY_API_KEY", c.GatewayAPIKey)
	c.AnthropicAPIKey = envOr("ANTHROPIC_API_KEY", c.AnthropicAPIKey)
	c.AnthropicModel = envOr("ANTHROPIC_MODEL", c.AnthropicModel)
	c.GeminiAPIKey = envOr("GEMINI_API_KEY", c.GeminiAPIKey)
	c.GeminiModel = envOr("GEMINI_MODEL", c.GeminiModel)
	c.OpenAIAPIKey = envOr("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = envOr("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.OpenAIModel = envOr("OPENAI_MODEL", c.OpenAIModel)

	c.AIRequestsPerSecond = envFloat("AI_REQUESTS_PER_SECOND", c.AIRequestsPerSecond)
	c.AIRateLimitRetries = envInt("AI_RATE_LIMIT_RETRIES", c.AIRateLimitRetries)
	c.CallTimeout = envDuration("AI_CALL_TIMEOUT", c.CallTimeout)
	c.MaxConcurrentAI = envInt("MAX_CONCURRENT_AI", c.MaxConcurrentAI)

	c.WorkerCount = envInt("WORKER_COUNT", c.WorkerCount)
	c.MaxQueueSize = envInt("MAX_QUEUE_SIZE", c.MaxQueueSize)

	c.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", c.MaxUploadBytes)

	c.PDFMinTextChars = envInt("PDF_MIN_TEXT_CHARS", c.PDFMinTextChars)
	c.OCRMinTextChars = envInt("OCR_MIN_TEXT_CHARS", c.OCRMinTextChars)
	c.OCREngine = strings.ToLower(envOr("OCR_ENGINE", c.OCREngine))
	c.OCRLanguage = envOr("OCR_LANGUAGE", c.OCRLanguage)
	c.OCRRenderDPI = envInt("OCR_RENDER_DPI", c.OCRRenderDPI)
	c.PageTimeout = envDuration("PAGE_TIMEOUT", c.PageTimeout)

	c.LongDocThreshold = envInt("LONG_DOC_THRESHOLD", c.LongDocThreshold)
	c.ChunkSize = envInt("CHUNK_SIZE", c.ChunkSize)
	c.MindMapDirectLimit = envInt("MINDMAP_DIRECT_LIMIT", c.MindMapDirectLimit)
	c.KeyPointsPrefix = envInt("KEYPOINTS_PREFIX", c.KeyPointsPrefix)
	c.OutlinePrefix = envInt("OUTLINE_PREFIX", c.OutlinePrefix)
	c.MindMapWatchdog = envDuration("MINDMAP_WATCHDOG", c.MindMapWatchdog)

	if v := os.Getenv("SANITIZE_TERMS"); v != "" {
		c.SanitizeTerms = splitList(v)
	}

	c.JobTTL = envDuration("JOB_TTL", c.JobTTL)
	c.CacheSize = envInt("CACHE_SIZE", c.CacheSize)
}

// fillDefaults replaces non-positive values with the built-in ones.
func (c *Config) fillDefaults() {
	d := Default()
	if c.AIRequestsPerSecond <= 0 {
		c.AIRequestsPerSecond = d.AIRequestsPerSecond
	}
	if c.AIRateLimitRetries < 0 {
		c.AIRateLimitRetries = 0
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = d.CallTimeout
	}
	if c.MaxConcurrentAI <= 0 {
		c.MaxConcurrentAI = d.MaxConcurrentAI
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = d.WorkerCount
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.PDFMinTextChars <= 0 {
		c.PDFMinTextChars = d.PDFMinTextChars
	}
	if c.OCRMinTextChars <= 0 {
		c.OCRMinTextChars = d.OCRMinTextChars
	}
	if c.OCRRenderDPI <= 0 {
		c.OCRRenderDPI = d.OCRRenderDPI
	}
	if c.PageTimeout <= 0 {
		c.PageTimeout = d.PageTimeout
	}
	if c.LongDocThreshold <= 0 {
		c.LongDocThreshold = d.LongDocThreshold
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = d.ChunkSize
	}
	if c.MindMapDirectLimit <= 0 {
		c.MindMapDirectLimit = d.MindMapDirectLimit
	}
	if c.KeyPointsPrefix <= 0 {
		c.KeyPointsPrefix = d.KeyPointsPrefix
	}
	if c.OutlinePrefix <= 0 {
		c.OutlinePrefix = d.OutlinePrefix
	}
	if c.MindMapWatchdog <= 0 {
		c.MindMapWatchdog = d.MindMapWatchdog
	}
	if c.JobTTL <= 0 {
		c.JobTTL = d.JobTTL
	}
	if c.CacheSize <= 0 {
		c.CacheSize = d.CacheSize
	}
}

// Validate checks credentials for the selected backend and threshold sanity.
func (c Config) Validate() error {
	switch c.AIBackend {
	case "gateway":
		if c.GatewayURL == "" {
			return fmt.Errorf("AI_GATEWAY_URL is required for the gateway backend")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic backend")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini backend")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai backend")
		}
	default:
		return fmt.Errorf("unknown AI_BACKEND %q", c.AIBackend)
	}

	switch c.OCREngine {
	case "tesseract", "none", "":
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for gemini OCR")
		}
	default:
		return fmt.Errorf("unknown OCR_ENGINE %q", c.OCREngine)
	}

	if c.ChunkSize > c.LongDocThreshold {
		return fmt.Errorf("CHUNK_SIZE (%d) must not exceed LONG_DOC_THRESHOLD (%d)", c.ChunkSize, c.LongDocThreshold)
	}
	return nil
}

// ValidateServer additionally requires the API key used by the HTTP service.
func (c Config) ValidateServer() error {
	if c.APIKey == "" {
		return fmt.Errorf("MINDGEST_API_KEY is required")
	}
	return c.Validate()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
