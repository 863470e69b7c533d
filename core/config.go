// Package core holds process-wide configuration, configuration errors and exit codes.
package core

import (
	"crypto/tls"
	"net/http"
	"slices"
	"strings"
	"time"
)

// Inference providers.
const (
	ProviderHuggingFace = "huggingface"
	ProviderOpenAI      = "openai"
	ProviderAzure       = "azure"
)

// Cache backends.
const (
	CacheBackendFile   = "file"
	CacheBackendSQLite = "sqlite"
)

// Background removal modes.
const (
	RembgModeHTTP     = "http"
	RembgModeCommand  = "command"
	RembgModeColorKey = "colorkey"
	RembgModeOff      = "off"
)

// Defaults taken from the print-on-demand templates the designs are made for.
const (
	DefaultPrintWidth  = 4500
	DefaultPrintHeight = 5400
	DefaultHFModel     = "black-forest-labs/FLUX.1-schnell"
	DefaultHFBaseURL   = "https://router.huggingface.co/hf-inference/models"
	DefaultTrendsURL   = "https://trends.google.com/trending/rss"
)

// Config holds all configuration values.
type Config struct {
	// Inference
	Provider              string
	HFToken               string
	HFModel               string
	HFBaseURL             string
	OpenAIAPIKey          string
	OpenAIImageModel      string
	ImageLLMURL           string
	AzureOpenAIEndpoint   string
	AzureOpenAIDeployment string
	AzureOpenAIApiVersion string
	AITimeout             time.Duration

	// Retry policy
	MaxRetries      int
	RetryBaseDelay  time.Duration
	RetryMaxDelay   time.Duration
	MaxBadResponses int

	// Output
	OutputDir   string
	PrintWidth  int
	PrintHeight int

	// Topic cache and history
	CacheEnabled   bool
	CacheBackend   string
	CacheDir       string
	CacheFreshness time.Duration
	DatabasePath   string
	// HistoryRetention bounds design history kept in the database; 0 keeps everything.
	HistoryRetention time.Duration

	// Background removal
	RembgMode    string
	RembgURL     string
	RembgCommand string

	// Styles and topics
	StylesFile     string
	DefaultStyle   string
	TrendsRegion   string
	TrendsURL      string
	InterItemDelay time.Duration

	// Process
	LogFile              string
	LogLevel             string
	DevMode              bool
	AllowSelfSignedCerts bool
}

// LoadConfig reads configuration from the environment. Callers load .env first.
//
// Credentials are not required here: a missing token is reported by the
// inference client as an authentication failure, which aborts the run with a
// dedicated exit code. Everything else is range-checked.
func LoadConfig() (*Config, error) {
	cacheDir := GetEnvOrDefault("CACHE_DIR", "./cache")

	cfg := &Config{
		Provider:              strings.ToLower(GetEnvOrDefault("INFERENCE_PROVIDER", ProviderHuggingFace)),
		HFToken:               FirstEnv("HF_TOKEN", "HUGGINGFACE_TOKEN"),
		HFModel:               GetEnvOrDefault("HF_MODEL", DefaultHFModel),
		HFBaseURL:             GetEnvOrDefault("HF_BASE_URL", DefaultHFBaseURL),
		OpenAIAPIKey:          FirstEnv("OPENAI_API_KEY", "OPENAI_KEY"),
		OpenAIImageModel:      GetEnvOrDefault("IMAGE_GEN_MODEL", "dall-e-3"),
		ImageLLMURL:           GetEnvOrDefault("IMAGE_LLM_URL", "https://api.openai.com/v1"),
		AzureOpenAIEndpoint:   GetEnvOrDefault("AZURE_OPENAI_ENDPOINT", ""),
		AzureOpenAIDeployment: GetEnvOrDefault("AZURE_OPENAI_DEPLOYMENT", ""),
		AzureOpenAIApiVersion: GetEnvOrDefault("AZURE_OPENAI_API_VERSION", "2024-02-15-preview"),
		// Flux takes 10-60s on a cold model; two minutes leaves headroom.
		AITimeout: ParseSecondsEnv("AI_TIMEOUT", 120),

		MaxRetries:      ParseIntEnv("MAX_RETRIES", 5),
		RetryBaseDelay:  ParseSecondsEnv("RETRY_BASE_DELAY", 20),
		RetryMaxDelay:   ParseSecondsEnv("RETRY_MAX_DELAY", 90),
		MaxBadResponses: ParseIntEnv("MAX_BAD_RESPONSES", 2),

		OutputDir:   GetEnvOrDefault("OUTPUT_DIR", "./output"),
		PrintWidth:  ParseIntEnv("PRINT_WIDTH", DefaultPrintWidth),
		PrintHeight: ParseIntEnv("PRINT_HEIGHT", DefaultPrintHeight),

		CacheEnabled:     ParseBoolEnv("CACHE_ENABLED", false),
		CacheBackend:     strings.ToLower(GetEnvOrDefault("CACHE_BACKEND", CacheBackendFile)),
		CacheDir:         cacheDir,
		CacheFreshness:   ParseHoursEnv("CACHE_FRESHNESS_HOURS", 24),
		DatabasePath:     GetEnvOrDefault("DATABASE_PATH", strings.TrimSuffix(cacheDir, "/")+"/trendmerch.db"),
		HistoryRetention: time.Duration(ParseIntEnv("HISTORY_RETENTION_DAYS", 90)) * 24 * time.Hour,

		RembgMode:    strings.ToLower(GetEnvOrDefault("REMBG_MODE", RembgModeHTTP)),
		RembgURL:     GetEnvOrDefault("REMBG_URL", "http://127.0.0.1:7000"),
		RembgCommand: GetEnvOrDefault("REMBG_COMMAND", "rembg"),

		StylesFile:     GetEnvOrDefault("STYLES_FILE", ""),
		DefaultStyle:   GetEnvOrDefault("DEFAULT_STYLE", "vaporwave"),
		TrendsRegion:   strings.ToUpper(GetEnvOrDefault("TRENDS_REGION", "US")),
		TrendsURL:      GetEnvOrDefault("TRENDS_URL", DefaultTrendsURL),
		InterItemDelay: ParseSecondsEnv("INTER_ITEM_DELAY", 10),

		LogFile:              GetEnvOrDefault("LOG_FILE", "trendmerch.log"),
		LogLevel:             GetEnvOrDefault("LOG_LEVEL", ""),
		DevMode:              ParseBoolEnv("DEV_MODE", false),
		AllowSelfSignedCerts: ParseBoolEnv("ALLOW_SELF_SIGNED_CERTS", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations. It returns the first problem found.
func (c *Config) Validate() error {
	providers := []string{ProviderHuggingFace, ProviderOpenAI, ProviderAzure}
	if !slices.Contains(providers, c.Provider) {
		return ErrUnknownOption("INFERENCE_PROVIDER", c.Provider, providers)
	}
	if c.Provider == ProviderAzure && (c.AzureOpenAIEndpoint == "" || c.AzureOpenAIDeployment == "") {
		return ErrMissingConfig("AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_DEPLOYMENT")
	}
	if c.MaxRetries < 1 || c.MaxRetries > 20 {
		return ErrInvalidValue("MAX_RETRIES", c.MaxRetries, "must be between 1 and 20")
	}
	if c.RetryBaseDelay < 0 || c.RetryMaxDelay < c.RetryBaseDelay {
		return ErrInvalidValue("RETRY_MAX_DELAY", c.RetryMaxDelay, "must be at least RETRY_BASE_DELAY")
	}
	if c.MaxBadResponses < 1 {
		return ErrInvalidValue("MAX_BAD_RESPONSES", c.MaxBadResponses, "must be at least 1")
	}
	if c.AITimeout < 10*time.Second {
		return ErrInvalidValue("AI_TIMEOUT", c.AITimeout, "must be at least 10 seconds")
	}
	if c.PrintWidth < 1 || c.PrintWidth > 20000 {
		return ErrInvalidValue("PRINT_WIDTH", c.PrintWidth, "must be between 1 and 20000")
	}
	if c.PrintHeight < 1 || c.PrintHeight > 20000 {
		return ErrInvalidValue("PRINT_HEIGHT", c.PrintHeight, "must be between 1 and 20000")
	}
	backends := []string{CacheBackendFile, CacheBackendSQLite}
	if !slices.Contains(backends, c.CacheBackend) {
		return ErrUnknownOption("CACHE_BACKEND", c.CacheBackend, backends)
	}
	if c.CacheFreshness <= 0 {
		return ErrInvalidValue("CACHE_FRESHNESS_HOURS", c.CacheFreshness, "must be positive")
	}
	if c.HistoryRetention < 0 {
		return ErrInvalidValue("HISTORY_RETENTION_DAYS", c.HistoryRetention, "must not be negative")
	}
	modes := []string{RembgModeHTTP, RembgModeCommand, RembgModeColorKey, RembgModeOff}
	if !slices.Contains(modes, c.RembgMode) {
		return ErrUnknownOption("REMBG_MODE", c.RembgMode, modes)
	}
	if c.InterItemDelay < 0 {
		return ErrInvalidValue("INTER_ITEM_DELAY", c.InterItemDelay, "must not be negative")
	}
	return nil
}

// Credential returns the API credential for the configured provider.
func (c *Config) Credential() string {
	if c.Provider == ProviderHuggingFace {
		return c.HFToken
	}
	return c.OpenAIAPIKey
}

// GetHTTPClient returns an HTTP client honoring AllowSelfSignedCerts.
func GetHTTPClient(cfg *Config, timeout time.Duration) *http.Client {
	client := &http.Client{Timeout: timeout}
	if cfg != nil && cfg.AllowSelfSignedCerts {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return client
}
