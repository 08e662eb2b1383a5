package core

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// BytesPerMB converts MAX_UPLOAD_MB.
const BytesPerMB int64 = 1 << 20

// LLM provider identifiers accepted by LLM_PROVIDER.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds all configuration values
type Config struct {
	// Server Configuration
	Host            string
	Port            int
	WebUIPassword   string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration

	// Filesystem layout
	UploadDir    string // Temporary upload location
	OutputDir    string // Per-document outputs: table exports and JSON results
	StorageDir   string // Generated workbooks tracked by the file store
	DatabasePath string // SQLite file holding file metadata

	// Company mapping configuration (empty = embedded defaults)
	CompanyConfigPath string

	// Table conversion service (empty URL = local layout extraction)
	ConverterURL     string
	ConverterAPIKey  string
	ConverterTimeout time.Duration

	// Google Vision OCR for scanned pages (optional)
	GoogleVisionKey string

	// LLM Configuration
	LLMProvider      string
	OpenAIAPIKey     string
	OpenAIAPIBaseURL string
	OpenAIModel      string
	GeminiAPIKey     string
	GeminiModel      string
	AITimeout        time.Duration

	// File retention
	FileRetentionDays int
	CleanupInterval   time.Duration

	// Logging
	DevMode  bool
	LogLevel string
	LogFile  string
}

// LoadConfig reads configuration from the environment.
// Call godotenv.Load before LoadConfig to pick up a .env file.
func LoadConfig() (*Config, error) {
	port := ParseIntEnv("PORT", 5000)
	if port < 1 || port > 65535 {
		return nil, ErrInvalidValue("PORT", fmt.Sprintf("%d", port), "must be between 1 and 65535")
	}

	maxUploadMB := ParseInt64Env("MAX_UPLOAD_MB", 50)
	if maxUploadMB <= 0 {
		return nil, ErrInvalidValue("MAX_UPLOAD_MB", fmt.Sprintf("%d", maxUploadMB), "must be positive")
	}

	provider := strings.ToLower(GetEnvOrDefault("LLM_PROVIDER", ProviderOpenAI))
	if provider != ProviderOpenAI && provider != ProviderGemini {
		return nil, ErrInvalidValue("LLM_PROVIDER", provider, "must be 'openai' or 'gemini'")
	}

	openAIKey := os.Getenv("OPENAI_API_KEY")
	if openAIKey == "" {
		openAIKey = os.Getenv("OPENAI_KEY") // Legacy support
	}

	configPath := os.Getenv("COMPANY_CONFIG_PATH")
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, ErrConfigFileMissing(configPath)
		}
	}

	cfg := &Config{
		Host:            GetEnvOrDefault("HOST", "0.0.0.0"),
		Port:            port,
		WebUIPassword:   os.Getenv("WEBUI_PASSWORD"),
		MaxUploadBytes:  maxUploadMB * BytesPerMB,
		ShutdownTimeout: ParseDurationEnv("SHUTDOWN_TIMEOUT", 30),

		UploadDir:    GetEnvOrDefault("UPLOAD_DIR", "uploads"),
		OutputDir:    GetEnvOrDefault("OUTPUT_DIR", "output"),
		StorageDir:   GetEnvOrDefault("STORAGE_DIR", "generated_files"),
		DatabasePath: GetEnvOrDefault("DATABASE_PATH", filepath.Join("data", "finparser.db")),

		CompanyConfigPath: configPath,

		ConverterURL:     strings.TrimRight(os.Getenv("CONVERTER_URL"), "/"),
		ConverterAPIKey:  os.Getenv("CONVERTER_API_KEY"),
		ConverterTimeout: ParseDurationEnv("CONVERTER_TIMEOUT", 300),

		GoogleVisionKey: os.Getenv("GOOGLE_VISION_API_KEY"),

		LLMProvider:      provider,
		OpenAIAPIKey:     openAIKey,
		OpenAIAPIBaseURL: os.Getenv("OPENAI_API_BASE_URL"),
		OpenAIModel:      GetEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      GetEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		AITimeout:        ParseDurationEnv("AI_TIMEOUT", 120),

		FileRetentionDays: ParseIntEnv("FILE_RETENTION_DAYS", 30),
		CleanupInterval:   ParseDurationEnv("CLEANUP_INTERVAL", 3600),

		DevMode:  ParseBoolEnv("DEV_MODE", false),
		LogLevel: GetEnvOrDefault("LOG_LEVEL", ""),
		LogFile:  GetEnvOrDefault("LOG_FILE", "finparser.log"),
	}

	return cfg, nil
}

// HasLLM reports whether the configured LLM provider has credentials.
// Without them the AI extraction endpoints are disabled.
func (c *Config) HasLLM() bool {
	switch c.LLMProvider {
	case ProviderGemini:
		return c.GeminiAPIKey != ""
	default:
		return c.OpenAIAPIKey != ""
	}
}

// HasConverter reports whether an external table conversion service is configured.
func (c *Config) HasConverter() bool {
	return c.ConverterURL != ""
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// EnsureDirectories creates the upload, output and storage directories
// along with the database parent directory.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.UploadDir, c.OutputDir, c.StorageDir, filepath.Dir(c.DatabasePath)}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetHTTPClient returns an HTTP client with the given timeout.
// A zero timeout means no client-side timeout.
func GetHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}
