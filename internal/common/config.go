package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all application configuration. Every field is read from the
// environment; the standalone server additionally loads a .env file first.
type Config struct {
	Server    ServerConfig
	LLM       LLMConfig
	Extract   ExtractConfig
	Reconcile ReconcileConfig
	GCP       GCPConfig
}

// ServerConfig holds inbound request settings.
type ServerConfig struct {
	Port               string `validate:"required,numeric"`
	SharedSecret       string
	MaxUploadBytes     int64 `validate:"gt=0"`
	IncludeRawResponse bool
}

// LLMConfig selects and configures the content-understanding provider.
type LLMConfig struct {
	Provider    string `validate:"oneof=openai gemini claude vertex"`
	APIKey      string `validate:"required_unless=Provider vertex"`
	Model       string
	BaseURL     string `validate:"omitempty,url"`
	Temperature float32
	MaxTokens   int           `validate:"gte=0"`
	Timeout     time.Duration `validate:"gt=0"`
}

// ExtractConfig tunes the content extractor.
type ExtractConfig struct {
	MinTextChars int `validate:"gte=0"`
	MaxImageEdge int `validate:"gt=0"`
	JPEGQuality  int `validate:"gte=1,lte=100"`
}

// ReconcileConfig selects how page-range violations are handled.
type ReconcileConfig struct {
	Policy string `validate:"oneof=trust strict repair"`
}

// GCPConfig holds the optional Google Cloud persistence settings. Empty
// buckets or collections disable the matching component.
type GCPConfig struct {
	ProjectID            string `validate:"required_if=Provider vertex"`
	VertexAIRegion       string
	ArchiveBucket        string
	ResultsBucket        string
	SplitDocumentsBucket string
	FirestoreCollection  string
	WorkflowID           string
	WorkflowLocation     string

	// Provider mirrors LLMConfig.Provider so required_if can see it.
	Provider string `validate:"-"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	provider := strings.ToLower(GetEnv("LLM_PROVIDER", "openai"))
	return &Config{
		Server: ServerConfig{
			Port:               GetEnv("PORT", "3000"),
			SharedSecret:       firstEnv("SHARED_SECRET", "SECRET_KEY"),
			MaxUploadBytes:     getEnvAsInt64("MAX_UPLOAD_BYTES", 10*1024*1024),
			IncludeRawResponse: getEnvAsBool("INCLUDE_RAW_RESPONSE", true),
		},
		LLM: LLMConfig{
			Provider:    provider,
			APIKey:      firstEnv("API_KEY", apiKeyAlias(provider)),
			Model:       GetEnv("LLM_MODEL", defaultModel(provider)),
			BaseURL:     GetEnv("LLM_BASE_URL", ""),
			Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0),
			MaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 4096),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		},
		Extract: ExtractConfig{
			MinTextChars: getEnvAsInt("MIN_TEXT_CHARS", 50),
			MaxImageEdge: getEnvAsInt("IMAGE_MAX_EDGE", 1500),
			JPEGQuality:  getEnvAsInt("IMAGE_JPEG_QUALITY", 85),
		},
		Reconcile: ReconcileConfig{
			Policy: strings.ToLower(GetEnv("BOUNDARY_POLICY", "repair")),
		},
		GCP: GCPConfig{
			ProjectID:            firstEnv("PROJECT_ID", "GOOGLE_CLOUD_PROJECT"),
			VertexAIRegion:       GetEnv("VERTEX_AI_REGION", "us-central1"),
			ArchiveBucket:        GetEnv("ARCHIVE_BUCKET", ""),
			ResultsBucket:        GetEnv("RESULTS_BUCKET", ""),
			SplitDocumentsBucket: GetEnv("SPLIT_DOCUMENTS_BUCKET", ""),
			FirestoreCollection:  GetEnv("FIRESTORE_COLLECTION", ""),
			WorkflowID:           GetEnv("WORKFLOW_ID", ""),
			WorkflowLocation:     GetEnv("WORKFLOW_LOCATION", "us-central1"),
			Provider:             provider,
		},
	}
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return NewError(KindInternal, "invalid configuration", err)
	}
	return nil
}

// ValidateServer checks the configuration of an HTTP-serving process, which
// additionally needs the shared bearer secret.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Server.SharedSecret == "" {
		return NewError(KindInternal, "invalid configuration", fmt.Errorf("SHARED_SECRET (or SECRET_KEY) must be set"))
	}
	return nil
}

func defaultModel(provider string) string {
	switch provider {
	case "gemini", "vertex":
		return "gemini-2.0-flash"
	case "claude":
		return "claude-sonnet-4-5"
	default:
		return "gpt-4o"
	}
}

func apiKeyAlias(provider string) string {
	switch provider {
	case "gemini":
		return "GOOGLE_API_KEY"
	case "claude":
		return "ANTHROPIC_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// String renders the non-secret parts of the configuration for startup logs.
func (c *Config) String() string {
	return fmt.Sprintf("provider=%s model=%s timeout=%s policy=%s port=%s",
		c.LLM.Provider, c.LLM.Model, c.LLM.Timeout, c.Reconcile.Policy, c.Server.Port)
}
