// ABOUTME: Centralized configuration for the halal food finder service
// ABOUTME: Loads from environment variables (and .env files) with validation and defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

// Index backends
const (
	BackendPinecone = "pinecone"
	BackendLocal    = "local"
)

// Config holds all configuration for the service
type Config struct {
	// OpenAI settings
	OpenAIKey      string
	OpenAIBaseURL  string
	ChatModel      string
	EmbeddingModel string

	// Vector index settings
	IndexBackend      string
	PineconeKey       string
	PineconeIndex     string
	PineconeNamespace string

	// Charm settings (local index backend)
	CharmHost   string
	CharmDBName string
	AutoSync    bool

	// Retrieval settings. The match count is fixed by the pipeline.
	MinScore float64

	// Stage limits
	EmbedTimeout      time.Duration
	RetrieveTimeout   time.Duration
	StreamOpenTimeout time.Duration
	StreamIdleTimeout time.Duration

	// Ingest settings
	IngestMaxRetries int
	IngestRetryDelay time.Duration

	// HTTP settings
	Addr string
}

// LoadEnvFiles loads .env from the working directory and from
// $XDG_CONFIG_HOME/ummati/.env. Existing environment variables win.
// Returns the files that were loaded.
func LoadEnvFiles() []string {
	var loaded []string
	for _, path := range envFilePaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err == nil {
			loaded = append(loaded, path)
		}
	}
	return loaded
}

func envFilePaths() []string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = xdg.ConfigHome
	}
	return []string{
		".env",
		filepath.Join(configHome, "ummati", ".env"),
	}
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:     os.Getenv("OPENAI_BASE_URL"),
		ChatModel:         getEnv("UMMATI_CHAT_MODEL", "gpt-4"),
		EmbeddingModel:    getEnv("UMMATI_EMBEDDING_MODEL", "text-embedding-3-small"),
		IndexBackend:      getEnv("INDEX_BACKEND", BackendPinecone),
		PineconeKey:       os.Getenv("PINECONE_API_KEY"),
		PineconeIndex:     getEnv("PINECONE_INDEX", "rag"),
		PineconeNamespace: getEnv("PINECONE_NAMESPACE", "ns1"),
		CharmHost:         getEnv("CHARM_HOST", "cloud.charm.sh"),
		CharmDBName:       getEnv("CHARM_DB", "ummati"),
		AutoSync:          getEnvBool("CHARM_AUTO_SYNC", true),
		MinScore:          getEnvFloat("UMMATI_MIN_SCORE", 0),
		EmbedTimeout:      getEnvDuration("UMMATI_EMBED_TIMEOUT", 15*time.Second),
		RetrieveTimeout:   getEnvDuration("UMMATI_RETRIEVE_TIMEOUT", 10*time.Second),
		StreamOpenTimeout: getEnvDuration("UMMATI_STREAM_OPEN_TIMEOUT", 30*time.Second),
		StreamIdleTimeout: getEnvDuration("UMMATI_STREAM_IDLE_TIMEOUT", 60*time.Second),
		IngestMaxRetries:  getEnvInt("INGEST_MAX_RETRIES", 3),
		IngestRetryDelay:  getEnvDuration("INGEST_RETRY_DELAY", 2*time.Second),
		Addr:              getEnv("UMMATI_ADDR", ":8080"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks ranges and enumerations. Load already calls it; callers
// that change a loaded Config call it again.
func (c *Config) Validate() error {
	if c.MinScore < 0 || c.MinScore > 1 {
		return fmt.Errorf("UMMATI_MIN_SCORE must be 0-1, got %f", c.MinScore)
	}
	if c.IndexBackend != BackendPinecone && c.IndexBackend != BackendLocal {
		return fmt.Errorf("INDEX_BACKEND must be %q or %q, got %q", BackendPinecone, BackendLocal, c.IndexBackend)
	}
	if c.IngestMaxRetries < 0 || c.IngestMaxRetries > 10 {
		return fmt.Errorf("INGEST_MAX_RETRIES must be 0-10, got %d", c.IngestMaxRetries)
	}
	for name, d := range map[string]time.Duration{
		"UMMATI_EMBED_TIMEOUT":       c.EmbedTimeout,
		"UMMATI_RETRIEVE_TIMEOUT":    c.RetrieveTimeout,
		"UMMATI_STREAM_OPEN_TIMEOUT": c.StreamOpenTimeout,
		"UMMATI_STREAM_IDLE_TIMEOUT": c.StreamIdleTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, d)
		}
	}
	return nil
}

// RequireOpenAI returns an error when no OpenAI key is configured
func (c *Config) RequireOpenAI() error {
	if c.OpenAIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
