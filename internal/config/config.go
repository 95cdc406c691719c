package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port       string
	Env        string
	LogVerbose bool

	PostgresDSN    string
	MongoURI       string
	MongoDB        string
	RedisAddr      string
	RedisPassword  string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	LaTeXServiceURL string
	AllowedOrigins  []string
	EmailPattern    string

	LLM LLMConfig

	OpenAlexEmail string
	SectionDelay  time.Duration
	RetryDelay    time.Duration
	RunTTL        time.Duration
}

// LLMConfig selects and configures the completion backends.
type LLMConfig struct {
	Provider     string // openai or gemini
	BaseURL      string
	APIKey       string
	FastModel    string
	ContentModel string
	ImageModel   string
	Timeout      time.Duration
	Referer      string
	Title        string
}

// Load reads the environment, after merging a .env file when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:       getenv("PORT", "8080"),
		Env:        getenv("APP_ENV", "production"),
		LogVerbose: getbool("LOG_VERBOSE", false),

		PostgresDSN:    getenv("POSTGRES_DSN", ""),
		MongoURI:       getenv("MONGO_URI", ""),
		MongoDB:        getenv("MONGO_DB", "capstone"),
		RedisAddr:      getenv("REDIS_ADDR", "redis:6379"),
		RedisPassword:  getenv("REDIS_PASSWORD", ""),
		MinioEndpoint:  getenv("MINIO_ENDPOINT", "minio:9000"),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "capstone-reports"),
		MinioUseSSL:    getbool("MINIO_USE_SSL", false),

		LaTeXServiceURL: getenv("LATEX_SERVICE_URL", "http://latex-service:8001"),
		AllowedOrigins:  getlist("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		EmailPattern:    os.Getenv("ALLOWED_EMAIL_PATTERN"),

		LLM: LLMConfig{
			Provider:     strings.ToLower(getenv("LLM_PROVIDER", "openai")),
			BaseURL:      getenv("LLM_BASE_URL", ""),
			APIKey:       getenv("LLM_API_KEY", ""),
			FastModel:    getenv("LLM_FAST_MODEL", "google/gemini-2.0-flash-001"),
			ContentModel: getenv("LLM_CONTENT_MODEL", "anthropic/claude-3.5-sonnet"),
			ImageModel:   getenv("IMAGE_MODEL", ""),
			Timeout:      getduration("LLM_TIMEOUT", 120*time.Second),
			Referer:      getenv("LLM_REFERER", ""),
			Title:        getenv("LLM_APP_TITLE", "Capstone Report Generator"),
		},

		OpenAlexEmail: getenv("OPENALEX_EMAIL", ""),
		SectionDelay:  getduration("SECTION_DELAY", 1500*time.Millisecond),
		RetryDelay:    getduration("RETRY_DELAY", 2*time.Second),
		RunTTL:        getduration("RUN_TTL", 24*time.Hour),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getbool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getduration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func getlist(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
