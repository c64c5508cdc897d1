package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultMaxUploadBytes  = 5 << 20
	DefaultOpenRouterURL   = "https://openrouter.ai/api/v1"
	DefaultOpenRouterModel = "openai/gpt-4o-mini"
)

// Config holds application configuration.
type Config struct {
	Env             string
	Port            string
	CORSAllowOrigin []string
	MaxUploadBytes  int64

	DatabaseURL string

	ObjectStoreType   string
	LocalStoreDir     string
	S3Endpoint        string
	S3UseSSL          bool
	S3AccessKey       string
	S3SecretKey       string
	S3Bucket          string
	S3Prefix          string
	AWSRegion         string
	SSEKMSKeyID       string
	PresignTTLSeconds int

	LLMProvider       string
	LLMModel          string
	LLMAPIKey         string
	LLMBaseURL        string
	LLMTimeoutSeconds int
	LLMMaxRetries     int

	QueueBackend                string
	SQSQueueURL                 string
	RedisAddr                   string
	RedisPassword               string
	RedisDB                     int
	WorkerConcurrency           int
	SQSVisibilityTimeoutSeconds int
	ShutdownTimeoutSeconds      int

	DocumentCacheSize         int
	SingleInstance            bool
	RateLimitUploadPerMinute  int
	RateLimitAnalyzePerMinute int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files; real environment variables win.
	for _, file := range []string{".env", "cmd/.env"} {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			log.Printf("config: load %s: %v", file, err)
		}
	}

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := databaseURL()
	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	provider := normalizeProvider(getEnv("LLM_PROVIDER", "openrouter"))

	return Config{
		Env:             env,
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		MaxUploadBytes:  int64(getEnvInt("MAX_FILE_SIZE", DefaultMaxUploadBytes)),

		DatabaseURL: dbURL,

		ObjectStoreType:   normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:     getEnv("LOCAL_STORE_DIR", "./data"),
		S3Endpoint:        minioEndpoint(),
		S3UseSSL:          getEnvBool("MINIO_USE_SSL", false),
		S3AccessKey:       getEnv("MINIO_ACCESS_KEY", ""),
		S3SecretKey:       getEnv("MINIO_SECRET_KEY", ""),
		S3Bucket:          firstNonEmpty(os.Getenv("MINIO_BUCKET"), os.Getenv("S3_BUCKET"), "documents"),
		S3Prefix:          getEnv("S3_PREFIX", ""),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),
		SSEKMSKeyID:       getEnv("SSE_KMS_KEY_ID", ""),
		PresignTTLSeconds: getEnvInt("PRESIGN_TTL_SECONDS", 3600),

		LLMProvider:       provider,
		LLMModel:          llmModel(provider),
		LLMAPIKey:         llmAPIKey(provider),
		LLMBaseURL:        llmBaseURL(provider),
		LLMTimeoutSeconds: getEnvInt("LLM_TIMEOUT_SECONDS", 120),
		LLMMaxRetries:     getEnvInt("LLM_MAX_RETRIES", 0),

		QueueBackend:                normalizeQueueBackend(getEnv("QUEUE_BACKEND", "none")),
		SQSQueueURL:                 getEnv("SQS_QUEUE_URL", ""),
		RedisAddr:                   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:               getEnv("REDIS_PASSWORD", ""),
		RedisDB:                     getEnvInt("REDIS_DB", 0),
		WorkerConcurrency:           getEnvInt("WORKER_CONCURRENCY", 4),
		SQSVisibilityTimeoutSeconds: getEnvInt("SQS_VISIBILITY_TIMEOUT_SECONDS", 300),
		ShutdownTimeoutSeconds:      getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 30),

		DocumentCacheSize:         getEnvInt("DOCUMENT_CACHE_SIZE", 0),
		SingleInstance:            getEnvBool("SINGLE_INSTANCE", false),
		RateLimitUploadPerMinute:  getEnvInt("RATE_LIMIT_UPLOAD_PER_MINUTE", 30),
		RateLimitAnalyzePerMinute: getEnvInt("RATE_LIMIT_ANALYZE_PER_MINUTE", 20),
	}
}

// IsDevLike reports whether env tolerates missing infrastructure.
func (c Config) IsDevLike() bool {
	switch c.Env {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func databaseURL() string {
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		return dsn
	}
	host := strings.TrimSpace(os.Getenv("DATABASE_HOST"))
	if host == "" {
		return ""
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("DATABASE_USER", "postgres"), os.Getenv("DATABASE_PASSWORD")),
		Host:     host + ":" + getEnv("DATABASE_PORT", "5432"),
		Path:     "/" + getEnv("DATABASE_NAME", "doc_summarizer"),
		RawQuery: "sslmode=" + getEnv("DATABASE_SSLMODE", "disable"),
	}
	return u.String()
}

func minioEndpoint() string {
	endpoint := strings.TrimSpace(os.Getenv("MINIO_ENDPOINT"))
	if endpoint == "" {
		return ""
	}
	if strings.Contains(endpoint, "://") || strings.Contains(endpoint, ":") {
		return endpoint
	}
	return fmt.Sprintf("%s:%s", endpoint, getEnv("MINIO_PORT", "9000"))
}

func llmModel(provider string) string {
	if model := strings.TrimSpace(os.Getenv("LLM_MODEL")); model != "" {
		return model
	}
	switch provider {
	case "openrouter":
		return getEnv("OPENROUTER_MODEL", DefaultOpenRouterModel)
	case "openai":
		return "gpt-4o-mini"
	case "anthropic":
		return "claude-3-5-haiku-latest"
	case "gemini":
		return "gemini-2.0-flash"
	default:
		return ""
	}
}

func llmAPIKey(provider string) string {
	if key := strings.TrimSpace(os.Getenv("LLM_API_KEY")); key != "" {
		return key
	}
	switch provider {
	case "openrouter":
		return os.Getenv("OPENROUTER_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "gemini":
		return firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY"))
	default:
		return ""
	}
}

func llmBaseURL(provider string) string {
	if base := strings.TrimSpace(os.Getenv("LLM_BASE_URL")); base != "" {
		return base
	}
	if provider == "openrouter" {
		return DefaultOpenRouterURL
	}
	return ""
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config: %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return val
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return val
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "anthropic", "claude":
		return "anthropic"
	case "gemini", "google":
		return "gemini"
	default:
		return "openrouter"
	}
}

func normalizeQueueBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sqs":
		return "sqs"
	case "asynq", "redis":
		return "asynq"
	default:
		return "none"
	}
}
