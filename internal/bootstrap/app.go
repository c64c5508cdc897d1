package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"docsum-backend/internal/analysis"
	"docsum-backend/internal/documents"
	"docsum-backend/internal/llm"
	anthropicllm "docsum-backend/internal/llm/anthropic"
	geminillm "docsum-backend/internal/llm/gemini"
	openaillm "docsum-backend/internal/llm/openai"
	"docsum-backend/internal/queue"
	"docsum-backend/internal/services/health"
	"docsum-backend/internal/shared/config"
	"docsum-backend/internal/shared/server"
	"docsum-backend/internal/shared/storage/db"
	"docsum-backend/internal/shared/storage/object"
	localstore "docsum-backend/internal/shared/storage/object/local"
	s3store "docsum-backend/internal/shared/storage/object/s3"
)

// App holds shared dependencies.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sql.DB
	Redis            *redis.Client
	Store            object.ObjectStore
	Queue            queue.Client
	LLM              llm.Client
	DocumentsRepo    documents.DocumentsRepo
	DocumentsService *documents.Service
	DocumentsHandler *documents.Handler
	Health           *health.Service

	closers []func() error
}

// Build prepares dependencies for the API server.
func Build(cfg config.Config) (*App, error) {
	return build(cfg, db.DefaultServerOptions())
}

// BuildWorker prepares dependencies for a queue worker, sizing the database
// pool to the worker concurrency.
func BuildWorker(cfg config.Config) (*App, error) {
	return build(cfg, db.DefaultWorkerOptions(cfg.WorkerConcurrency))
}

func build(cfg config.Config, dbOpts db.Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()
	app := &App{Config: cfg, Health: health.NewService()}

	sqlDB, err := buildDB(ctx, cfg, dbOpts)
	if err != nil {
		return nil, err
	}
	if sqlDB != nil {
		app.DB = sqlDB
		app.closers = append(app.closers, sqlDB.Close)
		app.Health.Register("database", health.Database(sqlDB))
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Queue = queueClient
	if closer, ok := queueClient.(interface{ Close() error }); ok {
		app.closers = append(app.closers, closer.Close)
	}
	if cfg.QueueBackend == "asynq" {
		app.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		app.closers = append(app.closers, app.Redis.Close)
		app.Health.Register("redis", health.Redis(app.Redis))
	}

	llmClient, err := NewLLMClient(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.LLM = llm.WithRetry(llmClient, cfg.LLMMaxRetries, llm.DefaultRetryBaseDelay)

	if err := buildServices(app); err != nil {
		app.Close()
		return nil, err
	}

	app.Router = server.NewRouter(cfg, server.Deps{
		Documents: app.DocumentsHandler,
		Health:    app.Health,
	})

	return app, nil
}

// Close releases database, Redis and queue connections.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config, opts db.Options) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(opts))
	if err != nil {
		if cfg.IsDevLike() {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	// Deployed environments migrate through cmd/migrate.
	if cfg.IsDevLike() {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3", "minio":
		if cfg.ObjectStoreType == "minio" && strings.TrimSpace(cfg.S3Endpoint) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=minio requires MINIO_ENDPOINT")
		}
		store, err := s3store.New(ctx, s3store.Options{
			Endpoint:    cfg.S3Endpoint,
			UseSSL:      cfg.S3UseSSL,
			Region:      cfg.AWSRegion,
			Bucket:      cfg.S3Bucket,
			Prefix:      cfg.S3Prefix,
			AccessKey:   cfg.S3AccessKey,
			SecretKey:   cfg.S3SecretKey,
			SSEKMSKeyID: cfg.SSEKMSKeyID,
		})
		if err != nil {
			return nil, err
		}
		ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := store.EnsureBucket(ensureCtx); err != nil {
			return nil, fmt.Errorf("ensure bucket %s: %w", cfg.S3Bucket, err)
		}
		return store, nil
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	switch cfg.QueueBackend {
	case "sqs":
		client, err := queue.NewSQSClient(ctx, cfg.SQSQueueURL, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "asynq":
		return queue.NewAsynqClient(queue.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}), nil
	default:
		return nil, nil
	}
}

// NewLLMClient builds the text-generation client for the configured provider.
// A missing API key yields llm.Unconfigured.
func NewLLMClient(cfg config.Config) (llm.Client, error) {
	if strings.TrimSpace(cfg.LLMAPIKey) == "" {
		log.Printf("bootstrap: no API key for LLM provider %s; analysis will fail until configured", cfg.LLMProvider)
		return llm.Unconfigured{Provider: cfg.LLMProvider}, nil
	}
	timeout := time.Duration(cfg.LLMTimeoutSeconds) * time.Second

	switch cfg.LLMProvider {
	case "anthropic":
		return anthropicllm.NewClient(anthropicllm.Options{
			APIKey:  cfg.LLMAPIKey,
			Model:   cfg.LLMModel,
			BaseURL: cfg.LLMBaseURL,
			Timeout: timeout,
		})
	case "gemini":
		return geminillm.NewClient(geminillm.Options{
			APIKey:  cfg.LLMAPIKey,
			Model:   cfg.LLMModel,
			BaseURL: cfg.LLMBaseURL,
		})
	default:
		return openaillm.NewClient(openaillm.Options{
			APIKey:   cfg.LLMAPIKey,
			Model:    cfg.LLMModel,
			BaseURL:  cfg.LLMBaseURL,
			Timeout:  timeout,
			JSONMode: cfg.LLMProvider == "openai",
		})
	}
}

func buildServices(app *App) error {
	var docRepo documents.DocumentsRepo
	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
	} else {
		docRepo = documents.NewMemoryRepo()
	}
	cached, err := documents.NewCachedRepo(docRepo, recordCacheSize(app.Config, app.DB != nil, app.Queue != nil))
	if err != nil {
		return fmt.Errorf("document cache: %w", err)
	}

	docSvc := &documents.Service{
		Store:          app.Store,
		Repo:           cached,
		Analyzer:       analysis.NewEngine(app.LLM),
		Queue:          app.Queue,
		MaxUploadBytes: app.Config.MaxUploadBytes,
		PresignTTL:     time.Duration(app.Config.PresignTTLSeconds) * time.Second,
	}

	app.DocumentsRepo = cached
	app.DocumentsService = docSvc
	app.DocumentsHandler = documents.NewHandler(docSvc)
	return nil
}

// recordCacheSize returns the LRU size for record lookups. A shared database
// is written by other API instances and workers, so the cache is only allowed
// in front of it when the operator declares a single instance and no queue
// workers exist.
func recordCacheSize(cfg config.Config, hasDB, hasQueue bool) int {
	if cfg.DocumentCacheSize <= 0 {
		return 0
	}
	if hasDB && (!cfg.SingleInstance || hasQueue) {
		return 0
	}
	return cfg.DocumentCacheSize
}
