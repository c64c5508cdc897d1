package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docsum-backend/internal/documents"
	"docsum-backend/internal/services/health"
	"docsum-backend/internal/shared/config"
	"docsum-backend/internal/shared/metrics"
	"docsum-backend/internal/shared/server/middleware"
	"docsum-backend/internal/shared/server/respond"
)

const (
	uploadRoute  = "/api/v1/documents/upload"
	analyzeRoute = "/api/v1/documents/:id/analyze"
)

// Deps are the handlers and services the router exposes.
type Deps struct {
	Documents *documents.Handler
	Health    *health.Service
	Limiter   *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				middleware.RateLimitGroupUpload:  middleware.PerMinute(cfg.RateLimitUploadPerMinute),
				middleware.RateLimitGroupAnalyze: middleware.PerMinute(cfg.RateLimitAnalyzePerMinute),
			},
			GroupFor: rateLimitGroup,
			Limiter:  deps.Limiter,
		}),
	)

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService()
	}

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.OK(c, healthSvc.Status())
	})
	api.GET("/ready", func(c *gin.Context) {
		report := healthSvc.Ready(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})
	if deps.Documents != nil {
		deps.Documents.RegisterRoutes(api)
	}

	return r
}

func rateLimitGroup(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return ""
	}
	switch c.FullPath() {
	case uploadRoute:
		return middleware.RateLimitGroupUpload
	case analyzeRoute:
		return middleware.RateLimitGroupAnalyze
	default:
		return ""
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
