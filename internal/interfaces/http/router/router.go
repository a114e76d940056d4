// Package router assembles the gin engine.
package router

import (
	"net/http"
	"time"

	"github.com/catalogmirror/backend/internal/domain/shared"
	"github.com/catalogmirror/backend/internal/infrastructure/auth"
	"github.com/catalogmirror/backend/internal/infrastructure/logger"
	"github.com/catalogmirror/backend/internal/interfaces/http/handler"
	"github.com/catalogmirror/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Config holds engine wiring
type Config struct {
	ServiceName    string
	Logger         *zap.Logger
	Verifier       *auth.TokenVerifier // nil reads X-Organization-ID
	Health         *handler.HealthHandler
	Metrics        http.Handler // nil disables /metrics
	TrustedProxies []string
	MaxBodyBytes   int64
	Idempotency    shared.IdempotencyStore // nil disables Idempotency-Key checks
	IdempotencyTTL time.Duration
	Registrars     []RouteRegistrar
}

// New builds the engine: otelgin and request logging for every route,
// organization scoping for /api/v1.
func New(cfg Config) (*gin.Engine, error) {
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(cfg.Logger),
		otelgin.Middleware(cfg.ServiceName, otelgin.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		})),
		logger.GinMiddleware(cfg.Logger),
	)

	if cfg.Health != nil {
		engine.GET("/health", cfg.Health.Health)
	}
	if cfg.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	api := engine.Group("/api/v1",
		middleware.BodyLimit(cfg.MaxBodyBytes),
		middleware.OrganizationScope(middleware.ScopeConfig{Verifier: cfg.Verifier, Logger: cfg.Logger}),
		middleware.SpanScope(),
		middleware.Idempotency(cfg.Idempotency, cfg.IdempotencyTTL, cfg.Logger),
	)
	for _, r := range cfg.Registrars {
		r.RegisterRoutes(api)
	}
	return engine, nil
}
