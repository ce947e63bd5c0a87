package router

import (
	"net/http"
	"slices"
	"time"

	"github.com/buildtrack/backend/internal/infrastructure/config"
	"github.com/buildtrack/backend/internal/infrastructure/logger"
	"github.com/buildtrack/backend/internal/interfaces/http/handler"
	"github.com/buildtrack/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// EngineConfig holds the settings that shape the gin engine
type EngineConfig struct {
	CORS           middleware.CORSConfig
	Tracing        middleware.TracingConfig
	Profiling      middleware.ProfilingConfig
	// MaxBodySize is applied per route group, after the method check.
	MaxBodySize    int64
	TrustedProxies []string

	// Meter records HTTP metrics when set.
	Meter metric.Meter
	// RateLimiter throttles each client when set; the caller closes it.
	RateLimiter *middleware.RateLimiter
}

// EngineConfigFrom maps application configuration onto EngineConfig
func EngineConfigFrom(cfg *config.Config) EngineConfig {
	cors := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	cors.MaxAge = 12 * time.Hour

	return EngineConfig{
		CORS: cors,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		Profiling: middleware.ProfilingConfig{
			Enabled:   cfg.Telemetry.Profiling.Enabled,
			SkipPaths: middleware.DefaultProfilingConfig().SkipPaths,
		},
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	}
}

// RouteMiddleware is the middleware API route groups run after their method check
func (cfg EngineConfig) RouteMiddleware() []gin.HandlerFunc {
	return []gin.HandlerFunc{middleware.BodyLimit(cfg.MaxBodySize)}
}

// NewEngine creates a gin engine with the middleware chain every route shares.
// Rate limiting runs after CORS so preflight requests are never throttled.
func NewEngine(cfg EngineConfig, log *zap.Logger) *gin.Engine {
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Warn("Invalid trusted proxies, trusting none", zap.Error(err))
		_ = engine.SetTrustedProxies(nil)
	}
	engine.HandleMethodNotAllowed = true

	engine.Use(middleware.RequestID())
	engine.Use(middleware.TracingWithConfig(cfg.Tracing))
	engine.Use(middleware.SpanEnricher())
	engine.Use(middleware.HTTPMetrics(cfg.Meter))
	engine.Use(middleware.ProfilingWithConfig(cfg.Profiling))
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(cfg.CORS))
	if cfg.RateLimiter != nil {
		engine.Use(middleware.RateLimit(cfg.RateLimiter, log))
	}

	base := &handler.BaseHandler{}
	engine.NoRoute(func(c *gin.Context) {
		base.NotFound(c, "Not found")
	})
	engine.NoMethod(func(c *gin.Context) {
		base.MethodNotAllowed(c, routeMethods(engine, c.Request.URL.Path)...)
	})

	return engine
}

// routeMethods lists the methods registered for path, for the Allow header
func routeMethods(engine *gin.Engine, path string) []string {
	var methods []string
	for _, r := range engine.Routes() {
		if r.Path == path && !slices.Contains(methods, r.Method) {
			methods = append(methods, r.Method)
		}
	}
	slices.Sort(methods)
	return methods
}

// ResourceRoutes builds the GET-only /db group with one route per resource name.
// Other methods get 405 before mw (such as the body limit) runs.
func ResourceRoutes(h *handler.ResourceHandler, mw []gin.HandlerFunc, names ...string) *ResourceGroup {
	group := NewResourceGroup("/db").Allow(http.MethodGet).Use(mw...)
	for _, name := range names {
		group.Handle("/"+name, h.Serve(name))
	}
	return group
}
