package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/terra-tranquil-api/internal/config"
	"github.com/iliyamo/terra-tranquil-api/internal/handler"
	"github.com/iliyamo/terra-tranquil-api/internal/logger"
	"github.com/iliyamo/terra-tranquil-api/internal/middleware"
	"github.com/iliyamo/terra-tranquil-api/internal/service"
)

// Deps carries everything the routes need.  Redis may be nil, in which
// case caching and rate limiting are skipped.
type Deps struct {
	Directory *service.Directory
	Impact    *service.ImpactService
	Store     handler.StoreInfo
	Redis     *redis.Client
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Log       *logger.Logger
}

// New builds an Echo instance with the shared middleware stack and every
// route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(d.Log)

	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(middleware.Metrics())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"*"},
	}))

	RegisterRoutes(e, d)
	RegisterDirectory(e, d)
	RegisterImpact(e, d)
	return e
}

// RegisterRoutes registers the service-level endpoints: identity, liveness,
// schema, store diagnostics and Prometheus metrics.
func RegisterRoutes(e *echo.Echo, d Deps) {
	diag := &handler.DiagnosticsHandler{Store: d.Store, Log: d.Log}
	e.GET("/", handler.Root)
	e.GET("/healthz", handler.Health)
	e.GET("/schema", handler.Schema)
	e.GET("/test", diag.Test)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterDirectory registers business directory routes.  Reads go through
// the Redis response cache; a successful registration purges it.
func RegisterDirectory(e *echo.Echo, d Deps) {
	h := &handler.DirectoryHandler{Dir: d.Directory, Log: d.Log}
	cache := middleware.NewRedisCache(d.Cache, d.Redis, d.Log)

	g := e.Group("/api/businesses")
	g.GET("", h.List, cache)
	g.GET("/:id", h.Get, cache)
	g.POST("", h.Register, middleware.InvalidateCache(d.Cache, d.Redis, d.Log))
}

// RegisterImpact registers visit logging and per-user impact routes.
// Impact reads are never cached; visit logging is rate limited.
func RegisterImpact(e *echo.Echo, d Deps) {
	h := &handler.ImpactHandler{Impact: d.Impact, Log: d.Log}

	e.POST("/api/visits", h.LogVisit, middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log))
	u := e.Group("/api/users/:user_id")
	u.GET("/impact", h.GetImpact)
	u.GET("/visits", h.ListVisits)
}
