package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/infra/config"
	"github.com/greenvalley/society-portal/internal/transport/http/handlers"
	"github.com/greenvalley/society-portal/internal/transport/http/middleware"
	"github.com/greenvalley/society-portal/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth               *usecase.AuthService
	Registration       *usecase.RegistrationService
	Approval           *usecase.ApprovalService
	Events             *usecase.EventService
	EventRegistrations *usecase.EventRegistrationService
	Notices            *usecase.NoticeService
	Buildings          *usecase.BuildingService
	Flats              *usecase.FlatService
	Vehicles           *usecase.VehicleService
	Directory          *usecase.DirectoryService
	Profiles           *usecase.ProfileService
	Activity           *usecase.ActivityService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	HTTPMetrics *middleware.HTTPMetrics
	Gatherer    prometheus.Gatherer
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Without an explicit list gin trusts every proxy, letting callers choose
	// their own ClientIP through X-Forwarded-For.
	if err := r.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		deps.Logger.Error("invalid trusted proxies, trusting none", zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery())
	if cfg.Telemetry.Enabled {
		r.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(deps.HTTPMetrics.Handler())
	if len(cfg.HTTP.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(cfg.HTTP.AllowedOrigins))
	}

	cookie := middleware.CookieOptions{
		Name:   cfg.HTTP.SessionCookie,
		Domain: cfg.HTTP.CookieDomain,
		Secure: cfg.HTTP.CookieSecure,
	}
	var resolver middleware.SessionResolver
	if deps.Services.Auth != nil {
		resolver = deps.Services.Auth
	}
	r.Use(middleware.Session(resolver, cookie, deps.Logger))
	r.Use(middleware.Guard(domain.AccessRules{
		AdminPrefix:     cfg.HTTP.AdminPrefix,
		DashboardPrefix: cfg.HTTP.DashboardPrefix,
	}, cfg.HTTP.LoginPath))

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(metricsHandler(deps.Gatherer)))

	svc := deps.Services
	authHandler := handlers.NewAuthHandler(svc.Auth, svc.Registration, svc.Buildings, cookie, deps.Logger)
	eventHandler := handlers.NewEventHandler(svc.Events, svc.EventRegistrations, deps.Logger)
	noticeHandler := handlers.NewNoticeHandler(svc.Notices, deps.Logger)
	residentHandler := handlers.NewResidentHandler(svc.Vehicles, svc.Directory, svc.Profiles, svc.Activity, deps.Logger)

	api := r.Group("/api/v1")
	{
		authHandler.RegisterRoutes(api.Group("/auth"),
			rateLimit(deps, "auth_login_ip", cfg.RateLimit.LoginMaxAttempts),
			rateLimit(deps, "auth_register_ip", cfg.RateLimit.RegisterMaxAttempts),
		)

		public := api.Group("/public")
		noticeHandler.RegisterPublicRoutes(public)
		eventHandler.RegisterPublicRoutes(public)
	}

	dashboard := r.Group(cfg.HTTP.DashboardPrefix)
	{
		noticeHandler.RegisterDashboardRoutes(dashboard)
		eventHandler.RegisterDashboardRoutes(dashboard)
		residentHandler.RegisterDashboardRoutes(dashboard)
	}

	admin := r.Group(cfg.HTTP.AdminPrefix)
	{
		handlers.NewAdminUserHandler(svc.Approval, deps.Logger).RegisterRoutes(admin)
		handlers.NewPropertyHandler(svc.Buildings, svc.Flats, deps.Logger).RegisterRoutes(admin)
		eventHandler.RegisterAdminRoutes(admin)
		noticeHandler.RegisterAdminRoutes(admin)
		residentHandler.RegisterAdminRoutes(admin)
	}

	return r
}

func metricsHandler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func rateLimit(deps Dependencies, name string, limit int) []gin.HandlerFunc {
	if deps.RateLimiter == nil || limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	})}
}
