package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ehevelone/vitalink-app/internal/core/domain"
	"github.com/ehevelone/vitalink-app/internal/infra/config"
	"github.com/ehevelone/vitalink-app/internal/transport/http/handlers"
	"github.com/ehevelone/vitalink-app/internal/transport/http/middleware"
	"github.com/ehevelone/vitalink-app/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Login         *usecase.LoginService
	Sessions      *usecase.SessionService
	PasswordReset *usecase.PasswordResetService
	Onboarding    *usecase.OnboardingService
	TOTP          *usecase.TOTPService
	Devices       *usecase.DeviceService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
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
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))

	if len(deps.Config.CORS.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(deps.Config.CORS.AllowedOrigins))
	}

	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	sessionMiddleware := middleware.RequireSession(deps.Services.Sessions)

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

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")

		authHandler := handlers.NewAuthHandler(deps.Services.Login)
		authHandler.RegisterRoutes(authGroup, buildLoginMiddlewares(deps)...)

		passwordHandler := handlers.NewPasswordHandler(deps.Services.PasswordReset)
		passwordHandler.RegisterRoutes(authGroup, buildPasswordResetMiddlewares(deps)...)

		totpHandler := handlers.NewTOTPHandler(deps.Services.TOTP)
		totpGroup := authGroup.Group("")
		totpGroup.Use(sessionMiddleware)
		totpHandler.RegisterRoutes(totpGroup)

		onboardingHandler := handlers.NewOnboardingHandler(deps.Services.Onboarding)
		onboardingGroup := api.Group("/onboarding")
		onboardingHandler.RegisterPublicRoutes(onboardingGroup)

		inviteGroup := onboardingGroup.Group("")
		inviteGroup.Use(sessionMiddleware, middleware.RequireKind(domain.KindAdministrator))
		onboardingHandler.RegisterInviteRoutes(inviteGroup)

		deviceHandler := handlers.NewDeviceHandler(deps.Services.Devices)
		deviceHandler.RegisterRoutes(api.Group("/devices"))
	}

	return r
}

func buildLoginMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := deps.Config.RateLimit.LoginMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       "auth_login_ip",
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}

func buildPasswordResetMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := deps.Config.RateLimit.ResetMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Hour
	}

	rule := middleware.RateLimitRule{
		Name:       "password_reset_ip",
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
