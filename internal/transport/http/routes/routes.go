package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fk00750/authguard/internal/core/port"
	"github.com/fk00750/authguard/internal/infra/config"
	"github.com/fk00750/authguard/internal/infra/security"
	"github.com/fk00750/authguard/internal/transport/http/handlers"
	"github.com/fk00750/authguard/internal/transport/http/middleware"
	"github.com/fk00750/authguard/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	TwoFactor    *usecase.TwoFactorService
	Registration *usecase.RegistrationService
	Password     *usecase.PasswordService
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config    *config.AppConfig
	Logger    *zap.Logger
	Services  ServiceSet
	Verifier  *security.TokenVerifier
	RateLimit port.RateLimitStore
	Metrics   *middleware.HTTPMetrics
	Database  DatabaseChecker
	Cache     CacheChecker
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
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	accessGate := middleware.RequireAccess(deps.Verifier)
	refreshGate := middleware.RequireRefresh(deps.Verifier)

	stores := make(map[string]handlers.Pinger, 2)
	if deps.Database != nil {
		stores["database"] = deps.Database
	}
	if deps.Cache != nil {
		stores["redis"] = pingAdapter(deps.Cache.HealthCheck)
	}

	healthHandler := handlers.NewHealthHandler(stores)
	healthHandler.RegisterRoutes(r)

	if deps.Config.Metrics.Enabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")

		authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Services.TwoFactor)
		authHandler.RegisterRoutes(authGroup, refreshGate, limitFor(deps, "auth_login_ip", deps.Config.RateLimit.LoginMaxAttempts)...)

		registrationHandler := handlers.NewRegistrationHandler(deps.Services.Registration)
		registrationHandler.RegisterRoutes(authGroup, limitFor(deps, "auth_register_ip", deps.Config.RateLimit.RegisterMaxAttempts)...)

		twoFactorHandler := handlers.NewTwoFactorHandler(deps.Services.TwoFactor)
		twoFactorHandler.RegisterRoutes(authGroup, accessGate)

		passwordGroup := api.Group("/password")

		passwordHandler := handlers.NewPasswordHandler(deps.Services.Password)
		passwordHandler.RegisterRoutes(passwordGroup, accessGate, limitFor(deps, "password_forgot_ip", deps.Config.RateLimit.PasswordResetMaxAttempts)...)
	}

	return r
}

func limitFor(deps Dependencies, scope string, limit int) []gin.HandlerFunc {
	if deps.RateLimit == nil || limit <= 0 {
		return nil
	}
	return []gin.HandlerFunc{middleware.RateLimit(deps.RateLimit, scope, limit, deps.Logger)}
}

type pingAdapter func(ctx context.Context) error

func (p pingAdapter) Ping(ctx context.Context) error {
	return p(ctx)
}
