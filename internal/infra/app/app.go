package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/fk00750/authguard/internal/core/port"
	"github.com/fk00750/authguard/internal/infra/config"
	"github.com/fk00750/authguard/internal/infra/database"
	kafkainfra "github.com/fk00750/authguard/internal/infra/kafka"
	"github.com/fk00750/authguard/internal/infra/logger"
	"github.com/fk00750/authguard/internal/infra/mail"
	redisinfra "github.com/fk00750/authguard/internal/infra/redis"
	"github.com/fk00750/authguard/internal/infra/security"
	postgresrepo "github.com/fk00750/authguard/internal/repository/postgres"
	redisrepo "github.com/fk00750/authguard/internal/repository/redis"
	"github.com/fk00750/authguard/internal/transport/http/middleware"
	"github.com/fk00750/authguard/internal/transport/http/routes"
	"github.com/fk00750/authguard/internal/usecase"
)

// Application bundles the wired service with its long-lived connections.
type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
}

// New wires configuration into a runnable application.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	keys, err := security.LoadKeySet(cfg.JWT.KeyDirectory)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("load signing keys: %w", err)
	}

	issuer := security.NewTokenIssuer(keys, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL)
	verifier := security.NewTokenVerifier(keys)
	signer := security.NewLinkSigner(cfg.Token.LinkTokenTTL)

	repos := postgresrepo.NewRepositories(pool)
	hasher := security.NewPepperHasher(repos.Peppers)

	otpStore := redisrepo.NewOTPRepository(redisClient.Client(), cfg.Redis.OTPPrefix)
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "authguard:rate-limit",
		Window:    cfg.RateLimit.WindowDuration,
	})

	var producer *kafkainfra.Producer
	var events port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			events = kafkainfra.NewStubPublisher(log)
		} else {
			events = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		events = kafkainfra.NewStubPublisher(log)
	}

	var mailer port.MailSender
	if cfg.SMTP.Host != "" {
		mailer = mail.NewSMTPSender(cfg.SMTP, log)
	} else {
		log.Info("smtp host not configured, logging mail instead")
		mailer = mail.NewLogSender(log)
	}

	authService := usecase.NewAuthService(repos.Users, repos.Tokens, otpStore, hasher, issuer, mailer, events, log, cfg.Token.OTPTTL)
	twoFactorService := usecase.NewTwoFactorService(repos.Users, otpStore, authService, events, log)
	registrationService := usecase.NewRegistrationService(repos.Users, repos.Secrets, hasher, signer, mailer, events, log, cfg.App.BaseURL)
	passwordService := usecase.NewPasswordService(repos.Users, repos.Tokens, repos.Secrets, repos.ResetKeys, hasher, signer, mailer, events, log, cfg.App.BaseURL, cfg.Token.ResetKeyTTL)

	var metrics *middleware.HTTPMetrics
	if cfg.Metrics.Enabled {
		metrics, err = middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
		if err != nil {
			pool.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init http metrics: %w", err)
		}
	}

	engine := routes.Register(routes.Dependencies{
		Config:    cfg,
		Logger:    log,
		Verifier:  verifier,
		RateLimit: rateLimitStore,
		Metrics:   metrics,
		Database:  pool,
		Cache:     redisClient,
		Services: routes.ServiceSet{
			Auth:         authService,
			TwoFactor:    twoFactorService,
			Registration: registrationService,
			Password:     passwordService,
		},
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
	}, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
