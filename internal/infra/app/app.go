package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ehevelone/vitalink-app/internal/core/port"
	"github.com/ehevelone/vitalink-app/internal/infra/config"
	"github.com/ehevelone/vitalink-app/internal/infra/database"
	kafkainfra "github.com/ehevelone/vitalink-app/internal/infra/kafka"
	"github.com/ehevelone/vitalink-app/internal/infra/logger"
	"github.com/ehevelone/vitalink-app/internal/infra/mail"
	"github.com/ehevelone/vitalink-app/internal/infra/messaging"
	redisinfra "github.com/ehevelone/vitalink-app/internal/infra/redis"
	"github.com/ehevelone/vitalink-app/internal/infra/security"
	postgresrepo "github.com/ehevelone/vitalink-app/internal/repository/postgres"
	redisrepo "github.com/ehevelone/vitalink-app/internal/repository/redis"
	"github.com/ehevelone/vitalink-app/internal/transport/http/middleware"
	"github.com/ehevelone/vitalink-app/internal/transport/http/routes"
	"github.com/ehevelone/vitalink-app/internal/usecase"
)

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
}

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

	repos := postgresrepo.NewRepositories(pool)

	var eventPublisher port.EventPublisher
	var producer *kafkainfra.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			producer = nil
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	mailer := mail.NewSMTPMailer(cfg.SMTP, log)

	var smsChannel port.MessagingChannel
	if cfg.SMS.Endpoint != "" {
		smsChannel = messaging.NewHTTPGateway(cfg.SMS, log)
		log.Info("sms gateway configured", zap.String("endpoint", cfg.SMS.Endpoint))
	} else {
		log.Info("sms endpoint not configured, using log channel")
		smsChannel = messaging.NewLogChannel(log)
	}

	passwordValidator := security.NewPasswordValidator(
		security.MinLengthRule(10),
		security.RequireLetterRule(),
		security.RequireDigitRule(),
		security.RequirePasswordStrengthRule(2),
	)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "vitalink:rate-limit",
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		_ = redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	sessionService := usecase.NewSessionService(cfg, repos.Principals, eventPublisher, log)
	loginService := usecase.NewLoginService(cfg, repos.Principals, smsChannel, sessionService, eventPublisher, log)
	passwordResetService := usecase.NewPasswordResetService(cfg, repos.Principals, smsChannel, mailer, eventPublisher, passwordValidator, log)
	onboardingService := usecase.NewOnboardingService(cfg, repos.Principals, mailer, passwordValidator, log)
	totpService := usecase.NewTOTPService(cfg, repos.Principals, log)
	deviceService := usecase.NewDeviceService(repos.Devices, repos.ClientUsers, log)

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Metrics:     metrics,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Login:         loginService,
			Sessions:      sessionService,
			PasswordReset: passwordResetService,
			Onboarding:    onboardingService,
			TOTP:          totpService,
			Devices:       deviceService,
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

	a.logger.Info("starting admin auth API",
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
