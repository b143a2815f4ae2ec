package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/greenvalley/society-portal/internal/core/port"
	"github.com/greenvalley/society-portal/internal/infra/config"
	"github.com/greenvalley/society-portal/internal/infra/database"
	kafkainfra "github.com/greenvalley/society-portal/internal/infra/kafka"
	"github.com/greenvalley/society-portal/internal/infra/logger"
	redisinfra "github.com/greenvalley/society-portal/internal/infra/redis"
	"github.com/greenvalley/society-portal/internal/infra/security"
	"github.com/greenvalley/society-portal/internal/infra/telemetry"
	postgresrepo "github.com/greenvalley/society-portal/internal/repository/postgres"
	redisrepo "github.com/greenvalley/society-portal/internal/repository/redis"
	"github.com/greenvalley/society-portal/internal/transport/http/middleware"
	"github.com/greenvalley/society-portal/internal/transport/http/routes"
	"github.com/greenvalley/society-portal/internal/usecase"
)

const metricsNamespace = "society"

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	tracer   *telemetry.TracerProvider
}

func New(ctx context.Context, cfg *config.AppConfig) (_ *Application, err error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &Application{cfg: cfg, logger: log}
	defer func() {
		if err != nil {
			a.release(context.Background())
		}
	}()

	a.tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, cfg.App.Env, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	workflowMetrics, err := telemetry.NewWorkflowMetrics(registry, metricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("init workflow metrics: %w", err)
	}
	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{
		Registerer: registry,
		Namespace:  metricsNamespace,
	})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	a.pool, err = database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	repos := postgresrepo.NewRepositories(a.pool)

	a.redis, err = redisinfra.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}
	userStates := redisrepo.NewUserStateRepository(a.redis.Client(), cfg.Redis.UserStatePrefix)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(a.redis.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: cfg.Redis.RateLimitPrefix,
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, perr := kafkainfra.NewProducer(cfg.Kafka, log)
		if perr != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(perr))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			a.producer = producer
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	hasher, err := security.NewArgon2Hasher(security.Argon2ConfigFromSettings(cfg.Argon2))
	if err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}
	passwordPolicy := security.NewPasswordPolicy(cfg.Password)
	temporaryPasswords := security.NewTemporaryPasswordGenerator(cfg.Password.TemporaryLength)

	keyProvider, err := security.NewKeyProvider(cfg.App.Env, cfg.JWT.KeyDirectory)
	if err != nil {
		return nil, fmt.Errorf("init key provider: %w", err)
	}
	sessionTokens, err := security.NewSessionTokenManager(keyProvider, security.SessionTokenOptions{
		Issuer: cfg.App.Name,
		TTL:    cfg.JWT.SessionTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("init session tokens: %w", err)
	}

	deps := usecase.Dependencies{
		Events:  eventPublisher,
		Metrics: workflowMetrics,
		Logger:  log,
	}
	services := routes.ServiceSet{
		Auth:               usecase.NewAuthService(repos.Users, userStates, sessionTokens, hasher, repos.Activity, cfg.Redis.UserStateTTL, deps),
		Registration:       usecase.NewRegistrationService(repos.Users, repos.Buildings, repos.Flats, hasher, passwordPolicy, repos.Activity, deps),
		Approval:           usecase.NewApprovalService(repos.Users, repos.Flats, userStates, hasher, temporaryPasswords, repos.Activity, deps),
		Events:             usecase.NewEventService(repos.Events, repos.Registrations, deps),
		EventRegistrations: usecase.NewEventRegistrationService(repos.Events, repos.Registrations, repos.Activity, deps),
		Notices:            usecase.NewNoticeService(repos.Notices, repos.Activity, deps),
		Buildings:          usecase.NewBuildingService(repos.Buildings, repos.Activity, deps),
		Flats:              usecase.NewFlatService(repos.Flats, repos.Buildings, deps),
		Vehicles:           usecase.NewVehicleService(repos.Vehicles, deps),
		Directory:          usecase.NewDirectoryService(repos.Users),
		Profiles:           usecase.NewProfileService(repos.Users, hasher, passwordPolicy, repos.Activity, deps),
		Activity:           usecase.NewActivityService(repos.Activity),
	}

	a.engine = routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		HTTPMetrics: httpMetrics,
		Gatherer:    registry,
		Services:    services,
		Database:    a.pool,
		Cache:       a.redis,
	})

	return a, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer a.release(context.Background())

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       orDefault(a.cfg.HTTP.ReadTimeout, 30*time.Second),
		WriteTimeout:      orDefault(a.cfg.HTTP.WriteTimeout, 30*time.Second),
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting society portal API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
		zap.String("admin_prefix", a.cfg.HTTP.AdminPrefix),
		zap.String("dashboard_prefix", a.cfg.HTTP.DashboardPrefix),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), orDefault(a.cfg.HTTP.ShutdownTimeout, 10*time.Second))
		defer cancel()
		a.logger.Info("shutting down society portal API")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}

// release closes whatever New managed to open.
func (a *Application) release(ctx context.Context) {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("close kafka producer", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Warn("shutdown tracer", zap.Error(err))
		}
	}
}

func orDefault(value, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return value
}
