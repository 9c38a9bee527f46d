package di

import (
	"context"
	"errors"
	"fmt"

	"github.com/prohmpiriya/event-registration/internal/events"
	"github.com/prohmpiriya/event-registration/internal/guard"
	"github.com/prohmpiriya/event-registration/internal/handler"
	"github.com/prohmpiriya/event-registration/internal/registration"
	"github.com/prohmpiriya/event-registration/internal/repository"
	"github.com/prohmpiriya/event-registration/internal/service"
	"github.com/prohmpiriya/event-registration/internal/token"
	"github.com/prohmpiriya/event-registration/pkg/audit"
	"github.com/prohmpiriya/event-registration/pkg/config"
	"github.com/prohmpiriya/event-registration/pkg/database"
	"github.com/prohmpiriya/event-registration/pkg/kafka"
	"github.com/prohmpiriya/event-registration/pkg/logger"
	"github.com/prohmpiriya/event-registration/pkg/middleware"
	pkgredis "github.com/prohmpiriya/event-registration/pkg/redis"
)

// Container holds all dependencies for the registration service
type Container struct {
	// Infrastructure
	DB       *database.PostgresDB
	Redis    *pkgredis.Client
	Producer *kafka.Producer
	Audit    *audit.Logger
	Log      *logger.Logger

	// Repositories
	AccountRepo  repository.AccountRepository
	EventRepo    repository.EventRepository
	BookmarkRepo repository.BookmarkRepository

	// Core
	Tokens      *token.Service
	Guard       *guard.Guard
	Coordinator *registration.Coordinator

	// Services
	AuthService         service.AuthService
	AccountService      service.AccountService
	EventService        service.EventService
	RegistrationService service.RegistrationService
	FavoritesService    service.FavoritesService

	// Handlers
	Handlers     *handler.Handlers
	LoginLimiter middleware.Limiter
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	Config *config.Config
	// DB is required unless the registration backend is memory
	DB *database.PostgresDB
	// Redis is required for the redis backend and for shared rate limiting
	Redis *pkgredis.Client
	// Producer is optional; registration changes are not published when nil
	Producer *kafka.Producer
	// AuditSink overrides the PostgreSQL audit sink
	AuditSink audit.Sink
	Logger    *logger.Logger
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *ContainerConfig) (*Container, error) {
	if cfg == nil || cfg.Config == nil {
		return nil, errors.New("container config is required")
	}
	appCfg := cfg.Config

	c := &Container{
		DB:       cfg.DB,
		Redis:    cfg.Redis,
		Producer: cfg.Producer,
		Log:      cfg.Logger,
	}
	if c.Log == nil {
		c.Log = logger.NewNop()
	}

	// Initialize repositories
	if err := c.initRepositories(appCfg); err != nil {
		return nil, err
	}

	// Initialize registration coordinator
	store, err := c.registrationStore(ctx, appCfg)
	if err != nil {
		return nil, err
	}
	opts := []registration.Option{
		registration.WithTimeout(appCfg.Registration.OperationTimeout),
		registration.WithLogger(c.Log),
		registration.WithBackendName(appCfg.Registration.Backend),
	}
	if c.Producer != nil {
		opts = append(opts, registration.WithNotifier(events.NewPublisher(c.Producer, appCfg.Kafka.RegistrationTopic, c.Log)))
	}
	c.Coordinator, err = registration.NewCoordinator(store, opts...)
	if err != nil {
		return nil, err
	}

	c.Tokens, err = token.NewService(token.Config{
		Secret: appCfg.JWT.Secret,
		Issuer: appCfg.JWT.Issuer,
		TTL:    appCfg.JWT.AccessTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}
	c.Guard = guard.New(service.NewRoleSource(c.AccountRepo))

	// Audit trail
	var logins service.LoginRecorder
	if sink := c.auditSink(cfg, appCfg); sink != nil {
		c.Audit = audit.NewLogger(sink, &audit.Config{
			BufferSize:    appCfg.Audit.BufferSize,
			FlushInterval: appCfg.Audit.FlushInterval,
		}, c.Log)
		logins = c.Audit
	}

	// Initialize services
	c.AuthService = service.NewAuthService(c.AccountRepo, c.Tokens, logins,
		&service.AuthServiceConfig{BcryptCost: appCfg.Auth.BcryptCost}, c.Log)
	c.AccountService = service.NewAccountService(c.AccountRepo, c.Guard, c.Log)
	c.EventService = service.NewEventService(c.EventRepo, c.BookmarkRepo, c.Coordinator, c.Guard, c.Log)
	c.RegistrationService = service.NewRegistrationService(c.Coordinator, c.EventRepo, c.Guard)
	c.FavoritesService = service.NewFavoritesService(c.EventRepo, c.BookmarkRepo, c.Guard)

	// Login rate limiting
	if appCfg.RateLimit.Enabled {
		c.LoginLimiter, err = c.loginLimiter(ctx, appCfg)
		if err != nil {
			return nil, err
		}
	}

	// Initialize handlers
	c.Handlers = &handler.Handlers{
		Auth:         handler.NewAuthHandler(c.AuthService, c.Log),
		Event:        handler.NewEventHandler(c.EventService, c.Log),
		Registration: handler.NewRegistrationHandler(c.RegistrationService, c.Log),
		Bookmark:     handler.NewBookmarkHandler(c.FavoritesService, c.Log),
		Account:      handler.NewAccountHandler(c.AccountService, c.Log),
		Health:       handler.NewHealthHandler(c.healthChecks(), c.Log),
	}

	return c, nil
}

// RouterConfig returns the middleware settings for handler.NewRouter
func (c *Container) RouterConfig(appCfg *config.Config) *handler.RouterConfig {
	rc := &handler.RouterConfig{
		Tokens:         c.Tokens,
		AllowedOrigins: appCfg.Server.AllowedOrigins,
		LoginLimiter:   c.LoginLimiter,
		RateLimit:      c.rateLimitConfig(appCfg),
	}
	// a nil *audit.Logger must not become a non-nil interface
	if c.Audit != nil {
		rc.Audit = c.Audit
	}
	return rc
}

// Close stops background workers. Connections passed in through
// ContainerConfig are closed by their owner.
func (c *Container) Close() error {
	var errs []error
	if stopper, ok := c.LoginLimiter.(*middleware.LocalRateLimiter); ok {
		stopper.Stop()
	}
	if c.Audit != nil {
		if err := c.Audit.Close(); err != nil {
			errs = append(errs, fmt.Errorf("audit logger: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (c *Container) initRepositories(appCfg *config.Config) error {
	if appCfg.Registration.Backend == config.BackendMemory && c.DB == nil {
		c.AccountRepo = repository.NewMemoryAccountRepository()
		c.EventRepo = repository.NewMemoryEventRepository()
		c.BookmarkRepo = repository.NewMemoryBookmarkRepository()
		return nil
	}
	if c.DB == nil {
		return errors.New("database is required for the " + appCfg.Registration.Backend + " backend")
	}
	c.AccountRepo = repository.NewPostgresAccountRepository(c.DB.Pool())
	c.EventRepo = repository.NewPostgresEventRepository(c.DB.Pool())
	c.BookmarkRepo = repository.NewPostgresBookmarkRepository(c.DB.Pool())
	return nil
}

func (c *Container) registrationStore(ctx context.Context, appCfg *config.Config) (registration.Store, error) {
	switch appCfg.Registration.Backend {
	case config.BackendMemory:
		return registration.NewMemoryStore(), nil
	case config.BackendPostgres:
		return registration.NewPostgresStore(c.DB.Pool()), nil
	case config.BackendRedis:
		if c.Redis == nil {
			return nil, errors.New("redis is required for the redis backend")
		}
		store, err := registration.NewRedisStore(ctx, c.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis registration store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown registration backend: %q", appCfg.Registration.Backend)
	}
}

func (c *Container) auditSink(cfg *ContainerConfig, appCfg *config.Config) audit.Sink {
	if !appCfg.Audit.Enabled {
		return nil
	}
	if cfg.AuditSink != nil {
		return cfg.AuditSink
	}
	if c.DB != nil {
		return audit.NewPostgresSink(c.DB.Pool())
	}
	c.Log.Warn("audit enabled without a database, audit trail disabled")
	return nil
}

func (c *Container) rateLimitConfig(appCfg *config.Config) middleware.RateLimitConfig {
	rl := middleware.DefaultRateLimitConfig()
	if appCfg.RateLimit.LoginPerMinute > 0 {
		rl.PerMinute = appCfg.RateLimit.LoginPerMinute
	}
	if appCfg.RateLimit.LoginBurst > 0 {
		rl.BurstSize = appCfg.RateLimit.LoginBurst
	}
	rl.Logger = c.Log
	return rl
}

func (c *Container) loginLimiter(ctx context.Context, appCfg *config.Config) (middleware.Limiter, error) {
	rl := c.rateLimitConfig(appCfg)
	if appCfg.RateLimit.UseRedis {
		if c.Redis == nil {
			return nil, errors.New("redis is required for shared rate limiting")
		}
		rl.RedisClient = c.Redis
		limiter, err := middleware.NewRedisRateLimiter(ctx, rl)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}
		return limiter, nil
	}
	return middleware.NewLocalRateLimiter(rl), nil
}

func (c *Container) healthChecks() map[string]handler.HealthCheck {
	checks := make(map[string]handler.HealthCheck)
	if c.DB != nil {
		checks["postgres"] = c.DB.HealthCheck
	}
	if c.Redis != nil {
		checks["redis"] = c.Redis.Health
	}
	if c.Producer != nil {
		checks["kafka"] = c.Producer.Health
	}
	return checks
}
