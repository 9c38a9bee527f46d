package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/prohmpiriya/event-registration/internal/di"
	"github.com/prohmpiriya/event-registration/internal/handler"
	"github.com/prohmpiriya/event-registration/pkg/config"
	"github.com/prohmpiriya/event-registration/pkg/database"
	"github.com/prohmpiriya/event-registration/pkg/kafka"
	"github.com/prohmpiriya/event-registration/pkg/logger"
	pkgredis "github.com/prohmpiriya/event-registration/pkg/redis"
	"github.com/prohmpiriya/event-registration/pkg/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(&logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
		OutputPath:  "stdout",
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	logger.SetGlobal(log)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		return fmt.Errorf("failed to init telemetry: %w", err)
	}

	infra, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.close(log)

	container, err := di.NewContainer(ctx, &di.ContainerConfig{
		Config:   cfg,
		DB:       infra.db,
		Redis:    infra.redis,
		Producer: infra.producer,
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}
	defer func() {
		if err := container.Close(); err != nil {
			log.Error("failed to close container", zap.Error(err))
		}
	}()

	if err := container.AuthService.Bootstrap(ctx, cfg.Auth.BootstrapAdminEmail, cfg.Auth.BootstrapAdminPassword); err != nil {
		return fmt.Errorf("failed to bootstrap administrator: %w", err)
	}

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler.NewRouter(container.Handlers, container.RouterConfig(cfg)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening",
			zap.String("addr", srv.Addr),
			zap.String("registration_backend", cfg.Registration.Backend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

// infrastructure holds the connections owned by main
type infrastructure struct {
	db       *database.PostgresDB
	redis    *pkgredis.Client
	producer *kafka.Producer
}

func connect(ctx context.Context, cfg *config.Config, log *logger.Logger) (*infrastructure, error) {
	infra := &infrastructure{}

	if cfg.Registration.Backend != config.BackendMemory {
		db, err := database.NewPostgres(ctx, &database.PostgresConfig{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Database:        cfg.Database.DBName,
			SSLMode:         cfg.Database.SSLMode,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.ConnMaxLifetime,
			MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
			ConnectTimeout:  cfg.Database.ConnectTimeout,
			MaxRetries:      cfg.Database.MaxRetries,
			RetryInterval:   cfg.Database.RetryInterval,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		infra.db = db

		if cfg.Database.AutoMigrate {
			if err := db.Migrate(ctx); err != nil {
				infra.close(log)
				return nil, fmt.Errorf("failed to migrate: %w", err)
			}
		}
	}

	if cfg.Registration.Backend == config.BackendRedis || (cfg.RateLimit.Enabled && cfg.RateLimit.UseRedis) {
		client, err := pkgredis.NewClient(ctx, &pkgredis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			infra.close(log)
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		infra.redis = client
	}

	if cfg.Kafka.Enabled {
		producerCfg := kafka.DefaultConfig()
		producerCfg.Brokers = cfg.Kafka.Brokers
		producerCfg.ClientID = cfg.Kafka.ClientID
		producer, err := kafka.NewProducer(ctx, producerCfg)
		if err != nil {
			infra.close(log)
			return nil, fmt.Errorf("failed to connect to kafka: %w", err)
		}
		infra.producer = producer
	}

	return infra, nil
}

func (i *infrastructure) close(log *logger.Logger) {
	ctx := context.Background()
	if i.producer != nil {
		if err := i.producer.Close(ctx); err != nil {
			log.Warn("failed to close kafka producer", zap.Error(err))
		}
	}
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			log.Warn("failed to close redis", zap.Error(err))
		}
	}
	if i.db != nil {
		i.db.Close()
	}
}
