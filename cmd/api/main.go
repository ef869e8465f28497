package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salesops_backend/internal/adapters"
	"salesops_backend/internal/auth"
	"salesops_backend/internal/catalog"
	"salesops_backend/internal/config"
	"salesops_backend/internal/customers"
	"salesops_backend/internal/email"
	"salesops_backend/internal/events"
	apphttp "salesops_backend/internal/http"
	"salesops_backend/internal/http/router"
	"salesops_backend/internal/notification"
	"salesops_backend/internal/quotation"
	"salesops_backend/internal/quotation/staging"
	"salesops_backend/internal/scheduler"
	"salesops_backend/platform/db"
	"salesops_backend/platform/logger"
	"salesops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg.DatabaseURL, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	redisOpt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Error("invalid redis url", "error", err)
		panic("invalid redis url: " + err.Error())
	}
	redisClient := redis.NewClient(redisOpt)
	defer redisClient.Close()
	if err := withRetry(ctx, log, "redis connection", 5, 2*time.Second, func() error {
		return redisClient.Ping(ctx).Err()
	}); err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	log.Info("redis connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	expiryClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = expiryClient.Close() }()

	var sender email.Sender = email.NoopSender{}
	if cfg.EmailEnabled {
		sender = email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom, cfg.EmailFromName)
		log.Info("email sender initialized", "host", cfg.SMTPHost)
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to domain events (not HTTP-facing)
	notification.NewModule(eventBus, sender, log)

	authModule := auth.NewModule(pool, cfg, val, log)
	catalogModule := catalog.NewModule(pool, val)
	customersModule := customers.NewModule(pool, val, cfg.PhoneRegion)

	stagingStore := staging.NewRedisStore(redisClient, cfg.StagingTTL)
	productDirectory := adapters.NewProductDirectory(catalogModule.Repository())
	customerDirectory := adapters.NewCustomerDirectory(customersModule.Repository())

	quotationModule := quotation.NewModule(quotation.Deps{
		Pool:        pool,
		EventBus:    eventBus,
		Validator:   val,
		Logger:      log,
		Scans:       stagingStore,
		Handoffs:    stagingStore,
		Directory:   productDirectory,
		Customers:   customerDirectory,
		Expiry:      expiryClient,
		TaxRateBps:  cfg.TaxRateBps,
		PhoneRegion: cfg.PhoneRegion,
	})

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	engine := router.New(cfg, log, pool, []apphttp.Module{
		authModule,
		catalogModule,
		customersModule,
		quotationModule,
	})

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(baseDelay * time.Duration(attempt)):
			}
		}
	}
	return lastErr
}
