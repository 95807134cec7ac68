package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/uptrace/bun"

	"restaurant-pos/internal/admin"
	"restaurant-pos/internal/analytics"
	"restaurant-pos/internal/auth"
	"restaurant-pos/internal/billing"
	"restaurant-pos/internal/config"
	"restaurant-pos/internal/database"
	"restaurant-pos/internal/database/migrations"
	"restaurant-pos/internal/jobs"
	"restaurant-pos/internal/kafka"
	"restaurant-pos/internal/kot"
	"restaurant-pos/internal/lock"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/media"
	"restaurant-pos/internal/menu"
	"restaurant-pos/internal/order"
	"restaurant-pos/internal/qr"
	"restaurant-pos/internal/server"
	"restaurant-pos/internal/sse"
	"restaurant-pos/internal/store"
)

func connectDatabase(ctx context.Context, cfg *config.Config, log *logger.Logger) *bun.DB {
	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{Driver: cfg.Database.Driver, AutoMigrate: true}, log)
		if err := runner.RunMigrations(); err != nil {
			log.Fatal("MIGRATION", fmt.Sprintf("Failed to apply migrations: %v", err))
		}
	}
	return bunDB
}

// connectRedis returns nil when Redis is not configured or unreachable; the
// session cache and locks then stay in process.
func connectRedis(cfg *config.Config, log *logger.Logger) *redis.Client {
	if cfg.Redis.Addr == "" {
		log.Info("REDIS", "REDIS_ADDR not set, using in-process session cache and locks")
		return nil
	}
	client, err := auth.ConnectRedis(cfg.Redis, log)
	if err != nil {
		if cfg.IsProduction() {
			log.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
		}
		log.Warn("REDIS", "Falling back to in-process session cache and locks")
		return nil
	}
	return client
}

func connectKafka(cfg *config.Config, log *logger.Logger) kafka.Publisher {
	if !cfg.Kafka.Enabled {
		log.Info("KAFKA", "Kafka disabled, domain events are dropped")
		return nil
	}
	topics := []string{cfg.Kafka.Topics.OrderEvents, cfg.Kafka.Topics.KOTEvents, cfg.Kafka.Topics.BillEvents}
	if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, topics, log); err != nil {
		log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	}
	log.Info("KAFKA", fmt.Sprintf("Kafka producer initialized for %v", cfg.Kafka.Brokers))
	return kafka.NewProducer(cfg.Kafka.Brokers, log)
}

func imageStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) media.Storage {
	s3Storage, err := media.NewS3Storage(ctx, cfg.S3)
	if err != nil {
		log.Warn("MEDIA", fmt.Sprintf("S3 unavailable, keeping menu images in memory: %v", err))
	}
	if s3Storage == nil {
		return media.NewMemoryStorage(cfg.Receipt.PublicBaseURL + "/media")
	}
	log.Info("MEDIA", fmt.Sprintf("Menu images stored in s3://%s", cfg.S3.Bucket))
	return s3Storage
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting POS service initialization")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("CONFIG", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bunDB := connectDatabase(ctx, cfg, log)
	defer bunDB.Close()
	db := store.New(bunDB)

	var (
		sessions auth.SessionCache
		locker   lock.Locker = lock.NewMemory()
	)
	if rdb := connectRedis(cfg, log); rdb != nil {
		defer rdb.Close()
		sessions = auth.NewRedisSessionCache(rdb)
		locker = lock.NewRedis(rdb)
	}

	events := kafka.NewEvents(connectKafka(cfg, log), cfg.Kafka.Topics, log)
	defer events.Close()

	codes := qr.NewQRGenerator(cfg.Receipt.Secret, cfg.Receipt.PublicBaseURL)
	authSvc := auth.NewService(db, sessions, auth.NewTokenSigner(cfg.Auth.JWTSecret), cfg.Auth.SessionTTL, log)
	limiter := auth.NewRateLimiter(cfg.Auth.LoginRatePerMinute, cfg.Auth.LoginBurst, log)
	kitchen := kot.NewService(db, sse.NewKitchenEventEmitter(), events, log)
	orders := order.NewService(db, locker, kitchen, events, log)
	reports := analytics.NewService(db, log)

	bills := billing.NewService(db, locker, events, codes, log)
	bills.Currency = cfg.Stripe.Currency
	bills.WebhookSecret = cfg.Stripe.WebhookSecret
	if gw, err := billing.NewStripeGateway(cfg.Stripe.SecretKey, log); err == nil {
		bills.Gateway = gw
		log.Info("STRIPE", "Card payments enabled")
	} else if !errors.Is(err, billing.ErrStripeNotConfigured) {
		log.Fatal("STRIPE", err.Error())
	}

	router := server.NewRouter(server.Services{
		Store:     db,
		Auth:      authSvc,
		Limiter:   limiter,
		Menu:      menu.NewService(db, imageStorage(ctx, cfg, log), log),
		Orders:    orders,
		KOTs:      kitchen,
		Bills:     bills,
		Admin:     admin.NewService(db, authSvc, locker, codes, log),
		Analytics: reports,
	}, server.Options{CORSOrigins: cfg.Server.CORSOrigins, Logger: log})

	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		var err error
		scheduler, err = jobs.New(cfg.Jobs, jobs.Deps{Auth: authSvc, Limiter: limiter, Orders: orders, Reports: reports}, log)
		if err != nil {
			log.Fatal("JOBS", err.Error())
		}
		scheduler.Start()
	}

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 POS service running on %s", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP", fmt.Sprintf("HTTP server error: %v", err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if scheduler != nil {
		scheduler.Stop(ctxShutdown)
	}
	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ POS service shutdown complete")
	}
}
