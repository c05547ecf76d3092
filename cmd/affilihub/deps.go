package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/NguyenVanDuc36/AffiliHub/internal/cache"
	"github.com/NguyenVanDuc36/AffiliHub/internal/config"
	"github.com/NguyenVanDuc36/AffiliHub/pkg/logging"
)

func loadConfig(path string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	logging.SetDefault(logger)
	return cfg, logger, nil
}

// openStores connects whatever the configured cache backend needs and
// builds both stores on it. Closing the stores releases the connections.
func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*cache.Stores, error) {
	var (
		redisClient *redis.Client
		db          *gorm.DB
		closers     []func() error
	)

	switch cfg.Cache.Backend {
	case cache.BackendRedis:
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, redisClient.Close)

		// Fail fast if Redis is misconfigured
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		logger.Info("redis connection established", zap.String("addr", cfg.Redis.Addr))

	case cache.BackendPostgres:
		var err error
		db, err = gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err != nil {
			return nil, fmt.Errorf("postgres connection failed: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("postgres handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		closers = append(closers, sqlDB.Close)
		logger.Info("postgres connection established")
	}

	var rc redis.Cmdable
	if redisClient != nil {
		rc = redisClient
	}
	stores, err := cache.NewStores(ctx, cache.Config{
		Backend:       cfg.Cache.Backend,
		Prefix:        cfg.Cache.Prefix,
		SweepInterval: *cfg.Cache.SweepInterval,
	}, rc, db)
	if err != nil {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return nil, errors.Join(append([]error{err}, errs...)...)
	}
	for _, c := range closers {
		stores.OnClose(c)
	}
	return stores, nil
}
