package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jpbarro/HoW-X/internal/config"
	"github.com/jpbarro/HoW-X/internal/logging"
	"github.com/jpbarro/HoW-X/internal/store"
)

// app holds the connected backends. close releases them in reverse order.
type app struct {
	cfg    *config.Config
	log    *logrus.Logger
	pg     *store.PostgresStore
	mongo  *store.MongoStore
	minio  *store.MinioStore
	rdb    *redis.Client
	closer []func()
}

func (a *app) close() {
	for i := len(a.closer) - 1; i >= 0; i-- {
		a.closer[i]()
	}
}

func loadBase() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// connectDatabases opens PostgreSQL and MongoDB.
func connectDatabases(ctx context.Context, a *app) error {
	// ── PostgreSQL ────────────────────────────────────────────
	pgPool, err := pgxpool.New(ctx, a.cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("postgres connect: %w", err)
	}
	a.closer = append(a.closer, pgPool.Close)
	if err := pgPool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	a.pg = store.NewPostgresStore(pgPool)

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(a.cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("mongo connect: %w", err)
	}
	a.closer = append(a.closer, func() { mongoClient.Disconnect(context.Background()) })
	a.mongo = store.NewMongoStore(mongoClient.Database(a.cfg.MongoDB))
	return nil
}

// connectAll opens every backend the HTTP API needs.
func connectAll(ctx context.Context, a *app) error {
	if err := connectDatabases(ctx, a); err != nil {
		return err
	}

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword)
	if err != nil {
		return fmt.Errorf("redis connect: %w", err)
	}
	a.closer = append(a.closer, func() { rdb.Close() })
	a.rdb = rdb

	// ── MinIO ────────────────────────────────────────────────
	a.minio, err = store.NewMinioStore(
		ctx, a.cfg.MinioEndpoint, a.cfg.MinioAccessKey,
		a.cfg.MinioSecretKey, a.cfg.MinioBucket, a.cfg.MinioUseSSL, a.cfg.ImageURLTTL,
	)
	if err != nil {
		return fmt.Errorf("minio connect: %w", err)
	}
	return nil
}

func migrate(ctx context.Context, a *app) error {
	if err := a.pg.Migrate(ctx); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	if err := a.mongo.Migrate(ctx); err != nil {
		return fmt.Errorf("mongo migrate: %w", err)
	}
	return nil
}
