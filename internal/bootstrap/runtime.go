// Package bootstrap wires the store and Redis from configuration and runs the
// startup tasks that must happen before the server accepts requests.
package bootstrap

import (
	"context"
	"fmt"

	"culturetech/internal/cache"
	"culturetech/internal/config"
	"culturetech/internal/database"
	"culturetech/internal/middleware"
	"culturetech/internal/seed"
	"culturetech/internal/service"
	"culturetech/internal/store"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// Options control runtime initialization behavior.
type Options struct {
	// Seed runs the fixture and demo-post seeding configured in cfg.
	Seed bool
}

// OpenStore builds the store selected by cfg.StoreDriver, wrapped with
// tracing and metrics.
func OpenStore(cfg *config.Config) (store.Store, error) {
	policy, err := store.ParseAdminPolicy(cfg.AdminBootstrap)
	if err != nil {
		return nil, err
	}

	if cfg.StoreDriver == config.StoreMemory {
		return store.Instrument(store.NewMemoryStore(store.WithAdminPolicy(policy)), config.StoreMemory), nil
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return store.Instrument(store.NewGormStore(db, store.WithAdminPolicy(policy)), cfg.StoreDriver), nil
}

// InitRuntime opens the store and Redis, bootstraps the seed admin when that
// policy is active and optionally seeds content. The Redis client is nil when
// Redis is disabled or unreachable.
func InitRuntime(cfg *config.Config, opts Options) (store.Store, *redis.Client, error) {
	st, err := OpenStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	rdb := cache.Connect(cfg.RedisURL)

	if err := Prepare(context.Background(), cfg, st, opts); err != nil {
		_ = st.Close()
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, nil, err
	}
	return st, rdb, nil
}

// Prepare runs the admin bootstrap and seeding steps against st.
func Prepare(ctx context.Context, cfg *config.Config, st store.Store, opts Options) error {
	users := service.NewUserService(st, bcrypt.DefaultCost)

	if cfg.AdminBootstrap == string(store.AdminSeed) {
		admin, err := users.EnsureSeedAdmin(ctx, cfg.BootstrapAdminUsername, cfg.BootstrapAdminPassword)
		if err != nil {
			return fmt.Errorf("failed to bootstrap seed admin: %w", err)
		}
		middleware.Logger.Info("seed admin ensured", "user_id", admin.ID, "username", admin.Username)
	}

	if opts.Seed {
		if _, err := seed.New(st, users).Run(ctx, seed.Options{
			File:      cfg.SeedFile,
			DemoPosts: cfg.SeedDemoPosts,
		}); err != nil {
			return fmt.Errorf("failed to seed content: %w", err)
		}
	}
	return nil
}
