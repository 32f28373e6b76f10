// Package storage opens the configured event store backend.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"activitylog/internal/platform/config"
	"activitylog/internal/platform/redis"
	audit "activitylog/pkg/platform/audit"
	"activitylog/pkg/platform/audit/store/memory"
	"activitylog/pkg/platform/audit/store/postgres"
	redisstore "activitylog/pkg/platform/audit/store/redis"
	"activitylog/pkg/platform/audit/store/sqlite"
)

// Handle is an opened store plus whatever must be released with it.
type Handle struct {
	Store  audit.Store
	Driver string
	// Ping reports backend health; nil for the memory driver.
	Ping  func(ctx context.Context) error
	close func() error
}

// Close releases the backend connection.
func (h *Handle) Close() error {
	if h.close == nil {
		return nil
	}
	return h.close()
}

// Open connects to the backend named by cfg.Store.Driver and makes sure its
// schema exists.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Handle, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		logger.WarnContext(ctx, "using in-memory activity store; events are lost on restart")
		return &Handle{Store: memory.NewInMemoryStore(), Driver: cfg.Store.Driver}, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		return &Handle{
			Store:  store,
			Driver: cfg.Store.Driver,
			Ping:   store.Ping,
			close:  store.Close,
		}, nil

	case config.DriverPostgres:
		db, err := sql.Open("postgres", cfg.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		store := postgres.New(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &Handle{
			Store:  store,
			Driver: cfg.Store.Driver,
			Ping:   db.PingContext,
			close:  db.Close,
		}, nil

	case config.DriverRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		if client == nil {
			return nil, fmt.Errorf("redis.url is required for the redis driver")
		}
		return &Handle{
			Store:  redisstore.New(client.Client, redisstore.WithPrefix(cfg.Redis.Prefix)),
			Driver: cfg.Store.Driver,
			Ping:   client.Health,
			close:  client.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
