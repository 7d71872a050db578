package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloneforge/cloneforge-engine/pkg/config"
)

// Analyses hold connections only for short JSONB reads and writes between
// AI calls, so idle connections can be recycled aggressively.
const (
	defaultMaxConns = 25
	connLifetime    = time.Hour
	connIdleTime    = 30 * time.Minute
)

// DB is the engine's PostgreSQL handle.
type DB struct {
	*pgxpool.Pool
}

// Connect opens a pgx pool against the configured database and verifies it
// with a ping before returning.
func Connect(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConnections
	if poolCfg.MaxConns <= 0 {
		poolCfg.MaxConns = defaultMaxConns
	}
	poolCfg.MaxConnLifetime = connLifetime
	poolCfg.MaxConnIdleTime = connIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &DB{Pool: pool}, nil
}
