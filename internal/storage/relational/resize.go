package relational

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcpenterprise/server/internal/config"
	"github.com/mcpenterprise/server/internal/pool"
)

// PoolResizer implements pool.Resizer and pool.StatsSource over a
// *Store: it builds a replacement pgxpool.Pool at the new MaxConns,
// swaps it in atomically under a mutex, and closes the superseded
// pool only once the swap has completed, per §4.D's "atomic
// swap-and-dispose" requirement (pgx's pool has no in-place resize).
type PoolResizer struct {
	cfg config.Database
	log *slog.Logger

	mu    sync.RWMutex
	store *Store
}

// NewPoolResizer wraps an already-connected Store so the Dynamic Pool
// Controller can resize and sample it.
func NewPoolResizer(cfg config.Database, store *Store, log *slog.Logger) *PoolResizer {
	if log == nil {
		log = slog.Default()
	}
	return &PoolResizer{cfg: cfg, log: log, store: store}
}

// Store returns the currently active Store, safe to call concurrently
// with a Resize swap.
func (r *PoolResizer) Store() *Store {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store
}

// Stat implements pool.StatsSource.
func (r *PoolResizer) Stat() pool.RawStats {
	store := r.Store()
	p := store.Pool()
	if p == nil {
		return pool.RawStats{}
	}
	stat := p.Stat()
	return pool.RawStats{
		Size:       int(stat.TotalConns()),
		CheckedOut: int(stat.AcquiredConns()),
	}
}

// Resize implements pool.Resizer: connect a new pool at newMax,
// verify it with a ping, swap it in, then close the old one.
func (r *PoolResizer) Resize(ctx context.Context, newMax int) error {
	cfg := r.cfg
	cfg.MaxOpenConns = newMax

	poolConfig, err := pgxpool.ParseConfig(connString(cfg))
	if err != nil {
		return fmt.Errorf("relational: resize: parse connection string: %w", err)
	}
	poolConfig.MaxConns = int32(newMax)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime
	poolConfig.ConnConfig.ConnectTimeout = 10 * time.Second

	newPool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("relational: resize: create pool: %w", err)
	}
	if err := newPool.Ping(ctx); err != nil {
		newPool.Close()
		return fmt.Errorf("relational: resize: ping: %w", err)
	}

	newStore := NewWithConn(newPool, r.log)

	r.mu.Lock()
	oldStore := r.store
	r.store = newStore
	r.mu.Unlock()

	oldStore.Close()
	r.log.Info("relational pool resized", "new_max_conns", newMax)
	return nil
}
