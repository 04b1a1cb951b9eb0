package relational

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcpenterprise/server/internal/config"
)

// conn is the subset of pgxpool.Pool the store needs; kept as an
// interface so tests can substitute a fake without a live database.
type conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
	Ping(ctx context.Context) error
}

// Store is the relational storage adapter backing projects, durable
// memories, error patterns, and the supplemented project-context and
// code-knowledge tables.
type Store struct {
	pool conn
	log  *slog.Logger
}

// New connects to PostgreSQL using cfg and verifies the connection with
// a ping, matching the teacher's NewPostgresDB connect-then-ping idiom.
func New(ctx context.Context, cfg config.Database, log *slog.Logger) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(connString(cfg))
	if err != nil {
		return nil, fmt.Errorf("relational: parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime
	poolConfig.ConnConfig.ConnectTimeout = 10 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("relational: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("relational: ping: %w", err)
	}

	if log == nil {
		log = slog.Default()
	}
	log.Info("connected to postgres", "host", cfg.Host, "port", cfg.Port, "database", cfg.Name)

	return &Store{pool: pool, log: log}, nil
}

// NewWithConn wraps an existing connection, for tests and for the pool
// controller's resize procedure which swaps the underlying pool.
func NewWithConn(c conn, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{pool: c, log: log}
}

func connString(cfg config.Database) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode)
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
	s.log.Info("relational store closed")
}

// Ping checks connectivity, used by the health endpoint (§4.K).
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Pool exposes the underlying pgxpool.Pool for components that need
// native Stat() access, such as the Dynamic Pool Controller (§4.D). It
// returns nil when the store was built with NewWithConn over a fake.
func (s *Store) Pool() *pgxpool.Pool {
	if p, ok := s.pool.(*pgxpool.Pool); ok {
		return p
	}
	return nil
}
