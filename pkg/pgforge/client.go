package pgforge

// client.go owns the connection pool and wires the lease manager, the
// catalog cache, and the logger together into the public client.

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/pgforge/pgforge/pkg/config"
	"github.com/pgforge/pgforge/pkg/errors"
	"github.com/pgforge/pgforge/pkg/logging"
)

// Client is the public entry point: it executes raw statements,
// transactions, and the structured CRUD operations in executors.go against
// one shared PostgreSQL pool.
type Client struct {
	pgxPool *pgxpool.Pool // nil when constructed around a test pool
	pool    connPool
	leases  *leaseManager
	logger  *logging.ColoredLogger
	cfg     config.DatabaseConfig
	catalog *catalog
}

// New connects a client according to cfg and verifies the database is
// reachable.
func New(ctx context.Context, cfg config.DatabaseConfig, logger *logging.ColoredLogger) (*Client, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	logger.ComponentInfo(logging.ComponentClient, "connected",
		zap.String("database", cfg.Database), zap.Int32("max_conns", cfg.MaxConns))

	c := newClient(&pgxPoolAdapter{pool: pool}, cfg, logger)
	c.pgxPool = pool
	return c, nil
}

// newClient wires a client around any connPool. Tests use it with fakes.
func newClient(pool connPool, cfg config.DatabaseConfig, logger *logging.ColoredLogger) *Client {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Client{
		pool:    pool,
		leases:  newLeaseManager(pool, logger),
		logger:  logger,
		cfg:     cfg,
		catalog: newCatalog(),
	}
}

// acquireCtx bounds pool acquisition with the configured timeout.
func (c *Client) acquireCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.AcquireTimeout > 0 {
		return context.WithTimeout(ctx, c.cfg.AcquireTimeout)
	}
	return ctx, func() {}
}

// Execute runs a single raw statement outside any transaction and returns
// its rows. It fails on empty SQL before touching a connection.
func (c *Client) Execute(ctx context.Context, sql string, args ...any) (Rows, error) {
	if sql == "" {
		return nil, errors.NewInvalidArgumentError("sql", "sql must not be empty", sql)
	}

	actx, cancel := c.acquireCtx(ctx)
	defer cancel()
	conn, err := c.pool.Acquire(actx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	return conn.Query(ctx, sql, args...)
}

// Ping verifies the pool can reach the database.
func (c *Client) Ping(ctx context.Context) error {
	if c.pgxPool == nil {
		return nil
	}
	return c.pgxPool.Ping(ctx)
}

// Stats returns pool statistics, or nil for a client without a real pool.
func (c *Client) Stats() *pgxpool.Stat {
	if c.pgxPool == nil {
		return nil
	}
	return c.pgxPool.Stat()
}

// Disconnect drains and closes the pool. Intended for graceful shutdown;
// it logs and never raises.
func (c *Client) Disconnect() {
	if c.pgxPool != nil {
		c.pgxPool.Close()
	}
	c.logger.ComponentInfo(logging.ComponentClient, "pool drained and closed")
}
