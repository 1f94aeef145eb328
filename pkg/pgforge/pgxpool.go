package pgforge

// pgxpool.go adapts a pgx connection pool to the small pool interface the
// engine works against. Batch dispatch maps to pgx's pipeline support: all
// statements are written to the wire without waiting for earlier
// responses, and the server applies them in issuance order on the one
// connection.

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgxPoolAdapter struct {
	pool *pgxpool.Pool
}

func (p *pgxPoolAdapter) Acquire(ctx context.Context) (pooledConn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxConnAdapter{conn: conn}, nil
}

type pgxConnAdapter struct {
	conn *pgxpool.Conn
}

func (a *pgxConnAdapter) Exec(ctx context.Context, sql string) error {
	_, err := a.conn.Exec(ctx, sql)
	return err
}

func (a *pgxConnAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := a.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToMap)
}

func (a *pgxConnAdapter) Batch(ctx context.Context, specs []StatementSpec) ([]Rows, error) {
	batch := &pgx.Batch{}
	for _, spec := range specs {
		batch.Queue(spec.SQL, spec.Args...)
	}

	results := a.conn.SendBatch(ctx, batch)
	sets := make([]Rows, 0, len(specs))
	for range specs {
		rows, err := results.Query()
		if err != nil {
			_ = results.Close()
			return nil, err
		}
		set, err := pgx.CollectRows(rows, pgx.RowToMap)
		if err != nil {
			_ = results.Close()
			return nil, err
		}
		sets = append(sets, set)
	}
	if err := results.Close(); err != nil {
		return nil, err
	}
	return sets, nil
}

func (a *pgxConnAdapter) Release() {
	a.conn.Release()
}

func (a *pgxConnAdapter) Discard() {
	// Hijack removes the connection from the pool; closing it makes the
	// discard permanent.
	_ = a.conn.Hijack().Close(context.Background())
}
