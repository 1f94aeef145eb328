package pgforge

// lease.go implements reference-counted borrowing of pooled connections.
// A logical transaction owns exactly one physical connection for its whole
// span; nested calls (a hook issuing further statements, a preserved
// multi-step transaction) share it by retaining the same lease instead of
// deadlocking on pool exhaustion.

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/pgforge/pgforge/pkg/logging"
)

// connPool is the slice of pool behavior the lease manager needs. It is
// implemented by the pgx adapter and by test fakes.
type connPool interface {
	Acquire(ctx context.Context) (pooledConn, error)
}

// pooledConn is one leased physical connection.
type pooledConn interface {
	// Exec runs a statement and discards its result (BEGIN, COMMIT, ROLLBACK).
	Exec(ctx context.Context, sql string) error
	// Query runs one statement and collects its rows.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	// Batch pipelines the statements on this connection without waiting for
	// earlier responses and returns each statement's rows in input order.
	Batch(ctx context.Context, specs []StatementSpec) ([]Rows, error)
	// Release returns the connection to the pool.
	Release()
	// Discard destroys the connection instead of returning it; used when
	// its state is indeterminate after a failed rollback.
	Discard()
}

// Lease is a reference-counted borrow of one pooled connection. It is
// handed out by the lease manager and shared by nested acquisitions; the
// physical connection goes back to the pool when the count reaches zero.
type Lease struct {
	mu   sync.Mutex
	conn pooledConn
	refs int

	// inTx tracks whether a BEGIN has been issued and not yet resolved, so
	// reentrant invocations neither re-BEGIN nor commit a transaction they
	// do not own.
	inTx bool
	// preserved marks a lease whose owning invocation skipped COMMIT,
	// transferring commit responsibility (and one reference) to the caller.
	preserved bool
}

func (l *Lease) retain() {
	l.mu.Lock()
	l.refs++
	l.mu.Unlock()
}

// release drops one reference. A non-nil err discards the physical
// connection immediately and zeroes the count: after a failed rollback the
// connection state is indeterminate and must not return to the pool.
func (l *Lease) release(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return
	}
	if err != nil {
		l.conn.Discard()
		l.conn = nil
		l.refs = 0
		l.inTx = false
		l.preserved = false
		return
	}
	if l.refs > 0 {
		l.refs--
	}
	if l.refs == 0 {
		l.conn.Release()
		l.conn = nil
	}
}

// connection returns the underlying physical connection, or nil after the
// lease has been fully released or discarded.
func (l *Lease) connection() pooledConn {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn
}

// tryOwnTx marks the lease as in-transaction and reports whether the
// caller became the owner (true only when no transaction was open).
func (l *Lease) tryOwnTx() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inTx {
		return false
	}
	l.inTx = true
	return true
}

// endTx clears the in-transaction mark after COMMIT or ROLLBACK.
func (l *Lease) endTx() {
	l.mu.Lock()
	l.inTx = false
	l.mu.Unlock()
}

// markPreserved records that the current invocation is leaving its
// transaction open, and reports whether the lease was newly preserved. A
// newly preserving invocation keeps its reference alive for the caller;
// repeat preserving invocations release their own.
func (l *Lease) markPreserved() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.preserved {
		return false
	}
	l.preserved = true
	return true
}

// takePreserved clears the preserved mark and reports whether it was set,
// so the finishing invocation can drop the carried-over reference.
func (l *Lease) takePreserved() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	was := l.preserved
	l.preserved = false
	return was
}

func (l *Lease) isPreserved() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.preserved
}

// leaseManager acquires and releases leases against a pool.
type leaseManager struct {
	pool   connPool
	logger *logging.ColoredLogger
}

func newLeaseManager(pool connPool, logger *logging.ColoredLogger) *leaseManager {
	return &leaseManager{pool: pool, logger: logger}
}

// Acquire returns existing with its count incremented when a lease is
// already held, otherwise it obtains a connection from the pool with a
// count of one. Acquisition may suspend when the pool is exhausted,
// bounded by ctx.
func (m *leaseManager) Acquire(ctx context.Context, existing *Lease) (*Lease, error) {
	if existing != nil {
		existing.retain()
		return existing, nil
	}

	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		m.logger.ComponentError(logging.ComponentLease, "failed to acquire pooled connection", zap.Error(err))
		return nil, err
	}
	return &Lease{conn: conn, refs: 1}, nil
}
