package pgforge

// testsupport_test.go provides fake pool and connection implementations
// with a statement journal, so transaction behavior can be asserted
// without a live server.

import (
	"context"
	"sync"

	"github.com/pgforge/pgforge/pkg/config"
	"github.com/pgforge/pgforge/pkg/logging"
)

type fakeConn struct {
	mu        sync.Mutex
	journal   []string
	lastArgs  map[string][]any
	results   map[string]Rows
	failOn    map[string]error
	released  int
	discarded int
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		lastArgs: make(map[string][]any),
		results:  make(map[string]Rows),
		failOn:   make(map[string]error),
	}
}

func (f *fakeConn) record(sql string, args []any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.journal = append(f.journal, sql)
	f.lastArgs[sql] = args
	return f.failOn[sql]
}

func (f *fakeConn) rowsFor(sql string) Rows {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.results[sql]; ok {
		return r
	}
	return Rows{}
}

func (f *fakeConn) Exec(ctx context.Context, sql string) error {
	return f.record(sql, nil)
}

func (f *fakeConn) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if err := f.record(sql, args); err != nil {
		return nil, err
	}
	return f.rowsFor(sql), nil
}

func (f *fakeConn) Batch(ctx context.Context, specs []StatementSpec) ([]Rows, error) {
	sets := make([]Rows, 0, len(specs))
	for _, spec := range specs {
		if err := f.record(spec.SQL, spec.Args); err != nil {
			return nil, err
		}
		sets = append(sets, f.rowsFor(spec.SQL))
	}
	return sets, nil
}

func (f *fakeConn) Release() {
	f.mu.Lock()
	f.released++
	f.mu.Unlock()
}

func (f *fakeConn) Discard() {
	f.mu.Lock()
	f.discarded++
	f.mu.Unlock()
}

func (f *fakeConn) journalCopy() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.journal))
	copy(out, f.journal)
	return out
}

func (f *fakeConn) count(sql string) int {
	n := 0
	for _, s := range f.journalCopy() {
		if s == sql {
			n++
		}
	}
	return n
}

type fakePool struct {
	mu       sync.Mutex
	conn     *fakeConn
	acquired int
	err      error
}

func newFakePool() *fakePool {
	return &fakePool{conn: newFakeConn()}
}

func (p *fakePool) Acquire(ctx context.Context) (pooledConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.acquired++
	return p.conn, nil
}

// outstanding reports acquisitions not yet balanced by a release or discard.
func (p *fakePool) outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conn.mu.Lock()
	defer p.conn.mu.Unlock()
	return p.acquired - p.conn.released - p.conn.discarded
}

func newTestClient(pool *fakePool) *Client {
	return newClient(pool, config.DefaultDatabaseConfig(), logging.NewNopLogger())
}
