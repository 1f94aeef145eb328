package pgforge

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgforge/pgforge/pkg/errors"
)

func TestTransactionHappyPath(t *testing.T) {
	pool := newFakePool()
	pool.conn.results["SELECT 1"] = Rows{{"n": 1}}
	client := newTestClient(pool)

	res, err := client.Transaction(context.Background(), TxRequest{
		Statements: []StatementSpec{{SQL: "SELECT 1"}},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"BEGIN", "SELECT 1", "COMMIT"}, pool.conn.journalCopy())
	assert.Equal(t, ShapeRows, res.Shape)
	assert.Equal(t, Rows{{"n": 1}}, res.Rows)
	assert.Zero(t, pool.outstanding())
}

func TestTransactionMultiStatementOrder(t *testing.T) {
	pool := newFakePool()
	client := newTestClient(pool)

	res, err := client.Transaction(context.Background(), TxRequest{
		Statements: []StatementSpec{{SQL: "a"}, {SQL: "b"}, {SQL: "c"}},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"BEGIN", "a", "b", "c", "COMMIT"}, pool.conn.journalCopy())
	assert.Equal(t, ShapeSets, res.Shape)
	assert.Len(t, res.Sets, 3)
}

func TestTransactionNilStatements(t *testing.T) {
	client := newTestClient(newFakePool())

	_, err := client.Transaction(context.Background(), TxRequest{}, nil)
	assert.True(t, errors.IsInvalidArgument(err), "got %v", err)
}

func TestTransactionEmptyStatements(t *testing.T) {
	pool := newFakePool()
	client := newTestClient(pool)

	res, err := client.Transaction(context.Background(), TxRequest{
		Statements: []StatementSpec{},
	}, nil)
	require.NoError(t, err)

	// no connection is touched for an empty list
	assert.Zero(t, pool.acquired)
	assert.Equal(t, ShapeRows, res.Shape)
	assert.NotNil(t, res.Rows)
	assert.Empty(t, res.Rows)
}

func TestTransactionStatementFailureRollsBack(t *testing.T) {
	pool := newFakePool()
	pool.conn.failOn["b"] = stderrors.New("duplicate key")
	client := newTestClient(pool)

	_, err := client.Transaction(context.Background(), TxRequest{
		Statements: []StatementSpec{{SQL: "a"}, {SQL: "b"}},
	}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsTransaction(err), "got %v", err)

	assert.Equal(t, []string{"BEGIN", "a", "b", "ROLLBACK"}, pool.conn.journalCopy())
	assert.Zero(t, pool.conn.count("COMMIT"))
	assert.Zero(t, pool.outstanding())
}

func TestTransactionRollbackFailureDiscardsConnection(t *testing.T) {
	pool := newFakePool()
	pool.conn.failOn["a"] = stderrors.New("statement failed")
	pool.conn.failOn["ROLLBACK"] = stderrors.New("connection gone")
	client := newTestClient(pool)

	_, err := client.Transaction(context.Background(), TxRequest{
		Statements: []StatementSpec{{SQL: "a"}},
	}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsRollback(err), "got %v", err)

	assert.Equal(t, 1, pool.conn.discarded)
	assert.Zero(t, pool.conn.released)
	assert.Zero(t, pool.outstanding())
}

func TestTransactionBeginFailure(t *testing.T) {
	pool := newFakePool()
	pool.conn.failOn["BEGIN"] = stderrors.New("server shutting down")
	client := newTestClient(pool)

	_, err := client.Transaction(context.Background(), TxRequest{
		Statements: []StatementSpec{{SQL: "a"}},
	}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsTransaction(err), "got %v", err)

	// nothing to roll back, connection goes straight back to the pool
	assert.Zero(t, pool.conn.count("ROLLBACK"))
	assert.Equal(t, 1, pool.conn.released)
	assert.Zero(t, pool.outstanding())
}

func TestTransactionCommitFailureRollsBack(t *testing.T) {
	pool := newFakePool()
	pool.conn.failOn["COMMIT"] = stderrors.New("serialization failure")
	client := newTestClient(pool)

	_, err := client.Transaction(context.Background(), TxRequest{
		Statements: []StatementSpec{{SQL: "a"}},
	}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsTransaction(err), "got %v", err)
	assert.Equal(t, 1, pool.conn.count("ROLLBACK"))
	assert.Zero(t, pool.outstanding())
}

func TestTransactionMissingAlias(t *testing.T) {
	client := newTestClient(newFakePool())

	_, err := client.Transaction(context.Background(), TxRequest{
		Statements:      []StatementSpec{{SQL: "a", Alias: "users"}, {SQL: "b"}},
		ReturnWithAlias: true,
	}, nil)
	assert.True(t, errors.IsMissingAlias(err), "got %v", err)
}

func TestTransactionAliasedResult(t *testing.T) {
	pool := newFakePool()
	pool.conn.results["a"] = Rows{{"id": 1}}
	client := newTestClient(pool)

	res, err := client.Transaction(context.Background(), TxRequest{
		Statements: []StatementSpec{
			{SQL: "a", Alias: "users"},
			{SQL: "b", Alias: "orders"},
		},
		ReturnWithAlias: true,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, ShapeAliased, res.Shape)
	assert.Equal(t, Rows{{"id": 1}}, res.Aliased["users"])
	assert.NotNil(t, res.Aliased["orders"])
	assert.Empty(t, res.Aliased["orders"])
}

func TestTransactionHookVetoRollsBack(t *testing.T) {
	pool := newFakePool()
	client := newTestClient(pool)

	veto := stderrors.New("business rule violated")
	_, err := client.Transaction(context.Background(), TxRequest{
		Statements: []StatementSpec{{SQL: "a"}},
	}, func(ctx context.Context, res *Result) (*Result, error) {
		return nil, veto
	})
	require.Error(t, err)
	assert.True(t, errors.IsTransaction(err), "got %v", err)
	assert.ErrorIs(t, err, veto)

	assert.Equal(t, 1, pool.conn.count("ROLLBACK"))
	assert.Zero(t, pool.conn.count("COMMIT"))
	assert.Zero(t, pool.outstanding())
}

func TestTransactionHookReplacesResult(t *testing.T) {
	pool := newFakePool()
	client := newTestClient(pool)

	replacement := &Result{Shape: ShapeRows, Rows: Rows{{"replaced": true}}}
	res, err := client.Transaction(context.Background(), TxRequest{
		Statements: []StatementSpec{{SQL: "a"}},
	}, func(ctx context.Context, res *Result) (*Result, error) {
		return replacement, nil
	})
	require.NoError(t, err)
	assert.Same(t, replacement, res)
	assert.Equal(t, 1, pool.conn.count("COMMIT"))
}

func TestTransactionHookSeesShapedResult(t *testing.T) {
	pool := newFakePool()
	pool.conn.results["a"] = Rows{{"id": 7}}
	client := newTestClient(pool)

	var seen Rows
	_, err := client.Transaction(context.Background(), TxRequest{
		Statements: []StatementSpec{{SQL: "a"}},
	}, func(ctx context.Context, res *Result) (*Result, error) {
		seen = res.Rows
		// the hook runs inside the transaction, before COMMIT
		if n := pool.conn.count("COMMIT"); n != 0 {
			t.Errorf("COMMIT count during hook = %d; want 0", n)
		}
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, Rows{{"id": 7}}, seen)
}

func TestTransactionHookRunsNestedStatements(t *testing.T) {
	pool := newFakePool()
	pool.conn.results["audit"] = Rows{{"ok": true}}
	client := newTestClient(pool)

	res, err := client.Transaction(context.Background(), TxRequest{
		Statements: []StatementSpec{{SQL: "a"}},
	}, func(ctx context.Context, res *Result) (*Result, error) {
		require.NotNil(t, res.Lease)
		nested, err := client.Transaction(ctx, TxRequest{
			Statements: []StatementSpec{{SQL: "audit"}},
			Lease:      res.Lease,
		}, nil)
		if err != nil {
			return nil, err
		}
		assert.Equal(t, Rows{{"ok": true}}, nested.Rows)
		return nil, nil
	})
	require.NoError(t, err)

	// the nested call joins the open transaction on the same physical
	// connection instead of acquiring a second one
	assert.Equal(t, []string{"BEGIN", "a", "audit", "COMMIT"}, pool.conn.journalCopy())
	assert.Equal(t, 1, pool.acquired)
	assert.Zero(t, pool.outstanding())
	assert.Nil(t, res.Lease)
}

func TestTransactionHookNestedFailureRollsBack(t *testing.T) {
	pool := newFakePool()
	pool.conn.failOn["audit"] = stderrors.New("audit table missing")
	client := newTestClient(pool)

	_, err := client.Transaction(context.Background(), TxRequest{
		Statements: []StatementSpec{{SQL: "a"}},
	}, func(ctx context.Context, res *Result) (*Result, error) {
		_, err := client.Transaction(ctx, TxRequest{
			Statements: []StatementSpec{{SQL: "audit"}},
			Lease:      res.Lease,
		}, nil)
		return nil, err
	})
	require.Error(t, err)
	assert.True(t, errors.IsTransaction(err), "got %v", err)

	assert.Zero(t, pool.conn.count("COMMIT"))
	assert.Zero(t, pool.outstanding())
}

func TestTransactionPreserveLease(t *testing.T) {
	pool := newFakePool()
	client := newTestClient(pool)

	first, err := client.Transaction(context.Background(), TxRequest{
		Statements:    []StatementSpec{{SQL: "a"}},
		PreserveLease: true,
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, first.Lease)

	// transaction stays open, connection stays leased
	assert.Equal(t, []string{"BEGIN", "a"}, pool.conn.journalCopy())
	assert.Equal(t, 1, pool.outstanding())

	second, err := client.Transaction(context.Background(), TxRequest{
		Statements: []StatementSpec{{SQL: "b"}},
		Lease:      first.Lease,
	}, nil)
	require.NoError(t, err)
	assert.Nil(t, second.Lease)

	// one BEGIN, one COMMIT across both calls
	assert.Equal(t, []string{"BEGIN", "a", "b", "COMMIT"}, pool.conn.journalCopy())
	assert.Zero(t, pool.outstanding())
	assert.Equal(t, 1, pool.acquired)
}

func TestTransactionPreserveLeaseRepeated(t *testing.T) {
	pool := newFakePool()
	client := newTestClient(pool)

	first, err := client.Transaction(context.Background(), TxRequest{
		Statements:    []StatementSpec{{SQL: "a"}},
		PreserveLease: true,
	}, nil)
	require.NoError(t, err)

	second, err := client.Transaction(context.Background(), TxRequest{
		Statements:    []StatementSpec{{SQL: "b"}},
		Lease:         first.Lease,
		PreserveLease: true,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, pool.outstanding())

	_, err = client.Transaction(context.Background(), TxRequest{
		Statements: []StatementSpec{{SQL: "c"}},
		Lease:      second.Lease,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"BEGIN", "a", "b", "c", "COMMIT"}, pool.conn.journalCopy())
	assert.Zero(t, pool.outstanding())
}

func TestTransactionPreservedLeaseAbortsCleanly(t *testing.T) {
	pool := newFakePool()
	pool.conn.failOn["boom"] = stderrors.New("constraint violated")
	client := newTestClient(pool)

	first, err := client.Transaction(context.Background(), TxRequest{
		Statements:    []StatementSpec{{SQL: "a"}},
		PreserveLease: true,
	}, nil)
	require.NoError(t, err)

	_, err = client.Transaction(context.Background(), TxRequest{
		Statements: []StatementSpec{{SQL: "boom"}},
		Lease:      first.Lease,
	}, nil)
	require.Error(t, err)

	// the failure rolls the whole preserved transaction back and frees
	// both the nested and the carried reference
	assert.Equal(t, []string{"BEGIN", "a", "boom", "ROLLBACK"}, pool.conn.journalCopy())
	assert.Zero(t, pool.outstanding())
}

func TestTransactionAcquireFailure(t *testing.T) {
	pool := newFakePool()
	pool.err = stderrors.New("pool closed")
	client := newTestClient(pool)

	_, err := client.Transaction(context.Background(), TxRequest{
		Statements: []StatementSpec{{SQL: "a"}},
	}, nil)
	require.Error(t, err)
}

func TestTransactionForceFlat(t *testing.T) {
	pool := newFakePool()
	pool.conn.results["a"] = Rows{{"id": 1}}
	pool.conn.results["b"] = Rows{{"id": 2}}
	client := newTestClient(pool)

	res, err := client.Transaction(context.Background(), TxRequest{
		Statements: []StatementSpec{{SQL: "a"}, {SQL: "b"}},
		ForceFlat:  true,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, ShapeRows, res.Shape)
	assert.Equal(t, Rows{{"id": 1}, {"id": 2}}, res.Rows)
}
