package pgforge

// transaction.go implements the transaction executor: it leases a
// connection, pipelines every statement inside one BEGIN/COMMIT boundary,
// applies the optional pre-commit hook, shapes the result, and guarantees
// the connection is released on every exit path. No partial commit is ever
// visible: any failure after BEGIN triggers ROLLBACK before the error
// propagates.

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pgforge/pgforge/pkg/errors"
	"github.com/pgforge/pgforge/pkg/logging"
)

// Transaction executes req's statements atomically and returns the shaped
// result.
//
// A nil statement list is an error; an empty one is a deliberate tolerance
// for callers that legitimately have nothing to do: it short-circuits
// without touching a connection, returning the empty container of the
// requested shape (or the hook's view of it).
//
// When req.PreserveLease is set, COMMIT is skipped and the open lease is
// returned on the result; the caller finishes the transaction by passing
// that lease to a later call without PreserveLease. An abandoned preserved
// lease holds its connection until the pool closes.
func (c *Client) Transaction(ctx context.Context, req TxRequest, hook Hook) (*Result, error) {
	if req.Statements == nil {
		return nil, errors.NewInvalidArgumentError("statements", "statement list must not be nil", nil)
	}
	if req.ReturnWithAlias {
		for i, s := range req.Statements {
			if s.Alias == "" {
				return nil, errors.NewMissingAliasError(i)
			}
		}
	}

	if len(req.Statements) == 0 {
		res := shapeResult(req, nil)
		if hook != nil {
			replaced, err := hook(ctx, res)
			if err != nil {
				return nil, err
			}
			if replaced != nil {
				res = replaced
			}
		}
		return res, nil
	}

	if c.cfg.StatementTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.StatementTimeout)
		defer cancel()
	}

	txID := uuid.NewString()[:8]

	actx, cancel := c.acquireCtx(ctx)
	lease, err := c.leases.Acquire(actx, req.Lease)
	cancel()
	if err != nil {
		return nil, err
	}

	owner := lease.tryOwnTx()
	if owner {
		if err := lease.connection().Exec(ctx, "BEGIN"); err != nil {
			lease.endTx()
			lease.release(nil)
			return nil, errors.NewTransactionError("begin", err)
		}
	}

	c.logger.ComponentDebug(logging.ComponentTxn, "executing statements",
		zap.String("tx", txID), zap.Int("statements", len(req.Statements)), zap.Bool("owner", owner))

	sets, err := lease.connection().Batch(ctx, req.Statements)
	if err != nil {
		return nil, c.rollback(ctx, lease, txID, errors.NewTransactionError("statement", err))
	}

	res := shapeResult(req, sets)

	// the hook sees the live lease so it can run further statements inside
	// the open transaction by passing it on a nested TxRequest
	res.Lease = lease

	if hook != nil {
		replaced, err := hook(ctx, res)
		if err != nil {
			return nil, c.rollback(ctx, lease, txID, errors.NewTransactionError("hook", err))
		}
		if replaced != nil {
			res = replaced
		}
	}

	if req.PreserveLease {
		res.Lease = lease
		if !lease.markPreserved() {
			// an earlier call already carries the preserving reference
			lease.release(nil)
		}
		c.logger.ComponentDebug(logging.ComponentTxn, "lease preserved, commit deferred", zap.String("tx", txID))
		return res, nil
	}

	if owner || lease.isPreserved() {
		if err := lease.connection().Exec(ctx, "COMMIT"); err != nil {
			return nil, c.rollback(ctx, lease, txID, errors.NewTransactionError("commit", err))
		}
		lease.endTx()
		if lease.takePreserved() {
			lease.release(nil)
		}
		c.logger.ComponentDebug(logging.ComponentTxn, "committed", zap.String("tx", txID))
	}

	res.Lease = nil
	lease.release(nil)
	return res, nil
}

// rollback issues ROLLBACK and releases the lease. A failed rollback
// leaves the connection in an indeterminate state, so it is discarded from
// the pool and the rollback error is raised chained with the original
// failure; otherwise the original failure propagates unchanged.
//
// ROLLBACK runs on a context detached from cancellation so that a
// deadline that killed the statement phase does not also doom the
// recovery.
func (c *Client) rollback(ctx context.Context, lease *Lease, txID string, orig error) error {
	conn := lease.connection()
	if conn == nil {
		return orig
	}

	if rbErr := conn.Exec(context.WithoutCancel(ctx), "ROLLBACK"); rbErr != nil {
		c.logger.ComponentError(logging.ComponentTxn, "rollback failed, discarding connection",
			zap.String("tx", txID), zap.Error(rbErr))
		lease.release(rbErr)
		return errors.NewRollbackError(rbErr, orig)
	}

	lease.endTx()
	if lease.takePreserved() {
		lease.release(nil)
	}
	lease.release(nil)

	c.logger.ComponentWarn(logging.ComponentTxn, "rolled back",
		zap.String("tx", txID), zap.Error(orig))
	return orig
}
