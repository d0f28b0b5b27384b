package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/syssam/scholar"
	"github.com/syssam/scholar/dialect"
	"github.com/syssam/scholar/dialect/sql"
)

// TxOptions configures a transaction.
type TxOptions struct {
	// Isolation is the isolation level. SQLite always runs serializable
	// transactions and ignores it.
	Isolation sql.IsolationLevel
	// Timeout bounds the whole transaction, from the start of the callback
	// to the commit.
	Timeout time.Duration
	// MaxWait bounds the wait for a connection to start the transaction.
	MaxWait time.Duration
}

// DefaultTxOptions are the transaction defaults of a Client.
var DefaultTxOptions = TxOptions{
	Timeout: 5 * time.Second,
	MaxWait: 2 * time.Second,
}

// merge fills the zero options of o from def.
func (o TxOptions) merge(def TxOptions) TxOptions {
	if o.Timeout == 0 {
		o.Timeout = def.Timeout
	}
	if o.MaxWait == 0 {
		o.MaxWait = def.MaxWait
	}
	if o.Isolation == sql.LevelDefault {
		o.Isolation = def.Isolation
	}
	return o
}

// TxClient runs operations inside an interactive transaction. It is
// valid until the callback that received it returns.
type TxClient struct {
	s *session
}

// Model returns the transactional delegate of the named entity.
func (tx *TxClient) Model(name string) *Delegate { return tx.s.Model(name) }

// For returns the transactional delegate of the entity of a handle.
func (tx *TxClient) For(h Handle) *Delegate { return tx.s.For(h) }

// Tx runs fn in a transaction. The transaction commits when fn returns
// nil and rolls back when fn fails, panics or exceeds the timeout.
//
//	err := client.Tx(ctx, func(ctx context.Context, tx *engine.TxClient) error {
//		if _, err := tx.Model("Fee").Update(ctx, engine.UpdateArgs{...}); err != nil {
//			return err
//		}
//		_, err := tx.Model("Payroll").Create(ctx, engine.CreateArgs{...})
//		return err
//	}, engine.TxOptions{Isolation: sql.LevelSerializable})
func (c *Client) Tx(ctx context.Context, fn func(context.Context, *TxClient) error, opts ...TxOptions) (err error) {
	var o TxOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	o = o.merge(c.txOpts)
	ctx = c.scoped(ctx)
	txCtx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()
	tx, err := c.begin(txCtx, o)
	if err != nil {
		return err
	}
	closed := &atomic.Bool{}
	txc := &TxClient{s: &session{config: c.config, ex: tx, drv: c.driver, tx: tx, closed: closed}}
	var once sync.Once
	// finish ends the transaction with end unless it already ended.
	finish := func(end func() error) (ran bool, err error) {
		once.Do(func() {
			closed.Store(true)
			ran, err = true, end()
		})
		return ran, err
	}
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-txCtx.Done():
			// Release the connection while fn may still be running.
			if ran, err := finish(tx.Rollback); ran {
				c.log.Debug("transaction rolled back on expiry", zap.Error(err))
			}
		case <-done:
		}
	}()
	defer func() {
		if v := recover(); v != nil {
			if _, rerr := finish(tx.Rollback); rerr != nil {
				c.log.Warn("rollback after panic failed", zap.Error(rerr))
			}
			panic(v)
		}
	}()
	ferr := fn(txCtx, txc)
	if ferr == nil && txCtx.Err() == nil {
		ran, err := finish(tx.Commit)
		switch {
		case !ran:
			// Rolled back on expiry.
		case err == nil:
			c.log.Debug("transaction committed")
			return nil
		case errors.Is(txCtx.Err(), context.DeadlineExceeded):
			return &scholar.TimeoutError{Op: "transaction", Limit: o.Timeout, Err: err}
		default:
			return translate(nil, err)
		}
	}
	if ferr == nil || errors.Is(txCtx.Err(), context.DeadlineExceeded) {
		ferr = &scholar.TimeoutError{Op: "transaction", Limit: o.Timeout, Err: errors.Join(ferr, txCtx.Err())}
		c.log.Warn("transaction timed out", zap.Duration("timeout", o.Timeout))
	}
	if _, rerr := finish(tx.Rollback); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
		return fmt.Errorf("%w: %w", ferr, &scholar.RollbackError{Err: rerr})
	}
	c.log.Debug("transaction rolled back", zap.Error(ferr))
	return ferr
}

// begin starts a transaction, waiting at most o.MaxWait for a connection.
func (c *Client) begin(ctx context.Context, o TxOptions) (dialect.Tx, error) {
	var (
		tx  dialect.Tx
		err error
	)
	b, ok := c.driver.(sql.TxBeginner)
	if !ok {
		return nil, fmt.Errorf("scholar: driver %T does not support transaction options", c.driver)
	}
	opts := &sql.TxOptions{Isolation: o.Isolation}
	if c.dialect == dialect.SQLite {
		opts.Isolation = sql.LevelDefault
	}
	tx, err = b.BeginTxWait(ctx, o.MaxWait, opts)
	switch {
	case err == nil:
		return tx, nil
	case errors.Is(err, context.DeadlineExceeded):
		c.log.Warn("transaction could not start", zap.Duration("max_wait", o.MaxWait))
		return nil, &scholar.TimeoutError{Op: "begin", Limit: o.MaxWait, Err: err}
	case isConnError(err):
		return nil, &scholar.ConnectionError{Err: err}
	}
	return nil, fmt.Errorf("scholar: begin transaction: %w", err)
}

// Operation is one step of a batched transaction.
type Operation struct {
	Entity string
	run    func(context.Context, *Delegate) (any, error)
}

// FindManyOp returns a FindMany step.
func FindManyOp(entity string, args FindArgs) Operation {
	return Operation{Entity: entity, run: func(ctx context.Context, d *Delegate) (any, error) {
		return d.FindMany(ctx, args)
	}}
}

// FindUniqueOp returns a FindUnique step.
func FindUniqueOp(entity string, args FindUniqueArgs) Operation {
	return Operation{Entity: entity, run: func(ctx context.Context, d *Delegate) (any, error) {
		return d.FindUnique(ctx, args)
	}}
}

// CreateOp returns a Create step.
func CreateOp(entity string, args CreateArgs) Operation {
	return Operation{Entity: entity, run: func(ctx context.Context, d *Delegate) (any, error) {
		return d.Create(ctx, args)
	}}
}

// CreateManyOp returns a CreateMany step.
func CreateManyOp(entity string, args CreateManyArgs) Operation {
	return Operation{Entity: entity, run: func(ctx context.Context, d *Delegate) (any, error) {
		return d.CreateMany(ctx, args)
	}}
}

// UpdateOp returns an Update step.
func UpdateOp(entity string, args UpdateArgs) Operation {
	return Operation{Entity: entity, run: func(ctx context.Context, d *Delegate) (any, error) {
		return d.Update(ctx, args)
	}}
}

// UpdateManyOp returns an UpdateMany step.
func UpdateManyOp(entity string, args UpdateManyArgs) Operation {
	return Operation{Entity: entity, run: func(ctx context.Context, d *Delegate) (any, error) {
		return d.UpdateMany(ctx, args)
	}}
}

// UpsertOp returns an Upsert step.
func UpsertOp(entity string, args UpsertArgs) Operation {
	return Operation{Entity: entity, run: func(ctx context.Context, d *Delegate) (any, error) {
		return d.Upsert(ctx, args)
	}}
}

// DeleteOp returns a Delete step.
func DeleteOp(entity string, args DeleteArgs) Operation {
	return Operation{Entity: entity, run: func(ctx context.Context, d *Delegate) (any, error) {
		return d.Delete(ctx, args)
	}}
}

// DeleteManyOp returns a DeleteMany step.
func DeleteManyOp(entity string, args DeleteManyArgs) Operation {
	return Operation{Entity: entity, run: func(ctx context.Context, d *Delegate) (any, error) {
		return d.DeleteMany(ctx, args)
	}}
}

// CountOp returns a Count step.
func CountOp(entity string, args CountArgs) Operation {
	return Operation{Entity: entity, run: func(ctx context.Context, d *Delegate) (any, error) {
		return d.Count(ctx, args)
	}}
}

// Transaction runs ops in order in one transaction and returns their
// results in the same order. The first failing step rolls back every
// step.
//
//	res, err := client.Transaction(ctx, []engine.Operation{
//		engine.DeleteManyOp("Attendance", engine.DeleteManyArgs{Where: school.Attendance.StudentID.EQ(id)}),
//		engine.DeleteOp("Student", engine.DeleteArgs{Where: engine.Unique{"id": id}}),
//	})
func (c *Client) Transaction(ctx context.Context, ops []Operation, opts ...TxOptions) ([]any, error) {
	results := make([]any, 0, len(ops))
	err := c.Tx(ctx, func(ctx context.Context, tx *TxClient) error {
		for i, op := range ops {
			if op.run == nil {
				return scholar.Validationf(op.Entity, "transaction: operation %d is empty", i)
			}
			res, err := op.run(ctx, tx.Model(op.Entity))
			if err != nil {
				return err
			}
			results = append(results, res)
		}
		return nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	return results, nil
}
