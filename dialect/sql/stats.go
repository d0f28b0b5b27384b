package sql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/syssam/scholar/dialect"
)

// Metrics holds the prometheus collectors updated by a StatsDriver.
type Metrics struct {
	statements *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	slow       prometheus.Counter
	txs        *prometheus.CounterVec
}

// NewMetrics creates the driver collectors under the given namespace.
// The collectors are not registered; see Register.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		statements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sql",
			Name:      "statements_total",
			Help:      "Number of executed statements by kind and result.",
		}, []string{"kind", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sql",
			Name:      "statement_duration_seconds",
			Help:      "Statement execution latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		slow: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sql",
			Name:      "slow_statements_total",
			Help:      "Number of statements slower than the configured threshold.",
		}),
		txs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sql",
			Name:      "transactions_total",
			Help:      "Number of finished transactions by outcome.",
		}, []string{"outcome"}),
	}
}

// Register registers all collectors on reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	var errs []error
	for _, c := range []prometheus.Collector{m.statements, m.duration, m.slow, m.txs} {
		errs = append(errs, reg.Register(c))
	}
	return errors.Join(errs...)
}

// Statements returns the statements counter, labeled by kind and result.
func (m *Metrics) Statements() *prometheus.CounterVec { return m.statements }

// Transactions returns the transactions counter, labeled by outcome.
func (m *Metrics) Transactions() *prometheus.CounterVec { return m.txs }

// Slow returns the slow statements counter.
func (m *Metrics) Slow() prometheus.Counter { return m.slow }

// StatsDriver wraps a Driver with metrics collection and slow statement
// logging.
type StatsDriver struct {
	dialect.Driver
	metrics       *Metrics
	log           *zap.Logger
	slowThreshold time.Duration
}

// StatsOption configures the StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the threshold for slow statement detection.
// Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.slowThreshold = d
	}
}

// WithStatsLogger sets the logger used to report slow statements.
func WithStatsLogger(l *zap.Logger) StatsOption {
	return func(s *StatsDriver) {
		s.log = l
	}
}

// NewStatsDriver wraps drv with metrics collection.
//
//	m := sql.NewMetrics("scholar")
//	_ = m.Register(prometheus.DefaultRegisterer)
//	drv = sql.NewStatsDriver(drv, m, sql.WithStatsLogger(logger))
func NewStatsDriver(drv dialect.Driver, m *Metrics, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{
		Driver:        drv,
		metrics:       m,
		log:           zap.NewNop(),
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query executes a query and records metrics.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.record(query, args, start, err, "query")
	return err
}

// Exec executes a statement and records metrics.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	d.record(query, args, start, err, "exec")
	return err
}

func (d *StatsDriver) record(query string, args any, start time.Time, err error, kind string) {
	elapsed := time.Since(start)
	result := "ok"
	if err != nil {
		result = "error"
	}
	d.metrics.statements.WithLabelValues(kind, result).Inc()
	d.metrics.duration.WithLabelValues(kind).Observe(elapsed.Seconds())
	if elapsed > d.slowThreshold {
		d.metrics.slow.Inc()
		d.log.Warn("slow statement",
			zap.Duration("duration", elapsed),
			zap.String("query", query),
			zap.Any("args", args),
		)
	}
}

// Tx starts a transaction that also records metrics.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &StatsTx{Tx: tx, driver: d}, nil
}

// BeginTxWait starts a transaction through the wrapped driver and records
// metrics for it.
func (d *StatsDriver) BeginTxWait(ctx context.Context, wait time.Duration, opts *TxOptions) (dialect.Tx, error) {
	b, ok := d.Driver.(TxBeginner)
	if !ok {
		return nil, fmt.Errorf("dialect/sql: driver %T does not support transaction options", d.Driver)
	}
	tx, err := b.BeginTxWait(ctx, wait, opts)
	if err != nil {
		return nil, err
	}
	return &StatsTx{Tx: tx, driver: d}, nil
}

// StatsTx wraps a transaction with metrics collection.
type StatsTx struct {
	dialect.Tx
	driver *StatsDriver
}

// Query executes a query within the transaction and records metrics.
func (tx *StatsTx) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Query(ctx, query, args, v)
	tx.driver.record(query, args, start, err, "query")
	return err
}

// Exec executes a statement within the transaction and records metrics.
func (tx *StatsTx) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Exec(ctx, query, args, v)
	tx.driver.record(query, args, start, err, "exec")
	return err
}

// Commit commits the transaction and counts the outcome.
func (tx *StatsTx) Commit() error {
	err := tx.Tx.Commit()
	outcome := "commit"
	if err != nil {
		outcome = "commit_error"
	}
	tx.driver.metrics.txs.WithLabelValues(outcome).Inc()
	return err
}

// Rollback rolls back the transaction and counts the outcome.
func (tx *StatsTx) Rollback() error {
	err := tx.Tx.Rollback()
	tx.driver.metrics.txs.WithLabelValues("rollback").Inc()
	return err
}

// DebugDriver wraps a Driver with statement logging.
type DebugDriver struct {
	dialect.Driver
	log *zap.Logger
}

// DebugOption configures the DebugDriver.
type DebugOption func(*DebugDriver)

// DebugWithLogger sets the logger statements are written to.
func DebugWithLogger(l *zap.Logger) DebugOption {
	return func(d *DebugDriver) {
		d.log = l
	}
}

// NewDebugDriver wraps drv with debug logging of every statement.
func NewDebugDriver(drv dialect.Driver, opts ...DebugOption) *DebugDriver {
	d := &DebugDriver{
		Driver: drv,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Query executes a query and logs it.
func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	d.log.Debug("query", zap.String("sql", query), zap.Any("args", args))
	return d.Driver.Query(ctx, query, args, v)
}

// Exec executes a statement and logs it.
func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	d.log.Debug("exec", zap.String("sql", query), zap.Any("args", args))
	return d.Driver.Exec(ctx, query, args, v)
}

// Tx starts a transaction with debug logging.
func (d *DebugDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	d.log.Debug("begin transaction")
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &DebugTx{Tx: tx, log: d.log}, nil
}

// BeginTxWait starts a transaction through the wrapped driver with debug
// logging.
func (d *DebugDriver) BeginTxWait(ctx context.Context, wait time.Duration, opts *TxOptions) (dialect.Tx, error) {
	b, ok := d.Driver.(TxBeginner)
	if !ok {
		return nil, fmt.Errorf("dialect/sql: driver %T does not support transaction options", d.Driver)
	}
	d.log.Debug("begin transaction", zap.Duration("max_wait", wait))
	tx, err := b.BeginTxWait(ctx, wait, opts)
	if err != nil {
		return nil, err
	}
	return &DebugTx{Tx: tx, log: d.log}, nil
}

// DebugTx wraps a transaction with debug logging.
type DebugTx struct {
	dialect.Tx
	log *zap.Logger
}

// Query executes a query within the transaction and logs it.
func (tx *DebugTx) Query(ctx context.Context, query string, args, v any) error {
	tx.log.Debug("tx query", zap.String("sql", query), zap.Any("args", args))
	return tx.Tx.Query(ctx, query, args, v)
}

// Exec executes a statement within the transaction and logs it.
func (tx *DebugTx) Exec(ctx context.Context, query string, args, v any) error {
	tx.log.Debug("tx exec", zap.String("sql", query), zap.Any("args", args))
	return tx.Tx.Exec(ctx, query, args, v)
}

// Commit commits the transaction and logs it.
func (tx *DebugTx) Commit() error {
	tx.log.Debug("commit transaction")
	return tx.Tx.Commit()
}

// Rollback rolls back the transaction and logs it.
func (tx *DebugTx) Rollback() error {
	tx.log.Debug("rollback transaction")
	return tx.Tx.Rollback()
}

// Ensure interfaces are implemented.
var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*StatsTx)(nil)
	_ TxBeginner     = (*StatsDriver)(nil)
	_ dialect.Driver = (*DebugDriver)(nil)
	_ dialect.Tx     = (*DebugTx)(nil)
	_ TxBeginner     = (*DebugDriver)(nil)
)
