package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/syssam/scholar"
	"github.com/syssam/scholar/dialect"
	"github.com/syssam/scholar/dialect/sql"
	"github.com/syssam/scholar/privacy"
	"github.com/syssam/scholar/schema"
)

// config is shared by a Client and the transactional clients it starts.
type config struct {
	graph     *schema.Graph
	dialect   string
	log       *zap.Logger
	debug     bool
	user      map[string][]privacy.QueryMutationRule
	policies  map[string]privacy.Policies
	noTenancy bool
	tenantVar string
	workers   int
	txOpts    TxOptions
}

// Option configures a Client.
type Option func(*config)

// WithLogger sets the logger of the client. The default discards logs.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		c.log = l
	}
}

// WithDebug logs every statement at debug level on the client logger.
func WithDebug() Option {
	return func(c *config) {
		c.debug = true
	}
}

// WithPolicy installs a privacy rule on the named entity. Rules of one
// entity are evaluated in installation order, after the tenant policy.
func WithPolicy(entity string, rule privacy.QueryMutationRule) Option {
	return func(c *config) {
		c.user[entity] = append(c.user[entity], rule)
	}
}

// WithoutTenantScope disables the tenant policy installed on
// tenant-scoped entities.
func WithoutTenantScope() Option {
	return func(c *config) {
		c.noTenancy = true
	}
}

// WithTenantVar sets a Postgres session variable to the viewer tenant
// before every statement, for use by row-level security policies.
//
//	engine.WithTenantVar("app.tenant_id")
func WithTenantVar(name string) Option {
	return func(c *config) {
		c.tenantVar = name
	}
}

// WithLoadWorkers bounds the concurrent per-record relation fetches of
// one read. Reads inside a transaction are always sequential.
func WithLoadWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// WithTxOptions sets the defaults of Tx and Transaction.
func WithTxOptions(opts TxOptions) Option {
	return func(c *config) {
		c.txOpts = opts
	}
}

// Client runs operations on the entities of a schema graph.
type Client struct {
	*session
	driver dialect.Driver
}

// Open returns a client running operations through drv.
//
//	drv, err := sql.Open(dialect.SQLite, "file:school.db?_pragma=foreign_keys(1)")
//	if err != nil {
//		return err
//	}
//	client, err := engine.Open(drv, school.MustGraph(), engine.WithLogger(logger))
func Open(drv dialect.Driver, g *schema.Graph, opts ...Option) (*Client, error) {
	if drv == nil {
		return nil, errors.New("scholar: driver is required")
	}
	if g == nil {
		return nil, errors.New("scholar: schema graph is required")
	}
	cfg := &config{
		graph:   g,
		dialect: drv.Dialect(),
		log:     zap.NewNop(),
		user:    make(map[string][]privacy.QueryMutationRule),
		workers: runtime.GOMAXPROCS(0),
		txOpts:  DefaultTxOptions,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	for name := range cfg.user {
		if _, ok := g.Entity(name); !ok {
			return nil, fmt.Errorf("scholar: policy for unknown entity %q", name)
		}
	}
	cfg.policies = make(map[string]privacy.Policies)
	for _, e := range g.Entities() {
		var ps privacy.Policies
		if tf, ok := e.TenantField(); ok && !cfg.noTenancy {
			ps = append(ps, privacy.TenantPolicy(tf.Name))
		}
		ps = append(ps, cfg.user[e.Name]...)
		if len(ps) > 0 {
			cfg.policies[e.Name] = ps
		}
	}
	if cfg.workers < 1 {
		cfg.workers = 1
	}
	if cfg.debug {
		drv = sql.NewDebugDriver(drv, sql.DebugWithLogger(cfg.log))
	}
	return &Client{
		session: &session{config: cfg, ex: drv, drv: drv},
		driver:  drv,
	}, nil
}

// Graph returns the schema graph of the client.
func (c *Client) Graph() *schema.Graph { return c.graph }

// Close closes the underlying driver.
func (c *Client) Close() error {
	return c.driver.Close()
}

// Handle is implemented by the generated entity handles.
type Handle interface {
	Entity() string
}

// session executes the statements of one client: directly on the driver,
// or on the transaction of a TxClient.
type session struct {
	*config
	ex  dialect.ExecQuerier
	drv dialect.Driver
	// tx is set for transactional sessions.
	tx     dialect.Tx
	closed *atomic.Bool
}

// Model returns the delegate running operations on the named entity.
// Operations of a delegate for an unknown entity fail with a validation
// error.
func (s *session) Model(name string) *Delegate {
	e, ok := s.graph.Entity(name)
	if !ok {
		return &Delegate{s: s, err: scholar.Validationf("", "unknown entity %q", name)}
	}
	return &Delegate{s: s, entity: e}
}

// For returns the delegate of the entity of a generated handle.
//
//	client.For(school.Student).FindMany(ctx, engine.FindArgs{})
func (s *session) For(h Handle) *Delegate {
	return s.Model(h.Entity())
}

// check reports if the session can still run statements.
func (s *session) check() error {
	if s.closed != nil && s.closed.Load() {
		return scholar.ErrTxClosed
	}
	return nil
}

// scoped attaches the tenant session variable to ctx when configured.
func (s *session) scoped(ctx context.Context) context.Context {
	if s.tenantVar == "" || s.dialect != dialect.Postgres {
		return ctx
	}
	if tenant, ok := privacy.TenantFromContext(ctx); ok {
		return sql.WithVar(ctx, s.tenantVar, tenant)
	}
	return ctx
}

// withTx runs fn in a transaction, reusing the session transaction if any.
func (s *session) withTx(ctx context.Context, fn func(*session) error) (err error) {
	if s.tx != nil {
		return fn(s)
	}
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return connError(err)
	}
	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()
	if err := fn(&session{config: s.config, ex: tx, drv: s.drv, tx: tx}); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			err = fmt.Errorf("%w: %w", err, &scholar.RollbackError{Err: rerr})
		}
		return err
	}
	return tx.Commit()
}

// query runs q and calls scan for every returned row.
func (s *session) query(ctx context.Context, q sql.Querier, scan func(*sql.Rows) error) error {
	query, args := q.Query()
	rows := &sql.Rows{}
	if err := s.ex.Query(ctx, query, args, rows); err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// exec runs q and returns the number of affected rows.
func (s *session) exec(ctx context.Context, q sql.Querier) (int64, error) {
	query, args := q.Query()
	var res sql.Result
	if err := s.ex.Exec(ctx, query, args, &res); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// workersFor returns the bound of concurrent relation fetches.
func (s *session) workersFor() int {
	if s.tx != nil {
		return 1
	}
	return s.workers
}
