package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/syssam/scholar/dialect"
	"github.com/syssam/scholar/dialect/sql"
	"github.com/syssam/scholar/schema"
	"github.com/syssam/scholar/schema/school"
)

// store is an open connection to the configured database.
type store struct {
	db    *sql.Driver
	drv   dialect.Driver
	graph *schema.Graph
	stop  func()
}

// openStore opens the configured database and loads the schema graph.
// With metrics enabled, statements go through a stats driver whose
// collectors are served on the metrics address.
func (o *RootOptions) openStore(ctx context.Context) (*store, error) {
	g, err := o.graph()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(o.cfg.Dialect, o.cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", o.cfg.Dialect, err)
	}
	if err := db.DB().PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect %s: %w", o.cfg.Dialect, err)
	}
	s := &store{db: db, drv: db, graph: g, stop: func() {}}
	if o.cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		m := sql.NewMetrics(o.cfg.Metrics.Namespace)
		if err := m.Register(reg); err != nil {
			_ = db.Close()
			return nil, err
		}
		s.drv = sql.NewStatsDriver(db, m,
			sql.WithSlowThreshold(o.cfg.Metrics.SlowThreshold),
			sql.WithStatsLogger(o.log),
		)
		if o.MetricsAddr != "" {
			stop, err := o.serveMetrics(reg)
			if err != nil {
				_ = db.Close()
				return nil, err
			}
			s.stop = stop
		}
	}
	return s, nil
}

func (s *store) Close() error {
	s.stop()
	return s.db.Close()
}

func (o *RootOptions) graph() (*schema.Graph, error) {
	if o.cfg.Schema == "" {
		return school.MustGraph(), nil
	}
	g, err := schema.Load(o.cfg.Schema)
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", o.cfg.Schema, err)
	}
	return g, nil
}

func (o *RootOptions) serveMetrics(reg *prometheus.Registry) (func(), error) {
	ln, err := net.Listen("tcp", o.MetricsAddr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			o.log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	o.log.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	return func() { _ = srv.Close() }, nil
}
