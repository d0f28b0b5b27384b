// Package migrate creates and upgrades the tables of a schema graph with
// Atlas.
//
//	m, err := migrate.New(db, dialect.SQLite, school.MustGraph())
//	if err != nil {
//		return err
//	}
//	if err := m.Create(ctx); err != nil {
//		return err
//	}
package migrate

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"strings"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	atlas "ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"
	"go.uber.org/zap"

	"github.com/syssam/scholar/dialect"
	"github.com/syssam/scholar/schema"
)

type (
	// Differ computes the changes between the current and desired schema.
	Differ interface {
		Diff(current, desired *atlas.Schema) ([]atlas.Change, error)
	}
	// DiffFunc adapts a function to Differ.
	DiffFunc func(current, desired *atlas.Schema) ([]atlas.Change, error)
	// DiffHook wraps the Differ of a migration.
	DiffHook func(Differ) Differ
)

// Diff calls f(current, desired).
func (f DiffFunc) Diff(current, desired *atlas.Schema) ([]atlas.Change, error) {
	return f(current, desired)
}

// Option configures a Migrate.
type Option func(*Migrate)

// WithDropColumn allows dropping columns absent from the graph.
func WithDropColumn(b bool) Option {
	return func(m *Migrate) {
		m.dropColumns = b
	}
}

// WithDropIndex allows dropping indexes absent from the graph.
func WithDropIndex(b bool) Option {
	return func(m *Migrate) {
		m.dropIndexes = b
	}
}

// WithDiffHook adds hooks around the schema diff, applied in order.
func WithDiffHook(hooks ...DiffHook) Option {
	return func(m *Migrate) {
		m.diffHooks = append(m.diffHooks, hooks...)
	}
}

// WithLogger sets the logger reporting applied statements.
func WithLogger(l *zap.Logger) Option {
	return func(m *Migrate) {
		m.log = l
	}
}

// Migrate computes and applies the changes that bring a database up to
// date with a graph. Tables are never dropped.
type Migrate struct {
	graph       *schema.Graph
	dialect     string
	drv         migrate.Driver
	log         *zap.Logger
	dropColumns bool
	dropIndexes bool
	diffHooks   []DiffHook
}

// New returns a Migrate for the database of db, speaking the named dialect.
func New(db *stdsql.DB, name string, g *schema.Graph, opts ...Option) (*Migrate, error) {
	if g == nil {
		return nil, errors.New("scholar/migrate: schema graph is required")
	}
	var (
		drv migrate.Driver
		err error
	)
	switch name {
	case dialect.SQLite:
		drv, err = sqlite.Open(db)
	case dialect.Postgres:
		drv, err = postgres.Open(db)
	case dialect.MySQL:
		drv, err = mysql.Open(db)
	default:
		return nil, fmt.Errorf("scholar/migrate: unsupported dialect %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("scholar/migrate: open %s: %w", name, err)
	}
	m := &Migrate{graph: g, dialect: name, drv: drv, log: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Tables returns the desired tables of the graph.
func (m *Migrate) Tables() ([]*atlas.Table, error) {
	return Tables(m.graph, m.dialect)
}

// Diff returns the changes to apply, without drops the options do not
// allow.
func (m *Migrate) Diff(ctx context.Context) ([]atlas.Change, error) {
	current, err := m.drv.InspectSchema(ctx, "", nil)
	if err != nil {
		return nil, fmt.Errorf("scholar/migrate: inspect: %w", err)
	}
	tables, err := m.Tables()
	if err != nil {
		return nil, err
	}
	desired := atlas.New(current.Name).AddTables(tables...)
	var d Differ = DiffFunc(func(current, desired *atlas.Schema) ([]atlas.Change, error) {
		return m.drv.SchemaDiff(current, desired)
	})
	for i := len(m.diffHooks) - 1; i >= 0; i-- {
		d = m.diffHooks[i](d)
	}
	changes, err := d.Diff(current, desired)
	if err != nil {
		return nil, fmt.Errorf("scholar/migrate: diff: %w", err)
	}
	return m.filter(changes), nil
}

// filter removes drops of tables and, unless allowed, of columns and
// indexes.
func (m *Migrate) filter(changes []atlas.Change) []atlas.Change {
	kept := make([]atlas.Change, 0, len(changes))
	for _, c := range changes {
		switch c := c.(type) {
		case *atlas.DropTable:
			continue
		case *atlas.ModifyTable:
			var sub []atlas.Change
			for _, tc := range c.Changes {
				switch tc.(type) {
				case *atlas.DropColumn:
					if !m.dropColumns {
						continue
					}
				case *atlas.DropIndex:
					if !m.dropIndexes {
						continue
					}
				}
				sub = append(sub, tc)
			}
			if len(sub) == 0 {
				continue
			}
			c.Changes = sub
		}
		kept = append(kept, c)
	}
	return kept
}

// Plan returns the statements Create would run.
func (m *Migrate) Plan(ctx context.Context) (*migrate.Plan, error) {
	changes, err := m.Diff(ctx)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return &migrate.Plan{Name: "scholar"}, nil
	}
	plan, err := m.drv.PlanChanges(ctx, "scholar", changes)
	if err != nil {
		return nil, fmt.Errorf("scholar/migrate: plan: %w", err)
	}
	return plan, nil
}

// Create applies the pending changes.
func (m *Migrate) Create(ctx context.Context) error {
	changes, err := m.Diff(ctx)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		m.log.Debug("schema is up to date")
		return nil
	}
	if err := m.drv.ApplyChanges(ctx, changes); err != nil {
		return fmt.Errorf("scholar/migrate: apply: %w", err)
	}
	m.log.Info("schema migrated", zap.Int("changes", len(changes)))
	return nil
}

// Tables converts the entities of g into Atlas tables for the named
// dialect, in declaration order.
func Tables(g *schema.Graph, name string) ([]*atlas.Table, error) {
	entities := g.Entities()
	tables := make(map[string]*atlas.Table, len(entities))
	ordered := make([]*atlas.Table, 0, len(entities))
	for _, e := range entities {
		t := atlas.NewTable(e.Table)
		for _, f := range e.Fields {
			ct, err := columnType(name, f)
			if err != nil {
				return nil, fmt.Errorf("scholar/migrate: %s.%s: %w", e.Name, f.Name, err)
			}
			c := &atlas.Column{Name: f.Column, Type: ct}
			t.AddColumns(c)
			switch {
			case f.ID:
				t.SetPrimaryKey(atlas.NewPrimaryKey(c))
			case f.Unique:
				t.AddIndexes(atlas.NewUniqueIndex(indexName(e.Table, f.Column)).AddColumns(c))
			}
		}
		for _, set := range e.Unique {
			cols := make([]*atlas.Column, 0, len(set))
			names := make([]string, 0, len(set))
			for _, fn := range set {
				f, _ := e.Field(fn)
				c, _ := t.Column(f.Column)
				cols = append(cols, c)
				names = append(names, f.Column)
			}
			t.AddIndexes(atlas.NewUniqueIndex(indexName(e.Table, names...)).AddColumns(cols...))
		}
		tables[e.Name] = t
		ordered = append(ordered, t)
	}
	for _, e := range entities {
		t := tables[e.Name]
		for _, r := range e.ForeignKeys() {
			fk := r.ForeignKey()
			c, _ := t.Column(fk.Column)
			ref := tables[r.TargetEntity().Name]
			rc, _ := ref.Column(r.TargetEntity().ID().Column)
			action := atlas.NoAction
			if r.OnDelete != "" {
				action = atlas.ReferenceOption(strings.ToUpper(r.OnDelete))
			}
			t.AddForeignKeys(atlas.NewForeignKey(fmt.Sprintf("%s_%s_%s", e.Table, ref.Name, r.Name)).
				AddColumns(c).
				SetRefTable(ref).
				AddRefColumns(rc).
				SetOnDelete(action))
		}
	}
	return ordered, nil
}

func indexName(table string, columns ...string) string {
	return table + "_" + strings.Join(columns, "_") + "_key"
}

func columnType(name string, f *schema.Field) (*atlas.ColumnType, error) {
	var t atlas.Type
	switch f.Type {
	case schema.TypeString, schema.TypeEnum:
		switch {
		case name == dialect.MySQL:
			t = &atlas.StringType{T: "varchar", Size: 255}
		default:
			t = &atlas.StringType{T: "text"}
		}
	case schema.TypeInt:
		switch name {
		case dialect.SQLite:
			t = &atlas.IntegerType{T: "integer"}
		default:
			t = &atlas.IntegerType{T: "bigint"}
		}
	case schema.TypeFloat:
		switch name {
		case dialect.SQLite:
			t = &atlas.FloatType{T: "real"}
		case dialect.Postgres:
			t = &atlas.FloatType{T: "double precision"}
		default:
			t = &atlas.FloatType{T: "double"}
		}
	case schema.TypeBool:
		switch name {
		case dialect.Postgres:
			t = &atlas.BoolType{T: "boolean"}
		default:
			t = &atlas.BoolType{T: "bool"}
		}
	case schema.TypeTime:
		switch name {
		case dialect.Postgres:
			t = &atlas.TimeType{T: "timestamptz"}
		default:
			t = &atlas.TimeType{T: "datetime"}
		}
	case schema.TypeStringList, schema.TypeJSON:
		switch name {
		case dialect.Postgres:
			t = &atlas.JSONType{T: "jsonb"}
		default:
			t = &atlas.JSONType{T: "json"}
		}
	default:
		return nil, fmt.Errorf("unsupported field type %s", f.Type)
	}
	return &atlas.ColumnType{Type: t, Null: f.Optional}, nil
}
