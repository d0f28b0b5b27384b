package sql

import (
	"strconv"
	"strings"

	"github.com/syssam/scholar/dialect"
)

// Querier wraps the basic Query method implemented by all statement builders.
type Querier interface {
	// Query returns the statement and its arguments.
	Query() (string, []any)
}

// Builder is the low-level statement writer shared by all builders. It
// quotes identifiers and emits placeholders according to its dialect and
// collects the arguments in placeholder order.
type Builder struct {
	sb      strings.Builder
	args    []any
	dialect string
}

// NewBuilder returns an empty Builder for the given dialect.
func NewBuilder(d string) *Builder {
	return &Builder{dialect: d}
}

// Dialect returns the builder dialect.
func (b *Builder) Dialect() string { return b.dialect }

// WriteString appends s as is.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// Byte appends a single byte.
func (b *Builder) Byte(c byte) *Builder {
	b.sb.WriteByte(c)
	return b
}

// Pad appends a single space.
func (b *Builder) Pad() *Builder { return b.Byte(' ') }

// Ident appends a quoted identifier. Qualified names ("t1.name") are
// quoted part by part, and "*" is written as is.
func (b *Builder) Ident(s string) *Builder {
	switch {
	case s == "*":
		b.sb.WriteString(s)
	case strings.Contains(s, "."):
		parts := strings.Split(s, ".")
		for i, p := range parts {
			if i > 0 {
				b.sb.WriteByte('.')
			}
			if p == "*" {
				b.sb.WriteString(p)
				continue
			}
			b.sb.WriteString(b.Quote(p))
		}
	default:
		b.sb.WriteString(b.Quote(s))
	}
	return b
}

// IdentComma appends a comma separated list of identifiers.
func (b *Builder) IdentComma(s ...string) *Builder {
	for i := range s {
		if i > 0 {
			b.sb.WriteString(", ")
		}
		b.Ident(s[i])
	}
	return b
}

// Quote quotes a single identifier for the builder dialect.
func (b *Builder) Quote(ident string) string {
	if b.dialect == dialect.MySQL {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// Arg appends a placeholder bound to v.
func (b *Builder) Arg(v any) *Builder {
	b.args = append(b.args, v)
	if b.dialect == dialect.Postgres {
		b.sb.WriteByte('$')
		b.sb.WriteString(strconv.Itoa(len(b.args)))
	} else {
		b.sb.WriteByte('?')
	}
	return b
}

// Args appends a comma separated list of placeholders.
func (b *Builder) Args(vs ...any) *Builder {
	for i, v := range vs {
		if i > 0 {
			b.sb.WriteString(", ")
		}
		b.Arg(v)
	}
	return b
}

// Wrap writes f between parentheses.
func (b *Builder) Wrap(f func(*Builder)) *Builder {
	b.sb.WriteByte('(')
	f(b)
	b.sb.WriteByte(')')
	return b
}

// String returns the accumulated statement.
func (b *Builder) String() string { return b.sb.String() }

// Query returns the accumulated statement and its arguments.
func (b *Builder) Query() (string, []any) { return b.sb.String(), b.args }

// DialectBuilder prefixes all root builders with a dialect.
type DialectBuilder struct {
	dialect string
}

// Dialect creates a new DialectBuilder with the given dialect name.
func Dialect(name string) *DialectBuilder {
	return &DialectBuilder{dialect: name}
}

// Select returns a Selector for the dialect.
func (d *DialectBuilder) Select(columns ...string) *Selector {
	return &Selector{dialect: d.dialect, columns: columns}
}

// Insert returns an InsertBuilder for the dialect.
func (d *DialectBuilder) Insert(table string) *InsertBuilder {
	return &InsertBuilder{dialect: d.dialect, table: table}
}

// Update returns an UpdateBuilder for the dialect.
func (d *DialectBuilder) Update(table string) *UpdateBuilder {
	return &UpdateBuilder{dialect: d.dialect, table: table}
}

// Delete returns a DeleteBuilder for the dialect.
func (d *DialectBuilder) Delete(table string) *DeleteBuilder {
	return &DeleteBuilder{dialect: d.dialect, table: table}
}

// Select returns a Selector with the default (SQLite style) dialect.
func Select(columns ...string) *Selector {
	return &Selector{columns: columns}
}

type order struct {
	expr func(*Builder)
	desc bool
}

// Selector is a builder for the SELECT statement.
type Selector struct {
	dialect  string
	table    string
	as       string
	from     *Selector
	columns  []string
	exprs    []selectExpr
	distinct bool
	where    *Predicate
	group    []string
	having   *Predicate
	order    []order
	limit    *int
	offset   *int
}

type selectExpr struct {
	expr func(*Builder)
	as   string
}

// From sets the source table.
func (s *Selector) From(table string) *Selector {
	s.table = table
	return s
}

// FromSelect sets a sub-query as the source. The sub-query must be aliased.
func (s *Selector) FromSelect(sub *Selector) *Selector {
	s.from = sub
	return s
}

// As sets the alias of the selector, used both for its table source and
// when the selector is nested as a sub-query.
func (s *Selector) As(alias string) *Selector {
	s.as = alias
	return s
}

// Alias returns the selector alias, or its table name when no alias is set.
func (s *Selector) Alias() string {
	if s.as != "" {
		return s.as
	}
	return s.table
}

// Table returns the source table name.
func (s *Selector) Table() string { return s.table }

// Dialect returns the selector dialect.
func (s *Selector) Dialect() string { return s.dialect }

// C returns the column name qualified by the selector alias.
func (s *Selector) C(column string) string {
	return s.Alias() + "." + column
}

// Columns replaces the selected columns.
func (s *Selector) Columns(columns ...string) *Selector {
	s.columns = columns
	return s
}

// AppendSelect appends columns to the selection.
func (s *Selector) AppendSelect(columns ...string) *Selector {
	s.columns = append(s.columns, columns...)
	return s
}

// AppendSelectExpr appends an expression aliased as alias to the selection.
func (s *Selector) AppendSelectExpr(expr func(*Builder), alias string) *Selector {
	s.exprs = append(s.exprs, selectExpr{expr: expr, as: alias})
	return s
}

// SelectedColumns returns the plain columns of the selection.
func (s *Selector) SelectedColumns() []string { return s.columns }

// Distinct adds the DISTINCT keyword.
func (s *Selector) Distinct() *Selector {
	s.distinct = true
	return s
}

// Where appends p to the WHERE clause using AND.
func (s *Selector) Where(p *Predicate) *Selector {
	if p == nil {
		return s
	}
	if s.where == nil {
		s.where = p
	} else {
		s.where = And(s.where, p)
	}
	return s
}

// P returns the current WHERE predicate.
func (s *Selector) P() *Predicate { return s.where }

// GroupBy sets the GROUP BY columns.
func (s *Selector) GroupBy(columns ...string) *Selector {
	s.group = append(s.group, columns...)
	return s
}

// Having appends p to the HAVING clause using AND.
func (s *Selector) Having(p *Predicate) *Selector {
	if p == nil {
		return s
	}
	if s.having == nil {
		s.having = p
	} else {
		s.having = And(s.having, p)
	}
	return s
}

// OrderBy appends an ordering term on a column.
func (s *Selector) OrderBy(column string, desc bool) *Selector {
	s.order = append(s.order, order{expr: func(b *Builder) { b.Ident(column) }, desc: desc})
	return s
}

// OrderExpr appends an ordering term on an arbitrary expression.
func (s *Selector) OrderExpr(expr func(*Builder), desc bool) *Selector {
	s.order = append(s.order, order{expr: expr, desc: desc})
	return s
}

// ClearOrder removes all ordering terms.
func (s *Selector) ClearOrder() *Selector {
	s.order = nil
	return s
}

// Limit sets the LIMIT clause.
func (s *Selector) Limit(n int) *Selector {
	s.limit = &n
	return s
}

// Offset sets the OFFSET clause.
func (s *Selector) Offset(n int) *Selector {
	s.offset = &n
	return s
}

// Query returns the statement and its arguments.
func (s *Selector) Query() (string, []any) {
	b := NewBuilder(s.dialect)
	s.build(b)
	return b.Query()
}

func (s *Selector) build(b *Builder) {
	b.WriteString("SELECT ")
	if s.distinct {
		b.WriteString("DISTINCT ")
	}
	switch {
	case len(s.columns) == 0 && len(s.exprs) == 0:
		b.WriteString("*")
	default:
		b.IdentComma(s.columns...)
		for i, e := range s.exprs {
			if i > 0 || len(s.columns) > 0 {
				b.WriteString(", ")
			}
			e.expr(b)
			if e.as != "" {
				b.WriteString(" AS ").Ident(e.as)
			}
		}
	}
	b.WriteString(" FROM ")
	switch {
	case s.from != nil:
		b.Wrap(s.from.build)
		b.WriteString(" AS ").Ident(s.from.Alias())
	default:
		b.Ident(s.table)
		if s.as != "" && s.as != s.table {
			b.WriteString(" AS ").Ident(s.as)
		}
	}
	if s.where != nil {
		b.WriteString(" WHERE ")
		s.where.build(b)
	}
	if len(s.group) > 0 {
		b.WriteString(" GROUP BY ").IdentComma(s.group...)
	}
	if s.having != nil {
		b.WriteString(" HAVING ")
		s.having.build(b)
	}
	if len(s.order) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range s.order {
			if i > 0 {
				b.WriteString(", ")
			}
			o.expr(b)
			if o.desc {
				b.WriteString(" DESC")
			} else {
				b.WriteString(" ASC")
			}
		}
	}
	switch {
	case s.limit != nil:
		b.WriteString(" LIMIT ").WriteString(strconv.Itoa(*s.limit))
	case s.offset != nil && b.dialect == dialect.SQLite:
		b.WriteString(" LIMIT -1")
	case s.offset != nil && b.dialect == dialect.MySQL:
		b.WriteString(" LIMIT 18446744073709551615")
	}
	if s.offset != nil {
		b.WriteString(" OFFSET ").WriteString(strconv.Itoa(*s.offset))
	}
}

// InsertBuilder is a builder for the INSERT statement.
type InsertBuilder struct {
	dialect    string
	table      string
	columns    []string
	values     [][]any
	ignoreDups bool
}

// Columns sets the inserted columns.
func (i *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	i.columns = columns
	return i
}

// Values appends a row of values. The values must follow the column order.
func (i *InsertBuilder) Values(values ...any) *InsertBuilder {
	i.values = append(i.values, values)
	return i
}

// OnConflictDoNothing skips rows that violate a unique constraint.
func (i *InsertBuilder) OnConflictDoNothing() *InsertBuilder {
	i.ignoreDups = true
	return i
}

// Query returns the statement and its arguments.
func (i *InsertBuilder) Query() (string, []any) {
	b := NewBuilder(i.dialect)
	if i.ignoreDups && i.dialect == dialect.MySQL {
		b.WriteString("INSERT IGNORE INTO ")
	} else {
		b.WriteString("INSERT INTO ")
	}
	b.Ident(i.table)
	if len(i.columns) == 0 {
		b.WriteString(" DEFAULT VALUES")
		return b.Query()
	}
	b.Pad().Wrap(func(b *Builder) { b.IdentComma(i.columns...) })
	b.WriteString(" VALUES ")
	for j, row := range i.values {
		if j > 0 {
			b.WriteString(", ")
		}
		b.Wrap(func(b *Builder) { b.Args(row...) })
	}
	if i.ignoreDups && i.dialect != dialect.MySQL {
		b.WriteString(" ON CONFLICT DO NOTHING")
	}
	return b.Query()
}

type assignment struct {
	column string
	expr   func(*Builder)
}

// UpdateBuilder is a builder for the UPDATE statement.
type UpdateBuilder struct {
	dialect string
	table   string
	sets    []assignment
	where   *Predicate
}

// Set assigns v to column.
func (u *UpdateBuilder) Set(column string, v any) *UpdateBuilder {
	u.sets = append(u.sets, assignment{column: column, expr: func(b *Builder) { b.Arg(v) }})
	return u
}

// SetExpr assigns the expression to column.
func (u *UpdateBuilder) SetExpr(column string, expr func(*Builder)) *UpdateBuilder {
	u.sets = append(u.sets, assignment{column: column, expr: expr})
	return u
}

// Arith returns an expression applying op ("+", "-", "*", "/") to column and v.
func Arith(column, op string, v any) func(*Builder) {
	return func(b *Builder) {
		b.Ident(column).Pad().WriteString(op).Pad().Arg(v)
	}
}

// Empty reports whether the builder has no assignments.
func (u *UpdateBuilder) Empty() bool { return len(u.sets) == 0 }

// Where appends p to the WHERE clause using AND.
func (u *UpdateBuilder) Where(p *Predicate) *UpdateBuilder {
	if p == nil {
		return u
	}
	if u.where == nil {
		u.where = p
	} else {
		u.where = And(u.where, p)
	}
	return u
}

// Query returns the statement and its arguments.
func (u *UpdateBuilder) Query() (string, []any) {
	b := NewBuilder(u.dialect)
	b.WriteString("UPDATE ").Ident(u.table).WriteString(" SET ")
	for i, s := range u.sets {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Ident(s.column).WriteString(" = ")
		s.expr(b)
	}
	if u.where != nil {
		b.WriteString(" WHERE ")
		u.where.build(b)
	}
	return b.Query()
}

// DeleteBuilder is a builder for the DELETE statement.
type DeleteBuilder struct {
	dialect string
	table   string
	where   *Predicate
}

// Where appends p to the WHERE clause using AND.
func (d *DeleteBuilder) Where(p *Predicate) *DeleteBuilder {
	if p == nil {
		return d
	}
	if d.where == nil {
		d.where = p
	} else {
		d.where = And(d.where, p)
	}
	return d
}

// Query returns the statement and its arguments.
func (d *DeleteBuilder) Query() (string, []any) {
	b := NewBuilder(d.dialect)
	b.WriteString("DELETE FROM ").Ident(d.table)
	if d.where != nil {
		b.WriteString(" WHERE ")
		d.where.build(b)
	}
	return b.Query()
}

// Agg returns an aggregate call expression such as SUM("fees"."amount").
// A "*" column is written unquoted.
func Agg(fn, column string) func(*Builder) {
	return func(b *Builder) {
		b.WriteString(fn).Byte('(')
		b.Ident(column)
		b.Byte(')')
	}
}

var (
	_ Querier = (*Selector)(nil)
	_ Querier = (*InsertBuilder)(nil)
	_ Querier = (*UpdateBuilder)(nil)
	_ Querier = (*DeleteBuilder)(nil)
)
