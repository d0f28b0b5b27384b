package sql

import (
	"strings"

	"github.com/syssam/scholar/dialect"
)

// Predicate is a boolean expression used in WHERE and HAVING clauses. It
// is rendered lazily into the Builder of the enclosing statement so that
// nested sub-queries share one placeholder sequence.
type Predicate struct {
	fns []func(*Builder)
	// composite marks AND/OR lists that need parentheses when nested.
	composite bool
}

// P creates a new predicate from the given build functions.
func P(fns ...func(*Builder)) *Predicate {
	return &Predicate{fns: fns}
}

// Append appends a build function to the predicate.
func (p *Predicate) Append(f func(*Builder)) *Predicate {
	p.fns = append(p.fns, f)
	return p
}

func (p *Predicate) build(b *Builder) {
	for _, f := range p.fns {
		f(b)
	}
}

// Build renders the predicate into b.
func (p *Predicate) Build(b *Builder) { p.build(b) }

// Query returns the predicate rendered for the given dialect and its arguments.
func (p *Predicate) Query(dialect string) (string, []any) {
	b := NewBuilder(dialect)
	p.build(b)
	return b.Query()
}

func (p *Predicate) nested(b *Builder) {
	if p.composite {
		b.Wrap(p.build)
		return
	}
	p.build(b)
}

func compare(column, op string, v any) *Predicate {
	return P(func(b *Builder) {
		b.Ident(column).Pad().WriteString(op).Pad().Arg(v)
	})
}

// CompareExpr returns a predicate comparing an arbitrary expression with v.
func CompareExpr(expr func(*Builder), op string, v any) *Predicate {
	return P(func(b *Builder) {
		expr(b)
		b.Pad().WriteString(op).Pad().Arg(v)
	})
}

// EQ returns a "column = v" predicate.
func EQ(column string, v any) *Predicate { return compare(column, "=", v) }

// NEQ returns a "column <> v" predicate.
func NEQ(column string, v any) *Predicate { return compare(column, "<>", v) }

// GT returns a "column > v" predicate.
func GT(column string, v any) *Predicate { return compare(column, ">", v) }

// GTE returns a "column >= v" predicate.
func GTE(column string, v any) *Predicate { return compare(column, ">=", v) }

// LT returns a "column < v" predicate.
func LT(column string, v any) *Predicate { return compare(column, "<", v) }

// LTE returns a "column <= v" predicate.
func LTE(column string, v any) *Predicate { return compare(column, "<=", v) }

// ColumnsEQ returns a predicate comparing two columns.
func ColumnsEQ(c1, c2 string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(c1).WriteString(" = ").Ident(c2)
	})
}

// In returns a "column IN (...)" predicate. An empty list matches nothing.
func In(column string, vs ...any) *Predicate {
	if len(vs) == 0 {
		return False()
	}
	return P(func(b *Builder) {
		b.Ident(column).WriteString(" IN ").Wrap(func(b *Builder) { b.Args(vs...) })
	})
}

// NotIn returns a "column NOT IN (...)" predicate. An empty list matches
// everything.
func NotIn(column string, vs ...any) *Predicate {
	if len(vs) == 0 {
		return True()
	}
	return P(func(b *Builder) {
		b.Ident(column).WriteString(" NOT IN ").Wrap(func(b *Builder) { b.Args(vs...) })
	})
}

// InSelect returns a "column IN (SELECT ...)" predicate.
func InSelect(column string, sel *Selector) *Predicate {
	return P(func(b *Builder) {
		b.Ident(column).WriteString(" IN ").Wrap(sel.build)
	})
}

// IsNull returns a "column IS NULL" predicate.
func IsNull(column string) *Predicate {
	return P(func(b *Builder) { b.Ident(column).WriteString(" IS NULL") })
}

// NotNull returns a "column IS NOT NULL" predicate.
func NotNull(column string) *Predicate {
	return P(func(b *Builder) { b.Ident(column).WriteString(" IS NOT NULL") })
}

// escapeLike escapes the LIKE wildcards in s using backslash.
func escapeLike(s string) string {
	if !strings.ContainsAny(s, `%_\`) {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func like(column, pattern string, fold bool) *Predicate {
	return P(func(b *Builder) {
		if fold {
			b.WriteString("LOWER(").Ident(column).Byte(')')
		} else {
			b.Ident(column)
		}
		b.WriteString(" LIKE ").Arg(pattern)
		// Postgres and MySQL escape LIKE patterns with backslash by default.
		if b.dialect == dialect.SQLite {
			b.WriteString(` ESCAPE '\'`)
		}
	})
}

// Contains returns a predicate matching values containing sub.
func Contains(column, sub string) *Predicate {
	return like(column, "%"+escapeLike(sub)+"%", false)
}

// HasPrefix returns a predicate matching values starting with prefix.
func HasPrefix(column, prefix string) *Predicate {
	return like(column, escapeLike(prefix)+"%", false)
}

// HasSuffix returns a predicate matching values ending with suffix.
func HasSuffix(column, suffix string) *Predicate {
	return like(column, "%"+escapeLike(suffix), false)
}

// ContainsFold is the case-insensitive Contains. sub must already be
// lower-cased by the caller.
func ContainsFold(column, sub string) *Predicate {
	return like(column, "%"+escapeLike(sub)+"%", true)
}

// HasPrefixFold is the case-insensitive HasPrefix. prefix must already be
// lower-cased by the caller.
func HasPrefixFold(column, prefix string) *Predicate {
	return like(column, escapeLike(prefix)+"%", true)
}

// HasSuffixFold is the case-insensitive HasSuffix. suffix must already be
// lower-cased by the caller.
func HasSuffixFold(column, suffix string) *Predicate {
	return like(column, "%"+escapeLike(suffix), true)
}

// EqualFold returns a case-insensitive equality predicate. v must already
// be lower-cased by the caller.
func EqualFold(column, v string) *Predicate {
	return P(func(b *Builder) {
		b.WriteString("LOWER(").Ident(column).WriteString(") = ").Arg(v)
	})
}

// True returns a predicate that always holds.
func True() *Predicate {
	return P(func(b *Builder) { b.WriteString("1 = 1") })
}

// False returns a predicate that never holds.
func False() *Predicate {
	return P(func(b *Builder) { b.WriteString("1 = 0") })
}

func join(op string, ps []*Predicate) *Predicate {
	list := make([]*Predicate, 0, len(ps))
	for _, p := range ps {
		if p != nil {
			list = append(list, p)
		}
	}
	switch len(list) {
	case 0:
		return nil
	case 1:
		return list[0]
	}
	p := P(func(b *Builder) {
		for i, p := range list {
			if i > 0 {
				b.Pad().WriteString(op).Pad()
			}
			p.nested(b)
		}
	})
	p.composite = true
	return p
}

// And combines predicates with AND. Nil entries are ignored; when all
// entries are nil the result is nil.
func And(ps ...*Predicate) *Predicate { return join("AND", ps) }

// Or combines predicates with OR. Nil entries are ignored; when all
// entries are nil the result is nil.
func Or(ps ...*Predicate) *Predicate { return join("OR", ps) }

// Not negates p.
func Not(p *Predicate) *Predicate {
	return P(func(b *Builder) {
		b.WriteString("NOT ").Wrap(p.build)
	})
}

// Exists returns an "EXISTS (SELECT ...)" predicate.
func Exists(sel *Selector) *Predicate {
	return P(func(b *Builder) {
		b.WriteString("EXISTS ").Wrap(sel.build)
	})
}

// NotExists returns a "NOT EXISTS (SELECT ...)" predicate.
func NotExists(sel *Selector) *Predicate {
	return P(func(b *Builder) {
		b.WriteString("NOT EXISTS ").Wrap(sel.build)
	})
}

// Expr returns a predicate from a raw SQL fragment. Each "?" in raw is
// replaced by a placeholder bound to the next argument.
func Expr(raw string, args ...any) *Predicate {
	return P(ExprFunc(raw, args...))
}

// ExprFunc is like Expr but returns the build function, for use in
// selections and assignments.
func ExprFunc(raw string, args ...any) func(*Builder) {
	return func(b *Builder) {
		parts := strings.Split(raw, "?")
		for i, part := range parts {
			b.WriteString(part)
			if i < len(parts)-1 && i < len(args) {
				b.Arg(args[i])
			}
		}
	}
}
