package engine

import (
	"errors"
	"fmt"
	"slices"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/scholar"
	"github.com/syssam/scholar/dialect/sql"
	"github.com/syssam/scholar/dialect/sql/sqljson"
	"github.com/syssam/scholar/querylanguage"
	"github.com/syssam/scholar/schema"
)

// maxFilterDepth bounds the nesting of relation filters.
const maxFilterDepth = 16

var cmpOps = map[querylanguage.Op]string{
	querylanguage.OpEQ:  "=",
	querylanguage.OpNEQ: "<>",
	querylanguage.OpGT:  ">",
	querylanguage.OpGTE: ">=",
	querylanguage.OpLT:  "<",
	querylanguage.OpLTE: "<=",
}

var aggFuncs = map[querylanguage.AggFunc]string{
	querylanguage.AggCount: "COUNT",
	querylanguage.AggSum:   "SUM",
	querylanguage.AggAvg:   "AVG",
	querylanguage.AggMin:   "MIN",
	querylanguage.AggMax:   "MAX",
}

// filterCompiler compiles predicate trees of one statement. Relation
// filters become correlated sub-queries aliased t1, t2, ... so the
// compiler must not be shared between statements.
type filterCompiler struct {
	next int
}

func newFilterCompiler() *filterCompiler {
	return &filterCompiler{next: 1}
}

// compile validates p against e and returns the condition over the rows
// of e aliased as alias. A nil result means no constraint.
func (c *filterCompiler) compile(e *schema.Entity, alias string, p querylanguage.P) (*sql.Predicate, error) {
	return c.node(e, alias, p, 0)
}

func (c *filterCompiler) node(e *schema.Entity, alias string, p querylanguage.P, depth int) (*sql.Predicate, error) {
	switch p := p.(type) {
	case nil:
		return nil, nil
	case *querylanguage.FieldP:
		if p == nil {
			return nil, nil
		}
		f, err := lookupField(e, p.Field)
		if err != nil {
			return nil, err
		}
		if p.Agg != "" {
			return nil, scholar.NewValidationError(e.Name, f.Name, fmt.Errorf("aggregate %s is only allowed in groupBy having", p.Agg))
		}
		return fieldPredicate(e, f, alias+"."+f.Column, p)
	case *querylanguage.NaryP:
		if p == nil {
			return nil, nil
		}
		ps := make([]*sql.Predicate, 0, len(p.Ps))
		for _, sub := range p.Ps {
			sp, err := c.node(e, alias, sub, depth)
			if err != nil {
				return nil, err
			}
			ps = append(ps, sp)
		}
		return junction(p.Op, ps), nil
	case *querylanguage.NotP:
		if p == nil {
			return nil, nil
		}
		sp, err := c.node(e, alias, p.P, depth)
		switch {
		case err != nil:
			return nil, err
		case sp == nil && tautology(p.P):
			return sql.False(), nil
		case sp == nil:
			return nil, nil
		}
		return sql.Not(sp), nil
	case *querylanguage.EdgeP:
		if p == nil {
			return nil, nil
		}
		return c.edge(e, alias, p, depth)
	default:
		return nil, scholar.Validationf(e.Name, "unsupported predicate %T", p)
	}
}

func (c *filterCompiler) edge(e *schema.Entity, alias string, p *querylanguage.EdgeP, depth int) (*sql.Predicate, error) {
	r, ok := e.Relation(p.Edge)
	if !ok {
		return nil, scholar.NewUnknownRelationError(e.Name, p.Edge)
	}
	switch {
	case p.Quant.ToMany() && !r.ToMany():
		return nil, scholar.NewValidationError(e.Name, r.Name, fmt.Errorf("%s requires a to-many relation, use is or is_not", p.Quant))
	case !p.Quant.ToMany() && r.ToMany():
		return nil, scholar.NewValidationError(e.Name, r.Name, fmt.Errorf("%s requires a to-one relation, use some, every or none", p.Quant))
	case depth >= maxFilterDepth:
		return nil, scholar.NewValidationError(e.Name, r.Name, fmt.Errorf("relation filters nest deeper than %d levels", maxFilterDepth))
	}
	target := r.TargetEntity()
	sub := fmt.Sprintf("t%d", c.next)
	c.next++
	inner, err := c.node(target, sub, p.P, depth+1)
	if err != nil {
		return nil, err
	}
	local, remote := r.JoinColumns()
	join := sql.ColumnsEQ(sub+"."+remote, alias+"."+local)
	sel := sql.Select(sub + "." + target.ID().Column).From(target.Table).As(sub)
	switch p.Quant {
	case querylanguage.Some, querylanguage.Is:
		return sql.Exists(sel.Where(sql.And(join, inner))), nil
	case querylanguage.None, querylanguage.IsNot:
		return sql.NotExists(sel.Where(sql.And(join, inner))), nil
	case querylanguage.Every:
		if inner == nil {
			return nil, nil
		}
		return sql.NotExists(sel.Where(sql.And(join, sql.Not(inner)))), nil
	}
	return nil, scholar.NewValidationError(e.Name, r.Name, fmt.Errorf("unknown quantifier %s", p.Quant))
}

// junction combines compiled operands, where nil stands for an operand
// without constraint. An empty Or matches nothing and an Or with an
// unconstrained operand matches everything.
func junction(op querylanguage.NaryOp, ps []*sql.Predicate) *sql.Predicate {
	if op != querylanguage.OpOr {
		return sql.And(ps...)
	}
	if len(ps) == 0 {
		return sql.False()
	}
	if slices.Contains(ps, nil) {
		return nil
	}
	return sql.Or(ps...)
}

// tautology reports whether p matches every record by construction, such
// as an empty And. Predicates left unconstrained because their values are
// absent are not tautologies.
func tautology(p querylanguage.P) bool {
	switch p := p.(type) {
	case *querylanguage.NaryP:
		if p == nil {
			return false
		}
		if p.Op == querylanguage.OpOr {
			return slices.ContainsFunc(p.Ps, tautology)
		}
		for _, sub := range p.Ps {
			if !tautology(sub) {
				return false
			}
		}
		return true
	case *querylanguage.EdgeP:
		return p != nil && p.Quant == querylanguage.Every && tautology(p.P)
	}
	return false
}

// lookupField resolves a scalar field, reporting relations used where a
// scalar is expected as a validation error.
func lookupField(e *schema.Entity, name string) (*schema.Field, error) {
	if f, ok := e.Field(name); ok {
		return f, nil
	}
	if _, ok := e.Relation(name); ok {
		return nil, scholar.NewValidationError(e.Name, name, errors.New("relation used as a scalar field"))
	}
	return nil, scholar.NewUnknownFieldError(e.Name, name)
}

// fieldPredicate compiles a comparison on field f stored in column col.
func fieldPredicate(e *schema.Entity, f *schema.Field, col string, p *querylanguage.FieldP) (*sql.Predicate, error) {
	invalid := func(format string, args ...any) error {
		return scholar.NewValidationError(e.Name, f.Name, fmt.Errorf(format, args...))
	}
	switch {
	case p.Op == querylanguage.OpIsNull:
		return sql.IsNull(col), nil
	case p.Op == querylanguage.OpNotNull:
		return sql.NotNull(col), nil
	case p.Op.IsList() && !f.IsList():
		return nil, invalid("operator %s requires a list field", p.Op)
	case f.IsList() && !p.Op.IsList():
		return nil, invalid("operator %s is not supported on list fields", p.Op)
	case f.Type == schema.TypeJSON:
		return nil, invalid("operator %s is not supported on json fields", p.Op)
	case p.Op.IsString() && f.Type != schema.TypeString:
		return nil, invalid("operator %s requires a string field", p.Op)
	case p.Op.IsOrdered() && !f.Type.Ordered():
		return nil, invalid("operator %s requires an ordered field", p.Op)
	case p.Mode == querylanguage.ModeInsensitive && f.Type != schema.TypeString:
		return nil, invalid("insensitive mode requires a string field")
	case p.Value == nil:
		return nil, nil
	}
	if f.IsList() {
		return listPredicate(f, col, p, invalid)
	}
	switch p.Op {
	case querylanguage.OpIn, querylanguage.OpNotIn:
		if p.Mode == querylanguage.ModeInsensitive {
			return nil, invalid("insensitive mode is not supported by %s", p.Op)
		}
		vs, ok := asList(p.Value)
		if !ok {
			return nil, invalid("operator %s expects a list, got %T", p.Op, p.Value)
		}
		args := make([]any, len(vs))
		for i := range vs {
			v, err := encode(f, vs[i])
			if err != nil {
				return nil, scholar.NewValidationError(e.Name, f.Name, err)
			}
			args[i] = v
		}
		if p.Op == querylanguage.OpIn {
			return sql.In(col, args...), nil
		}
		return sql.NotIn(col, args...), nil
	case querylanguage.OpContains, querylanguage.OpHasPrefix, querylanguage.OpHasSuffix:
		s, ok := p.Value.(string)
		if !ok {
			return nil, invalid("operator %s expects a string, got %T", p.Op, p.Value)
		}
		return stringPredicate(col, p.Op, p.Mode, s), nil
	}
	op, ok := cmpOps[p.Op]
	if !ok {
		return nil, invalid("unsupported operator %s", p.Op)
	}
	v, err := encode(f, p.Value)
	if err != nil {
		return nil, scholar.NewValidationError(e.Name, f.Name, err)
	}
	if p.Mode == querylanguage.ModeInsensitive && (p.Op == querylanguage.OpEQ || p.Op == querylanguage.OpNEQ) {
		eq := sql.EqualFold(col, foldCase(v.(string)))
		if p.Op == querylanguage.OpNEQ {
			return sql.Not(eq), nil
		}
		return eq, nil
	}
	if p.Mode == querylanguage.ModeInsensitive {
		return nil, invalid("insensitive mode is not supported by %s", p.Op)
	}
	return sql.CompareExpr(func(b *sql.Builder) { b.Ident(col) }, op, v), nil
}

func stringPredicate(col string, op querylanguage.Op, mode querylanguage.Mode, s string) *sql.Predicate {
	if mode == querylanguage.ModeInsensitive {
		s = foldCase(s)
		switch op {
		case querylanguage.OpHasPrefix:
			return sql.HasPrefixFold(col, s)
		case querylanguage.OpHasSuffix:
			return sql.HasSuffixFold(col, s)
		default:
			return sql.ContainsFold(col, s)
		}
	}
	switch op {
	case querylanguage.OpHasPrefix:
		return sql.HasPrefix(col, s)
	case querylanguage.OpHasSuffix:
		return sql.HasSuffix(col, s)
	default:
		return sql.Contains(col, s)
	}
}

func listPredicate(f *schema.Field, col string, p *querylanguage.FieldP, invalid func(string, ...any) error) (*sql.Predicate, error) {
	switch p.Op {
	case querylanguage.OpHas:
		s, ok := asString(p.Value)
		if !ok {
			return nil, invalid("operator %s expects a string, got %T", p.Op, p.Value)
		}
		return sqljson.ValueContains(col, s), nil
	case querylanguage.OpHasEvery, querylanguage.OpHasSome:
		vs, ok := asStrings(p.Value)
		if !ok {
			return nil, invalid("operator %s expects a list of strings, got %T", p.Op, p.Value)
		}
		if p.Op == querylanguage.OpHasEvery {
			return sqljson.ValueContainsAll(col, vs), nil
		}
		return sqljson.ValueContainsAny(col, vs), nil
	case querylanguage.OpIsEmpty:
		empty, ok := p.Value.(bool)
		if !ok {
			return nil, invalid("operator %s expects a bool, got %T", p.Op, p.Value)
		}
		return sqljson.IsEmpty(col, empty), nil
	}
	return nil, invalid("unsupported list operator %s on %s", p.Op, f.Name)
}

// foldCase lower-cases s the way LOWER() does for the compared column.
func foldCase(s string) string {
	return cases.Lower(language.Und).String(s)
}

// aggExpr returns the SQL aggregate fn over col. A nil field counts rows.
func aggExpr(fn querylanguage.AggFunc, col string) func(*sql.Builder) {
	if col == "" {
		return sql.Agg(aggFuncs[fn], "*")
	}
	return sql.Agg(aggFuncs[fn], col)
}

// having compiles a groupBy having clause. Scalar comparisons are
// compiled as in where clauses; aggregate comparisons compare the
// aggregate of the group.
func (c *filterCompiler) having(e *schema.Entity, alias string, p querylanguage.P) (*sql.Predicate, error) {
	switch p := p.(type) {
	case nil:
		return nil, nil
	case *querylanguage.FieldP:
		if p == nil {
			return nil, nil
		}
		if p.Agg == "" {
			return c.node(e, alias, p, 0)
		}
		return aggPredicate(e, alias, p)
	case *querylanguage.NaryP:
		if p == nil {
			return nil, nil
		}
		ps := make([]*sql.Predicate, 0, len(p.Ps))
		for _, sub := range p.Ps {
			sp, err := c.having(e, alias, sub)
			if err != nil {
				return nil, err
			}
			ps = append(ps, sp)
		}
		return junction(p.Op, ps), nil
	case *querylanguage.NotP:
		if p == nil {
			return nil, nil
		}
		sp, err := c.having(e, alias, p.P)
		switch {
		case err != nil:
			return nil, err
		case sp == nil && tautology(p.P):
			return sql.False(), nil
		case sp == nil:
			return nil, nil
		}
		return sql.Not(sp), nil
	case *querylanguage.EdgeP:
		return nil, scholar.Validationf(e.Name, "groupBy: relation filters are not allowed in having")
	default:
		return nil, scholar.Validationf(e.Name, "unsupported predicate %T", p)
	}
}

func aggPredicate(e *schema.Entity, alias string, p *querylanguage.FieldP) (*sql.Predicate, error) {
	term, err := newAggTerm(e, p.Agg, p.Field)
	if err != nil {
		return nil, err
	}
	op, ok := cmpOps[p.Op]
	if !ok {
		return nil, scholar.NewValidationError(e.Name, p.Field, fmt.Errorf("operator %s is not supported on aggregates", p.Op))
	}
	if p.Value == nil {
		return nil, nil
	}
	var v any
	switch {
	case p.Agg == querylanguage.AggCount:
		v, err = toInt64(p.Value)
	case p.Agg == querylanguage.AggSum || p.Agg == querylanguage.AggAvg:
		v, err = toFloat64(p.Value)
	default:
		v, err = encode(term.field, p.Value)
	}
	if err != nil {
		return nil, scholar.NewValidationError(e.Name, p.Field, err)
	}
	return sql.CompareExpr(term.expr(alias), op, v), nil
}
