package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/syssam/scholar"
	"github.com/syssam/scholar/dialect/sql"
	"github.com/syssam/scholar/querylanguage"
	"github.com/syssam/scholar/schema"
)

// aggTerm is one aggregate of an aggregation: a function over a field, or
// a row count.
type aggTerm struct {
	fn   querylanguage.AggFunc
	name string
	// field is nil for row counts.
	field *schema.Field
}

func newAggTerm(e *schema.Entity, fn querylanguage.AggFunc, name string) (aggTerm, error) {
	if _, ok := aggFuncs[fn]; !ok {
		return aggTerm{}, scholar.NewValidationError(e.Name, name, fmt.Errorf("unknown aggregate %q", fn))
	}
	if name == All {
		if fn != querylanguage.AggCount {
			return aggTerm{}, scholar.NewValidationError(e.Name, name, fmt.Errorf("%s is only allowed in _count", All))
		}
		return aggTerm{fn: fn, name: name}, nil
	}
	f, err := lookupField(e, name)
	if err != nil {
		return aggTerm{}, err
	}
	switch fn {
	case querylanguage.AggSum, querylanguage.AggAvg:
		if !f.Type.Numeric() {
			return aggTerm{}, scholar.NewValidationError(e.Name, name, fmt.Errorf("%s requires a numeric field", fn))
		}
	case querylanguage.AggMin, querylanguage.AggMax:
		if !f.Type.Ordered() {
			return aggTerm{}, scholar.NewValidationError(e.Name, name, fmt.Errorf("%s requires an ordered field", fn))
		}
	}
	return aggTerm{fn: fn, name: name, field: f}, nil
}

// expr returns the aggregate over the rows aliased alias.
func (t aggTerm) expr(alias string) func(*sql.Builder) {
	if t.field == nil {
		return aggExpr(t.fn, "")
	}
	return aggExpr(t.fn, alias+"."+t.field.Column)
}

// as returns the result column of the aggregate.
func (t aggTerm) as() string {
	return strings.TrimPrefix(string(t.fn), "_") + "__" + t.name
}

// value normalizes the aggregate value read from the store.
func (t aggTerm) value(raw any) (any, error) {
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}
	switch {
	case t.fn == querylanguage.AggCount:
		if raw == nil {
			return int64(0), nil
		}
		return toInt64(raw)
	case raw == nil:
		return nil, nil
	case t.fn == querylanguage.AggAvg:
		return toFloat64(raw)
	case t.fn == querylanguage.AggSum && t.field.Type == schema.TypeInt:
		return toInt64(raw)
	case t.fn == querylanguage.AggSum:
		return toFloat64(raw)
	}
	return decode(t.field, raw)
}

// aggTerms resolves the requested aggregate buckets.
func aggTerms(e *schema.Entity, a Aggregates) ([]aggTerm, error) {
	buckets := []struct {
		fn    querylanguage.AggFunc
		names []string
	}{
		{querylanguage.AggCount, a.Count},
		{querylanguage.AggSum, a.Sum},
		{querylanguage.AggAvg, a.Avg},
		{querylanguage.AggMin, a.Min},
		{querylanguage.AggMax, a.Max},
	}
	var terms []aggTerm
	for _, b := range buckets {
		for _, name := range b.names {
			t, err := newAggTerm(e, b.fn, name)
			if err != nil {
				return nil, err
			}
			terms = append(terms, t)
		}
	}
	return terms, nil
}

// bucket stores the value of t in the aggregate bucket of rec.
func bucket(rec Record, t aggTerm, v any) {
	b, ok := rec[string(t.fn)].(Record)
	if !ok {
		b = make(Record)
		rec[string(t.fn)] = b
	}
	b[t.name] = v
}

// scanAggregates scans the leading values into fields and the remaining
// ones into the buckets of terms.
func scanAggregates(rows *sql.Rows, fields []*schema.Field, terms []aggTerm) (Record, error) {
	raw := make([]any, len(fields)+len(terms))
	dest := make([]any, len(raw))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}
	rec, err := mapRow(fields, raw[:len(fields)])
	if err != nil {
		return nil, err
	}
	for i, t := range terms {
		v, err := t.value(raw[len(fields)+i])
		if err != nil {
			return nil, fmt.Errorf("scholar: decode %s of %s: %w", t.fn, t.name, err)
		}
		bucket(rec, t, v)
	}
	return rec, nil
}

// Aggregate computes the requested aggregates over the records selected
// by args. The result holds one bucket per requested function:
//
//	agg, err := client.Model("Fee").Aggregate(ctx, engine.AggregateArgs{
//		Where:      school.Fee.Status.EQ(school.FeeStatusPaid),
//		Aggregates: engine.Aggregates{Count: []string{engine.All}, Sum: []string{"amount"}},
//	})
//	// agg["_count"].(engine.Record)["_all"], agg["_sum"].(engine.Record)["amount"]
func (d *Delegate) Aggregate(ctx context.Context, args AggregateArgs) (Record, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}
	e := d.entity
	terms, err := aggTerms(e, args.Aggregates)
	if err != nil {
		return nil, err
	}
	rec := make(Record, len(terms))
	if len(terms) == 0 {
		return rec, nil
	}
	ra := readArgs{
		where:   args.Where,
		orderBy: args.OrderBy,
		cursor:  args.Cursor,
		take:    args.Take,
		skip:    args.Skip,
	}
	sel, empty, err := d.s.aggregateSource(d.s.scoped(ctx), e, ra, terms)
	if err != nil {
		return nil, translate(e, err)
	}
	if empty {
		for _, t := range terms {
			v, _ := t.value(nil)
			bucket(rec, t, v)
		}
		return rec, nil
	}
	for _, t := range terms {
		sel.AppendSelectExpr(t.expr(rootAlias), t.as())
	}
	err = d.s.query(d.s.scoped(ctx), sel, func(rows *sql.Rows) error {
		r, err := scanAggregates(rows, nil, terms)
		rec = r
		return err
	})
	if err != nil {
		return nil, translate(e, err)
	}
	return rec, nil
}

// aggregateSource returns a selector without columns over the rows of e
// selected by args, aliased rootAlias. Paginated selections are wrapped
// in a sub-query so aggregates apply to the page only.
func (s *session) aggregateSource(ctx context.Context, e *schema.Entity, args readArgs, terms []aggTerm) (*sql.Selector, bool, error) {
	if !args.paginated() {
		rq, err := s.selectRows(ctx, e, args, false)
		if err != nil {
			return nil, false, err
		}
		return rq.sel.ClearOrder(), rq.empty, nil
	}
	columns := []string{rootAlias + "." + e.ID().Column}
	for _, t := range terms {
		if t.field != nil && !slices.Contains(columns, rootAlias+"."+t.field.Column) {
			columns = append(columns, rootAlias+"."+t.field.Column)
		}
	}
	rq, err := s.selectRows(ctx, e, args, false, columns...)
	if err != nil {
		return nil, false, err
	}
	return sql.Dialect(s.dialect).Select().FromSelect(rq.sel), rq.empty, nil
}

// Count returns the number of records selected by args.
func (d *Delegate) Count(ctx context.Context, args CountArgs) (int64, error) {
	if err := d.ready(); err != nil {
		return 0, err
	}
	e := d.entity
	ctx = d.s.scoped(ctx)
	sel, empty, err := d.s.aggregateSource(ctx, e, readArgs{
		where:   args.Where,
		orderBy: args.OrderBy,
		cursor:  args.Cursor,
		take:    args.Take,
		skip:    args.Skip,
	}, nil)
	if err != nil {
		return 0, translate(e, err)
	}
	if empty {
		return 0, nil
	}
	sel.AppendSelectExpr(aggExpr(querylanguage.AggCount, ""), "count")
	var n int64
	err = d.s.query(ctx, sel, func(rows *sql.Rows) error {
		return rows.Scan(&n)
	})
	if err != nil {
		return 0, translate(e, err)
	}
	return n, nil
}

// GroupBy groups the records selected by args.Where by the fields of
// args.By and returns one record per group holding the group values and
// the requested aggregate buckets.
func (d *Delegate) GroupBy(ctx context.Context, args GroupByArgs) ([]Record, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}
	e := d.entity
	by, err := checkGroupBy(e, args)
	if err != nil {
		return nil, err
	}
	terms, err := aggTerms(e, args.Aggregates)
	if err != nil {
		return nil, err
	}
	c := newFilterCompiler()
	having, err := c.having(e, rootAlias, args.Having)
	if err != nil {
		return nil, err
	}
	ctx = d.s.scoped(ctx)
	scope, err := d.s.evalQuery(ctx, e)
	if err != nil {
		return nil, err
	}
	pred, err := c.compile(e, rootAlias, scopeWhere(args.Where, scope))
	if err != nil {
		return nil, err
	}
	columns := make([]string, len(by))
	for i, f := range by {
		columns[i] = rootAlias + "." + f.Column
	}
	sel := sql.Dialect(d.s.dialect).Select(columns...).
		From(e.Table).
		As(rootAlias).
		Where(pred).
		GroupBy(columns...).
		Having(having)
	for _, t := range terms {
		sel.AppendSelectExpr(t.expr(rootAlias), t.as())
	}
	reversed := args.Take != nil && *args.Take < 0
	for _, o := range args.OrderBy {
		desc := o.Desc != reversed
		if o.Agg != "" {
			t, _ := newAggTerm(e, o.Agg, o.Field)
			sel.OrderExpr(t.expr(rootAlias), desc)
			continue
		}
		f, _ := e.Field(o.Field)
		sel.OrderBy(rootAlias+"."+f.Column, desc)
	}
	if args.Take != nil {
		sel.Limit(abs(*args.Take))
	}
	if args.Skip > 0 {
		sel.Offset(args.Skip)
	}
	groups := make([]Record, 0)
	err = d.s.query(ctx, sel, func(rows *sql.Rows) error {
		rec, err := scanAggregates(rows, by, terms)
		if err != nil {
			return err
		}
		groups = append(groups, rec)
		return nil
	})
	if err != nil {
		return nil, translate(e, err)
	}
	if reversed {
		slices.Reverse(groups)
	}
	return groups, nil
}

// checkGroupBy validates the shape of a groupBy before any statement is
// issued and returns the grouping fields.
func checkGroupBy(e *schema.Entity, args GroupByArgs) ([]*schema.Field, error) {
	if len(args.By) == 0 {
		return nil, scholar.Validationf(e.Name, `groupBy: "by" must not be empty`)
	}
	by := make([]*schema.Field, 0, len(args.By))
	for _, name := range args.By {
		f, err := lookupField(e, name)
		if err != nil {
			return nil, err
		}
		by = append(by, f)
	}
	for _, o := range args.OrderBy {
		if o.Agg != "" {
			if _, err := newAggTerm(e, o.Agg, o.Field); err != nil {
				return nil, err
			}
			continue
		}
		if !slices.Contains(args.By, o.Field) {
			return nil, scholar.Validationf(e.Name, `groupBy: orderBy field %q must be included in "by"`, o.Field)
		}
	}
	if name, ok := havingOutsideBy(args.Having, args.By); ok {
		return nil, scholar.Validationf(e.Name, `groupBy: having field %q must be included in "by"`, name)
	}
	if (args.Take != nil || args.Skip != 0) && len(args.OrderBy) == 0 {
		return nil, scholar.Validationf(e.Name, "groupBy: take and skip require orderBy")
	}
	if args.Skip < 0 {
		return nil, scholar.NewValidationError(e.Name, "skip", errors.New("must not be negative"))
	}
	return by, nil
}

// havingOutsideBy returns the first scalar field compared in p that is
// not a grouping field.
func havingOutsideBy(p querylanguage.P, by []string) (string, bool) {
	switch p := p.(type) {
	case *querylanguage.FieldP:
		if p != nil && p.Agg == "" && !slices.Contains(by, p.Field) {
			return p.Field, true
		}
	case *querylanguage.NaryP:
		if p == nil {
			return "", false
		}
		for _, sub := range p.Ps {
			if name, ok := havingOutsideBy(sub, by); ok {
				return name, true
			}
		}
	case *querylanguage.NotP:
		if p != nil {
			return havingOutsideBy(p.P, by)
		}
	}
	return "", false
}
