package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/scholar"
	"github.com/syssam/scholar/dialect/sql"
	"github.com/syssam/scholar/querylanguage"
	"github.com/syssam/scholar/schema"
)

// rootAlias is the alias of the entity table in every read.
const rootAlias = "t0"

// Delegate runs the operations of one entity.
type Delegate struct {
	s      *session
	entity *schema.Entity
	err    error
}

// Entity returns the entity of the delegate, or nil for unknown entities.
func (d *Delegate) Entity() *schema.Entity { return d.entity }

func (d *Delegate) ready() error {
	if d.err != nil {
		return d.err
	}
	return d.s.check()
}

// FindMany returns the records matching args.Where, in the requested
// order and page.
func (d *Delegate) FindMany(ctx context.Context, args FindArgs) ([]Record, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}
	plan, err := PlanSelection(d.entity, args.Projection)
	if err != nil {
		return nil, err
	}
	distinct, err := distinctFields(d.entity, args.Distinct)
	if err != nil {
		return nil, err
	}
	rs, err := d.s.fetch(d.s.scoped(ctx), plan, readArgs{
		where:    args.Where,
		orderBy:  args.OrderBy,
		cursor:   args.Cursor,
		take:     args.Take,
		skip:     args.Skip,
		distinct: distinct,
	})
	if err != nil {
		return nil, translate(d.entity, err)
	}
	return plan.stripAll(rs), nil
}

// FindFirst returns the first record matching args, or nil. Take
// defaults to 1; a negative Take returns the last record.
func (d *Delegate) FindFirst(ctx context.Context, args FindArgs) (Record, error) {
	if args.Take == nil {
		args.Take = Int(1)
	}
	rs, err := d.FindMany(ctx, args)
	if err != nil || len(rs) == 0 {
		return nil, err
	}
	return rs[0], nil
}

// FindFirstOrThrow is like FindFirst but fails with a NotFoundError when
// no record matches.
func (d *Delegate) FindFirstOrThrow(ctx context.Context, args FindArgs) (Record, error) {
	r, err := d.FindFirst(ctx, args)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, scholar.NewNotFoundError(d.entity.Name, "findFirstOrThrow")
	}
	return r, nil
}

// FindUnique returns the record identified by args.Where, or nil.
//
//	rec, err := client.Model("Student").FindUnique(ctx, engine.FindUniqueArgs{
//		Where: engine.Unique{"tenantId": tenantID, "admissionNumber": "A-001"},
//	})
func (d *Delegate) FindUnique(ctx context.Context, args FindUniqueArgs) (Record, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}
	where, err := uniqueFilter(d.entity, args.Where)
	if err != nil {
		return nil, err
	}
	plan, err := PlanSelection(d.entity, args.Projection)
	if err != nil {
		return nil, err
	}
	rs, err := d.s.fetch(d.s.scoped(ctx), plan, readArgs{where: where})
	if err != nil {
		return nil, translate(d.entity, err)
	}
	if len(rs) == 0 {
		return nil, nil
	}
	return plan.strip(rs[0]), nil
}

// FindUniqueOrThrow is like FindUnique but fails with a NotFoundError
// when no record matches.
func (d *Delegate) FindUniqueOrThrow(ctx context.Context, args FindUniqueArgs) (Record, error) {
	r, err := d.FindUnique(ctx, args)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, scholar.NewNotFoundError(d.entity.Name, "findUniqueOrThrow")
	}
	return r, nil
}

// uniqueFilter validates u against the unique sets of e and returns the
// equivalent predicate.
func uniqueFilter(e *schema.Entity, u Unique) (querylanguage.P, error) {
	if len(u) == 0 {
		return nil, scholar.Validationf(e.Name, "unique filter must not be empty")
	}
	names := make([]string, 0, len(u))
	for name := range u {
		names = append(names, name)
	}
	sort.Strings(names)
	ps := make([]querylanguage.P, 0, len(names))
	for _, name := range names {
		if _, err := lookupField(e, name); err != nil {
			return nil, err
		}
		if u[name] == nil {
			return nil, scholar.NewValidationError(e.Name, name, errors.New("unique filter value must not be null"))
		}
		ps = append(ps, querylanguage.FieldEQ(name, u[name]))
	}
	if !e.IsUniqueSet(names) {
		return nil, scholar.Validationf(e.Name, "fields (%s) are not a unique constraint", strings.Join(names, ", "))
	}
	return querylanguage.And(ps...), nil
}

func distinctFields(e *schema.Entity, names []string) ([]*schema.Field, error) {
	fields := make([]*schema.Field, 0, len(names))
	for _, name := range names {
		f, err := lookupField(e, name)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// readArgs are the options of one entity read.
type readArgs struct {
	where    querylanguage.P
	orderBy  []OrderBy
	cursor   Unique
	take     *int
	skip     int
	distinct []*schema.Field
	// extra constrains the rows of rootAlias beyond the caller filter.
	extra *sql.Predicate
	// unscoped reads skip the privacy rules of the entity.
	unscoped bool
}

func (a readArgs) paginated() bool {
	return a.take != nil || a.skip > 0 || len(a.cursor) > 0
}

// orderTerm is one resolved ordering term of a read.
type orderTerm struct {
	field *schema.Field
	desc  bool
}

func (t orderTerm) column() string { return rootAlias + "." + t.field.Column }

// readQuery is a read ready to run.
type readQuery struct {
	sel *sql.Selector
	// reversed reads page backwards and return rows in reverse order.
	reversed bool
	// empty reads cannot match any row.
	empty bool
}

// selectRows builds the statement reading columns of e for args. The
// statement applies the privacy scope, the filter, the cursor and the
// order; pagination is applied unless inMemory is set.
func (s *session) selectRows(ctx context.Context, e *schema.Entity, args readArgs, inMemory bool, columns ...string) (*readQuery, error) {
	if args.skip < 0 {
		return nil, scholar.Validationf(e.Name, "skip must not be negative, got %d", args.skip)
	}
	if err := checkOrder(e, args.orderBy); err != nil {
		return nil, err
	}
	var scope querylanguage.P
	if !args.unscoped {
		var err error
		if scope, err = s.evalQuery(ctx, e); err != nil {
			return nil, err
		}
	}
	pred, err := newFilterCompiler().compile(e, rootAlias, scopeWhere(args.where, scope))
	if err != nil {
		return nil, err
	}
	rq := &readQuery{reversed: args.take != nil && *args.take < 0}
	terms := orderTerms(e, args.orderBy, args.paginated(), rq.reversed)
	sel := sql.Dialect(s.dialect).Select(columns...).From(e.Table).As(rootAlias).Where(pred).Where(args.extra)
	if len(args.cursor) > 0 {
		cp, found, err := s.cursorPredicate(ctx, e, args.cursor, scope, terms)
		if err != nil {
			return nil, err
		}
		if !found {
			rq.empty = true
		}
		sel.Where(cp)
	}
	for _, t := range terms {
		sel.OrderBy(t.column(), t.desc)
	}
	if !inMemory {
		if args.take != nil {
			sel.Limit(abs(*args.take))
		}
		if args.skip > 0 {
			sel.Offset(args.skip)
		}
	}
	rq.sel = sel
	return rq, nil
}

// orderTerms resolves the ordering of a read. Paginated and ordered reads
// get the primary key as a final tie-breaker so pages are stable.
func orderTerms(e *schema.Entity, order []OrderBy, paginated, reversed bool) []orderTerm {
	terms := make([]orderTerm, 0, len(order)+1)
	hasID := false
	for _, o := range order {
		f, _ := e.Field(o.Field)
		terms = append(terms, orderTerm{field: f, desc: o.Desc != reversed})
		hasID = hasID || f.ID
	}
	if !hasID && (paginated || len(order) > 0) {
		terms = append(terms, orderTerm{field: e.ID(), desc: reversed})
	}
	return terms
}

// cursorPredicate returns the condition selecting the rows at or after
// the cursor row in the order of terms. It reports false when the cursor
// row does not exist.
func (s *session) cursorPredicate(ctx context.Context, e *schema.Entity, cursor Unique, scope querylanguage.P, terms []orderTerm) (*sql.Predicate, bool, error) {
	cp, err := uniqueFilter(e, cursor)
	if err != nil {
		return nil, false, err
	}
	pred, err := newFilterCompiler().compile(e, rootAlias, scopeWhere(cp, scope))
	if err != nil {
		return nil, false, err
	}
	fields := make([]*schema.Field, len(terms))
	columns := make([]string, len(terms))
	for i, t := range terms {
		fields[i], columns[i] = t.field, t.column()
	}
	sel := sql.Dialect(s.dialect).Select(columns...).From(e.Table).As(rootAlias).Where(pred).Limit(1)
	var row Record
	err = s.query(ctx, sel, func(rows *sql.Rows) error {
		r, err := scanRecord(rows, fields)
		row = r
		return err
	})
	if err != nil || row == nil {
		return sql.False(), false, err
	}
	or := make([]*sql.Predicate, 0, len(terms)+1)
	for i, t := range terms {
		eqs := make([]*sql.Predicate, 0, i+1)
		for _, prev := range terms[:i] {
			eqs = append(eqs, equalTo(prev, row[prev.field.Name]))
		}
		or = append(or, sql.And(append(eqs, after(t, row[t.field.Name]))...))
	}
	eqs := make([]*sql.Predicate, 0, len(terms))
	for _, t := range terms {
		eqs = append(eqs, equalTo(t, row[t.field.Name]))
	}
	or = append(or, sql.And(eqs...))
	return sql.Or(or...), true, nil
}

func equalTo(t orderTerm, v any) *sql.Predicate {
	if v == nil {
		return sql.IsNull(t.column())
	}
	v, _ = encode(t.field, v)
	return sql.EQ(t.column(), v)
}

// after returns the condition of rows strictly after v in the order of
// t. NULL sorts first in ascending order.
func after(t orderTerm, v any) *sql.Predicate {
	switch {
	case v == nil && t.desc:
		return sql.False()
	case v == nil:
		return sql.NotNull(t.column())
	}
	v, _ = encode(t.field, v)
	if t.desc {
		return sql.Or(sql.LT(t.column(), v), sql.IsNull(t.column()))
	}
	return sql.GT(t.column(), v)
}

// fetch reads the records of plan for args and loads their relations.
// The scalar fields of the returned records are not stripped.
func (s *session) fetch(ctx context.Context, plan *SelectionPlan, args readArgs) ([]Record, error) {
	e := plan.Entity
	fields := plan.fetchFields(args.distinct...)
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = rootAlias + "." + f.Column
	}
	inMemory := len(args.distinct) > 0
	rq, err := s.selectRows(ctx, e, args, inMemory, columns...)
	if err != nil {
		return nil, err
	}
	rs := make([]Record, 0)
	if rq.empty {
		return rs, nil
	}
	err = s.query(ctx, rq.sel, func(rows *sql.Rows) error {
		r, err := scanRecord(rows, fields)
		if err != nil {
			return err
		}
		rs = append(rs, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if inMemory {
		if rs, err = distinctRecords(rs, args.distinct); err != nil {
			return nil, err
		}
		rs = page(rs, args.skip, args.take)
	}
	if rq.reversed {
		slices.Reverse(rs)
	}
	if err := s.load(ctx, plan, rs); err != nil {
		return nil, err
	}
	return rs, nil
}

// distinctRecords keeps the first record of every combination of the
// values of fields.
func distinctRecords(rs []Record, fields []*schema.Field) ([]Record, error) {
	seen := make(map[string]struct{}, len(rs))
	out := rs[:0]
	key := make([]any, len(fields))
	for _, r := range rs {
		for i, f := range fields {
			key[i] = r[f.Name]
		}
		b, err := msgpack.Marshal(key)
		if err != nil {
			return nil, fmt.Errorf("scholar: distinct key: %w", err)
		}
		if _, ok := seen[string(b)]; ok {
			continue
		}
		seen[string(b)] = struct{}{}
		out = append(out, r)
	}
	return out, nil
}

func page(rs []Record, skip int, take *int) []Record {
	if skip >= len(rs) {
		return rs[:0]
	}
	rs = rs[skip:]
	if take != nil && abs(*take) < len(rs) {
		rs = rs[:abs(*take)]
	}
	return rs
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
