package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/scholar/contrib/dataloader"
	"github.com/syssam/scholar/dialect/sql"
	"github.com/syssam/scholar/querylanguage"
	"github.com/syssam/scholar/schema"
)

// countKey holds the relation cardinalities of a record.
const countKey = "_count"

// joinFields returns the field of the declaring entity and the field of
// the target entity that relate two rows through r.
func joinFields(r *schema.Relation) (local, remote *schema.Field) {
	if r.Owning() {
		return r.ForeignKey(), r.TargetEntity().ID()
	}
	return r.Entity().ID(), r.ForeignKey()
}

// load fetches the included relations and the counts of plan for rs.
func (s *session) load(ctx context.Context, plan *SelectionPlan, rs []Record) error {
	if len(rs) == 0 {
		return nil
	}
	for _, rp := range plan.Relations {
		var err error
		switch {
		case rp.Paginated():
			err = s.loadPaged(ctx, rp, rs)
		default:
			err = s.loadBatch(ctx, rp, rs)
		}
		if err != nil {
			return err
		}
	}
	if len(plan.Counts) > 0 {
		return s.loadCounts(ctx, plan, rs)
	}
	return nil
}

// loadBatch fetches the relation of every record with one statement.
func (s *session) loadBatch(ctx context.Context, rp *RelationPlan, rs []Record) error {
	r := rp.Relation
	local, remote := joinFields(r)
	key := func(rec Record) any { return rec[local.Name] }
	keys := dataloader.UniqueKeys(rs, key)
	args := readArgs{
		where:   rp.Include.Where,
		orderBy: rp.Include.OrderBy,
		extra:   sql.In(rootAlias+"."+remote.Column, keys...),
	}
	var children []Record
	if len(keys) > 0 {
		var err error
		if children, err = s.fetch(ctx, rp.Plan, args); err != nil {
			return err
		}
	}
	parentKeys := make([]any, len(rs))
	for i, rec := range rs {
		parentKeys[i] = key(rec)
	}
	remoteKey := func(rec Record) any { return rec[remote.Name] }
	if !r.ToMany() {
		// A missing or null key leaves the relation null.
		targets, errs := dataloader.OrderByKeys(parentKeys, children, remoteKey)
		for i, rec := range rs {
			if errs[i] != nil {
				rec[r.Name] = nil
				continue
			}
			rec[r.Name] = rp.Plan.strip(targets[i])
		}
		return nil
	}
	groups := dataloader.GroupByKey(children, remoteKey)
	for i, group := range dataloader.OrderGroupsByKeys(parentKeys, groups) {
		rs[i][r.Name] = rp.Plan.stripAll(group)
	}
	return nil
}

// loadPaged fetches a paginated to-many relation with one statement per
// record, bounded by the worker limit of the session.
func (s *session) loadPaged(ctx context.Context, rp *RelationPlan, rs []Record) error {
	local, remote := joinFields(rp.Relation)
	pages := make([][]Record, len(rs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workersFor())
	for i, rec := range rs {
		k := rec[local.Name]
		if k == nil {
			pages[i] = []Record{}
			continue
		}
		g.Go(func() error {
			page, err := s.fetch(gctx, rp.Plan, readArgs{
				where:   rp.Include.Where,
				orderBy: rp.Include.OrderBy,
				cursor:  rp.Include.Cursor,
				take:    rp.Include.Take,
				skip:    rp.Include.Skip,
				extra:   sql.EQ(rootAlias+"."+remote.Column, k),
			})
			pages[i] = page
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, rec := range rs {
		rec[rp.Relation.Name] = rp.Plan.stripAll(pages[i])
	}
	return nil
}

// loadCounts attaches the _count record of plan to every record of rs.
func (s *session) loadCounts(ctx context.Context, plan *SelectionPlan, rs []Record) error {
	id := plan.Entity.ID()
	ids := dataloader.UniqueKeys(rs, func(rec Record) any { return rec[id.Name] })
	counts := make(map[string]map[any]int64, len(plan.Counts))
	for _, r := range plan.Counts {
		n, err := s.countBy(ctx, r, ids)
		if err != nil {
			return err
		}
		counts[r.Name] = n
	}
	for _, rec := range rs {
		c := make(Record, len(plan.Counts))
		for _, r := range plan.Counts {
			c[r.Name] = counts[r.Name][rec[id.Name]]
		}
		rec[countKey] = c
	}
	return nil
}

// countBy returns the number of visible related rows of r per parent key.
func (s *session) countBy(ctx context.Context, r *schema.Relation, keys []any) (map[any]int64, error) {
	target, fk := r.TargetEntity(), r.ForeignKey()
	scope, err := s.evalQuery(ctx, target)
	if err != nil {
		return nil, err
	}
	pred, err := newFilterCompiler().compile(target, rootAlias, scope)
	if err != nil {
		return nil, err
	}
	col := rootAlias + "." + fk.Column
	sel := sql.Dialect(s.dialect).Select(col).
		AppendSelectExpr(aggExpr(querylanguage.AggCount, ""), "count").
		From(target.Table).
		As(rootAlias).
		Where(sql.In(col, keys...)).
		Where(pred).
		GroupBy(col)
	counts := make(map[any]int64, len(keys))
	err = s.query(ctx, sel, func(rows *sql.Rows) error {
		var (
			raw any
			n   int64
		)
		if err := rows.Scan(&raw, &n); err != nil {
			return err
		}
		k, err := decode(fk, raw)
		if err != nil {
			return err
		}
		counts[k] = n
		return nil
	})
	return counts, err
}
