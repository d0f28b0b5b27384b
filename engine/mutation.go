package engine

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/scholar"
	"github.com/syssam/scholar/contrib/dataloader"
	"github.com/syssam/scholar/dialect/sql"
	"github.com/syssam/scholar/privacy"
	"github.com/syssam/scholar/querylanguage"
	"github.com/syssam/scholar/schema"
)

// maxInsertArgs bounds the placeholders of one INSERT statement.
const maxInsertArgs = 900

// Create inserts one record and returns it.
//
//	rec, err := client.Model("Student").Create(ctx, engine.CreateArgs{
//		Data: engine.Data{
//			"tenantId":        tenantID,
//			"firstName":       "Ada",
//			"lastName":        "Lovelace",
//			"admissionNumber": "A-001",
//		},
//	})
func (d *Delegate) Create(ctx context.Context, args CreateArgs) (Record, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}
	e := d.entity
	plan, err := PlanSelection(e, args.Projection)
	if err != nil {
		return nil, err
	}
	ctx = d.s.scoped(ctx)
	var rec Record
	err = d.s.withTx(ctx, func(s *session) error {
		var err error
		rec, err = s.create(ctx, plan, args.Data)
		return err
	})
	if err != nil {
		return nil, translate(e, err)
	}
	return plan.strip(rec), nil
}

func (s *session) create(ctx context.Context, plan *SelectionPlan, data Data) (Record, error) {
	e := plan.Entity
	row, err := prepareCreate(ctx, e, data)
	if err != nil {
		return nil, err
	}
	if _, err := s.evalMutation(ctx, e, privacy.OpCreate, row); err != nil {
		return nil, err
	}
	rows := []map[string]any{row}
	if err := s.checkTenancy(ctx, e, rows); err != nil {
		return nil, err
	}
	if _, err := s.insert(ctx, e, rows, false); err != nil {
		return nil, err
	}
	return s.readBack(ctx, plan, row[e.ID().Name])
}

// CreateMany inserts the records of args.Data and returns the number of
// inserted rows. With SkipDuplicates, rows violating a unique constraint
// are dropped and not counted.
func (d *Delegate) CreateMany(ctx context.Context, args CreateManyArgs) (int64, error) {
	if err := d.ready(); err != nil {
		return 0, err
	}
	if len(args.Data) == 0 {
		return 0, nil
	}
	e := d.entity
	ctx = d.s.scoped(ctx)
	rows := make([]map[string]any, len(args.Data))
	for i, data := range args.Data {
		row, err := prepareCreate(ctx, e, data)
		if err != nil {
			return 0, err
		}
		rows[i] = row
	}
	var n int64
	err := d.s.withTx(ctx, func(s *session) error {
		for _, row := range rows {
			if _, err := s.evalMutation(ctx, e, privacy.OpCreate, row); err != nil {
				return err
			}
		}
		if err := s.checkTenancy(ctx, e, rows); err != nil {
			return err
		}
		var err error
		n, err = s.insert(ctx, e, rows, args.SkipDuplicates)
		return err
	})
	if err != nil {
		return 0, translate(e, err)
	}
	return n, nil
}

// Update changes the record identified by args.Where and returns it. It
// fails with a NotFoundError when no visible record matches.
func (d *Delegate) Update(ctx context.Context, args UpdateArgs) (Record, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}
	e := d.entity
	where, err := uniqueFilter(e, args.Where)
	if err != nil {
		return nil, err
	}
	plan, err := PlanSelection(e, args.Projection)
	if err != nil {
		return nil, err
	}
	ctx = d.s.scoped(ctx)
	var rec Record
	err = d.s.withTx(ctx, func(s *session) error {
		current, err := s.locate(ctx, e, where, privacy.OpUpdateOne, args.Data)
		if err != nil {
			return err
		}
		if current == nil {
			return scholar.NewNotFoundError(e.Name, "update")
		}
		rec, err = s.update(ctx, plan, current, args.Data)
		return err
	})
	if err != nil {
		return nil, translate(e, err)
	}
	return plan.strip(rec), nil
}

// update applies data to the located row current and reads it back.
func (s *session) update(ctx context.Context, plan *SelectionPlan, current Record, data Data) (Record, error) {
	e := plan.Entity
	asg, values, err := prepareUpdate(e, data)
	if err != nil {
		return nil, err
	}
	id := current[e.ID().Name]
	if err := s.checkUpdateTenancy(ctx, e, []Record{current}, values); err != nil {
		return nil, err
	}
	if len(asg) > 0 {
		u := sql.Dialect(s.dialect).Update(e.Table).Where(sql.EQ(e.ID().Column, id))
		asg.apply(u)
		if _, err := s.exec(ctx, u); err != nil {
			return nil, err
		}
	}
	return s.readBack(ctx, plan, id)
}

// UpdateMany applies args.Data to every visible record matching
// args.Where and returns the number of updated rows.
func (d *Delegate) UpdateMany(ctx context.Context, args UpdateManyArgs) (int64, error) {
	if err := d.ready(); err != nil {
		return 0, err
	}
	e := d.entity
	asg, values, err := prepareUpdate(e, args.Data)
	if err != nil {
		return 0, err
	}
	ctx = d.s.scoped(ctx)
	var n int64
	err = d.s.withTx(ctx, func(s *session) error {
		scope, err := s.evalMutation(ctx, e, privacy.OpUpdate, values)
		if err != nil {
			return err
		}
		pred, err := newFilterCompiler().compile(e, e.Table, scopeWhere(args.Where, scope))
		if err != nil {
			return err
		}
		if tf, ok := e.TenantField(); ok && setsForeignKey(e, values) {
			owners, err := s.distinctTenants(ctx, e, tf, pred)
			if err != nil {
				return err
			}
			if err := s.checkUpdateTenancy(ctx, e, owners, values); err != nil {
				return err
			}
		}
		if len(asg) == 0 {
			n, err = s.countWhere(ctx, e, pred)
			return err
		}
		u := sql.Dialect(s.dialect).Update(e.Table).Where(pred)
		asg.apply(u)
		n, err = s.exec(ctx, u)
		return err
	})
	if err != nil {
		return 0, translate(e, err)
	}
	return n, nil
}

// Upsert updates the record identified by args.Where with args.Update,
// or creates it from args.Create when it does not exist. Exactly one of
// the two writes runs, atomically with the lookup.
func (d *Delegate) Upsert(ctx context.Context, args UpsertArgs) (Record, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}
	e := d.entity
	where, err := uniqueFilter(e, args.Where)
	if err != nil {
		return nil, err
	}
	plan, err := PlanSelection(e, args.Projection)
	if err != nil {
		return nil, err
	}
	ctx = d.s.scoped(ctx)
	var rec Record
	err = d.s.withTx(ctx, func(s *session) error {
		current, err := s.locate(ctx, e, where, privacy.OpUpdateOne, args.Update)
		if err != nil {
			return err
		}
		if current != nil {
			rec, err = s.update(ctx, plan, current, args.Update)
			return err
		}
		data := make(Data, len(args.Create)+len(args.Where))
		maps.Copy(data, args.Where)
		maps.Copy(data, args.Create)
		rec, err = s.create(ctx, plan, data)
		return err
	})
	if err != nil {
		return nil, translate(e, err)
	}
	return plan.strip(rec), nil
}

// Delete removes the record identified by args.Where and returns it. It
// fails with a NotFoundError when no visible record matches.
func (d *Delegate) Delete(ctx context.Context, args DeleteArgs) (Record, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}
	e := d.entity
	where, err := uniqueFilter(e, args.Where)
	if err != nil {
		return nil, err
	}
	plan, err := PlanSelection(e, args.Projection)
	if err != nil {
		return nil, err
	}
	ctx = d.s.scoped(ctx)
	var rec Record
	err = d.s.withTx(ctx, func(s *session) error {
		scope, err := s.evalMutation(ctx, e, privacy.OpDeleteOne, nil)
		if err != nil {
			return err
		}
		rs, err := s.fetch(ctx, plan, readArgs{where: scopeWhere(where, scope), unscoped: true})
		if err != nil {
			return err
		}
		if len(rs) == 0 {
			return scholar.NewNotFoundError(e.Name, "delete")
		}
		rec = rs[0]
		del := sql.Dialect(s.dialect).Delete(e.Table).Where(sql.EQ(e.ID().Column, rec[e.ID().Name]))
		_, err = s.exec(ctx, del)
		return err
	})
	if err != nil {
		return nil, translate(e, err)
	}
	return plan.strip(rec), nil
}

// DeleteMany removes the visible records matching args.Where, at most
// args.Limit of them, and returns the number of deleted rows.
func (d *Delegate) DeleteMany(ctx context.Context, args DeleteManyArgs) (int64, error) {
	if err := d.ready(); err != nil {
		return 0, err
	}
	e := d.entity
	if args.Limit != nil && *args.Limit < 0 {
		return 0, scholar.Validationf(e.Name, "limit must not be negative, got %d", *args.Limit)
	}
	ctx = d.s.scoped(ctx)
	var n int64
	err := d.s.withTx(ctx, func(s *session) error {
		scope, err := s.evalMutation(ctx, e, privacy.OpDelete, nil)
		if err != nil {
			return err
		}
		pred, err := newFilterCompiler().compile(e, e.Table, scopeWhere(args.Where, scope))
		if err != nil {
			return err
		}
		if args.Limit == nil {
			n, err = s.exec(ctx, sql.Dialect(s.dialect).Delete(e.Table).Where(pred))
			return err
		}
		ids, err := s.selectIDs(ctx, e, pred, *args.Limit)
		if err != nil {
			return err
		}
		for _, chunk := range dataloader.Chunk(ids, maxInArgs) {
			m, err := s.exec(ctx, sql.Dialect(s.dialect).Delete(e.Table).Where(sql.In(e.ID().Column, chunk...)))
			if err != nil {
				return err
			}
			n += m
		}
		return nil
	})
	if err != nil {
		return 0, translate(e, err)
	}
	return n, nil
}

// prepareCreate validates data for a create of e and returns the encoded
// row with defaults applied. Every field of e is present in the row.
func prepareCreate(ctx context.Context, e *schema.Entity, data Data) (map[string]any, error) {
	row := make(map[string]any, len(e.Fields))
	for _, name := range slices.Sorted(maps.Keys(data)) {
		f, err := writableField(e, name)
		if err != nil {
			return nil, err
		}
		v := data[name]
		if _, ok := v.(NumberOp); ok {
			return nil, scholar.NewValidationError(e.Name, name, errors.New("numeric operators are only allowed in updates"))
		}
		if v == nil {
			if !f.Optional {
				return nil, scholar.NewValidationError(e.Name, name, errors.New("must not be null"))
			}
			row[name] = nil
			continue
		}
		ev, err := encode(f, v)
		if err != nil {
			return nil, scholar.NewValidationError(e.Name, name, err)
		}
		row[name] = ev
	}
	if tf, ok := e.TenantField(); ok {
		if _, set := row[tf.Name]; !set {
			if tenant, ok := privacy.TenantFromContext(ctx); ok {
				row[tf.Name] = tenant
			}
		}
	}
	now := time.Now().UTC()
	for _, f := range e.Fields {
		if _, set := row[f.Name]; set {
			continue
		}
		switch {
		case f.Generate == schema.GenUUID:
			row[f.Name] = uuid.NewString()
		case f.Generate == schema.GenNow:
			row[f.Name] = now
		case f.Default != nil:
			v, err := encode(f, f.Default)
			if err != nil {
				return nil, scholar.NewValidationError(e.Name, f.Name, fmt.Errorf("default value: %w", err))
			}
			row[f.Name] = v
		case f.Optional:
			row[f.Name] = nil
		default:
			return nil, scholar.NewValidationError(e.Name, f.Name, errors.New("missing required field"))
		}
	}
	return row, nil
}

// writableField resolves a field named in mutation data.
func writableField(e *schema.Entity, name string) (*schema.Field, error) {
	if f, ok := e.Field(name); ok {
		return f, nil
	}
	if r, ok := e.Relation(name); ok {
		if r.Owning() {
			return nil, scholar.NewValidationError(e.Name, name, fmt.Errorf("set the foreign key field %q instead", r.ForeignKey().Name))
		}
		return nil, scholar.NewValidationError(e.Name, name, errors.New("inverse relations cannot be written"))
	}
	return nil, scholar.NewUnknownFieldError(e.Name, name)
}

// assignment is one column update.
type assignment struct {
	field *schema.Field
	// op is "=" or an arithmetic operator applied to the current value.
	op    string
	value any
}

type assignments []assignment

func (as assignments) apply(u *sql.UpdateBuilder) {
	for _, a := range as {
		if a.op == "=" {
			u.Set(a.field.Column, a.value)
		} else {
			u.SetExpr(a.field.Column, sql.Arith(a.field.Column, a.op, a.value))
		}
	}
}

// prepareUpdate validates data for an update of e. It returns the column
// assignments and the encoded values of the plainly assigned fields.
func prepareUpdate(e *schema.Entity, data Data) (assignments, map[string]any, error) {
	var (
		asg    assignments
		values = make(map[string]any, len(data))
	)
	for _, name := range slices.Sorted(maps.Keys(data)) {
		f, err := writableField(e, name)
		if err != nil {
			return nil, nil, err
		}
		if f.ID || f.Immutable {
			return nil, nil, scholar.NewValidationError(e.Name, name, errors.New("field is immutable"))
		}
		v, op := data[name], "="
		if nop, ok := v.(NumberOp); ok {
			if nop.op != "=" && !f.Type.Numeric() {
				return nil, nil, scholar.NewValidationError(e.Name, name, fmt.Errorf("operator %s requires a numeric field", nop.op))
			}
			v, op = nop.value, nop.op
			if op != "=" && v == nil {
				return nil, nil, scholar.NewValidationError(e.Name, name, errors.New("operand must not be null"))
			}
		}
		if v == nil && !f.Optional {
			return nil, nil, scholar.NewValidationError(e.Name, name, errors.New("must not be null"))
		}
		ev, err := encode(f, v)
		if err != nil {
			return nil, nil, scholar.NewValidationError(e.Name, name, err)
		}
		if op == "/" && isZero(ev) {
			return nil, nil, scholar.NewValidationError(e.Name, name, errors.New("division by zero"))
		}
		asg = append(asg, assignment{field: f, op: op, value: ev})
		if op == "=" {
			values[name] = ev
		}
	}
	if len(asg) == 0 {
		return nil, values, nil
	}
	now := time.Now().UTC()
	for _, f := range e.Fields {
		if _, set := data[f.Name]; f.UpdateNow && !set {
			asg = append(asg, assignment{field: f, op: "=", value: now})
		}
	}
	return asg, values, nil
}

func isZero(v any) bool {
	switch v := v.(type) {
	case int64:
		return v == 0
	case float64:
		return v == 0
	}
	return false
}

// setsForeignKey reports if values assign a foreign key of e.
func setsForeignKey(e *schema.Entity, values map[string]any) bool {
	for _, r := range e.ForeignKeys() {
		if _, ok := values[r.ForeignKey().Name]; ok {
			return true
		}
	}
	return false
}

// checkUpdateTenancy verifies the foreign keys assigned by values against
// the tenants of the updated rows.
func (s *session) checkUpdateTenancy(ctx context.Context, e *schema.Entity, current []Record, values map[string]any) error {
	tf, ok := e.TenantField()
	if !ok || !setsForeignKey(e, values) {
		return nil
	}
	rows := make([]map[string]any, 0, len(current))
	for _, rec := range current {
		row := make(map[string]any, len(values)+1)
		for _, r := range e.ForeignKeys() {
			if v, ok := values[r.ForeignKey().Name]; ok {
				row[r.ForeignKey().Name] = v
			}
		}
		row[tf.Name] = rec[tf.Name]
		rows = append(rows, row)
	}
	return s.checkTenancy(ctx, e, rows)
}

// locate returns the identity of the row of e matching the unique filter
// where within the mutation scope of op, or nil.
func (s *session) locate(ctx context.Context, e *schema.Entity, where querylanguage.P, op privacy.Op, data Data) (Record, error) {
	_, values, err := prepareUpdate(e, data)
	if err != nil {
		return nil, err
	}
	scope, err := s.evalMutation(ctx, e, op, values)
	if err != nil {
		return nil, err
	}
	rs, err := s.fetch(ctx, keyPlan(e), readArgs{where: scopeWhere(where, scope), unscoped: true})
	if err != nil || len(rs) == 0 {
		return nil, err
	}
	return rs[0], nil
}

// keyPlan reads the primary and foreign keys of e.
func keyPlan(e *schema.Entity) *SelectionPlan {
	return &SelectionPlan{
		Entity: e,
		Fields: []*schema.Field{e.ID()},
		output: map[string]bool{e.ID().Name: true},
	}
}

// readBack reads the record of plan with the given primary key.
func (s *session) readBack(ctx context.Context, plan *SelectionPlan, id any) (Record, error) {
	where := querylanguage.FieldEQ(plan.Entity.ID().Name, id)
	rs, err := s.fetch(ctx, plan, readArgs{where: where, unscoped: true})
	if err != nil {
		return nil, err
	}
	if len(rs) == 0 {
		return nil, scholar.NewNotFoundError(plan.Entity.Name, "read")
	}
	return rs[0], nil
}

// insert writes rows into the table of e and returns the number of
// inserted rows.
func (s *session) insert(ctx context.Context, e *schema.Entity, rows []map[string]any, skipDuplicates bool) (int64, error) {
	columns := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		columns[i] = f.Column
	}
	var n int64
	for _, chunk := range dataloader.Chunk(rows, max(1, maxInsertArgs/len(columns))) {
		ins := sql.Dialect(s.dialect).Insert(e.Table).Columns(columns...)
		if skipDuplicates {
			ins.OnConflictDoNothing()
		}
		for _, row := range chunk {
			values := make([]any, len(e.Fields))
			for i, f := range e.Fields {
				values[i] = row[f.Name]
			}
			ins.Values(values...)
		}
		m, err := s.exec(ctx, ins)
		if err != nil {
			return 0, err
		}
		n += m
	}
	return n, nil
}

// distinctTenants returns one record per tenant owning a row matching pred.
func (s *session) distinctTenants(ctx context.Context, e *schema.Entity, tf *schema.Field, pred *sql.Predicate) ([]Record, error) {
	sel := sql.Dialect(s.dialect).Select(e.Table + "." + tf.Column).Distinct().From(e.Table).Where(pred)
	var rs []Record
	err := s.query(ctx, sel, func(rows *sql.Rows) error {
		r, err := scanRecord(rows, []*schema.Field{tf})
		if err != nil {
			return err
		}
		rs = append(rs, r)
		return nil
	})
	return rs, err
}

// selectIDs returns the primary keys of at most limit rows matching pred.
func (s *session) selectIDs(ctx context.Context, e *schema.Entity, pred *sql.Predicate, limit int) ([]any, error) {
	id := e.ID()
	sel := sql.Dialect(s.dialect).Select(e.Table + "." + id.Column).From(e.Table).Where(pred).
		OrderBy(e.Table+"."+id.Column, false).
		Limit(limit)
	var ids []any
	err := s.query(ctx, sel, func(rows *sql.Rows) error {
		var raw any
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		v, err := decode(id, raw)
		if err != nil {
			return err
		}
		ids = append(ids, v)
		return nil
	})
	return ids, err
}

// countWhere counts the rows of e matching pred.
func (s *session) countWhere(ctx context.Context, e *schema.Entity, pred *sql.Predicate) (int64, error) {
	sel := sql.Dialect(s.dialect).Select().
		AppendSelectExpr(aggExpr(querylanguage.AggCount, ""), "count").
		From(e.Table).
		Where(pred)
	var n int64
	err := s.query(ctx, sel, func(rows *sql.Rows) error {
		return rows.Scan(&n)
	})
	return n, err
}
