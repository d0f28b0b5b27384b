package engine

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/syssam/scholar"
	"github.com/syssam/scholar/schema"
)

// SelectionPlan is the resolved projection of a read: the scalar fields
// returned for each record, the relations fetched with it and the
// relation cardinalities returned under _count.
type SelectionPlan struct {
	Entity    *schema.Entity
	Fields    []*schema.Field
	Relations []*RelationPlan
	Counts    []*schema.Relation

	output map[string]bool
}

// RelationPlan is the sub-fetch of one included relation.
type RelationPlan struct {
	Relation *schema.Relation
	Include  Include
	Plan     *SelectionPlan
}

// Paginated reports if the relation is fetched per parent record.
func (p *RelationPlan) Paginated() bool {
	return p.Include.Take != nil || p.Include.Skip > 0 || len(p.Include.Cursor) > 0
}

// PlanSelection resolves p against e. Every error is reported before
// any statement is issued.
func PlanSelection(e *schema.Entity, p Projection) (*SelectionPlan, error) {
	if len(p.Select) > 0 && len(p.Omit) > 0 {
		return nil, scholar.Validationf(e.Name, `"select" and "omit" are mutually exclusive`)
	}
	plan := &SelectionPlan{Entity: e, output: make(map[string]bool)}
	include := make(map[string]*Include, len(p.Include))
	for name, inc := range p.Include {
		include[name] = inc
	}
	switch {
	case len(p.Select) > 0:
		for _, name := range p.Select {
			if e.HasField(name) {
				plan.output[name] = true
				continue
			}
			if _, ok := e.Relation(name); ok {
				if _, ok := include[name]; !ok {
					include[name] = nil
				}
				continue
			}
			return nil, scholar.NewUnknownFieldError(e.Name, name)
		}
	case len(p.Omit) > 0:
		omit := make(map[string]bool, len(p.Omit))
		for _, name := range p.Omit {
			if _, err := lookupField(e, name); err != nil {
				return nil, err
			}
			omit[name] = true
		}
		for _, f := range e.Fields {
			plan.output[f.Name] = !omit[f.Name]
		}
	default:
		for _, f := range e.Fields {
			plan.output[f.Name] = true
		}
	}
	for _, f := range e.Fields {
		if plan.output[f.Name] {
			plan.Fields = append(plan.Fields, f)
		}
	}
	names := make([]string, 0, len(include))
	for name := range include {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rp, err := planRelation(e, name, include[name])
		if err != nil {
			return nil, err
		}
		plan.Relations = append(plan.Relations, rp)
	}
	for _, name := range p.Count {
		r, ok := e.Relation(name)
		if !ok {
			return nil, scholar.NewUnknownRelationError(e.Name, name)
		}
		if !r.ToMany() {
			return nil, scholar.NewValidationError(e.Name, name, errors.New("_count requires a to-many relation"))
		}
		if !slices.Contains(plan.Counts, r) {
			plan.Counts = append(plan.Counts, r)
		}
	}
	return plan, nil
}

func planRelation(e *schema.Entity, name string, inc *Include) (*RelationPlan, error) {
	r, ok := e.Relation(name)
	if !ok {
		return nil, scholar.NewUnknownRelationError(e.Name, name)
	}
	rp := &RelationPlan{Relation: r}
	if inc != nil {
		rp.Include = *inc
	}
	target := r.TargetEntity()
	if !r.ToMany() {
		if rp.Include.Where != nil || len(rp.Include.OrderBy) > 0 || rp.Paginated() {
			return nil, scholar.NewValidationError(e.Name, name, errors.New("to-one includes accept only a projection"))
		}
	} else {
		if rp.Include.Skip < 0 {
			return nil, scholar.NewValidationError(e.Name, name, fmt.Errorf("skip must not be negative, got %d", rp.Include.Skip))
		}
		if _, err := newFilterCompiler().compile(target, "t0", rp.Include.Where); err != nil {
			return nil, err
		}
		if err := checkOrder(target, rp.Include.OrderBy); err != nil {
			return nil, err
		}
		if len(rp.Include.Cursor) > 0 {
			if _, err := uniqueFilter(target, rp.Include.Cursor); err != nil {
				return nil, err
			}
		}
	}
	plan, err := PlanSelection(target, rp.Include.Projection)
	if err != nil {
		return nil, err
	}
	rp.Plan = plan
	return rp, nil
}

// checkOrder validates the ordering terms of a read.
func checkOrder(e *schema.Entity, order []OrderBy) error {
	for _, o := range order {
		f, err := lookupField(e, o.Field)
		if err != nil {
			return err
		}
		switch {
		case o.Agg != "":
			return scholar.NewValidationError(e.Name, o.Field, errors.New("aggregate ordering is only allowed in groupBy"))
		case f.IsList() || f.Type == schema.TypeJSON:
			return scholar.NewValidationError(e.Name, o.Field, fmt.Errorf("cannot order by %s field", f.Type))
		}
	}
	return nil
}

// fetchFields returns the fields read from the store: the returned ones,
// the primary key and the foreign keys needed to attach relations, and
// extra.
func (p *SelectionPlan) fetchFields(extra ...*schema.Field) []*schema.Field {
	e := p.Entity
	need := make(map[string]bool, len(e.Fields))
	for _, f := range p.Fields {
		need[f.Name] = true
	}
	need[e.ID().Name] = true
	for _, r := range e.ForeignKeys() {
		need[r.ForeignKey().Name] = true
	}
	for _, f := range extra {
		need[f.Name] = true
	}
	fields := make([]*schema.Field, 0, len(need))
	for _, f := range e.Fields {
		if need[f.Name] {
			fields = append(fields, f)
		}
	}
	return fields
}

// strip removes the scalar fields read only for internal use.
func (p *SelectionPlan) strip(r Record) Record {
	for name := range r {
		if p.Entity.HasField(name) && !p.output[name] {
			delete(r, name)
		}
	}
	return r
}

func (p *SelectionPlan) stripAll(rs []Record) []Record {
	for _, r := range rs {
		p.strip(r)
	}
	return rs
}
