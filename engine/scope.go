package engine

import (
	"context"
	"errors"

	"github.com/syssam/scholar"
	"github.com/syssam/scholar/privacy"
	"github.com/syssam/scholar/querylanguage"
	"github.com/syssam/scholar/schema"
)

// queryScope is the read handed to the privacy rules of an entity. Rules
// narrow it through its filter.
type queryScope struct {
	entity *schema.Entity
	preds  []querylanguage.P
}

// Entity implements privacy.Query.
func (q *queryScope) Entity() string { return q.entity.Name }

// Filter implements privacy.Filterable.
func (q *queryScope) Filter() privacy.Filter { return q }

// Where implements privacy.Filter.
func (q *queryScope) Where(ps ...querylanguage.P) {
	q.preds = append(q.preds, ps...)
}

// predicate returns the conjunction of the rule predicates, or nil.
func (q *queryScope) predicate() querylanguage.P {
	switch len(q.preds) {
	case 0:
		return nil
	case 1:
		return q.preds[0]
	}
	return querylanguage.And(q.preds...)
}

// mutationScope is the write handed to the privacy rules of an entity.
type mutationScope struct {
	queryScope
	op privacy.Op
	// data holds the encoded values set by the mutation.
	data map[string]any
}

// Op implements privacy.Mutation.
func (m *mutationScope) Op() privacy.Op { return m.op }

// Field implements privacy.Mutation.
func (m *mutationScope) Field(name string) (any, bool) {
	v, ok := m.data[name]
	return v, ok
}

var (
	_ privacy.Query      = (*queryScope)(nil)
	_ privacy.Filterable = (*queryScope)(nil)
	_ privacy.Mutation   = (*mutationScope)(nil)
	_ privacy.Filterable = (*mutationScope)(nil)
)

// evalQuery runs the read rules of e and returns the predicate they add.
func (s *session) evalQuery(ctx context.Context, e *schema.Entity) (querylanguage.P, error) {
	q := &queryScope{entity: e}
	ps, ok := s.policies[e.Name]
	if !ok {
		return nil, nil
	}
	if err := ps.EvalQuery(ctx, q); err != nil && !errors.Is(err, privacy.Allow) {
		return nil, &scholar.PrivacyError{Entity: e.Name, Op: "query", Err: err}
	}
	return q.predicate(), nil
}

// evalMutation runs the write rules of e and returns the predicate they
// add to the rows the mutation may reach.
func (s *session) evalMutation(ctx context.Context, e *schema.Entity, op privacy.Op, data map[string]any) (querylanguage.P, error) {
	m := &mutationScope{queryScope: queryScope{entity: e}, op: op, data: data}
	ps, ok := s.policies[e.Name]
	if !ok {
		return nil, nil
	}
	if err := ps.EvalMutation(ctx, m); err != nil && !errors.Is(err, privacy.Allow) {
		return nil, &scholar.PrivacyError{Entity: e.Name, Op: op.String(), Err: err}
	}
	return m.predicate(), nil
}

// scopeWhere ANDs the caller filter with the rule predicate.
func scopeWhere(where, scope querylanguage.P) querylanguage.P {
	switch {
	case scope == nil:
		return where
	case where == nil:
		return scope
	}
	return querylanguage.And(where, scope)
}
