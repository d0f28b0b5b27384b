// Package privacy provides the rule types evaluated by the engine before
// a query or mutation reaches the store, and the viewer carried in the
// request context.
package privacy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/scholar/querylanguage"
)

// Policy decision sentinel errors. Rules return them, possibly wrapped,
// and callers check them with errors.Is.
var (
	// Allow terminates the evaluation with an allow decision.
	Allow = errors.New("scholar/privacy: allow rule")

	// Deny terminates the evaluation with a deny decision.
	Deny = errors.New("scholar/privacy: deny rule")

	// Skip continues the evaluation with the next rule.
	Skip = errors.New("scholar/privacy: skip rule")
)

// Allowf returns a formatted wrapped Allow decision.
func Allowf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Allow)...)
}

// Denyf returns a formatted wrapped Deny decision.
func Denyf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Deny)...)
}

// Skipf returns a formatted wrapped Skip decision.
func Skipf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Skip)...)
}

// Op is the mutation operation under evaluation.
type Op uint

// Mutation operations. Batch and singular variants are distinct bits so a
// rule can target either or both.
const (
	OpCreate Op = 1 << iota
	OpUpdate
	OpUpdateOne
	OpDelete
	OpDeleteOne
)

// Is reports whether o matches any bit of op.
func (o Op) Is(op Op) bool { return o&op != 0 }

var opNames = []string{"OpCreate", "OpUpdate", "OpUpdateOne", "OpDelete", "OpDeleteOne"}

func (o Op) String() string {
	var names []string
	for i, name := range opNames {
		if o&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return fmt.Sprintf("Op(%d)", uint(o))
	}
	return strings.Join(names, "|")
}

type (
	// Query is the read operation handed to query rules.
	Query interface {
		// Entity returns the queried entity name.
		Entity() string
	}

	// Mutation is the write operation handed to mutation rules.
	Mutation interface {
		// Entity returns the mutated entity name.
		Entity() string
		// Op returns the mutation operation.
		Op() Op
		// Field returns the value the mutation sets for the field.
		Field(name string) (any, bool)
	}

	// QueryRule decides whether a query is allowed and may narrow it.
	QueryRule interface {
		EvalQuery(context.Context, Query) error
	}

	// QueryPolicy combines multiple query rules into a single policy.
	QueryPolicy []QueryRule

	// MutationRule decides whether a mutation is allowed and may narrow it.
	MutationRule interface {
		EvalMutation(context.Context, Mutation) error
	}

	// MutationPolicy combines multiple mutation rules into a single policy.
	MutationPolicy []MutationRule

	// QueryMutationRule groups query and mutation rules.
	QueryMutationRule interface {
		QueryRule
		MutationRule
	}
)

// AlwaysAllowRule returns a rule that always returns an Allow decision.
func AlwaysAllowRule() QueryMutationRule {
	return fixedDecision{Allow}
}

// AlwaysDenyRule returns a rule that always returns a Deny decision.
func AlwaysDenyRule() QueryMutationRule {
	return fixedDecision{Deny}
}

// ContextQueryMutationRule creates a query/mutation rule from a context
// evaluation function. Returning nil is equivalent to returning Skip.
func ContextQueryMutationRule(eval func(context.Context) error) QueryMutationRule {
	return contextDecision{eval}
}

// QueryRuleFunc type is an adapter which allows the use of ordinary
// functions as query rules.
type QueryRuleFunc func(context.Context, Query) error

// EvalQuery returns f(ctx, q).
func (f QueryRuleFunc) EvalQuery(ctx context.Context, q Query) error {
	return f(ctx, q)
}

// MutationRuleFunc type is an adapter which allows the use of ordinary
// functions as mutation rules.
type MutationRuleFunc func(context.Context, Mutation) error

// EvalMutation returns f(ctx, m).
func (f MutationRuleFunc) EvalMutation(ctx context.Context, m Mutation) error {
	return f(ctx, m)
}

// OnMutationOperation evaluates the given rule only on a given mutation operation.
func OnMutationOperation(rule MutationRule, op Op) MutationRule {
	return MutationRuleFunc(func(ctx context.Context, m Mutation) error {
		if m.Op().Is(op) {
			return rule.EvalMutation(ctx, m)
		}
		return Skip
	})
}

// DenyMutationOperationRule returns a rule denying specified mutation operation.
func DenyMutationOperationRule(op Op) MutationRule {
	rule := MutationRuleFunc(func(_ context.Context, m Mutation) error {
		return Denyf("scholar/privacy: operation %s is not allowed on %s", m.Op(), m.Entity())
	})
	return OnMutationOperation(rule, op)
}

// AllowMutationOperationRule returns a rule allowing specified mutation operation.
func AllowMutationOperationRule(op Op) MutationRule {
	rule := MutationRuleFunc(func(context.Context, Mutation) error {
		return Allow
	})
	return OnMutationOperation(rule, op)
}

// Policy groups query and mutation policies.
type Policy struct {
	Query    QueryPolicy
	Mutation MutationPolicy
}

// EvalQuery forwards evaluation to the query policy.
func (p Policy) EvalQuery(ctx context.Context, q Query) error {
	return p.Query.EvalQuery(ctx, q)
}

// EvalMutation forwards evaluation to the mutation policy.
func (p Policy) EvalMutation(ctx context.Context, m Mutation) error {
	return p.Mutation.EvalMutation(ctx, m)
}

// Policies combines multiple policies into a single policy. The engine
// keeps one Policies value per entity.
type Policies []QueryMutationRule

// EvalQuery evaluates the query policies. If the Allow error is returned
// from one of the policies, it stops the evaluation with a nil error.
func (policies Policies) EvalQuery(ctx context.Context, q Query) error {
	return policies.eval(ctx, func(policy QueryMutationRule) error {
		return policy.EvalQuery(ctx, q)
	})
}

// EvalMutation evaluates the mutation policies. If the Allow error is
// returned from one of the policies, it stops the evaluation with a nil error.
func (policies Policies) EvalMutation(ctx context.Context, m Mutation) error {
	return policies.eval(ctx, func(policy QueryMutationRule) error {
		return policy.EvalMutation(ctx, m)
	})
}

func (policies Policies) eval(ctx context.Context, eval func(QueryMutationRule) error) error {
	if decision, ok := DecisionFromContext(ctx); ok {
		return decision
	}
	for _, policy := range policies {
		switch decision := eval(policy); {
		case decision == nil || errors.Is(decision, Skip):
		case errors.Is(decision, Allow):
			return nil
		default:
			return decision
		}
	}
	return nil
}

// EvalQuery evaluates a query against a query policy.
func (policies QueryPolicy) EvalQuery(ctx context.Context, q Query) error {
	for _, policy := range policies {
		switch decision := policy.EvalQuery(ctx, q); {
		case decision == nil || errors.Is(decision, Skip):
		default:
			return decision
		}
	}
	return nil
}

// EvalMutation evaluates a mutation against a mutation policy.
func (policies MutationPolicy) EvalMutation(ctx context.Context, m Mutation) error {
	for _, policy := range policies {
		switch decision := policy.EvalMutation(ctx, m); {
		case decision == nil || errors.Is(decision, Skip):
		default:
			return decision
		}
	}
	return nil
}

type decisionCtxKey struct{}

// DecisionContext creates a new context from the given parent context with
// a policy decision attached to it. Engine-internal lookups, such as the
// cross-tenant pre-check, run under an Allow decision.
func DecisionContext(parent context.Context, decision error) context.Context {
	if decision == nil || errors.Is(decision, Skip) {
		return parent
	}
	return context.WithValue(parent, decisionCtxKey{}, decision)
}

// DecisionFromContext retrieves the policy decision from the context.
func DecisionFromContext(ctx context.Context) (error, bool) {
	decision, ok := ctx.Value(decisionCtxKey{}).(error)
	if ok && errors.Is(decision, Allow) {
		decision = nil
	}
	return decision, ok
}

type fixedDecision struct {
	decision error
}

func (f fixedDecision) EvalQuery(context.Context, Query) error {
	return f.decision
}

func (f fixedDecision) EvalMutation(context.Context, Mutation) error {
	return f.decision
}

type contextDecision struct {
	eval func(context.Context) error
}

func (c contextDecision) EvalQuery(ctx context.Context, _ Query) error {
	return c.eval(ctx)
}

func (c contextDecision) EvalMutation(ctx context.Context, _ Mutation) error {
	return c.eval(ctx)
}

// Filter narrows the rows a query or a batch/singular update and delete
// can reach. Predicates added with Where are ANDed with the caller filter.
type Filter interface {
	Where(...querylanguage.P)
}

// Filterable is implemented by the engine queries and mutations.
type Filterable interface {
	Filter() Filter
}

// FilterFunc is an adapter that allows using ordinary functions as
// query/mutation rules that narrow the affected rows.
//
//	privacy.FilterFunc(func(ctx context.Context, f privacy.Filter) error {
//		f.Where(querylanguage.FieldEQ("isActive", true))
//		return privacy.Skip
//	})
type FilterFunc func(context.Context, Filter) error

// EvalQuery calls f(ctx, q.Filter()) if the query implements Filterable.
func (f FilterFunc) EvalQuery(ctx context.Context, q Query) error {
	fr, ok := q.(Filterable)
	if !ok {
		return Denyf("scholar/privacy: query type %T does not support filtering", q)
	}
	return f(ctx, fr.Filter())
}

// EvalMutation calls f(ctx, m.Filter()) if the mutation implements
// Filterable. Creates carry no filter and are skipped.
func (f FilterFunc) EvalMutation(ctx context.Context, m Mutation) error {
	if m.Op().Is(OpCreate) {
		return Skip
	}
	fr, ok := m.(Filterable)
	if !ok {
		return Denyf("scholar/privacy: mutation type %T does not support filtering", m)
	}
	return f(ctx, fr.Filter())
}

var _ QueryMutationRule = FilterFunc(nil)
