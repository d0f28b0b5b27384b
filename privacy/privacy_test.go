package privacy_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/scholar/privacy"
	"github.com/syssam/scholar/querylanguage"
)

type mockQuery struct {
	entity string
	preds  []querylanguage.P
}

func (q *mockQuery) Entity() string              { return q.entity }
func (q *mockQuery) Filter() privacy.Filter      { return q }
func (q *mockQuery) Where(ps ...querylanguage.P) { q.preds = append(q.preds, ps...) }

type mockMutation struct {
	entity string
	op     privacy.Op
	fields map[string]any
	preds  []querylanguage.P
}

func (m *mockMutation) Entity() string              { return m.entity }
func (m *mockMutation) Op() privacy.Op              { return m.op }
func (m *mockMutation) Filter() privacy.Filter      { return m }
func (m *mockMutation) Where(ps ...querylanguage.P) { m.preds = append(m.preds, ps...) }

func (m *mockMutation) Field(name string) (any, bool) {
	v, ok := m.fields[name]
	return v, ok
}

type plainQuery struct{}

func (plainQuery) Entity() string { return "Student" }

func TestDecisions(t *testing.T) {
	err := privacy.Allowf("admin %s", "u-1")
	assert.True(t, errors.Is(err, privacy.Allow))
	assert.Equal(t, "admin u-1: scholar/privacy: allow rule", err.Error())
	assert.True(t, errors.Is(privacy.Denyf("no"), privacy.Deny))
	assert.True(t, errors.Is(privacy.Skipf("later"), privacy.Skip))
}

func TestOp(t *testing.T) {
	assert.True(t, privacy.OpUpdateOne.Is(privacy.OpUpdate|privacy.OpUpdateOne))
	assert.False(t, privacy.OpCreate.Is(privacy.OpDelete))
	assert.Equal(t, "OpDelete|OpDeleteOne", (privacy.OpDelete | privacy.OpDeleteOne).String())
	assert.Equal(t, "Op(0)", privacy.Op(0).String())
}

func TestPolicies(t *testing.T) {
	ctx := context.Background()
	q := &mockQuery{entity: "Fee"}

	t.Run("AllowStops", func(t *testing.T) {
		calls := 0
		count := privacy.ContextQueryMutationRule(func(context.Context) error {
			calls++
			return privacy.Skip
		})
		p := privacy.Policies{count, privacy.AlwaysAllowRule(), count}
		require.NoError(t, p.EvalQuery(ctx, q))
		assert.Equal(t, 1, calls)
	})
	t.Run("DenyStops", func(t *testing.T) {
		p := privacy.Policies{privacy.AlwaysDenyRule(), privacy.AlwaysAllowRule()}
		assert.True(t, errors.Is(p.EvalQuery(ctx, q), privacy.Deny))
	})
	t.Run("AllSkip", func(t *testing.T) {
		skip := privacy.ContextQueryMutationRule(func(context.Context) error { return nil })
		p := privacy.Policies{skip, skip}
		require.NoError(t, p.EvalMutation(ctx, &mockMutation{entity: "Fee", op: privacy.OpCreate}))
	})
	t.Run("DecisionContext", func(t *testing.T) {
		p := privacy.Policies{privacy.AlwaysDenyRule()}
		require.NoError(t, p.EvalQuery(privacy.DecisionContext(ctx, privacy.Allow), q))
		assert.Equal(t, ctx, privacy.DecisionContext(ctx, privacy.Skip))
		err := p.EvalQuery(privacy.DecisionContext(ctx, privacy.Denyf("locked")), q)
		assert.True(t, errors.Is(err, privacy.Deny))
	})
}

func TestPolicySplitsQueryAndMutation(t *testing.T) {
	p := privacy.Policy{
		Query:    privacy.QueryPolicy{privacy.AlwaysAllowRule()},
		Mutation: privacy.MutationPolicy{privacy.AlwaysDenyRule()},
	}
	ctx := context.Background()
	assert.True(t, errors.Is(p.EvalQuery(ctx, &mockQuery{}), privacy.Allow))
	assert.True(t, errors.Is(p.EvalMutation(ctx, &mockMutation{op: privacy.OpCreate}), privacy.Deny))
}

func TestMutationOperationRules(t *testing.T) {
	ctx := context.Background()
	deny := privacy.DenyMutationOperationRule(privacy.OpDelete | privacy.OpDeleteOne)
	err := deny.EvalMutation(ctx, &mockMutation{entity: "Tenant", op: privacy.OpDeleteOne})
	require.True(t, errors.Is(err, privacy.Deny))
	assert.Contains(t, err.Error(), "operation OpDeleteOne is not allowed on Tenant")
	assert.True(t, errors.Is(deny.EvalMutation(ctx, &mockMutation{op: privacy.OpUpdate}), privacy.Skip))

	allow := privacy.AllowMutationOperationRule(privacy.OpCreate)
	assert.True(t, errors.Is(allow.EvalMutation(ctx, &mockMutation{op: privacy.OpCreate}), privacy.Allow))
	assert.True(t, errors.Is(allow.EvalMutation(ctx, &mockMutation{op: privacy.OpDelete}), privacy.Skip))
}

func TestFilterFunc(t *testing.T) {
	ctx := context.Background()
	rule := privacy.FilterFunc(func(_ context.Context, f privacy.Filter) error {
		f.Where(querylanguage.FieldEQ("isActive", true))
		return privacy.Skip
	})

	q := &mockQuery{entity: "Student"}
	assert.True(t, errors.Is(rule.EvalQuery(ctx, q), privacy.Skip))
	require.Len(t, q.preds, 1)
	assert.Equal(t, `isActive == true`, q.preds[0].String())

	m := &mockMutation{entity: "Student", op: privacy.OpUpdate}
	assert.True(t, errors.Is(rule.EvalMutation(ctx, m), privacy.Skip))
	assert.Len(t, m.preds, 1)

	create := &mockMutation{entity: "Student", op: privacy.OpCreate}
	assert.True(t, errors.Is(rule.EvalMutation(ctx, create), privacy.Skip))
	assert.Empty(t, create.preds)

	assert.True(t, errors.Is(rule.EvalQuery(ctx, plainQuery{}), privacy.Deny))
}
