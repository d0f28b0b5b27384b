package privacy_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/scholar/privacy"
)

func TestViewerContext(t *testing.T) {
	viewer := &privacy.SimpleViewer{UserID: "u-1", Roles: []string{"TEACHER"}, TenantID: "t-1"}
	ctx := privacy.WithViewer(context.Background(), viewer)

	got := privacy.ViewerFromContext(ctx)
	require.NotNil(t, got)
	assert.Equal(t, "u-1", got.GetID())
	assert.Equal(t, []string{"TEACHER"}, got.GetRoles())

	tenant, ok := privacy.TenantFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "t-1", tenant)

	assert.Nil(t, privacy.ViewerFromContext(context.Background()))
	_, ok = privacy.TenantFromContext(privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: "root"}))
	assert.False(t, ok)
}

func TestDenyIfNoViewer(t *testing.T) {
	rule := privacy.DenyIfNoViewer()
	assert.True(t, errors.Is(rule.EvalQuery(context.Background(), &mockQuery{}), privacy.Deny))

	ctx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: "u-1"})
	assert.True(t, errors.Is(rule.EvalMutation(ctx, &mockMutation{op: privacy.OpCreate}), privacy.Skip))
}

func TestHasAnyRole(t *testing.T) {
	tests := []struct {
		name   string
		roles  []string
		viewer *privacy.SimpleViewer
		want   error
	}{
		{
			name:   "Match",
			roles:  []string{"TENANT_ADMIN", "SYSTEM_ADMIN"},
			viewer: &privacy.SimpleViewer{Roles: []string{"SYSTEM_ADMIN"}},
			want:   privacy.Allow,
		},
		{
			name:   "NoMatch",
			roles:  []string{"TENANT_ADMIN"},
			viewer: &privacy.SimpleViewer{Roles: []string{"GUARDIAN"}},
			want:   privacy.Skip,
		},
		{
			name:  "NoViewer",
			roles: []string{"TENANT_ADMIN"},
			want:  privacy.Skip,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.viewer != nil {
				ctx = privacy.WithViewer(ctx, tt.viewer)
			}
			rule := privacy.HasAnyRole(tt.roles...)
			assert.True(t, errors.Is(rule.EvalQuery(ctx, &mockQuery{}), tt.want))
			if len(tt.roles) == 1 {
				assert.True(t, errors.Is(privacy.HasRole(tt.roles[0]).EvalQuery(ctx, &mockQuery{}), tt.want))
			}
		})
	}
}

func TestIsOwner(t *testing.T) {
	ctx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: "u-1"})
	rule := privacy.IsOwner("senderId")

	m := &mockMutation{entity: "Communication", op: privacy.OpCreate, fields: map[string]any{"senderId": "u-1"}}
	assert.True(t, errors.Is(rule.EvalMutation(ctx, m), privacy.Allow))

	m.fields["senderId"] = "u-2"
	assert.True(t, errors.Is(rule.EvalMutation(ctx, m), privacy.Skip))

	assert.True(t, errors.Is(rule.EvalMutation(ctx, &mockMutation{op: privacy.OpCreate}), privacy.Skip))
	assert.True(t, errors.Is(rule.EvalMutation(context.Background(), m), privacy.Skip))
}

func TestTenantRule(t *testing.T) {
	ctx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: "u-1", TenantID: "t-1"})
	rule := privacy.TenantRule("tenantId")

	tests := []struct {
		name   string
		fields map[string]any
		want   error
	}{
		{name: "SameTenant", fields: map[string]any{"tenantId": "t-1"}, want: privacy.Skip},
		{name: "OtherTenant", fields: map[string]any{"tenantId": "t-2"}, want: privacy.Deny},
		{name: "Untouched", fields: map[string]any{"firstName": "Ada"}, want: privacy.Skip},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockMutation{entity: "Student", op: privacy.OpCreate, fields: tt.fields}
			assert.True(t, errors.Is(rule.EvalMutation(ctx, m), tt.want))
		})
	}

	m := &mockMutation{entity: "Student", op: privacy.OpCreate, fields: map[string]any{"tenantId": "t-2"}}
	assert.True(t, errors.Is(rule.EvalMutation(context.Background(), m), privacy.Skip))
}

func TestTenantQueryRule(t *testing.T) {
	rule := privacy.TenantQueryRule()
	q := &mockQuery{entity: "Fee"}

	err := rule.EvalQuery(context.Background(), q)
	require.True(t, errors.Is(err, privacy.Deny))
	assert.Contains(t, err.Error(), "viewer required to query Fee")

	ctx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: "root"})
	err = rule.EvalQuery(ctx, q)
	require.True(t, errors.Is(err, privacy.Deny))
	assert.Contains(t, err.Error(), "tenant required")

	ctx = privacy.WithViewer(context.Background(), &privacy.SimpleViewer{TenantID: "t-1"})
	assert.True(t, errors.Is(rule.EvalQuery(ctx, q), privacy.Skip))
}

func TestTenantPolicy(t *testing.T) {
	policy := privacy.Policies{privacy.TenantPolicy("tenantId")}
	ctx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: "u-1", TenantID: "t-1"})

	q := &mockQuery{entity: "Student"}
	require.NoError(t, policy.EvalQuery(ctx, q))
	require.Len(t, q.preds, 1)
	assert.Equal(t, `tenantId == "t-1"`, q.preds[0].String())

	m := &mockMutation{entity: "Student", op: privacy.OpUpdateOne, fields: map[string]any{"lastName": "Hopper"}}
	require.NoError(t, policy.EvalMutation(ctx, m))
	assert.Len(t, m.preds, 1)

	m = &mockMutation{entity: "Student", op: privacy.OpUpdate, fields: map[string]any{"tenantId": "t-2"}}
	assert.True(t, errors.Is(policy.EvalMutation(ctx, m), privacy.Deny))
	assert.Empty(t, m.preds)

	q = &mockQuery{entity: "Student"}
	require.NoError(t, policy.EvalQuery(context.Background(), q))
	assert.Empty(t, q.preds)
}
