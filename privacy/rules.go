package privacy

import (
	"context"
	"fmt"
	"slices"

	"github.com/syssam/scholar/querylanguage"
)

// Viewer represents the principal making a request.
type Viewer interface {
	// GetID returns the viewer's unique identifier.
	GetID() string
	// GetRoles returns the viewer's roles.
	GetRoles() []string
	// GetTenantID returns the viewer's tenant, or "" for system principals.
	GetTenantID() string
}

type viewerCtxKey struct{}

// WithViewer returns a new context with the viewer attached.
func WithViewer(ctx context.Context, viewer Viewer) context.Context {
	return context.WithValue(ctx, viewerCtxKey{}, viewer)
}

// ViewerFromContext retrieves the viewer from the context.
// Returns nil if no viewer is present.
func ViewerFromContext(ctx context.Context) Viewer {
	v, _ := ctx.Value(viewerCtxKey{}).(Viewer)
	return v
}

// TenantFromContext returns the tenant of the context viewer, if any.
func TenantFromContext(ctx context.Context) (string, bool) {
	v := ViewerFromContext(ctx)
	if v == nil || v.GetTenantID() == "" {
		return "", false
	}
	return v.GetTenantID(), true
}

// SimpleViewer is a basic implementation of the Viewer interface.
type SimpleViewer struct {
	UserID   string
	Roles    []string
	TenantID string
}

// GetID returns the user ID.
func (v *SimpleViewer) GetID() string {
	return v.UserID
}

// GetRoles returns the user's roles.
func (v *SimpleViewer) GetRoles() []string {
	return v.Roles
}

// GetTenantID returns the tenant ID.
func (v *SimpleViewer) GetTenantID() string {
	return v.TenantID
}

// DenyIfNoViewer returns a rule that denies access if no viewer is present
// in the context.
//
//	privacy.Policies{
//		privacy.DenyIfNoViewer(),
//		privacy.HasRole("TENANT_ADMIN"),
//		privacy.AlwaysDenyRule(),
//	}
func DenyIfNoViewer() QueryMutationRule {
	return ContextQueryMutationRule(func(ctx context.Context) error {
		if ViewerFromContext(ctx) == nil {
			return Denyf("scholar/privacy: viewer required")
		}
		return Skip
	})
}

// HasRole returns a rule that allows access if the viewer has the
// specified role, and skips otherwise.
func HasRole(role string) QueryMutationRule {
	return HasAnyRole(role)
}

// HasAnyRole returns a rule that allows access if the viewer has any of
// the specified roles, and skips otherwise.
func HasAnyRole(roles ...string) QueryMutationRule {
	return ContextQueryMutationRule(func(ctx context.Context) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		for _, role := range roles {
			if slices.Contains(viewer.GetRoles(), role) {
				return Allow
			}
		}
		return Skip
	})
}

// IsOwner returns a mutation rule that allows the mutation if the value it
// sets for field equals the viewer's ID.
//
//	privacy.MutationPolicy{
//		privacy.IsOwner("senderId"),
//		privacy.AlwaysDenyRule(),
//	}
func IsOwner(field string) MutationRule {
	return MutationRuleFunc(func(ctx context.Context, m Mutation) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		value, ok := m.Field(field)
		if !ok {
			return Skip
		}
		if fmt.Sprint(value) == viewer.GetID() {
			return Allow
		}
		return Skip
	})
}

// TenantRule returns a mutation rule that denies a mutation setting field
// to a tenant other than the viewer's. Mutations that leave the field
// untouched, and viewers without a tenant, are skipped.
func TenantRule(field string) MutationRule {
	return MutationRuleFunc(func(ctx context.Context, m Mutation) error {
		tenant, ok := TenantFromContext(ctx)
		if !ok {
			return Skip
		}
		value, ok := m.Field(field)
		if !ok || value == nil {
			return Skip
		}
		if fmt.Sprint(value) != tenant {
			return Denyf("scholar/privacy: %s %s belongs to another tenant", m.Entity(), field)
		}
		return Skip
	})
}

// TenantQueryRule returns a query rule that denies queries if no viewer
// or tenant is present.
func TenantQueryRule() QueryRule {
	return QueryRuleFunc(func(ctx context.Context, q Query) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Denyf("scholar/privacy: viewer required to query %s", q.Entity())
		}
		if viewer.GetTenantID() == "" {
			return Denyf("scholar/privacy: tenant required to query %s", q.Entity())
		}
		return Skip
	})
}

// TenantFilter returns a rule that restricts queries, updates and deletes
// to the rows of the viewer's tenant by adding "field == tenant" to their
// filter.
func TenantFilter(field string) QueryMutationRule {
	return FilterFunc(func(ctx context.Context, f Filter) error {
		tenant, ok := TenantFromContext(ctx)
		if !ok {
			return Skip
		}
		f.Where(querylanguage.FieldEQ(field, tenant))
		return Skip
	})
}

// TenantPolicy returns the policy the engine installs on every
// tenant-scoped entity: reads and writes are confined to the viewer's
// tenant and writes cannot move a row to another tenant.
func TenantPolicy(field string) QueryMutationRule {
	filter := TenantFilter(field)
	return Policy{
		Query:    QueryPolicy{filter},
		Mutation: MutationPolicy{TenantRule(field), filter},
	}
}
