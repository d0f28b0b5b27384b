// Package privacy provides the policy layer the engine evaluates before
// queries and mutations reach the store.
//
// # Rules
//
// Rules return Allow, Deny or Skip, possibly wrapped:
//
//   - Allow: grants access and stops evaluation
//   - Deny: denies access and stops evaluation
//   - Skip: continues to the next rule
//
// If every rule skips, the operation is allowed. A denial reaches the
// caller as a *scholar.PrivacyError.
//
// # Policies
//
// Policies are installed per entity on the engine client:
//
//	client, err := engine.Open(drv, graph,
//		engine.WithPolicy("Fee", privacy.Policy{
//			Mutation: privacy.MutationPolicy{
//				privacy.DenyIfNoViewer(),
//				privacy.HasAnyRole("TENANT_ADMIN", "SYSTEM_ADMIN"),
//				privacy.AlwaysDenyRule(),
//			},
//		}),
//	)
//
// # Tenant scoping
//
// Every entity with a tenant field gets TenantPolicy first. With a viewer
// carrying a tenant in the context, reads, updates and deletes are
// narrowed to that tenant and writes naming another tenant are denied:
//
//	ctx := privacy.WithViewer(ctx, &privacy.SimpleViewer{
//		UserID:   "u-1",
//		Roles:    []string{"TEACHER"},
//		TenantID: "t-1",
//	})
//	students, err := client.Model("Student").FindMany(ctx, engine.FindArgs{})
package privacy
