// Package engine runs tenant-scoped queries and mutations over the
// entities of a schema graph.
//
// A Client is opened on a driver and a graph. Operations are grouped per
// entity in a Delegate, obtained by name or through a generated handle:
//
//	client, err := engine.Open(drv, school.MustGraph())
//	if err != nil {
//		return err
//	}
//	ctx = privacy.WithViewer(ctx, &privacy.SimpleViewer{UserID: uid, TenantID: tid})
//	students, err := client.For(school.Student).FindMany(ctx, engine.FindArgs{
//		Where:   school.Student.Fees.Some(school.Fee.Status.EQ(school.FeeStatusOverdue)),
//		OrderBy: []engine.OrderBy{engine.Asc("lastName")},
//		Take:    engine.Int(20),
//		Projection: engine.Projection{
//			Include: map[string]*engine.Include{"fees": {Take: engine.Int(3)}},
//		},
//	})
//
// Every entity owned by a tenant is confined to the tenant of the viewer
// found in the context: reads and writes only reach its rows, and writes
// cannot reference rows of another tenant. Without a viewer no tenant
// filter applies.
//
// Records are maps keyed by field name. Relations are nested under their
// relation name and relation counts under _count. Decode converts them to
// typed structs.
//
// Errors are classified by scholar.KindOf. Validation errors are reported
// before any statement reaches the store.
package engine
