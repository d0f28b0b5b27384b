// Package gen generates the typed field handles of a schema graph.
//
// For every entity the generator emits a <Entity>Fields struct holding one
// querylanguage handle per field and relation, a package-level value of
// that struct named after the entity, and a string type with constants for
// each enum field:
//
//	type FeeStatus string
//
//	const (
//		FeeStatusPending FeeStatus = "PENDING"
//		...
//	)
//
//	var Fee = FeeFields{Amount: "amount", Status: "status", ...}
//
// so filters are checked by the compiler:
//
//	school.Fee.Status.EQ(school.FeeStatusOverdue)
//
// Generation is driven by Run, or by Watch to regenerate whenever the
// schema description changes.
package gen
