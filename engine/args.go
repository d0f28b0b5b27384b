package engine

import (
	"github.com/syssam/scholar/querylanguage"
)

// All is the _count key that counts rows instead of non-null values.
const All = "_all"

// Data holds the field values of a create or update, keyed by field name.
// Update values may be a NumberOp.
type Data map[string]any

// Unique is a filter on one unique field set of an entity: the primary
// key, a unique field or every field of a compound unique constraint.
type Unique map[string]any

// OrderBy is one ordering term. Agg orders groupBy results by an
// aggregate of Field.
type OrderBy struct {
	Field string
	Desc  bool
	Agg   querylanguage.AggFunc
}

// Asc returns an ascending ordering term.
func Asc(field string) OrderBy { return OrderBy{Field: field} }

// Desc returns a descending ordering term.
func Desc(field string) OrderBy { return OrderBy{Field: field, Desc: true} }

// Int returns a pointer to n, for the Take and Limit options.
func Int(n int) *int { return &n }

// Projection describes the shape of the returned records.
//
// Select and Omit are mutually exclusive. Without Select every scalar
// field is returned and no relation. Select may name relations, which are
// then included with their default projection.
type Projection struct {
	Select  []string
	Omit    []string
	Include map[string]*Include
	// Count lists to-many relations whose cardinality is returned under
	// the _count key.
	Count []string
}

// Include is the sub-selection of a relation. Filtering and pagination
// options apply to to-many relations only. A nil *Include includes the
// relation with its default projection.
type Include struct {
	Where   querylanguage.P
	OrderBy []OrderBy
	Cursor  Unique
	Take    *int
	Skip    int
	Projection
}

// FindArgs are the options of FindMany and FindFirst.
type FindArgs struct {
	Where querylanguage.P
	Projection
	OrderBy []OrderBy
	// Cursor starts the page at the identified record, inclusive.
	Cursor Unique
	// Take limits the page size. A negative Take pages backwards from the
	// cursor, or from the end.
	Take *int
	Skip int
	// Distinct drops records repeating the values of these fields. It is
	// applied before Skip and Take.
	Distinct []string
}

// FindUniqueArgs are the options of FindUnique.
type FindUniqueArgs struct {
	Where Unique
	Projection
}

// CreateArgs are the options of Create.
type CreateArgs struct {
	Data Data
	Projection
}

// CreateManyArgs are the options of CreateMany.
type CreateManyArgs struct {
	Data []Data
	// SkipDuplicates silently drops rows violating a unique constraint
	// instead of failing the whole batch.
	SkipDuplicates bool
}

// UpdateArgs are the options of Update.
type UpdateArgs struct {
	Where Unique
	Data  Data
	Projection
}

// UpdateManyArgs are the options of UpdateMany.
type UpdateManyArgs struct {
	Where querylanguage.P
	Data  Data
}

// UpsertArgs are the options of Upsert. Create is completed with the
// values of Where it does not set.
type UpsertArgs struct {
	Where  Unique
	Create Data
	Update Data
	Projection
}

// DeleteArgs are the options of Delete.
type DeleteArgs struct {
	Where Unique
	Projection
}

// DeleteManyArgs are the options of DeleteMany.
type DeleteManyArgs struct {
	Where querylanguage.P
	// Limit bounds the number of deleted rows.
	Limit *int
}

// Aggregates selects the aggregate buckets of Aggregate and GroupBy.
type Aggregates struct {
	// Count lists fields whose non-null values are counted; All counts rows.
	Count []string
	Sum   []string
	Avg   []string
	Min   []string
	Max   []string
}

// AggregateArgs are the options of Aggregate.
type AggregateArgs struct {
	Where   querylanguage.P
	OrderBy []OrderBy
	Cursor  Unique
	Take    *int
	Skip    int
	Aggregates
}

// GroupByArgs are the options of GroupBy.
type GroupByArgs struct {
	By    []string
	Where querylanguage.P
	// Having filters groups. Scalar comparisons must name fields of By;
	// aggregate comparisons are built with querylanguage.AggField.
	Having  querylanguage.P
	OrderBy []OrderBy
	Take    *int
	Skip    int
	Aggregates
}

// CountArgs are the options of Count.
type CountArgs struct {
	Where   querylanguage.P
	OrderBy []OrderBy
	Cursor  Unique
	Take    *int
	Skip    int
}

// NumberOp is an atomic arithmetic update of a numeric field.
type NumberOp struct {
	op    string
	value any
}

// Increment adds v to the field.
func Increment(v any) NumberOp { return NumberOp{op: "+", value: v} }

// Decrement subtracts v from the field.
func Decrement(v any) NumberOp { return NumberOp{op: "-", value: v} }

// Multiply multiplies the field by v.
func Multiply(v any) NumberOp { return NumberOp{op: "*", value: v} }

// Divide divides the field by v.
func Divide(v any) NumberOp { return NumberOp{op: "/", value: v} }

// Set assigns v to the field.
func Set(v any) NumberOp { return NumberOp{op: "=", value: v} }
