package querylanguage

import "time"

// StringField is the typed handle of a string field.
//
//	school.Student.LastName.ContainsFold("ov")
type StringField string

// Name returns the field name.
func (f StringField) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals v.
func (f StringField) EQ(v string) P { return FieldEQ(string(f), v) }

// NEQ returns a predicate that checks if the field does not equal v.
func (f StringField) NEQ(v string) P { return FieldNEQ(string(f), v) }

// In returns a predicate that checks if the field value is in vs.
func (f StringField) In(vs ...string) P { return field(string(f), OpIn, list(vs)) }

// NotIn returns a predicate that checks if the field value is not in vs.
func (f StringField) NotIn(vs ...string) P { return field(string(f), OpNotIn, list(vs)) }

// GT returns a predicate that checks if the field sorts after v.
func (f StringField) GT(v string) P { return FieldGT(string(f), v) }

// GTE returns a predicate that checks if the field sorts at or after v.
func (f StringField) GTE(v string) P { return FieldGTE(string(f), v) }

// LT returns a predicate that checks if the field sorts before v.
func (f StringField) LT(v string) P { return FieldLT(string(f), v) }

// LTE returns a predicate that checks if the field sorts at or before v.
func (f StringField) LTE(v string) P { return FieldLTE(string(f), v) }

// Contains returns a predicate that checks if the field contains v.
func (f StringField) Contains(v string) P { return FieldContains(string(f), v) }

// HasPrefix returns a predicate that checks if the field starts with v.
func (f StringField) HasPrefix(v string) P { return FieldHasPrefix(string(f), v) }

// HasSuffix returns a predicate that checks if the field ends with v.
func (f StringField) HasSuffix(v string) P { return FieldHasSuffix(string(f), v) }

// ContainsFold is the case-insensitive Contains.
func (f StringField) ContainsFold(v string) P { return FieldContainsFold(string(f), v) }

// HasPrefixFold is the case-insensitive HasPrefix.
func (f StringField) HasPrefixFold(v string) P { return FieldHasPrefixFold(string(f), v) }

// HasSuffixFold is the case-insensitive HasSuffix.
func (f StringField) HasSuffixFold(v string) P { return FieldHasSuffixFold(string(f), v) }

// EqualFold is the case-insensitive EQ.
func (f StringField) EqualFold(v string) P { return FieldEqualFold(string(f), v) }

// IsNull returns a predicate that checks if the field is null.
func (f StringField) IsNull() P { return FieldNil(string(f)) }

// NotNull returns a predicate that checks if the field is not null.
func (f StringField) NotNull() P { return FieldNotNil(string(f)) }

// Number is the set of Go types accepted by numeric field handles.
type Number interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64
}

// NumberField is the typed handle of an int or float field.
type NumberField[T Number] string

// IntField is the typed handle of an int field.
type IntField = NumberField[int]

// FloatField is the typed handle of a float field.
type FloatField = NumberField[float64]

// Name returns the field name.
func (f NumberField[T]) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals v.
func (f NumberField[T]) EQ(v T) P { return FieldEQ(string(f), v) }

// NEQ returns a predicate that checks if the field does not equal v.
func (f NumberField[T]) NEQ(v T) P { return FieldNEQ(string(f), v) }

// In returns a predicate that checks if the field value is in vs.
func (f NumberField[T]) In(vs ...T) P { return field(string(f), OpIn, list(vs)) }

// NotIn returns a predicate that checks if the field value is not in vs.
func (f NumberField[T]) NotIn(vs ...T) P { return field(string(f), OpNotIn, list(vs)) }

// GT returns a predicate that checks if the field is greater than v.
func (f NumberField[T]) GT(v T) P { return FieldGT(string(f), v) }

// GTE returns a predicate that checks if the field is greater than or equal to v.
func (f NumberField[T]) GTE(v T) P { return FieldGTE(string(f), v) }

// LT returns a predicate that checks if the field is less than v.
func (f NumberField[T]) LT(v T) P { return FieldLT(string(f), v) }

// LTE returns a predicate that checks if the field is less than or equal to v.
func (f NumberField[T]) LTE(v T) P { return FieldLTE(string(f), v) }

// IsNull returns a predicate that checks if the field is null.
func (f NumberField[T]) IsNull() P { return FieldNil(string(f)) }

// NotNull returns a predicate that checks if the field is not null.
func (f NumberField[T]) NotNull() P { return FieldNotNil(string(f)) }

// Sum returns the _sum aggregate of the field.
func (f NumberField[T]) Sum() AggField { return Sum(string(f)) }

// Avg returns the _avg aggregate of the field.
func (f NumberField[T]) Avg() AggField { return Avg(string(f)) }

// BoolField is the typed handle of a bool field.
type BoolField string

// Name returns the field name.
func (f BoolField) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals v.
func (f BoolField) EQ(v bool) P { return FieldEQ(string(f), v) }

// NEQ returns a predicate that checks if the field does not equal v.
func (f BoolField) NEQ(v bool) P { return FieldNEQ(string(f), v) }

// IsNull returns a predicate that checks if the field is null.
func (f BoolField) IsNull() P { return FieldNil(string(f)) }

// NotNull returns a predicate that checks if the field is not null.
func (f BoolField) NotNull() P { return FieldNotNil(string(f)) }

// TimeField is the typed handle of a time field.
type TimeField string

// Name returns the field name.
func (f TimeField) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals v.
func (f TimeField) EQ(v time.Time) P { return FieldEQ(string(f), v) }

// NEQ returns a predicate that checks if the field does not equal v.
func (f TimeField) NEQ(v time.Time) P { return FieldNEQ(string(f), v) }

// In returns a predicate that checks if the field value is in vs.
func (f TimeField) In(vs ...time.Time) P { return field(string(f), OpIn, list(vs)) }

// NotIn returns a predicate that checks if the field value is not in vs.
func (f TimeField) NotIn(vs ...time.Time) P { return field(string(f), OpNotIn, list(vs)) }

// GT returns a predicate that checks if the field is after v.
func (f TimeField) GT(v time.Time) P { return FieldGT(string(f), v) }

// GTE returns a predicate that checks if the field is at or after v.
func (f TimeField) GTE(v time.Time) P { return FieldGTE(string(f), v) }

// LT returns a predicate that checks if the field is before v.
func (f TimeField) LT(v time.Time) P { return FieldLT(string(f), v) }

// LTE returns a predicate that checks if the field is at or before v.
func (f TimeField) LTE(v time.Time) P { return FieldLTE(string(f), v) }

// IsNull returns a predicate that checks if the field is null.
func (f TimeField) IsNull() P { return FieldNil(string(f)) }

// NotNull returns a predicate that checks if the field is not null.
func (f TimeField) NotNull() P { return FieldNotNil(string(f)) }

// EnumField is the typed handle of an enum field whose values are of type T.
type EnumField[T ~string] string

// Name returns the field name.
func (f EnumField[T]) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals v.
func (f EnumField[T]) EQ(v T) P { return FieldEQ(string(f), string(v)) }

// NEQ returns a predicate that checks if the field does not equal v.
func (f EnumField[T]) NEQ(v T) P { return FieldNEQ(string(f), string(v)) }

// In returns a predicate that checks if the field value is in vs.
func (f EnumField[T]) In(vs ...T) P { return field(string(f), OpIn, enumList(vs)) }

// NotIn returns a predicate that checks if the field value is not in vs.
func (f EnumField[T]) NotIn(vs ...T) P { return field(string(f), OpNotIn, enumList(vs)) }

// IsNull returns a predicate that checks if the field is null.
func (f EnumField[T]) IsNull() P { return FieldNil(string(f)) }

// NotNull returns a predicate that checks if the field is not null.
func (f EnumField[T]) NotNull() P { return FieldNotNil(string(f)) }

func enumList[T ~string](vs []T) []any {
	out := make([]any, len(vs))
	for i := range vs {
		out[i] = string(vs[i])
	}
	return out
}

// StringListField is the typed handle of a multi-valued string field.
type StringListField string

// Name returns the field name.
func (f StringListField) Name() string { return string(f) }

// Has returns a predicate that checks if the list contains v.
func (f StringListField) Has(v string) P { return FieldHas(string(f), v) }

// HasEvery returns a predicate that checks if the list contains all of vs.
func (f StringListField) HasEvery(vs ...string) P { return field(string(f), OpHasEvery, list(vs)) }

// HasSome returns a predicate that checks if the list contains any of vs.
func (f StringListField) HasSome(vs ...string) P { return field(string(f), OpHasSome, list(vs)) }

// IsEmpty returns a predicate on the emptiness of the list.
func (f StringListField) IsEmpty(empty bool) P { return FieldIsEmpty(string(f), empty) }

// IsNull returns a predicate that checks if the field is null.
func (f StringListField) IsNull() P { return FieldNil(string(f)) }

// NotNull returns a predicate that checks if the field is not null.
func (f StringListField) NotNull() P { return FieldNotNil(string(f)) }

// JSONField is the typed handle of a JSON document field.
type JSONField string

// Name returns the field name.
func (f JSONField) Name() string { return string(f) }

// IsNull returns a predicate that checks if the field is null.
func (f JSONField) IsNull() P { return FieldNil(string(f)) }

// NotNull returns a predicate that checks if the field is not null.
func (f JSONField) NotNull() P { return FieldNotNil(string(f)) }

// ManyEdge is the typed handle of a to-many relation.
type ManyEdge string

// Name returns the relation name.
func (e ManyEdge) Name() string { return string(e) }

// Some matches records with at least one related record satisfying ps.
func (e ManyEdge) Some(ps ...P) P { return HasSome(string(e), ps...) }

// Every matches records whose related records all satisfy ps.
func (e ManyEdge) Every(ps ...P) P { return HasEvery(string(e), ps...) }

// None matches records with no related record satisfying ps.
func (e ManyEdge) None(ps ...P) P { return HasNone(string(e), ps...) }

// OneEdge is the typed handle of a to-one relation.
type OneEdge string

// Name returns the relation name.
func (e OneEdge) Name() string { return string(e) }

// Is matches records whose related record exists and satisfies ps.
func (e OneEdge) Is(ps ...P) P { return HasIs(string(e), ps...) }

// IsNot matches records whose related record is absent or fails ps.
func (e OneEdge) IsNot(ps ...P) P { return HasIsNot(string(e), ps...) }
