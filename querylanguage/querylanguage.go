// Package querylanguage defines the predicate tree accepted by the engine's
// Filter Compiler, and the typed field handles used to build it.
//
// A predicate is one of four sealed node kinds:
//
//	*FieldP  field <op> value, e.g. grade > 3 or contains(lastName, "ov")
//	*NaryP   conjunction or disjunction of predicates
//	*NotP    negation of a predicate
//	*EdgeP   relation quantifier, e.g. some(fees, status == "OVERDUE")
//
// Nil values and nil sub-trees mean "not specified" and are ignored by the
// compiler. Every node renders a readable form through String:
//
//	grade > 3 && contains_fold(lastName, "ov")
package querylanguage

import (
	"encoding/json"
	"fmt"
	"strings"
)

// P is a predicate node. The set of implementations is closed.
type P interface {
	fmt.Stringer
	// Negate returns the negation of the predicate.
	Negate() P
	node()
}

// Op is a field comparison operator.
type Op int

// Field operators.
const (
	OpEQ Op = iota + 1
	OpNEQ
	OpGT
	OpGTE
	OpLT
	OpLTE
	OpIn
	OpNotIn
	OpContains
	OpHasPrefix
	OpHasSuffix
	OpIsNull
	OpNotNull
	OpHas
	OpHasEvery
	OpHasSome
	OpIsEmpty
)

var opNames = map[Op]string{
	OpEQ:        "==",
	OpNEQ:       "!=",
	OpGT:        ">",
	OpGTE:       ">=",
	OpLT:        "<",
	OpLTE:       "<=",
	OpIn:        "in",
	OpNotIn:     "not in",
	OpContains:  "contains",
	OpHasPrefix: "has_prefix",
	OpHasSuffix: "has_suffix",
	OpIsNull:    "is_null",
	OpNotNull:   "not_null",
	OpHas:       "has",
	OpHasEvery:  "has_every",
	OpHasSome:   "has_some",
	OpIsEmpty:   "is_empty",
}

// String returns the operator name.
func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// IsString reports whether o only applies to string fields.
func (o Op) IsString() bool {
	return o == OpContains || o == OpHasPrefix || o == OpHasSuffix
}

// IsList reports whether o only applies to multi-valued fields.
func (o Op) IsList() bool {
	return o == OpHas || o == OpHasEvery || o == OpHasSome || o == OpIsEmpty
}

// IsOrdered reports whether o is a range comparison.
func (o Op) IsOrdered() bool {
	return o == OpGT || o == OpGTE || o == OpLT || o == OpLTE
}

// Mode selects case sensitivity of string comparisons.
type Mode int

// Comparison modes.
const (
	ModeDefault Mode = iota
	ModeInsensitive
)

// AggFunc names an aggregate function.
type AggFunc string

// Aggregate functions.
const (
	AggCount AggFunc = "_count"
	AggSum   AggFunc = "_sum"
	AggAvg   AggFunc = "_avg"
	AggMin   AggFunc = "_min"
	AggMax   AggFunc = "_max"
)

// FieldP compares a field with a value. Agg is set when the comparison
// applies to an aggregate of the field, as in groupBy having clauses.
type FieldP struct {
	Field string
	Agg   AggFunc
	Op    Op
	Mode  Mode
	// Value holds a single value, a []any for In/NotIn/HasEvery/HasSome,
	// or a bool for IsEmpty. It is unused by IsNull and NotNull.
	Value any
}

// NaryOp is the operator of a NaryP.
type NaryOp int

// Nary operators.
const (
	OpAnd NaryOp = iota + 1
	OpOr
)

// NaryP combines predicates. An empty And matches every record, an empty
// Or matches none.
type NaryP struct {
	Op NaryOp
	Ps []P
}

// NotP negates a predicate.
type NotP struct {
	P P
}

// Quantifier is the quantifier of a relation filter.
type Quantifier int

// Relation quantifiers. Some, Every and None apply to to-many relations,
// Is and IsNot to to-one relations.
const (
	Some Quantifier = iota + 1
	Every
	None
	Is
	IsNot
)

var quantNames = map[Quantifier]string{
	Some:  "some",
	Every: "every",
	None:  "none",
	Is:    "is",
	IsNot: "is_not",
}

// String returns the quantifier name.
func (q Quantifier) String() string {
	if s, ok := quantNames[q]; ok {
		return s
	}
	return fmt.Sprintf("Quantifier(%d)", int(q))
}

// ToMany reports whether q applies to to-many relations.
func (q Quantifier) ToMany() bool {
	return q == Some || q == Every || q == None
}

// EdgeP filters records by a predicate over a related entity. A nil P
// tests for the existence (or absence) of any related record.
type EdgeP struct {
	Edge  string
	Quant Quantifier
	P     P
}

func (*FieldP) node() {}
func (*NaryP) node()  {}
func (*NotP) node()   {}
func (*EdgeP) node()  {}

// Negate returns the negation of the predicate.
func (p *FieldP) Negate() P { return Not(p) }

// Negate returns the negation of the predicate.
func (p *NaryP) Negate() P { return Not(p) }

// Negate returns the negation of the predicate.
func (p *NotP) Negate() P { return Not(p) }

// Negate returns the negation of the predicate.
func (p *EdgeP) Negate() P { return Not(p) }

// String implements fmt.Stringer.
func (p *FieldP) String() string {
	name := p.Field
	if p.Agg != "" {
		name = fmt.Sprintf("%s(%s)", p.Agg, p.Field)
	}
	switch p.Op {
	case OpIsNull:
		return name + " == nil"
	case OpNotNull:
		return name + " != nil"
	case OpEQ:
		if p.Mode == ModeInsensitive {
			return fmt.Sprintf("equal_fold(%s, %s)", name, formatValue(p.Value))
		}
		fallthrough
	case OpNEQ, OpGT, OpGTE, OpLT, OpLTE, OpIn, OpNotIn:
		return fmt.Sprintf("%s %s %s", name, p.Op, formatValue(p.Value))
	case OpContains, OpHasPrefix, OpHasSuffix:
		fn := p.Op.String()
		if p.Mode == ModeInsensitive {
			fn += "_fold"
		}
		return fmt.Sprintf("%s(%s, %s)", fn, name, formatValue(p.Value))
	default:
		return fmt.Sprintf("%s(%s, %s)", p.Op, name, formatValue(p.Value))
	}
}

// String implements fmt.Stringer.
func (p *NaryP) String() string {
	var parts []string
	for _, c := range p.Ps {
		if c == nil {
			continue
		}
		s := c.String()
		if n, ok := c.(*NaryP); ok && len(n.nonNil()) == 2 {
			s = "(" + s + ")"
		}
		parts = append(parts, s)
	}
	sep := " && "
	if p.Op == OpOr {
		sep = " || "
	}
	switch len(parts) {
	case 0:
		if p.Op == OpOr {
			return "false"
		}
		return "true"
	case 1, 2:
		return strings.Join(parts, sep)
	default:
		return "(" + strings.Join(parts, sep) + ")"
	}
}

func (p *NaryP) nonNil() []P {
	ps := make([]P, 0, len(p.Ps))
	for _, c := range p.Ps {
		if c != nil {
			ps = append(ps, c)
		}
	}
	return ps
}

// String implements fmt.Stringer.
func (p *NotP) String() string {
	if p.P == nil {
		return "!(true)"
	}
	return "!(" + p.P.String() + ")"
}

// String implements fmt.Stringer.
func (p *EdgeP) String() string {
	if p.P == nil {
		return fmt.Sprintf("%s(%s)", p.Quant, p.Edge)
	}
	return fmt.Sprintf("%s(%s, %s)", p.Quant, p.Edge, p.P)
}

// formatValue renders v as a JSON literal.
func formatValue(v any) string {
	if v == nil {
		return "nil"
	}
	buf, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(buf)
}

// And returns a conjunction of the given predicates.
func And(ps ...P) P { return &NaryP{Op: OpAnd, Ps: ps} }

// Or returns a disjunction of the given predicates.
func Or(ps ...P) P { return &NaryP{Op: OpOr, Ps: ps} }

// Not returns the negation of p.
func Not(p P) P { return &NotP{P: p} }

func field(name string, op Op, v any) P {
	return &FieldP{Field: name, Op: op, Value: v}
}

func fold(name string, op Op, v string) P {
	return &FieldP{Field: name, Op: op, Mode: ModeInsensitive, Value: v}
}

func list[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i := range vs {
		out[i] = vs[i]
	}
	return out
}

// FieldEQ returns a "name == v" predicate.
func FieldEQ(name string, v any) P { return field(name, OpEQ, v) }

// FieldNEQ returns a "name != v" predicate.
func FieldNEQ(name string, v any) P { return field(name, OpNEQ, v) }

// FieldGT returns a "name > v" predicate.
func FieldGT(name string, v any) P { return field(name, OpGT, v) }

// FieldGTE returns a "name >= v" predicate.
func FieldGTE(name string, v any) P { return field(name, OpGTE, v) }

// FieldLT returns a "name < v" predicate.
func FieldLT(name string, v any) P { return field(name, OpLT, v) }

// FieldLTE returns a "name <= v" predicate.
func FieldLTE(name string, v any) P { return field(name, OpLTE, v) }

// FieldIn returns a "name in [vs]" predicate.
func FieldIn(name string, vs ...any) P { return field(name, OpIn, vs) }

// FieldNotIn returns a "name not in [vs]" predicate.
func FieldNotIn(name string, vs ...any) P { return field(name, OpNotIn, vs) }

// FieldContains returns a substring predicate.
func FieldContains(name, v string) P { return field(name, OpContains, v) }

// FieldHasPrefix returns a prefix predicate.
func FieldHasPrefix(name, v string) P { return field(name, OpHasPrefix, v) }

// FieldHasSuffix returns a suffix predicate.
func FieldHasSuffix(name, v string) P { return field(name, OpHasSuffix, v) }

// FieldContainsFold returns a case-insensitive substring predicate.
func FieldContainsFold(name, v string) P { return fold(name, OpContains, v) }

// FieldHasPrefixFold returns a case-insensitive prefix predicate.
func FieldHasPrefixFold(name, v string) P { return fold(name, OpHasPrefix, v) }

// FieldHasSuffixFold returns a case-insensitive suffix predicate.
func FieldHasSuffixFold(name, v string) P { return fold(name, OpHasSuffix, v) }

// FieldEqualFold returns a case-insensitive equality predicate.
func FieldEqualFold(name, v string) P { return fold(name, OpEQ, v) }

// FieldNil returns a "name == nil" predicate.
func FieldNil(name string) P { return &FieldP{Field: name, Op: OpIsNull} }

// FieldNotNil returns a "name != nil" predicate.
func FieldNotNil(name string) P { return &FieldP{Field: name, Op: OpNotNull} }

// FieldHas returns a predicate matching lists that contain v.
func FieldHas(name string, v any) P { return field(name, OpHas, v) }

// FieldHasEvery returns a predicate matching lists that contain all of vs.
func FieldHasEvery(name string, vs ...any) P { return field(name, OpHasEvery, vs) }

// FieldHasSome returns a predicate matching lists that contain any of vs.
func FieldHasSome(name string, vs ...any) P { return field(name, OpHasSome, vs) }

// FieldIsEmpty returns a predicate matching empty lists when empty is true
// and non-empty lists otherwise.
func FieldIsEmpty(name string, empty bool) P { return field(name, OpIsEmpty, empty) }

func edge(name string, q Quantifier, ps []P) P {
	e := &EdgeP{Edge: name, Quant: q}
	switch len(ps) {
	case 0:
	case 1:
		e.P = ps[0]
	default:
		e.P = And(ps...)
	}
	return e
}

// HasSome returns a predicate matching records with at least one related
// record satisfying all of ps.
func HasSome(name string, ps ...P) P { return edge(name, Some, ps) }

// HasEvery returns a predicate matching records whose related records all
// satisfy ps. Records without related records match.
func HasEvery(name string, ps ...P) P { return edge(name, Every, ps) }

// HasNone returns a predicate matching records with no related record
// satisfying ps.
func HasNone(name string, ps ...P) P { return edge(name, None, ps) }

// HasIs returns a predicate matching records whose to-one related record
// exists and satisfies ps.
func HasIs(name string, ps ...P) P { return edge(name, Is, ps) }

// HasIsNot returns a predicate matching records whose to-one related record
// is absent or does not satisfy ps.
func HasIsNot(name string, ps ...P) P { return edge(name, IsNot, ps) }

// AggField is an aggregate of a field, used in groupBy having clauses.
type AggField struct {
	Func  AggFunc
	Field string
}

// Agg returns the aggregate fn of the named field. Use "_all" with
// AggCount to count rows.
func Agg(fn AggFunc, name string) AggField { return AggField{Func: fn, Field: name} }

// Count returns the _count aggregate of the named field.
func Count(name string) AggField { return Agg(AggCount, name) }

// Sum returns the _sum aggregate of the named field.
func Sum(name string) AggField { return Agg(AggSum, name) }

// Avg returns the _avg aggregate of the named field.
func Avg(name string) AggField { return Agg(AggAvg, name) }

// Min returns the _min aggregate of the named field.
func Min(name string) AggField { return Agg(AggMin, name) }

// Max returns the _max aggregate of the named field.
func Max(name string) AggField { return Agg(AggMax, name) }

func (a AggField) cmp(op Op, v any) P {
	return &FieldP{Field: a.Field, Agg: a.Func, Op: op, Value: v}
}

// EQ returns an "agg == v" predicate.
func (a AggField) EQ(v any) P { return a.cmp(OpEQ, v) }

// NEQ returns an "agg != v" predicate.
func (a AggField) NEQ(v any) P { return a.cmp(OpNEQ, v) }

// GT returns an "agg > v" predicate.
func (a AggField) GT(v any) P { return a.cmp(OpGT, v) }

// GTE returns an "agg >= v" predicate.
func (a AggField) GTE(v any) P { return a.cmp(OpGTE, v) }

// LT returns an "agg < v" predicate.
func (a AggField) LT(v any) P { return a.cmp(OpLT, v) }

// LTE returns an "agg <= v" predicate.
func (a AggField) LTE(v any) P { return a.cmp(OpLTE, v) }
