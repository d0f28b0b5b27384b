// Package sqljson provides predicates over columns holding JSON encoded
// arrays of strings, the storage form of multi-valued fields.
package sqljson

import (
	"encoding/json"

	"github.com/syssam/scholar/dialect"
	"github.com/syssam/scholar/dialect/sql"
)

// ValueContains returns a predicate checking that the JSON array stored in
// column contains v.
func ValueContains(column string, v string) *sql.Predicate {
	return sql.P(func(b *sql.Builder) {
		switch b.Dialect() {
		case dialect.Postgres:
			b.Ident(column).WriteString("::jsonb @> ").Arg(marshal([]string{v})).WriteString("::jsonb")
		case dialect.MySQL:
			b.WriteString("JSON_CONTAINS(").Ident(column).WriteString(", ").Arg(marshal(v)).Byte(')')
		default:
			b.WriteString("EXISTS (SELECT 1 FROM json_each(").Ident(column).WriteString(") WHERE json_each.value = ").Arg(v).Byte(')')
		}
	})
}

// ValueContainsAll returns a predicate checking that the JSON array stored
// in column contains every value of vs. An empty vs always holds.
func ValueContainsAll(column string, vs []string) *sql.Predicate {
	if len(vs) == 0 {
		return sql.True()
	}
	ps := make([]*sql.Predicate, len(vs))
	for i, v := range vs {
		ps[i] = ValueContains(column, v)
	}
	return sql.And(ps...)
}

// ValueContainsAny returns a predicate checking that the JSON array stored
// in column contains at least one value of vs. An empty vs never holds.
func ValueContainsAny(column string, vs []string) *sql.Predicate {
	if len(vs) == 0 {
		return sql.False()
	}
	ps := make([]*sql.Predicate, len(vs))
	for i, v := range vs {
		ps[i] = ValueContains(column, v)
	}
	return sql.Or(ps...)
}

// LenEQ returns a predicate comparing the array length stored in column
// with n. A NULL column counts as an empty array.
func LenEQ(column string, n int) *sql.Predicate {
	return sql.P(func(b *sql.Builder) {
		b.WriteString("COALESCE(")
		switch b.Dialect() {
		case dialect.Postgres:
			b.WriteString("jsonb_array_length(").Ident(column).WriteString("::jsonb)")
		case dialect.MySQL:
			b.WriteString("JSON_LENGTH(").Ident(column).Byte(')')
		default:
			b.WriteString("json_array_length(").Ident(column).Byte(')')
		}
		b.WriteString(", 0) = ").Arg(n)
	})
}

// IsEmpty returns a predicate matching empty (or NULL) arrays when empty is
// true and non-empty arrays otherwise.
func IsEmpty(column string, empty bool) *sql.Predicate {
	if empty {
		return LenEQ(column, 0)
	}
	return sql.Not(LenEQ(column, 0))
}

func marshal(v any) string {
	buf, _ := json.Marshal(v)
	return string(buf)
}
