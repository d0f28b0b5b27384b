package engine

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/scholar/dialect/sql"
	"github.com/syssam/scholar/schema"
)

// Record is one returned entity: its selected scalar fields keyed by
// name, a Record (or nil) per included to-one relation, a []Record per
// included to-many relation and, when requested, a _count Record of
// relation cardinalities. Fields outside the projection are absent.
type Record map[string]any

// mapRow builds the record of one raw row whose values follow fields.
// It does not retain raw.
func mapRow(fields []*schema.Field, raw []any) (Record, error) {
	if len(raw) != len(fields) {
		return nil, fmt.Errorf("scholar: mapping %d values to %d fields", len(raw), len(fields))
	}
	r := make(Record, len(fields))
	for i, f := range fields {
		v, err := decode(f, raw[i])
		if err != nil {
			return nil, fmt.Errorf("scholar: decode %s.%s: %w", f.Entity().Name, f.Name, err)
		}
		r[f.Name] = v
	}
	return r, nil
}

// scanRecord scans the current row of rows, whose columns follow fields.
func scanRecord(rows *sql.Rows, fields []*schema.Field) (Record, error) {
	raw := make([]any, len(fields))
	dest := make([]any, len(fields))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}
	return mapRow(fields, raw)
}

// Decode maps r into a value of type T. Struct fields are matched by
// their msgpack tag, then their json tag, then their name.
//
//	type Student struct {
//		ID        string `json:"id"`
//		FirstName string `json:"firstName"`
//		Fees      []Fee  `json:"fees"`
//	}
//	s, err := engine.Decode[Student](rec)
func Decode[T any](r Record) (T, error) {
	var v T
	buf, err := msgpack.Marshal(map[string]any(r))
	if err != nil {
		return v, fmt.Errorf("scholar: encode record: %w", err)
	}
	dec := msgpack.NewDecoder(bytes.NewReader(buf))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("scholar: decode record into %T: %w", v, err)
	}
	return v, nil
}

// DecodeAll maps every record of rs into a value of type T.
func DecodeAll[T any](rs []Record) ([]T, error) {
	out := make([]T, 0, len(rs))
	for _, r := range rs {
		v, err := Decode[T](r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
