package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/syssam/scholar/schema"
)

// timeLayouts are the textual time forms accepted from callers and
// stores that return times as text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// encode converts a caller value for f into its storage form.
func encode(f *schema.Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Type {
	case schema.TypeString:
		s, ok := asString(v)
		if !ok {
			return nil, typeError(f, v)
		}
		return s, nil
	case schema.TypeEnum:
		s, ok := asString(v)
		if !ok {
			return nil, typeError(f, v)
		}
		if !f.HasValue(s) {
			return nil, fmt.Errorf("%q is not one of %s", s, strings.Join(f.Values, ", "))
		}
		return s, nil
	case schema.TypeInt:
		n, ok := asInt(v)
		if !ok {
			return nil, typeError(f, v)
		}
		return n, nil
	case schema.TypeFloat:
		n, ok := asFloat(v)
		if !ok {
			return nil, typeError(f, v)
		}
		return n, nil
	case schema.TypeBool:
		b, ok := v.(bool)
		if !ok {
			return nil, typeError(f, v)
		}
		return b, nil
	case schema.TypeTime:
		t, ok := asTime(v)
		if !ok {
			return nil, typeError(f, v)
		}
		return t, nil
	case schema.TypeStringList:
		vs, ok := asStrings(v)
		if !ok {
			return nil, typeError(f, v)
		}
		buf, err := json.Marshal(vs)
		if err != nil {
			return nil, err
		}
		return string(buf), nil
	case schema.TypeJSON:
		switch v := v.(type) {
		case json.RawMessage:
			return string(v), nil
		default:
			buf, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encode json: %w", err)
			}
			return string(buf), nil
		}
	}
	return nil, fmt.Errorf("unsupported field type %s", f.Type)
}

func typeError(f *schema.Field, v any) error {
	return fmt.Errorf("expect %s value, got %T", f.Type, v)
}

func asString(v any) (string, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.String {
		return "", false
	}
	return rv.String(), true
}

func asInt(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) {
			return 0, false
		}
		return int64(f), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func asTime(v any) (time.Time, bool) {
	switch v := v.(type) {
	case time.Time:
		return v.UTC(), true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return v.UTC(), true
	case string:
		return parseTime(v)
	}
	return time.Time{}, false
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func asStrings(v any) ([]string, bool) {
	switch v := v.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, len(v))
		for i := range v {
			s, ok := asString(v[i])
			if !ok {
				return nil, false
			}
			out[i] = s
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() != reflect.String {
		return nil, false
	}
	out := make([]string, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).String()
	}
	return out, true
}

// asList returns the elements of a slice value.
func asList(v any) ([]any, bool) {
	if vs, ok := v.([]any); ok {
		return vs, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// decode normalizes a value read from the store for f: strings, int64,
// float64, bool, UTC time.Time, []string and decoded JSON documents.
func decode(f *schema.Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	switch f.Type {
	case schema.TypeString, schema.TypeEnum:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	case schema.TypeInt:
		return toInt64(v)
	case schema.TypeFloat:
		return toFloat64(v)
	case schema.TypeBool:
		switch v := v.(type) {
		case bool:
			return v, nil
		case int64:
			return v != 0, nil
		case string:
			return strconv.ParseBool(v)
		}
	case schema.TypeTime:
		switch v := v.(type) {
		case time.Time:
			return v.UTC(), nil
		case string:
			if t, ok := parseTime(v); ok {
				return t, nil
			}
			return nil, fmt.Errorf("parse time %q", v)
		}
	case schema.TypeStringList:
		s, ok := v.(string)
		if !ok {
			break
		}
		var vs []string
		if err := json.Unmarshal([]byte(s), &vs); err != nil {
			return nil, err
		}
		if vs == nil {
			vs = []string{}
		}
		return vs, nil
	case schema.TypeJSON:
		s, ok := v.(string)
		if !ok {
			return v, nil
		}
		var doc any
		if err := json.Unmarshal([]byte(s), &doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	return nil, fmt.Errorf("unexpected %T for %s field %s", v, f.Type, f.Name)
}

func toInt64(v any) (int64, error) {
	switch v := v.(type) {
	case int64:
		return v, nil
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, err
		}
		return int64(f), nil
	}
	if n, ok := asInt(v); ok {
		return n, nil
	}
	if f, ok := asFloat(v); ok {
		return int64(f), nil
	}
	return 0, fmt.Errorf("unexpected %T for int value", v)
}

func toFloat64(v any) (float64, error) {
	switch v := v.(type) {
	case float64:
		return v, nil
	case string:
		return strconv.ParseFloat(v, 64)
	}
	if f, ok := asFloat(v); ok {
		return f, nil
	}
	return 0, errors.New("unexpected non-numeric value")
}
