package engine

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/syssam/scholar/querylanguage"
)

// ParseSelection parses a GraphQL selection set into a Projection.
// Leaf fields select scalars, fields with a selection set include
// relations and the _count field lists counted relations. Relation
// fields accept the where, orderBy, cursor, take and skip arguments.
//
//	p, err := engine.ParseSelection(`{
//		id
//		name
//		classes(orderBy: {name: asc}, take: 2) { id name }
//		_count { classes }
//	}`)
//
// The result is resolved against an entity by the operation using it.
func ParseSelection(s string) (Projection, error) {
	doc, err := parser.ParseQuery(&ast.Source{Name: "selection", Input: s})
	if err != nil {
		return Projection{}, fmt.Errorf("scholar: parse selection: %w", err)
	}
	if len(doc.Operations) != 1 || len(doc.Fragments) > 0 {
		return Projection{}, errors.New("scholar: parse selection: expect exactly one selection set")
	}
	return projection(doc.Operations[0].SelectionSet)
}

func projection(set ast.SelectionSet) (Projection, error) {
	var p Projection
	for _, sel := range set {
		f, ok := sel.(*ast.Field)
		if !ok {
			return p, fmt.Errorf("scholar: parse selection: fragments are not supported")
		}
		if f.Alias != "" && f.Alias != f.Name {
			return p, fmt.Errorf("scholar: parse selection: alias %q is not supported", f.Alias)
		}
		switch {
		case f.Name == countKey:
			for _, c := range f.SelectionSet {
				cf, ok := c.(*ast.Field)
				if !ok || len(cf.SelectionSet) > 0 {
					return p, errors.New("scholar: parse selection: _count lists relation names")
				}
				p.Count = append(p.Count, cf.Name)
			}
		case len(f.SelectionSet) == 0:
			if len(f.Arguments) > 0 {
				return p, fmt.Errorf("scholar: parse selection: field %q takes no arguments", f.Name)
			}
			p.Select = append(p.Select, f.Name)
		default:
			inc, err := include(f)
			if err != nil {
				return p, err
			}
			if p.Include == nil {
				p.Include = make(map[string]*Include)
			}
			p.Include[f.Name] = inc
			p.Select = append(p.Select, f.Name)
		}
	}
	return p, nil
}

func include(f *ast.Field) (*Include, error) {
	sub, err := projection(f.SelectionSet)
	if err != nil {
		return nil, err
	}
	inc := &Include{Projection: sub}
	for _, arg := range f.Arguments {
		v, err := argValue(arg.Value)
		if err != nil {
			return nil, fmt.Errorf("scholar: parse selection: %s.%s: %w", f.Name, arg.Name, err)
		}
		switch arg.Name {
		case "take":
			n, ok := v.(int64)
			if !ok {
				return nil, fmt.Errorf("scholar: parse selection: %s.take expects an integer", f.Name)
			}
			inc.Take = Int(int(n))
		case "skip":
			n, ok := v.(int64)
			if !ok {
				return nil, fmt.Errorf("scholar: parse selection: %s.skip expects an integer", f.Name)
			}
			inc.Skip = int(n)
		case "where":
			m, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("scholar: parse selection: %s.where expects an object", f.Name)
			}
			inc.Where = equalities(m)
		case "cursor":
			m, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("scholar: parse selection: %s.cursor expects an object", f.Name)
			}
			inc.Cursor = Unique(m)
		case "orderBy":
			order, err := orderArg(v)
			if err != nil {
				return nil, fmt.Errorf("scholar: parse selection: %s.orderBy: %w", f.Name, err)
			}
			inc.OrderBy = order
		default:
			return nil, fmt.Errorf("scholar: parse selection: unknown argument %q of %s", arg.Name, f.Name)
		}
	}
	return inc, nil
}

// equalities returns the conjunction of field equalities of m, in field
// name order.
func equalities(m map[string]any) querylanguage.P {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	ps := make([]querylanguage.P, 0, len(names))
	for _, name := range names {
		if m[name] == nil {
			ps = append(ps, querylanguage.FieldNil(name))
			continue
		}
		ps = append(ps, querylanguage.FieldEQ(name, m[name]))
	}
	return querylanguage.And(ps...)
}

// orderArg accepts {field: asc|desc} or a list of such objects.
func orderArg(v any) ([]OrderBy, error) {
	objs, ok := v.([]any)
	if !ok {
		objs = []any{v}
	}
	var order []OrderBy
	for _, o := range objs {
		m, ok := o.(map[string]any)
		if !ok || len(m) != 1 {
			return nil, errors.New("expect objects with one field")
		}
		for name, dir := range m {
			switch dir {
			case "asc":
				order = append(order, Asc(name))
			case "desc":
				order = append(order, Desc(name))
			default:
				return nil, fmt.Errorf("unknown direction %v of %q", dir, name)
			}
		}
	}
	return order, nil
}

func argValue(v *ast.Value) (any, error) {
	switch v.Kind {
	case ast.NullValue:
		return nil, nil
	case ast.IntValue:
		return strconv.ParseInt(v.Raw, 10, 64)
	case ast.FloatValue:
		return strconv.ParseFloat(v.Raw, 64)
	case ast.BooleanValue:
		return v.Raw == "true", nil
	case ast.StringValue, ast.BlockValue, ast.EnumValue:
		return v.Raw, nil
	case ast.ListValue:
		list := make([]any, 0, len(v.Children))
		for _, c := range v.Children {
			cv, err := argValue(c.Value)
			if err != nil {
				return nil, err
			}
			list = append(list, cv)
		}
		return list, nil
	case ast.ObjectValue:
		obj := make(map[string]any, len(v.Children))
		for _, c := range v.Children {
			cv, err := argValue(c.Value)
			if err != nil {
				return nil, err
			}
			obj[c.Name] = cv
		}
		return obj, nil
	}
	return nil, fmt.Errorf("unsupported value %s", v.String())
}
