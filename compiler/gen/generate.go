package gen

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/dave/jennifer/jen"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"

	"github.com/syssam/scholar/schema"
)

const qlPkg = "github.com/syssam/scholar/querylanguage"

// Config configures a generation run.
type Config struct {
	// Schema is the path of the YAML graph description.
	Schema string
	// Target is the path of the generated Go file.
	Target string
	// Package is the package name of the generated file. Defaults to the
	// name of the Target directory.
	Package string
	// Workers bounds the entities rendered in parallel.
	Workers int
}

func (c Config) validate() error {
	switch {
	case c.Schema == "":
		return &ConfigError{Option: "Schema", Message: "missing schema path"}
	case c.Target == "":
		return &ConfigError{Option: "Target", Message: "missing target file"}
	case filepath.Ext(c.Target) != ".go":
		return &ConfigError{Option: "Target", Value: c.Target, Message: "target must be a .go file"}
	}
	return nil
}

func (c Config) pkg() string {
	if c.Package != "" {
		return c.Package
	}
	abs, err := filepath.Abs(c.Target)
	if err != nil {
		return filepath.Base(filepath.Dir(c.Target))
	}
	return filepath.Base(filepath.Dir(abs))
}

// Run loads the schema and writes the handles file.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	g, err := schema.Load(cfg.Schema)
	if err != nil {
		return &SchemaError{Message: "load " + cfg.Schema, Cause: err}
	}
	src, err := Generate(ctx, g, cfg.pkg(), cfg.Workers)
	if err != nil {
		return err
	}
	formatted, err := imports.Process(cfg.Target, src, nil)
	if err != nil {
		return fmt.Errorf("scholar/gen: format %s: %w", cfg.Target, err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Target), 0o755); err != nil {
		return fmt.Errorf("scholar/gen: create directory for %s: %w", cfg.Target, err)
	}
	return os.WriteFile(cfg.Target, formatted, 0o644)
}

// Generate renders the handles of every entity of g into one Go file.
// Entities are rendered in parallel and emitted in declaration order.
func Generate(ctx context.Context, g *schema.Graph, pkg string, workers int) ([]byte, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	entities := g.Entities()
	parts := make([]*jen.Statement, len(entities))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, e := range entities {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			code, err := entityCode(e)
			if err != nil {
				return err
			}
			parts[i] = code
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	f := jen.NewFile(pkg)
	f.HeaderComment("Code generated by scholar, DO NOT EDIT.")
	for _, code := range parts {
		f.Add(code)
	}
	f.Comment("Handles maps entity names to their handles.")
	f.Var().Id("Handles").Op("=").Map(jen.String()).Interface(
		jen.Id("Entity").Params().String(),
	).Values(jen.DictFunc(func(d jen.Dict) {
		for _, e := range entities {
			d[jen.Lit(e.Name)] = jen.Id(e.Name)
		}
	}))
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("scholar/gen: render: %w", err)
	}
	return buf.Bytes(), nil
}

func entityCode(e *schema.Entity) (*jen.Statement, error) {
	var (
		code   = jen.Null()
		typ    = e.Name + "Fields"
		fields []jen.Code
		dict   = jen.Dict{}
		seen   = make(map[string]string)
	)
	claim := func(name, id string) error {
		if other, ok := seen[id]; ok {
			return &SchemaError{Entity: e.Name, Field: name, Message: fmt.Sprintf("identifier %s collides with %q", id, other)}
		}
		seen[id] = name
		return nil
	}
	for _, f := range e.Fields {
		id := pascal(f.Name)
		if err := claim(f.Name, id); err != nil {
			return nil, err
		}
		handle, err := fieldHandle(e, f, code)
		if err != nil {
			return nil, err
		}
		fields = append(fields, jen.Id(id).Add(handle))
		dict[jen.Id(id)] = jen.Lit(f.Name)
	}
	for _, r := range e.Relations {
		id := pascal(r.Name)
		if err := claim(r.Name, id); err != nil {
			return nil, err
		}
		edge := "OneEdge"
		if r.ToMany() {
			edge = "ManyEdge"
		}
		fields = append(fields, jen.Id(id).Qual(qlPkg, edge))
		dict[jen.Id(id)] = jen.Lit(r.Name)
	}
	code.Commentf("%s holds the typed field and relation handles of %s.", typ, e.Name).Line()
	code.Type().Id(typ).Struct(fields...).Line()
	code.Comment("Entity returns the entity name.").Line()
	code.Func().Params(jen.Id(typ)).Id("Entity").Params().String().Block(
		jen.Return(jen.Lit(e.Name)),
	).Line()
	code.Commentf("%s holds the handles of the %s entity.", e.Name, e.Name).Line()
	code.Var().Id(e.Name).Op("=").Id(typ).Values(dict).Line()
	return code, nil
}

// fieldHandle returns the handle type of f. Enum fields also emit their
// value type and constants into code.
func fieldHandle(e *schema.Entity, f *schema.Field, code *jen.Statement) (jen.Code, error) {
	switch f.Type {
	case schema.TypeString:
		return jen.Qual(qlPkg, "StringField"), nil
	case schema.TypeInt:
		return jen.Qual(qlPkg, "IntField"), nil
	case schema.TypeFloat:
		return jen.Qual(qlPkg, "FloatField"), nil
	case schema.TypeBool:
		return jen.Qual(qlPkg, "BoolField"), nil
	case schema.TypeTime:
		return jen.Qual(qlPkg, "TimeField"), nil
	case schema.TypeStringList:
		return jen.Qual(qlPkg, "StringListField"), nil
	case schema.TypeJSON:
		return jen.Qual(qlPkg, "JSONField"), nil
	case schema.TypeEnum:
		name := e.Name + pascal(f.Name)
		code.Commentf("%s is the value type of %s.%s.", name, e.Name, f.Name).Line()
		code.Type().Id(name).String().Line()
		code.Commentf("%s values.", name).Line()
		code.Const().DefsFunc(func(g *jen.Group) {
			for _, v := range f.Values {
				g.Id(name + pascal(v)).Id(name).Op("=").Lit(v)
			}
		}).Line()
		code.Commentf("%sValues returns all values of %s.", name, name).Line()
		code.Func().Id(name + "Values").Params().Index().Id(name).Block(
			jen.Return(jen.Index().Id(name).ValuesFunc(func(g *jen.Group) {
				for _, v := range f.Values {
					g.Id(name + pascal(v))
				}
			})),
		).Line()
		return jen.Qual(qlPkg, "EnumField").Types(jen.Id(name)), nil
	}
	return nil, &SchemaError{Entity: e.Name, Field: f.Name, Message: "unsupported type " + f.Type.String()}
}
