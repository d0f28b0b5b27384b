package schema

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/go-openapi/inflect"
	"gopkg.in/yaml.v3"
)

// Graph is the immutable registry of entities.
type Graph struct {
	root     *Entity
	entities []*Entity
	byName   map[string]*Entity
}

// Entity returns the named entity.
func (g *Graph) Entity(name string) (*Entity, bool) {
	e, ok := g.byName[name]
	return e, ok
}

// MustEntity is like Entity but panics if the entity does not exist.
func (g *Graph) MustEntity(name string) *Entity {
	e, ok := g.byName[name]
	if !ok {
		panic(fmt.Sprintf("scholar/schema: unknown entity %q", name))
	}
	return e
}

// Entities returns the entities in declaration order.
func (g *Graph) Entities() []*Entity { return slices.Clone(g.entities) }

// Root returns the tenant root entity, or nil for graphs without tenancy.
func (g *Graph) Root() *Entity { return g.root }

type description struct {
	// Root names the tenant root entity.
	Root     string    `yaml:"root"`
	Entities []*Entity `yaml:"entities"`
}

// Parse decodes and validates a YAML graph description.
func Parse(data []byte) (*Graph, error) {
	var desc description
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&desc); err != nil {
		return nil, fmt.Errorf("scholar/schema: decode: %w", err)
	}
	return New(desc.Root, desc.Entities...)
}

// Load reads and parses the YAML graph description at path.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scholar/schema: %w", err)
	}
	return Parse(data)
}

// New validates the entities and resolves their relations. root names
// the tenant root entity and may be empty.
func New(root string, entities ...*Entity) (*Graph, error) {
	g := &Graph{byName: make(map[string]*Entity, len(entities))}
	for _, e := range entities {
		if e == nil || e.Name == "" {
			return nil, errors.New("scholar/schema: entity without a name")
		}
		if _, ok := g.byName[e.Name]; ok {
			return nil, fmt.Errorf("scholar/schema: duplicate entity %q", e.Name)
		}
		if err := e.init(root); err != nil {
			return nil, err
		}
		g.byName[e.Name] = e
		g.entities = append(g.entities, e)
	}
	if root != "" {
		r, ok := g.byName[root]
		if !ok {
			return nil, fmt.Errorf("scholar/schema: unknown root entity %q", root)
		}
		g.root = r
	}
	// Owning relations first, inverses read their foreign keys.
	for _, e := range g.entities {
		for _, r := range e.Relations {
			if r.Field != "" {
				if err := g.resolveOwning(e, r); err != nil {
					return nil, err
				}
			}
		}
	}
	for _, e := range g.entities {
		for _, r := range e.Relations {
			if r.Field == "" {
				if err := g.resolveInverse(e, r); err != nil {
					return nil, err
				}
			}
		}
		if err := g.checkTenant(e); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (e *Entity) init(root string) error {
	var (
		fields    []*Field
		relations []*Relation
	)
	for _, name := range e.Mixins {
		m, ok := mixins[name]
		if !ok {
			return fmt.Errorf("scholar/schema: entity %q: unknown mixin %q", e.Name, name)
		}
		fields = append(fields, m.Fields()...)
		rs := m.Relations(root)
		if len(rs) > 0 && root == "" {
			return fmt.Errorf("scholar/schema: entity %q: mixin %q requires a root entity", e.Name, name)
		}
		relations = append(relations, rs...)
		if _, ok := m.(TenantID); ok && e.Tenant == "" {
			e.Tenant = TenantField
		}
	}
	e.Fields = append(fields, e.Fields...)
	e.Relations = append(relations, e.Relations...)
	e.Mixins = nil
	if e.Table == "" {
		e.Table = rules.Pluralize(rules.Underscore(e.Name))
	}
	e.fields = make(map[string]*Field, len(e.Fields))
	e.columns = make(map[string]*Field, len(e.Fields))
	for _, f := range e.Fields {
		if err := e.addField(f); err != nil {
			return err
		}
	}
	if e.id == nil {
		return fmt.Errorf("scholar/schema: entity %q has no id field", e.Name)
	}
	e.relations = make(map[string]*Relation, len(e.Relations))
	for _, r := range e.Relations {
		switch {
		case r.Name == "":
			return fmt.Errorf("scholar/schema: entity %q: relation without a name", e.Name)
		case e.HasField(r.Name):
			return fmt.Errorf("scholar/schema: entity %q: relation %q collides with a field", e.Name, r.Name)
		case e.relations[r.Name] != nil:
			return fmt.Errorf("scholar/schema: entity %q: duplicate relation %q", e.Name, r.Name)
		}
		r.entity = e
		e.relations[r.Name] = r
	}
	for _, u := range e.Unique {
		if len(u) == 0 {
			return fmt.Errorf("scholar/schema: entity %q: empty unique constraint", e.Name)
		}
		for _, name := range u {
			if !e.HasField(name) {
				return fmt.Errorf("scholar/schema: entity %q: unique constraint references unknown field %q", e.Name, name)
			}
		}
	}
	return nil
}

func (e *Entity) addField(f *Field) error {
	switch {
	case f.Name == "":
		return fmt.Errorf("scholar/schema: entity %q: field without a name", e.Name)
	case e.fields[f.Name] != nil:
		return fmt.Errorf("scholar/schema: entity %q: duplicate field %q", e.Name, f.Name)
	case f.Type == TypeInvalid:
		return fmt.Errorf("scholar/schema: field %s.%s: missing type", e.Name, f.Name)
	case f.Type == TypeEnum && len(f.Values) == 0:
		return fmt.Errorf("scholar/schema: field %s.%s: enum without values", e.Name, f.Name)
	case f.Type != TypeEnum && len(f.Values) > 0:
		return fmt.Errorf("scholar/schema: field %s.%s: values are only allowed on enums", e.Name, f.Name)
	case f.Generate != "" && f.Generate != GenUUID && f.Generate != GenNow:
		return fmt.Errorf("scholar/schema: field %s.%s: unknown generator %q", e.Name, f.Name, f.Generate)
	case f.Generate == GenNow && f.Type != TypeTime, f.Generate == GenUUID && f.Type != TypeString:
		return fmt.Errorf("scholar/schema: field %s.%s: generator %q does not fit type %s", e.Name, f.Name, f.Generate, f.Type)
	case f.ID && f.Optional:
		return fmt.Errorf("scholar/schema: field %s.%s: id cannot be optional", e.Name, f.Name)
	case f.ID && e.id != nil:
		return fmt.Errorf("scholar/schema: entity %q: multiple id fields", e.Name)
	}
	if s, ok := f.Default.(string); ok && f.Type == TypeEnum && !f.HasValue(s) {
		return fmt.Errorf("scholar/schema: field %s.%s: default %q is not an enum value", e.Name, f.Name, s)
	}
	if f.Column == "" {
		f.Column = rules.Underscore(f.Name)
	}
	if g, ok := e.columns[f.Column]; ok {
		return fmt.Errorf("scholar/schema: entity %q: fields %q and %q share column %q", e.Name, g.Name, f.Name, f.Column)
	}
	if f.ID {
		e.id = f
	}
	f.entity = e
	e.fields[f.Name] = f
	e.columns[f.Column] = f
	return nil
}

func (g *Graph) target(e *Entity, r *Relation) (*Entity, error) {
	t, ok := g.byName[r.Target]
	if !ok {
		return nil, fmt.Errorf("scholar/schema: relation %s.%s: unknown target %q", e.Name, r.Name, r.Target)
	}
	return t, nil
}

func (g *Graph) resolveOwning(e *Entity, r *Relation) error {
	t, err := g.target(e, r)
	if err != nil {
		return err
	}
	fk, ok := e.Field(r.Field)
	switch {
	case !ok:
		return fmt.Errorf("scholar/schema: relation %s.%s: unknown foreign-key field %q", e.Name, r.Name, r.Field)
	case r.Inverse != "" || r.Many:
		return fmt.Errorf("scholar/schema: relation %s.%s: owning relations cannot be inverse or many", e.Name, r.Name)
	case fk.Type != t.ID().Type:
		return fmt.Errorf("scholar/schema: relation %s.%s: foreign key type %s does not match %s id", e.Name, r.Name, fk.Type, t.Name)
	}
	r.Kind, r.target, r.fk = ToOne, t, fk
	return nil
}

func (g *Graph) resolveInverse(e *Entity, r *Relation) error {
	t, err := g.target(e, r)
	if err != nil {
		return err
	}
	if r.Inverse == "" {
		return fmt.Errorf("scholar/schema: relation %s.%s: either field or inverse is required", e.Name, r.Name)
	}
	ref, ok := t.Relation(r.Inverse)
	switch {
	case !ok:
		return fmt.Errorf("scholar/schema: relation %s.%s: inverse %s.%s does not exist", e.Name, r.Name, t.Name, r.Inverse)
	case !ref.Owning() || ref.target != e:
		return fmt.Errorf("scholar/schema: relation %s.%s: inverse %s.%s must be an owning relation to %s", e.Name, r.Name, t.Name, r.Inverse, e.Name)
	case ref.ref != nil:
		return fmt.Errorf("scholar/schema: relation %s.%s: %s.%s already has inverse %q", e.Name, r.Name, t.Name, r.Inverse, ref.ref.Name)
	case !r.Many && !ref.fk.Unique:
		return fmt.Errorf("scholar/schema: relation %s.%s: to-one inverse requires unique foreign key %s.%s", e.Name, r.Name, t.Name, ref.fk.Name)
	}
	r.Kind = ToOneInverse
	if r.Many {
		r.Kind = ToMany
	}
	r.target, r.fk, r.ref = t, ref.fk, ref
	ref.ref = r
	return nil
}

func (g *Graph) checkTenant(e *Entity) error {
	if e.Tenant == "" {
		return nil
	}
	if g.root == nil {
		return fmt.Errorf("scholar/schema: entity %q is tenant-scoped but the graph has no root", e.Name)
	}
	if !e.HasField(e.Tenant) {
		return fmt.Errorf("scholar/schema: entity %q: unknown tenant field %q", e.Name, e.Tenant)
	}
	for _, r := range e.ForeignKeys() {
		if r.fk.Name == e.Tenant && r.target == g.root {
			return nil
		}
	}
	return fmt.Errorf("scholar/schema: entity %q: tenant field %q is not a foreign key to %s", e.Name, e.Tenant, g.root.Name)
}

var rules = ruleset()

func ruleset() *inflect.Ruleset {
	r := inflect.NewDefaultRuleset()
	for _, w := range []string{"staff", "data"} {
		r.AddUncountable(w)
	}
	return r
}
