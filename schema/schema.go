package schema

import (
	"fmt"
	"slices"
	"strings"
)

// Type is the semantic type of a scalar field.
type Type uint8

// Field types.
const (
	TypeInvalid Type = iota
	TypeString
	TypeInt
	TypeFloat
	TypeBool
	TypeTime
	TypeEnum
	TypeStringList
	TypeJSON
)

var typeNames = [...]string{
	TypeInvalid:    "invalid",
	TypeString:     "string",
	TypeInt:        "int",
	TypeFloat:      "float",
	TypeBool:       "bool",
	TypeTime:       "time",
	TypeEnum:       "enum",
	TypeStringList: "[]string",
	TypeJSON:       "json",
}

// String returns the type name used in schema descriptions.
func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", t)
}

// Numeric reports if the type supports arithmetic and _sum/_avg.
func (t Type) Numeric() bool { return t == TypeInt || t == TypeFloat }

// Ordered reports if the type supports range comparisons and _min/_max.
func (t Type) Ordered() bool {
	return t.Numeric() || t == TypeString || t == TypeTime || t == TypeEnum
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	s := string(text)
	switch s {
	case "list", "strings":
		*t = TypeStringList
		return nil
	case "float64", "decimal":
		*t = TypeFloat
		return nil
	case "int64":
		*t = TypeInt
		return nil
	}
	for i, name := range typeNames {
		if i > 0 && name == s {
			*t = Type(i)
			return nil
		}
	}
	return fmt.Errorf("scholar/schema: unknown field type %q", s)
}

// Generator names a value computed for a field on create.
type Generator string

// Value generators.
const (
	GenUUID Generator = "uuid"
	GenNow  Generator = "now"
)

// Field is a scalar attribute of an entity.
type Field struct {
	// Name is the caller-facing field name.
	Name string `yaml:"name"`
	// Column is the storage column. Defaults to snake_case(Name).
	Column string `yaml:"column,omitempty"`
	Type   Type   `yaml:"type"`
	// Optional fields are nullable and not required on create.
	Optional bool `yaml:"optional,omitempty"`
	Unique   bool `yaml:"unique,omitempty"`
	// ID marks the primary key.
	ID bool `yaml:"id,omitempty"`
	// Values holds the closed value set of enum fields.
	Values []string `yaml:"values,omitempty"`
	// Default is the literal value used on create when the field is unset.
	Default any `yaml:"default,omitempty"`
	// Generate computes the value on create when the field is unset.
	Generate Generator `yaml:"generate,omitempty"`
	// UpdateNow refreshes the field with the current time on update.
	UpdateNow bool `yaml:"updateNow,omitempty"`
	// Immutable fields cannot be changed by updates.
	Immutable bool `yaml:"immutable,omitempty"`

	entity *Entity
}

// Entity returns the entity declaring the field.
func (f *Field) Entity() *Entity { return f.entity }

// HasDefault reports if the engine can fill the field on create.
func (f *Field) HasDefault() bool { return f.Default != nil || f.Generate != "" }

// Required reports if a create must supply the field.
func (f *Field) Required() bool { return !f.Optional && !f.HasDefault() }

// IsList reports if the field is multi-valued.
func (f *Field) IsList() bool { return f.Type == TypeStringList }

// HasValue reports if v is one of the enum values.
func (f *Field) HasValue(v string) bool { return slices.Contains(f.Values, v) }

// RelKind is the cardinality and ownership of a relation.
type RelKind uint8

// Relation kinds.
const (
	// ToOne is an owning to-one relation: the foreign key lives on the
	// declaring entity.
	ToOne RelKind = iota + 1
	// ToOneInverse is the back side of a unique owning relation.
	ToOneInverse
	// ToMany is the back side of a non-unique owning relation.
	ToMany
)

func (k RelKind) String() string {
	switch k {
	case ToOne:
		return "to-one"
	case ToOneInverse:
		return "to-one inverse"
	case ToMany:
		return "to-many"
	}
	return "unknown"
}

// Relation links an entity to another one.
type Relation struct {
	Name   string `yaml:"name"`
	Target string `yaml:"target"`
	// Field is the local foreign-key field of owning relations.
	Field string `yaml:"field,omitempty"`
	// Inverse names the owning relation on Target that this relation
	// mirrors. Set only on non-owning relations.
	Inverse string `yaml:"inverse,omitempty"`
	// Many marks a to-many inverse.
	Many bool `yaml:"many,omitempty"`
	// OnDelete is the referential action of owning relations
	// (CASCADE, SET NULL, RESTRICT, NO ACTION).
	OnDelete string `yaml:"onDelete,omitempty"`

	// Kind is resolved by Parse.
	Kind RelKind `yaml:"-"`

	entity *Entity
	target *Entity
	ref    *Relation
	fk     *Field
}

// Entity returns the declaring entity.
func (r *Relation) Entity() *Entity { return r.entity }

// TargetEntity returns the related entity.
func (r *Relation) TargetEntity() *Entity { return r.target }

// Ref returns the paired relation on the target, or nil when the owning
// side has no declared inverse.
func (r *Relation) Ref() *Relation { return r.ref }

// ForeignKey returns the foreign-key field, which lives on the declaring
// entity for owning relations and on the target otherwise.
func (r *Relation) ForeignKey() *Field { return r.fk }

// ToMany reports if the relation yields a list.
func (r *Relation) ToMany() bool { return r.Kind == ToMany }

// Owning reports if the foreign key lives on the declaring entity.
func (r *Relation) Owning() bool { return r.Kind == ToOne }

// JoinColumns returns the column on the declaring table and the column on
// the target table that must be equal for two rows to be related.
func (r *Relation) JoinColumns() (local, remote string) {
	if r.Owning() {
		return r.fk.Column, r.target.ID().Column
	}
	return r.entity.ID().Column, r.fk.Column
}

// Entity is a node type of the graph.
type Entity struct {
	Name string `yaml:"name"`
	// Table defaults to the plural snake_case of Name.
	Table string `yaml:"table,omitempty"`
	// Mixins are expanded before Fields, in order.
	Mixins []string `yaml:"mixins,omitempty"`
	// Tenant names the field holding the owning tenant of each row.
	Tenant    string      `yaml:"tenant,omitempty"`
	Fields    []*Field    `yaml:"fields"`
	Relations []*Relation `yaml:"relations,omitempty"`
	// Unique lists compound unique constraints.
	Unique [][]string `yaml:"unique,omitempty"`

	id        *Field
	fields    map[string]*Field
	columns   map[string]*Field
	relations map[string]*Relation
}

// ID returns the primary key field.
func (e *Entity) ID() *Field { return e.id }

// Field returns the named scalar field.
func (e *Entity) Field(name string) (*Field, bool) {
	f, ok := e.fields[name]
	return f, ok
}

// HasField reports if the entity declares the scalar field.
func (e *Entity) HasField(name string) bool {
	_, ok := e.fields[name]
	return ok
}

// FieldByColumn returns the field stored in the given column.
func (e *Entity) FieldByColumn(column string) (*Field, bool) {
	f, ok := e.columns[column]
	return f, ok
}

// Relation returns the named relation.
func (e *Entity) Relation(name string) (*Relation, bool) {
	r, ok := e.relations[name]
	return r, ok
}

// TenantField returns the tenant field of tenant-scoped entities.
func (e *Entity) TenantField() (*Field, bool) {
	if e.Tenant == "" {
		return nil, false
	}
	return e.Field(e.Tenant)
}

// ForeignKeys returns the owning relations of the entity.
func (e *Entity) ForeignKeys() []*Relation {
	var rs []*Relation
	for _, r := range e.Relations {
		if r.Owning() {
			rs = append(rs, r)
		}
	}
	return rs
}

// UniqueSets returns every field set that identifies at most one row:
// the primary key, each unique field and each compound constraint.
func (e *Entity) UniqueSets() [][]string {
	sets := [][]string{{e.id.Name}}
	for _, f := range e.Fields {
		if f.Unique && !f.ID {
			sets = append(sets, []string{f.Name})
		}
	}
	for _, u := range e.Unique {
		sets = append(sets, slices.Clone(u))
	}
	return sets
}

// IsUniqueSet reports if fields, in any order, is exactly one of the
// unique sets of the entity.
func (e *Entity) IsUniqueSet(fields []string) bool {
	key := setKey(fields)
	for _, set := range e.UniqueSets() {
		if setKey(set) == key {
			return true
		}
	}
	return false
}

// UniqueSetByColumns returns the unique set stored in the given columns.
func (e *Entity) UniqueSetByColumns(columns []string) ([]string, bool) {
	names := make([]string, 0, len(columns))
	for _, c := range columns {
		f, ok := e.FieldByColumn(c)
		if !ok {
			return nil, false
		}
		names = append(names, f.Name)
	}
	return names, e.IsUniqueSet(names)
}

func setKey(fields []string) string {
	s := slices.Clone(fields)
	slices.Sort(s)
	return strings.Join(s, "\x00")
}
