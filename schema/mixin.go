package schema

// Mixin is a reusable set of fields and relations expanded into the
// entities that list it.
type Mixin interface {
	Fields() []*Field
	// Relations receives the name of the tenant root entity.
	Relations(root string) []*Relation
}

// ID adds a string primary key generated as a UUID.
type ID struct{}

// Fields of the ID mixin.
func (ID) Fields() []*Field {
	return []*Field{{Name: "id", Type: TypeString, ID: true, Generate: GenUUID, Immutable: true}}
}

// Relations of the ID mixin.
func (ID) Relations(string) []*Relation { return nil }

// CreateTime adds the createdAt timestamp.
type CreateTime struct{}

// Fields of the CreateTime mixin.
func (CreateTime) Fields() []*Field {
	return []*Field{{Name: "createdAt", Type: TypeTime, Generate: GenNow, Immutable: true}}
}

// Relations of the CreateTime mixin.
func (CreateTime) Relations(string) []*Relation { return nil }

// UpdateTime adds the updatedAt timestamp, refreshed on every update.
type UpdateTime struct{}

// Fields of the UpdateTime mixin.
func (UpdateTime) Fields() []*Field {
	return []*Field{{Name: "updatedAt", Type: TypeTime, Generate: GenNow, UpdateNow: true}}
}

// Relations of the UpdateTime mixin.
func (UpdateTime) Relations(string) []*Relation { return nil }

// Time composes CreateTime and UpdateTime.
type Time struct{}

// Fields of the Time mixin.
func (Time) Fields() []*Field {
	return append(CreateTime{}.Fields(), UpdateTime{}.Fields()...)
}

// Relations of the Time mixin.
func (Time) Relations(string) []*Relation { return nil }

// TenantID adds the tenantId field and the owning tenant relation, and
// marks the entity as tenant-scoped.
type TenantID struct{}

// TenantField is the field name used by the TenantID mixin.
const TenantField = "tenantId"

// Fields of the TenantID mixin.
func (TenantID) Fields() []*Field {
	return []*Field{{Name: TenantField, Type: TypeString, Immutable: true}}
}

// Relations of the TenantID mixin.
func (TenantID) Relations(root string) []*Relation {
	return []*Relation{{Name: "tenant", Target: root, Field: TenantField, OnDelete: "CASCADE"}}
}

var mixins = map[string]Mixin{
	"id":         ID{},
	"createTime": CreateTime{},
	"updateTime": UpdateTime{},
	"time":       Time{},
	"tenant":     TenantID{},
}
