package schema_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/scholar/schema"
)

const campus = `
root: Tenant
entities:
  - name: Tenant
    mixins: [id]
    fields:
      - {name: slug, type: string, unique: true}
    relations:
      - {name: teachers, target: Teacher, many: true, inverse: tenant}
  - name: Teacher
    mixins: [id, tenant, time]
    unique:
      - [tenantId, code]
    fields:
      - {name: code, type: string}
      - {name: badgeId, type: string, unique: true, optional: true}
      - {name: level, type: enum, values: [JUNIOR, SENIOR], default: JUNIOR}
      - {name: languages, type: "[]string", default: []}
    relations:
      - {name: courses, target: Course, many: true, inverse: teacher}
      - {name: badge, target: Badge, inverse: owner}
  - name: Course
    mixins: [id, tenant]
    fields:
      - {name: title, type: string}
      - {name: credits, type: int, optional: true}
      - {name: teacherId, type: string, optional: true}
    relations:
      - {name: teacher, target: Teacher, field: teacherId, onDelete: SET NULL}
  - name: Badge
    mixins: [id, tenant]
    fields:
      - {name: ownerId, type: string, unique: true}
    relations:
      - {name: owner, target: Teacher, field: ownerId}
`

func TestParse(t *testing.T) {
	g, err := schema.Parse([]byte(campus))
	require.NoError(t, err)
	require.NotNil(t, g.Root())
	assert.Equal(t, "Tenant", g.Root().Name)
	assert.Len(t, g.Entities(), 4)

	teacher, ok := g.Entity("Teacher")
	require.True(t, ok)
	assert.Equal(t, "teachers", teacher.Table)
	assert.Equal(t, "id", teacher.ID().Name)

	f, ok := teacher.Field("tenantId")
	require.True(t, ok)
	assert.Equal(t, "tenant_id", f.Column)
	assert.Equal(t, teacher, f.Entity())
	assert.True(t, f.Required())

	f, ok = teacher.Field("createdAt")
	require.True(t, ok)
	assert.Equal(t, schema.GenNow, f.Generate)
	assert.False(t, f.Required())

	f, ok = teacher.Field("updatedAt")
	require.True(t, ok)
	assert.True(t, f.UpdateNow)

	f, ok = teacher.Field("languages")
	require.True(t, ok)
	assert.True(t, f.IsList())
	assert.Equal(t, schema.TypeStringList, f.Type)

	tf, ok := teacher.TenantField()
	require.True(t, ok)
	assert.Equal(t, "tenantId", tf.Name)
	_, ok = g.Root().TenantField()
	assert.False(t, ok)

	_, ok = teacher.Field("missing")
	assert.False(t, ok)
	assert.False(t, teacher.HasField("courses"))

	byCol, ok := teacher.FieldByColumn("badge_id")
	require.True(t, ok)
	assert.Equal(t, "badgeId", byCol.Name)
}

func TestRelations(t *testing.T) {
	g, err := schema.Parse([]byte(campus))
	require.NoError(t, err)
	teacher := g.MustEntity("Teacher")
	course := g.MustEntity("Course")

	courses, ok := teacher.Relation("courses")
	require.True(t, ok)
	assert.Equal(t, schema.ToMany, courses.Kind)
	assert.True(t, courses.ToMany())
	assert.False(t, courses.Owning())
	assert.Equal(t, course, courses.TargetEntity())
	local, remote := courses.JoinColumns()
	assert.Equal(t, "id", local)
	assert.Equal(t, "teacher_id", remote)

	owner, ok := course.Relation("teacher")
	require.True(t, ok)
	assert.Equal(t, schema.ToOne, owner.Kind)
	assert.Equal(t, courses, owner.Ref())
	assert.Equal(t, owner, courses.Ref())
	local, remote = owner.JoinColumns()
	assert.Equal(t, "teacher_id", local)
	assert.Equal(t, "id", remote)
	assert.Equal(t, "SET NULL", owner.OnDelete)

	badge, ok := teacher.Relation("badge")
	require.True(t, ok)
	assert.Equal(t, schema.ToOneInverse, badge.Kind)
	assert.Equal(t, "ownerId", badge.ForeignKey().Name)

	tenant, ok := teacher.Relation("tenant")
	require.True(t, ok)
	assert.Equal(t, "CASCADE", tenant.OnDelete)
	assert.Len(t, teacher.ForeignKeys(), 1)
	assert.Len(t, course.ForeignKeys(), 2)
}

func TestUniqueSets(t *testing.T) {
	g, err := schema.Parse([]byte(campus))
	require.NoError(t, err)
	teacher := g.MustEntity("Teacher")

	assert.Equal(t, [][]string{{"id"}, {"badgeId"}, {"tenantId", "code"}}, teacher.UniqueSets())
	assert.True(t, teacher.IsUniqueSet([]string{"id"}))
	assert.True(t, teacher.IsUniqueSet([]string{"code", "tenantId"}))
	assert.False(t, teacher.IsUniqueSet([]string{"code"}))
	assert.False(t, teacher.IsUniqueSet([]string{"id", "code"}))

	set, ok := teacher.UniqueSetByColumns([]string{"tenant_id", "code"})
	assert.True(t, ok)
	assert.Equal(t, []string{"tenantId", "code"}, set)
	_, ok = teacher.UniqueSetByColumns([]string{"nope"})
	assert.False(t, ok)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		err  string
	}{
		{
			name: "NoID",
			yaml: "entities:\n  - name: A\n    fields:\n      - {name: x, type: string}\n",
			err:  `entity "A" has no id field`,
		},
		{
			name: "UnknownType",
			yaml: "entities:\n  - name: A\n    fields:\n      - {name: x, type: uuid}\n",
			err:  `unknown field type "uuid"`,
		},
		{
			name: "EnumWithoutValues",
			yaml: "entities:\n  - name: A\n    mixins: [id]\n    fields:\n      - {name: x, type: enum}\n",
			err:  "field A.x: enum without values",
		},
		{
			name: "BadEnumDefault",
			yaml: "entities:\n  - name: A\n    mixins: [id]\n    fields:\n      - {name: x, type: enum, values: [B], default: C}\n",
			err:  `default "C" is not an enum value`,
		},
		{
			name: "DuplicateField",
			yaml: "entities:\n  - name: A\n    mixins: [id]\n    fields:\n      - {name: id, type: string}\n",
			err:  `duplicate field "id"`,
		},
		{
			name: "UnknownMixin",
			yaml: "entities:\n  - name: A\n    mixins: [audit]\n",
			err:  `unknown mixin "audit"`,
		},
		{
			name: "TenantWithoutRoot",
			yaml: "entities:\n  - name: A\n    mixins: [id, tenant]\n",
			err:  `mixin "tenant" requires a root entity`,
		},
		{
			name: "UnknownTarget",
			yaml: "entities:\n  - name: A\n    mixins: [id]\n    fields:\n      - {name: bId, type: string}\n    relations:\n      - {name: b, target: B, field: bId}\n",
			err:  `relation A.b: unknown target "B"`,
		},
		{
			name: "MissingInverse",
			yaml: "entities:\n  - name: A\n    mixins: [id]\n    relations:\n      - {name: bs, target: A, many: true, inverse: parent}\n",
			err:  "inverse A.parent does not exist",
		},
		{
			name: "ToOneInverseNotUnique",
			yaml: "entities:\n  - name: A\n    mixins: [id]\n    fields:\n      - {name: parentId, type: string, optional: true}\n    relations:\n      - {name: parent, target: A, field: parentId}\n      - {name: child, target: A, inverse: parent}\n",
			err:  "to-one inverse requires unique foreign key A.parentId",
		},
		{
			name: "UnknownUniqueField",
			yaml: "entities:\n  - name: A\n    mixins: [id]\n    unique:\n      - [x]\n",
			err:  `unique constraint references unknown field "x"`,
		},
		{
			name: "UnknownKey",
			yaml: "entities:\n  - name: A\n    colour: red\n",
			err:  "decode",
		},
		{
			name: "DuplicateEntity",
			yaml: "entities:\n  - name: A\n    mixins: [id]\n  - name: A\n    mixins: [id]\n",
			err:  `duplicate entity "A"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schema.Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestSelfReference(t *testing.T) {
	g, err := schema.Parse([]byte(`
entities:
  - name: Node
    mixins: [id]
    fields:
      - {name: parentId, type: string, optional: true}
    relations:
      - {name: parent, target: Node, field: parentId}
      - {name: children, target: Node, many: true, inverse: parent}
`))
	require.NoError(t, err)
	node := g.MustEntity("Node")
	children, ok := node.Relation("children")
	require.True(t, ok)
	assert.Equal(t, node, children.TargetEntity())
	assert.Equal(t, "parent_id", children.ForeignKey().Column)
	assert.Nil(t, g.Root())
	assert.Panics(t, func() { g.MustEntity("Leaf") })
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "campus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(campus), 0o600))
	g, err := schema.Load(path)
	require.NoError(t, err)
	assert.NotNil(t, g.MustEntity("Course"))

	_, err = schema.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestType(t *testing.T) {
	var typ schema.Type
	require.NoError(t, typ.UnmarshalText([]byte("float64")))
	assert.Equal(t, schema.TypeFloat, typ)
	require.NoError(t, typ.UnmarshalText([]byte("[]string")))
	assert.Equal(t, schema.TypeStringList, typ)
	assert.True(t, schema.TypeInt.Numeric())
	assert.True(t, schema.TypeTime.Ordered())
	assert.False(t, schema.TypeBool.Ordered())
	text, err := schema.TypeEnum.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "enum", string(text))
	assert.Equal(t, "Type(42)", schema.Type(42).String())
}
