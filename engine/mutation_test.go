package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/scholar"
	"github.com/syssam/scholar/privacy"
	"github.com/syssam/scholar/querylanguage"
	"github.com/syssam/scholar/schema/school"
)

func TestCreateDefaults(t *testing.T) {
	t.Parallel()
	c := openClient(t)
	ctx := context.Background()
	before := time.Now().UTC().Add(-time.Second)

	rec, err := c.Model("Tenant").Create(ctx, CreateArgs{Data: Data{
		"name":  "North",
		"slug":  "north",
		"email": "office@north.example",
	}})
	require.NoError(t, err)
	_, err = uuid.Parse(rec["id"].(string))
	require.NoError(t, err)
	assert.Equal(t, []string{}, rec["languages"])
	assert.Equal(t, int64(500), rec["maxStudents"])
	assert.Equal(t, "FREE", rec["tier"])
	assert.Equal(t, "UTC", rec["timezone"])
	assert.Equal(t, true, rec["isActive"])
	assert.Nil(t, rec["subdomain"])
	created, ok := rec["createdAt"].(time.Time)
	require.True(t, ok)
	assert.True(t, created.After(before))
	assert.Equal(t, rec["createdAt"], rec["updatedAt"])
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()
	c := openClient(t)
	f := seed(t, c)
	ctx := context.Background()

	for _, tt := range []struct {
		name string
		data Data
		kind scholar.ErrorKind
	}{
		{"missing required", Data{"tenantId": f.tenant1, "firstName": "A", "lastName": "B"}, scholar.KindValidation},
		{"null required", Data{"tenantId": f.tenant1, "firstName": nil, "lastName": "B", "admissionNumber": "X"}, scholar.KindValidation},
		{"wrong type", Data{"tenantId": f.tenant1, "firstName": 1, "lastName": "B", "admissionNumber": "X"}, scholar.KindValidation},
		{"unknown field", Data{"tenantId": f.tenant1, "nickname": "A", "firstName": "A", "lastName": "B", "admissionNumber": "X"}, scholar.KindValidation},
		{"relation", Data{"tenant": f.tenant1, "firstName": "A", "lastName": "B", "admissionNumber": "X"}, scholar.KindValidation},
		{"number operator", Data{"tenantId": f.tenant1, "firstName": "A", "lastName": "B", "admissionNumber": Set("X")}, scholar.KindValidation},
		{"duplicate", Data{"tenantId": f.tenant1, "firstName": "A", "lastName": "B", "admissionNumber": "N-1"}, scholar.KindConstraint},
		{"missing tenant", Data{"tenantId": "missing", "firstName": "A", "lastName": "B", "admissionNumber": "X"}, scholar.KindConstraint},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Model("Student").Create(ctx, CreateArgs{Data: tt.data})
			require.Error(t, err)
			assert.Equal(t, tt.kind, scholar.KindOf(err), err.Error())
		})
	}

	_, err := c.Model("Fee").Create(ctx, CreateArgs{Data: Data{
		"tenantId":  f.tenant1,
		"studentId": f.students["N-1"],
		"amount":    10,
		"status":    "LOST",
		"dueDate":   time.Now(),
	}})
	var verr *scholar.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "status", verr.Name)
}

func TestCreateUniqueViolation(t *testing.T) {
	t.Parallel()
	c := openClient(t)
	f := seed(t, c)
	_, err := c.Model("Student").Create(context.Background(), CreateArgs{Data: Data{
		"tenantId":        f.tenant1,
		"firstName":       "Copy",
		"lastName":        "Cat",
		"admissionNumber": "N-2",
	}})
	var cerr *scholar.ConstraintError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, scholar.ConstraintUnique, cerr.Kind)
	assert.Equal(t, "Student", cerr.Entity)
	assert.ElementsMatch(t, []string{"tenantId", "admissionNumber"}, cerr.Fields)

	// The same admission number is free in another tenant.
	_, err = c.Model("Student").Create(context.Background(), CreateArgs{Data: Data{
		"tenantId":        f.tenant2,
		"firstName":       "Copy",
		"lastName":        "Cat",
		"admissionNumber": "N-2",
	}})
	require.NoError(t, err)
}

func TestCreateTenantFromViewer(t *testing.T) {
	t.Parallel()
	c := openClient(t)
	f := seed(t, c)
	ctx := viewerOf(context.Background(), f.tenant2)

	rec, err := c.Model("Student").Create(ctx, CreateArgs{Data: Data{
		"firstName":       "Barbara",
		"lastName":        "Liskov",
		"admissionNumber": "S-2",
	}})
	require.NoError(t, err)
	assert.Equal(t, f.tenant2, rec["tenantId"])

	_, err = c.Model("Student").Create(ctx, CreateArgs{Data: Data{
		"tenantId":        f.tenant1,
		"firstName":       "Barbara",
		"lastName":        "Liskov",
		"admissionNumber": "S-3",
	}})
	require.Error(t, err)
	assert.True(t, scholar.IsPrivacyError(err))
	assert.Equal(t, scholar.KindPermission, scholar.KindOf(err))
}

func TestCrossTenantRelation(t *testing.T) {
	t.Parallel()
	c := openClient(t)
	f := seed(t, c)
	ctx := context.Background()

	_, err := c.Model("ClassStudent").Create(ctx, CreateArgs{Data: Data{
		"tenantId":   f.tenant1,
		"classId":    f.class,
		"studentId":  f.other,
		"enrolledAt": time.Now(),
	}})
	var cerr *scholar.ConstraintError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, scholar.ConstraintCrossTenant, cerr.Kind)
	assert.Equal(t, []string{"studentId"}, cerr.Fields)

	n, err := c.Model("ClassStudent").Count(ctx, CountArgs{})
	require.NoError(t, err)
	assert.Zero(t, n, "nothing reaches the store")

	_, err = c.Model("ClassStudent").Create(ctx, CreateArgs{Data: Data{
		"tenantId":   f.tenant1,
		"classId":    f.class,
		"studentId":  f.students["N-1"],
		"enrolledAt": time.Now(),
	}})
	require.NoError(t, err)

	n, err = c.Model("Fee").CreateMany(ctx, CreateManyArgs{Data: []Data{
		{"tenantId": f.tenant1, "studentId": f.students["N-1"], "amount": 1, "dueDate": time.Now()},
		{"tenantId": f.tenant1, "studentId": f.other, "amount": 1, "dueDate": time.Now()},
	}})
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, scholar.ConstraintCrossTenant, cerr.Kind)
	assert.Zero(t, n)

	_, err = c.Model("Class").Update(ctx, UpdateArgs{
		Where: Unique{"id": f.class},
		Data:  Data{"teacherId": "missing"},
	})
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, scholar.ConstraintForeignKey, cerr.Kind)
	assert.Equal(t, []string{"teacherId"}, cerr.Fields)
}

func TestCreateMany(t *testing.T) {
	t.Parallel()
	c := openClient(t)
	f := seed(t, c)
	ctx := context.Background()
	student := func(no string) Data {
		return Data{"tenantId": f.tenant1, "firstName": "F", "lastName": "L", "admissionNumber": no}
	}

	n, err := c.Model("Student").CreateMany(ctx, CreateManyArgs{
		Data:           []Data{student("N-1"), student("N-4"), student("N-2"), student("N-5")},
		SkipDuplicates: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = c.Model("Student").CreateMany(ctx, CreateManyArgs{Data: []Data{student("N-6"), student("N-1")}})
	require.Error(t, err)
	assert.Equal(t, scholar.KindConstraint, scholar.KindOf(err))
	r, err := c.Model("Student").FindUnique(ctx, FindUniqueArgs{Where: Unique{"tenantId": f.tenant1, "admissionNumber": "N-6"}})
	require.NoError(t, err)
	assert.Nil(t, r, "a failed batch inserts nothing")

	n, err = c.Model("Student").CreateMany(ctx, CreateManyArgs{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdate(t *testing.T) {
	t.Parallel()
	c := openClient(t)
	f := seed(t, c)
	ctx := context.Background()

	before, err := c.Model("Student").FindUnique(ctx, FindUniqueArgs{Where: Unique{"id": f.students["N-1"]}})
	require.NoError(t, err)
	rec, err := c.Model("Student").Update(ctx, UpdateArgs{
		Where: Unique{"id": f.students["N-1"]},
		Data:  Data{"guardianEmail": "parent@example.com", "isActive": false},
	})
	require.NoError(t, err)
	assert.Equal(t, "parent@example.com", rec["guardianEmail"])
	assert.Equal(t, false, rec["isActive"])
	assert.Equal(t, before["createdAt"], rec["createdAt"])
	assert.False(t, rec["updatedAt"].(time.Time).Before(before["updatedAt"].(time.Time)))

	_, err = c.Model("Student").Update(ctx, UpdateArgs{Where: Unique{"id": "missing"}, Data: Data{"gender": "F"}})
	assert.True(t, scholar.IsNotFound(err))

	_, err = c.Model("Student").Update(viewerOf(ctx, f.tenant2), UpdateArgs{
		Where: Unique{"id": f.students["N-1"]},
		Data:  Data{"gender": "F"},
	})
	assert.True(t, scholar.IsNotFound(err), "rows of other tenants cannot be updated")

	for _, data := range []Data{
		{"tenantId": f.tenant2},
		{"createdAt": time.Now()},
		{"firstName": Increment(1)},
		{"lastName": nil},
	} {
		_, err = c.Model("Student").Update(ctx, UpdateArgs{Where: Unique{"id": f.students["N-1"]}, Data: data})
		assert.Equal(t, scholar.KindValidation, scholar.KindOf(err), "%v", data)
	}
}

func TestUpdateNumberOperators(t *testing.T) {
	t.Parallel()
	c := openClient(t)
	f := seed(t, c)
	ctx := context.Background()
	where := Unique{"id": f.class}

	for _, tt := range []struct {
		op   NumberOp
		want int64
	}{
		{Increment(2), 3},
		{Multiply(4), 12},
		{Decrement(2), 10},
		{Divide(5), 2},
		{Set(7), 7},
	} {
		rec, err := c.Model("Class").Update(ctx, UpdateArgs{Where: where, Data: Data{"grade": tt.op}})
		require.NoError(t, err)
		assert.Equal(t, tt.want, rec["grade"])
	}
	_, err := c.Model("Class").Update(ctx, UpdateArgs{Where: where, Data: Data{"grade": Divide(0)}})
	assert.Equal(t, scholar.KindValidation, scholar.KindOf(err))
}

func TestUpdateMany(t *testing.T) {
	t.Parallel()
	c := openClient(t)
	f := seed(t, c)
	ctx := viewerOf(context.Background(), f.tenant1)

	n, err := c.Model("Student").UpdateMany(ctx, UpdateManyArgs{
		Where: school.Student.LastName.EQ("Smith"),
		Data:  Data{"gender": "X"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = c.Model("Student").UpdateMany(ctx, UpdateManyArgs{
		Where: school.Student.LastName.EQ("Dijkstra"),
		Data:  Data{"gender": "X"},
	})
	require.NoError(t, err)
	assert.Zero(t, n, "the other tenant is out of scope")

	n, err = c.Model("Student").UpdateMany(ctx, UpdateManyArgs{Where: school.Student.FirstName.EQ("Nobody"), Data: Data{"gender": "X"}})
	require.NoError(t, err)
	assert.Zero(t, n, "no match is not an error")

	other, err := c.Model("Student").FindUnique(context.Background(), FindUniqueArgs{Where: Unique{"id": f.other}})
	require.NoError(t, err)
	assert.Nil(t, other["gender"])
}

func TestUpsert(t *testing.T) {
	t.Parallel()
	c := openClient(t)
	f := seed(t, c)
	ctx := context.Background()
	where := Unique{"tenantId": f.tenant1, "admissionNumber": "N-9"}

	rec, err := c.Model("Student").Upsert(ctx, UpsertArgs{
		Where:  where,
		Create: Data{"firstName": "New", "lastName": "Comer"},
		Update: Data{"firstName": "Updated"},
	})
	require.NoError(t, err)
	assert.Equal(t, "New", rec["firstName"])
	assert.Equal(t, "N-9", rec["admissionNumber"])

	rec2, err := c.Model("Student").Upsert(ctx, UpsertArgs{
		Where:  where,
		Create: Data{"firstName": "New", "lastName": "Comer"},
		Update: Data{"firstName": "Updated"},
	})
	require.NoError(t, err)
	assert.Equal(t, rec["id"], rec2["id"])
	assert.Equal(t, "Updated", rec2["firstName"])

	n, err := c.Model("Student").Count(ctx, CountArgs{Where: school.Student.AdmissionNumber.EQ("N-9")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDelete(t *testing.T) {
	t.Parallel()
	c := openClient(t)
	f := seed(t, c)
	ctx := context.Background()

	_, err := c.Model("Student").Delete(viewerOf(ctx, f.tenant2), DeleteArgs{Where: Unique{"id": f.students["N-1"]}})
	assert.True(t, scholar.IsNotFound(err))

	rec, err := c.Model("Student").Delete(ctx, DeleteArgs{
		Where:      Unique{"id": f.students["N-1"]},
		Projection: Projection{Select: []string{"admissionNumber"}},
	})
	require.NoError(t, err)
	assert.Equal(t, Record{"admissionNumber": "N-1"}, rec)

	_, err = c.Model("Student").Delete(ctx, DeleteArgs{Where: Unique{"id": f.students["N-1"]}})
	var nf *scholar.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "delete", nf.Op)
	assert.True(t, errors.Is(err, scholar.ErrNotFound))
}

func TestDeleteMany(t *testing.T) {
	t.Parallel()
	c := openClient(t)
	f := seed(t, c)
	ctx := context.Background()
	seedFees(t, c, f, f.students["N-1"], fee{1, "PAID"}, fee{2, "PAID"}, fee{3, "PAID"}, fee{4, "PENDING"}, fee{5, "PENDING"})

	n, err := c.Model("Fee").Count(ctx, CountArgs{})
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	n, err = c.Model("Fee").DeleteMany(ctx, DeleteManyArgs{Where: school.Fee.Status.EQ(school.FeeStatusPaid), Limit: Int(2)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = c.Model("Fee").Count(ctx, CountArgs{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = c.Model("Fee").DeleteMany(viewerOf(ctx, f.tenant2), DeleteManyArgs{})
	require.NoError(t, err)
	assert.Zero(t, n, "the fees belong to another tenant")

	n, err = c.Model("Fee").DeleteMany(ctx, DeleteManyArgs{Where: school.Fee.Amount.GT(100)})
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = c.Model("Fee").DeleteMany(ctx, DeleteManyArgs{Limit: Int(-1)})
	assert.Equal(t, scholar.KindValidation, scholar.KindOf(err))
}

func TestTenantCascade(t *testing.T) {
	t.Parallel()
	c := openClient(t)
	f := seed(t, c)
	ctx := context.Background()
	seedFees(t, c, f, f.students["N-1"], fee{1, "PAID"})

	_, err := c.Model("Tenant").Delete(ctx, DeleteArgs{Where: Unique{"id": f.tenant1}})
	require.NoError(t, err)
	for _, name := range []string{"Student", "Fee", "Class"} {
		n, err := c.Model(name).Count(ctx, CountArgs{Where: querylanguage.FieldEQ("tenantId", f.tenant1)})
		require.NoError(t, err)
		assert.Zero(t, n, name)
	}
	n, err := c.Model("Student").Count(ctx, CountArgs{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPolicy(t *testing.T) {
	t.Parallel()
	c := openClient(t, WithPolicy("Fee", privacy.Policy{
		Mutation: privacy.MutationPolicy{
			privacy.HasAnyRole("TENANT_ADMIN"),
			privacy.AlwaysDenyRule(),
		},
	}))
	f := seed(t, c)
	ctx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{
		UserID:   "teacher",
		Roles:    []string{"TEACHER"},
		TenantID: f.tenant1,
	})
	_, err := c.Model("Fee").Create(ctx, CreateArgs{Data: Data{
		"studentId": f.students["N-1"],
		"amount":    10,
		"dueDate":   time.Now(),
	}})
	var perr *scholar.PrivacyError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "Fee", perr.Entity)

	_, err = c.Model("Fee").Create(viewerOf(context.Background(), f.tenant1), CreateArgs{Data: Data{
		"studentId": f.students["N-1"],
		"amount":    10,
		"dueDate":   time.Now(),
	}})
	require.NoError(t, err)

	_, err = Open(c.driver, school.MustGraph(), WithPolicy("Course", privacy.AlwaysDenyRule()))
	require.Error(t, err)
}
