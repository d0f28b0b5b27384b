package sql

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/scholar/dialect"
)

func TestBuilder(t *testing.T) {
	tests := []struct {
		input     Querier
		wantQuery string
		wantArgs  []any
	}{
		{
			input: Dialect(dialect.SQLite).
				Select("t0.id", "t0.first_name").
				From("students").As("t0").
				Where(And(
					EQ("t0.tenant_id", "t1"),
					Or(ContainsFold("t0.last_name", "ov"), GT("t0.grade", 3)),
				)).
				OrderBy("t0.last_name", false).
				Limit(10).
				Offset(5),
			wantQuery: `SELECT "t0"."id", "t0"."first_name" FROM "students" AS "t0" WHERE "t0"."tenant_id" = ? AND (LOWER("t0"."last_name") LIKE ? ESCAPE '\' OR "t0"."grade" > ?) ORDER BY "t0"."last_name" ASC LIMIT 10 OFFSET 5`,
			wantArgs:  []any{"t1", "%ov%", 3},
		},
		{
			input: Dialect(dialect.Postgres).
				Select("t0.id").
				From("students").As("t0").
				Where(EQ("t0.tenant_id", "t1")).
				Where(Exists(
					Dialect(dialect.Postgres).Select("*").From("fees").As("t1").
						Where(And(ColumnsEQ("t1.student_id", "t0.id"), EQ("t1.status", "PAID"))),
				)),
			wantQuery: `SELECT "t0"."id" FROM "students" AS "t0" WHERE "t0"."tenant_id" = $1 AND EXISTS (SELECT * FROM "fees" AS "t1" WHERE "t1"."student_id" = "t0"."id" AND "t1"."status" = $2)`,
			wantArgs:  []any{"t1", "PAID"},
		},
		{
			input:     Dialect(dialect.MySQL).Select("id").From("classes").Offset(2),
			wantQuery: "SELECT `id` FROM `classes` LIMIT 18446744073709551615 OFFSET 2",
		},
		{
			input:     Dialect(dialect.SQLite).Select("id").From("classes").Offset(2),
			wantQuery: `SELECT "id" FROM "classes" LIMIT -1 OFFSET 2`,
		},
		{
			input:     Dialect(dialect.Postgres).Select("id").From("classes").Offset(2),
			wantQuery: `SELECT "id" FROM "classes" OFFSET 2`,
		},
		{
			input:     Dialect(dialect.SQLite).Select("t0.name").Distinct().From("classes").As("t0"),
			wantQuery: `SELECT DISTINCT "t0"."name" FROM "classes" AS "t0"`,
		},
		{
			input: Dialect(dialect.SQLite).
				Select("t0.status").
				From("fees").As("t0").
				AppendSelectExpr(Agg("COUNT", "*"), "_count__all").
				AppendSelectExpr(Agg("SUM", "t0.amount"), "_sum_amount").
				GroupBy("t0.status").
				Having(CompareExpr(Agg("SUM", "t0.amount"), ">", 100)).
				OrderBy("t0.status", true),
			wantQuery: `SELECT "t0"."status", COUNT(*) AS "_count__all", SUM("t0"."amount") AS "_sum_amount" FROM "fees" AS "t0" GROUP BY "t0"."status" HAVING SUM("t0"."amount") > ? ORDER BY "t0"."status" DESC`,
			wantArgs:  []any{100},
		},
		{
			input: Dialect(dialect.SQLite).
				Select().
				FromSelect(Dialect(dialect.SQLite).Select("*").From("fees").Where(EQ("status", "PAID")).Limit(3).As("sub")).
				AppendSelectExpr(Agg("COUNT", "*"), "count"),
			wantQuery: `SELECT COUNT(*) AS "count" FROM (SELECT * FROM "fees" AS "sub" WHERE "status" = ? LIMIT 3) AS "sub"`,
			wantArgs:  []any{"PAID"},
		},
		{
			input: Dialect(dialect.SQLite).
				Insert("tenants").
				Columns("id", "name").
				Values("a", "A").
				Values("b", "B").
				OnConflictDoNothing(),
			wantQuery: `INSERT INTO "tenants" ("id", "name") VALUES (?, ?), (?, ?) ON CONFLICT DO NOTHING`,
			wantArgs:  []any{"a", "A", "b", "B"},
		},
		{
			input: Dialect(dialect.MySQL).
				Insert("tenants").
				Columns("id", "name").
				Values("a", "A").
				OnConflictDoNothing(),
			wantQuery: "INSERT IGNORE INTO `tenants` (`id`, `name`) VALUES (?, ?)",
			wantArgs:  []any{"a", "A"},
		},
		{
			input:     Dialect(dialect.Postgres).Insert("timetables"),
			wantQuery: `INSERT INTO "timetables" DEFAULT VALUES`,
		},
		{
			input: Dialect(dialect.Postgres).
				Update("staff").
				Set("position", "Head").
				SetExpr("salary", Arith("salary", "+", 100.0)).
				Where(EQ("id", "s1")),
			wantQuery: `UPDATE "staff" SET "position" = $1, "salary" = "salary" + $2 WHERE "id" = $3`,
			wantArgs:  []any{"Head", 100.0, "s1"},
		},
		{
			input: Dialect(dialect.SQLite).
				Delete("attendances").
				Where(InSelect("id", Dialect(dialect.SQLite).Select("id").From("attendances").Where(EQ("status", "ABSENT")).Limit(2))),
			wantQuery: `DELETE FROM "attendances" WHERE "id" IN (SELECT "id" FROM "attendances" WHERE "status" = ? LIMIT 2)`,
			wantArgs:  []any{"ABSENT"},
		},
		{
			input:     Dialect(dialect.MySQL).Delete("reports"),
			wantQuery: "DELETE FROM `reports`",
		},
	}
	for i, tt := range tests {
		query, args := tt.input.Query()
		require.Equal(t, tt.wantQuery, query, "case %d", i)
		require.Equal(t, tt.wantArgs, args, "case %d", i)
	}
}

func TestPredicate(t *testing.T) {
	tests := []struct {
		p         *Predicate
		dialect   string
		wantQuery string
		wantArgs  []any
	}{
		{
			p:         Or(EQ("a", 1), And(EQ("b", 2), Not(IsNull("c")))),
			dialect:   dialect.SQLite,
			wantQuery: `"a" = ? OR ("b" = ? AND NOT ("c" IS NULL))`,
			wantArgs:  []any{1, 2},
		},
		{
			p:         In("grade"),
			dialect:   dialect.SQLite,
			wantQuery: "1 = 0",
		},
		{
			p:         NotIn("grade"),
			dialect:   dialect.SQLite,
			wantQuery: "1 = 1",
		},
		{
			p:         NotIn("grade", 1, 2),
			dialect:   dialect.Postgres,
			wantQuery: `"grade" NOT IN ($1, $2)`,
			wantArgs:  []any{1, 2},
		},
		{
			p:         HasPrefix("code", "A_1"),
			dialect:   dialect.Postgres,
			wantQuery: `"code" LIKE $1`,
			wantArgs:  []any{`A\_1%`},
		},
		{
			p:         EqualFold("email", "ada@school.io"),
			dialect:   dialect.MySQL,
			wantQuery: "LOWER(`email`) = ?",
			wantArgs:  []any{"ada@school.io"},
		},
		{
			p:         Expr(`"x" = ? OR "y" = ?`, 1, 2),
			dialect:   dialect.Postgres,
			wantQuery: `"x" = $1 OR "y" = $2`,
			wantArgs:  []any{1, 2},
		},
		{
			p:         And(nil, NotNull("paid_date"), nil),
			dialect:   dialect.SQLite,
			wantQuery: `"paid_date" IS NOT NULL`,
		},
	}
	for i, tt := range tests {
		query, args := tt.p.Query(tt.dialect)
		require.Equal(t, tt.wantQuery, query, "case %d", i)
		require.Equal(t, tt.wantArgs, args, "case %d", i)
	}
	require.Nil(t, And())
	require.Nil(t, Or(nil, nil))
}

func TestQuote(t *testing.T) {
	require.Equal(t, "`we``ird`", NewBuilder(dialect.MySQL).Quote("we`ird"))
	require.Equal(t, `"we""ird"`, NewBuilder(dialect.Postgres).Quote(`we"ird`))
}

func TestBuilderByte(t *testing.T) {
	b := &Builder{dialect: dialect.MySQL}
	b.WriteString("COUNT").Byte('(').Ident("t0.id").Byte(')').Pad().WriteString("AS").Pad().Ident("n")
	query, args := b.Query()
	require.Equal(t, "COUNT(`t0`.`id`) AS `n`", query)
	require.Empty(t, args)

	b = &Builder{dialect: dialect.SQLite}
	Agg("SUM", "t0.amount")(b)
	query, _ = b.Query()
	require.Equal(t, `SUM("t0"."amount")`, query)
}
