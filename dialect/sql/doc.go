// Package sql provides the statement builders and the database/sql driver
// wrapper the engine executes on.
//
// # Builders
//
//   - Builder: low-level writer with identifier quoting and placeholders
//   - Selector: SELECT with sub-query sources, grouping and pagination
//   - InsertBuilder: multi-row INSERT, optionally skipping duplicates
//   - UpdateBuilder: UPDATE with plain and arithmetic assignments
//   - DeleteBuilder: DELETE with predicates
//
// Statements adapt to the dialect they are created for:
//
//	sel := sql.Dialect(dialect.Postgres).
//	    Select("t0.id", "t0.first_name").
//	    From("students").As("t0").
//	    Where(sql.EQ("t0.tenant_id", tenantID))
//	query, args := sel.Query()
//	// SELECT "t0"."id", "t0"."first_name" FROM "students" AS "t0" WHERE "t0"."tenant_id" = $1
//
// # Predicates
//
//	sql.EQ("status", "PAID")           // "status" = ?
//	sql.In("grade", 1, 2)              // "grade" IN (?, ?)
//	sql.ContainsFold("last_name", "o") // LOWER("last_name") LIKE ?
//	sql.Exists(sub)                    // EXISTS (SELECT ...)
//
// Predicates render into the builder of the statement that holds them, so
// nested sub-queries share a single placeholder sequence.
//
// # Drivers
//
// Driver wraps *sql.DB; StatsDriver adds prometheus metrics and DebugDriver
// logs every statement through zap. All of them implement TxBeginner, which
// starts transactions with isolation options and a bounded connection wait.
package sql
