// Package dialect names the relational stores the engine can target and
// defines the minimal driver contract the engine executes statements on.
//
// The statement builder in dialect/sql only varies identifier quoting and
// placeholder style by dialect:
//
//	dialect.SQLite   = "sqlite"   // "ident", ?
//	dialect.Postgres = "postgres" // "ident", $1
//	dialect.MySQL    = "mysql"    // `ident`, ?
//
// Sub-packages:
//
//   - dialect/sql: statement builder and database/sql driver wrapper
//   - dialect/sql/sqljson: predicates over JSON encoded list columns
//   - dialect/sql/sqlgraph: store error classification
package dialect
