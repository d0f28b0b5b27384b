package sqlgraph

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// ViolationKind is the kind of constraint a store error reports.
type ViolationKind int

// Violation kinds.
const (
	NoViolation ViolationKind = iota
	UniqueViolation
	ForeignKeyViolation
	CheckViolation
	NotNullViolation
)

// Violation describes a constraint failure reported by the store. Columns
// holds the offending column names when the driver exposes them.
type Violation struct {
	Kind       ViolationKind
	Constraint string
	Columns    []string
}

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgNotNullViolation    = "23502"
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
)

// MySQL error numbers for constraint violations.
const (
	mysqlBadNull                = 1048
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451 // Cannot delete or update a parent row
	mysqlForeignKeyChild        = 1452 // Cannot add or update a child row
	mysqlCheckConstraintViolate = 3819
)

// SQLite extended result codes for constraint violations.
const (
	sqliteConstraintCheck      = 275
	sqliteConstraintForeignKey = 787
	sqliteConstraintNotNull    = 1299
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

// sqliteCoder is implemented by modernc.org/sqlite errors.
type sqliteCoder interface {
	Code() int
}

var (
	pgKeyRe       = regexp.MustCompile(`Key \(([^)]*)\)`)
	mysqlKeyRe    = regexp.MustCompile("for key '([^']*)'")
	mysqlFKRe     = regexp.MustCompile("CONSTRAINT `([^`]*)` FOREIGN KEY \\(([^)]*)\\)")
	sqliteColsRe  = regexp.MustCompile(`(?:UNIQUE|NOT NULL) constraint failed: ([^()]+)`)
	sqliteCheckRe = regexp.MustCompile(`CHECK constraint failed: ([^()\s]+)`)
)

// Classify inspects err and reports the constraint violation it carries,
// if any.
func Classify(err error) (Violation, bool) {
	if err == nil {
		return Violation{}, false
	}
	if e, ok := asError[*pq.Error](err); ok {
		return classifyPostgres(e)
	}
	if e, ok := asError[*mysql.MySQLError](err); ok {
		return classifyMySQL(e)
	}
	if e, ok := asError[sqliteCoder](err); ok {
		if v, ok := classifySQLite(e.Code(), err.Error()); ok {
			return v, true
		}
	}
	// Fallback to string matching for wrapped or unknown drivers.
	msg := err.Error()
	switch {
	case containsAny(msg, "UNIQUE constraint failed", "violates unique constraint", "Error 1062"):
		return classifySQLite(sqliteConstraintUnique, msg)
	case containsAny(msg, "FOREIGN KEY constraint failed", "violates foreign key constraint", "Error 1451", "Error 1452"):
		return Violation{Kind: ForeignKeyViolation}, true
	case containsAny(msg, "CHECK constraint failed", "violates check constraint", "Error 3819"):
		return classifySQLite(sqliteConstraintCheck, msg)
	case containsAny(msg, "NOT NULL constraint failed", "violates not-null constraint"):
		return classifySQLite(sqliteConstraintNotNull, msg)
	}
	return Violation{}, false
}

func classifyPostgres(e *pq.Error) (Violation, bool) {
	v := Violation{Constraint: e.Constraint}
	switch string(e.Code) {
	case pgUniqueViolation:
		v.Kind = UniqueViolation
	case pgForeignKeyViolation:
		v.Kind = ForeignKeyViolation
	case pgCheckViolation:
		v.Kind = CheckViolation
	case pgNotNullViolation:
		v.Kind = NotNullViolation
	default:
		return Violation{}, false
	}
	switch {
	case e.Column != "":
		v.Columns = []string{e.Column}
	default:
		if m := pgKeyRe.FindStringSubmatch(e.Detail); m != nil {
			v.Columns = splitColumns(m[1], "")
		}
	}
	return v, true
}

func classifyMySQL(e *mysql.MySQLError) (Violation, bool) {
	var v Violation
	switch e.Number {
	case mysqlDuplicateEntry:
		v.Kind = UniqueViolation
		if m := mysqlKeyRe.FindStringSubmatch(e.Message); m != nil {
			name := m[1]
			if i := strings.LastIndexByte(name, '.'); i >= 0 {
				name = name[i+1:]
			}
			v.Constraint = name
		}
	case mysqlForeignKeyParent, mysqlForeignKeyChild:
		v.Kind = ForeignKeyViolation
		if m := mysqlFKRe.FindStringSubmatch(e.Message); m != nil {
			v.Constraint = m[1]
			v.Columns = splitColumns(strings.ReplaceAll(m[2], "`", ""), "")
		}
	case mysqlCheckConstraintViolate:
		v.Kind = CheckViolation
	case mysqlBadNull:
		v.Kind = NotNullViolation
	default:
		return Violation{}, false
	}
	return v, true
}

func classifySQLite(code int, msg string) (Violation, bool) {
	var v Violation
	switch code {
	case sqliteConstraintUnique, sqliteConstraintPrimaryKey:
		v.Kind = UniqueViolation
	case sqliteConstraintForeignKey:
		return Violation{Kind: ForeignKeyViolation}, true
	case sqliteConstraintNotNull:
		v.Kind = NotNullViolation
	case sqliteConstraintCheck:
		v.Kind = CheckViolation
		if m := sqliteCheckRe.FindStringSubmatch(msg); m != nil {
			v.Constraint = m[1]
		}
		return v, true
	default:
		return Violation{}, false
	}
	// Columns are reported as "table.column, table.column".
	if m := sqliteColsRe.FindStringSubmatch(msg); m != nil {
		v.Columns = splitColumns(m[1], ".")
	}
	return v, true
}

// splitColumns splits a comma separated column list, dropping any
// qualifier before sep.
func splitColumns(list, sep string) []string {
	parts := strings.Split(list, ",")
	cols := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if sep != "" {
			if i := strings.LastIndex(p, sep); i >= 0 {
				p = p[i+len(sep):]
			}
		}
		if p != "" {
			cols = append(cols, p)
		}
	}
	return cols
}

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	_, ok := Classify(err)
	return ok
}

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
// e.g. duplicate value in unique index.
func IsUniqueConstraintError(err error) bool {
	v, ok := Classify(err)
	return ok && v.Kind == UniqueViolation
}

// IsForeignKeyConstraintError reports if the error resulted from a database foreign-key constraint violation.
// e.g. parent row does not exist.
func IsForeignKeyConstraintError(err error) bool {
	v, ok := Classify(err)
	return ok && v.Kind == ForeignKeyViolation
}

// IsCheckConstraintError reports if the error resulted from a database check constraint violation.
func IsCheckConstraintError(err error) bool {
	v, ok := Classify(err)
	return ok && v.Kind == CheckViolation
}

// asError attempts to extract an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
