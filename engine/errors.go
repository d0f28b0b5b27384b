package engine

import (
	"context"
	stdsql "database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"

	"github.com/syssam/scholar"
	"github.com/syssam/scholar/dialect/sql/sqlgraph"
	"github.com/syssam/scholar/schema"
)

var violationKinds = map[sqlgraph.ViolationKind]scholar.ConstraintKind{
	sqlgraph.UniqueViolation:     scholar.ConstraintUnique,
	sqlgraph.ForeignKeyViolation: scholar.ConstraintForeignKey,
	sqlgraph.CheckViolation:      scholar.ConstraintCheck,
	sqlgraph.NotNullViolation:    scholar.ConstraintNotNull,
}

// translate maps a failure of an operation on e to the error taxonomy of
// the scholar package. Errors already in the taxonomy pass through.
func translate(e *schema.Entity, err error) error {
	switch {
	case err == nil:
		return nil
	case scholar.KindOf(err) != scholar.KindUnknown,
		errors.Is(err, context.Canceled),
		errors.Is(err, scholar.ErrTxClosed):
		return err
	}
	if v, ok := sqlgraph.Classify(err); ok {
		var (
			entity string
			fields []string
		)
		if e != nil {
			entity = e.Name
			for _, c := range v.Columns {
				if f, ok := e.FieldByColumn(c); ok {
					fields = append(fields, f.Name)
				} else {
					fields = append(fields, c)
				}
			}
		}
		return scholar.NewConstraintError(violationKinds[v.Kind], entity, fields, err)
	}
	if isConnError(err) {
		return &scholar.ConnectionError{Err: err}
	}
	if e != nil {
		return fmt.Errorf("scholar: %s: %w", e.Name, err)
	}
	return fmt.Errorf("scholar: %w", err)
}

// isConnError reports if err is a failure to reach the store.
func isConnError(err error) bool {
	var nerr net.Error
	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, stdsql.ErrConnDone) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.As(err, &nerr)
}

// connError wraps failures to reach the store in a ConnectionError.
func connError(err error) error {
	if isConnError(err) {
		return &scholar.ConnectionError{Err: err}
	}
	return err
}
