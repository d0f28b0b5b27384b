package scholar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a required record does not exist.
	ErrNotFound = errors.New("scholar: record not found")

	// ErrTxClosed is returned when a transaction-bound client is used after
	// its transaction was committed or rolled back.
	ErrTxClosed = errors.New("scholar: transaction already closed")
)

// ErrorKind is the caller-facing category of an engine error.
type ErrorKind int

// Error kinds.
const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindConstraint
	KindNotFound
	KindTimeout
	KindConnection
	KindPermission
)

var kindNames = [...]string{
	KindUnknown:    "unknown",
	KindValidation: "validation",
	KindConstraint: "constraint",
	KindNotFound:   "not_found",
	KindTimeout:    "timeout",
	KindConnection: "connection",
	KindPermission: "permission",
}

// String implements fmt.Stringer.
func (k ErrorKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// KindOf returns the category of err. Wrapped errors are inspected
// through errors.As.
func KindOf(err error) ErrorKind {
	var (
		unknown    *UnknownFieldError
		validation *ValidationError
		constraint *ConstraintError
		notFound   *NotFoundError
		timeout    *TimeoutError
		conn       *ConnectionError
		privacy    *PrivacyError
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &unknown), errors.As(err, &validation):
		return KindValidation
	case errors.As(err, &constraint):
		return KindConstraint
	case errors.As(err, &notFound), errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.As(err, &timeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.As(err, &conn):
		return KindConnection
	case errors.As(err, &privacy):
		return KindPermission
	default:
		return KindUnknown
	}
}

// NotFoundError is returned by the OrThrow reads and by single-record
// update and delete when no record matches the unique filter.
type NotFoundError struct {
	Entity string
	Op     string
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("scholar: no %s record found for %s", e.Entity, e.Op)
	}
	return fmt.Sprintf("scholar: no %s record found", e.Entity)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// NewNotFoundError returns a new NotFoundError for the given entity and operation.
func NewNotFoundError(entity, op string) *NotFoundError {
	return &NotFoundError{Entity: entity, Op: op}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// UnknownFieldError reports a field or relation name that does not exist
// on an entity.
type UnknownFieldError struct {
	Entity   string
	Field    string
	Relation bool
}

// Error returns the error string.
func (e *UnknownFieldError) Error() string {
	what := "field"
	if e.Relation {
		what = "relation"
	}
	return fmt.Sprintf("scholar: unknown %s %q on %s", what, e.Field, e.Entity)
}

// NewUnknownFieldError returns a new UnknownFieldError for a scalar field.
func NewUnknownFieldError(entity, field string) *UnknownFieldError {
	return &UnknownFieldError{Entity: entity, Field: field}
}

// NewUnknownRelationError returns a new UnknownFieldError for a relation.
func NewUnknownRelationError(entity, relation string) *UnknownFieldError {
	return &UnknownFieldError{Entity: entity, Field: relation, Relation: true}
}

// IsUnknownField returns true if the error is an UnknownFieldError.
func IsUnknownField(err error) bool {
	if err == nil {
		return false
	}
	var e *UnknownFieldError
	return errors.As(err, &e)
}

// ValidationError is raised before any I/O when an operation is
// malformed: conflicting projection options, missing required fields,
// type or enum mismatches, invalid groupBy arguments and the like.
type ValidationError struct {
	Entity string
	Name   string // field or argument name, optional
	Err    error
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	switch {
	case e.Entity != "" && e.Name != "":
		return fmt.Sprintf("scholar: invalid %s.%s: %s", e.Entity, e.Name, e.Err)
	case e.Entity != "":
		return fmt.Sprintf("scholar: invalid %s operation: %s", e.Entity, e.Err)
	default:
		return fmt.Sprintf("scholar: %s", e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Message returns the validation message without the entity prefix.
func (e *ValidationError) Message() string {
	return e.Err.Error()
}

// NewValidationError returns a new ValidationError for the given entity.
func NewValidationError(entity, name string, err error) *ValidationError {
	return &ValidationError{Entity: entity, Name: name, Err: err}
}

// Validationf returns a ValidationError with a formatted message.
func Validationf(entity, format string, args ...any) *ValidationError {
	return &ValidationError{Entity: entity, Err: fmt.Errorf(format, args...)}
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}

// ConstraintKind identifies which store or engine rule a write violated.
type ConstraintKind int

// Constraint kinds.
const (
	ConstraintUnknown ConstraintKind = iota
	ConstraintUnique
	ConstraintForeignKey
	ConstraintCrossTenant
	ConstraintCheck
	ConstraintNotNull
)

// String implements fmt.Stringer.
func (k ConstraintKind) String() string {
	switch k {
	case ConstraintUnique:
		return "unique"
	case ConstraintForeignKey:
		return "foreign key"
	case ConstraintCrossTenant:
		return "cross-tenant"
	case ConstraintCheck:
		return "check"
	case ConstraintNotNull:
		return "not null"
	default:
		return "unknown"
	}
}

// ConstraintError represents a uniqueness, referential or tenant-isolation
// violation. Fields lists the offending field names when they are known.
type ConstraintError struct {
	Kind   ConstraintKind
	Entity string
	Fields []string
	wrap   error
}

// Error returns the error string.
func (e *ConstraintError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "scholar: %s constraint failed", e.Kind)
	if e.Entity != "" {
		fmt.Fprintf(&sb, " on %s", e.Entity)
	}
	if len(e.Fields) > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(e.Fields, ", "))
	}
	if e.wrap != nil {
		fmt.Fprintf(&sb, ": %v", e.wrap)
	}
	return sb.String()
}

// Unwrap returns the underlying error.
func (e *ConstraintError) Unwrap() error {
	return e.wrap
}

// NewConstraintError returns a new ConstraintError.
func NewConstraintError(kind ConstraintKind, entity string, fields []string, wrap error) *ConstraintError {
	return &ConstraintError{Kind: kind, Entity: entity, Fields: fields, wrap: wrap}
}

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConstraintError
	return errors.As(err, &e)
}

// TimeoutError is returned when a transaction could not start within its
// max-wait budget or did not finish within its timeout.
type TimeoutError struct {
	Op    string // "begin" or "transaction"
	Limit time.Duration
	Err   error
}

// Error returns the error string.
func (e *TimeoutError) Error() string {
	if e.Op == "begin" {
		return fmt.Sprintf("scholar: transaction could not start within %s", e.Limit)
	}
	return fmt.Sprintf("scholar: transaction exceeded timeout of %s", e.Limit)
}

// Unwrap returns the underlying error.
func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// ConnectionError wraps failures to reach the backing store.
type ConnectionError struct {
	Err error
}

// Error returns the error string.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("scholar: store unavailable: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// RollbackError wraps an error that occurred during a transaction rollback.
type RollbackError struct {
	Err error // Original error that triggered rollback
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("scholar: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error {
	return e.Err
}

// PrivacyError represents a privacy policy denial.
type PrivacyError struct {
	Entity string // Entity name
	Op     string // Operation (query or mutation)
	Err    error  // Decision returned by the policy
}

// Error returns the error string.
func (e *PrivacyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scholar: privacy denied %s on %s: %v", e.Op, e.Entity, e.Err)
	}
	return fmt.Sprintf("scholar: privacy denied %s on %s", e.Op, e.Entity)
}

// Unwrap returns the underlying error.
func (e *PrivacyError) Unwrap() error {
	return e.Err
}

// IsPrivacyError returns true if the error is a PrivacyError.
func IsPrivacyError(err error) bool {
	if err == nil {
		return false
	}
	var e *PrivacyError
	return errors.As(err, &e)
}
