package entity

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/roach88/dbobject/internal/schema"
)

// Kind categorizes entity errors.
type Kind string

const (
	// KindConfiguration is a problem with a record type or view definition.
	KindConfiguration Kind = "CONFIGURATION"

	// KindPrecondition is an operation invoked on a record type or with
	// arguments that cannot support it.
	KindPrecondition Kind = "PRECONDITION"

	// KindConsistency is stored data violating a uniqueness expectation.
	KindConsistency Kind = "CONSISTENCY"

	// KindStore is a failure reported by the backing store. The session has
	// been rolled back; nothing is retried.
	KindStore Kind = "STORE"
)

var (
	ErrNoTemporalColumn     = errors.New("record type has no temporal column")
	ErrNoIdentityColumn     = errors.New("record type has no identity column")
	ErrMissingTemporalValue = errors.New("values do not include the temporal column")
	ErrMultipleRows         = errors.New("more than one row matches")
	ErrNotFound             = errors.New("no matching row")
	ErrUnregisteredTable    = errors.New("table is not registered")
	ErrOpenWindow           = errors.New("window needs both a start and an end")
	ErrUnsupportedAggregate = errors.New("unsupported aggregate function")
	ErrNotTimeOfDay         = errors.New("column is not a time column")
	ErrNoRowLocator         = errors.New("record type has no column to locate rows by")
	ErrForeignRecord        = errors.New("record belongs to another table")
)

// Error is an entity operation failure.
type Error struct {
	// Kind identifies the error category.
	Kind Kind

	// Op is the operation that failed, e.g. "find one".
	Op string

	// Table is the record type's table.
	Table string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s: %v", e.Kind, e.Table, e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsConfigurationError reports whether err is a configuration error.
func IsConfigurationError(err error) bool { return hasKind(err, KindConfiguration) }

// IsPreconditionError reports whether err is a precondition error.
func IsPreconditionError(err error) bool { return hasKind(err, KindPrecondition) }

// IsConsistencyError reports whether err is a consistency error.
func IsConsistencyError(err error) bool { return hasKind(err, KindConsistency) }

// IsStoreError reports whether err is a store error.
func IsStoreError(err error) bool { return hasKind(err, KindStore) }

func hasKind(err error, k Kind) bool {
	kind, ok := KindOf(err)
	return ok && kind == k
}

// fail wraps err as an *Error of the given kind unless it already is one.
func (t *Table) fail(op string, kind Kind, err error) error {
	if _, ok := KindOf(err); ok {
		return err
	}
	return &Error{Kind: kind, Op: op, Table: t.rt.Table, Err: err}
}

// classify wraps an error that escaped an operation, picking the kind from
// the cause.
func (t *Table) classify(op string, err error) error {
	if _, ok := KindOf(err); ok {
		return err
	}
	kind := KindStore
	switch {
	case errors.Is(err, schema.ErrUnknownColumn), errors.Is(err, schema.ErrInvalidValue):
		kind = KindPrecondition
	case errors.Is(err, schema.ErrNoColumns),
		errors.Is(err, schema.ErrInvalidIdentifier),
		errors.Is(err, schema.ErrInvalidType):
		kind = KindConfiguration
	}
	return &Error{Kind: kind, Op: op, Table: t.rt.Table, Err: err}
}
