package schema

import "github.com/cockroachdb/errors"

var (
	// ErrNoColumns is returned when a record type declares no columns.
	ErrNoColumns = errors.New("record type has no columns")

	// ErrUnknownColumn is returned when a name does not match any column.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrInvalidValue is returned when a value cannot be coerced to a column type.
	ErrInvalidValue = errors.New("invalid column value")

	// ErrInvalidType is returned for an unknown column type.
	ErrInvalidType = errors.New("invalid column type")

	// ErrInvalidIdentifier is returned for table or column names that are not
	// plain SQL identifiers.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrDuplicateTable is returned when a table is registered twice.
	ErrDuplicateTable = errors.New("table already registered")

	// ErrRegistryFrozen is returned when registering after the registry is frozen.
	ErrRegistryFrozen = errors.New("registry is frozen")
)
