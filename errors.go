package icebox

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when the shared connection is used before
// Configure has been called, or after CloseDefault tore it down.
var ErrNotConfigured = errors.New("database connection not configured")

// ArgumentError reports a malformed argument passed by the caller, such as
// an invalid orderBy direction or a non-positive rollback step count.
type ArgumentError struct {
	Message string
}

func (e *ArgumentError) Error() string {
	return e.Message
}

func newArgumentError(format string, args ...interface{}) *ArgumentError {
	return &ArgumentError{Message: fmt.Sprintf(format, args...)}
}

// IsArgumentError reports whether err is an ArgumentError.
func IsArgumentError(err error) bool {
	var ae *ArgumentError
	return errors.As(err, &ae)
}

// MigrationError reports a migration unit that violates the runner's
// contract: missing up/down operations, or a ledger entry whose unit is no
// longer registered.
type MigrationError struct {
	Migration string
	Message   string
}

func (e *MigrationError) Error() string {
	if e.Migration != "" {
		return fmt.Sprintf("migration %s: %s", e.Migration, e.Message)
	}
	return e.Message
}

func newMigrationError(migration, format string, args ...interface{}) *MigrationError {
	return &MigrationError{Migration: migration, Message: fmt.Sprintf(format, args...)}
}
