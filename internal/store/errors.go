package store

import (
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Store errors. Callers match with errors.Is.
var (
	// ErrNotFound means a row, or a row referenced by the operation, does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrConstraint means a uniqueness, domain or required-field rule was
	// violated.
	ErrConstraint = errors.New("constraint violation")

	// ErrCycle means the operation would make a task its own ancestor.
	ErrCycle = errors.New("task hierarchy cycle")
)

// translateErr maps driver-level constraint failures onto the store's
// sentinel errors. Foreign-key failures surface as ErrNotFound: the only way
// to trip one on insert is to reference a row that is not there.
func translateErr(err error) error {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE,
		sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY,
		sqlite3.SQLITE_CONSTRAINT_CHECK,
		sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		return fmt.Errorf("%w: %v", ErrConstraint, err)
	}
	return err
}
