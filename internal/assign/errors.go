package assign

import (
	"errors"
	"fmt"
)

// Assignment outcomes. Every failure returned by Engine.Assign matches
// exactly one of these with errors.Is.
var (
	// ErrNoTablesLeft: the resolved layout, or its unlocked subset, is empty.
	ErrNoTablesLeft = errors.New("no tables left")
	// ErrInsufficientTables: the candidates ran out before the party fit.
	ErrInsufficientTables = errors.New("insufficient tables")
	// ErrTableNotFound: the forced table is not part of the layout.
	ErrTableNotFound = errors.New("table not found")
	// ErrTableLocked: the forced table is held or occupied by someone else.
	ErrTableLocked = errors.New("table locked")
	// ErrUnknown: anything else, e.g. malformed reservation times.
	ErrUnknown = errors.New("unknown assignment error")
)

// Error is the failure result of an assignment. Reason is one of the
// sentinels above.
type Error struct {
	Reason  error
	TableID int // forced table, when relevant
	Detail  string
	Err     error // underlying cause, if any
}

func newError(reason error, tableID int, detail string, cause error) *Error {
	return &Error{Reason: reason, TableID: tableID, Detail: detail, Err: cause}
}

func (e *Error) Error() string {
	msg := e.Reason.Error()
	if e.TableID != 0 {
		msg = fmt.Sprintf("%s (table %d)", msg, e.TableID)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Err}
}

// Code returns a stable machine-readable name for the outcome.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoTablesLeft):
		return "no_tables_left"
	case errors.Is(err, ErrInsufficientTables):
		return "insufficient_tables"
	case errors.Is(err, ErrTableNotFound):
		return "table_not_found"
	case errors.Is(err, ErrTableLocked):
		return "table_locked"
	}
	return "unknown"
}
