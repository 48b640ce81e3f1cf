package expense

import (
	"errors"
	"fmt"
)

var (
	ErrGroupNotSelected = errors.New("a group must be selected for a group expense")
	ErrInvalidAmount    = errors.New("amount must be a positive number with at most two decimal places")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrInvalidInput     = errors.New("invalid expense input")
)

// AssemblyError reports why a submission could not become an ExpenseRecord.
// Field names the offending input when one can be singled out.
type AssemblyError struct {
	Field string
	Err   error
}

func (e *AssemblyError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("cannot assemble expense: %v", e.Err)
	}
	return fmt.Sprintf("cannot assemble expense: %s: %v", e.Field, e.Err)
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}

func fieldError(field string, err error) *AssemblyError {
	return &AssemblyError{Field: field, Err: err}
}
