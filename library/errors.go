package library

import (
	"errors"
	"fmt"
)

// Rejection errors. All are terminal for the call that produced them: the
// caller reports them and moves on, nothing is retried and no state changed.
var (
	ErrNotFound        = errors.New("identifier not found")
	ErrNoStock         = errors.New("no copies available")
	ErrAlreadyHeld     = errors.New("member already has a copy on loan")
	ErrHasFines        = errors.New("member has outstanding fines")
	ErrLimitReached    = errors.New("member has reached their borrowing limit")
	ErrNotOnLoan       = errors.New("book is not on loan to this member")
	ErrNoFineDue       = errors.New("no fines to pay")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// StorageError wraps a failure coming from SQLite itself rather than from a
// business rule. The in-flight transaction has been rolled back by the time
// the caller sees one.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
