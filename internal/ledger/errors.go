package ledger

import "errors"

// Domain error kinds. Services return these (possibly wrapped with %w);
// callers branch with errors.Is and translate them at the boundary.
// None of them are retried inside the core.
var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("account not found")
	ErrForbidden           = errors.New("not owner of the account")
	ErrSameAccount         = errors.New("source and destination accounts are the same")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrLockTimeout         = errors.New("account lock timed out")
)
