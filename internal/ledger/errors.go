// Package ledger holds the business rules shared by the transfer
// engine: sentinel errors and the admission check gating a transfer.
package ledger

import "errors"

var (
	// ErrInsufficientBalance is returned when a non-superuser sender
	// does not hold enough points to cover a transfer.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNonPositiveAmount is returned for zero or negative transfer
	// amounts.
	ErrNonPositiveAmount = errors.New("amount must be positive")

	// ErrNotFound is returned when a referenced account does not exist.
	ErrNotFound = errors.New("account not found")

	// ErrForbidden is returned when the caller is not allowed to
	// perform the requested ledger operation.
	ErrForbidden = errors.New("operation not allowed")
)
