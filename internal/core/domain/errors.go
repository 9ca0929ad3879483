package domain

import "errors"

// Storage-level sentinels. Adapters wrap these; services translate them.
var (
	// ErrInsufficientFunds is returned when a balance change would go negative.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrConflict marks a retryable concurrency failure (serialization, deadlock, unique race).
	ErrConflict = errors.New("concurrent update conflict")
	// ErrDuplicate is returned when a unique attribute is already taken.
	ErrDuplicate = errors.New("duplicate record")
)
