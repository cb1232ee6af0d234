package ledger

import "errors"

var (
	// ErrNotFound wraps references to users or groups that do not exist.
	// Raised at this boundary only; the balance sheet itself always
	// auto-registers.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists rejects duplicate user or group names, which would
	// make the name-keyed lookups of this boundary ambiguous.
	ErrAlreadyExists = errors.New("already exists")
)
