package quarantine

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds returned by the store. Match them with errors.Is; the wrapped
// message carries the file id or path and the underlying cause.
var (
	// ErrNotFound means the referenced file id or source path does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput means a precondition was violated and nothing was changed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIO means a filesystem operation failed. The index is left as it was
	// before the call.
	ErrIO = errors.New("i/o failure")

	// ErrConsistency means the index and the vault disagree, usually because
	// the vault was modified outside the store or a move was interrupted.
	ErrConsistency = errors.New("index and vault are inconsistent")
)

// maxBatchErrors caps how many individual failures a BatchError keeps.
const maxBatchErrors = 5

// BatchError reports the failures of a bulk operation that kept going past
// individual errors. Failed is the total number of failures; Errors holds
// the first few of them.
type BatchError struct {
	Failed int
	Errors []error
}

// Add records a failure for the item identified by key.
func (b *BatchError) Add(key string, err error) {
	b.Failed++
	if len(b.Errors) < maxBatchErrors {
		b.Errors = append(b.Errors, fmt.Errorf("%s: %w", key, err))
	}
}

// Err returns b as an error, or nil when nothing failed.
func (b *BatchError) Err() error {
	if b.Failed == 0 {
		return nil
	}
	return b
}

func (b *BatchError) Error() string {
	msgs := make([]string, len(b.Errors))
	for i, err := range b.Errors {
		msgs[i] = err.Error()
	}
	s := fmt.Sprintf("%d operation(s) failed: %s", b.Failed, strings.Join(msgs, "; "))
	if hidden := b.Failed - len(b.Errors); hidden > 0 {
		s += fmt.Sprintf("; and %d more", hidden)
	}
	return s
}

// Unwrap exposes the retained failures so errors.Is can match their kinds.
func (b *BatchError) Unwrap() []error {
	return b.Errors
}
