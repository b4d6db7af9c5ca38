package compare

import "errors"

// ErrMismatch is matched by errors.Is for every fail-fast comparison failure.
var ErrMismatch = errors.New("compare: mismatch")

// MismatchError carries the first mismatch found in fail-fast mode.
type MismatchError struct {
	Mismatch Mismatch
}

// Error implements the error interface.
func (e *MismatchError) Error() string {
	return e.Mismatch.Message
}

// Unwrap lets errors.Is(err, ErrMismatch) match.
func (e *MismatchError) Unwrap() error {
	return ErrMismatch
}
