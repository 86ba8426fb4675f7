package hashing

import "fmt"

// CalculationError is a per-file hashing failure: permission denied,
// not found, or an I/O error mid-stream. It is recorded against the
// file and never aborts a batch. Cancellation is not a CalculationError;
// it surfaces as the context's error so callers can match it.
type CalculationError struct {
	// Path of the file that failed
	Path string
	// Op is the operation that failed: open, stat or read
	Op string
	// Err is the underlying cause
	Err error
}

func (e *CalculationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CalculationError) Unwrap() error {
	return e.Err
}
