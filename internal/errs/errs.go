// Package errs holds the error kinds shared by the store, services and the
// HTTP layer. Callers wrap them with fmt.Errorf("...: %w", errs.ErrX) and
// test with errors.Is.
package errs

import "errors"

var (
	// ErrNotFound is returned for an unknown id, username or document number.
	ErrNotFound = errors.New("not found")
	// ErrValidation is returned for unparseable or out-of-range input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned on a uniqueness violation or a stale write.
	ErrConflict = errors.New("conflict")
	// ErrStateConflict is returned when a workflow transition is not allowed
	// from the current status.
	ErrStateConflict = errors.New("state does not allow operation")
	// ErrAuth is the single failure kind for bad credentials and inactive accounts.
	ErrAuth = errors.New("invalid username or password")
	// ErrRender is returned when a report cannot be produced.
	ErrRender = errors.New("report generation failed")
)
