package shared

import "errors"

// Sentinel errors shared across the domain services. Services wrap these
// with fmt.Errorf("%w: ...") to carry entity detail; handlers map them to
// HTTP status codes via httpx.RespondError.
var (
	// ErrValidation indicates a missing or malformed input field.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates the operation violates a referential or
	// uniqueness constraint, e.g. deleting a customer that owns invoices.
	ErrConflict = errors.New("conflict")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden indicates the actor lacks a required permission.
	ErrForbidden = errors.New("forbidden")
)
