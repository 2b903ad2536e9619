package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers
// return these (optionally wrapped) so services can translate them into domain
// errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrAlreadyUsed: a unique value (ICCID, MSISDN, email) is already taken
// - ErrConflict: lock wait, deadlock or serialization failure
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrUnavailable: the store could not start or commit a transaction
//
// For validation errors (bad input, missing fields), use pkg/simerrors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrAlreadyUsed  = errors.New("already used")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)

// UniqueViolation is an ErrAlreadyUsed that names the violated column, so
// callers can tell a clash on a caller-pinned identifier from one the
// allocator may regenerate, without parsing error text.
type UniqueViolation struct {
	Column string
}

func (e *UniqueViolation) Error() string { return e.Column + ": " + ErrAlreadyUsed.Error() }

func (e *UniqueViolation) Unwrap() error { return ErrAlreadyUsed }
