package catalog

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced across component boundaries.
var (
	// ErrNotFound indicates no record matches the requested identifier.
	ErrNotFound = errors.New("record not found")

	// ErrMissingCredential indicates the request carried no API credential.
	ErrMissingCredential = errors.New("missing API credential")

	// ErrUnknownCredential indicates the credential maps to no plan tier.
	// Distinct from quota exhaustion: no counter is touched for it.
	ErrUnknownCredential = errors.New("unknown API credential")
)

// ValidationError reports malformed caller input rejected at the boundary,
// before any store or cache work.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// QuotaExceededError is returned when an admitted request would push a
// credential's rolling-window count past its tier ceiling.
type QuotaExceededError struct {
	Credential string
	Ceiling    int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota ceiling %d reached", e.Ceiling)
}

// IsQuotaExceeded reports whether err is (or wraps) a QuotaExceededError.
func IsQuotaExceeded(err error) bool {
	var qe *QuotaExceededError
	return errors.As(err, &qe)
}
