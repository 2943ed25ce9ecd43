package leads

import "errors"

var (
	// ErrMissingOrgID is returned when a lead is not scoped to an org
	ErrMissingOrgID = errors.New("leads: org id is required")

	// ErrInvalidName is returned when the name is invalid
	ErrInvalidName = errors.New("leads: name is required")

	// ErrMissingContact is returned when both email and phone are missing
	ErrMissingContact = errors.New("leads: either email or phone is required")

	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("leads: lead not found")
)

// IsValidationError reports whether err came from request validation.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingOrgID) || errors.Is(err, ErrInvalidName) || errors.Is(err, ErrMissingContact)
}
