package agent

import "errors"

var (
	ErrEmptyMessage   = errors.New("agent: message is empty")
	ErrMessageTooLong = errors.New("agent: message is too long")
	ErrMissingOrgID   = errors.New("agent: org id is required")
)

// IsValidationError reports whether err was caused by bad caller input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyMessage) || errors.Is(err, ErrMessageTooLong) || errors.Is(err, ErrMissingOrgID)
}
