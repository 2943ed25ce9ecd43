package catalog

import "errors"

var (
	ErrMissingOrgID      = errors.New("catalog: org id is required")
	ErrMissingTitle      = errors.New("catalog: title is required")
	ErrMissingName       = errors.New("catalog: name is required")
	ErrMissingCategory   = errors.New("catalog: category is required")
	ErrInvalidKind       = errors.New("catalog: kind must be service or package")
	ErrUnknownCategory   = errors.New("catalog: unknown category")
	ErrDuplicateCategory = errors.New("catalog: category already exists")
)
