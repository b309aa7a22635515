package patch

import "errors"

var (
	ErrTypeMismatch   = errors.New("type mismatch")
	ErrPathNotAllowed = errors.New("path not allowed")
)
