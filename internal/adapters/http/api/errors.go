package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrBadVersion = errors.New("version must be a positive integer")
	ErrBadLimit   = errors.New("limit must be a positive integer")
)
