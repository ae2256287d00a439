package service

import "errors"

// Service-level error kinds. Store and schema errors pass through wrapped.
var (
	ErrInvalidID        = errors.New("invalid object id")
	ErrReferenced       = errors.New("restaurant is managed by a user")
	ErrUnknownReference = errors.New("managed restaurant does not exist")
	ErrBadRequest       = errors.New("bad request")
	ErrNotStarted       = errors.New("service not started")
)
