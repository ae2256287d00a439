package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
	ErrStore     = errors.New("store operation failed")
)
