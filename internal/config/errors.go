package config

import "errors"

// Sentinel error kinds. Every validation failure wraps ErrInvalidConfig; an
// unrecognised store_driver or reference_policy also wraps ErrUnknownOption.
var (
	ErrInvalidConfig = errors.New("invalid eatery config")
	ErrLoadConfig    = errors.New("load eatery config failed")
	ErrUnknownOption = errors.New("unknown option value")
)
