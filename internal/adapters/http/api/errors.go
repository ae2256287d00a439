package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/eatery/internal/adapters/repository"
	service "github.com/okian/eatery/internal/app"
	"github.com/okian/eatery/internal/domain/filter"
	"github.com/okian/eatery/internal/domain/schema"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
)

// Error records the handler operation and the kind of a failure.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Kind != nil && !errors.Is(e.Err, e.Kind):
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Kind != nil:
		return e.Kind.Error()
	default:
		return "unknown error"
	}
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	var out []error
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Wrap attaches op to err. The kind is taken from err when it is known.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// WrapKind attaches op and an explicit kind to err.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// NewKind builds an error carrying only a kind.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// kinds maps sentinels to the names clients branch on. Order matters: the
// first match wins.
var kinds = []struct {
	err  error
	name string
}{
	{schema.ErrValidation, "validation"},
	{repository.ErrDuplicate, "duplicate"},
	{repository.ErrNotFound, "not_found"},
	{service.ErrInvalidID, "invalid_id"},
	{filter.ErrInvalidFilter, "invalid_filter"},
	{service.ErrReferenced, "referenced"},
	{service.ErrUnknownReference, "unknown_reference"},
	{service.ErrBadRequest, "bad_request"},
	{ErrBadRequest, "bad_request"},
	{ErrNotFound, "not_found"},
	{service.ErrNotStarted, "unavailable"},
	{context.DeadlineExceeded, "timeout"},
	{context.Canceled, "canceled"},
}

// kindOf names the kind of err, "internal" when none is known.
func kindOf(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}

// opOf returns the operation recorded on err, if any.
func opOf(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Op
	}
	return ""
}
