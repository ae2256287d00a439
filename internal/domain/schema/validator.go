// Package schema enforces the write-time contracts of restaurant and user
// documents: normalisation of free text and struct-tag validation.
package schema

import (
	"errors"
	"fmt"
	"html"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

// Coordinate bounds for GeoJSON points.
const (
	minLng = -180.0
	maxLng = 180.0
	minLat = -90.0
	maxLat = 90.0
)

// ErrValidation is the kind every schema violation unwraps to.
var ErrValidation = errors.New("validation failed")

// FieldError describes one violated rule.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError collects the field errors of one document.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return ErrValidation.Error() + ": " + strings.Join(msgs, ", ")
}

// Unwrap exposes ErrValidation to errors.Is.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validator checks documents against their validate tags.
type Validator struct {
	validate *validator.Validate
}

// NewValidator builds a Validator with the catalogue's custom rules
// registered. Field names in errors follow the json tags.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("lnglat", validLngLat)
	_ = v.RegisterValidation("nodigit", noDigit)
	_ = v.RegisterValidation("nomarkup", noMarkup(bluemonday.StrictPolicy()))
	return &Validator{validate: v}
}

// Struct validates s and returns a *ValidationError on failure.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fieldPath(fe.Namespace()),
			Rule:    fe.Tag(),
			Message: message(fe),
		})
	}
	return out
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "lnglat":
		return fmt.Sprintf("%v is not in range, or single coordinate is supplied", fe.Value())
	case "nodigit":
		return fmt.Sprintf("%v contains a number", fe.Value())
	case "nomarkup":
		return fmt.Sprintf("%v contains markup", fe.Value())
	case "lowercase":
		return fmt.Sprintf("%v not all lowercase", fe.Value())
	case "eq":
		return fmt.Sprintf("must equal %s", fe.Param())
	case "unique":
		return "must not contain duplicates"
	default:
		return fmt.Sprintf("failed %s rule", fe.Tag())
	}
}

// validLngLat accepts exactly [lng, lat] within GeoJSON bounds.
func validLngLat(fl validator.FieldLevel) bool {
	f := fl.Field()
	if f.Kind() != reflect.Slice || f.Len() != 2 {
		return false
	}
	lng, lat := f.Index(0), f.Index(1)
	if lng.Kind() != reflect.Float64 || lat.Kind() != reflect.Float64 {
		return false
	}
	return lng.Float() >= minLng && lng.Float() <= maxLng &&
		lat.Float() >= minLat && lat.Float() <= maxLat
}

func noDigit(fl validator.FieldLevel) bool {
	return !strings.ContainsFunc(fl.Field().String(), unicode.IsDigit)
}

// noMarkup accepts text the strict policy leaves alone apart from escaping.
// Tags, comments and entity references all change the sanitised form.
func noMarkup(policy *bluemonday.Policy) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return policy.Sanitize(s) == html.EscapeString(s)
	}
}
