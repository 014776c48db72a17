package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrMalformedBody        = errors.New("invalid json body")
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrForbidden            = errors.New("insufficient scope")
)

// FieldError is a single schema violation keyed by the top-level payload field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type FieldErrors []FieldError

// Sorted returns a copy ordered by field name, keeping per-field order stable.
func (fe FieldErrors) Sorted() FieldErrors {
	out := make(FieldErrors, len(fe))
	copy(out, fe)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// ValidationError is returned when a payload does not satisfy its resource schema.
type ValidationError struct {
	Errors FieldErrors
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(parts, "; "))
}

// NotFoundError names the resource kind that was not found. It matches ErrNotFound.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
