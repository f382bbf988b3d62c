// Package apperr defines the error taxonomy shared by the engine, the service
// and the transports.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
)

// ValidationError reports malformed or incomplete input. Fields maps a field
// path (e.g. "name" or "knowledgeItems[2].id") to a human-readable reason.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError for a single field.
func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: fmt.Sprintf(format, args...)}}
}

// Merge adds the fields of other (prefixed) into e, allocating as needed.
func (e *ValidationError) Merge(prefix string, other *ValidationError) *ValidationError {
	if other == nil {
		return e
	}
	if e == nil {
		e = &ValidationError{}
	}
	if e.Fields == nil {
		e.Fields = make(map[string]string, len(other.Fields))
	}
	for k, v := range other.Fields {
		e.Fields[prefix+k] = v
	}
	return e
}

// FromValidation converts the result of an ozzo-validation call into a
// *ValidationError. Internal rule errors are returned unchanged; nil stays nil.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}
	var internal validation.InternalError
	if errors.As(err, &internal) {
		return err
	}
	var errs validation.Errors
	if errors.As(err, &errs) {
		out := &ValidationError{Fields: make(map[string]string, len(errs))}
		flatten("", errs, out.Fields)
		return out
	}
	return &ValidationError{Fields: map[string]string{"": err.Error()}}
}

func flatten(prefix string, errs validation.Errors, into map[string]string) {
	for k, v := range errs {
		if v == nil {
			continue
		}
		var nested validation.Errors
		if errors.As(v, &nested) {
			flatten(prefix+k+".", nested, into)
			continue
		}
		into[prefix+k] = v.Error()
	}
}

// NotFoundError reports that an operation referenced a nonexistent identifier.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound builds a NotFoundError.
func NotFound(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}
