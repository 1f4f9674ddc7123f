package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned when the requested resource does not exist, either
// locally (an unknown editor session or image) or on the remote API.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails a schema or business rule
// before (or instead of) reaching the remote API.
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrBusy is returned when a mutating operation is attempted while another
// one on the same resource is still in flight.
// Handlers should map this to HTTP 409 Conflict.
var ErrBusy = errors.New("operation already in progress")

// ErrNotPersisted is returned by image operations when the owning travel
// spot has not been saved yet and therefore has no id.
var ErrNotPersisted = errors.New("travel spot is not persisted")

// ErrInvalidStep is returned when a wizard operation is not allowed from the
// current step (e.g. jumping from anywhere but the review step).
var ErrInvalidStep = errors.New("operation not allowed in current step")

// ErrUnavailable wraps transport failures and 5xx responses from the remote
// API. These are retryable and never leave partial state behind.
// Handlers should map this to HTTP 502 Bad Gateway.
var ErrUnavailable = errors.New("remote api unavailable")

// FieldErrors maps a json field name to its error messages.
type FieldErrors map[string][]string

// Add appends msg to the messages of field.
func (f FieldErrors) Add(field, msg string) {
	f[field] = append(f[field], msg)
}

// Fields returns the field names in sorted order.
func (f FieldErrors) Fields() []string {
	out := make([]string, 0, len(f))
	for k := range f {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// String renders "field: msg, msg; field: msg" in field order.
func (f FieldErrors) String() string {
	parts := make([]string, 0, len(f))
	for _, k := range f.Fields() {
		parts = append(parts, k+": "+strings.Join(f[k], ", "))
	}
	return strings.Join(parts, "; ")
}

// ValidationError carries per-field messages for a failed client-side check.
// errors.Is(err, ErrValidation) reports true for it.
type ValidationError struct {
	Fields FieldErrors
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: FieldErrors{field: {msg}}}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation, e.Fields)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// APIError is a non-2xx response from the remote API, decoded from the
// `{ errors: { field_errors, non_field_errors } }` envelope.
type APIError struct {
	Status         int
	Message        string
	FieldErrors    FieldErrors
	NonFieldErrors []string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "remote api status %d", e.Status)
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if len(e.NonFieldErrors) > 0 {
		b.WriteString(": " + strings.Join(e.NonFieldErrors, "; "))
	}
	if len(e.FieldErrors) > 0 {
		b.WriteString(" (" + e.FieldErrors.String() + ")")
	}
	return b.String()
}

// Unwrap lets callers test APIError against the domain sentinels.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == 404:
		return ErrNotFound
	case e.Status == 400 || e.Status == 422:
		return ErrValidation
	case e.Status >= 500:
		return ErrUnavailable
	}
	return nil
}
