package baas

import (
	"errors"
	"net/http"
	"sort"
	"strings"
)

// FieldError describes a validation failure for a single field.
type FieldError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ClientError is returned by every Client operation that fails. Status is 0
// for transport failures.
type ClientError struct {
	Status  int                   `json:"code"`
	Message string                `json:"message"`
	Data    map[string]FieldError `json:"data,omitempty"`
	Err     error                 `json:"-"`
}

func (e *ClientError) Error() string {
	if e == nil {
		return ""
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return msg
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// FieldNames returns the names of the fields with validation errors, sorted.
func (e *ClientError) FieldNames() []string {
	if e == nil {
		return nil
	}
	names := make([]string, 0, len(e.Data))
	for name := range e.Data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewClientError builds a ClientError with an optional cause.
func NewClientError(status int, message string, cause error) *ClientError {
	return &ClientError{Status: status, Message: message, Err: cause}
}

// NewValidationError builds a 400 error carrying field details.
func NewValidationError(message string, fields map[string]FieldError) *ClientError {
	return &ClientError{Status: http.StatusBadRequest, Message: message, Data: fields}
}

// AsClientError unwraps err into a ClientError.
func AsClientError(err error) (*ClientError, bool) {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	ce, ok := AsClientError(err)
	return ok && ce.Status == http.StatusNotFound
}

// IsForbidden reports whether err is a 401/403 from the backend.
func IsForbidden(err error) bool {
	ce, ok := AsClientError(err)
	return ok && (ce.Status == http.StatusForbidden || ce.Status == http.StatusUnauthorized)
}
