package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pubshare/internal/baas"
)

// 集合名称
const (
	CollectionUsers            = "users"
	CollectionPublications     = "publications"
	CollectionCoAuthors        = "co_authors"
	CollectionPublicationFiles = "publication_files"
	CollectionComments         = "comments"
)

// UnexpectedErrorMessage replaces the message of errors that did not come
// from the backend or the domain layer.
const UnexpectedErrorMessage = "An unexpected error occurred"

// 以下错误的文本会原样展示给用户，因此保留首字母大写和完整句子
var (
	ErrNotAuthenticated    = errors.New("You must be signed in")
	ErrNotOwner            = errors.New("You can only edit your own publications")
	ErrPasswordMismatch    = errors.New("Passwords do not match")
	ErrPublicationNotFound = errors.New("Publication not found")
	ErrInvalidPreviewImage = errors.New("Preview images must be PNG, JPEG, GIF or WebP files")
	ErrEmptyComment        = errors.New("Comment cannot be empty")
	ErrEmptyQuery          = errors.New("Search query cannot be empty")
)

// domainErrors are shown to users verbatim.
var domainErrors = []error{
	ErrNotAuthenticated,
	ErrNotOwner,
	ErrPasswordMismatch,
	ErrPublicationNotFound,
	ErrInvalidPreviewImage,
	ErrEmptyComment,
	ErrEmptyQuery,
}

// Result is the {success, data|error, details?} envelope returned to callers
// of the domain functions.
type Result[T any] struct {
	Success bool                       `json:"success"`
	Data    T                          `json:"data,omitempty"`
	Error   string                     `json:"error,omitempty"`
	Details map[string]baas.FieldError `json:"details,omitempty"`
}

// NewResult wraps the outcome of a domain call.
func NewResult[T any](data T, err error) Result[T] {
	if err == nil {
		return Result[T]{Success: true, Data: data}
	}
	return Result[T]{Error: ErrorMessage(err), Details: ErrorDetails(err)}
}

// Failure builds a failed envelope without data.
func Failure[T any](err error) Result[T] {
	var zero T
	return NewResult(zero, err)
}

// DisplayError renders the message shown next to a form.
func (r Result[T]) DisplayError() string {
	return DisplayError(r.Error, r.Details)
}

// ErrorMessage returns the user facing message for err. Backend messages are
// passed through verbatim.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if ce, ok := baas.AsClientError(err); ok {
		return ce.Error()
	}
	for _, known := range domainErrors {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return UnexpectedErrorMessage
}

// ErrorDetails returns the field validation errors carried by err.
func ErrorDetails(err error) map[string]baas.FieldError {
	if ce, ok := baas.AsClientError(err); ok && len(ce.Data) > 0 {
		return ce.Data
	}
	var pe *PreviewImageError
	if errors.As(err, &pe) {
		return map[string]baas.FieldError{"preview_img": {Code: "validation_invalid_image", Message: pe.Error()}}
	}
	return nil
}

// IsUnexpected reports whether err would be shown as the generic message.
func IsUnexpected(err error) bool {
	return err != nil && ErrorMessage(err) == UnexpectedErrorMessage
}

// DisplayError 组合错误信息与字段详情："<error>. Details: f1: m1, f2: m2"
func DisplayError(message string, details map[string]baas.FieldError) string {
	if len(details) == 0 {
		return message
	}
	ce := baas.ClientError{Data: details}
	parts := make([]string, 0, len(details))
	for _, field := range ce.FieldNames() {
		parts = append(parts, fmt.Sprintf("%s: %s", field, details[field].Message))
	}
	return fmt.Sprintf("%s. Details: %s", message, strings.Join(parts, ", "))
}
