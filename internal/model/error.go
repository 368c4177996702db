package model

import (
	"sort"
	"strings"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON      = "INVALID_JSON"
	ErrCodeMissingField     = "MISSING_FIELD"
	ErrCodeValidation       = "VALIDATION_FAILED"
	ErrCodeProductNotFound  = "PRODUCT_NOT_FOUND"
	ErrCodeEditorClosed     = "EDITOR_CLOSED"
	ErrCodeUnknownField     = "UNKNOWN_FIELD"
	ErrCodeUnsupportedImage = "UNSUPPORTED_IMAGE"
	ErrCodeExportFailed     = "EXPORT_FAILED"
	ErrCodeUnavailable      = "UNAVAILABLE"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrProductNotFound  = NewDomainError(ErrCodeProductNotFound, "Product not found")
	ErrEditorClosed     = NewDomainError(ErrCodeEditorClosed, "No product is being edited")
	ErrUnknownField     = NewDomainError(ErrCodeUnknownField, "Field cannot be edited")
	ErrUnsupportedImage = NewDomainError(ErrCodeUnsupportedImage, "File is not a supported image")
	ErrExportFailed     = NewDomainError(ErrCodeExportFailed, "PDF export failed")
	ErrNoImageStore     = NewDomainError(ErrCodeUnavailable, "No image storage configured")
)

// ValidationError lists the fields of a product that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Code returns the API error code for validation failures.
func (e *ValidationError) Code() string {
	return ErrCodeValidation
}
