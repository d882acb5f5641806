// Package errors defines the structured error taxonomy used across the
// indexing pipeline and the search engine. Errors carry a stable kind, a
// short human message, and the offending path or query.
package errors

import (
	"fmt"
)

// Kind groups errors by recovery policy, not by type.
type Kind string

const (
	// KindConfig is missing or malformed input configuration. Surfaced.
	KindConfig Kind = "config"

	// KindParse covers extraction failures. Recovered locally: the pipeline
	// logs and continues with the next file.
	KindParse Kind = "parse"

	// KindProvider covers embedding/LLM backend failures. Recovered within the
	// provider chain; surfaced only when the whole chain fails.
	KindProvider Kind = "provider"

	// KindStore covers I/O, corruption, and dimension mismatch. Surfaced.
	KindStore Kind = "store"

	// KindSearch covers query processing. Search never fails on well-formed
	// input; FTS syntax errors degrade to an empty ranked list.
	KindSearch Kind = "search"
)

// Stable error codes within each kind.
const (
	CodeInvalidConfig        = "invalid_config"
	CodeInvalidSyntax        = "invalid_syntax"
	CodeUnsupportedExtension = "unsupported_extension"
	CodeEmptyContent         = "empty_content"
	CodeParsingFailed        = "parsing_failed"
	CodeNotAvailable         = "not_available"
	CodeAPIError             = "api_error"
	CodeNetworkError         = "network_error"
	CodeRateLimited          = "rate_limited"
	CodeTimeout              = "timeout"
	CodeAllProvidersFailed   = "all_providers_failed"
	CodeInvalidInput         = "invalid_input"
	CodeIO                   = "io"
	CodeCorruption           = "corruption"
	CodeDimensionMismatch    = "dimension_mismatch"
)

// Error is the structured error type. User-visible failures always contain a
// stable kind identifier, a short message, and the offending path or query.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Path    string // offending file path, if any
	Query   string // offending query, if any
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Path != "":
		return fmt.Sprintf("[%s/%s] %s: %s", e.Kind, e.Code, e.Path, e.Message)
	case e.Query != "":
		return fmt.Sprintf("[%s/%s] %q: %s", e.Kind, e.Code, e.Query, e.Message)
	default:
		return fmt.Sprintf("[%s/%s] %s", e.Kind, e.Code, e.Message)
	}
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code, enabling errors.Is against sentinel values.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithPath attaches the offending file path. Returns the error for chaining.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithQuery attaches the offending query. Returns the error for chaining.
func (e *Error) WithQuery(query string) *Error {
	e.Query = query
	return e
}

// New creates a structured error.
func New(kind Kind, code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Cause: cause}
}

// ConfigError creates a config-kind error.
func ConfigError(message string, cause error) *Error {
	return New(KindConfig, CodeInvalidConfig, message, cause)
}

// ParseError creates a parse-kind error with the given code.
func ParseError(code, message, path string) *Error {
	return New(KindParse, code, message, nil).WithPath(path)
}

// ProviderError creates a provider-kind error with the given code.
func ProviderError(code, message string, cause error) *Error {
	return New(KindProvider, code, message, cause)
}

// StoreError creates a store-kind error.
func StoreError(code, message string, cause error) *Error {
	return New(KindStore, code, message, cause)
}

// DimensionMismatch reports a vector of the wrong width. This is a programmer
// error, never retried.
func DimensionMismatch(expected, got int) *Error {
	return New(KindStore, CodeDimensionMismatch,
		fmt.Sprintf("dimension mismatch: expected %d, got %d", expected, got), nil)
}

// KindOf extracts the kind from a structured error, or "" otherwise.
func KindOf(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is a structured error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
