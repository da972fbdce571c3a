// Package errors provides unified error handling across the promptweaver
// engine.
//
// SYSTEM ARCHITECTURE ROLE:
// This module is the foundation for error reporting in the resolution
// pipeline. Every stage (document store, schema parser, validator,
// inheritance/import/template resolvers, combination generator) surfaces
// failures as AppErrors so the CLI and machine consumers see one
// consistent shape.
//
// KEY RESPONSIBILITIES:
// - Define the error codes of the resolution taxonomy (document, schema,
//   validation, circular inheritance, type mismatch, duplicate key,
//   unresolved placeholder, selector syntax)
// - Attach severity, category and arbitrary context to every error
// - Keep the underlying cause reachable through errors.Unwrap
//
// USAGE PATTERNS:
// - Create errors with the per-family constructors (DocumentError,
//   DuplicateKeyError, ...)
// - Wrap lower-level failures with Wrap() to add pipeline context
// - Check and extract with IsAppError()/GetAppError()
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Document loading errors
	ErrCodeDocument      ErrorCode = "DOCUMENT_ERROR"
	ErrCodeFileNotFound  ErrorCode = "FILE_NOT_FOUND"
	ErrCodeMalformedYAML ErrorCode = "MALFORMED_YAML"

	// Schema errors
	ErrCodeSchema              ErrorCode = "SCHEMA_ERROR"
	ErrCodeMissingField        ErrorCode = "MISSING_FIELD"
	ErrCodeLegacyField         ErrorCode = "LEGACY_FIELD"
	ErrCodeMissingInjection    ErrorCode = "MISSING_PROMPT_INJECTION"
	ErrCodeReservedPlaceholder ErrorCode = "RESERVED_PLACEHOLDER"

	// Validation
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"

	// Resolution errors
	ErrCodeCircularInheritance   ErrorCode = "CIRCULAR_INHERITANCE"
	ErrCodeTypeMismatch          ErrorCode = "TYPE_MISMATCH"
	ErrCodeDuplicateKey          ErrorCode = "DUPLICATE_KEY"
	ErrCodeUnresolvedPlaceholder ErrorCode = "UNRESOLVED_PLACEHOLDER"
	ErrCodeSelectorSyntax        ErrorCode = "SELECTOR_SYNTAX"
	ErrCodeIndexOutOfRange       ErrorCode = "INDEX_OUT_OF_RANGE"
	ErrCodeUnknownKey            ErrorCode = "UNKNOWN_KEY"

	// Everything else
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityInfo     ErrorSeverity = "info"
	SeverityWarning  ErrorSeverity = "warning"
	SeverityError    ErrorSeverity = "error"
	SeverityCritical ErrorSeverity = "critical"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	CategoryDocument   ErrorCategory = "document"
	CategorySchema     ErrorCategory = "schema"
	CategoryValidation ErrorCategory = "validation"
	CategoryResolution ErrorCategory = "resolution"
	CategorySystem     ErrorCategory = "system"
)

// AppError represents a standardized application error
type AppError struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Details   string         `json:"details,omitempty"`
	Severity  ErrorSeverity  `json:"severity"`
	Category  ErrorCategory  `json:"category"`
	Cause     error          `json:"-"`
	Context   map[string]any `json:"context,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string) *AppError {
	category, severity := categorizeError(code)
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  severity,
		Category:  category,
		Timestamp: time.Now(),
	}
}

// Wrap wraps an existing error with application error context
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := NewAppError(code, message)
	appErr.Cause = err
	return appErr
}

// categorizeError determines the category and severity based on error code
func categorizeError(code ErrorCode) (ErrorCategory, ErrorSeverity) {
	switch code {
	case ErrCodeDocument, ErrCodeFileNotFound, ErrCodeMalformedYAML:
		return CategoryDocument, SeverityError

	case ErrCodeSchema, ErrCodeMissingField, ErrCodeLegacyField,
		ErrCodeMissingInjection, ErrCodeReservedPlaceholder:
		return CategorySchema, SeverityError

	case ErrCodeValidation:
		return CategoryValidation, SeverityWarning

	case ErrCodeCircularInheritance, ErrCodeTypeMismatch, ErrCodeDuplicateKey,
		ErrCodeSelectorSyntax, ErrCodeIndexOutOfRange, ErrCodeUnknownKey:
		return CategoryResolution, SeverityError

	// Silent under-generation is the failure mode this engine exists to
	// prevent, so an unresolved placeholder outranks its siblings.
	case ErrCodeUnresolvedPlaceholder:
		return CategoryResolution, SeverityCritical

	case ErrCodeInternalError:
		return CategorySystem, SeverityCritical

	default:
		return CategorySystem, SeverityError
	}
}

// IsAppError checks if an error is or wraps an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts an AppError from an error chain, or converts the
// error to one
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, ErrCodeInternalError, "Internal error occurred")
}

// Constructors for the error families named by the resolution taxonomy.

// DocumentError reports a missing, unreadable or malformed document.
func DocumentError(path string, cause error) *AppError {
	return Wrap(cause, ErrCodeDocument, fmt.Sprintf("failed to load document %s", path)).
		WithContext("path", path)
}

// SchemaError reports a structurally invalid document.
func SchemaError(code ErrorCode, file, message string) *AppError {
	return NewAppError(code, message).WithContext("file", file)
}

// CircularInheritanceError names the implements cycle that was detected.
func CircularInheritanceError(cycle []string) *AppError {
	return NewAppError(ErrCodeCircularInheritance,
		fmt.Sprintf("circular inheritance: %s", joinArrow(cycle))).
		WithContext("cycle", cycle)
}

// TypeMismatchError reports a chunk inheriting from a chunk of another type.
func TypeMismatchError(child, parent, childType, parentType string) *AppError {
	return NewAppError(ErrCodeTypeMismatch,
		fmt.Sprintf("chunk %s (type %q) cannot implement %s (type %q)", child, childType, parent, parentType)).
		WithContext("child", child).
		WithContext("parent", parent)
}

// DuplicateKeyError reports an import key collision and both sources.
func DuplicateKeyError(placeholder, key string, sources []string) *AppError {
	return NewAppError(ErrCodeDuplicateKey,
		fmt.Sprintf("import %q: key %q supplied by multiple sources", placeholder, key)).
		WithDetails(joinComma(sources)).
		WithContext("placeholder", placeholder).
		WithContext("key", key).
		WithContext("sources", sources)
}

// UnresolvedPlaceholderError names the missing placeholder and everything
// that was available, so the author sees the typo instead of getting
// silently fewer images.
func UnresolvedPlaceholderError(name string, available, suggestions []string) *AppError {
	err := NewAppError(ErrCodeUnresolvedPlaceholder,
		fmt.Sprintf("placeholder %q has no matching import, chunk or default", name)).
		WithContext("placeholder", name).
		WithContext("available", available)
	if len(available) > 0 {
		err.WithDetails(fmt.Sprintf("available: %s", joinComma(available)))
	}
	if len(suggestions) > 0 {
		err.WithContext("suggestions", suggestions)
		err.WithDetails(fmt.Sprintf("did you mean %q? available: %s", suggestions[0], joinComma(available)))
	}
	return err
}

// SelectorError reports a malformed selector expression.
func SelectorError(expr, message string) *AppError {
	return NewAppError(ErrCodeSelectorSyntax,
		fmt.Sprintf("invalid selector %q: %s", expr, message)).
		WithContext("selector", expr)
}

func joinArrow(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " -> "
		}
		out += p
	}
	return out
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
