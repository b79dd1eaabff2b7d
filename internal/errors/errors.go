// Package errors provides the typed error used across the rating engine and its hosts.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Type identifies the category of error
type Type string

const (
	// TypeInput indicates the caller supplied unusable shipment data
	TypeInput Type = "INPUT_ERROR"

	// TypeParsing indicates a rate card or request could not be parsed
	TypeParsing Type = "PARSING_ERROR"

	// TypeConfig indicates the rating configuration cannot serve the request
	TypeConfig Type = "CONFIG_ERROR"

	// TypeInternal indicates an internal error
	TypeInternal Type = "INTERNAL_ERROR"

	// TypeNotFound indicates a resource not found error
	TypeNotFound Type = "NOT_FOUND"

	// TypeNotSupported indicates an unsupported operation
	TypeNotSupported Type = "NOT_SUPPORTED"
)

// Code is a stable, machine-readable failure kind.
type Code string

const (
	CodeNoActiveRule      Code = "NO_ACTIVE_RULE"
	CodeMissingDimensions Code = "MISSING_DIMENSIONS"
	CodeInvalidDimension  Code = "INVALID_DIMENSION"
	CodeInvalidRule       Code = "INVALID_RULE"
	CodeInvalidZone       Code = "INVALID_ZONE"
	CodeInvalidModifier   Code = "INVALID_MODIFIER"
	CodeInvalidRange      Code = "INVALID_RANGE"
	CodeRuleNotFound      Code = "RULE_NOT_FOUND"
	CodeDuplicateID       Code = "DUPLICATE_ID"
	CodeInvalidRequest    Code = "INVALID_REQUEST"
)

// Sentinels for errors.Is. They compare by Code only.
var (
	ErrNoActiveRule      = &Error{Type: TypeConfig, Code: CodeNoActiveRule, Message: "no active pricing rule"}
	ErrMissingDimensions = &Error{Type: TypeInput, Code: CodeMissingDimensions, Message: "dimensions are required"}
	ErrInvalidDimension  = &Error{Type: TypeInput, Code: CodeInvalidDimension, Message: "dimension must be positive"}
	ErrRuleNotFound      = &Error{Type: TypeNotFound, Code: CodeRuleNotFound, Message: "pricing rule not found"}
)

// Error represents a domain error with context
type Error struct {
	Type    Type                   `json:"type"`
	Code    Code                   `json:"code,omitempty"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	label := string(e.Type)
	if e.Code != "" {
		label = string(e.Code)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", label, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", label, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code (or the same
// type when neither carries a code).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Code != "" || t.Code != "" {
		return e.Code == t.Code
	}
	return e.Type == t.Type
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new error
func New(errType Type, code Code, message string) *Error {
	return &Error{
		Type:    errType,
		Code:    code,
		Message: message,
	}
}

// Newf creates a new formatted error
func Newf(errType Type, code Code, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with context
func Wrap(errType Type, message string, cause error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsType checks if an error is of a specific type
func IsType(err error, t Type) bool {
	if e, ok := As(err); ok {
		return e.Type == t
	}
	return false
}

// HasCode checks if any error in err's tree carries a specific code
func HasCode(err error, c Code) bool {
	if c == "" {
		return false
	}
	return stderrors.Is(err, &Error{Code: c})
}

// NoActiveRule reports that no rule can price the given transport mode.
func NoActiveRule(transportMode string) *Error {
	return Newf(TypeConfig, CodeNoActiveRule, "no active pricing rule for transport mode %s", transportMode).
		WithContext("transport_mode", transportMode)
}

// MissingDimensions reports that a volume-billed mode was quoted without dimensions.
func MissingDimensions(transportMode string) *Error {
	return Newf(TypeInput, CodeMissingDimensions, "package dimensions are required for %s shipping", transportMode).
		WithContext("transport_mode", transportMode)
}

// InvalidDimension reports a non-positive length, width or height.
func InvalidDimension(name string, value string) *Error {
	return Newf(TypeInput, CodeInvalidDimension, "%s must be greater than zero, got %s", name, value).
		WithContext("dimension", name)
}

// RuleNotFound reports a management operation on an unknown rule id.
func RuleNotFound(id string) *Error {
	return Newf(TypeNotFound, CodeRuleNotFound, "pricing rule not found: %s", id).
		WithContext("rule_id", id)
}

// Config creates a configuration validation error
func Config(code Code, format string, args ...interface{}) *Error {
	return Newf(TypeConfig, code, format, args...)
}

// Parsing creates a parsing error
func Parsing(message string, cause error) *Error {
	return Wrap(TypeParsing, message, cause)
}

// Input creates an input error
func Input(message string) *Error {
	return New(TypeInput, "", message)
}

// NotSupported creates a not supported error
func NotSupported(operation string) *Error {
	return Newf(TypeNotSupported, "", "operation not supported: %s", operation)
}

// Internal creates an internal error
func Internal(message string, cause error) *Error {
	return Wrap(TypeInternal, message, cause)
}
