// Package errors provides structured error types for the rulegraph engine.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the engine and the CLI
//   - Machine-readable error codes for programmatic handling
//   - User-facing messages for configuration mistakes, reported verbatim
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Codes fall into three families:
//   - User configuration errors (INVALID_*, UNKNOWN_*, DEPENDENCY_CYCLE): fatal for
//     the affected rule, shown to the user as-is.
//   - Plugin errors (PLUGIN_*): recoverable; they are collected as diagnostics and
//     the engine continues with whatever registered successfully.
//   - Internal errors (INTERNAL_ERROR): invariant violations that indicate a bug in
//     the engine's construction order. They are never expected by users.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidFlavor, "%s: unsupported flavors %v", target, flavors)
//	if errors.Is(err, errors.ErrCodeInvalidFlavor) {
//	    // Handle user error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodePluginArchive, origErr, "open %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// User configuration errors
	ErrCodeInvalidTarget      Code = "INVALID_TARGET"
	ErrCodeInvalidFlavor      Code = "INVALID_FLAVOR"
	ErrCodeInvalidExportedDep Code = "INVALID_EXPORTED_DEP"
	ErrCodeInvalidArg         Code = "INVALID_ARG"
	ErrCodeInvalidMacro       Code = "INVALID_MACRO"
	ErrCodeInvalidConfig      Code = "INVALID_CONFIG"
	ErrCodeDependencyCycle    Code = "DEPENDENCY_CYCLE"
	ErrCodeUnknownRuleKind    Code = "UNKNOWN_RULE_KIND"
	ErrCodeUnknownTarget      Code = "UNKNOWN_TARGET"
	ErrCodeDuplicateTarget    Code = "DUPLICATE_TARGET"

	// Plugin loading errors (recoverable)
	ErrCodePluginArchive     Code = "PLUGIN_ARCHIVE"
	ErrCodePluginSymbol      Code = "PLUGIN_SYMBOL"
	ErrCodePluginDuplicate   Code = "PLUGIN_DUPLICATE"
	ErrCodePluginInstantiate Code = "PLUGIN_INSTANTIATE"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsUserError reports whether err is a user configuration error, i.e. one that
// should be surfaced to the end user verbatim.
func IsUserError(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidTarget, ErrCodeInvalidFlavor, ErrCodeInvalidExportedDep,
		ErrCodeInvalidArg, ErrCodeInvalidMacro, ErrCodeInvalidConfig,
		ErrCodeDependencyCycle, ErrCodeUnknownRuleKind, ErrCodeUnknownTarget,
		ErrCodeDuplicateTarget:
		return true
	}
	return false
}

// IsPluginError reports whether err belongs to the recoverable plugin family.
func IsPluginError(err error) bool {
	switch GetCode(err) {
	case ErrCodePluginArchive, ErrCodePluginSymbol, ErrCodePluginDuplicate, ErrCodePluginInstantiate:
		return true
	}
	return false
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}

// Internal panics with an INTERNAL_ERROR. It is reserved for invariant
// violations caused by engine bugs (for example, a view requested for a rule
// that was never registered), never for user input.
func Internal(format string, args ...any) {
	panic(New(ErrCodeInternal, format, args...))
}
