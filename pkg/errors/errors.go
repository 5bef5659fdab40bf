// Package errors provides structured error types for roomforge.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI and API
//   - Machine-readable error codes for programmatic handling
//   - Stage attribution, so a generation failure names the pipeline
//     stage that produced it
//   - Error wrapping with context preservation
//
// # Error Taxonomy
//
// Four families of failures exist in the generator:
//
//   - Configuration errors (INVALID_REQUEST): contradictory request
//     parameters. Fail fast; no partial work is performed.
//   - Generation failures (INSUFFICIENT_SPACE, CONNECTIVITY_FAILED,
//     GENERATION_FAILED): a stage could not produce a valid structure.
//     Surfaced with the failing stage identified; no partial layout is
//     returned.
//   - Decode errors (DECODE_MALFORMED, DECODE_UNSUPPORTED_VERSION):
//     malformed or unsupported serialized data. Fail closed; no
//     best-effort structure is returned.
//   - Everything else (NOT_FOUND, STORE_ERROR, INTERNAL_ERROR).
//
// Optimizer non-convergence is deliberately not an error: it is a flag
// on the generation result.
//
// # Usage
//
//	err := errors.NewStage(errors.ErrCodeInsufficientSpace, errors.StagePartition,
//	    "bounding rectangle %dx%d below 2x minimum room size", w, h)
//	if errors.Is(err, errors.ErrCodeInsufficientSpace) {
//	    // Handle generation failure
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Configuration errors
	ErrCodeInvalidRequest Code = "INVALID_REQUEST"

	// Generation failures
	ErrCodeInsufficientSpace Code = "INSUFFICIENT_SPACE"
	ErrCodeConnectivity      Code = "CONNECTIVITY_FAILED"
	ErrCodeGeneration        Code = "GENERATION_FAILED"

	// Decode errors
	ErrCodeDecodeMalformed Code = "DECODE_MALFORMED"
	ErrCodeDecodeVersion   Code = "DECODE_UNSUPPORTED_VERSION"

	// Resource errors
	ErrCodeNotFound Code = "NOT_FOUND"
	ErrCodeStore    Code = "STORE_ERROR"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Pipeline stage names used for failure attribution.
const (
	StagePartition = "partition"
	StageClassify  = "classify"
	StageConnect   = "connect"
	StageOptimize  = "optimize"
	StageValidate  = "validate"
	StageDecode    = "decode"
)

// Error is a structured error with a code, an optional originating
// pipeline stage, and an optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Stage   string // Pipeline stage that failed, "" outside the pipeline
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := string(e.Code)
	if e.Stage != "" {
		prefix = fmt.Sprintf("%s [stage %s]", e.Code, e.Stage)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
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

// NewStage creates a new Error attributed to a pipeline stage.
func NewStage(code Code, stage, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Stage:   stage,
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

// WrapStage creates a new stage-attributed Error wrapping an existing error.
func WrapStage(code Code, stage string, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Stage:   stage,
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

// GetStage extracts the failing pipeline stage from an error.
// Returns empty string if the error carries no stage attribution.
func GetStage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsGenerationFailure reports whether err belongs to the generation
// failure family (a stage could not produce a valid structure).
func IsGenerationFailure(err error) bool {
	switch GetCode(err) {
	case ErrCodeInsufficientSpace, ErrCodeConnectivity, ErrCodeGeneration:
		return true
	}
	return false
}

// IsDecodeError reports whether err belongs to the decode error family.
func IsDecodeError(err error) bool {
	switch GetCode(err) {
	case ErrCodeDecodeMalformed, ErrCodeDecodeVersion:
		return true
	}
	return false
}
