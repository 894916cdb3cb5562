// Package errors provides coded domain errors for the field-mapping engine and the ThruText client.
//
// Usage:
//
//	// In the mapper - return typed errors carrying every offending column
//	return errors.AmbiguousColumns(dupes)
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrMissingCriticalField) {
//	    ...
//	}
//
//	// Or switch on the Code
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeConfigNotFound:
//	    case errors.CodeAmbiguousSynonym:
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes for configuration, reconciliation and mapping failures.
const (
	CodeConfigNotFound          Code = "CONFIG_NOT_FOUND"
	CodeConfigMalformed         Code = "CONFIG_MALFORMED"
	CodeAmbiguousSynonym        Code = "AMBIGUOUS_SYNONYM"
	CodeCoverageMissing         Code = "COVERAGE_MISSING"
	CodeReconciliationAmbiguity Code = "RECONCILIATION_AMBIGUITY"
	CodeAmbiguousColumns        Code = "AMBIGUOUS_COLUMNS"
	CodeMissingCriticalField    Code = "MISSING_CRITICAL_FIELD"
	CodeMissingID               Code = "MISSING_ID"
	CodeWriteError              Code = "WRITE_ERROR"
	CodeCacheCorrupt            Code = "CACHE_CORRUPT"
	CodeSetupRequired           Code = "SETUP_REQUIRED"
)

// General purpose codes.
const (
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeValidation    Code = "VALIDATION"
	CodeRemote        Code = "REMOTE"
	CodeRateLimited   Code = "RATE_LIMITED"
	CodeInternal      Code = "INTERNAL"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound, CodeConfigNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeValidation, CodeAmbiguousColumns, CodeMissingCriticalField:
		return http.StatusUnprocessableEntity
	case CodeSetupRequired:
		return http.StatusServiceUnavailable
	case CodeRemote:
		return http.StatusBadGateway
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrConfigNotFound          = &Error{Code: CodeConfigNotFound, Message: "config not found"}
	ErrConfigMalformed         = &Error{Code: CodeConfigMalformed, Message: "config malformed"}
	ErrAmbiguousSynonym        = &Error{Code: CodeAmbiguousSynonym, Message: "ambiguous synonym"}
	ErrCoverageMissing         = &Error{Code: CodeCoverageMissing, Message: "codes missing from registry"}
	ErrReconciliationAmbiguity = &Error{Code: CodeReconciliationAmbiguity, Message: "reconciliation ambiguity"}
	ErrAmbiguousColumns        = &Error{Code: CodeAmbiguousColumns, Message: "ambiguous columns"}
	ErrMissingCriticalField    = &Error{Code: CodeMissingCriticalField, Message: "missing critical field"}
	ErrMissingID               = &Error{Code: CodeMissingID, Message: "missing custom field id"}
	ErrWriteError              = &Error{Code: CodeWriteError, Message: "write failed"}
	ErrCacheCorrupt            = &Error{Code: CodeCacheCorrupt, Message: "cache corrupt"}
	ErrSetupRequired           = &Error{Code: CodeSetupRequired, Message: "setup required"}
	ErrNotFound                = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists           = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrUnauthorized            = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrValidation              = &Error{Code: CodeValidation, Message: "validation error"}
	ErrRemote                  = &Error{Code: CodeRemote, Message: "remote service error"}
	ErrInternal                = &Error{Code: CodeInternal, Message: "internal error"}
)

// New creates an error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Newf creates an error with the given code and a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ConfigNotFound creates a config not found error for path.
func ConfigNotFound(path string, cause error) *Error {
	return &Error{Code: CodeConfigNotFound, Message: "config file not found: " + path, cause: cause}
}

// ConfigMalformed creates a malformed config error for path.
func ConfigMalformed(path string, cause error) *Error {
	return &Error{Code: CodeConfigMalformed, Message: "config file malformed: " + path, cause: cause}
}

// AmbiguousSynonym reports every synonym claimed by more than one code.
func AmbiguousSynonym(conflicts []string) *Error {
	return listError(CodeAmbiguousSynonym, "synonyms claimed by more than one code", conflicts)
}

// CoverageMissing reports codes referenced by the synonym table but unknown to the registry.
func CoverageMissing(codes []string) *Error {
	return listError(CodeCoverageMissing, "codes missing from registry", codes)
}

// ReconciliationAmbiguity reports registry codes whose name already resolves to another code.
func ReconciliationAmbiguity(conflicts []string) *Error {
	return listError(CodeReconciliationAmbiguity, "registry codes claimed as synonyms of other codes", conflicts)
}

// AmbiguousColumns reports header columns that resolve to an already assigned code.
func AmbiguousColumns(columns []string) *Error {
	return listError(CodeAmbiguousColumns, "columns resolve to the same field", columns)
}

// MissingCriticalField reports the critical fields absent from a header row.
func MissingCriticalField(fields []string) *Error {
	return listError(CodeMissingCriticalField, "missing critical fields", fields)
}

// MissingID reports a custom code with no registry id.
func MissingID(code string) *Error {
	return &Error{Code: CodeMissingID, Message: "no id registered for code " + code, Details: []string{code}}
}

// WriteError wraps a persistence failure.
func WriteError(target string, cause error) *Error {
	return &Error{Code: CodeWriteError, Message: "failed to write " + target, cause: cause}
}

// CacheCorrupt wraps a cache decoding failure.
func CacheCorrupt(key string, cause error) *Error {
	return &Error{Code: CodeCacheCorrupt, Message: "cached document is corrupt: " + key, cause: cause}
}

// SetupRequired creates a setup-ordering error.
func SetupRequired(msg string) *Error {
	return &Error{Code: CodeSetupRequired, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// AlreadyExists creates an already exists error.
func AlreadyExists(msg string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: msg}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// DetailList returns the string list carried in an error's details, if any.
func DetailList(err error) []string {
	var e *Error
	if !errors.As(err, &e) {
		return nil
	}
	list, _ := e.Details.([]string)
	return list
}

func listError(code Code, msg string, items []string) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf("%s: %s", msg, strings.Join(items, ", ")),
		Details: items,
	}
}

// CodeOf returns the code of the first domain error in err's chain, or
// CodeInternal when err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
