package errors

import "fmt"

// ErrorCode represents a Graft error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"   // 400
	ErrNotAllowed       ErrorCode = "NOT_ALLOWED"       // 403
	ErrNotFound         ErrorCode = "NOT_FOUND"         // 404
	ErrAmbiguousMatch   ErrorCode = "AMBIGUOUS_MATCH"   // 409
	ErrConflict         ErrorCode = "CONFLICT"          // 409
	ErrFileTooLarge     ErrorCode = "FILE_TOO_LARGE"    // 413
	ErrValidationFailed ErrorCode = "VALIDATION_FAILED" // 422
	ErrCancelled        ErrorCode = "CANCELLED"         // 499
	ErrIO               ErrorCode = "IO_ERROR"          // 500
	ErrInternal         ErrorCode = "INTERNAL"          // 500
)

// GraftError represents a structured error with code, status, and details.
type GraftError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *GraftError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *GraftError {
	return &GraftError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotAllowed creates a 403 error for path policy rejections.
func NewNotAllowed(msg string) *GraftError {
	return &GraftError{
		Code:    ErrNotAllowed,
		Status:  403,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing file, attempt, or match target.
func NewNotFound(kind, identifier string) *GraftError {
	return &GraftError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewAmbiguousMatch creates a 409 error for a pattern that matched more than
// once without an explicit occurrence mode.
func NewAmbiguousMatch(occurrences int, lines []int) *GraftError {
	return &GraftError{
		Code:    ErrAmbiguousMatch,
		Status:  409,
		Message: fmt.Sprintf("pattern matches %d locations; pass mode=first or mode=all to choose", occurrences),
		Details: map[string]any{"occurrences": occurrences, "lines": lines},
	}
}

// NewConflict creates a 409 error for targets that changed out from under us.
func NewConflict(msg string) *GraftError {
	return &GraftError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewFileTooLarge creates a 413 error when a file exceeds the size limit.
func NewFileTooLarge(max, actual int64) *GraftError {
	return &GraftError{
		Code:    ErrFileTooLarge,
		Status:  413,
		Message: fmt.Sprintf("file exceeds maximum size: %d bytes (max %d)", actual, max),
		Details: map[string]any{"max_bytes": max, "actual_bytes": actual},
	}
}

// NewValidationFailed creates a 422 error when candidate output fails the
// structural validation gate. The offending region is carried in the details
// so callers can surface it.
func NewValidationFailed(validator string, line int, problem string) *GraftError {
	return &GraftError{
		Code:    ErrValidationFailed,
		Status:  422,
		Message: fmt.Sprintf("replacement output failed %s validation: %s", validator, problem),
		Details: map[string]any{"validator": validator, "line": line, "problem": problem},
	}
}

// NewCancelled creates a 499 error for an operation interrupted by context
// cancellation.
func NewCancelled(op string) *GraftError {
	return &GraftError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
		Details: map[string]any{"op": op},
	}
}

// NewIO creates a 500 error for read/write failures.
func NewIO(op string, err error) *GraftError {
	return &GraftError{
		Code:    ErrIO,
		Status:  500,
		Message: fmt.Sprintf("%s: %v", op, err),
		Details: map[string]any{"op": op},
	}
}

// NewInternal creates a 500 error for unexpected internal errors. The
// underlying error text goes into the details for logging, not into the
// user-facing message.
func NewInternal(err error) *GraftError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &GraftError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error is a GraftError with the given code.
func Is(err error, code ErrorCode) bool {
	if gErr, ok := err.(*GraftError); ok {
		return gErr.Code == code
	}
	return false
}
