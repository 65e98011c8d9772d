package errors

import (
	stderrors "errors"
	"fmt"
)

// maxBodyDetail bounds how much of an upstream body is copied into Details.
const maxBodyDetail = 512

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried by the caller.
	Retryable bool `json:"retryable"`
	// StatusCode is the upstream HTTP status, 0 when no response was received.
	StatusCode int `json:"status,omitempty"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithBody records a truncated copy of an upstream response body.
func (e *AppError) WithBody(body []byte) *AppError {
	if len(body) == 0 {
		return e
	}
	if len(body) > maxBodyDetail {
		body = body[:maxBodyDetail]
	}
	return e.WithDetail("body", string(body))
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Constructors ---

// ModelLoadFailed reports a load request answered with anything but a
// no-content success.
func ModelLoadFailed(model string, status int) *AppError {
	msg := fmt.Sprintf("model %q could not be loaded", model)
	if status > 0 {
		msg = fmt.Sprintf("model %q could not be loaded (HTTP %d)", model, status)
	}
	return &AppError{
		Code: ErrCodeModelLoad, Message: msg, StatusCode: status,
		Details: map[string]any{"model": model, "status": status},
	}
}

// TransportFailed reports a connection-level failure or an unexpected HTTP
// status for the named operation.
func TransportFailed(op string, status int, cause error) *AppError {
	msg := fmt.Sprintf("%s failed", op)
	if status > 0 {
		msg = fmt.Sprintf("%s failed with HTTP %d", op, status)
	}
	return &AppError{
		Code: ErrCodeTransport, Message: msg, StatusCode: status,
		Retryable: true, Cause: cause,
		Details: map[string]any{"operation": op},
	}
}

// Timeout reports an operation that exceeded its deadline or idle limit.
// The code stays TRANSPORT_ERROR; the timeout flag lives in Details.
func Timeout(op string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeTransport, Message: fmt.Sprintf("%s timed out", op),
		Retryable: true, Cause: cause,
		Details: map[string]any{"operation": op, "timeout": true},
	}
}

// ProtocolViolation reports a stream frame that could not be decoded.
func ProtocolViolation(frame string, cause error) *AppError {
	if len(frame) > maxBodyDetail {
		frame = frame[:maxBodyDetail]
	}
	return &AppError{
		Code: ErrCodeProtocol, Message: "malformed stream frame",
		Cause: cause, Details: map[string]any{"frame": frame},
	}
}

// InferenceFailed reports an error frame sent by the server.
func InferenceFailed(content string) *AppError {
	return &AppError{
		Code: ErrCodeInference, Message: content,
	}
}

// ValidationFailed reports text that does not satisfy the named grammar.
func ValidationFailed(grammar string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeValidation, Message: fmt.Sprintf("output is not valid %s", grammar),
		Cause: cause, Details: map[string]any{"grammar": grammar},
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		Details: details,
	}
}

// --- Inspection ---

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// IsTimeout reports whether err is a timeout, whatever its code.
func IsTimeout(err error) bool {
	appErr, ok := AsAppError(err)
	if !ok {
		return false
	}
	if appErr.Code == ErrCodeTimeout {
		return true
	}
	v, _ := appErr.Details["timeout"].(bool)
	return v
}
