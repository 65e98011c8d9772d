// Package errors provides the structured error type shared by the inference
// client packages.
//
// Every failure that reaches a caller is an [*AppError] carrying a
// machine-readable [ErrorCode], the upstream HTTP status when one exists, and
// diagnostic details such as the raw frame or the parse failure reason. The
// underlying cause stays reachable through Unwrap, so the standard library's
// errors.Is and errors.As keep working.
package errors
