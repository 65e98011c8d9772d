package rest

import "github.com/kbukum/inferstream/httpclient"

// Convenience re-exports so REST callers can check errors without importing
// httpclient.

// IsNotFound checks if the error is a 404 Not Found.
func IsNotFound(err error) bool { return httpclient.IsNotFound(err) }

// IsAuth checks if the error is a 401/403 authentication error.
func IsAuth(err error) bool { return httpclient.IsAuth(err) }

// IsTimeout checks if the error is a timeout.
func IsTimeout(err error) bool { return httpclient.IsTimeout(err) }
