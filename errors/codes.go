package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Session errors. These are terminal for the session that produced them.
const (
	// ErrCodeModelLoad indicates the model-load request did not succeed.
	ErrCodeModelLoad ErrorCode = "MODEL_LOAD_FAILED"
	// ErrCodeTransport indicates a connection failure, a non-success HTTP
	// status on the completion request, or a timeout.
	ErrCodeTransport ErrorCode = "TRANSPORT_ERROR"
	// ErrCodeInference indicates the server reported an error frame mid-stream.
	ErrCodeInference ErrorCode = "INFERENCE_ERROR"
	// ErrCodeValidation indicates the final text failed its structural grammar
	// after the repair attempt.
	ErrCodeValidation ErrorCode = "VALIDATION_FAILED"
)

// Frame errors. Only terminal when the malformed-frame policy says so.
const (
	// ErrCodeProtocol indicates a stream frame that could not be decoded.
	ErrCodeProtocol ErrorCode = "PROTOCOL_ERROR"
)

// Caller errors.
const (
	// ErrCodeInvalidInput indicates invalid configuration or request input.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeTimeout indicates an operation exceeded its deadline.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTransport: true,
	ErrCodeTimeout:   true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
// The client itself never retries; this is advice for the caller.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
