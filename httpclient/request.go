package httpclient

import (
	"io"
	"mime"
	"net/http"
)

// Request describes an outbound HTTP request.
type Request struct {
	// Method is the HTTP method (GET, POST, PUT, PATCH, DELETE, etc).
	Method string
	// Path is appended to the client's BaseURL. Can be a full URL if BaseURL is empty.
	Path string
	// Headers are request-specific headers (merged with client defaults).
	Headers map[string]string
	// Query are URL query parameters.
	Query map[string]string
	// Body is the request body. Accepts io.Reader, []byte, string, or any value
	// that will be JSON-encoded.
	Body any
	// Auth overrides the client-level auth for this request.
	Auth *AuthConfig
}

// Response is the result of an HTTP request.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers.
	Headers map[string]string
	// Body is the raw response body.
	Body []byte
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// StreamResponse wraps a streaming HTTP response. Reads from Body report
// transport failures as *Error values.
type StreamResponse struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers.
	Headers map[string]string
	// Body is the streaming body.
	Body io.ReadCloser
}

// MediaType returns the response media type without parameters.
func (r *StreamResponse) MediaType() string {
	mt, _, err := mime.ParseMediaType(r.Headers[http.CanonicalHeaderKey("Content-Type")])
	if err != nil {
		return ""
	}
	return mt
}

// IsEventStream reports whether the server declared Server-Sent Events.
func (r *StreamResponse) IsEventStream() bool {
	return r.MediaType() == "text/event-stream"
}

// Close releases the connection.
func (r *StreamResponse) Close() error {
	if r.Body == nil {
		return nil
	}
	return r.Body.Close()
}
