package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kbukum/inferstream/httpclient"
)

// Client is a JSON-focused REST client that wraps the base HTTP client.
type Client struct {
	http *httpclient.Client
}

// New creates a new REST client with its own transport.
func New(cfg httpclient.Config) (*Client, error) {
	c, err := httpclient.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{http: c}, nil
}

// NewFromClient creates a REST client sharing an existing HTTP client.
func NewFromClient(c *httpclient.Client) *Client {
	return &Client{http: c}
}

// HTTP returns the underlying HTTP client.
func (c *Client) HTTP() *httpclient.Client {
	return c.http
}

// RequestOption configures a single REST request.
type RequestOption func(*httpclient.Request)

// WithQuery adds query parameters to the request.
func WithQuery(params map[string]string) RequestOption {
	return func(r *httpclient.Request) {
		r.Query = params
	}
}

// WithHeaders adds headers to the request.
func WithHeaders(headers map[string]string) RequestOption {
	return func(r *httpclient.Request) {
		for k, v := range headers {
			r.Headers[k] = v
		}
	}
}

// Response wraps a typed REST response.
type Response[T any] struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers.
	Headers map[string]string
	// Data is the decoded response body. It is the zero value for empty bodies.
	Data T
}

// Get performs a GET request and decodes the JSON response into type T.
func Get[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) (*Response[T], error) {
	return do[T](ctx, c, http.MethodGet, path, nil, opts...)
}

// Post performs a POST request with a JSON body and decodes the response into type T.
func Post[T any](ctx context.Context, c *Client, path string, body any, opts ...RequestOption) (*Response[T], error) {
	return do[T](ctx, c, http.MethodPost, path, body, opts...)
}

func do[T any](ctx context.Context, c *Client, method, path string, body any, opts ...RequestOption) (*Response[T], error) {
	req := httpclient.Request{
		Method:  method,
		Path:    path,
		Body:    body,
		Headers: map[string]string{"Accept": "application/json"},
	}
	for _, opt := range opts {
		opt(&req)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	out := &Response[T]{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
	}
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &out.Data); err != nil {
			return nil, fmt.Errorf("httpclient/rest: decode response: %w", err)
		}
	}
	return out, nil
}
