package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kbukum/inferstream/version"
)

// Client is a configurable HTTP client with auth, TLS, and streaming support.
// It never retries on its own.
type Client struct {
	httpClient   *http.Client
	streamClient *http.Client
	config       Config
}

// New creates a new HTTP client with the given configuration.
func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.TLS != nil {
		tlsCfg, err := cfg.TLS.Build()
		if err != nil {
			return nil, err
		}
		if tlsCfg != nil {
			transport.TLSClientConfig = tlsCfg
		}
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		// Streams run as long as data keeps arriving; the context and the
		// idle timer bound them instead of a global timeout.
		streamClient: &http.Client{Transport: transport},
		config:       cfg,
	}, nil
}

// Do executes an HTTP request and returns the complete response. Non-2xx
// responses are returned together with a classified *Error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransport(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(ctx, fmt.Errorf("read response body: %w", err))
	}

	result := &Response{
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
		Body:       body,
	}
	if classErr := ClassifyStatusCode(resp.StatusCode, body); classErr != nil {
		return result, classErr
	}
	return result, nil
}

// DoStream executes an HTTP request and returns the response with its body
// unread. The caller must close the returned StreamResponse.
//
// A non-2xx status fails before any body is handed out. With an idle
// timeout configured, the request is canceled when no bytes arrive for that
// long, and the pending or next read fails with a timeout *Error.
func (c *Client) DoStream(ctx context.Context, req Request) (*StreamResponse, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	idle := newIdleTimer(c.config.IdleTimeout, cancel)

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		idle.stop()
		cancel(nil)
		return nil, err
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "text/event-stream, application/x-ndjson")
	}

	//nolint:bodyclose // the body is owned by the returned StreamResponse
	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		idle.stop()
		classErr := classifyTransport(ctx, err)
		cancel(nil)
		return nil, classErr
	}

	if classErr := ClassifyStatusCode(resp.StatusCode, nil); classErr != nil {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		_ = resp.Body.Close()
		idle.stop()
		cancel(nil)
		classErr.Body = body
		return nil, classErr
	}
	idle.touch()

	return &StreamResponse{
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
		Body: &streamBody{
			ctx:    ctx,
			body:   resp.Body,
			idle:   idle,
			cancel: cancel,
		},
	}, nil
}

// Unwrap returns the underlying *http.Client for advanced use cases.
func (c *Client) Unwrap() *http.Client {
	return c.httpClient
}

// buildRequest constructs an *http.Request from the client config and request.
func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	url := req.Path
	if c.config.BaseURL != "" && !strings.HasPrefix(req.Path, "http://") && !strings.HasPrefix(req.Path, "https://") {
		url = strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(req.Path, "/")
	}

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("encode body: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("create request: %v", err))
	}

	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		httpReq.URL.RawQuery = q.Encode()
	}

	ua := c.config.UserAgent
	if ua == "" {
		ua = version.UserAgent()
	}
	httpReq.Header.Set("User-Agent", ua)
	for k, v := range c.config.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if body != nil && httpReq.Header.Get("Content-Type") == "" && contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	// Request-level auth overrides client-level.
	auth := c.config.Auth
	if req.Auth != nil {
		auth = req.Auth
	}
	auth.apply(httpReq)

	return httpReq, nil
}

// encodeBody converts a body value into an io.Reader and content type.
func encodeBody(body any) (io.Reader, string, error) {
	if body == nil {
		return nil, "", nil
	}
	switch v := body.(type) {
	case io.Reader:
		return v, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "text/plain", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

// flattenHeaders converts multi-value headers to single-value.
func flattenHeaders(h http.Header) map[string]string {
	result := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			result[k] = v[0]
		}
	}
	return result
}

// streamBody classifies read failures and feeds the idle timer.
type streamBody struct {
	ctx    context.Context
	body   io.ReadCloser
	idle   *idleTimer
	cancel context.CancelCauseFunc
	once   sync.Once
}

func (b *streamBody) Read(p []byte) (int, error) {
	n, err := b.body.Read(p)
	if n > 0 {
		b.idle.touch()
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return n, classifyTransport(b.ctx, err)
	}
	return n, err
}

func (b *streamBody) Close() error {
	err := b.body.Close()
	b.once.Do(func() {
		b.idle.stop()
		b.cancel(nil)
	})
	return err
}

// idleTimer cancels a request when it is not touched for d. A nil
// *idleTimer is disabled.
type idleTimer struct {
	d time.Duration
	t *time.Timer
}

func newIdleTimer(d time.Duration, cancel context.CancelCauseFunc) *idleTimer {
	if d <= 0 {
		return nil
	}
	return &idleTimer{
		d: d,
		t: time.AfterFunc(d, func() { cancel(ErrIdleTimeout) }),
	}
}

func (it *idleTimer) touch() {
	if it != nil {
		it.t.Reset(it.d)
	}
}

func (it *idleTimer) stop() {
	if it != nil {
		it.t.Stop()
	}
}
