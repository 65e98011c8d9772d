// Package httpclient is the transport of inferstream: a configurable HTTP
// client with bearer authentication, TLS, and streaming responses.
//
// Failures come back as *Error values classified by HTTP status or by what
// went wrong on the wire (timeout, connection, cancellation). The client never
// retries; callers decide.
//
// # Basic Usage
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL: "http://localhost:5143",
//	    Auth:    httpclient.BearerAuth(apiKey),
//	})
//
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method: http.MethodPost,
//	    Path:   "/model/start",
//	    Body:   map[string]any{"name": "qwen", "ctx": 4096},
//	})
//
// # Streaming
//
// DoStream hands the body out unread. IdleTimeout bounds every gap between
// arriving bytes, including the wait for headers:
//
//	stream, err := client.DoStream(ctx, httpclient.Request{Method: http.MethodPost, Path: "/completion", Body: req})
//	defer stream.Close()
//
// The rest subpackage adds typed JSON helpers on top of Client.
package httpclient
