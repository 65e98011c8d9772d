package infer

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/inferstream/errors"
	"github.com/kbukum/inferstream/httpclient"
	"github.com/kbukum/inferstream/httpclient/rest"
	"github.com/kbukum/inferstream/logger"
	"github.com/kbukum/inferstream/observability"
	"github.com/kbukum/inferstream/protocol"
	"github.com/kbukum/inferstream/repair"
)

// Client drives completion sessions against one inference server. It is
// safe for concurrent use; every session owns its own connection and state.
type Client struct {
	cfg     Config
	http    *httpclient.Client
	rest    *rest.Client
	dialect Dialect
	log     *logger.Logger
	metrics *observability.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Defaults to the global logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMetrics sets the instruments. Defaults to instruments on the global
// meter provider.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithDialect uses d instead of looking cfg.Dialect up in the registry.
func WithDialect(d Dialect) Option {
	return func(c *Client) { c.dialect = d }
}

// New creates a client from cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	c := &Client{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.dialect != nil {
		c.cfg.Dialect = c.dialect.Name()
	} else {
		c.dialect, _ = GetDialect(c.cfg.Dialect)
	}
	if err := c.cfg.validate(c.dialect != nil); err != nil {
		return nil, err
	}

	hc, err := httpclient.New(c.cfg.httpConfig())
	if err != nil {
		return nil, errors.InvalidInput("http", err.Error()).WithCause(err)
	}
	c.http = hc
	c.rest = rest.NewFromClient(hc)

	if c.log == nil {
		c.log = logger.WithComponent("infer")
	}
	if c.metrics == nil {
		if m, err := observability.NewMetrics(observability.Meter()); err == nil {
			c.metrics = m
		}
	}
	c.log = c.log.WithFields(logger.Fields(logger.FieldDialect, c.dialect.Name()))
	return c, nil
}

// Dialect returns the dialect in use.
func (c *Client) Dialect() Dialect { return c.dialect }

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// Run loads model, streams the completion of req, and returns once the
// session is terminal. observer, which may be nil, receives every message
// in order, on the calling goroutine.
//
// Cancelling ctx ends the session as Cancelled with a nil error. Every other
// failure returns the partial Result together with the error.
func (c *Client) Run(ctx context.Context, model ModelRef, req CompletionRequest, observer func(protocol.Message)) (*Result, error) {
	s, err := c.newSession(ctx, model, req)
	if err != nil {
		return nil, err
	}
	defer s.cancel(nil)
	if observer == nil {
		observer = func(protocol.Message) {}
	}
	return s.drive(observer)
}

// Start runs a session in the background. Its messages arrive on
// Session.Messages.
func (c *Client) Start(ctx context.Context, model ModelRef, req CompletionRequest) (*Session, error) {
	s, err := c.newSession(ctx, model, req)
	if err != nil {
		return nil, err
	}
	s.msgs = make(chan protocol.Message)
	go func() {
		defer close(s.done)
		defer close(s.msgs)
		defer s.cancel(nil)
		s.result, s.err = s.drive(func(m protocol.Message) {
			select {
			case s.msgs <- m:
			case <-s.ctx.Done():
			}
		})
	}()
	return s, nil
}

// RunStructured runs the session like Run, then validates the text against
// g and repairs it at most once through the server's repair task. The
// returned Result carries the validated text.
func (c *Client) RunStructured(ctx context.Context, model ModelRef, req CompletionRequest, g repair.Grammar, observer func(protocol.Message)) (*Result, error) {
	res, err := c.Run(ctx, model, req, observer)
	if err != nil || res.State != StateCompleted {
		return res, err
	}
	out, err := repair.New(g, c.Repairer(),
		repair.WithLogger(c.log.WithFields(logger.Fields(logger.FieldSessionID, res.SessionID))),
		repair.WithMetrics(c.metrics),
	).Run(ctx, res.Text)
	if out != nil {
		res.Repair = out.Attempt
	}
	if err != nil {
		return res, err
	}
	res.Text = out.Text
	return res, nil
}

// Complete performs the same load as Run, then requests the completion
// without streaming and returns the text from the single JSON response.
func (c *Client) Complete(ctx context.Context, model ModelRef, req CompletionRequest) (*Result, error) {
	model, err := c.resolveModel(model)
	if err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	req = req.clone()
	req.Stream = false

	start := time.Now()
	ctx, span := observability.StartSpan(ctx, observability.SpanComplete,
		attribute.String(observability.AttrModel, model.Name))
	res := &Result{Model: model, State: StateLoading}

	if err := c.loadModel(ctx, model); err != nil {
		res.State = StateFailed
		observability.EndSpan(span, err)
		return res, err
	}

	path, body := c.dialect.CompletionRequest(model, req)
	var out completionResponse
	if err := c.postJSON(ctx, "completion", path, body, &out); err != nil {
		res.State = StateFailed
		observability.EndSpan(span, err)
		return res, err
	}

	res.State = StateCompleted
	res.Text = out.Text
	res.Stats = out.Stats
	res.Duration = time.Since(start)
	observability.EndSpan(span, nil)
	return res, nil
}

// Models lists the models the server can load.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	path := c.dialect.StatePath()
	if path == "" {
		return nil, errors.InvalidInput("dialect", fmt.Sprintf("%s does not list models", c.dialect.Name()))
	}
	resp, err := rest.Get[[]string](ctx, c.rest, path)
	if err != nil {
		return nil, transportError("models", err)
	}
	return resp.Data, nil
}

// Repairer returns a repair requester backed by the server's repair task.
func (c *Client) Repairer() *TaskRepairer {
	return &TaskRepairer{client: c, task: c.cfg.RepairTask}
}

func (c *Client) resolveModel(model ModelRef) (ModelRef, error) {
	if model.Name == "" && c.cfg.Model != nil {
		ctxSize := model.ContextSize
		model = *c.cfg.Model
		if ctxSize > 0 {
			model.ContextSize = ctxSize
		}
	}
	if model.Name == "" {
		return model, errors.InvalidInput("model.name", "a model name is required")
	}
	if model.ContextSize < 0 {
		return model, errors.InvalidInput("model.ctx", "must not be negative")
	}
	return model, nil
}

// loadModel issues the load request. Only 200 and 204 count as success.
func (c *Client) loadModel(ctx context.Context, model ModelRef) (err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanLoadModel,
		attribute.String(observability.AttrModel, model.Name))
	defer func() { observability.EndSpan(span, err) }()

	path, body := c.dialect.LoadRequest(model)
	resp, err := c.http.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   body,
	})
	if err != nil && resp == nil {
		return transportError("model load", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return errors.ModelLoadFailed(model.Name, resp.StatusCode).WithBody(resp.Body).WithCause(err)
	}
	return nil
}

// postJSON posts body and decodes a 200 JSON answer into out. The server
// answers 202 while another inference holds the model, which is reported
// as a transport failure.
func (c *Client) postJSON(ctx context.Context, op, path string, body, out any) error {
	resp, err := c.http.Do(ctx, httpclient.Request{
		Method:  http.MethodPost,
		Path:    path,
		Body:    body,
		Headers: map[string]string{"Accept": "application/json"},
	})
	if err != nil {
		return transportError(op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.TransportFailed(op, resp.StatusCode, nil).WithBody(resp.Body)
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return errors.TransportFailed(op, resp.StatusCode, fmt.Errorf("decode response: %w", err)).WithBody(resp.Body)
	}
	return nil
}

// abort asks the server to stop generating. Failures are only logged.
func (c *Client) abort(ctx context.Context, log *logger.Logger) {
	path := c.dialect.AbortPath()
	if !c.cfg.AbortOnCancel || path == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), abortTimeout)
	defer cancel()
	if _, err := c.http.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: path}); err != nil {
		log.Warn("abort request failed", logger.ErrorFields("abort", err))
		return
	}
	log.Debug("server abort requested")
}

// transportError wraps an httpclient failure as a TRANSPORT_ERROR AppError.
// AppErrors pass through unchanged.
func transportError(op string, err error) error {
	if _, ok := errors.AsAppError(err); ok {
		return err
	}
	if httpclient.IsTimeout(err) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Timeout(op, err)
	}
	appErr := errors.TransportFailed(op, httpclient.StatusCode(err), err)
	var he *httpclient.Error
	if stderrors.As(err, &he) {
		appErr = appErr.WithBody(he.Body)
	}
	return appErr
}
