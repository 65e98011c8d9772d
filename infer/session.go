package infer

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/inferstream/demux"
	"github.com/kbukum/inferstream/errors"
	"github.com/kbukum/inferstream/httpclient"
	"github.com/kbukum/inferstream/logger"
	"github.com/kbukum/inferstream/observability"
	"github.com/kbukum/inferstream/protocol"
)

// ErrCancelled is the cancellation cause recorded by Session.Cancel.
var ErrCancelled = stderrors.New("infer: session cancelled")

// maxErrorBody caps how much of a rejected stream response is kept.
const maxErrorBody = 4 << 10

// Session is one completion call: a model load followed by a streamed
// completion. A Session is used once.
type Session struct {
	id     string
	client *Client
	model  ModelRef
	req    CompletionRequest
	log    *logger.Logger

	ctx    context.Context
	cancel context.CancelCauseFunc

	mu    sync.Mutex
	state State
	text  strings.Builder

	// msgs and done are only used by sessions from Client.Start.
	msgs   chan protocol.Message
	done   chan struct{}
	result *Result
	err    error
}

func (c *Client) newSession(ctx context.Context, model ModelRef, req CompletionRequest) (*Session, error) {
	model, err := c.resolveModel(model)
	if err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	req = req.clone()
	req.Stream = true

	s := &Session{
		id:     uuid.NewString(),
		client: c,
		model:  model,
		req:    req,
		state:  StateIdle,
		done:   make(chan struct{}),
	}
	s.ctx, s.cancel = context.WithCancelCause(ctx)
	s.log = c.log.WithFields(logger.Fields(
		logger.FieldSessionID, s.id,
		logger.FieldModel, model.String(),
	))
	return s, nil
}

// ID returns the session identifier used in logs and spans.
func (s *Session) ID() string { return s.id }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns the message channel of a started session. It is closed
// when the session ends. Messages arriving after Cancel are dropped.
func (s *Session) Messages() <-chan protocol.Message { return s.msgs }

// Cancel requests cancellation. It takes effect at the next check: before
// the completion request, or after the message currently being consumed.
func (s *Session) Cancel() { s.cancel(ErrCancelled) }

// Wait blocks until a started session ends and returns its result. Unread
// messages are discarded.
func (s *Session) Wait() (*Result, error) {
	if s.msgs != nil {
		for range s.msgs {
		}
	}
	<-s.done
	return s.result, s.err
}

// drive runs the session to a terminal state. observe is called on the
// driving goroutine, once per message, in stream order.
func (s *Session) drive(observe func(protocol.Message)) (*Result, error) {
	c := s.client
	start := time.Now()
	res := &Result{SessionID: s.id, Model: s.model}

	ctx, span := observability.StartSpan(s.ctx, observability.SpanSession,
		attribute.String(observability.AttrSessionID, s.id),
		attribute.String(observability.AttrModel, s.model.Name),
		attribute.String(observability.AttrDialect, c.dialect.Name()),
	)
	c.metrics.SessionStarted(ctx, s.model.Name)

	err := s.run(ctx, res, observe)

	res.State = s.State()
	res.Text = s.text.String()
	res.Duration = time.Since(start)

	// The session context may already be cancelled; metrics are recorded
	// against a context that is not.
	mctx := context.WithoutCancel(ctx)
	c.metrics.SessionEnded(mctx, s.model.Name, res.State.String(), res.Duration)
	span.SetAttributes(
		attribute.String(observability.AttrState, res.State.String()),
		attribute.Int(observability.AttrTokens, res.Tokens),
	)
	observability.EndSpan(span, err)

	fields := logger.Fields(
		logger.FieldState, res.State.String(),
		logger.FieldTokens, res.Tokens,
		logger.FieldDuration, res.Duration.String(),
	)
	if err != nil {
		s.log.WithError(err).Error("session failed", fields)
	} else {
		s.log.Info("session finished", fields)
	}
	return res, err
}

func (s *Session) run(ctx context.Context, res *Result, observe func(protocol.Message)) error {
	c := s.client
	if s.cancelled() {
		return s.cancelNow()
	}

	s.transition(StateLoading)
	if err := c.loadModel(ctx, s.model); err != nil {
		if s.cancelled() {
			return s.cancelNow()
		}
		return s.fail(err)
	}
	if s.cancelled() {
		return s.cancelNow()
	}

	s.transition(StateStreaming)
	ctx, span := observability.StartSpan(ctx, observability.SpanStream,
		attribute.String(observability.AttrModel, s.model.Name))
	path, body := c.dialect.CompletionRequest(s.model, s.req)
	requested := time.Now()
	resp, err := c.http.DoStream(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   body,
	})
	if err != nil {
		observability.EndSpan(span, err)
		if s.cancelled() {
			return s.cancelNow()
		}
		return s.fail(transportError("completion", err))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Close()
		failErr := errors.TransportFailed("completion", resp.StatusCode, nil).WithBody(body)
		observability.EndSpan(span, failErr)
		return s.fail(failErr)
	}
	s.log.Debug("completion stream opened", logger.Fields(
		logger.FieldStatus, resp.StatusCode,
		"content_type", resp.MediaType(),
	))

	stream := demux.NewStream(resp.Body)
	err = s.consume(ctx, stream, res, requested, observe)
	_ = stream.Close()
	observability.EndSpan(span, err)
	return err
}

// consume forwards messages until the stream ends. Cancellation is checked
// after each message is taken from the stream and before it is forwarded.
func (s *Session) consume(ctx context.Context, stream *demux.Stream, res *Result, requested time.Time, observe func(protocol.Message)) error {
	c := s.client
	for {
		msg, ok, err := stream.Next(ctx)
		if s.cancelled() {
			_ = stream.Close()
			c.abort(ctx, s.log)
			return s.cancelNow()
		}
		if err != nil {
			return s.fail(transportError("completion stream", err))
		}
		if !ok {
			break
		}

		switch {
		case msg.Kind == protocol.KindToken:
			if res.Tokens == 0 {
				res.FirstToken = time.Since(requested)
				c.metrics.FirstToken(ctx, s.model.Name, res.FirstToken)
			}
			res.Tokens++
			s.text.WriteString(msg.Content)
			c.metrics.Token(ctx, s.model.Name)

		case msg.IsProtocolError():
			res.ProtocolErrors++
			c.metrics.ProtocolError(ctx)
			s.log.Warn("malformed stream frame", logger.ErrorFields("decode", msg.Err))
			if c.cfg.MalformedFrames == AbortOnMalformed {
				observe(msg)
				return s.fail(msg.Err)
			}

		case msg.Kind == protocol.KindError:
			observe(msg)
			return s.fail(errors.InferenceFailed(msg.Content))

		case msg.Kind == protocol.KindSystem:
			s.system(msg, res)

		case msg.Kind == protocol.KindDone:
			observe(msg)
			s.transition(StateCompleted)
			return nil
		}
		observe(msg)
	}
	s.transition(StateCompleted)
	return nil
}

// system records what a system message says about the inference.
func (s *Session) system(msg protocol.Message, res *Result) {
	switch msg.Content {
	case "result":
		stats, err := decodeStats(msg.Data)
		if err != nil {
			s.log.Warn("unreadable inference stats", logger.ErrorFields("stats", err))
			return
		}
		if stats != nil {
			res.Stats = stats
		}
	default:
		s.log.Debug("system message", logger.Fields("content", msg.Content))
	}
}

// cancelled reports whether the session was cancelled by the caller. A
// parent deadline is not a cancellation; it fails the session as a timeout.
func (s *Session) cancelled() bool {
	if s.ctx.Err() == nil {
		return false
	}
	return !stderrors.Is(context.Cause(s.ctx), context.DeadlineExceeded)
}

func (s *Session) cancelNow() error {
	s.transition(StateCancelled)
	return nil
}

func (s *Session) fail(err error) error {
	s.transition(StateFailed)
	return err
}

func (s *Session) transition(to State) {
	s.mu.Lock()
	from := s.state
	ok := from.canTransition(to)
	if ok {
		s.state = to
	}
	s.mu.Unlock()

	if !ok {
		s.log.Error("invalid state transition", logger.Fields("from", from.String(), "to", to.String()))
		return
	}
	s.log.Debug("state changed", logger.Fields("from", from.String(), logger.FieldState, to.String()))
}
