package repair

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/kbukum/inferstream/errors"
	"github.com/kbukum/inferstream/logger"
	"github.com/kbukum/inferstream/observability"
)

// Requester asks the inference service to correct text.
type Requester interface {
	Repair(ctx context.Context, text, instruction string) (string, error)
}

// RequesterFunc adapts a function to Requester.
type RequesterFunc func(ctx context.Context, text, instruction string) (string, error)

// Repair calls f.
func (f RequesterFunc) Repair(ctx context.Context, text, instruction string) (string, error) {
	return f(ctx, text, instruction)
}

// RepairAttempt records the single repair request of a validation run.
type RepairAttempt struct {
	OriginalText string
	Instruction  string
	// RepairedText is the fence-stripped response. It is empty when the
	// request itself failed, in which case Err is set.
	RepairedText string
	Err          error
}

// Outcome is the result of a validation run.
type Outcome struct {
	// Text is the validated text with fences removed.
	Text string
	// Attempt is nil when the original text was valid.
	Attempt *RepairAttempt
}

// Repaired reports whether Text came from the repair request.
func (o *Outcome) Repaired() bool { return o.Attempt != nil }

// Pipeline validates text against a grammar and makes at most one repair
// request when it does not parse.
type Pipeline struct {
	grammar     Grammar
	requester   Requester
	instruction string
	log         *logger.Logger
	metrics     *observability.Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithInstruction overrides the natural-language instruction sent with the
// repair request.
func WithInstruction(s string) Option {
	return func(p *Pipeline) { p.instruction = s }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithMetrics records validation outcomes on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New creates a pipeline for grammar g that repairs through r.
func New(g Grammar, r Requester, opts ...Option) *Pipeline {
	p := &Pipeline{
		grammar:     g,
		requester:   r,
		instruction: DefaultInstruction(g),
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DefaultInstruction is the repair instruction for g.
func DefaultInstruction(g Grammar) string {
	return fmt.Sprintf("Fix the syntax errors so the text is valid %s. Keep the content unchanged and return only the corrected %s.", g.Name(), g.Name())
}

// Run validates raw. Valid input is returned without contacting the
// requester. Otherwise raw is sent for repair exactly once and the response
// is validated once; a second failure is a VALIDATION_FAILED error.
//
// An AppError from the requester is returned as is. Any other requester
// error becomes the cause of a VALIDATION_FAILED error.
func (p *Pipeline) Run(ctx context.Context, raw string) (*Outcome, error) {
	name := p.grammar.Name()
	text := StripFences(raw)
	firstErr := p.grammar.Validate(text)
	if firstErr == nil {
		p.metrics.Repair(ctx, name, observability.RepairNotNeeded)
		return &Outcome{Text: text}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanRepair)
	log := p.log.WithFields(logger.Fields("grammar", name))
	log.Debug("output invalid, requesting repair", logger.Fields(logger.FieldError, firstErr.Error()))

	attempt := &RepairAttempt{OriginalText: raw, Instruction: p.instruction}
	repaired, err := p.requester.Repair(ctx, raw, p.instruction)
	if err != nil {
		attempt.Err = err
		p.metrics.Repair(ctx, name, observability.RepairFailed)
		if _, ok := errors.AsAppError(err); !ok {
			err = errors.ValidationFailed(name, err).WithDetail("stage", "repair_request")
		}
		observability.EndSpan(span, err)
		log.Warn("repair request failed", logger.ErrorFields("repair", err))
		return &Outcome{Attempt: attempt}, err
	}
	attempt.RepairedText = StripFences(repaired)

	if secondErr := p.grammar.Validate(attempt.RepairedText); secondErr != nil {
		p.metrics.Repair(ctx, name, observability.RepairFailed)
		vErr := errors.ValidationFailed(name, secondErr).
			WithDetail("original_error", firstErr.Error()).
			WithDetail("repaired_text", truncate(attempt.RepairedText))
		observability.EndSpan(span, vErr)
		log.Warn("repaired output still invalid", logger.ErrorFields("validate", secondErr))
		return &Outcome{Attempt: attempt}, vErr
	}

	p.metrics.Repair(ctx, name, observability.RepairSucceeded)
	observability.EndSpan(span, nil)
	log.Debug("output repaired")
	return &Outcome{Text: attempt.RepairedText, Attempt: attempt}, nil
}

// ValidateAndRepair runs a default pipeline and returns the final text.
func ValidateAndRepair(ctx context.Context, raw string, g Grammar, r Requester) (string, error) {
	out, err := New(g, r).Run(ctx, raw)
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

func truncate(s string) string {
	const limit = 512
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
