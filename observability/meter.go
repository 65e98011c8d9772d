package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/inferstream/logger"
)

// Metric names.
const (
	MetricSessions        = "infer.sessions"
	MetricSessionsActive  = "infer.sessions.active"
	MetricSessionDuration = "infer.session.duration"
	MetricFirstToken      = "infer.first_token.latency"
	MetricTokens          = "infer.tokens"
	MetricProtocolErrors  = "infer.protocol_errors"
	MetricRepairs         = "infer.repairs"
)

// InitMeter installs an OTLP/HTTP meter provider as the global provider.
// The caller shuts it down on exit.
func InitMeter(ctx context.Context, cfg Config) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.Interval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.WithComponent("observability").Info("meter initialized", logger.Fields(
		"endpoint", cfg.Endpoint,
		"interval", cfg.Interval.String(),
	))
	return mp, nil
}

// Meter returns the module meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(InstrumentationName)
}

// Metrics holds the instruments of completion sessions. A nil *Metrics
// records nothing.
type Metrics struct {
	sessions        metric.Int64Counter
	sessionsActive  metric.Int64UpDownCounter
	sessionDuration metric.Float64Histogram
	firstToken      metric.Float64Histogram
	tokens          metric.Int64Counter
	protocolErrors  metric.Int64Counter
	repairs         metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.sessions, err = meter.Int64Counter(MetricSessions,
		metric.WithDescription("Completed sessions by terminal state"),
	); err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricSessions, err)
	}
	if m.sessionsActive, err = meter.Int64UpDownCounter(MetricSessionsActive,
		metric.WithDescription("Sessions not yet in a terminal state"),
	); err != nil {
		return nil, fmt.Errorf("creating %s gauge: %w", MetricSessionsActive, err)
	}
	if m.sessionDuration, err = meter.Float64Histogram(MetricSessionDuration,
		metric.WithDescription("Session wall time from start to terminal state"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricSessionDuration, err)
	}
	if m.firstToken, err = meter.Float64Histogram(MetricFirstToken,
		metric.WithDescription("Time from completion request to first token"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricFirstToken, err)
	}
	if m.tokens, err = meter.Int64Counter(MetricTokens,
		metric.WithDescription("Token messages received"),
	); err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricTokens, err)
	}
	if m.protocolErrors, err = meter.Int64Counter(MetricProtocolErrors,
		metric.WithDescription("Stream frames that could not be decoded"),
	); err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricProtocolErrors, err)
	}
	if m.repairs, err = meter.Int64Counter(MetricRepairs,
		metric.WithDescription("Validation outcomes by grammar"),
	); err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricRepairs, err)
	}
	return &m, nil
}

// SessionStarted counts a session entering Loading.
func (m *Metrics) SessionStarted(ctx context.Context, model string) {
	if m == nil {
		return
	}
	m.sessionsActive.Add(ctx, 1, metric.WithAttributes(attribute.String("model", model)))
}

// SessionEnded records a session reaching terminal state.
func (m *Metrics) SessionEnded(ctx context.Context, model, state string, d time.Duration) {
	if m == nil {
		return
	}
	m.sessionsActive.Add(ctx, -1, metric.WithAttributes(attribute.String("model", model)))
	attrs := metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("state", state),
	)
	m.sessions.Add(ctx, 1, attrs)
	m.sessionDuration.Record(ctx, d.Seconds(), attrs)
}

// FirstToken records the latency of the first token.
func (m *Metrics) FirstToken(ctx context.Context, model string, d time.Duration) {
	if m == nil {
		return
	}
	m.firstToken.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("model", model)))
}

// Token counts one token message.
func (m *Metrics) Token(ctx context.Context, model string) {
	if m == nil {
		return
	}
	m.tokens.Add(ctx, 1, metric.WithAttributes(attribute.String("model", model)))
}

// ProtocolError counts one undecodable frame.
func (m *Metrics) ProtocolError(ctx context.Context) {
	if m == nil {
		return
	}
	m.protocolErrors.Add(ctx, 1)
}

// Repair outcomes.
const (
	RepairNotNeeded = "valid"
	RepairSucceeded = "repaired"
	RepairFailed    = "failed"
)

// Repair records how validation of one output ended.
func (m *Metrics) Repair(ctx context.Context, grammar, outcome string) {
	if m == nil {
		return
	}
	m.repairs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("grammar", grammar),
		attribute.String("outcome", outcome),
	))
}
