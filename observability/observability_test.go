package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("Endpoint = %q", cfg.Endpoint)
	}
	if cfg.Interval != 15*time.Second {
		t.Errorf("Interval = %v", cfg.Interval)
	}
	if cfg.ServiceName != "inferstream" {
		t.Errorf("ServiceName = %q", cfg.ServiceName)
	}
}

func TestConfig_Validate(t *testing.T) {
	for _, rate := range []float64{-0.1, 1.5} {
		cfg := Config{SampleRate: rate}
		if err := cfg.Validate(); err == nil {
			t.Errorf("expected error for sample rate %v", rate)
		}
	}
	cfg := Config{SampleRate: 0.5}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestSetup_InvalidConfig(t *testing.T) {
	if _, err := Setup(context.Background(), Config{Enabled: true, SampleRate: 2}); err == nil {
		t.Error("expected validation error")
	}
}

func TestStartSpanAndEndSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	_, ok := StartSpan(context.Background(), SpanStream, attribute.String(AttrModel, "qwen"))
	EndSpan(ok, nil)
	_, failed := StartSpan(context.Background(), SpanLoadModel)
	EndSpan(failed, errors.New("load failed"))

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name() != SpanStream || spans[0].Status().Code == codes.Error {
		t.Errorf("unexpected first span: %s %v", spans[0].Name(), spans[0].Status())
	}
	if spans[1].Status().Code != codes.Error || len(spans[1].Events()) == 0 {
		t.Errorf("expected error status and recorded error event, got %v", spans[1].Status())
	}
}

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumInt(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s is %T, not an int64 sum", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_Session(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.SessionStarted(ctx, "qwen")
	m.FirstToken(ctx, "qwen", 20*time.Millisecond)
	m.Token(ctx, "qwen")
	m.Token(ctx, "qwen")
	m.ProtocolError(ctx)
	m.SessionEnded(ctx, "qwen", "completed", time.Second)
	m.Repair(ctx, "json", RepairSucceeded)

	got := collect(t, reader)
	checks := map[string]int64{
		MetricSessions:       1,
		MetricSessionsActive: 0,
		MetricTokens:         2,
		MetricProtocolErrors: 1,
		MetricRepairs:        1,
	}
	for name, want := range checks {
		metric, ok := got[name]
		if !ok {
			t.Errorf("metric %s not recorded", name)
			continue
		}
		if v := sumInt(t, metric); v != want {
			t.Errorf("%s = %d, want %d", name, v, want)
		}
	}

	hist, ok := got[MetricFirstToken].Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 {
		t.Errorf("first token histogram = %+v", got[MetricFirstToken].Data)
	}

	sessions := got[MetricSessions].Data.(metricdata.Sum[int64])
	state, _ := sessions.DataPoints[0].Attributes.Value("state")
	if state.AsString() != "completed" {
		t.Errorf("state attribute = %q", state.AsString())
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.SessionStarted(ctx, "x")
	m.SessionEnded(ctx, "x", "failed", 0)
	m.FirstToken(ctx, "x", 0)
	m.Token(ctx, "x")
	m.ProtocolError(ctx)
	m.Repair(ctx, "json", RepairFailed)
}

func TestMeterAndTracerFromGlobal(t *testing.T) {
	if Meter() == nil || Tracer() == nil {
		t.Error("expected global meter and tracer")
	}
	if _, err := NewMetrics(Meter()); err != nil {
		t.Errorf("NewMetrics on global meter: %v", err)
	}
}
