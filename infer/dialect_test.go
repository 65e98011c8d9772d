package infer

import (
	"slices"
	"testing"
)

func TestDialects_Registered(t *testing.T) {
	names := Dialects()
	for _, want := range []string{"goinfer", "goinfer-legacy"} {
		if !slices.Contains(names, want) {
			t.Errorf("dialect %q not registered in %v", want, names)
		}
	}
	if _, err := GetDialect("nope"); err == nil {
		t.Error("expected error for unknown dialect")
	}
}

func TestGoInfer_Requests(t *testing.T) {
	d := GoInfer{}
	model := ModelRef{Name: "m", ContextSize: 1024}

	path, body := d.LoadRequest(model)
	if path != "/model/start" || body != model {
		t.Errorf("load = %s %v", path, body)
	}

	path, raw := d.CompletionRequest(model, CompletionRequest{
		Prompt:         "p",
		Stream:         true,
		SamplingParams: map[string]any{"temperature": 0.5},
	})
	b := raw.(map[string]any)
	if path != "/completion" || b["model"] != model || b["temperature"] != 0.5 || b["stream"] != true {
		t.Errorf("completion = %s %v", path, b)
	}
	if _, ok := b["stop"]; ok {
		t.Error("empty stop list should be omitted")
	}
	if d.AbortPath() != "/completion/abort" {
		t.Errorf("abort path = %q", d.AbortPath())
	}
}

func TestGoInferLegacy_Requests(t *testing.T) {
	d := GoInferLegacy{}

	path, raw := d.LoadRequest(ModelRef{Name: "m"})
	b := raw.(map[string]any)
	if path != "/model/load" || b["model"] != "m" {
		t.Errorf("load = %s %v", path, b)
	}
	if _, ok := b["ctx"]; ok {
		t.Error("zero ctx should be omitted")
	}

	path, raw = d.CompletionRequest(ModelRef{Name: "m"}, CompletionRequest{Prompt: "p", Stop: []string{"\n"}})
	b = raw.(map[string]any)
	if path != "/infer" || b["prompt"] != "p" || b["stream"] != false {
		t.Errorf("completion = %s %v", path, b)
	}
	if stop, _ := b["stop"].([]string); !slices.Equal(stop, []string{"\n"}) {
		t.Errorf("stop = %v", b["stop"])
	}
	if d.AbortPath() != "" {
		t.Errorf("legacy dialect has no abort, got %q", d.AbortPath())
	}
}
