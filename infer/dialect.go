package infer

import (
	"fmt"
	"sort"
	"sync"
)

// Dialect maps the client's operations onto one server's endpoints and
// request bodies. Both dialects shipped here stream the same frame format;
// they differ in paths and body shapes.
type Dialect interface {
	// Name returns the registry name.
	Name() string
	// LoadRequest returns the path and body of the model-load request.
	LoadRequest(model ModelRef) (path string, body any)
	// CompletionRequest returns the path and body of the completion request.
	CompletionRequest(model ModelRef, req CompletionRequest) (path string, body any)
	// TaskPath is the endpoint of server-side tasks such as repairs.
	TaskPath() string
	// AbortPath stops a running completion. Empty when unsupported.
	AbortPath() string
	// StatePath lists the available models. Empty when unsupported.
	StatePath() string
}

var (
	dialectsMu sync.RWMutex
	dialects   = map[string]Dialect{}
)

// RegisterDialect adds a dialect to the global registry, replacing any
// dialect of the same name.
func RegisterDialect(d Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[d.Name()] = d
}

// GetDialect retrieves a dialect by name from the global registry.
func GetDialect(name string) (Dialect, error) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	d, ok := dialects[name]
	if !ok {
		return nil, fmt.Errorf("infer: unknown dialect %q", name)
	}
	return d, nil
}

// Dialects returns the names of all registered dialects, sorted.
func Dialects() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	RegisterDialect(GoInfer{})
	RegisterDialect(GoInferLegacy{})
}

// reservedBodyKeys may not be set through sampling parameters.
var reservedBodyKeys = map[string]struct{}{
	"prompt": {}, "template": {}, "stream": {}, "stop": {}, "model": {},
}

// completionBody flattens req into the JSON body shared by both dialects.
// Sampling parameters sit at the top level next to the prompt.
func completionBody(req CompletionRequest) map[string]any {
	body := make(map[string]any, len(req.SamplingParams)+5)
	for k, v := range req.SamplingParams {
		body[k] = v
	}
	body["prompt"] = req.Prompt
	body["stream"] = req.Stream
	if req.Template != "" {
		body["template"] = req.Template
	}
	if len(req.Stop) > 0 {
		body["stop"] = req.Stop
	}
	return body
}

// GoInfer is the current server API: models are started by name and context
// size, and every completion names its model.
type GoInfer struct{}

// Name returns "goinfer".
func (GoInfer) Name() string { return "goinfer" }

// LoadRequest returns POST /model/start {name, ctx}.
func (GoInfer) LoadRequest(model ModelRef) (string, any) {
	return "/model/start", model
}

// CompletionRequest returns POST /completion with the model embedded.
func (GoInfer) CompletionRequest(model ModelRef, req CompletionRequest) (string, any) {
	body := completionBody(req)
	body["model"] = model
	return "/completion", body
}

func (GoInfer) TaskPath() string  { return "/task/execute" }
func (GoInfer) AbortPath() string { return "/completion/abort" }
func (GoInfer) StatePath() string { return "/model/state" }

// GoInferLegacy is the older server API with /model/load and /infer.
type GoInferLegacy struct{}

// Name returns "goinfer-legacy".
func (GoInferLegacy) Name() string { return "goinfer-legacy" }

// LoadRequest returns POST /model/load {model, ctx}.
func (GoInferLegacy) LoadRequest(model ModelRef) (string, any) {
	body := map[string]any{"model": model.Name}
	if model.ContextSize > 0 {
		body["ctx"] = model.ContextSize
	}
	return "/model/load", body
}

// CompletionRequest returns POST /infer. The loaded model is implied.
func (GoInferLegacy) CompletionRequest(_ ModelRef, req CompletionRequest) (string, any) {
	return "/infer", completionBody(req)
}

func (GoInferLegacy) TaskPath() string  { return "/task/execute" }
func (GoInferLegacy) AbortPath() string { return "" }
func (GoInferLegacy) StatePath() string { return "/model/state" }
