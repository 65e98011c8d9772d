package infer

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/kbukum/inferstream/errors"
	"github.com/kbukum/inferstream/repair"
	"github.com/kbukum/inferstream/validation"
)

// ModelRef identifies the model that backs a request.
type ModelRef struct {
	Name string `json:"name" mapstructure:"name" validate:"required"`
	// ContextSize is the context window in tokens. Zero leaves it to the server.
	ContextSize int `json:"ctx,omitempty" mapstructure:"ctx" validate:"gte=0"`
}

// String returns "name" or "name@ctx".
func (m ModelRef) String() string {
	if m.ContextSize > 0 {
		return fmt.Sprintf("%s@%d", m.Name, m.ContextSize)
	}
	return m.Name
}

// CompletionRequest is one generation request. The prompt is final; prompt
// templating happens before it gets here.
type CompletionRequest struct {
	Prompt string `json:"prompt" validate:"required"`
	// Template wraps the prompt on the server side, e.g. "<s>[INST] {prompt} [/INST]".
	Template string `json:"template,omitempty"`
	// SamplingParams maps parameter names such as "temperature" or "top_p"
	// to numbers or booleans.
	SamplingParams map[string]any `json:"-"`
	// Stop lists stop sequences in order.
	Stop []string `json:"stop,omitempty"`
	// Stream is set by the client according to the call.
	Stream bool `json:"stream"`
}

// clone copies the request so later changes by the caller do not leak into
// a running session.
func (r CompletionRequest) clone() CompletionRequest {
	r.SamplingParams = maps.Clone(r.SamplingParams)
	r.Stop = slices.Clone(r.Stop)
	return r
}

func (r CompletionRequest) validate() error {
	if err := validation.Validate(r); err != nil {
		return err
	}
	v := validation.New()
	for _, name := range slices.Sorted(maps.Keys(r.SamplingParams)) {
		switch r.SamplingParams[name].(type) {
		case bool, int, int32, int64, float32, float64, uint, uint32, uint64, json.Number:
		default:
			v.Check(false, "sampling_params."+name, fmt.Sprintf("must be a number or boolean, got %T", r.SamplingParams[name]))
		}
		if _, reserved := reservedBodyKeys[name]; reserved {
			v.Check(false, "sampling_params."+name, "is a reserved request field")
		}
	}
	return v.Err()
}

// InferenceStats are the server's figures for one completion, taken from
// the final "result" system message or the non-streaming response.
type InferenceStats struct {
	ThinkingTime       float64 `json:"thinkingTime"`
	ThinkingTimeFormat string  `json:"thinkingTimeFormat,omitempty"`
	EmitTime           float64 `json:"emitTime"`
	EmitTimeFormat     string  `json:"emitTimeFormat,omitempty"`
	TotalTime          float64 `json:"totalTime"`
	TotalTimeFormat    string  `json:"totalTimeFormat,omitempty"`
	TokensPerSecond    float64 `json:"tokensPerSecond"`
	TotalTokens        int     `json:"totalTokens"`
}

// Result is the outcome of a session. It is returned for every terminal
// state; Text holds whatever was accumulated before the session ended.
type Result struct {
	SessionID string
	Model     ModelRef
	State     State
	// Text is the ordered concatenation of all token contents.
	Text string
	// Tokens counts token messages.
	Tokens int
	// ProtocolErrors counts frames that could not be decoded.
	ProtocolErrors int
	// Stats is nil when the server sent none.
	Stats *InferenceStats
	// FirstToken is the latency from the completion request to the first token.
	FirstToken time.Duration
	Duration   time.Duration
	// Repair is set when structured output went through a repair request.
	Repair *repair.RepairAttempt
}

// completionResponse is the body of a non-streaming completion.
type completionResponse struct {
	Text  string          `json:"text"`
	Stats *InferenceStats `json:"stats,omitempty"`
}

// decodeStats reads stats from the data of a "result" system message.
func decodeStats(data map[string]any) (*InferenceStats, error) {
	raw, ok := data["stats"]
	if !ok {
		return nil, nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var st InferenceStats
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, errors.ProtocolViolation(string(b), err)
	}
	return &st, nil
}
