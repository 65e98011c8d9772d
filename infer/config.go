package infer

import (
	"fmt"
	"time"

	"github.com/kbukum/inferstream/httpclient"
	"github.com/kbukum/inferstream/validation"
)

// MalformedFramePolicy decides what a frame that cannot be decoded does to
// a session.
type MalformedFramePolicy string

const (
	// SkipMalformed forwards the frame as a protocol error message and keeps
	// streaming.
	SkipMalformed MalformedFramePolicy = "skip"
	// AbortOnMalformed fails the session with PROTOCOL_ERROR.
	AbortOnMalformed MalformedFramePolicy = "abort"
)

const (
	defaultTimeout     = 120 * time.Second
	defaultIdleTimeout = 2 * time.Minute
	defaultRepairTask  = "code/json/fix"
	abortTimeout       = 5 * time.Second
)

// Config holds everything the client needs to reach one inference server.
type Config struct {
	// BaseURL is the server root, e.g. "http://localhost:5143".
	BaseURL string `mapstructure:"base_url" validate:"required,http_url"`

	// APIKey is sent as a bearer token. Empty means unauthenticated.
	APIKey string `mapstructure:"api_key"`

	// Dialect selects the endpoint layout. Defaults to "goinfer".
	Dialect string `mapstructure:"dialect"`

	// Model is used when a call passes a ModelRef without a name.
	Model *ModelRef `mapstructure:"model" validate:"omitempty"`

	// Timeout bounds load, non-streaming completion, model listing, and
	// repair requests. Defaults to 120s.
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`

	// IdleTimeout bounds each wait for streamed bytes, including the wait
	// for response headers. Defaults to 2m. Negative disables it.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`

	// MalformedFrames is "skip" (default) or "abort".
	MalformedFrames MalformedFramePolicy `mapstructure:"malformed_frames" validate:"omitempty,oneof=skip abort"`

	// AbortOnCancel asks the server to stop generating when a streaming
	// session is cancelled.
	AbortOnCancel bool `mapstructure:"abort_on_cancel"`

	// RepairTask names the server task used for repairs. Defaults to
	// "code/json/fix".
	RepairTask string `mapstructure:"repair_task"`

	// Headers are sent with every request.
	Headers map[string]string `mapstructure:"headers"`

	TLS *httpclient.TLSConfig `mapstructure:"tls"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Dialect == "" {
		c.Dialect = GoInfer{}.Name()
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = defaultIdleTimeout
	}
	if c.MalformedFrames == "" {
		c.MalformedFrames = SkipMalformed
	}
	if c.RepairTask == "" {
		c.RepairTask = defaultRepairTask
	}
}

// Validate checks the configuration. Dialect must name a registered dialect.
func (c *Config) Validate() error {
	_, err := GetDialect(c.Dialect)
	return c.validate(err == nil)
}

// validate checks everything but the dialect lookup, which the caller has
// already resolved to known.
func (c *Config) validate(dialectKnown bool) error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	return validation.New().
		Check(dialectKnown, "dialect", fmt.Sprintf("unknown dialect %q", c.Dialect)).
		Check(c.TLS.Validate() == nil, "tls", "skip_verify and ca_file are mutually exclusive").
		Err()
}

func (c *Config) httpConfig() httpclient.Config {
	idle := c.IdleTimeout
	if idle < 0 {
		idle = 0
	}
	return httpclient.Config{
		BaseURL:     c.BaseURL,
		Timeout:     c.Timeout,
		IdleTimeout: idle,
		Auth:        httpclient.BearerAuth(c.APIKey),
		TLS:         c.TLS,
		Headers:     c.Headers,
	}
}
