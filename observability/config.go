package observability

import (
	"fmt"
	"time"
)

// Config configures OTLP export of traces and metrics. Export is off unless
// Enabled is set; instruments still work against the no-op providers.
type Config struct {
	Enabled bool `mapstructure:"enabled"`
	// Endpoint is the OTLP HTTP endpoint host:port.
	Endpoint string `mapstructure:"endpoint"`
	// Insecure disables TLS towards the collector.
	Insecure bool `mapstructure:"insecure"`
	// SampleRate is the trace sampling ratio in [0, 1].
	SampleRate float64 `mapstructure:"sample_rate"`
	// Interval is the metric export interval.
	Interval time.Duration `mapstructure:"interval"`

	ServiceName    string `mapstructure:"-"`
	ServiceVersion string `mapstructure:"-"`
	Environment    string `mapstructure:"-"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.Interval <= 0 {
		c.Interval = 15 * time.Second
	}
	if c.ServiceName == "" {
		c.ServiceName = "inferstream"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("observability: sample_rate must be within [0, 1], got %v", c.SampleRate)
	}
	return nil
}
