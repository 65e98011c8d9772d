package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/kbukum/inferstream/bootstrap"
	"github.com/kbukum/inferstream/config"
	"github.com/kbukum/inferstream/infer"
	"github.com/kbukum/inferstream/logger"
	"github.com/kbukum/inferstream/observability"
)

const serviceName = "inferstream"

// AppConfig is the configuration file layout of the command.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Client        infer.Config         `yaml:"client" mapstructure:"client"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults fills in every section.
func (c *AppConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	c.ServiceConfig.ApplyDefaults()
	c.Client.ApplyDefaults()
	c.Observability.ServiceName = c.Name
	c.Observability.Environment = c.Environment
	c.Observability.ApplyDefaults()
}

// Validate checks every section.
func (c *AppConfig) Validate() error {
	var errs []error
	if err := c.ServiceConfig.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Client.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("client: %w", err))
	}
	if err := c.Observability.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("observability: %w", err))
	}
	return errors.Join(errs...)
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	envFile    string
	baseURL    string
	model      string
	ctxSize    int
	dialect    string
	verbose    bool
}

// loadConfig reads the config file and environment, then applies flags.
func (f *globalFlags) loadConfig() (*AppConfig, error) {
	var opts []config.LoaderOption
	if f.configFile != "" {
		opts = append(opts, config.WithConfigFile(f.configFile))
	}
	if f.envFile != "" {
		opts = append(opts, config.WithEnvFile(f.envFile))
	}

	cfg := &AppConfig{}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	if f.baseURL != "" {
		cfg.Client.BaseURL = f.baseURL
	}
	if f.dialect != "" {
		cfg.Client.Dialect = f.dialect
	}
	if f.model != "" {
		cfg.Client.Model = &infer.ModelRef{Name: f.model, ContextSize: f.ctxSize}
	} else if f.ctxSize > 0 && cfg.Client.Model != nil {
		cfg.Client.Model.ContextSize = f.ctxSize
	}
	if f.verbose {
		cfg.Debug = true
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// newApp builds the application and its inference client. Telemetry export
// starts with the task and is flushed when it ends.
func (f *globalFlags) newApp() (*bootstrap.App[*AppConfig], *infer.Client, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return nil, nil, err
	}

	var shutdown func(context.Context) error
	app.OnStart(func(ctx context.Context) error {
		var setupErr error
		shutdown, setupErr = observability.Setup(ctx, cfg.Observability)
		return setupErr
	})
	app.OnStop(func(ctx context.Context) error {
		if shutdown == nil {
			return nil
		}
		return shutdown(ctx)
	})

	client, err := infer.New(cfg.Client, infer.WithLogger(app.Logger.WithComponent("infer")))
	if err != nil {
		return nil, nil, err
	}
	app.Logger.Debug("client ready", logger.Fields(
		"base_url", cfg.Client.BaseURL,
		logger.FieldDialect, client.Dialect().Name(),
	))
	return app, client, nil
}
