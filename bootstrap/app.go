package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/inferstream/logger"
	"github.com/kbukum/inferstream/version"
)

// App gives a command a uniform lifecycle: validated config, a logger,
// start and stop hooks, and a task context cancelled on SIGINT or SIGTERM.
// The type parameter C is the config type.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.OnStop(flushTelemetry)
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    return complete(ctx, app.Cfg)
//	})
type App[C Config] struct {
	Name    string
	Version string
	Cfg     C
	Logger  *logger.Logger
	Summary *Summary

	gracefulTimeout time.Duration
	onStart         []Hook
	onStop          []Hook
}

// NewApp applies defaults to cfg, validates it, and initializes the logger.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	base := cfg.GetServiceConfig()

	o := resolveOptions(opts)
	app := &App[C]{
		Name:            base.Name,
		Version:         version.Get().String(),
		Cfg:             cfg,
		gracefulTimeout: 5 * time.Second,
	}
	if o.version != "" {
		app.Version = o.version
	}
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	if o.logger != nil {
		logger.SetGlobalLogger(o.logger)
		app.Logger = o.logger
	} else {
		logger.Init(&base.Logging)
		app.Logger = logger.GetGlobalLogger()
	}
	app.Summary = NewSummary(app.Name, app.Version)
	return app, nil
}

// RunTask runs start hooks, then task, then stop hooks. The task context is
// cancelled when ctx is, or when the process receives SIGINT or SIGTERM.
// The task's error wins over a stop hook's error.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	a.Logger.Debug("starting task", logger.Fields("name", a.Name, "version", a.Version))

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := runHooks(taskCtx, a.onStart); err != nil {
		return fmt.Errorf("onStart hook failed: %w", errors.Join(err, a.stop()))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			a.Logger.Info("received signal, cancelling task", logger.Fields("signal", sig.String()))
			cancel()
		case <-taskCtx.Done():
		}
	}()

	taskErr := task(taskCtx)

	if stopErr := a.stop(); stopErr != nil && taskErr == nil {
		return stopErr
	}
	return taskErr
}

// Shutdown runs the stop hooks. Use it when managing your own lifecycle.
func (a *App[C]) Shutdown() error {
	return a.stop()
}

func (a *App[C]) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("stop hook failed", logger.ErrorFields("shutdown", err))
		return err
	}
	return nil
}
