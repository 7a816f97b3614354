// Package app wires the cache store, the conversation cache, the remote
// gateway and the controller from configuration so the CLI, the TUI and the
// MCP server share one set of behavior.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"tableflip.dev/procure/pkg/auth"
	"tableflip.dev/procure/pkg/controller"
	"tableflip.dev/procure/pkg/gateway"
	"tableflip.dev/procure/pkg/session"
	"tableflip.dev/procure/pkg/store"
)

// Options override configuration for a single run.
type Options struct {
	APIURL  string
	Timeout time.Duration
	Verbose bool

	// LogOutput replaces the configured log destination.
	LogOutput io.Writer
	Notifier  controller.Notifier
	// HTTPClient replaces the gateway's HTTP client.
	HTTPClient gateway.ClientOption
}

// App is one assembled client.
type App struct {
	Config     store.Config
	Store      *store.Disk
	Auth       *auth.Service
	Session    *session.Manager
	Gateway    *gateway.Gateway
	Controller *controller.Controller
	Logger     *log.Logger

	closers []io.Closer
}

// New loads the cache from disk and assembles the client. A nil cfg reads
// configuration with store.LoadConfig.
func New(cfg store.Config, o Options) (*App, error) {
	if cfg == nil {
		var err error
		if cfg, err = store.LoadConfig(); err != nil {
			return nil, err
		}
	}
	a := &App{Config: cfg}

	out, err := a.logOutput(o)
	if err != nil {
		return nil, err
	}
	a.Logger = log.New(out, "procure: ", log.LstdFlags)

	if a.Store, err = store.Load(cfg); err != nil {
		a.Close()
		return nil, err
	}
	a.Auth = auth.New(a.Store)
	a.Session = session.New(a.Store, session.WithLogger(a.Logger))
	a.Session.Load()

	apiURL := cfg.APIURL()
	if o.APIURL != "" {
		apiURL = o.APIURL
	}
	timeout := cfg.Timeout()
	if o.Timeout > 0 {
		timeout = o.Timeout
	}
	opts := []gateway.ClientOption{gateway.WithTimeout(timeout)}
	if u, err := a.Auth.CurrentUser(); err == nil {
		opts = append(opts, gateway.WithToken(u.Token))
	}
	if o.HTTPClient != nil {
		opts = append(opts, o.HTTPClient)
	}
	a.Gateway = gateway.New(gateway.NewClient(apiURL, opts...), a.Session, a.Logger)

	copts := []controller.Option{controller.WithLogger(a.Logger)}
	if o.Notifier != nil {
		copts = append(copts, controller.WithNotifier(o.Notifier))
	}
	a.Controller = controller.New(a.Session, a.Gateway, copts...)
	return a, nil
}

// Start requires a signed in user and restores the current conversation.
func (a *App) Start(ctx context.Context) error {
	if err := a.Auth.Require(); err != nil {
		return err
	}
	return a.Controller.Init(ctx)
}

// Watch streams changes to the persisted cache keys.
func (a *App) Watch(ctx context.Context) (<-chan store.Event, error) {
	if a.Store == nil {
		return nil, errors.New("app: no store configured")
	}
	return a.Store.Watch(ctx)
}

// Close releases the log file, if one was opened.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) logOutput(o Options) (io.Writer, error) {
	switch {
	case o.LogOutput != nil:
		return o.LogOutput, nil
	case a.Config.LogFile() != "":
		f, err := os.OpenFile(a.Config.LogFile(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("app: opening log file: %w", err)
		}
		a.closers = append(a.closers, f)
		if o.Verbose {
			return io.MultiWriter(f, os.Stderr), nil
		}
		return f, nil
	case o.Verbose:
		return os.Stderr, nil
	}
	return io.Discard, nil
}
