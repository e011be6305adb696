package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/go-logr/stdr"
	"github.com/spf13/pflag"

	"github.com/MrEthical07/lendconsole"
	"github.com/MrEthical07/lendconsole/api"
	"github.com/MrEthical07/lendconsole/guard"
	promexport "github.com/MrEthical07/lendconsole/metrics/export/prometheus"
)

var errLoginRequired = fmt.Errorf("%w: run 'lendctl login'", lendconsole.ErrNotAuthenticated)

type app struct {
	opts   options
	cfg    lendconsole.Config
	mgr    *lendconsole.Manager
	api    *api.Client
	table  *guard.Table
	routes []guard.Route

	exporter *promexport.PrometheusExporter

	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
	errOut io.Writer
	color  bool

	closers []io.Closer
}

func newApp(opts options, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	cfg, err := lendconsole.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.server != "" {
		cfg.API.BaseURL = opts.server
	}
	if opts.store != "" {
		cfg.Store.Kind = lendconsole.StoreKind(opts.store)
	}
	if opts.storePath != "" {
		cfg.Store.Path = opts.storePath
	}
	if opts.namespace != "" {
		cfg.Store.Namespace = opts.namespace
	}
	if opts.verbosity > cfg.Log.Verbosity {
		cfg.Log.Verbosity = opts.verbosity
	}
	if cfg.API.UserAgent == "" {
		cfg.API.UserAgent = "lendctl/" + version
	}

	routes, err := loadRoutes(opts.routesPath)
	if err != nil {
		return nil, err
	}

	a := &app{
		opts:   opts,
		routes: routes,
		in:     stdin,
		out:    stdout,
		errOut: stderr,
		color:  !opts.jsonOutput && isTerminal(stdout),
	}

	stdr.SetVerbosity(cfg.Log.Verbosity)
	logger := stdr.New(log.New(stderr, "lendctl ", log.LstdFlags))

	b := lendconsole.New().
		WithLogger(logger).
		WithNavigator(lendconsole.NavigatorFunc(a.navigate))
	if opts.auditLog != "" {
		f, err := os.OpenFile(opts.auditLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		a.closers = append(a.closers, f)
		cfg.Audit.Enabled = true
		b.WithAuditSink(lendconsole.NewJSONWriterSink(f))
	}
	b.WithConfig(cfg)

	mgr, err := b.Build()
	if err != nil {
		a.close()
		return nil, err
	}
	// The manager drains audit events before the log file closes.
	a.closers = append([]io.Closer{mgr}, a.closers...)

	a.cfg = cfg
	a.mgr = mgr
	a.api = mgr.API()
	a.exporter = promexport.NewPrometheusExporter(mgr)
	a.table, err = guard.NewTable(mgr.Authority(), guard.Routes{
		Login:   cfg.Session.LoginRoute,
		Default: cfg.Session.DefaultRoute,
	}, routes)
	if err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// navigate reports forced navigation. A terminal console has no screens to
// switch, so only the notice is shown.
func (a *app) navigate(route, notice string) {
	if notice != "" {
		fmt.Fprintf(a.errOut, "notice: %s\n", notice)
	}
}

func (a *app) close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	ctx = lendconsole.WithOrigin(ctx, "lendctl "+command)
	a.mgr.CheckAuthState(ctx)

	switch command {
	case "login":
		return a.runLogin(ctx, args)
	case "logout":
		return a.runLogout(ctx, args)
	case "whoami":
		return a.runWhoami(ctx, args)
	case "register":
		return a.runRegister(ctx, args)
	case "routes":
		return a.runRoutes(ctx, args)
	case "dashboard":
		return a.runDashboard(ctx, args)
	case "clients":
		return a.runClients(ctx, args)
	case "credits":
		return a.runCredits(ctx, args)
	case "repayments":
		return a.runRepayments(ctx, args)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// enter applies the route table to route before a command calls the API.
func (a *app) enter(ctx context.Context, route string) error {
	d := a.table.Navigate(ctx, route)
	if d.Allow {
		return nil
	}
	if d.Notice != "" {
		return errors.New(d.Notice)
	}
	return errLoginRequired
}

// render prints v as JSON under --json, otherwise calls table.
func (a *app) render(v any, table func()) error {
	if a.opts.jsonOutput {
		return PrintJSON(a.out, v)
	}
	table()
	return nil
}

func (a *app) flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func displayMessage(err error) string {
	return api.Message(err)
}

func subcommand(args []string, usage string) (string, []string, error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("usage: %s", usage)
	}
	return args[0], args[1:], nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// parseIDArg parses flags in args and returns the single positional id.
func parseIDArg(fs *pflag.FlagSet, args []string, usage string) (int64, error) {
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	return oneID(fs, usage)
}

// oneID parses the single positional id left after flag parsing.
func oneID(fs *pflag.FlagSet, usage string) (int64, error) {
	if fs.NArg() != 1 {
		return 0, fmt.Errorf("usage: %s", usage)
	}
	return parseID(fs.Arg(0))
}

func optionalFloat(fs *pflag.FlagSet, name string) *float64 {
	if !fs.Changed(name) {
		return nil
	}
	v, err := fs.GetFloat64(name)
	if err != nil {
		return nil
	}
	return &v
}

func optionalDate(s string) (api.Date, error) {
	if s == "" {
		return api.Date{}, nil
	}
	return api.ParseDate(s)
}
