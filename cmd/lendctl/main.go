// Command lendctl is the command-line lending back-office console.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/pflag"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type options struct {
	configPath string
	routesPath string
	server     string
	store      string
	storePath  string
	namespace  string
	auditLog   string
	jsonOutput bool
	metrics    bool
	verbosity  int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, command, rest, err := parseArgs(args)
	if errors.Is(err, errShowUsage) {
		printUsage(stdout)
		if len(args) == 0 {
			return 1
		}
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		printUsage(stderr)
		return 1
	}

	switch command {
	case "version":
		fmt.Fprintf(stdout, "lendctl %s (commit: %s, built: %s)\n", version, commit, date)
		return 0
	case "help":
		printUsage(stdout)
		return 0
	}

	a, err := newApp(opts, stdin, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	err = a.dispatch(ctx, command, rest)
	if opts.metrics {
		fmt.Fprint(stderr, a.exporter.Render())
	}
	if cerr := a.close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", displayMessage(err))
		return 1
	}
	return 0
}

var errShowUsage = errors.New("show usage")

func parseArgs(args []string) (options, string, []string, error) {
	var opts options
	fs := pflag.NewFlagSet("lendctl", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(io.Discard)

	fs.StringVar(&opts.configPath, "config", defaultConfigPath(), "configuration file")
	fs.StringVar(&opts.routesPath, "routes", "", "route table file")
	fs.StringVarP(&opts.server, "server", "s", "", "lending API base URL")
	fs.StringVar(&opts.store, "store", "", "session store: file, redis or memory")
	fs.StringVar(&opts.storePath, "store-path", "", "session file for the file store")
	fs.StringVar(&opts.namespace, "namespace", "", "redis session namespace")
	fs.StringVar(&opts.auditLog, "audit-log", "", "append audit events as JSON lines to this file")
	fs.BoolVar(&opts.jsonOutput, "json", false, "print JSON instead of tables")
	fs.BoolVar(&opts.metrics, "metrics", false, "print session metrics to stderr on exit")
	fs.CountVarP(&opts.verbosity, "verbose", "v", "increase log verbosity")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return opts, "", nil, errShowUsage
		}
		return opts, "", nil, err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return opts, "", nil, errShowUsage
	}
	return opts, rest[0], rest[1:], nil
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "lendctl", "config.yaml")
}

func printUsage(out io.Writer) {
	fmt.Fprint(out, `Usage: lendctl [--config <file>] [--server <url>] [--store file|redis|memory] [--json] [-v] <command>

Session:
  login [-u <user>] [-p <password>]   Log in (prompts for missing values)
  logout                              Clear the stored session
  whoami                              Show the active session
  register --username <u> --email <e> --full-name <n> [--role <r>]
  routes                              Show console routes and your access

Screens:
  dashboard                           Credit counts and breakdowns
  clients list|get|create|update|delete|credits|search
  credits list|get|create|update|delete|approve|reject|status|type
          |schedule|payment|validate|search|count|summary
  repayments list|get|create|update|delete|credit|type|early
             |installment|balance|search

Other:
  version                             Print version information

Global flags:
  --routes <file>      Route table (YAML list of pattern/roles/public)
  --store-path <file>  Session file for the file store
  --namespace <name>   Redis key namespace
  --audit-log <file>   Append audit events as JSON lines
  --metrics            Print session metrics on exit
`)
}
