package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/davnotes/internal/config"
	"github.com/tonimelisma/davnotes/internal/credstore"
	"github.com/tonimelisma/davnotes/internal/dav"
	"github.com/tonimelisma/davnotes/internal/metrics"
	"github.com/tonimelisma/davnotes/internal/session"
)

// version is set at build time via ldflags.
var version = "dev"

// skipConfigAnnotation marks commands that must run without a valid config
// file (config init writes one).
const skipConfigAnnotation = "skip-config"

// errNotConnected is returned by commands that need a live server.
var errNotConnected = errors.New("not connected: run 'davnotes connect <url>' first")

// CLIFlags holds the global persistent flags.
type CLIFlags struct {
	ConfigPath  string
	BasePath    string
	JSON        bool
	Verbose     bool
	Quiet       bool
	MetricsAddr string
}

// CLIContext is built once per invocation by the root pre-run and carried in
// the command's context.
type CLIContext struct {
	Flags    CLIFlags
	Cfg      *config.Resolved
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Recorder

	stop       context.CancelFunc
	closeStore func() error
}

type cliContextKey struct{}

func withCLIContext(ctx context.Context, cc *CLIContext) context.Context {
	return context.WithValue(ctx, cliContextKey{}, cc)
}

// mustCLIContext returns the CLIContext stored by the root pre-run. Commands
// only run after that hook, so a missing value is a programming error.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		panic("CLIContext missing from command context")
	}

	return cc
}

// Statusf prints a status message to stderr unless quiet mode is set.
func (cc *CLIContext) Statusf(format string, args ...any) {
	statusf(cc.Flags.Quiet, format, args...)
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	flags := &CLIFlags{}

	cmd := &cobra.Command{
		Use:     "davnotes",
		Short:   "WebDAV notes client",
		Long:    "Browse, read and write notes on a WebDAV server, confined to one remote folder.",
		Version: version,
		// Silence Cobra's default error/usage printing; main prints errors.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup(cmd, *flags)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.ConfigPath, "config", "", "config file path")
	pf.StringVar(&flags.BasePath, "base-path", "", "remote folder all paths are confined to")
	pf.BoolVar(&flags.JSON, "json", false, "output in JSON format")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress informational output")
	pf.StringVar(&flags.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")

	cmd.AddCommand(newConnectCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newCatCmd())
	cmd.AddCommand(newPutCmd())
	cmd.AddCommand(newPullCmd())
	cmd.AddCommand(newShellCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// setup resolves configuration, builds the logger and metrics, installs the
// signal handler and stores everything in a CLIContext on cmd.
func setup(cmd *cobra.Command, flags CLIFlags) error {
	cc := &CLIContext{Flags: flags}

	if cmd.Annotations[skipConfigAnnotation] == "" {
		cli := config.CLIOverrides{ConfigPath: flags.ConfigPath}

		// Only pass --base-path to the resolver if the user explicitly set it.
		if cmd.Flags().Changed("base-path") {
			cli.BasePath = &flags.BasePath
		}

		resolved, err := config.Resolve(config.ReadEnvOverrides(), cli)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		cc.Cfg = resolved
	}

	cc.Logger = buildLogger(cc.Cfg, flags, os.Stderr)

	cc.Registry = prometheus.NewRegistry()
	cc.Registry.MustRegister(collectors.NewGoCollector())
	cc.Metrics = metrics.NewRecorder(cc.Registry)

	ctx, stop := shutdownContext(cmd.Context(), cc.Logger)
	cc.stop = stop

	if flags.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, flags.MetricsAddr, cc.Registry, cc.Logger); err != nil {
				cc.Logger.Error("metrics server failed", slog.String("error", err.Error()))
			}
		}()
	}

	cmd.SetContext(withCLIContext(ctx, cc))

	return nil
}

// execute runs the command tree and always tears down the command that ran,
// including when it failed. Cobra skips post-run hooks after an error.
func execute(root *cobra.Command) error {
	cmd, err := root.ExecuteC()
	if cmd == nil {
		return err
	}

	return errors.Join(err, teardown(cmd))
}

// teardown releases what setup and openSession acquired.
func teardown(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		return nil
	}

	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		return nil
	}

	var err error
	if cc.closeStore != nil {
		err = cc.closeStore()
	}

	if cc.stop != nil {
		cc.stop()
	}

	return err
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Config-file log level provides the baseline; --verbose and
// --quiet override it because CLI flags always win. Format "auto" picks text
// for a terminal and JSON otherwise.
func buildLogger(cfg *config.Resolved, flags CLIFlags, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	format := "auto"

	if cfg != nil {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}

		format = cfg.LogFormat
	}

	if flags.Verbose {
		level = slog.LevelDebug
	}

	if flags.Quiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if format == "json" || (format == "auto" && !isTerminal(w)) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// openStore opens the configured credential backend. The returned close
// function is never nil.
func openStore(ctx context.Context, cfg *config.Resolved, logger *slog.Logger) (credstore.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Credentials.Backend {
	case config.BackendSQLite:
		s, err := credstore.OpenSQLite(ctx, cfg.CredentialsPath, logger)
		if err != nil {
			return nil, noop, err
		}

		return s, s.Close, nil
	case config.BackendMemory:
		return credstore.NewMemStore(), noop, nil
	default:
		return credstore.NewFileStore(cfg.CredentialsPath), noop, nil
	}
}

// openSession builds the session for this invocation from the resolved
// config. The store is closed by teardown.
func (cc *CLIContext) openSession(ctx context.Context) (*session.Session, error) {
	store, closeStore, err := openStore(ctx, cc.Cfg, cc.Logger)
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}

	cc.closeStore = closeStore

	dialer := session.ClientDialer(dav.Options{
		Timeout:   cc.Cfg.Timeout,
		UserAgent: cc.userAgent(),
		Logger:    cc.Logger,
	})

	return session.New(ctx, dialer, session.Options{
		BasePath:    cc.Cfg.Session.BasePath,
		HiddenFiles: cc.Cfg.Session.HiddenFiles,
		Store:       store,
		Metrics:     cc.Metrics,
		Logger:      cc.Logger,
	}), nil
}

// connectedSession opens the session and makes sure it is connected, using
// the saved credentials when needed.
func (cc *CLIContext) connectedSession(ctx context.Context) (*session.Session, error) {
	s, err := cc.openSession(ctx)
	if err != nil {
		return nil, err
	}

	if !s.EnsureConnected(ctx) {
		return nil, errNotConnected
	}

	return s, nil
}

func (cc *CLIContext) userAgent() string {
	if cc.Cfg.Network.UserAgent != "" {
		return cc.Cfg.Network.UserAgent
	}

	return "davnotes/" + version
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
