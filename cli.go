package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"netmap/config"
	"netmap/netutil"
	"netmap/output"
	"netmap/scanner"
	"netmap/server"
	"netmap/target"
)

type globalFlags struct {
	configPath string
	verbose    bool
	timeout    time.Duration
	workers    int
	strict     bool
	ports      string
	allow      []string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "netmap",
		Short:         "Sequential TCP connect scanner for small networks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "YAML config file")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")
	pf.DurationVarP(&g.timeout, "timeout", "t", scanner.DefaultTimeout, "per-probe timeout")
	pf.IntVarP(&g.workers, "workers", "c", 1, "addresses scanned at once")
	pf.BoolVar(&g.strict, "strict", false, "reject unrecognized targets instead of scanning them as one host")
	pf.StringVarP(&g.ports, "ports", "p", "", "override the port catalog (e.g. 22,80,8000-8100)")
	pf.StringSliceVar(&g.allow, "allow", nil, "restrict scans to these CIDRs")

	root.AddCommand(newScanCmd(g), newServeCmd(g))
	return root
}

// load merges the config file with any flags set on the command line.
func (g *globalFlags) load(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("timeout") {
		cfg.Timeout = config.Duration(g.timeout)
	}
	if flags.Changed("workers") {
		cfg.Workers = g.workers
	}
	if flags.Changed("strict") {
		cfg.Strict = g.strict
	}
	if flags.Changed("ports") {
		cfg.Ports = g.ports
	}
	if flags.Changed("allow") {
		cfg.Allow = g.allow
	}
	if flags.Lookup("listen") != nil && flags.Changed("listen") {
		cfg.Listen, _ = flags.GetString("listen")
	}
	return cfg, cfg.Validate()
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	return zc.Build()
}

func newEngine(cfg config.Config, log *zap.Logger) (*scanner.Engine, error) {
	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}
	return scanner.New(scanner.Options{
		Catalog: catalog,
		Timeout: time.Duration(cfg.Timeout),
		Workers: cfg.Workers,
		Logger:  log,
	}), nil
}

func newScanCmd(g *globalFlags) *cobra.Command {
	var (
		outFile string
		noColor bool
	)
	cmd := &cobra.Command{
		Use:   "scan <target>",
		Short: "Scan one target and print the report",
		Long: `Scan one target expression:

  10.0.0.5          a single host (hostnames work too)
  10.0.0.4-100      hosts .4 through .100
  10.0.0.0/24       hosts .1 through .254`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			log, err := newLogger(g.verbose)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			spec, err := target.Interpret(args[0], cfg.Strict)
			if err != nil {
				return err
			}
			scope, err := cfg.Scope()
			if err != nil {
				return err
			}
			spec, err = scope.Check(spec, netutil.ResolveIPv4)
			if err != nil {
				return err
			}
			eng, err := newEngine(cfg, log)
			if err != nil {
				return err
			}

			log.Info("scan started",
				zap.String("target", spec.Raw),
				zap.Stringer("kind", spec.Kind),
				zap.Int("hosts", spec.Len()))
			rep := eng.Scan(cmd.Context(), spec.Addresses())

			if err := printReport(cmd.OutOrStdout(), rep, !noColor && isTerminal(cmd.OutOrStdout())); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			if outFile != "" {
				if err := output.WriteReportFile(outFile, rep); err != nil {
					return fmt.Errorf("write output file: %w", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outFile, "output", "o", "", "also write the report to this file")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	return cmd
}

func printReport(w io.Writer, rep *scanner.Report, color bool) error {
	if color {
		return output.WriteStyled(w, rep)
	}
	if err := output.WriteText(w, rep); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func newServeCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve scans over HTTP at /adv-scan?target=...",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			log, err := newLogger(g.verbose)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			scope, err := cfg.Scope()
			if err != nil {
				return err
			}
			eng, err := newEngine(cfg, log)
			if err != nil {
				return err
			}
			srv := server.New(eng, server.Options{
				Strict: cfg.Strict,
				Scope:  scope,
				Logger: log,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx, cfg.Listen)
		},
	}
	cmd.Flags().String("listen", ":8080", "HTTP listen address")
	return cmd
}
