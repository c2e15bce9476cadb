package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/process"
	"github.com/cuemby/burrow/pkg/supervisor"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// deps are the host facing pieces, replaced in tests
type deps struct {
	newTable    func() (process.Table, error)
	newLauncher func(process.Table) process.Launcher
	options     []supervisor.Option
}

func hostDeps() deps {
	return deps{
		newTable: func() (process.Table, error) {
			return process.NewProcTable("")
		},
		newLauncher: func(t process.Table) process.Launcher {
			return process.NewExecLauncher(t)
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, hostDeps())
	stop()
	os.Exit(code)
}

// run parses args and performs one supervisor pass. It returns the process
// exit code: 0 on convergence or no-op, 1 on usage errors, help, or a failed
// run.
func run(ctx context.Context, args []string, out io.Writer, d deps) int {
	var helpShown, parsed bool
	cmd := newRootCmd(d, out)
	cmd.PreRun = func(*cobra.Command, []string) { parsed = true }
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(out)

	defaultHelp := cmd.HelpFunc()
	cmd.SetHelpFunc(func(c *cobra.Command, a []string) {
		helpShown = true
		defaultHelp(c, a)
	})

	err := cmd.ExecuteContext(ctx)
	switch {
	case helpShown:
		return 1
	case err != nil:
		fmt.Fprintf(out, "Error: %v\n", err)
		var usage usageError
		if !parsed || errors.As(err, &usage) {
			_ = cmd.Usage()
		}
		return 1
	}
	return 0
}

// usageError marks errors that should be followed by the usage text
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func newRootCmd(d deps, out io.Writer) *cobra.Command {
	defaults := supervisor.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "capture-bootstrap --kafka-endpoints HOST:PORT[,HOST:PORT...]",
		Short: "Converge a search node to the traffic capture layout",
		Long: `capture-bootstrap makes sure the search service listens on the internal
port and the capture proxy listens on the advertised port, forwarding
captured traffic to Kafka and requests to the service.

It is safe to run repeatedly. A node that is already converged is left
untouched.

Examples:
  # Boot-time invocation
  capture-bootstrap --kafka-endpoints b-1.kafka:9092,b-2.kafka:9092

  # Operator re-run with a lock against a concurrent boot run
  capture-bootstrap --kafka-endpoints b-1.kafka:9092 --lock-file /run/capture-bootstrap.lock`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSupervisor(cmd, d, out)
		},
	}
	cmd.SetVersionTemplate(fmt.Sprintf(
		"capture-bootstrap version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return usageError{err}
	})

	flags := cmd.Flags()
	flags.String("kafka-endpoints", "", "Comma-separated Kafka bootstrap servers for the capture proxy (required)")
	flags.String("config", defaults.ConfigPath, "Search service configuration file")
	flags.String("port-setting", defaults.PortSetting, "Setting holding the service listening port")
	flags.Int("internal-port", defaults.InternalPort, "Port the search service must listen on")
	flags.Int("listen-port", defaults.ListenPort, "Port the capture proxy listens on")
	flags.String("destination-scheme", defaults.DestinationScheme, "Scheme the capture proxy uses to reach the service")
	flags.String("service-command", strings.Join(defaults.Service.Command, " "), "Command that starts the search service")
	flags.String("service-match", defaults.Service.Match, "Command line substring identifying the search service")
	flags.String("service-dir", defaults.Service.Dir, "Working directory of the search service")
	flags.String("service-log", defaults.Service.LogFile, "Output file of the search service")
	flags.String("sidecar-command", strings.Join(defaults.Sidecar.Command, " "), "Command that starts the capture proxy")
	flags.String("sidecar-args", "", "Extra arguments appended to the capture proxy command")
	flags.String("sidecar-match", defaults.Sidecar.Match, "Command line substring identifying the capture proxy")
	flags.String("sidecar-dir", defaults.Sidecar.Dir, "Working directory of the capture proxy")
	flags.String("sidecar-log", defaults.Sidecar.LogFile, "Output file of the capture proxy")
	flags.Duration("grace-period", defaults.GracePeriod, "Wait before checking the capture proxy is alive")
	flags.Bool("check-listen-port", false, "Also require the capture proxy to accept connections on the listen port")
	flags.Int("log-tail", defaults.LogTailLines, "Capture proxy log lines printed when it fails to start")
	flags.String("lock-file", "", "Advisory lock file rejecting concurrent runs (disabled when empty)")
	flags.String("metrics-textfile", "", "Write run metrics to this node-exporter textfile")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Bool("json-logs", false, "Log as JSON instead of text")
	_ = cmd.MarkFlagRequired("kafka-endpoints")

	return cmd
}

func runSupervisor(cmd *cobra.Command, d deps, out io.Writer) error {
	flags := cmd.Flags()
	level, _ := flags.GetString("log-level")
	jsonLogs, _ := flags.GetBool("json-logs")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonLogs, Output: out})

	cfg, err := configFromFlags(cmd)
	if err != nil {
		return err
	}

	table, err := d.newTable()
	if err != nil {
		return err
	}

	m := metrics.NewSupervisor()
	opts := append([]supervisor.Option{
		supervisor.WithMetrics(m),
		supervisor.WithOutput(out),
	}, d.options...)

	sup := supervisor.New(cfg, table, d.newLauncher(table), opts...)
	report, runErr := sup.Run(cmd.Context())

	if path, _ := flags.GetString("metrics-textfile"); path != "" {
		if err := m.WriteTextfile(path); err != nil {
			fmt.Fprintf(out, "⚠ Warning: %v\n", err)
		}
	}

	if runErr != nil {
		if errors.Is(runErr, supervisor.ErrSidecarDown) {
			fmt.Fprintf(out, "✗ %s did not come up, %s was left as is\n", cfg.Sidecar.Name, cfg.Service.Name)
		}
		return runErr
	}

	if report.NoOp {
		fmt.Fprintln(out, "✓ Node already converged, nothing to do")
		return nil
	}
	if report.ServiceStartErr != nil {
		fmt.Fprintf(out, "⚠ %s failed to start: %v\n", cfg.Service.Name, report.ServiceStartErr)
	}
	fmt.Fprintf(out, "✓ %s forwarding %d -> %d\n", cfg.Sidecar.Name, cfg.ListenPort, cfg.InternalPort)
	return nil
}

func configFromFlags(cmd *cobra.Command) (supervisor.Config, error) {
	flags := cmd.Flags()
	cfg := supervisor.DefaultConfig()

	cfg.KafkaEndpoints, _ = flags.GetString("kafka-endpoints")
	cfg.ConfigPath, _ = flags.GetString("config")
	cfg.PortSetting, _ = flags.GetString("port-setting")
	cfg.InternalPort, _ = flags.GetInt("internal-port")
	cfg.ListenPort, _ = flags.GetInt("listen-port")
	cfg.DestinationScheme, _ = flags.GetString("destination-scheme")
	cfg.Service.Match, _ = flags.GetString("service-match")
	cfg.Service.Dir, _ = flags.GetString("service-dir")
	cfg.Service.LogFile, _ = flags.GetString("service-log")
	cfg.Sidecar.Match, _ = flags.GetString("sidecar-match")
	cfg.Sidecar.Dir, _ = flags.GetString("sidecar-dir")
	cfg.Sidecar.LogFile, _ = flags.GetString("sidecar-log")
	cfg.GracePeriod, _ = flags.GetDuration("grace-period")
	cfg.CheckListenPort, _ = flags.GetBool("check-listen-port")
	cfg.LogTailLines, _ = flags.GetInt("log-tail")
	cfg.LockFile, _ = flags.GetString("lock-file")

	var err error
	if cfg.Service.Command, err = splitFlag(cmd, "service-command"); err != nil {
		return cfg, err
	}
	if cfg.Sidecar.Command, err = splitFlag(cmd, "sidecar-command"); err != nil {
		return cfg, err
	}
	if cfg.SidecarArgs, err = splitFlag(cmd, "sidecar-args"); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, usageError{err}
	}
	return cfg, nil
}

// splitFlag tokenizes a command-line flag with shell quoting rules
func splitFlag(cmd *cobra.Command, name string) ([]string, error) {
	value, _ := cmd.Flags().GetString(name)
	words, err := shlex.Split(value)
	if err != nil {
		return nil, usageError{fmt.Errorf("invalid --%s: %w", name, err)}
	}
	return words, nil
}
