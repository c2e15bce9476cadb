package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cuemby/burrow/pkg/health"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/process"
	"github.com/cuemby/burrow/pkg/settings"
	"github.com/cuemby/burrow/pkg/types"
)

// Actions recorded in the report and in the actions metric
const (
	ActionRewritePort    = "rewrite_port"
	ActionStartService   = "start_service"
	ActionRestartService = "restart_service"
	ActionStopSidecar    = "stop_sidecar"
	ActionStartSidecar   = "start_sidecar"
)

// ErrLocked is returned when another run holds the lock file
var ErrLocked = errors.New("another supervisor run holds the lock")

// ErrSidecarDown is returned when the sidecar is not alive after the grace period
var ErrSidecarDown = errors.New("sidecar failed to start")

// Report describes what one run observed and did
type Report struct {
	RunID string

	// Initial is the observation taken on entry
	Service types.ProcessState
	Sidecar types.ProcessState

	// NoOp is true when both processes were already running
	NoOp bool

	PortChange settings.Change

	// ServiceStartErr is set when launching the primary failed. The run
	// still proceeds to the sidecar step.
	ServiceStartErr error

	// Actions lists the mutations performed, in order
	Actions []string

	// SidecarHealth is the liveness result after the grace period
	SidecarHealth health.Result
}

// Supervisor converges a node to the primary service listening on the
// internal port and the capture sidecar listening on the advertised port.
type Supervisor struct {
	cfg      Config
	table    process.Table
	launcher process.Launcher
	metrics  *metrics.Supervisor
	out      io.Writer
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option customizes a Supervisor
type Option func(*Supervisor)

// WithMetrics records the run into m
func WithMetrics(m *metrics.Supervisor) Option {
	return func(s *Supervisor) { s.metrics = m }
}

// WithOutput sets where operator-facing diagnostics such as the sidecar
// log tail are printed (default os.Stdout)
func WithOutput(w io.Writer) Option {
	return func(s *Supervisor) { s.out = w }
}

// WithSleep replaces the grace period wait
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Supervisor) { s.sleep = sleep }
}

// New creates a supervisor that observes table and mutates through launcher
func New(cfg Config, table process.Table, launcher process.Launcher, opts ...Option) *Supervisor {
	s := &Supervisor{
		cfg:      cfg,
		table:    table,
		launcher: launcher,
		out:      os.Stdout,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run performs one convergence pass. It never retries: a failed run is
// re-attempted by invoking Run again, which re-derives everything from the
// process table and the config document.
func (s *Supervisor) Run(ctx context.Context) (report *Report, err error) {
	report = &Report{RunID: uuid.New().String()}
	logger := log.WithRunID("supervisor", report.RunID)

	timer := metrics.NewTimer()
	defer func() {
		s.metrics.Finish(timer, err == nil)
		if err != nil {
			logger.Error().Err(err).Dur("elapsed", timer.Duration()).Msg("Supervisor run failed")
		} else {
			logger.Info().Dur("elapsed", timer.Duration()).Strs("actions", report.Actions).Msg("Supervisor run complete")
		}
	}()

	if err := s.cfg.Validate(); err != nil {
		return report, fmt.Errorf("invalid configuration: %w", err)
	}

	if s.cfg.LockFile != "" {
		lock := flock.New(s.cfg.LockFile)
		locked, err := lock.TryLock()
		if err != nil {
			return report, fmt.Errorf("cannot acquire lock %q: %w", lock.Path(), err)
		}
		if !locked {
			return report, fmt.Errorf("%w: %s", ErrLocked, lock.Path())
		}
		defer func() { _ = lock.Unlock() }()
	}

	service, err := s.observe(s.cfg.Service)
	if err != nil {
		return report, err
	}
	sidecar, err := s.observe(s.cfg.Sidecar)
	if err != nil {
		return report, err
	}
	report.Service, report.Sidecar = service, sidecar
	logger.Info().
		Str("service", service.String()).
		Str("sidecar", sidecar.String()).
		Msg("Observed process state")

	if service.Alive && sidecar.Alive {
		report.NoOp = true
		logger.Info().Msg("Service and sidecar already running, nothing to do")
		return report, nil
	}

	change, err := s.reconcilePort()
	if err != nil {
		return report, err
	}
	report.PortChange = change
	if change != settings.Unchanged {
		s.record(report, ActionRewritePort)
		logger.Info().
			Str("setting", s.cfg.PortSetting).
			Int("port", s.cfg.InternalPort).
			Str("change", change.String()).
			Msg("Rewrote service port")
	}

	switch {
	case !service.Alive:
		s.startService(ctx, logger, report, ActionStartService)
	case change != settings.Unchanged:
		// The running process does not reload the port setting.
		logger.Info().Int("pid", service.PID).Msg("Stopping service to apply port change")
		if err := s.launcher.Stop(ctx, service.PID); err != nil {
			return report, fmt.Errorf("failed to stop %s: %w", s.cfg.Service.Name, err)
		}
		s.startService(ctx, logger, report, ActionRestartService)
	default:
		logger.Info().Int("pid", service.PID).Msg("Service already on internal port, leaving it running")
	}

	return report, s.replaceSidecar(ctx, logger, report)
}

// startService launches the primary. Failure is logged and recorded, never
// returned: the sidecar step runs regardless.
func (s *Supervisor) startService(ctx context.Context, logger zerolog.Logger, report *Report, action string) {
	pid, err := s.launcher.Start(s.cfg.ServiceSpec())
	if err != nil {
		report.ServiceStartErr = err
		logger.Error().Err(err).Msg("Failed to start service, continuing to sidecar")
		return
	}
	s.record(report, action)
	logger.Info().Int("pid", pid).Str("log", s.cfg.Service.LogFile).Msg("Started service")
}

// replaceSidecar stops any running sidecar, launches a fresh one and
// verifies it survived the grace period
func (s *Supervisor) replaceSidecar(ctx context.Context, logger zerolog.Logger, report *Report) error {
	sidecar, err := s.observe(s.cfg.Sidecar)
	if err != nil {
		return err
	}
	if sidecar.Alive {
		logger.Info().Int("pid", sidecar.PID).Msg("Stopping running sidecar")
		if err := s.launcher.Stop(ctx, sidecar.PID); err != nil {
			return fmt.Errorf("failed to stop %s: %w", s.cfg.Sidecar.Name, err)
		}
		s.record(report, ActionStopSidecar)
	}

	spec := s.cfg.SidecarSpec()
	pid, err := s.launcher.Start(spec)
	if err != nil {
		s.printTail(logger)
		return fmt.Errorf("%w: %v", ErrSidecarDown, err)
	}
	s.record(report, ActionStartSidecar)
	logger.Info().
		Int("pid", pid).
		Str("destination", s.cfg.DestinationURI()).
		Int("listen_port", s.cfg.ListenPort).
		Msg("Started sidecar")

	logger.Info().Dur("grace_period", s.cfg.GracePeriod).Msg("Waiting before checking sidecar")
	if err := s.sleep(ctx, s.cfg.GracePeriod); err != nil {
		return err
	}

	checkers := []health.Checker{
		health.NewProcessChecker(s.table, s.cfg.Sidecar.Name, s.cfg.Sidecar.Match),
	}
	if s.cfg.CheckListenPort {
		checkers = append(checkers, health.NewTCPChecker(s.cfg.Sidecar.Name, s.cfg.ListenPort).WithTimeout(2*time.Second))
	}
	result := health.All(ctx, checkers...)
	report.SidecarHealth = result
	s.metrics.Observed(s.cfg.Sidecar.Name, result.Healthy)

	if !result.Healthy {
		logger.Error().Str("reason", result.Message).Msg("Sidecar is not running after grace period")
		s.printTail(logger)
		return fmt.Errorf("%w: %s", ErrSidecarDown, result.Message)
	}
	logger.Info().Msg(result.Message)
	return nil
}

// observe takes a fresh look at the process table
func (s *Supervisor) observe(pc ProcessConfig) (types.ProcessState, error) {
	state, err := s.table.Lookup(pc.Name, pc.Match)
	if err != nil {
		return state, fmt.Errorf("failed to inspect %s: %w", pc.Name, err)
	}
	s.metrics.Observed(pc.Name, state.Alive)
	return state, nil
}

// reconcilePort makes the port setting equal to the internal port. A
// missing or unwritable config document is fatal.
func (s *Supervisor) reconcilePort() (settings.Change, error) {
	info, err := os.Stat(s.cfg.ConfigPath)
	if err != nil {
		return settings.Unchanged, fmt.Errorf("failed to read service config: %w", err)
	}
	doc, err := os.ReadFile(s.cfg.ConfigPath)
	if err != nil {
		return settings.Unchanged, fmt.Errorf("failed to read service config: %w", err)
	}

	updated, change := settings.Set(doc, s.cfg.PortSetting, strconv.Itoa(s.cfg.InternalPort))
	if change == settings.Unchanged {
		return change, nil
	}
	if err := writeFileAtomic(s.cfg.ConfigPath, updated, info.Mode().Perm()); err != nil {
		return settings.Unchanged, fmt.Errorf("failed to rewrite service config: %w", err)
	}
	return change, nil
}

func (s *Supervisor) record(report *Report, action string) {
	report.Actions = append(report.Actions, action)
	s.metrics.Action(action)
}

func (s *Supervisor) printTail(logger zerolog.Logger) {
	lines, err := process.Tail(s.cfg.Sidecar.LogFile, s.cfg.LogTailLines)
	if err != nil {
		logger.Warn().Err(err).Str("log", s.cfg.Sidecar.LogFile).Msg("Cannot read sidecar log")
		return
	}
	fmt.Fprintf(s.out, "Last %d lines of %s:\n", len(lines), s.cfg.Sidecar.LogFile)
	for _, line := range lines {
		fmt.Fprintf(s.out, "  %s\n", line)
	}
}

// writeFileAtomic replaces path through a rename so readers never see a
// partially written document
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
