package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"
)

// Spec describes how to launch one process
type Spec struct {
	Name    string
	Command []string
	Dir     string
	Env     []string
	LogFile string
}

// Launcher starts and stops processes
type Launcher interface {
	// Start launches spec detached from the caller and returns its pid
	Start(spec Spec) (int, error)

	// Stop terminates pid, escalating to SIGKILL if it outlives the timeout
	Stop(ctx context.Context, pid int) error
}

// ExecLauncher launches processes with os/exec in their own session, so
// they keep running after the supervisor exits.
type ExecLauncher struct {
	table       Table
	StopTimeout time.Duration
	PollEvery   time.Duration
}

// NewExecLauncher creates a launcher that uses table to watch for exits
func NewExecLauncher(table Table) *ExecLauncher {
	return &ExecLauncher{
		table:       table,
		StopTimeout: 10 * time.Second,
		PollEvery:   100 * time.Millisecond,
	}
}

// Start launches the process with stdout and stderr appended to LogFile
func (l *ExecLauncher) Start(spec Spec) (int, error) {
	if len(spec.Command) == 0 {
		return 0, fmt.Errorf("no command configured for %s", spec.Name)
	}

	cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), spec.Env...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if spec.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(spec.LogFile), 0755); err != nil {
			return 0, fmt.Errorf("failed to create log directory: %w", err)
		}
		logFile, err := os.OpenFile(spec.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return 0, fmt.Errorf("failed to open log file: %w", err)
		}
		defer logFile.Close()
		cmd.Stdout = logFile
		cmd.Stderr = logFile
	}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start %s: %w", spec.Name, err)
	}

	pid := cmd.Process.Pid

	// Reap the child if it dies while we are still running, so a crashed
	// process does not linger as a zombie in the table.
	go func() { _ = cmd.Wait() }()

	return pid, nil
}

// Stop sends SIGTERM and waits for the process to leave the table. After
// StopTimeout it sends SIGKILL.
func (l *ExecLauncher) Stop(ctx context.Context, pid int) error {
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
		return fmt.Errorf("failed to send SIGTERM to %d: %w", pid, err)
	}

	if l.waitGone(ctx, pid, l.StopTimeout) {
		return nil
	}

	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("failed to kill %d: %w", pid, err)
	}

	if !l.waitGone(ctx, pid, l.StopTimeout) {
		return fmt.Errorf("process %d still alive after SIGKILL", pid)
	}
	return nil
}

func (l *ExecLauncher) waitGone(ctx context.Context, pid int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(l.PollEvery)
	defer ticker.Stop()

	for {
		if !l.table.Alive(pid) {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return !l.table.Alive(pid)
		case <-ticker.C:
		}
	}
}
