// Package daemonctl starts the reconstruction daemon that drains the queue,
// detached from the launcher so it outlives the launching shell.
package daemonctl

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Options controls daemon process launch behavior.
type Options struct {
	// Command is the daemon argv. The library path is appended as the last
	// argument.
	Command     []string
	LibraryPath string
	// LogFile receives the daemon's stdout and stderr, appended.
	LogFile string
	// PIDFile records the launched pid. Empty disables the already-running
	// check.
	PIDFile string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State StartState
	PID   int
}

// EnsureStarted launches the daemon unless the pid file points at a live
// process.
func EnsureStarted(opts Options) (StartResult, error) {
	if opts.PIDFile != "" {
		pid, err := ReadPID(opts.PIDFile)
		if err != nil {
			return StartResult{}, err
		}
		if pid > 0 && processAlive(pid) {
			return StartResult{State: StartStateAlreadyRunning, PID: pid}, nil
		}
	}
	pid, err := Launch(opts)
	if err != nil {
		return StartResult{}, err
	}
	return StartResult{State: StartStateStarted, PID: pid}, nil
}

// Launch starts a detached daemon process and returns its pid. The process
// runs in its own session with stdin from /dev/null, so closing the
// launching terminal does not stop it.
func Launch(opts Options) (int, error) {
	if len(opts.Command) == 0 || strings.TrimSpace(opts.Command[0]) == "" {
		return 0, errors.New("daemon command is empty")
	}
	if strings.TrimSpace(opts.LibraryPath) == "" {
		return 0, errors.New("library path is required")
	}
	if strings.TrimSpace(opts.LogFile) == "" {
		return 0, errors.New("daemon log file is required")
	}
	if err := os.MkdirAll(filepath.Dir(opts.LogFile), 0o755); err != nil {
		return 0, fmt.Errorf("create daemon log directory: %w", err)
	}
	logFile, err := os.OpenFile(opts.LogFile, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open daemon log: %w", err)
	}
	defer logFile.Close()

	args := append(append([]string(nil), opts.Command[1:]...), opts.LibraryPath)
	proc := exec.Command(opts.Command[0], args...)
	proc.Dir = opts.LibraryPath
	proc.Stdout = logFile
	proc.Stderr = logFile
	proc.SysProcAttr = detachedAttrs()
	if err := proc.Start(); err != nil {
		return 0, fmt.Errorf("launch daemon: %w", err)
	}
	pid := proc.Process.Pid

	if opts.PIDFile != "" {
		if err := os.WriteFile(opts.PIDFile, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
			_ = proc.Process.Release()
			return pid, fmt.Errorf("write daemon pid file %q: %w", opts.PIDFile, err)
		}
	}
	return pid, proc.Process.Release()
}

// ReadPID returns the pid recorded in pidPath, or 0 when the file is absent
// or empty.
func ReadPID(pidPath string) (int, error) {
	data, err := os.ReadFile(pidPath)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read daemon pid file %q: %w", pidPath, err)
	}
	pidStr := strings.TrimSpace(string(data))
	if pidStr == "" {
		return 0, nil
	}
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("daemon pid file %q holds %q, not a pid", pidPath, pidStr)
	}
	return pid, nil
}

// ProcessInfo reports whether the daemon recorded in pidPath is alive.
func ProcessInfo(pidPath string) (bool, int, error) {
	pid, err := ReadPID(pidPath)
	if err != nil || pid == 0 {
		return false, 0, err
	}
	return processAlive(pid), pid, nil
}
