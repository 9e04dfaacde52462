package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"docflow/internal/config"
	"docflow/internal/ipc"
)

// ErrDaemonNotRunning indicates daemon IPC is unavailable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// StopResult describes how the daemon went away.
type StopResult struct {
	StopAcknowledged bool
	ForcedKill       bool
	PID              int
}

// StopAndTerminate stops the import services over IPC, sends SIGTERM to the
// daemon process and waits up to gracePeriod for the socket to disappear.
// A daemon that is still answering after that is killed through its pid
// file.
func StopAndTerminate(socketPath string, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, err
	}
	status, statusErr := client.Status()
	if statusErr != nil || status == nil {
		status = &ipc.StatusResponse{}
	}
	resp, err := client.Stop()
	_ = client.Close()
	if err != nil {
		return StopResult{}, err
	}

	result := StopResult{PID: status.PID, StopAcknowledged: resp != nil && resp.Stopped}
	signalProcess(status.PID, syscall.SIGTERM)
	if waitUntil(gracePeriod, socketGone(socketPath)) == nil {
		return result, nil
	}

	dataDir := deriveDataDir(status.LockFilePath, status.DatabasePath, cfg)
	if dataDir == "" {
		return result, fmt.Errorf("unable to determine daemon data directory")
	}
	killed, err := forceKill(filepath.Join(dataDir, "docflow.pid"), filepath.Join(dataDir, "docflow.lock"), status.PID)
	if err != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", err)
	}
	_ = os.Remove(socketPath)
	result.ForcedKill = true
	result.PID = killed
	return result, nil
}

func socketGone(socketPath string) func() (bool, error) {
	return func() (bool, error) {
		alive, _, err := processInfo(socketPath)
		return err == nil && !alive, err
	}
}

func signalProcess(pid int, sig os.Signal) {
	if pid <= 0 || pid == os.Getpid() {
		return
	}
	if proc, err := os.FindProcess(pid); err == nil {
		_ = proc.Signal(sig)
	}
}

// deriveDataDir finds the daemon data directory from the paths the daemon
// reported, falling back to the local config.
func deriveDataDir(lockPath, databasePath string, cfg *config.Config) string {
	switch {
	case lockPath != "":
		return filepath.Dir(lockPath)
	case databasePath != "":
		return filepath.Dir(databasePath)
	case cfg != nil && strings.TrimSpace(cfg.Paths.DataDir) != "":
		return cfg.Paths.DataDir
	}
	return ""
}

// forceKill sends SIGKILL to the pid recorded in pidPath (or fallbackPID)
// and removes the pid and lock files.
func forceKill(pidPath, lockPath string, fallbackPID int) (int, error) {
	pid, err := readPIDFile(pidPath)
	if err != nil {
		return 0, err
	}
	if pid <= 0 {
		pid = fallbackPID
	}
	switch {
	case pid <= 0:
		return 0, fmt.Errorf("unable to determine daemon pid (pid file: %s)", pidPath)
	case pid == os.Getpid():
		return 0, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return 0, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove pid file %q: %w", pidPath, err)
	}
	if lockPath != "" {
		_ = os.Remove(lockPath)
	}
	return pid, nil
}

// readPIDFile returns 0 when the file is missing or does not hold a pid.
func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read daemon pid file %q: %w", path, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, nil
	}
	return pid, nil
}
