package daemonctl

import (
	"context"
	"errors"
	"os"
	"syscall"
	"time"

	"docflow/internal/api"
	"docflow/internal/config"
	"docflow/internal/ipc"
	"docflow/internal/preflight"
	"docflow/internal/reviewaccess"
	"docflow/internal/store"
)

const offlineQueryTimeout = 2 * time.Second

// BuildStatusSnapshot returns the live daemon status when the socket
// answers. Otherwise it assembles an offline status from local preflight
// checks and a direct read of the import database; live is false then.
func BuildStatusSnapshot(ctx context.Context, socketPath string, cfg *config.Config) (*ipc.StatusResponse, bool, error) {
	if cfg == nil {
		return nil, false, errors.New("configuration not available")
	}
	if client, err := ipc.Dial(socketPath); err == nil {
		resp, statusErr := client.Status()
		_ = client.Close()
		if statusErr == nil && resp != nil {
			return resp, true, nil
		}
	}

	status := &ipc.StatusResponse{
		DatabasePath: cfg.DatabasePath(),
		LockFilePath: cfg.LockPath(),
		Checks:       api.FromChecks(preflight.RunAll(ctx, cfg)),
	}
	fillFromDatabase(ctx, cfg, status)
	return status, false, nil
}

// fillFromDatabase adds import and conflict counters when the database
// exists. Read errors leave the counters unset.
func fillFromDatabase(ctx context.Context, cfg *config.Config, status *ipc.StatusResponse) {
	if _, err := os.Stat(cfg.DatabasePath()); err != nil {
		return
	}
	st, err := store.Open(cfg)
	if err != nil {
		return
	}
	defer st.Close()

	queryCtx, cancel := context.WithTimeout(ctx, offlineQueryTimeout)
	defer cancel()

	access := reviewaccess.NewStoreAccess(st)
	if stats, err := access.ImportStats(queryCtx); err == nil {
		status.ImportStats = stats
	}
	if count, err := access.CountConflicts(queryCtx, nil); err == nil {
		status.Conflicts = count
	}
}

// processInfo reports whether the daemon socket answers and the daemon pid.
func processInfo(socketPath string) (bool, int, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	defer client.Close()
	status, err := client.Status()
	if err != nil {
		return true, 0, err
	}
	if status == nil {
		return true, 0, nil
	}
	return true, status.PID, nil
}

func isDaemonUnavailable(err error) bool {
	return errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
