package preflight

import (
	"context"
	"path/filepath"

	"docflow/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Watch.GlassDir != "" {
		results = append(results, CheckWatchFolder("Glass folder", cfg.Watch.GlassDir, cfg.Watch.ArchiveDirName, cfg.Watch.SkippedDirName))
	}
	if cfg.Watch.OrdersDir != "" {
		results = append(results, CheckWatchFolder("Orders folder", cfg.Watch.OrdersDir, cfg.Watch.ArchiveDirName, cfg.Watch.SkippedDirName))
	}
	results = append(results, CheckDatabaseFile(cfg.DatabasePath()))

	if cfg.Notifications.NtfyTopic != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	}
	return results
}

// Failed returns the subset of results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

func joinDir(dir, name string) string {
	if name == "" {
		return ""
	}
	return filepath.Join(dir, name)
}
