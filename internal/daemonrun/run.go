// Package daemonrun assembles the daemon process: logging, store, import
// queue, importer, watchers, daemon and IPC server.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"docflow/internal/config"
	"docflow/internal/conflict"
	"docflow/internal/daemon"
	"docflow/internal/importer"
	"docflow/internal/importqueue"
	"docflow/internal/ipc"
	"docflow/internal/logging"
	"docflow/internal/logs"
	"docflow/internal/notifications"
	"docflow/internal/store"
	"docflow/internal/watcher"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Diagnostic forces debug logging and stamps every record with a
	// session id so one run can be pulled out of shared log archives.
	Diagnostic bool
}

// Run starts the docflow daemon runtime loop.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	var sessionID string
	level := opts.LogLevel
	if opts.Diagnostic {
		sessionID = uuid.NewString()
		level = "debug"
	}
	logger, logPath, err := logging.NewFromConfig(cfg, logging.RunOptions{
		RunID:       runID,
		Level:       level,
		SessionID:   sessionID,
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if opts.Diagnostic {
		logger.Info("diagnostic mode enabled",
			logging.String(logging.FieldEventType, "diagnostic_mode_enabled"),
			logging.String("session_id", sessionID),
		)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update docflow.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir, logPath)
	logConfigSnapshot(logger, cfg)

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open import store",
			logging.Error(err),
			logging.String(logging.FieldEventType, "store_open_failed"),
			logging.String(logging.FieldErrorHint, "check data_dir permissions and free disk space"),
		)
		return err
	}

	notifier := notifications.NewAsync(notifications.NewService(cfg), logger)
	defer notifier.Close()

	resolver := conflict.New(st, logger)
	imp := importer.New(cfg, st, resolver, notifier, logger)
	queue := importqueue.New(importqueue.OptionsFromConfig(cfg), logger)

	d, err := daemon.New(cfg, daemon.Dependencies{
		Store:    st,
		Queue:    queue,
		Jobs:     imp,
		Resolver: resolver,
		Watchers: watcher.FromConfig(cfg, queue, imp, logger),
		Notifier: notifier,
	}, logger)
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and database access"),
			logging.String(logging.FieldImpact, "documents are not imported until the daemon is started"),
		)
	}

	<-signalCtx.Done()
	logger.Info("docflow daemon shutting down",
		logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, logs.CurrentName)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("glass_dir", cfg.Watch.GlassDir),
		logging.String("orders_dir", cfg.Watch.OrdersDir),
		logging.Bool("polling", cfg.Watch.Polling),
		logging.Duration("stability", cfg.StabilityThreshold()),
		logging.Int("max_retries", cfg.Queue.MaxRetries),
		logging.String("database", cfg.DatabasePath()),
		logging.String("api_bind", cfg.Paths.APIBind),
		logging.Bool("api_token_present", strings.TrimSpace(cfg.Paths.APIToken) != ""),
		logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.Int("author_mappings", len(cfg.Authors.Mappings)),
	)
}
