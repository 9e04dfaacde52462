package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"docflow/internal/api"
	"docflow/internal/daemonctl"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startDiagnostic bool
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the docflow daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonLaunchOptions(ctx, startDiagnostic),
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}

			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintln(stdout, "Daemon started")
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			case daemonctl.StartStateRequested:
				if strings.TrimSpace(result.Message) != "" {
					fmt.Fprintln(stdout, result.Message)
					return nil
				}
				fmt.Fprintln(stdout, "Start request sent")
			}
			return nil
		},
	}
	startCmd.Flags().BoolVar(&startDiagnostic, "diagnostic", false, "Enable diagnostic mode with DEBUG logs and a session id")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the docflow daemon (terminates the process)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if !result.StopAcknowledged {
				fmt.Fprintln(stdout, "Stop request sent")
			} else {
				fmt.Fprintln(stdout, "Stopping import services...")
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, watcher, queue and ledger status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			status, live, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), cfg)
			if err != nil {
				return err
			}
			if statusJSON {
				return writeJSON(cmd, status)
			}
			renderDaemonStatus(cmd.OutOrStdout(), *status, live)
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output status as JSON")

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func renderDaemonStatus(out io.Writer, status api.DaemonStatus, live bool) {
	w := newStatusWriter(out)
	w.section("System Status")
	switch {
	case status.Running:
		w.line("Docflow", statusOK, fmt.Sprintf("Running (pid %d)", status.PID))
	case live:
		w.line("Docflow", statusWarn, "Process up, import services stopped (run `docflow start`)")
	default:
		w.line("Docflow", statusWarn, "Not running (run `docflow start`)")
	}
	w.line("Database", statusInfo, status.DatabasePath)
	for _, check := range status.Checks {
		w.check(check.Name, check.Passed, check.Detail, statusError)
	}
	w.blank()

	if live {
		w.section("Watchers")
		if len(status.Watchers) == 0 {
			w.line("Watchers", statusWarn, "No watch folders configured")
		}
		for _, ws := range status.Watchers {
			label, kind, detail := watcherStatusLine(ws)
			w.line(label, kind, detail)
		}
		w.blank()

		w.section("Import Queue")
		q := status.Queue
		queueKind, queueDetail := statusOK, "Active"
		if q.Paused {
			queueKind, queueDetail = statusWarn, "Paused"
		} else if !q.Running {
			queueKind, queueDetail = statusInfo, "Stopped"
		}
		w.line("Queue", queueKind, queueDetail)
		w.line("Waiting", statusInfo, fmt.Sprintf("%d pending, %d processing, %d retrying", q.Pending, q.Processing, q.Retrying))
		w.line("Processed", statusInfo, fmt.Sprintf("%d completed, %d failed (avg %.0f ms)", q.Completed, q.Failed, q.AvgProcessingMs))
		w.blank()
	}

	w.section("Conflicts")
	w.check("Pending review", status.Conflicts.Pending == 0,
		fmt.Sprintf("%d of %d", status.Conflicts.Pending, status.Conflicts.Total), statusWarn)
	w.blank()

	w.section("Import Ledger")
	rows := buildImportStatsRows(status.ImportStats)
	if len(rows) == 0 {
		fmt.Fprintln(out, "No imports recorded")
		return
	}
	fmt.Fprint(out, renderTable([]column{leftCol("Status"), numCol("Count")}, rows))
}

func watcherStatusLine(ws api.WatcherStatus) (string, statusKind, string) {
	label := formatStatusLabel(ws.Source)
	if !ws.Running {
		detail := "Stopped"
		if ws.LastError != "" {
			detail = "Stopped: " + ws.LastError
		}
		return label, statusError, detail
	}
	detail := fmt.Sprintf("%s (%s, %d submitted", ws.Dir, ws.Mode, ws.Submitted)
	if ws.Settling > 0 {
		detail += fmt.Sprintf(", %d settling", ws.Settling)
	}
	detail += ")"
	if ws.LastError != "" {
		return label, statusWarn, detail + ": " + ws.LastError
	}
	return label, statusOK, detail
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext, diagnostic bool) daemonctl.LaunchOptions {
	return daemonctl.LaunchOptions{
		ConfigPath: ctx.configPath(),
		Diagnostic: diagnostic,
	}
}
