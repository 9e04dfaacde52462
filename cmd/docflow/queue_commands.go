package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"docflow/internal/ipc"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and control the in-memory import queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueuePauseCommand(ctx))
	queueCmd.AddCommand(newQueueResumeCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show queue counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueStatus()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Stats)
				}
				s := resp.Stats
				state := "active"
				switch {
				case s.Paused:
					state = "paused"
				case !s.Running:
					state = "stopped"
				}
				rows := [][]string{
					{"State", state},
					{"Pending", strconv.Itoa(s.Pending)},
					{"Processing", strconv.Itoa(s.Processing)},
					{"Retrying", strconv.Itoa(s.Retrying)},
					{"Completed", strconv.Itoa(s.Completed)},
					{"Failed", strconv.Itoa(s.Failed)},
					{"Total processed", strconv.Itoa(s.TotalProcessed)},
					{"Avg processing", fmt.Sprintf("%.0f ms", s.AvgProcessingMs)},
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]column{leftCol("Metric"), numCol("Value")}, rows))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output counters as JSON")
	return cmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued imports in execution order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueStatus()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Snapshot)
				}
				rows := buildQueueJobRows(resp.Snapshot)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(
					[]column{
						leftCol("ID"), leftCol("State"), leftCol("Priority"), leftCol("Type"),
						fileCol("File"), numCol("Attempt"), leftCol("Retry At"),
					},
					rows,
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output queue contents as JSON")
	return cmd
}

func newQueuePauseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Stop dispatching new imports (the running import finishes)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.QueuePause(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Queue paused")
				return nil
			})
		},
	}
}

func newQueueResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume dispatching imports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.QueueResume(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Queue resumed")
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop pending and retrying imports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueClear()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d queued imports\n", resp.Removed)
				return nil
			})
		},
	}
}
