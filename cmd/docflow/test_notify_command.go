package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docflow/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		Long: "Send a test notification through the running daemon. When the daemon is\n" +
			"not running the notification is sent directly using the loaded configuration.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			client, dialErr := ctx.dialClient()
			if dialErr == nil {
				defer client.Close()
				resp, err := client.TestNotification()
				if err != nil {
					return err
				}
				if resp == nil {
					return errors.New("missing notification response")
				}
				if resp.Message != "" {
					fmt.Fprintln(out, resp.Message)
				} else if !resp.Sent {
					fmt.Fprintln(out, "Notification not sent")
				}
				return nil
			}

			cfg := ctx.configValue()
			if cfg == nil {
				return dialErr
			}
			if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
				fmt.Fprintln(out, "ntfy topic not configured")
				return nil
			}
			if err := notifications.NewService(cfg).Publish(cmd.Context(), notifications.EventTest, nil); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintln(out, "test notification sent (daemon not running; sent directly)")
			return nil
		},
	}
}
