package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"docflow/internal/api"
	"docflow/internal/reviewaccess"
)

func newConflictsCommand(ctx *commandContext) *cobra.Command {
	conflictsCmd := &cobra.Command{
		Use:   "conflicts",
		Short: "Review order-number conflicts",
	}
	conflictsCmd.AddCommand(newConflictsListCommand(ctx))
	conflictsCmd.AddCommand(newConflictsCountCommand(ctx))
	conflictsCmd.AddCommand(newConflictsShowCommand(ctx))
	conflictsCmd.AddCommand(newConflictsResolveCommand(ctx))
	return conflictsCmd
}

func newConflictsListCommand(ctx *commandContext) *cobra.Command {
	var userID int64
	var filter string
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conflicts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := api.ConflictQuery{UserID: userFlag(userID), Filter: filter, Limit: limit}
			return ctx.withReview(func(session reviewaccess.Session) error {
				items, err := session.Access.ListConflicts(cmd.Context(), query)
				if err != nil {
					return err
				}
				if asJSON {
					if items == nil {
						items = []api.Conflict{}
					}
					return writeJSON(cmd, items)
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No conflicts")
					return nil
				}
				table := renderTable(
					[]column{
						numCol("ID"), leftCol("Order"), leftCol("Base"), leftCol("Status"),
						leftCol("Suggestion"), leftCol("Windows/Glasses"), leftCol("Author"), leftCol("Created"),
					},
					buildConflictRows(items),
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().Int64VarP(&userID, "user", "u", 0, "Only conflicts visible to this user id (owned or unowned)")
	cmd.Flags().StringVarP(&filter, "filter", "f", "pending", "pending, resolved, cancelled or all")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum rows to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output conflicts as JSON")
	return cmd
}

func newConflictsCountCommand(ctx *commandContext) *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count pending and total conflicts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withReview(func(session reviewaccess.Session) error {
				count, err := session.Access.CountConflicts(cmd.Context(), userFlag(userID))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pending: %d\nTotal:   %d\n", count.Pending, count.Total)
				return nil
			})
		},
	}
	cmd.Flags().Int64VarP(&userID, "user", "u", 0, "Only conflicts visible to this user id")
	return cmd
}

func newConflictsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one conflict including the parsed document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseConflictID(args[0])
			if err != nil {
				return err
			}
			return ctx.withReview(func(session reviewaccess.Session) error {
				item, err := session.Access.DescribeConflict(cmd.Context(), id)
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("conflict %d not found", id)
				}
				if asJSON {
					return writeJSON(cmd, item)
				}
				renderConflictDetail(cmd.OutOrStdout(), *item)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the conflict as JSON")
	return cmd
}

func newConflictsResolveCommand(ctx *commandContext) *cobra.Command {
	var userID int64
	var status string
	var resolution string

	cmd := &cobra.Command{
		Use:   "resolve <id> [id...]",
		Short: "Close conflicts as resolved or cancelled",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return errors.New("--user is required")
			}
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseConflictID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			req := api.ResolveConflictRequest{IDs: ids, Status: status, Resolution: resolution, UserID: userID}
			return ctx.withReview(func(session reviewaccess.Session) error {
				result, err := session.Access.ResolveConflicts(cmd.Context(), req)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, item := range result.Items {
					switch item.Outcome {
					case api.ResolveUpdated:
						fmt.Fprintf(out, "Conflict %d %s\n", item.ID, item.Status)
					case api.ResolveAlreadyResolved:
						fmt.Fprintf(out, "Conflict %d was already closed\n", item.ID)
					case api.ResolveNotFound:
						fmt.Fprintf(out, "Conflict %d not found\n", item.ID)
					}
				}
				fmt.Fprintf(out, "Updated %d conflict(s)\n", result.UpdatedCount)
				return nil
			})
		},
	}
	cmd.Flags().Int64VarP(&userID, "user", "u", 0, "User id recorded as resolver (required)")
	cmd.Flags().StringVar(&status, "status", "resolved", "resolved or cancelled")
	cmd.Flags().StringVarP(&resolution, "resolution", "r", "", "Free-text resolution note")
	return cmd
}

func renderConflictDetail(out io.Writer, c api.Conflict) {
	rows := [][]string{
		{"ID", strconv.FormatInt(c.ID, 10)},
		{"Order", c.OrderNumber},
		{"Base order", c.BaseOrderNumber},
		{"Suffix", firstNonEmpty(c.Suffix, "-")},
		{"Status", formatStatusLabel(c.Status)},
		{"Suggestion", formatStatusLabel(c.SystemSuggestion)},
		{"Existing", fmt.Sprintf("%d windows, %d glasses", c.ExistingWindows, c.ExistingGlasses)},
		{"New", fmt.Sprintf("%d windows, %d glasses", c.NewWindows, c.NewGlasses)},
		{"Author", firstNonEmpty(c.DocumentAuthor, "-")},
		{"Owner", optionalID(c.AuthorUserID)},
		{"File", c.Filepath},
		{"Created", formatDisplayTime(c.CreatedAt)},
	}
	if c.Status != "pending" {
		rows = append(rows,
			[]string{"Resolution", firstNonEmpty(c.Resolution, "-")},
			[]string{"Resolved by", optionalID(c.ResolvedByID)},
			[]string{"Resolved at", formatDisplayTime(c.ResolvedAt)},
		)
	}
	fmt.Fprint(out, renderTable([]column{leftCol("Field"), fileCol("Value")}, rows))
	if len(c.ParsedData) > 0 {
		fmt.Fprintln(out, "Parsed document:")
		fmt.Fprintln(out, strings.TrimSpace(string(c.ParsedData)))
	}
}

func parseConflictID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid conflict id %q", raw)
	}
	return id, nil
}

func userFlag(userID int64) *int64 {
	if userID <= 0 {
		return nil
	}
	return &userID
}

func optionalID(id *int64) string {
	if id == nil {
		return "-"
	}
	return strconv.FormatInt(*id, 10)
}
