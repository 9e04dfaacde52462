package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"docflow/internal/api"
	"docflow/internal/reviewaccess"
)

func newAuthorsCommand(ctx *commandContext) *cobra.Command {
	authorsCmd := &cobra.Command{
		Use:   "authors",
		Short: "Manage document author to user mappings",
	}
	authorsCmd.AddCommand(&cobra.Command{
		Use:   "set <author name> <user id>",
		Short: "Map a document author to the user who owns their conflicts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			userID, err := strconv.ParseInt(strings.TrimSpace(args[1]), 10, 64)
			if err != nil || userID <= 0 {
				return fmt.Errorf("invalid user id %q", args[1])
			}
			return ctx.withReview(func(session reviewaccess.Session) error {
				if err := session.Access.SetAuthor(cmd.Context(), name, userID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Mapped %q to user %d\n", name, userID)
				return nil
			})
		},
	})

	var asJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List author mappings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withReview(func(session reviewaccess.Session) error {
				items, err := session.Access.ListAuthors(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					if items == nil {
						items = []api.AuthorMapping{}
					}
					return writeJSON(cmd, items)
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No author mappings")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]column{leftCol("Author"), numCol("User"), leftCol("Updated")},
					buildAuthorRows(items),
				))
				return nil
			})
		},
	}
	listCmd.Flags().BoolVar(&asJSON, "json", false, "Output mappings as JSON")
	authorsCmd.AddCommand(listCmd)
	return authorsCmd
}
