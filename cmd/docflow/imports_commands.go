package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"docflow/internal/api"
	"docflow/internal/reviewaccess"
)

func newImportsCommand(ctx *commandContext) *cobra.Command {
	importsCmd := &cobra.Command{
		Use:   "imports",
		Short: "Inspect the document import ledger",
	}
	importsCmd.AddCommand(newImportsListCommand(ctx))
	return importsCmd
}

func newImportsListCommand(ctx *commandContext) *cobra.Command {
	var query api.ImportQuery
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger rows, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withReview(func(session reviewaccess.Session) error {
				items, err := session.Access.ListImports(cmd.Context(), query)
				if err != nil {
					return err
				}
				if asJSON {
					if items == nil {
						items = []api.ImportEntry{}
					}
					return writeJSON(cmd, items)
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No imports recorded")
					return nil
				}
				table := renderTable(
					[]column{numCol("ID"), leftCol("Status"), leftCol("Type"), fileCol("File"), leftCol("Processed"), leftCol("Detail")},
					buildImportRows(items),
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&query.Status, "status", "s", "", "Filter by status (pending, processing, completed, failed, skipped)")
	cmd.Flags().StringVarP(&query.FileType, "type", "t", "", "Filter by document type")
	cmd.Flags().StringVar(&query.Filepath, "path", "", "Filter by source file path")
	cmd.Flags().IntVarP(&query.Limit, "limit", "n", 50, "Maximum rows to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output rows as JSON")
	return cmd
}
