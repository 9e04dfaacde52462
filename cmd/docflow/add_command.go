package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"docflow/internal/ipc"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <file>",
		Short: "Queue a document for import",
		Long: "Queue a document for import as if a watcher had seen it. The document\n" +
			"type is inferred from the file name; the file stays where it is until the\n" +
			"import moves it to the archive.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := importablePath(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.AddFile(path)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				name := filepath.Base(path)
				if !resp.Result.Queued {
					fmt.Fprintf(out, "%s is already queued\n", name)
					return nil
				}
				fmt.Fprintf(out, "Queued %s as %s (%s priority)\n",
					name, resp.Result.DocumentType, formatStatusLabel(resp.Result.Priority))
				return nil
			})
		},
	}
}

// importablePath makes arg absolute and checks that it names a regular file.
func importablePath(arg string) (string, error) {
	path, err := filepath.Abs(arg)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("file does not exist: %s", path)
	case err != nil:
		return "", fmt.Errorf("inspect file: %w", err)
	case info.IsDir():
		return "", fmt.Errorf("%s is a directory", path)
	}
	return path, nil
}
