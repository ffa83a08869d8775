package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rpupo63/inkwell/database"
)

func newExportCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every post, drafts included, to a backup file",
		Long: `Write every post, drafts included, to a backup file.

Examples:
  blogctl export --password PW                    # blog-backup-YYYY-MM-DD.json
  blogctl export --password PW --out backup.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAdmin(); err != nil {
				return err
			}

			data, err := a.db.PostRepo().ExportAll(cmd.Context())
			if err != nil {
				return err
			}

			path := out
			if path == "" {
				path = database.BackupFileName(time.Now())
			}
			if err := os.WriteFile(path, data, 0o600); err != nil {
				return fmt.Errorf("write backup: %w", err)
			}
			a.out.Success("Exported posts to %s", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Backup file path (default blog-backup-YYYY-MM-DD.json)")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Replace every post with a backup file",
		Long: `Replace every post with the contents of a backup file.

Nothing changes when any record in the file is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAdmin(); err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read backup: %w", err)
			}

			count, err := a.db.PostRepo().ImportAll(cmd.Context(), data)
			if err != nil {
				return err
			}

			// the view model's list is stale after a wholesale replace
			if _, err := a.model.LoadPosts(cmd.Context(), false); err != nil {
				return err
			}
			a.out.Success("Imported %d posts", count)
			return nil
		},
	}
}
