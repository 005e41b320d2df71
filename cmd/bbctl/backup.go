package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bookbridge/bookbridge-server/internal/backup"
)

func newBackupCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, inspect and restore data backups",
	}

	var sessions bool
	var output string
	create := &cobra.Command{
		Use:   "create",
		Short: "Write every table to a backup archive",
		Args:  cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, a *app, _ []string) error {
			result, err := a.backups.Create(ctx, backup.BackupOptions{
				IncludeSessions: sessions,
				OutputPath:      output,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "wrote %s (%d bytes, sha256 %s)\n", result.Path, result.Size, result.Checksum)
			return nil
		}),
	}
	create.Flags().BoolVar(&sessions, "sessions", false, "Include sign-in sessions")
	create.Flags().StringVarP(&output, "output", "o", "", "Write to this path instead of the backup directory")

	list := &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, a *app, _ []string) error {
			backups, err := a.backups.List(ctx)
			if err != nil {
				return err
			}
			for _, b := range backups {
				fmt.Fprintf(a.out, "%s %s %d\n", b.ID, b.CreatedAt.UTC().Format("2006-01-02 15:04"), b.Size)
			}
			return nil
		}),
	}

	var mode string
	var dryRun bool
	restore := &cobra.Command{
		Use:   "restore <id|path>",
		Short: "Load a backup into the database",
		Long: "Load a backup into the database. Full mode replaces every table; " +
			"merge mode keeps local rows whose IDs already exist. Rebuild the " +
			"search index afterwards with `bbctl reindex`.",
		Args: cobra.ExactArgs(1),
		RunE: c.run(func(ctx context.Context, a *app, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err != nil {
				path = a.backups.GetPath(args[0])
			}

			validation, err := a.restorer.Validate(ctx, path)
			if err != nil {
				return err
			}
			if !validation.Valid {
				return fmt.Errorf("%w: %v", backup.ErrInvalidManifest, validation.Errors)
			}
			for _, w := range validation.Warnings {
				fmt.Fprintln(a.out, "warning:", w)
			}

			result, err := a.restorer.Restore(ctx, path, backup.RestoreOptions{
				Mode:   backup.RestoreMode(mode),
				DryRun: dryRun,
			})
			if err != nil {
				return err
			}
			for _, table := range backup.Tables() {
				fmt.Fprintf(a.out, "%-18s imported %d skipped %d\n", table, result.Imported[table], result.Skipped[table])
			}
			for _, e := range result.Errors {
				fmt.Fprintf(a.out, "error %s %s: %s\n", e.Table, e.EntityID, e.Error)
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d rows failed to restore", len(result.Errors))
			}
			return nil
		}),
	}
	restore.Flags().StringVar(&mode, "mode", string(backup.RestoreModeMerge), "Restore mode: full or merge")
	restore.Flags().BoolVar(&dryRun, "dry-run", false, "Read the backup without writing")

	cmd.AddCommand(create, list, restore)
	return cmd
}
