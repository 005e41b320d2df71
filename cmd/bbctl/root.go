package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bookbridge/bookbridge-server/internal/backup"
	"github.com/bookbridge/bookbridge-server/internal/service"
	"github.com/bookbridge/bookbridge-server/internal/store"
	"github.com/bookbridge/bookbridge-server/internal/watermark"
)

// app holds what the commands operate on.
type app struct {
	store         *store.Store
	auth          *service.AuthService
	catalog       *service.CatalogService
	requests      *service.RequestService
	notifications *service.NotificationService
	watermarks    *watermark.Store
	backups       *backup.BackupService
	restorer      *backup.RestoreService
	out           io.Writer
}

// loader opens the app and returns a function that releases it.
type loader func() (*app, func(), error)

// cli lazily opens the app so --help never touches the database.
type cli struct {
	load  loader
	app   *app
	close func()
}

func (c *cli) open(cmd *cobra.Command) (*app, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, closeFn, err := c.load()
	if err != nil {
		return nil, fmt.Errorf("open bookbridge data: %w", err)
	}
	if a.out == nil {
		a.out = cmd.OutOrStdout()
	}
	c.app, c.close = a, closeFn
	return a, nil
}

func (c *cli) shutdown() {
	if c.close != nil {
		c.close()
		c.app, c.close = nil, nil
	}
}

// run adapts a command body that needs the app.
func (c *cli) run(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := c.open(cmd)
		if err != nil {
			return err
		}
		defer c.shutdown()
		return fn(cmd.Context(), a, args)
	}
}

func newRootCmd(load loader) *cobra.Command {
	c := &cli{load: load}

	root := &cobra.Command{
		Use:           "bbctl",
		Short:         "Administer a BookBridge server's data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newSeedCmd(c),
		newUserCmd(c),
		newExchangeCmd(c),
		newWatermarkCmd(c),
		newNotificationsCmd(c),
		newReindexCmd(c),
		newBackupCmd(c),
	)
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
