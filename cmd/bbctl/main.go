// Package main provides bbctl, the BookBridge admin CLI.
//
// Usage:
//
//	bbctl seed
//	bbctl user create ada@example.com --name "Ada Lovelace"
//	bbctl exchange show <request-id>
//	bbctl watermark get <user-id>
//	bbctl notifications unread <user-id>
//	bbctl reindex
//	bbctl backup create --sessions
//	bbctl backup restore <id> --mode merge
//
// Configuration comes from the same environment variables and .env file as
// the server (DATA_DIR, DATABASE_PATH, ...). The watermark store is locked
// while the server runs, so stop the server before using bbctl.
package main

import (
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/bookbridge/bookbridge-server/internal/backup"
	"github.com/bookbridge/bookbridge-server/internal/config"
	"github.com/bookbridge/bookbridge-server/internal/di"
	"github.com/bookbridge/bookbridge-server/internal/di/providers"
	"github.com/bookbridge/bookbridge-server/internal/logger"
	"github.com/bookbridge/bookbridge-server/internal/service"
	"github.com/bookbridge/bookbridge-server/internal/store"
)

const appVersion = "1.0.0"

func main() {
	root := newRootCmd(loadApp)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadApp builds the shared providers without starting the HTTP server.
func loadApp() (*app, func(), error) {
	injector := do.New()
	di.RegisterCore(injector)
	if err := di.BootstrapCore(injector); err != nil {
		return nil, nil, err
	}

	cfg := do.MustInvoke[*config.Config](injector)
	log := do.MustInvoke[*logger.Logger](injector).Component("backup")
	client := do.MustInvoke[*providers.BackendHandle](injector).Client

	a := &app{
		store:         do.MustInvoke[*store.Store](injector),
		auth:          do.MustInvoke[*service.AuthService](injector),
		catalog:       do.MustInvoke[*service.CatalogService](injector),
		requests:      do.MustInvoke[*service.RequestService](injector),
		notifications: do.MustInvoke[*service.NotificationService](injector),
		watermarks:    do.MustInvoke[*providers.WatermarkHandle](injector).Store,
		backups:       backup.NewBackupService(client, cfg.Data.BackupPath(), cfg.App.Name, appVersion, log),
		restorer:      backup.NewRestoreService(client, log),
	}
	closeFn := func() {
		_ = injector.Shutdown()
	}
	return a, closeFn, nil
}
