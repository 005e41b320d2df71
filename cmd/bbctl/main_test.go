package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookbridge/bookbridge-server/internal/auth"
	"github.com/bookbridge/bookbridge-server/internal/backend/sqlite"
	"github.com/bookbridge/bookbridge-server/internal/backup"
	"github.com/bookbridge/bookbridge-server/internal/logger"
	"github.com/bookbridge/bookbridge-server/internal/service"
	"github.com/bookbridge/bookbridge-server/internal/store"
	"github.com/bookbridge/bookbridge-server/internal/validation"
	"github.com/bookbridge/bookbridge-server/internal/watermark"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	log := logger.Discard()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "cli.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	wm, err := watermark.Open("", log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = wm.Close() })

	tokens, err := auth.NewTokenService(make([]byte, 32), 15*time.Minute, time.Hour)
	require.NoError(t, err)

	st := store.New(db, log)
	v := validation.New()
	sessions := service.NewSessionService(st, tokens, log)
	profiles := service.NewProfileService(st, v, log)
	notifications := service.NewNotificationService(db, st, nil, log)
	notifications.Register(db)
	catalog := service.NewCatalogService(st, nil, v, log)

	return &app{
		store:         st,
		auth:          service.NewAuthService(st, tokens, sessions, v, log),
		catalog:       catalog,
		requests:      service.NewRequestService(st, catalog, profiles, notifications, v, nil, log),
		notifications: notifications,
		watermarks:    wm,
		backups:       backup.NewBackupService(db, filepath.Join(t.TempDir(), "backups"), "test", "test", log),
		restorer:      backup.NewRestoreService(db, log),
	}
}

// execute runs bbctl against a and returns what it printed.
func execute(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a.out = &out

	root := newRootCmd(func() (*app, func(), error) {
		return a, func() {}, nil
	})
	root.SetArgs(args)
	root.SetOut(&out)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSeed(t *testing.T) {
	a := newTestApp(t)

	out, err := execute(t, a, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "ada@example.com")
	assert.Contains(t, out, `"Dune"`)
	assert.Contains(t, out, "request ")

	n, err := a.store.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// A second run leaves existing users alone.
	out, err = execute(t, a, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "skip ada@example.com: already seeded")
}

func TestNotificationsUnread(t *testing.T) {
	a := newTestApp(t)
	_, err := execute(t, a, "seed")
	require.NoError(t, err)

	ada, err := a.store.GetUserByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)

	out, err := execute(t, a, "notifications", "unread", ada.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "1 unread\n"), out)
	assert.Contains(t, out, "book_requested")
}

func TestExchangeShow(t *testing.T) {
	a := newTestApp(t)
	_, err := execute(t, a, "seed")
	require.NoError(t, err)

	bea, err := a.store.GetUserByEmail(context.Background(), "bea@example.com")
	require.NoError(t, err)
	reqs, err := a.store.ListOutgoingRequests(context.Background(), bea.ID)
	require.NoError(t, err)
	require.Len(t, reqs, 1)

	out, err := execute(t, a, "exchange", "show", reqs[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "pending"`)
	assert.NotContains(t, out, `"exchange"`, "nobody has shared yet")

	_, err = execute(t, a, "exchange", "show", "rq-missing")
	assert.Error(t, err)
}

func TestWatermarkCommands(t *testing.T) {
	a := newTestApp(t)

	out, err := execute(t, a, "watermark", "get", "us-1")
	require.NoError(t, err)
	assert.Equal(t, "never visited\n", out)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, a.watermarks.Set("us-1", at))

	out, err = execute(t, a, "watermark", "get", "us-1")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T12:00:00Z\n", out)

	out, err = execute(t, a, "watermark", "list")
	require.NoError(t, err)
	assert.Equal(t, "us-1 2026-03-01T12:00:00Z\n", out)

	_, err = execute(t, a, "watermark", "reset", "us-1")
	require.NoError(t, err)
	got, err := a.watermarks.Get("us-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUserCreate(t *testing.T) {
	a := newTestApp(t)

	out, err := execute(t, a, "user", "create", "Dana@Example.com", "--name", "Dana", "--password", "correct horse battery")
	require.NoError(t, err)
	assert.Contains(t, out, "dana@example.com")

	_, err = execute(t, a, "user", "create", "dana@example.com", "--password", "correct horse battery")
	assert.Error(t, err)
}

func TestReindexWithoutIndex(t *testing.T) {
	a := newTestApp(t)

	out, err := execute(t, a, "reindex")
	require.NoError(t, err)
	assert.Equal(t, "indexed 0 books\n", out)
}

func TestBackupCreateAndRestore(t *testing.T) {
	a := newTestApp(t)
	_, err := execute(t, a, "seed")
	require.NoError(t, err)

	out, err := execute(t, a, "backup", "create")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "wrote "), out)

	out, err = execute(t, a, "backup", "list")
	require.NoError(t, err)
	id := strings.Fields(out)[0]

	out, err = execute(t, a, "backup", "restore", id, "--mode", "merge")
	require.NoError(t, err)
	assert.Contains(t, out, "users")
	assert.Contains(t, out, "imported 0 skipped 3")

	out, err = execute(t, a, "backup", "restore", id, "--mode", "full")
	require.NoError(t, err)
	n, err := a.store.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n, out)

	_, err = execute(t, a, "backup", "restore", "missing")
	assert.ErrorIs(t, err, backup.ErrInvalidManifest)
}
