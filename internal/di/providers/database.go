package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/bookbridge/bookbridge-server/internal/backend/sqlite"
	"github.com/bookbridge/bookbridge-server/internal/config"
	"github.com/bookbridge/bookbridge-server/internal/logger"
	"github.com/bookbridge/bookbridge-server/internal/sse"
	"github.com/bookbridge/bookbridge-server/internal/store"
	"github.com/bookbridge/bookbridge-server/internal/watermark"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Component("sse"))

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// BackendHandle wraps the SQLite backend client with shutdown capability.
type BackendHandle struct {
	*sqlite.Client
}

// Shutdown implements do.Shutdownable.
func (h *BackendHandle) Shutdown() error {
	return h.Close()
}

// ProvideBackend opens the SQLite backend.
func ProvideBackend(i do.Injector) (*BackendHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client, err := sqlite.Open(cfg.Data.DatabasePath, log.Component("backend"))
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", cfg.Data.DatabasePath)

	return &BackendHandle{Client: client}, nil
}

// ProvideStore provides the typed gateways over the backend.
func ProvideStore(i do.Injector) (*store.Store, error) {
	backendHandle := do.MustInvoke[*BackendHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return store.New(backendHandle.Client, log.Component("store")), nil
}

// WatermarkHandle wraps the watermark store with shutdown capability.
type WatermarkHandle struct {
	*watermark.Store
}

// Shutdown implements do.Shutdownable.
func (h *WatermarkHandle) Shutdown() error {
	return h.Close()
}

// ProvideWatermarks opens the badger-backed requests watermark store.
func ProvideWatermarks(i do.Injector) (*WatermarkHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	path := cfg.Data.WatermarkPath()
	wm, err := watermark.Open(path, log.Component("watermark"))
	if err != nil {
		return nil, err
	}

	log.Info("Watermark store opened", "path", path)

	return &WatermarkHandle{Store: wm}, nil
}
