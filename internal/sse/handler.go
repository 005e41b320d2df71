package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// SnapshotFunc computes the current navigation state for a user.
type SnapshotFunc func(ctx context.Context, userID string) (any, error)

// StreamConfig tunes a stream handler.
type StreamConfig struct {
	// RefreshInterval triggers a timed recount. Zero disables it.
	RefreshInterval time.Duration
	// HeartbeatInterval sends keepalives. Zero uses 30s.
	HeartbeatInterval time.Duration
}

// Handler serves a user's event stream. Events that can change a navigation
// counter are forwarded and followed by a fresh nav.state snapshot.
type Handler struct {
	manager  *Manager
	snapshot SnapshotFunc
	cfg      StreamConfig
	logger   *slog.Logger
}

// NewHandler creates a stream handler.
func NewHandler(manager *Manager, snapshot SnapshotFunc, cfg StreamConfig, logger *slog.Logger) *Handler {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	return &Handler{manager: manager, snapshot: snapshot, cfg: cfg, logger: logger}
}

// Serve streams events for userID until the client goes away, the manager
// closes the stream, or sessionID signs out. Sign-outs of the user's other
// sessions are not forwarded.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, userID, sessionID string) {
	if r.Context().Err() != nil {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		h.logger.Error("failed to flush headers", slog.String("error", err.Error()))
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	client, err := h.manager.Connect(userID)
	if err != nil {
		h.logger.Error("failed to register SSE client", slog.String("error", err.Error()))
		http.Error(w, "Failed to establish connection", http.StatusInternalServerError)
		return
	}
	defer h.manager.Disconnect(client.ID)

	log := h.logger.With(
		slog.String("client_id", client.ID),
		slog.String("user_id", userID),
		slog.String("session_id", sessionID))
	ctx := r.Context()

	if err := h.send(w, rc, NewEvent(EventConnected, map[string]string{"client_id": client.ID})); err != nil {
		return
	}
	if err := h.sendSnapshot(ctx, w, rc, userID, log); err != nil {
		return
	}

	heartbeat := time.NewTicker(h.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	var refresh <-chan time.Time
	if h.cfg.RefreshInterval > 0 {
		t := time.NewTicker(h.cfg.RefreshInterval)
		defer t.Stop()
		refresh = t.C
	}

	for {
		select {
		case event := <-client.EventChan:
			if event.Type == EventSignedOut && !endsSession(event, sessionID) {
				continue
			}
			if err := h.send(w, rc, event); err != nil {
				log.Info("client disconnected during send")
				return
			}
			if event.Type == EventSignedOut {
				return
			}
			if event.AffectsNavigation() {
				if err := h.sendSnapshot(ctx, w, rc, userID, log); err != nil {
					return
				}
			}

		case <-refresh:
			if err := h.sendSnapshot(ctx, w, rc, userID, log); err != nil {
				return
			}

		case <-heartbeat.C:
			if err := h.send(w, rc, NewHeartbeatEvent()); err != nil {
				log.Info("client disconnected during heartbeat")
				return
			}

		case <-client.Done:
			log.Info("client closed by manager")
			return

		case <-ctx.Done():
			return
		}
	}
}

// endsSession reports whether a sign-out event targets sessionID. Events that
// name no session end every stream of the user.
func endsSession(event Event, sessionID string) bool {
	var target string
	switch data := event.Data.(type) {
	case SignedOutEventData:
		target = data.SessionID
	case *SignedOutEventData:
		if data != nil {
			target = data.SessionID
		}
	}
	return target == "" || sessionID == "" || target == sessionID
}

// sendSnapshot writes a nav.state event. A failed recount is logged and
// skipped; only write failures end the stream.
func (h *Handler) sendSnapshot(ctx context.Context, w http.ResponseWriter, rc *http.ResponseController, userID string, log *slog.Logger) error {
	if h.snapshot == nil {
		return nil
	}
	state, err := h.snapshot(ctx, userID)
	if err != nil {
		log.Warn("nav snapshot failed", slog.String("error", err.Error()))
		return nil
	}
	return h.send(w, rc, NewEvent(EventNavState, state))
}

func (h *Handler) send(w http.ResponseWriter, rc *http.ResponseController, event Event) error {
	return WriteEvent(w, rc, event)
}

// WriteEvent writes one event in SSE framing and flushes it.
func WriteEvent(w http.ResponseWriter, rc *http.ResponseController, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload); err != nil {
		return err
	}
	if err := rc.Flush(); err != nil {
		return err
	}
	//nolint:errcheck // not every writer supports deadlines
	_ = rc.SetWriteDeadline(time.Now().Add(60 * time.Second))
	return nil
}
