package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bookbridge/bookbridge-server/internal/backend"
	"github.com/bookbridge/bookbridge-server/internal/domain"
	domainerrors "github.com/bookbridge/bookbridge-server/internal/errors"
	"github.com/bookbridge/bookbridge-server/internal/sse"
	"github.com/bookbridge/bookbridge-server/internal/store"
)

// SessionState is where a navigation session is in its lifecycle.
type SessionState string

// Session states.
const (
	StateSignedOut      SessionState = "signed_out"
	StateProfileLoading SessionState = "profile_loading"
	StateReady          SessionState = "ready"
)

var pageLabels = map[domain.Page]string{
	domain.PageFreeBooks:     "Free Books",
	domain.PageBrowse:        "Browse Books",
	domain.PageDonate:        "Donate Book",
	domain.PageRequests:      "My Requests",
	domain.PageDonated:       "My Donations",
	domain.PageNotifications: "Notifications",
}

// NavLink is one entry in the navigation bar.
type NavLink struct {
	Page  domain.Page `json:"page"`
	Label string      `json:"label"`
	Badge int         `json:"badge,omitempty"`
}

// NavState is a snapshot of a user's navigation bar.
type NavState struct {
	SignedIn            bool         `json:"signed_in"`
	State               SessionState `json:"state"`
	UserID              string       `json:"user_id,omitempty"`
	DisplayName         string       `json:"display_name,omitempty"`
	CurrentPage         domain.Page  `json:"current_page"`
	Pages               []NavLink    `json:"pages"`
	UnreadNotifications int          `json:"unread_notifications"`
	PendingRequests     int          `json:"pending_requests"`
	LastVisitedRequests *time.Time   `json:"last_visited_requests,omitempty"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// SessionContext holds one signed-in user's navigation state: identity,
// profile, counters and the requests watermark. NavigationService owns its
// lifecycle: Init on sign-in or first connect, Refresh on auth changes,
// Clear on sign-out.
type SessionContext struct {
	mu sync.RWMutex

	state       SessionState
	identity    Identity
	profile     *domain.Profile
	displayName string
	currentPage domain.Page

	unread  int
	pending int

	watermark       *time.Time
	watermarkLoaded bool

	updatedAt time.Time
}

// State returns the lifecycle state.
func (c *SessionContext) State() SessionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Profile returns the loaded profile, or nil.
func (c *SessionContext) Profile() *domain.Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.profile
}

// Watermark returns the last visit to the requests page, nil if never.
func (c *SessionContext) Watermark() *time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.watermark == nil {
		return nil
	}
	t := *c.watermark
	return &t
}

// Snapshot renders the context as a NavState.
func (c *SessionContext) Snapshot() NavState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pages := domain.PagesFor(true)
	links := make([]NavLink, len(pages))
	for i, p := range pages {
		links[i] = NavLink{Page: p, Label: pageLabels[p]}
		switch p {
		case domain.PageRequests:
			links[i].Badge = c.pending
		case domain.PageNotifications:
			links[i].Badge = c.unread
		}
	}

	var watermark *time.Time
	if c.watermark != nil {
		t := *c.watermark
		watermark = &t
	}

	return NavState{
		SignedIn:            true,
		State:               c.state,
		UserID:              c.identity.UserID,
		DisplayName:         c.displayName,
		CurrentPage:         c.currentPage,
		Pages:               links,
		UnreadNotifications: c.unread,
		PendingRequests:     c.pending,
		LastVisitedRequests: watermark,
		UpdatedAt:           c.updatedAt,
	}
}

// SignedOutState is the navigation bar shown without a session.
func SignedOutState() NavState {
	pages := domain.PagesFor(false)
	links := make([]NavLink, len(pages))
	for i, p := range pages {
		links[i] = NavLink{Page: p, Label: pageLabels[p]}
	}
	return NavState{
		State:       StateSignedOut,
		CurrentPage: domain.HomePage,
		Pages:       links,
		UpdatedAt:   utcNow(),
	}
}

// NavigationService maintains a SessionContext per signed-in user and
// recomputes its counters on session changes, page visits, pushes and
// timed refreshes.
type NavigationService struct {
	store      *store.Store
	watermarks WatermarkStore
	emitter    EventEmitter
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*SessionContext
	sub      *Subscription
}

// NewNavigationService creates a new navigation service.
func NewNavigationService(
	st *store.Store,
	watermarks WatermarkStore,
	emitter EventEmitter,
	logger *slog.Logger,
) *NavigationService {
	return &NavigationService{
		store:      st,
		watermarks: watermarks,
		emitter:    emitterOrNoop(emitter),
		logger:     orDiscard(logger),
		now:        utcNow,
		sessions:   make(map[string]*SessionContext),
	}
}

// Attach subscribes the service to auth state changes. Detach undoes it.
func (s *NavigationService) Attach(authService *AuthService) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		return
	}
	s.sub = authService.OnAuthStateChange(s.HandleAuthEvent)
}

// Detach unsubscribes from auth state changes.
func (s *NavigationService) Detach() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

// HandleAuthEvent drives the session lifecycle from an auth event.
func (s *NavigationService) HandleAuthEvent(ctx context.Context, event AuthEvent) {
	identity := Identity{UserID: event.UserID, Email: event.Email, SessionID: event.SessionID}

	switch event.Type {
	case AuthSignedIn:
		s.Init(ctx, identity)
	case AuthTokenRefreshed:
		if s.lookup(event.UserID) == nil {
			s.Init(ctx, identity)
			return
		}
		s.Refresh(ctx, event.UserID)
	case AuthSignedOut:
		if s.otherSessionsLive(ctx, event.UserID) {
			s.logger.Debug("session signed out, user still signed in elsewhere",
				slog.String("user_id", event.UserID),
				slog.String("session_id", event.SessionID))
		} else {
			s.Clear(event.UserID)
		}
		s.emitter.EmitToUser(event.UserID, sse.NewEvent(sse.EventSignedOut, sse.SignedOutEventData{
			SessionID: event.SessionID,
			Landing:   string(domain.HomePage),
		}))
	}
}

// otherSessionsLive reports whether the user still holds a live session after
// one was signed out. A failed count is treated as none left.
func (s *NavigationService) otherSessionsLive(ctx context.Context, userID string) bool {
	n, err := s.store.CountUserSessions(ctx, userID, s.now())
	if err != nil {
		s.logger.Warn("failed to count sessions",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		return false
	}
	return n > 0
}

// Init creates or replaces the user's context and loads profile, watermark
// and counters. Loads are best effort; the context always ends ready.
func (s *NavigationService) Init(ctx context.Context, identity Identity) *SessionContext {
	sc := &SessionContext{
		state:       StateProfileLoading,
		identity:    identity,
		displayName: identity.Email,
		currentPage: domain.HomePage,
	}

	s.mu.Lock()
	if prev, ok := s.sessions[identity.UserID]; ok {
		prev.mu.RLock()
		sc.currentPage = prev.currentPage
		prev.mu.RUnlock()
	}
	s.sessions[identity.UserID] = sc
	s.mu.Unlock()

	s.loadProfile(ctx, sc)
	s.loadWatermark(sc)
	s.recount(ctx, sc)

	sc.mu.Lock()
	sc.state = StateReady
	sc.mu.Unlock()

	s.logger.Debug("navigation session ready", slog.String("user_id", identity.UserID))
	return sc
}

// Refresh reloads the profile and counters of an existing context.
func (s *NavigationService) Refresh(ctx context.Context, userID string) {
	sc := s.lookup(userID)
	if sc == nil {
		return
	}
	s.loadProfile(ctx, sc)
	s.recount(ctx, sc)
}

// Clear drops the user's context. The persisted watermark is kept.
func (s *NavigationService) Clear(userID string) {
	s.mu.Lock()
	sc, ok := s.sessions[userID]
	delete(s.sessions, userID)
	s.mu.Unlock()

	if !ok {
		return
	}
	sc.mu.Lock()
	sc.state = StateSignedOut
	sc.profile = nil
	sc.unread = 0
	sc.pending = 0
	sc.watermark = nil
	sc.watermarkLoaded = false
	sc.mu.Unlock()
}

// Session returns the user's context, or nil when none is active.
func (s *NavigationService) Session(userID string) *SessionContext {
	return s.lookup(userID)
}

func (s *NavigationService) lookup(userID string) *SessionContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[userID]
}

// ensure returns the user's context, initializing it if needed.
func (s *NavigationService) ensure(ctx context.Context, identity Identity) *SessionContext {
	if sc := s.lookup(identity.UserID); sc != nil {
		return sc
	}
	return s.Init(ctx, identity)
}

// State recounts and returns the caller's navigation state.
func (s *NavigationService) State(ctx context.Context, identity Identity) NavState {
	sc := s.ensure(ctx, identity)
	s.recount(ctx, sc)
	return sc.Snapshot()
}

// Snapshot recounts and returns the state for userID, initializing the
// context from the stored user when none is active. It backs the
// navigation stream.
func (s *NavigationService) Snapshot(ctx context.Context, userID string) (NavState, error) {
	sc := s.lookup(userID)
	if sc == nil {
		user, err := s.store.GetUser(ctx, userID)
		if err != nil {
			if errors.Is(err, backend.ErrNotFound) {
				return SignedOutState(), nil
			}
			return NavState{}, err
		}
		sc = s.Init(ctx, Identity{UserID: user.ID, Email: user.Email})
	} else {
		s.recount(ctx, sc)
	}
	return sc.Snapshot(), nil
}

// VisitPage records navigation to page. Visiting the requests page moves
// the watermark to now, so only requests created afterwards count.
func (s *NavigationService) VisitPage(ctx context.Context, identity Identity, page domain.Page) (NavState, error) {
	if !page.Valid() {
		return NavState{}, domainerrors.Validation("unknown page " + string(page))
	}

	sc := s.ensure(ctx, identity)

	if page == domain.PageRequests {
		at := s.now()
		if err := s.watermarks.Set(identity.UserID, at); err != nil {
			return NavState{}, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to record visit")
		}
		sc.mu.Lock()
		sc.watermark = &at
		sc.watermarkLoaded = true
		sc.mu.Unlock()
	}

	sc.mu.Lock()
	sc.currentPage = page
	sc.mu.Unlock()

	s.recount(ctx, sc)
	state := sc.Snapshot()
	s.emitter.EmitToUser(identity.UserID, sse.NewEvent(sse.EventNavState, state))
	return state, nil
}

// UnreadCount returns the user's unread notification count.
func (s *NavigationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.store.CountUnread(ctx, userID)
}

// PendingIncomingCount counts pending requests addressed to userID. A nil
// watermark counts all of them; otherwise only those created after it.
func (s *NavigationService) PendingIncomingCount(ctx context.Context, userID string, watermark *time.Time) (int, error) {
	return s.store.CountPendingIncoming(ctx, userID, watermark)
}

func (s *NavigationService) loadProfile(ctx context.Context, sc *SessionContext) {
	sc.mu.RLock()
	identity := sc.identity
	sc.mu.RUnlock()

	profile, err := s.store.GetProfile(ctx, identity.UserID)
	if err != nil && !errors.Is(err, backend.ErrNotFound) {
		s.logger.Warn("navigation profile fetch failed",
			slog.String("user_id", identity.UserID), slog.String("error", err.Error()))
		return
	}
	if err != nil {
		profile = nil
	}

	sc.mu.Lock()
	sc.profile = profile
	sc.displayName = profile.DisplayName(identity.Email)
	sc.mu.Unlock()
}

func (s *NavigationService) loadWatermark(sc *SessionContext) {
	sc.mu.RLock()
	userID := sc.identity.UserID
	sc.mu.RUnlock()

	wm, err := s.watermarks.Get(userID)
	if err != nil {
		s.logger.Warn("watermark read failed", slog.String("user_id", userID), slog.String("error", err.Error()))
		return
	}

	sc.mu.Lock()
	sc.watermark = wm
	sc.watermarkLoaded = true
	sc.mu.Unlock()
}

// recount refreshes both counters. A failed count keeps the previous value.
func (s *NavigationService) recount(ctx context.Context, sc *SessionContext) {
	sc.mu.RLock()
	userID := sc.identity.UserID
	loaded := sc.watermarkLoaded
	sc.mu.RUnlock()

	if !loaded {
		s.loadWatermark(sc)
	}
	watermark := sc.Watermark()

	unread, uerr := s.UnreadCount(ctx, userID)
	if uerr != nil {
		s.logger.Warn("unread count failed", slog.String("user_id", userID), slog.String("error", uerr.Error()))
	}
	pending, perr := s.PendingIncomingCount(ctx, userID, watermark)
	if perr != nil {
		s.logger.Warn("pending request count failed", slog.String("user_id", userID), slog.String("error", perr.Error()))
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if uerr == nil {
		sc.unread = unread
	}
	if perr == nil {
		sc.pending = pending
	}
	sc.updatedAt = s.now()
}
