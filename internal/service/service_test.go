package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bookbridge/bookbridge-server/internal/auth"
	"github.com/bookbridge/bookbridge-server/internal/backend"
	"github.com/bookbridge/bookbridge-server/internal/backend/sqlite"
	"github.com/bookbridge/bookbridge-server/internal/domain"
	"github.com/bookbridge/bookbridge-server/internal/search"
	"github.com/bookbridge/bookbridge-server/internal/sse"
	"github.com/bookbridge/bookbridge-server/internal/store"
	"github.com/bookbridge/bookbridge-server/internal/validation"
	"github.com/bookbridge/bookbridge-server/internal/watermark"
)

// countingClient counts write calls that pass through it.
type countingClient struct {
	backend.Client
	writes atomic.Int64
}

func (c *countingClient) Insert(ctx context.Context, table string, row backend.Row) error {
	c.writes.Add(1)
	return c.Client.Insert(ctx, table, row)
}

func (c *countingClient) Update(ctx context.Context, table string, patch backend.Row, filters ...backend.Filter) (int64, error) {
	c.writes.Add(1)
	return c.Client.Update(ctx, table, patch, filters...)
}

func (c *countingClient) Delete(ctx context.Context, table string, filters ...backend.Filter) (int64, error) {
	c.writes.Add(1)
	return c.Client.Delete(ctx, table, filters...)
}

func (c *countingClient) Invoke(ctx context.Context, procedure string, args backend.Row) (backend.Row, error) {
	c.writes.Add(1)
	return c.Client.Invoke(ctx, procedure, args)
}

// errBackendDown is the error faultyClient injects.
var errBackendDown = errors.New("backend unavailable")

type fault struct {
	op, table string
	remaining int
}

// faultyClient fails the next calls of an operation on a table. For Invoke
// the table is the procedure name.
type faultyClient struct {
	backend.Client

	mu     sync.Mutex
	faults []*fault
}

// failNext makes the next times calls of op on table return errBackendDown.
func (c *faultyClient) failNext(op, table string, times int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faults = append(c.faults, &fault{op: op, table: table, remaining: times})
}

func (c *faultyClient) trip(op, table string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range c.faults {
		if f.op == op && f.table == table && f.remaining > 0 {
			f.remaining--
			return errBackendDown
		}
	}
	return nil
}

func (c *faultyClient) Select(ctx context.Context, table string, q backend.Query) ([]backend.Row, error) {
	if err := c.trip("select", table); err != nil {
		return nil, err
	}
	return c.Client.Select(ctx, table, q)
}

func (c *faultyClient) Count(ctx context.Context, table string, filters ...backend.Filter) (int, error) {
	if err := c.trip("count", table); err != nil {
		return 0, err
	}
	return c.Client.Count(ctx, table, filters...)
}

func (c *faultyClient) Insert(ctx context.Context, table string, row backend.Row) error {
	if err := c.trip("insert", table); err != nil {
		return err
	}
	return c.Client.Insert(ctx, table, row)
}

func (c *faultyClient) Update(ctx context.Context, table string, patch backend.Row, filters ...backend.Filter) (int64, error) {
	if err := c.trip("update", table); err != nil {
		return 0, err
	}
	return c.Client.Update(ctx, table, patch, filters...)
}

func (c *faultyClient) Delete(ctx context.Context, table string, filters ...backend.Filter) (int64, error) {
	if err := c.trip("delete", table); err != nil {
		return 0, err
	}
	return c.Client.Delete(ctx, table, filters...)
}

func (c *faultyClient) Invoke(ctx context.Context, procedure string, args backend.Row) (backend.Row, error) {
	if err := c.trip("invoke", procedure); err != nil {
		return nil, err
	}
	return c.Client.Invoke(ctx, procedure, args)
}

// recordingEmitter keeps every emitted event per user.
type recordingEmitter struct {
	mu     sync.Mutex
	events map[string][]sse.Event
}

func newRecordingEmitter() *recordingEmitter {
	return &recordingEmitter{events: make(map[string][]sse.Event)}
}

func (r *recordingEmitter) EmitToUser(userID string, event sse.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[userID] = append(r.events[userID], event)
}

func (r *recordingEmitter) of(userID string, t sse.EventType) []sse.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sse.Event
	for _, e := range r.events[userID] {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	db            *sqlite.Client
	client        *countingClient
	faults        *faultyClient
	store         *store.Store
	emitter       *recordingEmitter
	watermarks    *watermark.Store
	index         *search.SearchIndex
	sessions      *SessionService
	auth          *AuthService
	profiles      *ProfileService
	notifications *NotificationService
	catalog       *CatalogService
	donations     *DonationService
	requests      *RequestService
	exchange      *ExchangeService
	nav           *NavigationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	wm, err := watermark.Open("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = wm.Close() })

	index, err := search.NewSearchIndex(search.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	tokens, err := auth.NewTokenService(make([]byte, 32), 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	faults := &faultyClient{Client: db}
	env := &testEnv{
		db:         db,
		client:     &countingClient{Client: faults},
		faults:     faults,
		emitter:    newRecordingEmitter(),
		watermarks: wm,
		index:      index,
	}
	env.store = store.New(env.client, nil)
	v := validation.New()

	env.sessions = NewSessionService(env.store, tokens, nil)
	env.auth = NewAuthService(env.store, tokens, env.sessions, v, nil)
	env.profiles = NewProfileService(env.store, v, nil)
	env.notifications = NewNotificationService(env.client, env.store, env.emitter, nil)
	env.notifications.Register(db)
	env.catalog = NewCatalogService(env.store, index, v, nil)
	env.donations = NewDonationService(env.store, env.catalog, nil)
	env.requests = NewRequestService(env.store, env.catalog, env.profiles, env.notifications, v, env.emitter, nil)
	env.exchange = NewExchangeService(env.store, env.profiles, env.notifications, env.emitter, nil)
	env.exchange.OnComplete(env.requests.CompleteExchange)
	env.nav = NewNavigationService(env.store, wm, env.emitter, nil)
	env.nav.Attach(env.auth)
	t.Cleanup(env.nav.Detach)

	return env
}

func (e *testEnv) signUp(t *testing.T, email, fullName string) *Identity {
	t.Helper()
	resp, err := e.auth.SignUp(context.Background(), SignUpRequest{
		Email:    email,
		Password: "correct horse battery",
		FullName: fullName,
	})
	require.NoError(t, err)
	return &Identity{UserID: resp.User.ID, Email: resp.User.Email, SessionID: resp.SessionID}
}

func (e *testEnv) donate(t *testing.T, owner *Identity, title string) *domain.Book {
	t.Helper()
	book, err := e.catalog.Donate(context.Background(), owner.UserID, DonateBookRequest{
		Title:     title,
		Author:    "Frank Herbert",
		Category:  "Science Fiction",
		Condition: "good",
	})
	require.NoError(t, err)
	return book
}

// acceptedRequest sets up donor A, requester B and an accepted request for
// a book titled "Dune".
func (e *testEnv) acceptedRequest(t *testing.T) (donor, requester *Identity, req *domain.BookRequest) {
	t.Helper()
	ctx := context.Background()

	donor = e.signUp(t, "ada@example.com", "Ada")
	requester = e.signUp(t, "bea@example.com", "Bea")
	book := e.donate(t, donor, "Dune")

	req, err := e.requests.Create(ctx, requester.UserID, book.ID, CreateRequestInput{Message: "Please!"})
	require.NoError(t, err)
	req, err = e.requests.Accept(ctx, donor.UserID, req.ID)
	require.NoError(t, err)
	return donor, requester, req
}

func submission(t *testing.T, role domain.Role, phone, address string) domain.ContactSubmission {
	t.Helper()
	sub, err := domain.NewContactSubmission(role, domain.Contact{Phone: phone, Address: address})
	require.NoError(t, err)
	return sub
}
