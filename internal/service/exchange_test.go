package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookbridge/bookbridge-server/internal/backend"
	"github.com/bookbridge/bookbridge-server/internal/domain"
	domainerrors "github.com/bookbridge/bookbridge-server/internal/errors"
	"github.com/bookbridge/bookbridge-server/internal/sse"
)

func TestExchange_SubmitRejectsBlankFieldsWithoutWrites(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor, _, req := env.acceptedRequest(t)

	cases := []struct{ phone, address string }{
		{"", "1 Main St"},
		{"555-0100", ""},
		{"   ", "\t"},
		{"<b></b>", "1 Main St"},
	}
	for _, tc := range cases {
		before := env.client.writes.Load()
		_, err := env.exchange.Submit(ctx, donor.UserID, req.ID, submission(t, domain.RoleDonor, tc.phone, tc.address))

		require.Error(t, err)
		assert.ErrorIs(t, err, domainerrors.ErrValidation)
		assert.Equal(t, "Please provide both phone number and address.", err.Error())
		assert.Equal(t, before, env.client.writes.Load(), "no backend write for %+v", tc)
	}

	_, err := env.store.GetExchange(ctx, req.ID)
	assert.Error(t, err, "no record created")
}

// A shares first, B second: the worked scenario end to end.
func TestExchange_SequentialScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor, requester, req := env.acceptedRequest(t)

	var fired int
	env.exchange.OnComplete(func(context.Context, *domain.BookRequest) error {
		fired++
		return nil
	})

	dialogA, err := env.exchange.Open(ctx, donor.UserID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ViewEntry, dialogA.View)
	assert.Equal(t, domain.RoleDonor, dialogA.Role)
	assert.Equal(t, "Dune", dialogA.BookTitle)

	dialogB, err := env.exchange.Open(ctx, requester.UserID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ViewEntry, dialogB.View)

	// A submits.
	res, err := env.exchange.Submit(ctx, donor.UserID, req.ID, submission(t, domain.RoleDonor, "555-0100", "1 Main St"))
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, domain.ViewWaiting, res.View)

	rec, err := env.store.GetExchange(ctx, req.ID)
	require.NoError(t, err)
	require.NotNil(t, rec.DonorContact)
	assert.Equal(t, domain.Contact{Phone: "555-0100", Address: "1 Main St"}, *rec.DonorContact)
	assert.Nil(t, rec.RequesterContact)
	assert.Equal(t, domain.ExchangePending, rec.Status)

	inboxB, err := env.notifications.List(ctx, requester.UserID, 0)
	require.NoError(t, err)
	require.NotEmpty(t, inboxB)
	assert.Equal(t, domain.NotifyContactShared, inboxB[0].Type)
	assert.Equal(t, "Contact Details Shared", inboxB[0].Title)
	assert.Equal(t, `Ada has shared their contact details for "Dune".`, inboxB[0].Message)

	dialogA, err = env.exchange.Open(ctx, donor.UserID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ViewWaiting, dialogA.View)
	assert.Nil(t, dialogA.Counterparty)

	dialogB, err = env.exchange.Open(ctx, requester.UserID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ViewEntry, dialogB.View)

	// B submits.
	res, err = env.exchange.Submit(ctx, requester.UserID, req.ID, submission(t, domain.RoleRequester, "555-0200", "2 Oak Ave"))
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, domain.ViewReveal, res.View)
	require.NotNil(t, res.Counterparty)
	assert.Equal(t, "555-0100", res.Counterparty.Phone)

	rec, err = env.store.GetExchange(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Contact{Phone: "555-0100", Address: "1 Main St"}, *rec.DonorContact)
	assert.Equal(t, domain.Contact{Phone: "555-0200", Address: "2 Oak Ave"}, *rec.RequesterContact)
	assert.Equal(t, domain.ExchangeCompleted, rec.Status)
	assert.Equal(t, 1, fired)

	inboxA, err := env.notifications.List(ctx, donor.UserID, 0)
	require.NoError(t, err)
	require.NotEmpty(t, inboxA)
	assert.Equal(t, `Bea has shared their contact details for "Dune".`, inboxA[0].Message)

	dialogA, err = env.exchange.Open(ctx, donor.UserID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ViewReveal, dialogA.View)
	assert.Equal(t, &domain.Contact{Phone: "555-0200", Address: "2 Oak Ave"}, dialogA.Counterparty)

	// Completion reaction ran.
	done, err := env.store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestCompleted, done.Status)
	book, err := env.store.GetBook(ctx, req.BookID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookDonated, book.Status)

	assert.Len(t, env.emitter.of(donor.UserID, sse.EventExchangeUpdated), 2)
	assert.Len(t, env.emitter.of(requester.UserID, sse.EventExchangeUpdated), 2)
}

func TestExchange_ResubmitAfterCompletionDoesNotRefire(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor, requester, req := env.acceptedRequest(t)

	var fired int
	env.exchange.OnComplete(func(context.Context, *domain.BookRequest) error {
		fired++
		return nil
	})

	_, err := env.exchange.Submit(ctx, donor.UserID, req.ID, submission(t, domain.RoleDonor, "555-0100", "1 Main St"))
	require.NoError(t, err)
	_, err = env.exchange.Submit(ctx, requester.UserID, req.ID, submission(t, domain.RoleRequester, "555-0200", "2 Oak Ave"))
	require.NoError(t, err)

	res, err := env.exchange.Submit(ctx, donor.UserID, req.ID, submission(t, domain.RoleDonor, "555-0111", "1 Main St"))
	require.NoError(t, err)
	assert.False(t, res.Completed)

	for range 3 {
		_, err := env.exchange.Open(ctx, requester.UserID, req.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, fired)

	rec, err := env.store.GetExchange(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "555-0111", rec.DonorContact.Phone)
	assert.Equal(t, domain.ExchangeCompleted, rec.Status)
}

func TestExchange_ConcurrentSubmissionsKeepBothSides(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor, requester, req := env.acceptedRequest(t)

	var (
		mu    sync.Mutex
		fired int
	)
	env.exchange.OnComplete(func(context.Context, *domain.BookRequest) error {
		mu.Lock()
		fired++
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = env.exchange.Submit(ctx, donor.UserID, req.ID, submission(t, domain.RoleDonor, "555-0100", "1 Main St"))
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = env.exchange.Submit(ctx, requester.UserID, req.ID, submission(t, domain.RoleRequester, "555-0200", "2 Oak Ave"))
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	rec, err := env.store.GetExchange(ctx, req.ID)
	require.NoError(t, err)
	require.NotNil(t, rec.DonorContact)
	require.NotNil(t, rec.RequesterContact)
	assert.Equal(t, domain.ExchangeCompleted, rec.Status)
	assert.Equal(t, 1, fired)
}

func TestExchange_Authorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor, requester, req := env.acceptedRequest(t)
	outsider := env.signUp(t, "cy@example.com", "Cy")

	_, err := env.exchange.Open(ctx, outsider.UserID, req.ID)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	_, err = env.exchange.Submit(ctx, outsider.UserID, req.ID, submission(t, domain.RoleDonor, "1", "a"))
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	// The requester cannot write the donor's side.
	_, err = env.exchange.Submit(ctx, requester.UserID, req.ID, submission(t, domain.RoleDonor, "1", "a"))
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	_, err = env.exchange.Open(ctx, donor.UserID, "req-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestExchange_RequiresAcceptedRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor := env.signUp(t, "ada@example.com", "Ada")
	requester := env.signUp(t, "bea@example.com", "Bea")
	book := env.donate(t, donor, "Dune")

	req, err := env.requests.Create(ctx, requester.UserID, book.ID, CreateRequestInput{})
	require.NoError(t, err)

	_, err = env.exchange.Open(ctx, donor.UserID, req.ID)
	assert.ErrorIs(t, err, domainerrors.ErrConflict)
}

func TestExchange_PrefillAndProfileOverwrite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor, _, req := env.acceptedRequest(t)

	phone, address := "555-0999", "9 Elm Rd"
	_, err := env.profiles.Update(ctx, donor.UserID, UpdateProfileRequest{Phone: &phone, Address: &address})
	require.NoError(t, err)

	dialog, err := env.exchange.Open(ctx, donor.UserID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Contact{Phone: "555-0999", Address: "9 Elm Rd"}, dialog.Prefill)

	_, err = env.exchange.Submit(ctx, donor.UserID, req.ID, submission(t, domain.RoleDonor, "  555-0100 ", "1   Main St"))
	require.NoError(t, err)

	profile, err := env.profiles.Get(ctx, donor.UserID)
	require.NoError(t, err)
	assert.Equal(t, "555-0100", profile.Phone)
	assert.Equal(t, "1 Main St", profile.Address)
	assert.Equal(t, "Ada", profile.FullName)
}

func TestExchange_SenderFallsBackToSomeone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor := env.signUp(t, "ada@example.com", "")
	requester := env.signUp(t, "bea@example.com", "Bea")
	book := env.donate(t, donor, "Dune")

	req, err := env.requests.Create(ctx, requester.UserID, book.ID, CreateRequestInput{})
	require.NoError(t, err)
	_, err = env.requests.Accept(ctx, donor.UserID, req.ID)
	require.NoError(t, err)

	_, err = env.exchange.Submit(ctx, donor.UserID, req.ID, submission(t, domain.RoleDonor, "555-0100", "1 Main St"))
	require.NoError(t, err)

	inbox, err := env.notifications.List(ctx, requester.UserID, 0)
	require.NoError(t, err)
	require.NotEmpty(t, inbox)
	assert.Equal(t, `Someone has shared their contact details for "Dune".`, inbox[0].Message)
}

// contactShared returns the contact-shared notifications in userID's inbox.
func contactShared(t *testing.T, env *testEnv, userID string) []*domain.Notification {
	t.Helper()
	inbox, err := env.notifications.List(context.Background(), userID, 0)
	require.NoError(t, err)
	var out []*domain.Notification
	for _, n := range inbox {
		if n.Type == domain.NotifyContactShared {
			out = append(out, n)
		}
	}
	return out
}

func TestExchange_RetryAfterFailedNotificationCompletes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor, requester, req := env.acceptedRequest(t)

	var fired int
	env.exchange.OnComplete(func(context.Context, *domain.BookRequest) error {
		fired++
		return nil
	})

	_, err := env.exchange.Submit(ctx, donor.UserID, req.ID, submission(t, domain.RoleDonor, "555-0100", "1 Main St"))
	require.NoError(t, err)

	env.faults.failNext("invoke", backend.ProcCreateBookNotification, 1)
	_, err = env.exchange.Submit(ctx, requester.UserID, req.ID, submission(t, domain.RoleRequester, "555-0200", "2 Oak Ave"))
	require.ErrorIs(t, err, errBackendDown)

	rec, err := env.store.GetExchange(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExchangeCompleted, rec.Status, "the completing write stays")
	assert.Zero(t, fired)
	pending, err := env.store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestAccepted, pending.Status)

	res, err := env.exchange.Submit(ctx, requester.UserID, req.ID, submission(t, domain.RoleRequester, "555-0200", "2 Oak Ave"))
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, domain.ViewReveal, res.View)
	assert.Equal(t, 1, fired)

	done, err := env.store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestCompleted, done.Status)
	book, err := env.store.GetBook(ctx, req.BookID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookDonated, book.Status)
	assert.Len(t, contactShared(t, env, donor.UserID), 1)

	// Once the request is completed, further submissions do not refire.
	_, err = env.exchange.Submit(ctx, requester.UserID, req.ID, submission(t, domain.RoleRequester, "555-0222", "2 Oak Ave"))
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
}

func TestExchange_RetryAfterFailedCallbackCompletes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor, requester, req := env.acceptedRequest(t)

	_, err := env.exchange.Submit(ctx, donor.UserID, req.ID, submission(t, domain.RoleDonor, "555-0100", "1 Main St"))
	require.NoError(t, err)

	env.faults.failNext("update", backend.TableBookRequests, 1)
	_, err = env.exchange.Submit(ctx, requester.UserID, req.ID, submission(t, domain.RoleRequester, "555-0200", "2 Oak Ave"))
	require.ErrorIs(t, err, errBackendDown)

	_, err = env.exchange.Submit(ctx, requester.UserID, req.ID, submission(t, domain.RoleRequester, "555-0200", "2 Oak Ave"))
	require.NoError(t, err)

	done, err := env.store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestCompleted, done.Status)
	book, err := env.store.GetBook(ctx, req.BookID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookDonated, book.Status)
}

// The donor has shared; the requester's submission fails at one step. Writes
// before the failing step stay and later steps are skipped.
func TestExchange_SubmitAbortsAtFailingStep(t *testing.T) {
	tests := []struct {
		name   string
		op     string
		table  string
		errMsg string
		// expected state after the failed submission
		profileSaved bool
		recordSaved  bool
		notified     bool
	}{
		{
			name: "profile contact", op: "update", table: backend.TableProfiles,
			errMsg: "save profile contact",
		},
		{
			name: "exchange write", op: "update", table: backend.TableExchanges,
			errMsg:       "write exchange",
			profileSaved: true,
		},
		{
			name: "notification", op: "invoke", table: backend.ProcCreateBookNotification,
			errMsg:       "create notification",
			profileSaved: true, recordSaved: true,
		},
		{
			name: "completion callback", op: "update", table: backend.TableBookRequests,
			errMsg:       "exchange complete",
			profileSaved: true, recordSaved: true, notified: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			donor, requester, req := env.acceptedRequest(t)

			var fired int
			env.exchange.OnComplete(func(context.Context, *domain.BookRequest) error {
				fired++
				return nil
			})

			_, err := env.exchange.Submit(ctx, donor.UserID, req.ID, submission(t, domain.RoleDonor, "555-0100", "1 Main St"))
			require.NoError(t, err)

			env.faults.failNext(tt.op, tt.table, 1)
			res, err := env.exchange.Submit(ctx, requester.UserID, req.ID, submission(t, domain.RoleRequester, "555-0200", "2 Oak Ave"))
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, errBackendDown)
			assert.Contains(t, err.Error(), tt.errMsg)

			profile, err := env.profiles.Get(ctx, requester.UserID)
			require.NoError(t, err)
			if tt.profileSaved {
				assert.Equal(t, "555-0200", profile.Phone)
			} else {
				assert.Empty(t, profile.Phone)
			}

			rec, err := env.store.GetExchange(ctx, req.ID)
			require.NoError(t, err)
			if tt.recordSaved {
				require.NotNil(t, rec.RequesterContact)
				assert.Equal(t, domain.ExchangeCompleted, rec.Status)
			} else {
				assert.Nil(t, rec.RequesterContact)
				assert.Equal(t, domain.ExchangePending, rec.Status)
			}

			if tt.notified {
				assert.Len(t, contactShared(t, env, donor.UserID), 1)
			} else {
				assert.Empty(t, contactShared(t, env, donor.UserID))
			}

			// The request is never completed and nothing is announced.
			stored, err := env.store.GetRequest(ctx, req.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.RequestAccepted, stored.Status)
			assert.Zero(t, fired, "callbacks skipped or stopped at the failing one")
			assert.Len(t, env.emitter.of(requester.UserID, sse.EventExchangeUpdated), 1, "only the donor's update was pushed")
		})
	}
}

func TestExchange_OpenToleratesFailedReads(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor, _, req := env.acceptedRequest(t)

	phone, address := "555-0999", "9 Elm Rd"
	_, err := env.profiles.Update(ctx, donor.UserID, UpdateProfileRequest{Phone: &phone, Address: &address})
	require.NoError(t, err)
	_, err = env.exchange.Submit(ctx, donor.UserID, req.ID, submission(t, domain.RoleDonor, "555-0100", "1 Main St"))
	require.NoError(t, err)

	env.faults.failNext("select", backend.TableProfiles, 1)
	dialog, err := env.exchange.Open(ctx, donor.UserID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Contact{}, dialog.Prefill, "unreadable profile yields an empty prefill")
	assert.Equal(t, domain.ViewWaiting, dialog.View)

	env.faults.failNext("select", backend.TableExchanges, 1)
	dialog, err = env.exchange.Open(ctx, donor.UserID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ViewEntry, dialog.View, "unreadable record opens the entry form")
	assert.Equal(t, domain.ExchangePending, dialog.Status)
	assert.Nil(t, dialog.Shared)
	assert.Equal(t, domain.Contact{Phone: "555-0100", Address: "1 Main St"}, dialog.Prefill)

	dialog, err = env.exchange.Open(ctx, donor.UserID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ViewWaiting, dialog.View)
}
