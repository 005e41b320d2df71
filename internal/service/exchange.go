package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bookbridge/bookbridge-server/internal/backend"
	"github.com/bookbridge/bookbridge-server/internal/domain"
	domainerrors "github.com/bookbridge/bookbridge-server/internal/errors"
	"github.com/bookbridge/bookbridge-server/internal/id"
	"github.com/bookbridge/bookbridge-server/internal/normalize"
	"github.com/bookbridge/bookbridge-server/internal/sse"
	"github.com/bookbridge/bookbridge-server/internal/store"
)

// maxExchangeAttempts bounds the read-apply-write loop when concurrent
// submissions race on the same record.
const maxExchangeAttempts = 5

// ErrIncompleteContact is returned when either contact field is blank.
var ErrIncompleteContact = domainerrors.Validation("Please provide both phone number and address.")

// ExchangeCompleteFunc runs once when an exchange moves to completed.
type ExchangeCompleteFunc func(ctx context.Context, req *domain.BookRequest) error

// ExchangeService runs the two-party contact exchange for accepted requests.
type ExchangeService struct {
	store         *store.Store
	profiles      *ProfileService
	notifications *NotificationService
	emitter       EventEmitter
	logger        *slog.Logger

	mu         sync.RWMutex
	onComplete []ExchangeCompleteFunc
}

// NewExchangeService creates a new exchange service.
func NewExchangeService(
	st *store.Store,
	profiles *ProfileService,
	notifications *NotificationService,
	emitter EventEmitter,
	logger *slog.Logger,
) *ExchangeService {
	return &ExchangeService{
		store:         st,
		profiles:      profiles,
		notifications: notifications,
		emitter:       emitterOrNoop(emitter),
		logger:        orDiscard(logger),
	}
}

// OnComplete registers fn to run when an exchange completes.
func (s *ExchangeService) OnComplete(fn ExchangeCompleteFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onComplete = append(s.onComplete, fn)
}

// ExchangeDialog is what a participant sees when opening the exchange.
type ExchangeDialog struct {
	RequestID string                `json:"request_id"`
	BookTitle string                `json:"book_title"`
	Role      domain.Role           `json:"role"`
	View      domain.ExchangeView   `json:"view"`
	Status    domain.ExchangeStatus `json:"status"`
	// Prefill is the caller's stored contact, used to seed the entry form.
	Prefill domain.Contact `json:"prefill"`
	// Shared is what the caller has already shared.
	Shared *domain.Contact `json:"shared,omitempty"`
	// Counterparty is the other party's contact, present only in the reveal view.
	Counterparty *domain.Contact `json:"counterparty,omitempty"`
}

// SubmitResult reports the state after a submission.
type SubmitResult struct {
	ExchangeDialog
	// Completed is true when this submission completed the exchange, or finished
	// a completion an earlier failed submission left undone.
	Completed bool `json:"completed"`
}

// Open loads the exchange dialog for userID. Profile and record reads are
// best effort: failures are logged and the dialog opens in its default state.
func (s *ExchangeService) Open(ctx context.Context, userID, requestID string) (*ExchangeDialog, error) {
	req, role, err := s.participant(ctx, userID, requestID)
	if err != nil {
		return nil, err
	}

	prefill := s.profiles.Prefill(ctx, userID)

	rec, err := s.store.GetExchange(ctx, requestID)
	if err != nil {
		if !errors.Is(err, backend.ErrNotFound) {
			s.logger.Warn("exchange status fetch failed",
				slog.String("request_id", requestID), slog.String("error", err.Error()))
		}
		rec = nil
	}

	return buildDialog(req, role, rec, prefill), nil
}

// Submit shares the caller's contact details for a request:
//
//  1. validate both fields are non-blank
//  2. overwrite the caller's profile contact
//  3. write the caller's side of the exchange record
//  4. notify the other participant
//  5. fire the completion callbacks once the exchange is complete and the
//     request is still accepted
//
// Any failure aborts the remaining steps; earlier writes stay. A retry after
// a failed step 4 or 5 finds the record complete and the request accepted, so
// the callbacks still run. They must be idempotent.
func (s *ExchangeService) Submit(ctx context.Context, userID, requestID string, sub domain.ContactSubmission) (*SubmitResult, error) {
	contact := sub.Contact().Trimmed()
	if !contact.IsComplete() {
		return nil, ErrIncompleteContact
	}
	phone, address := normalize.Contact(contact.Phone, contact.Address)
	contact = domain.Contact{Phone: phone, Address: address}
	if !contact.IsComplete() {
		return nil, ErrIncompleteContact
	}
	sub, err := domain.NewContactSubmission(sub.Role(), contact)
	if err != nil {
		return nil, domainerrors.Validation(err.Error())
	}

	req, role, err := s.participant(ctx, userID, requestID)
	if err != nil {
		return nil, err
	}
	if role != sub.Role() {
		return nil, domainerrors.Forbidden(fmt.Sprintf("you are the %s on this request", role))
	}

	if err := s.store.SaveContact(ctx, userID, contact); err != nil {
		return nil, fmt.Errorf("save profile contact: %w", err)
	}

	rec, completed, err := s.upsert(ctx, requestID, sub)
	if err != nil {
		return nil, err
	}

	name := s.profiles.SenderName(ctx, userID)
	draft := domain.ContactSharedDraft(req.Counterparty(role), name, req.BookTitle)
	if _, err := s.notifications.Send(ctx, draft); err != nil {
		return nil, err
	}

	// req was read before the write, so a completed request here means an
	// earlier submission already ran the callbacks.
	completed = completed || (rec.Status == domain.ExchangeCompleted && req.Status == domain.RequestAccepted)
	if completed {
		if err := s.fireComplete(ctx, req); err != nil {
			return nil, err
		}
	}

	event := sse.NewEvent(sse.EventExchangeUpdated, sse.ExchangeEventData{
		RequestID: requestID,
		Status:    string(rec.Status),
		SharedBy:  string(role),
	})
	s.emitter.EmitToUser(req.DonorID, event)
	s.emitter.EmitToUser(req.RequesterID, event)

	s.logger.Info("contact shared",
		slog.String("request_id", requestID),
		slog.String("role", string(role)),
		slog.String("status", string(rec.Status)))

	return &SubmitResult{
		ExchangeDialog: *buildDialog(req, role, rec, contact),
		Completed:      completed,
	}, nil
}

// upsert applies sub to the record for requestID, creating it on first
// submission. Each attempt re-reads the record, so a concurrent write by the
// other party is never overwritten. completed is true only for the write
// that moved the record from pending to completed.
func (s *ExchangeService) upsert(ctx context.Context, requestID string, sub domain.ContactSubmission) (*domain.ExchangeRecord, bool, error) {
	for attempt := 1; attempt <= maxExchangeAttempts; attempt++ {
		rec, err := s.store.GetExchange(ctx, requestID)
		switch {
		case err == nil:
			sub.ApplyTo(rec)
			completed := rec.Settle()
			rec.UpdatedAt = utcNow()
			err = s.store.UpdateExchangeIfVersion(ctx, rec)
			if err == nil {
				return rec, completed, nil
			}

		case errors.Is(err, backend.ErrNotFound):
			rec, err = newExchangeRecord(requestID)
			if err != nil {
				return nil, false, err
			}
			sub.ApplyTo(rec)
			completed := rec.Settle()
			err = s.store.InsertExchange(ctx, rec)
			if err == nil {
				return rec, completed, nil
			}

		default:
			return nil, false, fmt.Errorf("read exchange: %w", err)
		}

		if !errors.Is(err, store.ErrStaleWrite) {
			return nil, false, fmt.Errorf("write exchange: %w", err)
		}
		s.logger.Debug("exchange write lost a race, retrying",
			slog.String("request_id", requestID), slog.Int("attempt", attempt))
	}
	return nil, false, domainerrors.Conflict("The exchange was updated by someone else. Please try again.")
}

func newExchangeRecord(requestID string) (*domain.ExchangeRecord, error) {
	xid, err := id.Generate(id.PrefixExchange)
	if err != nil {
		return nil, fmt.Errorf("generate exchange ID: %w", err)
	}
	now := utcNow()
	return &domain.ExchangeRecord{
		ID:        xid,
		RequestID: requestID,
		Status:    domain.ExchangePending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *ExchangeService) fireComplete(ctx context.Context, req *domain.BookRequest) error {
	s.mu.RLock()
	callbacks := append([]ExchangeCompleteFunc(nil), s.onComplete...)
	s.mu.RUnlock()

	for _, fn := range callbacks {
		if err := fn(ctx, req); err != nil {
			return fmt.Errorf("exchange complete: %w", err)
		}
	}
	return nil
}

// participant loads the request and checks that userID may exchange on it.
func (s *ExchangeService) participant(ctx context.Context, userID, requestID string) (*domain.BookRequest, domain.Role, error) {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, "", asNotFound(err, "request not found")
	}
	role, ok := req.RoleOf(userID)
	if !ok {
		return nil, "", domainerrors.Forbidden("you are not part of this request")
	}
	if !req.AllowsExchange() {
		return nil, "", domainerrors.Conflict("Contact details can be shared once the request is accepted.")
	}
	return req, role, nil
}

func buildDialog(req *domain.BookRequest, role domain.Role, rec *domain.ExchangeRecord, prefill domain.Contact) *ExchangeDialog {
	d := &ExchangeDialog{
		RequestID: req.ID,
		BookTitle: req.BookTitle,
		Role:      role,
		View:      rec.ViewFor(role),
		Status:    domain.ExchangePending,
		Prefill:   prefill,
	}
	if rec == nil {
		return d
	}
	d.Status = rec.Status
	if c := rec.ContactFor(role); c != nil {
		shared := *c
		d.Shared = &shared
	}
	if d.View == domain.ViewReveal {
		other := *rec.ContactFor(role.Other())
		d.Counterparty = &other
	}
	return d
}
