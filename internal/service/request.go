package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bookbridge/bookbridge-server/internal/domain"
	domainerrors "github.com/bookbridge/bookbridge-server/internal/errors"
	"github.com/bookbridge/bookbridge-server/internal/id"
	"github.com/bookbridge/bookbridge-server/internal/normalize"
	"github.com/bookbridge/bookbridge-server/internal/sse"
	"github.com/bookbridge/bookbridge-server/internal/store"
	"github.com/bookbridge/bookbridge-server/internal/validation"
)

// RequestService runs the book request lifecycle:
// pending -> accepted | rejected, and accepted -> completed once the contact
// exchange finishes.
type RequestService struct {
	store         *store.Store
	catalog       *CatalogService
	profiles      *ProfileService
	notifications *NotificationService
	validator     *validation.Validator
	emitter       EventEmitter
	logger        *slog.Logger
}

// NewRequestService creates a new request service.
func NewRequestService(
	st *store.Store,
	catalog *CatalogService,
	profiles *ProfileService,
	notifications *NotificationService,
	validator *validation.Validator,
	emitter EventEmitter,
	logger *slog.Logger,
) *RequestService {
	return &RequestService{
		store:         st,
		catalog:       catalog,
		profiles:      profiles,
		notifications: notifications,
		validator:     validator,
		emitter:       emitterOrNoop(emitter),
		logger:        orDiscard(logger),
	}
}

// CreateRequestInput is the requester's ask.
type CreateRequestInput struct {
	Message string `json:"message" validate:"max=1000"`
}

// Create records a pending request for bookID and notifies the donor.
func (s *RequestService) Create(ctx context.Context, requesterID, bookID string, in CreateRequestInput) (*domain.BookRequest, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, asNotFound(err, "book not found")
	}
	if book.OwnerID == requesterID {
		return nil, domainerrors.Forbidden("You cannot request your own book.")
	}
	if !book.IsAvailable() {
		return nil, domainerrors.Conflict("This book is no longer available.")
	}

	dup, err := s.store.HasPendingRequest(ctx, bookID, requesterID)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, domainerrors.Conflict("You already have a pending request for this book.")
	}

	requestID, err := id.Generate(id.PrefixRequest)
	if err != nil {
		return nil, fmt.Errorf("generate request ID: %w", err)
	}
	req := &domain.BookRequest{
		Entity:      domain.Entity{ID: requestID},
		BookID:      bookID,
		DonorID:     book.OwnerID,
		RequesterID: requesterID,
		Status:      domain.RequestPending,
		Message:     normalize.Multiline(in.Message),
		BookTitle:   book.Title,
	}
	req.InitTimestamps()

	if err := s.store.CreateRequest(ctx, req); err != nil {
		return nil, err
	}

	name := s.profiles.SenderName(ctx, requesterID)
	if _, err := s.notifications.Send(ctx, domain.BookRequestedDraft(book.OwnerID, name, book.Title)); err != nil {
		return nil, err
	}

	s.emitter.EmitToUser(book.OwnerID, sse.NewEvent(sse.EventRequestCreated, requestEventData(req)))

	s.logger.Info("book requested",
		slog.String("request_id", req.ID),
		slog.String("book_id", bookID),
		slog.String("requester_id", requesterID))
	return req, nil
}

// Get returns a request visible to userID.
func (s *RequestService) Get(ctx context.Context, userID, requestID string) (*domain.BookRequest, error) {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, asNotFound(err, "request not found")
	}
	if _, ok := req.RoleOf(userID); !ok {
		return nil, domainerrors.Forbidden("you are not part of this request")
	}
	return req, nil
}

// Incoming lists requests for the donor's books, newest first.
func (s *RequestService) Incoming(ctx context.Context, donorID string) ([]*domain.BookRequest, error) {
	return s.store.ListIncomingRequests(ctx, donorID)
}

// Outgoing lists the requester's own requests, newest first.
func (s *RequestService) Outgoing(ctx context.Context, requesterID string) ([]*domain.BookRequest, error) {
	return s.store.ListOutgoingRequests(ctx, requesterID)
}

// Accept approves a pending request. The book is promised to the requester
// and leaves the catalog.
func (s *RequestService) Accept(ctx context.Context, donorID, requestID string) (*domain.BookRequest, error) {
	req, err := s.donorRequest(ctx, donorID, requestID)
	if err != nil {
		return nil, err
	}

	if err := s.transition(ctx, req, domain.RequestPending, domain.RequestAccepted); err != nil {
		return nil, err
	}

	err = s.store.SetBookStatus(ctx, req.BookID, domain.BookAvailable, domain.BookRequested)
	if err != nil {
		// Put the request back so the donor can still reject it.
		if rerr := s.store.SetRequestStatus(ctx, req.ID, domain.RequestAccepted, domain.RequestPending); rerr != nil {
			s.logger.Error("failed to revert accepted request",
				slog.String("request_id", req.ID), slog.String("error", rerr.Error()))
		}
		req.Status = domain.RequestPending
		if errors.Is(err, store.ErrStaleWrite) {
			return nil, domainerrors.Conflict("This book has already been promised to another requester.")
		}
		return nil, asNotFound(err, "book not found")
	}
	s.catalog.Unindex(req.BookID)

	if _, err := s.notifications.Send(ctx, domain.RequestDecisionDraft(req.RequesterID, req.BookTitle, true)); err != nil {
		return nil, err
	}
	s.announce(req)

	s.logger.Info("request accepted", slog.String("request_id", req.ID), slog.String("book_id", req.BookID))
	return req, nil
}

// Reject declines a pending request.
func (s *RequestService) Reject(ctx context.Context, donorID, requestID string) (*domain.BookRequest, error) {
	req, err := s.donorRequest(ctx, donorID, requestID)
	if err != nil {
		return nil, err
	}

	if err := s.transition(ctx, req, domain.RequestPending, domain.RequestRejected); err != nil {
		return nil, err
	}

	if _, err := s.notifications.Send(ctx, domain.RequestDecisionDraft(req.RequesterID, req.BookTitle, false)); err != nil {
		return nil, err
	}
	s.announce(req)

	s.logger.Info("request rejected", slog.String("request_id", req.ID), slog.String("book_id", req.BookID))
	return req, nil
}

// CompleteExchange finishes a request once both parties have shared their
// contact details: the request is completed, the book donated and removed
// from the catalog. It is registered as the exchange-complete callback and
// is safe to call again for an already completed request.
func (s *RequestService) CompleteExchange(ctx context.Context, req *domain.BookRequest) error {
	err := s.store.SetRequestStatus(ctx, req.ID, domain.RequestAccepted, domain.RequestCompleted)
	if err != nil && !errors.Is(err, store.ErrStaleWrite) {
		return fmt.Errorf("complete request: %w", err)
	}

	err = s.store.SetBookStatus(ctx, req.BookID, domain.BookRequested, domain.BookDonated)
	switch {
	case err == nil, errors.Is(err, store.ErrStaleWrite):
	case errors.Is(err, store.ErrBookNotFound):
		s.logger.Warn("completed exchange for a deleted book", slog.String("book_id", req.BookID))
	default:
		return fmt.Errorf("mark book donated: %w", err)
	}
	s.catalog.Unindex(req.BookID)

	req.Status = domain.RequestCompleted
	s.announce(req)

	s.logger.Info("exchange completed", slog.String("request_id", req.ID), slog.String("book_id", req.BookID))
	return nil
}

func (s *RequestService) donorRequest(ctx context.Context, donorID, requestID string) (*domain.BookRequest, error) {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, asNotFound(err, "request not found")
	}
	if req.DonorID != donorID {
		return nil, domainerrors.Forbidden("only the donor can answer this request")
	}
	return req, nil
}

func (s *RequestService) transition(ctx context.Context, req *domain.BookRequest, from, to domain.RequestStatus) error {
	if err := s.store.SetRequestStatus(ctx, req.ID, from, to); err != nil {
		if errors.Is(err, store.ErrStaleWrite) {
			return domainerrors.Conflictf("request is no longer %s", from)
		}
		return asNotFound(err, "request not found")
	}
	req.Status = to
	req.Touch()
	return nil
}

// announce pushes the request's new status to both participants.
func (s *RequestService) announce(req *domain.BookRequest) {
	event := sse.NewEvent(sse.EventRequestUpdated, requestEventData(req))
	s.emitter.EmitToUser(req.DonorID, event)
	s.emitter.EmitToUser(req.RequesterID, event)
}

func requestEventData(req *domain.BookRequest) sse.RequestEventData {
	return sse.RequestEventData{
		RequestID: req.ID,
		BookID:    req.BookID,
		BookTitle: req.BookTitle,
		Status:    string(req.Status),
	}
}
