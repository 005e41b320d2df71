package domain

// RequestStatus is the lifecycle state of a book request.
type RequestStatus string

// Request statuses. Only pending requests count toward the navigation badge
// and block deletion of the book.
const (
	RequestPending   RequestStatus = "pending"
	RequestAccepted  RequestStatus = "accepted"
	RequestRejected  RequestStatus = "rejected"
	RequestCompleted RequestStatus = "completed"
)

// BookRequest is a requester's ask for a donor's book.
type BookRequest struct {
	Entity
	BookID      string        `json:"book_id"`
	DonorID     string        `json:"donor_id"`
	RequesterID string        `json:"requester_id"`
	Status      RequestStatus `json:"status"`
	Message     string        `json:"message,omitempty"`

	// BookTitle is resolved from the book when the request is loaded.
	BookTitle string `json:"book_title,omitempty"`
}

// RoleOf returns the role userID plays in the request.
func (r *BookRequest) RoleOf(userID string) (Role, bool) {
	switch userID {
	case r.DonorID:
		return RoleDonor, true
	case r.RequesterID:
		return RoleRequester, true
	default:
		return "", false
	}
}

// Counterparty returns the participant on the other side of role.
func (r *BookRequest) Counterparty(role Role) string {
	if role == RoleDonor {
		return r.RequesterID
	}
	return r.DonorID
}

// AllowsExchange reports whether contact details may be shared for the request.
func (r *BookRequest) AllowsExchange() bool {
	return r.Status == RequestAccepted || r.Status == RequestCompleted
}
