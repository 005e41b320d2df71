package domain

import "time"

// Role is a participant's side of a book transaction.
type Role string

// Roles.
const (
	RoleDonor     Role = "donor"
	RoleRequester Role = "requester"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleDonor || r == RoleRequester
}

// Other returns the opposite role.
func (r Role) Other() Role {
	if r == RoleDonor {
		return RoleRequester
	}
	return RoleDonor
}

// ExchangeStatus tracks contact sharing for one request.
type ExchangeStatus string

// Exchange statuses.
const (
	ExchangePending   ExchangeStatus = "pending"
	ExchangeCompleted ExchangeStatus = "completed"
)

// ExchangeView selects what a participant sees when opening the exchange.
type ExchangeView string

// Exchange views.
const (
	// ViewEntry: the caller has not shared yet.
	ViewEntry ExchangeView = "entry"
	// ViewWaiting: the caller shared, the other party has not.
	ViewWaiting ExchangeView = "waiting"
	// ViewReveal: both shared; the other party's contact is visible.
	ViewReveal ExchangeView = "reveal"
)

// ExchangeRecord tracks contact sharing for one book request.
// Status is completed iff both contacts are present.
// Version increments on every write and guards conditional updates.
type ExchangeRecord struct {
	ID               string         `json:"id"`
	RequestID        string         `json:"request_id"`
	DonorContact     *Contact       `json:"donor_contact,omitempty"`
	RequesterContact *Contact       `json:"requester_contact,omitempty"`
	Status           ExchangeStatus `json:"status"`
	Version          int64          `json:"version"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// ContactFor returns the contact shared by role, or nil.
func (x *ExchangeRecord) ContactFor(role Role) *Contact {
	if x == nil {
		return nil
	}
	if role == RoleDonor {
		return x.DonorContact
	}
	return x.RequesterContact
}

// HasShared reports whether role has shared its contact.
func (x *ExchangeRecord) HasShared(role Role) bool {
	c := x.ContactFor(role)
	return c != nil && c.Phone != ""
}

// BothShared reports whether both parties have shared.
func (x *ExchangeRecord) BothShared() bool {
	return x.HasShared(RoleDonor) && x.HasShared(RoleRequester)
}

// ViewFor returns the view role should see. A nil record means nobody has shared.
func (x *ExchangeRecord) ViewFor(role Role) ExchangeView {
	switch {
	case !x.HasShared(role):
		return ViewEntry
	case !x.HasShared(role.Other()):
		return ViewWaiting
	default:
		return ViewReveal
	}
}

// Settle derives Status from the contacts. It reports whether the call moved
// the record from pending to completed.
func (x *ExchangeRecord) Settle() bool {
	if x.BothShared() {
		transitioned := x.Status != ExchangeCompleted
		x.Status = ExchangeCompleted
		return transitioned
	}
	x.Status = ExchangePending
	return false
}
