package domain

import "fmt"

// ContactSubmission is one participant sharing contact details.
// It is implemented only by DonorSubmission and RequesterSubmission; each
// writes its own side of the record and nothing else.
type ContactSubmission interface {
	Role() Role
	Contact() Contact
	ApplyTo(x *ExchangeRecord)
	submission()
}

// DonorSubmission carries the donor's contact.
type DonorSubmission struct {
	Details Contact
}

// Role returns RoleDonor.
func (DonorSubmission) Role() Role { return RoleDonor }

// Contact returns the submitted contact.
func (s DonorSubmission) Contact() Contact { return s.Details }

// ApplyTo sets the donor contact on x.
func (s DonorSubmission) ApplyTo(x *ExchangeRecord) {
	c := s.Details
	x.DonorContact = &c
}

func (DonorSubmission) submission() {}

// RequesterSubmission carries the requester's contact.
type RequesterSubmission struct {
	Details Contact
}

// Role returns RoleRequester.
func (RequesterSubmission) Role() Role { return RoleRequester }

// Contact returns the submitted contact.
func (s RequesterSubmission) Contact() Contact { return s.Details }

// ApplyTo sets the requester contact on x.
func (s RequesterSubmission) ApplyTo(x *ExchangeRecord) {
	c := s.Details
	x.RequesterContact = &c
}

func (RequesterSubmission) submission() {}

// NewContactSubmission builds the variant for role.
func NewContactSubmission(role Role, c Contact) (ContactSubmission, error) {
	switch role {
	case RoleDonor:
		return DonorSubmission{Details: c}, nil
	case RoleRequester:
		return RequesterSubmission{Details: c}, nil
	default:
		return nil, fmt.Errorf("unknown role %q", role)
	}
}
