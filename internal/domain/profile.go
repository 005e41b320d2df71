package domain

import (
	"strings"
	"time"
)

// Profile is the public-facing record for a user. Phone and address are
// overwritten whenever the user shares contact details in an exchange.
type Profile struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Contact returns the stored contact pair, possibly incomplete.
func (p *Profile) Contact() Contact {
	if p == nil {
		return Contact{}
	}
	return Contact{Phone: p.Phone, Address: p.Address}
}

// DisplayName returns the full name, or fallback when it is blank.
func (p *Profile) DisplayName(fallback string) string {
	if p == nil || strings.TrimSpace(p.FullName) == "" {
		return fallback
	}
	return p.FullName
}

// Contact is a phone/address pair shared during an exchange.
type Contact struct {
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// IsComplete reports whether both fields are non-blank.
func (c Contact) IsComplete() bool {
	return strings.TrimSpace(c.Phone) != "" && strings.TrimSpace(c.Address) != ""
}

// Trimmed returns the contact with surrounding whitespace removed.
func (c Contact) Trimmed() Contact {
	return Contact{Phone: strings.TrimSpace(c.Phone), Address: strings.TrimSpace(c.Address)}
}
