package domain

// BookStatus is the lifecycle state of a donated book.
type BookStatus string

// Book statuses.
const (
	BookAvailable BookStatus = "available"
	BookRequested BookStatus = "requested"
	BookDonated   BookStatus = "donated"
)

// Badge returns the label shown for the status in donation lists.
// Unknown statuses are shown as-is.
func (s BookStatus) Badge() string {
	switch s {
	case BookAvailable:
		return "Available"
	case BookRequested:
		return "Requested"
	case BookDonated:
		return "Completed"
	default:
		return string(s)
	}
}

// Book is a book listed for donation by its owner.
type Book struct {
	Entity
	OwnerID      string     `json:"owner_id"`
	Title        string     `json:"title"`
	Author       string     `json:"author"`
	Category     string     `json:"category"`
	Description  string     `json:"description"`
	Condition    string     `json:"condition"`
	Status       BookStatus `json:"status"`
	IsFreeToRead bool       `json:"is_free_to_read"`
}

// IsAvailable reports whether the book can still be requested.
func (b *Book) IsAvailable() bool {
	return b.Status == BookAvailable
}
