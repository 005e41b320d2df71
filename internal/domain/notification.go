package domain

import (
	"fmt"
	"time"
)

// NotificationType classifies a notification.
type NotificationType string

// Notification types.
const (
	NotifyContactShared   NotificationType = "contact_shared"
	NotifyBookRequested   NotificationType = "book_requested"
	NotifyRequestAccepted NotificationType = "request_accepted"
	NotifyRequestRejected NotificationType = "request_rejected"
)

// UnknownSender names a participant whose display name cannot be resolved.
const UnknownSender = "Someone"

// Notification is a message addressed to one user.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

// NotificationDraft is the input to the create_book_notification procedure.
type NotificationDraft struct {
	UserID  string
	Type    NotificationType
	Title   string
	Message string
}

// ContactSharedDraft builds the notification sent to the other participant
// when a user shares contact details.
func ContactSharedDraft(recipientID, senderName, bookTitle string) NotificationDraft {
	if senderName == "" {
		senderName = UnknownSender
	}
	return NotificationDraft{
		UserID:  recipientID,
		Type:    NotifyContactShared,
		Title:   "Contact Details Shared",
		Message: fmt.Sprintf("%s has shared their contact details for \"%s\".", senderName, bookTitle),
	}
}

// BookRequestedDraft notifies a donor of a new request.
func BookRequestedDraft(donorID, requesterName, bookTitle string) NotificationDraft {
	if requesterName == "" {
		requesterName = UnknownSender
	}
	return NotificationDraft{
		UserID:  donorID,
		Type:    NotifyBookRequested,
		Title:   "New Book Request",
		Message: fmt.Sprintf("%s has requested \"%s\".", requesterName, bookTitle),
	}
}

// RequestDecisionDraft notifies a requester that the donor accepted or rejected.
func RequestDecisionDraft(requesterID, bookTitle string, accepted bool) NotificationDraft {
	if accepted {
		return NotificationDraft{
			UserID:  requesterID,
			Type:    NotifyRequestAccepted,
			Title:   "Request Accepted",
			Message: fmt.Sprintf("Your request for \"%s\" was accepted. Share your contact details to arrange the handover.", bookTitle),
		}
	}
	return NotificationDraft{
		UserID:  requesterID,
		Type:    NotifyRequestRejected,
		Title:   "Request Declined",
		Message: fmt.Sprintf("Your request for \"%s\" was declined.", bookTitle),
	}
}
