package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxContentLength bounds message bodies; anything longer is rejected
// before it reaches the store.
const MaxContentLength = 2000

// Message represents a persisted chat message within a listing thread
type Message struct {
	ID         uuid.UUID `json:"id"`
	SenderID   uuid.UUID `json:"sender_id"`
	ReceiverID uuid.UUID `json:"receiver_id"`
	ListingID  uuid.UUID `json:"listing_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// MessageRequest is the structure for message creation requests
type MessageRequest struct {
	ReceiverID uuid.UUID `json:"receiver_id" binding:"required"`
	ListingID  uuid.UUID `json:"listing_id" binding:"required"`
	Content    string    `json:"content" binding:"required,min=1"`
}

// MessageResponse is the authoritative record echoed to clients,
// with sender and receiver resolved to their public projections
type MessageResponse struct {
	ID         uuid.UUID    `json:"id"`
	SenderID   uuid.UUID    `json:"sender_id"`
	ReceiverID uuid.UUID    `json:"receiver_id"`
	ListingID  uuid.UUID    `json:"listing_id"`
	Content    string       `json:"content"`
	CreatedAt  time.Time    `json:"created_at"`
	Sender     *UserSummary `json:"sender,omitempty"`
	Receiver   *UserSummary `json:"receiver,omitempty"`
}
