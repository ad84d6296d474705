package models

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrEmptyContent   = errors.New("message content cannot be empty")
	ErrContentTooLong = errors.New("message content exceeds maximum length")
	ErrSelfMessage    = errors.New("sender and receiver cannot be the same user")
	ErrMissingID      = errors.New("receiver and listing are required")
)

// Validate applies the send rules shared by the socket and REST paths.
// Both must reject exactly the same payloads, so the rules live here
// rather than in either handler.
func (r *MessageRequest) Validate(senderID uuid.UUID) error {
	if r.ReceiverID == uuid.Nil || r.ListingID == uuid.Nil {
		return ErrMissingID
	}
	if r.ReceiverID == senderID {
		return ErrSelfMessage
	}
	if strings.TrimSpace(r.Content) == "" {
		return ErrEmptyContent
	}
	if len(r.Content) > MaxContentLength {
		return ErrContentTooLong
	}
	return nil
}
