package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Client -> server event names
const (
	EventJoinListing  = "join-listing"
	EventLeaveListing = "leave-listing"
	EventSendMessage  = "send-message"
	EventTypingStart  = "typing-start"
	EventTypingStop   = "typing-stop"
)

// Server -> client event names
const (
	EventNewMessage          = "new-message"
	EventMessageNotification = "message-notification"
	EventUserTyping          = "user-typing"
	EventUserStopTyping      = "user-stop-typing"
	EventError               = "error"
)

// Envelope is the flat frame clients send. Fields beyond Event are
// optional and interpreted per event type.
type Envelope struct {
	Event      string    `json:"event"`
	Content    string    `json:"content,omitempty"`
	ReceiverID uuid.UUID `json:"receiver_id,omitempty"`
	ListingID  uuid.UUID `json:"listing_id,omitempty"`
}

// outbound is the frame the server emits
type outbound struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// NotificationPayload is the lightweight cross-thread alert delivered to
// the receiver's personal room, independent of listing-room membership.
type NotificationPayload struct {
	Content   string    `json:"content"`
	SenderID  uuid.UUID `json:"sender_id"`
	ListingID uuid.UUID `json:"listing_id"`
	Timestamp time.Time `json:"timestamp"`
}

// TypingPayload is the transient typing signal; never persisted.
type TypingPayload struct {
	UserID    uuid.UUID `json:"user_id"`
	ListingID uuid.UUID `json:"listing_id"`
}

// ErrorPayload is delivered only to the session whose event failed.
type ErrorPayload struct {
	Message string `json:"message"`
}

func marshalEvent(event string, data interface{}) []byte {
	frame, err := json.Marshal(outbound{Event: event, Data: data})
	if err != nil {
		// Payloads are plain structs; a marshal failure is a programming
		// error, not a runtime condition.
		log.Error("Failed to marshal %s event: %v", event, err)
		return nil
	}
	return frame
}
