package models

// Conversation is a derived view: one listing crossed with one counterpart
// user, annotated with the newest message in that thread. Never persisted;
// rebuilt from the message log on every request.
type Conversation struct {
	Listing     ListingSummary   `json:"listing"`
	OtherUser   UserSummary      `json:"other_user"`
	LastMessage *MessageResponse `json:"last_message"`
	// No last-read marker is persisted, so this is always 0. Kept so
	// clients have a stable shape to render a badge from.
	UnreadCount int `json:"unread_count"`
}
