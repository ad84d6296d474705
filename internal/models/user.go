package models

import (
	"github.com/google/uuid"
)

// UserSummary is the public projection of a marketplace user, the only
// user shape this service ever returns. Accounts themselves are owned by
// the marketplace backend.
type UserSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}
