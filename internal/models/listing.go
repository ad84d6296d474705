package models

import (
	"github.com/google/uuid"
)

// ListingSummary is the denormalized slice of a rental listing attached
// to conversations. Listing CRUD lives in the marketplace backend; this
// service only reads.
type ListingSummary struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	ImageURL string    `json:"image_url,omitempty"`
}
