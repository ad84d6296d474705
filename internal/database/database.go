package database

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/roomlet/messaging/internal/models"
)

// Store is the persistence contract the relay and the API depend on.
// Messages are append-only: nothing in this service edits or deletes a
// row once written.
type Store interface {
	// Message methods
	CreateMessage(senderID, receiverID, listingID uuid.UUID, content string) (*models.Message, error)
	GetMessagesByUser(userID uuid.UUID) ([]*models.Message, error)
	GetListingMessages(listingID, userID uuid.UUID) ([]*models.Message, error)
	GetMessageByID(messageID uuid.UUID) (*models.Message, error)

	// Projection lookups for denormalized summaries
	GetUserByID(id uuid.UUID) (*models.UserSummary, error)
	GetListingByID(id uuid.UUID) (*models.ListingSummary, error)

	Close() error
}

type StoreType string

const (
	PostgreSQL StoreType = "postgres"
)

func NewStore(storeType StoreType, connStr string) (Store, error) {
	switch storeType {
	case PostgreSQL:
		return NewPostgresDB(connStr)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeType)
	}
}
