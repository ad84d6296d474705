package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/roomlet/messaging/internal/logger"
	"github.com/roomlet/messaging/internal/models"
)

var log = logger.New("api")

// threadKey identifies one conversation: a listing crossed with the
// counterpart user. Two users can hold independent threads per listing.
type threadKey struct {
	ListingID uuid.UUID
	OtherID   uuid.UUID
}

// ListConversations rebuilds the user's conversation list from the flat
// message log: group by (listing, counterpart), keep the newest message
// per group, and attach denormalized listing and counterpart summaries.
func (h *MessageHandler) ListConversations(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	userUUID := userID.(uuid.UUID)

	messages, err := h.DB.GetMessagesByUser(userUUID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	conversations := h.buildConversations(userUUID, messages)

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// buildConversations derives the conversation list from messages ordered
// newest first. Groups appear in the order their newest message appears,
// which is the store's native result order; messages with identical
// timestamps keep that order rather than being re-sorted.
func (h *MessageHandler) buildConversations(userID uuid.UUID, messages []*models.Message) []models.Conversation {
	conversations := []models.Conversation{}
	seen := make(map[threadKey]bool)

	users := make(map[uuid.UUID]*models.UserSummary)
	listings := make(map[uuid.UUID]*models.ListingSummary)

	lookupUser := func(id uuid.UUID) *models.UserSummary {
		if u, ok := users[id]; ok {
			return u
		}
		u, err := h.DB.GetUserByID(id)
		if err != nil {
			users[id] = nil
			return nil
		}
		users[id] = u
		return u
	}

	for _, msg := range messages {
		other := msg.SenderID
		if other == userID {
			other = msg.ReceiverID
		}

		key := threadKey{ListingID: msg.ListingID, OtherID: other}
		if seen[key] {
			continue
		}
		seen[key] = true

		listing, ok := listings[msg.ListingID]
		if !ok {
			var err error
			listing, err = h.DB.GetListingByID(msg.ListingID)
			if err != nil {
				listing = nil
			}
			listings[msg.ListingID] = listing
		}

		counterpart := lookupUser(other)
		if listing == nil || counterpart == nil {
			// Listing or account removed since the exchange; the thread
			// cannot be rendered, so it is omitted rather than half-built.
			log.Debug("Skipping thread (%s, %s): missing listing or user", msg.ListingID, other)
			continue
		}

		conversations = append(conversations, models.Conversation{
			Listing:   *listing,
			OtherUser: *counterpart,
			LastMessage: &models.MessageResponse{
				ID:         msg.ID,
				SenderID:   msg.SenderID,
				ReceiverID: msg.ReceiverID,
				ListingID:  msg.ListingID,
				Content:    msg.Content,
				CreatedAt:  msg.CreatedAt,
				Sender:     lookupUser(msg.SenderID),
				Receiver:   lookupUser(msg.ReceiverID),
			},
			// No last-read marker is persisted anywhere, so the badge
			// count is always 0 here and tracked client-side if at all.
			UnreadCount: 0,
		})
	}

	return conversations
}
