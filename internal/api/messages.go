package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/roomlet/messaging/internal/database"
	"github.com/roomlet/messaging/internal/models"
)

// MessageRelay is the fan-out half of the relay. The REST fallback path
// pushes persisted messages through it so socket subscribers see messages
// sent by non-socket clients too.
type MessageRelay interface {
	DeliverMessage(msg *models.MessageResponse)
}

// MessageHandler handles message-related routes
type MessageHandler struct {
	DB    database.Store
	Relay MessageRelay
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(db database.Store, relay MessageRelay) *MessageHandler {
	return &MessageHandler{DB: db, Relay: relay}
}

// SendMessage is the REST fallback for send-message. Validation and
// fan-out are identical to the socket path; only the error surface
// differs (HTTP statuses instead of error events).
func (h *MessageHandler) SendMessage(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	senderID := userID.(uuid.UUID)

	var req models.MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := req.Validate(senderID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sender, err := h.DB.GetUserByID(senderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve sender"})
		return
	}

	receiver, err := h.DB.GetUserByID(req.ReceiverID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Receiver not found"})
		return
	}

	message, err := h.DB.CreateMessage(senderID, req.ReceiverID, req.ListingID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrListingNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		case errors.Is(err, database.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Receiver not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		}
		return
	}

	response := &models.MessageResponse{
		ID:         message.ID,
		SenderID:   message.SenderID,
		ReceiverID: message.ReceiverID,
		ListingID:  message.ListingID,
		Content:    message.Content,
		CreatedAt:  message.CreatedAt,
		Sender:     sender,
		Receiver:   receiver,
	}

	if h.Relay != nil {
		h.Relay.DeliverMessage(response)
	}

	c.JSON(http.StatusCreated, response)
}

// GetMessage returns a single message by id. Only the sender or the
// receiver may fetch it; anyone else sees the same 404 as a message
// that does not exist.
func (h *MessageHandler) GetMessage(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	userUUID := userID.(uuid.UUID)

	messageID, err := uuid.Parse(c.Param("messageID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message ID"})
		return
	}

	message, err := h.DB.GetMessageByID(messageID)
	if err != nil {
		if errors.Is(err, database.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch message"})
		}
		return
	}

	if message.SenderID != userUUID && message.ReceiverID != userUUID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}

	c.JSON(http.StatusOK, message)
}

// GetListingMessages returns the authenticated user's thread on a listing,
// oldest first
func (h *MessageHandler) GetListingMessages(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	userUUID := userID.(uuid.UUID)

	listingID, err := uuid.Parse(c.Param("listingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID"})
		return
	}

	messages, err := h.DB.GetListingMessages(listingID, userUUID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if messages == nil {
		messages = []*models.Message{}
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
