package websocket

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/roomlet/messaging/internal/database"
	"github.com/roomlet/messaging/internal/models"
)

// Client is one live relay session. A user with several tabs open holds
// several clients; each subscribes to rooms independently.
type Client struct {
	SessionID uuid.UUID
	UserID    uuid.UUID
	Socket    *websocket.Conn
	Send      chan []byte

	// done is closed by the manager when the session is removed. Send is
	// never closed: the read pump may still be queuing events for a
	// session the broadcast path already dropped, and a send on a closed
	// channel would take the whole process down.
	done chan struct{}
}

func newClient(userID uuid.UUID, socket *websocket.Conn) *Client {
	return &Client{
		SessionID: uuid.New(),
		UserID:    userID,
		Socket:    socket,
		Send:      make(chan []byte, 256),
		done:      make(chan struct{}),
	}
}

// sendEvent queues a server event for this session only
func (c *Client) sendEvent(event string, data interface{}) {
	frame := marshalEvent(event, data)
	if frame == nil {
		return
	}
	select {
	case c.Send <- frame:
	default:
	}
}

func (c *Client) sendError(message string) {
	c.sendEvent(EventError, ErrorPayload{Message: message})
}

// readPump reads frames off the socket and dispatches them one at a time.
// Serial processing per connection is what gives two sends from the same
// sender their persisted-then-broadcast order. Handler failures become
// error events back to this session; the connection itself stays up.
func (c *Client) readPump(m *Manager) {
	defer func() {
		m.unregister <- c
		c.Socket.Close()
	}()

	c.Socket.SetReadLimit(64 * 1024)
	c.Socket.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Socket.SetPongHandler(func(string) error {
		c.Socket.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	messageCount := 0
	lastResetTime := time.Now()
	const maxMessagesPerMinute = 60

	for {
		if messageCount >= maxMessagesPerMinute {
			if time.Since(lastResetTime) < time.Minute {
				log.Warn("Rate limit exceeded for session %s", c.SessionID)
				time.Sleep(time.Second)
				continue
			}
			messageCount = 0
			lastResetTime = time.Now()
		}

		_, raw, err := c.Socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error("Error reading from session %s: %v", c.SessionID, err)
			} else {
				log.Info("Session %s closed connection: %v", c.SessionID, err)
			}
			break
		}

		messageCount++

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Debug("Malformed frame from session %s: %v", c.SessionID, err)
			c.sendError("Invalid message format")
			continue
		}

		c.dispatch(m, &env)
	}
}

func (c *Client) dispatch(m *Manager, env *Envelope) {
	switch env.Event {
	case EventJoinListing:
		c.handleJoinListing(m, env)
	case EventLeaveListing:
		c.handleLeaveListing(m, env)
	case EventSendMessage:
		c.handleSendMessage(m, env)
	case EventTypingStart:
		c.handleTyping(m, env, EventUserTyping)
	case EventTypingStop:
		c.handleTyping(m, env, EventUserStopTyping)
	default:
		log.Warn("Unknown event %q from session %s", env.Event, c.SessionID)
		c.sendError("Unknown event type")
	}
}

// handleJoinListing subscribes the session to a listing room. Any
// authenticated user may observe any listing thread; that is the
// marketplace's open messaging model, so there is no membership check.
func (c *Client) handleJoinListing(m *Manager, env *Envelope) {
	if env.ListingID == uuid.Nil {
		c.sendError("listing_id is required")
		return
	}
	m.JoinRoom(c, env.ListingID.String())
	log.Debug("Session %s joined listing room %s", c.SessionID, env.ListingID)
}

func (c *Client) handleLeaveListing(m *Manager, env *Envelope) {
	if env.ListingID == uuid.Nil {
		c.sendError("listing_id is required")
		return
	}
	m.LeaveRoom(c, env.ListingID.String())
	log.Debug("Session %s left listing room %s", c.SessionID, env.ListingID)
}

// handleSendMessage validates, persists, then fans out. The broadcast
// only ever carries the stored record; if persistence fails the message
// is dropped and the sender alone hears about it. No retry.
func (c *Client) handleSendMessage(m *Manager, env *Envelope) {
	req := models.MessageRequest{
		ReceiverID: env.ReceiverID,
		ListingID:  env.ListingID,
		Content:    env.Content,
	}
	if err := req.Validate(c.UserID); err != nil {
		c.sendError(err.Error())
		return
	}

	sender, err := m.store.GetUserByID(c.UserID)
	if err != nil {
		c.sendError("Failed to resolve sender")
		return
	}
	receiver, err := m.store.GetUserByID(req.ReceiverID)
	if err != nil {
		c.sendError("Receiver not found")
		return
	}

	message, err := m.store.CreateMessage(c.UserID, req.ReceiverID, req.ListingID, req.Content)
	if err != nil {
		log.Error("Failed to persist message from session %s: %v", c.SessionID, err)
		switch {
		case errors.Is(err, database.ErrListingNotFound):
			c.sendError("Listing not found")
		case errors.Is(err, database.ErrUserNotFound):
			c.sendError("Receiver not found")
		default:
			c.sendError("Failed to send message")
		}
		return
	}

	m.DeliverMessage(&models.MessageResponse{
		ID:         message.ID,
		SenderID:   message.SenderID,
		ReceiverID: message.ReceiverID,
		ListingID:  message.ListingID,
		Content:    message.Content,
		CreatedAt:  message.CreatedAt,
		Sender:     sender,
		Receiver:   receiver,
	})
}

// handleTyping relays the ephemeral signal to everyone in the listing
// room except the sender. Nothing is persisted or acknowledged.
func (c *Client) handleTyping(m *Manager, env *Envelope, outEvent string) {
	if env.ListingID == uuid.Nil {
		c.sendError("listing_id is required")
		return
	}
	if outEvent == EventUserTyping && env.ReceiverID == uuid.Nil {
		c.sendError("receiver_id is required")
		return
	}
	m.BroadcastExcept(env.ListingID.String(), c, outEvent, TypingPayload{
		UserID:    c.UserID,
		ListingID: env.ListingID,
	})
}

// writePump drains the session's send queue onto the socket and keeps the
// connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Socket.Close()
	}()

	for {
		select {
		case frame := <-c.Send:
			c.Socket.SetWriteDeadline(time.Now().Add(10 * time.Second))
			w, err := c.Socket.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(frame)

			// Flush anything else already queued into the same write
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-c.done:
			c.Socket.SetWriteDeadline(time.Now().Add(10 * time.Second))
			c.Socket.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			c.Socket.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
