package websocket

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/roomlet/messaging/internal/logger"
	"github.com/roomlet/messaging/internal/models"
)

var log = logger.New("websocket")

// MessageStore is the slice of the persistence layer the relay needs.
// database.Store satisfies it.
type MessageStore interface {
	CreateMessage(senderID, receiverID, listingID uuid.UUID, content string) (*models.Message, error)
	GetUserByID(id uuid.UUID) (*models.UserSummary, error)
	GetListingByID(id uuid.UUID) (*models.ListingSummary, error)
}

// Manager owns the room registry and the set of live sessions. Rooms are
// purely in-memory: a room exists while it has at least one subscriber
// and carries no history. The only shared mutable state is the two maps,
// guarded by the mutex; all mutation goes through register/unregister and
// the join/leave methods.
type Manager struct {
	store      MessageStore
	clients    map[uuid.UUID]*Client           // by session id
	rooms      map[string]map[*Client]struct{} // room key -> subscribers
	register   chan *Client
	unregister chan *Client
	mutex      sync.Mutex
}

// NewManager creates a relay manager backed by the given store
func NewManager(store MessageStore) *Manager {
	return &Manager{
		store:      store,
		clients:    make(map[uuid.UUID]*Client),
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes session registration. Every new session is subscribed to
// its personal room (key = user id) before anything else can be delivered,
// so cross-thread notifications never race an explicit join.
func (m *Manager) Run() {
	for {
		select {
		case client := <-m.register:
			m.mutex.Lock()
			m.clients[client.SessionID] = client
			m.joinLocked(client, client.UserID.String())
			m.mutex.Unlock()
			log.Info("Session %s connected for user %s", client.SessionID, client.UserID)
		case client := <-m.unregister:
			m.mutex.Lock()
			m.removeClientLocked(client)
			m.mutex.Unlock()
		}
	}
}

// JoinRoom subscribes the session to a room. Idempotent: joining twice
// leaves exactly one subscription. Sessions already removed from the
// registry are refused, so a dropped client's read pump cannot sneak
// back into a room.
func (m *Manager) JoinRoom(client *Client, roomKey string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.clients[client.SessionID]; !ok {
		return
	}
	m.joinLocked(client, roomKey)
}

// LeaveRoom unsubscribes the session; no-op if it was never subscribed.
func (m *Manager) LeaveRoom(client *Client, roomKey string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.leaveLocked(client, roomKey)
}

func (m *Manager) joinLocked(client *Client, roomKey string) {
	subscribers, ok := m.rooms[roomKey]
	if !ok {
		subscribers = make(map[*Client]struct{})
		m.rooms[roomKey] = subscribers
	}
	subscribers[client] = struct{}{}
}

func (m *Manager) leaveLocked(client *Client, roomKey string) {
	subscribers, ok := m.rooms[roomKey]
	if !ok {
		return
	}
	delete(subscribers, client)
	if len(subscribers) == 0 {
		delete(m.rooms, roomKey)
	}
}

// removeClientLocked tears a session out of the registry and every room it
// joined, in one pass, so no room keeps a dangling reference. The send
// channel stays open; closing done tells the write pump to shut the
// socket, which in turn ends the read pump.
func (m *Manager) removeClientLocked(client *Client) {
	if _, ok := m.clients[client.SessionID]; !ok {
		return
	}
	delete(m.clients, client.SessionID)
	for key := range m.rooms {
		m.leaveLocked(client, key)
	}
	close(client.done)
	log.Info("Session %s disconnected for user %s", client.SessionID, client.UserID)
}

// Broadcast delivers an event to every session subscribed to the room.
// Sessions whose send buffer is gone or full are dropped, never an error.
func (m *Manager) Broadcast(roomKey, event string, data interface{}) {
	m.broadcast(roomKey, event, data, nil)
}

// BroadcastExcept is Broadcast minus one session; used for typing signals
// so the sender does not see their own indicator.
func (m *Manager) BroadcastExcept(roomKey string, exclude *Client, event string, data interface{}) {
	m.broadcast(roomKey, event, data, exclude)
}

func (m *Manager) broadcast(roomKey, event string, data interface{}, exclude *Client) {
	frame := marshalEvent(event, data)
	if frame == nil {
		return
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	for client := range m.rooms[roomKey] {
		if client == exclude {
			continue
		}
		select {
		case client.Send <- frame:
		default:
			m.removeClientLocked(client)
		}
	}
}

// DeliverMessage fans out a persisted message: the full record to the
// listing room, plus a lightweight notification to the receiver's
// personal room regardless of which thread they are viewing. Both the
// socket path and the REST fallback go through here.
func (m *Manager) DeliverMessage(msg *models.MessageResponse) {
	m.Broadcast(msg.ListingID.String(), EventNewMessage, msg)
	m.Broadcast(msg.ReceiverID.String(), EventMessageNotification, NotificationPayload{
		Content:   msg.Content,
		SenderID:  msg.SenderID,
		ListingID: msg.ListingID,
		Timestamp: msg.CreatedAt,
	})
}

// RoomSize reports the current subscriber count of a room
func (m *Manager) RoomSize(roomKey string) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.rooms[roomKey])
}

// HandleWebSocket upgrades an authenticated request to a relay session.
// Identity must already be resolved: a request without a verified userID
// in context is refused before the upgrade.
func (m *Manager) HandleWebSocket(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		log.Warn("No userID in context, rejecting connection from %s", c.Request.RemoteAddr)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	userUUID, ok := userID.(uuid.UUID)
	if !ok {
		log.Error("Invalid UUID in context from %s", c.Request.RemoteAddr)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user identification"})
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			log.Debug("WebSocket origin: %s", origin)
			// TODO: restrict to ALLOWED_ORIGINS once the web client's
			// production host is pinned down
			return true
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade connection: %v", err)
		return
	}

	client := newClient(userUUID, conn)

	m.register <- client

	go client.readPump(m)
	go client.writePump()
}
