package realtime

import (
	"sync"

	"github.com/yungbote/senseboard-backend/internal/logger"
)

// Hub tracks websocket clients per room and fans frames out to them.
// Delivery is best effort: a client whose outbound buffer is full misses the
// frame rather than stalling the room.
type Hub struct {
	mu      sync.RWMutex
	logger  *logger.Logger
	byRoom  map[string]map[*Client]bool
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		logger: log.With("component", "Hub"),
		byRoom: make(map[string]map[*Client]bool),
	}
}

// NewClient registers a connection for a room and returns its handle.
func (hub *Hub) NewClient(roomID, memberID string) *Client {
	client := newClient(hub.logger, roomID, memberID)

	hub.mu.Lock()
	defer hub.mu.Unlock()
	clients, ok := hub.byRoom[roomID]
	if !ok {
		clients = make(map[*Client]bool)
		hub.byRoom[roomID] = clients
	}
	clients[client] = true
	hub.logger.Debug("Client joined", "clientId", client.ID, "roomId", roomID)
	return client
}

// RemoveClient detaches the client from its room without closing channels.
func (hub *Hub) RemoveClient(client *Client) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if clients, ok := hub.byRoom[client.RoomID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(hub.byRoom, client.RoomID)
		}
	}
	hub.logger.Debug("Client left", "clientId", client.ID, "roomId", client.RoomID)
}

// CloseClient detaches the client and closes its channels. Safe to call once.
func (hub *Hub) CloseClient(client *Client) {
	close(client.done)
	hub.RemoveClient(client)
	close(client.Outbound)
}

// Broadcast fans a frame out to every client in the room.
func (hub *Hub) Broadcast(roomID string, frame ServerFrame) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	clients, ok := hub.byRoom[roomID]
	if !ok {
		return
	}
	for c := range clients {
		select {
		case c.Outbound <- frame:
		default:
			hub.logger.Warn("Dropping frame; outbound buffer full", "clientId", c.ID, "roomId", roomID)
		}
	}
}

// SendTo delivers a frame to one member's connections only.
func (hub *Hub) SendTo(roomID, memberID string, frame ServerFrame) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	for c := range hub.byRoom[roomID] {
		if c.MemberID != memberID {
			continue
		}
		select {
		case c.Outbound <- frame:
		default:
			hub.logger.Warn("Dropping frame; outbound buffer full", "clientId", c.ID, "roomId", roomID)
		}
	}
}

// RoomClientCount reports how many connections a room currently holds.
func (hub *Hub) RoomClientCount(roomID string) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.byRoom[roomID])
}
