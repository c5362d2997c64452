package ws

import (
	"encoding/json"
	"sync"
)

// ChatRoom is one room per conversation (donor + requester).
type ChatRoom struct {
	ChatID      string
	DonorID     uint
	RequesterID uint
	clients     map[*Client]struct{}
	mu          sync.RWMutex
}

func NewChatRoom(chatID string, donorID, requesterID uint) *ChatRoom {
	return &ChatRoom{
		ChatID:      chatID,
		DonorID:     donorID,
		RequesterID: requesterID,
		clients:     make(map[*Client]struct{}),
	}
}

func (r *ChatRoom) Join(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c] = struct{}{}
}

func (r *ChatRoom) Leave(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, c)
}

func (r *ChatRoom) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Broadcast sends payload to every connection in the room except from.
func (r *ChatRoom) Broadcast(from *Client, payload interface{}) {
	r.send(from, payload)
}

// BroadcastAll sends payload to every connection in the room, sender
// included; message echo carries the server-assigned id and timestamp.
func (r *ChatRoom) BroadcastAll(payload interface{}) {
	r.send(nil, payload)
}

func (r *ChatRoom) send(skip *Client, payload interface{}) {
	data, _ := json.Marshal(payload)
	r.mu.RLock()
	clients := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		if c != skip {
			clients = append(clients, c)
		}
	}
	r.mu.RUnlock()
	for _, c := range clients {
		select {
		case c.Send <- data:
		default:
		}
	}
}

// ChatHub holds all chat rooms by conversation id.
type ChatHub struct {
	mu    sync.RWMutex
	rooms map[string]*ChatRoom
}

func NewChatHub() *ChatHub {
	return &ChatHub{rooms: make(map[string]*ChatRoom)}
}

func (h *ChatHub) GetOrCreateRoom(chatID string, donorID, requesterID uint) *ChatRoom {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[chatID]; ok {
		return r
	}
	r := NewChatRoom(chatID, donorID, requesterID)
	h.rooms[chatID] = r
	return r
}

func (h *ChatHub) GetRoom(chatID string) *ChatRoom {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[chatID]
}

// BroadcastAll delivers to the room if anyone is connected; a no-op
// otherwise. Used by the REST send path.
func (h *ChatHub) BroadcastAll(chatID string, payload interface{}) {
	if r := h.GetRoom(chatID); r != nil {
		r.BroadcastAll(payload)
	}
}

func (h *ChatHub) RemoveRoom(chatID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, chatID)
}
