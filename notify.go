package main

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// MatchEvent is pushed to a user's open sockets when someone matched them.
type MatchEvent struct {
	Type    string    `json:"type"` // "mutual_match"
	RoomID  int       `json:"room_id"`
	With    int       `json:"with"`
	Synergy string    `json:"synergy"`
	Ts      time.Time `json:"ts"`
}

// matchClient is one open notification socket.
type matchClient struct {
	userID int
	conn   *websocket.Conn
	send   chan MatchEvent
}

// notifyHub fans match events out to each user's open sockets.
// Delivery is best-effort: no socket, no event, the synergy record is
// still in the store.
type notifyHub struct {
	clientsByUser map[int]map[*matchClient]bool
	mu            sync.RWMutex
}

func newNotifyHub() *notifyHub {
	return &notifyHub{
		clientsByUser: make(map[int]map[*matchClient]bool),
	}
}

func (h *notifyHub) register(c *matchClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clientsByUser[c.userID] == nil {
		h.clientsByUser[c.userID] = make(map[*matchClient]bool)
	}
	h.clientsByUser[c.userID][c] = true
}

func (h *notifyHub) unregister(c *matchClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if peers, ok := h.clientsByUser[c.userID]; ok {
		delete(peers, c)
		if len(peers) == 0 {
			delete(h.clientsByUser, c.userID)
		}
	}
}

func (h *notifyHub) notifyMatch(userID, roomID, withUser int, synergy string) {
	evt := MatchEvent{
		Type:    "mutual_match",
		RoomID:  roomID,
		With:    withUser,
		Synergy: synergy,
		Ts:      time.Now(),
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if peers, ok := h.clientsByUser[userID]; ok {
		for c := range peers {
			select {
			case c.send <- evt:
			default:
				// Drop event if the socket's buffer is full
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// For development: allow Vite dev origin ws://localhost:5173
	CheckOrigin: func(r *http.Request) bool { return true },
}

// global hub
var matchHub = newNotifyHub()

// GET /ws/matches
// Authenticated socket a client keeps open to hear about mutual matches
// as they happen.
func wsMatchesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := getUserIDFromBearer(r)
		if !ok {
			// Browsers cannot set headers on WebSocket dials; accept ?token= too.
			token := r.URL.Query().Get("token")
			if token == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			r.Header.Set("Authorization", "Bearer "+token)
			userID, ok = getUserIDFromBearer(r)
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WS upgrade error for user %d: %v", userID, err)
			return
		}

		client := &matchClient{
			userID: userID,
			conn:   conn,
			send:   make(chan MatchEvent, 16),
		}
		matchHub.register(client)

		go client.writeLoop()
		go client.readLoop()
	}
}

func (c *matchClient) writeLoop() {
	defer c.conn.Close()
	for evt := range c.send {
		if err := c.conn.WriteJSON(evt); err != nil {
			return
		}
	}
}

// readLoop only exists to notice the peer going away.
func (c *matchClient) readLoop() {
	defer func() {
		matchHub.unregister(c)
		close(c.send)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
