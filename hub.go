package main

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"wood-empire/game"
	"wood-empire/session"
)

const (
	wsSendBuffer   = 32
	wsWriteTimeout = 5 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingEvery    = wsPongWait * 9 / 10
)

// wsMessage is one frame on /ws.
type wsMessage struct {
	Type      string         `json:"type"`
	Feedback  *game.Feedback `json:"feedback,omitempty"`
	State     *game.State    `json:"state,omitempty"`
	Action    game.Action    `json:"action,omitempty"`
	Restarted bool           `json:"restarted,omitempty"`
	Settled   bool           `json:"settled,omitempty"`
}

type wsClient struct {
	slot string
	conn *websocket.Conn
	send chan wsMessage
}

// Hub fans feedback and state changes out to every open tab of a player.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[string]map[*wsClient]struct{}
}

func newHub(logger *slog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: sameOrigin},
		logger:   logger,
		clients:  map[string]map[*wsClient]struct{}{},
	}
}

func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
}

// DeliverFeedback implements session.Sink.
func (h *Hub) DeliverFeedback(slot string, fb game.Feedback) {
	h.broadcast(slot, wsMessage{Type: "feedback", Feedback: &fb})
}

// Transitioned implements session.Listener.
func (h *Hub) Transitioned(_ context.Context, ev session.Event) {
	st := ev.State
	h.broadcast(ev.Slot, wsMessage{Type: "state", State: &st, Action: ev.Action, Restarted: ev.Restarted, Settled: ev.Settled})
}

// Clients reports how many sockets are open for slot.
func (h *Hub) Clients(slot string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[slot])
}

// Close drops every open socket. Hijacked connections outlive http.Server.Shutdown, so this runs
// after it.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.clients {
		for c := range set {
			c.conn.Close()
		}
	}
}

func (h *Hub) broadcast(slot string, msg wsMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients[slot] {
		select {
		case c.send <- msg:
		default:
			// Slow reader; the frame is dropped rather than stalling the game.
		}
	}
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.clients[c.slot]
	if set == nil {
		set = map[*wsClient]struct{}{}
		h.clients[c.slot] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.clients[c.slot]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.slot)
	}
}

// serve upgrades the request and streams messages for slot until the client goes away. initial is
// sent first so a new tab starts from the current state.
func (h *Hub) serve(w http.ResponseWriter, r *http.Request, slot string, initial game.State) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{slot: slot, conn: conn, send: make(chan wsMessage, wsSendBuffer)}
	c.send <- wsMessage{Type: "state", State: &initial}
	h.register(c)

	go h.writeLoop(c)
	h.readLoop(c)
}

// readLoop only watches for the client closing; inbound frames are ignored.
func (h *Hub) readLoop(c *wsClient) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *wsClient) {
	ticker := time.NewTicker(wsPingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
