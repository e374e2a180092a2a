// Package realtime implements the websocket push channel. Delivery is
// fire-and-forget: at most once per connected client per event, no
// acknowledgement, no retry, no queue for offline clients. Disconnected
// clients reconcile by listing persisted state on reconnect.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/flowstate/backend/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// sendBuffer bounds per-connection queueing; a client that cannot
	// drain it loses the event rather than blocking the producer.
	sendBuffer = 32
)

// Publisher is the push surface consumed by the domain services. Targeted
// sends reach only the identity's live connections; Broadcast reaches
// every connection and remains for genuinely public events.
type Publisher interface {
	SendTo(identity, event string, payload any)
	Broadcast(event string, payload any)
}

// ChatHandler receives inbound chat_message events. Errors are not
// surfaced to the sender on this fire-and-forget channel.
type ChatHandler func(sender, text, receiver string)

// Hub maintains the registry of live connections keyed by identity.
type Hub struct {
	log      *logger.Logger
	upgrader websocket.Upgrader

	mu         sync.RWMutex
	conns      map[*Conn]struct{}
	byIdentity map[string]map[*Conn]struct{}
	onChat     ChatHandler
}

var _ Publisher = (*Hub)(nil)

// NewHub creates an empty hub.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.NewDefault("realtime")
	}
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		conns:      make(map[*Conn]struct{}),
		byIdentity: make(map[string]map[*Conn]struct{}),
	}
}

// OnChatMessage registers the handler for inbound chat events. Call
// before serving connections.
func (h *Hub) OnChatMessage(fn ChatHandler) { h.onChat = fn }

// Conn is one live client connection.
type Conn struct {
	hub      *Hub
	ws       *websocket.Conn
	identity string
	send     chan Envelope
	closed   chan struct{}
	once     sync.Once
}

// ServeWS upgrades an HTTP request to a websocket connection bound to the
// given identity and blocks until the client disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, identity string) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := &Conn{
		hub:      h,
		ws:       ws,
		identity: identity,
		send:     make(chan Envelope, sendBuffer),
		closed:   make(chan struct{}),
	}
	h.register(c)
	h.log.WithField("identity", identity).Info("client connected")

	go c.writePump()
	c.readPump()
}

func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
	set, ok := h.byIdentity[c.identity]
	if !ok {
		set = make(map[*Conn]struct{})
		h.byIdentity[c.identity] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; !ok {
		return
	}
	delete(h.conns, c)
	if set, ok := h.byIdentity[c.identity]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.byIdentity, c.identity)
		}
	}
}

// SendTo delivers an event to every live connection for identity.
// Best-effort: connections with a full send queue are skipped.
func (h *Hub) SendTo(identity, event string, payload any) {
	env := Envelope{Event: event, Data: payload}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.byIdentity[identity] {
		c.trySend(env)
	}
}

// Broadcast delivers an event to every live connection.
func (h *Hub) Broadcast(event string, payload any) {
	env := Envelope{Event: event, Data: payload}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		c.trySend(env)
	}
}

// ConnectedIdentities returns the identities with at least one live
// connection.
func (h *Hub) ConnectedIdentities() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.byIdentity))
	for id := range h.byIdentity {
		out = append(out, id)
	}
	return out
}

func (c *Conn) trySend(env Envelope) {
	select {
	case c.send <- env:
	case <-c.closed:
	default:
		// Slow client: drop the event, never block the producer.
	}
}

func (c *Conn) close() {
	c.once.Do(func() {
		close(c.closed)
		c.hub.unregister(c)
		_ = c.ws.Close()
		c.hub.log.WithField("identity", c.identity).Info("client disconnected")
	})
}

func (c *Conn) readPump() {
	defer c.close()

	c.ws.SetReadLimit(64 * 1024)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		c.dispatch(env, raw)
	}
}

func (c *Conn) dispatch(env Envelope, raw []byte) {
	switch env.Event {
	case EventChatMessage:
		if c.hub.onChat == nil {
			return
		}
		var frame struct {
			Data chatMessageData `json:"data"`
		}
		if err := json.Unmarshal(raw, &frame); err != nil {
			return
		}
		sender := frame.Data.Sender
		if sender == "" {
			sender = c.identity
		}
		c.hub.onChat(sender, frame.Data.Text, frame.Data.Receiver)
	default:
		// Unknown inbound events are ignored.
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case env := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}
