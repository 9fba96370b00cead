package slipstream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/slipstream-app/slipstream/pkg/auth"
	"github.com/slipstream-app/slipstream/pkg/notify"
	"github.com/slipstream-app/slipstream/pkg/presence"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
)

// frame is the server-to-client message: a logical topic and its payload.
type frame struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

// clientMessage is the client-to-server message. The principal never comes
// from the payload; it is fixed at upgrade time from the verified token.
type clientMessage struct {
	Type     string          `json:"type"`
	PageID   string          `json:"pageId"`
	Position json.RawMessage `json:"position,omitempty"`
}

type client struct {
	sessionID string
	principal string
	conn      *websocket.Conn
	send      chan frame
	done      chan struct{}

	// joined tracks pages announced to the presence tracker, for cleanup
	// when the connection drops. Touched only by the client's read loop.
	joined map[string]bool
}

// Hub owns the WebSocket connections and fans topic frames out to
// subscribers. It implements notify.Broadcaster, so page snapshots,
// presence lists and cursor relays all flow through Publish.
type Hub struct {
	log      zerolog.Logger
	upgrader websocket.Upgrader
	presence *presence.Tracker

	mu     sync.RWMutex
	topics map[string]map[*client]bool
}

var _ notify.Broadcaster = (*Hub)(nil)

// NewHub returns a hub with no connections.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log: log.With().Str("component", "hub").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		topics: make(map[string]map[*client]bool),
	}
}

// AttachPresence connects the presence tracker. Set once during wiring; the
// tracker itself broadcasts through this hub.
func (h *Hub) AttachPresence(tracker *presence.Tracker) {
	h.presence = tracker
}

// Publish sends a frame to every subscriber of topic. Delivery is
// fire-and-forget: a client whose send buffer is full misses the frame.
func (h *Hub) Publish(topic string, payload any) error {
	h.mu.RLock()
	subscribers := make([]*client, 0, len(h.topics[topic]))
	for c := range h.topics[topic] {
		subscribers = append(subscribers, c)
	}
	h.mu.RUnlock()

	msg := frame{Topic: topic, Payload: payload}
	for _, c := range subscribers {
		select {
		case c.send <- msg:
		default:
			h.log.Warn().
				Str("topic", topic).
				Str("session_id", c.sessionID).
				Msg("slow subscriber, frame dropped")
		}
	}
	return nil
}

// HandleConnection upgrades the request and runs the connection's read and
// write loops. The principal comes from the request context; anonymous
// connections may subscribe to topics but cannot join presence.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := &client{
		sessionID: ulid.Make().String(),
		principal: auth.PrincipalFromContext(r.Context()),
		conn:      conn,
		send:      make(chan frame, 64),
		done:      make(chan struct{}),
		joined:    make(map[string]bool),
	}
	h.log.Info().
		Str("session_id", c.sessionID).
		Str("principal", c.principal).
		Msg("websocket connected")

	go h.writePump(c)
	h.readPump(c, r)
}

func (h *Hub) readPump(c *client, r *http.Request) {
	defer h.disconnect(c)
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug().Err(err).Str("session_id", c.sessionID).Msg("websocket read failed")
			}
			return
		}
		if msg.PageID == "" {
			continue
		}
		switch msg.Type {
		case "subscribe":
			h.subscribe(c, msg.PageID)
		case "unsubscribe":
			h.unsubscribe(c, msg.PageID)
		case "join":
			h.subscribe(c, msg.PageID)
			c.joined[msg.PageID] = true
			h.presence.Join(r.Context(), msg.PageID, c.sessionID, c.principal)
		case "leave":
			delete(c.joined, msg.PageID)
			h.presence.Disconnect(msg.PageID, c.sessionID)
		case "cursor":
			h.presence.RelayCursor(msg.PageID, c.principal, msg.Position)
		default:
			h.log.Debug().
				Str("type", msg.Type).
				Str("session_id", c.sessionID).
				Msg("unknown message type ignored")
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// pageTopics lists the topics a page subscription covers.
func pageTopics(pageID string) []string {
	return []string{
		notify.PageTopic(pageID),
		notify.PresenceTopic(pageID),
		notify.CursorTopic(pageID),
		notify.ChildrenDeletedTopic(pageID),
	}
}

func (h *Hub) subscribe(c *client, pageID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range pageTopics(pageID) {
		subscribers, ok := h.topics[topic]
		if !ok {
			subscribers = make(map[*client]bool)
			h.topics[topic] = subscribers
		}
		subscribers[c] = true
	}
}

func (h *Hub) unsubscribe(c *client, pageID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range pageTopics(pageID) {
		h.dropLocked(c, topic)
	}
}

func (h *Hub) dropLocked(c *client, topic string) {
	subscribers, ok := h.topics[topic]
	if !ok {
		return
	}
	delete(subscribers, c)
	if len(subscribers) == 0 {
		delete(h.topics, topic)
	}
}

// disconnect tears a client down: presence leaves for every joined page,
// removal from all topics, and signaling the write loop to exit. The send
// channel stays open so a concurrent Publish can never hit a closed channel;
// leftover frames are simply dropped with the client.
func (h *Hub) disconnect(c *client) {
	for pageID := range c.joined {
		h.presence.Disconnect(pageID, c.sessionID)
	}
	h.mu.Lock()
	for topic := range h.topics {
		h.dropLocked(c, topic)
	}
	h.mu.Unlock()
	close(c.done)
	h.log.Info().Str("session_id", c.sessionID).Msg("websocket disconnected")
}
