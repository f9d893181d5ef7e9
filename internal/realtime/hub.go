package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

// Hub tracks the notification channels of signed-in sessions. A session
// holds at most one channel; subscribing again replaces the previous one.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]*channel
	log      *logrus.Logger
}

type channel struct {
	userID    string
	sessionID string
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	once      sync.Once
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{sessions: make(map[string]*channel), log: log}
}

// Register attaches conn as the session's channel and starts its pumps.
func (h *Hub) Register(userID, sessionID string, conn *websocket.Conn) {
	ch := &channel{
		userID:    userID,
		sessionID: sessionID,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
	}

	h.mu.Lock()
	prev := h.sessions[sessionID]
	h.sessions[sessionID] = ch
	h.mu.Unlock()

	if prev != nil {
		prev.close()
	}

	go h.writePump(ch)
	go h.readPump(ch)
}

// Publish queues msg on every channel owned by userID. Slow channels drop the message.
func (h *Hub) Publish(userID string, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.WithError(err).Error("realtime: marshal message")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.sessions {
		if ch.userID != userID {
			continue
		}
		select {
		case ch.send <- data:
		default:
			h.log.WithField("session_id", ch.sessionID).Warn("realtime: send buffer full, dropping message")
		}
	}
}

// Close tears down the session's channel, if any.
func (h *Hub) Close(sessionID string) {
	h.mu.Lock()
	ch := h.sessions[sessionID]
	delete(h.sessions, sessionID)
	h.mu.Unlock()

	if ch != nil {
		ch.close()
	}
}

// Count returns the number of active channels.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Shutdown closes every channel.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	chans := make([]*channel, 0, len(h.sessions))
	for id, ch := range h.sessions {
		chans = append(chans, ch)
		delete(h.sessions, id)
	}
	h.mu.Unlock()

	for _, ch := range chans {
		ch.close()
	}
}

func (h *Hub) unregister(ch *channel) {
	h.mu.Lock()
	if h.sessions[ch.sessionID] == ch {
		delete(h.sessions, ch.sessionID)
	}
	h.mu.Unlock()
	ch.close()
}

func (c *channel) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.conn.Close()
	})
}

func (h *Hub) readPump(ch *channel) {
	defer h.unregister(ch)

	ch.conn.SetReadLimit(512)
	ch.conn.SetReadDeadline(time.Now().Add(pongWait))
	ch.conn.SetPongHandler(func(string) error {
		return ch.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := ch.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(ch *channel) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ch.done:
			return
		case data := <-ch.send:
			ch.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ch.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.unregister(ch)
				return
			}
		case <-ticker.C:
			ch.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ch.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(ch)
				return
			}
		}
	}
}
