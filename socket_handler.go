package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ssau-fiit/codeshare-api/room"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// A full-size code_update is a million characters, up to four bytes each,
	// plus JSON escaping.
	maxMessageSize = 8 << 20

	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func (cl *client) close() {
	cl.closeOnce.Do(func() { close(cl.done) })
}

// hub maps connection IDs to live sockets and implements room.Transport.
type hub struct {
	mu      sync.RWMutex
	clients map[string]*client
}

func newHub() *hub {
	return &hub{clients: make(map[string]*client)}
}

func (h *hub) add(cl *client) {
	h.mu.Lock()
	h.clients[cl.id] = cl
	h.mu.Unlock()
}

func (h *hub) remove(id string) {
	h.mu.Lock()
	delete(h.clients, id)
	h.mu.Unlock()
}

func (h *hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Send queues an event for one connection. A connection that cannot keep up
// is closed instead of holding up the room.
func (h *hub) Send(connID, event string, payload any) {
	h.mu.RLock()
	cl, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to encode event")
		return
	}
	msg, err := json.Marshal(room.Envelope{Event: event, Data: data})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to encode envelope")
		return
	}

	select {
	case cl.send <- msg:
	case <-cl.done:
	default:
		log.Warn().Str("conn", connID).Msg("send buffer full, dropping connection")
		cl.close()
	}
}

func (s *server) handleSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("error upgrading connection")
		return
	}

	cl := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	s.hub.add(cl)
	s.coordinator.Connect(cl.id)
	log.Debug().Str("conn", cl.id).Str("remote", c.Request.RemoteAddr).Msg("connected")

	go s.writePump(cl)
	s.readPump(c.Request.Context(), cl)

	s.coordinator.Disconnect(cl.id)
	s.hub.remove(cl.id)
	cl.close()
	log.Debug().Str("conn", cl.id).Msg("disconnected")
}

func (s *server) readPump(ctx context.Context, cl *client) {
	cl.conn.SetReadLimit(maxMessageSize)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error().Err(err).Str("conn", cl.id).Msg("failed to read message from client")
			}
			return
		}

		var env room.Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			s.hub.Send(cl.id, room.EventError, room.ErrorEvent{Message: "Invalid message"})
			continue
		}
		_ = s.coordinator.Handle(ctx, cl.id, env.Event, env.Data)

		select {
		case <-cl.done:
			return
		default:
		}
	}
}

func (s *server) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case msg := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Error().Err(err).Str("conn", cl.id).Msg("failed to write message")
				cl.close()
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cl.close()
				return
			}
		case <-cl.done:
			_ = cl.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}
