// Package realtime pushes notification events to admin panel sessions over WebSockets.
package realtime

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/charlesng35/agencydesk/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 << 10

	defaultBufferSize = 32
)

// Notification events pushed to subscribers.
const (
	EventNotificationCreated = "notification.created"
	EventNotificationRead    = "notification.read"
	EventNotificationDeleted = "notification.deleted"
	EventNotificationsClear  = "notifications.cleared"
)

// Message represents a JSON payload delivered to an admin session.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Publisher delivers messages to every live session of an admin.
type Publisher interface {
	Publish(adminID string, message Message)
}

// Hub tracks live admin sessions.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*session]struct{}
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewHub constructs a realtime hub. Cross-origin upgrades are accepted only from allowedOrigins
// and loopback hosts.
func NewHub(allowedOrigins ...string) *Hub {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if host := hostWithoutPort(origin); host != "" {
			allowed[strings.ToLower(host)] = struct{}{}
		}
	}

	return &Hub{
		sessions: make(map[string]map[*session]struct{}),
		log:      logger.WithModule("realtime"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				originHost := strings.ToLower(hostWithoutPort(origin))
				if originHost == strings.ToLower(hostWithoutPort(r.Host)) || isLoopback(originHost) {
					return true
				}
				_, ok := allowed[originHost]
				return ok
			},
		},
	}
}

// Serve upgrades the request and streams adminID's notifications until the socket closes.
func (h *Hub) Serve(adminID string, w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.String("admin_id", adminID), zap.Error(err))
		return
	}

	s := &session{
		hub:     h,
		socket:  conn,
		adminID: adminID,
		send:    make(chan Message, defaultBufferSize),
	}
	h.register(s)

	go s.writeLoop()
	s.readLoop()
}

// Publish delivers message to every session of adminID. Slow sessions are dropped.
func (h *Hub) Publish(adminID string, message Message) {
	if h == nil || adminID == "" {
		return
	}

	h.mu.RLock()
	targets := make([]*session, 0, len(h.sessions[adminID]))
	for s := range h.sessions[adminID] {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.enqueue(message)
	}
}

// Sessions reports the number of live sessions for adminID.
func (h *Hub) Sessions(adminID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[adminID])
}

func (h *Hub) register(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sessions[s.adminID] == nil {
		h.sessions[s.adminID] = make(map[*session]struct{})
	}
	h.sessions[s.adminID][s] = struct{}{}
}

func (h *Hub) unregister(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.sessions[s.adminID]
	delete(set, s)
	if len(set) == 0 {
		delete(h.sessions, s.adminID)
	}
}

type session struct {
	hub     *Hub
	socket  *websocket.Conn
	adminID string
	send    chan Message

	mu     sync.Mutex
	closed bool
}

func (s *session) enqueue(message Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	select {
	case s.send <- message:
	default:
		s.hub.log.Warn("dropping slow session", zap.String("admin_id", s.adminID))
		s.closeLocked()
	}
}

func (s *session) readLoop() {
	defer s.close()

	s.socket.SetReadLimit(maxMessageSize)
	_ = s.socket.SetReadDeadline(time.Now().Add(pongWait))
	s.socket.SetPongHandler(func(string) error {
		_ = s.socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := s.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				s.hub.log.Debug("unexpected close", zap.String("admin_id", s.adminID), zap.Error(err))
			}
			return
		}

		var ctrl struct {
			Action string `json:"action"`
		}
		if json.Unmarshal(payload, &ctrl) == nil && strings.EqualFold(strings.TrimSpace(ctrl.Action), "ping") {
			s.enqueue(Message{Event: "pong"})
		}
	}
}

func (s *session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.socket.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			_ = s.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.socket.WriteJSON(message); err != nil {
				s.close()
				return
			}
		case <-ticker.C:
			_ = s.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}
		}
	}
}

func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *session) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	s.hub.unregister(s)
	close(s.send)
}

func hostWithoutPort(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}

	if strings.Contains(host, "://") {
		if parsed, err := url.Parse(host); err == nil {
			return parsed.Hostname()
		}
	}

	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func isLoopback(host string) bool {
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return strings.EqualFold(host, "localhost")
}
