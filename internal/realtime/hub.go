// Package realtime pushes device events to dashboards over WebSocket.
// Subscribers see only the events of their own company; a subscriber
// registered with an empty company sees every company.
package realtime

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"signage/internal/logs"
	"signage/internal/models"
)

const (
	EventDeviceRegistered = "device.registered"
	EventDeviceLinked     = "device.linked"
	EventDeviceUnlinked   = "device.unlinked"
	EventDeviceRenamed    = "device.renamed"
	EventDeviceDeleted    = "device.deleted"
	EventDeviceHeartbeat  = "device.heartbeat"

	sendBuffer     = 64
	maxMessageSize = 512
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
)

type Event struct {
	Type      string         `json:"type"`
	CompanyID string         `json:"company_id"`
	Device    *models.Device `json:"device"`
	At        time.Time      `json:"at"`
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// trySend drops the message when the subscriber is not keeping up.
func (s *subscriber) trySend(msg []byte) {
	select {
	case s.send <- msg:
	default:
		logs.Logger.Debug("[realtime] slow subscriber, event dropped")
	}
}

type Hub struct {
	mu        sync.RWMutex
	companies map[string]map[*subscriber]struct{}
	upgrader  websocket.Upgrader
	now       func() time.Time
}

// NewHub accepts upgrades from the given browser origins, matching the
// CORS settings: "*" or an empty list accepts any origin.
func NewHub(origins []string) *Hub {
	return &Hub{
		companies: make(map[string]map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(origins),
		},
		now: time.Now,
	}
}

// originChecker also admits same-origin requests and clients that send no
// Origin header at all, such as the CLI.
func originChecker(origins []string) func(*http.Request) bool {
	allowed := map[string]struct{}{}
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[strings.TrimSuffix(o, "/")] = struct{}{}
	}
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := allowed[origin]; ok {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil || !strings.EqualFold(u.Host, r.Host) {
			logs.Logger.Warnf("[realtime] rejected origin %q", origin)
			return false
		}
		return true
	}
}

func (h *Hub) register(companyID string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.companies[companyID] == nil {
		h.companies[companyID] = make(map[*subscriber]struct{})
	}
	h.companies[companyID][s] = struct{}{}
}

// unregister closes the send channel exactly once.
func (h *Hub) unregister(companyID string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.companies[companyID]
	if !ok {
		return
	}
	if _, ok := subs[s]; !ok {
		return
	}
	delete(subs, s)
	if len(subs) == 0 {
		delete(h.companies, companyID)
	}
	close(s.send)
}

// Subscribers counts connections watching companyID, including the ones
// watching every company.
func (h *Hub) Subscribers(companyID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := len(h.companies[companyID])
	if companyID != "" {
		n += len(h.companies[""])
	}
	return n
}

// Publish fans the event out to the device's company and to global watchers.
func (h *Hub) Publish(eventType string, d *models.Device) {
	ev := Event{Type: eventType, CompanyID: d.CompanyID, Device: d, At: h.now().UTC()}
	msg, err := json.Marshal(ev)
	if err != nil {
		logs.Logger.WithError(err).Error("[realtime] marshal event")
		return
	}

	h.mu.RLock()
	targets := make([]*subscriber, 0, len(h.companies[d.CompanyID])+len(h.companies[""]))
	for s := range h.companies[d.CompanyID] {
		targets = append(targets, s)
	}
	for s := range h.companies[""] {
		targets = append(targets, s)
	}
	// Sending under the read lock keeps unregister from closing a channel
	// mid-send.
	for _, s := range targets {
		s.trySend(msg)
	}
	h.mu.RUnlock()
}

// Serve upgrades the request and streams events for companyID until the
// client goes away. It blocks for the lifetime of the connection.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, companyID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	s := &subscriber{conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(companyID, s)
	logs.Logger.Debugf("[realtime] subscriber connected company=%q", companyID)

	go s.writePump()
	s.readPump()
	h.unregister(companyID, s)
	logs.Logger.Debugf("[realtime] subscriber left company=%q", companyID)
	return nil
}

// readPump only drains control frames; the stream is server to client.
func (s *subscriber) readPump() {
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logs.Logger.WithError(err).Debug("[realtime] read")
			}
			return
		}
	}
}

func (s *subscriber) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
