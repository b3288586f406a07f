package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-patient-monitor/internal/application/alert"
	"github.com/go-patient-monitor/internal/domain"
	"github.com/go-patient-monitor/internal/metrics"
	"github.com/go-patient-monitor/internal/protocol"
	appmiddleware "github.com/go-patient-monitor/internal/transport/http/middleware"
	"github.com/gorilla/websocket"
)

const (
	hubSendBuffer   = 64
	hubPingInterval = 30 * time.Second
	hubPongWait     = 90 * time.Second
	hubWriteWait    = 10 * time.Second
	hubReadLimit    = 64 << 10
	hubStatsTimeout = 5 * time.Second
)

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub is the server side of the event channel. Every connected client
// receives every broadcast, so another instance's channel client can use
// this endpoint as its upstream.
type Hub struct {
	verifier appmiddleware.TokenVerifier
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*hubClient]struct{}
}

func NewHub(verifier appmiddleware.TokenVerifier, logger *slog.Logger) *Hub {
	return &Hub{
		verifier: verifier,
		logger:   logger.With("component", "event_hub"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*hubClient]struct{}),
	}
}

// HandleEvents authenticates the handshake and upgrades it.
func (h *Hub) HandleEvents(w http.ResponseWriter, r *http.Request) {
	token, ok := appmiddleware.BearerToken(r)
	if !ok {
		http.Error(w, `{"error":"missing authorization"}`, http.StatusUnauthorized)
		h.logger.Warn("event connection rejected: no bearer token", "remote_addr", r.RemoteAddr)
		return
	}
	if _, err := h.verifier.Verify(token); err != nil {
		http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
		h.logger.Warn("event connection rejected: invalid credentials", "remote_addr", r.RemoteAddr)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade failed", "err", err)
		return
	}

	c := &hubClient{conn: conn, send: make(chan []byte, hubSendBuffer)}
	h.register(c)
	defer h.unregister(c)

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) register(c *hubClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.HubClients.Set(float64(n))
	h.logger.Info("event client connected", "clients", n)
}

// unregister closes c.send exactly once; writeLoop then closes the connection.
func (h *Hub) unregister(c *hubClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.HubClients.Set(float64(n))
}

// readLoop drains incoming frames so pongs and close frames are processed.
func (h *Hub) readLoop(c *hubClient) {
	c.conn.SetReadLimit(hubReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(hubPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(hubPongWait))
	})
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		env, err := protocol.Decode(msg)
		if err != nil {
			h.logger.Warn("invalid message from event client", "err", err)
			continue
		}
		h.logger.Debug("event client message ignored", "event", env.Event)
	}
}

func (h *Hub) writeLoop(c *hubClient) {
	ticker := time.NewTicker(hubPingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(hubWriteWait))
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(hubWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(hubWriteWait)); err != nil {
				return
			}
		}
	}
}

// Broadcast sends event to every client. A client whose buffer is full is
// dropped rather than allowed to stall the others.
func (h *Hub) Broadcast(event protocol.EventName, payload any) error {
	env, err := protocol.NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(env)
	if err != nil {
		return err
	}

	h.mu.Lock()
	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
			delete(h.clients, c)
			close(c.send)
			h.logger.Warn("slow event client dropped")
		}
	}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.HubClients.Set(float64(n))
	return nil
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	metrics.HubClients.Set(0)
}

type alertStatsSource interface {
	Stats(ctx context.Context) (domain.AlertStats, error)
}

// AlertObserver returns a store observer that broadcasts newAlert for added
// alerts and statsUpdate after every mutation.
func (h *Hub) AlertObserver(stats alertStatsSource) func(alert.Change) {
	return func(c alert.Change) {
		if c.Kind == alert.ChangeAdded && c.Alert != nil {
			if err := h.Broadcast(protocol.EventNewAlert, c.Alert); err != nil {
				h.logger.Error("broadcast new alert", "err", err)
			}
		}
		ctx, cancel := context.WithTimeout(context.Background(), hubStatsTimeout)
		defer cancel()
		s, err := stats.Stats(ctx)
		if err != nil {
			h.logger.Warn("stats for broadcast unavailable", "err", err)
			return
		}
		if err := h.Broadcast(protocol.EventStatsUpdate, s); err != nil {
			h.logger.Error("broadcast stats", "err", err)
		}
	}
}

// DeviceObserver broadcasts deviceUpdate for a changed device.
func (h *Hub) DeviceObserver(d domain.Device) {
	upd := domain.DeviceStatusUpdate{
		DeviceID:  d.DeviceID,
		Status:    d.Status,
		Battery:   d.Battery,
		Timestamp: d.LastUpdate,
	}
	if err := h.Broadcast(protocol.EventDeviceUpdate, upd); err != nil {
		h.logger.Error("broadcast device update", "err", err)
	}
}
