// Package channel is the client side of the real-time event channel: an
// authenticated WebSocket that delivers named events to registered listeners.
package channel

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-patient-monitor/internal/domain"
	"github.com/go-patient-monitor/internal/metrics"
	"github.com/go-patient-monitor/internal/pkg/observer"
	"github.com/go-patient-monitor/internal/protocol"
	"github.com/gorilla/websocket"
)

const (
	defaultConnectTimeout  = 10 * time.Second
	defaultBaseDelay       = time.Second
	defaultMaxDelay        = 5 * time.Minute
	heartbeatInterval      = 30 * time.Second
	pongWait               = 70 * time.Second // slightly longer than heartbeat
	writeTimeout           = 10 * time.Second
	authErrorBodyMaxLength = 256
)

type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	}
	return "disconnected"
}

// ReconnectPolicy bounds automatic reconnection after a dropped connection.
// MaxRetries of zero disables it; the caller then calls Connect again.
type ReconnectPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

type Options struct {
	Logger         *slog.Logger
	ConnectTimeout time.Duration
	Reconnect      ReconnectPolicy
	Dialer         *websocket.Dialer
	// OnError is told about listener failures and failed reconnect attempts.
	OnError func(event protocol.EventName, err error)
}

// AuthError is returned when the server rejects the credential during the
// handshake. It unwraps to domain.ErrUnauthorized.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("event channel rejected credential (status=%d)", e.StatusCode)
	}
	return fmt.Sprintf("event channel rejected credential (status=%d): %s", e.StatusCode, e.Body)
}

func (e *AuthError) Unwrap() error { return domain.ErrUnauthorized }

// Callback handles one event. A returned error or panic is reported and does
// not stop delivery to the remaining listeners.
type Callback func(env protocol.Envelope) error

// Subscription identifies one registered listener.
type Subscription struct {
	event  protocol.EventName
	handle *observer.Handle[protocol.Envelope]
}

func (s *Subscription) Event() protocol.EventName { return s.event }

// session spans one Connect call until Disconnect or until reconnection gives
// up. Goroutines compare their session with the current one before touching
// client state.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Client is safe for concurrent use.
type Client struct {
	url    string
	opts   Options
	logger *slog.Logger

	mu         sync.Mutex
	state      State
	sess       *session
	conn       *websocket.Conn
	credential string

	writeMu sync.Mutex

	listenersMu sync.Mutex
	listeners   map[protocol.EventName]*observer.Registry[protocol.Envelope]
}

// NewClient creates a disconnected client for baseURL. http and https URLs
// are dialed as ws and wss.
func NewClient(baseURL string, opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	if opts.Reconnect.BaseDelay <= 0 {
		opts.Reconnect.BaseDelay = defaultBaseDelay
	}
	if opts.Reconnect.MaxDelay <= 0 {
		opts.Reconnect.MaxDelay = defaultMaxDelay
	}
	if opts.Dialer == nil {
		d := *websocket.DefaultDialer
		opts.Dialer = &d
	}
	return &Client{
		url:       websocketURL(baseURL),
		opts:      opts,
		logger:    opts.Logger.With("component", "event_channel"),
		listeners: make(map[protocol.EventName]*observer.Registry[protocol.Envelope]),
	}
}

func websocketURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	return u.String()
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Connect opens the channel with credential as a bearer token. It is a no-op
// while the client is connecting or connected. The dial is bounded by the
// configured connect timeout as well as ctx.
func (c *Client) Connect(ctx context.Context, credential string) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return nil
	}
	sctx, cancel := context.WithCancel(context.Background())
	s := &session{ctx: sctx, cancel: cancel}
	c.sess = s
	c.credential = credential
	c.state = StateConnecting
	c.mu.Unlock()

	if err := c.open(ctx, s); err != nil {
		c.mu.Lock()
		if c.sess == s {
			c.sess = nil
			c.state = StateDisconnected
		}
		c.mu.Unlock()
		cancel()
		return err
	}
	return nil
}

func (c *Client) open(ctx context.Context, s *session) error {
	c.mu.Lock()
	credential := c.credential
	c.mu.Unlock()

	conn, err := c.dial(ctx, credential)
	if err != nil {
		c.logger.Warn("event channel dial failed", "url", c.url, "err", err)
		return err
	}

	c.mu.Lock()
	if c.sess != s {
		c.mu.Unlock()
		_ = conn.Close()
		return fmt.Errorf("event channel closed while connecting: %w", domain.ErrUnavailable)
	}
	c.conn = conn
	c.state = StateConnected
	c.mu.Unlock()

	metrics.SetChannelConnected(true)
	c.logger.Info("event channel connected", "url", c.url)
	go c.serve(s, conn)
	return nil
}

func (c *Client) dial(ctx context.Context, credential string) (*websocket.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.ConnectTimeout)
	defer cancel()

	header := http.Header{}
	if credential != "" {
		header.Set("Authorization", "Bearer "+credential)
	}
	conn, resp, err := c.opts.Dialer.DialContext(ctx, c.url, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, authErrorBodyMaxLength))
				return nil, &AuthError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
			}
		}
		return nil, fmt.Errorf("dial %s: %w: %w", c.url, domain.ErrUnavailable, err)
	}
	return conn, nil
}

// serve owns conn until it fails or Disconnect closes it.
func (c *Client) serve(s *session, conn *websocket.Conn) {
	connCtx, stopHeartbeat := context.WithCancel(s.ctx)
	go c.heartbeatLoop(connCtx, conn)

	err := c.readLoop(conn)
	stopHeartbeat()
	_ = conn.Close()

	c.mu.Lock()
	if c.sess != s {
		// Disconnect already reset the client.
		c.mu.Unlock()
		return
	}
	retry := c.opts.Reconnect.MaxRetries > 0
	c.conn = nil
	if retry {
		c.state = StateConnecting
	} else {
		c.state = StateDisconnected
		c.sess = nil
	}
	c.mu.Unlock()

	metrics.SetChannelConnected(false)
	c.logger.Warn("event channel dropped", "err", err, "reconnect", retry)
	if !retry {
		s.cancel()
		return
	}
	c.reconnect(s)
}

func (c *Client) readLoop(conn *websocket.Conn) error {
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		c.dispatch(frame)
	}
}

func (c *Client) heartbeatLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.writeMu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Warn("event channel ping failed", "err", err)
				return
			}
		}
	}
}

func (c *Client) reconnect(s *session) {
	policy := c.opts.Reconnect
	delay := policy.BaseDelay

	for attempt := 1; attempt <= policy.MaxRetries; attempt++ {
		wait := jitter(delay)
		c.logger.Info("event channel reconnecting", "attempt", attempt, "backoff", wait)

		select {
		case <-s.ctx.Done():
			return
		case <-time.After(wait):
		}

		err := c.open(s.ctx, s)
		if err == nil {
			metrics.ChannelReconnectsTotal.WithLabelValues("success").Inc()
			return
		}
		metrics.ChannelReconnectsTotal.WithLabelValues("failure").Inc()
		c.reportError("", err)

		var authErr *AuthError
		if errors.As(err, &authErr) || s.ctx.Err() != nil {
			break
		}
		delay *= 2
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	c.mu.Lock()
	if c.sess == s {
		c.sess = nil
		c.state = StateDisconnected
	}
	c.mu.Unlock()
	s.cancel()
	metrics.ChannelReconnectsTotal.WithLabelValues("exhausted").Inc()
	c.logger.Warn("event channel reconnection abandoned", "max_retries", policy.MaxRetries)
}

// jitter adds 0-50% random jitter to a duration to prevent thundering herd.
func jitter(d time.Duration) time.Duration {
	max := int64(d / 2)
	if max <= 0 {
		return d
	}
	n, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		return d
	}
	return d + time.Duration(n.Int64())
}

// Disconnect closes the channel, stops any reconnection and drops every
// listener. It is safe to call at any time and more than once.
func (c *Client) Disconnect() {
	c.mu.Lock()
	s, conn := c.sess, c.conn
	c.sess = nil
	c.conn = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	if s != nil {
		s.cancel()
	}
	if conn != nil {
		c.writeMu.Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		_ = conn.Close()
		metrics.SetChannelConnected(false)
		c.logger.Info("event channel disconnected")
	}
	c.clearListeners()
}

// Send writes one event. A failed send is returned to the caller and leaves
// the connection in place.
func (c *Client) Send(ctx context.Context, event protocol.EventName, payload any) error {
	env, err := protocol.NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("send %s: not connected: %w", event, domain.ErrUnavailable)
	}

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send %s: %w: %w", event, domain.ErrUnavailable, err)
	}
	return nil
}
