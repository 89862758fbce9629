package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"realtime-gateway/internal/shared/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// ClientID is a stable, non-owning identifier allocated at connect time.
// Per spec §9's cyclic-reference note, the registry holds ClientIDs, not
// *Client pointers, and resolves them against the Manager on dispatch; a
// missing resolution means "client gone, silently drop the subscription".
type ClientID string

// NewClientID allocates a fresh connection identifier.
func NewClientID() ClientID {
	return ClientID(uuid.NewString())
}

// Client is one live connection: its socket, its current auth epoch, the
// pending expiry timer for that epoch, and its outbound send queue, per
// spec §3's `{ socket, authEpoch, authTimer, sendQueue }`.
type Client struct {
	ID   ClientID
	conn *websocket.Conn
	log  logger.Logger

	mu        sync.Mutex
	epoch     AuthEpoch
	authTimer *time.Timer
	reauthCh  chan struct{}

	sendMu    sync.Mutex // serializes outbound writes: one writer at a time per socket
	outbound  chan OutboundMessage
	closed    chan struct{}
	closeOnce sync.Once

	RemoteIP  string
	UserAgent string
}

func newClient(conn *websocket.Conn, epoch AuthEpoch, log logger.Logger) *Client {
	c := &Client{
		ID:       NewClientID(),
		conn:     conn,
		log:      log,
		epoch:    epoch,
		reauthCh: make(chan struct{}, 1),
		outbound: make(chan OutboundMessage, 64),
		closed:   make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// writeLoop is the single writer goroutine for this socket — spec §5
// requires one writer at a time per connection; everyone else sends
// through safeSend rather than calling conn.WriteJSON directly.
func (c *Client) writeLoop() {
	for {
		select {
		case msg, ok := <-c.outbound:
			if !ok {
				return
			}
			c.sendMu.Lock()
			err := c.conn.WriteJSON(msg)
			c.sendMu.Unlock()
			if err != nil {
				c.log.Warnf("client %s: write failed: %v", c.ID, err)
				c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

// safeSend enqueues msg for delivery, retrying with a fixed backoff while
// the outbound buffer is full — the sendQueue discipline of spec §3 ("defer
// send by a fixed delay and retry; if the socket is no longer open, drop").
// The retry loop is bounded at maxRetries per spec §9's open-question
// decision, instead of looping forever.
func (c *Client) safeSend(ctx context.Context, msg OutboundMessage, retryDelay time.Duration, maxRetries int) {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		select {
		case <-c.closed:
			return
		case c.outbound <- msg:
			return
		default:
		}

		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		}
	}
	c.log.Warnf("client %s: dropping frame after %d retries, outbound buffer still full", c.ID, maxRetries)
}

// Epoch returns the client's current auth epoch.
func (c *Client) Epoch() AuthEpoch {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

func (c *Client) setEpoch(epoch AuthEpoch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch = epoch
}

func (c *Client) cancelAuthTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.authTimer != nil {
		c.authTimer.Stop()
		c.authTimer = nil
	}
}

// signalReauthenticated wakes up a pending onExpiry grace-window wait with
// a non-blocking send, so it can return without closing the connection.
func (c *Client) signalReauthenticated() {
	select {
	case c.reauthCh <- struct{}{}:
	default:
	}
}

// Close tears down the socket exactly once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.cancelAuthTimer()
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// Manager owns the set of live connections, drives each connection's read
// loop, and enforces the per-client token-expiry timer. Grounded on
// enhanced_ws_handler.go's EnhancedWebSocketHandler (connections map +
// connMutex) and ws_handler.go's per-connection read goroutine.
type Manager struct {
	mu      sync.RWMutex
	clients map[ClientID]*Client

	bus      *EventBus
	registry *Registry
	presence *Presence
	authctrl *AuthController
	cfg      *Config
	log      logger.Logger
}

// NewManager builds a connection Manager wired to its collaborators.
func NewManager(bus *EventBus, registry *Registry, presence *Presence, authctrl *AuthController, cfg *Config, log logger.Logger) *Manager {
	return &Manager{
		clients:  make(map[ClientID]*Client),
		bus:      bus,
		registry: registry,
		presence: presence,
		authctrl: authctrl,
		cfg:      cfg,
		log:      log,
	}
}

// Get resolves a ClientID to its live Client, if still connected.
func (m *Manager) Get(id ClientID) (*Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[id]
	return c, ok
}

// Count returns the number of live connections.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Accept registers an admitted connection and drives its read loop until
// close or error. It blocks until the connection terminates; callers run it
// inside the goroutine gofiber/contrib/websocket hands them, mirroring
// enhanced_ws_handler.go's handleEnhancedWebSocketConnection.
func (m *Manager) Accept(ctx context.Context, conn *websocket.Conn, epoch AuthEpoch, remoteIP, userAgent string) {
	client := newClient(conn, epoch, m.log.WithComponent("connection"))
	client.RemoteIP = remoteIP
	client.UserAgent = userAgent

	m.mu.Lock()
	m.clients[client.ID] = client
	m.mu.Unlock()

	m.armExpiryTimer(client)
	m.bus.PublishLifecycle(ctx, LifecycleEvent{Kind: LifecycleConnect, Client: client})
	if epoch.Accountability.IsAuthenticated() {
		m.presence.Connect(epoch.Accountability.User)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.teardown(ctx, client, LifecycleError, err)
			} else {
				m.teardown(ctx, client, LifecycleClose, nil)
			}
			return
		}

		var msg InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			client.safeSend(ctx, InvalidPayload("malformed JSON", err).ToFrame(""), m.cfg.SendRetryDelay, m.cfg.MaxSendRetries)
			continue
		}
		msg.NormalizeType()
		m.handleMessage(ctx, client, msg)
	}
}

// handleMessage routes one parsed frame, per spec §4.3's message handler:
// AUTH re-runs §4.2 inline; everything else is dispatched by type.
// Frames from one client are processed strictly in receive order because
// this loop is the connection's single reader.
func (m *Manager) handleMessage(ctx context.Context, client *Client, msg InboundMessage) {
	if msg.Type == TypeAuth {
		m.authctrl.HandleInlineAuth(ctx, client, msg, m)
		return
	}

	m.bus.PublishLifecycle(ctx, LifecycleEvent{Kind: LifecycleMessage, Client: client, Message: &msg})

	switch msg.Type {
	case TypeSubscribe:
		m.registry.Subscribe(ctx, client, msg)
	case TypeUnsubscribe:
		m.registry.Unsubscribe(ctx, client, msg)
	case TypeFocus:
		m.presence.HandleFocusMessage(ctx, client, msg)
	case TypePong:
		// unsolicited PONG acknowledging a server PING; no reply expected.
	case TypeItems:
		m.log.Debugf("client %s: ITEMS passthrough is an external-collaborator call, not implemented by the gateway itself", client.ID)
	default:
		client.safeSend(ctx, InvalidPayload("unknown message type: "+msg.Type, nil).ToFrame(msg.UID), m.cfg.SendRetryDelay, m.cfg.MaxSendRetries)
	}
}

// teardown removes a disconnecting client from every shared structure in
// the order spec §5 requires: registry removal must precede socket close so
// no dispatcher attempt races a dead socket.
func (m *Manager) teardown(ctx context.Context, client *Client, kind LifecycleKind, err error) {
	m.mu.Lock()
	_, existed := m.clients[client.ID]
	delete(m.clients, client.ID)
	m.mu.Unlock()
	if !existed {
		return
	}

	client.cancelAuthTimer()
	acc := client.Epoch().Accountability
	m.registry.RemoveAllForClient(ctx, client.ID)
	if acc.IsAuthenticated() {
		m.presence.Disconnect(ctx, acc.User)
	}
	client.Close()

	m.bus.PublishLifecycle(ctx, LifecycleEvent{Kind: kind, Client: client, Err: err})
}

// armExpiryTimer (re)schedules the client's one-shot token-expiry timer for
// its current epoch, cancelling any prior timer first — spec §4.3: "Only
// one timer per client; any new epoch cancels the old timer."
func (m *Manager) armExpiryTimer(client *Client) {
	epoch := client.Epoch()
	client.cancelAuthTimer()
	if epoch.ExpiresAt == nil {
		return
	}

	delay := time.Until(*epoch.ExpiresAt)
	if delay < 0 {
		delay = 0
	}

	client.mu.Lock()
	client.authTimer = time.AfterFunc(delay, func() {
		m.onExpiry(context.Background(), client)
	})
	client.mu.Unlock()
}

// onExpiry fires when a client's AuthEpoch expires: it clears the epoch
// (dropping the expired user's presence count), sends TOKEN_EXPIRED, and —
// unless the gateway runs in public mode — gives the client
// authentication.timeout to re-authenticate before closing.
func (m *Manager) onExpiry(ctx context.Context, client *Client) {
	prior := client.Epoch().Accountability
	client.setEpoch(PublicEpoch())
	if prior.IsAuthenticated() {
		m.presence.Disconnect(ctx, prior.User)
	}
	client.safeSend(ctx, TokenExpired().ToFrame(""), m.cfg.SendRetryDelay, m.cfg.MaxSendRetries)

	if m.authctrl.mode == AuthModePublic {
		return
	}

	timer := time.NewTimer(m.cfg.AuthTimeout())
	defer timer.Stop()
	select {
	case <-client.reauthCh:
		return
	case <-timer.C:
		m.teardown(ctx, client, LifecycleClose, nil)
	case <-client.closed:
	}
}
