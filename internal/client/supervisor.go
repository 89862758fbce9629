package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"realtime-gateway/internal/gateway"
	"realtime-gateway/internal/shared/logger"

	"github.com/fasthttp/websocket"
)

// reconnectBackoffUnit is attemptReconnect's per-attempt backoff step,
// carried over unchanged from FirestoreRealtimeClient (attempt * 2s).
const reconnectBackoffUnit = 2 * time.Second

// DialerConfig configures how Supervisor dials and re-dials a gateway's
// websocket endpoint. Grounded on FirestoreRealtimeClient.connect's
// token-as-query-param-plus-Authorization-header dual auth and its
// Sec-WebSocket-Protocol header.
type DialerConfig struct {
	ServerURL         string
	AccessToken       string
	HandshakeTimeout  time.Duration
	MaxReconnectTries int
}

func (d DialerConfig) withDefaults() DialerConfig {
	if d.HandshakeTimeout == 0 {
		d.HandshakeTimeout = 10 * time.Second
	}
	if d.MaxReconnectTries == 0 {
		d.MaxReconnectTries = 5
	}
	return d
}

// Supervisor owns the lifecycle of one logical connection to a gateway:
// dialing, running its Coordinator's read loop, and — on an unexpected
// close — reconnecting with a linearly increasing delay up to
// MaxReconnectTries, mirroring FirestoreRealtimeClient.attemptReconnect
// (which the teacher left as a stub deliberately storing no server URL;
// Supervisor keeps the URL so the retry it describes can actually run).
type Supervisor struct {
	cfg DialerConfig
	log logger.Logger

	mu          sync.Mutex
	coordinator *Coordinator
	attempts    int
	stopping    bool

	onUnmatched func(gateway.OutboundMessage)
	onReconnect func(*Coordinator)
}

func NewSupervisor(cfg DialerConfig, log logger.Logger) *Supervisor {
	return &Supervisor{cfg: cfg.withDefaults(), log: log.WithComponent("client")}
}

// OnUnmatched registers a callback for frames whose uid names neither a
// pending request nor an open stream (heartbeats and pings, which carry no
// uid). Must be called before Start.
func (s *Supervisor) OnUnmatched(fn func(gateway.OutboundMessage)) {
	s.onUnmatched = fn
}

// OnReconnect registers a callback invoked with the fresh Coordinator every
// time the supervisor establishes or re-establishes a connection, so a
// caller can re-issue SUBSCRIBE for every stream it cares about. Must be
// called before Start.
func (s *Supervisor) OnReconnect(fn func(*Coordinator)) {
	s.onReconnect = fn
}

// Start dials the server, launches the Coordinator's read loop, and keeps
// reconnecting on unexpected closes — per the server's own
// IsUnexpectedCloseError classification — until ctx is cancelled, Close is
// called, or MaxReconnectTries is exhausted. It blocks until one of those
// terminal conditions and returns the resulting error, if any.
func (s *Supervisor) Start(ctx context.Context) error {
	for {
		coord, err := s.dial(ctx)
		if err != nil {
			return fmt.Errorf("dial gateway: %w", err)
		}

		s.mu.Lock()
		s.coordinator = coord
		s.attempts = 0
		s.mu.Unlock()

		if s.onReconnect != nil {
			s.onReconnect(coord)
		}

		runErr := coord.Run()

		s.mu.Lock()
		stopping := s.stopping
		s.mu.Unlock()
		if stopping || ctx.Err() != nil {
			return ctx.Err()
		}
		if !isUnexpectedClose(runErr) {
			return runErr
		}

		s.log.Warnf("connection dropped: %v", runErr)
		if err := s.backoff(ctx); err != nil {
			return err
		}
	}
}

func isUnexpectedClose(err error) bool {
	// Coordinator.Run wraps the read error, and IsUnexpectedCloseError only
	// recognises a bare *CloseError, so unwrap it first.
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		return false
	}
	return websocket.IsUnexpectedCloseError(closeErr, websocket.CloseGoingAway, websocket.CloseAbnormalClosure)
}

// backoff waits attempt*reconnectBackoffUnit before the next dial,
// returning an error once MaxReconnectTries is exceeded — the delay
// FirestoreRealtimeClient.attemptReconnect computes but, by its own
// comment, never actually had a server URL to redial with.
func (s *Supervisor) backoff(ctx context.Context) error {
	s.mu.Lock()
	s.attempts++
	attempt := s.attempts
	s.mu.Unlock()

	if attempt > s.cfg.MaxReconnectTries {
		return fmt.Errorf("giving up after %d reconnect attempts", s.cfg.MaxReconnectTries)
	}

	delay := time.Duration(attempt) * reconnectBackoffUnit
	s.log.Infof("reconnecting in %v (attempt %d/%d)", delay, attempt, s.cfg.MaxReconnectTries)

	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Supervisor) dial(ctx context.Context) (*Coordinator, error) {
	u, err := url.Parse(s.cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}

	if s.cfg.AccessToken != "" {
		q := u.Query()
		q.Set("access_token", s.cfg.AccessToken)
		u.RawQuery = q.Encode()
	}

	headers := http.Header{
		"Sec-WebSocket-Protocol": {"realtime-gateway"},
		"User-Agent":             {"realtime-gateway-client/1.0"},
	}
	if s.cfg.AccessToken != "" {
		headers.Set("Authorization", "Bearer "+s.cfg.AccessToken)
	}

	dialer := &websocket.Dialer{
		HandshakeTimeout: s.cfg.HandshakeTimeout,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}

	conn, _, err := dialer.Dial(u.String(), headers)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}

	return NewCoordinator(conn, func(msg gateway.OutboundMessage) {
		if s.onUnmatched != nil {
			s.onUnmatched(msg)
		}
	}), nil
}

// Close marks the supervisor as deliberately stopped, so Start's loop
// returns instead of reconnecting, and closes the live connection if any.
func (s *Supervisor) Close() error {
	s.mu.Lock()
	s.stopping = true
	coord := s.coordinator
	s.mu.Unlock()

	if coord == nil {
		return nil
	}
	return coord.Close()
}

// Current returns the Coordinator for the supervisor's current connection,
// if one is live.
func (s *Supervisor) Current() (*Coordinator, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coordinator, s.coordinator != nil
}
