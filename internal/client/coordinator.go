// Package client implements a gateway client: a Coordinator that
// correlates websocket frames by uid, and a Supervisor that dials,
// supervises, and reconnects the underlying connection.
package client

import (
	"context"
	"fmt"
	"sync"

	"realtime-gateway/internal/gateway"
)

// wireConn is the subset of *github.com/fasthttp/websocket.Conn the
// Coordinator needs. Narrowing to an interface keeps the uid-routing logic
// testable against a fake transport instead of a live socket.
type wireConn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	Close() error
}

// pendingRequest is a one-shot waiter for the single reply that carries a
// given uid — AUTH's reply, or UNSUBSCRIBE's ack.
type pendingRequest struct {
	replyCh chan gateway.OutboundMessage
}

// Coordinator multiplexes one websocket connection's inbound frames to
// their uid-correlated waiters: a one-shot channel for request/response
// pairs (AUTH, UNSUBSCRIBE), or a long-lived stream channel for a
// SUBSCRIBE's init/create/update/delete/focus/status events. Grounded on
// FirestoreRealtimeClient's subscriptions map and setupMessageHandlers
// dispatch-by-type loop, generalized from "one channel per subscription
// ID" to "one channel or one-shot waiter per uid" since this gateway's
// wire protocol correlates every reply type by the same field.
type Coordinator struct {
	conn wireConn

	mu      sync.Mutex
	pending map[string]*pendingRequest
	streams map[string]chan gateway.OutboundMessage

	closed    chan struct{}
	closeOnce sync.Once

	// onUnmatched receives frames whose uid matches neither a pending
	// request nor an open stream — heartbeats and pings, which the wire
	// protocol sends with no uid at all.
	onUnmatched func(gateway.OutboundMessage)
}

// NewCoordinator wraps an already-dialed connection. onUnmatched may be
// nil; unmatched frames are silently dropped in that case.
func NewCoordinator(conn wireConn, onUnmatched func(gateway.OutboundMessage)) *Coordinator {
	return &Coordinator{
		conn:        conn,
		pending:     make(map[string]*pendingRequest),
		streams:     make(map[string]chan gateway.OutboundMessage),
		closed:      make(chan struct{}),
		onUnmatched: onUnmatched,
	}
}

// Run drives the read loop until the connection errors. It blocks; callers
// run it in its own goroutine, the way handleMessages does for
// FirestoreRealtimeClient. The returned error is the triggering read
// error, so a Supervisor can classify it as reconnect-worthy or terminal.
func (c *Coordinator) Run() error {
	defer c.shutdown()
	for {
		var msg gateway.OutboundMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("coordinator read: %w", err)
		}
		c.dispatch(msg)
	}
}

func (c *Coordinator) dispatch(msg gateway.OutboundMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if stream, ok := c.streams[msg.UID]; ok {
		select {
		case stream <- msg:
		default:
			// slow consumer; drop rather than block the read loop, the way
			// handleDocumentChange guards its forward with a timeout instead
			// of an unbounded blocking send.
		}
		return
	}
	if pr, ok := c.pending[msg.UID]; ok {
		delete(c.pending, msg.UID)
		pr.replyCh <- msg
		close(pr.replyCh)
		return
	}
	if c.onUnmatched != nil {
		c.onUnmatched(msg)
	}
}

// Request sends req and blocks until the reply carrying the same uid
// arrives, or ctx is done. Used for AUTH and UNSUBSCRIBE, whose uid names
// a single reply rather than an ongoing stream.
func (c *Coordinator) Request(ctx context.Context, req gateway.InboundMessage) (gateway.OutboundMessage, error) {
	if req.UID == "" {
		return gateway.OutboundMessage{}, fmt.Errorf("request requires a uid to correlate its reply")
	}

	pr := &pendingRequest{replyCh: make(chan gateway.OutboundMessage, 1)}
	c.mu.Lock()
	c.pending[req.UID] = pr
	c.mu.Unlock()

	if err := c.conn.WriteJSON(req); err != nil {
		c.mu.Lock()
		delete(c.pending, req.UID)
		c.mu.Unlock()
		return gateway.OutboundMessage{}, fmt.Errorf("send request: %w", err)
	}

	select {
	case reply, ok := <-pr.replyCh:
		if !ok {
			return gateway.OutboundMessage{}, fmt.Errorf("coordinator closed while awaiting reply to %s", req.UID)
		}
		return reply, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, req.UID)
		c.mu.Unlock()
		return gateway.OutboundMessage{}, ctx.Err()
	case <-c.closed:
		return gateway.OutboundMessage{}, fmt.Errorf("coordinator closed while awaiting reply to %s", req.UID)
	}
}

// Stream sends req (a SUBSCRIBE frame) and registers its uid as a
// long-lived event stream. The caller receives every subsequent frame
// carrying that uid until CloseStream or the connection drops.
func (c *Coordinator) Stream(req gateway.InboundMessage, bufferSize int) (<-chan gateway.OutboundMessage, error) {
	if req.UID == "" {
		return nil, fmt.Errorf("stream requires a uid to correlate its events")
	}
	if bufferSize <= 0 {
		bufferSize = 16
	}

	ch := make(chan gateway.OutboundMessage, bufferSize)
	c.mu.Lock()
	c.streams[req.UID] = ch
	c.mu.Unlock()

	if err := c.conn.WriteJSON(req); err != nil {
		c.mu.Lock()
		delete(c.streams, req.UID)
		c.mu.Unlock()
		close(ch)
		return nil, fmt.Errorf("send subscribe: %w", err)
	}
	return ch, nil
}

// CloseStream stops routing frames for uid and closes its channel. The
// caller still owes the server an UNSUBSCRIBE frame; this only tears down
// local bookkeeping, mirroring Unsubscribe's close(eventChan) + delete.
func (c *Coordinator) CloseStream(uid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.streams[uid]; ok {
		delete(c.streams, uid)
		close(ch)
	}
}

// Send writes a frame with no reply correlation, e.g. FOCUS or PONG.
func (c *Coordinator) Send(msg gateway.InboundMessage) error {
	return c.conn.WriteJSON(msg)
}

// Close closes the underlying connection, which unblocks Run.
func (c *Coordinator) Close() error {
	return c.conn.Close()
}

// shutdown releases every waiter once Run's read loop exits, the way
// cleanup closes every open subscription channel.
func (c *Coordinator) shutdown() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	for uid, pr := range c.pending {
		close(pr.replyCh)
		delete(c.pending, uid)
	}
	for uid, ch := range c.streams {
		close(ch)
		delete(c.streams, uid)
	}
}
