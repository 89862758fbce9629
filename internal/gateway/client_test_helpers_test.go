package gateway

import (
	"testing"
	"time"

	"realtime-gateway/internal/shared/logger"
)

// newTestClient builds a Client with no real socket, wired so tests can
// drain what would have gone to writeLoop by reading sendCh instead.
func newTestClient(epoch AuthEpoch) *Client {
	return &Client{
		ID:       NewClientID(),
		log:      logger.NewLogger(),
		epoch:    epoch,
		reauthCh: make(chan struct{}, 1),
		outbound: make(chan OutboundMessage, 64),
		closed:   make(chan struct{}),
	}
}

// waitFrame drains the next frame a test client was sent, failing the test
// if none arrives promptly.
func waitFrame(t *testing.T, c *Client) OutboundMessage {
	t.Helper()
	select {
	case msg := <-c.outbound:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for outbound frame")
		return OutboundMessage{}
	}
}
