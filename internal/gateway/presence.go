package gateway

import (
	"context"
	"sync"

	"realtime-gateway/internal/shared/logger"
)

// Focus records which item/field a user last reported editing, per spec
// §4.5. SetFocus is last-writer-wins: a newer focus report from any of the
// user's connections simply overwrites the prior one.
type Focus struct {
	Collection string
	Item       interface{}
	Field      string
}

// Presence tracks which users are online (by live-connection count, so the
// user stays "online" until their last tab closes) and their last reported
// focus, fanning out synthetic status/focus events over the same EventBus
// the real data-mutation events travel on.
type Presence struct {
	mu     sync.Mutex
	online map[string]int
	focus  map[string]Focus

	bus    *EventBus
	mirror *RedisMirror
	log    logger.Logger
}

func NewPresence(bus *EventBus, log logger.Logger) *Presence {
	return &Presence{
		online: make(map[string]int),
		focus:  make(map[string]Focus),
		bus:    bus,
		log:    log.WithComponent("presence"),
	}
}

// WithRedisMirror attaches a cross-process presence broadcaster. Optional;
// a Presence with no mirror behaves exactly as before.
func (p *Presence) WithRedisMirror(mirror *RedisMirror) *Presence {
	p.mirror = mirror
	return p
}

// Connect registers one more live connection for user. A "status" event
// fans out only on the first connection for that user (offline -> online).
func (p *Presence) Connect(user string) {
	if user == "" {
		return
	}
	p.mu.Lock()
	p.online[user]++
	first := p.online[user] == 1
	p.mu.Unlock()

	if first {
		p.dispatchStatus(user)
	}
}

// Disconnect removes one live connection for user. A "status" event fans
// out only when the count reaches zero (the user's last tab closed).
func (p *Presence) Disconnect(ctx context.Context, user string) {
	if user == "" {
		return
	}
	p.mu.Lock()
	p.online[user]--
	last := p.online[user] <= 0
	if last {
		delete(p.online, user)
		delete(p.focus, user)
	}
	p.mu.Unlock()

	if last {
		p.dispatchStatus(user)
	}
}

// IsOnline reports whether user has at least one live connection.
func (p *Presence) IsOnline(user string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[user] > 0
}

// SetFocus records the user's current focus and fans out a synthetic focus
// mutation event to any subscription with status tracking enabled.
func (p *Presence) SetFocus(ctx context.Context, user, collection string, item interface{}, field string) {
	if user == "" {
		return
	}
	p.mu.Lock()
	p.focus[user] = Focus{Collection: collection, Item: item, Field: field}
	p.mu.Unlock()

	p.bus.PublishMutation(ctx, MutationEvent{
		Collection: collection,
		Action:     MutationAction(EventFocus),
		Key:        item,
		Payload: map[string]interface{}{
			"user":  user,
			"field": field,
		},
	})
}

// GetFocus returns the user's last reported focus, if any.
func (p *Presence) GetFocus(user string) (Focus, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.focus[user]
	return f, ok
}

// HandleFocusMessage handles an inbound FOCUS frame, per spec §4.5.
func (p *Presence) HandleFocusMessage(ctx context.Context, client *Client, msg InboundMessage) {
	acc := client.Epoch().Accountability
	if !acc.IsAuthenticated() {
		client.safeSend(ctx, Forbidden("FOCUS requires an authenticated connection").WithOrigin(TypeFocus).ToFrame(msg.UID), 0, 0)
		return
	}
	p.SetFocus(ctx, acc.User, msg.Collection, msg.Item, msg.Field)
}

// dispatchStatus fans out a directus_users-collection "status" synthetic
// event, which only subscriptions watching the full users collection (not
// a single item) ever receive — spec §4.4's open-question decision.
func (p *Presence) dispatchStatus(user string) {
	online := p.IsOnline(user)
	p.bus.PublishMutation(context.Background(), MutationEvent{
		Collection: "directus_users",
		Action:     MutationAction(EventStatus),
		Key:        user,
		Payload: map[string]interface{}{
			"user":   user,
			"online": online,
		},
	})
	p.mirror.PublishStatus(context.Background(), user, online)
}
