package gateway

import (
	"context"
	"sync"
)

// LifecycleKind enumerates the websocket.* connection lifecycle events of
// spec §2.
type LifecycleKind int

const (
	LifecycleConnect LifecycleKind = iota
	LifecycleMessage
	LifecycleClose
	LifecycleError
	LifecycleAuthSuccess
	LifecycleAuthFailure
)

// LifecycleEvent carries one connection lifecycle transition.
type LifecycleEvent struct {
	Kind    LifecycleKind
	Client  *Client
	Message *InboundMessage
	Err     error
}

// MutationAction enumerates the three data-mutation kinds the dispatcher
// reacts to, plus the two synthetic kinds (focus/status) the presence
// tracker fans out through the same channel.
type MutationAction string

const (
	ActionCreate MutationAction = "create"
	ActionUpdate MutationAction = "update"
	ActionDelete MutationAction = "delete"
)

// MutationEvent is the typed replacement for the source's string-keyed
// "<module>.create|update|delete" bindings. Per the REDESIGN FLAG in spec
// §9 ("dynamic dispatch via event bus -> typed handlers"), the 14-module ×
// 3-action wildcard binding becomes one struct dispatched over one channel,
// with ModulesWithMutationEvents as the table-driven registration list.
type MutationEvent struct {
	Collection string
	Action     MutationAction
	Key        interface{}
	Keys       []interface{}
	Payload    map[string]interface{}
}

// ModulesWithMutationEvents lists every data-service module the gateway
// subscribes to for create/update/delete, per spec §6's "data-mutation
// event sources" list.
var ModulesWithMutationEvents = []string{
	"items", "activity", "collections", "fields", "files", "folders",
	"permissions", "presets", "relations", "revisions", "roles",
	"settings", "users", "webhooks",
}

// EventBus is the gateway's internal publish/subscribe surface: one typed
// channel-shaped handler list per lifecycle kind and one for mutations,
// replacing internal/shared/eventbus's string-keyed Handler map (grounded
// on its EventBusInterface Subscribe/Publish shape) with compile-time
// checked subscriber lists per event category.
type EventBus struct {
	mu                sync.RWMutex
	lifecycleHandlers []func(context.Context, LifecycleEvent)
	mutationHandlers  []func(context.Context, MutationEvent)
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

// OnLifecycle registers a handler invoked synchronously for every
// connection lifecycle transition.
func (b *EventBus) OnLifecycle(h func(context.Context, LifecycleEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lifecycleHandlers = append(b.lifecycleHandlers, h)
}

// OnMutation registers a handler invoked synchronously for every
// data-mutation or synthetic focus/status event.
func (b *EventBus) OnMutation(h func(context.Context, MutationEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mutationHandlers = append(b.mutationHandlers, h)
}

func (b *EventBus) PublishLifecycle(ctx context.Context, ev LifecycleEvent) {
	b.mu.RLock()
	handlers := append([]func(context.Context, LifecycleEvent){}, b.lifecycleHandlers...)
	b.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, ev)
	}
}

func (b *EventBus) PublishMutation(ctx context.Context, ev MutationEvent) {
	b.mu.RLock()
	handlers := append([]func(context.Context, MutationEvent){}, b.mutationHandlers...)
	b.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, ev)
	}
}
