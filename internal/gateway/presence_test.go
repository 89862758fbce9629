package gateway

import (
	"context"
	"testing"

	"realtime-gateway/internal/shared/logger"

	"github.com/stretchr/testify/assert"
)

func TestPresence_Connect_FirstConnectionDispatchesStatus(t *testing.T) {
	bus := NewEventBus()
	var events []MutationEvent
	bus.OnMutation(func(_ context.Context, ev MutationEvent) { events = append(events, ev) })
	p := NewPresence(bus, logger.NewLogger())

	p.Connect("alice")
	p.Connect("alice") // second tab: no additional status event

	assert.True(t, p.IsOnline("alice"))
	assert.Len(t, events, 1)
	assert.Equal(t, MutationAction(EventStatus), events[0].Action)
}

func TestPresence_Disconnect_OnlyLastTabDispatchesStatus(t *testing.T) {
	bus := NewEventBus()
	var statusEvents int
	bus.OnMutation(func(_ context.Context, ev MutationEvent) {
		if ev.Action == MutationAction(EventStatus) {
			statusEvents++
		}
	})
	p := NewPresence(bus, logger.NewLogger())
	ctx := context.Background()

	p.Connect("alice")
	p.Connect("alice")
	assert.Equal(t, 1, statusEvents)

	p.Disconnect(ctx, "alice")
	assert.True(t, p.IsOnline("alice"))
	assert.Equal(t, 1, statusEvents)

	p.Disconnect(ctx, "alice")
	assert.False(t, p.IsOnline("alice"))
	assert.Equal(t, 2, statusEvents)
}

func TestPresence_SetFocus_LastWriterWins(t *testing.T) {
	bus := NewEventBus()
	p := NewPresence(bus, logger.NewLogger())
	ctx := context.Background()

	p.SetFocus(ctx, "alice", "articles", "1", "title")
	p.SetFocus(ctx, "alice", "articles", "1", "body")

	focus, ok := p.GetFocus("alice")
	assert.True(t, ok)
	assert.Equal(t, "body", focus.Field)
}

func TestPresence_HandleFocusMessage_RejectsUnauthenticated(t *testing.T) {
	bus := NewEventBus()
	p := NewPresence(bus, logger.NewLogger())

	client := newTestClient(PublicEpoch())
	p.HandleFocusMessage(context.Background(), client, InboundMessage{Collection: "articles"})

	frame := waitFrame(t, client)
	assert.Equal(t, "error", frame.Status)
	assert.Equal(t, string(CodeForbidden), frame.Error.Code)
}
