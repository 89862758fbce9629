package gateway

import (
	"context"
	"encoding/json"

	"realtime-gateway/internal/shared/logger"

	"github.com/redis/go-redis/v9"
)

// PresenceMirrorChannel is the pub/sub channel a RedisMirror publishes
// status changes on, for any other gateway process sharing the same
// directus_users collection to observe.
const PresenceMirrorChannel = "gateway:presence:status"

// presenceStatusMessage is the wire shape published to PresenceMirrorChannel.
type presenceStatusMessage struct {
	User   string `json:"user"`
	Online bool   `json:"online"`
}

// RedisMirror publishes this process's presence transitions to Redis so a
// second gateway instance, which has no visibility into this process's
// in-memory online map, can still see a user go online/offline. Per §5's
// single-writer model the in-memory map stays authoritative for this
// process's own Dispatch/SUBSCRIBE decisions; the mirror is a read-only
// broadcast of transitions already decided here, not a shared source of
// truth — see DESIGN.md for why the registry itself stays single-process.
// Grounded on internal/firestore/config/redis_client.go's *redis.Client
// construction.
type RedisMirror struct {
	rdb *redis.Client
	log logger.Logger
}

// NewRedisMirror wraps an already-connected client. A nil client is valid
// and turns every method into a no-op, so Presence can hold a RedisMirror
// unconditionally instead of branching on whether Redis is configured.
func NewRedisMirror(rdb *redis.Client, log logger.Logger) *RedisMirror {
	return &RedisMirror{rdb: rdb, log: log.WithComponent("presence-mirror")}
}

func (m *RedisMirror) PublishStatus(ctx context.Context, user string, online bool) {
	if m == nil || m.rdb == nil {
		return
	}
	payload, err := json.Marshal(presenceStatusMessage{User: user, Online: online})
	if err != nil {
		m.log.Warnf("marshal presence status for %s: %v", user, err)
		return
	}
	if err := m.rdb.Publish(ctx, PresenceMirrorChannel, payload).Err(); err != nil {
		m.log.Warnf("publish presence status for %s: %v", user, err)
	}
}
