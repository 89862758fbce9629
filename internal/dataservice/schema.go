package dataservice

import (
	"context"
	"sync"
	"time"

	"realtime-gateway/internal/gateway"

	"go.mongodb.org/mongo-driver/mongo"
)

// schemaCacheTTL bounds how long a resolved collection list is reused
// before ListCollectionNames is consulted again, so a newly-created
// collection becomes subscribable without restarting the gateway.
const schemaCacheTTL = 30 * time.Second

// collectionSet implements gateway.SchemaOverview over a fixed set of
// collection names resolved at one point in time.
type collectionSet map[string]struct{}

func (c collectionSet) HasCollection(collection string) bool {
	_, ok := c[collection]
	return ok
}

// SchemaCache implements gateway.SchemaResolver by listing the database's
// collections, the same set every accountability sees today: this gateway
// has no Directus-style per-role schema snapshot, so accountability is
// currently only used to let Admins bypass exposure checks in the registry.
type SchemaCache struct {
	db *mongo.Database

	mu        sync.Mutex
	resolved  collectionSet
	expiresAt time.Time
}

func NewSchemaCache(db *mongo.Database) *SchemaCache {
	return &SchemaCache{db: db}
}

func (s *SchemaCache) ResolveSchema(ctx context.Context, acc gateway.Accountability) (gateway.SchemaOverview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resolved != nil && time.Now().Before(s.expiresAt) {
		return s.resolved, nil
	}

	names, err := s.db.ListCollectionNames(ctx, map[string]interface{}{})
	if err != nil {
		return nil, err
	}

	set := make(collectionSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	s.resolved = set
	s.expiresAt = time.Now().Add(schemaCacheTTL)
	return set, nil
}
