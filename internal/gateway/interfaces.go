package gateway

import (
	"context"
	"time"
)

// ItemsService is the external data-service collaborator the gateway reads
// through to materialize subscription payloads, per spec §1's "out of
// scope ... via §6 interfaces only" boundary and §6's required-services
// list. The gateway only ever calls the read methods; the mutation methods
// are carried so the interface matches the real collaborator's full
// contract, the way spec §6 documents it.
type ItemsService interface {
	ReadOne(ctx context.Context, collection string, key interface{}, query *Query, acc Accountability) (map[string]interface{}, error)
	ReadMany(ctx context.Context, collection string, keys []interface{}, query *Query, acc Accountability) ([]map[string]interface{}, error)
	ReadByQuery(ctx context.Context, collection string, query *Query, acc Accountability) ([]map[string]interface{}, error)
	CreateOne(ctx context.Context, collection string, payload map[string]interface{}, acc Accountability) (interface{}, error)
	CreateMany(ctx context.Context, collection string, payloads []map[string]interface{}, acc Accountability) ([]interface{}, error)
	UpdateOne(ctx context.Context, collection string, key interface{}, payload map[string]interface{}, acc Accountability) error
	UpdateMany(ctx context.Context, collection string, keys []interface{}, payload map[string]interface{}, acc Accountability) error
	DeleteOne(ctx context.Context, collection string, key interface{}, acc Accountability) error
	DeleteMany(ctx context.Context, collection string, keys []interface{}, acc Accountability) error
}

// MetaService supplies the optional aggregate metadata (filter_count,
// total_count, ...) a SUBSCRIBE with query.meta asks for.
type MetaService interface {
	GetMetaForQuery(ctx context.Context, collection string, query *Query, acc Accountability) (map[string]interface{}, error)
}

// SchemaOverview is the minimal schema surface the registry needs to decide
// whether a collection is exposed to a given accountability.
type SchemaOverview interface {
	HasCollection(collection string) bool
}

// SchemaResolver resolves the schema visible to an accountability.
type SchemaResolver interface {
	ResolveSchema(ctx context.Context, acc Accountability) (SchemaOverview, error)
}

// AccountabilityResolver resolves an Accountability from a bearer token, or
// refreshes one that may have changed since connect (role/permission
// edits), per spec §6's resolveAccountabilityForToken/resolveAccountabilityForRole.
type AccountabilityResolver interface {
	ResolveForToken(ctx context.Context, token string) (Accountability, *time.Time, error)
	Refresh(ctx context.Context, acc Accountability) (Accountability, error)
}

// AuthenticationService is the platform login/refresh collaborator backing
// the email+password and refresh_token credential shapes in spec §4.2.
type AuthenticationService interface {
	Login(ctx context.Context, email, password string) (accessToken string, expiresAt *time.Time, err error)
	Refresh(ctx context.Context, refreshToken string) (accessToken string, err error)
}
